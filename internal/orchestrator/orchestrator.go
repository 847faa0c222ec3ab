package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/docintel/backend/internal/agents"
	"github.com/docintel/backend/internal/cache"
	"github.com/docintel/backend/internal/metrics"
	"github.com/docintel/backend/internal/storage"
	"github.com/docintel/backend/internal/storage/models"
	"github.com/docintel/backend/internal/tasks"
	"github.com/docintel/backend/internal/vector"
	"github.com/docintel/backend/pkg/logger"
	"github.com/docintel/backend/pkg/retry"
	"github.com/docintel/backend/pkg/utils"
)

type Config struct {
	StorageDir   string
	CacheEnabled bool
	CacheTTL     time.Duration
	AsyncEnabled bool
	TopK         int
}

type IngestResult struct {
	DocID         string `json:"doc_id"`
	Filename      string `json:"filename"`
	FileType      string `json:"file_type"`
	Pages         int    `json:"pages"`
	ChunksIndexed int    `json:"chunks_indexed"`
}

type Answer struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
	Cached  bool     `json:"cached"`
}

// Orchestrator is the single coordination point between the API boundary
// and the agent pipeline. It owns caching policy for questions and the
// task lifecycle for async ingests: nothing else writes task records, and
// documents become visible to readers only when a full ingest commits.
type Orchestrator struct {
	ingestion agents.Agent[agents.IngestInput, agents.IngestOutput]
	indexing  agents.Agent[agents.IndexInput, agents.IndexOutput]
	qa        agents.Agent[agents.QAInput, agents.QAOutput]

	docs      storage.DocumentStore
	vectors   vector.Store
	cache     cache.Store
	registry  tasks.Registry
	scheduler tasks.Scheduler

	cfg Config
}

func New(
	ingestion agents.Agent[agents.IngestInput, agents.IngestOutput],
	indexing agents.Agent[agents.IndexInput, agents.IndexOutput],
	qa agents.Agent[agents.QAInput, agents.QAOutput],
	docs storage.DocumentStore,
	vectors vector.Store,
	cacheStore cache.Store,
	registry tasks.Registry,
	scheduler tasks.Scheduler,
	cfg Config,
) *Orchestrator {
	if cfg.TopK <= 0 {
		cfg.TopK = 4
	}

	return &Orchestrator{
		ingestion: ingestion,
		indexing:  indexing,
		qa:        qa,
		docs:      docs,
		vectors:   vectors,
		cache:     cacheStore,
		registry:  registry,
		scheduler: scheduler,
		cfg:       cfg,
	}
}

// Ingest runs extraction and indexing synchronously. The document and its
// chunks are staged first and published in one step at the end, so readers
// never observe a document with a partial index; on failure any vectors
// already written are rolled back.
func (o *Orchestrator) Ingest(ctx context.Context, filename string, data []byte) (*IngestResult, error) {
	if !agents.SupportedExtension(filename) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}

	docID := utils.HashString(filename)
	logger.Info("Processing upload",
		zap.String("doc_id", docID),
		zap.String("filename", filename),
	)

	ingested, err := o.ingestion.Process(ctx, agents.IngestInput{
		Filename: filename,
		Data:     data,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	indexed, err := o.indexing.Process(ctx, agents.IndexInput{
		DocID:    docID,
		Filename: filename,
		Text:     ingested.Text,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexingFailed, err)
	}

	if err := o.vectors.Upsert(ctx, docID, indexed.Entries); err != nil {
		o.rollbackVectors(docID)
		return nil, fmt.Errorf("%w: %v", ErrIndexingFailed, err)
	}

	path, err := o.persistFile(filename, data)
	if err != nil {
		o.rollbackVectors(docID)
		return nil, fmt.Errorf("%w: %v", ErrIndexingFailed, err)
	}

	now := time.Now()
	doc := &models.Document{
		ID:        docID,
		Filename:  filename,
		FileType:  ingested.FileType,
		SizeBytes: int64(len(data)),
		Pages:     ingested.Pages,
		Path:      path,
		Status:    models.DocumentStatusIndexed,
		CreatedAt: now,
		UpdatedAt: now,
	}

	chunks := make([]*models.Chunk, len(indexed.Entries))
	for i, entry := range indexed.Entries {
		chunks[i] = &models.Chunk{
			ID:         entry.ChunkID,
			DocID:      docID,
			ChunkIndex: entry.ChunkIndex,
			Text:       entry.Text,
			CreatedAt:  now,
		}
	}

	if err := o.docs.PublishDocument(ctx, doc, chunks); err != nil {
		o.rollbackVectors(docID)
		os.Remove(path)
		return nil, fmt.Errorf("%w: %v", ErrIndexingFailed, err)
	}

	metrics.DocumentsProcessed.Inc()
	metrics.ChunksIndexed.Add(float64(len(chunks)))

	logger.Info("Document indexed",
		zap.String("doc_id", docID),
		zap.Int("chunks", len(chunks)),
		zap.Int("pages", ingested.Pages),
	)

	return &IngestResult{
		DocID:         docID,
		Filename:      filename,
		FileType:      ingested.FileType,
		Pages:         ingested.Pages,
		ChunksIndexed: len(chunks),
	}, nil
}

// IngestAsync creates the task record before the job is handed to the
// scheduler so the caller can poll immediately. Faults inside the job are
// always captured into the record; none escape the worker.
func (o *Orchestrator) IngestAsync(ctx context.Context, filename string, data []byte) (string, error) {
	if !o.cfg.AsyncEnabled {
		return "", ErrAsyncDisabled
	}
	if !agents.SupportedExtension(filename) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}

	task, err := o.registry.Create(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create task: %w", err)
	}

	err = o.scheduler.Submit(func(jobCtx context.Context) {
		o.runIngestJob(jobCtx, task.ID, filename, data)
	})
	if err != nil {
		submitErr := err
		o.markTask(ctx, task.ID, func() error {
			return o.registry.MarkProcessing(ctx, task.ID)
		})
		o.markTask(ctx, task.ID, func() error {
			return o.registry.MarkFailed(ctx, task.ID, submitErr.Error())
		})
		return task.ID, nil
	}

	logger.Info("Async upload scheduled",
		zap.String("task_id", task.ID),
		zap.String("filename", filename),
	)

	return task.ID, nil
}

func (o *Orchestrator) runIngestJob(ctx context.Context, taskID, filename string, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Ingest job panicked",
				zap.String("task_id", taskID),
				zap.Any("panic", r),
			)
			o.markTask(ctx, taskID, func() error {
				return o.registry.MarkFailed(ctx, taskID, fmt.Sprintf("internal error: %v", r))
			})
			metrics.TasksTotal.WithLabelValues(string(tasks.StatusFailed)).Inc()
		}
	}()

	if err := o.markTask(ctx, taskID, func() error {
		return o.registry.MarkProcessing(ctx, taskID)
	}); err != nil {
		return
	}

	result, err := o.Ingest(ctx, filename, data)
	if err != nil {
		ingestErr := err
		o.markTask(ctx, taskID, func() error {
			return o.registry.MarkFailed(ctx, taskID, ingestErr.Error())
		})
		metrics.TasksTotal.WithLabelValues(string(tasks.StatusFailed)).Inc()
		logger.Error("Ingest job failed",
			zap.String("task_id", taskID),
			zap.Error(err),
		)
		return
	}

	o.markTask(ctx, taskID, func() error {
		return o.registry.MarkCompleted(ctx, taskID, map[string]any{
			"doc_id":         result.DocID,
			"filename":       result.Filename,
			"file_type":      result.FileType,
			"pages":          result.Pages,
			"chunks_indexed": result.ChunksIndexed,
		})
	})
	metrics.TasksTotal.WithLabelValues(string(tasks.StatusCompleted)).Inc()

	logger.Info("Ingest job completed",
		zap.String("task_id", taskID),
		zap.String("doc_id", result.DocID),
	)
}

func (o *Orchestrator) GetTask(ctx context.Context, id string) (*tasks.Task, error) {
	return o.registry.Get(ctx, id)
}

// Ask answers a question, consulting the cache before touching the
// pipeline. The cache key is a digest of the normalized query, so the most
// expensive operation in the system is paid once per distinct question per
// TTL window.
func (o *Orchestrator) Ask(ctx context.Context, query string) (*Answer, error) {
	normalized := utils.NormalizeQuery(query)
	if normalized == "" {
		return nil, ErrEmptyQuery
	}

	start := time.Now()
	key := utils.QueryCacheKey(query)

	if o.cfg.CacheEnabled {
		var cached Answer
		hit, err := o.cache.Get(ctx, key, &cached)
		if err != nil {
			logger.Warn("Cache read failed", zap.Error(err))
		}
		if hit {
			metrics.CacheHits.Inc()
			cached.Cached = true
			logger.Info("Cache hit", zap.String("key", key))
			return &cached, nil
		}
		metrics.CacheMisses.Inc()
	}

	count, err := o.docs.CountDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if count == 0 {
		return nil, ErrEmptyIndex
	}

	out, err := o.qa.Process(ctx, agents.QAInput{Query: query, TopK: o.cfg.TopK})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	answer := &Answer{
		Answer:  out.Answer,
		Sources: out.Sources,
		Cached:  false,
	}

	if o.cfg.CacheEnabled {
		if err := o.cache.Set(ctx, key, answer, o.cfg.CacheTTL); err != nil {
			logger.Warn("Cache write failed", zap.Error(err))
		}
	}

	metrics.QueryDuration.Observe(time.Since(start).Seconds())

	return answer, nil
}

func (o *Orchestrator) ListDocuments(ctx context.Context) ([]*models.Document, error) {
	return o.docs.ListDocuments(ctx)
}

// DeleteDocument removes the record, its chunks and its vectors. Cached
// answers citing the document are left to expire with their TTL.
func (o *Orchestrator) DeleteDocument(ctx context.Context, filename string) error {
	doc, err := o.docs.GetDocumentByFilename(ctx, filename)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrDocumentNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to look up document: %w", err)
	}

	if err := o.vectors.DeleteByDoc(ctx, doc.ID); err != nil {
		return fmt.Errorf("failed to delete vectors: %w", err)
	}

	if err := o.docs.DeleteDocument(ctx, doc.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to delete document record: %w", err)
	}

	if doc.Path != "" {
		os.Remove(doc.Path)
	}

	metrics.DocumentsDeleted.Inc()
	logger.Info("Document deleted",
		zap.String("doc_id", doc.ID),
		zap.String("filename", filename),
	)

	return nil
}

func (o *Orchestrator) ClearCache(ctx context.Context) error {
	return o.cache.Clear(ctx)
}

// markTask applies a registry transition with a short retry so a transient
// registry error cannot strand a task in a non-terminal state unnoticed.
// Invalid transitions are not retried.
func (o *Orchestrator) markTask(ctx context.Context, taskID string, mark func() error) error {
	var permanent error
	err := retry.Do(ctx, retry.Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Logger:       logger.GetLogger(),
	}, func() error {
		err := mark()
		if errors.Is(err, tasks.ErrInvalidTransition) || errors.Is(err, tasks.ErrTaskNotFound) {
			permanent = err
			return nil
		}
		return err
	})
	if err == nil {
		err = permanent
	}
	if err != nil {
		logger.Error("Failed to record task state",
			zap.String("task_id", taskID),
			zap.Error(err),
		)
	}
	return err
}

func (o *Orchestrator) rollbackVectors(docID string) {
	// Best effort: detached context so a cancelled request still cleans up.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := o.vectors.DeleteByDoc(ctx, docID); err != nil {
		logger.Error("Failed to roll back vectors",
			zap.String("doc_id", docID),
			zap.Error(err),
		)
	}
}

func (o *Orchestrator) persistFile(filename string, data []byte) (string, error) {
	if err := os.MkdirAll(o.cfg.StorageDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create storage dir: %w", err)
	}

	path := filepath.Join(o.cfg.StorageDir, filepath.Base(filename))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to persist file: %w", err)
	}

	return path, nil
}
