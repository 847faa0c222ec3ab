package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docintel/backend/internal/agents"
	"github.com/docintel/backend/internal/cache"
	"github.com/docintel/backend/internal/orchestrator"
	"github.com/docintel/backend/internal/storage"
	"github.com/docintel/backend/internal/storage/models"
	"github.com/docintel/backend/internal/tasks"
	"github.com/docintel/backend/internal/vector"
	vectormem "github.com/docintel/backend/internal/vector/memory"
)

type passthroughIngestion struct{}

func (passthroughIngestion) Name() string { return "ingestion" }

func (passthroughIngestion) Process(_ context.Context, in agents.IngestInput) (agents.IngestOutput, error) {
	return agents.IngestOutput{Text: string(in.Data), FileType: "txt", Pages: 1}, nil
}

type wordIndexing struct{}

func (wordIndexing) Name() string { return "indexing" }

func (wordIndexing) Process(_ context.Context, in agents.IndexInput) (agents.IndexOutput, error) {
	var entries []vector.Entry
	for i, word := range strings.Fields(in.Text) {
		entries = append(entries, vector.Entry{
			ChunkID:    fmt.Sprintf("%s_chunk_%d", in.DocID, i),
			DocID:      in.DocID,
			ChunkIndex: i,
			Text:       word,
			Source:     in.Filename,
			Embedding:  []float32{1, float32(i), 0},
		})
	}
	return agents.IndexOutput{Entries: entries}, nil
}

type cannedQA struct{}

func (cannedQA) Name() string { return "qa" }

func (cannedQA) Process(_ context.Context, _ agents.QAInput) (agents.QAOutput, error) {
	return agents.QAOutput{Answer: "canned", Sources: []string{"guide.txt"}}, nil
}

type fakeDocs struct {
	docs map[string]*models.Document
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{docs: make(map[string]*models.Document)}
}

func (f *fakeDocs) PublishDocument(_ context.Context, doc *models.Document, _ []*models.Chunk) error {
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeDocs) GetDocument(_ context.Context, id string) (*models.Document, error) {
	if doc, ok := f.docs[id]; ok {
		return doc, nil
	}
	return nil, storage.ErrNotFound
}

func (f *fakeDocs) GetDocumentByFilename(_ context.Context, filename string) (*models.Document, error) {
	for _, doc := range f.docs {
		if doc.Filename == filename {
			return doc, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeDocs) ListDocuments(_ context.Context) ([]*models.Document, error) {
	out := make([]*models.Document, 0, len(f.docs))
	for _, doc := range f.docs {
		out = append(out, doc)
	}
	return out, nil
}

func (f *fakeDocs) CountDocuments(_ context.Context) (int64, error) {
	return int64(len(f.docs)), nil
}

func (f *fakeDocs) DeleteDocument(_ context.Context, id string) error {
	if _, ok := f.docs[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.docs, id)
	return nil
}

func (f *fakeDocs) Close() error { return nil }

func newTestApp(t *testing.T) (*fiber.App, *tasks.MemoryRegistry) {
	t.Helper()

	registry := tasks.NewMemoryRegistry()
	pool, err := tasks.NewPool(2, 8)
	require.NoError(t, err)
	t.Cleanup(pool.Release)

	orch := orchestrator.New(
		passthroughIngestion{}, wordIndexing{}, cannedQA{},
		newFakeDocs(), vectormem.NewStore(), cache.NewMemory(),
		registry, pool,
		orchestrator.Config{
			StorageDir:   t.TempDir(),
			CacheEnabled: true,
			CacheTTL:     time.Minute,
			AsyncEnabled: true,
			TopK:         3,
		},
	)

	app := fiber.New()

	documentHandler := NewDocumentHandler(orch)
	queryHandler := NewQueryHandler(orch)
	taskHandler := NewTaskHandler(orch)
	healthHandler := NewHealthHandler(true, true, nil)

	api := app.Group("/api")
	api.Get("/health", healthHandler.Health)
	api.Post("/upload", documentHandler.Upload)
	api.Post("/upload/async", documentHandler.UploadAsync)
	api.Get("/documents", documentHandler.ListDocuments)
	api.Delete("/documents/:name", documentHandler.DeleteDocument)
	api.Get("/tasks/:id", taskHandler.GetTask)
	api.Post("/ask", queryHandler.Ask)
	api.Delete("/cache", queryHandler.ClearCache)

	return app, registry
}

func multipartUpload(t *testing.T, target, filename, content string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, out))
}

func TestHealthEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	decode(t, resp, &body)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, true, body["cache_enabled"])
	assert.Equal(t, false, body["redis_connected"])
}

func TestUploadAndList(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(multipartUpload(t, "/api/upload", "guide.txt", "alpha beta"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result map[string]any
	decode(t, resp, &result)
	assert.Equal(t, "guide.txt", result["filename"])
	assert.EqualValues(t, 2, result["chunks_indexed"])
	assert.NotEmpty(t, result["doc_id"])
	assert.NotEmpty(t, result["message"])

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var list map[string]any
	decode(t, resp, &list)
	assert.EqualValues(t, 1, list["total"])
}

func TestUploadUnsupportedFormat(t *testing.T) {
	app, _ := newTestApp(t)

	req := multipartUpload(t, "/api/upload", "photo.jpg", "binary")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadMissingFile(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/upload", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadAsyncReturnsTask(t *testing.T) {
	app, registry := newTestApp(t)

	resp, err := app.Test(multipartUpload(t, "/api/upload/async", "guide.txt", "alpha beta"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	var body map[string]any
	decode(t, resp, &body)
	taskID, _ := body["task_id"].(string)
	require.NotEmpty(t, taskID)
	assert.Equal(t, "guide.txt", body["filename"])
	assert.Equal(t, "pending", body["status"])

	require.Eventually(t, func() bool {
		task, err := registry.Get(context.Background(), taskID)
		return err == nil && task.Status.Terminal()
	}, 2*time.Second, 5*time.Millisecond)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/tasks/"+taskID, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var task map[string]any
	decode(t, resp, &task)
	assert.Equal(t, "completed", task["status"])
}

func TestGetTaskNotFound(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/tasks/nope", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func askRequest(query string) *http.Request {
	body, _ := json.Marshal(map[string]string{"query": query})
	req := httptest.NewRequest(http.MethodPost, "/api/ask", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestAskEmptyIndexRejected(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(askRequest("what is alpha?"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAskAfterUpload(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(multipartUpload(t, "/api/upload", "guide.txt", "alpha"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(askRequest("what is alpha?"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var answer map[string]any
	decode(t, resp, &answer)
	assert.Equal(t, "canned", answer["answer"])
	assert.Equal(t, false, answer["cached"])

	resp, err = app.Test(askRequest("what is alpha?"))
	require.NoError(t, err)
	decode(t, resp, &answer)
	assert.Equal(t, true, answer["cached"])
}

func TestAskEmptyQueryRejected(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(askRequest("   "))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteDocument(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(multipartUpload(t, "/api/upload", "guide.txt", "alpha"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodDelete, "/api/documents/guide.txt", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodDelete, "/api/documents/guide.txt", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestClearCache(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/api/cache", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
