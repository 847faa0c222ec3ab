package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/docintel/backend/internal/storage"
	"github.com/docintel/backend/internal/storage/models"
	"github.com/docintel/backend/pkg/logger"
)

// ErrNotFound aliases the storage sentinel for callers holding a concrete
// client.
var ErrNotFound = storage.ErrNotFound

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		filename TEXT UNIQUE NOT NULL,
		file_type TEXT NOT NULL,
		size_bytes INTEGER NOT NULL,
		pages INTEGER NOT NULL,
		path TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_documents_filename ON documents(filename);

	CREATE TABLE IF NOT EXISTS document_chunks (
		id TEXT PRIMARY KEY,
		doc_id TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		text TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (doc_id) REFERENCES documents(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_doc ON document_chunks(doc_id);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// PublishDocument commits the document record and all of its chunk records
// in a single transaction. A re-upload of the same filename replaces the
// previous record.
func (c *Client) PublishDocument(ctx context.Context, doc *models.Document, chunks []*models.Chunk) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM documents WHERE id = ?`, doc.ID)
	if err != nil {
		return fmt.Errorf("failed to clear previous record: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (id, filename, file_type, size_bytes, pages, path, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Filename, doc.FileType, doc.SizeBytes, doc.Pages,
		doc.Path, doc.Status, doc.CreatedAt.Unix(), doc.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}

	for _, chunk := range chunks {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO document_chunks (id, doc_id, chunk_index, text, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			chunk.ID, chunk.DocID, chunk.ChunkIndex, chunk.Text, chunk.CreatedAt.Unix())
		if err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", chunk.ChunkIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit document: %w", err)
	}

	logger.Debug("Document published",
		zap.String("doc_id", doc.ID),
		zap.Int("chunks", len(chunks)),
	)

	return nil
}

func (c *Client) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	return c.getDocument(ctx, `SELECT id, filename, file_type, size_bytes, pages, path, status, created_at, updated_at
		FROM documents WHERE id = ?`, id)
}

func (c *Client) GetDocumentByFilename(ctx context.Context, filename string) (*models.Document, error) {
	return c.getDocument(ctx, `SELECT id, filename, file_type, size_bytes, pages, path, status, created_at, updated_at
		FROM documents WHERE filename = ?`, filename)
}

func (c *Client) getDocument(ctx context.Context, query, arg string) (*models.Document, error) {
	row := c.db.QueryRowContext(ctx, query, arg)

	var doc models.Document
	var createdAt, updatedAt int64
	err := row.Scan(&doc.ID, &doc.Filename, &doc.FileType, &doc.SizeBytes,
		&doc.Pages, &doc.Path, &doc.Status, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}

	doc.CreatedAt = unixTime(createdAt)
	doc.UpdatedAt = unixTime(updatedAt)

	return &doc, nil
}

func (c *Client) ListDocuments(ctx context.Context) ([]*models.Document, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, filename, file_type, size_bytes, pages, path, status, created_at, updated_at
		 FROM documents ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		var doc models.Document
		var createdAt, updatedAt int64
		err := rows.Scan(&doc.ID, &doc.Filename, &doc.FileType, &doc.SizeBytes,
			&doc.Pages, &doc.Path, &doc.Status, &createdAt, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc.CreatedAt = unixTime(createdAt)
		doc.UpdatedAt = unixTime(updatedAt)
		docs = append(docs, &doc)
	}

	return docs, rows.Err()
}

func (c *Client) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

// DeleteDocument removes a document record; chunk records go with it via
// the foreign-key cascade.
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func unixTime(sec int64) time.Time {
	return time.Unix(sec, 0)
}
