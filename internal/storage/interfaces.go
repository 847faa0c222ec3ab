package storage

import (
	"context"
	"errors"

	"github.com/docintel/backend/internal/storage/models"
)

// ErrNotFound is returned when a document lookup misses.
var ErrNotFound = errors.New("document not found")

// DocumentStore persists document and chunk records. PublishDocument is the
// single visibility point for a document: before it commits, nothing about
// the document is observable through any other method.
type DocumentStore interface {
	PublishDocument(ctx context.Context, doc *models.Document, chunks []*models.Chunk) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	GetDocumentByFilename(ctx context.Context, filename string) (*models.Document, error)
	ListDocuments(ctx context.Context) ([]*models.Document, error)
	CountDocuments(ctx context.Context) (int64, error)
	DeleteDocument(ctx context.Context, id string) error
	Close() error
}
