package models

import "time"

// Document is the record of a fully indexed upload. It only exists once the
// whole ingest sequence has committed; readers never see a document whose
// chunks are still being written.
type Document struct {
	ID        string
	Filename  string
	FileType  string
	SizeBytes int64
	Pages     int
	Path      string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Chunk is one ordered fragment of a document's text. DocID is a weak
// back-reference used for source attribution only.
type Chunk struct {
	ID         string
	DocID      string
	ChunkIndex int
	Text       string
	CreatedAt  time.Time
}

const (
	DocumentStatusIndexed = "indexed"
)
