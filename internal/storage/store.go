package storage

import (
	"context"

	"jsonnetdoc/internal/extractor"
)

// FileRecord is the persisted state of one scanned source file.
type FileRecord struct {
	Path        string               `json:"path"`
	ContentHash string               `json:"content_hash"`
	Units       []*extractor.DocUnit `json:"units"`
}

// Store persists documentation units per source file.
type Store interface {
	// SaveFile replaces everything stored for rec.Path.
	SaveFile(ctx context.Context, rec FileRecord) error

	// DeleteFile forgets a file and its units.
	DeleteFile(ctx context.Context, path string) error

	// FileHash reports the content hash recorded for path.
	FileHash(ctx context.Context, path string) (string, bool, error)

	// LoadFiles returns all files ordered by path, units ordered by line.
	LoadFiles(ctx context.Context) ([]FileRecord, error)

	// FindUnitsByFile retrieves all units belonging to a specific file.
	FindUnitsByFile(ctx context.Context, path string) ([]*extractor.DocUnit, error)

	Close() error
}
