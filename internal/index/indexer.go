package index

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"jsonnetdoc/internal/crawler"
	"jsonnetdoc/internal/git"
	"jsonnetdoc/internal/storage"
)

// SyncStats counts what a sync changed in the store.
type SyncStats struct {
	Files     int
	Units     int
	Saved     int
	Unchanged int
	Removed   int
}

// Indexer keeps the store in step with the sources the crawler sees.
type Indexer struct {
	crawler *crawler.Crawler
	store   storage.Store
	logger  logrus.FieldLogger
}

// NewIndexer creates a new indexer.
func NewIndexer(c *crawler.Crawler, s storage.Store, logger logrus.FieldLogger) *Indexer {
	return &Indexer{
		crawler: c,
		store:   s,
		logger:  logger.WithField("component", "indexer"),
	}
}

// Sync scans root and saves files whose content changed. Stored files under
// root that the scan no longer finds are dropped; files outside root are left
// alone.
func (i *Indexer) Sync(ctx context.Context, root string) (SyncStats, error) {
	var stats SyncStats
	seen := make(map[string]bool)
	var saveErr error

	err := i.crawler.ScanProject(ctx, root, func(res crawler.FileResult) {
		if saveErr != nil {
			return
		}
		seen[res.Path] = true
		stats.Files++
		stats.Units += len(res.Units)

		hash, ok, err := i.store.FileHash(ctx, res.Path)
		if err != nil {
			saveErr = err
			return
		}
		if ok && hash == res.ContentHash {
			stats.Unchanged++
			return
		}
		saveErr = i.save(ctx, res)
		if saveErr == nil {
			stats.Saved++
		}
	})
	if err != nil {
		return stats, fmt.Errorf("scan failed: %w", err)
	}
	if saveErr != nil {
		return stats, fmt.Errorf("failed to save scan results: %w", saveErr)
	}

	records, err := i.store.LoadFiles(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to load stored files: %w", err)
	}
	for _, rec := range records {
		if seen[rec.Path] || !within(root, rec.Path) {
			continue
		}
		if err := i.store.DeleteFile(ctx, rec.Path); err != nil {
			return stats, fmt.Errorf("failed to remove %s: %w", rec.Path, err)
		}
		stats.Removed++
	}

	return stats, nil
}

// ApplyChanges reprocesses the changed files the crawler accepts.
func (i *Indexer) ApplyChanges(ctx context.Context, changes []git.ChangedFile) (SyncStats, error) {
	var stats SyncStats
	for _, change := range changes {
		if !i.crawler.Accepts(change.Path) {
			continue
		}
		stats.Files++

		if change.Deleted() {
			if err := i.store.DeleteFile(ctx, change.Path); err != nil {
				return stats, fmt.Errorf("failed to remove %s: %w", change.Path, err)
			}
			stats.Removed++
			continue
		}

		res, err := i.crawler.ProcessFile(change.Path)
		if err != nil {
			i.logger.WithError(err).WithField("path", change.Path).Warn("Failed to process file")
			continue
		}
		if err := i.save(ctx, res); err != nil {
			return stats, fmt.Errorf("failed to save %s: %w", change.Path, err)
		}
		stats.Saved++
		stats.Units += len(res.Units)
	}
	return stats, nil
}

// within reports whether path lies in the tree rooted at root.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (i *Indexer) save(ctx context.Context, res crawler.FileResult) error {
	return i.store.SaveFile(ctx, storage.FileRecord{
		Path:        res.Path,
		ContentHash: res.ContentHash,
		Units:       res.Units,
	})
}

// ExportJSON writes every stored file and its units to path.
func (i *Indexer) ExportJSON(ctx context.Context, fs afero.Fs, path string) error {
	records, err := i.store.LoadFiles(ctx)
	if err != nil {
		return err
	}

	f, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(records); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return nil
}
