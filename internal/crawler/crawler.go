package crawler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"jsonnetdoc/internal/extractor"
	"jsonnetdoc/internal/hook"
)

// FileResult is what the crawler produces for one source file.
type FileResult struct {
	Path        string
	ContentHash string
	Units       []*extractor.DocUnit
}

// Crawler scans a directory for Jsonnet files and runs them through the
// beforeParse hooks and the doc parser.
type Crawler struct {
	fs         afero.Fs
	hooks      *hook.Registry
	extractor  *extractor.Extractor
	logger     logrus.FieldLogger
	extensions map[string]bool
	ignored    []string
}

// NewCrawler creates a new crawler instance.
func NewCrawler(
	fs afero.Fs, hooks *hook.Registry, ext *extractor.Extractor,
	logger logrus.FieldLogger, extensions, ignored []string,
) *Crawler {
	exts := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		exts[e] = true
	}
	return &Crawler{
		fs:         fs,
		hooks:      hooks,
		extractor:  ext,
		logger:     logger.WithField("component", "crawler"),
		extensions: exts,
		ignored:    ignored,
	}
}

// Accepts reports whether path has one of the configured extensions and no
// ignored directory among its components.
func (c *Crawler) Accepts(path string) bool {
	if !c.hasExtension(path) {
		return false
	}
	dirs := strings.Split(filepath.ToSlash(filepath.Dir(filepath.Clean(path))), "/")
	for _, dir := range dirs {
		if slices.Contains(c.ignored, dir) {
			return false
		}
	}
	return true
}

func (c *Crawler) hasExtension(path string) bool {
	return c.extensions[filepath.Ext(path)]
}

// ScanProject walks the root directory and processes all relevant files.
// It uses a callback to stream results, preventing large memory buildup.
func (c *Crawler) ScanProject(ctx context.Context, root string, onFile func(FileResult)) error {
	return afero.Walk(c.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		// Skip ignored directories
		if info.IsDir() {
			if path == root {
				return nil
			}
			for _, ign := range c.ignored {
				if info.Name() == ign {
					return filepath.SkipDir
				}
			}
			return nil
		}

		if !c.hasExtension(path) {
			return nil
		}

		res, err := c.ProcessFile(path)
		if err != nil {
			// Log and continue instead of failing the whole scan
			c.logger.WithError(err).WithField("path", path).Warn("Skipping file")
			return nil
		}

		onFile(res)
		return nil
	})
}

// ProcessFile filters and parses a single file.
func (c *Crawler) ProcessFile(path string) (FileResult, error) {
	raw, err := afero.ReadFile(c.fs, path)
	if err != nil {
		return FileResult{}, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	ev := c.hooks.Emit(hook.BeforeParse, hook.Event{Filename: path, Source: string(raw)})

	units, err := c.extractor.ExtractFromSource(path, []byte(ev.Source))
	if err != nil {
		return FileResult{}, err
	}

	c.logger.WithFields(logrus.Fields{"path": path, "units": len(units)}).Debug("Processed file")

	return FileResult{
		Path:        path,
		ContentHash: ContentHash(raw),
		Units:       units,
	}, nil
}

// ContentHash fingerprints raw file content.
func ContentHash(raw []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(raw))
}
