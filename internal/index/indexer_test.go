package index

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jsonnetdoc/internal/crawler"
	"jsonnetdoc/internal/extractor"
	"jsonnetdoc/internal/git"
	"jsonnetdoc/internal/hook"
	"jsonnetdoc/internal/storage"
)

type fixture struct {
	fs    afero.Fs
	store *storage.SQLiteStore
	idx   *Indexer
}

func newFixture(t *testing.T, ignored ...string) *fixture {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/proj/lib", 0o755))

	ext, err := extractor.NewExtractor("jsdoc")
	require.NoError(t, err)
	logger, _ := logtest.NewNullLogger()
	cr := crawler.NewCrawler(fs, hook.NewRegistry(hook.JsonnetPlugin{}), ext, logger,
		[]string{".jsonnet", ".libsonnet"}, ignored)

	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "idx.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return &fixture{fs: fs, store: store, idx: NewIndexer(cr, store, logger)}
}

func (f *fixture) write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(f.fs, path, []byte(content), 0o644))
}

func TestIndexer_Sync(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.write(t, "/proj/main.jsonnet", "/** Main. */\n{}\n")
	f.write(t, "/proj/lib/a.libsonnet", "{\n  /** A. */\n  a: 1,\n}\n")

	stats, err := f.idx.Sync(ctx, "/proj")
	require.NoError(t, err)
	assert.Equal(t, SyncStats{Files: 2, Units: 2, Saved: 2}, stats)

	// Second pass sees identical content.
	stats, err = f.idx.Sync(ctx, "/proj")
	require.NoError(t, err)
	assert.Equal(t, SyncStats{Files: 2, Units: 2, Unchanged: 2}, stats)

	// Edit one file, delete the other.
	f.write(t, "/proj/lib/a.libsonnet", "{\n  /** A. */\n  a: 1,\n  /** B. */\n  b: 2,\n}\n")
	require.NoError(t, f.fs.Remove("/proj/main.jsonnet"))

	stats, err = f.idx.Sync(ctx, "/proj")
	require.NoError(t, err)
	assert.Equal(t, SyncStats{Files: 1, Units: 2, Saved: 1, Removed: 1}, stats)

	records, err := f.store.LoadFiles(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "/proj/lib/a.libsonnet", records[0].Path)
	require.Len(t, records[0].Units, 2)
	assert.Equal(t, 4, records[0].Units[1].StartLine)
}

func TestIndexer_ApplyChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.write(t, "/proj/old.jsonnet", "/** Old. */\n")
	_, err := f.idx.Sync(ctx, "/proj")
	require.NoError(t, err)

	require.NoError(t, f.fs.Remove("/proj/old.jsonnet"))
	f.write(t, "/proj/new.jsonnet", "\n/** New. */\n")

	stats, err := f.idx.ApplyChanges(ctx, []git.ChangedFile{
		{Path: "/proj/old.jsonnet", Status: git.StatusDeleted},
		{Path: "/proj/new.jsonnet", Status: git.StatusAdded},
		{Path: "README.md", Status: git.StatusModified},
		{Path: "/proj/gone.jsonnet", Status: git.StatusModified},
	})
	require.NoError(t, err)
	assert.Equal(t, SyncStats{Files: 3, Units: 1, Saved: 1, Removed: 1}, stats)

	_, ok, err := f.store.FileHash(ctx, "/proj/old.jsonnet")
	require.NoError(t, err)
	assert.False(t, ok)

	units, err := f.store.FindUnitsByFile(ctx, "/proj/new.jsonnet")
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, 2, units[0].StartLine)
}

func TestIndexer_SyncSubdirKeepsOtherFiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.write(t, "/proj/main.jsonnet", "/** Main. */\n{}\n")
	f.write(t, "/proj/lib/a.libsonnet", "/** A. */\n{}\n")
	f.write(t, "/proj/libx/b.libsonnet", "/** B. */\n{}\n")

	_, err := f.idx.Sync(ctx, "/proj")
	require.NoError(t, err)

	require.NoError(t, f.fs.Remove("/proj/libx/b.libsonnet"))
	stats, err := f.idx.Sync(ctx, "/proj/lib")
	require.NoError(t, err)
	assert.Equal(t, SyncStats{Files: 1, Units: 1, Unchanged: 1}, stats)

	records, err := f.store.LoadFiles(ctx)
	require.NoError(t, err)
	var paths []string
	for _, rec := range records {
		paths = append(paths, rec.Path)
	}
	assert.Equal(t, []string{"/proj/lib/a.libsonnet", "/proj/libx/b.libsonnet", "/proj/main.jsonnet"}, paths)

	// A full scan still prunes what is gone.
	stats, err = f.idx.Sync(ctx, "/proj")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Removed)
}

func TestIndexer_ApplyChangesSkipsIgnoredDirs(t *testing.T) {
	f := newFixture(t, "vendor")
	ctx := context.Background()

	f.write(t, "/proj/a.jsonnet", "/** A. */\n")
	f.write(t, "/proj/vendor/dep.libsonnet", "/** Vendored. */\n")
	stats, err := f.idx.Sync(ctx, "/proj")
	require.NoError(t, err)
	require.Equal(t, 1, stats.Saved)

	f.write(t, "/proj/vendor/dep.libsonnet", "/** Vendored, v2. */\n")
	stats, err = f.idx.ApplyChanges(ctx, []git.ChangedFile{
		{Path: "/proj/vendor/dep.libsonnet", Status: git.StatusModified},
		{Path: "/proj/a.jsonnet", Status: git.StatusModified},
	})
	require.NoError(t, err)
	assert.Equal(t, SyncStats{Files: 1, Units: 1, Saved: 1}, stats)

	_, ok, err := f.store.FileHash(ctx, "/proj/vendor/dep.libsonnet")
	require.NoError(t, err)
	assert.False(t, ok)

	records, err := f.store.LoadFiles(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestWithin(t *testing.T) {
	assert.True(t, within("/proj", "/proj/a.jsonnet"))
	assert.True(t, within("/proj/lib", "/proj/lib/x/a.jsonnet"))
	assert.True(t, within(".", "lib/a.jsonnet"))
	assert.False(t, within("/proj/lib", "/proj/libx/a.jsonnet"))
	assert.False(t, within("/proj/lib", "/proj/main.jsonnet"))
	assert.False(t, within("/proj", "lib/a.jsonnet"))
}

func TestIndexer_ExportJSON(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.write(t, "/proj/a.jsonnet", "/** A. @see b */\n")
	_, err := f.idx.Sync(ctx, "/proj")
	require.NoError(t, err)

	require.NoError(t, f.idx.ExportJSON(ctx, f.fs, "/export.json"))

	raw, err := afero.ReadFile(f.fs, "/export.json")
	require.NoError(t, err)

	var records []storage.FileRecord
	require.NoError(t, json.Unmarshal(raw, &records))
	require.Len(t, records, 1)
	assert.Equal(t, "/proj/a.jsonnet", records[0].Path)
	require.Len(t, records[0].Units, 1)
	assert.Equal(t, "/** A. @see b */", records[0].Units[0].Content)
}
