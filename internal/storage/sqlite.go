package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"jsonnetdoc/internal/extractor"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS files (
			path TEXT PRIMARY KEY,
			content_hash TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS units (
			id TEXT PRIMARY KEY,
			filepath TEXT,
			language TEXT,
			start_line INTEGER,
			end_line INTEGER,
			content TEXT,
			summary TEXT,
			description TEXT,
			tags JSON,
			fingerprint TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_units_file ON units(filepath);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) SaveFile(ctx context.Context, rec FileRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM units WHERE filepath = ?`, rec.Path); err != nil {
		return fmt.Errorf("failed to clear units of %s: %w", rec.Path, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO files (path, content_hash) VALUES (?, ?)
		ON CONFLICT(path) DO UPDATE SET content_hash=excluded.content_hash
	`, rec.Path, rec.ContentHash); err != nil {
		return fmt.Errorf("failed to save file %s: %w", rec.Path, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO units (id, filepath, language, start_line, end_line, content, summary, description, tags, fingerprint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, u := range rec.Units {
		tags, err := json.Marshal(u.Tags)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, u.ID, rec.Path, u.Language, u.StartLine, u.EndLine, u.Content, u.Summary, u.Description, tags, u.Fingerprint); err != nil {
			return fmt.Errorf("failed to save unit %s: %w", u.ID, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) DeleteFile(ctx context.Context, path string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM units WHERE filepath = ?`, path); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, path); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) FileHash(ctx context.Context, path string) (string, bool, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT content_hash FROM files WHERE path = ?`, path).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return hash, true, nil
}

func (s *SQLiteStore) LoadFiles(ctx context.Context) ([]FileRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, content_hash FROM files ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}

	var records []FileRecord
	for rows.Next() {
		var rec FileRecord
		if err := rows.Scan(&rec.Path, &rec.ContentHash); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	for i := range records {
		units, err := s.FindUnitsByFile(ctx, records[i].Path)
		if err != nil {
			return nil, err
		}
		records[i].Units = units
	}
	return records, nil
}

func (s *SQLiteStore) FindUnitsByFile(ctx context.Context, path string) ([]*extractor.DocUnit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, filepath, language, start_line, end_line, content, summary, description, tags, fingerprint
		FROM units WHERE filepath = ? ORDER BY start_line
	`, path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []*extractor.DocUnit
	for rows.Next() {
		var u extractor.DocUnit
		var tags []byte
		if err := rows.Scan(&u.ID, &u.Filepath, &u.Language, &u.StartLine, &u.EndLine, &u.Content, &u.Summary, &u.Description, &tags, &u.Fingerprint); err != nil {
			return nil, err
		}
		if len(tags) > 0 {
			if err := json.Unmarshal(tags, &u.Tags); err != nil {
				return nil, fmt.Errorf("failed to decode tags of %s: %w", u.ID, err)
			}
		}
		units = append(units, &u)
	}
	return units, rows.Err()
}
