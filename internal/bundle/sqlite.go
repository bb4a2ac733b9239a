package bundle

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS bundles (
    namespace  TEXT    NOT NULL,
    slide_id   INTEGER NOT NULL,
    scripts    TEXT    NOT NULL,
    clips      TEXT    NOT NULL,
    updated_at TEXT    NOT NULL,
    PRIMARY KEY (namespace, slide_id)
);`

// SQLiteIndex keeps bundle records in a SQLite database.
type SQLiteIndex struct {
	db   *sql.DB
	path string
}

// OpenSQLiteIndex opens or creates the index database at path.
func OpenSQLiteIndex(path string) (*SQLiteIndex, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteIndex{db: db, path: path}, nil
}

// Load returns the bundle of a slide.
func (ix *SQLiteIndex) Load(ns string, slideID int) (Bundle, error) {
	var scripts, clips string
	err := ix.db.QueryRowContext(context.Background(),
		`SELECT scripts, clips FROM bundles WHERE namespace = ? AND slide_id = ?`,
		ns, slideID,
	).Scan(&scripts, &clips)
	if errors.Is(err, sql.ErrNoRows) {
		return Bundle{}, fmt.Errorf("slide %d in %q: %w", slideID, ns, ErrNotFound)
	}
	if err != nil {
		return Bundle{}, fmt.Errorf("load bundle: %w", err)
	}

	b := Bundle{SlideID: slideID}
	if err := json.Unmarshal([]byte(scripts), &b.Scripts); err != nil {
		return Bundle{}, fmt.Errorf("%w: scripts of slide %d: %v", ErrCorrupted, slideID, err)
	}
	if err := json.Unmarshal([]byte(clips), &b.Clips); err != nil {
		return Bundle{}, fmt.Errorf("%w: clips of slide %d: %v", ErrCorrupted, slideID, err)
	}
	return b, nil
}

// Save stores b, replacing any previous bundle of the slide.
func (ix *SQLiteIndex) Save(ns string, b Bundle) error {
	scripts, err := json.Marshal(nonNilScripts(b.Scripts))
	if err != nil {
		return fmt.Errorf("encode scripts: %w", err)
	}
	clips, err := json.Marshal(nonNilClips(b.Clips))
	if err != nil {
		return fmt.Errorf("encode clips: %w", err)
	}

	_, err = ix.db.ExecContext(context.Background(),
		`INSERT INTO bundles (namespace, slide_id, scripts, clips, updated_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT (namespace, slide_id) DO UPDATE SET
             scripts = excluded.scripts,
             clips = excluded.clips,
             updated_at = excluded.updated_at`,
		ns, b.SlideID, string(scripts), string(clips), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save bundle: %w", err)
	}
	return nil
}

// Delete removes the bundle of a slide.
func (ix *SQLiteIndex) Delete(ns string, slideID int) error {
	if _, err := ix.db.ExecContext(context.Background(),
		`DELETE FROM bundles WHERE namespace = ? AND slide_id = ?`, ns, slideID); err != nil {
		return fmt.Errorf("delete bundle: %w", err)
	}
	return nil
}

// Slides lists slide ids with a bundle, ascending.
func (ix *SQLiteIndex) Slides(ns string) ([]int, error) {
	rows, err := ix.db.QueryContext(context.Background(),
		`SELECT slide_id FROM bundles WHERE namespace = ? ORDER BY slide_id`, ns)
	if err != nil {
		return nil, fmt.Errorf("list bundles: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan slide id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the database.
func (ix *SQLiteIndex) Close() error {
	if ix == nil || ix.db == nil {
		return nil
	}
	return ix.db.Close()
}

func nonNilScripts(s []ScriptLine) []ScriptLine {
	if s == nil {
		return []ScriptLine{}
	}
	return s
}

func nonNilClips(c []Clip) []Clip {
	if c == nil {
		return []Clip{}
	}
	return c
}
