// Package cache is the write-only sink of the scrape pipeline: raw HTML
// artifacts on disk plus one append-only metadata row per completed
// fetch. The pipeline never reads any of it back; the artifacts exist
// for offline reprocessing and the log for operational forensics.
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hazyhaar/gazouille/idgen"
)

// Schema for the scrape_log table.
const Schema = `
CREATE TABLE IF NOT EXISTS scrape_log (
	entry_id      TEXT PRIMARY KEY,
	ts            INTEGER NOT NULL,
	kind          TEXT NOT NULL,
	query         TEXT NOT NULL,
	url           TEXT NOT NULL,
	artifact_path TEXT NOT NULL,
	params        TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_scrape_log_ts ON scrape_log(ts);
`

// Entry is one metadata record. Kind is "search" or "profile"; Query
// holds the search query or the username; Params is a free-form JSON bag
// (filters, date range, item counts, pages loaded, stop reason).
type Entry struct {
	EntryID      string
	Timestamp    time.Time
	Kind         string
	Query        string
	URL          string
	ArtifactPath string
	Params       string
}

// Store persists artifacts and metadata entries.
type Store struct {
	dir   string
	db    *sql.DB
	newID idgen.Generator
	now   func() time.Time
}

// New creates a Store writing artifacts under dir and metadata rows to
// db, and ensures the scrape_log schema exists.
func New(dir string, db *sql.DB) (*Store, error) {
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("cache: init schema: %w", err)
	}
	return &Store{
		dir:   dir,
		db:    db,
		newID: idgen.Prefixed("scrape_", idgen.Default),
		now:   time.Now,
	}, nil
}

// SaveHTML writes one markup artifact and returns its path. The filename
// is derived from the fetched URL (non-alphanumerics flattened) plus a
// timestamp, so successive fetches of the same URL never collide. The
// write is atomic (tmp + rename) to keep partial files away from offline
// consumers.
func (s *Store) SaveHTML(pageURL string, markup []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("cache: mkdir %s: %w", s.dir, err)
	}

	name := safeName(pageURL) + "_" + s.now().Format("20060102_150405") + ".html"
	target := filepath.Join(s.dir, name)
	tmp := target + ".tmp"

	if err := os.WriteFile(tmp, markup, 0o644); err != nil {
		return "", fmt.Errorf("cache: write tmp: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("cache: rename: %w", err)
	}
	return target, nil
}

// Log appends one metadata entry. Missing id/timestamp are filled in.
func (s *Store) Log(ctx context.Context, e *Entry) error {
	if e.EntryID == "" {
		e.EntryID = s.newID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now()
	}
	if e.Params == "" {
		e.Params = "{}"
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scrape_log (entry_id, ts, kind, query, url, artifact_path, params)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.EntryID, e.Timestamp.UnixMilli(), e.Kind, e.Query, e.URL, e.ArtifactPath, e.Params)
	if err != nil {
		return fmt.Errorf("cache: insert scrape log: %w", err)
	}
	return nil
}

// History returns metadata entries, newest first. Ops tooling only; the
// scrape pipeline itself never reads the log.
func (s *Store) History(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT entry_id, ts, kind, query, url, artifact_path, params
		FROM scrape_log ORDER BY ts DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Entry
	for rows.Next() {
		var e Entry
		var ts int64
		if err := rows.Scan(&e.EntryID, &ts, &e.Kind, &e.Query, &e.URL,
			&e.ArtifactPath, &e.Params); err != nil {
			return nil, fmt.Errorf("cache: scan scrape log: %w", err)
		}
		e.Timestamp = time.UnixMilli(ts)
		result = append(result, &e)
	}
	return result, rows.Err()
}

// safeName flattens a URL into a filesystem-safe prefix, capped so the
// timestamp suffix always fits in a filename.
func safeName(pageURL string) string {
	var b strings.Builder
	for _, r := range pageURL {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	name := b.String()
	if len(name) > 180 {
		name = name[:180]
	}
	return name
}
