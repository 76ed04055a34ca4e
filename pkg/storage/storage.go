// Package storage keeps a local sqlite history of resolutions and
// downloaded artifacts, so repeated lookups and audits don't re-hit the
// remote catalog.
package storage

import (
	"context"
	"database/sql"

	_ "modernc.org/sqlite"
)

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS resolutions (
  id               INTEGER PRIMARY KEY,
  company          TEXT NOT NULL,
  normalized_query TEXT NOT NULL,
  found            INTEGER NOT NULL CHECK (found IN (0,1)),
  matched_title    TEXT,
  doc_type         TEXT,
  score            REAL,
  landing_url      TEXT,
  pages_scanned    INTEGER NOT NULL DEFAULT 0,
  unique_titles    INTEGER NOT NULL DEFAULT 0,
  created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_resolutions_company ON resolutions(company);
CREATE TABLE IF NOT EXISTS artifacts (
  id           INTEGER PRIMARY KEY,
  company      TEXT NOT NULL,
  landing_url  TEXT NOT NULL,
  resolved_url TEXT,
  path         TEXT NOT NULL,
  size_bytes   INTEGER NOT NULL,
  attempts     INTEGER NOT NULL,
  created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_artifacts_company ON artifacts(company);
	`); err != nil {
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

func (d *DB) RecordResolution(ctx context.Context, r Resolution) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO resolutions(company, normalized_query, found, matched_title, doc_type, score, landing_url, pages_scanned, unique_titles)
		 VALUES(?,?,?,?,?,?,?,?,?)`,
		r.Company, r.NormalizedQuery, boolToInt(r.Found),
		nullIfEmpty(r.MatchedTitle), nullIfEmpty(r.DocType), r.Score,
		nullIfEmpty(r.LandingURL), r.PagesScanned, r.UniqueTitles)
	return err
}

func (d *DB) RecordArtifact(ctx context.Context, a Artifact) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO artifacts(company, landing_url, resolved_url, path, size_bytes, attempts)
		 VALUES(?,?,?,?,?,?)`,
		a.Company, a.LandingURL, nullIfEmpty(a.ResolvedURL), a.Path, a.SizeBytes, a.Attempts)
	return err
}

func (d *DB) ListResolutions(ctx context.Context, limit int) ([]Resolution, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.sql.QueryContext(ctx,
		`SELECT id, company, normalized_query, found, matched_title, doc_type, score, landing_url, pages_scanned, unique_titles, created_at
		 FROM resolutions ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Resolution
	for rows.Next() {
		var (
			r          Resolution
			found      int
			title, doc sql.NullString
			score      sql.NullFloat64
			landing    sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Company, &r.NormalizedQuery, &found, &title, &doc, &score, &landing, &r.PagesScanned, &r.UniqueTitles, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Found = found == 1
		r.MatchedTitle = title.String
		r.DocType = doc.String
		r.Score = score.Float64
		r.LandingURL = landing.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func (d *DB) ListArtifacts(ctx context.Context, limit int) ([]Artifact, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.sql.QueryContext(ctx,
		`SELECT id, company, landing_url, resolved_url, path, size_bytes, attempts, created_at
		 FROM artifacts ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Artifact
	for rows.Next() {
		var (
			a        Artifact
			resolved sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.Company, &a.LandingURL, &resolved, &a.Path, &a.SizeBytes, &a.Attempts, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.ResolvedURL = resolved.String
		out = append(out, a)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
