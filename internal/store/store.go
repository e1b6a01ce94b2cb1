// Package store persists scored messages in SQLite. It backs the scoring
// pipeline with per-author history and survives restarts, so repetition
// penalties keep working across runs.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/quietriver/winnow/internal/freq"
	"github.com/quietriver/winnow/internal/tweet"
)

const schema = `
CREATE TABLE IF NOT EXISTS tweets (
	id INTEGER PRIMARY KEY,
	author TEXT NOT NULL,
	text TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	quality INTEGER NOT NULL,
	reductions INTEGER NOT NULL DEFAULT 0,
	trail TEXT NOT NULL DEFAULT '',
	language TEXT NOT NULL DEFAULT 'unknown',
	terms TEXT,
	languages TEXT,
	url_entries TEXT,
	duplicates TEXT,
	indexed_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tweets_author_created ON tweets(author, created_at);
CREATE INDEX IF NOT EXISTS idx_tweets_created ON tweets(created_at DESC);
`

// Repository stores scored tweets. Safe for concurrent use.
type Repository struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %q: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return &Repository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// SaveTweet upserts a scored tweet. Rescoring the same message overwrites
// its quality fields.
func (r *Repository) SaveTweet(ctx context.Context, tw *tweet.Tweet) error {
	terms, err := marshalFreq(tw.TextTerms)
	if err != nil {
		return fmt.Errorf("encode terms for %d: %w", tw.ID, err)
	}
	langs, err := marshalFreq(tw.Languages)
	if err != nil {
		return fmt.Errorf("encode languages for %d: %w", tw.ID, err)
	}
	urls, err := json.Marshal(tw.URLEntries)
	if err != nil {
		return fmt.Errorf("encode url entries for %d: %w", tw.ID, err)
	}
	dups, err := json.Marshal(duplicateIDs(tw))
	if err != nil {
		return fmt.Errorf("encode duplicates for %d: %w", tw.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO tweets (id, author, text, created_at, quality, reductions, trail, language, terms, languages, url_entries, duplicates, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			quality = excluded.quality,
			reductions = excluded.reductions,
			trail = excluded.trail,
			language = excluded.language,
			terms = excluded.terms,
			languages = excluded.languages,
			url_entries = excluded.url_entries,
			duplicates = excluded.duplicates,
			indexed_at = excluded.indexed_at`,
		tw.ID, tw.Author, tw.Text, tw.CreatedAt.UTC(),
		tw.Quality, tw.QualityReductions, tw.QualityTrail, tw.Language,
		terms, langs, string(urls), string(dups), time.Now().UTC(),
	)
	return err
}

// AuthorHistory loads the author's stored messages ordered oldest first.
// With limit > 0 the most recent messages win; the result stays ascending.
func (r *Repository) AuthorHistory(ctx context.Context, author string, limit int) ([]*tweet.Tweet, error) {
	query := `
		SELECT id, author, text, created_at, quality, reductions, trail, language, terms, languages, url_entries, duplicates
		FROM tweets
		WHERE author = ?
		ORDER BY created_at DESC, id DESC`
	args := []any{author}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history for %q: %w", author, err)
	}
	defer rows.Close()

	var history []*tweet.Tweet
	for rows.Next() {
		tw, err := scanTweet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		history = append(history, tw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}

	// reverse the DESC page into ascending order
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}
	return history, nil
}

// Recent returns the most recently created messages, newest first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]*tweet.Tweet, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, author, text, created_at, quality, reductions, trail, language, terms, languages, url_entries, duplicates
		FROM tweets
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()

	var tweets []*tweet.Tweet
	for rows.Next() {
		tw, err := scanTweet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recent row: %w", err)
		}
		tweets = append(tweets, tw)
	}
	return tweets, rows.Err()
}

// Prune removes messages older than maxAge. Returns the number of rows
// deleted.
func (r *Repository) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM tweets WHERE created_at < ?`,
		time.Now().UTC().Add(-maxAge),
	)
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	return res.RowsAffected()
}

// Count returns the number of stored messages.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tweets`).Scan(&n)
	return n, err
}

func scanTweet(rows *sql.Rows) (*tweet.Tweet, error) {
	var (
		id                          int64
		author, text                string
		createdAt                   time.Time
		quality, reductions         int
		trail, language             string
		terms, langs, urls, dupsRaw sql.NullString
	)
	err := rows.Scan(&id, &author, &text, &createdAt, &quality, &reductions, &trail, &language, &terms, &langs, &urls, &dupsRaw)
	if err != nil {
		return nil, err
	}

	tw := tweet.New(id, text, author, createdAt)
	tw.Quality = quality
	tw.QualityReductions = reductions
	tw.QualityTrail = trail
	tw.Language = language

	if tw.TextTerms, err = unmarshalFreq(terms.String); err != nil {
		return nil, fmt.Errorf("decode terms for %d: %w", id, err)
	}
	if tw.Languages, err = unmarshalFreq(langs.String); err != nil {
		return nil, fmt.Errorf("decode languages for %d: %w", id, err)
	}
	if urls.String != "" {
		if err := json.Unmarshal([]byte(urls.String), &tw.URLEntries); err != nil {
			return nil, fmt.Errorf("decode url entries for %d: %w", id, err)
		}
	}
	if dupsRaw.String != "" {
		var ids []int64
		if err := json.Unmarshal([]byte(dupsRaw.String), &ids); err != nil {
			return nil, fmt.Errorf("decode duplicates for %d: %w", id, err)
		}
		for _, d := range ids {
			tw.AddDuplicate(d)
		}
	}
	return tw, nil
}

func marshalFreq(m *freq.Map) (sql.NullString, error) {
	if m == nil || m.Len() == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(m.Entries())
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func unmarshalFreq(raw string) (*freq.Map, error) {
	if raw == "" {
		return freq.New(), nil
	}
	var entries []freq.Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, err
	}
	m := freq.New()
	for _, e := range entries {
		m.Set(e.Term, e.Count)
	}
	return m, nil
}

func duplicateIDs(tw *tweet.Tweet) []int64 {
	if len(tw.Duplicates) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(tw.Duplicates))
	for id := range tw.Duplicates {
		ids = append(ids, id)
	}
	return ids
}
