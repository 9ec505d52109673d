// Package storystore persists generated stories for the storyd backend.
package storystore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/alkime/storytime/internal/story"
	_ "github.com/mattn/go-sqlite3"
)

// createdAtLayout is fixed width and zone-less so that text ordering matches
// time ordering.
const createdAtLayout = "2006-01-02T15:04:05.000000"

const schema = `
CREATE TABLE IF NOT EXISTS stories (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	created_at TEXT NOT NULL,
	audio_url TEXT NOT NULL,
	transcript TEXT NOT NULL,
	panels_json TEXT NOT NULL
)`

// Store is a sqlite-backed story table.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert persists st. The id must be unique.
func (s *Store) Insert(ctx context.Context, st story.Story) error {
	panels := st.Panels
	if panels == nil {
		panels = []story.Panel{}
	}

	panelsJSON, err := json.Marshal(panels)
	if err != nil {
		return fmt.Errorf("encode panels: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO stories (id, title, created_at, audio_url, transcript, panels_json)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		st.ID.String(), st.Title, formatCreatedAt(st.CreatedAt.Time),
		st.AudioURL, st.Transcript, string(panelsJSON),
	)
	if err != nil {
		return fmt.Errorf("insert story: %w", err)
	}

	return nil
}

// List returns every story summary, newest first.
func (s *Store) List(ctx context.Context) ([]story.Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, created_at FROM stories ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	defer rows.Close()

	summaries := []story.Summary{}
	for rows.Next() {
		var (
			sum       story.Summary
			id        string
			createdAt string
		)
		if err := rows.Scan(&id, &sum.Title, &createdAt); err != nil {
			return nil, fmt.Errorf("scan story: %w", err)
		}

		sum.ID = story.ID(id)
		if sum.CreatedAt, err = story.ParseTimestamp(createdAt); err != nil {
			return nil, fmt.Errorf("story %s: %w", id, err)
		}
		summaries = append(summaries, sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stories: %w", err)
	}

	return summaries, nil
}

// Get returns the story with the given id, or story.ErrNotFound.
func (s *Store) Get(ctx context.Context, id story.ID) (story.Story, error) {
	var (
		st         story.Story
		rawID      string
		createdAt  string
		panelsJSON string
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, created_at, audio_url, transcript, panels_json
		FROM stories WHERE id = ?
	`, id.String()).Scan(&rawID, &st.Title, &createdAt, &st.AudioURL, &st.Transcript, &panelsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return story.Story{}, fmt.Errorf("%w: %s", story.ErrNotFound, id)
	}
	if err != nil {
		return story.Story{}, fmt.Errorf("get story: %w", err)
	}

	st.ID = story.ID(rawID)
	if st.CreatedAt, err = story.ParseTimestamp(createdAt); err != nil {
		return story.Story{}, fmt.Errorf("story %s: %w", rawID, err)
	}
	if err := json.Unmarshal([]byte(panelsJSON), &st.Panels); err != nil {
		return story.Story{}, fmt.Errorf("decode panels: %w", err)
	}

	return st, nil
}

func formatCreatedAt(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}

	return t.UTC().Format(createdAtLayout)
}
