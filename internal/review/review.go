// Package review stores the free-form notes reviewers attach to a claim.
// Note bodies are markdown; the HTML rendering is done on read so the
// stored text stays canonical.
package review

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"

	"github.com/claimdeck/claimdeck/internal/db"
)

// Note is one reviewer annotation on a claim, optionally pinned to a
// specific assessment run.
type Note struct {
	ID        string    `json:"id"`
	ClaimID   string    `json:"claim_id"`
	RunID     string    `json:"run_id,omitempty"`
	Author    string    `json:"author,omitempty"`
	Body      string    `json:"body"`
	BodyHTML  string    `json:"body_html,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store provides persistence for review notes.
type Store struct {
	db *db.DB
	md goldmark.Markdown
}

func NewStore(database *db.DB) *Store {
	return &Store{db: database, md: goldmark.New()}
}

// Create inserts a note. An empty ID is replaced with a UUID.
func (s *Store) Create(ctx context.Context, n *Note) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO review_notes (id, claim_id, run_id, author, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.ClaimID, n.RunID, n.Author, n.Body, n.CreatedAt.Format(time.DateTime))
	if err != nil {
		return fmt.Errorf("inserting note: %w", err)
	}
	return nil
}

// List returns a claim's notes, oldest first.
func (s *Store) List(ctx context.Context, claimID string) ([]Note, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, claim_id, run_id, author, body, created_at
		FROM review_notes WHERE claim_id = ? ORDER BY created_at`, claimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.ClaimID, &n.RunID, &n.Author, &n.Body, &n.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, n)
	}
	return results, rows.Err()
}

// Get retrieves one note by ID. Returns (nil, nil) when not found.
func (s *Store) Get(ctx context.Context, id string) (*Note, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, claim_id, run_id, author, body, created_at
		FROM review_notes WHERE id = ?`, id)

	var n Note
	err := row.Scan(&n.ID, &n.ClaimID, &n.RunID, &n.Author, &n.Body, &n.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &n, nil
}

// RenderHTML converts a note body from markdown to HTML.
func (s *Store) RenderHTML(body string) (string, error) {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(body), &buf); err != nil {
		return "", fmt.Errorf("rendering note: %w", err)
	}
	return buf.String(), nil
}
