package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lumenlearn/engage/internal/domain"
)

// ErrContentNotFound is returned when a content lookup matches nothing.
var ErrContentNotFound = errors.New("content not found")

// ContentRepo resolves content references. The engine only reads the few
// fields payloads and call scripts need; content is owned elsewhere.
type ContentRepo struct{ db *sql.DB }

// NewContentRepo creates a Postgres-backed content reader.
func NewContentRepo(db *sql.DB) *ContentRepo { return &ContentRepo{db: db} }

func (r *ContentRepo) GetContent(ctx context.Context, id string) (*domain.ContentRef, error) {
	ref := &domain.ContentRef{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, title, COALESCE(description,''), category, COALESCE(audio_url,'')
		FROM contents
		WHERE id = $1
	`, id).Scan(&ref.ID, &ref.Title, &ref.Description, &ref.Category, &ref.AudioURL)
	if err == sql.ErrNoRows {
		return nil, ErrContentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get content: %w", err)
	}
	return ref, nil
}

// FirstDailyPlaylistContent returns the first item of the user's active
// daily playlist, or (nil, nil) when the user has no playlist content.
func (r *ContentRepo) FirstDailyPlaylistContent(ctx context.Context, userID string) (*domain.ContentRef, error) {
	ref := &domain.ContentRef{}
	err := r.db.QueryRowContext(ctx, `
		SELECT c.id, c.title, COALESCE(c.description,''), c.category, COALESCE(c.audio_url,'')
		FROM daily_playlists pl
		JOIN contents c ON c.id = pl.content_id
		WHERE pl.user_id = $1 AND pl.active = true
		ORDER BY pl.position ASC
		LIMIT 1
	`, userID).Scan(&ref.ID, &ref.Title, &ref.Description, &ref.Category, &ref.AudioURL)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("first playlist content: %w", err)
	}
	return ref, nil
}
