package postgres

import (
	"context"
	"errors"

	domain "lumina/backend/internal/domain/favorite"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FavoriteRepository persists favorites in PostgreSQL.
type FavoriteRepository struct {
	pool *pgxpool.Pool
}

// NewFavoriteRepository constructs a repository.
func NewFavoriteRepository(pool *pgxpool.Pool) *FavoriteRepository {
	return &FavoriteRepository{pool: pool}
}

var _ domain.Repository = (*FavoriteRepository)(nil)

const favoriteColumns = `id, user_id, video_id, title, thumbnail_url, note, created_at, updated_at`

// Create inserts a new favorite.
func (r *FavoriteRepository) Create(ctx context.Context, favorite *domain.Favorite) error {
	const query = `
INSERT INTO favorites (id, user_id, video_id, title, thumbnail_url, note, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`
	_, err := r.pool.Exec(ctx, query,
		favorite.ID,
		favorite.UserID,
		favorite.VideoID,
		favorite.Title,
		favorite.ThumbnailURL,
		favorite.Note,
		favorite.CreatedAt,
		favorite.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateVideo
		}
		return err
	}
	return nil
}

// GetByID fetches a favorite owned by userID.
func (r *FavoriteRepository) GetByID(ctx context.Context, userID, id string) (*domain.Favorite, error) {
	query := `SELECT ` + favoriteColumns + ` FROM favorites WHERE user_id = $1 AND id = $2`
	return r.getOne(ctx, query, userID, id)
}

// GetByVideo fetches the favorite of userID for a video.
func (r *FavoriteRepository) GetByVideo(ctx context.Context, userID, videoID string) (*domain.Favorite, error) {
	query := `SELECT ` + favoriteColumns + ` FROM favorites WHERE user_id = $1 AND video_id = $2`
	return r.getOne(ctx, query, userID, videoID)
}

func (r *FavoriteRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Favorite, error) {
	favorite, err := scanFavorite(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return favorite, nil
}

// ListByUser returns the favorites of userID, newest first.
func (r *FavoriteRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Favorite, error) {
	query := `SELECT ` + favoriteColumns + ` FROM favorites WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var favorites []*domain.Favorite
	for rows.Next() {
		f, err := scanFavorite(rows)
		if err != nil {
			return nil, err
		}
		favorites = append(favorites, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return favorites, nil
}

// Update persists changes to an existing favorite.
func (r *FavoriteRepository) Update(ctx context.Context, favorite *domain.Favorite) error {
	const query = `
UPDATE favorites
SET title = $3, thumbnail_url = $4, note = $5, updated_at = $6
WHERE user_id = $1 AND id = $2
`
	ct, err := r.pool.Exec(ctx, query,
		favorite.UserID,
		favorite.ID,
		favorite.Title,
		favorite.ThumbnailURL,
		favorite.Note,
		favorite.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a favorite owned by userID.
func (r *FavoriteRepository) Delete(ctx context.Context, userID, id string) error {
	const query = `DELETE FROM favorites WHERE user_id = $1 AND id = $2`
	ct, err := r.pool.Exec(ctx, query, userID, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteByUser removes every favorite of userID.
func (r *FavoriteRepository) DeleteByUser(ctx context.Context, userID string) error {
	const query = `DELETE FROM favorites WHERE user_id = $1`
	_, err := r.pool.Exec(ctx, query, userID)
	return err
}

func scanFavorite(row pgx.Row) (*domain.Favorite, error) {
	var f domain.Favorite
	err := row.Scan(
		&f.ID,
		&f.UserID,
		&f.VideoID,
		&f.Title,
		&f.ThumbnailURL,
		&f.Note,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
