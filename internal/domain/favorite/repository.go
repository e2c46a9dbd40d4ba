package favorite

import "context"

// Repository defines persistence behaviours for favorites. Every lookup is
// scoped to the owning user.
type Repository interface {
	Create(ctx context.Context, favorite *Favorite) error
	GetByID(ctx context.Context, userID, id string) (*Favorite, error)
	GetByVideo(ctx context.Context, userID, videoID string) (*Favorite, error)
	ListByUser(ctx context.Context, userID string) ([]*Favorite, error)
	Update(ctx context.Context, favorite *Favorite) error
	Delete(ctx context.Context, userID, id string) error
	DeleteByUser(ctx context.Context, userID string) error
}
