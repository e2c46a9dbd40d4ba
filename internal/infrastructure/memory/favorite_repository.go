package memory

import (
	"context"
	"sort"
	"sync"

	domain "lumina/backend/internal/domain/favorite"
)

// FavoriteRepository keeps favorites in a map guarded by a mutex.
type FavoriteRepository struct {
	mu    sync.RWMutex
	items map[string]*domain.Favorite
}

// NewFavoriteRepository returns an empty repository.
func NewFavoriteRepository() *FavoriteRepository {
	return &FavoriteRepository{items: make(map[string]*domain.Favorite)}
}

var _ domain.Repository = (*FavoriteRepository)(nil)

func (r *FavoriteRepository) Create(_ context.Context, favorite *domain.Favorite) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, f := range r.items {
		if f.UserID == favorite.UserID && f.VideoID == favorite.VideoID {
			return domain.ErrDuplicateVideo
		}
	}
	c := *favorite
	r.items[favorite.ID] = &c
	return nil
}

func (r *FavoriteRepository) GetByID(_ context.Context, userID, id string) (*domain.Favorite, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.items[id]
	if !ok || f.UserID != userID {
		return nil, domain.ErrNotFound
	}
	c := *f
	return &c, nil
}

func (r *FavoriteRepository) GetByVideo(_ context.Context, userID, videoID string) (*domain.Favorite, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, f := range r.items {
		if f.UserID == userID && f.VideoID == videoID {
			c := *f
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *FavoriteRepository) ListByUser(_ context.Context, userID string) ([]*domain.Favorite, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Favorite
	for _, f := range r.items {
		if f.UserID == userID {
			c := *f
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *FavoriteRepository) Update(_ context.Context, favorite *domain.Favorite) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.items[favorite.ID]
	if !ok || f.UserID != favorite.UserID {
		return domain.ErrNotFound
	}
	c := *favorite
	r.items[favorite.ID] = &c
	return nil
}

func (r *FavoriteRepository) Delete(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.items[id]
	if !ok || f.UserID != userID {
		return domain.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *FavoriteRepository) DeleteByUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, f := range r.items {
		if f.UserID == userID {
			delete(r.items, id)
		}
	}
	return nil
}
