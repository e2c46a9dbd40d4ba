package favorite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "lumina/backend/internal/domain/favorite"

	"github.com/google/uuid"
)

// Service encapsulates favorite use cases.
type Service struct {
	repo    domain.Repository
	nowFunc func() time.Time
}

// NewService constructs a favorite service.
func NewService(repo domain.Repository) *Service {
	return &Service{
		repo:    repo,
		nowFunc: time.Now,
	}
}

// CreateInput contains the payload required to save a video.
type CreateInput struct {
	VideoID      string `json:"videoId"`
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnailUrl"`
	Note         string `json:"note"`
}

// UpdateInput encapsulates partial favorite updates.
type UpdateInput struct {
	Title        *string `json:"title"`
	ThumbnailURL *string `json:"thumbnailUrl"`
	Note         *string `json:"note"`
}

// Add stores a new favorite for userID after validation.
func (s *Service) Add(ctx context.Context, userID string, input CreateInput) (*domain.Favorite, error) {
	input.VideoID = strings.TrimSpace(input.VideoID)
	input.Title = strings.TrimSpace(input.Title)
	if input.VideoID == "" {
		return nil, fmt.Errorf("%w: videoId is required", domain.ErrInvalidInput)
	}
	if input.Title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}

	if _, err := s.repo.GetByVideo(ctx, userID, input.VideoID); err == nil {
		return nil, domain.ErrDuplicateVideo
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	now := s.nowFunc().UTC()
	favorite := &domain.Favorite{
		ID:           uuid.NewString(),
		UserID:       userID,
		VideoID:      input.VideoID,
		Title:        input.Title,
		ThumbnailURL: strings.TrimSpace(input.ThumbnailURL),
		Note:         strings.TrimSpace(input.Note),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, favorite); err != nil {
		return nil, err
	}
	return favorite, nil
}

// List retrieves the favorites of userID, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]*domain.Favorite, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*domain.Favorite{}
	}
	return items, nil
}

// Get fetches one favorite of userID.
func (s *Service) Get(ctx context.Context, userID, id string) (*domain.Favorite, error) {
	id, err := favoriteID(id)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, userID, id)
}

// Update applies partial updates to a favorite.
func (s *Service) Update(ctx context.Context, userID, id string, input UpdateInput) (*domain.Favorite, error) {
	favorite, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", domain.ErrInvalidInput)
		}
		input.Title = &title
	}

	favorite.Update(input.Title, input.ThumbnailURL, input.Note, s.nowFunc().UTC())

	if err := s.repo.Update(ctx, favorite); err != nil {
		return nil, err
	}
	return favorite, nil
}

// Remove deletes a favorite of userID.
func (s *Service) Remove(ctx context.Context, userID, id string) error {
	id, err := favoriteID(id)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, userID, id)
}

// favoriteID canonicalises a favorite id. Ids that are not UUIDs cannot
// exist, so they are reported as not found without a store round trip.
func favoriteID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: id is required", domain.ErrInvalidInput)
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return "", domain.ErrNotFound
	}
	return parsed.String(), nil
}
