package user

import (
	"context"
	"log/slog"
	"strings"
	"time"

	domain "lumina/backend/internal/domain/auth"
)

// FavoriteCleaner removes the favorites owned by a user.
type FavoriteCleaner interface {
	DeleteByUser(ctx context.Context, userID string) error
}

// Service provides self-service profile use cases for authenticated users.
type Service struct {
	repo      domain.UserRepository
	favorites FavoriteCleaner
	logger    *slog.Logger
	nowFunc   func() time.Time
}

// NewService constructs a user service around the provided repository.
// favorites may be nil when the store cascades deletes itself.
func NewService(repo domain.UserRepository, favorites FavoriteCleaner, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		favorites: favorites,
		logger:    logger,
		nowFunc:   time.Now,
	}
}

// UpdateInput defines a partial profile update. Nil fields are left unchanged.
type UpdateInput struct {
	Email     *string
	FirstName *string
	LastName  *string
	Age       *int
}

// Get retrieves a single user by its identifier.
func (s *Service) Get(ctx context.Context, id string) (*domain.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.MissingFields("id")
	}
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.StoreUnavailable(err)
	}
	return user.Sanitized(), nil
}

// Update modifies the profile of the user.
func (s *Service) Update(ctx context.Context, id string, input UpdateInput) (*domain.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.MissingFields("id")
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.StoreUnavailable(err)
	}

	if input.Email != nil {
		email := domain.NormalizeEmail(*input.Email)
		if email == "" {
			return nil, domain.MissingFields("email")
		}
		if !domain.ValidEmail(email) {
			return nil, domain.ErrInvalidEmail
		}
		user.Email = email
	}
	if input.FirstName != nil {
		name := strings.TrimSpace(*input.FirstName)
		if name == "" {
			return nil, domain.MissingFields("firstName")
		}
		user.FirstName = name
	}
	if input.LastName != nil {
		name := strings.TrimSpace(*input.LastName)
		if name == "" {
			return nil, domain.MissingFields("lastName")
		}
		user.LastName = name
	}
	if input.Age != nil {
		if *input.Age < domain.MinimumAge {
			return nil, domain.ErrUnderage
		}
		user.Age = *input.Age
	}

	user.UpdatedAt = s.nowFunc().UTC()
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, domain.StoreUnavailable(err)
	}

	return user.Sanitized(), nil
}

// Delete removes the user together with their favorites.
func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.MissingFields("id")
	}
	if s.favorites != nil {
		if err := s.favorites.DeleteByUser(ctx, id); err != nil {
			return domain.StoreUnavailable(err)
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return domain.StoreUnavailable(err)
	}
	s.logger.InfoContext(ctx, "user deleted", slog.String("user_id", id))
	return nil
}
