package favorite

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	domain "lumina/backend/internal/domain/favorite"
	"lumina/backend/internal/infrastructure/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *Service {
	s := NewService(memory.NewFavoriteRepository())
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s.nowFunc = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	return s
}

func TestService_Add(t *testing.T) {
	ctx := context.Background()
	s := newTestService()

	f, err := s.Add(ctx, "u1", CreateInput{VideoID: " v1 ", Title: " Sunset "})
	require.NoError(t, err)
	assert.NotEmpty(t, f.ID)
	assert.Equal(t, "v1", f.VideoID)
	assert.Equal(t, "Sunset", f.Title)
	assert.Equal(t, "u1", f.UserID)

	_, err = s.Add(ctx, "u1", CreateInput{VideoID: "v1", Title: "Again"})
	assert.ErrorIs(t, err, domain.ErrDuplicateVideo)

	_, err = s.Add(ctx, "u2", CreateInput{VideoID: "v1", Title: "Other user"})
	assert.NoError(t, err, "another user may save the same video")
}

func TestService_AddValidation(t *testing.T) {
	s := newTestService()

	_, err := s.Add(context.Background(), "u1", CreateInput{Title: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = s.Add(context.Background(), "u1", CreateInput{VideoID: "v"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestService_ListScopedAndOrdered(t *testing.T) {
	ctx := context.Background()
	s := newTestService()

	empty, err := s.List(ctx, "u1")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = s.Add(ctx, "u1", CreateInput{VideoID: "v1", Title: "first"})
	require.NoError(t, err)
	_, err = s.Add(ctx, "u1", CreateInput{VideoID: "v2", Title: "second"})
	require.NoError(t, err)
	_, err = s.Add(ctx, "u2", CreateInput{VideoID: "v3", Title: "foreign"})
	require.NoError(t, err)

	items, err := s.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "second", items[0].Title)
	assert.Equal(t, "first", items[1].Title)
}

func TestService_UpdateAndRemove(t *testing.T) {
	ctx := context.Background()
	s := newTestService()

	f, err := s.Add(ctx, "u1", CreateInput{VideoID: "v1", Title: "first"})
	require.NoError(t, err)

	note := "watch later"
	updated, err := s.Update(ctx, "u1", f.ID, UpdateInput{Note: &note})
	require.NoError(t, err)
	assert.Equal(t, "watch later", updated.Note)
	assert.True(t, updated.UpdatedAt.After(f.UpdatedAt))

	blank := "  "
	_, err = s.Update(ctx, "u1", f.ID, UpdateInput{Title: &blank})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = s.Update(ctx, "u2", f.ID, UpdateInput{Note: &note})
	assert.ErrorIs(t, err, domain.ErrNotFound, "favorites of other users are invisible")

	assert.ErrorIs(t, s.Remove(ctx, "u2", f.ID), domain.ErrNotFound)
	require.NoError(t, s.Remove(ctx, "u1", f.ID))
	assert.ErrorIs(t, s.Remove(ctx, "u1", f.ID), domain.ErrNotFound)
	assert.ErrorIs(t, s.Remove(ctx, "u1", ""), domain.ErrInvalidInput)
}

type failingRepo struct {
	domain.Repository
	err error
}

func (f failingRepo) GetByVideo(context.Context, string, string) (*domain.Favorite, error) {
	return nil, f.err
}

func TestService_AddPropagatesStoreErrors(t *testing.T) {
	boom := errors.New("connection reset")
	s := NewService(failingRepo{err: boom})

	_, err := s.Add(context.Background(), "u1", CreateInput{VideoID: "v1", Title: "t"})
	assert.ErrorIs(t, err, boom)
}

func TestService_MalformedIDIsNotFound(t *testing.T) {
	ctx := context.Background()
	// An embedded nil repository panics if the store is reached.
	s := NewService(failingRepo{})

	_, err := s.Get(ctx, "u1", "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	title := "x"
	_, err = s.Update(ctx, "u1", "not-a-uuid", UpdateInput{Title: &title})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, s.Remove(ctx, "u1", "not-a-uuid"), domain.ErrNotFound)
	assert.ErrorIs(t, s.Remove(ctx, "u1", " "), domain.ErrInvalidInput)
}

func TestService_GetAcceptsUppercaseID(t *testing.T) {
	ctx := context.Background()
	s := newTestService()

	f, err := s.Add(ctx, "u1", CreateInput{VideoID: "v1", Title: "t"})
	require.NoError(t, err)

	got, err := s.Get(ctx, "u1", strings.ToUpper(f.ID))
	require.NoError(t, err)
	assert.Equal(t, f.ID, got.ID)
}
