package favorite

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a favorite could not be located for the user.
	ErrNotFound = errors.New("favorite not found")
	// ErrDuplicateVideo signals the user already saved this video.
	ErrDuplicateVideo = errors.New("video already in favorites")
	// ErrInvalidInput wraps field-level validation failures.
	ErrInvalidInput = errors.New("invalid favorite")
)

// Favorite is a video saved by a user.
type Favorite struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	VideoID      string    `json:"videoId"`
	Title        string    `json:"title"`
	ThumbnailURL string    `json:"thumbnailUrl"`
	Note         string    `json:"note"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Update applies arbitrary field updates to the favorite.
func (f *Favorite) Update(title, thumbnailURL, note *string, now time.Time) {
	if title != nil {
		f.Title = *title
	}
	if thumbnailURL != nil {
		f.ThumbnailURL = *thumbnailURL
	}
	if note != nil {
		f.Note = *note
	}
	f.UpdatedAt = now
}
