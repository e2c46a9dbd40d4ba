package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	authdomain "lumina/backend/internal/domain/auth"
	favoritedomain "lumina/backend/internal/domain/favorite"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

// decodeJSON reads a JSON body into dst. An empty body decodes to the zero value.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return false
	}
	return true
}

// statusFor maps an auth error to its HTTP status.
func statusFor(err error) int {
	if errors.Is(err, authdomain.ErrMailDelivery) {
		return http.StatusBadGateway
	}
	switch authdomain.KindOf(err) {
	case authdomain.KindValidation, authdomain.KindPolicy:
		return http.StatusBadRequest
	case authdomain.KindConflict:
		return http.StatusConflict
	case authdomain.KindUnauthorized:
		return http.StatusUnauthorized
	case authdomain.KindNotFound:
		return http.StatusNotFound
	case authdomain.KindDependency:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError renders err with its taxonomy status. Causes of
// dependency and internal failures are logged, never returned.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	code := authdomain.CodeOf(err)
	message := err.Error()

	var typed *authdomain.Error
	if status >= 500 {
		s.logger.ErrorContext(r.Context(), "request failed",
			slog.String("code", code),
			slog.String("error", err.Error()),
		)
		message = "internal server error"
		if errors.As(err, &typed) {
			message = typed.Message
		}
	}
	writeError(w, status, code, message)
}

func (s *Server) writeFavoriteError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, favoritedomain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_favorite", err.Error())
	case errors.Is(err, favoritedomain.ErrNotFound):
		writeError(w, http.StatusNotFound, "favorite_not_found", err.Error())
	case errors.Is(err, favoritedomain.ErrDuplicateVideo):
		writeError(w, http.StatusConflict, "favorite_exists", err.Error())
	default:
		s.logger.ErrorContext(r.Context(), "favorite request failed", slog.String("error", err.Error()))
		writeError(w, http.StatusServiceUnavailable, authdomain.ErrStoreUnavailable.Code, authdomain.ErrStoreUnavailable.Message)
	}
}
