package httpserver

import (
	"net/http"

	authdomain "lumina/backend/internal/domain/auth"
	userusecase "lumina/backend/internal/usecase/user"
)

// requireUserID returns the authenticated user id or writes 401.
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := currentUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, authdomain.ErrTokenInvalid.Code, "authentication required")
	}
	return id, ok
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	user, err := s.userService.Get(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var payload struct {
		Email     *string `json:"email"`
		FirstName *string `json:"firstName"`
		LastName  *string `json:"lastName"`
		Age       *int    `json:"age"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	user, err := s.userService.Update(r.Context(), userID, userusecase.UpdateInput{
		Email:     payload.Email,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Age:       payload.Age,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	if err := s.userService.Delete(r.Context(), userID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var payload struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	if err := s.authService.ChangePassword(r.Context(), userID, payload.CurrentPassword, payload.NewPassword); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "password updated"})
}
