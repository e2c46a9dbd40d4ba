package httpserver

import (
	"net/http"
	"strings"
	"time"

	authdomain "lumina/backend/internal/domain/auth"
	authusecase "lumina/backend/internal/usecase/auth"
)

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Age       int       `json:"age"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newUserResponse(u *authdomain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Age:       u.Age,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Age       *int   `json:"age"`
		Email     string `json:"email"`
		Password  string `json:"password"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	user, err := s.authService.Register(r.Context(), authusecase.RegisterInput{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Age:       payload.Age,
		Email:     payload.Email,
		Password:  payload.Password,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newUserResponse(user))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	token, user, err := s.authService.Login(r.Context(), authdomain.Credentials{
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  newUserResponse(user),
	})
}

func (s *Server) handleRenewToken(w http.ResponseWriter, r *http.Request) {
	token := extractBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		var payload struct {
			Token string `json:"token"`
		}
		if !decodeJSON(w, r, &payload) {
			return
		}
		token = strings.TrimSpace(payload.Token)
	}
	if token == "" {
		writeError(w, http.StatusBadRequest, authdomain.ErrMissingFields.Code, "token required")
		return
	}

	newToken, err := s.authService.RenewToken(r.Context(), token)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": newToken,
	})
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	if key := authdomain.NormalizeEmail(payload.Email); key != "" && !s.resetLimiter.Allow(key) {
		s.resetLimiter.reject(w, r, "email")
		return
	}

	msg, err := s.authService.RequestPasswordReset(r.Context(), payload.Email)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Token           string `json:"token"`
		NewPassword     string `json:"newPassword"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	if payload.Token == "" {
		payload.Token = r.URL.Query().Get("token")
	}

	err := s.authService.ResetPassword(r.Context(), authusecase.ResetInput{
		Token:           payload.Token,
		NewPassword:     payload.NewPassword,
		ConfirmPassword: payload.ConfirmPassword,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Password has been reset. You can now log in with your new password."})
}
