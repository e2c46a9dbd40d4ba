package httpserver

import (
	"net/http"

	favoriteusecase "lumina/backend/internal/usecase/favorite"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	items, err := s.favoriteService.List(r.Context(), userID)
	if err != nil {
		s.writeFavoriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var payload favoriteusecase.CreateInput
	if !decodeJSON(w, r, &payload) {
		return
	}
	item, err := s.favoriteService.Add(r.Context(), userID, payload)
	if err != nil {
		s.writeFavoriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleGetFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	item, err := s.favoriteService.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		s.writeFavoriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleUpdateFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var payload favoriteusecase.UpdateInput
	if !decodeJSON(w, r, &payload) {
		return
	}
	item, err := s.favoriteService.Update(r.Context(), userID, chi.URLParam(r, "id"), payload)
	if err != nil {
		s.writeFavoriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	if err := s.favoriteService.Remove(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		s.writeFavoriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
