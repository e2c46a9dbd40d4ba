package httpserver

import (
	"net/http"

	"lumina/backend/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(withTrustedRealIP(s.trustedProxies))
	r.Use(s.withLogging)
	r.Use(s.withRecovery)
	r.Use(withCORS(s.allowedOrigins))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	r.Get("/health", s.handleHealth)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(s.gatherer))
	}

	r.Route("/auth", func(r chi.Router) {
		limited := r.With(s.limiter.Middleware)
		limited.Post("/register", s.handleRegister)
		limited.Post("/login", s.handleLogin)
		limited.Post("/forgot-password", s.handleForgotPassword)
		limited.Post("/reset-password", s.handleResetPassword)
		r.Post("/renew", s.handleRenewToken)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Route("/users/me", func(r chi.Router) {
			r.Get("/", s.handleGetProfile)
			r.Patch("/", s.handleUpdateProfile)
			r.Delete("/", s.handleDeleteProfile)
			r.Post("/password", s.handleChangePassword)
		})

		r.Route("/favorites", func(r chi.Router) {
			r.Get("/", s.handleListFavorites)
			r.Post("/", s.handleAddFavorite)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetFavorite)
				r.Patch("/", s.handleUpdateFavorite)
				r.Delete("/", s.handleDeleteFavorite)
			})
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
