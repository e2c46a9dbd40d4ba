package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"lumina/backend/internal/config"
	authusecase "lumina/backend/internal/usecase/auth"
	favoriteusecase "lumina/backend/internal/usecase/favorite"
	userusecase "lumina/backend/internal/usecase/user"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// RequestObserver receives per-request telemetry.
type RequestObserver interface {
	RecordHTTPRequest(route string, statusCode int, duration time.Duration)
	RecordRateLimited(route string)
}

// Dependencies groups what the HTTP layer needs from the rest of the app.
type Dependencies struct {
	Auth      *authusecase.Service
	Users     *userusecase.Service
	Favorites *favoriteusecase.Service
	Observer  RequestObserver
	Gatherer  prometheus.Gatherer
	Logger    *slog.Logger
}

// Server wraps the HTTP server lifecycle.
type Server struct {
	httpServer      *http.Server
	router          chi.Router
	authService     *authusecase.Service
	userService     *userusecase.Service
	favoriteService *favoriteusecase.Service
	observer        RequestObserver
	gatherer        prometheus.Gatherer
	limiter         *RateLimiter
	resetLimiter    *RateLimiter
	logger          *slog.Logger
	allowedOrigins  []string
	trustedProxies  []netip.Prefix
	addr            string
}

// NewServer constructs a new Server with configured dependencies.
func NewServer(cfg config.Config, deps Dependencies) *Server {
	addr := cfg.HTTPPort
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	observer := deps.Observer
	if observer == nil {
		observer = nopObserver{}
	}

	srv := &Server{
		router:          chi.NewRouter(),
		authService:     deps.Auth,
		userService:     deps.Users,
		favoriteService: deps.Favorites,
		observer:        observer,
		gatherer:        deps.Gatherer,
		limiter:         NewRateLimiter(PerMinute(cfg.AuthRatePerMin), observer, logger),
		resetLimiter:    NewRateLimiter(PerHour(cfg.ResetRatePerHour), observer, logger),
		logger:          logger,
		allowedOrigins:  cfg.AllowedOrigins,
		trustedProxies:  cfg.TrustedProxies,
		addr:            addr,
	}
	srv.registerRoutes()

	srv.httpServer = &http.Server{
		Addr:         addr,
		Handler:      srv.router,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(cfg.IdleTimeoutSec) * time.Second,
	}
	return srv
}

// Start bootstraps the HTTP server on the provided address.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server and its background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	s.resetLimiter.Stop()
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the configured network address for the HTTP server.
func (s *Server) Addr() string {
	return s.addr
}

type nopObserver struct{}

func (nopObserver) RecordHTTPRequest(string, int, time.Duration) {}
func (nopObserver) RecordRateLimited(string)                     {}
