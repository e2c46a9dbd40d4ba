package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lumina/backend/internal/config"
	authdomain "lumina/backend/internal/domain/auth"
	favoritedomain "lumina/backend/internal/domain/favorite"
	"lumina/backend/internal/httpserver"
	"lumina/backend/internal/infrastructure/hasher"
	"lumina/backend/internal/infrastructure/mail"
	"lumina/backend/internal/infrastructure/memory"
	"lumina/backend/internal/infrastructure/postgres"
	"lumina/backend/internal/infrastructure/token"
	"lumina/backend/internal/logger"
	"lumina/backend/internal/metrics"
	authusecase "lumina/backend/internal/usecase/auth"
	favoriteusecase "lumina/backend/internal/usecase/favorite"
	userusecase "lumina/backend/internal/usecase/user"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.SetupDefault(os.Stdout, logger.ParseLevel(cfg.LogLevel))

	rootCtx := context.Background()
	users, favorites, closeStore, err := openStore(rootCtx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	mailer, err := newMailer(cfg, log)
	if err != nil {
		return err
	}

	authService := authusecase.NewService(authusecase.Dependencies{
		Users:   users,
		Tokens:  token.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiry, cfg.JWTIssuer),
		Resets:  token.NewResetTokenManager(),
		Hasher:  hasher.NewBcrypt(),
		Mailer:  mailer,
		Metrics: collector,
		Logger:  log,
	}, authusecase.Config{ResetURL: cfg.ResetPasswordURL})

	server := httpserver.NewServer(cfg, httpserver.Dependencies{
		Auth:      authService,
		Users:     userusecase.NewService(users, favorites, log),
		Favorites: favoriteusecase.NewService(favorites),
		Observer:  collector,
		Gatherer:  reg,
		Logger:    log,
	})

	serveErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", slog.String("addr", server.Addr()), slog.String("store", cfg.StoreDriver))
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	shutdownCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-shutdownCtx.Done():
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Info("graceful shutdown completed")
	return nil
}

func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (authdomain.UserRepository, favoritedomain.Repository, func(), error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		log.Warn("using in-memory store, data is lost on restart")
		return memory.NewUserRepository(), memory.NewFavoriteRepository(), func() {}, nil
	}

	db, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("run database migrations: %w", err)
	}
	return postgres.NewUserRepository(db.Pool), postgres.NewFavoriteRepository(db.Pool), db.Close, nil
}

func newMailer(cfg config.Config, log *slog.Logger) (authusecase.Mailer, error) {
	if cfg.SMTP.Host == "" {
		log.Warn("SMTP_HOST not set, password reset mails are logged instead of sent")
		return mail.NewLogMailer(log), nil
	}
	m, err := mail.NewSMTPMailer(mail.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		Timeout:  cfg.SMTP.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("configure smtp: %w", err)
	}
	return m, nil
}
