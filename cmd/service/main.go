package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"musicplayer/internal/api"
	"musicplayer/internal/catalog"
	"musicplayer/internal/config"
	"musicplayer/internal/events"
	"musicplayer/internal/history"
	"musicplayer/internal/identity"
	"musicplayer/internal/logging"
	"musicplayer/internal/mail"
	"musicplayer/internal/playlist"
	"musicplayer/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("load config")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logging.Fatal().Err(err).Msg("musicplayer stopped")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := store.AutoMigrate(ctx, pool); err != nil {
		return err
	}

	rdb, err := connectRedis(ctx, cfg.Redis.URL)
	if err != nil {
		return err
	}
	var revoker identity.Revoker = identity.NopRevoker{}
	if rdb != nil {
		defer rdb.Close()
		revoker = identity.NewRedisRevoker(rdb)
	} else {
		logging.Warn().Msg("REDIS_URL not set: events and token revocation disabled")
	}

	mailer, err := mail.New(cfg.Mail)
	if err != nil {
		return fmt.Errorf("mail: %w", err)
	}

	st := store.New(pool)
	pub := events.NewRedisPublisher(rdb)

	srv := api.NewServer(
		identity.NewService(st, mailer, revoker, identity.Options{
			JWTSecret:                cfg.Auth.JWTSecret,
			AccessTTL:                cfg.Auth.AccessTokenTTL,
			RefreshTTL:               cfg.Auth.RefreshTokenTTL,
			PasswordResetTTL:         cfg.Auth.PasswordResetTTL,
			EmailVerificationTTL:     cfg.Auth.EmailVerificationTTL,
			RequireEmailVerification: cfg.Auth.RequireEmailVerification,
			FrontendBaseURL:          cfg.Server.FrontendBaseURL,
		}),
		catalog.NewService(st, pub, cfg.Auth.AllowAnonymousSongRead),
		playlist.NewService(st, pub),
		history.NewService(st, pub),
		api.Options{
			CORSOrigins:    cfg.Security.CORSOrigins,
			LoginRateLimit: cfg.Security.LoginRateLimit,
			ResetRateLimit: cfg.Security.ResetRateLimit,
		},
	)

	httpSrv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", httpSrv.Addr).Msg("musicplayer listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// connectRedis returns nil when url is empty. A configured but unreachable
// server is a startup error.
func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}
