package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/op-quiz-backend/internal/config"
	"github.com/DoyleJ11/op-quiz-backend/internal/httpapi"
	"github.com/DoyleJ11/op-quiz-backend/internal/opening"
	"github.com/DoyleJ11/op-quiz-backend/internal/player"
	"github.com/DoyleJ11/op-quiz-backend/internal/reaper"
	"github.com/DoyleJ11/op-quiz-backend/internal/room"
	"github.com/DoyleJ11/op-quiz-backend/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development() {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	return zc.Build()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeRepo(); err != nil {
			logger.Warn("closing player storage", zap.Error(err))
		}
	}()

	// ROOM_PASSWORD_HASH must come from player.HashPassword (bcrypt over the
	// SHA-256 hex of the trimmed password)
	var dirOpts []player.Option
	switch {
	case cfg.RoomPasswordHash != "":
		dirOpts = append(dirOpts, player.WithPasswordHash([]byte(cfg.RoomPasswordHash)))
	case cfg.RoomPassword != "":
		hash, err := player.HashPassword(cfg.RoomPassword)
		if err != nil {
			return fmt.Errorf("hash room password: %w", err)
		}
		dirOpts = append(dirOpts, player.WithPasswordHash(hash))
	}

	// the actors outlive the signal so in-flight requests can drain; Close stops them
	rm := room.New(context.WithoutCancel(ctx), room.Options{
		Directory: player.NewDirectory(repo, dirOpts...),
		Openings:  openingSource(ctx, cfg, logger),
		Rand:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		Logger:    logger.Named("room"),
		OpTimeout: cfg.OpeningFetchTimeout + 5*time.Second,
	})
	defer rm.Close()

	rp := reaper.New(context.WithoutCancel(ctx), rm, reaper.Options{
		Idle:   cfg.IdleTimeout,
		Tick:   cfg.ReaperTick,
		Logger: logger.Named("reaper"),
	})
	defer rp.Close()

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           httpapi.SetupRoutes(rm, rp, logger.Named("http")),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", srv.Addr),
			zap.String("storage", cfg.StorageDriver),
			zap.Bool("password", cfg.RoomPassword != "" || cfg.RoomPasswordHash != ""),
			zap.Duration("idle_timeout", cfg.IdleTimeout),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (player.Repository, func() error, error) {
	noop := func() error { return nil }
	switch cfg.StorageDriver {
	case config.DriverMemory:
		return storage.NewMemory(), noop, nil
	case config.DriverPostgres:
		pg, err := storage.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		return pg, pg.Close, nil
	case config.DriverRedis:
		rd, err := storage.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open redis: %w", err)
		}
		return rd, rd.Close, nil
	default:
		return storage.NewCSV(cfg.PlayersScoreCSV).WithLogger(logger.Named("storage")), noop, nil
	}
}

func openingSource(ctx context.Context, cfg *config.Config, logger *zap.Logger) opening.Source {
	static := opening.NewStatic()
	if !cfg.PlaylistEnabled() {
		logger.Info("no playlist configured, using built-in openings")
		return static
	}
	playlist := opening.NewPlaylist(opening.PlaylistConfig{
		PlaylistID: cfg.YouTubePlaylistID,
		APIKey:     cfg.YouTubeAPIKey,
		CachePath:  cfg.YouTubeCacheCSV,
		Timeout:    cfg.OpeningFetchTimeout,
		RetryAfter: cfg.OpeningRetryAfter,
	}, logger.Named("playlist"))

	// load before the first round so the room loop does not wait on the API
	go func() {
		if _, err := playlist.All(ctx); err != nil {
			logger.Warn("playlist not ready, built-in openings will be served", zap.Error(err))
		}
	}()
	return opening.NewFallback(playlist, static, logger.Named("openings"))
}
