package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
)

const (
	DriverCSV      = "csv"
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

type Config struct {
	Host string
	Port int

	RoomPassword     string
	RoomPasswordHash string
	IdleTimeout      time.Duration
	ReaperTick       time.Duration

	StorageDriver   string
	PlayersScoreCSV string
	DatabaseURL     string
	RedisURL        string

	YouTubePlaylistID   string
	YouTubeAPIKey       string
	YouTubeCacheCSV     string
	OpeningFetchTimeout time.Duration
	OpeningRetryAfter   time.Duration

	LogLevel zapcore.Level
	AppEnv   string
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *Config) Development() bool { return c.AppEnv == "development" }

// PlaylistEnabled reports whether both YouTube settings are present.
func (c *Config) PlaylistEnabled() bool {
	return c.YouTubePlaylistID != "" && c.YouTubeAPIKey != ""
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (*Config, error) {
	var errs []error
	intVar := func(key string, def int) int {
		raw := getEnv(key, "")
		if raw == "" {
			return def
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %q is not a number", key, raw))
			return def
		}
		return n
	}
	durationVar := func(key string, def time.Duration) time.Duration {
		raw := getEnv(key, "")
		if raw == "" {
			return def
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %q is not a duration", key, raw))
			return def
		}
		return d
	}

	cfg := &Config{
		Host:                getEnv("HOST", "0.0.0.0"),
		Port:                intVar("PORT", 8787),
		RoomPassword:        strings.TrimSpace(os.Getenv("ROOM_PASSWORD")),
		RoomPasswordHash:    strings.TrimSpace(os.Getenv("ROOM_PASSWORD_HASH")),
		IdleTimeout:         time.Duration(intVar("ROOM_IDLE_MINUTES", 20)) * time.Minute,
		ReaperTick:          durationVar("REAPER_TICK", time.Minute),
		StorageDriver:       strings.ToLower(getEnv("STORAGE_DRIVER", DriverCSV)),
		PlayersScoreCSV:     getEnv("PLAYERS_SCORE_CSV", "data/players-score.csv"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		RedisURL:            os.Getenv("REDIS_URL"),
		YouTubePlaylistID:   os.Getenv("YOUTUBE_PLAYLIST_ID"),
		YouTubeAPIKey:       os.Getenv("YOUTUBE_API_KEY"),
		YouTubeCacheCSV:     getEnv("YOUTUBE_CACHE_CSV", "data/openings.csv"),
		OpeningFetchTimeout: durationVar("OPENING_FETCH_TIMEOUT", 10*time.Second),
		OpeningRetryAfter:   durationVar("OPENING_RETRY_AFTER", time.Minute),
		AppEnv:              getEnv("APP_ENV", "production"),
	}

	level, err := zapcore.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	cfg.LogLevel = level

	errs = append(errs, cfg.validate()...)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func (c *Config) validate() []error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT: %d out of range", c.Port))
	}
	if c.IdleTimeout <= 0 {
		errs = append(errs, errors.New("ROOM_IDLE_MINUTES: must be positive"))
	}
	if c.ReaperTick <= 0 {
		errs = append(errs, errors.New("REAPER_TICK: must be positive"))
	}
	if c.OpeningFetchTimeout <= 0 {
		errs = append(errs, errors.New("OPENING_FETCH_TIMEOUT: must be positive"))
	}
	if c.OpeningRetryAfter <= 0 {
		errs = append(errs, errors.New("OPENING_RETRY_AFTER: must be positive"))
	}
	switch c.StorageDriver {
	case DriverCSV, DriverMemory:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL: required for the postgres driver"))
		}
	case DriverRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL: required for the redis driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER: unknown driver %q", c.StorageDriver))
	}
	return errs
}

func getEnv(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}
