package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment    string
	AppName        string
	Port           string
	LogLevel       slog.Level
	SQLitePath     string
	MigrationsPath string

	SitesPath  string
	SitesWatch bool

	StatusPollingEnabled bool
	StatusSchedule       string
	NotifyWebhookURL     string

	MaxConcurrentSearches   int
	DetailWorkers           int
	DetailRequestsPerSecond float64
	LimetorrentsCookie      string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Environment:             getEnv("APP_ENV", "development"),
		AppName:                 getEnv("APP_NAME", "torrent-api"),
		Port:                    getEnv("APP_PORT", "8009"),
		SQLitePath:              getEnv("SQLITE_PATH", "./data/app.sqlite"),
		MigrationsPath:          getEnv("MIGRATIONS_PATH", "./migrations"),
		SitesPath:               getEnv("SITES_PATH", ""),
		SitesWatch:              getEnvAsBool("SITES_WATCH", false),
		StatusPollingEnabled:    getEnvAsBool("STATUS_POLLING_ENABLED", true),
		StatusSchedule:          getEnv("STATUS_SCHEDULE", "@every 15m"),
		NotifyWebhookURL:        getEnv("NOTIFY_WEBHOOK_URL", ""),
		MaxConcurrentSearches:   getEnvAsInt("MAX_CONCURRENT_SEARCHES", 16),
		DetailWorkers:           getEnvAsInt("DETAIL_WORKERS", 10),
		DetailRequestsPerSecond: getEnvAsFloat("DETAIL_REQUESTS_PER_SECOND", 0),
		LimetorrentsCookie:      getEnv("LIMETORRENTS_COOKIE", ""),
	}

	if cfg.MaxConcurrentSearches <= 0 {
		cfg.MaxConcurrentSearches = 16
	}
	if cfg.DetailWorkers <= 0 {
		cfg.DetailWorkers = 10
	}
	if cfg.DetailRequestsPerSecond < 0 {
		cfg.DetailRequestsPerSecond = 0
	}
	if cfg.SitesWatch && cfg.SitesPath == "" {
		return Config{}, fmt.Errorf("SITES_WATCH requires SITES_PATH")
	}

	level, err := parseLogLevel(getEnv("LOG_LEVEL", "INFO"))
	if err != nil {
		return Config{}, err
	}
	cfg.LogLevel = level

	return cfg, nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "WARN":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q, expected DEBUG|INFO|WARN|ERROR", raw)
	}
}

func getEnv(key string, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvAsBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
