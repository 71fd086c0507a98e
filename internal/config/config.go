package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application.
// The values are loaded from environment variables.
type AppConfig struct {
	// Core settings
	HTTPPort string
	LogLevel string

	// Database settings
	DBConnStr string

	// Price feed settings
	FeedBaseURL        string
	FeedRequestsPerMin int

	// Ingestion settings
	MaxUploadSizeBytes int64

	// Asset registry seed file
	AssetSeedPath string

	// Cron cadences for the in-process job loop
	PriceInterval       time.Duration
	ValuationInterval   time.Duration
	LeaderboardInterval time.Duration
}

// Load reads configuration from environment variables, loading a .env
// file first when one is present.
func Load() *AppConfig {
	// Missing .env is fine; real environments set variables directly.
	_ = godotenv.Load()

	cfg := &AppConfig{
		HTTPPort:            getEnv("HTTP_PORT", "8080"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		DBConnStr:           os.Getenv("DB_CONN_STR"),
		FeedBaseURL:         getEnv("COINGECKO_BASE_URL", "https://api.coingecko.com/api/v3"),
		FeedRequestsPerMin:  getEnvInt("FEED_REQUESTS_PER_MIN", 30),
		MaxUploadSizeBytes:  int64(getEnvInt("MAX_UPLOAD_SIZE_BYTES", 10<<20)),
		AssetSeedPath:       getEnv("ASSET_SEED_PATH", "assets.yaml"),
		PriceInterval:       getEnvDuration("PRICE_INTERVAL", time.Hour),
		ValuationInterval:   getEnvDuration("VALUATION_INTERVAL", 15*time.Minute),
		LeaderboardInterval: getEnvDuration("LEADERBOARD_INTERVAL", 30*time.Minute),
	}

	if cfg.DBConnStr == "" {
		// Build the connection string from individual vars (Docker friendly)
		cfg.DBConnStr = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", "postgres"),
			getEnv("DB_NAME", "coinrank"),
			getEnv("DB_SSLMODE", "disable"),
		)
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
