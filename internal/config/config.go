// internal/config/config.go
//
// Environment-driven configuration shared by the server and the terminal host.
// A .env file in the working directory is loaded first (development convenience);
// real environment variables always win.

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	DBPath    string
	LogLevel  string
	LogPretty bool

	Production     bool
	ClientOrigin   string
	JWTSecret      string
	JWTExpiresDays int
	CookieName     string

	// Game hosting
	BoardSize       int
	MismatchDelay   time.Duration
	PreviewDuration time.Duration
	PreviewStagger  time.Duration
	SessionTTL      time.Duration

	// Rate limiting (disabled when RedisAddr is empty)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RateLimit     int
	RateWindow    time.Duration

	PaletteFile     string
	PaletteOverflow string
}

// Load reads configuration from the environment, applying defaults.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:      getEnv("PORT", "5175"),
		DBPath:    getEnv("DB_PATH", "./data/app.db"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: os.Getenv("LOG_PRETTY") == "true",

		Production:     os.Getenv("APP_ENV") == "production",
		ClientOrigin:   getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		JWTSecret:      getEnv("JWT_SECRET", "dev_secret_change_me"),
		JWTExpiresDays: envInt("JWT_EXPIRES_DAYS", 14),
		CookieName:     getEnv("COOKIE_NAME", "memory_token"),

		BoardSize:       envInt("BOARD_SIZE", 4),
		MismatchDelay:   envMillis("MISMATCH_DELAY_MS", 300),
		PreviewDuration: envMillis("PREVIEW_MS", 3000),
		PreviewStagger:  envMillis("PREVIEW_STAGGER_MS", 100),
		SessionTTL:      time.Duration(envInt("SESSION_TTL_MIN", 60)) * time.Minute,

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),
		RateLimit:     envInt("RATE_LIMIT", 30),
		RateWindow:    time.Duration(envInt("RATE_WINDOW_SEC", 60)) * time.Second,

		PaletteFile:     os.Getenv("PALETTE_FILE"),
		PaletteOverflow: getEnv("PALETTE_OVERFLOW", "repeat"),
	}
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// envInt parses k as a non-negative int, falling back to def.
func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func envMillis(k string, def int) time.Duration {
	return time.Duration(envInt(k, def)) * time.Millisecond
}
