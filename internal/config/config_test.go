package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "BOARD_SIZE", "MISMATCH_DELAY_MS", "PREVIEW_MS", "PREVIEW_STAGGER_MS", "REDIS_ADDR", "APP_ENV"} {
		t.Setenv(k, "")
	}
	cfg := Load()

	if cfg.Port != "5175" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.BoardSize != 4 {
		t.Errorf("BoardSize = %d", cfg.BoardSize)
	}
	if cfg.MismatchDelay != 300*time.Millisecond {
		t.Errorf("MismatchDelay = %v", cfg.MismatchDelay)
	}
	if cfg.PreviewDuration != 3*time.Second || cfg.PreviewStagger != 100*time.Millisecond {
		t.Errorf("preview = %v / %v", cfg.PreviewDuration, cfg.PreviewStagger)
	}
	if cfg.Production || cfg.RedisAddr != "" {
		t.Errorf("unexpected production=%v redis=%q", cfg.Production, cfg.RedisAddr)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BOARD_SIZE", "6")
	t.Setenv("MISMATCH_DELAY_MS", "0")
	t.Setenv("RATE_WINDOW_SEC", "5")
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_EXPIRES_DAYS", "nope")

	cfg := Load()
	if cfg.BoardSize != 6 {
		t.Errorf("BoardSize = %d", cfg.BoardSize)
	}
	if cfg.MismatchDelay != 0 {
		t.Errorf("MismatchDelay = %v", cfg.MismatchDelay)
	}
	if cfg.RateWindow != 5*time.Second {
		t.Errorf("RateWindow = %v", cfg.RateWindow)
	}
	if !cfg.Production {
		t.Error("Production = false")
	}
	if cfg.JWTExpiresDays != 14 {
		t.Errorf("JWTExpiresDays = %d; invalid value should fall back", cfg.JWTExpiresDays)
	}
}
