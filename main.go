package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory/internal/config"
	"github.com/robalobadob/memory/internal/httpserver"
	"github.com/robalobadob/memory/internal/metrics"
	"github.com/robalobadob/memory/internal/palette"
	"github.com/robalobadob/memory/internal/session"
	"github.com/robalobadob/memory/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg)

	if err := palette.Init(cfg.PaletteFile, cfg.PaletteOverflow); err != nil {
		log.Fatal().Err(err).Msg("failed to load palette")
	}

	db, err := openDB(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	defer db.Close()
	if err := migrate(context.Background(), db); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	limiter := httpserver.NewRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RateLimit, cfg.RateWindow)
	defer limiter.Close()

	mem := store.NewMemoryStore(store.OnDrop(func(*session.Session) { metrics.SessionClosed() }))
	srv := httpserver.New(cfg, mem, db, httpserver.WithRateLimiter(limiter))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go sweep(ctx, mem, cfg.SessionTTL)

	httpSrv := &http.Server{Addr: ":" + cfg.Port, Handler: srv.Router()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("port", cfg.Port).Bool("rateLimit", limiter != nil).Msg("starting memory server")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

func setupLogging(cfg *config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && cfg.LogLevel != "" {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// sweep drops sessions idle for longer than ttl.
func sweep(ctx context.Context, st store.Store, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := st.Sweep(ctx, now.Add(-ttl))
			if err != nil {
				log.Warn().Err(err).Msg("sweep sessions")
				continue
			}
			if n > 0 {
				log.Info().Int("sessions", n).Msg("swept idle sessions")
			}
		}
	}
}
