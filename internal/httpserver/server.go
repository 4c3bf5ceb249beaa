// internal/httpserver/server.go
//
// HTTP server wiring for the memory game backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs, access log).
//   - Public endpoints: "/", "/health", "/metrics".
//   - Game endpoints (optional auth): new, preview, select, resolve, state, websocket.
//   - Leaderboard (public) and auth/profile endpoints (see auth.go).
//   - Recording game history: a row at creation, completed when the session reports a terminal status.
//
// Notes:
//   - Live sessions stay in the store; only outcomes reach the database.
//   - CORS is origin-aware and credentials-enabled (so cookies work).

package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory/internal/config"
	"github.com/robalobadob/memory/internal/game"
	"github.com/robalobadob/memory/internal/metrics"
	"github.com/robalobadob/memory/internal/palette"
	"github.com/robalobadob/memory/internal/results"
	"github.com/robalobadob/memory/internal/session"
	"github.com/robalobadob/memory/internal/store"
)

// Server bundles router, live session store, and DB handle.
type Server struct {
	r       *chi.Mux
	cfg     *config.Config
	store   store.Store
	db      *sql.DB
	results *results.Store
	limiter *RateLimiter

	sessionOpts []session.Option
}

// Option customises a Server.
type Option func(*Server)

// WithRateLimiter limits POST /game/new. A nil limiter disables limiting.
func WithRateLimiter(l *RateLimiter) Option { return func(s *Server) { s.limiter = l } }

// WithSessionOptions appends options to every session the server creates.
func WithSessionOptions(opts ...session.Option) Option {
	return func(s *Server) { s.sessionOpts = append(s.sessionOpts, opts...) }
}

// New constructs a Server, installs middleware, and registers routes.
func New(cfg *config.Config, st store.Store, db *sql.DB, opts ...Option) *Server {
	s := &Server{r: chi.NewRouter(), cfg: cfg, store: st, db: db, results: results.NewStore(db)}
	for _, o := range opts {
		o(s)
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(accessLog)
	s.r.Use(chimw.Recoverer)
	s.r.Use(jsonContentType)
	s.r.Use(s.cors)

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"service":"memory-go","endpoints":["/health","POST /game/new","POST /game/select","POST /game/resolve","/leaderboard","/auth/*"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	s.r.Handle("/metrics", metrics.Handler())

	// Websocket connections outlive any request timeout, so they sit outside that group.
	s.r.With(s.withOptionalAuth()).Get("/game/{id}/ws", s.handleWS)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second))
		r.Use(s.withOptionalAuth())

		r.With(s.limiter.Limit("game_new")).Post("/game/new", s.handleNewGame)
		r.Post("/game/select", s.handleSelect)
		r.Post("/game/resolve", s.handleResolve)
		r.Get("/game/{id}", s.handleState)
		r.Get("/game/{id}/preview", s.handlePreview)
		s.mountLeaderboard(r)
	})

	s.mountAuthRoutes()

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	return s
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the configured client origin.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", s.cfg.ClientOrigin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// accessLog writes one debug line per request.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("reqId", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("http")
	})
}

// ------------------------------ GAME ---------------------------------------

type newGameReq struct {
	Size int `json:"size"`
}

type newGameRes struct {
	GameID          string `json:"gameId"`
	Size            int    `json:"size"`
	PreviewMs       int64  `json:"previewMs"`
	StaggerMs       int64  `json:"staggerMs"`
	MismatchDelayMs int64  `json:"mismatchDelayMs"`
	MaxMistakes     int    `json:"maxMistakes"`

	// Colors[i] renders token i.
	Colors []palette.Color `json:"colors"`
}

func tokenColors(size int) []palette.Color {
	p := palette.Default()
	out := make([]palette.Color, size*size/2)
	for i := range out {
		out[i] = p.Color(game.Token(i))
	}
	return out
}

// handleNewGame creates a live session and writes its history row
// (owner is the signed-in user or the anonymous cookie).
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Size == 0 {
		req.Size = s.cfg.BoardSize
	}
	if req.Size > game.MaxSize {
		writeError(w, fmt.Errorf("%w: board size %d exceeds %d", game.ErrInvalidConfiguration, req.Size, game.MaxSize))
		return
	}

	owner := results.Game{Size: req.Size}
	if me := userFrom(r); me != nil {
		owner.UserID = me.ID
	} else {
		owner.AnonID = s.ensureAnonID(w, r)
	}

	opts := append([]session.Option{
		session.WithOwner(owner.UserID + owner.AnonID),
		session.OnSelect(func(res game.Result) { metrics.Selected(res.Kind.String()) }),
		session.OnFinish(s.recordFinish),
	}, s.sessionOpts...)
	sess, err := session.New(session.Config{
		MismatchDelay:   s.cfg.MismatchDelay,
		PreviewDuration: s.cfg.PreviewDuration,
		PreviewStagger:  s.cfg.PreviewStagger,
	}, req.Size, opts...)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.Save(r.Context(), sess); err != nil {
		sess.Close()
		log.Error().Err(err).Msg("save session")
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}
	metrics.GameStarted(req.Size)

	owner.ID = sess.ID
	owner.StartedAt = sess.CreatedAt
	if err := s.results.Start(r.Context(), owner); err != nil {
		log.Warn().Err(err).Str("gameId", sess.ID).Msg("insert game row")
	}
	log.Info().Str("gameId", sess.ID).Int("size", req.Size).Msg("game started")

	_ = json.NewEncoder(w).Encode(newGameRes{
		GameID:          sess.ID,
		Size:            req.Size,
		PreviewMs:       s.cfg.PreviewDuration.Milliseconds(),
		StaggerMs:       s.cfg.PreviewStagger.Milliseconds(),
		MismatchDelayMs: s.cfg.MismatchDelay.Milliseconds(),
		MaxMistakes:     game.MaxMistakes,
		Colors:          tokenColors(req.Size),
	})
}

// recordFinish runs on the session's goroutine (request or mismatch timer), so it
// cannot borrow a request context.
func (s *Server) recordFinish(sum session.Summary) {
	outcome := sum.Outcome.String()
	metrics.GameFinished(outcome)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.results.Finish(ctx, results.Outcome{
		ID:         sum.ID,
		Status:     outcome,
		Mistakes:   sum.Mistakes,
		Elapsed:    sum.Elapsed,
		FinishedAt: time.Now(),
	})
	ev := log.Info()
	if err != nil {
		ev = log.Warn().Err(err)
	}
	ev.Str("gameId", sum.ID).Str("outcome", outcome).Int("mistakes", sum.Mistakes).
		Dur("elapsed", sum.Elapsed).Msg("game finished")
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request, id string) (*session.Session, bool) {
	sess, err := s.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return sess, true
}

type selectReq struct {
	GameID string `json:"gameId"`
	Row    int    `json:"row"`
	Col    int    `json:"col"`
}

type selectRes struct {
	Result         string         `json:"result"`
	First          *game.CellView `json:"first,omitempty"`
	Second         *game.CellView `json:"second,omitempty"`
	Status         string         `json:"status"`
	Mistakes       int            `json:"mistakes"`
	ElapsedSeconds int64          `json:"elapsedSeconds,omitempty"`
}

func resultPayload(res game.Result) selectRes {
	out := selectRes{
		Result:   res.Kind.String(),
		Status:   res.Status.Kind.String(),
		Mistakes: res.Mistakes,
	}
	switch res.Kind {
	case game.ResultRevealed:
		f := game.ViewOf(res.First)
		out.First = &f
	case game.ResultMatched, game.ResultMismatched:
		f, sc := game.ViewOf(res.First), game.ViewOf(res.Second)
		out.First, out.Second = &f, &sc
	}
	if res.Status.Kind == game.StatusWon {
		out.ElapsedSeconds = res.Status.ElapsedSeconds()
	}
	return out
}

// handleSelect applies one pick.
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	sess, ok := s.lookup(w, r, req.GameID)
	if !ok {
		return
	}
	res, err := sess.Select(req.Row, req.Col)
	if err != nil {
		writeError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(resultPayload(res))
}

type resolveReq struct {
	GameID string `json:"gameId"`
}

// handleResolve conceals a pending mismatch for clients that run their own delay.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	sess, ok := s.lookup(w, r, req.GameID)
	if !ok {
		return
	}
	st, err := sess.Resolve()
	if err != nil {
		writeError(w, err)
		return
	}
	snap := sess.Snapshot()
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":   st.Kind.String(),
		"mistakes": snap.Mistakes,
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	_ = json.NewEncoder(w).Encode(sess.Snapshot())
}

// handlePreview returns the full layout while the opening reveal is running.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	p, err := sess.Preview()
	if err != nil {
		writeError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"steps":       p.Steps,
		"concealAtMs": p.ConcealAt.Milliseconds(),
	})
}
