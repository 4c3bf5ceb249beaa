// internal/httpserver/routes_leaderboard.go
//
// GET /leaderboard?size=N&limit=M → fastest won games on N×N boards.
// Defaults: size = configured board size, limit = 20 (max 100).

package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory/internal/results"
)

// lbRes is returned by /leaderboard.
type lbRes struct {
	Size int             `json:"size"`
	Top  []results.LBRow `json:"top"`
}

func (s *Server) mountLeaderboard(r chi.Router) {
	r.Get("/leaderboard", s.handleLeaderboard)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	size := s.cfg.BoardSize
	if v := r.URL.Query().Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 2 || n%2 != 0 {
			http.Error(w, `{"error":"invalid_size"}`, http.StatusBadRequest)
			return
		}
		size = n
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	rows, err := s.results.Leaderboard(r.Context(), size, limit)
	if err != nil {
		log.Error().Err(err).Int("size", size).Msg("leaderboard")
		http.Error(w, `{"error":"server error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(lbRes{Size: size, Top: rows})
}
