package httpserver

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory/internal/game"
	"github.com/robalobadob/memory/internal/session"
	"github.com/robalobadob/memory/internal/store"
)

// errorCode maps domain errors onto an HTTP status and a stable error code.
func errorCode(err error) (int, string) {
	switch {
	case errors.Is(err, game.ErrInvalidConfiguration):
		return http.StatusBadRequest, "invalid_configuration"
	case errors.Is(err, game.ErrOutOfBounds):
		return http.StatusBadRequest, "out_of_bounds"
	case errors.Is(err, game.ErrGameAlreadyOver):
		return http.StatusConflict, "game_over"
	case errors.Is(err, game.ErrNoPendingResolution):
		return http.StatusConflict, "no_pending_resolution"
	case errors.Is(err, session.ErrPreviewActive):
		return http.StatusLocked, "preview_active"
	case errors.Is(err, session.ErrPreviewOver):
		return http.StatusConflict, "preview_over"
	case errors.Is(err, store.ErrNotFound), errors.Is(err, session.ErrClosed):
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusInternalServerError, "server_error"
	}
}

func writeError(w http.ResponseWriter, err error) {
	code, msg := errorCode(err)
	if code == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
	}
	http.Error(w, `{"error":"`+msg+`"}`, code)
}
