// internal/httpserver/ws.go
//
// GET /game/{id}/ws: live play over a websocket.
//   - On connect the server sends {"type":"state", ...snapshot}.
//   - Client → server: {"type":"select","row":r,"col":c} or {"type":"resolve"}.
//   - Server → client: session events (revealed, matched, mismatched, concealed, won, lost),
//     {"type":"result", ...} acks for selections and {"type":"error","error":code} on failures.
//   - The connection closes when the session is swept or deleted.

package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory/internal/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second
	maxMessage = 1024
)

type wsInbound struct {
	Type string `json:"type"`
	Row  int    `json:"row"`
	Col  int    `json:"col"`
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || origin == s.cfg.ClientOrigin
		},
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade")
		return
	}

	events, cancel := sess.Subscribe()
	replies := make(chan any, 8)
	done := make(chan struct{})

	go wsWritePump(conn, events, replies, done)
	replies <- struct {
		Type string `json:"type"`
		session.Snapshot
	}{"state", sess.Snapshot()}

	wsReadPump(conn, sess, replies)
	cancel()
	close(done)
}

// wsReadPump handles client messages until the connection drops.
func wsReadPump(conn *websocket.Conn, sess *session.Session, replies chan<- any) {
	conn.SetReadLimit(maxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg wsInbound
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("gameId", sess.ID).Msg("ws read")
			}
			return
		}

		var reply any
		switch msg.Type {
		case "select":
			res, err := sess.Select(msg.Row, msg.Col)
			if err != nil {
				reply = wsError(err)
				break
			}
			reply = struct {
				Type string `json:"type"`
				selectRes
			}{"result", resultPayload(res)}
		case "resolve":
			if _, err := sess.Resolve(); err != nil {
				reply = wsError(err)
			}
		default:
			reply = map[string]string{"type": "error", "error": "unknown_type"}
		}
		if reply != nil {
			select {
			case replies <- reply:
			default:
			}
		}
	}
}

// wsWritePump is the only writer on conn.
func wsWritePump(conn *websocket.Conn, events <-chan session.Event, replies <-chan any, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	write := func(v any) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(v) == nil
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			if !write(ev) {
				return
			}
		case v := <-replies:
			if !write(v) {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func wsError(err error) map[string]string {
	_, code := errorCode(err)
	return map[string]string{"type": "error", "error": code}
}
