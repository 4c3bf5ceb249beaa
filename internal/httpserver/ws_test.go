package httpserver

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func readType(t *testing.T, conn *websocket.Conn, want string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %q: %v", want, err)
		}
		if msg["type"] == want {
			return msg
		}
	}
}

func TestWebsocketPlay(t *testing.T) {
	cfg := testConfig()
	cfg.MismatchDelay = 20 * time.Millisecond
	ts := newTestServer(t, cfg)
	c := newClient(t)
	id := newGame(t, c, ts.URL)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/game/" + id + "/ws"
	conn, res, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if res.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("status = %d", res.StatusCode)
	}

	state := readType(t, conn, "state")
	if state["gameId"] != id || state["status"] != "playing" {
		t.Fatalf("state = %v", state)
	}

	_ = conn.WriteJSON(wsInbound{Type: "select", Row: 0, Col: 0})
	_ = conn.WriteJSON(wsInbound{Type: "select", Row: 2, Col: 0})
	mis := readType(t, conn, "mismatched")
	if cells, _ := mis["cells"].([]any); len(cells) != 2 {
		t.Errorf("mismatched cells = %v", mis["cells"])
	}
	// The server resolves on its own after the mismatch delay.
	readType(t, conn, "concealed")

	_ = conn.WriteJSON(wsInbound{Type: "resolve"})
	if e := readType(t, conn, "error"); e["error"] != "no_pending_resolution" {
		t.Errorf("resolve error = %v", e)
	}

	_ = conn.WriteJSON(wsInbound{Type: "select", Row: 0, Col: 0})
	_ = conn.WriteJSON(wsInbound{Type: "select", Row: 1, Col: 0})
	if m := readType(t, conn, "matched"); m["mistakes"] != float64(1) {
		t.Errorf("matched = %v", m)
	}
}

func TestWebsocketUnknownGame(t *testing.T) {
	ts := newTestServer(t, testConfig())
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/game/missing/ws"
	_, res, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("dial succeeded for unknown game")
	}
	if res == nil || res.StatusCode != http.StatusNotFound {
		t.Fatalf("response = %v", res)
	}
}
