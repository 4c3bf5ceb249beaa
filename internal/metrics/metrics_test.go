package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(GamesStarted.WithLabelValues("6"))
	active := testutil.ToFloat64(ActiveSessions)

	GameStarted(6)
	if got := testutil.ToFloat64(GamesStarted.WithLabelValues("6")); got != before+1 {
		t.Errorf("started{6} = %v; want %v", got, before+1)
	}
	if got := testutil.ToFloat64(ActiveSessions); got != active+1 {
		t.Errorf("active = %v; want %v", got, active+1)
	}
	SessionClosed()
	if got := testutil.ToFloat64(ActiveSessions); got != active {
		t.Errorf("active after close = %v; want %v", got, active)
	}

	GameFinished("won")
	Selected("matched")
	if testutil.ToFloat64(GamesFinished.WithLabelValues("won")) < 1 {
		t.Error("finished{won} not counted")
	}
	if testutil.ToFloat64(Selections.WithLabelValues("matched")) < 1 {
		t.Error("selections{matched} not counted")
	}
}

func TestHandlerServesCollectors(t *testing.T) {
	GameStarted(4)
	defer SessionClosed()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "memory_games_started_total") {
		t.Error("metrics output missing memory_games_started_total")
	}
}
