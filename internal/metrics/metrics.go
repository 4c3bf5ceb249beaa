// Package metrics exposes Prometheus collectors for hosted games.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	GamesStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memory_games_started_total",
			Help: "Games started, by board size",
		},
		[]string{"size"},
	)
	GamesFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memory_games_finished_total",
			Help: "Games that reached a terminal status, by outcome",
		},
		[]string{"outcome"},
	)
	Selections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memory_selections_total",
			Help: "Cell selections, by result kind",
		},
		[]string{"result"},
	)
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "memory_active_sessions",
			Help: "Sessions currently held in memory",
		},
	)
)

func init() {
	prometheus.MustRegister(GamesStarted)
	prometheus.MustRegister(GamesFinished)
	prometheus.MustRegister(Selections)
	prometheus.MustRegister(ActiveSessions)
}

// GameStarted counts a new game of the given size.
func GameStarted(size int) {
	GamesStarted.WithLabelValues(strconv.Itoa(size)).Inc()
	ActiveSessions.Inc()
}

// GameFinished counts a terminal outcome ("won"/"lost").
func GameFinished(outcome string) {
	GamesFinished.WithLabelValues(outcome).Inc()
}

// SessionClosed drops a session from the active gauge.
func SessionClosed() {
	ActiveSessions.Dec()
}

// Selected counts a selection result ("revealed", "matched", ...).
func Selected(result string) {
	Selections.WithLabelValues(result).Inc()
}

// Handler serves the default registry in Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
