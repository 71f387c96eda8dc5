// Package metrics exposes duel progress as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dayanaadylkhanova/pow-duel/internal/duel"
	"github.com/dayanaadylkhanova/pow-duel/internal/service"
)

// Collector implements duel.Observer on its own registry so several
// collectors can live in one process (and in tests).
type Collector struct {
	reg *prometheus.Registry

	challengesSent *prometheus.CounterVec
	solveSeconds   *prometheus.HistogramVec
	reviews        *prometheus.CounterVec
	duels          *prometheus.CounterVec
	lastDifficulty prometheus.Gauge
}

var _ duel.Observer = (*Collector)(nil)

func New() *Collector {
	c := &Collector{
		reg: prometheus.NewRegistry(),
		challengesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "duel_challenges_sent_total",
			Help: "Challenges sent to the opponent",
		}, []string{"solver"}),
		solveSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "duel_solve_duration_seconds",
			Help:    "Time spent solving received challenges",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"solver", "difficulty"}),
		reviews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "duel_reviews_total",
			Help: "Opponent replies reviewed, by verdict",
		}, []string{"solver", "verdict"}),
		duels: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "duel_finished_total",
			Help: "Finished duels, by outcome",
		}, []string{"outcome"}),
		lastDifficulty: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "duel_last_sent_difficulty",
			Help: "Difficulty of the most recent challenge sent",
		}),
	}
	c.reg.MustRegister(
		c.challengesSent,
		c.solveSeconds,
		c.reviews,
		c.duels,
		c.lastDifficulty,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) ChallengeSent(name string, difficulty uint32) {
	c.challengesSent.WithLabelValues(name).Inc()
	c.lastDifficulty.Set(float64(difficulty))
}

func (c *Collector) ChallengeSolved(name string, difficulty uint32, took time.Duration) {
	c.solveSeconds.WithLabelValues(name, strconv.FormatUint(uint64(difficulty), 10)).Observe(took.Seconds())
}

func (c *Collector) ReplyReviewed(name string, err error) {
	c.reviews.WithLabelValues(name, verdict(err)).Inc()
}

func (c *Collector) Finished(outcome duel.Outcome, err error) {
	label := outcome.String()
	if err != nil {
		label = "aborted"
	}
	c.duels.WithLabelValues(label).Inc()
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{Registry: c.reg})
}

func verdict(err error) string {
	switch {
	case err == nil:
		return "valid"
	case errors.Is(err, service.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, service.ErrComputationFailed):
		return "rejected"
	default:
		return "error"
	}
}

// Serve exposes /metrics on ln until ctx is done.
func (c *Collector) Serve(ctx context.Context, ln net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	})
	defer stop()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve metrics: %w", err)
	}
	return nil
}
