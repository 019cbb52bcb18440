package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tessera"

// Metrics holds the Prometheus collectors fed by runner events and store middleware.
type Metrics struct {
	PipeDuration  *prometheus.HistogramVec
	PipeErrors    *prometheus.CounterVec
	Items         *prometheus.CounterVec
	Checkpoints   *prometheus.CounterVec
	StateRuns     *prometheus.CounterVec
	StoreDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg, unless reg is nil.
// Collectors already registered by an earlier call are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		PipeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipe_duration_seconds",
			Help:      "Duration of pipe executions.",
			Buckets:   []float64{.01, .05, .1, .5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"state"}),
		PipeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipe_errors_total",
			Help:      "Total number of failed pipe executions.",
		}, []string{"state"}),
		Items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "Total number of items handled, by outcome.",
		}, []string{"state", "result"}),
		Checkpoints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoints_total",
			Help:      "Total number of checkpoints written.",
		}, []string{"state"}),
		StateRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_runs_total",
			Help:      "Total number of state runs, by outcome.",
		}, []string{"state", "result"}),
		StoreDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checkpoint_store_duration_seconds",
			Help:      "Duration of checkpoint store operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "result"}),
	}

	if reg == nil {
		return m, nil
	}

	var err error
	if m.PipeDuration, err = register(reg, m.PipeDuration); err != nil {
		return nil, err
	}
	if m.PipeErrors, err = register(reg, m.PipeErrors); err != nil {
		return nil, err
	}
	if m.Items, err = register(reg, m.Items); err != nil {
		return nil, err
	}
	if m.Checkpoints, err = register(reg, m.Checkpoints); err != nil {
		return nil, err
	}
	if m.StateRuns, err = register(reg, m.StateRuns); err != nil {
		return nil, err
	}
	if m.StoreDuration, err = register(reg, m.StoreDuration); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	return c, fmt.Errorf("failed to register metrics: %w", err)
}

// Hooks returns lifecycle hooks recording runner events.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateLeave: func(_ context.Context, e *domain.StateEvent) {
			m.StateRuns.WithLabelValues(string(e.State), result(e.Err)).Inc()
		},
		OnPipe: func(_ context.Context, e *domain.PipeEvent) {
			m.PipeDuration.WithLabelValues(string(e.State)).Observe(e.Duration.Seconds())
			if e.Err != nil {
				m.PipeErrors.WithLabelValues(string(e.State)).Inc()
			}
		},
		OnItem: func(_ context.Context, e *domain.ItemEvent) {
			outcome := "ok"
			switch {
			case e.Err != nil:
				outcome = "error"
			case e.Skipped:
				outcome = "skipped"
			}
			m.Items.WithLabelValues(string(e.State), outcome).Inc()
		},
		OnCheckpoint: func(_ context.Context, e *domain.CheckpointEvent) {
			m.Checkpoints.WithLabelValues(string(e.State)).Inc()
		},
	}
}

// ObserveStore records one checkpoint store operation.
func (m *Metrics) ObserveStore(op string, d time.Duration, err error) {
	m.StoreDuration.WithLabelValues(op, result(err)).Observe(d.Seconds())
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Handler serves the metrics gathered by g in the Prometheus exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
