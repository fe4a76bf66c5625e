package metrics

import (
	"errors"
	"net/http"

	"github.com/liliang-cn/policychat/internal/domain"
	"github.com/liliang-cn/policychat/internal/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "policychat"

// Recorder exposes session activity as Prometheus metrics
type Recorder struct {
	registry   *prometheus.Registry
	rounds     *prometheus.CounterVec
	rejections *prometheus.CounterVec
	duration   prometheus.Histogram
	awaiting   prometheus.Gauge
	turns      prometheus.Gauge
}

// NewRecorder creates a recorder with its own registry
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		rounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_total",
			Help:      "Settled question rounds by outcome.",
		}, []string{"outcome"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_submissions_total",
			Help:      "Submissions rejected before reaching the backend.",
		}, []string{"reason"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "round_duration_seconds",
			Help:      "Time from question append to settlement.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		}),
		awaiting: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "awaiting_response",
			Help:      "1 while a round is outstanding.",
		}),
		turns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "transcript_turns",
			Help:      "Turns in the current transcript, seed greeting included.",
		}),
	}
	r.registry.MustRegister(r.rounds, r.rejections, r.duration, r.awaiting, r.turns)
	return r
}

// Observe is a session.Listener
func (r *Recorder) Observe(ev session.Event) {
	r.turns.Set(float64(ev.TranscriptLen))
	if ev.Awaiting {
		r.awaiting.Set(1)
	} else {
		r.awaiting.Set(0)
	}

	switch ev.Type {
	case session.EventRoundAnswered:
		r.rounds.WithLabelValues(string(session.OutcomeAnswered)).Inc()
		r.duration.Observe(ev.Duration.Seconds())
	case session.EventRoundFailed:
		r.rounds.WithLabelValues(string(session.OutcomeFailed)).Inc()
		r.duration.Observe(ev.Duration.Seconds())
	}
}

// Discarded counts a response that arrived after a reset
func (r *Recorder) Discarded() {
	r.rounds.WithLabelValues(string(session.OutcomeDiscarded)).Inc()
}

// Rejected counts a submission refused before any state change
func (r *Recorder) Rejected(err error) {
	r.rejections.WithLabelValues(rejectReason(err)).Inc()
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyInput):
		return "empty_input"
	case errors.Is(err, domain.ErrInputTooLong):
		return "too_long"
	case errors.Is(err, domain.ErrBusy):
		return "busy"
	default:
		return "other"
	}
}

// Registry returns the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the metrics in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
