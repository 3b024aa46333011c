package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/iabetor/readaloud/internal/errs"
)

const namespace = "readaloud"

// Metrics 是编排器的 Prometheus 指标。nil *Metrics 的所有方法都是空操作。
type Metrics struct {
	invocations   *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	errorsTotal   *prometheus.CounterVec
}

// NewMetrics 创建指标并注册到 reg。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invocations_total",
				Help:      "Total number of read-aloud invocations by outcome",
			},
			[]string{"outcome"}, // outcome: success, archive_failed, aborted, rejected
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of each pipeline stage in seconds",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"stage"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of stage errors by origin",
			},
			[]string{"stage", "origin"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.invocations, m.stageDuration, m.errorsTotal)
	}
	return m
}

func (m *Metrics) observeStage(stage State, start time.Time) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage.String()).Observe(time.Since(start).Seconds())
}

func (m *Metrics) countError(stage State, err error) {
	if m == nil {
		return
	}
	m.errorsTotal.WithLabelValues(stage.String(), string(errs.OriginOf(err))).Inc()
}

func (m *Metrics) countOutcome(outcome string) {
	if m == nil {
		return
	}
	m.invocations.WithLabelValues(outcome).Inc()
}
