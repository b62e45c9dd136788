// Package metrics exposes Prometheus collectors for the bot.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zombor/ledger-bot/internal/scanning"
)

// Metrics holds the bot's collectors.
type Metrics struct {
	Messages           *prometheus.CounterVec
	Commits            *prometheus.CounterVec
	CommitFailures     prometheus.Counter
	RecognitionPasses  *prometheus.CounterVec
	RecognitionLatency prometheus.Histogram
	ActiveSessions     prometheus.GaugeFunc
}

// New creates the collectors under namespace and registers them with reg.
// activeSessions is sampled on every scrape.
func New(namespace string, reg prometheus.Registerer, activeSessions func() int) (*Metrics, error) {
	m := &Metrics{
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: prometheus.BuildFQName(namespace, "messages", "total"),
			Help: "Inbound chat messages by shape",
		}, []string{"shape"}),
		Commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: prometheus.BuildFQName(namespace, "transactions", "committed_total"),
			Help: "Transactions persisted, by how the draft was started",
		}, []string{"provenance"}),
		CommitFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prometheus.BuildFQName(namespace, "transactions", "failed_total"),
			Help: "Transactions the store refused",
		}),
		RecognitionPasses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: prometheus.BuildFQName(namespace, "recognition", "passes_total"),
			Help: "Text recognition passes by variant and outcome",
		}, []string{"variant", "outcome"}),
		RecognitionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    prometheus.BuildFQName(namespace, "recognition", "sweep_seconds"),
			Help:    "Wall time of a full recognition sweep",
			Buckets: []float64{0.5, 1, 2, 4, 8, 16, 32},
		}),
		ActiveSessions: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: prometheus.BuildFQName(namespace, "sessions", "active"),
			Help: "Conversations waiting for input",
		}, func() float64 { return float64(activeSessions()) }),
	}

	for _, c := range []prometheus.Collector{
		m.Messages, m.Commits, m.CommitFailures,
		m.RecognitionPasses, m.RecognitionLatency, m.ActiveSessions,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering collector: %w", err)
		}
	}
	return m, nil
}

// ObservePass implements scanning.Observer.
func (m *Metrics) ObservePass(pass scanning.Pass, outcome string) {
	m.RecognitionPasses.WithLabelValues(string(pass.Variant), outcome).Inc()
}

// ObserveSweep implements scanning.Observer.
func (m *Metrics) ObserveSweep(d time.Duration) {
	m.RecognitionLatency.Observe(d.Seconds())
}

// MessageReceived counts one inbound message.
func (m *Metrics) MessageReceived(shape string) {
	m.Messages.WithLabelValues(shape).Inc()
}

// Committed counts one persisted transaction.
func (m *Metrics) Committed(provenance string) {
	m.Commits.WithLabelValues(provenance).Inc()
}

// CommitFailed counts one refused transaction.
func (m *Metrics) CommitFailed() {
	m.CommitFailures.Inc()
}

var _ scanning.Observer = (*Metrics)(nil)
