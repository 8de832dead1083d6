// Package metrics provides Prometheus collectors for the RemoteLLM server.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	grpcprom "github.com/grpc-ecosystem/go-grpc-middleware/providers/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

// Metrics groups the gRPC server metrics with generation-level collectors.
type Metrics struct {
	Server *grpcprom.ServerMetrics

	prompts        prometheus.Counter
	generations    prometheus.Counter
	backendLatency *prometheus.HistogramVec
	fallbacks      prometheus.Counter
	tokens         *prometheus.CounterVec
	recordings     *prometheus.CounterVec
}

// New creates the collectors. Call Register to expose them.
func New() *Metrics {
	return &Metrics{
		Server: grpcprom.NewServerMetrics(
			grpcprom.WithServerHandlingTimeHistogram(grpcprom.WithHistogramBuckets(LLMBuckets)),
		),
		prompts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "remote_llm_prompts_total",
			Help: "Prompts received by Generate",
		}),
		generations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "remote_llm_generations_total",
			Help: "Generations returned by Generate",
		}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "remote_llm_backend_latency_seconds",
			Help:    "Backend generation latency",
			Buckets: LLMBuckets,
		}, []string{"path", "status"}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "remote_llm_blocking_fallbacks_total",
			Help: "Async generations that fell back to the blocking path",
		}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "remote_llm_tokens_total",
			Help: "Token count",
		}, []string{"direction"}),
		recordings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "remote_llm_recordings_total",
			Help: "Exchange recordings by outcome",
		}, []string{"status"}),
	}
}

// Register adds every collector to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.Server,
		m.prompts,
		m.generations,
		m.backendLatency,
		m.fallbacks,
		m.tokens,
		m.recordings,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// AddPrompts counts received prompts.
func (m *Metrics) AddPrompts(n int) {
	if m == nil {
		return
	}
	m.prompts.Add(float64(n))
}

// AddGenerations counts returned generations.
func (m *Metrics) AddGenerations(n int) {
	if m == nil {
		return
	}
	m.generations.Add(float64(n))
}

// ObserveBackend records one backend invocation on path ("async" or "blocking").
func (m *Metrics) ObserveBackend(path string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.backendLatency.WithLabelValues(path, statusLabel(err)).Observe(d.Seconds())
}

// IncFallback counts a fallback from the async to the blocking path.
func (m *Metrics) IncFallback() {
	if m == nil {
		return
	}
	m.fallbacks.Inc()
}

// AddTokens counts tokens in direction ("input" or "output").
func (m *Metrics) AddTokens(direction string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.tokens.WithLabelValues(direction).Add(float64(n))
}

// ObserveRecording counts one exchange recording attempt.
func (m *Metrics) ObserveRecording(err error) {
	if m == nil {
		return
	}
	m.recordings.WithLabelValues(statusLabel(err)).Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
