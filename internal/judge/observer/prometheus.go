package observer

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "codejudge"

var (
	// 1ms -> 20s
	timeBuckets = []float64{
		0.001, 0.005, 0.010, 0.025, 0.050, 0.1, 0.2, 0.4, 0.8,
		1.0, 1.5, 2, 3, 5, 10, 20,
	}

	// 1m (1<<10 KiB) -> 2g
	memoryBuckets = prometheus.ExponentialBuckets(1<<10, 2, 12)
)

// Prometheus records into its own registry so tests can build many.
type Prometheus struct {
	registry *prometheus.Registry

	compileTotal *prometheus.CounterVec
	compileTime  *prometheus.HistogramVec
	runTime      *prometheus.HistogramVec
	runMemory    *prometheus.HistogramVec
	verdicts     *prometheus.CounterVec
	loopErrors   *prometheus.CounterVec
}

// NewPrometheus registers the judge collectors plus the Go runtime ones.
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		compileTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "compile_total",
			Help:      "Number of compile stages by language and status",
		}, []string{"language", "status"}),
		compileTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "compile_time_seconds",
			Help:      "Histogram for the compile wall time",
			Buckets:   timeBuckets,
		}, []string{"language"}),
		runTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "run_time_seconds",
			Help:      "Histogram for the per test case CPU time",
			Buckets:   timeBuckets,
		}, []string{"language", "status"}),
		runMemory: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "run_memory_kilobytes",
			Help:      "Histogram for the per test case peak memory",
			Buckets:   memoryBuckets,
		}, []string{"language", "status"}),
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "verdict_total",
			Help:      "Number of finished jobs by mode and status",
		}, []string{"mode", "status"}),
		loopErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "loop_error_total",
			Help:      "Number of failed loop iterations",
		}, []string{"loop"}),
	}
	p.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.compileTotal, p.compileTime,
		p.runTime, p.runMemory,
		p.verdicts, p.loopErrors,
	)
	return p
}

func (p *Prometheus) ObserveCompile(_ context.Context, language string, status string, seconds float64) {
	p.compileTotal.WithLabelValues(language, status).Inc()
	p.compileTime.WithLabelValues(language).Observe(seconds)
}

func (p *Prometheus) ObserveRun(_ context.Context, language string, status string, seconds float64, memoryKB int64) {
	p.runTime.WithLabelValues(language, status).Observe(seconds)
	p.runMemory.WithLabelValues(language, status).Observe(float64(memoryKB))
}

func (p *Prometheus) ObserveVerdict(_ context.Context, mode string, status string) {
	p.verdicts.WithLabelValues(mode, status).Inc()
}

func (p *Prometheus) ObserveLoopError(_ context.Context, loop string) {
	p.loopErrors.WithLabelValues(loop).Inc()
}

// Gatherer exposes the registry, mostly for tests.
func (p *Prometheus) Gatherer() prometheus.Gatherer {
	return p.registry
}

// Handler serves the registry in the exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
