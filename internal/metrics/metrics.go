// Package metrics exposes workspace and persistence activity as Prometheus
// collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bizdesk"

// Recorder implements application.Observer and persistence.WriteObserver.
type Recorder struct {
	registry *prometheus.Registry

	mutations     *prometheus.CounterVec
	historyMoves  *prometheus.CounterVec
	userSwitches  *prometheus.CounterVec
	writes        *prometheus.CounterVec
	writeDuration prometheus.Histogram
	failedBacklog prometheus.Gauge
	requests      *prometheus.CounterVec
}

// NewRecorder registers every collector on a private registry together with
// the Go runtime and process collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_mutations_total",
			Help:      "Applied store mutations by operation.",
		}, []string{"operation"}),
		historyMoves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_history_moves_total",
			Help:      "Undo and redo operations.",
		}, []string{"direction"}),
		userSwitches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_user_switches_total",
			Help:      "Workspace reloads by whether stored data was restored.",
		}, []string{"restored"}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_writes_total",
			Help:      "Background snapshot writes by result.",
		}, []string{"result"}),
		writeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "persistence_write_duration_seconds",
			Help:      "Latency of background snapshot writes.",
			Buckets:   prometheus.DefBuckets,
		}),
		failedBacklog: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "persistence_failed_keys",
			Help:      "Snapshots waiting for a retry after a failed write.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
	}
	r.registry.MustRegister(
		r.mutations,
		r.historyMoves,
		r.userSwitches,
		r.writes,
		r.writeDuration,
		r.failedBacklog,
		r.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry returns the registry backing the recorder.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) MutationApplied(operation string) {
	r.mutations.WithLabelValues(operation).Inc()
}

func (r *Recorder) HistoryMoved(direction string) {
	r.historyMoves.WithLabelValues(direction).Inc()
}

func (r *Recorder) UserSwitched(restored bool) {
	r.userSwitches.WithLabelValues(strconv.FormatBool(restored)).Inc()
}

func (r *Recorder) WriteSucceeded(duration time.Duration) {
	r.writes.WithLabelValues("ok").Inc()
	r.writeDuration.Observe(duration.Seconds())
}

func (r *Recorder) WriteFailed(duration time.Duration) {
	r.writes.WithLabelValues("error").Inc()
	r.writeDuration.Observe(duration.Seconds())
}

func (r *Recorder) FailedBacklog(keys int) {
	r.failedBacklog.Set(float64(keys))
}

// RequestServed counts one HTTP response.
func (r *Recorder) RequestServed(method string, status int) {
	r.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}
