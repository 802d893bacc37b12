package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "checklists"

// Recorder publishes service counters to a Prometheus registry.
type Recorder struct {
	registry *prometheus.Registry

	executionsRecorded *prometheus.CounterVec
	executionsRejected *prometheus.CounterVec
	dueEvaluations     *prometheus.CounterVec
	pendingChecklists  *prometheus.GaugeVec
	httpRequests       *prometheus.CounterVec
}

// NewRecorder registers the collectors on a fresh registry together with the
// Go runtime and process collectors.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		executionsRecorded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executions",
			Name:      "recorded_total",
			Help:      "Executions appended to the log, by checklist periodicity.",
		}, []string{"periodicity"}),
		executionsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executions",
			Name:      "rejected_total",
			Help:      "Execution submissions refused, by error kind.",
		}, []string{"reason"}),
		dueEvaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "agenda",
			Name:      "due_evaluations_total",
			Help:      "Due evaluations, by outcome reason.",
		}, []string{"reason"}),
		pendingChecklists: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "agenda",
			Name:      "pending_checklists",
			Help:      "Checklists pending per technician at the last evaluation.",
		}, []string{"user_id"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served, by method and status code.",
		}, []string{"method", "code"}),
	}
}

func (r *Recorder) ExecutionRecorded(periodicity string) {
	r.executionsRecorded.WithLabelValues(periodicity).Inc()
}

func (r *Recorder) ExecutionRejected(reason string) {
	r.executionsRejected.WithLabelValues(reason).Inc()
}

func (r *Recorder) DueEvaluated(reason string) {
	r.dueEvaluations.WithLabelValues(reason).Inc()
}

func (r *Recorder) PendingChecklists(userID string, pending int) {
	r.pendingChecklists.WithLabelValues(userID).Set(float64(pending))
}

// InstrumentHandler counts the requests served by next.
func (r *Recorder) InstrumentHandler(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerCounter(r.httpRequests, next)
}

// Handler exposes the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
