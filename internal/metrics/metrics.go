package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Analysis outcomes.
const (
	OutcomeCompleted  = "completed"
	OutcomeSuperseded = "superseded"
	OutcomeFailed     = "failed"
)

// Recorder collects server metrics in its own registry. All methods are
// no-ops on a nil *Recorder.
type Recorder struct {
	reg *prometheus.Registry

	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	analysesTotal    *prometheus.CounterVec
	analysisDuration prometheus.Histogram
	reusedItems      prometheus.Counter
	diagnostics      prometheus.Counter
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		reg: reg,
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "xpl_lsp_requests_total",
			Help: "Requests handled by method and outcome",
		}, []string{"method", "outcome"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "xpl_lsp_request_duration_seconds",
			Help:    "Request handling latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		}, []string{"method"}),
		analysesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "xpl_analyses_total",
			Help: "Document analyses by outcome",
		}, []string{"outcome"}),
		analysisDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "xpl_analysis_duration_seconds",
			Help:    "Analysis plus diagnostics latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		reusedItems: factory.NewCounter(prometheus.CounterOpts{
			Name: "xpl_analysis_reused_items_total",
			Help: "Top-level items reused by incremental parsing",
		}),
		diagnostics: factory.NewCounter(prometheus.CounterOpts{
			Name: "xpl_diagnostics_published_total",
			Help: "Diagnostics sent to the client",
		}),
	}
}

func (r *Recorder) Request(method, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.requestsTotal.WithLabelValues(method, outcome).Inc()
	r.requestDuration.WithLabelValues(method).Observe(d.Seconds())
}

func (r *Recorder) Analysis(outcome string, d time.Duration, reused int) {
	if r == nil {
		return
	}
	r.analysesTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeCompleted {
		r.analysisDuration.Observe(d.Seconds())
		r.reusedItems.Add(float64(reused))
	}
}

func (r *Recorder) Published(n int) {
	if r == nil {
		return
	}
	r.diagnostics.Add(float64(n))
}

// Handler exposes the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
