package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Submission outcomes.
const (
	OutcomeAccepted  = "accepted"
	OutcomeInvalid   = "invalid"
	OutcomeNotFound  = "not_found"
	OutcomeTransient = "transient"
	OutcomeIntegrity = "integrity"
)

type Metrics struct {
	Submissions     *prometheus.CounterVec
	GradingDuration prometheus.Histogram
	ScorePercentage prometheus.Histogram

	RequestCounter  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers the portal collectors on reg. A *prometheus.Registry is also
// used as the /metrics gatherer; otherwise the default gatherer is served.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		Submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "examportal_submissions_total",
				Help: "Test submissions by outcome",
			},
			[]string{"outcome"},
		),
		GradingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "examportal_grading_duration_seconds",
			Help:    "Time spent scoring one answer sheet",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		ScorePercentage: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "examportal_score_percentage",
			Help:    "Distribution of accepted submission percentages",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
		gatherer: prometheus.DefaultGatherer,
	}
	reg.MustRegister(m.Submissions, m.GradingDuration, m.ScorePercentage, m.RequestCounter, m.RequestDuration)
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// ObserveSubmission is nil-safe so services can run without metrics.
func (m *Metrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveGrading(d time.Duration, percentage float64) {
	if m == nil {
		return
	}
	m.GradingDuration.Observe(d.Seconds())
	m.ScorePercentage.Observe(percentage)
}

// Middleware records request counts and latency labelled by the chi route
// pattern, so /api/result/details/{resultID} is one series.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				endpoint = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.RequestCounter.WithLabelValues(r.Method, endpoint, strconv.Itoa(status)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
