package bserve

import (
	"net/http"
	"strconv"

	"github.com/advdv/bkoa"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records request metrics of an application in Prometheus.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
	statuses ErrorStatuses
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer, statuses ErrorStatuses) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bkoa",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Number of finished requests.",
		}, []string{"method", "status", "error"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bkoa",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Time from the start of a request until its response finished.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bkoa",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of requests that have not finished yet.",
		}),
		statuses: statuses,
	}

	for _, c := range []prometheus.Collector{m.requests, m.duration, m.inFlight} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "register metrics")
		}
	}

	return m, nil
}

// Instrument subscribes m to the request events of app.
func (m *Metrics) Instrument(app *bkoa.Application) {
	trackStart(app)

	app.OnRequest(func(*bkoa.Context) { m.inFlight.Inc() })
	app.OnResponse(func(c *bkoa.Context) {
		m.inFlight.Dec()

		status := c.Status()
		m.requests.WithLabelValues(c.Method(), strconv.Itoa(status), strconv.FormatBool(m.statuses.Matches(status))).Inc()
		m.duration.WithLabelValues(c.Method()).Observe(elapsed(c).Seconds())
	})
}

// ServeMetrics exposes the metrics gathered by g on path.
func ServeMetrics(path string, g prometheus.Gatherer) bkoa.Middleware {
	return Route(http.MethodGet, path, promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}
