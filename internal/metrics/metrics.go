// Package metrics exposes Prometheus instrumentation for the HTTP surface and
// the auth and playlist flows.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "musicplayer_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "musicplayer_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)

	AuthEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "musicplayer_auth_events_total",
			Help: "Authentication events by type and outcome",
		},
		[]string{"event", "outcome"},
	)

	MembershipOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "musicplayer_playlist_membership_ops_total",
			Help: "Playlist membership operations by type and outcome",
		},
		[]string{"op", "outcome"},
	)

	MailFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "musicplayer_mail_failures_total",
			Help: "Outbound emails that could not be delivered",
		},
	)

	PlaysRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "musicplayer_plays_recorded_total",
			Help: "Play history entries recorded",
		},
	)
)

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

func RecordAuthEvent(event string, err error) {
	AuthEvents.WithLabelValues(event, outcome(err)).Inc()
}

func RecordMembershipOp(op string, err error) {
	MembershipOps.WithLabelValues(op, outcome(err)).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request latency labelled by chi route pattern, so path
// ids do not explode label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		HTTPRequestsInFlight.Inc()
		defer HTTPRequestsInFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}
