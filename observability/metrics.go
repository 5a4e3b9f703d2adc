// Package observability provides metrics and health checks for the CaseDesk server
package observability

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yshengliao/casedesk/nav"
)

// Collector bundles the Prometheus metrics exported by the server. It
// implements nav.Observer.
type Collector struct {
	gatherer prometheus.Gatherer

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec

	Sessions         prometheus.Gauge
	SessionMessages  *prometheus.CounterVec
	Navigations      *prometheus.CounterVec
	NavigationRender prometheus.Histogram
}

var _ nav.Observer = (*Collector)(nil)

// NewCollector registers the metrics against reg, defaulting to the global
// registry when nil. Registering twice against the same registry reuses the
// existing collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	requests, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of handled HTTP requests, labeled by method, route, and status code.",
	}, []string{"method", "route", "code"}))
	if err != nil {
		return nil, err
	}
	durations, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"}))
	if err != nil {
		return nil, err
	}
	sessions, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "page_sessions",
		Help: "Current number of connected page sessions.",
	}))
	if err != nil {
		return nil, err
	}
	messages, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "page_session_messages_total",
		Help: "Websocket messages exchanged with page sessions, labeled by direction and type.",
	}, []string{"direction", "type"}))
	if err != nil {
		return nil, err
	}
	navigations, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "navigations_total",
		Help: "Navigations resolved by page routers, labeled by outcome and mount status.",
	}, []string{"outcome", "mount"}))
	if err != nil {
		return nil, err
	}
	render, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "navigation_render_seconds",
		Help:    "Time from navigation start to mount decision in seconds.",
		Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}))
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:         gatherer,
		HTTPRequests:     requests,
		HTTPDurations:    durations,
		Sessions:         sessions,
		SessionMessages:  messages,
		Navigations:      navigations,
		NavigationRender: render,
	}, nil
}

// ObserveNavigation records one navigation result.
func (c *Collector) ObserveNavigation(res nav.Result, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.Navigations.WithLabelValues(res.Outcome.String(), res.Mount.String()).Inc()
	c.NavigationRender.Observe(elapsed.Seconds())
}

// SessionOpened increments the connected session gauge.
func (c *Collector) SessionOpened() {
	if c != nil {
		c.Sessions.Inc()
	}
}

// SessionClosed decrements the connected session gauge.
func (c *Collector) SessionClosed() {
	if c != nil {
		c.Sessions.Dec()
	}
}

// SessionMessage counts a websocket message. direction is "in" or "out".
func (c *Collector) SessionMessage(direction, msgType string) {
	if c != nil {
		c.SessionMessages.WithLabelValues(direction, msgType).Inc()
	}
}

// Middleware records request counts and durations. Routes are labeled by
// their registered path to keep label cardinality bounded.
func (c *Collector) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)
			if c == nil {
				return err
			}

			status := ctx.Response().Status
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}
			route := ctx.Path()
			if route == "" {
				route = "unmatched"
			}
			method := ctx.Request().Method
			c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			c.HTTPDurations.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler exposes the collector's gatherer in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil || c.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

func register[T prometheus.Collector](reg prometheus.Registerer, col T) (T, error) {
	if err := reg.Register(col); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		var zero T
		return zero, err
	}
	return col, nil
}
