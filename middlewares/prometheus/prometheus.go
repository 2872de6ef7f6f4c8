// Package prometheus instruments fiber routes and serves the registry.
package prometheus

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.opentelemetry.io/otel/trace"
)

type FiberPrometheus struct {
	registry        *prometheus.Registry
	constLabels     prometheus.Labels
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight *prometheus.GaugeVec
	metricsPath     string
}

// New creates a registry with process and Go collectors and the HTTP
// request metrics labelled with serviceName.
func New(serviceName string) *FiberPrometheus {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	constLabels := prometheus.Labels{"service": serviceName}

	p := &FiberPrometheus{
		registry:    registry,
		constLabels: constLabels,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Count all http requests by status code, method and path.",
			ConstLabels: constLabels,
		}, []string{"status_code", "method", "path"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "Duration of all HTTP requests by status code, method and path.",
			ConstLabels: constLabels,
			Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"status_code", "method", "path"}),
		requestInFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "http_requests_in_progress_total",
			Help:        "All the requests in progress",
			ConstLabels: constLabels,
		}, []string{"method"}),
	}

	registry.MustRegister(p.requestsTotal, p.requestDuration, p.requestInFlight)
	return p
}

func (p *FiberPrometheus) GetRegistry() *prometheus.Registry { return p.registry }

func (p *FiberPrometheus) GetConstLabels() prometheus.Labels { return p.constLabels }

// RegisterAt serves the registry at url.
func (p *FiberPrometheus) RegisterAt(app fiber.Router, url string, handlers ...fiber.Handler) {
	p.metricsPath = url

	handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{}))
	handlers = append(handlers, func(c *fiber.Ctx) error {
		handler(c.Context())
		return nil
	})

	app.Get(url, handlers...)
}

// Middleware records count, latency and in-flight requests. Requests to the
// metrics endpoint itself are not recorded.
func (p *FiberPrometheus) Middleware(c *fiber.Ctx) error {
	if c.Path() == p.metricsPath {
		return c.Next()
	}

	start := time.Now()
	method := c.Method()

	p.requestInFlight.WithLabelValues(method).Inc()
	defer p.requestInFlight.WithLabelValues(method).Dec()

	err := c.Next()

	status := fiber.StatusInternalServerError
	if err != nil {
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}
	} else {
		status = c.Response().StatusCode()
	}

	// use the route pattern to keep path cardinality bounded
	path := c.Route().Path
	statusCode := strconv.Itoa(status)

	p.requestsTotal.WithLabelValues(statusCode, method, path).Inc()

	elapsed := time.Since(start).Seconds()
	observer := p.requestDuration.WithLabelValues(statusCode, method, path)
	if spanCtx := trace.SpanContextFromContext(c.UserContext()); spanCtx.HasTraceID() {
		if exemplar, ok := observer.(prometheus.ExemplarObserver); ok {
			exemplar.ObserveWithExemplar(elapsed, prometheus.Labels{"traceID": spanCtx.TraceID().String()})
			return err
		}
	}
	observer.Observe(elapsed)

	return err
}
