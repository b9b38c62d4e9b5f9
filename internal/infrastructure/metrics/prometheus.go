// Package metrics exposes engine state in the Prometheus text format.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/marmoleria/backend/internal/domain/shared"
	"github.com/marmoleria/backend/internal/domain/stock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "marmoleria"

// StockSnapshotter is satisfied by *stock.Ledger
type StockSnapshotter interface {
	Snapshot() []stock.SourceBalance
}

// OutboxCounter is satisfied by the outbox repository
type OutboxCounter interface {
	CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error)
}

// Registry owns the collectors served on /metrics
type Registry struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge
	logger          *zap.Logger
}

// NewRegistry creates a registry with runtime collectors and HTTP instruments
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "HTTP requests currently being served.",
		}),
		logger: logger,
	}
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.requestsTotal,
		r.requestDuration,
		r.inFlight,
	)
	return r
}

// Register adds extra collectors
func (r *Registry) Register(cs ...prometheus.Collector) error {
	for _, c := range cs {
		if err := r.registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Gatherer exposes the underlying registry for tests and custom handlers
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler serves the registry
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		ErrorLog: zap.NewStdLog(r.logger),
	})
}

// GinMiddleware records request count and latency. Routes are labelled by
// their template so path parameters do not explode cardinality.
func (r *Registry) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		r.inFlight.Inc()
		defer r.inFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		r.requestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		r.requestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// stockCollector reads the ledger at scrape time
type stockCollector struct {
	ledger    StockSnapshotter
	quantity  *prometheus.Desc
	available *prometheus.Desc
}

// NewStockCollector reports held quantity per source and product, and the
// allocatable total per product
func NewStockCollector(ledger StockSnapshotter) prometheus.Collector {
	return &stockCollector{
		ledger: ledger,
		quantity: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "stock", "held_quantity"),
			"Quantity held per source and product, including non-eligible containers.",
			[]string{"source_type", "source_id", "reference", "eligible"}, nil,
		),
		available: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "stock", "available_quantity"),
			"Quantity available for reservation per product.",
			[]string{"reference"}, nil,
		),
	}
}

func (c *stockCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.quantity
	ch <- c.available
}

func (c *stockCollector) Collect(ch chan<- prometheus.Metric) {
	available := make(map[string]float64)
	for _, b := range c.ledger.Snapshot() {
		eligible := strconv.FormatBool(b.Eligible)
		for ref, qty := range b.Holdings {
			v := qty.InexactFloat64()
			ch <- prometheus.MustNewConstMetric(c.quantity, prometheus.GaugeValue, v,
				string(b.Key.Type), b.Key.ID, ref, eligible)
			if b.Eligible {
				available[ref] += v
			}
		}
	}
	for ref, v := range available {
		ch <- prometheus.MustNewConstMetric(c.available, prometheus.GaugeValue, v, ref)
	}
}

// outboxCollector reports outbox entries per status
type outboxCollector struct {
	repo    OutboxCounter
	timeout time.Duration
	logger  *zap.Logger
	entries *prometheus.Desc
}

// NewOutboxCollector reports the outbox backlog. A failed count is logged and
// the series is omitted from that scrape.
func NewOutboxCollector(repo OutboxCounter, logger *zap.Logger) prometheus.Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &outboxCollector{
		repo:    repo,
		timeout: 2 * time.Second,
		logger:  logger,
		entries: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "outbox", "entries"),
			"Outbox entries per status.",
			[]string{"status"}, nil,
		),
	}
}

func (c *outboxCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.entries
}

func (c *outboxCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	counts, err := c.repo.CountByStatus(ctx)
	if err != nil {
		c.logger.Warn("Failed to count outbox entries", zap.Error(err))
		return
	}
	for _, status := range []shared.OutboxStatus{
		shared.OutboxStatusPending,
		shared.OutboxStatusProcessing,
		shared.OutboxStatusSent,
		shared.OutboxStatusFailed,
		shared.OutboxStatusDead,
	} {
		ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(counts[status]), string(status))
	}
}
