package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Delta kinds reported by replication.
const (
	KindNew       = "new"
	KindModified  = "modified"
	KindDestroyed = "destroyed"
)

// Message forms reported by replication.
const (
	FormFull        = "full"
	FormIncremental = "incremental"
)

// WorldCollector bundles the Prometheus metrics of one simulation instance.
// Every method is safe on a nil receiver so that callers can run without
// metrics.
type WorldCollector struct {
	gatherer prometheus.Gatherer

	Ticks        prometheus.Counter
	TickDuration prometheus.Histogram
	SystemErrors *prometheus.CounterVec
	Entities     prometheus.Gauge
	EntityDeltas *prometheus.CounterVec
	Messages     *prometheus.CounterVec
	MessageBytes prometheus.Histogram
	InboxBacklog prometheus.Gauge
}

// NewWorldCollector registers world metrics against reg, defaulting to the
// global registry when reg is nil.
func NewWorldCollector(reg prometheus.Registerer) (*WorldCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &WorldCollector{
		gatherer: gatherer,
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "world_ticks_total",
			Help: "Total number of simulation ticks executed.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "world_tick_duration_seconds",
			Help:    "Time spent running every eligible system in one tick.",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.02, 0.05, 0.1},
		}),
		SystemErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "world_system_errors_total",
			Help: "Fatal errors raised by systems, labeled by system name.",
		}, []string{"system"}),
		Entities: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "world_entities",
			Help: "Number of live entities after the last tick.",
		}),
		EntityDeltas: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "replication_entity_deltas_total",
			Help: "Entity deltas produced or applied, labeled by kind.",
		}, []string{"kind"}),
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "replication_messages_total",
			Help: "World delta messages encoded or decoded, labeled by form.",
		}, []string{"form"}),
		MessageBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "replication_message_bytes",
			Help:    "Encoded size of world delta messages.",
			Buckets: prometheus.ExponentialBuckets(64, 2, 12),
		}),
		InboxBacklog: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "replication_inbox_backlog",
			Help: "Inbound messages drained in the last tick.",
		}),
	}

	collectors := []prometheus.Collector{
		c.Ticks, c.TickDuration, c.SystemErrors, c.Entities,
		c.EntityDeltas, c.Messages, c.MessageBytes, c.InboxBacklog,
	}
	for _, col := range collectors {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("register world metrics: %w", err)
		}
	}
	return c, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *WorldCollector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func (c *WorldCollector) ObserveTick(d time.Duration, entities int) {
	if c == nil {
		return
	}
	c.Ticks.Inc()
	c.TickDuration.Observe(d.Seconds())
	c.Entities.Set(float64(entities))
}

func (c *WorldCollector) SystemFailed(system string) {
	if c == nil {
		return
	}
	c.SystemErrors.WithLabelValues(system).Inc()
}

// CountDeltas adds per-kind entity delta counts.
func (c *WorldCollector) CountDeltas(created, modified, destroyed int) {
	if c == nil {
		return
	}
	c.EntityDeltas.WithLabelValues(KindNew).Add(float64(created))
	c.EntityDeltas.WithLabelValues(KindModified).Add(float64(modified))
	c.EntityDeltas.WithLabelValues(KindDestroyed).Add(float64(destroyed))
}

func (c *WorldCollector) ObserveMessage(full bool, size int) {
	if c == nil {
		return
	}
	form := FormIncremental
	if full {
		form = FormFull
	}
	c.Messages.WithLabelValues(form).Inc()
	c.MessageBytes.Observe(float64(size))
}

func (c *WorldCollector) SetInboxBacklog(n int) {
	if c == nil {
		return
	}
	c.InboxBacklog.Set(float64(n))
}
