// Package metrics exposes Prometheus instrumentation for the storewatch monitor.
//
// All metrics live on a private registry so that embedding applications do not
// see storewatch series on their default registry. Every method on [Metrics] is
// safe to call on a nil receiver, which lets tests and SDK users run without
// instrumentation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storewatch"

// Tick results recorded by [Metrics.ObserveTick].
const (
	ResultUp       = "up"
	ResultDown     = "down"
	ResultPanic    = "panic"
	ResultCanceled = "canceled"
)

// Reasons recorded by [Metrics.IncNotificationDropped].
const (
	DropQueueFull = "queue_full"
	DropShutdown  = "shutdown"
)

// Metrics holds the collectors for the monitor, the broadcaster and the
// notification sinks.
type Metrics struct {
	registry *prometheus.Registry

	ticks         *prometheus.CounterVec
	probeDuration prometheus.Histogram
	available     prometheus.Gauge
	notifications *prometheus.CounterVec
	suppressed    prometheus.Counter
	notifyErrors  prometheus.Counter
	subscribers   prometheus.Gauge
	dropped       prometheus.Counter
	broadcasts    prometheus.Counter
	eventsDropped prometheus.Counter
	notifyDropped *prometheus.CounterVec
}

// New creates a [Metrics] with its own registry. Go runtime and process
// collectors are registered alongside the storewatch series.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_ticks_total",
			Help:      "Probe ticks by classified result.",
		}, []string{"result"}),
		probeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "probe_duration_seconds",
			Help:      "Time spent in a single connectivity check.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		available: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_available",
			Help:      "1 if the last probe succeeded, 0 otherwise.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Transition events emitted by kind.",
		}, []string{"kind"}),
		suppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_suppressed_total",
			Help:      "Failure ticks that fell inside the debounce window.",
		}),
		notifyErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifier_errors_total",
			Help:      "Notification sink deliveries that returned an error.",
		}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscribers",
			Help:      "Currently registered live subscribers.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscribers_dropped_total",
			Help:      "Subscribers removed after a failed delivery.",
		}),
		broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Status broadcasts pushed to the status topic.",
		}),
		eventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Transition events discarded because the event consumer was behind.",
		}),
		notifyDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_dropped_total",
			Help:      "Events not delivered to a notification sink, by reason.",
		}, []string{"reason"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ticks,
		m.probeDuration,
		m.available,
		m.notifications,
		m.suppressed,
		m.notifyErrors,
		m.subscribers,
		m.dropped,
		m.broadcasts,
		m.eventsDropped,
		m.notifyDropped,
	)
	m.available.Set(1) // optimistic start

	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an HTTP handler serving the registry in the Prometheus
// exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveTick records a probe outcome and its duration.
func (m *Metrics) ObserveTick(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.ticks.WithLabelValues(result).Inc()
	m.probeDuration.Observe(d.Seconds())
}

// SetAvailable mirrors the latest classification.
func (m *Metrics) SetAvailable(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.available.Set(1)
		return
	}
	m.available.Set(0)
}

// IncNotification counts an emitted transition event.
func (m *Metrics) IncNotification(kind string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind).Inc()
}

// IncSuppressed counts a failure tick swallowed by the debounce window.
func (m *Metrics) IncSuppressed() {
	if m == nil {
		return
	}
	m.suppressed.Inc()
}

// IncNotifierError counts a failed sink delivery.
func (m *Metrics) IncNotifierError() {
	if m == nil {
		return
	}
	m.notifyErrors.Inc()
}

// SetSubscribers records the current registry size.
func (m *Metrics) SetSubscribers(n int) {
	if m == nil {
		return
	}
	m.subscribers.Set(float64(n))
}

// IncDropped counts a subscriber removed after a failed delivery.
func (m *Metrics) IncDropped() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}

// IncBroadcast counts a status broadcast.
func (m *Metrics) IncBroadcast() {
	if m == nil {
		return
	}
	m.broadcasts.Inc()
}

// IncEventDropped counts a transition event the poll loop could not hand off.
func (m *Metrics) IncEventDropped() {
	if m == nil {
		return
	}
	m.eventsDropped.Inc()
}

// IncNotificationDropped counts an event a sink never received.
func (m *Metrics) IncNotificationDropped(reason string) {
	if m == nil {
		return
	}
	m.notifyDropped.WithLabelValues(reason).Inc()
}
