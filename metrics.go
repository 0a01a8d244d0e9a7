package wampc

import (
	"github.com/prometheus/client_golang/prometheus"

	"gitlab.com/silenteer-oss/wampc/session"
)

// Metrics tracks live session counters the way the teacher's
// monitoring.go tracked in-flight NATS message counts, but exposed as
// real Prometheus collectors instead of a polled memstats snapshot.
type Metrics struct {
	PendingCalls         prometheus.Gauge
	PendingRegistrations prometheus.Gauge
	PendingSubscriptions prometheus.Gauge
	LiveRegistrations    prometheus.Gauge
	LiveSubscriptions    prometheus.Gauge
	MessagesSent         prometheus.Counter
	MessagesReceived     prometheus.Counter
	MessagesDropped      prometheus.Counter
}

// NewMetrics builds a Metrics set scoped by session id (or any other
// distinguishing label) and registers it against reg. Passing a fresh
// prometheus.NewRegistry() per session avoids collisions when more
// than one session runs in the same process; passing
// prometheus.DefaultRegisterer is fine for a single-session process.
func NewMetrics(reg prometheus.Registerer, labels prometheus.Labels) *Metrics {
	factory := metricFactory{reg: reg, labels: labels}
	m := &Metrics{
		PendingCalls:         factory.gauge("wampc_pending_calls", "Number of CALLs awaiting a reply."),
		PendingRegistrations: factory.gauge("wampc_pending_registrations", "Number of REGISTERs awaiting a reply."),
		PendingSubscriptions: factory.gauge("wampc_pending_subscriptions", "Number of SUBSCRIBEs awaiting a reply."),
		LiveRegistrations:    factory.gauge("wampc_live_registrations", "Number of active registrations."),
		LiveSubscriptions:    factory.gauge("wampc_live_subscriptions", "Number of active subscriptions."),
		MessagesSent:         factory.counter("wampc_messages_sent_total", "Total WAMP messages sent."),
		MessagesReceived:     factory.counter("wampc_messages_received_total", "Total WAMP messages received."),
		MessagesDropped:      factory.counter("wampc_messages_dropped_total", "Total inbound frames logged and dropped."),
	}
	return m
}

// MessageSent, MessageReceived and MessageDropped implement
// session.MetricsSink, so a *Metrics can be handed straight to
// session.Config.Metrics.
func (m *Metrics) MessageSent()     { m.MessagesSent.Inc() }
func (m *Metrics) MessageReceived() { m.MessagesReceived.Inc() }
func (m *Metrics) MessageDropped()  { m.MessagesDropped.Inc() }

// ReportStats pushes a session.Stats snapshot onto the gauges.
func (m *Metrics) ReportStats(stats session.Stats) {
	m.PendingCalls.Set(float64(stats.PendingCalls))
	m.PendingRegistrations.Set(float64(stats.PendingRegistrations))
	m.PendingSubscriptions.Set(float64(stats.PendingSubscriptions))
	m.LiveRegistrations.Set(float64(stats.LiveRegistrations))
	m.LiveSubscriptions.Set(float64(stats.LiveSubscriptions))
}

// metricFactory is a minimal local stand-in for promauto that also
// attaches constant labels, mirroring how the teacher tagged
// Monitoring values with hostname/subject.
type metricFactory struct {
	reg    prometheus.Registerer
	labels prometheus.Labels
}

func (f metricFactory) gauge(name, help string) prometheus.Gauge {
	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help, ConstLabels: f.labels})
	if f.reg != nil {
		_ = f.reg.Register(g)
	}
	return g
}

func (f metricFactory) counter(name, help string) prometheus.Counter {
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help, ConstLabels: f.labels})
	if f.reg != nil {
		_ = f.reg.Register(c)
	}
	return c
}
