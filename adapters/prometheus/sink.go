// Package prometheus exports admitme activity as prometheus counters.
package prometheus

import (
	"context"
	"net/http"

	"github.com/admitme/admitme-server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "admitme"

// Sink counts activity events by type and reason.
type Sink struct {
	registry *prometheus.Registry
	events   *prometheus.CounterVec
	rejected *prometheus.CounterVec
}

var _ admitme.ActivitySink = (*Sink)(nil)

// NewSink registers the counters on a fresh registry that also carries the
// go and process collectors.
func NewSink() *Sink {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewSinkWithRegistry(reg)
}

// NewSinkWithRegistry registers the counters on reg.
func NewSinkWithRegistry(reg *prometheus.Registry) *Sink {
	s := &Sink{
		registry: reg,
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_events_total",
			Help:      "Authentication activity by event type.",
		}, []string{"event"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_rejections_total",
			Help:      "Rejected requests by gate and reason.",
		}, []string{"event", "reason"}),
	}
	reg.MustRegister(s.events, s.rejected)
	return s
}

// Record implements admitme.ActivitySink.
func (s *Sink) Record(_ context.Context, event admitme.ActivityEvent) error {
	s.events.WithLabelValues(string(event.EventType)).Inc()

	switch event.EventType {
	case admitme.ActivityEventSessionRejected,
		admitme.ActivityEventAccessDenied,
		admitme.ActivityEventStoreFailure:
		reason := event.Reason
		if reason == "" {
			reason = "unknown"
		}
		s.rejected.WithLabelValues(string(event.EventType), reason).Inc()
	}

	return nil
}

// Registry returns the registry the counters live on.
func (s *Sink) Registry() *prometheus.Registry {
	return s.registry
}

// Handler serves the registry in the prometheus exposition format.
func (s *Sink) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
