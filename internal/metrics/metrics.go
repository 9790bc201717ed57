// Package metrics wraps the Prometheus collectors exposed on the
// optional metrics listener (SPEC_FULL.md §6), grounded in
// go-server-3/internal/metrics.Registry and the CounterVec/GaugeVec
// style common across the pack's prometheus/client_golang usage.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/adred-codev/lastmile/internal/broker"
)

// Registry wraps every Prometheus collector the broker updates.
type Registry struct {
	ConnectionsActive  *prometheus.GaugeVec
	ConnectionsTotal   *prometheus.CounterVec
	ConnectionsRefused *prometheus.CounterVec
	EndpointsActive    prometheus.Gauge
	ChannelsTotal      prometheus.Gauge
	MessagesPublished  *prometheus.CounterVec
	MessagesDelivered  *prometheus.CounterVec
	SubscribersPruned  *prometheus.CounterVec
	RateLimitRejected  *prometheus.CounterVec
	CommandErrors      *prometheus.CounterVec
}

// NewRegistry builds a fresh set of collectors registered against the
// default Prometheus registerer.
func NewRegistry() *Registry {
	return &Registry{
		ConnectionsActive: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "lastmile_connections_active",
			Help: "Number of currently connected endpoints, by listener.",
		}, []string{"listener"}),
		ConnectionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lastmile_connections_total",
			Help: "Total connections accepted, by listener.",
		}, []string{"listener"}),
		ConnectionsRefused: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lastmile_connections_refused_total",
			Help: "Total connections refused at admission, by listener and reason.",
		}, []string{"listener", "reason"}),
		EndpointsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "lastmile_endpoints_active",
			Help: "Number of endpoints currently registered in the directory.",
		}),
		ChannelsTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "lastmile_channels_total",
			Help: "Number of channels currently registered in the directory.",
		}),
		MessagesPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lastmile_messages_published_total",
			Help: "Total NotifyChannel commands successfully published, by listener.",
		}, []string{"listener"}),
		MessagesDelivered: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lastmile_messages_delivered_total",
			Help: "Total fan-out enqueue attempts that succeeded, by listener.",
		}, []string{"listener"}),
		SubscribersPruned: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lastmile_subscribers_pruned_total",
			Help: "Total subscribers pruned from a channel after a failed enqueue.",
		}, []string{"listener"}),
		RateLimitRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lastmile_rate_limit_rejected_total",
			Help: "Total commands rejected by the per-connection rate limiter, by listener.",
		}, []string{"listener"}),
		CommandErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lastmile_command_errors_total",
			Help: "Total commands rejected, by listener and error kind.",
		}, []string{"listener", "kind"}),
	}
}

// Handler returns the HTTP handler exposing the registry in the
// Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.Handler()
}

// MessagePublished, MessageDelivered, SubscriberPruned and CommandError
// make *Registry satisfy broker.Observer, so the broker's publish and
// command-dispatch paths report through it without importing Prometheus
// themselves.
func (r *Registry) MessagePublished(listener string) {
	r.MessagesPublished.WithLabelValues(listener).Inc()
}

func (r *Registry) MessageDelivered(listener string) {
	r.MessagesDelivered.WithLabelValues(listener).Inc()
}

func (r *Registry) SubscriberPruned(listener string) {
	r.SubscribersPruned.WithLabelValues(listener).Inc()
}

func (r *Registry) CommandError(listener string, kind broker.Kind) {
	r.CommandErrors.WithLabelValues(listener, kind.String()).Inc()
}

var _ broker.Observer = (*Registry)(nil)
