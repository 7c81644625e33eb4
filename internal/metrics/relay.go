package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AgentsRegistered tracks agent registrations accepted by the relay.
	AgentsRegistered = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "agents_registered_total",
			Help:      "Total number of agent registrations accepted",
		},
	)

	// AgentsOnline tracks currently connected agents.
	AgentsOnline = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "agents_online",
			Help:      "Number of agents with an open connection",
		},
	)

	// MessagesRouted tracks directed message frames handled by the relay.
	MessagesRouted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "messages_routed_total",
			Help:      "Total number of directed messages routed",
		},
		[]string{"status"}, // delivered, stored, error
	)

	// Broadcasts tracks broadcast frames handled by the relay.
	Broadcasts = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "broadcasts_total",
			Help:      "Total number of broadcast frames handled",
		},
	)

	// StoreForwardEnqueued tracks envelopes buffered for offline storage
	// peers.
	StoreForwardEnqueued = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "store_forward_enqueued_total",
			Help:      "Total number of envelopes enqueued for a storage peer",
		},
	)

	// StoreForwardDelivered tracks envelopes flushed to a storage peer on
	// reconnection.
	StoreForwardDelivered = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "store_forward_delivered_total",
			Help:      "Total number of buffered envelopes delivered on reconnect",
		},
	)

	// PeerDirectoryRequests tracks signed peer_list_request envelopes
	// answered by the relay's directory service.
	PeerDirectoryRequests = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "peer_directory_requests_total",
			Help:      "Total number of peer directory requests answered",
		},
	)

	// RoutingDuration tracks the time spent handling one inbound frame,
	// from read to the reply or forward it produces.
	RoutingDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "routing_duration_seconds",
			Help:      "Time spent handling one inbound relay frame",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		},
		[]string{"kind"}, // register, message, broadcast, ping
	)
)
