// Package metrics exposes Prometheus instrumentation for the relay and
// reputation ledger against a private registry, so embedding a relay into
// a larger process never collides with that process's own metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "agora"

// Registry is the private Prometheus registry every metric in this
// package registers against. Handler and StartServer expose it.
var Registry = prometheus.NewRegistry()
