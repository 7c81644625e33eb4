package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsAppended tracks successful appends to the reputation log, by
	// record kind.
	RecordsAppended = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reputation",
			Name:      "records_appended_total",
			Help:      "Total number of reputation records appended",
		},
		[]string{"kind"}, // verification, commit, reveal, revocation
	)

	// RecordsRejected tracks append attempts that failed validation.
	RecordsRejected = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reputation",
			Name:      "records_rejected_total",
			Help:      "Total number of reputation records rejected by validation",
		},
		[]string{"kind"},
	)

	// RevealMismatches tracks reveal/commit bridging check failures.
	RevealMismatches = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reputation",
			Name:      "reveal_mismatches_total",
			Help:      "Total number of reveal records that failed to match their commit",
		},
		[]string{"check"}, // commitment_id, agent, commitment_hash
	)

	// ScoreComputations tracks trust score evaluations.
	ScoreComputations = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reputation",
			Name:      "score_computations_total",
			Help:      "Total number of trust score computations",
		},
	)
)
