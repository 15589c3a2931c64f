package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Match outcomes
const (
	OutcomeMatched      = "matched"
	OutcomeNoCandidates = "no_candidates"
	OutcomeNoData       = "insufficient_data"
	OutcomeFailed       = "failed"
)

var (
	MatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_transfer_match_total",
			Help: "Total number of request items run through the course matcher",
		},
		[]string{"outcome"},
	)

	MatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "credit_transfer_match_duration_seconds",
			Help:    "Duration of a single best-match search in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
	)

	StatusRecomputeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_transfer_status_recompute_total",
			Help: "Total number of request status recomputations by result",
		},
		[]string{"result"},
	)

	EmbeddingCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_transfer_embedding_cache_total",
			Help: "Embedding cache lookups by result",
		},
		[]string{"result"},
	)
)
