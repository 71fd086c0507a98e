package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline stage metrics, labeled by outcome where runs can fail.
var (
	IngestedRows = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coinrank_ingested_rows_total",
		Help: "Transaction rows inserted by the ingestion pipeline",
	})

	InvalidRows = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coinrank_invalid_rows_total",
		Help: "Transaction rows rejected by row-level validation",
	})

	ValuationRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coinrank_valuation_runs_total",
		Help: "Valuation engine runs by outcome",
	}, []string{"outcome"})

	LeaderboardRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coinrank_leaderboard_runs_total",
		Help: "Leaderboard ranking runs by outcome",
	}, []string{"outcome"})

	PriceObservations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coinrank_price_observations_total",
		Help: "Price observations appended by the feed sync job",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "coinrank_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "status"})
)
