package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ExecutionsTotal tracks finished adaptive executions by terminal outcome
	ExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soqlguard_executions_total",
			Help: "Total number of adaptive query executions",
		},
		[]string{"endpoint", "outcome"},
	)

	// AttemptsTotal tracks requests sent to the query service
	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soqlguard_attempts_total",
			Help: "Total number of query attempts sent",
		},
		[]string{"endpoint"},
	)

	// ClassificationsTotal tracks error classifications
	ClassificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soqlguard_classifications_total",
			Help: "Total number of classified query errors",
		},
		[]string{"kind", "rule"},
	)

	// RepairsTotal tracks repair decisions
	RepairsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soqlguard_repairs_total",
			Help: "Total number of repair decisions",
		},
		[]string{"action"},
	)

	// ParseFaultsTotal tracks tolerated response parse failures
	ParseFaultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soqlguard_parse_faults_total",
			Help: "Total number of tolerated response parse faults",
		},
		[]string{"kind"},
	)

	// RoundTripLatency tracks single request latency
	RoundTripLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "soqlguard_round_trip_seconds",
			Help:    "Query service round-trip latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// AttemptsPerExecution tracks how many attempts an execution needed
	AttemptsPerExecution = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "soqlguard_attempts_per_execution",
			Help:    "Number of attempts used per adaptive execution",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34},
		},
	)

	// DBConnectionPoolUsage tracks history database pool usage percentage
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "soqlguard_db_connection_pool_usage_percent",
			Help: "History database connection pool usage percentage",
		},
	)
)
