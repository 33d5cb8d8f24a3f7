// Package monitoring exposes Prometheus metrics for the execution loop.
package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	executionResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibetrader_execution_results_total",
			Help: "Execution outcomes by symbol, action and status",
		},
		[]string{"symbol", "action", "status"},
	)

	riskRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibetrader_risk_rejections_total",
			Help: "Intents rejected by the risk gate, by rule",
		},
		[]string{"rule"},
	)

	cycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vibetrader_cycle_duration_seconds",
			Help:    "Wall time of one execution cycle",
			Buckets: prometheus.DefBuckets,
		},
	)

	cycleFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vibetrader_cycle_failures_total",
			Help: "Cycles aborted before dispatch (account refresh failures)",
		},
	)

	openPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vibetrader_open_positions",
			Help: "Open positions at the last snapshot",
		},
	)

	walletBalance = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vibetrader_wallet_balance",
			Help: "Wallet balance at the last snapshot",
		},
	)

	unrealizedPnL = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vibetrader_unrealized_pnl",
			Help: "Total unrealized PnL at the last snapshot",
		},
	)
)

func init() {
	prometheus.MustRegister(executionResults)
	prometheus.MustRegister(riskRejections)
	prometheus.MustRegister(cycleDuration)
	prometheus.MustRegister(cycleFailures)
	prometheus.MustRegister(openPositions)
	prometheus.MustRegister(walletBalance)
	prometheus.MustRegister(unrealizedPnL)
}

func RecordResult(symbol, action, status string) {
	executionResults.WithLabelValues(symbol, action, status).Inc()
}

func RecordRejection(rule string) {
	riskRejections.WithLabelValues(rule).Inc()
}

func RecordCycle(seconds float64) {
	cycleDuration.Observe(seconds)
}

func RecordCycleFailure() {
	cycleFailures.Inc()
}

func RecordSnapshot(positions int, wallet, unrealized float64) {
	openPositions.Set(float64(positions))
	walletBalance.Set(wallet)
	unrealizedPnL.Set(unrealized)
}

// Handler returns the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
