package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EnergyMintedKwh = promauto.NewCounter(prometheus.CounterOpts{
		Name: "greengrid_energy_metered_kwh_total",
		Help: "Total metered energy applied to the ledger",
	})

	CreditsMinted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "greengrid_credits_minted_total",
		Help: "Total credits minted from metered energy",
	})

	OrdersPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "greengrid_orders_placed_total",
		Help: "Sell orders accepted into the order book",
	})

	OrdersRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "greengrid_orders_rejected_total",
		Help: "Sell orders rejected, labeled by field",
	}, []string{"field"})

	TradesMatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "greengrid_trades_matched_total",
		Help: "Orders matched into trades",
	})

	SettlementsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "greengrid_settlements_applied_total",
		Help: "Deferred settlements applied to the ledger",
	})

	SettlementsPending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "greengrid_settlements_pending",
		Help: "Settlements waiting for their delay to elapse",
	})

	CertificatesIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "greengrid_certificates_issued_total",
		Help: "Certificates issued",
	})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "greengrid_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "greengrid_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})
)
