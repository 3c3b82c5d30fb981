// Package metrics exposes the node's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BytesSharedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cryptonode_bandwidth_bytes_shared_total",
		Help: "Cumulative bytes of bandwidth shared across all measurement ticks",
	})

	RewardsPaidTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cryptonode_rewards_paid_total",
		Help: "Cumulative reward units credited to monitored wallets",
	})

	TickErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cryptonode_tick_errors_total",
		Help: "Measurement tick failures swallowed by the monitoring loop",
	}, []string{"stage"})

	WalletsMonitored = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cryptonode_wallets_monitored",
		Help: "Number of wallets with an active monitoring loop",
	})
)
