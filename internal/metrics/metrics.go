// Package metrics exposes the node's Prometheus counters and gauges as
// package-level functions, following the teacher's promauto-registered
// metric pattern collapsed to this ledger's observability surface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	chainHeight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "byc_chain_height",
		Help: "Current committed chain length",
	})

	mempoolSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "byc_mempool_size",
		Help: "Number of transactions pending in the mempool",
	})

	blocksMined = promauto.NewCounter(prometheus.CounterOpts{
		Name: "byc_blocks_mined_total",
		Help: "Total number of blocks this node has mined and installed",
	})

	validationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "byc_validation_failures_total",
		Help: "Total number of rejected blocks/transactions/chains by error kind",
	}, []string{"kind"})
)

func SetChainHeight(height int) {
	chainHeight.Set(float64(height))
}

func SetMempoolSize(size int) {
	mempoolSize.Set(float64(size))
}

func IncBlocksMined() {
	blocksMined.Inc()
}

func IncValidationFailure(kind string) {
	validationFailures.WithLabelValues(kind).Inc()
}
