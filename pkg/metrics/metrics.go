// Package metrics exposes batch-processing counters for operational
// monitoring of match quality and pipeline progress.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/terrafield-ag/paddock-engine/pkg/models"
)

// Pipeline holds the collectors updated once per processed farm.
type Pipeline struct {
	FarmsProcessed     prometheus.Counter
	FarmsFailed        prometheus.Counter
	PaddocksRemapped   prometheus.Counter
	PaddocksUnresolved prometheus.Counter
	RowsWritten        prometheus.Counter
	FarmDuration       prometheus.Histogram
}

// NewPipeline registers the pipeline collectors on reg.
func NewPipeline(reg prometheus.Registerer) *Pipeline {
	factory := promauto.With(reg)
	return &Pipeline{
		FarmsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "paddock_engine_farms_processed_total",
			Help: "Farms processed successfully.",
		}),
		FarmsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "paddock_engine_farms_failed_total",
			Help: "Farms that failed processing and were skipped.",
		}),
		PaddocksRemapped: factory.NewCounter(prometheus.CounterOpts{
			Name: "paddock_engine_paddocks_remapped_total",
			Help: "Historical paddocks remapped to a reference paddock.",
		}),
		PaddocksUnresolved: factory.NewCounter(prometheus.CounterOpts{
			Name: "paddock_engine_paddocks_unresolved_total",
			Help: "Historical paddocks kept under their own identity (no match above threshold).",
		}),
		RowsWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "paddock_engine_normalized_rows_total",
			Help: "Normalized rows persisted.",
		}),
		FarmDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "paddock_engine_farm_duration_seconds",
			Help:    "Wall time spent processing one farm.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
}

// ObserveMapping records mapping-quality counters from one farm's stats.
// Self-mapped reference paddocks are not unresolved, so the unresolved count
// is self-mapped minus the reference set size.
func (p *Pipeline) ObserveMapping(stats models.MappingStats) {
	p.PaddocksRemapped.Add(float64(stats.Remapped))
	unresolved := stats.SelfMapped - stats.ReferencePaddockCount
	if unresolved > 0 {
		p.PaddocksUnresolved.Add(float64(unresolved))
	}
}
