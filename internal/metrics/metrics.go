// Package metrics exposes Prometheus collectors for search passes and the land mask.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CellsEvaluated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "farpoint_cells_evaluated_total",
		Help: "Grid cells whose nearest-reference distance was computed",
	}, []string{"step"})
	CellsClassified = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "farpoint_cells_classified_total",
		Help: "Grid cells that needed a land/water decision",
	}, []string{"step"})
	RowsCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "farpoint_rows_completed_total",
		Help: "Latitude rows fully swept",
	}, []string{"step"})
	MaskHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "farpoint_landmask_hits_total",
		Help: "Land mask lookups answered from stored rows",
	}, []string{"step"})
	MaskMisses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "farpoint_landmask_misses_total",
		Help: "Land mask lookups that fell back to polygon tests",
	}, []string{"step"})
	MaskWriteFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "farpoint_landmask_write_failures_total",
		Help: "Land mask rows that could not be persisted",
	}, []string{"step"})
	BestDistanceKm = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "farpoint_best_distance_km",
		Help: "Best nearest-reference distance found by the last pass at each step",
	}, []string{"step"})
	PassDurationSec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "farpoint_pass_duration_seconds",
		Help:    "Wall time of a search pass",
		Buckets: []float64{1, 5, 15, 60, 300, 900, 3600, 14400},
	}, []string{"step"})
)

func init() {
	prometheus.MustRegister(CellsEvaluated)
	prometheus.MustRegister(CellsClassified)
	prometheus.MustRegister(RowsCompleted)
	prometheus.MustRegister(MaskHits)
	prometheus.MustRegister(MaskMisses)
	prometheus.MustRegister(MaskWriteFailures)
	prometheus.MustRegister(BestDistanceKm)
	prometheus.MustRegister(PassDurationSec)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler { return promhttp.Handler() }
