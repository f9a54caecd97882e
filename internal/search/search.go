// Package search finds the water cell farthest from a set of reference points
// with a coarse-to-fine grid sweep.
package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/woozymasta/farpoint/internal/geo"
	"github.com/woozymasta/farpoint/internal/landmask"
	"github.com/woozymasta/farpoint/internal/metrics"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var (
	ErrNoReferences     = errors.New("reference point list is empty")
	ErrInvalidReference = errors.New("reference point is not a valid coordinate")
	ErrInvalidStep      = errors.New("step size must be a positive finite number")
	ErrInvalidBound     = errors.New("lower bound must be finite")
	ErrInvalidGrid      = errors.New("search grid is empty or outside world bounds")
	ErrNoSteps          = errors.New("no pass step sizes given")
)

// progressInterval throttles Info-level progress lines during long passes.
const progressInterval = 10 * time.Second

// Option configures a Searcher.
type Option func(*Searcher)

// WithGrid overrides the sweep window (geo.World by default).
func WithGrid(g geo.Grid) Option {
	return func(s *Searcher) { s.grid = g }
}

// WithWorkers sets how many latitude rows are swept concurrently.
// Values below 1 mean runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(s *Searcher) { s.workers = n }
}

// WithStore enables the land mask cache backed by store.
func WithStore(store landmask.Store) Option {
	return func(s *Searcher) { s.store = store }
}

// WithPassHook registers fn to be called by Refine after every pass with
// that pass's result and the best result so far.
func WithPassHook(fn func(pass, best Result)) Option {
	return func(s *Searcher) { s.onPass = fn }
}

// Searcher runs grid passes over a fixed reference set and land classifier.
type Searcher struct {
	onPass  func(pass, best Result)
	land    landmask.Classifier
	store   landmask.Store
	refs    []geo.GeoPoint
	grid    geo.Grid
	workers int
}

// New creates a searcher. refs and land are shared read-only by all workers.
func New(refs []geo.GeoPoint, land landmask.Classifier, opts ...Option) *Searcher {
	s := &Searcher{
		refs: refs,
		land: land,
		grid: geo.World,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.workers < 1 {
		s.workers = runtime.NumCPU()
	}

	return s
}

// Grid returns the sweep window.
func (s *Searcher) Grid() geo.Grid { return s.grid }

func (s *Searcher) validate(step, lowerBound float64) error {
	if len(s.refs) == 0 {
		return ErrNoReferences
	}
	for i, r := range s.refs {
		if !r.Valid() {
			return fmt.Errorf("%w: #%d %v", ErrInvalidReference, i, r)
		}
	}
	if math.IsNaN(step) || math.IsInf(step, 0) || step <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidStep, step)
	}
	if s.store != nil {
		if err := landmask.CheckStep(step); err != nil {
			return err
		}
	}
	if math.IsNaN(lowerBound) || math.IsInf(lowerBound, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidBound, lowerBound)
	}
	if !s.grid.Valid() {
		return fmt.Errorf("%w: %+v", ErrInvalidGrid, s.grid)
	}

	return nil
}

// Search sweeps the grid at step and returns the water cell whose distance
// to its nearest reference is largest and strictly above lowerBound.
// Rows run north to south and cells west to east; on equal distances the
// earliest cell wins, whatever the worker count.
func (s *Searcher) Search(ctx context.Context, step, lowerBound float64) (Result, error) {
	if err := s.validate(step, lowerBound); err != nil {
		return Result{}, err
	}

	var cache *landmask.Cache
	if s.store != nil {
		cache = landmask.New(s.store, s.land, step)
	}

	p := &pass{
		searcher: s,
		cache:    cache,
		shared:   newSharedMax(lowerBound),
		progress: &rate.Sometimes{Interval: progressInterval},
		tag:      landmask.StepTag(step),
		step:     step,
		floor:    lowerBound,
		rows:     s.grid.Rows(step),
		cols:     s.grid.Cols(step),
	}

	log.Info().
		Float64("step", step).
		Float64("lower_bound_km", lowerBound).
		Int("rows", p.rows).
		Int("cols", p.cols).
		Int("workers", s.workers).
		Bool("cache", cache != nil).
		Msg("Starting search pass")

	start := time.Now()
	winners := make([]candidate, p.rows)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i := 0; i < p.rows; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			c, err := p.sweepRow(gctx, i)
			if err != nil {
				return err
			}
			winners[i] = c
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	best := fold(winners, lowerBound)
	elapsed := time.Since(start)
	metrics.PassDurationSec.WithLabelValues(p.tag).Observe(elapsed.Seconds())

	res := Result{Step: step, DistanceKm: lowerBound}
	if best.found {
		res = Result{
			Best:       best.point,
			Nearest:    best.ref,
			DistanceKm: best.dist,
			Step:       step,
			Found:      true,
		}
		metrics.BestDistanceKm.WithLabelValues(p.tag).Set(best.dist)
	}

	log.Info().
		Float64("step", step).
		Bool("found", res.Found).
		Str("best", res.Best.String()).
		Str("nearest", res.Nearest.String()).
		Float64("distance_km", res.DistanceKm).
		Dur("duration", elapsed).
		Msg("Search pass finished")

	return res, nil
}

// Refine runs one pass per step in order, each seeded with the distance of
// the best result so far. A pass that finds nothing keeps the previous
// result, so the reported distance never decreases. It returns the final
// result and every pass result.
func (s *Searcher) Refine(ctx context.Context, steps []float64, seed float64) (Result, []Result, error) {
	if len(steps) == 0 {
		return Result{}, nil, ErrNoSteps
	}

	best := Result{DistanceKm: seed}
	passes := make([]Result, 0, len(steps))

	for _, step := range steps {
		res, err := s.Search(ctx, step, best.DistanceKm)
		if err != nil {
			return best, passes, fmt.Errorf("pass at step %v: %w", step, err)
		}

		passes = append(passes, res)
		if res.Found {
			best = res
		} else {
			log.Info().
				Float64("step", step).
				Float64("distance_km", best.DistanceKm).
				Msg("Finer pass did not improve the result")
		}

		if s.onPass != nil {
			s.onPass(res, best)
		}
	}

	return best, passes, nil
}

// pass holds the state shared by the row workers of one Search call.
type pass struct {
	searcher *Searcher
	cache    *landmask.Cache
	shared   *sharedMax
	progress *rate.Sometimes
	tag      string
	done     atomic.Int64
	step     float64
	floor    float64
	rows     int
	cols     int
}

// sweepRow evaluates row i west to east and returns its first best water cell.
// Cells are pruned when they cannot beat this row's best or, strictly, the
// best water distance any row has confirmed.
func (p *pass) sweepRow(ctx context.Context, i int) (candidate, error) {
	s := p.searcher
	lat := s.grid.Lat(i, p.step)

	classify := s.land.IsLand
	var row *landmask.Row
	if p.cache != nil {
		row = p.cache.OpenRow(ctx, lat)
		classify = row.LookupOrCompute
	}

	best := candidate{dist: p.floor}
	classified := 0

	for j := 0; j < p.cols; j++ {
		cell := geo.GeoPoint{Lat: lat, Lon: s.grid.Lon(j, p.step)}

		ref, d, _ := geo.Nearest(cell, s.refs)
		if d <= best.dist || d < p.shared.Load() {
			continue
		}

		classified++
		land, err := classify(cell)
		if err != nil {
			return candidate{}, fmt.Errorf("classify %v: %w", cell, err)
		}
		if land {
			continue
		}

		best = better(best, candidate{point: cell, ref: ref, dist: d, found: true})
		p.shared.Raise(d)
	}

	if row != nil {
		if err := row.Commit(ctx); err != nil {
			log.Warn().
				Err(err).
				Float64("step", p.step).
				Float64("lat", lat).
				Msg("Failed to persist land mask row, continuing without it")
		}
	}

	metrics.CellsEvaluated.WithLabelValues(p.tag).Add(float64(p.cols))
	metrics.CellsClassified.WithLabelValues(p.tag).Add(float64(classified))
	metrics.RowsCompleted.WithLabelValues(p.tag).Inc()

	done := p.done.Add(1)

	log.Debug().
		Float64("step", p.step).
		Float64("lat", lat).
		Int("classified", classified).
		Bool("improved", best.found).
		Msg("Row swept")

	p.progress.Do(func() {
		log.Info().
			Float64("step", p.step).
			Int64("rows_done", done).
			Int("rows_total", p.rows).
			Float64("best_km", p.shared.Load()).
			Msg("Search progress")
	})

	return best, nil
}
