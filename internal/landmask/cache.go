// Package landmask persists land/water decisions per scan resolution so that
// repeated passes do not redo polygon containment tests.
package landmask

import (
	"context"
	"errors"
	"fmt"

	"github.com/woozymasta/farpoint/internal/geo"
	"github.com/woozymasta/farpoint/internal/metrics"

	"github.com/rs/zerolog/log"
)

// Classifier answers land/water queries on a cache miss.
type Classifier interface {
	IsLand(p geo.GeoPoint) (bool, error)
}

// ErrRowMismatch is returned when a point is looked up in a row of another latitude.
var ErrRowMismatch = errors.New("point does not belong to this row")

// Cache is a land mask for one step size. Masks of different steps are
// unrelated and never shared.
type Cache struct {
	store Store
	land  Classifier
	step  float64
	tag   string
}

// New returns a cache over store that falls back to land on misses.
func New(store Store, land Classifier, step float64) *Cache {
	return &Cache{store: store, land: land, step: step, tag: StepTag(step)}
}

// Step returns the resolution this cache is valid for.
func (c *Cache) Step() float64 { return c.step }

// OpenRow loads the stored row for latitude lat. A missing row starts empty;
// an unreadable one is reported as a warning and also starts empty.
func (c *Cache) OpenRow(ctx context.Context, lat float64) *Row {
	key := geo.FixedDegrees(lat)

	cells, err := c.store.LoadRow(ctx, c.step, key)
	switch {
	case err == nil:
	case errors.Is(err, ErrRowNotFound):
		cells = nil
	default:
		log.Warn().
			Err(err).
			Float64("step", c.step).
			Float64("lat", lat).
			Msg("Land mask row unreadable, recomputing")
		cells = nil
	}

	if cells == nil {
		cells = make(map[int32]bool)
	}

	return &Row{cache: c, lat: key, cells: cells}
}

// LookupOrCompute is the single-point form: it opens the point's row, answers
// the query and commits the row if it changed. Commit failures are logged
// and do not affect the returned value.
func (c *Cache) LookupOrCompute(ctx context.Context, p geo.GeoPoint) (bool, error) {
	row := c.OpenRow(ctx, p.Lat)

	land, err := row.LookupOrCompute(p)
	if err != nil {
		return false, err
	}

	if err := row.Commit(ctx); err != nil {
		log.Warn().Err(err).Str("point", p.String()).Msg("Failed to persist land mask row")
	}

	return land, nil
}

// Row is the mask of one latitude. It is owned by a single goroutine
// between OpenRow and Commit.
type Row struct {
	cache  *Cache
	cells  map[int32]bool
	hits   int
	misses int
	lat    int32
	dirty  bool
}

// Lat returns the row latitude in microdegrees.
func (r *Row) Lat() int32 { return r.lat }

// Len returns the number of known cells.
func (r *Row) Len() int { return len(r.cells) }

// Stats returns hit and miss counts since the row was opened.
func (r *Row) Stats() (hits, misses int) { return r.hits, r.misses }

// Dirty reports whether the row has entries not yet committed.
func (r *Row) Dirty() bool { return r.dirty }

// LookupOrCompute returns the stored decision for p, classifying and
// remembering it on a miss. Classifier errors are returned unchanged and
// nothing is recorded for that cell.
func (r *Row) LookupOrCompute(p geo.GeoPoint) (bool, error) {
	k := geo.KeyOf(p)
	if k.Lat != r.lat {
		return false, fmt.Errorf("%w: %v in row %d", ErrRowMismatch, p, r.lat)
	}

	if land, ok := r.cells[k.Lon]; ok {
		r.hits++
		metrics.MaskHits.WithLabelValues(r.cache.tag).Inc()
		return land, nil
	}

	land, err := r.cache.land.IsLand(p)
	if err != nil {
		return false, err
	}

	r.misses++
	metrics.MaskMisses.WithLabelValues(r.cache.tag).Inc()
	r.cells[k.Lon] = land
	r.dirty = true

	return land, nil
}

// Commit persists the whole row if anything new was computed. It must be
// called only after the row's longitude sweep is complete.
func (r *Row) Commit(ctx context.Context) error {
	if !r.dirty {
		return nil
	}

	if err := r.cache.store.SaveRow(ctx, r.cache.step, r.lat, r.cells); err != nil {
		metrics.MaskWriteFailures.WithLabelValues(r.cache.tag).Inc()
		return err
	}

	r.dirty = false
	return nil
}
