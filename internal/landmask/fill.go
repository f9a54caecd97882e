package landmask

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/woozymasta/farpoint/internal/geo"
	"github.com/woozymasta/farpoint/internal/metrics"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// FillStats summarizes a Fill run.
type FillStats struct {
	Rows     int
	Cells    int
	Computed int
	Land     int
	Failed   int // rows whose commit failed
}

// Fill classifies every cell of grid at the cache step and persists each
// row, so later searches at that step never touch the polygons. Rows are
// processed by up to workers goroutines; values below 1 mean one per CPU.
func (c *Cache) Fill(ctx context.Context, grid geo.Grid, workers int) (FillStats, error) {
	if err := CheckStep(c.step); err != nil {
		return FillStats{}, err
	}
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	rows, cols := grid.Rows(c.step), grid.Cols(c.step)
	progress := rate.Sometimes{Interval: 10 * time.Second}

	var computed, land, failed, done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := 0; i < rows; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			lat := grid.Lat(i, c.step)
			row := c.OpenRow(gctx, lat)

			for j := 0; j < cols; j++ {
				isLand, err := row.LookupOrCompute(geo.GeoPoint{Lat: lat, Lon: grid.Lon(j, c.step)})
				if err != nil {
					return err
				}
				if isLand {
					land.Add(1)
				}
			}

			_, misses := row.Stats()
			computed.Add(int64(misses))

			if err := row.Commit(gctx); err != nil {
				failed.Add(1)
				log.Warn().Err(err).Float64("step", c.step).Float64("lat", lat).Msg("Failed to persist land mask row")
			}

			metrics.RowsCompleted.WithLabelValues(c.tag).Inc()
			n := done.Add(1)
			progress.Do(func() {
				log.Info().
					Float64("step", c.step).
					Int64("rows_done", n).
					Int("rows_total", rows).
					Msg("Land mask progress")
			})

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return FillStats{}, err
	}

	return FillStats{
		Rows:     rows,
		Cells:    rows * cols,
		Computed: int(computed.Load()),
		Land:     int(land.Load()),
		Failed:   int(failed.Load()),
	}, nil
}
