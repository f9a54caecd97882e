package landmask

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/woozymasta/farpoint/internal/geo"
	"github.com/woozymasta/farpoint/internal/landmass"

	"github.com/alicebob/miniredis/v2"
	"github.com/paulmach/orb"
	"github.com/redis/go-redis/v9"
)

// countingClassifier records how often the polygon set is consulted.
type countingClassifier struct {
	inner Classifier
	calls int
}

func (c *countingClassifier) IsLand(p geo.GeoPoint) (bool, error) {
	c.calls++
	return c.inner.IsLand(p)
}

type failingClassifier struct{}

func (failingClassifier) IsLand(geo.GeoPoint) (bool, error) {
	return false, &landmass.GeometryError{Index: 3, Reason: "test"}
}

type brokenStore struct{ *MemoryStore }

func (*brokenStore) SaveRow(context.Context, float64, int32, map[int32]bool) error {
	return errors.New("disk full")
}

func newLand() *landmass.Classifier {
	// land west of the prime meridian and a small island at 10..20E
	west := orb.Polygon{{{-180, -90}, {0, -90}, {0, 90}, {-180, 90}, {-180, -90}}}
	island := orb.Polygon{{{10, -5}, {20, -5}, {20, 5}, {10, 5}, {10, -5}}}
	return landmass.NewClassifier([]orb.Polygon{west, island}, landmass.Zone{})
}

func newFileStore(t *testing.T) Store {
	t.Helper()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	return s
}

func newRedisStore(t *testing.T) Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "test")
}

var stores = map[string]func(t *testing.T) Store{
	"memory": func(*testing.T) Store { return NewMemoryStore() },
	"file":   newFileStore,
	"redis":  newRedisStore,
}

func TestRowRoundTrip(t *testing.T) {
	const step = 5.0
	land := newLand()
	ctx := context.Background()

	for name, mk := range stores {
		t.Run(name, func(t *testing.T) {
			store := mk(t)
			lat := geo.World.Lat(17, step) // 84 - 85 = -1

			counter := &countingClassifier{inner: land}
			row := New(store, counter, step).OpenRow(ctx, lat)
			for j := 0; j < geo.World.Cols(step); j++ {
				if _, err := row.LookupOrCompute(geo.World.Cell(17, j, step)); err != nil {
					t.Fatalf("LookupOrCompute failed: %v", err)
				}
			}
			if err := row.Commit(ctx); err != nil {
				t.Fatalf("Commit failed: %v", err)
			}

			reader := &countingClassifier{inner: land}
			again := New(store, reader, step).OpenRow(ctx, lat)
			if again.Len() != geo.World.Cols(step) {
				t.Fatalf("Expected %d stored cells, got %d", geo.World.Cols(step), again.Len())
			}

			for j := 0; j < geo.World.Cols(step); j++ {
				p := geo.World.Cell(17, j, step)
				got, err := again.LookupOrCompute(p)
				if err != nil {
					t.Fatalf("LookupOrCompute failed: %v", err)
				}
				want, _ := land.IsLand(p)
				if got != want {
					t.Errorf("%v: expected land=%v, got %v", p, want, got)
				}
			}

			if reader.calls != 0 {
				t.Errorf("Expected no classifier calls on a stored row, got %d", reader.calls)
			}
			if hits, misses := again.Stats(); hits != geo.World.Cols(step) || misses != 0 {
				t.Errorf("Expected all hits, got hits=%d misses=%d", hits, misses)
			}
		})
	}
}

func TestRowIsolationBetweenSteps(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	land := newLand()

	row := New(store, land, 1).OpenRow(ctx, 0)
	if _, err := row.LookupOrCompute(geo.GeoPoint{Lat: 0, Lon: 15}); err != nil {
		t.Fatalf("LookupOrCompute failed: %v", err)
	}
	if err := row.Commit(ctx); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	other := New(store, land, 0.5).OpenRow(ctx, 0)
	if other.Len() != 0 {
		t.Errorf("Expected empty row at another step, got %d cells", other.Len())
	}
}

func TestMissingRowStartsEmpty(t *testing.T) {
	for name, mk := range stores {
		t.Run(name, func(t *testing.T) {
			row := New(mk(t), newLand(), 0.1).OpenRow(context.Background(), 42.1)
			if row.Len() != 0 || row.Dirty() {
				t.Errorf("Expected empty clean row, got len=%d dirty=%v", row.Len(), row.Dirty())
			}
		})
	}
}

func TestCorruptRowIsRecomputed(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	row := New(fs, newLand(), 1).OpenRow(ctx, 3)
	if _, err := row.LookupOrCompute(geo.GeoPoint{Lat: 3, Lon: -3}); err != nil {
		t.Fatalf("LookupOrCompute failed: %v", err)
	}
	if err := row.Commit(ctx); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	if err := os.WriteFile(fs.RowPath(1, geo.FixedDegrees(3)), []byte{0xff, 0x00, 0x13}, 0644); err != nil {
		t.Fatalf("Failed to corrupt row: %v", err)
	}

	counter := &countingClassifier{inner: newLand()}
	again := New(fs, counter, 1).OpenRow(ctx, 3)
	land, err := again.LookupOrCompute(geo.GeoPoint{Lat: 3, Lon: -3})
	if err != nil {
		t.Fatalf("LookupOrCompute failed: %v", err)
	}
	if !land || counter.calls != 1 {
		t.Errorf("Expected recomputed land with one classifier call, got land=%v calls=%d", land, counter.calls)
	}
}

func TestUncommittedRowIsNotPersisted(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	row := New(store, newLand(), 1).OpenRow(ctx, 7)
	if _, err := row.LookupOrCompute(geo.GeoPoint{Lat: 7, Lon: 100}); err != nil {
		t.Fatalf("LookupOrCompute failed: %v", err)
	}

	if store.Rows() != 0 {
		t.Errorf("Expected nothing persisted before Commit, got %d rows", store.Rows())
	}
}

func TestRowMismatch(t *testing.T) {
	row := New(NewMemoryStore(), newLand(), 1).OpenRow(context.Background(), 10)

	if _, err := row.LookupOrCompute(geo.GeoPoint{Lat: 11, Lon: 0}); !errors.Is(err, ErrRowMismatch) {
		t.Errorf("Expected ErrRowMismatch, got %v", err)
	}
}

func TestClassifierErrorIsNotCached(t *testing.T) {
	row := New(NewMemoryStore(), failingClassifier{}, 1).OpenRow(context.Background(), 0)

	_, err := row.LookupOrCompute(geo.GeoPoint{Lat: 0, Lon: 0})
	var gerr *landmass.GeometryError
	if !errors.As(err, &gerr) {
		t.Fatalf("Expected GeometryError, got %v", err)
	}
	if row.Len() != 0 || row.Dirty() {
		t.Errorf("Expected failed cell to be left out, got len=%d dirty=%v", row.Len(), row.Dirty())
	}
}

func TestCommitFailureKeepsValues(t *testing.T) {
	ctx := context.Background()
	cache := New(&brokenStore{MemoryStore: NewMemoryStore()}, newLand(), 1)

	land, err := cache.LookupOrCompute(ctx, geo.GeoPoint{Lat: 0, Lon: 15})
	if err != nil {
		t.Fatalf("Expected write failure to be non-fatal, got %v", err)
	}
	if !land {
		t.Error("Expected island cell to be land")
	}

	row := cache.OpenRow(ctx, 0)
	if _, err := row.LookupOrCompute(geo.GeoPoint{Lat: 0, Lon: 50}); err != nil {
		t.Fatalf("LookupOrCompute failed: %v", err)
	}
	if err := row.Commit(ctx); err == nil {
		t.Error("Expected Commit to report the store error")
	}
	if !row.Dirty() {
		t.Error("Expected row to stay dirty after a failed commit")
	}
}

func TestCommitMergesExistingRow(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	cache := New(store, newLand(), 1)

	for _, lon := range []float64{-5, 5} {
		if _, err := cache.LookupOrCompute(ctx, geo.GeoPoint{Lat: 0, Lon: lon}); err != nil {
			t.Fatalf("LookupOrCompute failed: %v", err)
		}
	}

	cells, err := store.LoadRow(ctx, 1, 0)
	if err != nil {
		t.Fatalf("LoadRow failed: %v", err)
	}
	if len(cells) != 2 {
		t.Errorf("Expected both cells in the stored row, got %d", len(cells))
	}
}
