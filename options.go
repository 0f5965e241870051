package tilereader

import (
	"fmt"
	"runtime"
)

// webMercatorExtent is the standard Web Mercator square in metres,
// used as ManagerOptions.WorldExtent's default.
const webMercatorExtent = 20037508.342789244

// ManagerOptions controls Manager's worker pool sizing, queue
// behaviour, and grid geometry. The zero value is valid: NewManager
// fills in defaults.
type ManagerOptions struct {
	// Workers is the number of reader-task worker goroutines. Zero
	// selects the spec.md §4.D default of max(GOMAXPROCS-2, 1).
	Workers int

	// QueueCapacity bounds the number of pending (not yet running)
	// reader tasks the worker pool's deque may hold before PushBack
	// blocks. Zero means unbounded.
	QueueCapacity int

	// WorldExtent is the mercator-plane square the quadtree grid is
	// laid out over (tile scale 0 covers the whole extent). The zero
	// value selects the standard Web Mercator extent.
	WorldExtent MercatorRect

	// MaxScale caps the quadtree zoom level Scales.TileScale may
	// select. Zero selects the MapContainer's LastScale.
	MaxScale int
}

// validate fills in defaults and checks that explicit overrides are
// sane, following the teacher's EncoderOptions validate-then-apply
// shape (encode.go's validateOptions).
func (o *ManagerOptions) validate() error {
	if o.Workers == 0 {
		o.Workers = defaultWorkerCount()
	}
	if o.Workers < 1 {
		return fmt.Errorf("tilereader: invalid Workers %d (must be >= 1)", o.Workers)
	}
	if o.QueueCapacity < 0 {
		return fmt.Errorf("tilereader: invalid QueueCapacity %d (must be >= 0)", o.QueueCapacity)
	}
	if o.WorldExtent == (MercatorRect{}) {
		o.WorldExtent = MercatorRect{
			MinX: -webMercatorExtent, MinY: -webMercatorExtent,
			MaxX: webMercatorExtent, MaxY: webMercatorExtent,
		}
	}
	if o.MaxScale < 0 {
		return fmt.Errorf("tilereader: invalid MaxScale %d (must be >= 0)", o.MaxScale)
	}
	return nil
}

// defaultWorkerCount implements spec.md §4.D's max(cpuCores-2, 1).
func defaultWorkerCount() int {
	n := runtime.GOMAXPROCS(0) - 2
	if n < 1 {
		return 1
	}
	return n
}
