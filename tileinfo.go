package tilereader

import (
	"context"
	"sync/atomic"
)

// Ticket is an opaque per-tile accounting token handed back by a
// MemoryIndex.Acquire call. The core never inspects it; it only ever
// passes it back to MemoryIndex.Release.
type Ticket any

// TileInfo is the owned handle to in-flight or completed work for one
// TileKey. At most one TileInfo per TileKey exists inside a Manager's
// live set at any moment.
//
// cancelled is a one-shot, level-triggered flag: false -> true only,
// never cleared, and safe to poll from any goroutine without locking —
// the same atomic-flag idiom the corpus uses for cross-goroutine
// progress signalling (e.g. the row-done counters in a parallel
// encoder's worker synchronisation). ctx/cancelFunc carry the same
// one-shot cancellation into the reader task's context.Context, so a
// FeatureModel.ForEach implementation that honours ctx unblocks
// promptly instead of relying solely on Cancelled() being polled
// between features.
type TileInfo struct {
	key       TileKey
	cancelled atomic.Bool
	ticket    atomic.Pointer[Ticket]
	ctx       context.Context
	cancelFn  context.CancelFunc
}

// newTileInfo creates a TileInfo for key. It is otherwise only ever
// constructed by Manager.
func newTileInfo(key TileKey) *TileInfo {
	ctx, cancel := context.WithCancel(context.Background())
	return &TileInfo{key: key, ctx: ctx, cancelFn: cancel}
}

// Key returns the tile this handle was created for. Immutable after
// construction.
func (t *TileInfo) Key() TileKey { return t.key }

// Context returns the per-tile context passed to the reader task's
// Run. It is cancelled exactly once, by cancel().
func (t *TileInfo) Context() context.Context { return t.ctx }

// Cancelled reports whether this tile has been cancelled. Safe to call
// from any goroutine, including the worker running this tile's reader
// task, between feature iterations and between decode stages.
func (t *TileInfo) Cancelled() bool { return t.cancelled.Load() }

// cancel sets the cancellation flag and cancels ctx. Idempotent:
// cancelling an already cancelled TileInfo is a no-op. Only the
// Manager's control goroutine calls this.
func (t *TileInfo) cancel() {
	t.cancelled.Store(true)
	t.cancelFn()
}

// SetTicket stores the memory-pressure ticket acquired for this tile.
// Called by the reader task once MemoryIndex.Acquire succeeds. Uses an
// atomic pointer rather than a plain field because the survivor
// re-prioritisation path (Manager.Update, incremental branch) can leave
// two reader tasks running for the same TileKey at once, each acquiring
// and storing its own ticket.
func (t *TileInfo) SetTicket(tk Ticket) { t.ticket.Store(&tk) }

// GetTicket returns the most recently stored memory ticket, or nil if
// none was acquired yet.
func (t *TileInfo) GetTicket() Ticket {
	p := t.ticket.Load()
	if p == nil {
		return nil
	}
	return *p
}
