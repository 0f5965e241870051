// Package reader implements the Tile Reader Task: component C of the
// tile read coordinator (spec.md §4.C). A Task iterates the feature
// records overlapping one tile, drives a feature.ParsedFeature per record,
// and forwards decoded features to the engine, honouring cooperative
// cancellation between features and between decode stages.
package reader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/deepteams/tilereader/internal/feature"
)

// MercatorRect is an axis-aligned rectangle on the mercator plane.
type MercatorRect struct {
	MinX, MinY, MaxX, MaxY float64
}

// FeatureRecord is one feature's raw bytes plus its byte offset inside
// the tile's feature stream, used as the feature's stable identity
// (spec.md's byte layout has no explicit feature-ID field).
type FeatureRecord struct {
	Data   []byte
	Offset int
}

// FeatureModel is the external per-tile feature index.
type FeatureModel interface {
	ForEach(ctx context.Context, rect MercatorRect, scale int, fn func(FeatureRecord) bool) error
}

// DecodedFeature is one feature handed to the engine after geometry
// parsing at the tile's scale. Common attributes (name, house number,
// layer, rank, ref) are always included since ParseCommon is part of
// every feature's decode path regardless of kind; out-of-line metadata
// is deliberately not resolved here (spec.md §1: hydration is the
// engine's on-demand concern, not the read task's).
type DecodedFeature struct {
	ID          uint64
	Types       []feature.TypeID
	Geometry    any
	Name        map[uint8]string
	HouseNumber string
	Layer       int32
	Rank        int32
	Ref         string
}

// Cancellable is the subset of TileInfo the task needs: the monotonic
// cooperative-cancellation flag.
type Cancellable interface {
	Cancelled() bool
}

// Sink receives decoded features for one tile. AppendFeature must be
// safe to call from any Task's goroutine concurrently.
type Sink interface {
	AppendFeature(f DecodedFeature)
}

// Ticket is an opaque memory-pressure accounting token.
type Ticket any

// MemoryIndex is the shared memory-pressure accounting index.
type MemoryIndex interface {
	Acquire() (Ticket, error)
	Release(Ticket)
}

// Task reads one tile: compute its mercator rectangle, pull feature
// records from the FeatureModel, decode each via internal/feature, and
// forward the result to Sink. Per spec.md §4.C/§7, per-feature errors
// are logged and skipped; container I/O failure aborts the tile without
// retry; cancellation is cooperative and never treated as an error.
type Task struct {
	Info      Cancellable
	Rect      MercatorRect
	Scale     int
	Model     FeatureModel
	LoadInfo  *feature.LoadInfo
	MemIndex  MemoryIndex
	Sink      Sink
	Logger    *slog.Logger
}

// Run executes the task to completion or cancellation. It never returns
// an error for cancellation or for a skipped corrupt feature; it returns
// an error for a container I/O failure (matching spec.md §4.C's "aborts
// without retry" contract), a failed memory-ticket Acquire, or an error
// from FeatureModel.ForEach — the caller is expected to log it and move on.
func (t *Task) Run(ctx context.Context) error {
	logger := t.logger()

	ticket, err := t.MemIndex.Acquire()
	if err != nil {
		return fmt.Errorf("reader: acquire memory ticket: %w", err)
	}
	released := false
	release := func() {
		if !released {
			t.MemIndex.Release(ticket)
			released = true
		}
	}
	defer release()

	var ioErr error
	forEachErr := t.Model.ForEach(ctx, t.Rect, t.Scale, func(rec FeatureRecord) bool {
		if t.Info.Cancelled() {
			return false
		}
		decoded, err := t.decodeOne(rec)
		if err != nil {
			switch {
			case errors.Is(err, errCancelled):
				return false
			case errors.Is(err, feature.ErrContainerIO):
				ioErr = err
				return false
			default:
				logger.Warn("reader: skipping corrupt feature", "err", err, "offset", rec.Offset)
				return true
			}
		}
		if t.Info.Cancelled() {
			return false
		}
		t.Sink.AppendFeature(decoded)
		return true
	})

	if ioErr != nil {
		return fmt.Errorf("reader: %w", ioErr)
	}
	if forEachErr != nil {
		return fmt.Errorf("reader: feature model: %w", forEachErr)
	}
	return nil
}

func (t *Task) logger() *slog.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return slog.Default()
}

// decodeOne drives one feature record through every decode stage the
// geometry kind requires, checking cancellation between stages.
func (t *Task) decodeOne(rec FeatureRecord) (DecodedFeature, error) {
	f, err := feature.New(rec.Data, uint64(rec.Offset), t.LoadInfo)
	if err != nil {
		return DecodedFeature{}, err
	}
	defer feature.Release(f)

	if err := f.ParseTypes(); err != nil {
		return DecodedFeature{}, err
	}
	if t.Info.Cancelled() {
		return DecodedFeature{}, errCancelled
	}
	if err := f.ParseCommon(); err != nil {
		return DecodedFeature{}, err
	}

	var geometry any
	switch f.Kind() {
	case feature.KindPoint:
		centre, _ := f.Centre()
		geometry = centre
	case feature.KindLine:
		if t.Info.Cancelled() {
			return DecodedFeature{}, errCancelled
		}
		if err := f.ParsePoints(t.Scale); err != nil {
			return DecodedFeature{}, err
		}
		geometry = f.Polyline()
	case feature.KindArea:
		if t.Info.Cancelled() {
			return DecodedFeature{}, errCancelled
		}
		if err := f.ParseTriangles(t.Scale); err != nil {
			return DecodedFeature{}, err
		}
		geometry = f.TriangleStrip()
	default:
		return DecodedFeature{}, fmt.Errorf("reader: %v: reserved geometry kind", feature.ErrCorruptRecord)
	}

	return DecodedFeature{
		ID:          f.ID(),
		Types:       f.Types(),
		Geometry:    geometry,
		Name:        f.Names(),
		HouseNumber: f.HouseNumber(),
		Layer:       f.Layer(),
		Rank:        f.Rank(),
		Ref:         f.Ref(),
	}, nil
}
