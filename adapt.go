package tilereader

import (
	"context"

	"github.com/deepteams/tilereader/internal/feature"
	"github.com/deepteams/tilereader/internal/reader"
)

// This file adapts the root package's external interfaces (external.go)
// to the narrower, duplicated-type interfaces internal/feature and
// internal/reader declare for themselves as leaf packages (spec.md §2's
// dependency order: those packages are built before, and never import,
// the Read Manager). The conversions are mechanical — same fields,
// different named types — and exist only at this one wiring boundary.

// classificatorAdapter adapts a Classificator to feature.Classificator.
type classificatorAdapter struct{ c Classificator }

func (a classificatorAdapter) Resolve(typeIndex uint32) (feature.TypeID, bool) {
	t, ok := a.c.Resolve(typeIndex)
	return feature.TypeID(t), ok
}

// mapContainerAdapter adapts a MapContainer to feature.MapContainer.
type mapContainerAdapter struct{ c MapContainer }

func (a mapContainerAdapter) DefaultCodingParams() feature.CodingParams {
	p := a.c.DefaultCodingParams()
	return feature.CodingParams{BaseX: p.BaseX, BaseY: p.BaseY}
}

func (a mapContainerAdapter) ScaleReader(scaleIndex int) (feature.GeometryStream, bool) {
	return a.c.ScaleReader(scaleIndex)
}

func (a mapContainerAdapter) LastScale() int { return a.c.LastScale() }

func (a mapContainerAdapter) ScaleCodes() []int { return a.c.ScaleCodes() }

// metadataSourceAdapter adapts a MetadataSource to feature.MetadataSource.
type metadataSourceAdapter struct{ m MetadataSource }

func (a metadataSourceAdapter) Materialize(featureID uint64) (map[feature.TypeID]string, error) {
	src, err := a.m.Materialize(featureID)
	if err != nil {
		return nil, err
	}
	out := make(map[feature.TypeID]string, len(src))
	for k, v := range src {
		out[feature.TypeID(k)] = v
	}
	return out, nil
}

func (a metadataSourceAdapter) Index(featureID uint64) (map[feature.TypeID]uint64, error) {
	src, err := a.m.Index(featureID)
	if err != nil {
		return nil, err
	}
	out := make(map[feature.TypeID]uint64, len(src))
	for k, v := range src {
		out[feature.TypeID(k)] = v
	}
	return out, nil
}

func (a metadataSourceAdapter) Hydrate(recordID uint64) (string, error) {
	return a.m.Hydrate(recordID)
}

// featureModelAdapter adapts a FeatureModel to reader.FeatureModel: the
// two interfaces differ only in which package's MercatorRect/FeatureRecord
// they name.
type featureModelAdapter struct{ m FeatureModel }

func (a featureModelAdapter) ForEach(ctx context.Context, rect reader.MercatorRect, scale int, fn func(reader.FeatureRecord) bool) error {
	return a.m.ForEach(ctx, MercatorRect(rect), scale, func(r FeatureRecord) bool {
		return fn(reader.FeatureRecord{Data: r.Data, Offset: r.Offset})
	})
}

// memIndexAdapter adapts the keyed MemoryIndex to the per-task
// reader.MemoryIndex by closing over the tile's TileInfo. The acquired
// ticket is also recorded on the TileInfo itself for diagnostics; when a
// survivor has two reader tasks running, each acquire overwrites the
// previous one, so TileInfo.GetTicket shows only the most recent ticket.
// Each task's own Release call governs its ticket's lifetime.
type memIndexAdapter struct {
	idx  MemoryIndex
	info *TileInfo
}

func (a memIndexAdapter) Acquire() (reader.Ticket, error) {
	t, err := a.idx.Acquire(a.info.Key())
	if err != nil {
		return nil, err
	}
	a.info.SetTicket(t)
	return reader.Ticket(t), nil
}

func (a memIndexAdapter) Release(t reader.Ticket) { a.idx.Release(Ticket(t)) }

// engineSink adapts EngineContext to the per-tile reader.Sink by
// closing over the tile's key and converting reader.DecodedFeature to
// the root package's DecodedFeature, including its geometry
// (feature.Point -> Point, []feature.Point -> []Point).
type engineSink struct {
	engine EngineContext
	key    TileKey
}

func (s engineSink) AppendFeature(f reader.DecodedFeature) {
	types := make([]TypeID, len(f.Types))
	for i, t := range f.Types {
		types[i] = TypeID(t)
	}
	geometry := f.Geometry
	switch g := f.Geometry.(type) {
	case feature.Point:
		geometry = Point(g)
	case []feature.Point:
		pts := make([]Point, len(g))
		for i, p := range g {
			pts[i] = Point(p)
		}
		geometry = pts
	}
	s.engine.AppendFeature(s.key, DecodedFeature{
		ID:          f.ID,
		Types:       types,
		Geometry:    geometry,
		Name:        f.Name,
		HouseNumber: f.HouseNumber,
		Layer:       f.Layer,
		Rank:        f.Rank,
		Ref:         f.Ref,
	})
}
