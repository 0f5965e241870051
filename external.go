package tilereader

import "context"

// MercatorRect is an axis-aligned rectangle on the Web-Mercator plane.
type MercatorRect struct {
	MinX, MinY, MaxX, MaxY float64
}

// Intersects reports whether r and o overlap (touching edges count as
// non-overlapping, matching an exclusive AABB test).
func (r MercatorRect) Intersects(o MercatorRect) bool {
	return r.MinX < o.MaxX && o.MinX < r.MaxX && r.MinY < o.MaxY && o.MinY < r.MaxY
}

// Point is a single Web-Mercator plane coordinate.
type Point struct{ X, Y float64 }

// Projection is the camera: a rotated polygon on the mercator plane plus
// its axis-aligned clip rectangle. Implemented by the caller's camera
// type; the core only ever reads it.
type Projection interface {
	// Corners returns the four corners of the rotated viewport polygon,
	// in order (not necessarily axis-aligned).
	Corners() [4]Point
	// ClipRect returns the axis-aligned bounding rectangle of Corners().
	ClipRect() MercatorRect
	// Intersects reports whether this projection's polygon overlaps o's.
	Intersects(o Projection) bool
	// Equal reports whether this projection is identical to o, for the
	// Manager.Update no-op short-circuit (invariant 3, spec.md §8).
	Equal(o Projection) bool
}

// FeatureRecord is one feature's raw, not-yet-parsed byte blob plus its
// byte offset inside the per-tile stream (used as the feature's
// DecodedFeature.ID and in corrupt-record warnings).
type FeatureRecord struct {
	Data   []byte
	Offset int
}

// FeatureModel is the external per-tile feature index. ForEach must
// invoke fn once per feature whose own limit rect intersects rect at
// the given scale, in whatever order the model yields them; it stops
// early if fn returns false. ctx is cancelled when the requesting
// tile's TileInfo is cancelled, so a model that honours ctx can abort
// an in-flight fetch promptly.
type FeatureModel interface {
	ForEach(ctx context.Context, rect MercatorRect, scale int, fn func(FeatureRecord) bool) error
}

// CodingParams is the default geometry coding configuration (delta base
// point etc.) used for Point features and inner geometry.
type CodingParams struct {
	BaseX, BaseY float64
}

// GeometryStream is a seekable byte stream of one scale level's outer
// geometry / triangle data.
type GeometryStream interface {
	// ReadAt reads up to len(p) bytes starting at byte offset off from
	// the start of this scale's stream (mirrors io.ReaderAt). The
	// decoder uses the returned n and treats a non-nil error as a
	// container I/O failure.
	ReadAt(p []byte, off int64) (n int, err error)
}

// MapContainer is the on-disk map container: default coding params for
// Point/inner geometry, one seekable reader per scale level for outer
// geometry, and the container's last-scale sentinel used to clamp
// oversized scale requests.
type MapContainer interface {
	DefaultCodingParams() CodingParams
	ScaleReader(scaleIndex int) (GeometryStream, bool)
	LastScale() int
	// ScaleCodes returns the container's ordered scale levels, matching
	// container.scale(i) in the scale-to-index mapping (spec.md §4.B).
	ScaleCodes() []int
}

// MetadataSource is the external metadata blob store backing a
// feature's name/tag values beyond what is inlined in its record.
type MetadataSource interface {
	Materialize(featureID uint64) (map[TypeID]string, error)
	Index(featureID uint64) (map[TypeID]uint64, error)
	Hydrate(recordID uint64) (string, error)
}

// Ticket, MemoryIndex — shared memory-pressure accounting. Acquire is
// called once at reader-task start; Release on cancellation or
// completion.
type MemoryIndex interface {
	Acquire(key TileKey) (Ticket, error)
	Release(t Ticket)
}

// TypeID is a resolved classificator type, opaque to this module.
type TypeID uint32

// Classificator resolves a feature's raw type index to a typed
// identifier. An unresolvable index is not an error condition the core
// surfaces to the caller: the Feature Decoder substitutes a stub type
// and logs a warning (spec.md §4.B).
type Classificator interface {
	Resolve(typeIndex uint32) (TypeID, bool)
}

// DecodedFeature is one feature handed to the engine after geometry
// parsing at the requested scale.
type DecodedFeature struct {
	ID          uint64
	Types       []TypeID
	Geometry    any // Point for a Point feature; []Point polyline (Line) or triangle strip (Area)
	Name        map[uint8]string
	HouseNumber string
	Layer       int32
	Rank        int32
	Ref         string
}

// EngineContext is the shared drawing context decoded features are
// appended to, and the sink for tile-drop notifications. Appending and
// dropping must be internally serialised by the implementation: the
// core calls these from arbitrary worker goroutines (AppendFeature) and
// from its single control goroutine (DropAll/DropTiles).
type EngineContext interface {
	AppendFeature(key TileKey, f DecodedFeature)
	DropAll()
	DropTiles(keys []TileKey)
}
