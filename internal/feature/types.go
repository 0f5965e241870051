// Package feature implements the staged, lazy binary feature decoder:
// component B of the tile read coordinator (spec.md §4.B). A
// ParsedFeature wraps one feature record's raw bytes and exposes a set
// of idempotent Parse… methods, each advancing a monotonic parse-state
// bitfield and caching its result so a later call is a no-op.
package feature

// Point is a single Web-Mercator plane coordinate. Duplicated from the
// root package's tilereader.Point to keep this package a leaf
// dependency (spec.md §2's stated dependency order has the Feature
// Decoder built before the Read Manager, never the reverse).
type Point struct{ X, Y float64 }

// MercatorRect is an axis-aligned rectangle on the mercator plane.
type MercatorRect struct {
	MinX, MinY, MaxX, MaxY float64
}

func (r MercatorRect) grow(p Point) MercatorRect {
	if r.MinX > r.MaxX { // zero-area sentinel, first point seeds the rect
		return MercatorRect{p.X, p.Y, p.X, p.Y}
	}
	if p.X < r.MinX {
		r.MinX = p.X
	}
	if p.X > r.MaxX {
		r.MaxX = p.X
	}
	if p.Y < r.MinY {
		r.MinY = p.Y
	}
	if p.Y > r.MaxY {
		r.MaxY = p.Y
	}
	return r
}

// zeroRect is the canonical empty/invisible limit rectangle (spec.md
// §4.B: "the rect is set to zero-area so visibility checks treat the
// feature as invisible").
func zeroRect() MercatorRect {
	return MercatorRect{MinX: 1, MinY: 1, MaxX: 0, MaxY: 0}
}

// TypeID is a resolved classificator type, opaque to this package.
type TypeID uint32

// StubType is substituted for a feature-type index the Classificator
// cannot resolve; the feature is kept, not dropped (spec.md §4.B).
const StubType TypeID = 0

// Classificator resolves a raw feature-type index to a typed identifier.
type Classificator interface {
	Resolve(typeIndex uint32) (TypeID, bool)
}

// CodingParams is the default geometry coding configuration (delta base
// point) used for Point features, inner geometry, and area outer
// geometry (which is not rebased to a stored first point).
type CodingParams struct {
	BaseX, BaseY float64
}

// GeometryStream is a seekable byte stream of one scale level's outer
// geometry / triangle data.
type GeometryStream interface {
	ReadAt(p []byte, off int64) (n int, err error)
}

// MapContainer is the on-disk map container, scoped to what the
// decoder needs: default coding params, per-scale outer-geometry
// readers, and the scale-to-index table.
type MapContainer interface {
	DefaultCodingParams() CodingParams
	ScaleReader(scaleIndex int) (GeometryStream, bool)
	LastScale() int
	// ScaleCodes returns the container's ordered scale levels; ScaleCodes()[i]
	// is container.scale(i) in the scale-to-index mapping (spec.md §4.B).
	ScaleCodes() []int
}

// MetadataSource is the external metadata blob store. Full
// deserialisation and the on-demand record hydration path are both
// explicitly out of the core's scope (spec.md §1); ParseMetadata and
// ParseMetaIds are thin orchestration over this interface.
type MetadataSource interface {
	// Materialize fully deserialises the metadata blob for featureID.
	Materialize(featureID uint64) (map[TypeID]string, error)
	// Index reads only the (type, recordID) pairs for featureID.
	Index(featureID uint64) (map[TypeID]uint64, error)
	// Hydrate fetches one metadata record on demand.
	Hydrate(recordID uint64) (string, error)
}

// GeometryKind is the feature's tagged geometry variant, selected by
// the header byte's low two bits.
type GeometryKind uint8

const (
	KindPoint GeometryKind = iota
	KindLine
	KindArea
	kindReserved
)

func (k GeometryKind) String() string {
	switch k {
	case KindPoint:
		return "Point"
	case KindLine:
		return "Line"
	case KindArea:
		return "Area"
	default:
		return "Reserved"
	}
}

// Geometry scale sentinels (spec.md §4.B).
const (
	BestGeometry  = -1
	WorstGeometry = -2
)
