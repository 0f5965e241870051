package feature

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/deepteams/tilereader/internal/bitio"
)

// state is the monotonic parse-stage bitfield (spec.md §3
// "FeatureState"). Stages form a DAG: types -> common -> header2 ->
// {points | triangles}, plus the independent metadata/metaIds branches.
type state uint8

const (
	stateTypes state = 1 << iota
	stateCommon
	stateHeader2
	statePoints
	stateTriangles
	stateMetadata
	stateMetaIds
)

func (s state) has(bit state) bool { return s&bit != 0 }

// header byte presence-flag bits, following the low-two-bits-are-kind
// layout of spec.md §6. Flag allocation beyond the kind bits is this
// package's own choice (the container's exact bit order is external and
// out of scope); five independent flags fit in the remaining 6 bits of
// one byte.
const (
	flagHasName      = 1 << 2
	flagHasLayer     = 1 << 3
	flagHasHouse     = 1 << 4
	flagHasRef       = 1 << 5
	flagHasAddendum  = 1 << 6 // gates rank
	geometryKindMask = 0x3
)

// LoadInfo bundles the per-tile external collaborators a ParsedFeature
// needs to resolve types, decode geometry beyond what is inline, and
// reach metadata. It is constructed once per Tile Reader Task and
// shared by every feature the task decodes.
type LoadInfo struct {
	Classificator Classificator
	Container     MapContainer
	Metadata      MetadataSource
	Logger        *slog.Logger
}

func (li *LoadInfo) logger() *slog.Logger {
	if li == nil || li.Logger == nil {
		return discardLogger
	}
	return li.Logger
}

// discardHandler is a slog.Handler that drops every record; used when a
// LoadInfo is constructed without a Logger (e.g. in tests).
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return discardHandler{} }
func (discardHandler) WithGroup(string) slog.Handler             { return discardHandler{} }

var discardLogger = slog.New(discardHandler{})

// ParsedFeature is the working memory of one feature record: header
// fields, type array, common params, inline ("inner") geometry or the
// per-scale outer-geometry offset table, and the geometry materialised
// for the most recently requested scale. See spec.md §3.
type ParsedFeature struct {
	data []byte
	info *LoadInfo
	id   uint64

	st   state
	kind GeometryKind

	hasName, hasLayer, hasHouse, hasRef, hasAddendum bool

	types []TypeID

	name        map[uint8]string
	houseNumber string
	layer       int32
	rank        int32
	ref         string

	centre    Point
	centreSet bool

	pos      int // byte cursor, advanced by each Parse stage
	typesEnd int

	// header2 / inner geometry (Line)
	ptsCount     int
	ptsMask      uint8
	simplMarkers []uint8 // length ptsCount-2, 2-bit markers

	// header2 / inner geometry (Area)
	trgCount int
	trgMask  uint8

	innerPoints []Point // Line inner run, length ptsCount
	innerTri    []Point // Area inner strip, length trgCount+2

	outerOffsets    map[int]int64 // scaleIndex -> byte offset
	outerBasePoint  Point         // Line outer: rebind target
	outerBaseIsSet  bool

	// materialised geometry for the current scale
	geomScale  int
	geomIsSet  bool
	polyline   []Point
	triStrip   []Point
	limitRect  MercatorRect

	metaBlob map[TypeID]string
	metaIdx  map[TypeID]uint64
}

// New constructs a ParsedFeature over data (one feature record's raw
// bytes) with the given collaborators, and parses the header byte — the
// only stage that is not deferred, since every later stage needs the
// geometry kind and presence flags. id is the feature's stable
// identity, used for metadata lookups and delivered to the engine as
// DecodedFeature.ID.
func New(data []byte, id uint64, info *LoadInfo) (*ParsedFeature, error) {
	if info == nil {
		panic(errMissingLoadInfo)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("feature: %w: empty record", ErrCorruptRecord)
	}
	f := acquire()
	f.data = data
	f.info = info
	f.id = id
	header := data[0]
	f.kind = GeometryKind(header & geometryKindMask)
	f.hasName = header&flagHasName != 0
	f.hasLayer = header&flagHasLayer != 0
	f.hasHouse = header&flagHasHouse != 0
	f.hasRef = header&flagHasRef != 0
	f.hasAddendum = header&flagHasAddendum != 0
	f.pos = 1
	f.limitRect = zeroRect()
	return f, nil
}

// Release returns f to the internal pool. Callers must not use f after
// calling Release.
func Release(f *ParsedFeature) { release(f) }

func (f *ParsedFeature) ID() uint64         { return f.id }
func (f *ParsedFeature) Kind() GeometryKind { return f.kind }

// ParseTypes reads the type-index array, resolving each index through
// the Classificator. An unresolvable index is replaced by StubType and
// logged, per spec.md §4.B; the feature is never dropped for this
// reason.
func (f *ParsedFeature) ParseTypes() error {
	if f.st.has(stateTypes) {
		return nil
	}
	vr := bitio.NewVarintReader(f.data, f.pos)
	count, err := vr.ReadVarint()
	if err != nil {
		return fmt.Errorf("feature: %w: types count: %v", ErrCorruptRecord, err)
	}
	types := make([]TypeID, 0, count)
	for i := uint64(0); i < count; i++ {
		idx, err := vr.ReadVarint()
		if err != nil {
			return fmt.Errorf("feature: %w: type index %d: %v", ErrCorruptRecord, i, err)
		}
		resolved, ok := f.info.Classificator.Resolve(uint32(idx))
		if !ok {
			f.info.logger().Warn("feature: unresolved classificator index, substituting stub type",
				"typeIndex", idx, "featureID", f.id)
			resolved = StubType
		}
		types = append(types, resolved)
	}
	f.types = types
	f.pos = vr.Pos()
	f.typesEnd = f.pos
	f.st |= stateTypes
	return nil
}

// Types returns the feature's resolved types. ParseTypes must have been
// called (directly or via a later Parse… call) first.
func (f *ParsedFeature) Types() []TypeID { return f.types }

// ParseCommon reads the name dictionary and optional house
// number/layer/ref/rank fields gated by the header's presence flags,
// and for Point features decodes the single centre point.
func (f *ParsedFeature) ParseCommon() error {
	if f.st.has(stateCommon) {
		return nil
	}
	if err := f.ParseTypes(); err != nil {
		return err
	}
	vr := bitio.NewVarintReader(f.data, f.pos)

	if f.hasName {
		blobLen, err := vr.ReadVarint()
		if err != nil {
			return fmt.Errorf("feature: %w: name blob length: %v", ErrCorruptRecord, err)
		}
		end := vr.Pos() + int(blobLen)
		if end > len(f.data) {
			return fmt.Errorf("feature: %w: name blob overruns record", ErrCorruptRecord)
		}
		names := make(map[uint8]string)
		for vr.Pos() < end {
			lang, err := vr.ReadByte()
			if err != nil {
				return fmt.Errorf("feature: %w: name lang code: %v", ErrCorruptRecord, err)
			}
			strLen, err := vr.ReadVarint()
			if err != nil {
				return fmt.Errorf("feature: %w: name string length: %v", ErrCorruptRecord, err)
			}
			b, err := vr.ReadBytes(int(strLen))
			if err != nil {
				return fmt.Errorf("feature: %w: name string: %v", ErrCorruptRecord, err)
			}
			names[lang] = string(b)
		}
		f.name = names
		vr.Seek(end)
	}

	if f.hasHouse {
		n, err := vr.ReadVarint()
		if err != nil {
			return fmt.Errorf("feature: %w: house number length: %v", ErrCorruptRecord, err)
		}
		b, err := vr.ReadBytes(int(n))
		if err != nil {
			return fmt.Errorf("feature: %w: house number: %v", ErrCorruptRecord, err)
		}
		f.houseNumber = string(b)
	}

	if f.hasLayer {
		v, err := vr.ReadZigzag()
		if err != nil {
			return fmt.Errorf("feature: %w: layer: %v", ErrCorruptRecord, err)
		}
		f.layer = int32(v)
	}

	if f.hasAddendum {
		v, err := vr.ReadVarint()
		if err != nil {
			return fmt.Errorf("feature: %w: rank: %v", ErrCorruptRecord, err)
		}
		f.rank = int32(v)
	}

	if f.hasRef {
		n, err := vr.ReadVarint()
		if err != nil {
			return fmt.Errorf("feature: %w: ref length: %v", ErrCorruptRecord, err)
		}
		b, err := vr.ReadBytes(int(n))
		if err != nil {
			return fmt.Errorf("feature: %w: ref: %v", ErrCorruptRecord, err)
		}
		f.ref = string(b)
	}

	if f.kind == KindPoint {
		dx, err := vr.ReadZigzag()
		if err != nil {
			return fmt.Errorf("feature: %w: point dx: %v", ErrCorruptRecord, err)
		}
		dy, err := vr.ReadZigzag()
		if err != nil {
			return fmt.Errorf("feature: %w: point dy: %v", ErrCorruptRecord, err)
		}
		coding := f.info.Container.DefaultCodingParams()
		f.centre = Point{X: coding.BaseX + float64(dx), Y: coding.BaseY + float64(dy)}
		f.centreSet = true
		f.limitRect = zeroRect().grow(f.centre)
	}

	f.pos = vr.Pos()
	f.st |= stateCommon
	return nil
}

func (f *ParsedFeature) Name(lang uint8) (string, bool) {
	s, ok := f.name[lang]
	return s, ok
}

// Names returns the full language-code -> name map decoded by
// ParseCommon, or nil if the feature carries no name dictionary.
func (f *ParsedFeature) Names() map[uint8]string { return f.name }

func (f *ParsedFeature) HouseNumber() string { return f.houseNumber }
func (f *ParsedFeature) Layer() int32        { return f.layer }
func (f *ParsedFeature) Rank() int32         { return f.rank }
func (f *ParsedFeature) Ref() string         { return f.ref }

// Centre returns the decoded centre point for a Point feature.
func (f *ParsedFeature) Centre() (Point, bool) { return f.centre, f.centreSet }

// LimitRect returns the feature's current limit rectangle, updated
// monotonically as geometry is parsed.
func (f *ParsedFeature) LimitRect() MercatorRect { return f.limitRect }
