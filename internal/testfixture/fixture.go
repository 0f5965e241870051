// Package testfixture provides in-memory test doubles for every
// external collaborator the root package declares in external.go
// (FeatureModel, MapContainer, Classificator, MemoryIndex,
// EngineContext), plus a byte-level encoder for building known-good
// feature records. It is grounded on the corpus's habit of building
// test fixtures by hand-assembling byte buffers rather than mocking an
// I/O layer (internal/container's parser tests, mux's demux tests, in
// the teacher's own retrieval pack).
package testfixture

import (
	"context"
	"sync"

	"github.com/deepteams/tilereader"
	"github.com/deepteams/tilereader/internal/bitio"
)

// Record is one encoded feature plus the rectangle ForEach filters it
// by. Its position in the Model is handed to decoders as
// tilereader.FeatureRecord.Offset.
type Record struct {
	Data []byte
	Rect tilereader.MercatorRect
}

// Model is an in-memory FeatureModel: a flat list of records, filtered
// by rectangle intersection at ForEach time. It does not filter by
// scale — every record is visible at every scale, matching the
// corpus's test-double style of keeping fixtures minimal.
type Model struct {
	mu      sync.Mutex
	records []Record
}

// NewModel creates an empty Model.
func NewModel() *Model { return &Model{} }

// Add appends a record at the given rectangle; ForEach reports its
// 0-based position among all added records as its Offset.
func (m *Model) Add(data []byte, rect tilereader.MercatorRect) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, Record{Data: data, Rect: rect})
}

// ForEach implements tilereader.FeatureModel.
func (m *Model) ForEach(ctx context.Context, rect tilereader.MercatorRect, scale int, fn func(tilereader.FeatureRecord) bool) error {
	m.mu.Lock()
	records := append([]Record(nil), m.records...)
	m.mu.Unlock()

	for i, r := range records {
		if ctx.Err() != nil {
			return nil
		}
		if !rect.Intersects(r.Rect) {
			continue
		}
		if !fn(tilereader.FeatureRecord{Data: r.Data, Offset: i}) {
			return nil
		}
	}
	return nil
}

// scaleStream is an in-memory tilereader.GeometryStream over a fixed
// byte slice.
type scaleStream struct{ data []byte }

func (s scaleStream) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || int(off) > len(s.data) {
		return 0, nil
	}
	n := copy(p, s.data[off:])
	return n, nil
}

// Container is an in-memory tilereader.MapContainer.
type Container struct {
	Coding   tilereader.CodingParams
	Last     int
	Codes    []int
	Streams  map[int][]byte
}

// NewContainer creates a Container with the given default coding
// params and ordered scale codes; Last is the highest code.
func NewContainer(coding tilereader.CodingParams, codes []int) *Container {
	last := 0
	for _, c := range codes {
		if c > last {
			last = c
		}
	}
	return &Container{Coding: coding, Last: last, Codes: codes, Streams: make(map[int][]byte)}
}

func (c *Container) DefaultCodingParams() tilereader.CodingParams { return c.Coding }

func (c *Container) ScaleReader(scaleIndex int) (tilereader.GeometryStream, bool) {
	data, ok := c.Streams[scaleIndex]
	if !ok {
		return nil, false
	}
	return scaleStream{data: data}, true
}

func (c *Container) LastScale() int { return c.Last }

func (c *Container) ScaleCodes() []int { return c.Codes }

// SetScaleStream registers the outer-geometry byte stream for one
// scale index, built via EncodeOuterPoints.
func (c *Container) SetScaleStream(scaleIndex int, data []byte) {
	c.Streams[scaleIndex] = data
}

// Classificator is an identity tilereader.Classificator: every raw
// type index resolves to itself, except indices listed in Unknown,
// which report a miss (exercising the Feature Decoder's stub-type
// substitution path).
type Classificator struct {
	Unknown map[uint32]bool
}

func (c Classificator) Resolve(typeIndex uint32) (tilereader.TypeID, bool) {
	if c.Unknown != nil && c.Unknown[typeIndex] {
		return 0, false
	}
	return tilereader.TypeID(typeIndex), true
}

// MemoryIndex is an in-memory, unbounded tilereader.MemoryIndex that
// records acquire/release counts per tile for test assertions.
type MemoryIndex struct {
	mu        sync.Mutex
	acquired  map[tilereader.TileKey]int
	released  map[tilereader.TileKey]int
}

// NewMemoryIndex creates an empty MemoryIndex.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{acquired: map[tilereader.TileKey]int{}, released: map[tilereader.TileKey]int{}}
}

func (m *MemoryIndex) Acquire(key tilereader.TileKey) (tilereader.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acquired[key]++
	return key, nil
}

func (m *MemoryIndex) Release(t tilereader.Ticket) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key, ok := t.(tilereader.TileKey)
	if !ok {
		return
	}
	m.released[key]++
}

// Counts returns the acquire/release counts observed for key.
func (m *MemoryIndex) Counts(key tilereader.TileKey) (acquired, released int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquired[key], m.released[key]
}

// Engine is an in-memory tilereader.EngineContext: it records every
// appended feature by TileKey and every drop notification, guarded by
// a mutex since AppendFeature is called concurrently from worker
// goroutines (spec.md §5's "shared state" contract).
type Engine struct {
	mu       sync.Mutex
	features map[tilereader.TileKey][]tilereader.DecodedFeature
	dropAll  int
	dropped  []tilereader.TileKey
}

// NewEngine creates an empty Engine.
func NewEngine() *Engine {
	return &Engine{features: map[tilereader.TileKey][]tilereader.DecodedFeature{}}
}

func (e *Engine) AppendFeature(key tilereader.TileKey, f tilereader.DecodedFeature) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.features[key] = append(e.features[key], f)
}

func (e *Engine) DropAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dropAll++
	e.features = map[tilereader.TileKey][]tilereader.DecodedFeature{}
}

func (e *Engine) DropTiles(keys []tilereader.TileKey) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dropped = append(e.dropped, keys...)
	for _, k := range keys {
		delete(e.features, k)
	}
}

// Features returns a snapshot of the features appended for key.
func (e *Engine) Features(key tilereader.TileKey) []tilereader.DecodedFeature {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]tilereader.DecodedFeature(nil), e.features[key]...)
}

// TileCount returns the number of tiles with at least one appended
// feature still live.
func (e *Engine) TileCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.features)
}

// DropAllCount returns how many times DropAll was called.
func (e *Engine) DropAllCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dropAll
}

// Dropped returns every TileKey ever passed to DropTiles, in call order.
func (e *Engine) Dropped() []tilereader.TileKey {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]tilereader.TileKey(nil), e.dropped...)
}

// geometryKind mirrors internal/feature's header-byte kind tag; kept
// as untyped constants here rather than importing internal/feature, so
// this package's encoder stays a pure byte-format fixture independent
// of the decoder's internal state machine.
const (
	kindPoint = 0
	kindLine  = 1
	kindArea  = 2
)

// EncodePoint builds a minimal Point feature record: header byte (kind
// only, no optional fields), an empty type list, and a delta-coded
// centre against coding.
func EncodePoint(coding tilereader.CodingParams, dx, dy int64) []byte {
	w := bitio.NewWriter(32)
	w.WriteBits(kindPoint, 8)
	w.WriteVarint(0) // typesCount
	w.WriteZigzag(dx)
	w.WriteZigzag(dy)
	return w.Finish()
}

// EncodeInnerLine builds a Line feature record whose geometry is fully
// inline: ptsCount (<= 15) points — the intermediate len(pts)-2 of
// which each carry a 2-bit simplification marker from markers, packed
// four to a byte LSB-first in ceil((ptsCount-2)/4) mask bytes —
// delta-coded against coding and each other. WriteZigzag aligns to a
// byte boundary before the first point, matching ParseHeader2's own
// br.Align() call between the bit-packed prefix and the varint run.
func EncodeInnerLine(coding tilereader.CodingParams, pts []tilereader.Point, markers []uint8) []byte {
	w := bitio.NewWriter(64)
	w.WriteBits(kindLine, 8)
	w.WriteVarint(0) // typesCount

	w.WriteBits(uint32(len(pts)), 4)
	maskBytes := (len(pts) - 2 + 3) / 4
	for i := 0; i < maskBytes; i++ {
		var b uint32
		for j := 0; j < 4 && i*4+j < len(markers); j++ {
			b |= uint32(markers[i*4+j]&0x3) << (2 * j)
		}
		w.WriteBits(b, 8)
	}

	prev := tilereader.Point{X: coding.BaseX, Y: coding.BaseY}
	for _, p := range pts {
		w.WriteZigzag(int64(p.X - prev.X))
		w.WriteZigzag(int64(p.Y - prev.Y))
		prev = p
	}
	return w.Finish()
}

// EncodeOuterLine builds a Line feature record whose geometry lives in
// an external per-scale stream: the header carries the offset table
// (one varint per populated scale index, keyed by a 4-bit presence
// mask) plus one rebind base point, per internal/feature's outer-line
// contract.
func EncodeOuterLine(coding tilereader.CodingParams, offsets map[int]int64, rebind tilereader.Point) []byte {
	w := bitio.NewWriter(64)
	w.WriteBits(kindLine, 8)
	w.WriteVarint(0) // typesCount

	var mask uint32
	for idx := range offsets {
		mask |= 1 << uint(idx)
	}
	w.WriteBits(0, 4) // ptsCount == 0 selects the outer path
	w.WriteBits(mask, 4)
	w.Align()

	for i := 0; i < 4; i++ {
		if mask&(1<<uint(i)) != 0 {
			w.WriteVarint(uint64(offsets[i]))
		}
	}
	w.WriteZigzag(int64(rebind.X - coding.BaseX))
	w.WriteZigzag(int64(rebind.Y - coding.BaseY))
	return w.Finish()
}

// EncodeOuterPoints builds the raw per-scale stream fetchOuterLine/
// fetchOuterArea read via MapContainer.ScaleReader: a varint point
// count followed by delta-coded points against base.
func EncodeOuterPoints(base tilereader.Point, pts []tilereader.Point) []byte {
	w := bitio.NewWriter(64)
	w.WriteVarint(uint64(len(pts)))
	prev := base
	for _, p := range pts {
		w.WriteZigzag(int64(p.X - prev.X))
		w.WriteZigzag(int64(p.Y - prev.Y))
		prev = p
	}
	return w.Finish()
}

// EncodeInnerArea builds an Area feature record with trgCount+2 inline
// triangle-strip points, delta-coded against coding and each other.
func EncodeInnerArea(coding tilereader.CodingParams, pts []tilereader.Point) []byte {
	w := bitio.NewWriter(64)
	w.WriteBits(kindArea, 8)
	w.WriteVarint(0) // typesCount

	trgCount := len(pts) - 2
	if trgCount < 0 {
		trgCount = 0
	}
	w.WriteBits(uint32(trgCount), 4)
	w.Align()

	prev := tilereader.Point{X: coding.BaseX, Y: coding.BaseY}
	for _, p := range pts {
		w.WriteZigzag(int64(p.X - prev.X))
		w.WriteZigzag(int64(p.Y - prev.Y))
		prev = p
	}
	return w.Finish()
}
