package feature

import (
	"github.com/deepteams/tilereader/internal/bitio"
)

// fakeContainer is a minimal in-memory MapContainer test double.
type fakeContainer struct {
	coding  CodingParams
	scales  []int
	last    int
	streams map[int][]byte
	failOn  map[int]error // scaleIndex -> error ScaleReader's stream should return from ReadAt
}

func (c *fakeContainer) DefaultCodingParams() CodingParams { return c.coding }

func (c *fakeContainer) ScaleReader(idx int) (GeometryStream, bool) {
	if err, ok := c.failOn[idx]; ok {
		return failingStream{err: err}, true
	}
	b, ok := c.streams[idx]
	if !ok {
		return nil, false
	}
	return &memStream{data: b}, true
}

func (c *fakeContainer) LastScale() int    { return c.last }
func (c *fakeContainer) ScaleCodes() []int { return c.scales }

type memStream struct{ data []byte }

func (m *memStream) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || int(off) > len(m.data) {
		return 0, nil
	}
	n := copy(p, m.data[off:])
	return n, nil
}

func defaultContainer() *fakeContainer {
	return &fakeContainer{
		coding:  CodingParams{BaseX: 1000, BaseY: 2000},
		scales:  []int{0, 5, 10, 15},
		last:    15,
		streams: map[int][]byte{},
	}
}

func defaultLoadInfo(c *fakeContainer) *LoadInfo {
	return &LoadInfo{
		Classificator: staticClassificator{1: 100, 2: 200},
		Container:     c,
	}
}

const (
	headerKindPoint = byte(KindPoint)
	headerKindLine  = byte(KindLine)
	headerKindArea  = byte(KindArea)
)

// buildHeaderByte packs the geometry kind and presence flags into byte 0.
func buildHeaderByte(kind GeometryKind, hasName, hasLayer, hasHouse, hasRef, hasAddendum bool) byte {
	b := byte(kind)
	if hasName {
		b |= flagHasName
	}
	if hasLayer {
		b |= flagHasLayer
	}
	if hasHouse {
		b |= flagHasHouse
	}
	if hasRef {
		b |= flagHasRef
	}
	if hasAddendum {
		b |= flagHasAddendum
	}
	return b
}

// recordBuilder assembles a feature record byte-for-byte in the layout
// ParsedFeature expects, for round-trip tests.
type recordBuilder struct {
	w      *bitio.Writer
	coding CodingParams
}

func newRecordBuilder(header byte, types []uint32, coding CodingParams) *recordBuilder {
	w := bitio.NewWriter(64)
	w.WriteBits(uint32(header), 8)
	w.WriteVarint(uint64(len(types)))
	for _, t := range types {
		w.WriteVarint(uint64(t))
	}
	return &recordBuilder{w: w, coding: coding}
}

func (b *recordBuilder) pointCentre(dx, dy int64) *recordBuilder {
	b.w.WriteZigzag(dx)
	b.w.WriteZigzag(dy)
	return b
}

// lineHeader2Inline writes ptsCount (non-zero) plus, for >2 points, the
// packed 2-bit simplification markers.
func (b *recordBuilder) lineHeader2Inline(ptsCount int, markers []uint8) *recordBuilder {
	b.w.WriteBits(uint32(ptsCount), 4)
	maskBytes := (ptsCount - 2 + 3) / 4
	for i := 0; i < maskBytes; i++ {
		var byteVal uint32
		for bit := 0; bit < 4; bit++ {
			mi := i*4 + bit
			if mi < len(markers) {
				byteVal |= uint32(markers[mi]) << (2 * bit)
			}
		}
		b.w.WriteBits(byteVal, 8)
	}
	b.w.Align()
	return b
}

func (b *recordBuilder) deltaPoints(pts []Point) *recordBuilder {
	prev := Point{X: b.coding.BaseX, Y: b.coding.BaseY}
	for _, p := range pts {
		b.w.WriteZigzag(int64(p.X - prev.X))
		b.w.WriteZigzag(int64(p.Y - prev.Y))
		prev = p
	}
	return b
}

// lineHeader2Outer writes ptsCount=0 and the 4-bit presence mask only.
// The caller writes what ParseHeader2 reads next, in order: the offset
// varints (offset) and then the rebinding base point (outerBasePoint).
func (b *recordBuilder) lineHeader2Outer(mask uint8) *recordBuilder {
	b.w.WriteBits(0, 4)
	b.w.WriteBits(uint32(mask), 4)
	b.w.Align()
	return b
}

func (b *recordBuilder) offset(v int64) *recordBuilder {
	b.w.WriteVarint(uint64(v))
	return b
}

func (b *recordBuilder) outerBasePoint(p Point) *recordBuilder {
	dx := int64(p.X - b.coding.BaseX)
	dy := int64(p.Y - b.coding.BaseY)
	b.w.WriteZigzag(dx)
	b.w.WriteZigzag(dy)
	return b
}

func (b *recordBuilder) areaHeader2Inline(trgCount int) *recordBuilder {
	b.w.WriteBits(uint32(trgCount), 4)
	b.w.Align()
	return b
}

func (b *recordBuilder) areaHeader2Outer(mask uint8) *recordBuilder {
	b.w.WriteBits(0, 4)
	b.w.WriteBits(uint32(mask), 4)
	b.w.Align()
	return b
}

func (b *recordBuilder) finish() []byte { return b.w.Finish() }

// outerPointStream encodes a scale-level geometry stream: a varint point
// count followed by delta-coded points against base.
func outerPointStream(base Point, pts []Point) []byte {
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
