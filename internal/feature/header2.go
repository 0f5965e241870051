package feature

import (
	"fmt"

	"github.com/deepteams/tilereader/internal/bitio"
)

// ParseHeader2 reads the bit-packed geometry prefix (spec.md §3, §6):
// for Line/Area, a 4-bit count, and — when the count is zero — a
// further 4-bit presence mask over the per-scale outer-geometry offset
// table. Point features have no header2; the stage is simply marked
// parsed. Non-zero count means the geometry is stored inline ("inner");
// the raw inner run is decoded here but not yet filtered to any
// requested scale — that happens in ParsePoints/ParseTriangles.
func (f *ParsedFeature) ParseHeader2() error {
	if f.st.has(stateHeader2) {
		return nil
	}
	if err := f.ParseCommon(); err != nil {
		return err
	}
	if f.kind == KindPoint {
		f.st |= stateHeader2
		return nil
	}

	br := bitio.NewReader(f.data[f.pos:])
	switch f.kind {
	case KindLine:
		f.ptsCount = int(br.ReadBits(4))
		if br.EndOfStream() {
			return fmt.Errorf("feature: %w: header2 ptsCount", ErrCorruptRecord)
		}
		if f.ptsCount == 0 {
			f.ptsMask = uint8(br.ReadBits(4))
		} else {
			if err := f.readLineSimplMarkers(br); err != nil {
				return err
			}
		}
	case KindArea:
		f.trgCount = int(br.ReadBits(4))
		if br.EndOfStream() {
			return fmt.Errorf("feature: %w: header2 trgCount", ErrCorruptRecord)
		}
		if f.trgCount == 0 {
			f.trgMask = uint8(br.ReadBits(4))
		}
	default:
		return fmt.Errorf("feature: %w: reserved geometry kind", ErrCorruptRecord)
	}

	f.pos += br.Align()

	vr := bitio.NewVarintReader(f.data, f.pos)
	switch {
	case f.kind == KindLine && f.ptsCount > 0:
		if err := f.readInnerLine(vr); err != nil {
			return err
		}
	case f.kind == KindLine:
		if err := f.readOuterOffsets(vr, f.ptsMask); err != nil {
			return err
		}
		// The header stores one rebinding base point for outer Line
		// lookups (spec.md §4.B: "re-bind the coding params' base point
		// to the header's stored first point").
		dx, err := vr.ReadZigzag()
		if err != nil {
			return fmt.Errorf("feature: %w: outer line base point dx: %v", ErrCorruptRecord, err)
		}
		dy, err := vr.ReadZigzag()
		if err != nil {
			return fmt.Errorf("feature: %w: outer line base point dy: %v", ErrCorruptRecord, err)
		}
		coding := f.info.Container.DefaultCodingParams()
		f.outerBasePoint = Point{X: coding.BaseX + float64(dx), Y: coding.BaseY + float64(dy)}
		f.outerBaseIsSet = true
	case f.kind == KindArea && f.trgCount > 0:
		if err := f.readInnerArea(vr); err != nil {
			return err
		}
	case f.kind == KindArea:
		if err := f.readOuterOffsets(vr, f.trgMask); err != nil {
			return err
		}
	}
	f.pos = vr.Pos()

	f.st |= stateHeader2
	return nil
}

// readLineSimplMarkers reads the ceil((ptsCount-2)/4) simplification
// mask bytes that precede a Line's inner point run, each packing four
// 2-bit markers LSB-first.
func (f *ParsedFeature) readLineSimplMarkers(br *bitio.Reader) error {
	intermediates := f.ptsCount - 2
	if intermediates < 0 {
		return fmt.Errorf("feature: %w: ptsCount < 2 for inline line geometry", ErrCorruptRecord)
	}
	maskBytes := (intermediates + 3) / 4
	markers := make([]uint8, 0, intermediates)
	for i := 0; i < maskBytes; i++ {
		b := br.ReadBits(8)
		if br.EndOfStream() {
			return fmt.Errorf("feature: %w: simplification mask byte %d", ErrCorruptRecord, i)
		}
		for bit := 0; bit < 4 && len(markers) < intermediates; bit++ {
			markers = append(markers, uint8(b>>(2*bit))&0x3)
		}
	}
	f.simplMarkers = markers
	return nil
}

// readInnerLine delta-decodes ptsCount points: the first against the
// container's default coding params, every later point against the
// previous one.
func (f *ParsedFeature) readInnerLine(vr *bitio.VarintReader) error {
	coding := f.info.Container.DefaultCodingParams()
	pts := make([]Point, 0, f.ptsCount)
	prev := Point{X: coding.BaseX, Y: coding.BaseY}
	for i := 0; i < f.ptsCount; i++ {
		dx, err := vr.ReadZigzag()
		if err != nil {
			return fmt.Errorf("feature: %w: inner line point %d dx: %v", ErrCorruptRecord, i, err)
		}
		dy, err := vr.ReadZigzag()
		if err != nil {
			return fmt.Errorf("feature: %w: inner line point %d dy: %v", ErrCorruptRecord, i, err)
		}
		p := Point{X: prev.X + float64(dx), Y: prev.Y + float64(dy)}
		pts = append(pts, p)
		prev = p
	}
	f.innerPoints = pts
	return nil
}

// readInnerArea delta-decodes a trgCount+2 point triangle strip; Area
// inline geometry carries no simplification mask (spec.md §4.B).
func (f *ParsedFeature) readInnerArea(vr *bitio.VarintReader) error {
	coding := f.info.Container.DefaultCodingParams()
	n := f.trgCount + 2
	pts := make([]Point, 0, n)
	prev := Point{X: coding.BaseX, Y: coding.BaseY}
	for i := 0; i < n; i++ {
		dx, err := vr.ReadZigzag()
		if err != nil {
			return fmt.Errorf("feature: %w: inner area point %d dx: %v", ErrCorruptRecord, i, err)
		}
		dy, err := vr.ReadZigzag()
		if err != nil {
			return fmt.Errorf("feature: %w: inner area point %d dy: %v", ErrCorruptRecord, i, err)
		}
		p := Point{X: prev.X + float64(dx), Y: prev.Y + float64(dy)}
		pts = append(pts, p)
		prev = p
	}
	f.innerTri = pts
	return nil
}

// readOuterOffsets reads one varint offset per set bit in mask, in
// LSB-first mask order, storing each under its bit index (the scale
// index it corresponds to).
func (f *ParsedFeature) readOuterOffsets(vr *bitio.VarintReader, mask uint8) error {
	offsets := make(map[int]int64)
	for bit := 0; bit < 4; bit++ {
		if mask&(1<<bit) == 0 {
			continue
		}
		off, err := vr.ReadVarint()
		if err != nil {
			return fmt.Errorf("feature: %w: outer offset bit %d: %v", ErrCorruptRecord, bit, err)
		}
		offsets[bit] = int64(off)
	}
	f.outerOffsets = offsets
	return nil
}
