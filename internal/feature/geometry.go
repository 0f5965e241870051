package feature

import (
	"fmt"
	"sort"

	"github.com/deepteams/tilereader/internal/bitio"
	"github.com/deepteams/tilereader/internal/pool"
)

// scaleIndexFor maps a real scale value onto the container's 0-based
// scale-index domain (spec.md §4.B "Scale-to-index mapping"): clamp
// scale to the container's last scale, then return the smallest i such
// that scale <= container.scale(i).
func scaleIndexFor(scale int, container MapContainer) int {
	codes := container.ScaleCodes()
	if len(codes) == 0 {
		return 0
	}
	last := container.LastScale()
	if scale > last {
		scale = last
	}
	sorted := append([]int(nil), codes...)
	sort.Ints(sorted)
	for i, c := range sorted {
		if scale <= c {
			return i
		}
	}
	return len(sorted) - 1
}

// resolveOuterOffset implements the sentinel + fallback rules of
// spec.md §4.B: BEST_GEOMETRY/WORST_GEOMETRY pick the highest/lowest
// populated index; an exact-scale miss retries at WORST_GEOMETRY before
// giving up. It returns the scale index the chosen offset actually
// belongs to, alongside the offset itself, since a fallback may resolve
// to a different index than the one the caller asked for.
func resolveOuterOffset(scale int, offsets map[int]int64, container MapContainer) (resolvedIndex int, offset int64, ok bool) {
	switch scale {
	case BestGeometry:
		return extremeOffset(offsets, true)
	case WorstGeometry:
		return extremeOffset(offsets, false)
	}
	idx := scaleIndexFor(scale, container)
	if off, present := offsets[idx]; present {
		return idx, off, true
	}
	return extremeOffset(offsets, false)
}

func extremeOffset(offsets map[int]int64, highest bool) (resolvedIndex int, offset int64, ok bool) {
	if len(offsets) == 0 {
		return 0, 0, false
	}
	best := -1
	for idx := range offsets {
		if best == -1 || (highest && idx > best) || (!highest && idx < best) {
			best = idx
		}
	}
	return best, offsets[best], true
}

// ParsePoints materialises the Line geometry visible at scale,
// idempotently: a second call with the same scale is a no-op (invariant
// 4, spec.md §8); a call with a different scale re-materialises the
// geometry for that scale, with or without a prior ResetGeometry.
func (f *ParsedFeature) ParsePoints(scale int) error {
	if f.kind != KindLine {
		return fmt.Errorf("feature: %w: ParsePoints on a %s feature", ErrWrongStage, f.kind)
	}
	if err := f.ParseHeader2(); err != nil {
		return err
	}
	if f.st.has(statePoints) && f.geomIsSet && f.geomScale == scale {
		return nil
	}

	if f.ptsCount > 0 {
		f.polyline = f.filterInnerLine(scale)
	} else {
		pts, err := f.fetchOuterLine(scale)
		if err != nil {
			return err
		}
		f.polyline = pts
	}

	f.limitRect = boundingRect(f.polyline)
	f.geomScale = scale
	f.geomIsSet = true
	f.st |= statePoints
	return nil
}

// filterInnerLine implements spec.md §4.B's Inner Line rule: first and
// last point always emitted; an intermediate point is emitted iff its
// marker is <= the requested scale's index. If filtering collapses to
// just the two endpoints (and there were intermediates to begin with),
// fall back to re-including every intermediate at the minimum observed
// marker, per Design Note / Open Question 3.
func (f *ParsedFeature) filterInnerLine(scale int) []Point {
	if len(f.innerPoints) == 0 {
		return nil
	}
	if len(f.innerPoints) <= 2 {
		return append([]Point(nil), f.innerPoints...)
	}

	scaleIdx := scaleIndexFor(scale, f.info.Container)
	intermediates := f.innerPoints[1 : len(f.innerPoints)-1]

	out := make([]Point, 0, len(f.innerPoints))
	out = append(out, f.innerPoints[0])
	for i, p := range intermediates {
		if int(f.simplMarkers[i]) <= scaleIdx {
			out = append(out, p)
		}
	}
	out = append(out, f.innerPoints[len(f.innerPoints)-1])

	if len(out) == 2 {
		minMarker := uint8(255)
		for _, m := range f.simplMarkers {
			if m < minMarker {
				minMarker = m
			}
		}
		out = out[:1]
		for i, p := range intermediates {
			if f.simplMarkers[i] == minMarker {
				out = append(out, p)
			}
		}
		out = append(out, f.innerPoints[len(f.innerPoints)-1])
	}
	return out
}

// fetchOuterLine implements spec.md §4.B's Outer Line rule: resolve the
// offset, seek the per-scale reader, rebind the coding params' base
// point to the header's stored first point, and decode the remaining
// delta-coded run.
func (f *ParsedFeature) fetchOuterLine(scale int) ([]Point, error) {
	idx, off, ok := resolveOuterOffset(scale, f.outerOffsets, f.info.Container)
	if !ok {
		return nil, nil
	}
	reader, ok := f.info.Container.ScaleReader(idx)
	if !ok {
		f.info.logger().Warn("feature: outer line scale reader unavailable", "scaleIndex", idx, "featureID", f.id)
		return nil, nil
	}
	buf := pool.Get(512)
	defer pool.Put(buf)
	n, err := reader.ReadAt(buf, off)
	if err != nil {
		return nil, fmt.Errorf("feature: %w: outer line read at %d: %v", ErrContainerIO, off, err)
	}
	if n <= 0 {
		return nil, nil
	}
	vr := bitio.NewVarintReader(buf[:n], 0)
	count, err := vr.ReadVarint()
	if err != nil {
		f.info.logger().Warn("feature: corrupt outer line point count", "err", err, "featureID", f.id)
		return nil, nil
	}
	base := f.outerBasePoint
	if !f.outerBaseIsSet {
		base = Point{X: f.info.Container.DefaultCodingParams().BaseX, Y: f.info.Container.DefaultCodingParams().BaseY}
	}
	pts := make([]Point, 0, count)
	prev := base
	for i := uint64(0); i < count; i++ {
		dx, err := vr.ReadZigzag()
		if err != nil {
			break
		}
		dy, err := vr.ReadZigzag()
		if err != nil {
			break
		}
		p := Point{X: prev.X + float64(dx), Y: prev.Y + float64(dy)}
		pts = append(pts, p)
		prev = p
	}
	return pts, nil
}

// ParseTriangles materialises the Area geometry visible at scale.
// Inner triangle strips are already fully in memory (no simplification
// mask for Area, spec.md §4.B) and are returned as is, independent of
// scale; outer strips are fetched per scale exactly like outer lines,
// but without base-point rebinding.
func (f *ParsedFeature) ParseTriangles(scale int) error {
	if f.kind != KindArea {
		return fmt.Errorf("feature: %w: ParseTriangles on a %s feature", ErrWrongStage, f.kind)
	}
	if err := f.ParseHeader2(); err != nil {
		return err
	}
	if f.st.has(stateTriangles) && f.geomIsSet && f.geomScale == scale {
		return nil
	}

	if f.trgCount > 0 {
		f.triStrip = append([]Point(nil), f.innerTri...)
	} else {
		pts, err := f.fetchOuterArea(scale)
		if err != nil {
			return err
		}
		f.triStrip = pts
	}

	f.limitRect = boundingRect(f.triStrip)
	f.geomScale = scale
	f.geomIsSet = true
	f.st |= stateTriangles
	return nil
}

func (f *ParsedFeature) fetchOuterArea(scale int) ([]Point, error) {
	idx, off, ok := resolveOuterOffset(scale, f.outerOffsets, f.info.Container)
	if !ok {
		return nil, nil
	}
	reader, ok := f.info.Container.ScaleReader(idx)
	if !ok {
		f.info.logger().Warn("feature: outer area scale reader unavailable", "scaleIndex", idx, "featureID", f.id)
		return nil, nil
	}
	buf := pool.Get(512)
	defer pool.Put(buf)
	n, err := reader.ReadAt(buf, off)
	if err != nil {
		return nil, fmt.Errorf("feature: %w: outer area read at %d: %v", ErrContainerIO, off, err)
	}
	if n <= 0 {
		return nil, nil
	}
	vr := bitio.NewVarintReader(buf[:n], 0)
	count, err := vr.ReadVarint()
	if err != nil {
		f.info.logger().Warn("feature: corrupt outer area point count", "err", err, "featureID", f.id)
		return nil, nil
	}
	coding := f.info.Container.DefaultCodingParams()
	pts := make([]Point, 0, count)
	prev := Point{X: coding.BaseX, Y: coding.BaseY}
	for i := uint64(0); i < count; i++ {
		dx, err := vr.ReadZigzag()
		if err != nil {
			break
		}
		dy, err := vr.ReadZigzag()
		if err != nil {
			break
		}
		p := Point{X: prev.X + float64(dx), Y: prev.Y + float64(dy)}
		pts = append(pts, p)
		prev = p
	}
	return pts, nil
}

// ResetGeometry rolls back only the geometry stages (points/triangles),
// so a different scale can be re-parsed without redoing types/common/
// header2, per spec.md §3's ParsedFeature lifecycle note.
func (f *ParsedFeature) ResetGeometry() {
	f.st &^= statePoints | stateTriangles
	f.geomIsSet = false
	f.polyline = f.polyline[:0]
	f.triStrip = f.triStrip[:0]
}

// Polyline returns the Line geometry materialised by the most recent
// ParsePoints call.
func (f *ParsedFeature) Polyline() []Point { return f.polyline }

// TriangleStrip returns the Area geometry materialised by the most
// recent ParseTriangles call.
func (f *ParsedFeature) TriangleStrip() []Point { return f.triStrip }

func boundingRect(pts []Point) MercatorRect {
	r := zeroRect()
	for _, p := range pts {
		r = r.grow(p)
	}
	return r
}
