// Package scales implements viewport-to-tile-scale mapping and tile
// enumeration: component A of the tile read coordinator (spec.md §4.A).
// It is pure geometry over a rotated polygon and an axis-aligned clip
// rectangle — no I/O, no goroutines.
package scales

import "math"

// Point is a single plane coordinate, duplicated from the root
// package's tilereader.Point to keep this package import-free of the
// root (it is a leaf dependency per spec.md §2's dependency order).
type Point struct{ X, Y float64 }

// Rect is an axis-aligned mercator-plane rectangle.
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

func (r Rect) Intersects(o Rect) bool {
	return r.MinX < o.MaxX && o.MinX < r.MaxX && r.MinY < o.MaxY && o.MinY < r.MaxY
}

// Key is a tile grid cell coordinate, duplicated from the root
// package's tilereader.TileKey for the same leaf-dependency reason.
type Key struct {
	X, Y int32
	Z    uint8
}

// Extent is the full mercator-plane square the grid is laid out over
// (tileScale 0 is one cell covering the whole extent).
type Extent struct {
	MinX, MinY, MaxX, MaxY float64
}

func (e Extent) width() float64  { return e.MaxX - e.MinX }
func (e Extent) height() float64 { return e.MaxY - e.MinY }

// Viewport is the rotated polygon plus its axis-aligned clip rectangle
// that a camera exposes at one instant.
type Viewport struct {
	Corners  [4]Point
	ClipRect Rect
}

// TileScale computes the integer zoom level z such that the grid cell
// size r = extent.width() / 2^z best matches the viewport's visible
// span, per spec.md §4.A. It picks the finest z whose cell size is not
// smaller than the viewport's shorter clip-rect side divided by a
// fixed target cell count, clamped to [0, maxScale].
func TileScale(v Viewport, extent Extent, maxScale int) int {
	spanX := v.ClipRect.MaxX - v.ClipRect.MinX
	spanY := v.ClipRect.MaxY - v.ClipRect.MinY
	span := math.Min(spanX, spanY)
	if span <= 0 {
		return maxScale
	}
	const targetCellsAcrossViewport = 2.0
	targetCellSize := span / targetCellsAcrossViewport

	z := 0
	cellSize := extent.width()
	for z < maxScale && cellSize/2 >= targetCellSize {
		cellSize /= 2
		z++
	}
	return z
}

// CellSize returns the cell size r = extent.width() / 2^z for scale z.
func CellSize(extent Extent, z int) float64 {
	return extent.width() / math.Pow(2, float64(z))
}

// Enumerate returns every tile key at scale z whose axis-aligned cell
// rectangle intersects the rotated viewport polygon. It first clips to
// the viewport's axis-aligned bounding rect to bound the candidate grid
// range, then applies the precise rotated-polygon intersection test to
// each candidate cell, per spec.md §4.A.
func Enumerate(v Viewport, extent Extent, z int) []Key {
	r := CellSize(extent, z)
	if r <= 0 {
		return nil
	}

	clip := v.ClipRect
	minCol := int(math.Floor((clip.MinX - extent.MinX) / r))
	maxCol := int(math.Ceil((clip.MaxX - extent.MinX) / r))
	minRow := int(math.Floor((clip.MinY - extent.MinY) / r))
	maxRow := int(math.Ceil((clip.MaxY - extent.MinY) / r))

	maxIndex := int(math.Pow(2, float64(z)))
	minCol = clampInt(minCol, 0, maxIndex-1)
	maxCol = clampInt(maxCol, 0, maxIndex-1)
	minRow = clampInt(minRow, 0, maxIndex-1)
	maxRow = clampInt(maxRow, 0, maxIndex-1)

	var out []Key
	for col := minCol; col <= maxCol; col++ {
		for row := minRow; row <= maxRow; row++ {
			cell := Rect{
				MinX: extent.MinX + float64(col)*r,
				MinY: extent.MinY + float64(row)*r,
				MaxX: extent.MinX + float64(col+1)*r,
				MaxY: extent.MinY + float64(row+1)*r,
			}
			if polygonIntersectsRect(v.Corners, cell) {
				out = append(out, Key{X: int32(col), Y: int32(row), Z: uint8(z)})
			}
		}
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// MustReset implements spec.md §4.A's full-reset predicate:
// must_reset(old, new) := tileScale(old) != tileScale(new) ||
// !old.polygon.intersects(new.polygon).
func MustReset(oldScale, newScale int, oldCorners, newCorners [4]Point) bool {
	if oldScale != newScale {
		return true
	}
	return !polygonsIntersect(oldCorners, newCorners)
}

// polygonIntersectsRect tests whether the rotated polygon poly (in
// order, not necessarily axis-aligned) intersects the axis-aligned
// rectangle rect, using separating-axis tests on the rectangle's two
// axes and the polygon's own edge normals.
func polygonIntersectsRect(poly [4]Point, rect Rect) bool {
	rectPoly := [4]Point{
		{rect.MinX, rect.MinY},
		{rect.MaxX, rect.MinY},
		{rect.MaxX, rect.MaxY},
		{rect.MinX, rect.MaxY},
	}
	return polygonsIntersect(poly, rectPoly)
}

// polygonsIntersect implements the separating-axis theorem for two
// convex quadrilaterals: they overlap iff no edge normal of either
// polygon separates them.
func polygonsIntersect(a, b [4]Point) bool {
	for _, axis := range edgeNormals(a) {
		if separatedByAxis(a, b, axis) {
			return false
		}
	}
	for _, axis := range edgeNormals(b) {
		if separatedByAxis(a, b, axis) {
			return false
		}
	}
	return true
}

func edgeNormals(poly [4]Point) [4]Point {
	var normals [4]Point
	for i := 0; i < 4; i++ {
		p1 := poly[i]
		p2 := poly[(i+1)%4]
		edgeX, edgeY := p2.X-p1.X, p2.Y-p1.Y
		normals[i] = Point{X: -edgeY, Y: edgeX}
	}
	return normals
}

func separatedByAxis(a, b [4]Point, axis Point) bool {
	aMin, aMax := projectOntoAxis(a, axis)
	bMin, bMax := projectOntoAxis(b, axis)
	return aMax < bMin || bMax < aMin
}

func projectOntoAxis(poly [4]Point, axis Point) (min, max float64) {
	min = math.Inf(1)
	max = math.Inf(-1)
	for _, p := range poly {
		dot := p.X*axis.X + p.Y*axis.Y
		if dot < min {
			min = dot
		}
		if dot > max {
			max = dot
		}
	}
	return min, max
}
