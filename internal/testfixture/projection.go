package testfixture

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"

	"github.com/deepteams/tilereader"
)

// Projection is a concrete tilereader.Projection: an axis-aligned
// square viewport (no rotation) centred at (CenterX, CenterY) with a
// given HalfSpan, so Corners() and ClipRect() coincide. It has no
// rotated variant.
type Projection struct {
	CenterX, CenterY float64
	HalfSpan         float64
}

func (p Projection) ClipRect() tilereader.MercatorRect {
	return tilereader.MercatorRect{
		MinX: p.CenterX - p.HalfSpan, MinY: p.CenterY - p.HalfSpan,
		MaxX: p.CenterX + p.HalfSpan, MaxY: p.CenterY + p.HalfSpan,
	}
}

func (p Projection) Corners() [4]tilereader.Point {
	r := p.ClipRect()
	return [4]tilereader.Point{
		{X: r.MinX, Y: r.MinY},
		{X: r.MaxX, Y: r.MinY},
		{X: r.MaxX, Y: r.MaxY},
		{X: r.MinX, Y: r.MaxY},
	}
}

func (p Projection) Intersects(o tilereader.Projection) bool {
	return p.ClipRect().Intersects(o.ClipRect())
}

func (p Projection) Equal(o tilereader.Projection) bool {
	other, ok := o.(Projection)
	if !ok {
		return false
	}
	return p == other
}

// CameraPath generates a sequence of Projections tweened from start to
// end over steps samples, using gween — the same scroll-to animation
// primitive phanxgames-willow's Camera.ScrollTo drives its own viewport
// transitions with. It exists to produce smoothly-interpolated synthetic
// pan/zoom sequences for scenario tests, never on the production read
// path.
type CameraPath struct {
	tweenX, tweenY, tweenSpan *gween.Tween
}

// NewCameraPath builds a tween from start to end over duration
// "time units" (gween is unitless; callers pick a step size to match).
func NewCameraPath(start, end Projection, duration float32) *CameraPath {
	return &CameraPath{
		tweenX:    gween.New(float32(start.CenterX), float32(end.CenterX), duration, ease.Linear),
		tweenY:    gween.New(float32(start.CenterY), float32(end.CenterY), duration, ease.Linear),
		tweenSpan: gween.New(float32(start.HalfSpan), float32(end.HalfSpan), duration, ease.Linear),
	}
}

// Step advances the path by dt and returns the Projection at the new
// position, plus whether the path has completed.
func (c *CameraPath) Step(dt float32) (Projection, bool) {
	x, doneX := c.tweenX.Update(dt)
	y, doneY := c.tweenY.Update(dt)
	span, doneSpan := c.tweenSpan.Update(dt)
	return Projection{CenterX: float64(x), CenterY: float64(y), HalfSpan: float64(span)}, doneX && doneY && doneSpan
}

// Sample steps the path to completion in n equal increments, returning
// every intermediate Projection including the final one.
func Sample(path *CameraPath, n int, totalDuration float32) []Projection {
	if n <= 0 {
		return nil
	}
	dt := totalDuration / float32(n)
	out := make([]Projection, 0, n)
	for i := 0; i < n; i++ {
		p, _ := path.Step(dt)
		out = append(out, p)
	}
	return out
}
