// Package geometry models the physical panel layout of an antenna and
// registers it onto aperture-image pixel coordinates. Telescope designs are
// expressed through the PanelGeometryProvider interface, so a new array is
// supported by adding a provider, not by branching inside the pipeline.
package geometry

import "math"

// Point is an aperture-plane position in meters relative to the dish axis.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Screw is one adjustment actuator. Pos is in the panel's local frame
// (relative to the panel centroid, axes parallel to the aperture axes).
type Screw struct {
	Label string `json:"label"`
	Pos   Point  `json:"pos"`
}

// Panel is one adjustable reflector segment. Vertices trace its outline in
// aperture-plane coordinates; Screws sit in the panel's local frame. Panels
// are immutable reference data shared read-only across all units of the
// same antenna design.
type Panel struct {
	Label    string
	Ring     int
	Index    int
	Vertices []Point
	Screws   []Screw
}

// Center returns the polygon centroid, which is also the origin of the
// panel's local frame.
func (p *Panel) Center() Point {
	var cx, cy, area float64
	n := len(p.Vertices)
	for i := 0; i < n; i++ {
		a := p.Vertices[i]
		b := p.Vertices[(i+1)%n]
		cross := a.X*b.Y - b.X*a.Y
		area += cross
		cx += (a.X + b.X) * cross
		cy += (a.Y + b.Y) * cross
	}
	if area == 0 {
		// Degenerate outline; fall back to the vertex mean.
		for _, v := range p.Vertices {
			cx += v.X
			cy += v.Y
		}
		return Point{cx / float64(n), cy / float64(n)}
	}
	area *= 0.5
	return Point{cx / (6 * area), cy / (6 * area)}
}

// Contains reports whether pt lies inside the panel outline, boundary
// included, using even-odd ray casting.
func (p *Panel) Contains(pt Point) bool {
	inside := false
	n := len(p.Vertices)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a := p.Vertices[i]
		b := p.Vertices[j]
		if (a.Y > pt.Y) != (b.Y > pt.Y) {
			xCross := (b.X-a.X)*(pt.Y-a.Y)/(b.Y-a.Y) + a.X
			if pt.X < xCross {
				inside = !inside
			}
		}
	}
	return inside
}

// ContainsInterior reports whether pt lies inside the panel shrunk toward
// its centroid by the given margin fraction. Points between the margin and
// the edge belong to the panel but are excluded from surface fits, since
// panel edges are mechanically constrained by their neighbours.
func (p *Panel) ContainsInterior(pt Point, margin float64) bool {
	if margin <= 0 {
		return p.Contains(pt)
	}
	c := p.Center()
	scale := 1.0 / (1.0 - margin)
	expanded := Point{
		X: c.X + (pt.X-c.X)*scale,
		Y: c.Y + (pt.Y-c.Y)*scale,
	}
	return p.Contains(expanded)
}

// PanelGeometryProvider supplies the static mechanical model of one antenna
// design: panel outlines, screw layouts and the illumination mask. All
// methods must be safe for concurrent use; providers are shared read-only
// across pipeline units.
type PanelGeometryProvider interface {
	// Name identifies the telescope design.
	Name() string
	// Diameter is the dish outer diameter in meters.
	Diameter() float64
	// FocalLength is the primary focal length in meters, or 0 for a
	// design without a meaningful paraboloid projection.
	FocalLength() float64
	// Panels returns the full panel set in index order. The order is the
	// boundary tie-break: a pixel on a shared edge belongs to the first
	// panel that contains it.
	Panels() []Panel
	// Illuminated reports whether an aperture-plane point is inside the
	// illuminated region, excluding sub-reflector blockage and the area
	// beyond the dish rim.
	Illuminated(pt Point) bool
}

// polar converts an aperture point to (radius, azimuth) with azimuth
// measured clockwise from the +Y axis, the convention ringed dishes number
// their panels in.
func polar(pt Point) (r, theta float64) {
	r = math.Hypot(pt.X, pt.Y)
	theta = math.Atan2(pt.X, pt.Y)
	if theta < 0 {
		theta += 2 * math.Pi
	}
	return r, theta
}
