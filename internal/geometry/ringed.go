package geometry

import (
	"fmt"
	"math"
)

// Ring describes one concentric ring of identical panels.
type Ring struct {
	InnerRadius float64 `json:"inner_radius"`
	OuterRadius float64 `json:"outer_radius"`
	Panels      int     `json:"panels"`
}

// Labeling schemes for ringed dishes.
const (
	// LabelRing numbers panels "ring-panel", clockwise from the top
	// (VLA convention).
	LabelRing = "ring"
	// LabelSector numbers panels "sector-ringpanel", counterclockwise
	// from the right (ALMA convention).
	LabelSector = "sector"
)

// RingedConfig describes a circular dish whose panels are laid out in
// concentric rings of annular sectors.
type RingedConfig struct {
	Name        string  `json:"name"`
	Diameter    float64 `json:"diameter"`
	Focus       float64 `json:"focus"`
	InnerLimit  float64 `json:"inner_limit"` // blockage radius
	OuterLimit  float64 `json:"outer_limit"` // illuminated rim radius
	Rings       []Ring  `json:"rings"`
	Labeling    string  `json:"labeling"`
	ScrewOffset float64 `json:"screw_offset"` // corner screw inset in meters
}

// RingedTelescope implements PanelGeometryProvider for ringed dishes. The
// panel outlines are annular sectors approximated by trapezoids; the edge
// margin applied during fitting absorbs the small arc error.
type RingedTelescope struct {
	cfg    RingedConfig
	panels []Panel
}

// NewRingedTelescope builds the panel set for a ringed dish.
func NewRingedTelescope(cfg RingedConfig) (*RingedTelescope, error) {
	if cfg.Diameter <= 0 {
		return nil, fmt.Errorf("telescope %q: diameter must be positive, got %g", cfg.Name, cfg.Diameter)
	}
	if len(cfg.Rings) == 0 {
		return nil, fmt.Errorf("telescope %q: at least one ring required", cfg.Name)
	}
	if cfg.Labeling == "" {
		cfg.Labeling = LabelRing
	}
	if cfg.Labeling != LabelRing && cfg.Labeling != LabelSector {
		return nil, fmt.Errorf("telescope %q: unknown labeling %q", cfg.Name, cfg.Labeling)
	}
	if cfg.OuterLimit == 0 {
		cfg.OuterLimit = cfg.Diameter / 2
	}

	t := &RingedTelescope{cfg: cfg}
	for iring, ring := range cfg.Rings {
		if ring.Panels < 2 {
			return nil, fmt.Errorf("telescope %q: ring %d needs at least 2 panels", cfg.Name, iring+1)
		}
		if ring.OuterRadius <= ring.InnerRadius {
			return nil, fmt.Errorf("telescope %q: ring %d radii out of order", cfg.Name, iring+1)
		}
		angle := 2 * math.Pi / float64(ring.Panels)
		for ipanel := 0; ipanel < ring.Panels; ipanel++ {
			theta0 := float64(ipanel) * angle
			theta1 := theta0 + angle
			p := Panel{
				Label: t.panelLabel(iring, ipanel),
				Ring:  iring + 1,
				Index: ipanel + 1,
				Vertices: []Point{
					ringedPoint(ring.InnerRadius, theta0),
					ringedPoint(ring.InnerRadius, theta1),
					ringedPoint(ring.OuterRadius, theta1),
					ringedPoint(ring.OuterRadius, theta0),
				},
			}
			p.Screws = cornerScrews(ring, theta0, theta1, cfg.ScrewOffset, p.Center())
			t.panels = append(t.panels, p)
		}
	}
	return t, nil
}

// ringedPoint converts (radius, clockwise-from-top azimuth) to cartesian.
func ringedPoint(r, theta float64) Point {
	return Point{X: r * math.Sin(theta), Y: r * math.Cos(theta)}
}

// cornerScrews places the four adjustment screws near the panel corners:
// inner-left, inner-right, outer-left, outer-right, matching the column
// order of the legacy adjustment tables. Positions are returned in the
// panel's local frame.
func cornerScrews(ring Ring, theta0, theta1, offset float64, center Point) []Screw {
	if offset <= 0 {
		offset = 0.05 * (ring.OuterRadius - ring.InnerRadius)
	}
	rIn := ring.InnerRadius + offset
	rOut := ring.OuterRadius - offset
	// Angular inset matching the radial one at the inner edge.
	dTheta := offset / ring.InnerRadius
	if span := theta1 - theta0; dTheta > span/4 {
		dTheta = span / 4
	}
	local := func(r, theta float64) Point {
		p := ringedPoint(r, theta)
		return Point{X: p.X - center.X, Y: p.Y - center.Y}
	}
	return []Screw{
		{Label: "il", Pos: local(rIn, theta0+dTheta)},
		{Label: "ir", Pos: local(rIn, theta1-dTheta)},
		{Label: "ol", Pos: local(rOut, theta0+dTheta)},
		{Label: "or", Pos: local(rOut, theta1-dTheta)},
	}
}

// panelLabel formats the panel designation for the configured numbering
// scheme.
func (t *RingedTelescope) panelLabel(iring, ipanel int) string {
	if t.cfg.Labeling == LabelRing {
		return fmt.Sprintf("%d-%d", iring+1, ipanel+1)
	}
	// Sector numbering groups panels into as many sectors as the first
	// ring has panels, counted counterclockwise from the right.
	nSectors := t.cfg.Rings[0].Panels
	angle := 2 * math.Pi / float64(t.cfg.Rings[iring].Panels)
	sectorAngle := 2 * math.Pi / float64(nSectors)
	theta := 2*math.Pi - (float64(ipanel)+0.5)*angle
	sector := int(theta/sectorAngle+1+float64(nSectors)/4) % nSectors
	if sector == 0 {
		sector = nSectors
	}
	perSector := t.cfg.Rings[iring].Panels / nSectors
	if perSector < 1 {
		perSector = 1
	}
	jpanel := perSector - (ipanel % perSector)
	return fmt.Sprintf("%d-%d%d", sector, iring+1, jpanel)
}

func (t *RingedTelescope) Name() string         { return t.cfg.Name }
func (t *RingedTelescope) Diameter() float64    { return t.cfg.Diameter }
func (t *RingedTelescope) FocalLength() float64 { return t.cfg.Focus }
func (t *RingedTelescope) Panels() []Panel      { return t.panels }

// Illuminated restricts the aperture to the annulus between the blockage
// radius and the illuminated rim.
func (t *RingedTelescope) Illuminated(pt Point) bool {
	r, _ := polar(pt)
	return r >= t.cfg.InnerLimit && r <= t.cfg.OuterLimit
}

// VLA returns the ringed geometry of a VLA 25m antenna: six rings of
// panels behind a Cassegrain sub-reflector.
func VLA() *RingedTelescope {
	t, err := NewRingedTelescope(RingedConfig{
		Name:       "VLA",
		Diameter:   25.0,
		Focus:      9.0,
		InnerLimit: 2.0,
		OuterLimit: 12.5,
		Labeling:   LabelRing,
		Rings: []Ring{
			{InnerRadius: 1.983, OuterRadius: 3.683, Panels: 12},
			{InnerRadius: 3.683, OuterRadius: 5.563, Panels: 16},
			{InnerRadius: 5.563, OuterRadius: 7.391, Panels: 24},
			{InnerRadius: 7.391, OuterRadius: 9.144, Panels: 24},
			{InnerRadius: 9.144, OuterRadius: 10.87, Panels: 24},
			{InnerRadius: 10.87, OuterRadius: 12.5, Panels: 24},
		},
	})
	if err != nil {
		panic(err) // static geometry, must construct
	}
	return t
}

// BuiltIn returns a built-in telescope geometry by name, or an error listing
// the known designs.
func BuiltIn(name string) (PanelGeometryProvider, error) {
	switch name {
	case "vla", "VLA":
		return VLA(), nil
	default:
		return nil, fmt.Errorf("unknown telescope %q (built-in designs: vla)", name)
	}
}
