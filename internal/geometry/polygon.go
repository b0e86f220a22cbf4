package geometry

import "fmt"

// PanelSpec describes one panel of a polygon-based design: an explicit
// outline in aperture coordinates and screw positions in the panel's local
// frame.
type PanelSpec struct {
	Label    string  `json:"label"`
	Vertices []Point `json:"vertices"`
	Screws   []Screw `json:"screws"`
}

// PolygonConfig describes an antenna whose panels are arbitrary polygons,
// the escape hatch for designs that are not rings of annular sectors.
type PolygonConfig struct {
	Name           string      `json:"name"`
	Diameter       float64     `json:"diameter"`
	Focus          float64     `json:"focus"`
	BlockageRadius float64     `json:"blockage_radius"`
	Panels         []PanelSpec `json:"panels"`
}

// PolygonTelescope implements PanelGeometryProvider from explicit panel
// outlines.
type PolygonTelescope struct {
	cfg    PolygonConfig
	panels []Panel
}

// NewPolygonTelescope validates the panel specs and builds the provider.
func NewPolygonTelescope(cfg PolygonConfig) (*PolygonTelescope, error) {
	if cfg.Diameter <= 0 {
		return nil, fmt.Errorf("telescope %q: diameter must be positive, got %g", cfg.Name, cfg.Diameter)
	}
	if len(cfg.Panels) == 0 {
		return nil, fmt.Errorf("telescope %q: at least one panel required", cfg.Name)
	}
	t := &PolygonTelescope{cfg: cfg}
	for i, spec := range cfg.Panels {
		if len(spec.Vertices) < 3 {
			return nil, fmt.Errorf("telescope %q: panel %q needs at least 3 vertices", cfg.Name, spec.Label)
		}
		label := spec.Label
		if label == "" {
			label = fmt.Sprintf("p%d", i+1)
		}
		t.panels = append(t.panels, Panel{
			Label:    label,
			Ring:     1,
			Index:    i + 1,
			Vertices: spec.Vertices,
			Screws:   spec.Screws,
		})
	}
	return t, nil
}

func (t *PolygonTelescope) Name() string         { return t.cfg.Name }
func (t *PolygonTelescope) Diameter() float64    { return t.cfg.Diameter }
func (t *PolygonTelescope) FocalLength() float64 { return t.cfg.Focus }
func (t *PolygonTelescope) Panels() []Panel      { return t.panels }

func (t *PolygonTelescope) Illuminated(pt Point) bool {
	r, _ := polar(pt)
	return r >= t.cfg.BlockageRadius && r <= t.cfg.Diameter/2
}
