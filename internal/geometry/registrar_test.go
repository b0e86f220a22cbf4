package geometry

import (
	"errors"
	"testing"

	"github.com/banshee-data/aperture.report/internal/holo"
)

// quadDish is a 10m four-panel test dish: one square panel per quadrant, no
// central blockage.
func quadDish() PanelGeometryProvider {
	tele, err := NewPolygonTelescope(PolygonConfig{
		Name:     "quad",
		Diameter: 10,
		Panels: []PanelSpec{
			{Label: "ne", Vertices: []Point{{0, 0}, {5, 0}, {5, 5}, {0, 5}},
				Screws: []Screw{{Label: "c", Pos: Point{0, 0}}}},
			{Label: "nw", Vertices: []Point{{-5, 0}, {0, 0}, {0, 5}, {-5, 5}},
				Screws: []Screw{{Label: "c", Pos: Point{0, 0}}}},
			{Label: "sw", Vertices: []Point{{-5, -5}, {0, -5}, {0, 0}, {-5, 0}},
				Screws: []Screw{{Label: "c", Pos: Point{0, 0}}}},
			{Label: "se", Vertices: []Point{{0, -5}, {5, -5}, {5, 0}, {0, 0}},
				Screws: []Screw{{Label: "c", Pos: Point{0, 0}}}},
		},
	})
	if err != nil {
		panic(err)
	}
	return tele
}

// flatImage builds a synthetic aperture image with unit amplitude inside the
// dish and the given uniform deviation.
func flatImage(n int, extent, dishRadius, dev float64) *holo.ApertureImage {
	img := &holo.ApertureImage{
		Size:       n,
		PixelSize:  extent / float64(n),
		Wavelength: 0.02,
	}
	img.Amplitude = make([][]float64, n)
	img.Phase = make([][]float64, n)
	img.Deviation = make([][]float64, n)
	for iy := 0; iy < n; iy++ {
		img.Amplitude[iy] = make([]float64, n)
		img.Phase[iy] = make([]float64, n)
		img.Deviation[iy] = make([]float64, n)
		for ix := 0; ix < n; ix++ {
			x := img.PhysicalX(ix)
			y := img.PhysicalY(iy)
			if x*x+y*y <= dishRadius*dishRadius {
				img.Amplitude[iy][ix] = 1
				img.Deviation[iy][ix] = dev
			}
		}
	}
	return img
}

func TestRegisterAssignsEachPixelOnce(t *testing.T) {
	img := flatImage(64, 12, 5, 0.001)
	samples, mask, err := Register(img, quadDish(), RegistrarConfig{AmplitudeCutoff: 0.2})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if len(samples) != 4 {
		t.Fatalf("got %d panel sample sets, want 4", len(samples))
	}

	total := 0
	for _, ps := range samples {
		total += len(ps.Dev)
		if len(ps.Dev) == 0 {
			t.Errorf("panel %s received no samples", ps.Panel.Label)
		}
	}
	masked := 0
	for iy := range mask {
		for ix := range mask[iy] {
			if mask[iy][ix] {
				masked++
			}
		}
	}
	if total != masked {
		t.Errorf("sample total %d != masked pixel count %d (double assignment?)", total, masked)
	}
}

func TestRegisterHonoursAmplitudeCutoff(t *testing.T) {
	img := flatImage(64, 12, 5, 0.001)
	// Dim one quadrant below the cutoff.
	for iy := 0; iy < img.Size; iy++ {
		for ix := 0; ix < img.Size; ix++ {
			if img.PhysicalX(ix) >= 0 && img.PhysicalY(iy) >= 0 {
				img.Amplitude[iy][ix] *= 0.05
			}
		}
	}
	samples, _, err := Register(img, quadDish(), RegistrarConfig{AmplitudeCutoff: 0.2})
	if err != nil {
		t.Fatal(err)
	}
	for _, ps := range samples {
		if ps.Panel.Label == "ne" && len(ps.Dev) != 0 {
			t.Errorf("dimmed panel ne received %d samples, want 0", len(ps.Dev))
		}
		if ps.Panel.Label == "sw" && len(ps.Dev) == 0 {
			t.Error("panel sw received no samples")
		}
	}
}

func TestRegisterMarginReducesFitSamples(t *testing.T) {
	img := flatImage(64, 12, 5, 0.001)
	noMargin, _, err := Register(img, quadDish(), RegistrarConfig{AmplitudeCutoff: 0.2})
	if err != nil {
		t.Fatal(err)
	}
	withMargin, _, err := Register(img, quadDish(), RegistrarConfig{AmplitudeCutoff: 0.2, PanelMargin: 0.3})
	if err != nil {
		t.Fatal(err)
	}
	for i := range noMargin {
		if len(withMargin[i].Dev) != len(noMargin[i].Dev) {
			t.Errorf("panel %s: margin changed total samples", noMargin[i].Panel.Label)
		}
		if withMargin[i].FitCount() >= noMargin[i].FitCount() {
			t.Errorf("panel %s: margin did not reduce fit samples (%d vs %d)",
				noMargin[i].Panel.Label, withMargin[i].FitCount(), noMargin[i].FitCount())
		}
	}
}

func TestRegisterGeometryMismatch(t *testing.T) {
	img := flatImage(32, 6, 2.5, 0) // 6m extent cannot cover a 10m dish
	_, _, err := Register(img, quadDish(), RegistrarConfig{})
	var mismatch *MismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("Register error = %v, want *MismatchError", err)
	}
	if mismatch.RequiredRadius != 5 {
		t.Errorf("RequiredRadius = %g, want 5", mismatch.RequiredRadius)
	}
}
