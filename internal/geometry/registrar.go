package geometry

import (
	"fmt"

	"github.com/banshee-data/aperture.report/internal/holo"
)

// MismatchError reports an aperture image whose physical extent cannot
// contain the antenna's outer ring, so panel registration is impossible.
type MismatchError struct {
	ImageRadius    float64
	RequiredRadius float64
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("aperture image radius %.2fm does not cover dish radius %.2fm",
		e.ImageRadius, e.RequiredRadius)
}

// RegistrarConfig tunes panel registration.
type RegistrarConfig struct {
	// AmplitudeCutoff excludes pixels whose amplitude falls below this
	// fraction of the image peak; such pixels carry no reliable phase.
	AmplitudeCutoff float64
	// PanelMargin is the fraction of each panel excluded at the edges
	// when selecting fit samples. Margin pixels still receive
	// corrections, they just do not drive the fit.
	PanelMargin float64
}

// PanelSamples is the set of aperture pixels registered to one panel. All
// slices are parallel. X, Y are panel-local coordinates in meters; Dev is
// the surface displacement; Weight is the SNR-derived fit weight
// (amplitude normalised to the image peak); InFit marks samples inside the
// panel margin that participate in the surface fit.
type PanelSamples struct {
	Panel  *Panel
	Ix, Iy []int
	X, Y   []float64
	Dev    []float64
	Weight []float64
	InFit  []bool
}

// FitCount returns the number of samples that participate in the fit.
func (ps *PanelSamples) FitCount() int {
	n := 0
	for _, in := range ps.InFit {
		if in {
			n++
		}
	}
	return n
}

// Register maps every usable aperture pixel onto exactly one panel of the
// provider's layout. A pixel is usable when it is inside the illuminated
// region and its amplitude clears the cutoff; a pixel on a shared boundary
// goes to the first panel in index order that contains it. The returned
// mask marks the pixels that were assigned, in image coordinates.
//
// Register is a pure function of its inputs; the geometry is never mutated.
func Register(img *holo.ApertureImage, prov PanelGeometryProvider, cfg RegistrarConfig) ([]PanelSamples, [][]bool, error) {
	imageRadius := img.Extent() / 2
	dishRadius := prov.Diameter() / 2
	if imageRadius < dishRadius {
		return nil, nil, &MismatchError{ImageRadius: imageRadius, RequiredRadius: dishRadius}
	}

	panels := prov.Panels()
	result := make([]PanelSamples, len(panels))
	centers := make([]Point, len(panels))
	for i := range panels {
		result[i].Panel = &panels[i]
		centers[i] = panels[i].Center()
	}

	peak := img.PeakAmplitude()
	cut := cfg.AmplitudeCutoff * peak

	mask := make([][]bool, img.Size)
	for iy := range mask {
		mask[iy] = make([]bool, img.Size)
	}

	for iy := 0; iy < img.Size; iy++ {
		y := img.PhysicalY(iy)
		for ix := 0; ix < img.Size; ix++ {
			if img.Amplitude[iy][ix] < cut {
				continue
			}
			pt := Point{X: img.PhysicalX(ix), Y: y}
			if !prov.Illuminated(pt) {
				continue
			}
			for i := range panels {
				if !panels[i].Contains(pt) {
					continue
				}
				ps := &result[i]
				ps.Ix = append(ps.Ix, ix)
				ps.Iy = append(ps.Iy, iy)
				ps.X = append(ps.X, pt.X-centers[i].X)
				ps.Y = append(ps.Y, pt.Y-centers[i].Y)
				ps.Dev = append(ps.Dev, img.Deviation[iy][ix])
				ps.Weight = append(ps.Weight, img.Amplitude[iy][ix]/peak)
				ps.InFit = append(ps.InFit, panels[i].ContainsInterior(pt, cfg.PanelMargin))
				mask[iy][ix] = true
				// A pixel belongs to exactly one panel.
				break
			}
		}
	}
	return result, mask, nil
}
