package holo

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// WindowKind selects the apodization applied to the grid before inversion.
type WindowKind int

const (
	// WindowNone applies no apodization. Matches the legacy task default.
	WindowNone WindowKind = iota
	// WindowHann applies a radial Hann taper to suppress edge ringing.
	WindowHann
)

// InvertConfig configures the aperture inversion of one unit.
type InvertConfig struct {
	Window     WindowKind
	Wavelength float64 // meters
	Focus      float64 // primary focal length in meters; 0 selects flat geometry
}

// Invert normalises an accumulated grid, apodizes it, and applies a centered
// 2-D inverse Fourier transform to produce the aperture-plane image.
// Unfilled cells contribute a neutral zero to the transform; they are never
// divided by their zero weight. The phase plane is unwrapped from the center
// pixel and converted to physical surface displacement.
//
// Deterministic: the same grid and config always produce the same image.
func Invert(grid *ApertureGrid, cfg InvertConfig) (*ApertureImage, error) {
	if cfg.Wavelength <= 0 {
		return nil, fmt.Errorf("invert requires a positive wavelength, got %g", cfg.Wavelength)
	}
	n := grid.Size

	// Cell-wise weight normalisation. Zero-weight cells stay at 0+0i.
	norm := makeComplexPlane(n)
	for iy := 0; iy < n; iy++ {
		for ix := 0; ix < n; ix++ {
			if w := grid.Weight[iy][ix]; w > 0 {
				norm[iy][ix] = grid.Vis[iy][ix] / complex(w, 0)
			}
		}
	}

	if cfg.Window == WindowHann {
		applyHann(norm, n)
	}

	field := ifft2Centered(norm, n)

	img := &ApertureImage{
		Size:       n,
		PixelSize:  grid.Extent / float64(n),
		Wavelength: cfg.Wavelength,
		Focus:      cfg.Focus,
		Amplitude:  makeFloatPlane(n),
		Phase:      makeFloatPlane(n),
		Deviation:  makeFloatPlane(n),
	}
	scale := 1.0 / float64(n*n)
	for iy := 0; iy < n; iy++ {
		for ix := 0; ix < n; ix++ {
			v := field[iy][ix] * complex(scale, 0)
			img.Amplitude[iy][ix] = cmplx.Abs(v)
			img.Phase[iy][ix] = cmplx.Phase(v)
		}
	}

	if grid.Kernel == KernelGaussian {
		correctGridKernel(img, grid.KernelSigma)
	}

	// Unwrap before displacement conversion so 2π jumps never land inside
	// a panel.
	UnwrapPhase(img.Phase, img.Amplitude)

	for iy := 0; iy < n; iy++ {
		for ix := 0; ix < n; ix++ {
			x := img.PhysicalX(ix)
			y := img.PhysicalY(iy)
			r := math.Hypot(x, y)
			img.Deviation[iy][ix] = PhaseToDeviation(img.Phase[iy][ix], r, cfg.Wavelength, cfg.Focus)
		}
	}
	return img, nil
}

// applyHann multiplies the grid by a radial Hann taper: unity at the center,
// cosine roll-off to zero at the Nyquist edge.
func applyHann(plane [][]complex128, n int) {
	half := float64(n / 2)
	for iy := 0; iy < n; iy++ {
		for ix := 0; ix < n; ix++ {
			r := math.Hypot(float64(iy)-half, float64(ix)-half)
			var w float64
			if r < half {
				w = 0.5 * (1 + math.Cos(math.Pi*r/half))
			}
			plane[iy][ix] *= complex(w, 0)
		}
	}
}

// ifft2Centered performs the separable 2-D inverse DFT on a grid whose zero
// frequency sits at index n/2, returning an image whose origin also sits at
// index n/2. Centered index i holds frequency (or position) i-n/2, which
// lives at standard DFT index (i-n/2) mod n; the same remap applies on both
// sides, for even and odd n alike.
func ifft2Centered(centered [][]complex128, n int) [][]complex128 {
	half := n / 2
	std := makeComplexPlane(n)
	for iy := 0; iy < n; iy++ {
		for ix := 0; ix < n; ix++ {
			std[(iy+n-half)%n][(ix+n-half)%n] = centered[iy][ix]
		}
	}

	fft := fourier.NewCmplxFFT(n)
	row := make([]complex128, n)
	for iy := 0; iy < n; iy++ {
		copy(row, std[iy])
		fft.Sequence(std[iy], row)
	}
	col := make([]complex128, n)
	out := make([]complex128, n)
	for ix := 0; ix < n; ix++ {
		for iy := 0; iy < n; iy++ {
			col[iy] = std[iy][ix]
		}
		fft.Sequence(out, col)
		for iy := 0; iy < n; iy++ {
			std[iy][ix] = out[iy]
		}
	}

	res := makeComplexPlane(n)
	for iy := 0; iy < n; iy++ {
		for ix := 0; ix < n; ix++ {
			res[iy][ix] = std[(iy+n-half)%n][(ix+n-half)%n]
		}
	}
	return res
}

// correctGridKernel divides the amplitude plane by the aperture-plane
// transform of the gaussian gridding kernel, restoring the taper the
// convolution imposed. The correction is unity at the image center. A floor
// keeps far corners, where the kernel transform underflows, from blowing up.
func correctGridKernel(img *ApertureImage, sigma float64) {
	n := img.Size
	half := n / 2
	const floor = 1e-3
	coeff := 2 * math.Pi * math.Pi * sigma * sigma / float64(n*n)
	for iy := 0; iy < n; iy++ {
		for ix := 0; ix < n; ix++ {
			px := float64(ix - half)
			py := float64(iy - half)
			c := math.Exp(-coeff * (px*px + py*py))
			if c < floor {
				c = floor
			}
			img.Amplitude[iy][ix] /= c
		}
	}
}

// PhaseToDeviation converts an aperture phase to a physical displacement
// along the reflector normal at radius r from the dish axis. For a front-fed
// paraboloid of focal length focus the surface-normal projection factor is
// (λ/2π)/(4F)·√(r²+4F²); a zero focus selects the flat normal-incidence
// factor λ/(4π).
func PhaseToDeviation(phase, r, wavelength, focus float64) float64 {
	if focus <= 0 {
		return phase * wavelength / (4 * math.Pi)
	}
	acoeff := (wavelength / (2 * math.Pi)) / (4 * focus)
	return acoeff * phase * math.Sqrt(r*r+4*focus*focus)
}

// DeviationToPhase is the inverse of PhaseToDeviation; the pipeline uses it
// to express fitted residuals back in phase for gain estimates.
func DeviationToPhase(dev, r, wavelength, focus float64) float64 {
	if focus <= 0 {
		return dev * 4 * math.Pi / wavelength
	}
	acoeff := (wavelength / (2 * math.Pi)) / (4 * focus)
	return dev / (acoeff * math.Sqrt(r*r+4*focus*focus))
}

// GainDB estimates the aperture gain of a phase plane over the masked
// illuminated pixels, returning achieved and theoretical gains in dB. reso
// is the aperture-plane pixel size in meters.
func GainDB(phase [][]float64, mask [][]bool, reso, wavelength float64) (gain, theoretical float64) {
	thgain := 4 * math.Pi * math.Pow(1000.0*reso/wavelength, 2)
	var sumCos, sumSin float64
	nmask := 0
	for iy := range phase {
		for ix := range phase[iy] {
			if mask[iy][ix] {
				sumCos += math.Cos(phase[iy][ix])
				sumSin += math.Sin(phase[iy][ix])
				nmask++
			}
		}
	}
	if nmask == 0 {
		return math.NaN(), toDB(thgain)
	}
	g := thgain * math.Hypot(sumCos, sumSin) / float64(nmask)
	return toDB(g), toDB(thgain)
}

func toDB(v float64) float64 {
	return 10 * math.Log10(v)
}
