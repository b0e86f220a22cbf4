package holo

import (
	"math"
	"math/cmplx"
	"testing"
)

// forwardModel generates one visibility sample per grid cell from a known
// aperture field using the plain forward DFT, matching the centered inverse
// convention of Invert.
func forwardModel(field [][]complex128, n int, extent float64) []Sample {
	half := n / 2
	du := 1.0 / extent
	samples := make([]Sample, 0, n*n)
	for ky := -half; ky < n-half; ky++ {
		for kx := -half; kx < n-half; kx++ {
			var sum complex128
			for py := -half; py < n-half; py++ {
				for px := -half; px < n-half; px++ {
					arg := -2 * math.Pi * float64(kx*px+ky*py) / float64(n)
					sum += field[py+half][px+half] * cmplx.Exp(complex(0, arg))
				}
			}
			samples = append(samples, Sample{
				U:      float64(kx) * du,
				V:      float64(ky) * du,
				Vis:    sum,
				Weight: 1,
			})
		}
	}
	return samples
}

// discField builds a uniformly illuminated disc with the given constant
// phase.
func discField(n int, extent, radius, phase float64) [][]complex128 {
	field := makeComplexPlane(n)
	pix := extent / float64(n)
	half := n / 2
	for iy := 0; iy < n; iy++ {
		for ix := 0; ix < n; ix++ {
			x := float64(ix-half) * pix
			y := float64(iy-half) * pix
			if math.Hypot(x, y) <= radius {
				field[iy][ix] = cmplx.Exp(complex(0, phase))
			}
		}
	}
	return field
}

func TestInvertRoundTrip(t *testing.T) {
	const n = 32
	const extent = 10.0
	field := discField(n, extent, 3.5, 0.4)
	samples := forwardModel(field, n, extent)

	g, err := NewGridder(GridConfig{Size: n, Extent: extent})
	if err != nil {
		t.Fatal(err)
	}
	g.AddAll(samples)
	grid, err := g.Finish()
	if err != nil {
		t.Fatal(err)
	}

	img, err := Invert(grid, InvertConfig{Window: WindowNone, Wavelength: 0.02})
	if err != nil {
		t.Fatalf("Invert: %v", err)
	}

	for iy := 0; iy < n; iy++ {
		for ix := 0; ix < n; ix++ {
			wantAmp := cmplx.Abs(field[iy][ix])
			if math.Abs(img.Amplitude[iy][ix]-wantAmp) > 1e-8 {
				t.Fatalf("pixel (%d,%d): amplitude %v, want %v", ix, iy, img.Amplitude[iy][ix], wantAmp)
			}
			if wantAmp > 0.5 {
				if math.Abs(img.Phase[iy][ix]-0.4) > 1e-8 {
					t.Fatalf("pixel (%d,%d): phase %v, want 0.4", ix, iy, img.Phase[iy][ix])
				}
			}
		}
	}
}

// TestInvertOddGridSize round-trips an off-center disc on an odd-sized
// grid. The asymmetric field pins pixel positions: any residual circular
// shift in the centered transform would reconstruct the disc at the wrong
// pixels.
func TestInvertOddGridSize(t *testing.T) {
	const n = 33
	const extent = 10.0
	field := makeComplexPlane(n)
	pix := extent / float64(n)
	half := n / 2
	for iy := 0; iy < n; iy++ {
		for ix := 0; ix < n; ix++ {
			x := float64(ix-half) * pix
			y := float64(iy-half) * pix
			if math.Hypot(x-1.2, y+0.9) <= 2.5 {
				field[iy][ix] = cmplx.Exp(complex(0, 0.3))
			}
		}
	}
	samples := forwardModel(field, n, extent)

	g, err := NewGridder(GridConfig{Size: n, Extent: extent})
	if err != nil {
		t.Fatal(err)
	}
	g.AddAll(samples)
	if g.Clipped() != 0 {
		t.Fatalf("%d samples clipped, want 0", g.Clipped())
	}
	grid, err := g.Finish()
	if err != nil {
		t.Fatal(err)
	}

	img, err := Invert(grid, InvertConfig{Window: WindowNone, Wavelength: 0.02})
	if err != nil {
		t.Fatalf("Invert: %v", err)
	}

	for iy := 0; iy < n; iy++ {
		for ix := 0; ix < n; ix++ {
			wantAmp := cmplx.Abs(field[iy][ix])
			if math.Abs(img.Amplitude[iy][ix]-wantAmp) > 1e-8 {
				t.Fatalf("pixel (%d,%d): amplitude %v, want %v", ix, iy, img.Amplitude[iy][ix], wantAmp)
			}
			if wantAmp > 0.5 && math.Abs(img.Phase[iy][ix]-0.3) > 1e-8 {
				t.Fatalf("pixel (%d,%d): phase %v, want 0.3", ix, iy, img.Phase[iy][ix])
			}
		}
	}
}

func TestInvertDeterministic(t *testing.T) {
	const n = 16
	const extent = 8.0
	field := discField(n, extent, 3.0, -0.2)
	samples := forwardModel(field, n, extent)

	run := func() *ApertureImage {
		g, _ := NewGridder(GridConfig{Size: n, Extent: extent})
		g.AddAll(samples)
		grid, err := g.Finish()
		if err != nil {
			t.Fatal(err)
		}
		img, err := Invert(grid, InvertConfig{Window: WindowHann, Wavelength: 0.01, Focus: 9})
		if err != nil {
			t.Fatal(err)
		}
		return img
	}
	a, b := run(), run()
	for iy := 0; iy < n; iy++ {
		for ix := 0; ix < n; ix++ {
			if a.Deviation[iy][ix] != b.Deviation[iy][ix] {
				t.Fatalf("pixel (%d,%d): deviation differs between identical runs", ix, iy)
			}
		}
	}
}

func TestInvertRejectsZeroWavelength(t *testing.T) {
	g, _ := NewGridder(GridConfig{Size: 8, Extent: 4})
	grid, _ := g.Finish()
	if _, err := Invert(grid, InvertConfig{}); err == nil {
		t.Error("expected error for zero wavelength")
	}
}

func TestUnwrapPhaseRecoversRamp(t *testing.T) {
	const n = 24
	truth := make([][]float64, n)
	wrapped := make([][]float64, n)
	quality := make([][]float64, n)
	for iy := 0; iy < n; iy++ {
		truth[iy] = make([]float64, n)
		wrapped[iy] = make([]float64, n)
		quality[iy] = make([]float64, n)
		for ix := 0; ix < n; ix++ {
			// Steep enough ramp to wrap several times across the plane.
			v := 0.45*float64(ix) + 0.3*float64(iy)
			truth[iy][ix] = v
			wrapped[iy][ix] = math.Atan2(math.Sin(v), math.Cos(v))
			quality[iy][ix] = 1.0
		}
	}

	UnwrapPhase(wrapped, quality)

	// Unwrapping recovers the ramp up to one global 2π multiple anchored
	// at the center pixel.
	offset := wrapped[n/2][n/2] - truth[n/2][n/2]
	for iy := 0; iy < n; iy++ {
		for ix := 0; ix < n; ix++ {
			if math.Abs(wrapped[iy][ix]-truth[iy][ix]-offset) > 1e-9 {
				t.Fatalf("pixel (%d,%d): unwrapped %v, truth %v, offset %v",
					ix, iy, wrapped[iy][ix], truth[iy][ix], offset)
			}
		}
	}
}

func TestPhaseDeviationRoundTrip(t *testing.T) {
	const wavelength = 0.013
	cases := []struct{ phase, r, focus float64 }{
		{0.7, 0, 0},
		{0.7, 5.5, 0},
		{-1.2, 3.0, 9.0},
		{0.3, 12.0, 9.0},
	}
	for _, c := range cases {
		dev := PhaseToDeviation(c.phase, c.r, wavelength, c.focus)
		back := DeviationToPhase(dev, c.r, wavelength, c.focus)
		if math.Abs(back-c.phase) > 1e-12 {
			t.Errorf("round trip phase %v r %v focus %v: got %v", c.phase, c.r, c.focus, back)
		}
	}

	// At the dish axis the paraboloid factor reduces to the flat factor.
	flat := PhaseToDeviation(1.0, 0, wavelength, 0)
	parab := PhaseToDeviation(1.0, 0, wavelength, 9.0)
	if math.Abs(flat-parab) > 1e-12 {
		t.Errorf("on-axis factors differ: flat %v parab %v", flat, parab)
	}
}

func TestGainDB(t *testing.T) {
	const n = 16
	zero := makeFloatPlane(n)
	noisy := makeFloatPlane(n)
	mask := make([][]bool, n)
	for iy := 0; iy < n; iy++ {
		mask[iy] = make([]bool, n)
		for ix := 0; ix < n; ix++ {
			mask[iy][ix] = true
			noisy[iy][ix] = math.Sin(float64(iy*n+ix)) * 1.3
		}
	}

	gain, th := GainDB(zero, mask, 0.1, 0.02)
	if math.Abs(gain-th) > 1e-9 {
		t.Errorf("flat phase gain %v != theoretical %v", gain, th)
	}
	ngain, nth := GainDB(noisy, mask, 0.1, 0.02)
	if !(ngain < nth) {
		t.Errorf("noisy gain %v not below theoretical %v", ngain, nth)
	}
}
