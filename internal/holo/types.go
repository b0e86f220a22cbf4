// Package holo implements the aperture-domain half of the holography
// pipeline: accumulating calibrated visibility samples onto a regular
// spatial-frequency grid and inverting that grid into a complex
// aperture-plane image.
package holo

// SpeedOfLight in m/s, used to derive wavelength from observing frequency.
const SpeedOfLight = 299792458.0

// Sample is one calibrated holography visibility. U and V are spatial
// frequencies in cycles per meter across the aperture plane; Vis is the
// calibrated complex visibility; Weight is the statistical weight (1/sigma²)
// assigned by calibration. Samples are immutable once ingested.
type Sample struct {
	U      float64    `json:"u"`
	V      float64    `json:"v"`
	Vis    complex128 `json:"-"`
	Weight float64    `json:"weight"`
}

// ApertureGrid holds visibility data accumulated onto a uniform
// spatial-frequency grid. Vis[iy][ix] is the weight-summed complex
// visibility of a cell and Weight[iy][ix] its accumulated weight. A cell
// with zero weight received no samples and is unfilled, which is distinct
// from a filled cell whose visibility sums to zero.
//
// Each grid belongs to exactly one (antenna, scan, frequency) unit and is
// never shared across units.
type ApertureGrid struct {
	Size   int     // cells per side
	Extent float64 // full aperture-plane field of view in meters

	Vis    [][]complex128
	Weight [][]float64

	// Kernel records how samples were deposited, so the inverter can
	// apply the matching un-gridding correction.
	Kernel      KernelKind
	KernelSigma float64 // gaussian sigma in cells; unused for nearest
}

// KernelKind selects the sample deposit scheme used while gridding.
type KernelKind int

const (
	// KernelNearest deposits each sample into its single nearest cell.
	KernelNearest KernelKind = iota
	// KernelGaussian spreads each sample over a small truncated gaussian
	// footprint. The inverter divides the image by the kernel transform.
	KernelGaussian
)

// CellSize returns the spatial-frequency width of one grid cell in cycles
// per meter. The aperture-plane pixel size in meters is Extent/Size.
func (g *ApertureGrid) CellSize() float64 {
	return 1.0 / g.Extent
}

// FilledCells counts cells that received at least one sample.
func (g *ApertureGrid) FilledCells() int {
	filled := 0
	for iy := 0; iy < g.Size; iy++ {
		for ix := 0; ix < g.Size; ix++ {
			if g.Weight[iy][ix] > 0 {
				filled++
			}
		}
	}
	return filled
}

// ApertureImage is the reconstructed complex aperture-plane illumination of
// one unit. Amplitude, Phase and Deviation are Size×Size planes indexed
// [iy][ix]; pixel (ix, iy) sits at physical coordinate
// ((ix-Size/2)·PixelSize, (iy-Size/2)·PixelSize) relative to the dish
// center. Phase is unwrapped relative to the center pixel. Deviation is the
// surface displacement in meters along the reflector normal; positive means
// the surface sits outward of the ideal paraboloid.
type ApertureImage struct {
	Size       int
	PixelSize  float64 // meters per pixel
	Wavelength float64 // meters
	Focus      float64 // primary focal length in meters; 0 means flat geometry

	Amplitude [][]float64
	Phase     [][]float64
	Deviation [][]float64
}

// PhysicalX returns the aperture-plane x coordinate of pixel column ix.
func (img *ApertureImage) PhysicalX(ix int) float64 {
	return float64(ix-img.Size/2) * img.PixelSize
}

// PhysicalY returns the aperture-plane y coordinate of pixel row iy.
func (img *ApertureImage) PhysicalY(iy int) float64 {
	return float64(iy-img.Size/2) * img.PixelSize
}

// Extent returns the physical width of the image in meters.
func (img *ApertureImage) Extent() float64 {
	return float64(img.Size) * img.PixelSize
}

// PeakAmplitude returns the maximum amplitude over the image.
func (img *ApertureImage) PeakAmplitude() float64 {
	peak := 0.0
	for iy := 0; iy < img.Size; iy++ {
		for ix := 0; ix < img.Size; ix++ {
			if img.Amplitude[iy][ix] > peak {
				peak = img.Amplitude[iy][ix]
			}
		}
	}
	return peak
}

func makeComplexPlane(n int) [][]complex128 {
	p := make([][]complex128, n)
	for i := range p {
		p[i] = make([]complex128, n)
	}
	return p
}

func makeFloatPlane(n int) [][]float64 {
	p := make([][]float64, n)
	for i := range p {
		p[i] = make([]float64, n)
	}
	return p
}
