package holo

import (
	"fmt"
	"math"
)

// GridConfig configures a Gridder.
type GridConfig struct {
	Size              int     // cells per side
	Extent            float64 // aperture-plane field of view in meters
	CoverageThreshold float64 // minimum filled-cell fraction
	Kernel            KernelKind
	KernelSigma       float64 // gaussian sigma in cells
}

// Gridder accumulates visibility samples for one unit onto a uniform
// spatial-frequency grid. Deposits are weight-matched sums, so the result is
// independent of sample order and partial grids accumulated in parallel can
// be merged.
type Gridder struct {
	cfg     GridConfig
	grid    *ApertureGrid
	samples int
	clipped int
}

// NewGridder creates a Gridder for one (antenna, scan, frequency) unit.
func NewGridder(cfg GridConfig) (*Gridder, error) {
	if cfg.Size < 2 {
		return nil, fmt.Errorf("grid size must be at least 2, got %d", cfg.Size)
	}
	if cfg.Extent <= 0 {
		return nil, fmt.Errorf("grid extent must be positive, got %g", cfg.Extent)
	}
	if cfg.Kernel == KernelGaussian && cfg.KernelSigma <= 0 {
		return nil, fmt.Errorf("gaussian kernel requires positive sigma, got %g", cfg.KernelSigma)
	}
	return &Gridder{
		cfg: cfg,
		grid: &ApertureGrid{
			Size:        cfg.Size,
			Extent:      cfg.Extent,
			Vis:         makeComplexPlane(cfg.Size),
			Weight:      makeFloatPlane(cfg.Size),
			Kernel:      cfg.Kernel,
			KernelSigma: cfg.KernelSigma,
		},
	}, nil
}

// Add deposits one sample. Samples with non-positive weight are ignored;
// samples landing outside the grid are counted as clipped.
func (g *Gridder) Add(s Sample) {
	if s.Weight <= 0 {
		return
	}
	du := g.grid.CellSize()
	half := g.cfg.Size / 2
	ix := int(math.Round(s.U/du)) + half
	iy := int(math.Round(s.V/du)) + half
	if ix < 0 || ix >= g.cfg.Size || iy < 0 || iy >= g.cfg.Size {
		g.clipped++
		return
	}
	g.samples++

	switch g.cfg.Kernel {
	case KernelGaussian:
		g.depositGaussian(s, ix, iy)
	default:
		g.grid.Vis[iy][ix] += s.Vis * complex(s.Weight, 0)
		g.grid.Weight[iy][ix] += s.Weight
	}
}

// depositGaussian spreads the sample over a truncated gaussian footprint
// centered on the nearest cell. The footprint is cut at 3 sigma.
func (g *Gridder) depositGaussian(s Sample, ix, iy int) {
	radius := int(math.Ceil(3 * g.cfg.KernelSigma))
	twoSigmaSq := 2 * g.cfg.KernelSigma * g.cfg.KernelSigma
	for dy := -radius; dy <= radius; dy++ {
		jy := iy + dy
		if jy < 0 || jy >= g.cfg.Size {
			continue
		}
		for dx := -radius; dx <= radius; dx++ {
			jx := ix + dx
			if jx < 0 || jx >= g.cfg.Size {
				continue
			}
			k := math.Exp(-float64(dx*dx+dy*dy) / twoSigmaSq)
			g.grid.Vis[jy][jx] += s.Vis * complex(s.Weight*k, 0)
			g.grid.Weight[jy][jx] += s.Weight * k
		}
	}
}

// AddAll deposits a batch of samples.
func (g *Gridder) AddAll(samples []Sample) {
	for _, s := range samples {
		g.Add(s)
	}
}

// Partial returns the grid accumulated so far without a coverage check. Use
// it to hand a partially accumulated grid to Merge on another Gridder.
func (g *Gridder) Partial() *ApertureGrid {
	return g.grid
}

// Merge folds another partial grid into this one. Both grids must share
// dimensions, extent and kernel. Merging is commutative because cells only
// ever sum.
func (g *Gridder) Merge(other *ApertureGrid) error {
	if other.Size != g.grid.Size || other.Extent != g.grid.Extent {
		return fmt.Errorf("cannot merge grid %dx%d extent %g into %dx%d extent %g",
			other.Size, other.Size, other.Extent, g.grid.Size, g.grid.Size, g.grid.Extent)
	}
	if other.Kernel != g.grid.Kernel || other.KernelSigma != g.grid.KernelSigma {
		return fmt.Errorf("cannot merge grids with different gridding kernels")
	}
	for iy := 0; iy < g.grid.Size; iy++ {
		for ix := 0; ix < g.grid.Size; ix++ {
			g.grid.Vis[iy][ix] += other.Vis[iy][ix]
			g.grid.Weight[iy][ix] += other.Weight[iy][ix]
		}
	}
	return nil
}

// Finish validates coverage and returns the accumulated grid. It returns an
// *InsufficientDataError when the filled-cell fraction falls below the
// configured threshold.
func (g *Gridder) Finish() (*ApertureGrid, error) {
	filled := g.grid.FilledCells()
	total := g.cfg.Size * g.cfg.Size
	if float64(filled) < g.cfg.CoverageThreshold*float64(total) {
		return nil, &InsufficientDataError{Filled: filled, Total: total, Threshold: g.cfg.CoverageThreshold}
	}
	return g.grid, nil
}

// Clipped reports how many samples fell outside the grid.
func (g *Gridder) Clipped() int {
	return g.clipped
}
