package pipeline

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/aperture.report/internal/geometry"
	"github.com/banshee-data/aperture.report/internal/holo"
	"github.com/banshee-data/aperture.report/internal/monitoring"
	"github.com/banshee-data/aperture.report/internal/panelfit"
)

// Sink receives the finished report for persistence. The pipeline treats it
// as optional: a nil sink simply skips persistence.
type Sink interface {
	SaveReport(report *Report) error
}

// Runner executes pipeline runs against one telescope geometry. The
// geometry provider must be immutable; it is read concurrently by all
// units. Runner itself carries no run state, so multiple independent runs
// may share one Runner or use separate Runners in the same process.
type Runner struct {
	params Params
	prov   geometry.PanelGeometryProvider
	sink   Sink
}

// NewRunner creates a Runner for the given geometry and parameters.
func NewRunner(params Params, prov geometry.PanelGeometryProvider, sink Sink) *Runner {
	return &Runner{params: params, prov: prov, sink: sink}
}

// Run processes the units concurrently and returns the aggregate report.
// Each unit runs its full chain (grid, invert, register, fit, screws)
// sequentially on one worker; up to Workers units run at a time. A failed
// unit is recorded and excluded from aggregation without affecting its
// siblings. Units not yet scheduled when ctx is cancelled are recorded as
// failed with the context error; units already running complete normally.
func (r *Runner) Run(ctx context.Context, units []Unit) (*Report, error) {
	report := &Report{
		RunID:       uuid.New().String(),
		Telescope:   r.prov.Name(),
		StartedAt:   time.Now(),
		Results:     make(map[UnitKey]*UnitResult),
		Failures:    make(map[UnitKey]error),
		PanelFits:   make(map[PanelKey]panelfit.Result),
		PanelScrews: make(map[PanelKey][]panelfit.ScrewAdjustment),
	}

	workers := r.params.Workers
	if workers < 1 {
		workers = 1
	}
	monitoring.Logf("[Pipeline] run %s: %d units on %d workers (%s)",
		report.RunID, len(units), workers, report.Telescope)

	type outcome struct {
		key UnitKey
		res *UnitResult
		err error
	}
	outcomes := make([]outcome, len(units))

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i := range units {
		unit := &units[i]
		if err := ctx.Err(); err != nil {
			outcomes[i] = outcome{key: unit.Key(), err: fmt.Errorf("unit not scheduled: %w", err)}
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, unit *Unit) {
			defer wg.Done()
			defer func() { <-sem }()
			res, err := r.runUnit(unit)
			outcomes[i] = outcome{key: unit.Key(), res: res, err: err}
		}(i, unit)
	}
	wg.Wait()

	for _, o := range outcomes {
		if o.err != nil {
			monitoring.Logf("[Pipeline] unit %s/%s failed: %v", o.key.Antenna, o.key.Scan, o.err)
			report.Failures[o.key] = o.err
			continue
		}
		report.Results[o.key] = o.res
		report.aggregate(o.res)
	}
	report.FinishedAt = time.Now()
	monitoring.Logf("[Pipeline] run %s: %d succeeded, %d failed",
		report.RunID, report.Succeeded(), report.Failed())

	if r.sink != nil {
		if err := r.sink.SaveReport(report); err != nil {
			return report, fmt.Errorf("saving report: %w", err)
		}
	}
	return report, nil
}

// runUnit executes the full stage chain for one unit.
func (r *Runner) runUnit(unit *Unit) (*UnitResult, error) {
	if unit.Frequency <= 0 {
		return nil, fmt.Errorf("unit %s/%s: non-positive frequency %g", unit.Antenna, unit.Scan, unit.Frequency)
	}
	wavelength := holo.SpeedOfLight / unit.Frequency

	extent := r.params.GridExtent
	if extent <= 0 {
		extent = 1.2 * r.prov.Diameter()
	}

	gridder, err := holo.NewGridder(holo.GridConfig{
		Size:              r.params.GridSize,
		Extent:            extent,
		CoverageThreshold: r.params.CoverageThreshold,
		Kernel:            r.params.Kernel,
		KernelSigma:       r.params.KernelSigma,
	})
	if err != nil {
		return nil, err
	}
	gridder.AddAll(unit.Samples)
	if clipped := gridder.Clipped(); clipped > 0 {
		monitoring.Debugf("[Pipeline] unit %s/%s: %d samples outside the grid", unit.Antenna, unit.Scan, clipped)
	}
	grid, err := gridder.Finish()
	if err != nil {
		return nil, err
	}

	img, err := holo.Invert(grid, holo.InvertConfig{
		Window:     r.params.Window,
		Wavelength: wavelength,
		Focus:      r.prov.FocalLength(),
	})
	if err != nil {
		return nil, err
	}

	panelSamples, mask, err := geometry.Register(img, r.prov, geometry.RegistrarConfig{
		AmplitudeCutoff: r.params.AmplitudeCutoff,
		PanelMargin:     r.params.PanelMargin,
	})
	if err != nil {
		return nil, err
	}

	res := &UnitResult{Key: unit.Key(), Image: img}
	fitCfg := panelfit.FitConfig{
		Model:          r.params.FitModel,
		MinSamples:     r.params.MinPanelSamples,
		ConditionLimit: r.params.ConditionLimit,
	}

	// Residual plane starts as a copy of the deviations; each valid
	// panel's fitted surface is subtracted from its own pixels.
	resid := make([][]float64, img.Size)
	for iy := range resid {
		resid[iy] = make([]float64, img.Size)
		copy(resid[iy], img.Deviation[iy])
	}

	panels := r.prov.Panels()
	for i := range panelSamples {
		ps := &panelSamples[i]
		fit := panelfit.Fit(*ps, fitCfg)
		res.Fits = append(res.Fits, fit)
		res.Screws = append(res.Screws, panelfit.ResolveScrews(fit, panels[i].Screws)...)
		if !fit.Valid {
			monitoring.Debugf("[Pipeline] unit %s/%s panel %s: %s",
				unit.Antenna, unit.Scan, fit.Panel, fit.Reason)
			continue
		}
		for j := range ps.Dev {
			resid[ps.Iy[j]][ps.Ix[j]] -= fit.Model.Evaluate(fit.Params, ps.X[j], ps.Y[j])
		}
	}

	res.RMSBefore = maskedRMS(img.Deviation, mask)
	res.RMSAfter = maskedRMS(resid, mask)

	residPhase := make([][]float64, img.Size)
	for iy := range residPhase {
		residPhase[iy] = make([]float64, img.Size)
		for ix := range residPhase[iy] {
			if mask[iy][ix] {
				rad := math.Hypot(img.PhysicalX(ix), img.PhysicalY(iy))
				residPhase[iy][ix] = holo.DeviationToPhase(resid[iy][ix], rad, wavelength, img.Focus)
			}
		}
	}
	res.GainBefore, res.GainTheoretical = holo.GainDB(img.Phase, mask, img.PixelSize, wavelength)
	res.GainAfter, _ = holo.GainDB(residPhase, mask, img.PixelSize, wavelength)

	return res, nil
}

func maskedRMS(plane [][]float64, mask [][]bool) float64 {
	var sum float64
	n := 0
	for iy := range plane {
		for ix := range plane[iy] {
			if mask[iy][ix] {
				sum += plane[iy][ix] * plane[iy][ix]
				n++
			}
		}
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}
