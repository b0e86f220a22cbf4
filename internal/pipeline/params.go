package pipeline

import (
	"fmt"

	"github.com/banshee-data/aperture.report/internal/config"
	"github.com/banshee-data/aperture.report/internal/holo"
	"github.com/banshee-data/aperture.report/internal/panelfit"
)

// Params is the fully resolved parameter set for one pipeline run. Build it
// from a TuningConfig with ParamsFromTuning, or construct it directly in
// tests.
type Params struct {
	GridSize int
	// GridExtent is the aperture-plane field of view in meters. Zero
	// derives it from the telescope diameter with a 20% margin.
	GridExtent        float64
	CoverageThreshold float64
	Kernel            holo.KernelKind
	KernelSigma       float64

	Window holo.WindowKind

	AmplitudeCutoff float64
	PanelMargin     float64

	FitModel        panelfit.Model
	MinPanelSamples int
	ConditionLimit  float64

	Workers int
}

// ParamsFromTuning resolves a TuningConfig into pipeline Params. A nil
// config yields the defaults.
func ParamsFromTuning(cfg *config.TuningConfig) (Params, error) {
	model, err := panelfit.ParseModel(cfg.GetFitModel())
	if err != nil {
		return Params{}, err
	}

	p := Params{
		GridSize:          cfg.GetGridSize(),
		CoverageThreshold: cfg.GetCoverageThreshold(),
		KernelSigma:       cfg.GetKernelSigma(),
		AmplitudeCutoff:   cfg.GetAmplitudeCutoff(),
		PanelMargin:       cfg.GetPanelMargin(),
		FitModel:          model,
		MinPanelSamples:   cfg.GetMinPanelSamples(),
		ConditionLimit:    cfg.GetConditionLimit(),
		Workers:           cfg.GetWorkers(),
	}

	switch cfg.GetGriddingKernel() {
	case "nearest":
		p.Kernel = holo.KernelNearest
	case "gaussian":
		p.Kernel = holo.KernelGaussian
	default:
		return Params{}, fmt.Errorf("unknown gridding kernel %q", cfg.GetGriddingKernel())
	}

	switch cfg.GetWindow() {
	case "none":
		p.Window = holo.WindowNone
	case "hann":
		p.Window = holo.WindowHann
	default:
		return Params{}, fmt.Errorf("unknown window %q", cfg.GetWindow())
	}
	return p, nil
}
