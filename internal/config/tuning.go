package config

import (
	"fmt"
	"os"
	"path/filepath"

	"encoding/json"
)

// TuningConfig represents the tuning parameters for the aperture pipeline.
// All fields are pointers so that a partial JSON file only overrides the
// values it names; the Get* accessors supply defaults for absent fields.
type TuningConfig struct {
	// Gridding params
	GridSize          *int     `json:"grid_size,omitempty"`
	CoverageThreshold *float64 `json:"coverage_threshold,omitempty"`
	GriddingKernel    *string  `json:"gridding_kernel,omitempty"` // "nearest" or "gaussian"
	KernelSigma       *float64 `json:"kernel_sigma,omitempty"`    // gaussian sigma in cells

	// Inversion params
	Window *string `json:"window,omitempty"` // "hann" or "none"

	// Registration params
	AmplitudeCutoff *float64 `json:"amplitude_cutoff,omitempty"` // fraction of peak amplitude
	PanelMargin     *float64 `json:"panel_margin,omitempty"`     // fraction of panel ignored at edges

	// Panel fit params
	FitModel        *string  `json:"fit_model,omitempty"` // "mean", "rigid" or "xyparaboloid"
	MinPanelSamples *int     `json:"min_panel_samples,omitempty"`
	ConditionLimit  *float64 `json:"condition_limit,omitempty"`

	// Scheduling params
	Workers *int `json:"workers,omitempty"`
}

// Default tuning values. These mirror the commissioning defaults of the
// legacy panel task: 20% amplitude cutoff, 20% panel margins, rigid fits.
const (
	DefaultGridSize          = 128
	DefaultCoverageThreshold = 0.1
	DefaultGriddingKernel    = "nearest"
	DefaultKernelSigma       = 0.5
	DefaultWindow            = "hann"
	DefaultAmplitudeCutoff   = 0.2
	DefaultPanelMargin       = 0.2
	DefaultFitModel          = "rigid"
	DefaultMinPanelSamples   = 5
	DefaultConditionLimit    = 1e8
	DefaultWorkers           = 4
)

// EmptyTuningConfig returns a TuningConfig with all fields unset, so every
// accessor reports its default.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file must have
// a .json extension and be under the max file size. Fields omitted from the
// JSON retain their defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values outside their physical range. Unset fields are
// always valid.
func (c *TuningConfig) Validate() error {
	if c.GridSize != nil && *c.GridSize < 8 {
		return fmt.Errorf("grid_size must be at least 8, got %d", *c.GridSize)
	}
	if c.CoverageThreshold != nil && (*c.CoverageThreshold < 0 || *c.CoverageThreshold > 1) {
		return fmt.Errorf("coverage_threshold must be in [0,1], got %g", *c.CoverageThreshold)
	}
	if c.GriddingKernel != nil && *c.GriddingKernel != "nearest" && *c.GriddingKernel != "gaussian" {
		return fmt.Errorf("gridding_kernel must be nearest or gaussian, got %q", *c.GriddingKernel)
	}
	if c.KernelSigma != nil && *c.KernelSigma <= 0 {
		return fmt.Errorf("kernel_sigma must be positive, got %g", *c.KernelSigma)
	}
	if c.Window != nil && *c.Window != "hann" && *c.Window != "none" {
		return fmt.Errorf("window must be hann or none, got %q", *c.Window)
	}
	if c.AmplitudeCutoff != nil && (*c.AmplitudeCutoff < 0 || *c.AmplitudeCutoff >= 1) {
		return fmt.Errorf("amplitude_cutoff must be in [0,1), got %g", *c.AmplitudeCutoff)
	}
	if c.PanelMargin != nil && (*c.PanelMargin < 0 || *c.PanelMargin >= 0.5) {
		return fmt.Errorf("panel_margin must be in [0,0.5), got %g", *c.PanelMargin)
	}
	if c.FitModel != nil {
		switch *c.FitModel {
		case "mean", "rigid", "xyparaboloid":
		default:
			return fmt.Errorf("fit_model must be mean, rigid or xyparaboloid, got %q", *c.FitModel)
		}
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}
	return nil
}

func (c *TuningConfig) GetGridSize() int {
	if c != nil && c.GridSize != nil {
		return *c.GridSize
	}
	return DefaultGridSize
}

func (c *TuningConfig) GetCoverageThreshold() float64 {
	if c != nil && c.CoverageThreshold != nil {
		return *c.CoverageThreshold
	}
	return DefaultCoverageThreshold
}

func (c *TuningConfig) GetGriddingKernel() string {
	if c != nil && c.GriddingKernel != nil {
		return *c.GriddingKernel
	}
	return DefaultGriddingKernel
}

func (c *TuningConfig) GetKernelSigma() float64 {
	if c != nil && c.KernelSigma != nil {
		return *c.KernelSigma
	}
	return DefaultKernelSigma
}

func (c *TuningConfig) GetWindow() string {
	if c != nil && c.Window != nil {
		return *c.Window
	}
	return DefaultWindow
}

func (c *TuningConfig) GetAmplitudeCutoff() float64 {
	if c != nil && c.AmplitudeCutoff != nil {
		return *c.AmplitudeCutoff
	}
	return DefaultAmplitudeCutoff
}

func (c *TuningConfig) GetPanelMargin() float64 {
	if c != nil && c.PanelMargin != nil {
		return *c.PanelMargin
	}
	return DefaultPanelMargin
}

func (c *TuningConfig) GetFitModel() string {
	if c != nil && c.FitModel != nil {
		return *c.FitModel
	}
	return DefaultFitModel
}

func (c *TuningConfig) GetMinPanelSamples() int {
	if c != nil && c.MinPanelSamples != nil {
		return *c.MinPanelSamples
	}
	return DefaultMinPanelSamples
}

func (c *TuningConfig) GetConditionLimit() float64 {
	if c != nil && c.ConditionLimit != nil {
		return *c.ConditionLimit
	}
	return DefaultConditionLimit
}

func (c *TuningConfig) GetWorkers() int {
	if c != nil && c.Workers != nil {
		return *c.Workers
	}
	return DefaultWorkers
}
