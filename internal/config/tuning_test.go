package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsFromEmptyConfig(t *testing.T) {
	cfg := EmptyTuningConfig()
	assert.Equal(t, DefaultGridSize, cfg.GetGridSize())
	assert.Equal(t, DefaultCoverageThreshold, cfg.GetCoverageThreshold())
	assert.Equal(t, DefaultFitModel, cfg.GetFitModel())
	assert.Equal(t, DefaultWorkers, cfg.GetWorkers())

	// Accessors must be safe on a nil receiver, matching how optional
	// configs are threaded through the pipeline.
	var nilCfg *TuningConfig
	assert.Equal(t, DefaultWindow, nilCfg.GetWindow())
}

func TestLoadTuningConfigPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.json")
	content := `{"grid_size": 64, "fit_model": "xyparaboloid", "workers": 2}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadTuningConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.GetGridSize())
	assert.Equal(t, "xyparaboloid", cfg.GetFitModel())
	assert.Equal(t, 2, cfg.GetWorkers())
	// Unset field falls back to default.
	assert.Equal(t, DefaultPanelMargin, cfg.GetPanelMargin())
}

func TestLoadTuningConfigRejectsBadExtension(t *testing.T) {
	_, err := LoadTuningConfig("tuning.yaml")
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	bad := map[string]TuningConfig{
		"tiny grid":         {GridSize: ptrInt(4)},
		"coverage over 1":   {CoverageThreshold: ptrFloat64(1.5)},
		"unknown kernel":    {GriddingKernel: ptrString("boxcar")},
		"zero kernel sigma": {GriddingKernel: ptrString("gaussian"), KernelSigma: ptrFloat64(0)},
		"unknown window":    {Window: ptrString("blackman")},
		"cutoff at 1":       {AmplitudeCutoff: ptrFloat64(1.0)},
		"margin over limit": {PanelMargin: ptrFloat64(0.5)},
		"unknown fit model": {FitModel: ptrString("septic")},
		"zero workers":      {Workers: ptrInt(0)},
	}
	for name, cfg := range bad {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, cfg.Validate())
		})
	}

	good := TuningConfig{GridSize: ptrInt(32), FitModel: ptrString("mean")}
	assert.NoError(t, good.Validate())

	// Gaussian kernel with sigma left unset falls back to the (positive)
	// default, so the combination is always usable after validation.
	gaussianDefault := TuningConfig{GriddingKernel: ptrString("gaussian")}
	assert.NoError(t, gaussianDefault.Validate())
}

func ptrInt(v int) *int             { return &v }
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
