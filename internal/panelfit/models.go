// Package panelfit fits per-panel deformation models to registered aperture
// samples and converts the fitted surfaces into screw adjustments.
package panelfit

import "fmt"

// Model selects the deformation model fitted to each panel.
type Model string

const (
	// ModelMean fits a single piston term.
	ModelMean Model = "mean"
	// ModelRigid fits piston plus two tilts, a rigid-body plane. This is
	// the default commissioning model.
	ModelRigid Model = "rigid"
	// ModelXYParaboloid adds independent x² and y² curvature terms for
	// panels with deformable surfaces.
	ModelXYParaboloid Model = "xyparaboloid"
)

// ParseModel validates a model name from configuration.
func ParseModel(s string) (Model, error) {
	switch Model(s) {
	case ModelMean, ModelRigid, ModelXYParaboloid:
		return Model(s), nil
	}
	return "", fmt.Errorf("unknown fit model %q (want mean, rigid or xyparaboloid)", s)
}

// NumParams returns the number of free parameters of the model.
func (m Model) NumParams() int {
	switch m {
	case ModelMean:
		return 1
	case ModelRigid:
		return 3
	case ModelXYParaboloid:
		return 5
	}
	return 0
}

// Terms returns the design-matrix row of the model at a panel-local
// position: the partial derivative of the surface with respect to each
// parameter.
func (m Model) Terms(x, y float64) []float64 {
	switch m {
	case ModelMean:
		return []float64{1}
	case ModelRigid:
		return []float64{1, x, y}
	case ModelXYParaboloid:
		return []float64{1, x, y, x * x, y * y}
	}
	return nil
}

// Evaluate computes the model surface at a panel-local position.
func (m Model) Evaluate(params []float64, x, y float64) float64 {
	terms := m.Terms(x, y)
	v := 0.0
	for i, t := range terms {
		v += params[i] * t
	}
	return v
}
