package panelfit

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/aperture.report/internal/geometry"
)

// Reasons a panel fit is flagged invalid. A bad panel never aborts its unit;
// it is carried through the report with its reason.
const (
	ReasonTooFewSamples  = "too few samples"
	ReasonIllConditioned = "ill-conditioned fit"
)

// FitConfig tunes the per-panel surface fit.
type FitConfig struct {
	Model Model
	// MinSamples is the minimum number of fit samples; the fit also
	// always requires more samples than free parameters.
	MinSamples int
	// ConditionLimit flags the fit invalid when the design matrix
	// condition number exceeds it (degenerate sample layouts).
	ConditionLimit float64
}

// Result is the fitted deformation of one panel. Params are in meters of
// surface displacement (piston) and meters per meter (tilts, curvatures) in
// the panel's local frame. Invalid results carry a Reason and no usable
// Params.
type Result struct {
	Panel   string
	Ring    int
	Index   int
	Model   Model
	Params  []float64
	RMS     float64 // weighted residual RMS in meters
	Samples int     // samples used in the fit
	Valid   bool
	Reason  string
}

// Fit performs a weighted least-squares fit of the configured model to one
// panel's displacement samples, minimising the sum of squared weighted
// residuals. Samples flagged out of the fit margin are excluded from the
// solve but included in the residual bookkeeping downstream.
//
// Degenerate panels (too few samples, rank-deficient or ill-conditioned
// layouts) return an invalid Result rather than an error.
func Fit(ps geometry.PanelSamples, cfg FitConfig) Result {
	res := Result{
		Panel: ps.Panel.Label,
		Ring:  ps.Panel.Ring,
		Index: ps.Panel.Index,
		Model: cfg.Model,
	}
	npar := cfg.Model.NumParams()
	if npar == 0 {
		res.Reason = "unknown model"
		return res
	}

	var xs, ys, devs, weights []float64
	for i := range ps.Dev {
		if !ps.InFit[i] || ps.Weight[i] <= 0 {
			continue
		}
		xs = append(xs, ps.X[i])
		ys = append(ys, ps.Y[i])
		devs = append(devs, ps.Dev[i])
		weights = append(weights, ps.Weight[i])
	}
	nfit := len(devs)
	res.Samples = nfit

	need := npar + 1
	if cfg.MinSamples > need {
		need = cfg.MinSamples
	}
	if nfit < need {
		res.Reason = ReasonTooFewSamples
		return res
	}

	// Weighted design matrix: each row scaled by sqrt(w) so the normal
	// equations minimise sum w·r².
	a := mat.NewDense(nfit, npar, nil)
	b := mat.NewVecDense(nfit, nil)
	for i := 0; i < nfit; i++ {
		sw := math.Sqrt(weights[i])
		terms := cfg.Model.Terms(xs[i], ys[i])
		for j, t := range terms {
			a.Set(i, j, sw*t)
		}
		b.SetVec(i, sw*devs[i])
	}

	// Conditioning check on the design matrix before solving. A rank
	// deficient or near-degenerate sample layout (all samples colinear,
	// for example) cannot support the model.
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDNone) {
		res.Reason = ReasonIllConditioned
		return res
	}
	values := svd.Values(nil)
	smallest := values[len(values)-1]
	limit := cfg.ConditionLimit
	if limit <= 0 {
		limit = 1e8
	}
	if smallest <= 0 || values[0]/smallest > limit {
		res.Reason = ReasonIllConditioned
		return res
	}

	// Solve via QR.
	var qr mat.QR
	qr.Factorize(a)
	var params mat.VecDense
	if err := qr.SolveVecTo(&params, false, b); err != nil {
		res.Reason = ReasonIllConditioned
		return res
	}

	res.Params = make([]float64, npar)
	for j := 0; j < npar; j++ {
		res.Params[j] = params.AtVec(j)
	}

	var sumWR2, sumW float64
	for i := 0; i < nfit; i++ {
		r := devs[i] - cfg.Model.Evaluate(res.Params, xs[i], ys[i])
		sumWR2 += weights[i] * r * r
		sumW += weights[i]
	}
	res.RMS = math.Sqrt(sumWR2 / sumW)
	res.Valid = true
	return res
}
