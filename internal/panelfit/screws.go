package panelfit

import "github.com/banshee-data/aperture.report/internal/geometry"

// ScrewAdjustment is the displacement correction for one actuator screw.
// Delta is in meters, signed so that a positive value moves the panel
// outward along its normal. Adjustments derived from an invalid fit are
// themselves invalid and carry no usable Delta.
type ScrewAdjustment struct {
	Panel string
	Screw string
	Pos   geometry.Point // panel-local screw position
	Delta float64
	Valid bool
}

// ResolveScrews evaluates a panel's fitted surface at each screw position
// and negates it: the screws move the panel by the opposite of its measured
// deviation. An invalid fit propagates invalidity to every screw of the
// panel; no numbers are extrapolated from an unreliable fit.
func ResolveScrews(res Result, screws []geometry.Screw) []ScrewAdjustment {
	out := make([]ScrewAdjustment, 0, len(screws))
	for _, s := range screws {
		adj := ScrewAdjustment{
			Panel: res.Panel,
			Screw: s.Label,
			Pos:   s.Pos,
		}
		if res.Valid {
			adj.Delta = -res.Model.Evaluate(res.Params, s.Pos.X, s.Pos.Y)
			adj.Valid = true
		}
		out = append(out, adj)
	}
	return out
}
