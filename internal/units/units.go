// Package units provides shared constants and conversion for the length and
// angle units used in screw-adjustment reports.
package units

// Length unit constants. Internal computations are always in meters; reports
// convert on output. Mils (thousandths of an inch) match the legacy AIPS
// adjustment tables still used by some observatories.
const (
	M    = "m"
	MM   = "mm"
	UM   = "um"
	Mils = "mils"
)

// ValidLengthUnits contains all valid report length units.
var ValidLengthUnits = []string{M, MM, UM, Mils}

// IsValidLength checks if the given unit is a supported length unit.
func IsValidLength(unit string) bool {
	for _, valid := range ValidLengthUnits {
		if unit == valid {
			return true
		}
	}
	return false
}

// ValidLengthUnitsString returns a comma-separated string of valid length
// units for error messages.
func ValidLengthUnitsString() string {
	return "m, mm, um, mils"
}

// ConvertLength converts a length from meters to the target unit. Unknown
// units pass the value through unchanged in meters.
func ConvertLength(meters float64, targetUnit string) float64 {
	switch targetUnit {
	case MM:
		return meters * 1e3
	case UM:
		return meters * 1e6
	case Mils:
		return meters / 2.54e-5 // meters to thousandths of an inch
	case M:
		return meters
	default:
		return meters
	}
}

// Angle unit constants.
const (
	Rad = "rad"
	Deg = "deg"
)

// ConvertAngle converts an angle from radians to the target unit. Unknown
// units pass the value through unchanged in radians.
func ConvertAngle(radians float64, targetUnit string) float64 {
	if targetUnit == Deg {
		return radians * 180.0 / 3.141592653589793
	}
	return radians
}
