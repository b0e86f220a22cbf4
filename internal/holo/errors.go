package holo

import "fmt"

// InsufficientDataError reports a grid whose filled-cell fraction is below
// the coverage threshold. Inverting such a grid produces ringing artifacts
// rather than a usable aperture image, so the unit is abandoned.
type InsufficientDataError struct {
	Filled    int
	Total     int
	Threshold float64
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient grid coverage: %d of %d cells filled (%.1f%%), need %.1f%%",
		e.Filled, e.Total,
		100*float64(e.Filled)/float64(e.Total), 100*e.Threshold)
}
