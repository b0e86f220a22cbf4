// Package report renders finished runs as operator-facing adjustment tables
// and machine-readable JSON documents.
package report

import (
	"fmt"
	"strings"

	"github.com/banshee-data/aperture.report/internal/pipeline"
	"github.com/banshee-data/aperture.report/internal/units"
)

// ScrewTable renders the legacy ASCII adjustment table for one unit of a
// run. Each panel is one row; the four columns pair the inner and outer
// panel edges with their left and right screws. Panels whose fit was
// rejected print INVALID instead of numbers so nobody turns a screw based
// on a bad fit.
func ScrewTable(rep *pipeline.Report, key pipeline.UnitKey, unit string) (string, error) {
	if !units.IsValidLength(unit) {
		return "", fmt.Errorf("invalid length unit %q, must be one of %s", unit, units.ValidLengthUnitsString())
	}
	res := rep.Results[key]
	if res == nil {
		return "", fmt.Errorf("no result for unit %s/%s", key.Antenna, key.Scan)
	}

	valid := make(map[string]bool, len(res.Fits))
	ring := make(map[string]int, len(res.Fits))
	index := make(map[string]int, len(res.Fits))
	var order []string
	for _, fit := range res.Fits {
		valid[fit.Panel] = fit.Valid
		ring[fit.Panel] = fit.Ring
		index[fit.Panel] = fit.Index
		order = append(order, fit.Panel)
	}
	screws := make(map[string][]float64)
	for _, adj := range res.Screws {
		screws[adj.Panel] = append(screws[adj.Panel], adj.Delta)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Screw adjustments for %s antenna %s scan %s\n", rep.Telescope, key.Antenna, key.Scan)
	fmt.Fprintf(&b, "Adjustments are in %s\n\n\n", unit)
	fmt.Fprintf(&b, "%25s%-22s%-22s\n", "", "Inner Edge", "Outer Edge")
	fmt.Fprintf(&b, "%5s%-8s%-8s  %-11s%-11s%-11s%-11s\n", "", "Ring", "panel", "left", "right", "left", "right")

	for _, panel := range order {
		if ring[panel] > 0 {
			fmt.Fprintf(&b, "%8d%8d  ", ring[panel], index[panel])
		} else {
			fmt.Fprintf(&b, "%16s  ", panel)
		}
		if !valid[panel] {
			for range screws[panel] {
				fmt.Fprintf(&b, "%10s ", "INVALID")
			}
		} else {
			for _, delta := range screws[panel] {
				fmt.Fprintf(&b, "%10.2f ", units.ConvertLength(delta, unit))
			}
		}
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// Summary renders a short human-readable digest of a whole run: per-unit
// surface RMS and gain before and after the fitted corrections, then the
// failed units with their causes.
func Summary(rep *pipeline.Report, unit string) (string, error) {
	if !units.IsValidLength(unit) {
		return "", fmt.Errorf("invalid length unit %q, must be one of %s", unit, units.ValidLengthUnitsString())
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Run %s on %s: %d units succeeded, %d failed\n",
		rep.RunID, rep.Telescope, rep.Succeeded(), rep.Failed())

	for _, key := range sortedResultKeys(rep) {
		res := rep.Results[key]
		fmt.Fprintf(&b, "  %s/%s: rms %.3f -> %.3f %s, gain %.2f -> %.2f dB (theoretical %.2f)\n",
			key.Antenna, key.Scan,
			units.ConvertLength(res.RMSBefore, unit), units.ConvertLength(res.RMSAfter, unit), unit,
			res.GainBefore, res.GainAfter, res.GainTheoretical)
	}
	for _, key := range rep.SortedFailureKeys() {
		fmt.Fprintf(&b, "  %s/%s: FAILED: %v\n", key.Antenna, key.Scan, rep.Failures[key])
	}
	return b.String(), nil
}
