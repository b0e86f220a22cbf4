package pipeline

import (
	"sort"
	"time"

	"github.com/banshee-data/aperture.report/internal/holo"
	"github.com/banshee-data/aperture.report/internal/panelfit"
)

// Unit identifies one independent chunk of work: all samples of one antenna
// in one scan at one observing frequency.
type Unit struct {
	Antenna   string
	Scan      string
	Frequency float64 // Hz
	Samples   []holo.Sample
}

// UnitKey identifies a unit in the aggregate report.
type UnitKey struct {
	Antenna   string  `json:"antenna"`
	Scan      string  `json:"scan"`
	Frequency float64 `json:"frequency"`
}

// Key returns the unit's aggregate key.
func (u *Unit) Key() UnitKey {
	return UnitKey{Antenna: u.Antenna, Scan: u.Scan, Frequency: u.Frequency}
}

// PanelKey addresses one panel's results in the aggregate report.
type PanelKey struct {
	Antenna string `json:"antenna"`
	Panel   string `json:"panel"`
	Scan    string `json:"scan"`
}

// UnitResult is the complete output of one successfully processed unit. The
// aperture image is retained for independent downstream inspection.
type UnitResult struct {
	Key    UnitKey
	Image  *holo.ApertureImage
	Fits   []panelfit.Result
	Screws []panelfit.ScrewAdjustment

	// Surface statistics over the illuminated, panel-assigned pixels.
	RMSBefore float64 // meters
	RMSAfter  float64 // meters, after applying fitted corrections
	GainBefore,
	GainAfter,
	GainTheoretical float64 // dB
}

// Report is the aggregate outcome of one pipeline run. Successful units
// contribute their panel fits and screw adjustments keyed by (antenna,
// panel, scan); failed units are recorded with their cause and excluded
// from aggregation. The two are deliberately distinct so operators can tell
// sparse-data problems from surface-fit problems.
type Report struct {
	RunID      string
	Telescope  string
	StartedAt  time.Time
	FinishedAt time.Time

	Results  map[UnitKey]*UnitResult
	Failures map[UnitKey]error

	PanelFits   map[PanelKey]panelfit.Result
	PanelScrews map[PanelKey][]panelfit.ScrewAdjustment
}

// Succeeded returns the number of units that completed.
func (r *Report) Succeeded() int { return len(r.Results) }

// Failed returns the number of units recorded as failed.
func (r *Report) Failed() int { return len(r.Failures) }

// SortedPanelKeys returns the panel keys in deterministic order: antenna,
// then scan, then panel label. Aggregation itself is keyed, so this is only
// for stable report output.
func (r *Report) SortedPanelKeys() []PanelKey {
	keys := make([]PanelKey, 0, len(r.PanelFits))
	for k := range r.PanelFits {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Antenna != keys[j].Antenna {
			return keys[i].Antenna < keys[j].Antenna
		}
		if keys[i].Scan != keys[j].Scan {
			return keys[i].Scan < keys[j].Scan
		}
		return keys[i].Panel < keys[j].Panel
	})
	return keys
}

// SortedFailureKeys returns the failed unit keys in deterministic order.
func (r *Report) SortedFailureKeys() []UnitKey {
	keys := make([]UnitKey, 0, len(r.Failures))
	for k := range r.Failures {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Antenna != keys[j].Antenna {
			return keys[i].Antenna < keys[j].Antenna
		}
		if keys[i].Scan != keys[j].Scan {
			return keys[i].Scan < keys[j].Scan
		}
		return keys[i].Frequency < keys[j].Frequency
	})
	return keys
}

// aggregate folds a unit result into the keyed maps.
func (r *Report) aggregate(res *UnitResult) {
	for _, fit := range res.Fits {
		key := PanelKey{Antenna: res.Key.Antenna, Panel: fit.Panel, Scan: res.Key.Scan}
		r.PanelFits[key] = fit
	}
	byPanel := make(map[string][]panelfit.ScrewAdjustment)
	for _, adj := range res.Screws {
		byPanel[adj.Panel] = append(byPanel[adj.Panel], adj)
	}
	for panel, adjs := range byPanel {
		key := PanelKey{Antenna: res.Key.Antenna, Panel: panel, Scan: res.Key.Scan}
		r.PanelScrews[key] = adjs
	}
}
