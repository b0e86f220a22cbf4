package report

import (
	"encoding/json"
	"io"
	"sort"
	"time"

	"github.com/banshee-data/aperture.report/internal/pipeline"
)

// Document is the JSON shape of a finished run. Maps keyed by struct keys
// do not marshal, so the keyed aggregates are flattened into sorted arrays.
type Document struct {
	RunID      string    `json:"run_id"`
	Telescope  string    `json:"telescope"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Units    []UnitDocument    `json:"units"`
	Failures []FailureDocument `json:"failures,omitempty"`
}

type UnitDocument struct {
	pipeline.UnitKey
	RMSBefore       float64 `json:"rms_before_m"`
	RMSAfter        float64 `json:"rms_after_m"`
	GainBefore      float64 `json:"gain_before_db"`
	GainAfter       float64 `json:"gain_after_db"`
	GainTheoretical float64 `json:"gain_theoretical_db"`

	Panels []PanelDocument `json:"panels"`
}

type PanelDocument struct {
	Panel   string    `json:"panel"`
	Ring    int       `json:"ring,omitempty"`
	Index   int       `json:"index,omitempty"`
	Model   string    `json:"model"`
	Params  []float64 `json:"params,omitempty"`
	RMS     float64   `json:"rms_m"`
	Samples int       `json:"samples"`
	Valid   bool      `json:"valid"`
	Reason  string    `json:"reason,omitempty"`

	Screws []ScrewDocument `json:"screws"`
}

type ScrewDocument struct {
	Screw string  `json:"screw"`
	X     float64 `json:"x_m"`
	Y     float64 `json:"y_m"`
	Delta float64 `json:"delta_m"`
	Valid bool    `json:"valid"`
}

type FailureDocument struct {
	pipeline.UnitKey
	Error string `json:"error"`
}

// BuildDocument flattens a run report into its JSON document form.
func BuildDocument(rep *pipeline.Report) *Document {
	doc := &Document{
		RunID:      rep.RunID,
		Telescope:  rep.Telescope,
		StartedAt:  rep.StartedAt,
		FinishedAt: rep.FinishedAt,
	}

	for _, key := range sortedResultKeys(rep) {
		res := rep.Results[key]
		unit := UnitDocument{
			UnitKey:         key,
			RMSBefore:       res.RMSBefore,
			RMSAfter:        res.RMSAfter,
			GainBefore:      res.GainBefore,
			GainAfter:       res.GainAfter,
			GainTheoretical: res.GainTheoretical,
		}

		screwsByPanel := make(map[string][]ScrewDocument)
		for _, adj := range res.Screws {
			screwsByPanel[adj.Panel] = append(screwsByPanel[adj.Panel], ScrewDocument{
				Screw: adj.Screw,
				X:     adj.Pos.X,
				Y:     adj.Pos.Y,
				Delta: adj.Delta,
				Valid: adj.Valid,
			})
		}
		for _, fit := range res.Fits {
			unit.Panels = append(unit.Panels, PanelDocument{
				Panel:   fit.Panel,
				Ring:    fit.Ring,
				Index:   fit.Index,
				Model:   string(fit.Model),
				Params:  fit.Params,
				RMS:     fit.RMS,
				Samples: fit.Samples,
				Valid:   fit.Valid,
				Reason:  fit.Reason,
				Screws:  screwsByPanel[fit.Panel],
			})
		}
		doc.Units = append(doc.Units, unit)
	}

	for _, key := range rep.SortedFailureKeys() {
		doc.Failures = append(doc.Failures, FailureDocument{
			UnitKey: key,
			Error:   rep.Failures[key].Error(),
		})
	}
	return doc
}

// WriteJSON writes the indented JSON document for a run report.
func WriteJSON(w io.Writer, rep *pipeline.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(BuildDocument(rep))
}

func sortedResultKeys(rep *pipeline.Report) []pipeline.UnitKey {
	keys := make([]pipeline.UnitKey, 0, len(rep.Results))
	for k := range rep.Results {
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
