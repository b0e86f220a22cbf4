package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/aperture.report/internal/geometry"
	"github.com/banshee-data/aperture.report/internal/panelfit"
	"github.com/banshee-data/aperture.report/internal/pipeline"
)

func fixtureReport() (*pipeline.Report, pipeline.UnitKey) {
	key := pipeline.UnitKey{Antenna: "ea01", Scan: "scan1", Frequency: 15e9}
	failKey := pipeline.UnitKey{Antenna: "ea02", Scan: "scan1", Frequency: 15e9}

	res := &pipeline.UnitResult{
		Key: key,
		Fits: []panelfit.Result{
			{
				Panel: "1-1", Ring: 1, Index: 1,
				Model: panelfit.ModelRigid, Params: []float64{0.002, 0, 0},
				RMS: 1.2e-5, Samples: 40, Valid: true,
			},
			{
				Panel: "1-2", Ring: 1, Index: 2,
				Model: panelfit.ModelRigid,
				Samples: 2, Valid: false, Reason: panelfit.ReasonTooFewSamples,
			},
		},
		Screws: []panelfit.ScrewAdjustment{
			{Panel: "1-1", Screw: "il", Pos: geometry.Point{X: -0.3, Y: -0.4}, Delta: -0.002, Valid: true},
			{Panel: "1-1", Screw: "ir", Pos: geometry.Point{X: 0.3, Y: -0.4}, Delta: -0.002, Valid: true},
			{Panel: "1-1", Screw: "ol", Pos: geometry.Point{X: -0.3, Y: 0.4}, Delta: -0.0015, Valid: true},
			{Panel: "1-1", Screw: "or", Pos: geometry.Point{X: 0.3, Y: 0.4}, Delta: -0.0015, Valid: true},
			{Panel: "1-2", Screw: "il", Pos: geometry.Point{X: -0.3, Y: -0.4}, Valid: false},
			{Panel: "1-2", Screw: "ir", Pos: geometry.Point{X: 0.3, Y: -0.4}, Valid: false},
		},
		RMSBefore:       2.0e-4,
		RMSAfter:        4.0e-5,
		GainBefore:      61.0,
		GainAfter:       62.5,
		GainTheoretical: 63.0,
	}

	rep := &pipeline.Report{
		RunID:      "run-1",
		Telescope:  "vla",
		StartedAt:  time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2026, 8, 1, 10, 5, 0, 0, time.UTC),
		Results:    map[pipeline.UnitKey]*pipeline.UnitResult{key: res},
		Failures:   map[pipeline.UnitKey]error{failKey: errors.New("aperture grid coverage 2.0% below threshold 10.0%")},
	}
	return rep, key
}

func TestScrewTable(t *testing.T) {
	rep, key := fixtureReport()
	table, err := ScrewTable(rep, key, "mm")
	if err != nil {
		t.Fatalf("ScrewTable: %v", err)
	}

	if !strings.Contains(table, "Screw adjustments for vla antenna ea01 scan scan1") {
		t.Errorf("missing title:\n%s", table)
	}
	if !strings.Contains(table, "Adjustments are in mm") {
		t.Errorf("missing unit line:\n%s", table)
	}
	if !strings.Contains(table, "Inner Edge") || !strings.Contains(table, "Outer Edge") {
		t.Errorf("missing edge header:\n%s", table)
	}
	// -0.002 m prints as -2.00 in millimeters.
	if !strings.Contains(table, "-2.00") || !strings.Contains(table, "-1.50") {
		t.Errorf("missing converted deltas:\n%s", table)
	}
	if got := strings.Count(table, "INVALID"); got != 2 {
		t.Errorf("got %d INVALID cells, want 2 (one per screw of the bad panel):\n%s", got, table)
	}
}

func TestScrewTableMils(t *testing.T) {
	rep, key := fixtureReport()
	table, err := ScrewTable(rep, key, "mils")
	if err != nil {
		t.Fatalf("ScrewTable: %v", err)
	}
	// -0.002 m = -78.74 mils
	if !strings.Contains(table, "-78.74") {
		t.Errorf("missing mils conversion:\n%s", table)
	}
}

func TestScrewTableErrors(t *testing.T) {
	rep, key := fixtureReport()
	if _, err := ScrewTable(rep, key, "furlongs"); err == nil {
		t.Error("expected error for unknown unit")
	}
	missing := pipeline.UnitKey{Antenna: "nope", Scan: "scan1", Frequency: 15e9}
	if _, err := ScrewTable(rep, missing, "mm"); err == nil {
		t.Error("expected error for missing unit result")
	}
}

func TestSummary(t *testing.T) {
	rep, _ := fixtureReport()
	s, err := Summary(rep, "mm")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if !strings.Contains(s, "1 units succeeded, 1 failed") {
		t.Errorf("missing counts:\n%s", s)
	}
	if !strings.Contains(s, "ea01/scan1: rms 0.200 -> 0.040 mm") {
		t.Errorf("missing rms line:\n%s", s)
	}
	if !strings.Contains(s, "ea02/scan1: FAILED: aperture grid coverage") {
		t.Errorf("missing failure line:\n%s", s)
	}
}

func TestWriteJSONRoundTrip(t *testing.T) {
	rep, _ := fixtureReport()
	var buf bytes.Buffer
	if err := WriteJSON(&buf, rep); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var got Document
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decoding document: %v", err)
	}
	want := BuildDocument(rep)
	if diff := cmp.Diff(want, &got); diff != "" {
		t.Errorf("document round trip mismatch (-want +got):\n%s", diff)
	}

	if len(got.Units) != 1 || len(got.Units[0].Panels) != 2 {
		t.Fatalf("unexpected document shape: %+v", got)
	}
	if got.Units[0].Panels[0].Screws[0].Screw != "il" {
		t.Errorf("screws not attached to panels: %+v", got.Units[0].Panels[0])
	}
	if len(got.Failures) != 1 || got.Failures[0].Antenna != "ea02" {
		t.Errorf("failures not exported: %+v", got.Failures)
	}
}
