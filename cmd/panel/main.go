// Command panel runs the holography panel-adjustment pipeline: it reads
// gridded calibrated visibilities, images the aperture, fits the panel
// surfaces and writes screw adjustment tables.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/banshee-data/aperture.report/internal/config"
	"github.com/banshee-data/aperture.report/internal/geometry"
	"github.com/banshee-data/aperture.report/internal/holo"
	"github.com/banshee-data/aperture.report/internal/monitoring"
	"github.com/banshee-data/aperture.report/internal/pipeline"
	"github.com/banshee-data/aperture.report/internal/report"
	"github.com/banshee-data/aperture.report/internal/storage/sqlite"
	"github.com/banshee-data/aperture.report/internal/units"
)

func main() {
	var (
		samplesPath   string
		telescopeName string
		configPath    string
		dbPath        string
		migrationsDir string
		outPath       string
		tableDir      string
		lengthUnit    string
		debug         bool
	)
	flag.StringVar(&samplesPath, "samples", "", "path to visibility samples JSON (required)")
	flag.StringVar(&telescopeName, "telescope", "vla", "built-in telescope geometry name")
	flag.StringVar(&configPath, "config", "", "path to tuning config JSON (defaults apply if empty)")
	flag.StringVar(&dbPath, "db", "", "path to sqlite result store (no persistence if empty)")
	flag.StringVar(&migrationsDir, "migrations", "", "apply schema migrations from this directory before the run")
	flag.StringVar(&outPath, "out", "", "write the full run report as JSON to this file")
	flag.StringVar(&tableDir, "tables", "", "write per-unit screw adjustment tables into this directory")
	flag.StringVar(&lengthUnit, "unit", units.MM, "length unit for adjustment tables (m, mm, um, mils)")
	flag.BoolVar(&debug, "debug", false, "enable debug logging")
	flag.Parse()

	monitoring.SetDebug(debug)

	if samplesPath == "" {
		log.Fatal("missing required -samples flag")
	}
	if !units.IsValidLength(lengthUnit) {
		log.Fatalf("invalid -unit %q, must be one of %s", lengthUnit, units.ValidLengthUnitsString())
	}

	cfg := config.EmptyTuningConfig()
	if configPath != "" {
		var err error
		cfg, err = config.LoadTuningConfig(configPath)
		if err != nil {
			log.Fatalf("loading tuning config: %v", err)
		}
	}
	params, err := pipeline.ParamsFromTuning(cfg)
	if err != nil {
		log.Fatalf("invalid tuning config: %v", err)
	}

	prov, err := geometry.BuiltIn(telescopeName)
	if err != nil {
		log.Fatalf("unknown telescope: %v", err)
	}

	runUnits, err := loadUnits(samplesPath)
	if err != nil {
		log.Fatalf("loading samples: %v", err)
	}

	var sink pipeline.Sink
	if dbPath != "" {
		db, err := sqlite.Open(dbPath)
		if err != nil {
			log.Fatalf("opening result store: %v", err)
		}
		defer db.Close()
		if migrationsDir != "" {
			if err := db.MigrateUp(migrationsDir); err != nil {
				log.Fatalf("migrating result store: %v", err)
			}
		}
		sink = db
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := pipeline.NewRunner(params, prov, sink)
	rep, err := runner.Run(ctx, runUnits)
	if err != nil {
		log.Fatalf("run failed: %v", err)
	}

	summary, err := report.Summary(rep, lengthUnit)
	if err != nil {
		log.Fatalf("rendering summary: %v", err)
	}
	fmt.Print(summary)

	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			log.Fatalf("creating report file: %v", err)
		}
		if err := report.WriteJSON(f, rep); err != nil {
			f.Close()
			log.Fatalf("writing report: %v", err)
		}
		if err := f.Close(); err != nil {
			log.Fatalf("closing report file: %v", err)
		}
	}

	if tableDir != "" {
		if err := writeTables(rep, tableDir, lengthUnit); err != nil {
			log.Fatalf("writing adjustment tables: %v", err)
		}
	}

	if rep.Failed() > 0 {
		os.Exit(1)
	}
}

// sampleJSON is one visibility sample on disk. Visibilities arrive as
// separate real and imaginary parts since JSON has no complex numbers.
type sampleJSON struct {
	U      float64 `json:"u"`
	V      float64 `json:"v"`
	Re     float64 `json:"re"`
	Im     float64 `json:"im"`
	Weight float64 `json:"weight"`
}

type unitJSON struct {
	Antenna   string       `json:"antenna"`
	Scan      string       `json:"scan"`
	Frequency float64      `json:"frequency"`
	Samples   []sampleJSON `json:"samples"`
}

type samplesFile struct {
	Units []unitJSON `json:"units"`
}

func loadUnits(path string) ([]pipeline.Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file samplesFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(file.Units) == 0 {
		return nil, fmt.Errorf("%s contains no units", path)
	}

	out := make([]pipeline.Unit, 0, len(file.Units))
	for _, u := range file.Units {
		unit := pipeline.Unit{Antenna: u.Antenna, Scan: u.Scan, Frequency: u.Frequency}
		for _, s := range u.Samples {
			unit.Samples = append(unit.Samples, holo.Sample{
				U: s.U, V: s.V, Vis: complex(s.Re, s.Im), Weight: s.Weight,
			})
		}
		out = append(out, unit)
	}
	return out, nil
}

func writeTables(rep *pipeline.Report, dir, lengthUnit string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for key := range rep.Results {
		table, err := report.ScrewTable(rep, key, lengthUnit)
		if err != nil {
			return err
		}
		name := fmt.Sprintf("screws_%s_%s.txt", key.Antenna, key.Scan)
		if err := os.WriteFile(filepath.Join(dir, name), []byte(table), 0644); err != nil {
			return err
		}
	}
	return nil
}
