// Command fusion-sim runs the inertial/GPS fusion estimator against a
// simulated figure-8 trajectory, a replay log or a live serial device, then
// renders plots, an HTML dashboard and a summary table.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/banshee-data/sensorfusion/internal/config"
	"github.com/banshee-data/sensorfusion/internal/driver"
	"github.com/banshee-data/sensorfusion/internal/fusion"
	"github.com/banshee-data/sensorfusion/internal/linalg"
	"github.com/banshee-data/sensorfusion/internal/monitoring"
	"github.com/banshee-data/sensorfusion/internal/record"
	"github.com/banshee-data/sensorfusion/internal/render"
	"github.com/banshee-data/sensorfusion/internal/sensorlink"
	"github.com/banshee-data/sensorfusion/internal/version"
)

var (
	configPath  = flag.String("config", "", "Path to tuning config JSON (defaults to "+config.DefaultConfigPath+" when present)")
	outDir      = flag.String("out", "output", "Directory for PNG plots")
	htmlPath    = flag.String("html", "", "Path for the HTML dashboard (default <out>/dashboard.html, \"-\" to skip)")
	dbPath      = flag.String("db", "", "SQLite database to store the run in (optional)")
	listRuns    = flag.Bool("list-runs", false, "List runs stored in -db and exit")
	replayPath  = flag.String("replay", "", "Replay readings from a line-protocol log instead of simulating")
	serialPath  = flag.String("serial", "", "Read live readings from this serial device instead of simulating")
	baud        = flag.Int("baud", sensorlink.DefaultBaudRate, "Serial baud rate")
	dumpPath    = flag.String("dump", "", "Write simulated readings to this file as a replayable log")
	verbose     = flag.Bool("verbose", false, "Enable debug logging")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	monitoring.SetVerbose(*verbose)

	if *replayPath != "" && *serialPath != "" {
		log.Fatal("-replay and -serial are mutually exclusive")
	}

	tuning, err := loadTuning(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, tuning, os.Stdout); err != nil {
		log.Fatalf("fusion-sim: %v", err)
	}
}

// loadTuning reads path, or the defaults file when path is empty. A missing
// defaults file falls back to the built-in defaults.
func loadTuning(path string) (*config.TuningConfig, error) {
	if path != "" {
		return config.LoadTuningConfig(path)
	}
	cfg, err := config.LoadTuningConfig(config.DefaultConfigPath)
	if errors.Is(err, os.ErrNotExist) {
		monitoring.Debugf("no %s, using built-in defaults", config.DefaultConfigPath)
		return config.DefaultTuningConfig(), nil
	}
	return cfg, err
}

func run(ctx context.Context, tuning *config.TuningConfig, stdout io.Writer) error {
	var store *record.Store
	if *dbPath != "" {
		s, err := record.Open(*dbPath)
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.Migrate(); err != nil {
			return err
		}
		store = s
	}

	if *listRuns {
		if store == nil {
			return errors.New("-list-runs requires -db")
		}
		runs, err := store.Runs()
		if err != nil {
			return err
		}
		writeRunsTable(stdout, runs)
		return nil
	}

	var (
		recs   []record.Record
		stats  *driver.Stats
		source string
		err    error
	)
	switch {
	case *replayPath != "":
		source = "replay"
		recs, stats, err = feedFile(ctx, tuning, *replayPath)
	case *serialPath != "":
		source = "serial"
		recs, stats, err = feedSerial(ctx, tuning, *serialPath, *baud)
	default:
		source = "sim"
		recs, stats, err = simulate(ctx, tuning, *dumpPath)
	}
	if err != nil {
		return err
	}

	sum, err := record.Summarize(recs)
	if errors.Is(err, record.ErrNoRecords) {
		monitoring.Logf("no records produced; nothing to render")
		writeSummary(stdout, "", record.Summary{}, stats.Snapshot())
		return nil
	}
	if err != nil {
		return err
	}

	if err := render.RenderAll(*outDir, recs); err != nil {
		return fmt.Errorf("render plots: %w", err)
	}
	if err := writeDashboard(recs); err != nil {
		return err
	}

	runID := ""
	if store != nil {
		runID, err = persist(store, tuning, source, recs, sum, stats)
		if err != nil {
			return err
		}
	}

	writeSummary(stdout, runID, sum, stats.Snapshot())
	return nil
}

func simulate(ctx context.Context, tuning *config.TuningConfig, dump string) ([]record.Record, *driver.Stats, error) {
	runner, err := driver.NewRunnerFromTuning(tuning)
	if err != nil {
		return nil, nil, err
	}

	if dump != "" {
		f, err := os.Create(dump)
		if err != nil {
			return nil, nil, fmt.Errorf("create dump file: %w", err)
		}
		defer f.Close()
		enc := sensorlink.NewEncoder(f)
		runner.OnReading(func(r sensorlink.Reading) {
			if err := enc.Encode(r); err != nil {
				monitoring.Logf("dump: %v", err)
			}
		})
	}

	recs, err := runner.Run(ctx)
	return recs, runner.Stats(), err
}

func newFeeder(tuning *config.TuningConfig) (*sensorlink.Feeder, *driver.Stats, *[]record.Record, error) {
	est, err := fusion.New(linalg.Vec2{}, tuning.GetTimeStep(), fusion.ConfigFromTuning(tuning))
	if err != nil {
		return nil, nil, nil, err
	}
	stats := driver.NewStats()
	recs := new([]record.Record)
	f := sensorlink.NewFeeder(est, stats)
	f.OnUpdate(func(r record.Record) { *recs = append(*recs, r) })
	return f, stats, recs, nil
}

func feedFile(ctx context.Context, tuning *config.TuningConfig, path string) ([]record.Record, *driver.Stats, error) {
	f, stats, recs, err := newFeeder(tuning)
	if err != nil {
		return nil, nil, err
	}
	in, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open replay log: %w", err)
	}
	defer in.Close()

	res, err := f.Feed(ctx, in)
	monitoring.Logf("replayed %s: %d lines, %d predicts, %d updates, %d rejected, %d skipped",
		filepath.Base(path), res.Lines, res.Predicts, res.Updates, res.Rejected, res.Skipped)
	return *recs, stats, err
}

// feedSerial reads until the device closes or the process is interrupted.
func feedSerial(ctx context.Context, tuning *config.TuningConfig, path string, baud int) ([]record.Record, *driver.Stats, error) {
	f, stats, recs, err := newFeeder(tuning)
	if err != nil {
		return nil, nil, err
	}
	port, err := sensorlink.OpenSerial(path, sensorlink.PortOptions{BaudRate: baud})
	if err != nil {
		return nil, nil, err
	}
	defer port.Close()

	monitoring.Logf("reading %s at %d baud; interrupt to stop", path, baud)
	res, err := f.Feed(ctx, port)
	monitoring.Logf("serial feed ended after %d lines (%d updates)", res.Lines, res.Updates)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return *recs, stats, err
}

func writeDashboard(recs []record.Record) error {
	path := *htmlPath
	switch path {
	case "-":
		return nil
	case "":
		path = filepath.Join(*outDir, "dashboard.html")
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create dashboard: %w", err)
	}
	if err := render.WriteDashboard(f, recs); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	monitoring.Logf("wrote dashboard to %s", path)
	return nil
}

func persist(store *record.Store, tuning *config.TuningConfig, source string, recs []record.Record, sum record.Summary, stats *driver.Stats) (string, error) {
	runID, err := store.CreateRun(record.RunMeta{
		Source:           source,
		TimeStep:         tuning.GetTimeStep(),
		ProcessNoise:     tuning.GetProcessNoise(),
		MeasurementNoise: tuning.GetMeasurementNoise(),
		Seed:             tuning.GetSeed(),
	})
	if err != nil {
		return "", err
	}
	if err := store.InsertRecords(runID, recs); err != nil {
		return "", err
	}
	if err := store.FinishRun(runID, sum, int(stats.Snapshot().Rejected)); err != nil {
		return "", err
	}
	return runID, nil
}
