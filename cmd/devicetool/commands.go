package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/device-tools/internal/calibrate"
	"github.com/banshee-data/device-tools/internal/db"
	"github.com/banshee-data/device-tools/internal/envlog"
	"github.com/banshee-data/device-tools/internal/hwtest"
	"github.com/banshee-data/device-tools/internal/protocol"
	"github.com/banshee-data/device-tools/internal/provision"
	"github.com/banshee-data/device-tools/internal/report"
	"github.com/banshee-data/device-tools/internal/security"
	"github.com/banshee-data/device-tools/internal/serialport"
	"github.com/banshee-data/device-tools/internal/units"
)

func (a *app) cmdProvision(ctx context.Context, args []string) error {
	fs := a.newFlagSet("provision")
	cf := addCommonFlags(fs)
	var opts provision.Options
	fs.StringVar(&opts.WiFiSSID, "wifi-ssid", "", "WiFi SSID")
	fs.StringVar(&opts.WiFiPassword, "wifi-password", "", "WiFi password")
	fs.StringVar(&opts.DeviceID, "device-id", "", "Device ID")
	fs.StringVar(&opts.APIEndpoint, "api-endpoint", "", "API endpoint URL")
	fs.StringVar(&opts.ConfigFile, "config-file", "", "JSON configuration file merged over the flags")
	if err := fs.Parse(args); err != nil {
		return err
	}

	tc, err := cf.loadTiming()
	if err != nil {
		return err
	}
	store, err := cf.openStore()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	s := a.openSession(cf, tc)
	rec := startRecorder(store, db.KindProvision, cf.portPath(), s.Clock())
	res, err := provision.New(s).Run(ctx, opts)
	for _, step := range res.Steps {
		rec.result(step.Name, step.Outcome)
	}
	rec.finish(err == nil)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		// Provisioner has already printed the reason.
		return errFailed
	}
	return nil
}

func (a *app) cmdHWTest(ctx context.Context, args []string) error {
	fs := a.newFlagSet("hwtest")
	cf := addCommonFlags(fs)
	jsonOut := fs.String("json", "", "Also write the report as JSON to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *jsonOut != "" {
		if err := security.ValidateOutputPath(*jsonOut); err != nil {
			return err
		}
	}
	// A bare positional argument is taken as the port.
	if fs.NArg() > 0 {
		cf.port = fs.Arg(0)
	}

	tc, err := cf.loadTiming()
	if err != nil {
		return err
	}
	store, err := cf.openStore()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	s := a.openSession(cf, tc)
	v := hwtest.New(s, hwtest.Timeouts{
		PowerOn: tc.GetPowerOnTimeout(),
		Sensors: tc.GetSensorsTimeout(),
		WiFi:    tc.GetWiFiTimeout(),
		API:     tc.GetAPITimeout(),
		OTA:     tc.GetOTATimeout(),
	})
	rec := startRecorder(store, db.KindHWTest, cf.portPath(), s.Clock())
	rep, runErr := v.Run(ctx, cf.portPath())
	for _, r := range rep.Results {
		rec.result(r.Name, r.Outcome)
	}
	rec.finish(runErr == nil && rep.AllPassed())

	if err := rep.WriteSummary(a.stdout); err != nil {
		return err
	}
	if *jsonOut != "" {
		if err := writeJSON(*jsonOut, rep); err != nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}
	if !rep.AllPassed() {
		return errFailed
	}
	return nil
}

func (a *app) cmdEnvLog(ctx context.Context, args []string) error {
	fs := a.newFlagSet("envlog")
	cf := addCommonFlags(fs)
	duration := fs.Duration("duration", 60*time.Minute, "How long to log")
	interval := fs.Duration("interval", 0, "Spacing between readings (overrides timing config)")
	outDir := fs.String("out", ".", "Directory for the PNG and HTML reports")
	unit := fs.String("unit", units.Celsius, "Temperature display unit: "+units.GetValidUnitsString())
	tz := fs.String("tz", "UTC", "Timezone for chart time axes")
	noHTML := fs.Bool("no-html", false, "Skip the interactive HTML report")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !units.IsValid(*unit) {
		return fmt.Errorf("invalid unit %q, expected one of: %s", *unit, units.GetValidUnitsString())
	}
	if !units.IsTimezoneValid(*tz) {
		return fmt.Errorf("invalid timezone %q", *tz)
	}
	if *duration <= 0 {
		return fmt.Errorf("duration must be positive")
	}
	if err := security.ValidateOutputPath(*outDir); err != nil {
		return err
	}

	tc, err := cf.loadTiming()
	if err != nil {
		return err
	}
	store, err := cf.openStore()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	cfg := envlog.Config{
		Interval:     tc.GetEnvInterval(),
		ReadTimeout:  tc.GetEnvReadTimeout(),
		ErrorBackoff: tc.GetEnvErrorBackoff(),
	}
	if *interval > 0 {
		cfg.Interval = *interval
	}

	s := a.openSession(cf, tc)
	l := envlog.New(s, cfg)
	rec := startRecorder(store, db.KindEnvLog, cf.portPath(), s.Clock())
	if rec != nil {
		l.SetSink(rec.sink())
	}
	runErr := l.Run(ctx, *duration)
	readings := l.Readings()
	rec.finish(runErr == nil && len(readings) > 0)
	if runErr != nil {
		return runErr
	}
	if len(readings) == 0 {
		fmt.Fprintln(a.stdout, "❌ No readings collected")
		return errFailed
	}
	return a.writeEnvReports(readings, *outDir, report.Options{Unit: *unit, Timezone: *tz}, !*noHTML)
}

func (a *app) writeEnvReports(readings []protocol.Reading, dir string, o report.Options, withHTML bool) error {
	pngPath := filepath.Join(dir, report.DefaultPNGName)
	if err := report.RenderPNG(pngPath, readings, o); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "📈 Report saved as %s\n", pngPath)

	if withHTML {
		htmlPath := filepath.Join(dir, report.DefaultHTMLName)
		f, err := os.Create(htmlPath)
		if err != nil {
			return err
		}
		if err := report.RenderHTML(f, readings, o); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "📈 Interactive report saved as %s\n", htmlPath)
	}

	stats, err := envlog.Summarize(readings)
	if err != nil {
		return err
	}
	return report.WriteStats(a.stdout, stats, o.Unit)
}

func (a *app) cmdCalibrate(ctx context.Context, args []string) error {
	fs := a.newFlagSet("calibrate")
	cf := addCommonFlags(fs)
	reference := fs.Float64("reference", 0, "Reference thermometer reading in °C (required)")
	samples := fs.Int("samples", 0, "Number of readings to average (overrides timing config)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !flagSet(fs, "reference") {
		fs.Usage()
		return fmt.Errorf("--reference is required")
	}

	tc, err := cf.loadTiming()
	if err != nil {
		return err
	}
	store, err := cf.openStore()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	cfg := calibrate.Config{
		Samples:     tc.GetCalibrationSamples(),
		Interval:    tc.GetCalibrationInterval(),
		ReadTimeout: tc.GetEnvReadTimeout(),
	}
	if *samples > 0 {
		cfg.Samples = *samples
	}

	s := a.openSession(cf, tc)
	rec := startRecorder(store, db.KindCalibrate, cf.portPath(), s.Clock())
	res, err := calibrate.New(s, cfg).Run(ctx, *reference)
	if rec != nil && err == nil {
		cal := db.Calibration{
			Reference: res.Reference,
			Average:   res.Average,
			Offset:    res.Offset,
			Samples:   len(res.Readings),
			Applied:   res.Applied.OK,
		}
		if err := rec.store.RecordCalibration(rec.runID, cal); err != nil {
			fmt.Fprintf(a.stderr, "warning: %v\n", err)
		}
		rec.result(protocol.CmdCalibrateTemp, res.Applied)
	}
	rec.finish(err == nil)
	return err
}

func (a *app) cmdPorts(args []string) error {
	fs := a.newFlagSet("ports")
	asJSON := fs.Bool("json", false, "Print as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ports, err := serialport.ListPorts()
	if err != nil {
		return err
	}
	if *asJSON {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ports)
	}
	if len(ports) == 0 {
		fmt.Fprintln(a.stdout, "No serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Fprintln(a.stdout, p.Describe())
	}
	return nil
}

func (a *app) cmdRuns(args []string) error {
	fs := a.newFlagSet("runs")
	dbPath := fs.String("db", defaultDBPath, "Run database")
	limit := fs.Int("limit", 20, "Maximum runs to list (0 for all)")
	runID := fs.String("run", "", "Show the results of a single run")
	if err := fs.Parse(args); err != nil {
		return err
	}
	store, err := db.NewDB(*dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	if *runID != "" {
		return a.showRun(store, *runID)
	}

	runs, err := store.Runs(*limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(a.stdout, "No runs recorded")
		return nil
	}
	fmt.Fprintf(a.stdout, "%-36s  %-9s  %-19s  %-7s  %s\n", "RUN", "KIND", "STARTED", "STATUS", "PORT")
	for _, r := range runs {
		fmt.Fprintf(a.stdout, "%-36s  %-9s  %-19s  %-7s  %s\n",
			r.ID, r.Kind, r.Started.Local().Format(time.DateTime), runStatus(r), r.Port)
	}
	return nil
}

func (a *app) showRun(store *db.DB, id string) error {
	r, err := store.Run(id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Run:     %s\n", r.ID)
	fmt.Fprintf(a.stdout, "Kind:    %s\n", r.Kind)
	fmt.Fprintf(a.stdout, "Port:    %s\n", r.Port)
	fmt.Fprintf(a.stdout, "Started: %s\n", r.Started.Local().Format(time.DateTime))
	if r.Finished != nil {
		fmt.Fprintf(a.stdout, "Took:    %s\n", r.Finished.Sub(r.Started).Round(time.Second))
	}
	fmt.Fprintf(a.stdout, "Status:  %s\n", runStatus(r))

	results, err := store.Results(id)
	if err != nil {
		return err
	}
	for _, res := range results {
		mark := "✅ PASS"
		if !res.Passed {
			mark = "❌ FAIL"
		}
		line := fmt.Sprintf("  %-15s: %s", res.Name, mark)
		if res.Detail != "" {
			line += " (" + res.Detail + ")"
		}
		fmt.Fprintln(a.stdout, line)
	}

	switch r.Kind {
	case db.KindEnvLog:
		readings, err := store.Readings(id)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "Readings: %d\n", len(readings))
		if stats, err := envlog.Summarize(readings); err == nil {
			return report.WriteStats(a.stdout, stats, units.Celsius)
		}
	case db.KindCalibrate:
		c, err := store.Calibration(id)
		if errors.Is(err, db.ErrRunNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "Reference: %.2f°C  Average: %.2f°C  Offset: %.2f°C  Samples: %d\n",
			c.Reference, c.Average, c.Offset, c.Samples)
	}
	return nil
}

func runStatus(r db.Run) string {
	switch {
	case r.Passed == nil:
		return "running"
	case *r.Passed:
		return "PASS"
	default:
		return "FAIL"
	}
}

func (a *app) cmdMigrate(args []string) error {
	fs := a.newFlagSet("migrate")
	dbPath := fs.String("db", defaultDBPath, "Run database")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return db.RunMigrateCommand(a.stdout, fs.Args(), *dbPath)
}

// flagSet reports whether name was given on the command line.
func flagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
