package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/banshee-data/device-tools/internal/config"
	"github.com/banshee-data/device-tools/internal/db"
	"github.com/banshee-data/device-tools/internal/monitoring"
	"github.com/banshee-data/device-tools/internal/protocol"
	"github.com/banshee-data/device-tools/internal/serialport"
	"github.com/banshee-data/device-tools/internal/session"
	"github.com/banshee-data/device-tools/internal/timeutil"
)

const (
	defaultPort   = "/dev/ttyUSB0"
	defaultDBPath = "devicetool.db"
	simPort       = "sim://ice-pulse"
)

// commonFlags are shared by every subcommand that talks to a device.
type commonFlags struct {
	port   string
	baud   int
	timing string
	dbPath string
	dev    bool
}

func (a *app) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func addCommonFlags(fs *flag.FlagSet) *commonFlags {
	cf := &commonFlags{}
	fs.StringVar(&cf.port, "port", defaultPort, "Serial port")
	fs.StringVar(&cf.port, "p", defaultPort, "Serial port (shorthand)")
	fs.IntVar(&cf.baud, "baudrate", serialport.DefaultBaudRate, "Baud rate")
	fs.IntVar(&cf.baud, "b", serialport.DefaultBaudRate, "Baud rate (shorthand)")
	fs.StringVar(&cf.timing, "timing", "", "JSON timing overrides")
	fs.StringVar(&cf.dbPath, "db", "", "Record the run in this sqlite database")
	fs.BoolVar(&cf.dev, "dev", false, "Use a simulated device")
	return cf
}

func (cf *commonFlags) loadTiming() (*config.TimingConfig, error) {
	if cf.timing == "" {
		return &config.TimingConfig{}, nil
	}
	tc, err := config.LoadTimingConfig(cf.timing)
	if err != nil {
		return nil, fmt.Errorf("failed to load timing config: %w", err)
	}
	return tc, nil
}

// portPath is the port recorded in reports and the database.
func (cf *commonFlags) portPath() string {
	if cf.dev {
		return simPort
	}
	return cf.port
}

// openSession builds an unconnected session. With --dev the simulated
// device runs on a virtual clock so every wait completes immediately.
func (a *app) openSession(cf *commonFlags, tc *config.TimingConfig) *session.Session {
	// A configured zero boot delay disables the wait.
	bootDelay := tc.GetBootDelay()
	if bootDelay == 0 {
		bootDelay = -1
	}
	trCfg := serialport.Config{
		Path:      cf.portPath(),
		Options:   serialport.PortOptions{BaudRate: cf.baud},
		BootDelay: bootDelay,
	}
	var clock timeutil.Clock = timeutil.RealClock{}
	if cf.dev {
		trCfg.Opener = a.newSimulator().Opener()
		clock = timeutil.NewMockClock(time.Now())
		monitoring.Logf("using simulated device")
	}
	trCfg.Clock = clock

	return session.New(serialport.New(trCfg), session.Config{
		Settle:       tc.GetSettle(),
		IdleGap:      tc.GetIdleGap(),
		PollInterval: tc.GetPollInterval(),
	}, clock)
}

// openStore opens the run database when --db was given. A nil store
// records nothing.
func (cf *commonFlags) openStore() (*db.DB, error) {
	if cf.dbPath == "" {
		return nil, nil
	}
	store, err := db.NewDB(cf.dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}

// recorder writes one run to the store. A nil recorder or store is a no-op;
// storage failures are logged and never fail the device run.
type recorder struct {
	store *db.DB
	runID string
	clock timeutil.Clock
}

func startRecorder(store *db.DB, kind db.Kind, port string, clock timeutil.Clock) *recorder {
	if store == nil {
		return nil
	}
	id, err := store.StartRun(kind, port, clock.Now())
	if err != nil {
		monitoring.Logf("failed to record run: %v", err)
		return nil
	}
	return &recorder{store: store, runID: id, clock: clock}
}

func (r *recorder) result(name string, o protocol.Outcome) {
	if r == nil {
		return
	}
	if err := r.store.RecordResult(r.runID, db.Result{Name: name, Passed: o.OK, Detail: o.Detail}); err != nil {
		monitoring.Logf("%v", err)
	}
}

func (r *recorder) sink() *db.RunSink {
	if r == nil {
		return nil
	}
	return &db.RunSink{DB: r.store, RunID: r.runID}
}

func (r *recorder) finish(passed bool) {
	if r == nil {
		return
	}
	if err := r.store.FinishRun(r.runID, r.clock.Now(), passed); err != nil {
		monitoring.Logf("%v", err)
	}
	monitoring.Logf("recorded run %s", r.runID)
}
