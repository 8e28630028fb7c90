package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/device-tools/internal/monitoring"
	"github.com/banshee-data/device-tools/internal/serialport"
	"github.com/banshee-data/device-tools/internal/version"
)

// errFailed signals a run that completed but did not pass. The failure has
// already been reported on stdout.
var errFailed = errors.New("failed")

type app struct {
	stdout io.Writer
	stderr io.Writer
	// newSimulator builds the device behind --dev.
	newSimulator func() *serialport.SimulatedDevice
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := newApp(os.Stdout, os.Stderr).run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{stdout: stdout, stderr: stderr, newSimulator: serialport.NewSimulatedDevice}
}

func (a *app) run(ctx context.Context, args []string) int {
	if len(args) < 1 {
		a.printUsage()
		return 1
	}
	prev := monitoring.SetStatusOutput(a.stdout)
	defer monitoring.SetStatusOutput(prev)

	command, rest := args[0], args[1:]
	var err error
	switch command {
	case "provision":
		err = a.cmdProvision(ctx, rest)
	case "hwtest":
		err = a.cmdHWTest(ctx, rest)
	case "envlog":
		err = a.cmdEnvLog(ctx, rest)
	case "calibrate":
		err = a.cmdCalibrate(ctx, rest)
	case "ports":
		err = a.cmdPorts(rest)
	case "runs":
		err = a.cmdRuns(rest)
	case "migrate":
		err = a.cmdMigrate(rest)
	case "version":
		fmt.Fprintf(a.stdout, "devicetool version %s\n", version.String())
	case "help", "-h", "--help":
		a.printUsage()
	default:
		fmt.Fprintf(a.stderr, "Unknown command: %s\n\n", command)
		a.printUsage()
		return 1
	}

	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errFailed):
		return 1
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(a.stderr, "Interrupted")
		return 1
	default:
		fmt.Fprintf(a.stderr, "❌ %s failed: %v\n", command, err)
		return 1
	}
}

func (a *app) printUsage() {
	fmt.Fprint(a.stdout, `devicetool - provisioning and validation for Ice Pulse sensors

Usage: devicetool <command> [options]

Commands:
  provision  Check the device answers and apply WiFi and device settings
  hwtest     Run the hardware validation suite
  envlog     Log temperature and humidity over time and chart the result
  calibrate  Derive and apply a temperature offset against a reference
  ports      List serial ports visible to this host
  runs       Show runs recorded in the database
  migrate    Manage the run database schema
  version    Show devicetool version
  help       Show this help message

Common Flags:
  --port, -p <path>    Serial port (default: /dev/ttyUSB0)
  --baudrate, -b <n>   Baud rate (default: 115200)
  --timing <file>      JSON timing overrides (see config/timing.defaults.json)
  --db <file>          Record the run in this sqlite database
  --dev                Talk to a simulated device instead of a serial port

Examples:
  # Provision WiFi and identity
  devicetool provision -p /dev/ttyUSB0 --wifi-ssid lab --wifi-password secret --device-id ice-pulse-007

  # Bench validation, recorded for later
  devicetool hwtest -p /dev/ttyUSB0 --db devicetool.db

  # Two hour soak with Fahrenheit charts
  devicetool envlog -p /dev/ttyUSB0 --duration 2h --unit f --out results/

  # Calibrate against a reference thermometer reading 22.40°C
  devicetool calibrate -p /dev/ttyUSB0 --reference 22.40
`)
}
