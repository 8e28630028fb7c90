// Package hwtest runs the hardware validation suite against a freshly
// connected Ice Pulse sensor: boot, sensors, WiFi, API and OTA. Stages run
// in order and a failing stage never prevents the next from running.
package hwtest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/banshee-data/device-tools/internal/monitoring"
	"github.com/banshee-data/device-tools/internal/protocol"
	"github.com/banshee-data/device-tools/internal/session"
)

// Stage result names, as they appear in reports and the run store.
const (
	NameConnection = "connection"
	NamePowerOn    = "power_on"
	NameSensors    = "sensors"
	NameWiFi       = "wifi"
	NameAPI        = "api"
	NameOTA        = "ota"
)

// Sensor check names reported under the sensors stage.
const (
	SensorTemperature = "temperature"
	SensorHumidity    = "humidity"
	SensorPower       = "sensor_power"
)

// bootHistory is how many console lines are kept for a failed boot.
const bootHistory = 5

// Timeouts bounds each streaming stage.
type Timeouts struct {
	PowerOn time.Duration
	Sensors time.Duration
	WiFi    time.Duration
	API     time.Duration
	OTA     time.Duration
}

// DefaultTimeouts returns the stage deadlines used on the bench.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		PowerOn: 10 * time.Second,
		Sensors: 30 * time.Second,
		WiFi:    30 * time.Second,
		API:     20 * time.Second,
		OTA:     30 * time.Second,
	}
}

// State is the position of a Validator in the suite.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StatePowerOn
	StateSensors
	StateWiFi
	StateAPI
	StateOTA
	StateReported
)

var stateNames = [...]string{
	StateDisconnected: "disconnected",
	StateConnected:    "connected",
	StatePowerOn:      "power_on_tested",
	StateSensors:      "sensors_tested",
	StateWiFi:         "wifi_tested",
	StateAPI:          "api_tested",
	StateOTA:          "ota_tested",
	StateReported:     "reported",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Validator drives the suite over one session.
type Validator struct {
	s        *session.Session
	timeouts Timeouts
	state    State
}

// New returns a Validator. Zero timeouts take their defaults.
func New(s *session.Session, t Timeouts) *Validator {
	d := DefaultTimeouts()
	if t.PowerOn <= 0 {
		t.PowerOn = d.PowerOn
	}
	if t.Sensors <= 0 {
		t.Sensors = d.Sensors
	}
	if t.WiFi <= 0 {
		t.WiFi = d.WiFi
	}
	if t.API <= 0 {
		t.API = d.API
	}
	if t.OTA <= 0 {
		t.OTA = d.OTA
	}
	return &Validator{s: s, timeouts: t}
}

// State returns the last stage the validator completed.
func (v *Validator) State() State { return v.state }

// Run connects and executes every stage. A connection failure yields a
// report holding one failed connection entry together with the error. An
// I/O error or cancellation mid-suite stops the run and is returned with the
// stages recorded so far.
func (v *Validator) Run(ctx context.Context, port string) (Report, error) {
	clock := v.s.Clock()
	report := Report{Port: port, Started: clock.Now()}

	monitoring.Statusf("🧪 Starting Hardware Validation Suite")
	monitoring.Statusf("%s", strings.Repeat("=", 50))

	if err := v.s.Connect(); err != nil {
		monitoring.Statusf("❌ Connection failed: %v", err)
		report.add(Result{Name: NameConnection, Outcome: protocol.Fail(err.Error())})
		report.Finished = clock.Now()
		return report, err
	}
	defer v.s.Close()
	v.state = StateConnected
	monitoring.Statusf("✅ Connected to ESP32")

	stages := []struct {
		state State
		run   func(context.Context) (Result, error)
	}{
		{StatePowerOn, v.PowerOn},
		{StateSensors, v.Sensors},
		{StateWiFi, v.WiFi},
		{StateAPI, v.API},
		{StateOTA, v.OTA},
	}
	for _, st := range stages {
		res, err := st.run(ctx)
		report.add(res)
		if err != nil {
			report.Finished = clock.Now()
			return report, err
		}
		v.state = st.state
	}

	v.state = StateReported
	report.Finished = clock.Now()
	return report, nil
}

// PowerOn waits for the firmware's startup banner. The port open resets the
// board, so the banner is expected shortly after connecting.
func (v *Validator) PowerOn(ctx context.Context) (Result, error) {
	monitoring.Statusf("🔋 Testing power on...")

	res, err := v.s.Await(ctx, v.timeouts.PowerOn, func(line string) bool {
		verdict, ok := protocol.DetectEvent(protocol.StageBoot, line)
		return ok && verdict.Pass
	})
	if err != nil {
		return Result{Name: NamePowerOn, Outcome: protocol.Fail(err.Error())}, err
	}
	if res.Matched {
		monitoring.Statusf("✅ Device boot successful")
		return Result{Name: NamePowerOn, Outcome: protocol.Pass(res.Line)}, nil
	}

	tail := res.Tail(bootHistory)
	monitoring.Statusf("❌ Device boot failed")
	monitoring.Statusf("Boot messages: %q", tail)
	detail := "no boot banner"
	if len(tail) > 0 {
		detail = strings.Join(tail, " | ")
	}
	return Result{Name: NamePowerOn, Outcome: protocol.Fail(detail)}, nil
}

// Sensors asks the firmware for a sensor self-test and records which
// sensors reported plausible values. The stage passes when every sensor
// check passes and ends as soon as temperature and humidity have.
func (v *Validator) Sensors(ctx context.Context) (Result, error) {
	monitoring.Statusf("🌡️ Testing sensors...")

	checks := map[string]bool{
		SensorTemperature: false,
		SensorHumidity:    false,
		SensorPower:       false,
	}
	result := func(outcome protocol.Outcome) Result {
		return Result{
			Name:    NameSensors,
			Outcome: outcome,
			Checks: []Check{
				{SensorTemperature, checks[SensorTemperature]},
				{SensorHumidity, checks[SensorHumidity]},
				{SensorPower, checks[SensorPower]},
			},
		}
	}

	if err := v.s.Write(protocol.CmdTestSensors); err != nil {
		return result(protocol.Fail(err.Error())), err
	}

	_, err := v.s.Await(ctx, v.timeouts.Sensors, func(line string) bool {
		if t, ok := protocol.ExtractTemperature(line); ok {
			checks[SensorPower] = true
			if protocol.ValidTemperature(t) {
				checks[SensorTemperature] = true
				monitoring.Statusf("✅ Temperature sensor: %.2f°C", t)
			}
		}
		if h, ok := protocol.ExtractHumidity(line); ok {
			checks[SensorPower] = true
			if protocol.ValidHumidity(h) {
				checks[SensorHumidity] = true
				monitoring.Statusf("✅ Humidity sensor: %.2f%%", h)
			}
		}
		return checks[SensorTemperature] && checks[SensorHumidity]
	})
	if err != nil {
		return result(protocol.Fail(err.Error())), err
	}

	var failed []string
	for _, name := range []string{SensorTemperature, SensorHumidity, SensorPower} {
		if !checks[name] {
			failed = append(failed, name)
		}
	}
	if len(failed) > 0 {
		monitoring.Statusf("❌ Sensor test failed: %s", strings.Join(failed, ", "))
		return result(protocol.Fail("failed: " + strings.Join(failed, ", "))), nil
	}
	return result(protocol.Pass("all sensors responding")), nil
}

// WiFi asks the firmware to join the configured network.
func (v *Validator) WiFi(ctx context.Context) (Result, error) {
	return v.eventStage(ctx, eventCheck{
		name:    NameWiFi,
		command: protocol.CmdTestWiFi,
		stage:   protocol.StageWiFi,
		timeout: v.timeouts.WiFi,
		banner:  "📶 Testing WiFi connectivity...",
		passMsg: "✅ WiFi connection successful",
		failMsg: "❌ WiFi connection failed",
	})
}

// API asks the firmware to reach the backend.
func (v *Validator) API(ctx context.Context) (Result, error) {
	return v.eventStage(ctx, eventCheck{
		name:    NameAPI,
		command: protocol.CmdTestAPI,
		stage:   protocol.StageAPI,
		timeout: v.timeouts.API,
		banner:  "🌐 Testing API communication...",
		passMsg: "✅ API communication successful",
		failMsg: "❌ API communication failed",
	})
}

// OTA asks the firmware to run an update check.
func (v *Validator) OTA(ctx context.Context) (Result, error) {
	return v.eventStage(ctx, eventCheck{
		name:    NameOTA,
		command: protocol.CmdTestOTA,
		stage:   protocol.StageOTA,
		timeout: v.timeouts.OTA,
		banner:  "🔄 Testing OTA functionality...",
		passMsg: "✅ OTA system functional",
		failMsg: "❌ OTA system failed",
	})
}

type eventCheck struct {
	name    string
	command string
	stage   protocol.Stage
	timeout time.Duration
	banner  string
	passMsg string
	failMsg string
}

// eventStage sends a test command and waits for the first line that
// settles the stage's marker table.
func (v *Validator) eventStage(ctx context.Context, p eventCheck) (Result, error) {
	monitoring.Statusf("%s", p.banner)

	if err := v.s.Write(p.command); err != nil {
		return Result{Name: p.name, Outcome: protocol.Fail(err.Error())}, err
	}

	var verdict protocol.Verdict
	res, err := v.s.Await(ctx, p.timeout, func(line string) bool {
		var ok bool
		verdict, ok = protocol.DetectEvent(p.stage, line)
		return ok
	})
	if err != nil {
		return Result{Name: p.name, Outcome: protocol.Fail(err.Error())}, err
	}
	if res.TimedOut {
		monitoring.Statusf("❌ %s test timeout", p.name)
		return Result{Name: p.name, Outcome: protocol.Fail(fmt.Sprintf("timeout after %s", p.timeout))}, nil
	}
	if !verdict.Pass {
		monitoring.Statusf("%s", p.failMsg)
		return Result{Name: p.name, Outcome: protocol.Fail(verdict.Line)}, nil
	}
	monitoring.Statusf("%s", p.passMsg)
	return Result{Name: p.name, Outcome: protocol.Pass(verdict.Line)}, nil
}
