package hwtest

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/device-tools/internal/protocol"
	"github.com/banshee-data/device-tools/internal/serialport"
	"github.com/banshee-data/device-tools/internal/session"
	"github.com/banshee-data/device-tools/internal/testutil"
)

func newValidator(t *testing.T) (*Validator, *testutil.SimFixture) {
	t.Helper()
	testutil.CaptureStatus(t)
	testutil.SilenceLogs(t)
	f := testutil.NewSimFixture(t)
	return New(f.Session, Timeouts{}), f
}

func TestRun_AllStagesPass(t *testing.T) {
	v, f := newValidator(t)

	report, err := v.Run(context.Background(), "/dev/ttyUSB0")
	require.NoError(t, err)

	names := make([]string, 0, report.Total())
	for _, r := range report.Results {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{NamePowerOn, NameSensors, NameWiFi, NameAPI, NameOTA}, names)
	assert.Equal(t, 5, report.Passed())
	assert.True(t, report.AllPassed())
	assert.Equal(t, StateReported, v.State())
	assert.False(t, f.Session.Connected())
	assert.Equal(t, []string{"test_sensors", "test_wifi", "test_api", "test_ota"}, f.Device.Commands())

	sensors, ok := report.Result(NameSensors)
	require.True(t, ok)
	want := []Check{{SensorTemperature, true}, {SensorHumidity, true}, {SensorPower, true}}
	if diff := cmp.Diff(want, sensors.Checks); diff != "" {
		t.Errorf("sensor checks mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_StagesDoNotShortCircuit(t *testing.T) {
	v, f := newValidator(t)
	f.Device.ClearOutput() // no boot banner
	f.Device.Handle("test_wifi", serialport.Reply("I (7000) wifi: WiFi failed"))

	report, err := v.Run(context.Background(), "/dev/ttyUSB0")
	require.NoError(t, err)

	assert.Equal(t, 5, report.Total())
	assert.Equal(t, 3, report.Passed())
	assert.False(t, report.AllPassed())

	wifi, _ := report.Result(NameWiFi)
	assert.False(t, wifi.Passed())
	assert.Equal(t, "I (7000) wifi: WiFi failed", wifi.Outcome.Detail)

	ota, _ := report.Result(NameOTA)
	assert.True(t, ota.Passed(), "later stages still run")
}

func TestRun_ConnectionFailure(t *testing.T) {
	testutil.CaptureStatus(t)
	testutil.SilenceLogs(t)
	opener := serialport.NewMockOpener(nil)
	opener.Error = errors.New("no such file or directory")
	tr := serialport.New(serialport.Config{Path: "/dev/ttyUSB3", Opener: opener.Open, BootDelay: -1})
	v := New(session.New(tr, session.Config{}, nil), Timeouts{})

	report, err := v.Run(context.Background(), "/dev/ttyUSB3")
	require.Error(t, err)
	require.Equal(t, 1, report.Total())
	assert.Equal(t, NameConnection, report.Results[0].Name)
	assert.False(t, report.AllPassed())
	assert.Equal(t, StateDisconnected, v.State())
}

func TestPowerOn_BootAfterNoise(t *testing.T) {
	v, f := newValidator(t)
	f.Device.ClearOutput()
	f.Connect(t)
	f.Device.Emit("noise 1", "noise 2", "noise 3", "noise 4", "noise 5",
		"I (1402) ice_pulse_main: Ice Pulse Sensor started successfully")

	res, err := v.PowerOn(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Passed())
}

func TestPowerOn_TimeoutKeepsLastFiveLines(t *testing.T) {
	v, f := newValidator(t)
	f.Device.ClearOutput()
	f.Connect(t)
	f.Device.Emit("noise 1", "noise 2", "noise 3", "noise 4", "noise 5", "noise 6")
	start := f.Clock.Now()

	res, err := v.PowerOn(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Passed())
	assert.Equal(t, "noise 2 | noise 3 | noise 4 | noise 5 | noise 6", res.Outcome.Detail)
	assert.GreaterOrEqual(t, f.Clock.Since(start), 10*time.Second)
}

func TestSensors_OutOfRangeTemperature(t *testing.T) {
	v, f := newValidator(t)
	f.Connect(t)
	f.Device.ClearOutput()
	f.Device.Handle("test_sensors", serialport.Reply(
		"Temperature: 150.00°C",
		"Humidity: 40.00%",
	))

	res, err := v.Sensors(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Passed())
	want := []Check{{SensorTemperature, false}, {SensorHumidity, true}, {SensorPower, true}}
	assert.Equal(t, want, res.Checks)
}

func TestSensors_NoOutput(t *testing.T) {
	v, f := newValidator(t)
	f.Connect(t)
	f.Device.ClearOutput()
	f.Device.Handle("test_sensors", serialport.Silent)
	start := f.Clock.Now()

	res, err := v.Sensors(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Passed())
	assert.Equal(t, "failed: temperature, humidity, sensor_power", res.Outcome.Detail)
	assert.GreaterOrEqual(t, f.Clock.Since(start), DefaultTimeouts().Sensors)
}

func TestSensors_UnparseableLineIgnored(t *testing.T) {
	v, f := newValidator(t)
	f.Connect(t)
	f.Device.ClearOutput()
	f.Device.Handle("test_sensors", serialport.Reply(
		"Temperature: n/a°C",
		"Temperature: 20.00°C",
		"Humidity: 50.00%",
	))

	res, err := v.Sensors(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Passed())
}

func TestEventStages(t *testing.T) {
	tests := []struct {
		name    string
		command string
		reply   []string
		run     func(*Validator, context.Context) (Result, error)
		pass    bool
	}{
		{"wifi connected", "test_wifi", []string{"WiFi connected"}, (*Validator).WiFi, true},
		{"wifi failed", "test_wifi", []string{"WiFi failed: auth"}, (*Validator).WiFi, false},
		{"api 200", "test_api", []string{"noise", "API response: 200"}, (*Validator).API, true},
		{"api 2000 still matches", "test_api", []string{"API response: 2000"}, (*Validator).API, true},
		{"api failed", "test_api", []string{"API failed"}, (*Validator).API, false},
		{"ota completed", "test_ota", []string{"OTA check completed"}, (*Validator).OTA, true},
		{"ota failed", "test_ota", []string{"OTA failed"}, (*Validator).OTA, false},
		{"ota silent", "test_ota", nil, (*Validator).OTA, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, f := newValidator(t)
			f.Connect(t)
			f.Device.ClearOutput()
			f.Device.Handle(tt.command, serialport.Reply(tt.reply...))

			res, err := tt.run(v, context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.pass, res.Passed())
		})
	}
}

func TestEventStage_WriteError(t *testing.T) {
	v, f := newValidator(t)
	f.Connect(t)
	require.NoError(t, f.Device.Close())

	res, err := v.WiFi(context.Background())
	assert.Error(t, err)
	assert.False(t, res.Passed())
}

func TestReport_WriteSummary(t *testing.T) {
	r := Report{Results: []Result{
		{Name: NamePowerOn, Outcome: protocol.Pass("")},
		{Name: NameWiFi, Outcome: protocol.Fail("timeout")},
	}}
	var buf bytes.Buffer
	require.NoError(t, r.WriteSummary(&buf))
	out := buf.String()
	assert.Contains(t, out, "power_on       : ✅ PASS")
	assert.Contains(t, out, "wifi           : ❌ FAIL")
	assert.Contains(t, out, "Overall: 1/2 tests passed")
}

func TestReport_EmptyIsNotPassed(t *testing.T) {
	assert.False(t, Report{}.AllPassed())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "reported", StateReported.String())
	assert.Equal(t, "State(42)", State(42).String())
}
