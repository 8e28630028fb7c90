package envlog

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/device-tools/internal/protocol"
	"github.com/banshee-data/device-tools/internal/serialport"
	"github.com/banshee-data/device-tools/internal/session"
	"github.com/banshee-data/device-tools/internal/testutil"
	"github.com/banshee-data/device-tools/internal/timeutil"
)

type memorySink struct {
	readings []protocol.Reading
}

func (m *memorySink) RecordReading(r protocol.Reading) error {
	m.readings = append(m.readings, r)
	return nil
}

func newLogger(t *testing.T) (*Logger, *testutil.SimFixture, *bytes.Buffer) {
	t.Helper()
	status := testutil.CaptureStatus(t)
	testutil.SilenceLogs(t)
	f := testutil.NewSimFixture(t)
	f.Device.ClearOutput()
	return New(f.Session, Config{}), f, status
}

// unpluggedPort fails every write, as a yanked USB adapter does.
type unpluggedPort struct{}

func (unpluggedPort) Read([]byte) (int, error)  { return 0, nil }
func (unpluggedPort) Write([]byte) (int, error) { return 0, errors.New("input/output error") }
func (unpluggedPort) Close() error              { return nil }

func newSession(t *testing.T, opener serialport.Opener) (*session.Session, *timeutil.MockClock) {
	t.Helper()
	clock := timeutil.NewMockClock(testutil.Epoch)
	tr := serialport.New(serialport.Config{Path: "/dev/ttyUSB0", Opener: opener, Clock: clock, BootDelay: -1})
	return session.New(tr, session.Config{}, clock), clock
}

func TestRun_SamplesEveryInterval(t *testing.T) {
	l, f, _ := newLogger(t)
	sink := &memorySink{}
	l.SetSink(sink)

	require.NoError(t, l.Run(context.Background(), 2*time.Minute))

	readings := l.Readings()
	require.Len(t, readings, 4)
	for i, r := range readings {
		assert.Equal(t, testutil.Epoch.Add(time.Duration(i)*30*time.Second), r.Time)
		assert.Equal(t, 21.5, r.Temperature)
		assert.Equal(t, 55.0, r.Humidity)
	}
	assert.Equal(t, readings, sink.readings)
	assert.False(t, f.Session.Connected())
}

func TestRun_IgnoresNonFiniteReadings(t *testing.T) {
	l, f, _ := newLogger(t)
	f.Device.Handle("get_reading", serialport.Reply(
		"Temperature: nan°C, Humidity: 55.00%",
		"Temperature: 20.75°C, Humidity: inf%",
		"Temperature: 20.75°C, Humidity: 58.00%",
	))

	require.NoError(t, l.Run(context.Background(), 10*time.Second))
	readings := l.Readings()
	require.Len(t, readings, 1)
	assert.Equal(t, 20.75, readings[0].Temperature)
	assert.Equal(t, 58.0, readings[0].Humidity)

	stats, err := Summarize(readings)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(stats.Temperature.Mean))
}

func TestRun_SkipsNoiseBeforeReading(t *testing.T) {
	l, f, _ := newLogger(t)
	f.Device.Handle("get_reading", serialport.Reply(
		"I (9000) wifi: rssi -61",
		"Temperature: 19.25°C, Humidity: 61.50%",
	))

	require.NoError(t, l.Run(context.Background(), 10*time.Second))
	readings := l.Readings()
	require.Len(t, readings, 1)
	assert.Equal(t, 19.25, readings[0].Temperature)
	assert.Equal(t, 61.5, readings[0].Humidity)
}

func TestRun_SilentDeviceRecordsNothing(t *testing.T) {
	l, f, _ := newLogger(t)
	f.Device.Handle("get_reading", serialport.Silent)

	require.NoError(t, l.Run(context.Background(), time.Minute))
	assert.Empty(t, l.Readings())
	// two polls, each waiting out the read timeout before the interval
	assert.Equal(t, []string{"get_reading", "get_reading"}, f.Device.Commands())
}

func TestRun_ErrorsBackOff(t *testing.T) {
	status := testutil.CaptureStatus(t)
	testutil.SilenceLogs(t)
	s, clock := newSession(t, func(string, serialport.PortOptions) (serialport.SerialPorter, error) {
		return unpluggedPort{}, nil
	})
	l := New(s, Config{})

	require.NoError(t, l.Run(context.Background(), 20*time.Second))
	assert.Empty(t, l.Readings())
	assert.Contains(t, status.String(), "Error reading data: input/output error")

	sleeps := clock.Sleeps()
	assert.Len(t, sleeps, 4)
	for _, d := range sleeps {
		assert.Equal(t, DefaultConfig().ErrorBackoff, d)
	}
}

func TestRun_CancelKeepsReadings(t *testing.T) {
	l, f, _ := newLogger(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.Clock.OnSleep = func(time.Time) {
		if len(l.readings) == 2 {
			cancel()
		}
	}

	require.NoError(t, l.Run(ctx, time.Hour))
	assert.Len(t, l.Readings(), 2)
	assert.False(t, f.Session.Connected())
}

func TestRun_ConnectFailure(t *testing.T) {
	testutil.SilenceLogs(t)
	opener := serialport.NewMockOpener(nil)
	opener.Error = errors.New("permission denied")
	s, _ := newSession(t, opener.Open)

	err := New(s, Config{}).Run(context.Background(), time.Minute)
	var connErr *serialport.ConnectionError
	assert.ErrorAs(t, err, &connErr)
}

func TestSummarize(t *testing.T) {
	readings := []protocol.Reading{
		{Time: testutil.Epoch, Temperature: 20, Humidity: 50},
		{Time: testutil.Epoch.Add(30 * time.Second), Temperature: 22, Humidity: 54},
		{Time: testutil.Epoch.Add(60 * time.Second), Temperature: 24, Humidity: 52},
	}
	s, err := Summarize(readings)
	require.NoError(t, err)

	assert.Equal(t, 3, s.Count)
	assert.Equal(t, testutil.Epoch, s.First)
	assert.Equal(t, testutil.Epoch.Add(time.Minute), s.Last)
	assert.Equal(t, 20.0, s.Temperature.Min)
	assert.Equal(t, 24.0, s.Temperature.Max)
	assert.InDelta(t, 22.0, s.Temperature.Mean, 1e-9)
	assert.InDelta(t, 2.0, s.Temperature.StdDev, 1e-9)
	assert.Equal(t, 50.0, s.Humidity.Min)
	assert.Equal(t, 54.0, s.Humidity.Max)
	assert.InDelta(t, 52.0, s.Humidity.Mean, 1e-9)
}

func TestSummarize_SingleReading(t *testing.T) {
	s, err := Summarize([]protocol.Reading{{Temperature: -3.5, Humidity: 80}})
	require.NoError(t, err)
	assert.Equal(t, -3.5, s.Temperature.Mean)
	assert.Equal(t, 0.0, s.Temperature.StdDev)
	assert.False(t, math.IsNaN(s.Humidity.StdDev))
}

func TestSummarize_Empty(t *testing.T) {
	_, err := Summarize(nil)
	assert.ErrorIs(t, err, ErrNoData)
}
