// Package testutil provides shared test utilities and fixtures.
//
// The fixtures wire a session to a scripted SimulatedDevice on a virtual
// clock, so device flows run end to end without hardware or real waits.
package testutil

import (
	"bytes"
	"testing"
	"time"

	"github.com/banshee-data/device-tools/internal/monitoring"
	"github.com/banshee-data/device-tools/internal/serialport"
	"github.com/banshee-data/device-tools/internal/session"
	"github.com/banshee-data/device-tools/internal/timeutil"
)

// Epoch is the virtual start time of every fixture clock.
var Epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// SimFixture bundles a session with the simulated device behind it.
type SimFixture struct {
	Session *session.Session
	Device  *serialport.SimulatedDevice
	Clock   *timeutil.MockClock
}

// NewSimFixture returns an unconnected session over a fresh simulated
// device. The boot delay is skipped; the device's boot banner is still
// queued.
func NewSimFixture(t *testing.T) *SimFixture {
	t.Helper()
	dev := serialport.NewSimulatedDevice()
	clock := timeutil.NewMockClock(Epoch)
	tr := serialport.New(serialport.Config{
		Path:      "/dev/ttyUSB0",
		Opener:    dev.Opener(),
		Clock:     clock,
		BootDelay: -1,
	})
	s := session.New(tr, session.Config{}, clock)
	t.Cleanup(func() { s.Close() })
	return &SimFixture{Session: s, Device: dev, Clock: clock}
}

// Connect opens the fixture session, failing the test on error.
func (f *SimFixture) Connect(t *testing.T) {
	t.Helper()
	AssertNoError(t, f.Session.Connect())
}

// CaptureStatus redirects operator status output into a buffer for the
// rest of the test.
func CaptureStatus(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := monitoring.SetStatusOutput(&buf)
	t.Cleanup(func() { monitoring.SetStatusOutput(prev) })
	return &buf
}

// SilenceLogs discards diagnostic logging for the rest of the test.
func SilenceLogs(t *testing.T) {
	t.Helper()
	prev := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(prev) })
}
