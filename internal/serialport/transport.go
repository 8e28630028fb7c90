// Package serialport owns the serial connection to a single Ice Pulse device.
// It opens and closes the line and exposes raw writes and non-blocking
// reads; framing and interpretation live in the session and protocol
// packages.
package serialport

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/banshee-data/device-tools/internal/monitoring"
	"github.com/banshee-data/device-tools/internal/timeutil"
)

// DefaultBootDelay is how long to wait after opening the port. Opening the
// line toggles DTR on most USB bridges, which resets the ESP32.
const DefaultBootDelay = 2 * time.Second

const readChunkSize = 4096

var (
	// ErrNotConnected is returned when I/O is attempted before Connect or
	// after Disconnect.
	ErrNotConnected = errors.New("not connected to device")

	// ErrWriteFailed is returned when the port accepted fewer bytes than
	// were written.
	ErrWriteFailed = errors.New("failed to write to serial port")
)

// ConnectionError reports that the serial device could not be opened.
type ConnectionError struct {
	Path string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to open serial port %s: %v", e.Path, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Config configures a Transport.
type Config struct {
	Path    string
	Options PortOptions
	// BootDelay is waited after a successful open. Zero uses
	// DefaultBootDelay; a negative value disables the wait.
	BootDelay time.Duration
	// Opener opens the port. Nil uses OpenSerial.
	Opener Opener
	// Clock is used for the boot delay. Nil uses the real clock.
	Clock timeutil.Clock
}

// Transport is an exclusively owned serial connection. It is not safe for
// concurrent use; the device protocol allows one command in flight.
type Transport struct {
	path      string
	opts      PortOptions
	bootDelay time.Duration
	opener    Opener
	clock     timeutil.Clock

	port SerialPorter
	buf  []byte
}

// New creates a disconnected Transport.
func New(cfg Config) *Transport {
	t := &Transport{
		path:      cfg.Path,
		opts:      cfg.Options,
		bootDelay: cfg.BootDelay,
		opener:    cfg.Opener,
		clock:     cfg.Clock,
		buf:       make([]byte, readChunkSize),
	}
	if t.bootDelay == 0 {
		t.bootDelay = DefaultBootDelay
	}
	if t.opener == nil {
		t.opener = OpenSerial
	}
	if t.clock == nil {
		t.clock = timeutil.RealClock{}
	}
	return t
}

// Path returns the serial device path.
func (t *Transport) Path() string { return t.path }

// Connected reports whether the port is currently open.
func (t *Transport) Connected() bool { return t.port != nil }

// Connect opens the serial port and waits for the device to settle.
// Calling Connect on an open transport is a no-op.
func (t *Transport) Connect() error {
	if t.port != nil {
		return nil
	}
	if t.path == "" {
		return &ConnectionError{Path: t.path, Err: errors.New("serial port path is required")}
	}

	port, err := t.opener(t.path, t.opts)
	if err != nil {
		return &ConnectionError{Path: t.path, Err: err}
	}
	t.port = port
	monitoring.Logf("opened %s at %s", t.path, t.opts)

	if t.bootDelay > 0 {
		t.clock.Sleep(t.bootDelay)
	}
	return nil
}

// Write writes p to the device. There is no retry; a failed write is
// returned to the caller.
func (t *Transport) Write(p []byte) error {
	if t.port == nil {
		return ErrNotConnected
	}
	n, err := t.port.Write(p)
	if err != nil {
		return err
	}
	if n != len(p) {
		return ErrWriteFailed
	}
	return nil
}

// ReadAvailable performs one poll of the port and returns whatever bytes
// were buffered. An empty result means nothing was available within the
// port's read timeout.
func (t *Transport) ReadAvailable() ([]byte, error) {
	if t.port == nil {
		return nil, ErrNotConnected
	}
	n, err := t.port.Read(t.buf)
	if n > 0 {
		out := make([]byte, n)
		copy(out, t.buf[:n])
		return out, nil
	}
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, os.ErrDeadlineExceeded) {
		return nil, nil
	}
	return nil, err
}

// Disconnect closes the port. It is safe to call when the transport was
// never connected or has already been closed; the transport is closed
// afterwards in every case.
func (t *Transport) Disconnect() error {
	if t.port == nil {
		return nil
	}
	port := t.port
	t.port = nil
	if err := port.Close(); err != nil {
		monitoring.Logf("closing %s: %v", t.path, err)
	}
	return nil
}
