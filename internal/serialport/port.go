package serialport

import (
	"io"
	"time"
)

// SerialPorter defines the minimal interface needed for a serial port.
// This abstraction enables unit testing without real serial hardware.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}

// TimeoutSerialPorter extends SerialPorter with timeout capabilities.
// go.bug.st/serial ports implement it; ApplyReadTimeout uses it to turn
// blocking reads into short polls.
type TimeoutSerialPorter interface {
	SerialPorter
	// SetReadTimeout sets the read timeout for the serial port.
	SetReadTimeout(timeout time.Duration) error
}

// Opener is a function type for opening serial ports.
// This allows for easier testing by replacing the opener function.
type Opener func(path string, opts PortOptions) (SerialPorter, error)
