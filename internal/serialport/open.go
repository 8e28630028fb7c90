package serialport

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// OpenSerial opens a real serial port at the given path using the provided
// options. The returned port has its read timeout set so that reads poll
// rather than block indefinitely.
func OpenSerial(path string, opts PortOptions) (SerialPorter, error) {
	normalised, err := opts.Normalise()
	if err != nil {
		return nil, err
	}
	mode, err := normalised.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}

	if err := ApplyReadTimeout(port, normalised.ReadTimeout); err != nil {
		port.Close()
		return nil, err
	}

	return port, nil
}

// ApplyReadTimeout sets the read timeout on ports that support one. Ports
// without it are left alone and must not block in Read.
func ApplyReadTimeout(p SerialPorter, timeout time.Duration) error {
	tp, ok := p.(TimeoutSerialPorter)
	if !ok {
		return nil
	}
	if err := tp.SetReadTimeout(timeout); err != nil {
		return fmt.Errorf("failed to set read timeout: %w", err)
	}
	return nil
}
