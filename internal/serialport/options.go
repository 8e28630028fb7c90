package serialport

import (
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the console rate of the Ice Pulse firmware.
	DefaultBaudRate = 115200
	// DefaultReadTimeout bounds a single poll of the port.
	DefaultReadTimeout = 100 * time.Millisecond
)

var standardBaudRates = map[int]bool{
	110: true, 300: true, 600: true, 1200: true, 2400: true, 4800: true,
	9600: true, 14400: true, 19200: true, 28800: true, 38400: true,
	57600: true, 115200: true, 128000: true, 230400: true, 256000: true,
	460800: true, 921600: true,
}

// PortOptions describes the serial connection parameters used when opening a real
// serial port.
type PortOptions struct {
	BaudRate    int           `json:"baud_rate"`
	DataBits    int           `json:"data_bits"`
	StopBits    int           `json:"stop_bits"`
	Parity      string        `json:"parity"`
	ReadTimeout time.Duration `json:"read_timeout"`
}

// Normalise validates the options and applies defaults for any unset values.
func (o PortOptions) Normalise() (PortOptions, error) {
	opts := o

	if opts.BaudRate <= 0 {
		opts.BaudRate = DefaultBaudRate
	}
	if !standardBaudRates[opts.BaudRate] {
		return opts, fmt.Errorf("unsupported baud rate %d", opts.BaudRate)
	}

	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("invalid data bits %d: must be between 5 and 8", opts.DataBits)
	}

	if opts.StopBits == 0 {
		opts.StopBits = 1
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", opts.StopBits)
	}

	parity := strings.TrimSpace(strings.ToUpper(opts.Parity))
	if parity == "" {
		parity = "N"
	}

	switch parity {
	case "N", "NONE":
		parity = "N"
	case "E", "EVEN":
		parity = "E"
	case "O", "ODD":
		parity = "O"
	default:
		return opts, fmt.Errorf("unsupported parity %q: expected N, E, or O", opts.Parity)
	}
	opts.Parity = parity

	if opts.ReadTimeout < 0 {
		return opts, fmt.Errorf("invalid read timeout %s: must not be negative", opts.ReadTimeout)
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}

	return opts, nil
}

// Equal reports whether two PortOptions describe the same serial configuration.
func (o PortOptions) Equal(other PortOptions) (bool, error) {
	a, err := o.Normalise()
	if err != nil {
		return false, err
	}
	b, err := other.Normalise()
	if err != nil {
		return false, err
	}
	return a == b, nil
}

// String renders the options in the usual 115200/8N1 notation.
func (o PortOptions) String() string {
	n, err := o.Normalise()
	if err != nil {
		return fmt.Sprintf("invalid(%v)", err)
	}
	return fmt.Sprintf("%d/%d%s%d", n.BaudRate, n.DataBits, n.Parity, n.StopBits)
}

// SerialMode converts the port options into the serial.Mode structure required by
// go.bug.st/serial when opening a port.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalise()
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
	}

	switch opts.StopBits {
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		mode.StopBits = serial.OneStopBit
	}

	switch opts.Parity {
	case "N":
		mode.Parity = serial.NoParity
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	default:
		return nil, fmt.Errorf("unsupported parity %q", opts.Parity)
	}

	return mode, nil
}
