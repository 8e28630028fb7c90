package serialport

import (
	"bytes"
	"strings"
	"sync"
	"time"
)

// Responder produces the lines a simulated device prints in reply to one
// command. args is everything after the command verb.
type Responder func(args string) []string

// SimulatedDevice is a scripted stand-in for the Ice Pulse firmware. It
// parses newline-terminated commands written to it and queues the lines the
// matching Responder returns. It backs the CLI --dev mode and the
// end-to-end tests.
type SimulatedDevice struct {
	mu       sync.Mutex
	pending  []byte
	out      bytes.Buffer
	commands []string
	closed   bool

	responders map[string]Responder
	fallback   Responder
}

// DefaultBootLines is what the firmware logs after a reset.
var DefaultBootLines = []string{
	"ets Jun  8 2016 00:22:57",
	"rst:0x1 (POWERON_RESET),boot:0x13 (SPI_FAST_FLASH_BOOT)",
	"I (312) ice_pulse_main: Ice Pulse Sensor starting...",
	"I (318) ice_pulse_main: Firmware Version: 1.0.0",
	"I (324) ice_pulse_main: Device ID: ice-pulse-001",
	"I (330) ice_pulse_main: Free heap: 281456 bytes",
	"I (1402) ice_pulse_main: Ice Pulse Sensor started successfully",
}

// NewSimulatedDevice returns a device that answers the standard command set
// with healthy responses and has the boot banner queued.
func NewSimulatedDevice() *SimulatedDevice {
	d := &SimulatedDevice{
		responders: map[string]Responder{
			"ping":        Reply("pong"),
			"device_info": Reply(`{"firmware_version":"1.0.0","device_id":"ice-pulse-001","chip_id":"ESP32","free_heap":281456}`),
			"wifi_config": Reply("OK"),
			"device_config": func(args string) []string {
				if !strings.HasPrefix(strings.TrimSpace(args), "{") {
					return []string{"ERROR: invalid config"}
				}
				return []string{"OK"}
			},
			"get_temp":    Reply("I (5000) ice_pulse_main: Temperature: 21.50°C"),
			"get_reading": Reply("Temperature: 21.50°C, Humidity: 55.00%"),
			"test_sensors": Reply(
				"I (6000) ice_pulse_main: Sensor power on",
				"I (6010) ice_pulse_main: Temperature: 21.50°C",
				"I (6020) ice_pulse_main: Humidity: 55.00%",
			),
			"test_wifi":      Reply("I (7000) wifi: WiFi connected"),
			"test_api":       Reply("I (8000) http: API response: 200"),
			"test_ota":       Reply("I (9000) ota: OTA check completed"),
			"calibrate_temp": Reply("OK"),
		},
		fallback: func(string) []string { return []string{"ERROR: unknown command"} },
	}
	d.Emit(DefaultBootLines...)
	return d
}

// Reply returns a Responder that always prints the given lines.
func Reply(lines ...string) Responder {
	return func(string) []string { return lines }
}

// Silent is a Responder that prints nothing.
func Silent(string) []string { return nil }

// Handle replaces the responder for a command verb.
func (d *SimulatedDevice) Handle(verb string, r Responder) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.responders[verb] = r
}

// Emit queues unsolicited output lines, as if the firmware logged them.
func (d *SimulatedDevice) Emit(lines ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.emitLocked(lines)
}

// ClearOutput drops any queued output, e.g. the boot banner.
func (d *SimulatedDevice) ClearOutput() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.out.Reset()
}

// Commands returns the commands received so far, without terminators.
func (d *SimulatedDevice) Commands() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.commands))
	copy(out, d.commands)
	return out
}

func (d *SimulatedDevice) emitLocked(lines []string) {
	for _, l := range lines {
		d.out.WriteString(l)
		d.out.WriteString("\r\n")
	}
}

// Write accepts command bytes and answers every complete line.
func (d *SimulatedDevice) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, errPortClosed
	}

	d.pending = append(d.pending, p...)
	for {
		i := bytes.IndexByte(d.pending, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimSpace(string(d.pending[:i]))
		d.pending = d.pending[i+1:]
		if line == "" {
			continue
		}
		d.commands = append(d.commands, line)

		verb, args, _ := strings.Cut(line, " ")
		r, ok := d.responders[verb]
		if !ok {
			r = d.fallback
		}
		d.emitLocked(r(args))
	}
	return len(p), nil
}

// Read returns queued output; an empty queue behaves like a read timeout.
func (d *SimulatedDevice) Read(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, errPortClosed
	}
	if d.out.Len() == 0 {
		return 0, nil
	}
	return d.out.Read(p)
}

// Close marks the device closed.
func (d *SimulatedDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// SetReadTimeout implements TimeoutSerialPorter.
func (d *SimulatedDevice) SetReadTimeout(time.Duration) error { return nil }

// Opener returns an Opener that hands out this device for any path.
func (d *SimulatedDevice) Opener() Opener {
	return func(string, PortOptions) (SerialPorter, error) {
		d.mu.Lock()
		d.closed = false
		d.mu.Unlock()
		return d, nil
	}
}
