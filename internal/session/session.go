// Package session implements the command/response exchange with a device
// console: one textual command in flight at a time, with the reply collected
// either after a settle window or line by line against a deadline.
package session

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/banshee-data/device-tools/internal/serialport"
	"github.com/banshee-data/device-tools/internal/timeutil"
)

// ErrNotConnected is returned when a command is issued before the
// transport has been connected.
var ErrNotConnected = serialport.ErrNotConnected

// Transport is the connection a Session drives. *serialport.Transport
// implements it.
type Transport interface {
	Connect() error
	Disconnect() error
	Connected() bool
	Write(p []byte) error
	ReadAvailable() ([]byte, error)
}

// Config holds the polling parameters of a Session.
type Config struct {
	// Settle is waited between writing a command and the first read.
	Settle time.Duration
	// IdleGap is waited between reads while collecting a reply; the reply
	// ends at the first read that returns nothing.
	IdleGap time.Duration
	// PollInterval is waited between empty polls in streaming mode.
	PollInterval time.Duration
}

// DefaultConfig returns the timings the provisioning tool has always used.
func DefaultConfig() Config {
	return Config{
		Settle:       500 * time.Millisecond,
		IdleGap:      100 * time.Millisecond,
		PollInterval: 50 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Settle <= 0 {
		c.Settle = d.Settle
	}
	if c.IdleGap <= 0 {
		c.IdleGap = d.IdleGap
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	return c
}

// Session owns a Transport for its lifetime. It is not safe for concurrent
// use: the device console handles one command at a time.
type Session struct {
	tr    Transport
	cfg   Config
	clock timeutil.Clock

	// pending holds bytes read past the last complete line.
	pending []byte
}

// New creates a Session over tr. Zero Config fields take their defaults and
// a nil clock uses the real clock.
func New(tr Transport, cfg Config, clock timeutil.Clock) *Session {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Session{tr: tr, cfg: cfg.withDefaults(), clock: clock}
}

// Config returns the effective polling configuration.
func (s *Session) Config() Config { return s.cfg }

// Clock returns the clock the session sleeps on.
func (s *Session) Clock() timeutil.Clock { return s.clock }

// Connect opens the underlying transport.
func (s *Session) Connect() error {
	return s.tr.Connect()
}

// Close releases the transport and drops buffered input. It is safe to
// call more than once.
func (s *Session) Close() error {
	s.pending = nil
	return s.tr.Disconnect()
}

// Connected reports whether the transport is open.
func (s *Session) Connected() bool { return s.tr.Connected() }

// Terminate returns command with exactly one trailing newline.
func Terminate(command string) string {
	return strings.TrimRight(command, "\r\n") + "\n"
}

// Write sends a command without waiting for a reply.
func (s *Session) Write(command string) error {
	if !s.tr.Connected() {
		return ErrNotConnected
	}
	return s.tr.Write([]byte(Terminate(command)))
}

// Send writes command, waits the configured settle time and returns
// everything the device printed, trimmed of surrounding whitespace.
func (s *Session) Send(command string) (string, error) {
	return s.SendSettle(command, s.cfg.Settle)
}

// SendSettle is Send with an explicit settle time.
func (s *Session) SendSettle(command string, settle time.Duration) (string, error) {
	if err := s.Write(command); err != nil {
		return "", err
	}
	s.clock.Sleep(settle)

	var buf bytes.Buffer
	buf.Write(s.pending)
	s.pending = nil
	for {
		data, err := s.tr.ReadAvailable()
		if err != nil {
			return strings.TrimSpace(decode(buf.Bytes())), err
		}
		if len(data) == 0 {
			break
		}
		buf.Write(data)
		s.clock.Sleep(s.cfg.IdleGap)
	}
	return strings.TrimSpace(decode(buf.Bytes())), nil
}

// ReadLine returns one complete, trimmed, non-empty line if one is
// available after at most one poll of the transport.
func (s *Session) ReadLine() (string, bool, error) {
	if !s.tr.Connected() {
		return "", false, ErrNotConnected
	}
	if line, ok := s.popLine(); ok {
		return line, true, nil
	}
	data, err := s.tr.ReadAvailable()
	if err != nil {
		return "", false, err
	}
	s.pending = append(s.pending, data...)
	line, ok := s.popLine()
	return line, ok, nil
}

func (s *Session) popLine() (string, bool) {
	for {
		i := bytes.IndexByte(s.pending, '\n')
		if i < 0 {
			return "", false
		}
		line := strings.TrimSpace(decode(s.pending[:i]))
		s.pending = s.pending[i+1:]
		if line != "" {
			return line, true
		}
	}
}

// AwaitResult describes how a streaming wait ended.
type AwaitResult struct {
	// Line is the line that satisfied the wait.
	Line string
	// Matched is true when a line was accepted before the deadline.
	Matched bool
	// TimedOut is true when the deadline passed first.
	TimedOut bool
	// Lines holds every line seen, in arrival order, including Line.
	Lines []string
}

// Tail returns at most the last n lines seen.
func (r AwaitResult) Tail(n int) []string {
	if len(r.Lines) <= n {
		return r.Lines
	}
	return r.Lines[len(r.Lines)-n:]
}

// Await polls line by line until accept returns true or timeout elapses.
// Each line is handed to accept as soon as it arrives. A timeout is not an
// error; it is reported through AwaitResult.TimedOut. Context cancellation
// and transport failures are returned as errors.
func (s *Session) Await(ctx context.Context, timeout time.Duration, accept func(line string) bool) (AwaitResult, error) {
	var res AwaitResult
	if !s.tr.Connected() {
		return res, ErrNotConnected
	}

	start := s.clock.Now()
	for s.clock.Since(start) < timeout {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		line, ok, err := s.ReadLine()
		if err != nil {
			return res, err
		}
		if !ok {
			if err := s.clock.SleepContext(ctx, s.cfg.PollInterval); err != nil {
				return res, err
			}
			continue
		}
		res.Lines = append(res.Lines, line)
		if accept(line) {
			res.Line = line
			res.Matched = true
			return res, nil
		}
	}
	res.TimedOut = true
	return res, nil
}

// ReadLineWithin waits up to timeout for any line.
func (s *Session) ReadLineWithin(ctx context.Context, timeout time.Duration) (string, bool, error) {
	res, err := s.Await(ctx, timeout, func(string) bool { return true })
	return res.Line, res.Matched, err
}

func decode(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}
