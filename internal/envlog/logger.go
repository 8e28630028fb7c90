// Package envlog samples temperature and humidity from a sensor at a fixed
// interval for long-running soak tests.
package envlog

import (
	"context"
	"time"

	"github.com/banshee-data/device-tools/internal/monitoring"
	"github.com/banshee-data/device-tools/internal/protocol"
	"github.com/banshee-data/device-tools/internal/session"
)

// Config controls the sampling loop.
type Config struct {
	// Interval is the pause after each successful sample.
	Interval time.Duration
	// ReadTimeout bounds the wait for a reading line after get_reading.
	ReadTimeout time.Duration
	// ErrorBackoff is the pause after a failed sample.
	ErrorBackoff time.Duration
}

// DefaultConfig returns the soak-test cadence.
func DefaultConfig() Config {
	return Config{
		Interval:     30 * time.Second,
		ReadTimeout:  2 * time.Second,
		ErrorBackoff: 5 * time.Second,
	}
}

// Sink receives every reading as it is logged.
type Sink interface {
	RecordReading(r protocol.Reading) error
}

// Logger collects readings over one session.
type Logger struct {
	s        *session.Session
	cfg      Config
	sink     Sink
	readings []protocol.Reading
}

// New returns a Logger. Zero Config fields take their defaults.
func New(s *session.Session, cfg Config) *Logger {
	d := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = d.Interval
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = d.ReadTimeout
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = d.ErrorBackoff
	}
	return &Logger{s: s, cfg: cfg}
}

// SetSink attaches a destination for readings. Sink failures are logged and
// do not stop sampling.
func (l *Logger) SetSink(s Sink) { l.sink = s }

// Readings returns the readings collected so far, oldest first.
func (l *Logger) Readings() []protocol.Reading {
	out := make([]protocol.Reading, len(l.readings))
	copy(out, l.readings)
	return out
}

// Run connects and samples until duration has elapsed or ctx is done. A
// cancelled context ends the run early without error; readings taken so
// far are kept.
func (l *Logger) Run(ctx context.Context, duration time.Duration) error {
	if err := l.s.Connect(); err != nil {
		return err
	}
	defer l.s.Close()

	clock := l.s.Clock()
	monitoring.Statusf("📊 Logging readings for %s...", duration)
	end := clock.Now().Add(duration)

	for clock.Now().Before(end) {
		if ctx.Err() != nil {
			return nil
		}
		wait := l.cfg.Interval
		if err := l.sample(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			monitoring.Statusf("Error reading data: %v", err)
			wait = l.cfg.ErrorBackoff
		}
		if err := clock.SleepContext(ctx, wait); err != nil {
			return nil
		}
	}
	return nil
}

// Sample requests a single reading. ok is false when no reading line
// arrived within the read timeout.
func (l *Logger) Sample(ctx context.Context) (protocol.Reading, bool, error) {
	if err := l.s.Write(protocol.CmdGetReading); err != nil {
		return protocol.Reading{}, false, err
	}

	var reading protocol.Reading
	res, err := l.s.Await(ctx, l.cfg.ReadTimeout, func(line string) bool {
		var ok bool
		reading, ok = protocol.ParseReading(line)
		return ok
	})
	if err != nil {
		return protocol.Reading{}, false, err
	}
	if !res.Matched {
		return protocol.Reading{}, false, nil
	}
	reading.Time = l.s.Clock().Now()
	return reading, true, nil
}

func (l *Logger) sample(ctx context.Context) error {
	r, ok, err := l.Sample(ctx)
	if err != nil {
		return err
	}
	if !ok {
		monitoring.Logf("no reading within %s", l.cfg.ReadTimeout)
		return nil
	}

	l.readings = append(l.readings, r)
	monitoring.Statusf("%s: T=%.2f°C, H=%.2f%%", r.Time.Format(time.DateTime), r.Temperature, r.Humidity)

	if l.sink != nil {
		if err := l.sink.RecordReading(r); err != nil {
			monitoring.Logf("failed to store reading: %v", err)
		}
	}
	return nil
}
