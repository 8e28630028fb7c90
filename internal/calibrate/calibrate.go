// Package calibrate derives a temperature offset for a sensor by comparing
// its readings against a certified reference thermometer.
package calibrate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/device-tools/internal/monitoring"
	"github.com/banshee-data/device-tools/internal/protocol"
	"github.com/banshee-data/device-tools/internal/session"
)

// ErrNoReadings is returned when none of the samples produced a
// temperature.
var ErrNoReadings = errors.New("no temperature readings received")

// Config controls sampling.
type Config struct {
	Samples     int
	Interval    time.Duration
	ReadTimeout time.Duration
}

// DefaultConfig takes ten samples two seconds apart.
func DefaultConfig() Config {
	return Config{
		Samples:     10,
		Interval:    2 * time.Second,
		ReadTimeout: 2 * time.Second,
	}
}

// Result describes one calibration.
type Result struct {
	Reference float64          `json:"reference"`
	Readings  []float64        `json:"readings"`
	Average   float64          `json:"average"`
	Offset    float64          `json:"offset"`
	Applied   protocol.Outcome `json:"applied"`
}

// Calibrator runs calibrations over an open session.
type Calibrator struct {
	s   *session.Session
	cfg Config
}

// New returns a Calibrator. Zero Config fields take their defaults.
func New(s *session.Session, cfg Config) *Calibrator {
	d := DefaultConfig()
	if cfg.Samples <= 0 {
		cfg.Samples = d.Samples
	}
	if cfg.Interval <= 0 {
		cfg.Interval = d.Interval
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = d.ReadTimeout
	}
	return &Calibrator{s: s, cfg: cfg}
}

// Run connects, calibrates against reference and disconnects.
func (c *Calibrator) Run(ctx context.Context, reference float64) (Result, error) {
	if err := c.s.Connect(); err != nil {
		return Result{Reference: reference}, err
	}
	defer c.s.Close()
	return c.Temperature(ctx, reference)
}

// Temperature samples get_temp, averages the readings and sends the offset
// that brings the average onto reference. Samples that do not parse are
// skipped. The offset is rounded to two decimals, the precision sent to
// the firmware.
func (c *Calibrator) Temperature(ctx context.Context, reference float64) (Result, error) {
	res := Result{Reference: reference}
	monitoring.Statusf("🌡️ Calibrating against reference: %.2f°C", reference)

	clock := c.s.Clock()
	for i := 0; i < c.cfg.Samples; i++ {
		if err := c.s.Write(protocol.CmdGetTemp); err != nil {
			return res, err
		}
		var temp float64
		got, err := c.s.Await(ctx, c.cfg.ReadTimeout, func(line string) bool {
			var ok bool
			temp, ok = protocol.ExtractTemperature(line)
			return ok
		})
		if err != nil {
			return res, err
		}
		if got.Matched {
			res.Readings = append(res.Readings, temp)
			monitoring.Statusf("Reading %d: %.2f°C", i+1, temp)
		}
		if err := clock.SleepContext(ctx, c.cfg.Interval); err != nil {
			return res, err
		}
	}

	if len(res.Readings) == 0 {
		return res, ErrNoReadings
	}
	res.Average = stat.Mean(res.Readings, nil)
	res.Offset = math.Round((reference-res.Average)*100) / 100
	monitoring.Statusf("📊 Average reading: %.2f°C", res.Average)
	monitoring.Statusf("🎯 Required offset: %.2f°C", res.Offset)

	resp, err := c.s.Send(fmt.Sprintf("%s %.2f", protocol.CmdCalibrateTemp, res.Offset))
	if err != nil {
		return res, err
	}
	res.Applied = protocol.ParseStatus(resp).Outcome()
	if !res.Applied.OK {
		// Older firmware applies the offset without acknowledging it.
		monitoring.Logf("calibrate_temp not acknowledged: %q", resp)
	}
	return res, nil
}
