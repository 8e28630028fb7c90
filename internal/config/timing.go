package config

import (
	"fmt"
	"time"
)

// DefaultTimingPath is the checked-in copy of the default timings.
const DefaultTimingPath = "config/timing.defaults.json"

// TimingConfig overrides the waits and deadlines used when talking to a
// device. Every field is optional; the Get* accessors return the default
// for anything left unset. Durations are Go duration strings like "500ms".
type TimingConfig struct {
	// Connection and command exchange
	BootDelay    *string `json:"boot_delay,omitempty"`
	Settle       *string `json:"settle,omitempty"`
	IdleGap      *string `json:"idle_gap,omitempty"`
	PollInterval *string `json:"poll_interval,omitempty"`

	// Hardware validation stage deadlines
	PowerOnTimeout *string `json:"power_on_timeout,omitempty"`
	SensorsTimeout *string `json:"sensors_timeout,omitempty"`
	WiFiTimeout    *string `json:"wifi_timeout,omitempty"`
	APITimeout     *string `json:"api_timeout,omitempty"`
	OTATimeout     *string `json:"ota_timeout,omitempty"`

	// Environmental logging
	EnvInterval     *string `json:"env_interval,omitempty"`
	EnvReadTimeout  *string `json:"env_read_timeout,omitempty"`
	EnvErrorBackoff *string `json:"env_error_backoff,omitempty"`

	// Calibration
	CalibrationSamples  *int    `json:"calibration_samples,omitempty"`
	CalibrationInterval *string `json:"calibration_interval,omitempty"`
}

func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }

// LoadTimingConfig loads a TimingConfig from a JSON file. Fields omitted
// from the file keep their defaults, so partial files are fine.
func LoadTimingConfig(path string) (*TimingConfig, error) {
	cfg := &TimingConfig{}
	if err := decodeJSONFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *TimingConfig) durations() []struct {
	name  string
	value *string
} {
	return []struct {
		name  string
		value *string
	}{
		{"boot_delay", c.BootDelay},
		{"settle", c.Settle},
		{"idle_gap", c.IdleGap},
		{"poll_interval", c.PollInterval},
		{"power_on_timeout", c.PowerOnTimeout},
		{"sensors_timeout", c.SensorsTimeout},
		{"wifi_timeout", c.WiFiTimeout},
		{"api_timeout", c.APITimeout},
		{"ota_timeout", c.OTATimeout},
		{"env_interval", c.EnvInterval},
		{"env_read_timeout", c.EnvReadTimeout},
		{"env_error_backoff", c.EnvErrorBackoff},
		{"calibration_interval", c.CalibrationInterval},
	}
}

// Validate checks that every duration that is set parses and is not
// negative.
func (c *TimingConfig) Validate() error {
	for _, f := range c.durations() {
		if f.value == nil || *f.value == "" {
			continue
		}
		d, err := time.ParseDuration(*f.value)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", f.name, *f.value, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must be non-negative, got %s", f.name, d)
		}
	}
	if c.CalibrationSamples != nil && *c.CalibrationSamples < 1 {
		return fmt.Errorf("calibration_samples must be at least 1, got %d", *c.CalibrationSamples)
	}
	return nil
}

func getDuration(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil || d < 0 {
		return def
	}
	return d
}

// GetBootDelay returns the wait after opening the port. A zero value means
// no wait.
func (c *TimingConfig) GetBootDelay() time.Duration {
	return getDuration(c.BootDelay, 2*time.Second)
}

// GetSettle returns the wait between a command and reading its reply.
func (c *TimingConfig) GetSettle() time.Duration {
	return getDuration(c.Settle, 500*time.Millisecond)
}

// GetIdleGap returns the wait between reads while draining a reply.
func (c *TimingConfig) GetIdleGap() time.Duration {
	return getDuration(c.IdleGap, 100*time.Millisecond)
}

// GetPollInterval returns the wait between empty polls in streaming mode.
func (c *TimingConfig) GetPollInterval() time.Duration {
	return getDuration(c.PollInterval, 50*time.Millisecond)
}

func (c *TimingConfig) GetPowerOnTimeout() time.Duration {
	return getDuration(c.PowerOnTimeout, 10*time.Second)
}

func (c *TimingConfig) GetSensorsTimeout() time.Duration {
	return getDuration(c.SensorsTimeout, 30*time.Second)
}

func (c *TimingConfig) GetWiFiTimeout() time.Duration {
	return getDuration(c.WiFiTimeout, 30*time.Second)
}

func (c *TimingConfig) GetAPITimeout() time.Duration {
	return getDuration(c.APITimeout, 20*time.Second)
}

func (c *TimingConfig) GetOTATimeout() time.Duration {
	return getDuration(c.OTATimeout, 30*time.Second)
}

// GetEnvInterval returns the spacing between environmental readings.
func (c *TimingConfig) GetEnvInterval() time.Duration {
	return getDuration(c.EnvInterval, 30*time.Second)
}

// GetEnvReadTimeout returns how long to wait for a reading line.
func (c *TimingConfig) GetEnvReadTimeout() time.Duration {
	return getDuration(c.EnvReadTimeout, 2*time.Second)
}

// GetEnvErrorBackoff returns the pause after a failed reading.
func (c *TimingConfig) GetEnvErrorBackoff() time.Duration {
	return getDuration(c.EnvErrorBackoff, 5*time.Second)
}

// GetCalibrationSamples returns the number of get_temp samples to average.
func (c *TimingConfig) GetCalibrationSamples() int {
	if c.CalibrationSamples == nil || *c.CalibrationSamples < 1 {
		return 10
	}
	return *c.CalibrationSamples
}

// GetCalibrationInterval returns the spacing between calibration samples.
func (c *TimingConfig) GetCalibrationInterval() time.Duration {
	return getDuration(c.CalibrationInterval, 2*time.Second)
}
