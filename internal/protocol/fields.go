package protocol

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Plausible sensor ranges. Values outside them are treated as a failed
// sensor even when they parse.
const (
	MinTemperature = -50.0
	MaxTemperature = 100.0
	MinHumidity    = 0.0
	MaxHumidity    = 100.0
)

// ExtractField returns the number between marker and unit in text, e.g.
// ExtractField("Temperature: 21.50°C", "Temperature:", "°C") == 21.5.
// ok is false when either marker is missing or the value does not parse to a
// finite number.
func ExtractField(text, marker, unit string) (value float64, ok bool) {
	i := strings.Index(text, marker)
	if i < 0 {
		return 0, false
	}
	rest := text[i+len(marker):]
	j := strings.Index(rest, unit)
	if j < 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(rest[:j]), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ExtractTemperature extracts a Celsius temperature from a console line.
func ExtractTemperature(line string) (float64, bool) {
	return ExtractField(line, MarkerTemperature, UnitCelsius)
}

// ExtractHumidity extracts a relative humidity percentage from a console line.
func ExtractHumidity(line string) (float64, bool) {
	return ExtractField(line, MarkerHumidity, UnitPercent)
}

// ValidTemperature reports whether v lies within [MinTemperature, MaxTemperature].
func ValidTemperature(v float64) bool {
	return v >= MinTemperature && v <= MaxTemperature
}

// ValidHumidity reports whether v lies within [MinHumidity, MaxHumidity].
func ValidHumidity(v float64) bool {
	return v >= MinHumidity && v <= MaxHumidity
}

// Reading is one timestamped environmental sample.
type Reading struct {
	Time        time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
}

// ParseReading extracts a combined temperature and humidity line such as
// "Temperature: 21.50°C, Humidity: 55.00%". Both values must be present.
// The timestamp is left for the caller to fill in.
func ParseReading(line string) (Reading, bool) {
	temp, ok := ExtractTemperature(line)
	if !ok {
		return Reading{}, false
	}
	hum, ok := ExtractHumidity(line)
	if !ok {
		return Reading{}, false
	}
	return Reading{Temperature: temp, Humidity: hum}, true
}
