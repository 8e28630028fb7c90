package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractField(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		marker string
		unit   string
		want   float64
		wantOK bool
	}{
		{"temperature", "Temperature: 21.50°C", MarkerTemperature, UnitCelsius, 21.50, true},
		{"negative", "Temperature: -18.25°C", MarkerTemperature, UnitCelsius, -18.25, true},
		{"log prefix", "I (6010) ice_pulse_main: Temperature: 21.50°C", MarkerTemperature, UnitCelsius, 21.50, true},
		{"humidity", "Humidity: 55.00%", MarkerHumidity, UnitPercent, 55.0, true},
		{"malformed", "Temperature: abc°C", MarkerTemperature, UnitCelsius, 0, false},
		{"missing unit", "Temperature: 21.50", MarkerTemperature, UnitCelsius, 0, false},
		{"missing marker", "Humidity: 55.00%", MarkerTemperature, UnitCelsius, 0, false},
		{"empty value", "Temperature: °C", MarkerTemperature, UnitCelsius, 0, false},
		{"empty text", "", MarkerTemperature, UnitCelsius, 0, false},
		{"nan", "Temperature: nan°C", MarkerTemperature, UnitCelsius, 0, false},
		{"NaN", "Temperature: NaN°C", MarkerTemperature, UnitCelsius, 0, false},
		{"inf", "Temperature: inf°C", MarkerTemperature, UnitCelsius, 0, false},
		{"signed infinity", "Humidity: +Inf%", MarkerHumidity, UnitPercent, 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractField(tc.text, tc.marker, tc.unit)
			assert.Equal(t, tc.wantOK, ok)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestRangeValidation(t *testing.T) {
	assert.True(t, ValidTemperature(21.5))
	assert.True(t, ValidTemperature(-50))
	assert.True(t, ValidTemperature(100))
	assert.False(t, ValidTemperature(150.0))
	assert.False(t, ValidTemperature(-50.1))

	assert.True(t, ValidHumidity(55.0))
	assert.True(t, ValidHumidity(0))
	assert.True(t, ValidHumidity(100))
	assert.False(t, ValidHumidity(-5.0))
	assert.False(t, ValidHumidity(100.5))
}

func TestParseReading(t *testing.T) {
	r, ok := ParseReading("Temperature: 21.50°C, Humidity: 55.00%")
	assert.True(t, ok)
	assert.InDelta(t, 21.5, r.Temperature, 1e-9)
	assert.InDelta(t, 55.0, r.Humidity, 1e-9)
	assert.True(t, r.Time.IsZero(), "timestamp is the caller's job")

	_, ok = ParseReading("Temperature: 21.50°C")
	assert.False(t, ok, "humidity missing")

	_, ok = ParseReading("Temperature: x°C, Humidity: 55.00%")
	assert.False(t, ok, "temperature malformed")

	_, ok = ParseReading("Temperature: nan°C, Humidity: 55.00%")
	assert.False(t, ok, "temperature not a number")

	_, ok = ParseReading("Temperature: 21.50°C, Humidity: -inf%")
	assert.False(t, ok, "humidity infinite")
}
