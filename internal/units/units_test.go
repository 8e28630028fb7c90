package units

import (
	"math"
	"testing"
	"time"
)

func TestConvertTemperature(t *testing.T) {
	tests := []struct {
		name     string
		celsius  float64
		units    string
		expected float64
	}{
		{"freezing to f", 0, Fahrenheit, 32},
		{"boiling to f", 100, Fahrenheit, 212},
		{"rink ice to f", -5, Fahrenheit, 23},
		{"crossover", -40, Fahrenheit, -40},
		{"room to k", 21.5, Kelvin, 294.65},
		{"celsius unchanged", 21.5, Celsius, 21.5},
		{"spelled out", 10, "Fahrenheit", 50},
		{"unknown units default to c", 21.5, "rankine", 21.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertTemperature(tt.celsius, tt.units)
			if math.Abs(result-tt.expected) > 0.001 {
				t.Errorf("ConvertTemperature(%f, %s) = %f, want %f", tt.celsius, tt.units, result, tt.expected)
			}
		})
	}
}

func TestConvertDelta(t *testing.T) {
	if got := ConvertDelta(0.5, Fahrenheit); math.Abs(got-0.9) > 1e-9 {
		t.Errorf("ConvertDelta(0.5, f) = %f, want 0.9", got)
	}
	if got := ConvertDelta(0.5, Kelvin); got != 0.5 {
		t.Errorf("ConvertDelta(0.5, k) = %f, want 0.5", got)
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		unit     string
		expected bool
	}{
		{"c", true},
		{"F", true},
		{"kelvin", true},
		{"°C", true},
		{"mph", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsValid(tt.unit); got != tt.expected {
			t.Errorf("IsValid(%q) = %v, want %v", tt.unit, got, tt.expected)
		}
	}
}

func TestSymbol(t *testing.T) {
	if Symbol("f") != "°F" || Symbol("c") != "°C" || Symbol("k") != "K" || Symbol("") != "°C" {
		t.Error("unexpected unit symbol")
	}
}

func TestGetValidUnitsString(t *testing.T) {
	if got := GetValidUnitsString(); got != "c, f, k" {
		t.Errorf("GetValidUnitsString() = %q", got)
	}
}

func TestConvertTime(t *testing.T) {
	utc := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	got, err := ConvertTime(utc, "UTC")
	if err != nil || !got.Equal(utc) {
		t.Errorf("ConvertTime(UTC) = %v, %v", got, err)
	}

	got, err = ConvertTime(utc, "America/Toronto")
	if err != nil {
		t.Fatalf("ConvertTime(America/Toronto): %v", err)
	}
	if got.Hour() != 7 {
		t.Errorf("Toronto hour = %d, want 7", got.Hour())
	}

	if _, err := ConvertTime(utc, "Not/AZone"); err == nil {
		t.Error("expected error for invalid timezone")
	}
}

func TestIsTimezoneValid(t *testing.T) {
	if !IsTimezoneValid("Europe/Berlin") {
		t.Error("Europe/Berlin should be valid")
	}
	if IsTimezoneValid("") || IsTimezoneValid("Mars/Olympus") {
		t.Error("expected invalid timezones to be rejected")
	}
}
