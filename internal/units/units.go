// Package units provides shared constants and conversion for temperature
// display units. Readings are always stored in Celsius.
package units

import "strings"

// Unit constants
const (
	Celsius    = "c"
	Fahrenheit = "f"
	Kelvin     = "k"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{Celsius, Fahrenheit, Kelvin}

// Normalise lower-cases a unit flag and accepts the spelled-out names.
func Normalise(unit string) string {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "c", "celsius", "°c":
		return Celsius
	case "f", "fahrenheit", "°f":
		return Fahrenheit
	case "k", "kelvin":
		return Kelvin
	}
	return strings.ToLower(unit)
}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	unit = Normalise(unit)
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// ConvertTemperature converts a Celsius temperature to the target units.
// Unknown units leave the value in Celsius.
func ConvertTemperature(celsius float64, targetUnits string) float64 {
	switch Normalise(targetUnits) {
	case Fahrenheit:
		return celsius*9/5 + 32
	case Kelvin:
		return celsius + 273.15
	default:
		return celsius
	}
}

// ConvertDelta converts a temperature difference, such as a calibration
// offset or a standard deviation, which scales but does not shift.
func ConvertDelta(celsius float64, targetUnits string) float64 {
	if Normalise(targetUnits) == Fahrenheit {
		return celsius * 9 / 5
	}
	return celsius
}

// Symbol returns the display suffix for a unit.
func Symbol(unit string) string {
	switch Normalise(unit) {
	case Fahrenheit:
		return "°F"
	case Kelvin:
		return "K"
	default:
		return "°C"
	}
}
