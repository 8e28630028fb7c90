package units

import (
	"fmt"
	"time"
)

// IsTimezoneValid checks if the given timezone is valid by attempting to load it from the tz database
func IsTimezoneValid(tz string) bool {
	if tz == "" {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// ConvertTime converts a UTC time to the specified timezone.
// The run store keeps all times in UTC; this is for display only.
func ConvertTime(utcTime time.Time, targetTimezone string) (time.Time, error) {
	if targetTimezone == "" || targetTimezone == "UTC" {
		return utcTime.UTC(), nil
	}
	if targetTimezone == "Local" {
		return utcTime.Local(), nil
	}
	loc, err := time.LoadLocation(targetTimezone)
	if err != nil {
		return utcTime, fmt.Errorf("failed to load timezone %s: %w", targetTimezone, err)
	}
	return utcTime.In(loc), nil
}
