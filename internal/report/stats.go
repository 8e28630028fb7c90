package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/banshee-data/device-tools/internal/envlog"
	"github.com/banshee-data/device-tools/internal/units"
)

// FormatStats renders the end-of-run summary printed after a soak test.
// Temperatures are shown in unit; humidity is always percent.
func FormatStats(s envlog.Stats, unit string) string {
	sym := units.Symbol(unit)
	t := s.Temperature
	h := s.Humidity

	var b strings.Builder
	fmt.Fprintf(&b, "\n📊 STATISTICS:\n")
	fmt.Fprintf(&b, "Readings: %d over %s\n", s.Count, s.Last.Sub(s.First))
	fmt.Fprintf(&b, "Temperature - Min: %.1f%s, Max: %.1f%s, Avg: %.1f%s, StdDev: %.2f%s\n",
		units.ConvertTemperature(t.Min, unit), sym,
		units.ConvertTemperature(t.Max, unit), sym,
		units.ConvertTemperature(t.Mean, unit), sym,
		units.ConvertDelta(t.StdDev, unit), sym)
	fmt.Fprintf(&b, "Humidity - Min: %.1f%%, Max: %.1f%%, Avg: %.1f%%, StdDev: %.2f%%\n",
		h.Min, h.Max, h.Mean, h.StdDev)
	return b.String()
}

// WriteStats writes FormatStats output to w.
func WriteStats(w io.Writer, s envlog.Stats, unit string) error {
	_, err := io.WriteString(w, FormatStats(s, unit))
	return err
}
