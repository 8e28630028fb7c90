package report

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/device-tools/internal/protocol"
	"github.com/banshee-data/device-tools/internal/units"
)

// DefaultHTMLName is the interactive companion to DefaultPNGName.
const DefaultHTMLName = "environmental_test_results.html"

// RenderHTML writes an interactive page with a temperature chart and a
// humidity chart sharing the same time axis.
func RenderHTML(w io.Writer, readings []protocol.Reading, o Options) error {
	if len(readings) == 0 {
		return fmt.Errorf("no readings to chart")
	}

	labels := make([]string, len(readings))
	temps := make([]opts.LineData, len(readings))
	hums := make([]opts.LineData, len(readings))
	for i, r := range readings {
		t := r.Time.UTC()
		if local, err := units.ConvertTime(t, o.Timezone); err == nil {
			t = local
		}
		labels[i] = t.Format("2006-01-02 15:04:05")
		temps[i] = opts.LineData{Value: round2(units.ConvertTemperature(r.Temperature, o.Unit))}
		hums[i] = opts.LineData{Value: round2(r.Humidity)}
	}

	tempChart := lineChart(o.title(), fmt.Sprintf("Temperature (%s)", units.Symbol(o.Unit)), len(readings))
	tempChart.SetXAxis(labels).AddSeries("Temperature", temps,
		charts.WithLineStyleOpts(opts.LineStyle{Color: "#dc1e1e", Width: 2}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: "#dc1e1e"}),
	)

	humChart := lineChart("", "Humidity (%)", len(readings))
	humChart.SetXAxis(labels).AddSeries("Humidity", hums,
		charts.WithLineStyleOpts(opts.LineStyle{Color: "#1e3cdc", Width: 2}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: "#1e3cdc"}),
	)

	page := components.NewPage()
	page.SetPageTitle(o.title()).AddCharts(tempChart, humChart)
	return page.Render(w)
}

func lineChart(title, yName string, n int) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "360px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("readings=%d", n)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10"}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName, Scale: opts.Bool(true)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
	)
	return line
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
