// Package report renders environmental logging runs as a PNG chart, an
// interactive HTML page and printed statistics.
package report

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/banshee-data/device-tools/internal/protocol"
	"github.com/banshee-data/device-tools/internal/units"
)

// DefaultPNGName is the file the soak test writes its chart to.
const DefaultPNGName = "environmental_test_results.png"

var (
	temperatureColor = color.RGBA{R: 220, G: 30, B: 30, A: 255}
	humidityColor    = color.RGBA{R: 30, G: 60, B: 220, A: 255}
)

// Options controls rendering.
type Options struct {
	// Unit is the temperature display unit; empty means Celsius.
	Unit string
	// Timezone labels the time axis; empty means UTC.
	Timezone string
	Title    string
}

func (o Options) title() string {
	if o.Title == "" {
		return "Environmental Test Results"
	}
	return o.Title
}

// RenderPNG writes two stacked time-series panels, temperature above
// humidity, to path.
func RenderPNG(path string, readings []protocol.Reading, o Options) error {
	if len(readings) == 0 {
		return fmt.Errorf("no readings to plot")
	}

	tempPts := make(plotter.XYs, len(readings))
	humPts := make(plotter.XYs, len(readings))
	for i, r := range readings {
		x := float64(r.Time.Unix())
		tempPts[i] = plotter.XY{X: x, Y: units.ConvertTemperature(r.Temperature, o.Unit)}
		humPts[i] = plotter.XY{X: x, Y: r.Humidity}
	}

	pTemp, err := timeSeries(tempPts, "Temperature", temperatureColor, o)
	if err != nil {
		return fmt.Errorf("temperature panel: %w", err)
	}
	pTemp.Title.Text = o.title()
	pTemp.Y.Label.Text = fmt.Sprintf("Temperature (%s)", units.Symbol(o.Unit))

	pHum, err := timeSeries(humPts, "Humidity", humidityColor, o)
	if err != nil {
		return fmt.Errorf("humidity panel: %w", err)
	}
	pHum.Y.Label.Text = "Humidity (%)"
	pHum.X.Label.Text = "Time"

	const width, height = 12 * vg.Inch, 8 * vg.Inch
	img := vgimg.New(width, height)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      2,
		Cols:      1,
		PadX:      vg.Millimeter * 4,
		PadY:      vg.Millimeter * 4,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	canvases := plot.Align([][]*plot.Plot{{pTemp}, {pHum}}, tiles, dc)
	pTemp.Draw(canvases[0][0])
	pHum.Draw(canvases[1][0])

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write png: %w", err)
	}
	return f.Close()
}

func timeSeries(pts plotter.XYs, label string, c color.Color, o Options) (*plot.Plot, error) {
	p := plot.New()
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Color = c
	line.Width = vg.Points(1.5)
	p.Add(line)
	p.Legend.Add(label, line)
	p.Legend.Top = true
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	p.X.Tick.Marker = plot.TimeTicks{Format: "01-02 15:04", Time: timeAxis(o.Timezone)}
	return p, nil
}

// timeAxis maps plot x values (unix seconds) to times in the display zone.
func timeAxis(tz string) func(float64) time.Time {
	return func(x float64) time.Time {
		t := time.Unix(int64(x), 0).UTC()
		if local, err := units.ConvertTime(t, tz); err == nil {
			return local
		}
		return t
	}
}
