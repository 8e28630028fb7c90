package envlog

import (
	"errors"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/device-tools/internal/protocol"
)

// Series summarises one measured quantity.
type Series struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// Stats summarises a logging run.
type Stats struct {
	Count       int       `json:"count"`
	First       time.Time `json:"first"`
	Last        time.Time `json:"last"`
	Temperature Series    `json:"temperature"`
	Humidity    Series    `json:"humidity"`
}

// ErrNoData is returned by Summarize for an empty series.
var ErrNoData = errors.New("no data to report")

// Summarize computes min, max, mean and standard deviation for the
// temperature and humidity columns.
func Summarize(readings []protocol.Reading) (Stats, error) {
	if len(readings) == 0 {
		return Stats{}, ErrNoData
	}
	temps := make([]float64, len(readings))
	hums := make([]float64, len(readings))
	for i, r := range readings {
		temps[i] = r.Temperature
		hums[i] = r.Humidity
	}
	return Stats{
		Count:       len(readings),
		First:       readings[0].Time,
		Last:        readings[len(readings)-1].Time,
		Temperature: summarize(temps),
		Humidity:    summarize(hums),
	}, nil
}

func summarize(xs []float64) Series {
	s := Series{
		Min:  floats.Min(xs),
		Max:  floats.Max(xs),
		Mean: stat.Mean(xs, nil),
	}
	if len(xs) > 1 {
		s.StdDev = stat.StdDev(xs, nil)
	}
	return s
}
