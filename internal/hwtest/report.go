package hwtest

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/banshee-data/device-tools/internal/protocol"
)

// Check is a named sub-result within a stage, such as one sensor.
type Check struct {
	Name string `json:"name"`
	OK   bool   `json:"ok"`
}

// Result is the outcome of one validation stage.
type Result struct {
	Name    string           `json:"name"`
	Outcome protocol.Outcome `json:"outcome"`
	Checks  []Check          `json:"checks,omitempty"`
}

// Passed reports whether the stage passed.
func (r Result) Passed() bool { return r.Outcome.OK }

// Report aggregates stage results in the order they ran.
type Report struct {
	Port     string    `json:"port"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Results  []Result  `json:"results"`
}

func (r *Report) add(res Result) {
	r.Results = append(r.Results, res)
}

// Passed returns the number of passing stages.
func (r Report) Passed() int {
	n := 0
	for _, res := range r.Results {
		if res.Passed() {
			n++
		}
	}
	return n
}

// Total returns the number of stages recorded.
func (r Report) Total() int { return len(r.Results) }

// AllPassed reports whether every recorded stage passed. An empty report
// has not passed.
func (r Report) AllPassed() bool {
	return r.Total() > 0 && r.Passed() == r.Total()
}

// Result returns the named stage result.
func (r Report) Result(name string) (Result, bool) {
	for _, res := range r.Results {
		if res.Name == name {
			return res, true
		}
	}
	return Result{}, false
}

// WriteSummary prints the results table and the overall count.
func (r Report) WriteSummary(w io.Writer) error {
	var b strings.Builder
	b.WriteString("\n📊 TEST RESULTS SUMMARY\n")
	b.WriteString(strings.Repeat("=", 30) + "\n")
	for _, res := range r.Results {
		status := "✅ PASS"
		if !res.Passed() {
			status = "❌ FAIL"
		}
		fmt.Fprintf(&b, "%-15s: %s\n", res.Name, status)
		for _, c := range res.Checks {
			fmt.Fprintf(&b, "  %-13s: %t\n", c.Name, c.OK)
		}
	}
	fmt.Fprintf(&b, "\nOverall: %d/%d tests passed\n", r.Passed(), r.Total())
	_, err := io.WriteString(w, b.String())
	return err
}
