package protocol

import "strings"

// Outcome is the result of a check or command. Failures carry a
// human-readable detail instead of being returned as errors, so callers can
// aggregate them.
type Outcome struct {
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

// Pass returns a successful Outcome.
func Pass(detail string) Outcome { return Outcome{OK: true, Detail: detail} }

// Fail returns a failed Outcome.
func Fail(detail string) Outcome { return Outcome{OK: false, Detail: detail} }

// Status classifies the reply to a configuration command.
type Status struct {
	OK bool
	// Response is the raw device text, surfaced to the operator on failure.
	Response string
}

// ParseStatus reports success when the response contains "OK" anywhere.
// An empty response is a failure.
func ParseStatus(resp string) Status {
	return Status{
		OK:       strings.Contains(resp, MarkerOK),
		Response: resp,
	}
}

// Outcome converts the status into an Outcome whose detail is the device
// response.
func (s Status) Outcome() Outcome {
	return Outcome{OK: s.OK, Detail: s.Response}
}

// ParsePong reports whether a ping reply contains "pong", ignoring case.
func ParsePong(resp string) bool {
	return strings.Contains(strings.ToLower(resp), MarkerPong)
}
