// Package monitoring holds the diagnostic and operator-facing output hooks
// shared by the device tools.
package monitoring

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

var (
	statusMu  sync.Mutex
	statusOut io.Writer = os.Stdout
)

// Statusf prints one operator-facing status line (the PASS/FAIL console
// output of provisioning and validation runs). A trailing newline is added
// when the format does not end in one.
func Statusf(format string, v ...interface{}) {
	statusMu.Lock()
	defer statusMu.Unlock()
	msg := fmt.Sprintf(format, v...)
	if len(msg) == 0 || msg[len(msg)-1] != '\n' {
		msg += "\n"
	}
	io.WriteString(statusOut, msg)
}

// SetStatusOutput redirects Statusf. Passing nil discards status output.
// It returns the previous writer so callers can restore it.
func SetStatusOutput(w io.Writer) io.Writer {
	statusMu.Lock()
	defer statusMu.Unlock()
	prev := statusOut
	if w == nil {
		w = io.Discard
	}
	statusOut = w
	return prev
}
