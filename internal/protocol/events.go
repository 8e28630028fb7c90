package protocol

import "strings"

// Verdict is the resolution of a streaming check.
type Verdict struct {
	Stage  Stage
	Pass   bool
	Phrase string
	Line   string
}

// DetectEvent tests line against the stage's marker phrases. matched is
// false when the line settles nothing and polling should continue.
func DetectEvent(stage Stage, line string) (v Verdict, matched bool) {
	for _, m := range eventMarkers[stage] {
		if strings.Contains(line, m.Phrase) {
			return Verdict{Stage: stage, Pass: m.Pass, Phrase: m.Phrase, Line: line}, true
		}
	}
	return Verdict{Stage: stage}, false
}
