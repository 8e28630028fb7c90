package protocol

import "testing"

func TestDetectEvent(t *testing.T) {
	tests := []struct {
		stage       Stage
		line        string
		wantMatched bool
		wantPass    bool
	}{
		{StageBoot, "I (1402) ice_pulse_main: Ice Pulse Sensor started successfully", true, true},
		{StageBoot, "I (312) ice_pulse_main: Ice Pulse Sensor starting...", false, false},
		{StageWiFi, "I (7000) wifi: WiFi connected", true, true},
		{StageWiFi, "E (7000) wifi: WiFi failed after 5 retries", true, false},
		{StageWiFi, "I (7000) wifi: WiFi disconnected", false, false},
		{StageAPI, "API response: 200", true, true},
		{StageAPI, "API response: 2000", true, true}, // substring semantics
		{StageAPI, "API response: 500", false, false},
		{StageAPI, "API failed: timeout", true, false},
		{StageOTA, "OTA check completed", true, true},
		{StageOTA, "OTA failed", true, false},
		{StageOTA, "", false, false},
	}
	for _, tc := range tests {
		v, matched := DetectEvent(tc.stage, tc.line)
		if matched != tc.wantMatched {
			t.Errorf("DetectEvent(%s, %q) matched = %v, want %v", tc.stage, tc.line, matched, tc.wantMatched)
			continue
		}
		if matched && v.Pass != tc.wantPass {
			t.Errorf("DetectEvent(%s, %q) pass = %v, want %v", tc.stage, tc.line, v.Pass, tc.wantPass)
		}
		if v.Stage != tc.stage {
			t.Errorf("verdict stage = %s, want %s", v.Stage, tc.stage)
		}
	}
}

func TestEventMarkers_ReturnsCopy(t *testing.T) {
	m := EventMarkers(StageWiFi)
	m[0].Phrase = "mutated"
	if EventMarkers(StageWiFi)[0].Phrase != "WiFi connected" {
		t.Error("EventMarkers should not expose the internal table")
	}
}
