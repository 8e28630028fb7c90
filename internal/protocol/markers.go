// Package protocol interprets the free-form text the Ice Pulse firmware
// prints on its console. The firmware has no framed protocol; every decision
// here is a substring match against the marker table below, so the
// assumptions about device output live in one place.
package protocol

// Commands understood by the firmware console.
const (
	CmdPing          = "ping"
	CmdDeviceInfo    = "device_info"
	CmdWiFiConfig    = "wifi_config"
	CmdDeviceConfig  = "device_config"
	CmdGetTemp       = "get_temp"
	CmdGetReading    = "get_reading"
	CmdTestSensors   = "test_sensors"
	CmdTestWiFi      = "test_wifi"
	CmdTestAPI       = "test_api"
	CmdTestOTA       = "test_ota"
	CmdCalibrateTemp = "calibrate_temp"
)

// Response markers.
const (
	MarkerOK              = "OK"
	MarkerPong            = "pong"
	MarkerTemperature     = "Temperature:"
	MarkerHumidity        = "Humidity:"
	MarkerFirmwareVersion = "firmware_version"

	UnitCelsius = "°C"
	UnitPercent = "%"
)

// Stage identifies one streaming validation check.
type Stage string

const (
	StageBoot Stage = "power_on"
	StageWiFi Stage = "wifi"
	StageAPI  Stage = "api"
	StageOTA  Stage = "ota"
)

// EventMarker maps a phrase seen on the console to a verdict.
type EventMarker struct {
	Phrase string
	Pass   bool
}

// eventMarkers lists, per stage, the phrases that settle the check. Pass
// phrases are listed first; the first phrase contained in a line wins.
var eventMarkers = map[Stage][]EventMarker{
	StageBoot: {
		{Phrase: "ice_pulse_main: Ice Pulse Sensor started", Pass: true},
	},
	StageWiFi: {
		{Phrase: "WiFi connected", Pass: true},
		{Phrase: "WiFi failed", Pass: false},
	},
	StageAPI: {
		// substring match, not HTTP status parsing
		{Phrase: "API response: 200", Pass: true},
		{Phrase: "API failed", Pass: false},
	},
	StageOTA: {
		{Phrase: "OTA check completed", Pass: true},
		{Phrase: "OTA failed", Pass: false},
	},
}

// EventMarkers returns a copy of the markers for a stage.
func EventMarkers(stage Stage) []EventMarker {
	m := eventMarkers[stage]
	out := make([]EventMarker, len(m))
	copy(out, m)
	return out
}
