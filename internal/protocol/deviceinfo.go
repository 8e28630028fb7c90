package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Unknown is the placeholder for device info fields the device did not report.
const Unknown = "Unknown"

// DeviceInfo is the identity block printed by the device_info command.
type DeviceInfo struct {
	FirmwareVersion string `json:"firmware_version"`
	DeviceID        string `json:"device_id"`
	ChipID          string `json:"chip_id"`
	FreeHeap        string `json:"free_heap"`
}

// DefaultDeviceInfo returns a DeviceInfo with every field set to Unknown.
func DefaultDeviceInfo() DeviceInfo {
	return DeviceInfo{
		FirmwareVersion: Unknown,
		DeviceID:        Unknown,
		ChipID:          Unknown,
		FreeHeap:        Unknown,
	}
}

// Field is a named DeviceInfo value, in display order.
type Field struct {
	Name  string
	Value string
}

// Fields returns the info in a stable order for printing.
func (d DeviceInfo) Fields() []Field {
	return []Field{
		{"firmware_version", d.FirmwareVersion},
		{"device_id", d.DeviceID},
		{"chip_id", d.ChipID},
		{"free_heap", d.FreeHeap},
	}
}

// ParseDeviceInfo scans resp line by line for the first line mentioning
// firmware_version that holds a parseable JSON object, and merges the known
// keys from it over the defaults. Lines that fail to parse are skipped.
func ParseDeviceInfo(resp string) DeviceInfo {
	info := DefaultDeviceInfo()
	for _, line := range strings.Split(resp, "\n") {
		if !strings.Contains(line, MarkerFirmwareVersion) {
			continue
		}
		obj, ok := embeddedObject(line)
		if !ok {
			continue
		}
		merge(&info.FirmwareVersion, obj, "firmware_version")
		merge(&info.DeviceID, obj, "device_id")
		merge(&info.ChipID, obj, "chip_id")
		merge(&info.FreeHeap, obj, "free_heap")
		break
	}
	return info
}

// embeddedObject decodes the JSON object spanning the first '{' to the last
// '}' of line, which tolerates an ESP-IDF log prefix.
func embeddedObject(line string) (map[string]interface{}, bool) {
	start := strings.IndexByte(line, '{')
	end := strings.LastIndexByte(line, '}')
	if start < 0 || end < start {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(line[start : end+1])))
	dec.UseNumber()
	var obj map[string]interface{}
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

func merge(dst *string, obj map[string]interface{}, key string) {
	v, ok := obj[key]
	if !ok || v == nil {
		return
	}
	switch val := v.(type) {
	case string:
		*dst = val
	case json.Number:
		*dst = val.String()
	case bool:
		*dst = fmt.Sprint(val)
	}
}
