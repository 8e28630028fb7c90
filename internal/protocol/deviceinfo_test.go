package protocol

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseDeviceInfo(t *testing.T) {
	tests := []struct {
		name string
		resp string
		want DeviceInfo
	}{
		{
			name: "no firmware_version line",
			resp: "I (10) boot: hello\nOK",
			want: DefaultDeviceInfo(),
		},
		{
			name: "empty",
			resp: "",
			want: DefaultDeviceInfo(),
		},
		{
			name: "full object",
			resp: `{"firmware_version":"1.2.3","device_id":"ice-pulse-007","chip_id":"ESP32-C3","free_heap":281456}`,
			want: DeviceInfo{FirmwareVersion: "1.2.3", DeviceID: "ice-pulse-007", ChipID: "ESP32-C3", FreeHeap: "281456"},
		},
		{
			name: "partial object keeps defaults",
			resp: `{"firmware_version":"1.2.3"}`,
			want: DeviceInfo{FirmwareVersion: "1.2.3", DeviceID: Unknown, ChipID: Unknown, FreeHeap: Unknown},
		},
		{
			name: "malformed line skipped, next line parsed",
			resp: "firmware_version: garbage {\n" + `I (5) info: {"firmware_version":"2.0.0","device_id":"abc"}`,
			want: DeviceInfo{FirmwareVersion: "2.0.0", DeviceID: "abc", ChipID: Unknown, FreeHeap: Unknown},
		},
		{
			name: "first successful parse wins",
			resp: `{"firmware_version":"1.0.0"}` + "\n" + `{"firmware_version":"9.9.9","device_id":"late"}`,
			want: DeviceInfo{FirmwareVersion: "1.0.0", DeviceID: Unknown, ChipID: Unknown, FreeHeap: Unknown},
		},
		{
			name: "unknown keys ignored",
			resp: `{"firmware_version":"1.0.0","uptime":42}`,
			want: DeviceInfo{FirmwareVersion: "1.0.0", DeviceID: Unknown, ChipID: Unknown, FreeHeap: Unknown},
		},
		{
			name: "array is not an object",
			resp: `["firmware_version"]`,
			want: DefaultDeviceInfo(),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseDeviceInfo(tc.resp)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("ParseDeviceInfo mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDeviceInfo_Fields(t *testing.T) {
	fields := DefaultDeviceInfo().Fields()
	if len(fields) != 4 {
		t.Fatalf("got %d fields, want 4", len(fields))
	}
	if fields[0].Name != "firmware_version" || fields[3].Name != "free_heap" {
		t.Errorf("unexpected field order: %+v", fields)
	}
	for _, f := range fields {
		if f.Value != Unknown {
			t.Errorf("field %s = %q, want %q", f.Name, f.Value, Unknown)
		}
	}
}
