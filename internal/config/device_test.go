package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadDeviceConfig(t *testing.T) {
	path := writeConfig(t, "device.json", `{"location":"rink","interval":60,"upload":{"retry":true}}`)

	cfg, err := LoadDeviceConfig(path)
	if err != nil {
		t.Fatalf("LoadDeviceConfig: %v", err)
	}
	want := DeviceConfig{
		"location": "rink",
		"interval": float64(60),
		"upload":   map[string]any{"retry": true},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadDeviceConfigExample(t *testing.T) {
	cfg, err := LoadDeviceConfig("../../config/device.example.json")
	if err != nil {
		t.Fatalf("Failed to load example: %v", err)
	}
	if _, ok := cfg["upload"].(map[string]any); !ok {
		t.Errorf("expected nested upload object, got %T", cfg["upload"])
	}
}

func TestLoadDeviceConfigRejectsNonObject(t *testing.T) {
	for name, body := range map[string]string{
		"array.json": `[1, 2]`,
		"null.json":  `null`,
		"str.json":   `"hello"`,
	} {
		path := writeConfig(t, name, body)
		if _, err := LoadDeviceConfig(path); err == nil {
			t.Errorf("%s: expected error for non-object config", name)
		}
	}
}

func TestDeviceConfigMergeAndCompact(t *testing.T) {
	cfg := DeviceConfig{
		"device_id":    "ice-pulse-001",
		"api_endpoint": "https://api.example.com/v1?a=1&b=2",
	}
	cfg.Merge(DeviceConfig{"device_id": "rink-7", "location": "north"})

	got, err := cfg.Compact()
	if err != nil {
		t.Fatalf("Compact: %v", err)
	}
	// encoding/json sorts map keys
	want := `{"api_endpoint":"https://api.example.com/v1?a=1&b=2","device_id":"rink-7","location":"north"}`
	if got != want {
		t.Errorf("Compact() = %s, want %s", got, want)
	}
}
