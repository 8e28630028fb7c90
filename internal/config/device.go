package config

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DeviceConfig is the key/value object sent to the firmware with
// device_config. Values are kept as decoded JSON so nested objects pass
// through unchanged.
type DeviceConfig map[string]any

// LoadDeviceConfig reads a device configuration file. The top level must be
// a JSON object.
func LoadDeviceConfig(path string) (DeviceConfig, error) {
	var cfg DeviceConfig
	if err := decodeJSONFile(path, &cfg); err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("device config %s must be a JSON object", path)
	}
	return cfg, nil
}

// Merge copies every key of other over c, replacing existing values.
func (c DeviceConfig) Merge(other DeviceConfig) {
	for k, v := range other {
		c[k] = v
	}
}

// Compact returns the config as single-line JSON, the form the firmware
// console expects. HTML escaping is disabled so URLs arrive verbatim.
func (c DeviceConfig) Compact() (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(c); err != nil {
		return "", fmt.Errorf("failed to encode device config: %w", err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
