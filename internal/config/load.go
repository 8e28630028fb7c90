// Package config loads the JSON files the device tools accept on the
// command line: timing overrides and the device configuration pushed during
// provisioning.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const maxFileSize = 1 * 1024 * 1024 // 1MB

// readJSONFile validates path and returns its contents. The file must have a
// .json extension and be no larger than 1MB.
func readJSONFile(path string) ([]byte, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return data, nil
}

func decodeJSONFile(path string, v any) error {
	data, err := readJSONFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse config JSON: %w", err)
	}
	return nil
}
