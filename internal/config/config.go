// Package config loads acquisition settings for the sensor head and its
// trigger/illumination box.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// AcquisitionConfig holds the sensor parameters applied at startup. Fields
// are pointers so a partial JSON file only overrides what it names; nil
// fields keep the head's stored user-set values.
type AcquisitionConfig struct {
	// ExposureMicros is applied to both camera sources of the head.
	ExposureMicros *float64 `json:"exposure_micros,omitempty"`
	// LaserBrightness is a percentage, 0-100.
	LaserBrightness *int `json:"laser_brightness,omitempty"`
	// TriggerEnabled switches between line-triggered and free-running
	// profile acquisition.
	TriggerEnabled *bool `json:"trigger_enabled,omitempty"`
	// TriggerLine selects the encoder/trigger input line.
	TriggerLine *int `json:"trigger_line,omitempty"`
	// VolumeLengthWorld is the scan volume length in world units; 0 means
	// unbounded continuous scanning.
	VolumeLengthWorld *float64 `json:"volume_length_world,omitempty"`
}

// Helper functions to create pointers.
func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrBool(v bool) *bool          { return &v }

// DefaultAcquisitionConfig mirrors the profiler's factory "Profile" user
// set: 500µs exposure, full laser power, line trigger on line 0.
func DefaultAcquisitionConfig() *AcquisitionConfig {
	return &AcquisitionConfig{
		ExposureMicros:    ptrFloat64(500.0),
		LaserBrightness:   ptrInt(100),
		TriggerEnabled:    ptrBool(true),
		TriggerLine:       ptrInt(0),
		VolumeLengthWorld: ptrFloat64(0.0),
	}
}

// maxConfigFileSize bounds config reads for safety (1MB).
const maxConfigFileSize = 1 * 1024 * 1024

// LoadAcquisitionConfig loads an AcquisitionConfig from a JSON file.
// Fields omitted from the file stay nil, so partial configs are safe.
func LoadAcquisitionConfig(path string) (*AcquisitionConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)",
			fileInfo.Size(), maxConfigFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AcquisitionConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the trigger box would refuse.
func (c *AcquisitionConfig) Validate() error {
	if c.ExposureMicros != nil && *c.ExposureMicros <= 0 {
		return fmt.Errorf("exposure_micros must be positive, got %g", *c.ExposureMicros)
	}
	if c.LaserBrightness != nil && (*c.LaserBrightness < 0 || *c.LaserBrightness > 100) {
		return fmt.Errorf("laser_brightness must be 0-100, got %d", *c.LaserBrightness)
	}
	if c.TriggerLine != nil && *c.TriggerLine < 0 {
		return fmt.Errorf("trigger_line must be non-negative, got %d", *c.TriggerLine)
	}
	if c.VolumeLengthWorld != nil && *c.VolumeLengthWorld < 0 {
		return fmt.Errorf("volume_length_world must be non-negative, got %g", *c.VolumeLengthWorld)
	}
	return nil
}
