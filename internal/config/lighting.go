package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path of the canonical defaults file. It is the
// single source of truth for default geometry and strip values.
const DefaultConfigPath = "config/lighting.defaults.json"

// LightingConfig is the root configuration for the mapping engine and the
// surrounding hardware. The schema matches the /api/config endpoint so the
// same JSON serves startup configuration and runtime updates. Fields omitted
// from the JSON keep their defaults, so partial configs are safe.
type LightingConfig struct {
	// Keyboard geometry
	KeyCount     *int     `json:"key_count,omitempty"`
	WhiteWidthMM *float64 `json:"white_width_mm,omitempty"`
	BlackWidthMM *float64 `json:"black_width_mm,omitempty"`
	KeyGapMM     *float64 `json:"key_gap_mm,omitempty"`
	LowestNote   *int     `json:"lowest_note,omitempty"`

	// LED strip
	LEDCount     *int     `json:"led_count,omitempty"`
	LEDsPerMeter *float64 `json:"leds_per_meter,omitempty"`
	StartLED     *int     `json:"start_led,omitempty"`
	EndLED       *int     `json:"end_led,omitempty"`

	// Allocation
	Mode                *string  `json:"mode,omitempty"` // sharing | exclusive | physical
	OverhangThresholdMM *float64 `json:"overhang_threshold_mm,omitempty"`

	// Hardware
	SerialPort *string `json:"serial_port,omitempty"`
	BaudRate   *int    `json:"baud_rate,omitempty"`
	MIDIPort   *string `json:"midi_port,omitempty"`
}

// Empty returns a LightingConfig with every field unset.
func Empty() *LightingConfig {
	return &LightingConfig{}
}

// Load reads a LightingConfig from a JSON file. The file must have a .json
// extension and stay under 1MB.
func Load(path string) (*LightingConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configured values. Cross-field constraints (the
// calibration range against the LED count) are validated together here so a
// bad range is rejected before any allocation runs.
func (c *LightingConfig) Validate() error {
	if c.KeyCount != nil && *c.KeyCount <= 0 {
		return fmt.Errorf("key_count must be positive, got %d", *c.KeyCount)
	}
	if c.WhiteWidthMM != nil && *c.WhiteWidthMM <= 0 {
		return fmt.Errorf("white_width_mm must be positive, got %f", *c.WhiteWidthMM)
	}
	if c.BlackWidthMM != nil && *c.BlackWidthMM <= 0 {
		return fmt.Errorf("black_width_mm must be positive, got %f", *c.BlackWidthMM)
	}
	if c.KeyGapMM != nil && *c.KeyGapMM < 0 {
		return fmt.Errorf("key_gap_mm must be non-negative, got %f", *c.KeyGapMM)
	}
	if c.LEDCount != nil && *c.LEDCount <= 0 {
		return fmt.Errorf("led_count must be positive, got %d", *c.LEDCount)
	}
	if c.LEDsPerMeter != nil && *c.LEDsPerMeter <= 0 {
		return fmt.Errorf("leds_per_meter must be positive, got %f", *c.LEDsPerMeter)
	}
	if c.Mode != nil {
		switch *c.Mode {
		case "sharing", "exclusive", "physical":
		default:
			return fmt.Errorf("mode must be sharing, exclusive or physical, got %q", *c.Mode)
		}
	}
	if c.OverhangThresholdMM != nil && *c.OverhangThresholdMM < 0 {
		return fmt.Errorf("overhang_threshold_mm must be non-negative, got %f", *c.OverhangThresholdMM)
	}
	start, end := c.GetStartLED(), c.GetEndLED()
	if start > end {
		return fmt.Errorf("start_led %d after end_led %d", start, end)
	}
	if start < 0 || end >= c.GetLEDCount() {
		return fmt.Errorf("led range [%d, %d] outside strip [0, %d]", start, end, c.GetLEDCount()-1)
	}
	if c.BaudRate != nil && *c.BaudRate <= 0 {
		return fmt.Errorf("baud_rate must be positive, got %d", *c.BaudRate)
	}
	return nil
}

// GetKeyCount returns the key_count value or the default.
func (c *LightingConfig) GetKeyCount() int {
	if c.KeyCount == nil {
		return 88
	}
	return *c.KeyCount
}

// GetWhiteWidthMM returns the white_width_mm value or the default.
func (c *LightingConfig) GetWhiteWidthMM() float64 {
	if c.WhiteWidthMM == nil {
		return 22.5
	}
	return *c.WhiteWidthMM
}

// GetBlackWidthMM returns the black_width_mm value or the default.
func (c *LightingConfig) GetBlackWidthMM() float64 {
	if c.BlackWidthMM == nil {
		return 13.7
	}
	return *c.BlackWidthMM
}

// GetKeyGapMM returns the key_gap_mm value or the default.
func (c *LightingConfig) GetKeyGapMM() float64 {
	if c.KeyGapMM == nil {
		return 1.0
	}
	return *c.KeyGapMM
}

// GetLowestNote returns the lowest_note value, or 0 meaning "use the preset
// for the key count".
func (c *LightingConfig) GetLowestNote() int {
	if c.LowestNote == nil {
		return 0
	}
	return *c.LowestNote
}

// GetLEDCount returns the led_count value or the default.
func (c *LightingConfig) GetLEDCount() int {
	if c.LEDCount == nil {
		return 300
	}
	return *c.LEDCount
}

// GetLEDsPerMeter returns the leds_per_meter value or the default.
func (c *LightingConfig) GetLEDsPerMeter() float64 {
	if c.LEDsPerMeter == nil {
		return 200
	}
	return *c.LEDsPerMeter
}

// GetStartLED returns the start_led value or the default.
func (c *LightingConfig) GetStartLED() int {
	if c.StartLED == nil {
		return 0
	}
	return *c.StartLED
}

// GetEndLED returns the end_led value, defaulting to the last LED on the
// strip.
func (c *LightingConfig) GetEndLED() int {
	if c.EndLED == nil {
		return c.GetLEDCount() - 1
	}
	return *c.EndLED
}

// GetMode returns the mode value or the default.
func (c *LightingConfig) GetMode() string {
	if c.Mode == nil {
		return "sharing"
	}
	return *c.Mode
}

// GetOverhangThresholdMM returns the overhang_threshold_mm value or the
// default. Zero means "no overhang filtering configured".
func (c *LightingConfig) GetOverhangThresholdMM() float64 {
	if c.OverhangThresholdMM == nil {
		return 0
	}
	return *c.OverhangThresholdMM
}

// GetSerialPort returns the serial_port value, or empty meaning "run with
// the null driver".
func (c *LightingConfig) GetSerialPort() string {
	if c.SerialPort == nil {
		return ""
	}
	return *c.SerialPort
}

// GetBaudRate returns the baud_rate value or the default.
func (c *LightingConfig) GetBaudRate() int {
	if c.BaudRate == nil {
		return 115200
	}
	return *c.BaudRate
}

// GetMIDIPort returns the midi_port value, or empty meaning "first
// available input".
func (c *LightingConfig) GetMIDIPort() string {
	if c.MIDIPort == nil {
		return ""
	}
	return *c.MIDIPort
}
