package camera

import "fmt"

// Config holds the capture parameters for a webcam device.
type Config struct {
	DeviceID int `json:"device_id"`
	Width    int `json:"width"`
	Height   int `json:"height"`
	// Quality is the JPEG encode quality, 1-100.
	Quality int `json:"quality"`
}

// Preset names for common configurations.
const (
	PresetDefault = "default"
	Preset720p    = "720p"
	Preset1080p   = "1080p"
)

// DefaultConfig returns VGA capture, plenty for landmark detection.
func DefaultConfig() Config {
	return Config{
		DeviceID: 0,
		Width:    640,
		Height:   480,
		Quality:  85,
	}
}

// HD720Config returns 720p capture for wider fields of view.
func HD720Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 720
	return cfg
}

// HD1080Config returns 1080p capture. Detection cost grows with frame
// size; only worth it for multi-monitor setups.
func HD1080Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1920
	cfg.Height = 1080
	return cfg
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	presets := map[string]Config{
		PresetDefault: DefaultConfig(),
		Preset720p:    HD720Config(),
		Preset1080p:   HD1080Config(),
	}
	if cfg, ok := presets[name]; ok {
		return &cfg
	}
	return nil
}

// Validate checks the configuration bounds.
func (c Config) Validate() error {
	if c.DeviceID < 0 {
		return fmt.Errorf("camera: device id %d out of range", c.DeviceID)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("camera: invalid resolution %dx%d", c.Width, c.Height)
	}
	if c.Quality < 1 || c.Quality > 100 {
		return fmt.Errorf("camera: quality %d out of range 1-100", c.Quality)
	}
	return nil
}
