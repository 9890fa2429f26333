package main

import (
	"testing"

	"github.com/focuswatch/go-focuswatch/pkg/calibration"
	"github.com/focuswatch/go-focuswatch/pkg/camera"
)

func TestCaptureConfig(t *testing.T) {
	settings := calibration.DefaultSettings()
	settings.CameraIndex = 2
	settings.FrameWidth = 800
	settings.FrameHeight = 600

	cfg, err := captureConfig(camera.PresetDefault, settings)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 800 || cfg.Height != 600 {
		t.Errorf("default preset = %dx%d, want settings frame size 800x600", cfg.Width, cfg.Height)
	}
	if cfg.DeviceID != 2 {
		t.Errorf("device id = %d, want 2", cfg.DeviceID)
	}

	cfg, err = captureConfig(camera.Preset720p, settings)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 1280 || cfg.Height != 720 {
		t.Errorf("720p preset = %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.DeviceID != 2 {
		t.Errorf("device id = %d, want 2", cfg.DeviceID)
	}

	if _, err := captureConfig("cinema", settings); err == nil {
		t.Fatal("unknown preset must be rejected")
	}
}
