package calibration

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidSettings is returned when a settings update fails validation.
// The store keeps the prior valid value when an update is rejected.
var ErrInvalidSettings = errors.New("calibration: invalid settings")

var validate = validator.New()

// Settings are the user-adjustable parameters. Loaded once at startup,
// mutable at runtime, persisted on change.
type Settings struct {
	CameraIndex int `json:"camera_index" validate:"gte=0"`
	FrameWidth  int `json:"frame_width" validate:"gt=0"`
	FrameHeight int `json:"frame_height" validate:"gt=0"`

	// Head-pose deviation thresholds in degrees, applied as the defaults
	// when a head-pose calibration completes without explicit thresholds.
	HeadYawThreshold   float64 `json:"head_yaw_threshold" validate:"gte=0"`
	HeadPitchThreshold float64 `json:"head_pitch_threshold" validate:"gte=0"`
	HeadRollThreshold  float64 `json:"head_roll_threshold" validate:"gte=0"`

	// Gaze range defaults in normalized gaze units, [min, max] per axis.
	GazeHorizontalRange [2]float64 `json:"gaze_horizontal_range"`
	GazeVerticalRange   [2]float64 `json:"gaze_vertical_range"`

	SmoothingWindow    int `json:"smoothing_window" validate:"gte=1"`
	WarningDelayFrames int `json:"warning_delay_frames" validate:"gte=1"`

	OverlayEnabled bool    `json:"overlay_enabled"`
	OverlayWidth   int     `json:"overlay_width" validate:"gt=0"`
	OverlayHeight  int     `json:"overlay_height" validate:"gt=0"`
	OverlayPosX    float64 `json:"overlay_pos_x" validate:"gte=0,lte=100"`
	OverlayPosY    float64 `json:"overlay_pos_y" validate:"gte=0,lte=100"`

	LogToCSV bool `json:"log_to_csv"`
}

// DefaultSettings returns the out-of-the-box configuration.
func DefaultSettings() Settings {
	return Settings{
		CameraIndex:         0,
		FrameWidth:          640,
		FrameHeight:         480,
		HeadYawThreshold:    15,
		HeadPitchThreshold:  15,
		HeadRollThreshold:   15,
		GazeHorizontalRange: [2]float64{-0.3, 0.3},
		GazeVerticalRange:   [2]float64{-0.3, 0.3},
		SmoothingWindow:     5,
		WarningDelayFrames:  10,
		OverlayEnabled:      true,
		OverlayWidth:        360,
		OverlayHeight:       140,
		OverlayPosX:         50,
		OverlayPosY:         12,
		LogToCSV:            false,
	}
}

// HeadThresholds returns the threshold triple in axis order.
func (s Settings) HeadThresholds() [3]float64 {
	return [3]float64{s.HeadYawThreshold, s.HeadPitchThreshold, s.HeadRollThreshold}
}

// Validate checks all invariants and returns ErrInvalidSettings (wrapped
// with detail) on the first violation.
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	if s.GazeHorizontalRange[0] > s.GazeHorizontalRange[1] {
		return fmt.Errorf("%w: gaze horizontal range min > max", ErrInvalidSettings)
	}
	if s.GazeVerticalRange[0] > s.GazeVerticalRange[1] {
		return fmt.Errorf("%w: gaze vertical range min > max", ErrInvalidSettings)
	}
	return nil
}
