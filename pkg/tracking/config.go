package tracking

import (
	"time"

	"github.com/focuswatch/go-focuswatch/pkg/landmark"
)

// Config holds the pipeline's tunable parameters. Per-user parameters
// (thresholds, smoothing window, warning delay) live in the calibration
// store instead; Config is fixed for the life of the pipeline.
type Config struct {
	// FrameInterval is the target time between processed frames.
	FrameInterval time.Duration

	// Scheme is the landmark index layout the estimators resolve through.
	Scheme landmark.Scheme

	// LogDir is where per-session CSV logs are written when enabled.
	LogDir string
}

// DefaultConfig returns the recommended configuration: ~30 fps, enough for
// the warning-delay hysteresis to feel immediate without burning CPU.
func DefaultConfig() Config {
	return Config{
		FrameInterval: 33 * time.Millisecond,
		Scheme:        landmark.FaceMesh(),
		LogDir:        "sessions",
	}
}

// ResponsiveConfig returns a configuration for low-latency tracking at the
// cost of CPU, for machines that can sustain ~60 fps detection.
func ResponsiveConfig() Config {
	cfg := DefaultConfig()
	cfg.FrameInterval = 16 * time.Millisecond
	return cfg
}

func (c Config) withDefaults() Config {
	if c.FrameInterval <= 0 {
		c.FrameInterval = DefaultConfig().FrameInterval
	}
	if c.Scheme == nil {
		c.Scheme = landmark.FaceMesh()
	}
	if c.LogDir == "" {
		c.LogDir = DefaultConfig().LogDir
	}
	return c
}
