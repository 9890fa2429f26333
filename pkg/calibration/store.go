package calibration

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/focuswatch/go-focuswatch/internal/log"
)

// schemaVersion is bumped on incompatible changes to the file layout.
// A version mismatch on load falls back to defaults.
const schemaVersion = 1

// Store owns the Settings and calibration Data for the process lifetime.
// Readers take snapshots; the single writer (user interaction) serializes
// mutations behind the lock, so per-frame reads never observe a torn
// update.
type Store struct {
	path string

	mu       sync.RWMutex
	settings Settings
	data     Data
}

// fileSchema is the persisted layout, a single versioned JSON file.
type fileSchema struct {
	Version     int             `json:"version"`
	Settings    Settings        `json:"settings"`
	Calibration fileCalibration `json:"calibration"`
}

type fileCalibration struct {
	HeadPose *fileHeadPose `json:"head_pose,omitempty"`
	Gaze     *fileGaze     `json:"gaze,omitempty"`
}

type fileHeadPose struct {
	Baseline   [3]float64 `json:"baseline"`
	Thresholds [3]float64 `json:"thresholds"`
}

type fileGaze struct {
	HorizontalRange [2]float64 `json:"horizontal_range"`
	VerticalRange   [2]float64 `json:"vertical_range"`
}

// NewStore creates a store persisting to path. Call Load before use.
func NewStore(path string) *Store {
	return &Store{
		path:     path,
		settings: DefaultSettings(),
		data:     DefaultData(),
	}
}

// Path returns the config file path.
func (s *Store) Path() string { return s.path }

// Load reads the persisted file. It fails soft: a missing file, corrupt
// content, or a schema-version mismatch leaves the store at defaults with
// incomplete calibration so the pipeline can run uncalibrated.
func (s *Store) Load() {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("config unreadable, using defaults", "path", s.path, "error", err)
		}
		s.resetToDefaults()
		return
	}

	var file fileSchema
	if err := json.Unmarshal(raw, &file); err != nil {
		log.Warn("config corrupt, using defaults", "path", s.path, "error", err)
		s.resetToDefaults()
		return
	}
	if file.Version != schemaVersion {
		log.Warn("config schema version mismatch, using defaults",
			"path", s.path, "got", file.Version, "want", schemaVersion)
		s.resetToDefaults()
		return
	}
	if err := file.Settings.Validate(); err != nil {
		log.Warn("config settings invalid, using defaults", "path", s.path, "error", err)
		s.resetToDefaults()
		return
	}

	data := DefaultData()
	if hp := file.Calibration.HeadPose; hp != nil {
		if err := validateThresholds(hp.Thresholds); err != nil {
			log.Warn("config head-pose calibration invalid, discarding", "path", s.path, "error", err)
		} else {
			data.HeadPose = HeadPose{Baseline: hp.Baseline, Thresholds: hp.Thresholds, Calibrated: true}
		}
	}
	if g := file.Calibration.Gaze; g != nil {
		if err := validateGazeRanges(g.HorizontalRange, g.VerticalRange); err != nil {
			log.Warn("config gaze calibration invalid, discarding", "path", s.path, "error", err)
		} else {
			data.Gaze = Gaze{HorizontalRange: g.HorizontalRange, VerticalRange: g.VerticalRange, Calibrated: true}
		}
	}

	s.mu.Lock()
	s.settings = file.Settings
	s.data = data
	s.mu.Unlock()
}

func (s *Store) resetToDefaults() {
	s.mu.Lock()
	s.settings = DefaultSettings()
	s.data = DefaultData()
	s.mu.Unlock()
}

// Save writes the current settings and calibration atomically
// (write to a temp file, then rename). A failed save leaves the in-memory
// state authoritative; the caller decides whether to retry.
func (s *Store) Save() error {
	s.mu.RLock()
	file := fileSchema{
		Version:  schemaVersion,
		Settings: s.settings,
	}
	if s.data.HeadPose.Calibrated {
		hp := s.data.HeadPose
		file.Calibration.HeadPose = &fileHeadPose{Baseline: hp.Baseline, Thresholds: hp.Thresholds}
	}
	if s.data.Gaze.Calibrated {
		g := s.data.Gaze
		file.Calibration.Gaze = &fileGaze{HorizontalRange: g.HorizontalRange, VerticalRange: g.VerticalRange}
	}
	s.mu.RUnlock()

	raw, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("calibration: marshal config: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("calibration: create config dir: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("calibration: write temp config: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("calibration: replace config: %w", err)
	}
	return nil
}

// Settings returns a snapshot of the current settings.
func (s *Store) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Calibration returns a snapshot of the current calibration data.
func (s *Store) Calibration() Data {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

// Snapshot returns a consistent pair of settings and calibration, taken
// under one lock acquisition. The per-frame evaluator consumes this.
func (s *Store) Snapshot() (Settings, Data) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings, s.data
}

// SetSettings validates and replaces the settings, then persists.
// An invalid update is rejected and the prior value retained.
func (s *Store) SetSettings(next Settings) error {
	if err := next.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.settings = next
	s.mu.Unlock()
	return s.Save()
}

// UpdateSettings applies a partial edit to a copy of the settings, then
// validates and commits it.
func (s *Store) UpdateSettings(apply func(*Settings)) error {
	s.mu.RLock()
	next := s.settings
	s.mu.RUnlock()
	apply(&next)
	return s.SetSettings(next)
}

// SetHeadPoseCalibration records a completed head-pose calibration and
// persists. Thresholds must be non-negative.
func (s *Store) SetHeadPoseCalibration(baseline, thresholds [3]float64) error {
	if err := validateThresholds(thresholds); err != nil {
		return err
	}
	s.mu.Lock()
	s.data.HeadPose = HeadPose{Baseline: baseline, Thresholds: thresholds, Calibrated: true}
	s.mu.Unlock()
	return s.Save()
}

// SetGazeCalibration records a completed gaze calibration and persists.
func (s *Store) SetGazeCalibration(horizontal, vertical [2]float64) error {
	if err := validateGazeRanges(horizontal, vertical); err != nil {
		return err
	}
	s.mu.Lock()
	s.data.Gaze = Gaze{HorizontalRange: horizontal, VerticalRange: vertical, Calibrated: true}
	s.mu.Unlock()
	return s.Save()
}

func validateThresholds(thresholds [3]float64) error {
	for _, th := range thresholds {
		if th < 0 {
			return fmt.Errorf("%w: negative head-pose threshold %v", ErrInvalidSettings, th)
		}
	}
	return nil
}

func validateGazeRanges(horizontal, vertical [2]float64) error {
	if horizontal[0] > horizontal[1] || vertical[0] > vertical[1] {
		return fmt.Errorf("%w: gaze range min > max", ErrInvalidSettings)
	}
	return nil
}

// ResetCalibration discards both calibrations and persists.
func (s *Store) ResetCalibration() error {
	s.mu.Lock()
	s.data = DefaultData()
	s.mu.Unlock()
	return s.Save()
}
