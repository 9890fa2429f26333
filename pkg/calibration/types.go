// Package calibration owns the per-user baseline data and tunable
// settings: head-pose baselines and thresholds, gaze range bounds, their
// JSON persistence, and the sample collectors that drive the calibration
// workflows.
package calibration

import (
	"math"

	"github.com/focuswatch/go-focuswatch/pkg/gaze"
	"github.com/focuswatch/go-focuswatch/pkg/pose"
)

// Axis order used for baseline and threshold triples.
const (
	AxisYaw = iota
	AxisPitch
	AxisRoll
)

// HeadPose is the calibrated neutral head orientation with per-axis
// deviation thresholds in degrees. Thresholds are non-negative.
type HeadPose struct {
	Baseline   [3]float64 `json:"baseline"` // yaw, pitch, roll
	Thresholds [3]float64 `json:"thresholds"`
	Calibrated bool       `json:"calibrated"`
}

// WithinThreshold reports whether every axis deviates from the baseline by
// at most its threshold. Reflexive: the baseline itself is always within.
func (h HeadPose) WithinThreshold(a pose.Angles) bool {
	angles := [3]float64{a.Yaw, a.Pitch, a.Roll}
	for i := range angles {
		if math.Abs(angles[i]-h.Baseline[i]) > h.Thresholds[i] {
			return false
		}
	}
	return true
}

// Gaze holds the calibrated gaze range bounds in normalized gaze units.
// Invariant: min <= max per axis.
type Gaze struct {
	HorizontalRange [2]float64 `json:"horizontal_range"`
	VerticalRange   [2]float64 `json:"vertical_range"`
	Calibrated      bool       `json:"calibrated"`
}

// WithinThreshold reports whether both gaze components lie inside their
// calibrated ranges.
func (g Gaze) WithinThreshold(v gaze.Vector) bool {
	return v.H >= g.HorizontalRange[0] && v.H <= g.HorizontalRange[1] &&
		v.V >= g.VerticalRange[0] && v.V <= g.VerticalRange[1]
}

// Data aggregates both calibrations.
type Data struct {
	HeadPose HeadPose `json:"head_pose"`
	Gaze     Gaze     `json:"gaze"`
}

// Complete reports whether both sub-calibrations have been populated.
// The attention evaluator refuses to produce an OK/LOST verdict until then.
func (d Data) Complete() bool {
	return d.HeadPose.Calibrated && d.Gaze.Calibrated
}

// DefaultData returns placeholder calibration values flagged incomplete.
func DefaultData() Data {
	s := DefaultSettings()
	return Data{
		HeadPose: HeadPose{
			Thresholds: [3]float64{s.HeadYawThreshold, s.HeadPitchThreshold, s.HeadRollThreshold},
		},
		Gaze: Gaze{
			HorizontalRange: s.GazeHorizontalRange,
			VerticalRange:   s.GazeVerticalRange,
		},
	}
}
