// Package attention turns smoothed pose and gaze measurements into a
// binary attention state with hysteresis against transient noise.
package attention

import (
	"encoding/json"

	"github.com/focuswatch/go-focuswatch/pkg/calibration"
	"github.com/focuswatch/go-focuswatch/pkg/gaze"
	"github.com/focuswatch/go-focuswatch/pkg/pose"
)

// State is the per-frame attention classification.
type State int

const (
	// StateUncalibrated means calibration is incomplete; no OK/LOST
	// verdict is possible and callers must not read it as attentive.
	StateUncalibrated State = iota

	// StateOK means the user is looking at the screen.
	StateOK

	// StateLost means attention has been out of range for at least the
	// configured warning delay.
	StateLost
)

func (s State) String() string {
	switch s {
	case StateOK:
		return "ok"
	case StateLost:
		return "lost"
	default:
		return "uncalibrated"
	}
}

// MarshalJSON encodes the state as its string name.
func (s State) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON decodes a state from its string name.
func (s *State) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "ok":
		*s = StateOK
	case "lost":
		*s = StateLost
	default:
		*s = StateUncalibrated
	}
	return nil
}

// Verdict is the evaluator's per-frame output.
type Verdict struct {
	State       State `json:"state"`
	HeadWithin  bool  `json:"head_within"`
	GazeWithin  bool  `json:"gaze_within"`
	AttentionOK bool  `json:"attention_ok"`

	// Evidence is false when the frame carried no usable measurements;
	// such frames hold the out-of-range counter rather than count
	// against the user.
	Evidence bool `json:"evidence"`
}

// Evaluator applies the hysteresis rule: attention flips OK to LOST only
// after warning-delay consecutive out-of-range frames, and recovers on the
// very first in-range frame.
type Evaluator struct {
	outOfRange int
	state      State
}

// NewEvaluator creates an evaluator in the uncalibrated state.
func NewEvaluator() *Evaluator {
	return &Evaluator{state: StateUncalibrated}
}

// OutOfRangeFrames returns the current consecutive out-of-range count.
func (e *Evaluator) OutOfRangeFrames() int {
	return e.outOfRange
}

// Reset clears the counter and returns to the pre-evidence state.
func (e *Evaluator) Reset() {
	e.outOfRange = 0
	e.state = StateUncalibrated
}

// Evaluate classifies one frame. headPose and gazeVec are the smoothed
// measurements, nil when the frame produced none; warningDelay is the
// consecutive-frame threshold (floored at 1).
//
// Frames without evidence are "no new evidence": the counter and state
// hold their prior values.
func (e *Evaluator) Evaluate(data calibration.Data, warningDelay int, headPose *pose.Angles, gazeVec *gaze.Vector) Verdict {
	if warningDelay < 1 {
		warningDelay = 1
	}

	if !data.Complete() {
		e.outOfRange = 0
		e.state = StateUncalibrated
		return Verdict{State: StateUncalibrated, Evidence: headPose != nil && gazeVec != nil}
	}

	if headPose == nil || gazeVec == nil {
		if e.state == StateUncalibrated {
			// First frames after calibration completes: without evidence
			// the benign default is OK.
			e.state = StateOK
		}
		return Verdict{State: e.state, Evidence: false}
	}

	headWithin := data.HeadPose.WithinThreshold(*headPose)
	gazeWithin := data.Gaze.WithinThreshold(*gazeVec)
	attentionOK := headWithin && gazeWithin

	if attentionOK {
		e.outOfRange = 0
		e.state = StateOK
	} else {
		e.outOfRange++
		if e.outOfRange >= warningDelay {
			e.state = StateLost
		} else if e.state == StateUncalibrated {
			e.state = StateOK
		}
	}

	return Verdict{
		State:       e.state,
		HeadWithin:  headWithin,
		GazeWithin:  gazeWithin,
		AttentionOK: attentionOK,
		Evidence:    true,
	}
}
