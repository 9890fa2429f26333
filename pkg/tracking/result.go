package tracking

import (
	"encoding/json"
	"time"

	"github.com/focuswatch/go-focuswatch/pkg/attention"
	"github.com/focuswatch/go-focuswatch/pkg/calibration"
	"github.com/focuswatch/go-focuswatch/pkg/gaze"
	"github.com/focuswatch/go-focuswatch/pkg/landmark"
	"github.com/focuswatch/go-focuswatch/pkg/pose"
)

// Mode is what the pipeline is currently doing with incoming frames.
type Mode int

const (
	ModeTracking Mode = iota
	ModeCalibratingHead
	ModeCalibratingGaze
)

func (m Mode) String() string {
	switch m {
	case ModeCalibratingHead:
		return "calibrating_head"
	case ModeCalibratingGaze:
		return "calibrating_gaze"
	default:
		return "tracking"
	}
}

// MarshalJSON encodes the mode as its string name.
func (m Mode) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON decodes a mode from its string name.
func (m *Mode) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "calibrating_head":
		*m = ModeCalibratingHead
	case "calibrating_gaze":
		*m = ModeCalibratingGaze
	default:
		*m = ModeTracking
	}
	return nil
}

// Result is one frame's complete pipeline output. Results are immutable
// once published; observers must not retain the landmark set beyond the
// callback.
type Result struct {
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Mode      Mode      `json:"mode"`

	FaceDetected bool          `json:"face_detected"`
	Landmarks    *landmark.Set `json:"-"`

	// HeadPose and Gaze are the smoothed measurements, nil when the frame
	// produced none.
	HeadPose *pose.Angles `json:"head_pose,omitempty"`
	Gaze     *gaze.Vector `json:"gaze,omitempty"`

	LeftIris  *gaze.IrisPosition `json:"left_iris,omitempty"`
	RightIris *gaze.IrisPosition `json:"right_iris,omitempty"`

	State       attention.State `json:"state"`
	HeadWithin  bool            `json:"head_within"`
	GazeWithin  bool            `json:"gaze_within"`
	AttentionOK bool            `json:"attention_ok"`

	// Calibration workflow fields, populated only in calibration modes.
	CalibrationCollected int                     `json:"calibration_collected,omitempty"`
	CalibrationRequired  int                     `json:"calibration_required,omitempty"`
	GazeTarget           *calibration.GazeTarget `json:"gaze_target,omitempty"`
}

// EventType classifies pipeline events.
type EventType string

const (
	EventStateChange            EventType = "state_change"
	EventCalibrationStarted     EventType = "calibration_started"
	EventCalibrationStep        EventType = "calibration_step"
	EventCalibrationInterrupted EventType = "calibration_interrupted"
	EventCalibrationDone        EventType = "calibration_done"
	EventCalibrationCancelled   EventType = "calibration_cancelled"
)

// Event is an ordered notification of something that changed. Events for
// one frame are published after that frame's result, in occurrence order.
type Event struct {
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`

	// State transitions.
	From attention.State `json:"from,omitempty"`
	To   attention.State `json:"to,omitempty"`

	// Calibration workflow context.
	Workflow string                  `json:"workflow,omitempty"`
	Target   *calibration.GazeTarget `json:"target,omitempty"`
}

// Sink receives pipeline output. Callbacks run on the pipeline goroutine
// and must not block; a sink that needs to do real work hands off to its
// own goroutine.
type Sink interface {
	PublishResult(Result)
	PublishEvent(Event)
}

// Status is a point-in-time snapshot for the control API.
type Status struct {
	Mode  Mode            `json:"mode"`
	State attention.State `json:"state"`
	Seq   uint64          `json:"seq"`

	HeadPoseCalibrated bool `json:"head_pose_calibrated"`
	GazeCalibrated     bool `json:"gaze_calibrated"`

	CalibrationCollected int                     `json:"calibration_collected,omitempty"`
	CalibrationRequired  int                     `json:"calibration_required,omitempty"`
	GazeTarget           *calibration.GazeTarget `json:"gaze_target,omitempty"`
}
