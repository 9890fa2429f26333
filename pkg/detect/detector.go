// Package detect provides facial landmark detection backends.
//
// The tracking pipeline treats the detector as an opaque collaborator: it
// hands over one frame and receives either a full landmark set or ErrNoFace.
// Backends: a remote landmark sidecar over websocket, a gocv face-mesh
// network, and a function-field Mock for tests.
package detect

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/focuswatch/go-focuswatch/pkg/landmark"
)

// ErrNoFace is returned when a frame contains no detectable face.
// The pipeline treats it as a per-frame detection miss, not a failure.
var ErrNoFace = errors.New("detect: no face in frame")

// Detector produces one landmark set per frame.
type Detector interface {
	// Detect finds the face in a JPEG frame and returns its landmarks.
	// Returns ErrNoFace when no face is present.
	Detect(jpeg []byte) (*landmark.Set, error)

	// Close releases resources.
	Close() error
}

// framePayload is the wire format shared by the remote sidecar protocol:
// one JSON object per processed frame.
type framePayload struct {
	Face   bool         `json:"face"`
	Width  int          `json:"width"`
	Height int          `json:"height"`
	Points [][3]float64 `json:"points"`
}

// decodePayload converts a wire payload into a landmark set, enforcing the
// scheme's fixed point count.
func decodePayload(raw []byte, scheme landmark.Scheme) (*landmark.Set, error) {
	var payload framePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("detect: decode payload: %w", err)
	}
	if !payload.Face {
		return nil, ErrNoFace
	}

	points := make([]landmark.Point, len(payload.Points))
	for i, p := range payload.Points {
		points[i] = landmark.Point{X: p[0], Y: p[1], Z: p[2]}
	}
	set, err := landmark.NewSet(points, scheme, payload.Width, payload.Height)
	if err != nil {
		return nil, fmt.Errorf("detect: invalid landmark set: %w", err)
	}
	return set, nil
}
