// Package landmark defines the facial landmark data model shared by the
// pose and gaze estimators. A detector produces one Set per frame; the
// estimators resolve points through a Scheme so they never hard-code a
// particular detector's index layout.
package landmark

import (
	"errors"
	"fmt"
)

// ErrPointCount is returned when a detector hands over a landmark set whose
// size does not match the scheme it claims to follow.
var ErrPointCount = errors.New("landmark: unexpected point count")

// Point is a single landmark in normalized image coordinates.
// X and Y are in [0,1] relative to the frame; Z is relative depth in the
// same scale as X (negative is closer to the camera).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Set is one frame's ordered landmark set together with the frame
// dimensions the normalized coordinates refer to. Sets are immutable after
// construction; the pipeline creates one per frame and discards it.
type Set struct {
	points []Point
	width  int
	height int
}

// NewSet builds a Set, validating the point count against the scheme.
func NewSet(points []Point, scheme Scheme, width, height int) (*Set, error) {
	if len(points) != scheme.Count() {
		return nil, fmt.Errorf("%w: got %d, scheme %q expects %d",
			ErrPointCount, len(points), scheme.Name(), scheme.Count())
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("landmark: invalid frame size %dx%d", width, height)
	}
	return &Set{points: points, width: width, height: height}, nil
}

// Count returns the number of points in the set.
func (s *Set) Count() int { return len(s.points) }

// FrameWidth returns the pixel width of the source frame.
func (s *Set) FrameWidth() int { return s.width }

// FrameHeight returns the pixel height of the source frame.
func (s *Set) FrameHeight() int { return s.height }

// At returns the normalized point at index i.
func (s *Set) At(i int) Point { return s.points[i] }

// Pixel returns the point at index i scaled to pixel coordinates.
func (s *Set) Pixel(i int) (x, y float64) {
	p := s.points[i]
	return p.X * float64(s.width), p.Y * float64(s.height)
}

// Points returns a copy of the normalized points, for rendering.
func (s *Set) Points() []Point {
	out := make([]Point, len(s.points))
	copy(out, s.points)
	return out
}
