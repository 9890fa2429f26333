// Package gaze derives a normalized 2D gaze direction from eye-region
// landmarks. The iris center of each eye is located as the centroid of the
// iris landmarks, normalized against the eye's bounding region, and the
// two per-eye vectors are averaged.
package gaze

import (
	"errors"
	"fmt"
	"math"

	"github.com/focuswatch/go-focuswatch/pkg/landmark"
)

var (
	// ErrDegenerate is returned when an eye's bounding region has
	// near-zero extent (blink, detector glitch).
	ErrDegenerate = errors.New("gaze: degenerate eye region")

	// ErrMissingLandmarks is returned when the scheme lacks the eye or
	// iris landmarks the estimator needs.
	ErrMissingLandmarks = errors.New("gaze: missing eye landmarks")
)

// minEyeExtent is the smallest usable eye box dimension in pixels.
const minEyeExtent = 1.0

// Vector is a normalized gaze direction. H is horizontal (negative left,
// positive right), V vertical (negative up, positive down). Zero is
// eye-center; the usable range is roughly [-1, 1] per axis.
type Vector struct {
	H float64 `json:"h"`
	V float64 `json:"v"`
}

// Slice returns the vector components for the smoothing filter.
func (v Vector) Slice() []float64 {
	return []float64{v.H, v.V}
}

// FromSlice rebuilds a Vector from a filter output slice.
func FromSlice(s []float64) Vector {
	return Vector{H: s[0], V: s[1]}
}

// IrisPosition is an iris center in pixel coordinates, kept for overlay
// rendering by the presentation layer.
type IrisPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Estimate is the per-frame gaze output.
type Estimate struct {
	Vector    Vector
	LeftIris  IrisPosition
	RightIris IrisPosition
}

// Estimator computes gaze vectors from landmark sets.
// It is stateless and safe for concurrent use.
type Estimator struct {
	scheme landmark.Scheme
}

// NewEstimator creates an estimator resolving points through the scheme.
func NewEstimator(scheme landmark.Scheme) *Estimator {
	return &Estimator{scheme: scheme}
}

// Estimate computes the gaze vector for one frame's landmarks.
// Both eyes must yield a usable region; a single degenerate eye fails the
// whole frame so the pipeline treats it as "no gaze".
func (e *Estimator) Estimate(set *landmark.Set) (Estimate, error) {
	left, leftIris, err := e.eyeVector(set, landmark.LeftEye)
	if err != nil {
		return Estimate{}, err
	}
	right, rightIris, err := e.eyeVector(set, landmark.RightEye)
	if err != nil {
		return Estimate{}, err
	}

	return Estimate{
		Vector: Vector{
			H: (left.H + right.H) / 2,
			V: (left.V + right.V) / 2,
		},
		LeftIris:  leftIris,
		RightIris: rightIris,
	}, nil
}

// eyeVector normalizes the iris center within the eye's bounding region:
// corners give the horizontal extent, lids the vertical extent.
func (e *Estimator) eyeVector(set *landmark.Set, eye landmark.Eye) (Vector, IrisPosition, error) {
	var outerF, innerF, topF, bottomF landmark.Feature
	if eye == landmark.LeftEye {
		outerF, innerF = landmark.LeftEyeOuter, landmark.LeftEyeInner
		topF, bottomF = landmark.LeftEyeTop, landmark.LeftEyeBottom
	} else {
		outerF, innerF = landmark.RightEyeOuter, landmark.RightEyeInner
		topF, bottomF = landmark.RightEyeTop, landmark.RightEyeBottom
	}

	outer, err := pixel(e.scheme, set, outerF)
	if err != nil {
		return Vector{}, IrisPosition{}, err
	}
	inner, err := pixel(e.scheme, set, innerF)
	if err != nil {
		return Vector{}, IrisPosition{}, err
	}
	top, err := pixel(e.scheme, set, topF)
	if err != nil {
		return Vector{}, IrisPosition{}, err
	}
	bottom, err := pixel(e.scheme, set, bottomF)
	if err != nil {
		return Vector{}, IrisPosition{}, err
	}

	iris, err := irisCenter(e.scheme, set, eye)
	if err != nil {
		return Vector{}, IrisPosition{}, err
	}

	width := dist(outer, inner)
	height := bottom[1] - top[1]
	if height < 0 {
		height = -height
	}
	if width < minEyeExtent || height < minEyeExtent {
		return Vector{}, IrisPosition{}, fmt.Errorf("%w: %.2fx%.2fpx", ErrDegenerate, width, height)
	}

	refX := (outer[0] + inner[0]) / 2
	refY := (top[1] + bottom[1]) / 2

	return Vector{
		H: (iris.X - refX) / width,
		V: (iris.Y - refY) / height,
	}, iris, nil
}

// irisCenter is the centroid of the eye's iris landmarks in pixels.
func irisCenter(scheme landmark.Scheme, set *landmark.Set, eye landmark.Eye) (IrisPosition, error) {
	indices := scheme.Iris(eye)
	if len(indices) == 0 {
		return IrisPosition{}, fmt.Errorf("%w: scheme %q has no iris points", ErrMissingLandmarks, scheme.Name())
	}

	var cx, cy float64
	for _, idx := range indices {
		x, y := set.Pixel(idx)
		cx += x
		cy += y
	}
	n := float64(len(indices))
	return IrisPosition{X: cx / n, Y: cy / n}, nil
}

func pixel(scheme landmark.Scheme, set *landmark.Set, f landmark.Feature) ([2]float64, error) {
	idx, ok := scheme.Index(f)
	if !ok {
		return [2]float64{}, fmt.Errorf("%w: scheme %q lacks feature %d", ErrMissingLandmarks, scheme.Name(), f)
	}
	x, y := set.Pixel(idx)
	return [2]float64{x, y}, nil
}

func dist(a, b [2]float64) float64 {
	return math.Hypot(a[0]-b[0], a[1]-b[1])
}
