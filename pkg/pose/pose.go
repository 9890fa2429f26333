// Package pose estimates head orientation from facial landmarks.
//
// A fixed six-point 3D reference face (nose tip, chin, eye corners, mouth
// corners, in arbitrary model units) is matched against the corresponding
// 2D image landmarks, and the rotation explaining the projection is
// recovered with an iterative perspective-n-point solve. The rotation is
// reported as yaw/pitch/roll in degrees, continuous across the expected
// ±60° operating range.
package pose

import (
	"errors"
	"fmt"
	"math"

	"github.com/focuswatch/go-focuswatch/pkg/landmark"
)

var (
	// ErrDegenerate is returned when the landmark geometry cannot support
	// a pose solve (too few distinct points, near-collinear layout).
	ErrDegenerate = errors.New("pose: degenerate landmark geometry")

	// ErrNoConvergence is returned when the solver fails to converge to a
	// plausible pose.
	ErrNoConvergence = errors.New("pose: solver did not converge")
)

// Angles is a head orientation in degrees.
// Yaw is left/right turn, pitch is up/down tilt, roll is in-plane rotation.
type Angles struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
}

// Vector returns the angles as a slice for the smoothing filter.
func (a Angles) Vector() []float64 {
	return []float64{a.Yaw, a.Pitch, a.Roll}
}

// FromVector rebuilds Angles from a filter output slice.
func FromVector(v []float64) Angles {
	return Angles{Yaw: v[0], Pitch: v[1], Roll: v[2]}
}

// refPoint pairs a named landmark with its 3D position on the reference
// face. Units are millimetre-scale model units with the nose tip at the
// origin; the values are the widely used hand-tuned anthropometric set.
type refPoint struct {
	feature landmark.Feature
	model   [3]float64
}

var referenceFace = []refPoint{
	{landmark.NoseTip, [3]float64{0.0, 0.0, 0.0}},
	{landmark.Chin, [3]float64{0.0, -63.6, -12.5}},
	{landmark.RightEyeOuter, [3]float64{-43.3, 32.7, -26.0}},
	{landmark.LeftEyeOuter, [3]float64{43.3, 32.7, -26.0}},
	{landmark.MouthRight, [3]float64{-28.9, -28.9, -24.1}},
	{landmark.MouthLeft, [3]float64{28.9, -28.9, -24.1}},
}

// Estimator recovers head orientation from landmark sets.
// It is stateless and safe for concurrent use.
type Estimator struct {
	scheme landmark.Scheme
}

// NewEstimator creates an estimator resolving points through the scheme.
func NewEstimator(scheme landmark.Scheme) *Estimator {
	return &Estimator{scheme: scheme}
}

// Estimate computes head orientation for one frame's landmarks.
// Camera intrinsics are approximated from the frame size: focal length =
// frame width, principal point = frame center.
func (e *Estimator) Estimate(set *landmark.Set) (Angles, error) {
	obj := make([][3]float64, 0, len(referenceFace))
	img := make([][2]float64, 0, len(referenceFace))

	for _, rp := range referenceFace {
		idx, ok := e.scheme.Index(rp.feature)
		if !ok {
			return Angles{}, fmt.Errorf("%w: scheme %q lacks feature %d",
				ErrDegenerate, e.scheme.Name(), rp.feature)
		}
		x, y := set.Pixel(idx)
		obj = append(obj, rp.model)
		img = append(img, [2]float64{x, y})
	}

	if err := checkGeometry(img); err != nil {
		return Angles{}, err
	}

	w := float64(set.FrameWidth())
	h := float64(set.FrameHeight())
	fx, fy := w, w
	cx, cy := w/2, h/2

	rvec, _, err := solvePnP(obj, img, fx, fy, cx, cy)
	if err != nil {
		return Angles{}, err
	}

	return anglesFromRotation(rotationFromVector(rvec)), nil
}

// checkGeometry rejects correspondence sets the solver cannot handle:
// fewer than 4 distinct points, or points that are nearly collinear.
func checkGeometry(img [][2]float64) error {
	distinct := 0
	for i := range img {
		unique := true
		for j := 0; j < i; j++ {
			dx := img[i][0] - img[j][0]
			dy := img[i][1] - img[j][1]
			if dx*dx+dy*dy < 1e-6 {
				unique = false
				break
			}
		}
		if unique {
			distinct++
		}
	}
	if distinct < 4 {
		return fmt.Errorf("%w: only %d distinct points", ErrDegenerate, distinct)
	}

	// Principal-axis spread: if the points collapse onto a line the minor
	// axis variance vanishes.
	var mx, my float64
	for _, p := range img {
		mx += p[0]
		my += p[1]
	}
	n := float64(len(img))
	mx /= n
	my /= n

	var sxx, syy, sxy float64
	for _, p := range img {
		dx, dy := p[0]-mx, p[1]-my
		sxx += dx * dx
		syy += dy * dy
		sxy += dx * dy
	}
	tr := sxx + syy
	det := sxx*syy - sxy*sxy
	disc := math.Sqrt(math.Max(0, tr*tr/4-det))
	minorVar := tr/2 - disc
	if minorVar < 1.0 {
		return fmt.Errorf("%w: near-collinear points", ErrDegenerate)
	}
	return nil
}
