package pose

import (
	"errors"
	"math"
	"testing"

	"github.com/focuswatch/go-focuswatch/pkg/landmark"
)

const (
	frameW = 640
	frameH = 480
)

// composeRotation builds R = Rz(roll) * Ry(yaw) * Rx(pitch), the inverse of
// the decomposition anglesFromRotation performs. Inputs in degrees.
func composeRotation(yaw, pitch, roll float64) [3][3]float64 {
	y := yaw * math.Pi / 180
	p := pitch * math.Pi / 180
	r := roll * math.Pi / 180

	cy, sy := math.Cos(y), math.Sin(y)
	cp, sp := math.Cos(p), math.Sin(p)
	cr, sr := math.Cos(r), math.Sin(r)

	rz := [3][3]float64{{cr, -sr, 0}, {sr, cr, 0}, {0, 0, 1}}
	ry := [3][3]float64{{cy, 0, sy}, {0, 1, 0}, {-sy, 0, cy}}
	rx := [3][3]float64{{1, 0, 0}, {0, cp, -sp}, {0, sp, cp}}

	return matMul(rz, matMul(ry, rx))
}

func matMul(a, b [3][3]float64) [3][3]float64 {
	var out [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				out[i][j] += a[i][k] * b[k][j]
			}
		}
	}
	return out
}

// synthSet projects the reference face under the given rotation and
// translation into a FaceMesh landmark set.
func synthSet(t *testing.T, rot [3][3]float64, tvec [3]float64) *landmark.Set {
	t.Helper()

	scheme := landmark.FaceMesh()
	points := make([]landmark.Point, scheme.Count())

	fx := float64(frameW)
	cx, cy := float64(frameW)/2, float64(frameH)/2

	for _, rp := range referenceFace {
		idx, ok := scheme.Index(rp.feature)
		if !ok {
			t.Fatalf("scheme lacks feature %d", rp.feature)
		}
		p := rp.model
		x := rot[0][0]*p[0] + rot[0][1]*p[1] + rot[0][2]*p[2] + tvec[0]
		y := rot[1][0]*p[0] + rot[1][1]*p[1] + rot[1][2]*p[2] + tvec[1]
		z := rot[2][0]*p[0] + rot[2][1]*p[1] + rot[2][2]*p[2] + tvec[2]
		if z <= 0 {
			t.Fatalf("synthetic point behind camera (z=%v)", z)
		}
		u := fx*x/z + cx
		v := fx*y/z + cy
		points[idx] = landmark.Point{X: u / frameW, Y: v / frameH}
	}

	set, err := landmark.NewSet(points, scheme, frameW, frameH)
	if err != nil {
		t.Fatal(err)
	}
	return set
}

func TestAnglesFromRotation_RoundTrip(t *testing.T) {
	cases := []Angles{
		{Yaw: 0, Pitch: 0, Roll: 0},
		{Yaw: 15, Pitch: -10, Roll: 5},
		{Yaw: -45, Pitch: 25, Roll: -12},
		{Yaw: 60, Pitch: -50, Roll: 30},
	}
	for _, want := range cases {
		got := anglesFromRotation(composeRotation(want.Yaw, want.Pitch, want.Roll))
		if math.Abs(got.Yaw-want.Yaw) > 1e-9 ||
			math.Abs(got.Pitch-want.Pitch) > 1e-9 ||
			math.Abs(got.Roll-want.Roll) > 1e-9 {
			t.Errorf("round trip %+v -> %+v", want, got)
		}
	}
}

func TestEstimator_RecoversSyntheticPose(t *testing.T) {
	est := NewEstimator(landmark.FaceMesh())

	cases := []struct {
		name string
		want Angles
		tvec [3]float64
	}{
		{"frontal", Angles{0, 0, 0}, [3]float64{0, 0, 600}},
		{"turned", Angles{15, -10, 5}, [3]float64{20, -10, 550}},
		{"extreme", Angles{-40, 20, -8}, [3]float64{-30, 15, 700}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			set := synthSet(t, composeRotation(tc.want.Yaw, tc.want.Pitch, tc.want.Roll), tc.tvec)

			got, err := est.Estimate(set)
			if err != nil {
				t.Fatalf("Estimate: %v", err)
			}

			const tol = 0.5 // degrees
			if math.Abs(got.Yaw-tc.want.Yaw) > tol {
				t.Errorf("yaw: want %v, got %v", tc.want.Yaw, got.Yaw)
			}
			if math.Abs(got.Pitch-tc.want.Pitch) > tol {
				t.Errorf("pitch: want %v, got %v", tc.want.Pitch, got.Pitch)
			}
			if math.Abs(got.Roll-tc.want.Roll) > tol {
				t.Errorf("roll: want %v, got %v", tc.want.Roll, got.Roll)
			}
		})
	}
}

func TestEstimator_CollinearPointsFail(t *testing.T) {
	scheme := landmark.FaceMesh()
	points := make([]landmark.Point, scheme.Count())

	// Place every reference feature on a horizontal line.
	for i, rp := range referenceFace {
		idx, _ := scheme.Index(rp.feature)
		points[idx] = landmark.Point{X: 0.2 + 0.1*float64(i), Y: 0.5}
	}

	set, err := landmark.NewSet(points, scheme, frameW, frameH)
	if err != nil {
		t.Fatal(err)
	}

	est := NewEstimator(scheme)
	if _, err := est.Estimate(set); !errors.Is(err, ErrDegenerate) {
		t.Errorf("expected ErrDegenerate, got %v", err)
	}
}

func TestEstimator_CoincidentPointsFail(t *testing.T) {
	scheme := landmark.FaceMesh()
	points := make([]landmark.Point, scheme.Count())

	// All reference features collapse onto a single point.
	for _, rp := range referenceFace {
		idx, _ := scheme.Index(rp.feature)
		points[idx] = landmark.Point{X: 0.5, Y: 0.5}
	}

	set, err := landmark.NewSet(points, scheme, frameW, frameH)
	if err != nil {
		t.Fatal(err)
	}

	est := NewEstimator(scheme)
	if _, err := est.Estimate(set); !errors.Is(err, ErrDegenerate) {
		t.Errorf("expected ErrDegenerate, got %v", err)
	}
}

func TestSolvePnP_TooFewPoints(t *testing.T) {
	obj := [][3]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	img := [][2]float64{{100, 100}, {200, 100}, {100, 200}}

	if _, _, err := solvePnP(obj, img, 640, 640, 320, 240); !errors.Is(err, ErrDegenerate) {
		t.Errorf("expected ErrDegenerate for 3 points, got %v", err)
	}
}
