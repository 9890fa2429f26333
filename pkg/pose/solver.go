package pose

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	maxIterations = 100
	costTolerance = 1e-12
	maxLambda     = 1e9
	// maxReprojRMS bounds the accepted reprojection error in pixels. Real
	// faces never fit the rigid reference model exactly, so this is loose.
	maxReprojRMS = 12.0
)

// solvePnP recovers the rotation vector and translation that project the
// 3D object points onto the observed image points under a pinhole camera.
// Levenberg-Marquardt on the reprojection residual, with a translation
// initialization from the apparent scale of the point cloud.
func solvePnP(obj [][3]float64, img [][2]float64, fx, fy, cx, cy float64) (rvec, tvec [3]float64, err error) {
	n := len(obj)
	if n < 4 || len(img) != n {
		return rvec, tvec, fmt.Errorf("%w: %d correspondences", ErrDegenerate, n)
	}

	params := initialGuess(obj, img, fx, cx, cy)

	res := make([]float64, 2*n)
	trial := make([]float64, 2*n)
	if !reproject(obj, img, fx, fy, cx, cy, params, res) {
		return rvec, tvec, ErrNoConvergence
	}
	cost := sumSquares(res)

	lambda := 1e-3
	jac := mat.NewDense(2*n, 6, nil)
	converged := false

	for iter := 0; iter < maxIterations; iter++ {
		numericJacobian(obj, img, fx, fy, cx, cy, params, res, jac)

		var jtj mat.SymDense
		jtj.SymOuterK(1, jac.T())
		jtr := mat.NewVecDense(6, nil)
		jtr.MulVec(jac.T(), mat.NewVecDense(2*n, res))

		accepted := false
		for attempt := 0; attempt < 30; attempt++ {
			damped := mat.NewSymDense(6, nil)
			for i := 0; i < 6; i++ {
				for j := i; j < 6; j++ {
					v := jtj.At(i, j)
					if i == j {
						v *= 1 + lambda
						if v < 1e-12 {
							v = 1e-12
						}
					}
					damped.SetSym(i, j, v)
				}
			}

			var chol mat.Cholesky
			if !chol.Factorize(damped) {
				lambda *= 4
				if lambda > maxLambda {
					break
				}
				continue
			}
			var delta mat.VecDense
			if err := chol.SolveVecTo(&delta, jtr); err != nil {
				lambda *= 4
				continue
			}

			var candidate [6]float64
			for i := 0; i < 6; i++ {
				candidate[i] = params[i] - delta.AtVec(i)
			}
			if !reproject(obj, img, fx, fy, cx, cy, candidate, trial) {
				lambda *= 4
				continue
			}
			trialCost := sumSquares(trial)
			if math.IsNaN(trialCost) || trialCost >= cost {
				lambda *= 4
				if lambda > maxLambda {
					break
				}
				continue
			}

			improvement := cost - trialCost
			params = candidate
			copy(res, trial)
			cost = trialCost
			lambda = math.Max(lambda/3, 1e-12)
			accepted = true
			if improvement < costTolerance*(cost+costTolerance) {
				converged = true
			}
			break
		}

		if !accepted || converged {
			if accepted {
				converged = true
			}
			break
		}
	}

	rms := math.Sqrt(cost / float64(2*n))
	if math.IsNaN(rms) || rms > maxReprojRMS {
		return rvec, tvec, fmt.Errorf("%w: reprojection RMS %.2fpx", ErrNoConvergence, rms)
	}

	rvec = [3]float64{params[0], params[1], params[2]}
	tvec = [3]float64{params[3], params[4], params[5]}
	return rvec, tvec, nil
}

// initialGuess seeds the solver with an identity rotation and a translation
// that places the object centroid behind the observed centroid at a depth
// matching the apparent scale.
func initialGuess(obj [][3]float64, img [][2]float64, fx, cx, cy float64) [6]float64 {
	var oc [3]float64
	var icx, icy float64
	for i := range obj {
		oc[0] += obj[i][0]
		oc[1] += obj[i][1]
		oc[2] += obj[i][2]
		icx += img[i][0]
		icy += img[i][1]
	}
	n := float64(len(obj))
	oc[0] /= n
	oc[1] /= n
	oc[2] /= n
	icx /= n
	icy /= n

	objSpan := span3(obj, oc)
	imgSpan := span2(img, icx, icy)
	tz := 600.0
	if imgSpan > 1e-6 {
		tz = fx * objSpan / imgSpan
	}
	tz = math.Min(math.Max(tz, 10), 1e5)

	tx := (icx-cx)*(oc[2]+tz)/fx - oc[0]
	ty := (icy-cy)*(oc[2]+tz)/fx - oc[1]

	return [6]float64{0, 0, 0, tx, ty, tz}
}

func span3(pts [][3]float64, c [3]float64) float64 {
	var s float64
	for _, p := range pts {
		dx, dy := p[0]-c[0], p[1]-c[1]
		d := math.Sqrt(dx*dx + dy*dy)
		if d > s {
			s = d
		}
	}
	return s
}

func span2(pts [][2]float64, cx, cy float64) float64 {
	var s float64
	for _, p := range pts {
		dx, dy := p[0]-cx, p[1]-cy
		d := math.Sqrt(dx*dx + dy*dy)
		if d > s {
			s = d
		}
	}
	return s
}

// reproject fills out with the per-point reprojection residuals for the
// given parameters. Returns false when a point lands behind the camera.
func reproject(obj [][3]float64, img [][2]float64, fx, fy, cx, cy float64, params [6]float64, out []float64) bool {
	r := rotationFromVector([3]float64{params[0], params[1], params[2]})
	tx, ty, tz := params[3], params[4], params[5]

	for i := range obj {
		p := obj[i]
		x := r[0][0]*p[0] + r[0][1]*p[1] + r[0][2]*p[2] + tx
		y := r[1][0]*p[0] + r[1][1]*p[1] + r[1][2]*p[2] + ty
		z := r[2][0]*p[0] + r[2][1]*p[1] + r[2][2]*p[2] + tz
		if z < 1e-6 {
			return false
		}
		u := fx*x/z + cx
		v := fy*y/z + cy
		out[2*i] = u - img[i][0]
		out[2*i+1] = v - img[i][1]
	}
	return true
}

// numericJacobian computes the residual Jacobian by forward differences.
// base holds the residuals at params and is left untouched.
func numericJacobian(obj [][3]float64, img [][2]float64, fx, fy, cx, cy float64, params [6]float64, base []float64, jac *mat.Dense) {
	perturbed := make([]float64, len(base))
	for j := 0; j < 6; j++ {
		eps := 1e-6 * math.Max(1, math.Abs(params[j]))
		p := params
		p[j] += eps
		if !reproject(obj, img, fx, fy, cx, cy, p, perturbed) {
			// Fall back to a backward step when the forward one is invalid.
			p[j] = params[j] - eps
			if !reproject(obj, img, fx, fy, cx, cy, p, perturbed) {
				for i := range base {
					jac.Set(i, j, 0)
				}
				continue
			}
			for i := range base {
				jac.Set(i, j, (base[i]-perturbed[i])/eps)
			}
			continue
		}
		for i := range base {
			jac.Set(i, j, (perturbed[i]-base[i])/eps)
		}
	}
}

func sumSquares(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}
	return s
}
