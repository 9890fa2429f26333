package pose

import "math"

// rotationFromVector converts an axis-angle rotation vector to a rotation
// matrix (Rodrigues' formula).
func rotationFromVector(r [3]float64) [3][3]float64 {
	theta := math.Sqrt(r[0]*r[0] + r[1]*r[1] + r[2]*r[2])
	if theta < 1e-12 {
		return [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	}

	kx, ky, kz := r[0]/theta, r[1]/theta, r[2]/theta
	c := math.Cos(theta)
	s := math.Sin(theta)
	t := 1 - c

	return [3][3]float64{
		{c + kx*kx*t, kx*ky*t - kz*s, kx*kz*t + ky*s},
		{ky*kx*t + kz*s, c + ky*ky*t, ky*kz*t - kx*s},
		{kz*kx*t - ky*s, kz*ky*t + kx*s, c + kz*kz*t},
	}
}

// anglesFromRotation extracts yaw/pitch/roll in degrees from a rotation
// matrix using the ZYX decomposition. Yaw is the rotation about the
// vertical image axis, pitch about the horizontal axis, roll in-plane.
// Continuous and singularity-free for |yaw| < 90°.
func anglesFromRotation(r [3][3]float64) Angles {
	sy := math.Hypot(r[0][0], r[1][0])

	var yaw, pitch, roll float64
	if sy > 1e-6 {
		pitch = math.Atan2(r[2][1], r[2][2])
		yaw = math.Atan2(-r[2][0], sy)
		roll = math.Atan2(r[1][0], r[0][0])
	} else {
		pitch = math.Atan2(-r[1][2], r[1][1])
		yaw = math.Atan2(-r[2][0], sy)
		roll = 0
	}

	const toDeg = 180 / math.Pi
	return Angles{Yaw: yaw * toDeg, Pitch: pitch * toDeg, Roll: roll * toDeg}
}
