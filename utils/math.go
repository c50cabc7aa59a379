package utils

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// QuatToEuler returns roll, pitch and yaw in radians.
func QuatToEuler(q mgl64.Quat) (e mgl64.Vec3) {
	sinrCosp := 2 * (q.W*q.X() + q.Y()*q.Z())
	cosrCosp := 1 - 2*(q.X()*q.X()+q.Y()*q.Y())
	e[0] = math.Atan2(sinrCosp, cosrCosp)

	sinp := 2 * (q.W*q.Y() - q.Z()*q.X())
	if math.Abs(sinp) >= 1 {
		e[1] = math.Copysign(math.Pi/2, sinp)
	} else {
		e[1] = math.Asin(sinp)
	}

	sinyCosp := 2 * (q.W*q.Z() + q.X()*q.Y())
	cosyCosp := 1 - 2*(q.Y()*q.Y()+q.Z()*q.Z())
	e[2] = math.Atan2(sinyCosp, cosyCosp)
	return e
}

func RadiansToDegreeV3(v mgl64.Vec3) mgl64.Vec3 {
	return v.Mul(180 / math.Pi)
}
