package utils

import (
	"bytes"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"golang.org/x/text/transform"

	"github.com/mogaika/skinpose/config"
)

// DecodeText converts bytes in the configured encoding to utf-8 and drops a
// byte order mark.
func DecodeText(bs []byte) (string, error) {
	bs = bytes.TrimPrefix(bs, []byte("\xef\xbb\xbf"))
	s, _, err := transform.Bytes(config.GetEncoding().NewDecoder(), bs)
	if err != nil {
		return "", errors.Wrapf(err, "Failed to decode text as %v", config.EncodingName())
	}
	return string(s), nil
}

func EncodeText(s string) ([]byte, error) {
	bs, _, err := transform.Bytes(config.GetEncoding().NewEncoder(), []byte(s))
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to encode text as %v", config.EncodingName())
	}
	return bs, nil
}

func Vec3From32(v [3]float32) mgl64.Vec3 {
	return mgl64.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}
}

func Vec3To32(v mgl64.Vec3) [3]float32 {
	return [3]float32{float32(v[0]), float32(v[1]), float32(v[2])}
}

// QuatFrom32 reads an x y z w quaternion.
func QuatFrom32(q [4]float32) mgl64.Quat {
	return mgl64.Quat{W: float64(q[3]), V: mgl64.Vec3{float64(q[0]), float64(q[1]), float64(q[2])}}
}

func QuatTo32(q mgl64.Quat) [4]float32 {
	return [4]float32{float32(q.V[0]), float32(q.V[1]), float32(q.V[2]), float32(q.W)}
}

// Mat4From32 reads a column-major matrix.
func Mat4From32(m [16]float32) mgl64.Mat4 {
	var r mgl64.Mat4
	for i := range m {
		r[i] = float64(m[i])
	}
	return r
}

func Mat4To32(m mgl64.Mat4) [16]float32 {
	var r [16]float32
	for i := range m {
		r[i] = float32(m[i])
	}
	return r
}

// Mat4To44 is the accessor layout of a matrix, four columns.
func Mat4To44(m mgl64.Mat4) [4][4]float32 {
	var r [4][4]float32
	for c := 0; c < 4; c++ {
		for row := 0; row < 4; row++ {
			r[c][row] = float32(m[c*4+row])
		}
	}
	return r
}

func Mat4From44(m [4][4]float32) mgl64.Mat4 {
	var r mgl64.Mat4
	for c := 0; c < 4; c++ {
		for row := 0; row < 4; row++ {
			r[c*4+row] = float64(m[c][row])
		}
	}
	return r
}
