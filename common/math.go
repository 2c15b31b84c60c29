package common

import "github.com/go-gl/mathgl/mgl64"

// SquaredLength returns |v|², the distance metric used to order descriptors.
func SquaredLength(v mgl64.Vec3) float64 {
	return v.Dot(v)
}

// ScaleOrOne treats zero scale components as identity, the way authored
// descriptors leave scale unset.
func ScaleOrOne(s mgl64.Vec3) mgl64.Vec3 {
	for i := range s {
		if s[i] == 0 {
			s[i] = 1
		}
	}
	return s
}
