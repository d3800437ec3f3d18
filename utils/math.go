package utils

import "math"

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// Square returns n*n.
func Square(n float64) float64 {
	return n * n
}

// FloorToMultiple floors v to the nearest multiple of m that is not greater than v.
func FloorToMultiple(v float64, m int) int {
	return int(math.Floor(v/float64(m))) * m
}

// ClampUint8 rounds and clamps v into [0, 255].
func ClampUint8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v + 0.5)
}
