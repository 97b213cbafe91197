package l2frames

import "github.com/Lab-CORO/VR-Robotic-Manipulation/internal/cloud/l1records"

// Vector3 is a renderer-space position.
type Vector3 struct {
	X, Y, Z float32
}

// Color is an RGBA colour with channels in [0,1].
type Color struct {
	R, G, B, A float32
}

// White is the opaque default used when a layout has no rgb field.
var White = Color{R: 1, G: 1, B: 1, A: 1}

// RemapPosition converts sensor axes (x forward, y left, z up) into renderer
// axes (x right, y up, z forward): (x, y, z) -> (-y, z, x).
func RemapPosition(p l1records.PointRecord) Vector3 {
	return Vector3{X: -p.Y, Y: p.Z, Z: p.X}
}

// NormalizeColor maps stored bytes (blue, green, red) to an opaque Color.
func NormalizeColor(rgb [3]uint8) Color {
	return Color{
		R: float32(rgb[2]) / 255,
		G: float32(rgb[1]) / 255,
		B: float32(rgb[0]) / 255,
		A: 1,
	}
}
