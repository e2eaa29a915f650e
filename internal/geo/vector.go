// Package geo holds the spatial value types shared by the capture
// pipeline: single-precision 3D vectors and quaternions, plus distance
// helpers. All types are immutable values.
package geo

import "math"

// Vector3 is a point or offset in world coordinates, in meters.
type Vector3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// Zero is the world origin fallback used before calibration.
var Zero = Vector3{}

// Add returns the componentwise sum v + o.
func (v Vector3) Add(o Vector3) Vector3 {
	return Vector3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub returns the componentwise difference v - o.
func (v Vector3) Sub(o Vector3) Vector3 {
	return Vector3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// DistanceTo returns the Euclidean distance between v and o.
func (v Vector3) DistanceTo(o Vector3) float32 {
	dx := float64(v.X - o.X)
	dy := float64(v.Y - o.Y)
	dz := float64(v.Z - o.Z)
	return float32(math.Sqrt(dx*dx + dy*dy + dz*dz))
}

// Quaternion is a rotation. It is recorded for calibration context but
// never composed algebraically in this core.
type Quaternion struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
	W float32 `json:"w"`
}

// Identity is the no-rotation quaternion.
var Identity = Quaternion{W: 1}
