package camera

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentityRotationLeavesVectorUnchanged(t *testing.T) {
	v := identityQuaternion.rotate(vec3{X: 1, Y: 2, Z: 3})
	assert.InDelta(t, 1.0, v.X, 1e-9)
	assert.InDelta(t, 2.0, v.Y, 1e-9)
	assert.InDelta(t, 3.0, v.Z, 1e-9)
}

func TestQuarterTurnAroundZRotatesXToY(t *testing.T) {
	q := fromAxisAngle(axisZ, 90)
	v := q.rotate(axisX)
	assert.InDelta(t, 0, v.X, 1e-9)
	assert.InDelta(t, 1, v.Y, 1e-9)
	assert.InDelta(t, 0, v.Z, 1e-9)
}

func TestAngleDegreesBetweenPerpendicularVectorsIs90(t *testing.T) {
	assert.InDelta(t, 90.0, angleDegrees(axisX, axisY), 1e-9)
}

func TestAngleDegreesSafeOnZeroVector(t *testing.T) {
	assert.Equal(t, 0.0, angleDegrees(vec3{}, axisY))
}

func TestUnitVectorSafeOnZero(t *testing.T) {
	assert.Equal(t, vec3{}, vec3{}.unit())
}

func TestNormalizedRecoversUnitQuaternionFromDrift(t *testing.T) {
	q := quaternion{W: 2, X: 0, Y: 0, Z: 0}.normalized()
	assert.InDelta(t, 1.0, q.norm(), 1e-9)
}

func TestCrossProductOfXAndYIsZ(t *testing.T) {
	v := axisX.cross(axisY)
	assert.InDelta(t, 1, v.Z, 1e-9)
	assert.InDelta(t, 0, v.X, 1e-9)
	assert.InDelta(t, 0, v.Y, 1e-9)
}

func TestFromAxisAngleFullTurnIsIdentity(t *testing.T) {
	q := fromAxisAngle(axisY, 360).normalized()
	assert.InDelta(t, 1.0, math.Abs(q.W), 1e-9)
}
