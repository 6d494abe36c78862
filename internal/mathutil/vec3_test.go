package mathutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVec3(t *testing.T) {
	a := Vec3{1, 2, 3}
	b := Vec3{4, 5, 6}

	assert.Equal(t, Vec3{5, 7, 9}, a.Add(b))
	assert.Equal(t, Vec3{3, 3, 3}, b.Sub(a))
	assert.Equal(t, Vec3{2, 4, 6}, a.Scale(2))
	assert.Equal(t, float32(32), a.Dot(b))
	assert.Equal(t, float32(5), Vec3{3, 4, 0}.Len())
}

func TestNormalize(t *testing.T) {
	assert.InDelta(t, 1.0, float64(Vec3{0, 3, 4}.Normalize().Len()), 1e-6)
	assert.True(t, Vec3{}.Normalize().IsZero())
	assert.Equal(t, AxisX, Vec3{7, 0, 0}.Normalize())
}
