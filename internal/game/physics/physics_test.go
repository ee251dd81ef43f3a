package physics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVec3(t *testing.T) {
	a := V3(1, 2, 2)
	assert.Equal(t, 3.0, a.Length())
	assert.Equal(t, 9.0, a.Dot(a))
	assert.Equal(t, V3(2, 4, 4), a.Scale(2))
	assert.Equal(t, V3(0, 0, 0), a.Sub(a))
	assert.Equal(t, V3(2, 3, 3), a.Add(V3(1, 1, 1)))
	assert.InDelta(t, 1.0, a.Normalize().Length(), 1e-9)
	assert.Equal(t, Vec3{}, Vec3{}.Normalize())
	assert.Equal(t, V3(0.5, 1, 1), Vec3{}.Lerp(a, 0.5))
	assert.Equal(t, 3.0, Distance(Vec3{}, a))
	assert.True(t, Within(Vec3{}, a, 3))
	assert.False(t, Within(Vec3{}, a, 2.9))
}
