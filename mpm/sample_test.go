package mpm

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleBoxPlacesParticlesInRegion(t *testing.T) {
	region := Region{X0: 0.2, X1: 0.6, Y0: 0.25, Y1: 0.5}
	ps, err := SampleBox(region, 4096, rand.New(rand.NewSource(1)), Vec2{0, -1}, 1)
	require.NoError(t, err)
	require.Equal(t, 4096, ps.Len())

	for i := 0; i < ps.Len(); i++ {
		x := ps.X[i]
		require.True(t, x[0] >= region.X0 && x[0] < region.X1, "particle %d x=%v", i, x)
		require.True(t, x[1] >= region.Y0 && x[1] < region.Y1, "particle %d y=%v", i, x)
		require.Equal(t, Vec2{0, -1}, ps.V[i])
		require.Equal(t, 1.0, ps.J[i])
		require.Equal(t, Mat2{}, ps.C[i])
	}
}

func TestSampleBoxSeeded(t *testing.T) {
	region := Region{0.2, 0.6, 0.2, 0.6}
	a, err := SampleBox(region, 100, rand.New(rand.NewSource(5)), Vec2{}, 1)
	require.NoError(t, err)
	b, err := SampleBox(region, 100, rand.New(rand.NewSource(5)), Vec2{}, 1)
	require.NoError(t, err)
	c, err := SampleBox(region, 100, rand.New(rand.NewSource(6)), Vec2{}, 1)
	require.NoError(t, err)

	assert.Equal(t, a.X, b.X)
	assert.NotEqual(t, a.X, c.X)
}

func TestSampleBoxErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	good := Region{0, 1, 0, 1}

	_, err := SampleBox(good, 0, rng, Vec2{}, 1)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = SampleBox(good, -3, rng, Vec2{}, 1)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = SampleBox(Region{0.5, 0.5, 0, 1}, 10, rng, Vec2{}, 1)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = SampleBox(Region{0, 1, 0.7, 0.2}, 10, rng, Vec2{}, 1)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = SampleBox(good, 10, nil, Vec2{}, 1)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRestoreParticles(t *testing.T) {
	x := []Vec2{{0.1, 0.2}, {0.3, 0.4}}
	v := []Vec2{{1, 0}, {0, 1}}
	j := []float64{1, 0.9}
	c := []Mat2{{}, {{1, 0}, {0, 1}}}

	ps, err := RestoreParticles(x, v, j, c)
	require.NoError(t, err)
	assert.Equal(t, 2, ps.Len())
	assert.Equal(t, x, ps.X)
	assert.Equal(t, c, ps.C)

	// Copies, not aliases.
	x[0] = Vec2{9, 9}
	assert.Equal(t, Vec2{0.1, 0.2}, ps.X[0])

	_, err = RestoreParticles(x, v[:1], j, c)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = RestoreParticles(nil, nil, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestPositionsCopy(t *testing.T) {
	ps := NewParticleSet(3)
	ps.X[1] = Vec2{0.5, 0.25}

	buf := ps.Positions(nil)
	require.Len(t, buf, 3)
	assert.Equal(t, Vec2{0.5, 0.25}, buf[1])

	buf[1] = Vec2{}
	assert.Equal(t, Vec2{0.5, 0.25}, ps.X[1], "Positions must not alias particle storage")

	reused := ps.Positions(buf)
	assert.Equal(t, &buf[0], &reused[0], "buffer with enough capacity is reused")
}

func TestMat2Helpers(t *testing.T) {
	m := Outer(Vec2{1, 2}, Vec2{3, 4})
	assert.Equal(t, Mat2{{3, 4}, {6, 8}}, m)
	assert.Equal(t, 11.0, m.Trace())
	assert.Equal(t, Mat2{{6, 8}, {12, 16}}, m.Add(m))
	assert.Equal(t, Mat2{{1.5, 2}, {3, 4}}, m.Scale(0.5))
	assert.Equal(t, 11.0, Vec2{1, 2}.Dot(Vec2{3, 4}))
}
