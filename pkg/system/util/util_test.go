package util

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.23, Round2(1.2345))
	assert.Equal(t, 1.24, Round2(1.2351))
	assert.Equal(t, 0.0, Round2(0.001))
	assert.Equal(t, 12.0, Round2(12))
}

func TestFmtFloat(t *testing.T) {
	t.Run("plain", func(t *testing.T) {
		assert.Equal(t, "12.5", FmtFloat(12.5))
		assert.Equal(t, "0.0", FmtFloat(0))
		assert.Equal(t, "100.0", FmtFloat(100))
		assert.Equal(t, "-2.0", FmtFloat(-2))
	})
	t.Run("non_finite", func(t *testing.T) {
		assert.Equal(t, "0.0", FmtFloat(math.NaN()))
		assert.Equal(t, "0.0", FmtFloat(math.Inf(1)))
	})
}

func TestParseFloatOr(t *testing.T) {
	v, ok := ParseFloatOr("3.25", 0)
	require.True(t, ok)
	assert.Equal(t, 3.25, v)

	v, ok = ParseFloatOr("abc", 0)
	assert.False(t, ok)
	assert.Equal(t, 0.0, v)

	v, ok = ParseFloatOr("NaN", 0)
	assert.False(t, ok)
	assert.Equal(t, 0.0, v)

	v, ok = ParseFloatOr("", -1)
	assert.False(t, ok)
	assert.Equal(t, -1.0, v)
}

func TestSafeDiv(t *testing.T) {
	require.InDelta(t, 2.5, SafeDiv(5, 2), 1e-12)
	assert.Equal(t, 0.0, SafeDiv(123, 0))
	assert.Equal(t, 0.0, SafeDiv(1, 1e-13))
}

func TestClampPercent(t *testing.T) {
	assert.Equal(t, 0.0, ClampPercent(-3))
	assert.Equal(t, 100.0, ClampPercent(140))
	assert.Equal(t, 42.5, ClampPercent(42.5))
	assert.Equal(t, 0.0, ClampPercent(math.NaN()))
}
