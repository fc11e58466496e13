package mathx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 16.0, Clamp(3.0, 16, 30))
	assert.Equal(t, 30.0, Clamp(31.5, 16, 30))
	assert.Equal(t, 22, Clamp(22, 30, 16)) // swapped bounds
}

func TestSnapStep(t *testing.T) {
	assert.Equal(t, 24.0, SnapStep(24.4, 16, 1))
	assert.Equal(t, 25.0, SnapStep(24.5, 16, 1))
	assert.Equal(t, 18.0, SnapStep(18.9, 16, 2))
	assert.Equal(t, 7.3, SnapStep(7.3, 0, 0))
}

func TestWithinPct(t *testing.T) {
	assert.True(t, WithinPct[int32](1100, 944, 25))
	assert.False(t, WithinPct[int32](1300, 944, 25))
	assert.True(t, WithinPct[int32](-368, -368, 25))
	assert.True(t, WithinPct[int32](1, 0, 0)) // band never below one unit
}
