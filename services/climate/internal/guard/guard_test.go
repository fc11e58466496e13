package guard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

func ms(n int) time.Time { return t0.Add(time.Duration(n) * time.Millisecond) }

func TestWindow_EchoBoundary(t *testing.T) {
	w := New(500 * time.Millisecond)
	assert.True(t, w.ShouldAccept(t0), "closed window accepts")

	w.OnTransmit(t0)
	assert.False(t, w.ShouldAccept(ms(0)))
	assert.False(t, w.ShouldAccept(ms(499)))
	assert.True(t, w.ShouldAccept(ms(500)))
	assert.True(t, w.ShouldAccept(ms(501)))
}

func TestWindow_ResetsNotStacks(t *testing.T) {
	w := New(500 * time.Millisecond)
	w.OnTransmit(ms(0))
	w.OnTransmit(ms(300))

	assert.False(t, w.ShouldAccept(ms(799)))
	assert.True(t, w.ShouldAccept(ms(800)))
	_, until := w.Bounds()
	assert.Equal(t, ms(800), until)
}

func TestWindow_Expire(t *testing.T) {
	w := New(500 * time.Millisecond)
	w.OnTransmit(t0)

	assert.False(t, w.Expire(ms(100)))
	assert.True(t, w.Open(ms(100)))
	assert.True(t, w.Expire(ms(600)))
	assert.False(t, w.Open(ms(600)))
	assert.False(t, w.Expire(ms(700)), "already closed")
	assert.True(t, w.ShouldAccept(ms(100)), "closed window accepts any time")
}

func TestWindow_MinimumDuration(t *testing.T) {
	w := New(0)
	assert.Equal(t, time.Millisecond, w.Duration())
	w.OnTransmit(t0)
	assert.False(t, w.ShouldAccept(t0))
	assert.True(t, w.ShouldAccept(ms(1)))
}
