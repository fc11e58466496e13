package errcode

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOf(t *testing.T) {
	assert.Equal(t, OK, Of(nil))
	assert.Equal(t, Truncated, Of(Truncated))
	assert.Equal(t, UnsupportedCommand, Of(New(UnsupportedCommand, "encode", "dry disabled")))
	assert.Equal(t, ChecksumMismatch, Of(fmt.Errorf("rx: %w", ChecksumMismatch)))
	assert.Equal(t, Error, Of(errors.New("boom")))
}

func TestE_ErrorAndIs(t *testing.T) {
	cause := errors.New("port closed")
	e := Wrap(TransmitFailed, "climate.set", cause)

	assert.Equal(t, "climate.set: transmit_failed: port closed", e.Error())
	assert.ErrorIs(t, e, TransmitFailed)
	assert.ErrorIs(t, e, cause)
	assert.NotErrorIs(t, e, Truncated)
}
