package logx

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelsFilter(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(WarnLevel)
	t.Cleanup(func() { SetLevel(InfoLevel) })

	Info("[climate] hidden %d", 1)
	Warn("[climate] shown %d", 2)
	Error("[irlink] shown %s", "too")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] [climate] shown 2")
	assert.Contains(t, out, "[ERROR] [irlink] shown too")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, WarnLevel, ParseLevel("warning"))
	assert.Equal(t, OffLevel, ParseLevel("off"))
	assert.Equal(t, InfoLevel, ParseLevel("chatty"))
}
