package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestEncodeCommand(t *testing.T) {
	out := run(t, "encode", "--mode", "cool", "--fan", "auto", "--temp", "24")
	assert.Contains(t, out, "bytes:  16 12 00 00 00 00 24 CC")
	assert.Contains(t, out, "pulses: 4652, -2408, ")
}

func TestDecodeCommand(t *testing.T) {
	out := run(t, "decode", "--hex", "16 12 00 00 00 00 24 CC")
	assert.Contains(t, out, `"mode": "cool"`)
	assert.Contains(t, out, `"target_temperature": 24`)

	enc := run(t, "encode", "--mode", "dry", "--fan", "speed3", "--temp", "19")
	pulses := strings.TrimSpace(strings.SplitN(enc, "pulses: ", 2)[1])
	out = run(t, "decode", "--hex", "", pulses)
	assert.Contains(t, out, `"mode": "dry"`)
	assert.Contains(t, out, `"fan_mode": "speed3"`)
}

func TestParsePulses(t *testing.T) {
	got, err := parsePulses("1, -2\t3")
	require.NoError(t, err)
	assert.Len(t, got, 3)

	_, err = parsePulses("")
	assert.Error(t, err)
	_, err = parsePulses("1, x")
	assert.Error(t, err)
}
