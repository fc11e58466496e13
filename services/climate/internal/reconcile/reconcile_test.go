package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yorkir-go/drivers/york"
)

var t0 = time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

const window = 90 * time.Second

func initialCmd() york.ClimateCommand {
	return york.ClimateCommand{Mode: york.ModeOff, TargetTemperature: 24, Fan: york.FanSpeed2, Swing: york.SwingOff}
}

func newRec(caps york.Capabilities) *Reconciler {
	codec, err := york.NewCodec(york.YorkECGS01(), caps)
	if err != nil {
		panic(err)
	}
	return New(initialCmd(), york.ModeCool, codec.Encodable, window, t0)
}

func remote(power bool, mode york.Mode) york.ClimateCommand {
	return york.ClimateCommand{Power: power, Mode: mode, TargetTemperature: 24, Fan: york.FanSpeed2, Swing: york.SwingOff}
}

func TestNew_Defaults(t *testing.T) {
	r := newRec(york.Capabilities{})
	s := r.Snapshot()
	assert.False(t, s.PowerOn)
	assert.Equal(t, york.ModeOff, s.Command.Mode)
	assert.Equal(t, SourceInit, s.Source)
	assert.Nil(t, s.CurrentTemperature)
	assert.Equal(t, york.ModeCool, r.LastActiveMode())
}

func TestForceOn_ResistsRemoteOffInsideWindow(t *testing.T) {
	r := newRec(york.Capabilities{})
	require.True(t, r.ForcePower(ForceOn, t0))

	changed := r.ApplyRemote(remote(false, york.ModeOff), t0.Add(30*time.Second))
	assert.False(t, changed)
	assert.True(t, r.Snapshot().PowerOn)
	assert.True(t, r.Suppressed(t0.Add(30*time.Second)))

	// One second after the window closes the same frame lands.
	changed = r.ApplyRemote(remote(false, york.ModeOff), t0.Add(window+time.Second))
	assert.True(t, changed)
	s := r.Snapshot()
	assert.False(t, s.PowerOn)
	assert.Equal(t, york.ModeOff, s.Command.Mode)
	assert.Equal(t, SourceRemote, s.Source)
}

func TestForce_RemoteStillUpdatesOtherAxes(t *testing.T) {
	r := newRec(york.Capabilities{})
	r.ForcePower(ForceOn, t0)

	in := remote(false, york.ModeOff)
	in.TargetTemperature = 19
	in.Fan = york.FanTurbo
	assert.True(t, r.ApplyRemote(in, t0.Add(time.Second)))

	s := r.Snapshot()
	assert.True(t, s.PowerOn)
	assert.True(t, s.Command.Power)
	assert.Equal(t, york.ModeCool, s.Command.Mode)
	assert.Equal(t, 19.0, s.Command.TargetTemperature)
	assert.Equal(t, york.FanTurbo, s.Command.Fan)
}

func TestToggleTwice_Restores(t *testing.T) {
	r := newRec(york.Capabilities{})
	before := r.Snapshot()

	assert.True(t, r.ForcePower(ForceToggle, t0))
	assert.Equal(t, york.ModeCool, r.Snapshot().Command.Mode)
	assert.False(t, r.ForcePower(ForceToggle, t0.Add(time.Second)))

	after := r.Snapshot()
	assert.Equal(t, before.PowerOn, after.PowerOn)
	assert.Equal(t, before.Command, after.Command)
}

func TestForceOn_RestoresLastActiveMode(t *testing.T) {
	r := newRec(york.Capabilities{SupportsDry: true})
	r.ApplyLocal(remote(true, york.ModeDry), t0)
	r.ForcePower(ForceOff, t0.Add(time.Second))
	assert.Equal(t, york.ModeOff, r.Snapshot().Command.Mode)

	r.ForcePower(ForceOn, t0.Add(2*time.Second))
	assert.Equal(t, york.ModeDry, r.Snapshot().Command.Mode)
}

func TestNewForceRequestReplacesWindow(t *testing.T) {
	r := newRec(york.Capabilities{})
	r.ForcePower(ForceOn, t0)
	r.ForcePower(ForceOn, t0.Add(60*time.Second))

	assert.Equal(t, t0.Add(60*time.Second+window), r.SuppressedUntil())
	assert.True(t, r.Suppressed(t0.Add(window+time.Second)))
}

func TestTick_ExpiresWindow(t *testing.T) {
	r := newRec(york.Capabilities{})
	r.ForcePower(ForceOff, t0)

	assert.False(t, r.Tick(t0.Add(89*time.Second)))
	assert.True(t, r.Tick(t0.Add(window)))
	assert.False(t, r.Tick(t0.Add(window+time.Second)))
	assert.True(t, r.SuppressedUntil().IsZero())
}

func TestApplyLocal_WinsAndSetsPower(t *testing.T) {
	r := newRec(york.Capabilities{})
	r.ApplyRemote(remote(true, york.ModeCool), t0)

	local := remote(false, york.ModeCool)
	r.ApplyLocal(local, t0.Add(time.Millisecond))
	s := r.Snapshot()
	assert.False(t, s.PowerOn)
	assert.Equal(t, york.ModeOff, s.Command.Mode)
	assert.Equal(t, SourceLocal, s.Source)
}

func TestApplyRemote_MapsUnsupportedModes(t *testing.T) {
	cases := []struct {
		caps york.Capabilities
		in   york.Mode
		want york.Mode
	}{
		{york.Capabilities{}, york.ModeDry, york.ModeCool},
		{york.Capabilities{}, york.ModeFanOnly, york.ModeCool},
		{york.Capabilities{SupportsHeat: true}, york.ModeHeat, york.ModeCool},
		{york.Capabilities{SupportsDry: true}, york.ModeDry, york.ModeDry},
		{york.Capabilities{SupportsFanOnly: true}, york.ModeFanOnly, york.ModeFanOnly},
		// unknown mode codes decode to auto, which the York table cannot send
		{york.Capabilities{SupportsDry: true, SupportsFanOnly: true}, york.ModeAuto, york.ModeCool},
	}
	for _, tc := range cases {
		r := newRec(tc.caps)
		r.ApplyRemote(remote(true, tc.in), t0)
		assert.Equal(t, tc.want, r.Snapshot().Command.Mode, "in=%s", tc.in)
	}
}

func TestApplyRemote_PrefersAutoWhenEncodable(t *testing.T) {
	encodable := func(m york.Mode) bool {
		return m == york.ModeOff || m == york.ModeCool || m == york.ModeAuto
	}
	r := New(initialCmd(), york.ModeCool, encodable, window, t0)
	r.ApplyRemote(remote(true, york.ModeFanOnly), t0)
	assert.Equal(t, york.ModeAuto, r.Snapshot().Command.Mode)

	r.ApplyRemote(remote(true, york.ModeDry), t0.Add(time.Second))
	assert.Equal(t, york.ModeCool, r.Snapshot().Command.Mode)
}

func TestApplyRemote_NoChange(t *testing.T) {
	r := newRec(york.Capabilities{})
	assert.True(t, r.ApplyRemote(remote(true, york.ModeCool), t0))
	assert.False(t, r.ApplyRemote(remote(true, york.ModeCool), t0.Add(time.Second)))
	assert.Equal(t, t0, r.Snapshot().UpdatedAt)
}

func TestApplyAmbient_OnlyTemperature(t *testing.T) {
	r := newRec(york.Capabilities{})
	before := r.Snapshot()

	assert.True(t, r.ApplyAmbient(26.5, t0))
	assert.False(t, r.ApplyAmbient(26.5, t0.Add(time.Second)))

	s := r.Snapshot()
	require.NotNil(t, s.CurrentTemperature)
	assert.Equal(t, 26.5, *s.CurrentTemperature)
	assert.Equal(t, before.Command, s.Command)
	assert.Equal(t, before.PowerOn, s.PowerOn)

	// Snapshot is a copy.
	*s.CurrentTemperature = 0
	assert.Equal(t, 26.5, *r.Snapshot().CurrentTemperature)
}
