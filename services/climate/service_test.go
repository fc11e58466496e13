package climate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yorkir-go/bus"
	"yorkir-go/drivers/york"
	"yorkir-go/errcode"
	"yorkir-go/types"
	"yorkir-go/x/timex"
)

func testClimateConfig() types.ClimateConfig {
	return types.ClimateConfig{
		FanMode:                     "2levels",
		VerticalDefault:             "off",
		SupportsDry:                 false,
		SupportsFanOnly:             true,
		IgnoreRXAfterTXMs:           500,
		DelayAfterPowerForceButtonS: 90,
		TargetTemperature:           24,
		PollIntervalMs:              20,
	}
}

type harness struct {
	b    *bus.Bus
	conn *bus.Connection
	clk  *timex.Manual
	svc  *Service
	tx   *bus.Subscription
}

func newHarness(t *testing.T, start bool) *harness {
	t.Helper()
	b := bus.NewBus(32)
	h := &harness{b: b, conn: b.NewConnection("test"), clk: timex.NewManual(t0)}
	h.tx = h.conn.Subscribe(topicIRTX)
	h.conn.Publish(h.conn.NewMessage(topicConfigClimate, testClimateConfig(), true))
	h.svc = NewService(b.NewConnection("climate"), york.YorkECGS01(), h.clk.Clock())
	if start {
		ctx, cancel := context.WithCancel(context.Background())
		t.Cleanup(cancel)
		h.svc.Start(ctx)
		h.waitState(t, func(v types.ClimateStateValue) bool { return true })
	}
	return h
}

func (h *harness) request(t *testing.T, verb string, payload any) types.Reply {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	m, err := h.conn.RequestWait(ctx, h.conn.NewMessage(ControlTopic(verb), payload, false))
	require.NoError(t, err)
	r, ok := m.Payload.(types.Reply)
	require.True(t, ok, "reply type %T", m.Payload)
	return r
}

func (h *harness) waitState(t *testing.T, pred func(types.ClimateStateValue) bool) types.ClimateStateValue {
	t.Helper()
	sub := h.conn.Subscribe(TopicState)
	defer h.conn.Unsubscribe(sub)
	deadline := time.After(time.Second)
	for {
		select {
		case m := <-sub.Channel():
			if v, ok := m.Payload.(types.ClimateStateValue); ok && pred(v) {
				return v
			}
		case <-deadline:
			t.Fatal("timeout waiting for climate state")
			return types.ClimateStateValue{}
		}
	}
}

func (h *harness) nextTX(t *testing.T) types.IRFrame {
	t.Helper()
	select {
	case m := <-h.tx.Channel():
		f, ok := m.Payload.(types.IRFrame)
		require.True(t, ok)
		return f
	case <-time.After(time.Second):
		t.Fatal("no ir/tx frame")
		return types.IRFrame{}
	}
}

func encodeFor(t *testing.T, cmd york.ClimateCommand) york.RawFrame {
	t.Helper()
	c, err := york.NewCodec(york.YorkECGS01(), york.Capabilities{SupportsDry: true, SupportsFanOnly: true})
	require.NoError(t, err)
	f, err := c.Encode(cmd)
	require.NoError(t, err)
	return f
}

func TestService_PublishesTraitsAndInitialState(t *testing.T) {
	h := newHarness(t, true)

	sub := h.conn.Subscribe(TopicTraits)
	select {
	case m := <-sub.Channel():
		tr, ok := m.Payload.(Traits)
		require.True(t, ok)
		assert.Equal(t, []york.Mode{york.ModeOff, york.ModeCool, york.ModeFanOnly}, tr.Modes)
	case <-time.After(time.Second):
		t.Fatal("no traits")
	}

	r := h.request(t, CtrlState, nil)
	require.True(t, r.OK)
	v := r.Value.(types.ClimateStateValue)
	assert.False(t, v.PowerOn)
	assert.Equal(t, york.FanSpeed2, v.Fan)
}

func TestService_SetTransmitsAndPublishes(t *testing.T) {
	h := newHarness(t, true)

	on, temp := true, 21.0
	r := h.request(t, CtrlSet, types.ClimateSet{Power: &on, TargetTemperature: &temp})
	require.True(t, r.OK, r.Error)

	f := h.nextTX(t)
	assert.Equal(t, uint16(38), f.CarrierKHz)
	codec, _ := york.NewCodec(york.YorkECGS01(), york.Capabilities{})
	got, err := codec.Decode(f.Pulses)
	require.NoError(t, err)
	assert.Equal(t, york.ModeCool, got.Mode)
	assert.Equal(t, 21.0, got.TargetTemperature)

	v := h.waitState(t, func(v types.ClimateStateValue) bool { return v.PowerOn })
	assert.Equal(t, "local", v.Source)
}

func TestService_SetJSONPayload(t *testing.T) {
	h := newHarness(t, true)
	r := h.request(t, CtrlSet, []byte(`{"mode":"fan_only","fan_mode":"speed3"}`))
	require.True(t, r.OK, r.Error)
	v := h.waitState(t, func(v types.ClimateStateValue) bool { return v.Mode == york.ModeFanOnly })
	assert.Equal(t, york.FanSpeed3, v.Fan)
}

func TestService_SetUnsupportedDry(t *testing.T) {
	h := newHarness(t, true)
	r := h.request(t, CtrlSet, []byte(`{"mode":"dry"}`))
	assert.False(t, r.OK)
	assert.Equal(t, string(errcode.UnsupportedCommand), r.Code)

	r = h.request(t, CtrlState, nil)
	assert.False(t, r.Value.(types.ClimateStateValue).PowerOn)
}

func TestService_EchoThenRemote(t *testing.T) {
	h := newHarness(t, true)
	r := h.request(t, CtrlSet, []byte(`{"power":true}`))
	require.True(t, r.OK)
	h.nextTX(t)

	remote := encodeFor(t, york.ClimateCommand{Power: true, Mode: york.ModeCool, TargetTemperature: 27, Fan: york.FanSpeed2})
	h.conn.Publish(h.conn.NewMessage(topicIRRX, types.IRFrame{Pulses: remote, TS: t0.Add(100 * time.Millisecond).UnixMilli()}, false))
	h.conn.Publish(h.conn.NewMessage(topicIRRX, types.IRFrame{Pulses: remote, TS: t0.Add(600 * time.Millisecond).UnixMilli()}, false))

	v := h.waitState(t, func(v types.ClimateStateValue) bool { return v.TargetTemperature == 27 })
	assert.Equal(t, "remote", v.Source)

	sub := h.conn.Subscribe(TopicCounters)
	select {
	case m := <-sub.Channel():
		assert.Equal(t, uint32(1), m.Payload.(Counters).Echoes)
	case <-time.After(time.Second):
		t.Fatal("no counters")
	}
}

func TestService_GuardEdgeUsesFullResolution(t *testing.T) {
	h := newHarness(t, true)
	sent := t0.Add(600 * time.Microsecond)
	h.clk.Advance(600 * time.Microsecond)
	r := h.request(t, CtrlSet, []byte(`{"power":true}`))
	require.True(t, r.OK)
	h.nextTX(t)

	// 500.1 ms after the transmit; truncated to milliseconds it would still be inside the window.
	remote := encodeFor(t, york.ClimateCommand{Power: true, Mode: york.ModeCool, TargetTemperature: 28, Fan: york.FanSpeed2})
	at := sent.Add(500*time.Millisecond + 100*time.Microsecond)
	h.conn.Publish(h.conn.NewMessage(topicIRRX, types.IRFrame{Pulses: remote, TS: at.UnixMilli(), At: at}, false))

	v := h.waitState(t, func(v types.ClimateStateValue) bool { return v.TargetTemperature == 28 })
	assert.Equal(t, "remote", v.Source)
}

func TestService_ForcePowerAndToggle(t *testing.T) {
	h := newHarness(t, true)
	r := h.request(t, CtrlForceOn, nil)
	require.True(t, r.OK, r.Error)
	h.nextTX(t)

	sub := h.conn.Subscribe(TopicPower)
	defer h.conn.Unsubscribe(sub)
	select {
	case m := <-sub.Channel():
		assert.True(t, m.Payload.(types.PowerStatusValue).On)
	case <-time.After(time.Second):
		t.Fatal("no power status")
	}

	// Remote "off" inside the window is ignored.
	off := encodeFor(t, york.ClimateCommand{Mode: york.ModeOff, TargetTemperature: 24, Fan: york.FanSpeed2})
	h.clk.Advance(time.Second)
	h.conn.Publish(h.conn.NewMessage(topicIRRX, types.IRFrame{Pulses: off}, false))
	r = h.request(t, CtrlState, nil)
	assert.True(t, r.Value.(types.ClimateStateValue).PowerOn)

	require.True(t, h.request(t, CtrlToggle, nil).OK)
	require.True(t, h.request(t, CtrlToggle, nil).OK)
	r = h.request(t, CtrlState, nil)
	assert.True(t, r.Value.(types.ClimateStateValue).PowerOn)
}

func TestService_DumpPublishesEvent(t *testing.T) {
	h := newHarness(t, true)
	ev := h.conn.Subscribe(TopicDump)

	r := h.request(t, CtrlDump, nil)
	require.True(t, r.OK)
	d := r.Value.(types.DumpValue)
	assert.Nil(t, d.LastTX)
	assert.Nil(t, d.LastRX)

	require.True(t, h.request(t, CtrlSet, []byte(`{"power":true}`)).OK)
	d = h.request(t, CtrlDump, nil).Value.(types.DumpValue)
	require.NotNil(t, d.LastTX)
	assert.Equal(t, "16 42 00 00 00 00 24 FC", d.LastTX.Bytes)

	select {
	case m := <-ev.Channel():
		_, ok := m.Payload.(types.DumpValue)
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("no dump event")
	}
}

func TestService_AmbientReading(t *testing.T) {
	h := newHarness(t, true)
	h.conn.Publish(h.conn.NewMessage(bus.T("env", "temperature", "room"), types.TemperatureValue{DeciC: 253}, true))
	v := h.waitState(t, func(v types.ClimateStateValue) bool { return v.CurrentTemperature != nil })
	assert.InDelta(t, 25.3, *v.CurrentTemperature, 1e-9)
}

func TestService_LinkDownFailsTransmit(t *testing.T) {
	h := newHarness(t, true)
	h.conn.Publish(h.conn.NewMessage(topicLinkState, types.ServiceState{Level: "degraded", Status: "link_lost_retrying"}, true))

	deadline := time.Now().Add(time.Second)
	for {
		r := h.request(t, CtrlSet, []byte(`{"power":true}`))
		if !r.OK && r.Code == string(errcode.TransmitFailed) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("transmit still accepted: %+v", r)
		}
		time.Sleep(20 * time.Millisecond)
	}
	st := h.request(t, CtrlState, nil).Value.(types.ClimateStateValue)
	assert.False(t, st.PowerOn)
}

func TestService_NotReadyBeforeConfig(t *testing.T) {
	b := bus.NewBus(8)
	conn := b.NewConnection("test")
	svc := NewService(b.NewConnection("climate"), york.YorkECGS01(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	rctx, rcancel := context.WithTimeout(context.Background(), time.Second)
	defer rcancel()
	m, err := conn.RequestWait(rctx, conn.NewMessage(ControlTopic(CtrlForceOn), nil, false))
	require.NoError(t, err)
	r := m.Payload.(types.Reply)
	assert.False(t, r.OK)
	assert.Equal(t, string(errcode.NotReady), r.Code)
}

// A local command and a remote frame queued together: the command lands first,
// so the frame falls inside the fresh guard window.
func TestService_LocalBeforeRemoteInOneIteration(t *testing.T) {
	h := newHarness(t, false)
	h.svc.subscribe()

	remote := encodeFor(t, york.ClimateCommand{Power: true, Mode: york.ModeCool, TargetTemperature: 29, Fan: york.FanSpeed2})
	h.conn.Publish(h.conn.NewMessage(topicIRRX, types.IRFrame{Pulses: remote}, false))
	reply := h.conn.Request(h.conn.NewMessage(ControlTopic(CtrlSet), []byte(`{"power":true,"target_temperature":18}`), false))
	defer h.conn.Unsubscribe(reply)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.svc.loop(ctx)

	select {
	case m := <-reply.Channel():
		require.True(t, m.Payload.(types.Reply).OK)
	case <-time.After(time.Second):
		t.Fatal("no reply")
	}

	sub := h.conn.Subscribe(TopicCounters)
	select {
	case m := <-sub.Channel():
		cnt := m.Payload.(Counters)
		assert.Equal(t, uint32(1), cnt.Echoes)
		assert.Equal(t, uint32(0), cnt.Applied)
	case <-time.After(time.Second):
		t.Fatal("no counters")
	}
	r := h.request(t, CtrlState, nil)
	assert.Equal(t, 18.0, r.Value.(types.ClimateStateValue).TargetTemperature)
}

func TestClient_AgainstService(t *testing.T) {
	h := newHarness(t, true)
	cli := NewClient(h.b.NewConnection("client"))
	ctx := context.Background()

	on, temp := true, 26.0
	st, err := cli.Set(ctx, types.ClimateSet{Power: &on, TargetTemperature: &temp})
	require.NoError(t, err)
	assert.Equal(t, 26.0, st.TargetTemperature)

	mode := york.ModeDry
	_, err = cli.Set(ctx, types.ClimateSet{Mode: &mode})
	assert.Equal(t, errcode.UnsupportedCommand, errcode.Of(err))

	st, err = cli.Power(ctx, CtrlToggle)
	require.NoError(t, err)
	assert.False(t, st.PowerOn)

	_, err = cli.Power(ctx, "explode")
	assert.Equal(t, errcode.InvalidParams, errcode.Of(err))

	tr, err := cli.Traits(ctx)
	require.NoError(t, err)
	assert.Equal(t, 16.0, tr.MinTemperature)

	d, err := cli.Dump(ctx)
	require.NoError(t, err)
	assert.NotNil(t, d.LastTX)
}
