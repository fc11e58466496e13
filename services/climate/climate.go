// Package climate is the York IR climate core: commands are encoded and
// transmitted, received frames are echo-filtered, decoded and reconciled
// into a single authoritative state.
package climate

import (
	"time"

	"yorkir-go/drivers/york"
	"yorkir-go/errcode"
	"yorkir-go/services/climate/internal/diag"
	"yorkir-go/services/climate/internal/guard"
	"yorkir-go/services/climate/internal/reconcile"
	"yorkir-go/x/logx"
	"yorkir-go/x/timex"
)

type (
	State        = reconcile.ClimateState
	ForceRequest = reconcile.ForceRequest
	Dump         = diag.Snapshot
	DumpRecord   = diag.Record
	Counters     = diag.Counters
)

const (
	ForceOn     = reconcile.ForceOn
	ForceOff    = reconcile.ForceOff
	ForceToggle = reconcile.ForceToggle
)

// Transmitter physically emits a frame.
type Transmitter interface {
	Transmit(frame york.RawFrame) error
}

// TransmitterFunc adapts a function to Transmitter.
type TransmitterFunc func(york.RawFrame) error

func (f TransmitterFunc) Transmit(frame york.RawFrame) error { return f(frame) }

// Options are the typed construction values.
type Options struct {
	Table            york.Table
	Capabilities     york.Capabilities
	DefaultFan       york.FanMode
	DefaultSwing     york.VerticalSwing
	DefaultTemp      float64 // zero uses the table default
	IgnoreRXAfterTX  time.Duration
	ForceSuppression time.Duration
}

const (
	DefaultIgnoreRXAfterTX  = 500 * time.Millisecond
	DefaultForceSuppression = 90 * time.Second
	MinForceSuppression     = 60 * time.Second
)

func DefaultOptions() Options {
	return Options{
		Table:            york.YorkECGS01(),
		Capabilities:     york.Capabilities{SupportsDry: true, SupportsFanOnly: true},
		DefaultFan:       york.FanSpeed2,
		DefaultSwing:     york.SwingOff,
		IgnoreRXAfterTX:  DefaultIgnoreRXAfterTX,
		ForceSuppression: DefaultForceSuppression,
	}
}

// Climate is the control surface. It is not safe for concurrent use; the
// host calls it from one loop.
type Climate struct {
	opts  Options
	codec *york.Codec
	tx    Transmitter
	now   timex.Clock

	guard *guard.Window
	rec   *reconcile.Reconciler
	buf   diag.Buffer
	cnt   diag.Counters
}

// New validates the options and builds the initial state (power off).
// An invalid temperature range is an errcode.OutOfRange error.
func New(opts Options, tx Transmitter, now timex.Clock) (*Climate, error) {
	codec, err := york.NewCodec(opts.Table, opts.Capabilities)
	if err != nil {
		return nil, err
	}
	if opts.IgnoreRXAfterTX < time.Millisecond {
		return nil, errcode.New(errcode.InvalidParams, "climate.new", "ignore_rx_after_tx below 1 ms")
	}
	if opts.ForceSuppression < MinForceSuppression {
		return nil, errcode.New(errcode.InvalidParams, "climate.new", "force power delay below 60 s")
	}
	temp := opts.DefaultTemp
	if temp == 0 {
		temp = float64(opts.Table.DefaultTemp)
	}
	initial := york.ClimateCommand{
		Mode:              york.ModeOff,
		TargetTemperature: codec.NormalizeTemp(temp),
		Fan:               opts.DefaultFan,
		Swing:             opts.DefaultSwing,
	}
	return &Climate{
		opts:  opts,
		codec: codec,
		tx:    tx,
		now:   now,
		guard: guard.New(opts.IgnoreRXAfterTX),
		rec:   reconcile.New(initial, york.ModeCool, codec.Encodable, opts.ForceSuppression, now.Now()),
	}, nil
}

func (c *Climate) Codec() *york.Codec { return c.codec }

// SetCommand encodes and transmits cmd, then applies it locally. A rejected
// or failed command leaves the state unchanged.
func (c *Climate) SetCommand(cmd york.ClimateCommand) error {
	const op = "climate.set_command"
	t := c.now.Now()
	cmd = cmd.Canonical()
	cmd.TargetTemperature = c.codec.NormalizeTemp(cmd.TargetTemperature)

	raw, err := c.codec.Encode(cmd)
	if err != nil {
		c.cnt.Unsupported++
		logx.Warn("climate: command rejected: %v", err)
		return err
	}
	if err := c.tx.Transmit(raw); err != nil {
		c.cnt.TransmitFailures++
		logx.Error("climate: transmit failed: %v", err)
		return errcode.Wrap(errcode.TransmitFailed, op, err)
	}
	c.OnFrameTransmitted(raw, t)
	c.rec.ApplyLocal(cmd, t)
	return nil
}

// ForcePower overrides the power status and opens the suppression window,
// then sends the resulting command. A send failure is returned but the
// forced status stays.
func (c *Climate) ForcePower(req ForceRequest) error {
	const op = "climate.force_power"
	t := c.now.Now()
	on := c.rec.ForcePower(req, t)
	logx.Info("climate: %s -> power %v until %s", req, on, c.rec.SuppressedUntil().Format(time.TimeOnly))

	raw, err := c.codec.Encode(c.rec.Snapshot().Command)
	if err != nil {
		c.cnt.Unsupported++
		return err
	}
	if err := c.tx.Transmit(raw); err != nil {
		c.cnt.TransmitFailures++
		logx.Error("climate: transmit failed: %v", err)
		return errcode.Wrap(errcode.TransmitFailed, op, err)
	}
	c.OnFrameTransmitted(raw, t)
	return nil
}

// Dump returns the last frame in each direction.
func (c *Climate) Dump() Dump { return c.buf.Dump() }

// OnPollTick ages out the guard and suppression windows. It reports whether
// the suppression window closed.
func (c *Climate) OnPollTick(t time.Time) bool {
	c.guard.Expire(t)
	return c.rec.Tick(t)
}

// OnFrameReceived filters, decodes and reconciles a received frame. Echoes
// return errcode.Echo and decode failures a *york.DecodeError; both are
// counted and leave the state unchanged.
func (c *Climate) OnFrameReceived(f york.RawFrame, t time.Time) (bool, error) {
	if !c.guard.ShouldAccept(t) {
		c.cnt.Echoes++
		logx.Debug("climate: echo discarded (%d pulses)", len(f))
		return false, errcode.Echo
	}
	c.cnt.Received++
	c.buf.RecordRX(f, t)

	cmd, err := c.codec.Decode(f)
	if err != nil {
		c.cnt.CountDecode(err)
		logx.Warn("climate: frame dropped: %v", err)
		return false, err
	}
	c.cnt.Applied++
	return c.rec.ApplyRemote(cmd, t), nil
}

// OnFrameTransmitted opens the guard window and captures the frame.
func (c *Climate) OnFrameTransmitted(f york.RawFrame, t time.Time) {
	c.guard.OnTransmit(t)
	c.buf.RecordTX(f, t)
	c.cnt.Transmitted++
}

// OnAmbient records a room temperature reading.
func (c *Climate) OnAmbient(tempC float64, t time.Time) bool {
	return c.rec.ApplyAmbient(tempC, t)
}

func (c *Climate) State() State       { return c.rec.Snapshot() }
func (c *Climate) Counters() Counters { return c.cnt }

// Suppressed reports whether remote power observations are ignored at t.
func (c *Climate) Suppressed(t time.Time) bool { return c.rec.Suppressed(t) }

func (c *Climate) SuppressedUntil() time.Time { return c.rec.SuppressedUntil() }

// LastActiveMode is the mode resumed when power comes back without one.
func (c *Climate) LastActiveMode() york.Mode { return c.rec.LastActiveMode() }

func (c *Climate) Options() Options { return c.opts }

// SetTimings changes the guard and suppression lengths for later events.
func (c *Climate) SetTimings(ignoreRX, suppress time.Duration) error {
	if ignoreRX < time.Millisecond || suppress < MinForceSuppression {
		return errcode.New(errcode.OutOfRange, "climate.set_timings", "timing below minimum")
	}
	c.opts.IgnoreRXAfterTX, c.opts.ForceSuppression = ignoreRX, suppress
	c.guard.SetDuration(ignoreRX)
	c.rec.SetSuppression(suppress)
	return nil
}

// Traits describes what the entity layer may offer.
type Traits struct {
	Modes                      []york.Mode          `json:"modes"`
	Fans                       []york.FanMode       `json:"fan_modes"`
	Swings                     []york.VerticalSwing `json:"swing_modes"`
	MinTemperature             float64              `json:"min_temperature"`
	MaxTemperature             float64              `json:"max_temperature"`
	TemperatureStep            float64              `json:"temperature_step"`
	SupportsCurrentTemperature bool                 `json:"supports_current_temperature"`
}

// Traits lists modes the unit allows and the table can encode. Quiet and
// turbo are offered only when configured as the default fan.
func (c *Climate) Traits() Traits {
	t := c.codec.Table()
	tr := Traits{
		Modes:                      []york.Mode{york.ModeOff},
		MinTemperature:             float64(t.MinTemp),
		MaxTemperature:             float64(t.MaxTemp),
		TemperatureStep:            float64(t.TempStep),
		SupportsCurrentTemperature: c.rec.Snapshot().CurrentTemperature != nil,
	}
	for _, m := range []york.Mode{york.ModeCool, york.ModeHeat, york.ModeAuto, york.ModeDry, york.ModeFanOnly} {
		if _, ok := t.Modes[m]; ok && c.opts.Capabilities.Allows(m) {
			tr.Modes = append(tr.Modes, m)
		}
	}
	for _, f := range []york.FanMode{york.FanAuto, york.FanSpeed1, york.FanSpeed2, york.FanSpeed3, york.FanQuiet, york.FanTurbo} {
		if _, ok := t.Fans[f]; !ok {
			continue
		}
		if (f == york.FanQuiet || f == york.FanTurbo) && f != c.opts.DefaultFan {
			continue
		}
		tr.Fans = append(tr.Fans, f)
	}
	for _, s := range []york.VerticalSwing{york.SwingOff, york.SwingAuto, york.SwingPos1, york.SwingPos2, york.SwingPos3, york.SwingPos4, york.SwingPos5} {
		if _, ok := t.Swings[s]; ok {
			tr.Swings = append(tr.Swings, s)
		}
	}
	return tr
}
