package york

import (
	"math"

	"yorkir-go/errcode"
	"yorkir-go/x/mathx"
)

// Codec translates between ClimateCommand and the pulse timings of one table.
// A Codec is immutable after construction and safe for concurrent use.
type Codec struct {
	t    Table
	caps Capabilities
}

// NewCodec validates the table and binds it to the unit's capabilities.
func NewCodec(t Table, caps Capabilities) (*Codec, error) {
	const op = "york.new_codec"
	switch {
	case t.TempStep <= 0:
		return nil, errcode.New(errcode.OutOfRange, op, "temperature step must be positive")
	case t.MinTemp > t.MaxTemp:
		return nil, errcode.New(errcode.OutOfRange, op, "min temperature above max")
	case (t.MaxTemp-t.MinTemp)%t.TempStep != 0:
		return nil, errcode.New(errcode.OutOfRange, op, "temperature range not a whole number of steps")
	case t.MinTemp-t.TempOffset < 0 || t.MaxTemp-t.TempOffset > 99:
		return nil, errcode.New(errcode.OutOfRange, op, "temperature range not encodable")
	case t.DefaultTemp < t.MinTemp || t.DefaultTemp > t.MaxTemp:
		return nil, errcode.New(errcode.OutOfRange, op, "default temperature out of range")
	}
	if t.Length <= 0 || t.HeaderIndex < 0 || t.HeaderIndex >= t.Length {
		return nil, errcode.New(errcode.InvalidParams, op, "bad frame length or header index")
	}
	for _, f := range []Field{t.ModeField, t.FanField, t.TempField, t.PowerField, t.SwingField, t.SleepField, t.ChecksumField} {
		if f.Byte < 0 || f.Byte >= t.Length {
			return nil, errcode.New(errcode.InvalidParams, op, "field outside frame")
		}
	}
	if t.Checksum == nil {
		return nil, errcode.New(errcode.InvalidParams, op, "missing checksum")
	}
	if _, ok := t.Modes[t.OffMode]; !ok {
		return nil, errcode.New(errcode.InvalidParams, op, "off mode has no code")
	}
	return &Codec{t: t, caps: caps}, nil
}

func (c *Codec) Table() Table               { return c.t }
func (c *Codec) Capabilities() Capabilities { return c.caps }

// Encodable reports whether m is allowed on this unit and has a table code.
func (c *Codec) Encodable(m Mode) bool {
	if m == ModeOff {
		return true
	}
	_, ok := c.t.Modes[m]
	return ok && c.caps.Allows(m)
}

// NormalizeTemp clamps v into the table range, then rounds to the step.
func (c *Codec) NormalizeTemp(v float64) float64 {
	lo, hi := float64(c.t.MinTemp), float64(c.t.MaxTemp)
	if math.IsNaN(v) {
		return float64(c.t.DefaultTemp)
	}
	v = mathx.SnapStep(mathx.Clamp(v, lo, hi), lo, float64(c.t.TempStep))
	return mathx.Clamp(v, lo, hi)
}

// EncodeBytes builds the byte image for cmd.
func (c *Codec) EncodeBytes(cmd ClimateCommand) (Frame, error) {
	const op = "york.encode"
	cmd = cmd.Canonical()
	t := &c.t

	if !c.caps.Allows(cmd.Mode) {
		return nil, errcode.New(errcode.UnsupportedCommand, op, "mode "+cmd.Mode.String()+" disabled on this unit")
	}
	mode := cmd.Mode
	if mode == ModeOff {
		mode = t.OffMode
	}
	modeCode, ok := t.Modes[mode]
	if !ok {
		return nil, errcode.New(errcode.UnsupportedCommand, op, "mode "+mode.String()+" has no code")
	}
	fanCode, ok := t.Fans[cmd.Fan]
	if !ok {
		return nil, errcode.New(errcode.UnsupportedCommand, op, "fan "+cmd.Fan.String()+" has no code")
	}
	swingCode, ok := t.Swings[cmd.Swing]
	if !ok {
		return nil, errcode.New(errcode.UnsupportedCommand, op, "swing "+cmd.Swing.String()+" has no code")
	}

	b := make(Frame, t.Length)
	b[t.HeaderIndex] = t.Header
	b[t.FixedByte] |= t.FixedMask
	t.ModeField.put(b, modeCode)
	t.FanField.put(b, fanCode)
	t.TempField.put(b, uint8(int(c.NormalizeTemp(cmd.TargetTemperature))-t.TempOffset))
	t.SwingField.put(b, swingCode)
	t.SleepField.put(b, boolBit(cmd.Sleep))
	t.PowerField.put(b, boolBit(cmd.Power))
	t.ChecksumField.put(b, t.Checksum(b))
	return b, nil
}

// Encode produces the pulse train for cmd.
func (c *Codec) Encode(cmd ClimateCommand) (RawFrame, error) {
	b, err := c.EncodeBytes(cmd)
	if err != nil {
		return nil, err
	}
	return c.Modulate(b), nil
}

// Modulate turns a byte image into marks and spaces.
func (c *Codec) Modulate(b Frame) RawFrame {
	tm := &c.t.Timing
	n := 2 + 16*len(b) + 1 + len(tm.Trailer)
	if tm.EmitPreamble {
		n += len(tm.Preamble)
	}
	out := make(RawFrame, 0, n)
	if tm.EmitPreamble {
		out = append(out, tm.Preamble...)
	}
	out = append(out, tm.HeaderMark, -tm.HeaderSpace)
	for _, v := range b {
		for i := 0; i < 8; i++ {
			bit := v>>uint(i)&1 == 1
			if !c.t.LSBFirst {
				bit = v>>uint(7-i)&1 == 1
			}
			out = append(out, tm.BitMark)
			if bit {
				out = append(out, -tm.OneSpace)
			} else {
				out = append(out, -tm.ZeroSpace)
			}
		}
	}
	out = append(out, tm.BitMark)
	return append(out, tm.Trailer...)
}

// Decode parses a received pulse train. It never panics on malformed input.
func (c *Codec) Decode(f RawFrame) (ClimateCommand, error) {
	b, err := c.Demodulate(f)
	if err != nil {
		return ClimateCommand{}, err
	}
	return c.DecodeBytes(b)
}

// Demodulate recovers the byte image without validating its contents.
func (c *Codec) Demodulate(f RawFrame) (Frame, error) {
	tm := &c.t.Timing
	bits := c.t.Bits()
	need := 2 + 2*bits + 1
	if len(f) < need {
		return nil, &DecodeError{Kind: KindTruncated, Pos: len(f)}
	}

	i := 0
	if p := len(tm.Preamble); p > 0 && len(f) >= p && c.matchSeq(f[:p], tm.Preamble) {
		i = p
		if len(f)-i < need {
			return nil, &DecodeError{Kind: KindTruncated, Pos: len(f)}
		}
	}

	if !c.match(f[i], tm.HeaderMark) || !c.match(f[i+1], -tm.HeaderSpace) {
		return nil, &DecodeError{Kind: KindUnknownHeader, Pos: i}
	}
	i += 2

	b := make(Frame, c.t.Length)
	for k := 0; k < bits; k++ {
		if !c.match(f[i], tm.BitMark) {
			return nil, &DecodeError{Kind: KindBadTiming, Pos: i}
		}
		var one bool
		switch {
		case c.match(f[i+1], -tm.OneSpace):
			one = true
		case c.match(f[i+1], -tm.ZeroSpace):
		default:
			return nil, &DecodeError{Kind: KindBadTiming, Pos: i + 1}
		}
		if one {
			idx, sh := k/8, uint(k%8)
			if !c.t.LSBFirst {
				sh = 7 - sh
			}
			b[idx] |= 1 << sh
		}
		i += 2
	}
	if !c.match(f[i], tm.BitMark) {
		return nil, &DecodeError{Kind: KindBadTiming, Pos: i}
	}
	return b, nil
}

// DecodeBytes validates and interprets a byte image.
func (c *Codec) DecodeBytes(b Frame) (ClimateCommand, error) {
	t := &c.t
	if len(b) < t.Length {
		return ClimateCommand{}, &DecodeError{Kind: KindTruncated, Pos: len(b)}
	}
	b = b[:t.Length]
	if b[t.HeaderIndex] != t.Header {
		return ClimateCommand{}, &DecodeError{Kind: KindUnknownHeader, Pos: t.HeaderIndex}
	}
	want := t.Checksum(b)
	got, _ := t.ChecksumField.get(b)
	if got != want&t.ChecksumField.Mask {
		return ClimateCommand{}, &DecodeError{Kind: KindChecksumMismatch, Pos: t.ChecksumField.Byte}
	}

	var cmd ClimateCommand
	power, _ := t.PowerField.get(b)
	cmd.Power = power == 1
	if cmd.Power {
		mc, _ := t.ModeField.get(b)
		cmd.Mode, _ = t.modeFor(mc)
	}
	fc, _ := t.FanField.get(b)
	cmd.Fan, _ = t.fanFor(fc)
	sc, _ := t.SwingField.get(b)
	cmd.Swing, _ = t.swingFor(sc)
	sl, _ := t.SleepField.get(b)
	cmd.Sleep = sl == 1

	if tv, ok := t.TempField.get(b); ok {
		cmd.TargetTemperature = c.NormalizeTemp(float64(int(tv) + t.TempOffset))
	} else {
		cmd.TargetTemperature = float64(t.DefaultTemp)
	}
	return cmd.Canonical(), nil
}

func (c *Codec) match(got, want int32) bool {
	if (got < 0) != (want < 0) {
		return false
	}
	return mathx.WithinPct(got, want, c.t.Timing.TolerancePct)
}

func (c *Codec) matchSeq(got, want []int32) bool {
	for i := range want {
		if !c.match(got[i], want[i]) {
			return false
		}
	}
	return true
}

func boolBit(v bool) uint8 {
	if v {
		return 1
	}
	return 0
}
