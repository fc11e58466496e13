package york

// Encoding selects how a field value is packed into its bits.
type Encoding uint8

const (
	EncRaw Encoding = iota
	EncBCD          // two decimal digits, tens in the high nibble
)

// Field locates a value inside the byte image.
type Field struct {
	Byte  int
	Shift uint8
	Mask  uint8 // applied after shifting down
	Enc   Encoding
}

func (f Field) put(b []byte, v uint8) {
	if f.Enc == EncBCD {
		v = (v/10)<<4 | v%10
	}
	b[f.Byte] = b[f.Byte]&^(f.Mask<<f.Shift) | (v&f.Mask)<<f.Shift
}

func (f Field) get(b []byte) (uint8, bool) {
	v := (b[f.Byte] >> f.Shift) & f.Mask
	if f.Enc == EncBCD {
		hi, lo := v>>4, v&0x0F
		if hi > 9 || lo > 9 {
			return 0, false
		}
		v = hi*10 + lo
	}
	return v, true
}

// Timing holds the pulse lengths in microseconds.
type Timing struct {
	CarrierKHz  uint16
	HeaderMark  int32
	HeaderSpace int32
	BitMark     int32
	OneSpace    int32
	ZeroSpace   int32
	// Preamble is an optional lead-in of signed durations. It is emitted
	// only when EmitPreamble is set and skipped on decode when present.
	Preamble     []int32
	EmitPreamble bool
	// Trailer follows the final bit: signed durations, first a space.
	Trailer []int32
	// TolerancePct bounds how far a received duration may stray.
	TolerancePct uint8
}

// Table describes one vendor's frame layout. The codec engine is generic over it.
type Table struct {
	Name        string
	Length      int   // bytes per frame
	HeaderIndex int   // position of the fixed header byte
	Header      uint8 // expected value at HeaderIndex
	LSBFirst    bool
	Timing      Timing

	ModeField  Field
	FanField   Field
	TempField  Field
	PowerField Field
	SwingField Field
	SleepField Field
	// Fixed bits always set on transmit.
	FixedByte int
	FixedMask uint8

	ChecksumField Field
	Checksum      func(b []byte) uint8

	// Mode codes; OffMode is the code sent alongside a cleared power bit.
	Modes   map[Mode]uint8
	OffMode Mode
	Fans    map[FanMode]uint8
	Swings  map[VerticalSwing]uint8

	MinTemp     int
	MaxTemp     int
	TempStep    int
	TempOffset  int // subtracted before packing
	DefaultTemp int
}

// Bits returns the number of data bits per frame.
func (t *Table) Bits() int { return t.Length * 8 }

func (t *Table) modeFor(code uint8) (Mode, bool) {
	for m, c := range t.Modes {
		if c == code {
			return m, true
		}
	}
	return ModeAuto, false
}

func (t *Table) fanFor(code uint8) (FanMode, bool) {
	for f, c := range t.Fans {
		if c == code {
			return f, true
		}
	}
	return FanAuto, false
}

func (t *Table) swingFor(code uint8) (VerticalSwing, bool) {
	for s, c := range t.Swings {
		if c == code {
			return s, true
		}
	}
	return SwingOff, false
}

// NibbleSum is the York checksum: the low nibble of the sum of every low
// nibble and every high nibble except the last byte's, which carries the result.
func NibbleSum(b []byte) uint8 {
	var sum int
	for i, v := range b {
		sum += int(v & 0x0F)
		if i < len(b)-1 {
			sum += int(v >> 4)
		}
	}
	return uint8(sum & 0x0F)
}

// YorkECGS01 returns the layout of the York ECGS01-i remote.
//
//	byte 0      header 0x16
//	byte 1      mode (low nibble), fan (high nibble)
//	bytes 2-3   clock, BCD
//	bytes 4-5   on/off timers
//	byte 6      target temperature, BCD
//	byte 7      swing, sleep, fixed 1, power (low nibble), checksum (high nibble)
func YorkECGS01() Table {
	return Table{
		Name:        "york_ecgs01",
		Length:      8,
		HeaderIndex: 0,
		Header:      0x16,
		LSBFirst:    true,
		Timing: Timing{
			CarrierKHz:   38,
			HeaderMark:   4652,
			HeaderSpace:  2408,
			BitMark:      368,
			OneSpace:     944,
			ZeroSpace:    368,
			Preamble:     []int32{9788, -9676, 9812, -9680},
			Trailer:      []int32{-20340, 4652},
			TolerancePct: 25,
		},
		ModeField:     Field{Byte: 1, Shift: 0, Mask: 0x0F},
		FanField:      Field{Byte: 1, Shift: 4, Mask: 0x0F},
		TempField:     Field{Byte: 6, Shift: 0, Mask: 0xFF, Enc: EncBCD},
		SwingField:    Field{Byte: 7, Shift: 0, Mask: 0x01},
		SleepField:    Field{Byte: 7, Shift: 1, Mask: 0x01},
		PowerField:    Field{Byte: 7, Shift: 3, Mask: 0x01},
		FixedByte:     7,
		FixedMask:     0x04,
		ChecksumField: Field{Byte: 7, Shift: 4, Mask: 0x0F},
		Checksum:      NibbleSum,
		Modes: map[Mode]uint8{
			ModeDry:     0b0001,
			ModeCool:    0b0010,
			ModeFanOnly: 0b0100,
		},
		OffMode: ModeCool,
		Fans: map[FanMode]uint8{
			FanAuto:   1,
			FanSpeed1: 8,
			FanSpeed2: 4,
			FanSpeed3: 2,
			FanQuiet:  9,
			FanTurbo:  3,
		},
		Swings: map[VerticalSwing]uint8{
			SwingOff:  0,
			SwingAuto: 1,
		},
		MinTemp:     16,
		MaxTemp:     30,
		TempStep:    1,
		DefaultTemp: 24,
	}
}
