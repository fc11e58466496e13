package york

import "yorkir-go/x/conv"

// RawFrame is an IR burst as signed durations in microseconds:
// positive entries are marks (carrier on), negative entries are spaces.
type RawFrame []int32

// Clone returns an independent copy.
func (f RawFrame) Clone() RawFrame {
	if f == nil {
		return nil
	}
	out := make(RawFrame, len(f))
	copy(out, f)
	return out
}

// Duration returns the total burst length in microseconds.
func (f RawFrame) Duration() int64 {
	var n int64
	for _, v := range f {
		if v < 0 {
			n -= int64(v)
		} else {
			n += int64(v)
		}
	}
	return n
}

// Marks counts carrier-on entries.
func (f RawFrame) Marks() int {
	n := 0
	for _, v := range f {
		if v > 0 {
			n++
		}
	}
	return n
}

// Spaces counts carrier-off entries.
func (f RawFrame) Spaces() int { return len(f) - f.Marks() - f.zeros() }

func (f RawFrame) zeros() int {
	n := 0
	for _, v := range f {
		if v == 0 {
			n++
		}
	}
	return n
}

// String renders the frame the way receivers dump raw timings: "4652, -2408, ...".
func (f RawFrame) String() string {
	buf := make([]byte, 0, len(f)*7)
	for i, v := range f {
		if i > 0 {
			buf = append(buf, ',', ' ')
		}
		buf = conv.AppendInt(buf, int64(v))
	}
	return string(buf)
}

// Frame is the decoded byte image of one transmission.
type Frame []byte

// Hex renders the bytes as "16 24 00 ...".
func (b Frame) Hex() string { return string(conv.AppendHex(nil, b, ' ')) }
