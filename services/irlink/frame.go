package irlink

import (
	"encoding/binary"
	"io"

	"yorkir-go/drivers/york"
	"yorkir-go/errcode"
)

// Link framing: [type u8][len u16 BE][payload].
const (
	framePing  byte = 0x01
	framePong  byte = 0x02
	frameTX    byte = 0x20
	frameRX    byte = 0x21
	frameAck   byte = 0x22
	frameClose byte = 0x7f
)

const maxPayload = 0xFFFF

// MaxPulses is the longest burst a single frame can carry.
const MaxPulses = (maxPayload - 2) / 4

type Frame struct {
	Type    byte
	Payload []byte
}

type framedReader struct{ r io.Reader }
type framedWriter struct{ w io.Writer }

func newFramedReader(r io.Reader) *framedReader { return &framedReader{r: r} }
func newFramedWriter(w io.Writer) *framedWriter { return &framedWriter{w: w} }

func (fr *framedReader) ReadFrame() (Frame, error) {
	var hdr [3]byte
	if _, err := io.ReadFull(fr.r, hdr[:]); err != nil {
		return Frame{}, err
	}
	n := int(binary.BigEndian.Uint16(hdr[1:]))
	var buf []byte
	if n > 0 {
		buf = make([]byte, n)
		if _, err := io.ReadFull(fr.r, buf); err != nil {
			return Frame{}, err
		}
	}
	return Frame{Type: hdr[0], Payload: buf}, nil
}

// WriteFrame writes header and payload in one call so a frame is never
// interleaved on the wire.
func (fw *framedWriter) WriteFrame(f Frame) error {
	if len(f.Payload) > maxPayload {
		return errcode.New(errcode.OutOfRange, "irlink.write", "frame too large")
	}
	out := make([]byte, 3, 3+len(f.Payload))
	out[0] = f.Type
	binary.BigEndian.PutUint16(out[1:], uint16(len(f.Payload)))
	out = append(out, f.Payload...)
	_, err := fw.w.Write(out)
	return err
}

// AppendBurst encodes a pulse train as the carrier in kHz (u16 BE) followed
// by each duration as int32 BE.
func AppendBurst(dst []byte, carrierKHz uint16, pulses york.RawFrame) ([]byte, error) {
	if len(pulses) > MaxPulses {
		return dst, errcode.New(errcode.OutOfRange, "irlink.burst", "too many pulses")
	}
	dst = binary.BigEndian.AppendUint16(dst, carrierKHz)
	for _, p := range pulses {
		dst = binary.BigEndian.AppendUint32(dst, uint32(p))
	}
	return dst, nil
}

// ParseBurst is the inverse of AppendBurst.
func ParseBurst(b []byte) (uint16, york.RawFrame, error) {
	if len(b) < 2 || (len(b)-2)%4 != 0 {
		return 0, nil, errcode.New(errcode.InvalidPayload, "irlink.burst", "bad burst length")
	}
	carrier := binary.BigEndian.Uint16(b)
	b = b[2:]
	pulses := make(york.RawFrame, len(b)/4)
	for i := range pulses {
		pulses[i] = int32(binary.BigEndian.Uint32(b[i*4:]))
	}
	return carrier, pulses, nil
}
