package york

import (
	"yorkir-go/errcode"
	"yorkir-go/x/conv"
)

// DecodeKind classifies why a received frame was rejected.
type DecodeKind uint8

const (
	KindTruncated DecodeKind = iota + 1
	KindChecksumMismatch
	KindUnknownHeader
	KindBadTiming
)

func (k DecodeKind) Code() errcode.Code {
	switch k {
	case KindTruncated:
		return errcode.Truncated
	case KindChecksumMismatch:
		return errcode.ChecksumMismatch
	case KindUnknownHeader:
		return errcode.UnknownHeader
	case KindBadTiming:
		return errcode.BadTiming
	}
	return errcode.Error
}

// DecodeError reports a rejected frame. Pos is the pulse or byte index
// where decoding stopped.
type DecodeError struct {
	Kind DecodeKind
	Pos  int
}

func (e *DecodeError) Error() string {
	buf := append([]byte("york decode: "), string(e.Kind.Code())...)
	buf = append(buf, " at "...)
	return string(conv.AppendInt(buf, int64(e.Pos)))
}

func (e *DecodeError) Code() errcode.Code { return e.Kind.Code() }

// Is matches errcode values so callers can use errors.Is(err, errcode.Truncated).
func (e *DecodeError) Is(target error) bool {
	c, ok := target.(errcode.Code)
	return ok && c == e.Kind.Code()
}
