// Package diag keeps the most recent raw IR frame in each direction and the
// error counters of the climate core.
package diag

import (
	"time"

	"yorkir-go/drivers/york"
	"yorkir-go/errcode"
)

// Record is one captured frame.
type Record struct {
	Frame york.RawFrame `json:"frame"`
	At    time.Time     `json:"at"`
}

// Snapshot is the dump export. Nil means nothing was captured yet.
type Snapshot struct {
	LastTX *Record `json:"last_tx,omitempty"`
	LastRX *Record `json:"last_rx,omitempty"`
}

// Buffer holds one record per direction.
type Buffer struct {
	tx, rx *Record
}

func (b *Buffer) RecordTX(f york.RawFrame, at time.Time) {
	b.tx = &Record{Frame: f.Clone(), At: at}
}

func (b *Buffer) RecordRX(f york.RawFrame, at time.Time) {
	b.rx = &Record{Frame: f.Clone(), At: at}
}

// Dump copies the buffer; it does not modify it.
func (b *Buffer) Dump() Snapshot {
	return Snapshot{LastTX: b.tx.copy(), LastRX: b.rx.copy()}
}

func (r *Record) copy() *Record {
	if r == nil {
		return nil
	}
	return &Record{Frame: r.Frame.Clone(), At: r.At}
}

// Counters tally the events that never reach the caller as faults.
type Counters struct {
	Transmitted      uint32 `json:"transmitted"`
	Received         uint32 `json:"received"`
	Applied          uint32 `json:"applied"`
	Echoes           uint32 `json:"echoes"`
	Truncated        uint32 `json:"truncated"`
	ChecksumMismatch uint32 `json:"checksum_mismatch"`
	UnknownHeader    uint32 `json:"unknown_header"`
	BadTiming        uint32 `json:"bad_timing"`
	Unsupported      uint32 `json:"unsupported"`
	TransmitFailures uint32 `json:"transmit_failures"`
}

// DecodeErrors sums the decode rejections.
func (c Counters) DecodeErrors() uint32 {
	return c.Truncated + c.ChecksumMismatch + c.UnknownHeader + c.BadTiming
}

// CountDecode bumps the counter matching err's code.
func (c *Counters) CountDecode(err error) {
	switch errcode.Of(err) {
	case errcode.Truncated:
		c.Truncated++
	case errcode.ChecksumMismatch:
		c.ChecksumMismatch++
	case errcode.UnknownHeader:
		c.UnknownHeader++
	default:
		c.BadTiming++
	}
}
