package diag

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yorkir-go/drivers/york"
	"yorkir-go/errcode"
)

var t0 = time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

func TestBuffer_Empty(t *testing.T) {
	var b Buffer
	d := b.Dump()
	assert.Nil(t, d.LastTX)
	assert.Nil(t, d.LastRX)
}

func TestBuffer_LatestPerDirection(t *testing.T) {
	var b Buffer
	tx1 := york.RawFrame{4652, -2408, 368}
	rx1 := york.RawFrame{4600, -2400, 370}
	tx2 := york.RawFrame{4652, -2408, 368, -944}

	b.RecordTX(tx1, t0)
	b.RecordRX(rx1, t0.Add(time.Second))
	d := b.Dump()
	require.NotNil(t, d.LastTX)
	require.NotNil(t, d.LastRX)
	assert.Equal(t, tx1, d.LastTX.Frame)
	assert.Equal(t, rx1, d.LastRX.Frame)

	b.RecordTX(tx2, t0.Add(2*time.Second))
	d = b.Dump()
	assert.Equal(t, tx2, d.LastTX.Frame)
	assert.Equal(t, rx1, d.LastRX.Frame)
	assert.Equal(t, t0.Add(time.Second), d.LastRX.At)
}

func TestBuffer_CopiesInAndOut(t *testing.T) {
	var b Buffer
	f := york.RawFrame{1, -2, 3}
	b.RecordRX(f, t0)
	f[0] = 99

	d := b.Dump()
	assert.Equal(t, int32(1), d.LastRX.Frame[0])

	d.LastRX.Frame[0] = 42
	assert.Equal(t, int32(1), b.Dump().LastRX.Frame[0])
}

func TestCounters_CountDecode(t *testing.T) {
	var c Counters
	c.CountDecode(&york.DecodeError{Kind: york.KindTruncated})
	c.CountDecode(&york.DecodeError{Kind: york.KindChecksumMismatch})
	c.CountDecode(&york.DecodeError{Kind: york.KindChecksumMismatch})
	c.CountDecode(errcode.New(errcode.UnknownHeader, "test", ""))
	c.CountDecode(&york.DecodeError{Kind: york.KindBadTiming})

	assert.Equal(t, uint32(1), c.Truncated)
	assert.Equal(t, uint32(2), c.ChecksumMismatch)
	assert.Equal(t, uint32(1), c.UnknownHeader)
	assert.Equal(t, uint32(1), c.BadTiming)
	assert.Equal(t, uint32(5), c.DecodeErrors())
}
