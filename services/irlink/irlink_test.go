package irlink

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yorkir-go/bus"
	"yorkir-go/drivers/york"
	"yorkir-go/errcode"
	"yorkir-go/types"
)

type pipeTransport struct{ dial func() io.ReadWriteCloser }

func (p *pipeTransport) Open(context.Context) (io.ReadWriteCloser, error) { return p.dial(), nil }
func (p *pipeTransport) String() string                                    { return "pipe" }

// peer is the far end of a net.Pipe: it answers pings and forwards
// every other frame to frames.
type peer struct {
	conn   net.Conn
	frames chan Frame
}

func newPeer(c net.Conn) *peer {
	p := &peer{conn: c, frames: make(chan Frame, 8)}
	go func() {
		rd := newFramedReader(c)
		wr := newFramedWriter(c)
		for {
			f, err := rd.ReadFrame()
			if err != nil {
				close(p.frames)
				return
			}
			if f.Type == framePing {
				_ = wr.WriteFrame(Frame{Type: framePong})
				continue
			}
			p.frames <- f
		}
	}()
	return p
}

func startWithPipe(t *testing.T) (*bus.Connection, *bus.Subscription, chan *peer) {
	t.Helper()
	peers := make(chan *peer, 4)
	RegisterTransport("pipe", func(types.IRLinkConfig) (Transport, error) {
		return &pipeTransport{dial: func() io.ReadWriteCloser {
			lc, rc := net.Pipe()
			peers <- newPeer(rc)
			return lc
		}}, nil
	})

	b := bus.NewBus(16)
	conn := b.NewConnection("irlink_test")
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go Start(ctx, conn)

	stateSub := conn.Subscribe(TopicState)
	t.Cleanup(func() { conn.Unsubscribe(stateSub) })
	assertState(t, stateSub, "idle", "awaiting_config")

	conn.Publish(conn.NewMessage(topicConfig, types.IRLinkConfig{Transport: "pipe", PingS: 1}, false))
	assertState(t, stateSub, "up", "link_established")
	return conn, stateSub, peers
}

func TestLink_TXFramesReachPeer(t *testing.T) {
	conn, _, peers := startWithPipe(t)
	p := <-peers

	pulses := york.RawFrame{4652, -2408, 368, -944, 368}
	conn.Publish(conn.NewMessage(TopicTX, types.IRFrame{CarrierKHz: 38, Pulses: pulses}, false))

	select {
	case f := <-p.frames:
		require.Equal(t, frameTX, f.Type)
		carrier, got, err := ParseBurst(f.Payload)
		require.NoError(t, err)
		assert.Equal(t, uint16(38), carrier)
		assert.Equal(t, pulses, got)
	case <-time.After(time.Second):
		t.Fatal("peer saw no tx frame")
	}
}

func TestLink_RXFramesArePublished(t *testing.T) {
	conn, _, peers := startWithPipe(t)
	p := <-peers
	rx := conn.Subscribe(TopicRX)
	defer conn.Unsubscribe(rx)

	payload, err := AppendBurst(nil, 38, york.RawFrame{9000, -4500, 560})
	require.NoError(t, err)
	require.NoError(t, newFramedWriter(p.conn).WriteFrame(Frame{Type: frameRX, Payload: payload}))

	select {
	case m := <-rx.Channel():
		f := m.Payload.(types.IRFrame)
		assert.Equal(t, york.RawFrame{9000, -4500, 560}, f.Pulses)
		assert.NotZero(t, f.TS)
		assert.False(t, f.At.IsZero())
	case <-time.After(time.Second):
		t.Fatal("no ir/rx message")
	}
}

func TestLink_LossReportsDegradedAndRedials(t *testing.T) {
	_, stateSub, peers := startWithPipe(t)
	p := <-peers
	_ = p.conn.Close()

	assertState(t, stateSub, "degraded", "link_lost_retrying")
	assertState(t, stateSub, "up", "link_established")
	select {
	case <-peers:
	case <-time.After(time.Second):
		t.Fatal("no redial")
	}
}

func TestLink_UnknownTransportYieldsErrorState(t *testing.T) {
	b := bus.NewBus(8)
	conn := b.NewConnection("irlink_test_bad")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Start(ctx, conn)

	stateSub := conn.Subscribe(TopicState)
	defer conn.Unsubscribe(stateSub)
	assertState(t, stateSub, "idle", "awaiting_config")

	conn.Publish(conn.NewMessage(topicConfig, `{"transport":"bogus"}`, false))
	assertState(t, stateSub, "error", "transport_init_failed")
}

func TestLink_TCPTransport(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	tr, err := newTransport(types.IRLinkConfig{Transport: "tcp", TCP: types.TCPConfig{Address: ln.Addr().String()}})
	require.NoError(t, err)
	assert.Equal(t, "tcp:"+ln.Addr().String(), tr.String())

	c, err := tr.Open(context.Background())
	require.NoError(t, err)
	_ = c.Close()

	_, err = newTransport(types.IRLinkConfig{Transport: "tcp", TCP: types.TCPConfig{Address: "nohost"}})
	assert.Error(t, err)
	_, err = newTransport(types.IRLinkConfig{Transport: "serial"})
	assert.Error(t, err)
}

func TestNewTransport_Defaults(t *testing.T) {
	tr, err := newTransport(types.IRLinkConfig{Serial: types.SerialConfig{Port: "/dev/ttyUSB9"}})
	require.NoError(t, err)
	assert.Equal(t, "serial:/dev/ttyUSB9", tr.String())

	tr, err = newTransport(types.IRLinkConfig{Transport: "uart"})
	require.NoError(t, err)
	_, err = tr.Open(context.Background())
	assert.Equal(t, errcode.Unsupported, errcode.Of(err))
}

func TestBurst_Codec(t *testing.T) {
	in := york.RawFrame{4652, -2408, -20340, 2147483647, -2147483648}
	b, err := AppendBurst([]byte{0xAA}, 40, in)
	require.NoError(t, err)
	assert.Equal(t, byte(0xAA), b[0])

	carrier, out, err := ParseBurst(b[1:])
	require.NoError(t, err)
	assert.Equal(t, uint16(40), carrier)
	assert.Equal(t, in, out)

	_, _, err = ParseBurst([]byte{0, 38, 1})
	assert.Error(t, err)
	_, err = AppendBurst(nil, 38, make(york.RawFrame, MaxPulses+1))
	assert.Error(t, err)
}

func assertState(t *testing.T, sub *bus.Subscription, level, status string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case m := <-sub.Channel():
			st, ok := m.Payload.(types.ServiceState)
			require.True(t, ok, "state payload %T", m.Payload)
			if st.Level == level && st.Status == status {
				return
			}
		case <-deadline:
			t.Fatalf("timeout waiting for irlink state %s/%s", level, status)
		}
	}
}
