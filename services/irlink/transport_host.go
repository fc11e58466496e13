//go:build !(rp2040 || rp2350)

package irlink

import (
	"context"
	"io"
	"net"

	"go.bug.st/serial"

	"yorkir-go/errcode"
	"yorkir-go/types"
)

const defaultTransport = "serial"

func init() {
	RegisterTransport("serial", func(cfg types.IRLinkConfig) (Transport, error) { return newSerialTransport(cfg.Serial) })
	RegisterTransport("tcp", func(cfg types.IRLinkConfig) (Transport, error) { return newTCPTransport(cfg.TCP) })
}

// ---- serial (host) ----

type serialTransport struct {
	cfg  types.SerialConfig
	mode *serial.Mode
}

func newSerialTransport(cfg types.SerialConfig) (Transport, error) {
	if cfg.Port == "" {
		return nil, errcode.New(errcode.InvalidParams, "irlink.serial", "port required")
	}
	mode := &serial.Mode{
		BaudRate: cfg.Baud,
		DataBits: int(cfg.DataBits),
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	if mode.BaudRate == 0 {
		mode.BaudRate = 115200
	}
	if mode.DataBits == 0 {
		mode.DataBits = 8
	}
	switch cfg.Parity {
	case types.ParityEven:
		mode.Parity = serial.EvenParity
	case types.ParityOdd:
		mode.Parity = serial.OddParity
	}
	if cfg.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}
	return &serialTransport{cfg: cfg, mode: mode}, nil
}

func (s *serialTransport) Open(ctx context.Context) (io.ReadWriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := serial.Open(s.cfg.Port, s.mode)
	if err != nil {
		return nil, err
	}
	_ = p.ResetInputBuffer()
	return p, nil
}

func (s *serialTransport) String() string { return "serial:" + s.cfg.Port }

// ---- tcp (bench bridges, ser2net) ----

type tcpTransport struct{ addr string }

func newTCPTransport(cfg types.TCPConfig) (Transport, error) {
	if _, _, err := net.SplitHostPort(cfg.Address); err != nil {
		return nil, errcode.Wrap(errcode.InvalidParams, "irlink.tcp", err)
	}
	return &tcpTransport{addr: cfg.Address}, nil
}

func (t *tcpTransport) Open(ctx context.Context) (io.ReadWriteCloser, error) {
	var d net.Dialer
	return d.DialContext(ctx, "tcp", t.addr)
}

func (t *tcpTransport) String() string { return "tcp:" + t.addr }
