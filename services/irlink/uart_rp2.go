//go:build rp2040 || rp2350

package irlink

import (
	"context"
	"io"
	"machine"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"

	"yorkir-go/errcode"
	"yorkir-go/types"
)

const defaultTransport = "uart"

func init() { UARTDial = dialRP2 }

func dialRP2(_ context.Context, c types.UARTConfig) (io.ReadWriteCloser, error) {
	var hw *uartx.UART
	switch c.Index {
	case 0:
		hw = uartx.UART0
	case 1:
		hw = uartx.UART1
	default:
		return nil, errcode.New(errcode.InvalidParams, "irlink.uart", "no such uart")
	}
	if err := hw.Configure(uartx.UARTConfig{
		BaudRate: uint32(c.Baud),
		TX:       machine.Pin(c.TxPin),
		RX:       machine.Pin(c.RxPin),
	}); err != nil {
		return nil, err
	}
	return &rp2Port{u: hw}, nil
}

// rp2Port adapts uartx to io.ReadWriteCloser. Close leaves the peripheral
// configured; a redial reconfigures it.
type rp2Port struct{ u *uartx.UART }

func (p *rp2Port) Read(b []byte) (int, error) {
	return p.u.RecvSomeContext(context.Background(), b)
}

func (p *rp2Port) Write(b []byte) (int, error) { return p.u.Write(b) }
func (p *rp2Port) Close() error                { return nil }
