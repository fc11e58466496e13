package irlink

import (
	"context"
	"io"
	"sync"

	"yorkir-go/errcode"
	"yorkir-go/types"
)

// Transport is a pluggable link dialler.
type Transport interface {
	Open(ctx context.Context) (io.ReadWriteCloser, error)
	String() string
}

type TransportFactory func(types.IRLinkConfig) (Transport, error)

var (
	regMu    sync.RWMutex
	registry = map[string]TransportFactory{
		"uart": func(cfg types.IRLinkConfig) (Transport, error) { return &uartTransport{cfg: cfg.UART}, nil },
	}
)

// RegisterTransport adds or replaces a transport by name.
func RegisterTransport(name string, f TransportFactory) {
	regMu.Lock()
	defer regMu.Unlock()
	registry[name] = f
}

// newTransport looks up cfg.Transport; empty selects the platform default.
func newTransport(cfg types.IRLinkConfig) (Transport, error) {
	name := cfg.Transport
	if name == "" {
		name = defaultTransport
	}
	regMu.RLock()
	f, ok := registry[name]
	regMu.RUnlock()
	if !ok {
		return nil, errcode.New(errcode.InvalidParams, "irlink.transport", "unknown transport "+name)
	}
	return f(cfg)
}

// ---- uart (on-chip, injected by platform code) ----

// UARTDial is set by platform code. It must open the configured UART.
var UARTDial func(ctx context.Context, u types.UARTConfig) (io.ReadWriteCloser, error)

type uartTransport struct{ cfg types.UARTConfig }

func (u *uartTransport) Open(ctx context.Context) (io.ReadWriteCloser, error) {
	if UARTDial == nil {
		return nil, errcode.New(errcode.Unsupported, "irlink.uart", "no uart on this platform")
	}
	return UARTDial(ctx, u.cfg)
}

func (u *uartTransport) String() string { return "uart" }
