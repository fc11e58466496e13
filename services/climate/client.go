package climate

import (
	"context"
	"fmt"
	"time"

	"yorkir-go/bus"
	"yorkir-go/errcode"
	"yorkir-go/types"
)

const DefaultRequestTimeout = 2 * time.Second

// Client issues control requests to a running Service over the bus.
type Client struct {
	conn    *bus.Connection
	timeout time.Duration
}

func NewClient(conn *bus.Connection) *Client {
	return &Client{conn: conn, timeout: DefaultRequestTimeout}
}

// Do sends verb with payload and returns the reply value. A failed reply
// comes back as an *errcode.E carrying the service's code.
func (c *Client) Do(ctx context.Context, verb string, payload any) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	m, err := c.conn.RequestWait(ctx, c.conn.NewMessage(ControlTopic(verb), payload, false))
	if err != nil {
		return nil, err
	}
	r, ok := m.Payload.(types.Reply)
	if !ok {
		return nil, errcode.New(errcode.InvalidPayload, "climate."+verb, fmt.Sprintf("reply %T", m.Payload))
	}
	if !r.OK {
		return nil, errcode.New(errcode.Code(r.Code), "climate."+verb, r.Error)
	}
	return r.Value, nil
}

func (c *Client) State(ctx context.Context) (types.ClimateStateValue, error) {
	v, err := c.Do(ctx, CtrlState, nil)
	if err != nil {
		return types.ClimateStateValue{}, err
	}
	st, _ := v.(types.ClimateStateValue)
	return st, nil
}

func (c *Client) Set(ctx context.Context, set types.ClimateSet) (types.ClimateStateValue, error) {
	v, err := c.Do(ctx, CtrlSet, set)
	if err != nil {
		return types.ClimateStateValue{}, err
	}
	st, _ := v.(types.ClimateStateValue)
	return st, nil
}

// Power sends one of CtrlForceOn, CtrlForceOff or CtrlToggle.
func (c *Client) Power(ctx context.Context, verb string) (types.ClimateStateValue, error) {
	switch verb {
	case CtrlForceOn, CtrlForceOff, CtrlToggle:
	default:
		return types.ClimateStateValue{}, errcode.New(errcode.InvalidParams, "climate.power", "unknown action "+verb)
	}
	v, err := c.Do(ctx, verb, nil)
	if err != nil {
		return types.ClimateStateValue{}, err
	}
	st, _ := v.(types.ClimateStateValue)
	return st, nil
}

func (c *Client) Dump(ctx context.Context) (types.DumpValue, error) {
	v, err := c.Do(ctx, CtrlDump, nil)
	if err != nil {
		return types.DumpValue{}, err
	}
	d, _ := v.(types.DumpValue)
	return d, nil
}

func (c *Client) Traits(ctx context.Context) (Traits, error) {
	v, err := c.Do(ctx, CtrlTraits, nil)
	if err != nil {
		return Traits{}, err
	}
	tr, _ := v.(Traits)
	return tr, nil
}
