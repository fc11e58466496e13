package climate

import (
	"context"
	"encoding/json"
	"time"

	"yorkir-go/bus"
	"yorkir-go/drivers/york"
	"yorkir-go/errcode"
	"yorkir-go/types"
	"yorkir-go/x/logx"
	"yorkir-go/x/timex"
)

// Control verbs on climate/control/<verb>.
const (
	CtrlSet      = "set"
	CtrlForceOn  = "force_on"
	CtrlForceOff = "force_off"
	CtrlToggle   = "toggle"
	CtrlDump     = "dump"
	CtrlState    = "state"
	CtrlTraits   = "traits"
)

var (
	topicConfigClimate = bus.T("config", "climate")
	topicCtrl          = bus.T("climate", "control", "+")
	topicIRRX          = bus.T("ir", "rx")
	topicIRTX          = bus.T("ir", "tx")
	topicLinkState     = bus.T("irlink", "state")
	topicAmbient       = bus.T("env", "temperature", "+")

	TopicState    = bus.T("climate", "state")
	TopicPower    = bus.T("climate", "power_on_status")
	TopicTraits   = bus.T("climate", "traits")
	TopicStatus   = bus.T("climate", "status")
	TopicCounters = bus.T("climate", "counters")
	TopicDump     = bus.T("climate", "event", "dump")
)

// ControlTopic returns the request topic for verb.
func ControlTopic(verb string) bus.Topic { return bus.T("climate", "control", verb) }

// Service owns a Climate from a single goroutine and maps it onto the bus.
type Service struct {
	conn  *bus.Connection
	table york.Table
	now   timex.Clock

	c       *Climate
	poll    time.Duration
	sensor  string
	linkUp  bool
	lastErr error

	cfgSub, ctrlSub, rxSub, ambSub, linkSub *bus.Subscription
}

// NewService builds the adapter. table is the vendor layout; now may be nil.
func NewService(conn *bus.Connection, table york.Table, now timex.Clock) *Service {
	return &Service{conn: conn, table: table, now: now, poll: 100 * time.Millisecond, linkUp: true}
}

// Start subscribes synchronously, then runs the loop until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	s.subscribe()
	go s.loop(ctx)
}

func (s *Service) subscribe() {
	s.cfgSub = s.conn.Subscribe(topicConfigClimate)
	s.ctrlSub = s.conn.Subscribe(topicCtrl)
	s.rxSub = s.conn.Subscribe(topicIRRX)
	s.ambSub = s.conn.Subscribe(topicAmbient)
	s.linkSub = s.conn.Subscribe(topicLinkState)
}

func (s *Service) loop(ctx context.Context) {
	defer s.conn.Disconnect()
	s.publishStatus(types.LevelIdle, "awaiting_config")

	tick := time.NewTicker(s.poll)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			s.publishStatus(types.LevelDown, "stopped")
			return

		case msg := <-s.cfgSub.Channel():
			if s.handleConfig(msg) {
				tick.Reset(s.poll)
			}

		case msg := <-s.ctrlSub.Channel():
			if s.drainConfig() {
				tick.Reset(s.poll)
			}
			s.handleControl(msg)

		case msg := <-s.rxSub.Channel():
			// Local commands already queued win over this frame.
			if s.drainConfig() {
				tick.Reset(s.poll)
			}
			s.drainControl()
			s.handleRX(msg)

		case msg := <-s.ambSub.Channel():
			s.handleAmbient(msg)

		case msg := <-s.linkSub.Channel():
			s.handleLink(msg)

		case <-tick.C:
			if s.c != nil && s.c.OnPollTick(s.now.Now()) {
				s.publishState()
			}
		}
	}
}

func (s *Service) drainConfig() (changed bool) {
	for {
		select {
		case msg := <-s.cfgSub.Channel():
			changed = s.handleConfig(msg) || changed
		default:
			return changed
		}
	}
}

func (s *Service) drainControl() {
	for {
		select {
		case msg := <-s.ctrlSub.Channel():
			s.handleControl(msg)
		default:
			return
		}
	}
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

func (s *Service) handleConfig(msg *bus.Message) bool {
	cc, ok := msg.Payload.(types.ClimateConfig)
	if !ok {
		s.fail("config_wrong_type", errcode.New(errcode.InvalidPayload, "climate.config", "unexpected payload"))
		return false
	}
	opts, poll, err := OptionsFromConfig(cc, s.table)
	if err != nil {
		s.fail("config_invalid", err)
		return false
	}
	s.sensor = cc.AmbientSensor

	if s.c != nil && sameShape(s.c.Options(), opts) {
		if err := s.c.SetTimings(opts.IgnoreRXAfterTX, opts.ForceSuppression); err != nil {
			s.fail("config_invalid", err)
			return false
		}
	} else {
		c, err := New(opts, s.transmitter(), s.now)
		if err != nil {
			s.fail("config_invalid", err)
			return false
		}
		if s.c != nil {
			logx.Warn("climate: capabilities changed, state reset")
		}
		s.c = c
	}
	s.poll = poll
	s.lastErr = nil
	logx.Info("climate: configured (dry=%v fan_only=%v heat=%v guard=%s suppress=%s)",
		opts.Capabilities.SupportsDry, opts.Capabilities.SupportsFanOnly, opts.Capabilities.SupportsHeat,
		opts.IgnoreRXAfterTX, opts.ForceSuppression)

	s.conn.Publish(s.conn.NewMessage(TopicTraits, s.c.Traits(), true))
	s.publishState()
	s.publishStatus(s.level(), "configured")
	return true
}

func (s *Service) handleControl(msg *bus.Message) {
	if msg.Topic.Len() < 3 {
		return
	}
	verb, _ := msg.Topic.At(2).(string)
	if s.c == nil {
		s.replyErr(msg, errcode.New(errcode.NotReady, "climate.control", "awaiting config"))
		return
	}

	var err error
	switch verb {
	case CtrlSet:
		var set types.ClimateSet
		if set, err = decodeSet(msg.Payload); err == nil {
			cur := s.c.State().Command
			err = s.c.SetCommand(set.Merge(cur, s.c.LastActiveMode()))
		}
	case CtrlForceOn:
		err = s.c.ForcePower(ForceOn)
	case CtrlForceOff:
		err = s.c.ForcePower(ForceOff)
	case CtrlToggle:
		err = s.c.ForcePower(ForceToggle)
	case CtrlDump:
		d := s.dumpValue()
		logDump(d)
		s.conn.Publish(s.conn.NewMessage(TopicDump, d, false))
		s.conn.Reply(msg, types.Reply{OK: true, Value: d}, false)
		return
	case CtrlState:
		s.conn.Reply(msg, types.Reply{OK: true, Value: s.stateValue()}, false)
		return
	case CtrlTraits:
		s.conn.Reply(msg, types.Reply{OK: true, Value: s.c.Traits()}, false)
		return
	default:
		s.replyErr(msg, errcode.New(errcode.InvalidTopic, "climate.control", "unknown verb "+verb))
		return
	}

	// Forced power changes state even when the send fails.
	if err == nil || verb != CtrlSet {
		s.publishState()
	}
	if err != nil {
		s.lastErr = err
		s.publishCounters()
		s.replyErr(msg, err)
		return
	}
	s.conn.Reply(msg, types.Reply{OK: true, Value: s.stateValue()}, false)
}

func (s *Service) handleRX(msg *bus.Message) {
	if s.c == nil {
		return
	}
	f, ok := msg.Payload.(types.IRFrame)
	if !ok {
		return
	}
	changed, err := s.c.OnFrameReceived(f.Pulses, f.ReceivedAt(s.now.Now()))
	if err != nil {
		if errcode.Of(err) != errcode.Echo {
			s.lastErr = err
		}
		s.publishCounters()
		return
	}
	if changed {
		s.publishState()
	}
}

func (s *Service) handleAmbient(msg *bus.Message) {
	if s.c == nil || msg.Topic.Len() < 3 {
		return
	}
	if name, _ := msg.Topic.At(2).(string); s.sensor != "" && name != s.sensor {
		return
	}
	v, ok := msg.Payload.(types.TemperatureValue)
	if !ok {
		return
	}
	first := s.c.State().CurrentTemperature == nil
	if s.c.OnAmbient(v.Celsius(), s.now.Now()) {
		if first {
			s.conn.Publish(s.conn.NewMessage(TopicTraits, s.c.Traits(), true))
		}
		s.publishState()
	}
}

func (s *Service) handleLink(msg *bus.Message) {
	st, ok := msg.Payload.(types.ServiceState)
	if !ok {
		return
	}
	// An unconfigured link (idle) does not block transmission.
	up := st.Level != types.LevelDegraded && st.Level != types.LevelError && st.Level != types.LevelDown
	if up != s.linkUp {
		s.linkUp = up
		if s.c != nil {
			s.publishStatus(s.level(), "link_"+st.Level)
		}
	}
}

// -----------------------------------------------------------------------------
// Transmit path
// -----------------------------------------------------------------------------

// busTransmitter publishes ir/tx; it refuses while the IR link is down.
type busTransmitter struct{ s *Service }

func (s *Service) transmitter() Transmitter { return busTransmitter{s} }

func (b busTransmitter) Transmit(f york.RawFrame) error {
	if !b.s.linkUp {
		return errcode.New(errcode.LinkDown, "climate.transmit", "ir link down")
	}
	b.s.conn.Publish(b.s.conn.NewMessage(topicIRTX, types.IRFrame{
		CarrierKHz: b.s.table.Timing.CarrierKHz,
		Pulses:     f.Clone(),
		TS:         b.s.now.Now().UnixMilli(),
	}, false))
	return nil
}

// -----------------------------------------------------------------------------
// Publishing
// -----------------------------------------------------------------------------

func (s *Service) stateValue() types.ClimateStateValue {
	st := s.c.State()
	v := types.ClimateStateValue{
		Power:              st.Command.Power,
		Mode:               st.Command.Mode,
		TargetTemperature:  st.Command.TargetTemperature,
		Fan:                st.Command.Fan,
		Swing:              st.Command.Swing,
		Sleep:              st.Command.Sleep,
		PowerOn:            st.PowerOn,
		CurrentTemperature: st.CurrentTemperature,
		Source:             st.Source.String(),
		TS:                 st.UpdatedAt.UnixMilli(),
	}
	if u := s.c.SuppressedUntil(); !u.IsZero() {
		v.SuppressedUntil = u.UnixMilli()
	}
	return v
}

func (s *Service) publishState() {
	v := s.stateValue()
	s.conn.Publish(s.conn.NewMessage(TopicState, v, true))
	s.conn.Publish(s.conn.NewMessage(TopicPower, types.PowerStatusValue{On: v.PowerOn, TS: v.TS}, true))
}

func (s *Service) publishCounters() {
	if s.c == nil {
		return
	}
	s.conn.Publish(s.conn.NewMessage(TopicCounters, s.c.Counters(), true))
}

func (s *Service) level() string {
	switch {
	case s.c == nil:
		return types.LevelIdle
	case !s.linkUp:
		return types.LevelDegraded
	}
	return types.LevelUp
}

func (s *Service) publishStatus(level, status string) {
	st := types.ServiceState{Level: level, Status: status, TS: s.now.Now().UnixMilli()}
	if s.lastErr != nil {
		st.Error = s.lastErr.Error()
	}
	s.conn.Publish(s.conn.NewMessage(TopicStatus, st, true))
}

func (s *Service) fail(status string, err error) {
	s.lastErr = err
	logx.Error("climate: %s: %v", status, err)
	s.publishStatus(types.LevelError, status)
}

func (s *Service) replyErr(msg *bus.Message, err error) {
	s.conn.Reply(msg, types.Reply{OK: false, Code: string(errcode.Of(err)), Error: err.Error()}, false)
}

func (s *Service) dumpValue() types.DumpValue {
	d := s.c.Dump()
	return types.DumpValue{
		LastTX: s.dumpFrame(d.LastTX),
		LastRX: s.dumpFrame(d.LastRX),
		TS:     s.now.Now().UnixMilli(),
	}
}

func (s *Service) dumpFrame(r *DumpRecord) *types.DumpFrame {
	if r == nil {
		return nil
	}
	out := &types.DumpFrame{Pulses: r.Frame, TS: r.At.UnixMilli()}
	if b, err := s.c.Codec().Demodulate(r.Frame); err == nil {
		out.Bytes = b.Hex()
	}
	return out
}

func logDump(d types.DumpValue) {
	if d.LastTX != nil {
		logx.Info("climate: dump tx [%s] %s", d.LastTX.Bytes, d.LastTX.Pulses)
	} else {
		logx.Info("climate: dump tx none")
	}
	if d.LastRX != nil {
		logx.Info("climate: dump rx [%s] %s", d.LastRX.Bytes, d.LastRX.Pulses)
	} else {
		logx.Info("climate: dump rx none")
	}
}

// decodeSet accepts a typed ClimateSet, a full command, or JSON.
func decodeSet(p any) (types.ClimateSet, error) {
	const op = "climate.set"
	switch v := p.(type) {
	case types.ClimateSet:
		return v, nil
	case *types.ClimateSet:
		if v != nil {
			return *v, nil
		}
	case york.ClimateCommand:
		return types.ClimateSet{
			Power: &v.Power, Mode: &v.Mode, TargetTemperature: &v.TargetTemperature,
			Fan: &v.Fan, Swing: &v.Swing, Sleep: &v.Sleep,
		}, nil
	case []byte:
		var set types.ClimateSet
		if err := json.Unmarshal(v, &set); err != nil {
			return set, errcode.Wrap(errcode.InvalidPayload, op, err)
		}
		return set, nil
	case string:
		return decodeSet([]byte(v))
	}
	return types.ClimateSet{}, errcode.New(errcode.InvalidPayload, op, "unsupported payload")
}
