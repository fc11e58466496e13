// Package mqttentity mirrors the climate service onto MQTT as a
// Home Assistant style climate entity.
package mqttentity

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"yorkir-go/bus"
	"yorkir-go/drivers/york"
	"yorkir-go/errcode"
	"yorkir-go/services/climate"
	"yorkir-go/services/heartbeat"
	"yorkir-go/types"
	"yorkir-go/x/logx"
	"yorkir-go/x/timex"
)

const (
	availabilitySuffix = "availability"
	online             = "online"
	offline            = "offline"

	// Heartbeats older than this mark the entity offline.
	DefaultStaleAfter = 30 * time.Second
)

// Button topics under <base>/set/.
const (
	ButtonForceOn  = "force_power_on"
	ButtonForceOff = "force_power_off"
	ButtonToggle   = "toggle_power"
	ButtonDump     = "dump_ir_data"
)

type Entity struct {
	conn *bus.Connection
	br   Broker
	base string
	cli  *climate.Client

	Now        timex.Clock
	StaleAfter time.Duration

	mu       sync.Mutex
	retained map[string][]byte

	cmds chan command
}

type command struct {
	name    string
	payload string
}

func New(conn *bus.Connection, br Broker, base string) *Entity {
	return &Entity{
		conn:       conn,
		br:         br,
		base:       strings.TrimSuffix(base, "/"),
		cli:        climate.NewClient(conn),
		StaleAfter: DefaultStaleAfter,
		retained:   map[string][]byte{},
		cmds:       make(chan command, 16),
	}
}

// Start subscribes <base>/set/# and runs the mirror until ctx ends.
func (e *Entity) Start(ctx context.Context) error {
	prefix := e.base + "/set/"
	err := e.br.Subscribe(prefix+"#", func(topic string, payload []byte) {
		c := command{name: strings.TrimPrefix(topic, prefix), payload: strings.TrimSpace(string(payload))}
		select {
		case e.cmds <- c:
		default:
			logx.Warn("mqtt: command queue full, dropped %s", c.name)
		}
	})
	if err != nil {
		return err
	}
	subs := []*bus.Subscription{
		e.conn.Subscribe(climate.TopicState),
		e.conn.Subscribe(climate.TopicPower),
		e.conn.Subscribe(climate.TopicTraits),
		e.conn.Subscribe(climate.TopicDump),
		e.conn.Subscribe(heartbeat.TopicHeartbeat),
	}
	go e.mirror(ctx, subs)
	go e.commands(ctx)
	return nil
}

// Resync republishes every retained value; call after a broker reconnect.
func (e *Entity) Resync() {
	e.mu.Lock()
	snap := make(map[string][]byte, len(e.retained))
	for k, v := range e.retained {
		snap[k] = v
	}
	e.mu.Unlock()
	for suffix, p := range snap {
		if err := e.br.Publish(e.base+"/"+suffix, true, p); err != nil {
			logx.Warn("mqtt: resync %s: %v", suffix, err)
		}
	}
}

func (e *Entity) mirror(ctx context.Context, subs []*bus.Subscription) {
	defer func() {
		for _, s := range subs {
			e.conn.Unsubscribe(s)
		}
	}()
	stateC, powerC, traitsC, dumpC, beatC := subs[0].Channel(), subs[1].Channel(), subs[2].Channel(), subs[3].Channel(), subs[4].Channel()

	if e.StaleAfter <= 0 {
		e.StaleAfter = DefaultStaleAfter
	}
	tick := time.NewTicker(e.StaleAfter / 3)
	defer tick.Stop()
	var lastBeat time.Time
	avail := ""

	setAvail := func(v string) {
		if v != avail {
			avail = v
			e.publish(availabilitySuffix, true, []byte(v))
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case m := <-stateC:
			e.publishJSON("state", true, m.Payload)
		case m := <-powerC:
			if p, ok := m.Payload.(types.PowerStatusValue); ok {
				e.publish("power_on_status", true, []byte(onOff(p.On)))
			}
		case m := <-traitsC:
			e.publishJSON("traits", true, m.Payload)
		case m := <-dumpC:
			e.publishJSON("dump", false, m.Payload)
		case <-beatC:
			lastBeat = e.Now.Now()
			setAvail(online)
		case <-tick.C:
			if !lastBeat.IsZero() && e.Now.Now().Sub(lastBeat) > e.StaleAfter {
				setAvail(offline)
			}
		}
	}
}

func (e *Entity) commands(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-e.cmds:
			verb, payload, err := translate(c.name, c.payload)
			if err == nil {
				_, err = e.cli.Do(ctx, verb, payload)
			}
			if err != nil {
				logx.Warn("mqtt: set/%s %q: %v", c.name, c.payload, err)
				continue
			}
			logx.Debug("mqtt: set/%s %q applied", c.name, c.payload)
		}
	}
}

func (e *Entity) publishJSON(suffix string, retained bool, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		logx.Error("mqtt: encode %s: %v", suffix, err)
		return
	}
	e.publish(suffix, retained, b)
}

func (e *Entity) publish(suffix string, retained bool, b []byte) {
	if retained {
		e.mu.Lock()
		e.retained[suffix] = b
		e.mu.Unlock()
	}
	if err := e.br.Publish(e.base+"/"+suffix, retained, b); err != nil {
		logx.Warn("mqtt: publish %s: %v", suffix, err)
	}
}

// translate maps a set/<name> message onto a climate control request.
func translate(name, payload string) (string, any, error) {
	const op = "mqtt.set"
	var set types.ClimateSet
	switch name {
	case ButtonForceOn:
		return climate.CtrlForceOn, nil, nil
	case ButtonForceOff:
		return climate.CtrlForceOff, nil, nil
	case ButtonToggle:
		return climate.CtrlToggle, nil, nil
	case ButtonDump:
		return climate.CtrlDump, nil, nil
	case "mode":
		m, err := york.ParseMode(strings.ToLower(payload))
		if err != nil {
			return "", nil, errcode.Wrap(errcode.InvalidPayload, op, err)
		}
		set.Mode = &m
	case "temperature":
		t, err := strconv.ParseFloat(payload, 64)
		if err != nil {
			return "", nil, errcode.Wrap(errcode.InvalidPayload, op, err)
		}
		set.TargetTemperature = &t
	case "fan":
		f, err := york.ParseFanMode(strings.ToLower(payload))
		if err != nil {
			return "", nil, errcode.Wrap(errcode.InvalidPayload, op, err)
		}
		set.Fan = &f
	case "swing":
		s, err := york.ParseVerticalSwing(strings.ToLower(payload))
		if err != nil {
			return "", nil, errcode.Wrap(errcode.InvalidPayload, op, err)
		}
		set.Swing = &s
	case "sleep", "power":
		on, err := parseOnOff(payload)
		if err != nil {
			return "", nil, err
		}
		if name == "sleep" {
			set.Sleep = &on
		} else {
			set.Power = &on
		}
	default:
		return "", nil, errcode.New(errcode.Unsupported, op, "unknown topic set/"+name)
	}
	return climate.CtrlSet, set, nil
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, errcode.New(errcode.InvalidPayload, "mqtt.set", "want ON or OFF, got "+s)
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}
