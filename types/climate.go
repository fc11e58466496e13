package types

import (
	"time"

	"yorkir-go/drivers/york"
)

// ------------------------
// Climate control payloads
// ------------------------

// ClimateSet is the payload of climate/control/set. Nil fields keep the
// current value.
type ClimateSet struct {
	Power             *bool               `json:"power,omitempty"`
	Mode              *york.Mode          `json:"mode,omitempty"`
	TargetTemperature *float64            `json:"target_temperature,omitempty"`
	Fan               *york.FanMode       `json:"fan_mode,omitempty"`
	Swing             *york.VerticalSwing `json:"vertical_swing,omitempty"`
	Sleep             *bool               `json:"sleep,omitempty"`
}

// Merge overlays the set fields onto base. Powering on without a mode
// resumes the given one.
func (s ClimateSet) Merge(base york.ClimateCommand, resume york.Mode) york.ClimateCommand {
	if s.Mode != nil {
		base.Mode = *s.Mode
		base.Power = *s.Mode != york.ModeOff
	}
	if s.Power != nil {
		base.Power = *s.Power
		if base.Power && base.Mode == york.ModeOff {
			base.Mode = resume
		}
	}
	if s.TargetTemperature != nil {
		base.TargetTemperature = *s.TargetTemperature
	}
	if s.Fan != nil {
		base.Fan = *s.Fan
	}
	if s.Swing != nil {
		base.Swing = *s.Swing
	}
	if s.Sleep != nil {
		base.Sleep = *s.Sleep
	}
	return base
}

// ClimateStateValue is published retained on climate/state.
type ClimateStateValue struct {
	Power              bool               `json:"power"`
	Mode               york.Mode          `json:"mode"`
	TargetTemperature  float64            `json:"target_temperature"`
	Fan                york.FanMode       `json:"fan_mode"`
	Swing              york.VerticalSwing `json:"vertical_swing"`
	Sleep              bool               `json:"sleep"`
	PowerOn            bool               `json:"power_on"`
	CurrentTemperature *float64           `json:"current_temperature,omitempty"`
	Source             string             `json:"source"`
	SuppressedUntil    int64              `json:"suppressed_until_ms,omitempty"`
	TS                 int64              `json:"ts_ms"`
}

// Command returns the commanded axes.
func (v ClimateStateValue) Command() york.ClimateCommand {
	return york.ClimateCommand{
		Power: v.Power, Mode: v.Mode, TargetTemperature: v.TargetTemperature,
		Fan: v.Fan, Swing: v.Swing, Sleep: v.Sleep,
	}
}

// PowerStatusValue is published retained on climate/power_on_status.
type PowerStatusValue struct {
	On bool  `json:"on"`
	TS int64 `json:"ts_ms"`
}

// IRFrame is a raw burst on ir/tx and ir/rx.
type IRFrame struct {
	CarrierKHz uint16        `json:"carrier_khz"`
	Pulses     york.RawFrame `json:"pulses"`
	TS         int64         `json:"ts_ms"`
	At         time.Time     `json:"-"` // full-resolution receive time, in process only
}

// ReceivedAt prefers At, then TS, then fallback.
func (f IRFrame) ReceivedAt(fallback time.Time) time.Time {
	switch {
	case !f.At.IsZero():
		return f.At
	case f.TS > 0:
		return time.UnixMilli(f.TS)
	default:
		return fallback
	}
}

// DumpFrame is one direction of a dump.
type DumpFrame struct {
	Pulses york.RawFrame `json:"pulses"`
	Bytes  string        `json:"bytes,omitempty"` // hex, when the frame demodulates
	TS     int64         `json:"ts_ms"`
}

// DumpValue is the dump export on climate/event/dump.
type DumpValue struct {
	LastTX *DumpFrame `json:"last_tx,omitempty"`
	LastRX *DumpFrame `json:"last_rx,omitempty"`
	TS     int64      `json:"ts_ms"`
}
