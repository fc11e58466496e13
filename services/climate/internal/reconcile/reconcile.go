// Package reconcile owns the authoritative climate state and merges local
// commands, decoded remote frames and ambient readings into it.
package reconcile

import (
	"time"

	"yorkir-go/drivers/york"
)

// Source records which input last changed the state.
type Source uint8

const (
	SourceInit Source = iota
	SourceLocal
	SourceRemote
	SourceForce
)

var sourceNames = [...]string{"init", "local", "remote", "force"}

func (s Source) String() string {
	if int(s) < len(sourceNames) {
		return sourceNames[s]
	}
	return "invalid"
}

func (s Source) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// ForceRequest is a forced-power button press.
type ForceRequest uint8

const (
	ForceOn ForceRequest = iota
	ForceOff
	ForceToggle
)

func (r ForceRequest) String() string {
	switch r {
	case ForceOn:
		return "force_on"
	case ForceOff:
		return "force_off"
	case ForceToggle:
		return "toggle"
	}
	return "invalid"
}

// ClimateState is the authoritative snapshot. PowerOn is the observed power
// status, which forced-power requests may set independently of the command.
type ClimateState struct {
	Command            york.ClimateCommand `json:"command"`
	PowerOn            bool                `json:"power_on"`
	CurrentTemperature *float64            `json:"current_temperature,omitempty"`
	Source             Source              `json:"source"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

func (s ClimateState) clone() ClimateState {
	if s.CurrentTemperature != nil {
		v := *s.CurrentTemperature
		s.CurrentTemperature = &v
	}
	return s
}

// Reconciler is the single writer of ClimateState. It is not safe for
// concurrent use.
type Reconciler struct {
	st         ClimateState
	encodable  func(york.Mode) bool
	suppress   time.Duration
	until      time.Time
	suppressed bool
	lastActive york.Mode
}

// New seeds the state with initial. lastActive is the mode restored when
// power is forced on from off; ModeOff falls back to cool. encodable limits
// the modes remote frames may leave in the state; nil accepts every mode.
func New(initial york.ClimateCommand, lastActive york.Mode, encodable func(york.Mode) bool, suppress time.Duration, now time.Time) *Reconciler {
	if encodable == nil {
		encodable = func(york.Mode) bool { return true }
	}
	if lastActive == york.ModeOff {
		lastActive = york.ModeCool
	}
	initial = initial.Canonical()
	if initial.Mode != york.ModeOff {
		lastActive = initial.Mode
	}
	return &Reconciler{
		st: ClimateState{
			Command:   initial,
			PowerOn:   initial.Power,
			Source:    SourceInit,
			UpdatedAt: now,
		},
		encodable:  encodable,
		suppress:   suppress,
		lastActive: lastActive,
	}
}

// SetSuppression changes the forced-power window used by later requests.
func (r *Reconciler) SetSuppression(d time.Duration) { r.suppress = d }

// ApplyLocal applies a user or automation command. It always wins.
func (r *Reconciler) ApplyLocal(cmd york.ClimateCommand, t time.Time) {
	cmd = cmd.Canonical()
	r.noteActive(cmd.Mode)
	r.st.Command = cmd
	r.st.PowerOn = cmd.Power
	r.st.Source = SourceLocal
	r.st.UpdatedAt = t
}

// ApplyRemote merges a decoded frame. Modes the unit cannot transmit map to
// the nearest one it can. While a forced-power window is open the power axis (and
// with it the mode) keeps its current value. It reports whether the state changed.
func (r *Reconciler) ApplyRemote(cmd york.ClimateCommand, t time.Time) bool {
	cmd = cmd.Canonical()
	if cmd.Power {
		cmd.Mode = r.nearest(cmd.Mode)
	}
	r.Tick(t)
	if r.suppressed {
		cmd.Power = r.st.Command.Power
		cmd.Mode = r.st.Command.Mode
	}
	r.noteActive(cmd.Mode)

	if cmd == r.st.Command && cmd.Power == r.st.PowerOn {
		return false
	}
	r.st.Command = cmd
	r.st.PowerOn = cmd.Power
	r.st.Source = SourceRemote
	r.st.UpdatedAt = t
	return true
}

// ApplyAmbient records the room temperature. Power and mode are untouched.
func (r *Reconciler) ApplyAmbient(tempC float64, t time.Time) bool {
	if c := r.st.CurrentTemperature; c != nil && *c == tempC {
		return false
	}
	v := tempC
	r.st.CurrentTemperature = &v
	r.st.UpdatedAt = t
	return true
}

// ForcePower sets the observed power status, aligns the command with it and
// opens (or replaces) the suppression window. It returns the new status.
func (r *Reconciler) ForcePower(req ForceRequest, t time.Time) bool {
	on := r.st.PowerOn
	switch req {
	case ForceOn:
		on = true
	case ForceOff:
		on = false
	case ForceToggle:
		on = !on
	}

	cmd := r.st.Command
	if on {
		cmd.Power = true
		if cmd.Mode == york.ModeOff {
			cmd.Mode = r.lastActive
		}
	} else {
		r.noteActive(cmd.Mode)
		cmd.Power = false
		cmd.Mode = york.ModeOff
	}

	r.st.Command = cmd
	r.st.PowerOn = on
	r.st.Source = SourceForce
	r.st.UpdatedAt = t
	r.until = t.Add(r.suppress)
	r.suppressed = true
	return on
}

// Tick closes an elapsed suppression window and reports whether it did.
func (r *Reconciler) Tick(t time.Time) bool {
	if r.suppressed && !t.Before(r.until) {
		r.suppressed = false
		return true
	}
	return false
}

// Suppressed reports whether remote power observations are being ignored at t.
func (r *Reconciler) Suppressed(t time.Time) bool { return r.suppressed && t.Before(r.until) }

// SuppressedUntil returns the end of the current window, zero when none is open.
func (r *Reconciler) SuppressedUntil() time.Time {
	if !r.suppressed {
		return time.Time{}
	}
	return r.until
}

// Snapshot returns a copy of the state.
func (r *Reconciler) Snapshot() ClimateState { return r.st.clone() }

func (r *Reconciler) LastActiveMode() york.Mode { return r.lastActive }

func (r *Reconciler) noteActive(m york.Mode) {
	if m != york.ModeOff {
		r.lastActive = m
	}
}

// nearest maps a decoded mode onto one this unit can also transmit. Dry
// prefers cool; anything else prefers auto, then cool.
func (r *Reconciler) nearest(m york.Mode) york.Mode {
	if r.encodable(m) {
		return m
	}
	prefs := [2]york.Mode{york.ModeAuto, york.ModeCool}
	if m == york.ModeDry {
		prefs = [2]york.Mode{york.ModeCool, york.ModeAuto}
	}
	for _, p := range prefs {
		if r.encodable(p) {
			return p
		}
	}
	return york.ModeCool
}
