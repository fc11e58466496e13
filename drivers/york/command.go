package york

import "errors"

// Mode is the climate operating mode.
type Mode uint8

const (
	ModeOff Mode = iota
	ModeCool
	ModeHeat
	ModeFanOnly
	ModeDry
	ModeAuto
)

var modeNames = [...]string{"off", "cool", "heat", "fan_only", "dry", "auto"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "invalid"
}

// FanMode is the indoor fan setting.
type FanMode uint8

const (
	FanAuto FanMode = iota
	FanSpeed1
	FanSpeed2
	FanSpeed3
	FanQuiet
	FanTurbo
)

var fanNames = [...]string{"auto", "speed1", "speed2", "speed3", "quiet", "turbo"}

func (f FanMode) String() string {
	if int(f) < len(fanNames) {
		return fanNames[f]
	}
	return "invalid"
}

// VerticalSwing is the louvre setting: sweeping, parked, or a fixed position.
type VerticalSwing uint8

const (
	SwingOff VerticalSwing = iota
	SwingAuto
	SwingPos1
	SwingPos2
	SwingPos3
	SwingPos4
	SwingPos5
)

var swingNames = [...]string{"off", "auto", "pos1", "pos2", "pos3", "pos4", "pos5"}

func (s VerticalSwing) String() string {
	if int(s) < len(swingNames) {
		return swingNames[s]
	}
	return "invalid"
}

// Parse errors.
var (
	ErrUnknownMode  = errors.New("york: unknown mode")
	ErrUnknownFan   = errors.New("york: unknown fan mode")
	ErrUnknownSwing = errors.New("york: unknown vertical swing")
)

func ParseMode(s string) (Mode, error) {
	for i, n := range modeNames {
		if n == s {
			return Mode(i), nil
		}
	}
	if s == "fan" {
		return ModeFanOnly, nil
	}
	return 0, ErrUnknownMode
}

// ParseFanMode accepts the canonical names and the configuration spellings
// "1levels".."3levels" (plus the historic "quite").
func ParseFanMode(s string) (FanMode, error) {
	for i, n := range fanNames {
		if n == s {
			return FanMode(i), nil
		}
	}
	switch s {
	case "1levels", "low":
		return FanSpeed1, nil
	case "2levels", "medium":
		return FanSpeed2, nil
	case "3levels", "high":
		return FanSpeed3, nil
	case "quite":
		return FanQuiet, nil
	}
	return 0, ErrUnknownFan
}

func ParseVerticalSwing(s string) (VerticalSwing, error) {
	for i, n := range swingNames {
		if n == s {
			return VerticalSwing(i), nil
		}
	}
	return 0, ErrUnknownSwing
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }
func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err == nil {
		*m = v
	}
	return err
}

func (f FanMode) MarshalText() ([]byte, error) { return []byte(f.String()), nil }
func (f *FanMode) UnmarshalText(b []byte) error {
	v, err := ParseFanMode(string(b))
	if err == nil {
		*f = v
	}
	return err
}

func (s VerticalSwing) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
func (s *VerticalSwing) UnmarshalText(b []byte) error {
	v, err := ParseVerticalSwing(string(b))
	if err == nil {
		*s = v
	}
	return err
}

// ClimateCommand is the full set of axes a remote transmits in one frame.
type ClimateCommand struct {
	Power             bool          `json:"power"`
	Mode              Mode          `json:"mode"`
	TargetTemperature float64       `json:"target_temperature"`
	Fan               FanMode       `json:"fan_mode"`
	Swing             VerticalSwing `json:"vertical_swing"`
	Sleep             bool          `json:"sleep,omitempty"`
}

// Canonical ties Power and Mode together: an unpowered command is ModeOff and
// ModeOff is unpowered.
func (c ClimateCommand) Canonical() ClimateCommand {
	if c.Mode == ModeOff || !c.Power {
		c.Power = false
		c.Mode = ModeOff
	}
	return c
}

// Capabilities are the construction-time mode flags of the physical unit.
type Capabilities struct {
	SupportsDry     bool `json:"supports_dry" yaml:"supports_dry"`
	SupportsFanOnly bool `json:"supports_fan_only" yaml:"supports_fan_only"`
	SupportsHeat    bool `json:"supports_heat" yaml:"supports_heat"`
}

// Allows reports whether m may be requested on this unit.
func (c Capabilities) Allows(m Mode) bool {
	switch m {
	case ModeOff, ModeCool, ModeAuto:
		return true
	case ModeHeat:
		return c.SupportsHeat
	case ModeDry:
		return c.SupportsDry
	case ModeFanOnly:
		return c.SupportsFanOnly
	default:
		return false
	}
}
