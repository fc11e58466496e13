package climate

import (
	"time"

	"yorkir-go/drivers/york"
	"yorkir-go/errcode"
	"yorkir-go/types"
)

// OptionsFromConfig turns the config/climate section into Options over table
// and returns the poll interval.
func OptionsFromConfig(cc types.ClimateConfig, table york.Table) (Options, time.Duration, error) {
	const op = "climate.options"
	fan, err := york.ParseFanMode(cc.FanMode)
	if err != nil {
		return Options{}, 0, errcode.Wrap(errcode.InvalidParams, op, err)
	}
	swing, err := york.ParseVerticalSwing(cc.VerticalDefault)
	if err != nil {
		return Options{}, 0, errcode.Wrap(errcode.InvalidParams, op, err)
	}
	poll := time.Duration(cc.PollIntervalMs) * time.Millisecond
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	table.Timing.EmitPreamble = cc.EmitPreamble
	return Options{
		Table: table,
		Capabilities: york.Capabilities{
			SupportsDry:     cc.SupportsDry,
			SupportsFanOnly: cc.SupportsFanOnly,
			SupportsHeat:    cc.SupportsHeat,
		},
		DefaultFan:       fan,
		DefaultSwing:     swing,
		DefaultTemp:      cc.TargetTemperature,
		IgnoreRXAfterTX:  time.Duration(cc.IgnoreRXAfterTXMs) * time.Millisecond,
		ForceSuppression: time.Duration(cc.DelayAfterPowerForceButtonS) * time.Second,
	}, poll, nil
}

// sameShape reports whether a and b differ only in timings.
func sameShape(a, b Options) bool {
	return a.Capabilities == b.Capabilities &&
		a.DefaultFan == b.DefaultFan &&
		a.DefaultSwing == b.DefaultSwing &&
		a.DefaultTemp == b.DefaultTemp &&
		a.Table.Name == b.Table.Name &&
		a.Table.Timing.EmitPreamble == b.Table.Timing.EmitPreamble
}
