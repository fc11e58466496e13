package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"yorkir-go/drivers/york"
	"yorkir-go/x/conv"
)

var allCaps = york.Capabilities{SupportsDry: true, SupportsFanOnly: true, SupportsHeat: true}

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Print the York frame for a command",
	RunE: func(cmd *cobra.Command, _ []string) error {
		f := cmd.Flags()
		modeS, _ := f.GetString("mode")
		fanS, _ := f.GetString("fan")
		swingS, _ := f.GetString("swing")
		temp, _ := f.GetFloat64("temp")
		sleep, _ := f.GetBool("sleep")
		preamble, _ := f.GetBool("preamble")

		mode, err := york.ParseMode(modeS)
		if err != nil {
			return err
		}
		fan, err := york.ParseFanMode(fanS)
		if err != nil {
			return err
		}
		swing, err := york.ParseVerticalSwing(swingS)
		if err != nil {
			return err
		}
		table := york.YorkECGS01()
		table.Timing.EmitPreamble = preamble
		codec, err := york.NewCodec(table, allCaps)
		if err != nil {
			return err
		}
		c := york.ClimateCommand{Power: mode != york.ModeOff, Mode: mode, TargetTemperature: temp, Fan: fan, Swing: swing, Sleep: sleep}
		b, err := codec.EncodeBytes(c)
		if err != nil {
			return err
		}
		raw := codec.Modulate(b)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "bytes:  %s\n", b.Hex())
		fmt.Fprintf(out, "pulses: %s\n", raw)
		return nil
	},
}

var decodeCmd = &cobra.Command{
	Use:   "decode [pulses...]",
	Short: "Decode a York frame from pulses or --hex bytes",
	RunE: func(cmd *cobra.Command, args []string) error {
		codec, err := york.NewCodec(york.YorkECGS01(), allCaps)
		if err != nil {
			return err
		}
		hexS, _ := cmd.Flags().GetString("hex")
		var c york.ClimateCommand
		if hexS != "" {
			b, ok := conv.ParseHex(hexS)
			if !ok {
				return fmt.Errorf("bad hex %q", hexS)
			}
			if c, err = codec.DecodeBytes(york.Frame(b)); err != nil {
				return err
			}
		} else {
			raw, err := parsePulses(strings.Join(args, " "))
			if err != nil {
				return err
			}
			if c, err = codec.Decode(raw); err != nil {
				return err
			}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(c)
	},
}

func init() {
	f := encodeCmd.Flags()
	f.String("mode", "cool", "off, cool, heat, fan_only, dry or auto")
	f.Float64("temp", 24, "target temperature in °C")
	f.String("fan", "auto", "fan mode")
	f.String("swing", "off", "vertical swing")
	f.Bool("sleep", false, "sleep mode")
	f.Bool("preamble", false, "emit the optional preamble")

	decodeCmd.Flags().String("hex", "", `frame bytes, e.g. "16 12 00 00 00 00 24 CC"`)
}

// parsePulses accepts durations separated by commas and/or spaces.
func parsePulses(s string) (york.RawFrame, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\n' || r == '\t' })
	if len(fields) == 0 {
		return nil, fmt.Errorf("no pulses given")
	}
	out := make(york.RawFrame, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseInt(f, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("pulse %q: %w", f, err)
		}
		out = append(out, int32(v))
	}
	return out, nil
}
