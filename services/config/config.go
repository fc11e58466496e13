package config

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"yorkir-go/bus"
	"yorkir-go/drivers/york"
	"yorkir-go/errcode"
	"yorkir-go/types"
	"yorkir-go/x/logx"
)

// -----------------------------------------------------------------------------
// String constants
// -----------------------------------------------------------------------------

type ctxKey string

const (
	serviceName  = "config"
	configPrefix = "config"
	// CtxDeviceKey selects the embedded config when no file is given.
	CtxDeviceKey ctxKey = "device"
)

// EmbeddedConfigLookup allows overriding how embedded configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

// -----------------------------------------------------------------------------
// Loading and validation
// -----------------------------------------------------------------------------

// Defaults returns the schema defaults.
func Defaults() types.Config {
	return types.Config{
		Log: types.LogConfig{Level: "info"},
		Climate: types.ClimateConfig{
			FanMode:                     "2levels",
			VerticalDefault:             "off",
			SupportsDry:                 true,
			SupportsFanOnly:             true,
			IgnoreRXAfterTXMs:           500,
			DelayAfterPowerForceButtonS: 90,
			TargetTemperature:           24,
			PollIntervalMs:              100,
		},
		IRLink: types.IRLinkConfig{
			Serial: types.SerialConfig{Baud: 115200, DataBits: 8, StopBits: 1},
			UART:   types.UARTConfig{Baud: 115200},
			PingS:  5,
		},
		MQTT:      types.MQTTConfig{ClientID: "yorkir", BaseTopic: "yorkir/climate"},
		HTTP:      types.HTTPConfig{Listen: ":8080"},
		Store:     types.StoreConfig{Path: "yorkir.db", Keep: 50},
		Heartbeat: types.HeartbeatConfig{IntervalS: 10},
	}
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(raw []byte) (types.Config, error) {
	cfg := Defaults()
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, errcode.Wrap(errcode.InvalidPayload, "config.parse", err)
	}
	return cfg, Validate(cfg)
}

// Load reads and parses a YAML file.
func Load(path string) (types.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return types.Config{}, errcode.Wrap(errcode.NotReady, "config.load", err)
	}
	return Parse(raw)
}

// Validate applies the schema limits.
func Validate(cfg types.Config) error {
	const op = "config.validate"
	c := cfg.Climate
	if _, err := york.ParseFanMode(c.FanMode); err != nil {
		return errcode.Wrap(errcode.InvalidParams, op, err)
	}
	if _, err := york.ParseVerticalSwing(c.VerticalDefault); err != nil {
		return errcode.Wrap(errcode.InvalidParams, op, err)
	}
	if c.IgnoreRXAfterTXMs < 1 {
		return errcode.New(errcode.OutOfRange, op, "climate.ignore_rx_after_tx_ms must be >= 1")
	}
	if c.DelayAfterPowerForceButtonS < 60 {
		return errcode.New(errcode.OutOfRange, op, "climate.delay_after_power_forze_button_s must be >= 60")
	}
	if c.PollIntervalMs < 10 {
		return errcode.New(errcode.OutOfRange, op, "climate.poll_interval_ms must be >= 10")
	}
	switch cfg.IRLink.Transport {
	case "", "serial", "tcp", "uart":
	default:
		return errcode.New(errcode.InvalidParams, op, "irlink.transport: unknown "+cfg.IRLink.Transport)
	}
	for _, s := range cfg.Ambient.Sensors {
		if s.Name == "" {
			return errcode.New(errcode.InvalidParams, op, "ambient sensor without name")
		}
		switch s.Driver {
		case "shtc3", "aht20":
		default:
			return errcode.New(errcode.InvalidParams, op, "ambient."+s.Name+": unknown driver "+s.Driver)
		}
	}
	if cfg.MQTT.Enabled && cfg.MQTT.Broker == "" {
		return errcode.New(errcode.InvalidParams, op, "mqtt.broker required when enabled")
	}
	return nil
}

// Sections maps each top-level key to its typed payload.
func Sections(cfg types.Config) map[string]any {
	return map[string]any{
		"log":       cfg.Log,
		"climate":   cfg.Climate,
		"irlink":    cfg.IRLink,
		"ambient":   cfg.Ambient,
		"mqtt":      cfg.MQTT,
		"http":      cfg.HTTP,
		"store":     cfg.Store,
		"heartbeat": cfg.Heartbeat,
	}
}

// -----------------------------------------------------------------------------
// Config Service
// -----------------------------------------------------------------------------

type ConfigService struct {
	Name string
	cfg  *types.Config
}

func NewConfigService() *ConfigService {
	return &ConfigService{Name: serviceName}
}

// WithConfig publishes cfg instead of an embedded config.
func (s *ConfigService) WithConfig(cfg types.Config) *ConfigService {
	s.cfg = &cfg
	return s
}

func (s *ConfigService) resolve(ctx context.Context) (types.Config, error) {
	if s.cfg != nil {
		return *s.cfg, nil
	}
	device, _ := ctx.Value(CtxDeviceKey).(string)
	if device == "" {
		return types.Config{}, errcode.New(errcode.InvalidParams, "config.resolve", "missing device ID in context")
	}
	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return types.Config{}, errcode.New(errcode.NotReady, "config.resolve", "no embedded config for device: "+device)
	}
	return Parse(raw)
}

// publishConfig publishes every section retained on config/<key>.
func (s *ConfigService) publishConfig(ctx context.Context, conn *bus.Connection) error {
	cfg, err := s.resolve(ctx)
	if err != nil {
		return err
	}
	logx.SetLevel(logx.ParseLevel(cfg.Log.Level))
	for k, v := range Sections(cfg) {
		conn.Publish(conn.NewMessage(bus.T(configPrefix, k), v, true))
	}
	return nil
}

// Start launches the config publisher in a goroutine.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if err := s.publishConfig(ctx, conn); err != nil {
			logx.Error("config: %v", err)
		}
	}()
}
