package types

// Configuration sections, each published retained on config/<section>.

type Config struct {
	Log       LogConfig       `yaml:"log" json:"log"`
	Climate   ClimateConfig   `yaml:"climate" json:"climate"`
	IRLink    IRLinkConfig    `yaml:"irlink" json:"irlink"`
	Ambient   AmbientConfig   `yaml:"ambient" json:"ambient"`
	MQTT      MQTTConfig      `yaml:"mqtt" json:"mqtt"`
	HTTP      HTTPConfig      `yaml:"http" json:"http"`
	Store     StoreConfig     `yaml:"store" json:"store"`
	Heartbeat HeartbeatConfig `yaml:"heartbeat" json:"heartbeat"`
}

type LogConfig struct {
	Level string `yaml:"level" json:"level"`
}

type ClimateConfig struct {
	FanMode                     string  `yaml:"fan_mode" json:"fan_mode"`
	VerticalDefault             string  `yaml:"vertical_default" json:"vertical_default"`
	SupportsDry                 bool    `yaml:"supports_dry" json:"supports_dry"`
	SupportsFanOnly             bool    `yaml:"supports_fan_only" json:"supports_fan_only"`
	SupportsHeat                bool    `yaml:"supports_heat" json:"supports_heat"`
	IgnoreRXAfterTXMs           int     `yaml:"ignore_rx_after_tx_ms" json:"ignore_rx_after_tx_ms"`
	DelayAfterPowerForceButtonS int     `yaml:"delay_after_power_forze_button_s" json:"delay_after_power_forze_button_s"`
	TargetTemperature           float64 `yaml:"target_temperature" json:"target_temperature"`
	PollIntervalMs              int     `yaml:"poll_interval_ms" json:"poll_interval_ms"`
	EmitPreamble                bool    `yaml:"emit_preamble" json:"emit_preamble"`
	AmbientSensor               string  `yaml:"ambient_sensor" json:"ambient_sensor"` // env/temperature/<name>, empty = any
}

type IRLinkConfig struct {
	Transport string       `yaml:"transport" json:"transport"` // "serial", "tcp", "uart"
	Serial    SerialConfig `yaml:"serial" json:"serial"`
	TCP       TCPConfig    `yaml:"tcp" json:"tcp"`
	UART      UARTConfig   `yaml:"uart" json:"uart"`
	PingS     int          `yaml:"ping_s" json:"ping_s"`
}

type TCPConfig struct {
	Address string `yaml:"address" json:"address"`
}

type AmbientConfig struct {
	Sensors []SensorConfig `yaml:"sensors" json:"sensors"`
}

type SensorConfig struct {
	Name     string `yaml:"name" json:"name"`
	Driver   string `yaml:"driver" json:"driver"` // "shtc3", "aht20"
	Bus      string `yaml:"bus" json:"bus"`
	Addr     uint16 `yaml:"addr" json:"addr"`
	PeriodMs int    `yaml:"period_ms" json:"period_ms"`
}

type MQTTConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Broker    string `yaml:"broker" json:"broker"`
	ClientID  string `yaml:"client_id" json:"client_id"`
	Username  string `yaml:"username" json:"username"`
	Password  string `yaml:"password" json:"-"`
	BaseTopic string `yaml:"base_topic" json:"base_topic"`
	QoS       byte   `yaml:"qos" json:"qos"`
}

type HTTPConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Listen  string `yaml:"listen" json:"listen"`
}

type StoreConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
	Keep    int    `yaml:"keep" json:"keep"`
}

type HeartbeatConfig struct {
	IntervalS int `yaml:"interval_s" json:"interval_s"`
}
