package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Boards without a filesystem resolve their config here.
// Key: device ID (same value placed in ctx under CtxDeviceKey)
// Val: raw YAML bytes for that device
// -----------------------------------------------------------------------------

const cfgPico = `
log:
  level: info
climate:
  fan_mode: 2levels
  vertical_default: "off"
  supports_dry: true
  supports_fan_only: true
  ignore_rx_after_tx_ms: 500
  delay_after_power_forze_button_s: 90
irlink:
  transport: uart
  uart:
    index: 1
    baud: 115200
    tx_pin: 4
    rx_pin: 5
ambient:
  sensors:
    - name: room
      driver: shtc3
      bus: i2c0
      addr: 0x70
      period_ms: 10000
heartbeat:
  interval_s: 10
`

var embeddedConfigs = map[string][]byte{
	"pico": []byte(cfgPico),
}
