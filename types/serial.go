package types

// ------------------------
// Serial
// ------------------------

type Parity uint8

const (
	ParityNone Parity = iota
	ParityEven
	ParityOdd
)

func (p Parity) String() string {
	switch p {
	case ParityEven:
		return "even"
	case ParityOdd:
		return "odd"
	default:
		return "none"
	}
}

func (p Parity) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Parity) UnmarshalText(b []byte) error {
	switch string(b) {
	case "even":
		*p = ParityEven
	case "odd":
		*p = ParityOdd
	default:
		*p = ParityNone
	}
	return nil
}

// SerialConfig opens a host serial port.
type SerialConfig struct {
	Port     string `yaml:"port" json:"port"`
	Baud     int    `yaml:"baud" json:"baud"`
	DataBits uint8  `yaml:"data_bits" json:"data_bits"`
	StopBits uint8  `yaml:"stop_bits" json:"stop_bits"`
	Parity   Parity `yaml:"parity" json:"parity"`
}

// UARTConfig selects an on-chip UART; pins are platform GPIO numbers.
type UARTConfig struct {
	Index int `yaml:"index" json:"index"`
	Baud  int `yaml:"baud" json:"baud"`
	TxPin int `yaml:"tx_pin" json:"tx_pin"`
	RxPin int `yaml:"rx_pin" json:"rx_pin"`
}
