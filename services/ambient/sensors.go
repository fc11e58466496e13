package ambient

import (
	"context"
	"sync"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/shtc3"

	"yorkir-go/drivers/aht20"
	"yorkir-go/errcode"
	"yorkir-go/x/mathx"
)

// Reading is one fixed-point sample.
type Reading struct {
	DeciC  int16
	RHx100 uint16
}

// Sensor performs one blocking measurement.
type Sensor interface {
	Read(ctx context.Context) (Reading, error)
}

// Builder makes a sensor on an I2C bus at addr (zero takes the part's
// default address).
type Builder func(i2c drivers.I2C, addr uint16) (Sensor, error)

var (
	buildersMu sync.RWMutex
	builders   = map[string]Builder{
		"aht20": newAHT20,
		"shtc3": newSHTC3,
	}
)

// RegisterSensor adds or replaces a driver by name.
func RegisterSensor(driver string, b Builder) {
	buildersMu.Lock()
	defer buildersMu.Unlock()
	builders[driver] = b
}

func build(driver string, i2c drivers.I2C, addr uint16) (Sensor, error) {
	buildersMu.RLock()
	b, ok := builders[driver]
	buildersMu.RUnlock()
	if !ok {
		return nil, errcode.New(errcode.UnknownSensor, "ambient.build", "unknown driver "+driver)
	}
	return b(i2c, addr)
}

func clampReading(deciC, rhx100 int32) Reading {
	return Reading{
		DeciC:  int16(mathx.Clamp(deciC, -32768, 32767)),
		RHx100: uint16(mathx.Clamp(rhx100, 0, 10000)),
	}
}

// ---- aht20 ----

type aht20Sensor struct{ dev *aht20.Device }

func newAHT20(i2c drivers.I2C, addr uint16) (Sensor, error) {
	dev := aht20.New(i2c, aht20.Config{Address: addr})
	if err := dev.Configure(); err != nil {
		return nil, err
	}
	return &aht20Sensor{dev: dev}, nil
}

func (a *aht20Sensor) Read(ctx context.Context) (Reading, error) {
	s, err := a.dev.Read(ctx)
	if err != nil {
		return Reading{}, err
	}
	return clampReading(s.DeciCelsius(), s.RHx100()), nil
}

// ---- shtc3 (fixed address 0x70) ----

type shtc3Sensor struct{ dev shtc3.Device }

func newSHTC3(i2c drivers.I2C, _ uint16) (Sensor, error) {
	return &shtc3Sensor{dev: shtc3.New(i2c)}, nil
}

func (s *shtc3Sensor) Read(ctx context.Context) (Reading, error) {
	if err := ctx.Err(); err != nil {
		return Reading{}, err
	}
	_ = s.dev.WakeUp()
	defer func() { _ = s.dev.Sleep() }()

	tmc, rh, err := s.dev.ReadTemperatureHumidity()
	if err != nil {
		return Reading{}, errcode.Wrap(errcode.Error, "shtc3.read", err)
	}
	return clampReading(tmc/100, int32(rh)), nil
}
