// Package aht20 drives the AHT20 temperature/humidity sensor with a
// two-phase measurement:
//
//	d.Trigger()          // start a conversion
//	err := d.Collect(&s) // errcode.NotReady while the sensor is busy
//
// Read does both with bounded polling. Values are fixed-point tenths.
//
// I2C.Tx must perform a write followed by a repeated-start read when both
// w and r are given.
package aht20

import (
	"context"
	"time"

	"tinygo.org/x/drivers"

	"yorkir-go/errcode"
)

const Address = 0x38

const (
	cmdTrigger    = 0xAC
	cmdInitialize = 0xBE
	cmdSoftReset  = 0xBA
	cmdStatus     = 0x71

	statusBusy       = 0x80
	statusCalibrated = 0x08
)

var (
	ErrNotReady = errcode.New(errcode.NotReady, "aht20.collect", "conversion in progress")
	ErrTimeout  = errcode.New(errcode.Timeout, "aht20.read", "no sample")
)

// Config is optional; zero fields take defaults.
type Config struct {
	Address        uint16        // 0x38
	PollInterval   time.Duration // 15 ms
	CollectTimeout time.Duration // 250 ms
	TriggerHint    time.Duration // 80 ms, nominal conversion time
}

func (c Config) withDefaults() Config {
	if c.Address == 0 {
		c.Address = Address
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 15 * time.Millisecond
	}
	if c.CollectTimeout <= 0 {
		c.CollectTimeout = 250 * time.Millisecond
	}
	if c.TriggerHint <= 0 {
		c.TriggerHint = 80 * time.Millisecond
	}
	return c
}

type Device struct {
	bus drivers.I2C
	cfg Config
	buf [7]byte
}

// New does not touch the bus; call Configure before the first measurement.
func New(bus drivers.I2C, cfg Config) *Device {
	return &Device{bus: bus, cfg: cfg.withDefaults()}
}

// Configure calibrates the sensor unless it reports calibrated already.
func (d *Device) Configure() error {
	st, err := d.Status()
	if err == nil && st&statusCalibrated != 0 {
		return nil
	}
	if err := d.bus.Tx(d.cfg.Address, []byte{cmdInitialize, 0x08, 0x00}, nil); err != nil {
		return errcode.Wrap(errcode.Error, "aht20.configure", err)
	}
	time.Sleep(10 * time.Millisecond)
	return nil
}

// Reset issues a soft reset; allow ~20 ms before the next command.
func (d *Device) Reset() error {
	return d.bus.Tx(d.cfg.Address, []byte{cmdSoftReset}, nil)
}

func (d *Device) Status() (byte, error) {
	var st [1]byte
	if err := d.bus.Tx(d.cfg.Address, []byte{cmdStatus}, st[:]); err != nil {
		return 0, err
	}
	return st[0], nil
}

func (d *Device) Trigger() error {
	return d.bus.Tx(d.cfg.Address, []byte{cmdTrigger, 0x33, 0x00}, nil)
}

func (d *Device) TriggerHint() time.Duration { return d.cfg.TriggerHint }

// Collect fetches a finished conversion into out.
func (d *Device) Collect(out *Sample) error {
	data := d.buf[:]
	if err := d.bus.Tx(d.cfg.Address, nil, data); err != nil {
		return err
	}
	if data[0]&statusCalibrated == 0 || data[0]&statusBusy != 0 {
		return ErrNotReady
	}
	out.RawHumidity = uint32(data[1])<<12 | uint32(data[2])<<4 | uint32(data[3])>>4
	out.RawTemp = uint32(data[3]&0x0F)<<16 | uint32(data[4])<<8 | uint32(data[5])
	return nil
}

// Read triggers a conversion and polls until it completes, the collect
// timeout elapses or ctx ends.
func (d *Device) Read(ctx context.Context) (Sample, error) {
	var s Sample
	if err := d.Trigger(); err != nil {
		return s, err
	}
	deadline := time.Now().Add(d.cfg.CollectTimeout)
	wait := d.cfg.TriggerHint
	for {
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return s, ctx.Err()
		case <-t.C:
		}
		err := d.Collect(&s)
		if err != ErrNotReady {
			return s, err
		}
		if time.Now().After(deadline) {
			return s, ErrTimeout
		}
		wait = d.cfg.PollInterval
	}
}

// Sample holds the raw 20-bit readings.
type Sample struct {
	RawHumidity uint32
	RawTemp     uint32
}

// DeciCelsius returns tenths of °C.
func (s Sample) DeciCelsius() int32 {
	return int32(int64(s.RawTemp)*2000/0x100000) - 500
}

// RHx100 returns hundredths of %RH.
func (s Sample) RHx100() int32 {
	return int32(int64(s.RawHumidity) * 10000 / 0x100000)
}
