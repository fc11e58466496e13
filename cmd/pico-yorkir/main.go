//go:build rp2040 || rp2350

// Command pico-yorkir runs the climate bridge on a Pico with the IR front
// end on a UART and an I2C room sensor, using the embedded "pico" config.
package main

import (
	"context"
	"machine"
	"runtime"
	"time"

	"tinygo.org/x/drivers"

	"yorkir-go/bus"
	"yorkir-go/drivers/york"
	"yorkir-go/errcode"
	"yorkir-go/services/ambient"
	"yorkir-go/services/climate"
	"yorkir-go/services/config"
	"yorkir-go/services/heartbeat"
	"yorkir-go/services/irlink"
	"yorkir-go/types"
)

func i2cBus(name string) (drivers.I2C, error) {
	var hw *machine.I2C
	var sda, scl machine.Pin
	switch name {
	case "", "i2c0":
		hw, sda, scl = machine.I2C0, machine.GPIO0, machine.GPIO1
	case "i2c1":
		hw, sda, scl = machine.I2C1, machine.GPIO2, machine.GPIO3
	default:
		return nil, errcode.New(errcode.InvalidParams, "pico.i2c", "no bus "+name)
	}
	if err := hw.Configure(machine.I2CConfig{SDA: sda, SCL: scl, Frequency: 100_000}); err != nil {
		return nil, err
	}
	return hw, nil
}

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("[main] boot")

	ctx := context.WithValue(context.Background(), config.CtxDeviceKey, "pico")
	b := bus.NewBus(8)

	climate.NewService(b.NewConnection("climate"), york.YorkECGS01(), nil).Start(ctx)
	go irlink.Start(ctx, b.NewConnection("irlink"))
	go ambient.NewService(b.NewConnection("ambient"), i2cBus).Start(ctx)
	_ = (&heartbeat.Service{}).Start(ctx, b.NewConnection("heartbeat"))
	config.NewConfigService().Start(ctx, b.NewConnection("config"))

	mon := b.NewConnection("ui").Subscribe(climate.TopicPower)
	for m := range mon.Channel() {
		if p, ok := m.Payload.(types.PowerStatusValue); ok {
			println("[main] power on:", p.On)
		}
		printMem()
	}
}

// printMem prints a compact snapshot of TinyGo runtime memory stats.
func printMem() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	println(
		"[mem]",
		"alloc:", uint32(ms.Alloc),
		"heapInuse:", uint32(ms.HeapInuse),
		"mallocs:", uint32(ms.Mallocs),
		"frees:", uint32(ms.Frees),
	)
}
