//go:build rp2040 || rp2350

// Firmware for a Pico / Pico 2 with an INA228 on i2c0 (default pins). The
// embedded "pico" config supplies address, calibration and sample rate.
package main

import (
	"context"
	"machine"
	"time"

	"ina228-go/bus"
	"ina228-go/drivers/ina228"
	"ina228-go/services/config"
	"ina228-go/services/heartbeat"
	"ina228-go/services/powermon"
	"ina228-go/types"
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("boot")

	i2c := machine.I2C0
	if err := i2c.Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
		SDA:       machine.I2C0_SDA_PIN,
		SCL:       machine.I2C0_SCL_PIN,
	}); err != nil {
		println("Error: i2c0 configure:", err.Error())
	}

	ctx := context.WithValue(context.Background(), config.CtxDeviceKey, "pico")
	b := bus.NewBus(4)

	conn := b.NewConnection("powermon")
	cfgSub := conn.Subscribe(bus.T("config", "powermon"))
	config.NewConfigService().Start(ctx, b.NewConnection("config"))

	// Address, calibration and sample rate all come from config/powermon.
	var cfg types.PowerMonConfig
	for {
		c, err := powermon.DecodeConfig((<-cfgSub.Channel()).Payload)
		if err == nil {
			cfg = c
			break
		}
		println("Error: powermon config:", err.Error())
	}
	conn.Unsubscribe(cfgSub)

	dev := ina228.New(i2c, powermon.DeviceConfig(cfg))
	for !dev.Connected() {
		println("Warn: no INA228 at address", int(dev.Address()))
		time.Sleep(time.Second)
	}

	svc := powermon.New(dev, cfg)
	if err := svc.Start(ctx, conn); err != nil {
		println("Error: powermon:", err.Error())
	}

	hb := &heartbeat.Service{}
	_ = hb.Start(ctx, b.NewConnection("heartbeat"))

	select {}
}
