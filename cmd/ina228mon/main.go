// Command ina228mon samples an INA228 on a Linux I²C bus and prints each
// reading.
//
//	ina228mon -bus /dev/i2c-1 -shunt 0.002 -imax 10.24
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"ina228-go/bus"
	"ina228-go/drivers/ina228"
	"ina228-go/services/config"
	"ina228-go/services/heartbeat"
	"ina228-go/services/powermon"
	"ina228-go/types"
)

func main() {
	var (
		busName  = flag.String("bus", "/dev/i2c-1", "I²C bus name or number")
		addr     = flag.Uint("addr", ina228.AddressDefault, "7-bit device address")
		name     = flag.String("name", "ina228", "capability name")
		shunt    = flag.Float64("shunt", 0.002, "shunt resistance in ohms")
		imax     = flag.Float64("imax", 10.24, "maximum expected current in amps")
		rng      = flag.String("range", "163.84mV", "shunt ADC range: 163.84mV or 40.96mV")
		interval = flag.Duration("interval", time.Second, "sample interval")
		tempco   = flag.Uint("tempco", 0, "shunt temperature coefficient in ppm/°C, 0 disables compensation")
		split    = flag.Bool("split", false, "read 40-bit accumulators as 4+1 byte transfers")
		cfgFile  = flag.String("config", "", "JSON or YAML config file, published on config/<key>")
		reset    = flag.Bool("reset", false, "reset the device before calibrating")
		once     = flag.Bool("once", false, "print one snapshot and exit")
	)
	flag.Parse()

	r, err := ina228.ParseRange(*rng)
	if err != nil {
		log.Fatalf("-range %q: %v", *rng, err)
	}
	cfg := types.PowerMonConfig{
		Name:          *name,
		Bus:           *busName,
		Addr:          uint16(*addr),
		MaxCurrentA:   *imax,
		ShuntOhms:     *shunt,
		Range:         r.String(),
		SampleEveryMS: int(interval.Milliseconds()),
		TempcoPPM:     uint16(*tempco),
		SplitAccReads: *split,
	}

	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}
	i2c, err := i2creg.Open(*busName)
	if err != nil {
		log.Fatal(err)
	}
	defer i2c.Close()

	dev := ina228.New(i2c, powermon.DeviceConfig(cfg))
	if !dev.Connected() {
		log.Fatalf("no INA228 at %#02x on %s", *addr, *busName)
	}
	if *reset {
		if err := dev.Reset(); err != nil {
			log.Fatal(err)
		}
		time.Sleep(ina228.ResetDelay)
	}

	if *once {
		if err := dev.Calibrate(ina228.Profile{MaxCurrent: *imax, ShuntOhms: *shunt, Range: r}); err != nil {
			log.Fatal(err)
		}
		snap, err := dev.Snapshot()
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("%.6f V  %.6f A  %.6f W  %.3f J  %.3f C  %.2f °C  diag=%#04x",
			snap.BusVoltage, snap.Current, snap.Power, snap.Energy, snap.Charge, snap.DieTemp, uint16(snap.Diag))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b := bus.NewBus(8)
	if *cfgFile != "" {
		raw, err := os.ReadFile(*cfgFile)
		if err != nil {
			log.Fatal(err)
		}
		if ext := filepath.Ext(*cfgFile); ext == ".yaml" || ext == ".yml" {
			if raw, err = config.FromYAML(raw); err != nil {
				log.Fatal(err)
			}
		}
		cs := config.NewConfigService()
		cs.Raw = raw
		cs.Start(ctx, b.NewConnection("config"))
	}

	svc := powermon.New(dev, cfg)
	if err := svc.Start(ctx, b.NewConnection("powermon")); err != nil {
		log.Fatal(err)
	}
	hb := &heartbeat.Service{}
	_ = hb.Start(ctx, b.NewConnection("heartbeat"))

	ui := b.NewConnection("ui")
	values := ui.Subscribe(bus.T("hal", "cap", "power", string(types.KindPowerMonitor), *name, "value"))
	status := ui.Subscribe(bus.T("hal", "cap", "power", string(types.KindPowerMonitor), *name, "status"))
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-values.Channel():
			if v, ok := m.Payload.(types.PowerMonitorValue); ok {
				log.Print(heartbeat.Summary(*name, v))
			}
		case m := <-status.Channel():
			if st, ok := m.Payload.(types.CapabilityStatus); ok {
				log.Printf("status %s %s", st.Link, st.Error)
			}
		}
	}
}
