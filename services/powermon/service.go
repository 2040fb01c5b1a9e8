// Package powermon samples one INA228 power monitor and publishes its
// readings on the bus:
//
//	hal/cap/power/monitor/<name>/info            retained, calibration
//	hal/cap/power/monitor/<name>/value           retained, latest sample
//	hal/cap/power/monitor/<name>/status          retained, link state
//	hal/cap/power/monitor/<name>/control/<verb>  read | reset_energy | calibrate
//
// Configuration arrives on config/powermon (see types.PowerMonConfig).
package powermon

import (
	"context"
	"time"

	"ina228-go/bus"
	"ina228-go/drivers/ina228"
	"ina228-go/errcode"
	"ina228-go/types"
	"ina228-go/x/mathx"
)

const (
	defaultName     = "ina228"
	defaultInterval = 1000 * time.Millisecond
	minInterval     = 10 * time.Millisecond
	maxInterval     = time.Hour
)

var topicConfigPowerMon = bus.T("config", "powermon")

// Monitor is the driver surface the service depends upon.
type Monitor interface {
	Calibrate(ina228.Profile) error
	Calibrated() bool
	Profile() ina228.Profile
	Address() uint16
	Connected() bool
	ResetAccumulators() error
	SnapshotInto(*ina228.Snapshot) error
	EnableTempComp(on bool) error
	SetShuntTempco(ppm uint16) error
}

type Service struct {
	dev      Monitor
	cfg      types.PowerMonConfig
	capAddr  types.CapabilityAddress
	interval time.Duration

	link    types.Link
	linkErr errcode.Code
}

func New(dev Monitor, cfg types.PowerMonConfig) *Service {
	if cfg.Name == "" {
		cfg.Name = defaultName
	}
	return &Service{
		dev:      dev,
		cfg:      cfg,
		capAddr:  types.CapabilityAddress{Domain: "power", Kind: types.KindPowerMonitor, Name: cfg.Name},
		interval: sampleInterval(cfg.SampleEveryMS),
	}
}

// DecodeConfig reads a config/powermon payload (typed, JSON bytes or a
// decoded JSON object).
func DecodeConfig(payload any) (types.PowerMonConfig, error) {
	var c types.PowerMonConfig
	if err := decode(payload, &c); err != nil {
		return c, errcode.InvalidPayload
	}
	return c, nil
}

// DeviceConfig returns the driver settings named by c.
func DeviceConfig(c types.PowerMonConfig) ina228.Config {
	return ina228.Config{Address: c.Addr, SplitAccumulatorReads: c.SplitAccReads}
}

func sampleInterval(ms int) time.Duration {
	if ms <= 0 {
		return defaultInterval
	}
	return mathx.Clamp(time.Duration(ms)*time.Millisecond, minInterval, maxInterval)
}

// ---------------- Topics ----------------

func (s *Service) capBase() bus.Topic {
	return bus.T("hal", "cap", s.capAddr.Domain, string(s.capAddr.Kind), s.capAddr.Name)
}
func (s *Service) topicInfo() bus.Topic   { return s.capBase().Append("info") }
func (s *Service) topicValue() bus.Topic  { return s.capBase().Append("value") }
func (s *Service) topicStatus() bus.Topic { return s.capBase().Append("status") }
func (s *Service) topicCtrl() bus.Topic   { return s.capBase().Append("control", bus.AnyOne) }

// ---------------- Lifecycle ----------------

// Start checks the device answers, applies the configured calibration,
// publishes info and launches the sampling loop. On failure the status goes
// down, the error is returned and nothing is started.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	if err := s.setup(); err != nil {
		println("Error: powermon", s.cfg.Name, "setup failed:", err.Error())
		s.setStatus(conn, types.LinkDown, errcode.Of(err))
		return err
	}
	s.publishInfo(conn)

	cfgSub := conn.Subscribe(topicConfigPowerMon)
	ctrlSub := conn.Subscribe(s.topicCtrl())
	go s.serviceLoop(ctx, conn, cfgSub, ctrlSub)
	return nil
}

func (s *Service) setup() error {
	if !s.dev.Connected() {
		return errcode.NotConnected
	}
	if s.cfg.MaxCurrentA != 0 || s.cfg.ShuntOhms != 0 {
		p, err := profileOf(s.cfg.MaxCurrentA, s.cfg.ShuntOhms, s.cfg.Range, ina228.Range163mV)
		if err != nil {
			return err
		}
		if err := s.dev.Calibrate(p); err != nil {
			return err
		}
	}
	if s.cfg.TempcoPPM != 0 {
		if err := s.dev.SetShuntTempco(s.cfg.TempcoPPM); err != nil {
			return err
		}
		if err := s.dev.EnableTempComp(true); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection, cfgSub, ctrlSub *bus.Subscription) {
	defer conn.Unsubscribe(cfgSub)
	defer conn.Unsubscribe(ctrlSub)

	tick := time.NewTicker(s.interval)
	defer tick.Stop()

	println("Info: powermon", s.cfg.Name, "started")
	for {
		select {
		case <-ctx.Done():
			println("Info: powermon", s.cfg.Name, "stopping")
			return
		case <-tick.C:
			_ = s.sample(conn)
		case msg := <-cfgSub.Channel():
			if iv := s.applyConfig(conn, msg.Payload); iv > 0 {
				tick.Reset(iv)
			}
		case msg := <-ctrlSub.Channel():
			s.control(conn, msg)
		}
	}
}

// ---------------- Sampling ----------------

func (s *Service) sample(conn *bus.Connection) error {
	var snap ina228.Snapshot
	err := s.dev.SnapshotInto(&snap)
	if err != nil {
		code := errcode.Of(err)
		if s.link != types.LinkDegraded {
			println("Warn: powermon", s.cfg.Name, "sample failed:", string(code))
		}
		s.setStatus(conn, types.LinkDegraded, code)
		return err
	}
	conn.Publish(&bus.Message{
		Topic:    s.topicValue(),
		Payload:  valueOf(snap, time.Now().UnixMilli()),
		Retained: true,
	})
	s.setStatus(conn, types.LinkUp, "")
	return nil
}

func valueOf(snap ina228.Snapshot, ts int64) types.PowerMonitorValue {
	return types.PowerMonitorValue{
		BusV:     snap.BusVoltage,
		ShuntV:   snap.ShuntVoltage,
		CurrentA: snap.Current,
		PowerW:   snap.Power,
		EnergyJ:  snap.Energy,
		ChargeC:  snap.Charge,
		DieC:     snap.DieTemp,
		Diag:     uint16(snap.Diag),
		TS:       ts,
	}
}

// setStatus publishes only on change.
func (s *Service) setStatus(conn *bus.Connection, link types.Link, code errcode.Code) {
	if s.link == link && s.linkErr == code {
		return
	}
	s.link, s.linkErr = link, code
	conn.Publish(&bus.Message{
		Topic:    s.topicStatus(),
		Payload:  types.CapabilityStatus{Link: link, TS: time.Now().UnixMilli(), Error: string(code)},
		Retained: true,
	})
}

func (s *Service) publishInfo(conn *bus.Connection) {
	p := s.dev.Profile()
	conn.Publish(&bus.Message{
		Topic: s.topicInfo(),
		Payload: types.Info{
			SchemaVersion: 1,
			Driver:        "ina228",
			Detail: types.PowerMonitorInfo{
				Bus:         s.cfg.Bus,
				Addr:        s.dev.Address(),
				MaxCurrentA: p.MaxCurrent,
				ShuntOhms:   p.ShuntOhms,
				Range:       p.Range.String(),
				CurrentLSB:  p.CurrentLSB,
				ShuntCal:    p.Cal,
				Calibrated:  s.dev.Calibrated(),
			},
		},
		Retained: true,
	})
}

// ---------------- Config ----------------

// applyConfig merges a config update and returns a new sample interval, or
// 0 if unchanged. Bus and address changes need a restart.
func (s *Service) applyConfig(conn *bus.Connection, payload any) time.Duration {
	next := s.cfg
	if err := decode(payload, &next); err != nil {
		println("Warn: powermon bad config:", err.Error())
		return 0
	}
	if next.Bus != s.cfg.Bus || next.Addr != s.cfg.Addr || next.Name != s.cfg.Name || next.SplitAccReads != s.cfg.SplitAccReads {
		println("Warn: powermon bus/addr/name/split_acc_reads changes need a restart; ignored")
		next.Bus, next.Addr, next.Name, next.SplitAccReads = s.cfg.Bus, s.cfg.Addr, s.cfg.Name, s.cfg.SplitAccReads
	}

	var iv time.Duration
	if next.SampleEveryMS != s.cfg.SampleEveryMS {
		iv = sampleInterval(next.SampleEveryMS)
		s.interval = iv
		println("Info: powermon sample interval set to", iv.String())
	}

	cur := s.dev.Profile()
	want, err := profileOf(next.MaxCurrentA, next.ShuntOhms, next.Range, cur.Range)
	switch {
	case next.MaxCurrentA == 0 && next.ShuntOhms == 0:
	case err != nil:
		println("Warn: powermon bad calibration in config:", err.Error())
		next.MaxCurrentA, next.ShuntOhms, next.Range = s.cfg.MaxCurrentA, s.cfg.ShuntOhms, s.cfg.Range
	case !s.dev.Calibrated() || want.MaxCurrent != cur.MaxCurrent || want.ShuntOhms != cur.ShuntOhms || want.Range != cur.Range:
		if err := s.dev.Calibrate(want); err != nil {
			println("Warn: powermon calibration failed:", err.Error())
			s.setStatus(conn, types.LinkDegraded, errcode.Of(err))
		}
		s.publishInfo(conn)
	}
	s.cfg = next
	return iv
}

// ---------------- Controls ----------------

func (s *Service) control(conn *bus.Connection, msg *bus.Message) {
	var err error
	switch msg.Topic.Last() {
	case "read":
		err = s.sample(conn)
	case "reset_energy":
		err = s.dev.ResetAccumulators()
	case "calibrate":
		err = s.calibrate(conn, msg.Payload)
	default:
		err = errcode.Unsupported
	}
	if err != nil {
		conn.Reply(msg, types.ErrorReply{OK: false, Error: string(errcode.Of(err))}, false)
		return
	}
	conn.Reply(msg, types.OKReply{OK: true}, false)
}

func (s *Service) calibrate(conn *bus.Connection, payload any) error {
	var c types.SetCalibration
	if err := decode(payload, &c); err != nil {
		return errcode.InvalidPayload
	}
	p, err := profileOf(c.MaxCurrentA, c.ShuntOhms, c.Range, s.dev.Profile().Range)
	if err != nil {
		return err
	}
	if err := s.dev.Calibrate(p); err != nil {
		return err
	}
	s.cfg.MaxCurrentA, s.cfg.ShuntOhms, s.cfg.Range = p.MaxCurrent, p.ShuntOhms, p.Range.String()
	s.publishInfo(conn)
	return nil
}

// ---------------- Helpers ----------------

func profileOf(maxA, ohms float64, rng string, def ina228.Range) (ina228.Profile, error) {
	r, err := parseRange(rng, def)
	if err != nil {
		return ina228.Profile{}, err
	}
	return ina228.Profile{MaxCurrent: maxA, ShuntOhms: ohms, Range: r}, nil
}

// parseRange maps "" to def.
func parseRange(s string, def ina228.Range) (ina228.Range, error) {
	if s == "" {
		return def, nil
	}
	return ina228.ParseRange(s)
}
