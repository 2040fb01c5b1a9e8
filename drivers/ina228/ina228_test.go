package ina228

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

// ---------------- Fake bus ----------------

type tx struct {
	addr uint16
	w    []byte
	rn   int
}

// regFile is an in-memory register map keyed by sub-address.
type regFile struct {
	regs map[byte][]byte
	txs  []tx
	err  error
	// wErr fails writes to one sub-address.
	wErr map[byte]error
}

func newRegFile() *regFile { return &regFile{regs: map[byte][]byte{}} }

func (f *regFile) Tx(addr uint16, w, r []byte) error {
	f.txs = append(f.txs, tx{addr: addr, w: append([]byte(nil), w...), rn: len(r)})
	if f.err != nil {
		return f.err
	}
	if len(w) == 0 {
		return nil
	}
	if len(r) > 0 {
		for i := range r {
			r[i] = 0
		}
		copy(r, f.regs[w[0]])
		return nil
	}
	if err := f.wErr[w[0]]; err != nil {
		return err
	}
	if len(w) > 1 {
		f.regs[w[0]] = append([]byte(nil), w[1:]...)
	}
	return nil
}

func (f *regFile) set(off byte, b ...byte) { f.regs[off] = b }

func (f *regFile) word(off byte) uint16 {
	b := f.regs[off]
	if len(b) < 2 {
		return 0
	}
	return uint16(b[0])<<8 | uint16(b[1])
}

func (f *regFile) writes() []tx {
	var out []tx
	for _, t := range f.txs {
		if t.rn == 0 {
			out = append(out, t)
		}
	}
	return out
}

func approx(a, b float64) bool { return math.Abs(a-b) <= 1e-12*math.Max(1, math.Abs(b)) }

// ---------------- Two's complement ----------------

func TestTwosComplement16(t *testing.T) {
	for v := uint64(0); v < 1<<16; v++ {
		want := int64(v)
		if v >= 1<<15 {
			want = int64(v) - 1<<16
		}
		if got := TwosComplement(v, 16); got != want {
			t.Fatalf("TwosComplement(%#x,16)=%d want %d", v, got, want)
		}
	}
}

func TestTwosComplement20(t *testing.T) {
	for v := uint64(0); v < 1<<20; v++ {
		want := int64(v)
		if v >= 1<<19 {
			want = int64(v) - 1<<20
		}
		if got := TwosComplement(v, 20); got != want {
			t.Fatalf("TwosComplement(%#x,20)=%d want %d", v, got, want)
		}
	}
}

func TestTwosComplement20RoundTrip(t *testing.T) {
	for x := int64(-1 << 19); x < 1<<19; x++ {
		enc := uint64(x) & (1<<20 - 1)
		if got := TwosComplement(enc, 20); got != x {
			t.Fatalf("round trip %d -> %#x -> %d", x, enc, got)
		}
	}
}

func TestSetBit(t *testing.T) {
	cases := []struct {
		v, mask uint16
		on      bool
		want    uint16
	}{
		{0x0000, cfgReset, true, 0x8000},
		{0x1234, cfgReset, true, 0x9234},
		{0xFFFF, cfgADCRange, false, 0xFFEF},
		{0x0010, cfgADCRange, true, 0x0010},
		{0x0000, cfgResetAcc, false, 0x0000},
	}
	for _, c := range cases {
		if got := setBit(c.v, c.mask, c.on); got != c.want {
			t.Errorf("setBit(%#04x,%#04x,%v)=%#04x want %#04x", c.v, c.mask, c.on, got, c.want)
		}
	}
}

// ---------------- Register map ----------------

func TestRegisterTable(t *testing.T) {
	cases := []struct {
		r     Register
		off   byte
		width int
	}{
		{RegConfig, 0x00, 2}, {RegShuntCal, 0x02, 2}, {RegVShunt, 0x04, 3},
		{RegVBus, 0x05, 3}, {RegDieTemp, 0x06, 2}, {RegCurrent, 0x07, 3},
		{RegPower, 0x08, 3}, {RegEnergy, 0x09, 5}, {RegCharge, 0x0A, 5},
		{RegDiagAlrt, 0x0B, 2}, {RegPwrLimit, 0x11, 2}, {RegMfgUID, 0x3E, 2},
		{RegDvcUID, 0x3F, 2},
	}
	for _, c := range cases {
		if c.r.Offset() != c.off || c.r.Width() != c.width {
			t.Errorf("reg %d: got (%#x,%d) want (%#x,%d)", c.r, c.r.Offset(), c.r.Width(), c.off, c.width)
		}
	}
}

func TestWriteWordRejectsWideRegister(t *testing.T) {
	f := newRegFile()
	d := New(f, Config{})
	if err := d.writeWord(RegCurrent, 1); !errors.Is(err, ErrWidth) {
		t.Fatalf("want ErrWidth, got %v", err)
	}
	if len(f.txs) != 0 {
		t.Fatalf("unexpected bus traffic: %v", f.txs)
	}
}

// ---------------- CONFIG ----------------

func TestResetSetsBit15Only(t *testing.T) {
	f := newRegFile()
	f.set(0x00, 0x12, 0x34)
	d := New(f, Config{})
	if err := d.Reset(); err != nil {
		t.Fatal(err)
	}
	if len(f.txs) != 2 {
		t.Fatalf("want 2 transactions, got %d", len(f.txs))
	}
	rd, wr := f.txs[0], f.txs[1]
	if rd.addr != AddressDefault || !bytes.Equal(rd.w, []byte{0x00}) || rd.rn != 2 {
		t.Fatalf("bad read %+v", rd)
	}
	if !bytes.Equal(wr.w, []byte{0x00, 0x92, 0x34}) || wr.rn != 0 {
		t.Fatalf("bad write %+v", wr)
	}
}

func TestResetAccumulators(t *testing.T) {
	f := newRegFile()
	f.set(0x00, 0x00, 0x10)
	d := New(f, Config{Address: 0x45})
	if err := d.ResetAccumulators(); err != nil {
		t.Fatal(err)
	}
	if got := f.word(0x00); got != 0x4010 {
		t.Fatalf("CONFIG=%#04x want 0x4010", got)
	}
	if f.txs[0].addr != 0x45 {
		t.Fatalf("addr=%#x", f.txs[0].addr)
	}
}

func TestSetADCRange(t *testing.T) {
	f := newRegFile()
	f.set(0x00, 0x80, 0x00)
	d := New(f, Config{})
	if err := d.SetADCRange(Range(7)); err != nil {
		t.Fatal(err)
	}
	if f.word(0x00) != 0x8010 || d.ADCRange() != Range40mV {
		t.Fatalf("CONFIG=%#04x range=%v", f.word(0x00), d.ADCRange())
	}
	if err := d.SetADCRange(Range163mV); err != nil {
		t.Fatal(err)
	}
	if f.word(0x00) != 0x8000 || d.ADCRange() != Range163mV {
		t.Fatalf("CONFIG=%#04x range=%v", f.word(0x00), d.ADCRange())
	}
}

func TestSetConversionDelayAndTempComp(t *testing.T) {
	f := newRegFile()
	f.set(0x00, 0x00, 0x10)
	d := New(f, Config{})
	if err := d.SetConversionDelay(3); err != nil {
		t.Fatal(err)
	}
	if err := d.EnableTempComp(true); err != nil {
		t.Fatal(err)
	}
	if got := f.word(0x00); got != 0x00F0 {
		t.Fatalf("CONFIG=%#04x want 0x00f0", got)
	}
	if err := d.SetShuntTempco(0xFFFF); err != nil {
		t.Fatal(err)
	}
	if got := f.word(0x03); got != 0x3FFF {
		t.Fatalf("SHUNT_TEMPCO=%#04x", got)
	}
}

// ---------------- Calibration ----------------

func TestCalibrateShuntRange0(t *testing.T) {
	f := newRegFile()
	d := New(f, Config{})
	if err := d.CalibrateShunt(10.24, 0.002); err != nil {
		t.Fatal(err)
	}
	if !approx(d.CurrentLSB(), 1.953125e-5) {
		t.Fatalf("CurrentLSB=%g", d.CurrentLSB())
	}
	if got := f.word(0x02); got != 512 {
		t.Fatalf("SHUNT_CAL=%d want 512", got)
	}
	if !d.Calibrated() || d.Profile().Cal != 512 {
		t.Fatalf("profile %+v", d.Profile())
	}
}

func TestCalibrateShuntRange1(t *testing.T) {
	f := newRegFile()
	d := New(f, Config{})
	if err := d.SetADCRange(Range40mV); err != nil {
		t.Fatal(err)
	}
	if err := d.CalibrateShunt(10.24, 0.002); err != nil {
		t.Fatal(err)
	}
	if got := f.word(0x02); got != 2048 {
		t.Fatalf("SHUNT_CAL=%d want 2048", got)
	}
}

func TestCalibrateRejectsBadInput(t *testing.T) {
	cases := []struct {
		name        string
		imax, shunt float64
		want        error
	}{
		{"zero current", 0, 0.002, ErrInvalidCalibration},
		{"negative shunt", 1, -0.1, ErrInvalidCalibration},
		{"nan", math.NaN(), 0.1, ErrInvalidCalibration},
		{"inf", math.Inf(1), 0.1, ErrInvalidCalibration},
		{"overflow", 100, 1, ErrCalibrationRange},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f := newRegFile()
			d := New(f, Config{})
			if err := d.CalibrateShunt(c.imax, c.shunt); !errors.Is(err, c.want) {
				t.Fatalf("want %v, got %v", c.want, err)
			}
			if len(f.txs) != 0 {
				t.Fatalf("wrote on failure: %v", f.txs)
			}
			if d.Calibrated() || !approx(d.CurrentLSB(), 10.0/(1<<19)) {
				t.Fatalf("profile changed: %+v", d.Profile())
			}
		})
	}
}

func TestCalibrateOverflowOnlyInNarrowRange(t *testing.T) {
	// 20000 fits in range 0, 80000 does not.
	f := newRegFile()
	d := New(f, Config{})
	p := Profile{MaxCurrent: 40, ShuntOhms: 0.02}
	if err := d.Calibrate(p); err != nil {
		t.Fatal(err)
	}
	p.Range = Range40mV
	if err := d.Calibrate(p); !errors.Is(err, ErrCalibrationRange) {
		t.Fatalf("want ErrCalibrationRange, got %v", err)
	}
	if d.ADCRange() != Range163mV {
		t.Fatal("range changed on failed calibration")
	}
}

func TestRangeChangeMarksCalibrationStale(t *testing.T) {
	f := newRegFile()
	d := New(f, Config{})
	if err := d.Recalibrate(); !errors.Is(err, ErrNotCalibrated) {
		t.Fatalf("want ErrNotCalibrated, got %v", err)
	}
	if err := d.CalibrateShunt(10.24, 0.002); err != nil {
		t.Fatal(err)
	}
	if err := d.SetADCRange(Range40mV); err != nil {
		t.Fatal(err)
	}
	if d.Calibrated() {
		t.Fatal("calibration should be stale after range change")
	}
	if f.word(0x02) != 512 {
		t.Fatal("range change must not rewrite SHUNT_CAL")
	}
	if err := d.Recalibrate(); err != nil {
		t.Fatal(err)
	}
	if !d.Calibrated() || f.word(0x02) != 2048 {
		t.Fatalf("after recal: calibrated=%v cal=%d", d.Calibrated(), f.word(0x02))
	}
}

func TestRangeRoundTripRestoresCalibration(t *testing.T) {
	f := newRegFile()
	d := New(f, Config{})
	if err := d.CalibrateShunt(10.24, 0.002); err != nil {
		t.Fatal(err)
	}
	for _, r := range []Range{Range40mV, Range163mV} {
		if err := d.SetADCRange(r); err != nil {
			t.Fatal(err)
		}
	}
	if !d.Calibrated() || d.ADCRange() != Range163mV || f.word(0x02) != 512 {
		t.Fatalf("calibrated=%v range=%v cal=%d", d.Calibrated(), d.ADCRange(), f.word(0x02))
	}
}

func TestCalibrateRestoresRangeOnWriteFailure(t *testing.T) {
	f := newRegFile()
	d := New(f, Config{})
	if err := d.CalibrateShunt(10.24, 0.002); err != nil {
		t.Fatal(err)
	}
	nack := errors.New("nack")
	f.wErr = map[byte]error{0x02: nack}
	err := d.Calibrate(Profile{MaxCurrent: 10.24, ShuntOhms: 0.002, Range: Range40mV})
	if !errors.Is(err, nack) {
		t.Fatalf("want nack, got %v", err)
	}
	if f.word(0x00)&0x0010 != 0 || d.ADCRange() != Range163mV {
		t.Fatalf("CONFIG=%#04x range=%v", f.word(0x00), d.ADCRange())
	}
	if !d.Calibrated() || d.Profile().Cal != 512 {
		t.Fatalf("previous calibration lost: %+v", d.Profile())
	}
}

func TestParseRange(t *testing.T) {
	cases := []struct {
		in   string
		want Range
		err  error
	}{
		{"163.84mV", Range163mV, nil},
		{"163mV", Range163mV, nil},
		{"0", Range163mV, nil},
		{"40.96mV", Range40mV, nil},
		{"40mV", Range40mV, nil},
		{"1", Range40mV, nil},
		{"", Range163mV, ErrInvalidRange},
		{"7mV", Range163mV, ErrInvalidRange},
	}
	for _, c := range cases {
		got, err := ParseRange(c.in)
		if got != c.want || !errors.Is(err, c.err) {
			t.Errorf("ParseRange(%q)=%v,%v want %v,%v", c.in, got, err, c.want, c.err)
		}
	}
}

func TestResetClearsProfile(t *testing.T) {
	f := newRegFile()
	d := New(f, Config{})
	if err := d.Calibrate(Profile{MaxCurrent: 10.24, ShuntOhms: 0.002, Range: Range40mV}); err != nil {
		t.Fatal(err)
	}
	if err := d.Reset(); err != nil {
		t.Fatal(err)
	}
	if d.Calibrated() || d.ADCRange() != Range163mV {
		t.Fatalf("profile survived reset: %+v", d.Profile())
	}
}

// ---------------- Telemetry ----------------

func TestBusVoltage(t *testing.T) {
	f := newRegFile()
	f.set(0x05, 0x00, 0x01, 0x90)
	d := New(f, Config{})
	v, err := d.BusVoltage()
	if err != nil {
		t.Fatal(err)
	}
	if !approx(v, 25*195.3125e-6) {
		t.Fatalf("VBUS=%g", v)
	}
	if f.txs[0].rn != 3 || f.txs[0].w[0] != 0x05 {
		t.Fatalf("bad tx %+v", f.txs[0])
	}
}

func TestDieTemp(t *testing.T) {
	cases := []struct {
		raw  []byte
		want float64
	}{
		{[]byte{0x00, 0x80}, 1.0},
		{[]byte{0xFF, 0x80}, -1.0},
		{[]byte{0x0C, 0x80}, 25.0},
	}
	for _, c := range cases {
		f := newRegFile()
		f.set(0x06, c.raw...)
		got, err := New(f, Config{}).DieTemp()
		if err != nil {
			t.Fatal(err)
		}
		if got != c.want {
			t.Errorf("DIETEMP %x: got %g want %g", c.raw, got, c.want)
		}
	}
}

func TestCurrentSigned(t *testing.T) {
	f := newRegFile()
	d := New(f, Config{})
	if err := d.CalibrateShunt(10.24, 0.002); err != nil {
		t.Fatal(err)
	}
	f.set(0x07, 0xFF, 0xFF, 0xF5) // -1 count, reserved nibble set
	i, err := d.Current()
	if err != nil {
		t.Fatal(err)
	}
	if !approx(i, -1.953125e-5) {
		t.Fatalf("I=%g", i)
	}
	f.set(0x07, 0x7F, 0xFF, 0xF0) // +2^19-1
	i, _ = d.Current()
	if !approx(i, float64(1<<19-1)*1.953125e-5) {
		t.Fatalf("I=%g", i)
	}
}

func TestShuntVoltage(t *testing.T) {
	f := newRegFile()
	f.set(0x04, 0xFF, 0xFE, 0x00) // -32 counts
	d := New(f, Config{})
	raw, err := d.ShuntVoltageRaw()
	if err != nil || raw != -32 {
		t.Fatalf("raw=%d err=%v", raw, err)
	}
	v, _ := d.ShuntVoltage()
	if !approx(v, -32*312.5e-9) {
		t.Fatalf("V=%g", v)
	}
	if err := d.SetADCRange(Range40mV); err != nil {
		t.Fatal(err)
	}
	v, _ = d.ShuntVoltage()
	if !approx(v, -32*78.125e-9) {
		t.Fatalf("V=%g", v)
	}
}

func TestPowerEnergyCharge(t *testing.T) {
	f := newRegFile()
	d := New(f, Config{})
	if err := d.CalibrateShunt(10.24, 0.002); err != nil {
		t.Fatal(err)
	}
	lsb := d.CurrentLSB()
	f.set(0x08, 0x00, 0x10, 0x00)
	f.set(0x09, 0x00, 0x00, 0x00, 0x01, 0x00)
	f.set(0x0A, 0xFF, 0xFF, 0xFF, 0xFF, 0x00)

	p, err := d.Power()
	if err != nil || !approx(p, 4096*3.2*lsb) {
		t.Fatalf("P=%g err=%v", p, err)
	}
	e, err := d.Energy()
	if err != nil || !approx(e, 256*16*3.2*lsb) {
		t.Fatalf("E=%g err=%v", e, err)
	}
	q, err := d.Charge()
	if err != nil || !approx(q, -256*lsb) {
		t.Fatalf("Q=%g err=%v", q, err)
	}
	if f.txs[len(f.txs)-1].rn != 5 {
		t.Fatalf("accumulator read width %d", f.txs[len(f.txs)-1].rn)
	}
}

func TestSplitAccumulatorReads(t *testing.T) {
	f := newRegFile()
	f.set(0x09, 0x01, 0x02, 0x03, 0x04)
	f.set(0x0D, 0x05)
	d := New(f, Config{SplitAccumulatorReads: true})
	raw, err := d.readReg(RegEnergy)
	if err != nil {
		t.Fatal(err)
	}
	if raw != 0x0102030405 {
		t.Fatalf("raw=%#x", raw)
	}
	if len(f.txs) != 2 || f.txs[0].rn != 4 || f.txs[1].w[0] != 0x0D || f.txs[1].rn != 1 {
		t.Fatalf("bad transactions %+v", f.txs)
	}
}

func TestRawPassThrough(t *testing.T) {
	f := newRegFile()
	f.set(0x0B, 0x00, 0x01)
	f.set(0x3E, 0x54, 0x49)
	f.set(0x3F, 0x22, 0x81)
	d := New(f, Config{})
	if v, _ := d.DiagnosticFlags(); v != 0x0001 {
		t.Fatalf("diag=%#x", v)
	}
	if v, _ := d.ManufacturerID(); v != ManufacturerTI {
		t.Fatalf("mfg=%#x", v)
	}
	if v, _ := d.DeviceID(); v != 0x2281 {
		t.Fatalf("dev=%#x", v)
	}
	if !d.Connected() {
		t.Fatal("expected Connected")
	}
	f.set(0x3F, 0x22, 0x70)
	if d.Connected() {
		t.Fatal("INA226-style id must not match")
	}
}

func TestTransportErrorPropagates(t *testing.T) {
	errNack := errors.New("nack")
	f := newRegFile()
	f.err = errNack
	d := New(f, Config{})
	if _, err := d.Current(); err != errNack {
		t.Fatalf("Current: %v", err)
	}
	if err := d.Reset(); err != errNack {
		t.Fatalf("Reset: %v", err)
	}
	if err := d.CalibrateShunt(10.24, 0.002); err != errNack {
		t.Fatalf("CalibrateShunt: %v", err)
	}
	if d.Calibrated() {
		t.Fatal("failed write must not mark calibrated")
	}
	if len(f.writes()) != 1 {
		t.Fatalf("want only the SHUNT_CAL write attempt, got %d writes", len(f.writes()))
	}
}

func TestSnapshotReportsFirstError(t *testing.T) {
	f := newRegFile()
	f.set(0x05, 0x00, 0x01, 0x90)
	f.set(0x06, 0x00, 0x80)
	d := New(f, Config{})
	s, err := d.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if !approx(s.BusVoltage, 25*195.3125e-6) || s.DieTemp != 1.0 {
		t.Fatalf("snapshot %+v", s)
	}
	f.err = errors.New("timeout")
	s, err = d.Snapshot()
	if err == nil || s.BusVoltage != 0 {
		t.Fatalf("snapshot %+v err=%v", s, err)
	}
}
