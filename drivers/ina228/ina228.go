// Package ina228 provides a minimal TinyGo driver for the TI INA228 20-bit
// current, voltage, power, energy and charge monitor.
//
// Design notes (datasheet references):
// • I2C, big-endian registers of 16, 24 or 40 bits.
// • 20-bit results (VSHUNT, VBUS, CURRENT) are left-justified in 24 bits;
//   the low nibble is reserved.
// • CURRENT_LSB = Imax/2^19, SHUNT_CAL = 13107.2e6 * CURRENT_LSB * Rshunt,
//   times four in the ±40.96 mV range.
// • The driver never sleeps and never retries. After Reset the caller must
//   wait ResetDelay before touching the device again.
package ina228

import (
	"errors"
	"time"

	"tinygo.org/x/drivers"
)

// ---------------- Top level vars ----------------

// ResetDelay is the settle time callers must allow after Reset.
const ResetDelay = 500 * time.Millisecond

var (
	ErrInvalidCalibration = errors.New("ina228: max current and shunt resistance must be positive")
	ErrCalibrationRange   = errors.New("ina228: shunt calibration does not fit in 16 bits")
	ErrNotCalibrated      = errors.New("ina228: device has not been calibrated")
	ErrWidth              = errors.New("ina228: register width mismatch")
	ErrInvalidRange       = errors.New("ina228: unknown ADC range")
)

// ---------------- Types and configuration ----------------

// Range selects the shunt ADC full scale (CONFIG.ADCRANGE).
type Range uint8

const (
	Range163mV Range = iota // ±163.84 mV
	Range40mV               // ±40.96 mV
)

func (r Range) String() string {
	if r == Range40mV {
		return "40.96mV"
	}
	return "163.84mV"
}

// ParseRange accepts "163.84mV", "163mV" or "0" for Range163mV and
// "40.96mV", "40mV" or "1" for Range40mV.
func ParseRange(s string) (Range, error) {
	switch s {
	case "163.84mV", "163mV", "0":
		return Range163mV, nil
	case "40.96mV", "40mV", "1":
		return Range40mV, nil
	}
	return Range163mV, ErrInvalidRange
}

// Profile is the calibration state of a device. Range and CurrentLSB only
// make sense together: the SHUNT_CAL word written for one range is wrong
// for the other.
type Profile struct {
	MaxCurrent float64 // A, full-scale expected current
	ShuntOhms  float64 // Ω
	Range      Range
	CurrentLSB float64 // A per count, derived
	Cal        uint16  // SHUNT_CAL word, derived
}

type Config struct {
	Address uint16 // 0 => AddressDefault
	// SplitAccumulatorReads fetches the 40-bit ENERGY/CHARGE registers as a
	// 4-byte read plus a 1-byte read at offset+4, for transports limited to
	// 4-byte transfers.
	SplitAccumulatorReads bool
}

type Device struct {
	i2c      drivers.I2C
	addr     uint16
	splitAcc bool

	prof       Profile
	calibrated bool
	calRange   Range // range SHUNT_CAL was computed for
	stale      bool

	// Fixed buffers to avoid per-call heap allocations.
	w [3]byte
	r [5]byte
}

// New binds a driver to an already configured bus. It does not touch the
// device.
func New(i2c drivers.I2C, cfg Config) *Device {
	addr := cfg.Address
	if addr == 0 {
		addr = AddressDefault
	}
	return &Device{
		i2c:      i2c,
		addr:     addr,
		splitAcc: cfg.SplitAccumulatorReads,
		prof:     Profile{CurrentLSB: defaultCurrLSB},
	}
}

// Address returns the 7-bit bus address.
func (d *Device) Address() uint16 { return d.addr }

// Profile returns the calibration profile currently in effect.
func (d *Device) Profile() Profile { return d.prof }

// CurrentLSB returns amps per CURRENT count.
func (d *Device) CurrentLSB() float64 { return d.prof.CurrentLSB }

// ADCRange returns the last range written by the driver.
func (d *Device) ADCRange() Range { return d.prof.Range }

// Calibrated reports whether SHUNT_CAL matches the current range.
func (d *Device) Calibrated() bool { return d.calibrated && !d.stale }

// Connected reports whether a TI INA228 answers at the configured address.
func (d *Device) Connected() bool {
	mfg, err := d.ManufacturerID()
	if err != nil || mfg != ManufacturerTI {
		return false
	}
	id, err := d.DeviceID()
	return err == nil && id>>4 == DeviceIDINA228
}

// ---------------- CONFIG control ----------------

// Reset sets CONFIG.RST. All registers return to their defaults; wait
// ResetDelay before further access.
func (d *Device) Reset() error {
	if err := d.updateBits(RegConfig, cfgReset, true); err != nil {
		return err
	}
	d.prof = Profile{CurrentLSB: defaultCurrLSB}
	d.calibrated, d.stale, d.calRange = false, false, Range163mV
	return nil
}

// ResetAccumulators clears ENERGY and CHARGE (CONFIG.RSTACC).
func (d *Device) ResetAccumulators() error {
	return d.updateBits(RegConfig, cfgResetAcc, true)
}

// SetADCRange writes CONFIG.ADCRANGE. Any non-zero range selects ±40.96 mV.
// A calibration made for the other range is left on the device and
// flagged stale until the range is switched back or Recalibrate or
// Calibrate is called.
func (d *Device) SetADCRange(r Range) error {
	if r != Range163mV {
		r = Range40mV
	}
	if err := d.updateBits(RegConfig, cfgADCRange, r == Range40mV); err != nil {
		return err
	}
	d.stale = d.calibrated && r != d.calRange
	d.prof.Range = r
	return nil
}

// SetConversionDelay sets the initial ADC delay in 2 ms steps.
func (d *Device) SetConversionDelay(steps uint8) error {
	return d.modifyRegister(RegConfig, uint16(steps)<<cfgConvDlyPos, cfgConvDlyMask)
}

// EnableTempComp enables shunt temperature compensation (see SetShuntTempco).
func (d *Device) EnableTempComp(on bool) error {
	return d.updateBits(RegConfig, cfgTempComp, on)
}

// SetShuntTempco sets the shunt temperature coefficient in ppm/°C.
func (d *Device) SetShuntTempco(ppm uint16) error {
	return d.writeWord(RegShuntTempco, ppm&shuntTempcoMask)
}

// ---------------- Calibration ----------------

// CalibrateShunt derives CURRENT_LSB from the expected full-scale current
// and writes SHUNT_CAL for the current ADC range. Nothing is written when the
// inputs are invalid or the result would not fit in the register.
func (d *Device) CalibrateShunt(maxCurrent, shuntOhms float64) error {
	lsb, cal, err := shuntCalibration(maxCurrent, shuntOhms, d.prof.Range)
	if err != nil {
		return err
	}
	if err := d.writeWord(RegShuntCal, cal); err != nil {
		return err
	}
	d.prof = Profile{
		MaxCurrent: maxCurrent,
		ShuntOhms:  shuntOhms,
		Range:      d.prof.Range,
		CurrentLSB: lsb,
		Cal:        cal,
	}
	d.calibrated, d.stale, d.calRange = true, false, d.prof.Range
	return nil
}

// Calibrate applies range and shunt calibration together. If SHUNT_CAL
// cannot be written the previous range is put back.
func (d *Device) Calibrate(p Profile) error {
	if p.Range != Range163mV {
		p.Range = Range40mV
	}
	if _, _, err := shuntCalibration(p.MaxCurrent, p.ShuntOhms, p.Range); err != nil {
		return err
	}
	prev := d.prof.Range
	if err := d.SetADCRange(p.Range); err != nil {
		return err
	}
	if err := d.CalibrateShunt(p.MaxCurrent, p.ShuntOhms); err != nil {
		if prev != p.Range {
			_ = d.SetADCRange(prev)
		}
		return err
	}
	return nil
}

// Recalibrate rewrites SHUNT_CAL from the stored profile, typically after a
// range change.
func (d *Device) Recalibrate() error {
	if !d.calibrated {
		return ErrNotCalibrated
	}
	return d.CalibrateShunt(d.prof.MaxCurrent, d.prof.ShuntOhms)
}

// ---------------- Telemetry ----------------

// Current returns the shunt current in amps.
func (d *Device) Current() (float64, error) {
	raw, err := d.readReg(RegCurrent)
	if err != nil {
		return 0, err
	}
	return float64(signed20(raw)) * d.prof.CurrentLSB, nil
}

// BusVoltage returns VBUS in volts.
func (d *Device) BusVoltage() (float64, error) {
	raw, err := d.readReg(RegVBus)
	if err != nil {
		return 0, err
	}
	return float64(signed20(raw)) * VBusLSB, nil
}

// ShuntVoltageRaw returns the signed 20-bit VSHUNT count, unscaled.
func (d *Device) ShuntVoltageRaw() (int32, error) {
	raw, err := d.readReg(RegVShunt)
	if err != nil {
		return 0, err
	}
	return int32(signed20(raw)), nil
}

// ShuntVoltage returns VSHUNT in volts for the current ADC range.
func (d *Device) ShuntVoltage() (float64, error) {
	n, err := d.ShuntVoltageRaw()
	if err != nil {
		return 0, err
	}
	return float64(n) * shuntVoltageLSB(d.prof.Range), nil
}

// DieTemp returns the die temperature in °C.
func (d *Device) DieTemp() (float64, error) {
	raw, err := d.readReg(RegDieTemp)
	if err != nil {
		return 0, err
	}
	return float64(TwosComplement(raw, RegDieTemp.Bits())) * DieTempLSB, nil
}

// Power returns watts.
func (d *Device) Power() (float64, error) {
	raw, err := d.readReg(RegPower)
	if err != nil {
		return 0, err
	}
	return float64(raw) * powerScale * d.prof.CurrentLSB, nil
}

// Energy returns joules accumulated since the last accumulator reset.
func (d *Device) Energy() (float64, error) {
	raw, err := d.readReg(RegEnergy)
	if err != nil {
		return 0, err
	}
	return float64(raw) * energyScale * d.prof.CurrentLSB, nil
}

// Charge returns coulombs accumulated since the last accumulator reset.
func (d *Device) Charge() (float64, error) {
	raw, err := d.readReg(RegCharge)
	if err != nil {
		return 0, err
	}
	return float64(TwosComplement(raw, RegCharge.Bits())) * d.prof.CurrentLSB, nil
}

// ---------------- Raw pass-through ----------------

func (d *Device) DiagnosticFlags() (uint16, error) { return d.readWord(RegDiagAlrt) }
func (d *Device) ManufacturerID() (uint16, error)  { return d.readWord(RegMfgUID) }
func (d *Device) DeviceID() (uint16, error)        { return d.readWord(RegDvcUID) }
