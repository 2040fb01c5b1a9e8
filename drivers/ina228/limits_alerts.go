package ina228

// Diag is the DIAG_ALRT register (0Bh).
type Diag uint16

const (
	DiagMemStat      Diag = 1 << 0  // 1 = trim memory OK
	DiagConvReady    Diag = 1 << 1  // CNVRF
	DiagPowerOver    Diag = 1 << 2  // POL
	DiagBusUnder     Diag = 1 << 3  // BUSUL
	DiagBusOver      Diag = 1 << 4  // BUSOL
	DiagShuntUnder   Diag = 1 << 5  // SHNTUL
	DiagShuntOver    Diag = 1 << 6  // SHNTOL
	DiagTempOver     Diag = 1 << 7  // TMPOL
	DiagMathOverflow Diag = 1 << 9  // MATHOF
	DiagChargeOver   Diag = 1 << 10 // CHARGEOF
	DiagEnergyOver   Diag = 1 << 11 // ENERGYOF
	DiagAlertPol     Diag = 1 << 12 // APOL, R/W
	DiagSlowAlert    Diag = 1 << 13 // SLOWALERT, R/W
	DiagConvAlert    Diag = 1 << 14 // CNVR, R/W
	DiagAlertLatch   Diag = 1 << 15 // ALATCH, R/W

	// Flags that indicate a limit or overflow condition.
	DiagFaults = DiagPowerOver | DiagBusUnder | DiagBusOver | DiagShuntUnder |
		DiagShuntOver | DiagTempOver | DiagMathOverflow | DiagChargeOver | DiagEnergyOver

	diagWritable = DiagAlertPol | DiagSlowAlert | DiagConvAlert | DiagAlertLatch
)

func (b Diag) Has(flag Diag) bool { return b&flag != 0 }

// Diagnostics reads DIAG_ALRT. Latched flags clear on read when ALATCH is set.
func (d *Device) Diagnostics() (Diag, error) {
	v, err := d.readWord(RegDiagAlrt)
	return Diag(v), err
}

// SetAlertConfig updates the writable DIAG_ALRT control bits.
func (d *Device) SetAlertConfig(set, clear Diag) error {
	return d.modifyRegister(RegDiagAlrt, uint16(set&diagWritable), uint16(clear&diagWritable))
}

// ---------------- Limits (physical units) ----------------

// Shunt limits follow the ADC range in effect when written.

func (d *Device) SetShuntOverLimit(volts float64) error {
	return d.writeWord(RegSOVL, d.shuntLimitCode(volts))
}

func (d *Device) SetShuntUnderLimit(volts float64) error {
	return d.writeWord(RegSUVL, d.shuntLimitCode(volts))
}

func (d *Device) ShuntOverLimit() (float64, error)  { return d.shuntLimit(RegSOVL) }
func (d *Device) ShuntUnderLimit() (float64, error) { return d.shuntLimit(RegSUVL) }

func (d *Device) shuntLimitCode(volts float64) uint16 {
	return uint16(int16(quantize(volts, shuntLimitLSB(d.prof.Range), -32768, 32767)))
}

func (d *Device) shuntLimit(reg Register) (float64, error) {
	v, err := d.readWord(reg)
	if err != nil {
		return 0, err
	}
	return float64(TwosComplement(uint64(v), 16)) * shuntLimitLSB(d.prof.Range), nil
}

// Bus limits are unsigned, 15 bits.

func (d *Device) SetBusOverLimit(volts float64) error {
	return d.writeWord(RegBOVL, uint16(quantize(volts, limitBusLSB, 0, busLimitMaxCode)))
}

func (d *Device) SetBusUnderLimit(volts float64) error {
	return d.writeWord(RegBUVL, uint16(quantize(volts, limitBusLSB, 0, busLimitMaxCode)))
}

func (d *Device) BusOverLimit() (float64, error)  { return d.busLimit(RegBOVL) }
func (d *Device) BusUnderLimit() (float64, error) { return d.busLimit(RegBUVL) }

func (d *Device) busLimit(reg Register) (float64, error) {
	v, err := d.readWord(reg)
	if err != nil {
		return 0, err
	}
	return float64(v&busLimitMaxCode) * limitBusLSB, nil
}

// SetTempLimit sets the over-temperature threshold in °C.
func (d *Device) SetTempLimit(celsius float64) error {
	return d.writeWord(RegTempLimit, uint16(int16(quantize(celsius, DieTempLSB, -32768, 32767))))
}

func (d *Device) TempLimit() (float64, error) {
	v, err := d.readWord(RegTempLimit)
	if err != nil {
		return 0, err
	}
	return float64(TwosComplement(uint64(v), 16)) * DieTempLSB, nil
}

// SetPowerLimit sets the over-power threshold in watts. The code depends on
// CURRENT_LSB; calibrate first.
func (d *Device) SetPowerLimit(watts float64) error {
	if !d.calibrated {
		return ErrNotCalibrated
	}
	return d.writeWord(RegPwrLimit, uint16(quantize(watts, d.powerLimitLSB(), 0, 0xFFFF)))
}

func (d *Device) PowerLimit() (float64, error) {
	v, err := d.readWord(RegPwrLimit)
	if err != nil {
		return 0, err
	}
	return float64(v) * d.powerLimitLSB(), nil
}

func (d *Device) powerLimitLSB() float64 {
	return pwrLimitScale * powerScale * d.prof.CurrentLSB
}
