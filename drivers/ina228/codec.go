package ina228

import (
	"math"

	"ina228-go/x/mathx"
)

// Fixed scale factors of the INA228 ADC.
const (
	VBusLSB       = 195.3125e-6 // V per count
	DieTempLSB    = 7.8125e-3   // °C per count
	vShuntLSB0    = 312.5e-9    // V per count, ±163.84 mV
	vShuntLSB1    = 78.125e-9   // V per count, ±40.96 mV
	limitShunt0   = 5e-6        // SOVL/SUVL V per count, ±163.84 mV
	limitShunt1   = 1.25e-6     // SOVL/SUVL V per count, ±40.96 mV
	limitBusLSB   = 3.125e-3    // BOVL/BUVL V per count
	powerScale    = 3.2         // POWER LSB = 3.2 * CURRENT_LSB
	energyScale   = 16 * powerScale
	pwrLimitScale = 256 // PWR_LIMIT LSB = 256 * POWER LSB

	// SHUNT_CAL = 13107.2e6 * CURRENT_LSB * R_SHUNT; CURRENT_LSB = Imax / 2^19.
	shuntCalScale   = 13107.2e6
	currentLSBDiv   = 1 << 19
	defaultMaxAmps  = 10.0
	defaultCurrLSB  = defaultMaxAmps / currentLSBDiv
	rangeCalFactor  = 4
	busLimitMaxCode = 0x7FFF
)

// TwosComplement interprets the low bits of val as a signed integer of that
// width. bits must be in 1..64.
func TwosComplement(val uint64, bits uint) int64 {
	if bits >= 64 {
		return int64(val)
	}
	if val&(1<<(bits-1)) != 0 {
		return int64(val) - int64(1)<<bits
	}
	return int64(val)
}

// signed20 decodes a 24-bit data register whose low nibble is reserved.
func signed20(raw uint64) int64 { return TwosComplement(raw>>4, 20) }

// setBit returns v with mask set or cleared.
func setBit(v, mask uint16, on bool) uint16 {
	if on {
		return v | mask
	}
	return v &^ mask
}

// shuntCalibration computes CURRENT_LSB and the SHUNT_CAL word.
func shuntCalibration(maxCurrent, shuntOhms float64, rng Range) (float64, uint16, error) {
	if !(maxCurrent > 0) || !(shuntOhms > 0) || math.IsInf(maxCurrent, 0) || math.IsInf(shuntOhms, 0) {
		return 0, 0, ErrInvalidCalibration
	}
	lsb := maxCurrent / currentLSBDiv
	cal := shuntCalScale * lsb * shuntOhms
	if rng == Range40mV {
		cal *= rangeCalFactor
	}
	code := math.Trunc(cal)
	if code > math.MaxUint16 {
		return 0, 0, ErrCalibrationRange
	}
	return lsb, uint16(code), nil
}

func shuntVoltageLSB(rng Range) float64 {
	if rng == Range40mV {
		return vShuntLSB1
	}
	return vShuntLSB0
}

func shuntLimitLSB(rng Range) float64 {
	if rng == Range40mV {
		return limitShunt1
	}
	return limitShunt0
}

// quantize maps a physical value onto a register code, rounding to nearest
// and saturating at [lo, hi].
func quantize(value, lsb float64, lo, hi int64) int64 {
	if math.IsNaN(value) {
		return 0
	}
	q := mathx.Clamp(math.Round(value/lsb), float64(lo), float64(hi))
	return int64(q)
}
