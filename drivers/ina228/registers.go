// Package ina228 provides constants for register addresses and bitfields used
// in the operation of the INA228 85 V, 20-bit power/energy/charge monitor.
package ina228

const (
	// 7-bit I2C address with A0/A1 tied to GND.
	AddressDefault = 0x40

	// Identity register contents.
	ManufacturerTI = 0x5449 // "TI"
	DeviceIDINA228 = 0x228  // DVC_UID[15:4]

	// --- CONFIG bits (0x00) ---
	cfgReset       = 1 << 15
	cfgResetAcc    = 1 << 14
	cfgConvDlyMask = 0xFF << 6
	cfgConvDlyPos  = 6
	cfgTempComp    = 1 << 5
	cfgADCRange    = 1 << 4

	shuntTempcoMask = 0x3FFF
)

// Register names one INA228 register. Offsets and widths live in a single
// table so variants of the INA22x family only differ here.
type Register uint8

const (
	RegConfig Register = iota
	RegADCConfig
	RegShuntCal
	RegShuntTempco
	RegVShunt
	RegVBus
	RegDieTemp
	RegCurrent
	RegPower
	RegEnergy
	RegCharge
	RegDiagAlrt
	RegSOVL
	RegSUVL
	RegBOVL
	RegBUVL
	RegTempLimit
	RegPwrLimit
	RegMfgUID
	RegDvcUID

	numRegisters
)

type regSpec struct {
	offset byte
	width  uint8 // bytes on the wire, big-endian
}

var regTable = [numRegisters]regSpec{
	RegConfig:      {0x00, 2},
	RegADCConfig:   {0x01, 2},
	RegShuntCal:    {0x02, 2},
	RegShuntTempco: {0x03, 2},
	RegVShunt:      {0x04, 3},
	RegVBus:        {0x05, 3},
	RegDieTemp:     {0x06, 2},
	RegCurrent:     {0x07, 3},
	RegPower:       {0x08, 3},
	RegEnergy:      {0x09, 5},
	RegCharge:      {0x0A, 5},
	RegDiagAlrt:    {0x0B, 2},
	RegSOVL:        {0x0C, 2},
	RegSUVL:        {0x0D, 2},
	RegBOVL:        {0x0E, 2},
	RegBUVL:        {0x0F, 2},
	RegTempLimit:   {0x10, 2},
	RegPwrLimit:    {0x11, 2},
	RegMfgUID:      {0x3E, 2},
	RegDvcUID:      {0x3F, 2},
}

// Offset returns the register sub-address.
func (r Register) Offset() byte { return regTable[r].offset }

// Width returns the register size in bytes.
func (r Register) Width() int { return int(regTable[r].width) }

// Bits returns the register size in bits.
func (r Register) Bits() uint { return uint(regTable[r].width) * 8 }
