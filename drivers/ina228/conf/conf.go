// Package conf provides the typed fields of the INA228 ADC_CONFIG register.
package conf

import "time"

// Mode selects which quantities are converted and whether conversions run
// continuously or once per trigger (MODE, bits 15:12).
type Mode uint8

// Constants representing each possible value of type Mode.
const (
	ModeShutdown      Mode = 0x0
	ModeTrigBus       Mode = 0x1
	ModeTrigShunt     Mode = 0x2
	ModeTrigShuntBus  Mode = 0x3
	ModeTrigTemp      Mode = 0x4
	ModeTrigTempBus   Mode = 0x5
	ModeTrigTempShunt Mode = 0x6
	ModeTrigAll       Mode = 0x7
	ModeShutdown2     Mode = 0x8
	ModeContBus       Mode = 0x9
	ModeContShunt     Mode = 0xA
	ModeContShuntBus  Mode = 0xB
	ModeContTemp      Mode = 0xC
	ModeContTempBus   Mode = 0xD
	ModeContTempShunt Mode = 0xE
	ModeContAll       Mode = 0xF // default
	ModeDefault       Mode = ModeContAll
)

// Channel enable bits within Mode.
const (
	modeBus   = 0x1
	modeShunt = 0x2
	modeTemp  = 0x4
)

// Triggered reports a single-shot mode.
func (m Mode) Triggered() bool { return m&0x8 == 0 && m != ModeShutdown }

// Continuous reports a free-running mode.
func (m Mode) Continuous() bool { return m&0x8 != 0 && m != ModeShutdown2 }

// ConversionTime is the per-channel conversion time (VBUSCT, VSHCT, VTCT).
type ConversionTime uint8

// Constants representing each possible value of type ConversionTime.
const (
	ConversionTime50us    ConversionTime = 0 // (000b)
	ConversionTime84us    ConversionTime = 1 // (001b)
	ConversionTime150us   ConversionTime = 2 // (010b)
	ConversionTime280us   ConversionTime = 3 // (011b)
	ConversionTime540us   ConversionTime = 4 // (100b)
	ConversionTime1052us  ConversionTime = 5 // (101b) -- default
	ConversionTime2074us  ConversionTime = 6 // (110b)
	ConversionTime4120us  ConversionTime = 7 // (111b)
	ConversionTimeDefault ConversionTime = ConversionTime1052us
)

var ctMicros = [8]uint16{50, 84, 150, 280, 540, 1052, 2074, 4120}

// Duration returns the conversion time.
func (c ConversionTime) Duration() time.Duration {
	return time.Duration(ctMicros[c&0x7]) * time.Microsecond
}

// Averaging is the number of samples averaged per result (AVG, bits 2:0).
type Averaging uint8

// Constants representing each possible value of type Averaging.
const (
	Averaging1       Averaging = 0 // (000b) -- default
	Averaging4       Averaging = 1 // (001b)
	Averaging16      Averaging = 2 // (010b)
	Averaging64      Averaging = 3 // (011b)
	Averaging128     Averaging = 4 // (100b)
	Averaging256     Averaging = 5 // (101b)
	Averaging512     Averaging = 6 // (110b)
	Averaging1024    Averaging = 7 // (111b)
	AveragingDefault Averaging = Averaging1
)

var avgCount = [8]uint16{1, 4, 16, 64, 128, 256, 512, 1024}

// Samples returns the averaging count.
func (a Averaging) Samples() int { return int(avgCount[a&0x7]) }

// ADC represents the content of the ADC_CONFIG register (01h).
type ADC struct {
	Mode     Mode
	VBusCT   ConversionTime
	VShuntCT ConversionTime
	TempCT   ConversionTime
	Avg      Averaging
}

// Default returns the power-on ADC_CONFIG (0xFB68).
func Default() ADC {
	return ADC{
		Mode:     ModeDefault,
		VBusCT:   ConversionTimeDefault,
		VShuntCT: ConversionTimeDefault,
		TempCT:   ConversionTimeDefault,
		Avg:      AveragingDefault,
	}
}

// Word encodes the register value.
func (a ADC) Word() uint16 {
	return uint16(a.Mode&0xF)<<12 |
		uint16(a.VBusCT&0x7)<<9 |
		uint16(a.VShuntCT&0x7)<<6 |
		uint16(a.TempCT&0x7)<<3 |
		uint16(a.Avg&0x7)
}

// FromWord decodes a register value.
func FromWord(w uint16) ADC {
	return ADC{
		Mode:     Mode(w >> 12 & 0xF),
		VBusCT:   ConversionTime(w >> 9 & 0x7),
		VShuntCT: ConversionTime(w >> 6 & 0x7),
		TempCT:   ConversionTime(w >> 3 & 0x7),
		Avg:      Averaging(w & 0x7),
	}
}

// Period is the time for one complete averaged result across the enabled
// channels.
func (a ADC) Period() time.Duration {
	var t time.Duration
	if a.Mode&modeBus != 0 {
		t += a.VBusCT.Duration()
	}
	if a.Mode&modeShunt != 0 {
		t += a.VShuntCT.Duration()
	}
	if a.Mode&modeTemp != 0 {
		t += a.TempCT.Duration()
	}
	return t * time.Duration(a.Avg.Samples())
}
