package types

// ------------------------
// Power monitor (ina228)
// ------------------------

// Retained info: hal/cap/power/monitor/<name>/info
type PowerMonitorInfo struct {
	Bus         string  `json:"bus"`
	Addr        uint16  `json:"addr"`
	MaxCurrentA float64 `json:"max_current_A"`
	ShuntOhms   float64 `json:"shunt_ohms"`
	Range       string  `json:"range"` // "163.84mV" | "40.96mV"
	CurrentLSB  float64 `json:"current_lsb_A"`
	ShuntCal    uint16  `json:"shunt_cal"`
	Calibrated  bool    `json:"calibrated"`
}

// Retained value: hal/cap/power/monitor/<name>/value
type PowerMonitorValue struct {
	BusV     float64 `json:"bus_V"`
	ShuntV   float64 `json:"shunt_V"`
	CurrentA float64 `json:"current_A"`
	PowerW   float64 `json:"power_W"`
	EnergyJ  float64 `json:"energy_J"`
	ChargeC  float64 `json:"charge_C"`
	DieC     float64 `json:"die_C"`
	Diag     uint16  `json:"diag"` // raw DIAG_ALRT bits
	TS       int64   `json:"ts_ms"`
}

// Controls (hal/cap/power/monitor/<name>/control/<verb>)

// ResetEnergy clears the energy and charge accumulators. verb: "reset_energy"
type ResetEnergy struct{}

// SetCalibration applies a new shunt calibration. verb: "calibrate"
type SetCalibration struct {
	MaxCurrentA float64 `json:"max_current_A"`
	ShuntOhms   float64 `json:"shunt_ohms"`
	Range       string  `json:"range,omitempty"` // "" keeps the current range
}

// ReadNow requests an immediate sample. verb: "read"
type ReadNow struct{}

// ------------------------
// Service configuration (config/powermon)
// ------------------------

type PowerMonConfig struct {
	Name          string  `json:"name"`            // capability name, default "ina228"
	Bus           string  `json:"bus"`             // e.g. "/dev/i2c-1" or "i2c0"
	Addr          uint16  `json:"addr,omitempty"`  // 0 => 0x40
	MaxCurrentA   float64 `json:"max_current_A"`   // full-scale expected current
	ShuntOhms     float64 `json:"shunt_ohms"`      // sense resistor
	Range         string  `json:"range,omitempty"` // "163.84mV" (default) | "40.96mV"
	SampleEveryMS int     `json:"sample_every_ms,omitempty"`
	TempcoPPM     uint16  `json:"tempco_ppm,omitempty"` // 0 => temperature compensation off
	SplitAccReads bool    `json:"split_acc_reads,omitempty"`
}
