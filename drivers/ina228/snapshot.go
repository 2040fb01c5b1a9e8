package ina228

// Snapshot collects every telemetry register in one pass.
// Zero values remain where individual reads fail.
type Snapshot struct {
	BusVoltage   float64 // V
	ShuntVoltage float64 // V
	Current      float64 // A
	Power        float64 // W
	Energy       float64 // J
	Charge       float64 // C
	DieTemp      float64 // °C
	Diag         Diag
}

func (d *Device) Snapshot() (Snapshot, error) {
	var s Snapshot
	err := d.SnapshotInto(&s)
	return s, err
}

// SnapshotInto fills out and returns the first read error, if any.
func (d *Device) SnapshotInto(out *Snapshot) error {
	var s Snapshot
	var first error
	keep := func(e error) bool {
		if e != nil && first == nil {
			first = e
		}
		return e == nil
	}
	if v, e := d.BusVoltage(); keep(e) {
		s.BusVoltage = v
	}
	if v, e := d.ShuntVoltage(); keep(e) {
		s.ShuntVoltage = v
	}
	if v, e := d.Current(); keep(e) {
		s.Current = v
	}
	if v, e := d.Power(); keep(e) {
		s.Power = v
	}
	if v, e := d.Energy(); keep(e) {
		s.Energy = v
	}
	if v, e := d.Charge(); keep(e) {
		s.Charge = v
	}
	if v, e := d.DieTemp(); keep(e) {
		s.DieTemp = v
	}
	if v, e := d.Diagnostics(); keep(e) {
		s.Diag = v
	}
	*out = s
	return first
}
