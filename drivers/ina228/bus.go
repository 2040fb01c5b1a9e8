package ina228

// I2C register access. Every register is big-endian on the wire; the
// register pointer is written first, then the payload is read back with a
// repeated start.

func (d *Device) readRaw(offset byte, n int) (uint64, error) {
	d.w[0] = offset
	if err := d.i2c.Tx(d.addr, d.w[:1], d.r[:n]); err != nil {
		return 0, err
	}
	var v uint64
	for _, b := range d.r[:n] {
		v = v<<8 | uint64(b)
	}
	return v, nil
}

// readReg reads reg using its table width. Accumulator registers are read
// in one 5-byte burst unless the transport cannot do more than four bytes,
// in which case the low byte is fetched separately from offset+4.
func (d *Device) readReg(reg Register) (uint64, error) {
	n := reg.Width()
	if n == 5 && d.splitAcc {
		hi, err := d.readRaw(reg.Offset(), 4)
		if err != nil {
			return 0, err
		}
		lo, err := d.readRaw(reg.Offset()+4, 1)
		if err != nil {
			return 0, err
		}
		return hi<<8 | lo, nil
	}
	return d.readRaw(reg.Offset(), n)
}

func (d *Device) readWord(reg Register) (uint16, error) {
	if reg.Width() != 2 {
		return 0, ErrWidth
	}
	v, err := d.readReg(reg)
	return uint16(v), err
}

func (d *Device) writeWord(reg Register, val uint16) error {
	if reg.Width() != 2 {
		return ErrWidth
	}
	d.w[0] = reg.Offset()
	d.w[1] = byte(val >> 8) // high
	d.w[2] = byte(val)      // low
	return d.i2c.Tx(d.addr, d.w[:3], nil)
}

// updateBits is the read-modify-write of a single flag.
func (d *Device) updateBits(reg Register, mask uint16, on bool) error {
	cur, err := d.readWord(reg)
	if err != nil {
		return err
	}
	return d.writeWord(reg, setBit(cur, mask, on))
}

// modifyRegister replaces the bits in clear with set.
func (d *Device) modifyRegister(reg Register, set, clear uint16) error {
	cur, err := d.readWord(reg)
	if err != nil {
		return err
	}
	return d.writeWord(reg, (cur&^clear)|set)
}
