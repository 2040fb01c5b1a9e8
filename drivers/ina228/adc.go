package ina228

import "ina228-go/drivers/ina228/conf"

// ReadADCConfig returns the decoded ADC_CONFIG register.
func (d *Device) ReadADCConfig() (conf.ADC, error) {
	v, err := d.readWord(RegADCConfig)
	if err != nil {
		return conf.ADC{}, err
	}
	return conf.FromWord(v), nil
}

// ConfigureADC writes ADC_CONFIG.
func (d *Device) ConfigureADC(a conf.ADC) error {
	return d.writeWord(RegADCConfig, a.Word())
}
