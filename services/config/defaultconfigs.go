package config

// Embedded configuration, keyed by device ID (the value placed in ctx under
// CtxDeviceKey).

const cfgPico = `{
  "powermon": {
    "name": "ina228",
    "bus": "i2c0",
    "addr": 64,
    "max_current_A": 10.24,
    "shunt_ohms": 0.002,
    "range": "163.84mV",
    "sample_every_ms": 1000
  },
  "heartbeat": {
    "interval": 5
  }
}`

const cfgHost = `{
  "powermon": {
    "name": "ina228",
    "bus": "/dev/i2c-1",
    "max_current_A": 10.24,
    "shunt_ohms": 0.002,
    "sample_every_ms": 1000
  }
}`

var embeddedConfigs = map[string][]byte{
	"pico": []byte(cfgPico),
	"host": []byte(cfgHost),
}
