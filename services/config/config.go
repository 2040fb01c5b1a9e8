// Package config publishes a device's JSON configuration on the bus, one
// retained message per top-level key under config/<key>.
package config

import (
	"context"
	"encoding/json"
	"errors"

	"ina228-go/bus"
)

const (
	serviceName  = "config"
	configPrefix = "config"
	CtxDeviceKey = "device" // context key used for device ID
)

var (
	ErrNoDevice = errors.New("config: missing device ID in context")
	ErrNoConfig = errors.New("config: no config for device")
	ErrNotMap   = errors.New("config: config is not a JSON object")
)

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

type ConfigService struct {
	Name string
	// Raw, when set, is published instead of the embedded config for the
	// device (e.g. a file given on the command line).
	Raw []byte
}

func NewConfigService() *ConfigService {
	return &ConfigService{Name: serviceName}
}

func (s *ConfigService) source(ctx context.Context) ([]byte, error) {
	if len(s.Raw) > 0 {
		return s.Raw, nil
	}
	device, _ := ctx.Value(CtxDeviceKey).(string)
	if device == "" {
		return nil, ErrNoDevice
	}
	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return nil, errors.Join(ErrNoConfig, errors.New(device))
	}
	return raw, nil
}

// publishConfig publishes every top-level key as a retained message.
func (s *ConfigService) publishConfig(ctx context.Context, conn *bus.Connection) error {
	raw, err := s.source(ctx)
	if err != nil {
		return err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return errors.Join(ErrNotMap, err)
	}
	if m == nil {
		return ErrNotMap
	}
	for k, v := range m {
		conn.Publish(&bus.Message{
			Topic:    bus.T(configPrefix, k),
			Payload:  v,
			Retained: true,
		})
	}
	return nil
}

// Start publishes the config in the background.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if err := s.publishConfig(ctx, conn); err != nil {
			println("Error:", err.Error())
		}
	}()
}
