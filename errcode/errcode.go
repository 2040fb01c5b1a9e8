package errcode

import (
	"errors"

	"ina228-go/drivers/ina228"
)

// Code is a stable, bus-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK             Code = "ok"
	Unsupported    Code = "unsupported"
	InvalidParams  Code = "invalid_params"
	InvalidPayload Code = "invalid_payload"
	NotCalibrated  Code = "not_calibrated"
	CalRange       Code = "calibration_range"
	NotConnected   Code = "not_connected"

	Error Code = "error" // generic fallback
)

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	return MapDriverErr(err)
}

// MapDriverErr maps low-level driver errors to a Code. Transport errors are
// opaque and map to Error.
func MapDriverErr(err error) Code {
	switch {
	case err == nil:
		return OK
	case errors.Is(err, ina228.ErrInvalidCalibration), errors.Is(err, ina228.ErrInvalidRange):
		return InvalidParams
	case errors.Is(err, ina228.ErrCalibrationRange):
		return CalRange
	case errors.Is(err, ina228.ErrNotCalibrated):
		return NotCalibrated
	case errors.Is(err, ina228.ErrWidth):
		return Unsupported
	default:
		return Error
	}
}
