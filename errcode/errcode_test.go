package errcode

import (
	"errors"
	"fmt"
	"testing"

	"ina228-go/drivers/ina228"
)

func TestOf(t *testing.T) {
	cases := []struct {
		err  error
		want Code
	}{
		{nil, OK},
		{Unsupported, Unsupported},
		{fmt.Errorf("wrapped: %w", NotConnected), NotConnected},
		{ina228.ErrCalibrationRange, CalRange},
		{fmt.Errorf("cal: %w", ina228.ErrInvalidCalibration), InvalidParams},
		{ina228.ErrInvalidRange, InvalidParams},
		{ina228.ErrNotCalibrated, NotCalibrated},
		{ina228.ErrWidth, Unsupported},
		{errors.New("i2c nack"), Error},
	}
	for _, c := range cases {
		if got := Of(c.err); got != c.want {
			t.Errorf("Of(%v)=%q want %q", c.err, got, c.want)
		}
	}
}
