//go:build !cuda

package gpu

import (
	"errors"
	"testing"

	"powermodes/internal/logging"
)

func TestStubController(t *testing.T) {
	controller := NewControllerWithNVML(NewRealNVML(), logging.Discard())

	devices, err := controller.Devices()
	if !errors.Is(err, ErrUnavailable) || devices != nil {
		t.Errorf("Devices() = %v, %v", devices, err)
	}
	if err := controller.SetPowerLimit(0, 100000); !errors.Is(err, ErrUnavailable) {
		t.Errorf("SetPowerLimit() error = %v", err)
	}
}
