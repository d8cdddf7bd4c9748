//go:build !cuda

package gpu

import (
	"fmt"

	"powermodes/internal/logging"
)

// Controller is a no-op power limit controller for builds without CUDA support.
type Controller struct {
	logger *logging.Logger
}

// NewController creates a controller that always reports NVML as unavailable.
func NewController(logger *logging.Logger) *Controller {
	return &Controller{logger: logger}
}

// NewControllerWithNVML is provided for API compatibility; NVML is ignored when CUDA is disabled.
func NewControllerWithNVML(_ NVMLInterface, logger *logging.Logger) *Controller {
	return NewController(logger)
}

// Devices reports that no GPU can be managed in this build.
func (c *Controller) Devices() ([]DeviceLimits, error) {
	c.logger.Debug("gpu.nvml.disabled", "Skipping NVML (built without cuda tag)", nil)
	return nil, fmt.Errorf("%w: rebuild with -tags cuda", ErrUnavailable)
}

// SetPowerLimit reports that no GPU can be managed in this build.
func (c *Controller) SetPowerLimit(index int, _ uint32) error {
	return fmt.Errorf("%w: cannot set the power limit of GPU %d, rebuild with -tags cuda", ErrUnavailable, index)
}
