//go:build cuda

package gpu

import (
	"fmt"

	"github.com/NVIDIA/go-nvml/pkg/nvml"

	"powermodes/internal/logging"
)

// Controller reads and sets GPU power limits through NVML. Every call initialises NVML and shuts
// it down again, so a Controller holds no library state between calls.
type Controller struct {
	nvml   NVMLInterface
	logger *logging.Logger
}

// NewController creates a controller backed by the real NVML library
func NewController(logger *logging.Logger) *Controller {
	return &Controller{
		nvml:   NewRealNVML(),
		logger: logger,
	}
}

// NewControllerWithNVML creates a controller with a custom NVML interface (for testing)
func NewControllerWithNVML(nvmlInterface NVMLInterface, logger *logging.Logger) *Controller {
	return &Controller{
		nvml:   nvmlInterface,
		logger: logger,
	}
}

func (c *Controller) open() error {
	if ret := c.nvml.Init(); ret != nvml.SUCCESS {
		c.logger.Warn("gpu.nvml.init.failed", "NVML initialization failed", map[string]interface{}{
			"error": nvml.ErrorString(ret),
		})
		return fmt.Errorf("%w: %s", ErrUnavailable, nvml.ErrorString(ret))
	}
	return nil
}

func (c *Controller) close() {
	if ret := c.nvml.Shutdown(); ret != nvml.SUCCESS {
		c.logger.Debug("gpu.nvml.shutdown.failed", "NVML shutdown failed", map[string]interface{}{
			"error": nvml.ErrorString(ret),
		})
	}
}

// Devices lists every GPU with its power limit constraints. Devices whose handle or constraints
// cannot be read are skipped.
func (c *Controller) Devices() ([]DeviceLimits, error) {
	if err := c.open(); err != nil {
		return nil, err
	}
	defer c.close()

	count, ret := c.nvml.DeviceGetCount()
	if ret != nvml.SUCCESS {
		return nil, fmt.Errorf("failed to get device count: %s", nvml.ErrorString(ret))
	}

	devices := make([]DeviceLimits, 0, count)
	for i := 0; i < count; i++ {
		limits, err := c.readLimits(i)
		if err != nil {
			c.logger.Warn("gpu.device.limits.failed", "Failed to read power limits", map[string]interface{}{
				"index": i,
				"error": err.Error(),
			})
			continue
		}
		devices = append(devices, limits)
	}

	c.logger.Debug("gpu.device.count", "Found GPU devices", map[string]interface{}{
		"count":  count,
		"usable": len(devices),
	})
	return devices, nil
}

func (c *Controller) readLimits(index int) (DeviceLimits, error) {
	device, ret := c.nvml.DeviceGetHandleByIndex(index)
	if ret != nvml.SUCCESS {
		return DeviceLimits{}, fmt.Errorf("failed to get device handle: %s", nvml.ErrorString(ret))
	}

	limits := DeviceLimits{Index: index}
	if name, ret := device.GetName(); ret == nvml.SUCCESS {
		limits.Name = name
	}
	if uuid, ret := device.GetUUID(); ret == nvml.SUCCESS {
		limits.UUID = uuid
	}

	minLimit, maxLimit, ret := device.GetPowerManagementLimitConstraints()
	if ret != nvml.SUCCESS {
		return DeviceLimits{}, fmt.Errorf("failed to get power limit constraints: %s", nvml.ErrorString(ret))
	}
	limits.MinMilliwatts = minLimit
	limits.MaxMilliwatts = maxLimit

	if current, ret := device.GetPowerManagementLimit(); ret == nvml.SUCCESS {
		limits.CurrentMilliwatts = current
	}
	return limits, nil
}

// SetPowerLimit sets the power management limit of the GPU at index. Limits outside the device's
// constraints are refused before NVML is asked.
func (c *Controller) SetPowerLimit(index int, milliwatts uint32) error {
	if err := c.open(); err != nil {
		return err
	}
	defer c.close()

	limits, err := c.readLimits(index)
	if err != nil {
		return fmt.Errorf("GPU %d: %w", index, err)
	}
	if !limits.Allows(milliwatts) {
		return fmt.Errorf("GPU %d: %d mW is outside the allowed range %d-%d mW",
			index, milliwatts, limits.MinMilliwatts, limits.MaxMilliwatts)
	}

	device, ret := c.nvml.DeviceGetHandleByIndex(index)
	if ret != nvml.SUCCESS {
		return fmt.Errorf("GPU %d: failed to get device handle: %s", index, nvml.ErrorString(ret))
	}
	if ret := device.SetPowerManagementLimit(milliwatts); ret != nvml.SUCCESS {
		return fmt.Errorf("GPU %d: failed to set power limit: %s", index, nvml.ErrorString(ret))
	}

	c.logger.Info("gpu.power_limit.set", "GPU power limit set", map[string]interface{}{
		"index":       index,
		"name":        limits.Name,
		"limit_mw":    milliwatts,
		"previous_mw": limits.CurrentMilliwatts,
	})
	return nil
}
