package gpu

import "errors"

// ErrUnavailable is returned when NVML cannot be used, either because powermodes was built
// without the cuda tag or because the library failed to initialise.
var ErrUnavailable = errors.New("NVML is unavailable")

// DeviceLimits describes the power management state of a single GPU. Values are in milliwatts,
// the unit NVML uses.
type DeviceLimits struct {
	Index             int    `json:"index"`
	Name              string `json:"name"`
	UUID              string `json:"uuid"`
	MinMilliwatts     uint32 `json:"min_mw"`
	MaxMilliwatts     uint32 `json:"max_mw"`
	CurrentMilliwatts uint32 `json:"current_mw"`
}

// Allows reports whether limit is within the device's constraints
func (d DeviceLimits) Allows(milliwatts uint32) bool {
	return milliwatts >= d.MinMilliwatts && milliwatts <= d.MaxMilliwatts
}
