//go:build cuda

package gpu

import (
	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

// MockNVML is a mock implementation of NVMLInterface for testing
type MockNVML struct {
	InitReturn                   nvml.Return
	ShutdownReturn               nvml.Return
	DeviceCount                  int
	DeviceCountReturn            nvml.Return
	Devices                      []MockDevice
	DeviceGetHandleByIndexReturn nvml.Return
	Shutdowns                    int
}

// MockDevice represents a mock GPU device
type MockDevice struct {
	Name              string
	NameReturn        nvml.Return
	UUID              string
	UUIDReturn        nvml.Return
	MinLimit          uint32
	MaxLimit          uint32
	ConstraintsReturn nvml.Return
	Limit             uint32
	LimitReturn       nvml.Return
	SetLimitReturn    nvml.Return
}

// NewMockNVML creates a new mock NVML instance
func NewMockNVML() *MockNVML {
	return &MockNVML{
		InitReturn:                   nvml.SUCCESS,
		ShutdownReturn:               nvml.SUCCESS,
		DeviceCountReturn:            nvml.SUCCESS,
		DeviceGetHandleByIndexReturn: nvml.SUCCESS,
		Devices:                      make([]MockDevice, 0),
	}
}

// Init mocks NVML initialization
func (m *MockNVML) Init() nvml.Return {
	return m.InitReturn
}

// Shutdown mocks NVML shutdown
func (m *MockNVML) Shutdown() nvml.Return {
	m.Shutdowns++
	return m.ShutdownReturn
}

// DeviceGetCount mocks getting device count
func (m *MockNVML) DeviceGetCount() (int, nvml.Return) {
	return m.DeviceCount, m.DeviceCountReturn
}

// DeviceGetHandleByIndex mocks getting device handle
func (m *MockNVML) DeviceGetHandleByIndex(index int) (DeviceInterface, nvml.Return) {
	if index < 0 || index >= len(m.Devices) {
		return nil, nvml.ERROR_INVALID_ARGUMENT
	}
	return mockDeviceImpl{device: &m.Devices[index]}, m.DeviceGetHandleByIndexReturn
}

// mockDeviceImpl implements DeviceInterface for testing
type mockDeviceImpl struct {
	device *MockDevice
}

func (m mockDeviceImpl) GetName() (string, nvml.Return) {
	return m.device.Name, m.device.NameReturn
}

func (m mockDeviceImpl) GetUUID() (string, nvml.Return) {
	return m.device.UUID, m.device.UUIDReturn
}

func (m mockDeviceImpl) GetPowerManagementLimit() (uint32, nvml.Return) {
	return m.device.Limit, m.device.LimitReturn
}

func (m mockDeviceImpl) GetPowerManagementLimitConstraints() (uint32, uint32, nvml.Return) {
	return m.device.MinLimit, m.device.MaxLimit, m.device.ConstraintsReturn
}

// SetPowerManagementLimit records the limit when the mock is configured to succeed
func (m mockDeviceImpl) SetPowerManagementLimit(limit uint32) nvml.Return {
	if m.device.SetLimitReturn == nvml.SUCCESS {
		m.device.Limit = limit
	}
	return m.device.SetLimitReturn
}
