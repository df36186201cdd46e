package accel

import (
	"fmt"
	"log"
)

// Kernel entry points resolved from the device module. The module is a
// separately built artifact that must implement the same join contracts
// as the host recurrence in lib/stomp.
const (
	kernelSelfJoin   = "selfjoin_kernel"
	kernelABJoin     = "abjoin_kernel"
	kernelSelfJoinED = "selfjoin_ed_kernel"
	kernelABJoinED   = "abjoin_ed_kernel"
	kernelMeanStd    = "compute_mean_std_kernel"
	kernelDotProduct = "sliding_dot_product_kernel"
	kernelSleep      = "sleep_kernel"
)

// A DeviceContext holds all resources of one device: its runtime context,
// the loaded kernel module with resolved function handles, and the memory
// pool.
type DeviceContext struct {
	ID   int
	ctx  Context
	mod  Module
	pool *MemoryPool

	selfjoin   Function
	abjoin     Function
	selfjoinED Function
	abjoinED   Function
	meanStd    Function
	dotProduct Function
	sleep      Function
}

// Pool exposes the device's memory pool.
func (d *DeviceContext) Pool() *MemoryPool {
	return d.pool
}

// A Manager enumerates accelerator devices and owns one DeviceContext per
// selected device. The manager instance is the handle for everything: no
// package-level state.
type Manager struct {
	runtime    Runtime
	kernelPath string
	devices    []*DeviceContext
	current    int
}

func NewManager(rt Runtime, kernelPath string) *Manager {
	return &Manager{runtime: rt, kernelPath: kernelPath, current: -1}
}

// Initialize brings up the runtime and creates one context per selected
// device: deviceCount devices starting at deviceStart, or all devices
// from deviceStart when deviceCount is zero. Device 0 of the selection is
// left as the current device.
func (m *Manager) Initialize(deviceStart int, deviceCount int) error {
	if len(m.devices) > 0 {
		return ErrAlreadyInitialized
	}
	if err := m.runtime.Init(); err != nil {
		return site(err, "initialize: runtime init")
	}
	total, err := m.runtime.DeviceCount()
	if err != nil {
		return site(err, "initialize: device count")
	}
	if total == 0 {
		return ErrNoDevices
	}
	if deviceCount == 0 {
		deviceCount = total - deviceStart
	}
	if deviceStart < 0 || deviceCount < 1 || deviceStart+deviceCount > total {
		return fmt.Errorf("%w: devices [%d, %d) of %d",
			ErrInvalidDevice, deviceStart, deviceStart+deviceCount, total)
	}

	m.devices = make([]*DeviceContext, 0, deviceCount)
	for i := 0; i < deviceCount; i++ {
		id := deviceStart + i
		dev, err := m.initDevice(id)
		if err != nil {
			m.devices = nil
			return err
		}
		m.devices = append(m.devices, dev)
	}
	m.current = 0
	log.Printf("initialized %d accelerator device(s) starting at %d\n", deviceCount, deviceStart)
	return nil
}

func (m *Manager) initDevice(id int) (*DeviceContext, error) {
	ctx, err := m.runtime.CreateContext(id)
	if err != nil {
		return nil, site(err, fmt.Sprintf("initialize: create context for device %d", id))
	}
	mod, err := ctx.LoadModule(m.kernelPath)
	if err != nil {
		return nil, site(err, fmt.Sprintf("initialize: load kernel module %q", m.kernelPath))
	}
	dev := &DeviceContext{ID: id, ctx: ctx, mod: mod, pool: NewMemoryPool(ctx)}

	for _, k := range []struct {
		name string
		dst  *Function
	}{
		{kernelSelfJoin, &dev.selfjoin},
		{kernelABJoin, &dev.abjoin},
		{kernelSelfJoinED, &dev.selfjoinED},
		{kernelABJoinED, &dev.abjoinED},
		{kernelMeanStd, &dev.meanStd},
		{kernelDotProduct, &dev.dotProduct},
		{kernelSleep, &dev.sleep},
	} {
		fn, err := mod.Function(k.name)
		if err != nil {
			return nil, site(err, fmt.Sprintf("initialize: resolve kernel %q", k.name))
		}
		*k.dst = fn
	}
	return dev, nil
}

// Finalize drains every device's memory pool back to the runtime,
// destroys all contexts and shuts the runtime down.
func (m *Manager) Finalize() error {
	if len(m.devices) == 0 {
		return ErrNotInitialized
	}
	var firstErr error
	for _, dev := range m.devices {
		if err := dev.pool.Clear(); err != nil && firstErr == nil {
			firstErr = site(err, fmt.Sprintf("finalize: clear pool for device %d", dev.ID))
		}
		if err := dev.ctx.Destroy(); err != nil && firstErr == nil {
			firstErr = site(err, fmt.Sprintf("finalize: destroy context for device %d", dev.ID))
		}
	}
	m.devices = nil
	m.current = -1
	if err := m.runtime.Shutdown(); err != nil && firstErr == nil {
		firstErr = site(err, "finalize: runtime shutdown")
	}
	return firstErr
}

func (m *Manager) DeviceCount() int {
	return len(m.devices)
}

func (m *Manager) CurrentDevice() int {
	return m.current
}

// UseDevice moves the current-device cursor. The cursor is deliberately
// not locked: callers that switch devices while other goroutines submit
// work must serialize externally, e.g. by pinning one goroutine per
// device before any concurrent submission.
func (m *Manager) UseDevice(id int) error {
	if id < 0 || id >= len(m.devices) {
		return fmt.Errorf("%w: %d of %d", ErrInvalidDevice, id, len(m.devices))
	}
	m.current = id
	return nil
}

// StreamCount reports the current device's concurrency fan-out.
func (m *Manager) StreamCount() (int, error) {
	dev, err := m.Current()
	if err != nil {
		return 0, err
	}
	return dev.ctx.StreamCount(), nil
}

// Current returns the context of the current device.
func (m *Manager) Current() (*DeviceContext, error) {
	if m.current < 0 || m.current >= len(m.devices) {
		return nil, ErrNotInitialized
	}
	return m.devices[m.current], nil
}
