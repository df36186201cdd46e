package accel

import (
	"errors"
	"testing"
)

const testKernelPath = "/opt/quickmp/libquickmp-device.vso"

func newManager(t *testing.T, devices int) *Manager {
	t.Helper()
	return NewManager(NewSimRuntime(devices), testKernelPath)
}

func TestManagerInitialize(t *testing.T) {
	mgr := newManager(t, 2)

	if err := mgr.Initialize(0, 0); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	if mgr.DeviceCount() != 2 {
		t.Errorf("expected 2 devices but got %d", mgr.DeviceCount())
	}
	if mgr.CurrentDevice() != 0 {
		t.Errorf("expected device 0 to be current but got %d", mgr.CurrentDevice())
	}
	streams, err := mgr.StreamCount()
	if err != nil {
		t.Fatalf("stream count failed: %v", err)
	}
	if streams < 1 {
		t.Errorf("expected at least one stream but got %d", streams)
	}
	if err := mgr.Finalize(); err != nil {
		t.Errorf("finalize failed: %v", err)
	}
}

func TestManagerDoubleInitialize(t *testing.T) {
	mgr := newManager(t, 1)

	if err := mgr.Initialize(0, 0); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	if err := mgr.Initialize(0, 0); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("expected ErrAlreadyInitialized but got %v", err)
	}
}

func TestManagerZeroDevices(t *testing.T) {
	mgr := newManager(t, 0)

	if err := mgr.Initialize(0, 0); !errors.Is(err, ErrNoDevices) {
		t.Errorf("expected ErrNoDevices but got %v", err)
	}
}

func TestManagerFinalizeWithoutInitialize(t *testing.T) {
	mgr := newManager(t, 1)

	if err := mgr.Finalize(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized but got %v", err)
	}
}

func TestManagerDeviceSubset(t *testing.T) {
	mgr := newManager(t, 4)

	if err := mgr.Initialize(1, 2); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	if mgr.DeviceCount() != 2 {
		t.Errorf("expected 2 selected devices but got %d", mgr.DeviceCount())
	}
	dev, err := mgr.Current()
	if err != nil {
		t.Fatalf("current device failed: %v", err)
	}
	if dev.ID != 1 {
		t.Errorf("expected first selected device to have runtime id 1 but got %d", dev.ID)
	}
}

func TestManagerRejectsBadDeviceRange(t *testing.T) {
	mgr := newManager(t, 2)

	if err := mgr.Initialize(1, 4); !errors.Is(err, ErrInvalidDevice) {
		t.Errorf("expected ErrInvalidDevice but got %v", err)
	}
}

func TestUseDeviceLeavesCursorOnFailure(t *testing.T) {
	mgr := newManager(t, 2)

	if err := mgr.Initialize(0, 0); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	if err := mgr.UseDevice(1); err != nil {
		t.Fatalf("use device 1 failed: %v", err)
	}
	if err := mgr.UseDevice(5); !errors.Is(err, ErrInvalidDevice) {
		t.Errorf("expected ErrInvalidDevice but got %v", err)
	}
	if mgr.CurrentDevice() != 1 {
		t.Errorf("failed UseDevice mutated the cursor to %d", mgr.CurrentDevice())
	}
	if err := mgr.UseDevice(-1); !errors.Is(err, ErrInvalidDevice) {
		t.Errorf("expected ErrInvalidDevice for negative id but got %v", err)
	}
}

func TestManagerMissingKernelModule(t *testing.T) {
	mgr := NewManager(NewSimRuntime(1), "")

	err := mgr.Initialize(0, 0)
	if err == nil {
		t.Fatalf("expected module load failure")
	}
	if !Unrecoverable(err) {
		t.Errorf("expected an unrecoverable transport error but got %v", err)
	}
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected a TransportError but got %v", err)
	}
	if te.Site == "" {
		t.Errorf("expected the error to carry a call site")
	}
}
