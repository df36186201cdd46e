package lib

import (
	"errors"

	"github.com/kpaschen/quickmp/lib/accel"
	"github.com/kpaschen/quickmp/lib/settings"
)

// An AccelEngine implements Engine on an accelerator runtime through the
// device resource manager and the stream dispatcher. Transport failures
// surface as accel.TransportError values; accel.Unrecoverable
// distinguishes them from misuse errors so callers can pick a shutdown
// policy.
type AccelEngine struct {
	mgr  *accel.Manager
	disp *accel.Dispatcher
}

func NewAccelEngine(rt accel.Runtime, cfg settings.QuickmpSettings) *AccelEngine {
	mgr := accel.NewManager(rt, cfg.KernelPath)
	return &AccelEngine{mgr: mgr, disp: accel.NewDispatcher(mgr)}
}

// mapErr rewrites the resource layer's misuse errors into the call
// surface's, so both backends fail identically. Transport errors pass
// through untouched.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, accel.ErrAlreadyInitialized):
		return ErrAlreadyInitialized
	case errors.Is(err, accel.ErrNotInitialized):
		return ErrNotInitialized
	case errors.Is(err, accel.ErrNoDevices):
		return ErrNoDevices
	case errors.Is(err, accel.ErrInvalidDevice):
		return ErrInvalidDevice
	}
	return err
}

func (e *AccelEngine) Initialize(deviceStart int, deviceCount int) error {
	return mapErr(e.mgr.Initialize(deviceStart, deviceCount))
}

func (e *AccelEngine) Finalize() error {
	return mapErr(e.mgr.Finalize())
}

func (e *AccelEngine) DeviceCount() (int, error) {
	if e.mgr.DeviceCount() == 0 {
		return 0, ErrNotInitialized
	}
	return e.mgr.DeviceCount(), nil
}

func (e *AccelEngine) UseDevice(id int) error {
	return mapErr(e.mgr.UseDevice(id))
}

func (e *AccelEngine) CurrentDevice() (int, error) {
	if e.mgr.CurrentDevice() < 0 {
		return 0, ErrNotInitialized
	}
	return e.mgr.CurrentDevice(), nil
}

func (e *AccelEngine) StreamCount() (int, error) {
	n, err := e.mgr.StreamCount()
	return n, mapErr(err)
}

func (e *AccelEngine) SlidingDotProduct(t []float64, q []float64, stream int) ([]float64, error) {
	if err := checkProfileArgs(len(t), len(q)); err != nil {
		return nil, err
	}
	qt := make([]float64, len(t)-len(q)+1)
	if err := e.disp.SlidingDotProduct(t, q, qt, stream); err != nil {
		return nil, mapErr(err)
	}
	return qt, nil
}

func (e *AccelEngine) ComputeMeanStd(t []float64, m int, stream int) ([]float64, []float64, error) {
	if err := checkProfileArgs(len(t), m); err != nil {
		return nil, nil, err
	}
	mu := make([]float64, len(t)-m+1)
	sigma := make([]float64, len(t)-m+1)
	if err := e.disp.MeanStd(t, m, mu, sigma, stream); err != nil {
		return nil, nil, mapErr(err)
	}
	return mu, sigma, nil
}

func (e *AccelEngine) SelfJoin(t []float64, m int, stream int, normalize bool) ([]float64, error) {
	if err := checkProfileArgs(len(t), m); err != nil {
		return nil, err
	}
	p := make([]float64, len(t)-m+1)
	if err := e.disp.SelfJoin(t, m, p, stream, normalize); err != nil {
		return nil, mapErr(err)
	}
	return p, nil
}

func (e *AccelEngine) ABJoin(t1 []float64, t2 []float64, m int, stream int, normalize bool) ([]float64, error) {
	if err := checkProfileArgs(len(t1), m); err != nil {
		return nil, err
	}
	if err := checkProfileArgs(len(t2), m); err != nil {
		return nil, err
	}
	p := make([]float64, len(t1)-m+1)
	if err := e.disp.ABJoin(t1, t2, m, p, stream, normalize); err != nil {
		return nil, mapErr(err)
	}
	return p, nil
}

func (e *AccelEngine) SleepUs(microseconds uint64, stream int) error {
	return mapErr(e.disp.Sleep(microseconds, stream))
}
