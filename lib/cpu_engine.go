package lib

import (
	"runtime"
	"time"

	"github.com/kpaschen/quickmp/lib/stomp"
)

// A CPUEngine implements Engine fully synchronously on the host. It has
// exactly one device, its stream arguments are scheduling hints only,
// and it holds no shared mutable state beyond the initialized flag, so
// caller-level parallelism needs no internal locking.
type CPUEngine struct {
	initialized bool
}

func NewCPUEngine() *CPUEngine {
	return &CPUEngine{}
}

// Initialize ignores the device selection; the CPU backend is always
// device 0.
func (e *CPUEngine) Initialize(deviceStart int, deviceCount int) error {
	if e.initialized {
		return ErrAlreadyInitialized
	}
	e.initialized = true
	return nil
}

func (e *CPUEngine) Finalize() error {
	if !e.initialized {
		return ErrNotInitialized
	}
	e.initialized = false
	return nil
}

func (e *CPUEngine) DeviceCount() (int, error) {
	return 1, nil
}

func (e *CPUEngine) UseDevice(id int) error {
	if id != 0 {
		return ErrInvalidDevice
	}
	return nil
}

func (e *CPUEngine) CurrentDevice() (int, error) {
	return 0, nil
}

// StreamCount reports the core count: the useful fan-out for callers
// that parallelize independent computations themselves.
func (e *CPUEngine) StreamCount() (int, error) {
	return runtime.NumCPU(), nil
}

func (e *CPUEngine) SlidingDotProduct(t []float64, q []float64, stream int) ([]float64, error) {
	if !e.initialized {
		return nil, ErrNotInitialized
	}
	if err := checkProfileArgs(len(t), len(q)); err != nil {
		return nil, err
	}
	return stomp.SlidingDotProduct(t, q)
}

func (e *CPUEngine) ComputeMeanStd(t []float64, m int, stream int) ([]float64, []float64, error) {
	if !e.initialized {
		return nil, nil, ErrNotInitialized
	}
	if err := checkProfileArgs(len(t), m); err != nil {
		return nil, nil, err
	}
	return stomp.MeanStd(t, m)
}

func (e *CPUEngine) SelfJoin(t []float64, m int, stream int, normalize bool) ([]float64, error) {
	if !e.initialized {
		return nil, ErrNotInitialized
	}
	if err := checkProfileArgs(len(t), m); err != nil {
		return nil, err
	}
	return stomp.SelfJoin(t, m, normalize)
}

func (e *CPUEngine) ABJoin(t1 []float64, t2 []float64, m int, stream int, normalize bool) ([]float64, error) {
	if !e.initialized {
		return nil, ErrNotInitialized
	}
	if err := checkProfileArgs(len(t1), m); err != nil {
		return nil, err
	}
	if err := checkProfileArgs(len(t2), m); err != nil {
		return nil, err
	}
	return stomp.ABJoin(t1, t2, m, normalize)
}

func (e *CPUEngine) SleepUs(microseconds uint64, stream int) error {
	if !e.initialized {
		return ErrNotInitialized
	}
	time.Sleep(time.Duration(microseconds) * time.Microsecond)
	return nil
}
