// Package lib is the quickmp call surface: matrix profile computations
// over one or two time series, served by interchangeable backends. The
// CPU backend runs the recurrence in-process; the accelerator backend
// dispatches the same contracts to device kernels.
package lib

import (
	"errors"
	"fmt"
)

// Misuse errors: the caller got the call sequence or arguments wrong.
// They are reported synchronously and the call sequence must be
// corrected; retrying does not help.
var (
	ErrAlreadyInitialized = errors.New("quickmp: already initialized, call Finalize first")
	ErrNotInitialized     = errors.New("quickmp: not initialized, call Initialize first")
	ErrNoDevices          = errors.New("quickmp: no devices found")
	ErrInvalidDevice      = errors.New("quickmp: invalid device id")
	ErrBadWindow          = errors.New("quickmp: bad window size")
)

// An Engine computes matrix profiles. Engines are synchronous at this
// boundary: every call returns only after its stream has drained, so
// overlap is achieved by concurrent callers submitting to distinct
// streams. Device selection is not internally serialized; callers that
// mix UseDevice with concurrent submissions must serialize externally.
type Engine interface {
	// Initialize prepares deviceCount devices starting at deviceStart,
	// or all discoverable devices when deviceCount is zero.
	Initialize(deviceStart int, deviceCount int) error

	// Finalize releases every device resource. The engine can be
	// initialized again afterwards.
	Finalize() error

	DeviceCount() (int, error)
	UseDevice(id int) error
	CurrentDevice() (int, error)
	StreamCount() (int, error)

	// SlidingDotProduct returns the dot product of q against every
	// window of t, len(t)-len(q)+1 values.
	SlidingDotProduct(t []float64, q []float64, stream int) ([]float64, error)

	// ComputeMeanStd returns the mean and standard deviation of every
	// length-m window of t.
	ComputeMeanStd(t []float64, m int, stream int) ([]float64, []float64, error)

	// SelfJoin returns the matrix profile of t: len(t)-m+1 distances.
	SelfJoin(t []float64, m int, stream int, normalize bool) ([]float64, error)

	// ABJoin returns, for every window of t1, the distance to its
	// nearest window in t2: len(t1)-m+1 values.
	ABJoin(t1 []float64, t2 []float64, m int, stream int, normalize bool) ([]float64, error)

	// SleepUs parks the given stream, for benchmarking stream overlap.
	SleepUs(microseconds uint64, stream int) error
}

func checkProfileArgs(n int, m int) error {
	if n < 1 {
		return fmt.Errorf("%w: empty series", ErrBadWindow)
	}
	if m < 1 || m > n {
		return fmt.Errorf("%w: m=%d for series of length %d", ErrBadWindow, m, n)
	}
	return nil
}
