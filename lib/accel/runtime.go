// Package accel drives an external vector co-processor runtime: device
// enumeration, per-device kernel modules, a recycling memory pool, and
// stream-based asynchronous dispatch. The runtime itself is a
// collaborator reached through the Runtime interface; the on-device
// kernels are a prebuilt artifact loaded from a configured path.
package accel

import (
	"errors"
	"fmt"
)

// DevicePtr is an address in device memory. It is opaque to the host.
type DevicePtr uint64

// A Runtime is the accelerator driver: it enumerates devices and creates
// per-device contexts.
type Runtime interface {
	Init() error
	DeviceCount() (int, error)
	CreateContext(device int) (Context, error)
	Shutdown() error
}

// A Context owns one device's memory and streams. Async operations on the
// same stream execute in submission order; operations on different
// streams may execute concurrently.
type Context interface {
	LoadModule(path string) (Module, error)
	MemAlloc(size int) (DevicePtr, error)
	MemFree(ptr DevicePtr) error
	CopyToDeviceAsync(dst DevicePtr, src []float64, stream int) error
	CopyFromDeviceAsync(dst []float64, src DevicePtr, stream int) error
	LaunchAsync(fn Function, stream int, args []Arg) error
	SynchronizeStream(stream int) error
	StreamCount() int
	Destroy() error
}

// A Module is a loaded kernel artifact.
type Module interface {
	Function(name string) (Function, error)
}

// A Function is a kernel handle resolved from a module.
type Function interface {
	Name() string
}

type argKind int

const (
	argPtr argKind = iota
	argU64
)

// An Arg is a kernel launch argument: either a device pointer or an
// unsigned 64-bit scalar.
type Arg struct {
	kind argKind
	ptr  DevicePtr
	val  uint64
}

func PtrArg(p DevicePtr) Arg {
	return Arg{kind: argPtr, ptr: p}
}

func U64Arg(v uint64) Arg {
	return Arg{kind: argU64, val: v}
}

// Ptr returns the device pointer and whether the argument holds one.
func (a Arg) Ptr() (DevicePtr, bool) {
	return a.ptr, a.kind == argPtr
}

// U64 returns the scalar value and whether the argument holds one.
func (a Arg) U64() (uint64, bool) {
	return a.val, a.kind == argU64
}

// Misuse errors: the caller got the call sequence wrong. These are
// reported synchronously and are not retryable.
var (
	ErrAlreadyInitialized = errors.New("accel: already initialized, call Finalize first")
	ErrNotInitialized     = errors.New("accel: not initialized")
	ErrNoDevices          = errors.New("accel: no devices found")
	ErrInvalidDevice      = errors.New("accel: invalid device id")
)

// A TransportError reports an accelerator runtime failure. Transport
// errors are unrecoverable: the resource layer never retries them and
// callers should shut down after seeing one.
type TransportError struct {
	Code int
	Name string
	Site string
}

func (e *TransportError) Error() string {
	if e.Site == "" {
		return fmt.Sprintf("accel: %s (code %d)", e.Name, e.Code)
	}
	return fmt.Sprintf("accel: %s (code %d) at %s", e.Name, e.Code, e.Site)
}

// Unrecoverable reports whether err carries a TransportError.
func Unrecoverable(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// site tags a transport error with the call site that observed it.
func site(err error, where string) error {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) && te.Site == "" {
		te.Site = where
		return err
	}
	return fmt.Errorf("%s: %w", where, err)
}
