package accel

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/kpaschen/quickmp/lib/stomp"
)

// SimRuntime implements the Runtime contract in-process: "device" memory
// lives in host slices and kernel launches run the host recurrence from
// lib/stomp. It serves development and tests on machines without
// accelerator hardware; everything above the Runtime interface (pool,
// manager, dispatcher) runs unchanged against it.
//
// Submissions execute eagerly, so same-stream ordering holds trivially
// and SynchronizeStream has nothing left to wait for.
type SimRuntime struct {
	deviceCount int
	initialized bool
}

func NewSimRuntime(deviceCount int) *SimRuntime {
	return &SimRuntime{deviceCount: deviceCount}
}

func (r *SimRuntime) Init() error {
	r.initialized = true
	return nil
}

func (r *SimRuntime) DeviceCount() (int, error) {
	if !r.initialized {
		return 0, &TransportError{Code: 100, Name: "SIM_NOT_INITIALIZED"}
	}
	return r.deviceCount, nil
}

func (r *SimRuntime) CreateContext(device int) (Context, error) {
	if device < 0 || device >= r.deviceCount {
		return nil, &TransportError{Code: 101, Name: "SIM_INVALID_DEVICE"}
	}
	return &SimContext{
		device: device,
		next:   1,
		mem:    make(map[DevicePtr][]float64),
	}, nil
}

func (r *SimRuntime) Shutdown() error {
	r.initialized = false
	return nil
}

// SimContext is one simulated device. The probe methods (AllocCalls,
// LiveBlocks) expose allocator traffic so pool recycling is observable in
// tests.
type SimContext struct {
	mu         sync.Mutex
	device     int
	next       DevicePtr
	mem        map[DevicePtr][]float64
	allocCalls int
	destroyed  bool
}

type simModule struct {
	ctx *SimContext
}

type simFunction string

func (f simFunction) Name() string {
	return string(f)
}

var simKernels = map[string]bool{
	kernelSelfJoin:   true,
	kernelABJoin:     true,
	kernelSelfJoinED: true,
	kernelABJoinED:   true,
	kernelMeanStd:    true,
	kernelDotProduct: true,
	kernelSleep:      true,
}

func (c *SimContext) LoadModule(path string) (Module, error) {
	if path == "" {
		return nil, &TransportError{Code: 102, Name: "SIM_MODULE_NOT_FOUND"}
	}
	return &simModule{ctx: c}, nil
}

func (m *simModule) Function(name string) (Function, error) {
	if !simKernels[name] {
		return nil, &TransportError{Code: 103, Name: "SIM_FUNCTION_NOT_FOUND"}
	}
	return simFunction(name), nil
}

func (c *SimContext) MemAlloc(size int) (DevicePtr, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return 0, &TransportError{Code: 104, Name: "SIM_CONTEXT_DESTROYED"}
	}
	if size < 0 || size%bytesPerSample != 0 {
		return 0, &TransportError{Code: 105, Name: "SIM_BAD_ALLOC_SIZE"}
	}
	c.allocCalls++
	ptr := c.next
	c.next++
	c.mem[ptr] = make([]float64, size/bytesPerSample)
	return ptr, nil
}

func (c *SimContext) MemFree(ptr DevicePtr) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.mem[ptr]; !ok {
		return &TransportError{Code: 106, Name: "SIM_INVALID_ADDRESS"}
	}
	delete(c.mem, ptr)
	return nil
}

func (c *SimContext) buffer(ptr DevicePtr) ([]float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf, ok := c.mem[ptr]
	if !ok {
		return nil, &TransportError{Code: 106, Name: "SIM_INVALID_ADDRESS"}
	}
	return buf, nil
}

func (c *SimContext) CopyToDeviceAsync(dst DevicePtr, src []float64, stream int) error {
	buf, err := c.buffer(dst)
	if err != nil {
		return err
	}
	if len(src) > len(buf) {
		return &TransportError{Code: 107, Name: "SIM_COPY_OUT_OF_BOUNDS"}
	}
	copy(buf, src)
	return nil
}

func (c *SimContext) CopyFromDeviceAsync(dst []float64, src DevicePtr, stream int) error {
	buf, err := c.buffer(src)
	if err != nil {
		return err
	}
	if len(dst) > len(buf) {
		return &TransportError{Code: 107, Name: "SIM_COPY_OUT_OF_BOUNDS"}
	}
	copy(dst, buf)
	return nil
}

func (c *SimContext) LaunchAsync(fn Function, stream int, args []Arg) error {
	result, err := c.runKernel(fn.Name(), args)
	if err != nil {
		return err
	}
	if result.dst != 0 {
		buf, err := c.buffer(result.dst)
		if err != nil {
			return err
		}
		copy(buf, result.values)
	}
	if result.dst2 != 0 {
		buf, err := c.buffer(result.dst2)
		if err != nil {
			return err
		}
		copy(buf, result.values2)
	}
	return nil
}

type kernelResult struct {
	dst     DevicePtr
	values  []float64
	dst2    DevicePtr
	values2 []float64
}

func (c *SimContext) runKernel(name string, args []Arg) (kernelResult, error) {
	var none kernelResult
	switch name {
	case kernelSelfJoin, kernelSelfJoinED:
		t, err := c.inputArg(args, 0)
		if err != nil {
			return none, err
		}
		pPtr, n, m, err := decodeJoinTail(args, 1)
		if err != nil {
			return none, err
		}
		p, err := stomp.SelfJoin(t[:n], m, name == kernelSelfJoin)
		if err != nil {
			return none, kernelFailed(err)
		}
		return kernelResult{dst: pPtr, values: p}, nil

	case kernelABJoin, kernelABJoinED:
		t1, err := c.inputArg(args, 0)
		if err != nil {
			return none, err
		}
		t2, err := c.inputArg(args, 1)
		if err != nil {
			return none, err
		}
		pPtr, ok := args[2].Ptr()
		if !ok {
			return none, badArgs()
		}
		n1, err := scalarArg(args, 3)
		if err != nil {
			return none, err
		}
		n2, err := scalarArg(args, 4)
		if err != nil {
			return none, err
		}
		m, err := scalarArg(args, 5)
		if err != nil {
			return none, err
		}
		p, err := stomp.ABJoin(t1[:n1], t2[:n2], m, name == kernelABJoin)
		if err != nil {
			return none, kernelFailed(err)
		}
		return kernelResult{dst: pPtr, values: p}, nil

	case kernelMeanStd:
		t, err := c.inputArg(args, 0)
		if err != nil {
			return none, err
		}
		muPtr, ok := args[1].Ptr()
		if !ok {
			return none, badArgs()
		}
		sigmaPtr, ok := args[2].Ptr()
		if !ok {
			return none, badArgs()
		}
		n, err := scalarArg(args, 3)
		if err != nil {
			return none, err
		}
		m, err := scalarArg(args, 4)
		if err != nil {
			return none, err
		}
		mu, sigma, err := stomp.MeanStd(t[:n], m)
		if err != nil {
			return none, kernelFailed(err)
		}
		return kernelResult{dst: muPtr, values: mu, dst2: sigmaPtr, values2: sigma}, nil

	case kernelDotProduct:
		t, err := c.inputArg(args, 0)
		if err != nil {
			return none, err
		}
		q, err := c.inputArg(args, 1)
		if err != nil {
			return none, err
		}
		qtPtr, ok := args[2].Ptr()
		if !ok {
			return none, badArgs()
		}
		n, err := scalarArg(args, 3)
		if err != nil {
			return none, err
		}
		m, err := scalarArg(args, 4)
		if err != nil {
			return none, err
		}
		qt, err := stomp.SlidingDotProduct(t[:n], q[:m])
		if err != nil {
			return none, kernelFailed(err)
		}
		return kernelResult{dst: qtPtr, values: qt}, nil

	case kernelSleep:
		us, err := scalarArg(args, 0)
		if err != nil {
			return none, err
		}
		time.Sleep(time.Duration(us) * time.Microsecond)
		return none, nil
	}
	return none, &TransportError{Code: 103, Name: "SIM_FUNCTION_NOT_FOUND"}
}

func (c *SimContext) inputArg(args []Arg, i int) ([]float64, error) {
	if i >= len(args) {
		return nil, badArgs()
	}
	ptr, ok := args[i].Ptr()
	if !ok {
		return nil, badArgs()
	}
	return c.buffer(ptr)
}

func decodeJoinTail(args []Arg, i int) (DevicePtr, int, int, error) {
	if i+2 >= len(args) {
		return 0, 0, 0, badArgs()
	}
	ptr, ok := args[i].Ptr()
	if !ok {
		return 0, 0, 0, badArgs()
	}
	n, err := scalarArg(args, i+1)
	if err != nil {
		return 0, 0, 0, err
	}
	m, err := scalarArg(args, i+2)
	if err != nil {
		return 0, 0, 0, err
	}
	return ptr, n, m, nil
}

func scalarArg(args []Arg, i int) (int, error) {
	if i >= len(args) {
		return 0, badArgs()
	}
	v, ok := args[i].U64()
	if !ok {
		return 0, badArgs()
	}
	return int(v), nil
}

func badArgs() error {
	return &TransportError{Code: 108, Name: "SIM_BAD_KERNEL_ARGS"}
}

func kernelFailed(err error) error {
	return &TransportError{Code: 109, Name: fmt.Sprintf("SIM_KERNEL_FAILED: %v", err)}
}

func (c *SimContext) SynchronizeStream(stream int) error {
	if stream < 0 {
		return &TransportError{Code: 110, Name: "SIM_INVALID_STREAM"}
	}
	return nil
}

func (c *SimContext) StreamCount() int {
	return runtime.NumCPU()
}

func (c *SimContext) Destroy() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mem = make(map[DevicePtr][]float64)
	c.destroyed = true
	return nil
}

// AllocCalls reports how many times the underlying allocator was asked
// for new memory.
func (c *SimContext) AllocCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.allocCalls
}

// LiveBlocks reports how many blocks are currently allocated on the
// simulated device.
func (c *SimContext) LiveBlocks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.mem)
}
