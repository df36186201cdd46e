package accel

import (
	"sync"
)

// A MemoryPool recycles device allocations of a context. Freed blocks go
// on a free list keyed by their exact size and are handed out again
// before the underlying allocator is asked for new memory.
//
// One mutex guards the whole pool. Per-stream free lists were measured
// slower in the original deployment: the underlying allocator serializes
// concurrent allocation calls anyway.
type MemoryPool struct {
	mu    sync.Mutex
	ctx   Context
	free  map[int][]DevicePtr
	sizes map[DevicePtr]int
}

func NewMemoryPool(ctx Context) *MemoryPool {
	return &MemoryPool{
		ctx:   ctx,
		free:  make(map[int][]DevicePtr),
		sizes: make(map[DevicePtr]int),
	}
}

// Alloc returns a block of exactly size bytes, reusing a previously freed
// block of that size when one is available.
func (p *MemoryPool) Alloc(size int) (DevicePtr, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if list := p.free[size]; len(list) > 0 {
		ptr := list[len(list)-1]
		p.free[size] = list[:len(list)-1]
		return ptr, nil
	}
	ptr, err := p.ctx.MemAlloc(size)
	if err != nil {
		return 0, err
	}
	p.sizes[ptr] = size
	return ptr, nil
}

// Free returns a block to the free list under its original size. The
// device memory is not released.
func (p *MemoryPool) Free(ptr DevicePtr) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.free[p.sizes[ptr]] = append(p.free[p.sizes[ptr]], ptr)
}

// Clear physically releases every pooled block and resets the
// bookkeeping. Only called at shutdown; blocks still checked out are not
// tracked on the free list and are left to the context teardown.
func (p *MemoryPool) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for _, ptrs := range p.free {
		for _, ptr := range ptrs {
			if err := p.ctx.MemFree(ptr); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	p.free = make(map[int][]DevicePtr)
	p.sizes = make(map[DevicePtr]int)
	return firstErr
}
