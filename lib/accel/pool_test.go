package accel

import (
	"testing"
)

func newSimContext(t *testing.T) *SimContext {
	t.Helper()
	rt := NewSimRuntime(1)
	if err := rt.Init(); err != nil {
		t.Fatalf("sim runtime init failed: %v", err)
	}
	ctx, err := rt.CreateContext(0)
	if err != nil {
		t.Fatalf("failed to create sim context: %v", err)
	}
	return ctx.(*SimContext)
}

func TestPoolReusesFreedBlocks(t *testing.T) {
	ctx := newSimContext(t)
	pool := NewMemoryPool(ctx)

	ptr, err := pool.Alloc(64)
	if err != nil {
		t.Fatalf("first alloc failed: %v", err)
	}
	pool.Free(ptr)
	ptr2, err := pool.Alloc(64)
	if err != nil {
		t.Fatalf("second alloc failed: %v", err)
	}
	if ptr2 != ptr {
		t.Errorf("expected recycled block %d but got %d", ptr, ptr2)
	}
	if ctx.AllocCalls() != 1 {
		t.Errorf("expected 1 underlying allocation but got %d", ctx.AllocCalls())
	}
}

func TestPoolKeysFreeListBySize(t *testing.T) {
	ctx := newSimContext(t)
	pool := NewMemoryPool(ctx)

	ptr, err := pool.Alloc(64)
	if err != nil {
		t.Fatalf("alloc failed: %v", err)
	}
	pool.Free(ptr)
	if _, err := pool.Alloc(128); err != nil {
		t.Fatalf("alloc of different size failed: %v", err)
	}
	if ctx.AllocCalls() != 2 {
		t.Errorf("expected a fresh allocation for the new size, alloc calls: %d", ctx.AllocCalls())
	}
}

func TestPoolClearReleasesPooledBlocks(t *testing.T) {
	ctx := newSimContext(t)
	pool := NewMemoryPool(ctx)

	ptrs := make([]DevicePtr, 0, 3)
	for _, size := range []int{64, 64, 128} {
		ptr, err := pool.Alloc(size)
		if err != nil {
			t.Fatalf("alloc failed: %v", err)
		}
		ptrs = append(ptrs, ptr)
	}
	for _, ptr := range ptrs {
		pool.Free(ptr)
	}
	if ctx.LiveBlocks() != 3 {
		t.Fatalf("expected 3 live blocks before clear but got %d", ctx.LiveBlocks())
	}
	if err := pool.Clear(); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if ctx.LiveBlocks() != 0 {
		t.Errorf("expected 0 live blocks after clear but got %d", ctx.LiveBlocks())
	}

	// The pool keeps working after a clear.
	if _, err := pool.Alloc(64); err != nil {
		t.Errorf("alloc after clear failed: %v", err)
	}
}
