package transfer

import (
	"errors"
	"testing"

	"github.com/jtronge/mpicd-ddtengine/internal/driver"
	"github.com/jtronge/mpicd-ddtengine/internal/memregion"
	"github.com/jtronge/mpicd-ddtengine/internal/registry"
)

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	return registry.New(nil)
}

func TestControllerPrimitiveRoundTrip(t *testing.T) {
	reg := newTestRegistry(t)
	h, err := reg.RegisterPrimitive(4, nil)
	if err != nil {
		t.Fatalf("RegisterPrimitive: %v", err)
	}

	src := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	c, err := New(reg, nil, nil, h, driver.Pack, src, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var packed []byte
	for {
		slot := make([]byte, 3)
		res, err := c.Progress(slot)
		if err != nil {
			t.Fatalf("Progress: %v", err)
		}
		if res.Kind == driver.Done {
			break
		}
		packed = append(packed, slot[:res.N]...)
	}
	if string(packed) != string(src) {
		t.Fatalf("packed = %v, want %v", packed, src)
	}
	if c.Phase() != Complete {
		t.Fatalf("Phase = %v, want Complete", c.Phase())
	}

	// Registry handle must have been released by finalization.
	if err := reg.Deregister(h); err != nil {
		t.Fatalf("Deregister after completion: %v", err)
	}
}

func TestControllerExactBoundaryDefersDone(t *testing.T) {
	reg := newTestRegistry(t)
	h, _ := reg.RegisterPrimitive(1, nil)
	src := []byte{1, 2, 3, 4}

	c, err := New(reg, nil, nil, h, driver.Pack, src, 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	slot := make([]byte, 4)
	res, err := c.Progress(slot)
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if res.Kind != driver.Consumed || res.N != 4 {
		t.Fatalf("first Progress = %+v, want Consumed(4)", res)
	}
	if c.Phase() != Active {
		t.Fatalf("Phase after exact-fill step = %v, want Active (Done deferred)", c.Phase())
	}

	res, err = c.Progress(make([]byte, 4))
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if res.Kind != driver.Done {
		t.Fatalf("second Progress = %+v, want Done", res)
	}
	if c.Phase() != Complete {
		t.Fatalf("Phase = %v, want Complete", c.Phase())
	}
}

func TestControllerZeroCapacitySlot(t *testing.T) {
	reg := newTestRegistry(t)
	h, _ := reg.RegisterPrimitive(1, nil)
	c, err := New(reg, nil, nil, h, driver.Pack, []byte{1, 2}, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := c.Progress(nil)
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if res.Kind != driver.Consumed || res.N != 0 {
		t.Fatalf("Progress(nil) on incomplete transfer = %+v, want Consumed(0)", res)
	}
	if c.Phase() != Active {
		t.Fatalf("Phase = %v, want Active", c.Phase())
	}
}

func TestControllerQueryZeroCompletesImmediately(t *testing.T) {
	reg := newTestRegistry(t)
	h, err := reg.Register(registry.CallbackSet{
		Query:      func(any, []byte, uint64) (uint64, error) { return 0, nil },
		PackStep:   func(any, []byte, uint64, uint64, []byte) (uint64, error) { return 0, nil },
		UnpackStep: func(any, []byte, uint64, uint64, []byte) error { return nil },
	}, nil, false)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	c, err := New(reg, nil, nil, h, driver.Pack, nil, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := c.Progress(make([]byte, 8))
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if res.Kind != driver.Done {
		t.Fatalf("Progress = %+v, want Done on first call", res)
	}
}

func TestControllerFailurePropagatesAndLatches(t *testing.T) {
	reg := newTestRegistry(t)
	wantErr := errors.New("boom")
	calls := 0
	h, _ := reg.Register(registry.CallbackSet{
		Query: func(any, []byte, uint64) (uint64, error) { return 24, nil },
		PackStep: func(any, []byte, uint64, uint64, []byte) (uint64, error) {
			calls++
			if calls == 3 {
				return 0, wantErr
			}
			return 8, nil
		},
		UnpackStep: func(any, []byte, uint64, uint64, []byte) error { return nil },
	}, nil, false)

	c, err := New(reg, nil, nil, h, driver.Pack, make([]byte, 24), 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var lastErr error
	for i := 0; i < 5; i++ {
		_, lastErr = c.Progress(make([]byte, 8))
		if lastErr != nil {
			break
		}
	}
	if !errors.Is(lastErr, wantErr) {
		t.Fatalf("err = %v, want %v", lastErr, wantErr)
	}
	if c.Phase() != Failed {
		t.Fatalf("Phase = %v, want Failed", c.Phase())
	}

	// Failure latches: subsequent Progress calls keep returning the error.
	if _, err := c.Progress(make([]byte, 8)); !errors.Is(err, wantErr) {
		t.Fatalf("err after failure = %v, want latched %v", err, wantErr)
	}

	if err := reg.Deregister(h); err != nil {
		t.Fatalf("Deregister after failure should succeed (handle released): %v", err)
	}
}

func TestControllerCancelIsIdempotent(t *testing.T) {
	reg := newTestRegistry(t)
	h, _ := reg.RegisterPrimitive(1, nil)
	c, err := New(reg, nil, nil, h, driver.Pack, []byte{1, 2, 3}, 3)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	c.Cancel()
	c.Cancel() // must not panic or double-release the registry handle

	if c.Phase() != Cancelled {
		t.Fatalf("Phase = %v, want Cancelled", c.Phase())
	}
	if _, err := c.Progress(make([]byte, 1)); !errors.Is(err, ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if err := reg.Deregister(h); err != nil {
		t.Fatalf("Deregister after cancel: %v", err)
	}
}

func TestControllerStateFreeInvokedExactlyOnce(t *testing.T) {
	reg := newTestRegistry(t)
	freeCalls := 0
	h, _ := reg.Register(registry.CallbackSet{
		StateInit:  func(any, []byte, uint64) (any, error) { return "state", nil },
		StateFree:  func(any) { freeCalls++ },
		Query:      func(any, []byte, uint64) (uint64, error) { return 4, nil },
		PackStep: func(_ any, _ []byte, _ uint64, offset uint64, dst []byte) (uint64, error) {
			n := uint64(len(dst))
			if n > 4-offset {
				n = 4 - offset
			}
			return n, nil
		},
		UnpackStep: func(any, []byte, uint64, uint64, []byte) error { return nil },
	}, nil, false)

	c, err := New(reg, nil, nil, h, driver.Pack, make([]byte, 4), 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for {
		res, err := c.Progress(make([]byte, 4))
		if err != nil {
			t.Fatalf("Progress: %v", err)
		}
		if res.Kind == driver.Done {
			break
		}
	}
	c.Finish() // idempotent, must not invoke state-free a second time
	if freeCalls != 1 {
		t.Fatalf("state-free invoked %d times, want 1", freeCalls)
	}
}

func TestControllerFinishMidFlightFinalizesAsCancelledNotComplete(t *testing.T) {
	reg := newTestRegistry(t)
	h, err := reg.RegisterPrimitive(4, nil)
	if err != nil {
		t.Fatalf("RegisterPrimitive: %v", err)
	}

	c, err := New(reg, nil, nil, h, driver.Pack, make([]byte, 16), 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// Advance one fragment short of the 16-byte total, then give up as a
	// caller would after an out-of-band transport failure.
	if _, err := c.Progress(make([]byte, 8)); err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if total, ok := c.PackedSize(); !ok || total != 16 {
		t.Fatalf("PackedSize = %d,%v, want 16,true", total, ok)
	}

	c.Finish()
	if got := c.Phase(); got != Cancelled {
		t.Fatalf("Phase after mid-flight Finish = %s, want %s", got, Cancelled)
	}

	// Idempotent: a second Finish must not change the outcome.
	c.Finish()
	if got := c.Phase(); got != Cancelled {
		t.Fatalf("Phase after repeated Finish = %s, want %s", got, Cancelled)
	}

	if err := reg.Deregister(h); err != nil {
		t.Fatalf("Deregister after Finish: %v", err)
	}
}

func TestControllerFinishAtExactCompletionReportsComplete(t *testing.T) {
	reg := newTestRegistry(t)
	h, err := reg.RegisterPrimitive(4, nil)
	if err != nil {
		t.Fatalf("RegisterPrimitive: %v", err)
	}

	c, err := New(reg, nil, nil, h, driver.Pack, make([]byte, 8), 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Progress(make([]byte, 8)); err != nil {
		t.Fatalf("Progress: %v", err)
	}
	// Cursor now equals total, but Done has not yet been observed via a
	// follow-up Progress call; Finish should still report Complete.
	c.Finish()
	if got := c.Phase(); got != Complete {
		t.Fatalf("Phase after Finish at full cursor = %s, want %s", got, Complete)
	}
}

func TestControllerMemoryRegionsRegistersAndUnregisters(t *testing.T) {
	reg := newTestRegistry(t)
	buf := make([]byte, 16)
	h, err := reg.Register(registry.CallbackSet{
		RegionCount: func(any, []byte, uint64) (int, error) { return 2, nil },
		RegionList: func(any, []byte, uint64, int) ([]registry.Region, error) {
			return []registry.Region{
				{Data: buf[0:8], Type: registry.RawBytesHandle},
				{Data: buf[8:16], Type: registry.RawBytesHandle},
			}, nil
		},
	}, nil, false)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	regr := memregion.NewRegistrar()
	c, err := New(reg, regr, nil, h, driver.Pack, buf, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var regions int
	for {
		res, err := c.Progress(nil)
		if err != nil {
			t.Fatalf("Progress: %v", err)
		}
		if res.Kind == driver.Done {
			break
		}
		if res.Kind != driver.NeedRegion {
			t.Fatalf("Kind = %v, want NeedRegion", res.Kind)
		}
		regions++
	}
	if regions != 2 {
		t.Fatalf("saw %d regions, want 2", regions)
	}
	if c.Phase() != Complete {
		t.Fatalf("Phase = %v, want Complete", c.Phase())
	}
}
