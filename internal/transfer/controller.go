// Package transfer implements the Transfer Controller (spec.md section 4.4):
// the per-transfer state machine that owns a driver.State, advances it one
// slot at a time, and performs the Fresh/Active/Complete/Failed/Cancelled
// lifecycle including eager region registration and the ordered finalizer.
//
// Grounded on internal/queue/runner.go's per-tag TagState machine in the
// teacher repo (InFlightFetch/Owned/InFlightCommit), generalized from three
// io_uring-specific states to the five transfer lifecycle phases this domain
// needs.
package transfer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jtronge/mpicd-ddtengine/internal/driver"
	"github.com/jtronge/mpicd-ddtengine/internal/memregion"
	"github.com/jtronge/mpicd-ddtengine/internal/registry"
	"github.com/jtronge/mpicd-ddtengine/internal/telemetry"
)

// ErrCancelled is returned by Progress once a transfer has been cancelled.
var ErrCancelled = errors.New("transfer: cancelled")

// Phase is one state in the transfer lifecycle (spec.md section 4.4):
// Fresh -> Active -> {Complete, Failed, Cancelled}.
type Phase int

const (
	Fresh Phase = iota
	Active
	Complete
	Failed
	Cancelled
)

func (p Phase) String() string {
	switch p {
	case Fresh:
		return "fresh"
	case Active:
		return "active"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return "phase(?)"
	}
}

// Terminal reports whether p is one of the three states Progress will never
// advance out of.
func (p Phase) Terminal() bool {
	return p == Complete || p == Failed || p == Cancelled
}

// Controller drives exactly one transfer to completion. It is not safe for
// concurrent Progress calls (spec.md section 5: a transfer is owned by a
// single caller at a time), but Cancel may be called from another goroutine
// to request early termination.
type Controller struct {
	mu sync.Mutex

	reg    *registry.Registry
	regr   *memregion.Registrar
	logger *telemetry.Logger

	desc  *registry.Descriptor
	drv   driver.Driver
	state *driver.State

	phase   Phase
	err     error
	regKeys []memregion.Key
}

// New creates a Controller for a transfer of count elements of the datatype
// named by handle, either packing buf into the wire or unpacking the wire
// into buf depending on dir. The registry handle is acquired for the
// lifetime of the transfer and released on the first terminal transition
// (invariant I6). regr may be nil to skip eager region registration, which
// is useful in tests that never touch a real transport.
func New(reg *registry.Registry, regr *memregion.Registrar, logger *telemetry.Logger, handle registry.Handle, dir driver.Direction, buf []byte, count uint64) (*Controller, error) {
	if logger == nil {
		logger = telemetry.Default()
	}

	desc, err := reg.Lookup(handle)
	if err != nil {
		return nil, err
	}
	if err := reg.Acquire(handle); err != nil {
		return nil, err
	}

	drv, err := driver.For(desc.Strategy)
	if err != nil {
		reg.Release(handle)
		return nil, err
	}

	c := &Controller{
		reg:    reg,
		regr:   regr,
		logger: logger.With("transfer", "handle", handle),
		desc:   desc,
		drv:    drv,
		phase:  Fresh,
	}
	c.state = &driver.State{
		Descriptor:         desc,
		Direction:          dir,
		Buf:                buf,
		Count:              count,
		ValidateRegionType: c.validateRegionType,
	}
	return c, nil
}

// validateRegionType rejects any region type that is not a Primitive
// (RawBytesHandle's descriptor is pre-seeded as a width-1 Primitive, so it
// passes this same check without a special case; spec.md section 4.2.2).
func (c *Controller) validateRegionType(h registry.Handle) error {
	d, err := c.reg.Lookup(h)
	if err != nil {
		return err
	}
	if d.Strategy != registry.Primitive {
		return fmt.Errorf("region type %s is not a raw-bytes or primitive datatype", h)
	}
	return nil
}

// Phase returns the transfer's current lifecycle phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// PackedSize returns the transfer's total byte count once known. It is
// known after the first Progress call for StreamCallbacks and Primitive
// strategies, and once the region plan is built for MemoryRegions.
func (c *Controller) PackedSize() (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.TotalKnown {
		return 0, false
	}
	return c.state.Total, true
}

// Progress advances the transfer by at most one fragment using slot as
// scratch space (for Pack, the destination to fill; for Unpack, the source
// to consume). It never blocks. A slot of length 0 is a no-op unless the
// transfer is already complete, in which case it still reports Done
// (spec.md section 8). MemoryRegions transfers ignore the slot, so for them
// a nil slot still hands out the next region as NeedRegion.
func (c *Controller) Progress(slot []byte) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.phase {
	case Failed:
		return driver.Result{}, c.err
	case Cancelled:
		return driver.Result{}, ErrCancelled
	case Complete:
		return driver.Result{Kind: driver.Done}, nil
	}

	if c.phase == Fresh {
		if err := c.drv.Init(c.state); err != nil {
			c.finalizeLocked(Failed, err)
			return driver.Result{}, err
		}
		c.phase = Active
		if c.desc.Strategy == registry.MemoryRegions {
			if err := c.registerRegionsLocked(); err != nil {
				c.finalizeLocked(Failed, err)
				return driver.Result{}, err
			}
		}
	}

	// Boundary rule (spec.md section 4.2.1): a step that lands exactly on
	// the total is reported as a normal Consumed/NeedRegion in the call
	// that produced it; Done is only surfaced here, on the following
	// call, once the cursor is observed already at total. A query that
	// resolves to 0 hits this same check within the call that just set
	// Total, which is what makes an empty transfer complete on its first
	// Progress.
	if c.state.TotalKnown && c.state.Cursor >= c.state.Total {
		c.finalizeLocked(Complete, nil)
		return driver.Result{Kind: driver.Done}, nil
	}

	// MemoryRegions steps never copy through the slot, so an empty slot is
	// only a no-op for the slot-copying strategies.
	if len(slot) == 0 && c.desc.Strategy != registry.MemoryRegions {
		return driver.Result{Kind: driver.Consumed, N: 0}, nil
	}

	res, err := c.drv.Step(c.state, slot)
	if err != nil {
		c.finalizeLocked(Failed, err)
		return driver.Result{}, err
	}
	c.state.Cursor += res.N
	return res, nil
}

// Cancel requests early termination. It is idempotent: calling it on an
// already-terminal transfer has no effect.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase.Terminal() {
		return
	}
	c.finalizeLocked(Cancelled, ErrCancelled)
}

// Finish runs the terminal side-effects of the transfer's current state
// (spec.md section 4.4: "idempotent; runs the terminal side-effects of the
// current state"). It is idempotent and intended for a caller that will
// not drive the transfer to completion itself (e.g. giving up after an
// out-of-band transport error). Finish never manufactures a successful
// completion: a Fresh or Active transfer whose cursor has not yet reached
// its declared total finalizes as Cancelled, preserving invariant I2
// (cursor <= total, cursor == total iff complete) instead of reporting a
// transfer that was abandoned mid-flight as done.
func (c *Controller) Finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase.Terminal() {
		return
	}
	if c.state.TotalKnown && c.state.Cursor >= c.state.Total {
		c.finalizeLocked(Complete, nil)
		return
	}
	c.finalizeLocked(Cancelled, ErrCancelled)
}

// registerRegionsLocked eagerly pins every planned region so the transport
// can address them directly before the first NeedRegion step is requested
// (spec.md section 4.3).
func (c *Controller) registerRegionsLocked() error {
	if c.regr == nil {
		return nil
	}
	for _, r := range c.state.Regions {
		if len(r.Data) == 0 {
			continue
		}
		k, err := c.regr.Register(r.Data)
		if err != nil {
			return fmt.Errorf("registering region: %w", err)
		}
		c.regKeys = append(c.regKeys, k)
	}
	return nil
}

// finalizeLocked runs the ordered finalizer from spec.md section 7 exactly
// once per transfer: cancel outstanding region registration, invoke
// state-free if present, drop the buffer reference, then release the
// registry handle. Callers must hold c.mu and must not call this more than
// once (every call site is guarded by a phase check).
func (c *Controller) finalizeLocked(phase Phase, err error) {
	if c.regr != nil {
		for _, k := range c.regKeys {
			if uerr := c.regr.Unregister(k); uerr != nil {
				c.logger.Warn("region unregister failed", "key", k, "error", uerr)
			}
		}
	}
	c.regKeys = nil

	if c.state.UserStateReady && !c.state.StateFreeInvoked {
		if free := c.desc.Callbacks.StateFree; free != nil {
			free(c.state.UserState)
		}
		c.state.StateFreeInvoked = true
	}
	c.state.Buf = nil

	c.reg.Release(c.desc.Handle)
	c.phase = phase
	c.err = err
}
