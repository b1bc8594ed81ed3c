// Package ddtengine implements a custom-datatype packing engine for
// point-to-point message passing: callers register a datatype's pack/unpack
// behavior once, then drive any number of transfers against it a fragment
// at a time without the engine ever blocking on a transport (spec.md
// sections 1-2).
//
// Grounded on backend.go's top-level Device/CreateAndServe pattern in the
// teacher repo: one object owns configuration plus the sub-components
// (here, the Type Registry and the region Registrar) and exposes a small
// set of entry points.
package ddtengine

import (
	"github.com/jtronge/mpicd-ddtengine/internal/driver"
	"github.com/jtronge/mpicd-ddtengine/internal/memregion"
	"github.com/jtronge/mpicd-ddtengine/internal/registry"
	"github.com/jtronge/mpicd-ddtengine/internal/telemetry"
	intxfer "github.com/jtronge/mpicd-ddtengine/internal/transfer"
)

// Options configures a new Engine.
type Options struct {
	Logger *telemetry.Logger
	// Observer receives completion/error callbacks for every transfer.
	Observer Observer
	// RegisterRegions enables eager mlock-based pinning of MemoryRegions
	// transfers (spec.md section 4.3). Disable in environments where the
	// caller's pages cannot be locked (e.g. no CAP_IPC_LOCK).
	RegisterRegions bool
}

// DefaultOptions returns an Options with an info-level default logger, a
// NoOpObserver, and region registration enabled.
func DefaultOptions() *Options {
	return &Options{
		Logger:          telemetry.Default(),
		Observer:        NoOpObserver{},
		RegisterRegions: true,
	}
}

// Engine is the process-wide entry point: it owns the Type Registry and
// hands out Transfer handles against registered datatypes.
type Engine struct {
	reg      *registry.Registry
	regr     *memregion.Registrar
	logger   *telemetry.Logger
	observer Observer
}

// NewEngine creates an Engine. A nil opts uses DefaultOptions.
func NewEngine(opts *Options) *Engine {
	if opts == nil {
		opts = DefaultOptions()
	}
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.Default()
	}
	observer := opts.Observer
	if observer == nil {
		observer = NoOpObserver{}
	}

	var regr *memregion.Registrar
	if opts.RegisterRegions {
		regr = memregion.NewRegistrar()
	}

	return &Engine{
		reg:      registry.New(logger),
		regr:     regr,
		logger:   logger.With("engine"),
		observer: observer,
	}
}

// Register validates cb against the per-strategy callback table and stores
// a new StreamCallbacks or MemoryRegions datatype, returning its handle.
func (e *Engine) Register(cb CallbackSet, context any, inOrder bool) (Handle, error) {
	h, err := e.reg.Register(cb, context, inOrder)
	if err != nil {
		return 0, wrapRegistryErr("Register", 0, err)
	}
	return h, nil
}

// RegisterPrimitive stores a fixed-width, memcpy-serviced datatype.
func (e *Engine) RegisterPrimitive(elemWidth uint64, context any) (Handle, error) {
	h, err := e.reg.RegisterPrimitive(elemWidth, context)
	if err != nil {
		return 0, wrapRegistryErr("RegisterPrimitive", 0, err)
	}
	return h, nil
}

// Deregister removes a previously registered datatype. Fails with
// ErrCodeDatatypeInUse if any transfer still references it.
func (e *Engine) Deregister(h Handle) error {
	if err := e.reg.Deregister(h); err != nil {
		return wrapRegistryErr("Deregister", h, err)
	}
	return nil
}

// wrapRegistryErr maps the internal registry package's sentinel error
// types to the public ErrorCode vocabulary so callers can branch on
// IsCode instead of reaching into an internal package.
func wrapRegistryErr(op string, h Handle, err error) *Error {
	switch e := err.(type) {
	case *registry.ErrInvalidArgument:
		return NewHandleError(op, h, ErrCodeInvalidArgument, e.Reason)
	case *registry.ErrUnsupported:
		return NewHandleError(op, h, ErrCodeUnsupported, e.Reason)
	case *registry.ErrUnknownHandle:
		return NewHandleError(op, e.Handle, ErrCodeUnknownHandle, err.Error())
	case *registry.ErrInUse:
		return NewHandleError(op, e.Handle, ErrCodeDatatypeInUse, err.Error())
	default:
		return WrapError(op, err)
	}
}

// Pack begins a new transfer that serializes count elements of h's
// datatype out of buf. The returned Transfer must be driven to completion
// or explicitly Cancelled/Finished.
func (e *Engine) Pack(h Handle, buf []byte, count uint64) (*Transfer, error) {
	return e.newTransfer(h, driver.Pack, buf, count)
}

// Unpack begins a new transfer that deserializes count elements of h's
// datatype into buf.
func (e *Engine) Unpack(h Handle, buf []byte, count uint64) (*Transfer, error) {
	return e.newTransfer(h, driver.Unpack, buf, count)
}

func (e *Engine) newTransfer(h Handle, dir driver.Direction, buf []byte, count uint64) (*Transfer, error) {
	ctrl, err := intxfer.New(e.reg, e.regr, e.logger, h, dir, buf, count)
	if err != nil {
		return nil, wrapRegistryErr("NewTransfer", h, err)
	}
	return newTransfer(ctrl, dir, e.observer), nil
}
