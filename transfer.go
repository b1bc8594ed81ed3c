package ddtengine

import (
	"time"

	"github.com/jtronge/mpicd-ddtengine/internal/driver"
	intxfer "github.com/jtronge/mpicd-ddtengine/internal/transfer"
)

// Step kinds mirror the internal driver's result vocabulary at the public
// surface, matching spec.md's StepResult: Consumed(n), Done, NeedRegion(idx)
// (Fail is reported through Progress's ordinary error return).
const (
	Consumed   = driver.Consumed
	Done       = driver.Done
	NeedRegion = driver.NeedRegion
)

// StepKind is the shape of one Transfer.Progress call's result.
type StepKind = driver.Kind

// StepResult is the outcome of one Transfer.Progress call.
type StepResult = driver.Result

// Transfer is a handle to one in-flight pack or unpack operation, driven a
// fragment at a time by repeated Progress calls (spec.md section 4.4).
type Transfer struct {
	ctrl     *intxfer.Controller
	dir      driver.Direction
	observer Observer
	start    time.Time
	ended    bool
}

func newTransfer(ctrl *intxfer.Controller, dir driver.Direction, observer Observer) *Transfer {
	observer.ObserveTransferStart()
	return &Transfer{ctrl: ctrl, dir: dir, observer: observer, start: time.Now()}
}

// Progress advances the transfer by at most one fragment using slot as
// scratch space. It never blocks (spec.md section 5).
func (t *Transfer) Progress(slot []byte) (StepResult, error) {
	res, err := t.ctrl.Progress(slot)
	if err != nil {
		t.observeEnd(false)
		if err == intxfer.ErrCancelled {
			return res, NewError("Progress", ErrCodeCancelled, err.Error())
		}
		return res, WrapError("Progress", err)
	}
	if res.Kind == Done {
		t.observeEnd(true)
	}
	return res, nil
}

// PackedSize returns the transfer's total byte count once known.
func (t *Transfer) PackedSize() (uint64, bool) {
	return t.ctrl.PackedSize()
}

// Cancel requests early termination. Idempotent.
func (t *Transfer) Cancel() {
	t.ctrl.Cancel()
	t.observeEnd(false)
}

// Finish releases the transfer's resources without waiting for Progress to
// report Done. Idempotent. A transfer that has not yet reached its full
// packed size finalizes as cancelled rather than successful, so giving up
// mid-flight is never observed as a completed transfer.
func (t *Transfer) Finish() {
	t.ctrl.Finish()
	t.observeEnd(t.ctrl.Phase() == intxfer.Complete)
}

func (t *Transfer) observeEnd(success bool) {
	if t.ended {
		return
	}
	t.ended = true
	latencyNs := uint64(time.Since(t.start).Nanoseconds())
	n, _ := t.ctrl.PackedSize()
	if t.dir == driver.Pack {
		t.observer.ObservePack(n, latencyNs, success)
	} else {
		t.observer.ObserveUnpack(n, latencyNs, success)
	}
	t.observer.ObserveTransferEnd()
}
