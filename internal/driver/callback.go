package driver

import "fmt"

// callbackDriver implements the StreamCallbacks strategy: every fragment is
// produced or consumed by invoking the user's pack-step/unpack-step
// callback once (spec.md section 4.2.1). Grounded on the one-completion,
// one-state-transition shape of internal/queue/runner.go's handleCompletion
// in the teacher repo.
type callbackDriver struct{}

func (callbackDriver) Init(s *State) error {
	cb := s.Descriptor.Callbacks
	if cb.StateInit != nil {
		state, err := cb.StateInit(s.Descriptor.Context, s.Buf, s.Count)
		if err != nil {
			return fmt.Errorf("state-init: %w", err)
		}
		s.UserState = state
	} else {
		s.UserState = s.Descriptor.Context
	}
	s.UserStateReady = true

	total, err := cb.Query(s.UserState, s.Buf, s.Count)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	s.Total = total
	s.TotalKnown = true
	return nil
}

// Step is only ever invoked by the Transfer Controller when s.Cursor <
// s.Total, so a zero-byte result is always a contract violation here
// (spec.md section 4.2.1's "zero result at any other point" rule).
func (d callbackDriver) Step(s *State, slot []byte) (Result, error) {
	cb := s.Descriptor.Callbacks
	if s.Direction == Pack {
		used, err := cb.PackStep(s.UserState, s.Buf, s.Count, s.Cursor, slot)
		if err != nil {
			return Result{}, fmt.Errorf("pack-step: %w", err)
		}
		if used > uint64(len(slot)) {
			return Result{}, fmt.Errorf("pack-step: used=%d exceeds capacity=%d", used, len(slot))
		}
		if used == 0 {
			return Result{}, ErrStalledCallback
		}
		return Result{Kind: Consumed, N: used}, nil
	}

	if err := cb.UnpackStep(s.UserState, s.Buf, s.Count, s.Cursor, slot); err != nil {
		return Result{}, fmt.Errorf("unpack-step: %w", err)
	}
	return Result{Kind: Consumed, N: uint64(len(slot))}, nil
}
