package driver

// primitiveDriver implements the Primitive strategy: a fixed-width byte run
// moved by a single memcpy per step (spec.md section 4.2.3). Grounded on
// backend/mem.go's sharded ReadAt/WriteAt copy loop in the teacher repo,
// minus the sharded locking (a transfer is never shared across goroutines).
type primitiveDriver struct{}

func (primitiveDriver) Init(s *State) error {
	s.Total = s.Count * s.Descriptor.ElemWidth
	s.TotalKnown = true
	s.UserStateReady = true
	return nil
}

func (primitiveDriver) Step(s *State, slot []byte) (Result, error) {
	remaining := s.Total - s.Cursor
	n := uint64(len(slot))
	if n > remaining {
		n = remaining
	}

	if s.Direction == Pack {
		copy(slot[:n], s.Buf[s.Cursor:s.Cursor+n])
	} else {
		copy(s.Buf[s.Cursor:s.Cursor+n], slot[:n])
	}
	return Result{Kind: Consumed, N: n}, nil
}
