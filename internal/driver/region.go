package driver

import (
	"errors"
	"fmt"

	"github.com/jtronge/mpicd-ddtengine/internal/memregion"
)

// ErrRegionPlanFailed wraps any region-plan construction failure other than
// a declared/actual size disagreement (spec.md section 4.3: "On failure
// returns Fail(RegionPlanFailed)"). memregion.ErrSizeMismatch propagates out
// of Init unwrapped so callers can still distinguish it via its own error
// code instead of the generic region-plan-failed one.
var ErrRegionPlanFailed = errors.New("driver: region plan failed")

// regionDriver implements the MemoryRegions strategy: the region plan is
// built once via memregion.Resolver, then each Step hands the next region
// straight to the transport as NeedRegion instead of copying bytes through
// a slot (spec.md section 4.2.2). Grounded on internal/queue/runner.go's
// loadDescriptor/handleIORequest pattern of walking a fixed-size
// descriptor table one entry per call.
type regionDriver struct{}

var planner memregion.Resolver

func (regionDriver) Init(s *State) error {
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

	plan, err := planner.Plan(s.Descriptor, s.UserState, s.Buf, s.Count, s.ValidateRegionType)
	if err != nil {
		if errors.Is(err, memregion.ErrSizeMismatch) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrRegionPlanFailed, err)
	}

	s.Regions = plan.Regions
	s.NextRegion = 0
	s.Total = plan.Total
	s.TotalKnown = true
	return nil
}

// Step hands out one region per call; the slot argument is unused because
// the transport takes the region directly rather than through a copy.
func (regionDriver) Step(s *State, _ []byte) (Result, error) {
	if s.NextRegion >= len(s.Regions) {
		return Result{}, fmt.Errorf("%w: region driver stepped with no regions remaining (cursor=%d total=%d)", ErrInternal, s.Cursor, s.Total)
	}
	idx := s.NextRegion
	region := s.Regions[idx]
	s.NextRegion++
	return Result{
		Kind:        NeedRegion,
		N:           uint64(len(region.Data)),
		Region:      region,
		RegionIndex: idx,
	}, nil
}
