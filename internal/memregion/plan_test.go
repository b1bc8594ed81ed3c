package memregion

import (
	"errors"
	"testing"

	"github.com/jtronge/mpicd-ddtengine/internal/registry"
)

func TestPlanSumsRegionLengths(t *testing.T) {
	buf := make([]byte, 24)
	desc := &registry.Descriptor{
		Callbacks: registry.CallbackSet{
			RegionCount: func(any, []byte, uint64) (int, error) { return 2, nil },
			RegionList: func(any, []byte, uint64, int) ([]registry.Region, error) {
				return []registry.Region{
					{Data: buf[0:10], Type: registry.RawBytesHandle},
					{Data: buf[10:24], Type: registry.RawBytesHandle},
				}, nil
			},
		},
	}

	var r Resolver
	plan, err := r.Plan(desc, nil, buf, 1, nil)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.Total != 24 {
		t.Errorf("Total = %d, want 24", plan.Total)
	}
	if len(plan.Regions) != 2 {
		t.Errorf("len(Regions) = %d, want 2", len(plan.Regions))
	}
}

func TestPlanRejectsCountMismatch(t *testing.T) {
	buf := make([]byte, 8)
	desc := &registry.Descriptor{
		Callbacks: registry.CallbackSet{
			RegionCount: func(any, []byte, uint64) (int, error) { return 2, nil },
			RegionList: func(any, []byte, uint64, int) ([]registry.Region, error) {
				return []registry.Region{{Data: buf, Type: registry.RawBytesHandle}}, nil
			},
		},
	}

	var r Resolver
	if _, err := r.Plan(desc, nil, buf, 1, nil); err == nil {
		t.Fatal("expected error on region-count/region-list mismatch")
	}
}

func TestPlanRejectsQueryMismatch(t *testing.T) {
	buf := make([]byte, 8)
	desc := &registry.Descriptor{
		Callbacks: registry.CallbackSet{
			RegionCount: func(any, []byte, uint64) (int, error) { return 1, nil },
			RegionList: func(any, []byte, uint64, int) ([]registry.Region, error) {
				return []registry.Region{{Data: buf, Type: registry.RawBytesHandle}}, nil
			},
			Query: func(any, []byte, uint64) (uint64, error) { return 999, nil },
		},
	}

	var r Resolver
	_, err := r.Plan(desc, nil, buf, 1, nil)
	if !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("err = %v, want ErrSizeMismatch", err)
	}
}

func TestPlanValidatesRegionType(t *testing.T) {
	buf := make([]byte, 8)
	desc := &registry.Descriptor{
		Callbacks: registry.CallbackSet{
			RegionCount: func(any, []byte, uint64) (int, error) { return 1, nil },
			RegionList: func(any, []byte, uint64, int) ([]registry.Region, error) {
				return []registry.Region{{Data: buf, Type: registry.Handle(999)}}, nil
			},
		},
	}

	wantErr := errors.New("unknown handle")
	validate := func(h registry.Handle) error {
		if h == registry.Handle(999) {
			return wantErr
		}
		return nil
	}

	var r Resolver
	_, err := r.Plan(desc, nil, buf, 1, validate)
	if err == nil {
		t.Fatal("expected validation error to propagate")
	}
}

func TestPlanNegativeCountRejected(t *testing.T) {
	desc := &registry.Descriptor{
		Callbacks: registry.CallbackSet{
			RegionCount: func(any, []byte, uint64) (int, error) { return -1, nil },
		},
	}
	var r Resolver
	if _, err := r.Plan(desc, nil, nil, 1, nil); err == nil {
		t.Fatal("expected error on negative region count")
	}
}
