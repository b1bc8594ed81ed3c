// Package memregion implements the Region Descriptor Resolver (spec.md
// section 4.3): building the (base, length, type) triples for a
// MemoryRegions transfer, and the transport-facing region registration
// side channel a NIC-backed transport would use to pin memory ahead of
// time. It is a thin subcomponent consumed by the MemoryRegions driver and,
// for registration, by the Transfer Controller.
package memregion

import (
	"errors"
	"fmt"

	"github.com/jtronge/mpicd-ddtengine/internal/registry"
)

// ErrSizeMismatch is returned when the sum of region lengths disagrees with
// the packed size reported by the descriptor's query callback.
var ErrSizeMismatch = errors.New("memregion: sum of region lengths does not match query result")

// Plan is the memoized, ordered list of regions for one transfer plus the
// total byte count they cover.
type Plan struct {
	Regions []registry.Region
	Total   uint64
}

// Resolver builds region Plans. It is stateless; memoization is the
// responsibility of the caller (one Plan call per transfer, cached on the
// transfer's driver.State) exactly as the region count must be stable for
// the life of one transfer (spec.md section 4.2.2).
type Resolver struct{}

// Plan calls region-count then region-list against the given descriptor and
// user state, validates the result, and returns the resolved plan. It is
// idempotent only in the sense that calling it twice for the same inputs
// re-derives the same answer if the user callbacks are pure; the caller is
// responsible for calling it exactly once per transfer (spec.md section 4.3:
// "plan(transfer) is idempotent and memoized on the transfer").
func (Resolver) Plan(d *registry.Descriptor, userState any, buf []byte, count uint64, validateType func(registry.Handle) error) (*Plan, error) {
	cb := d.Callbacks

	n, err := cb.RegionCount(userState, buf, count)
	if err != nil {
		return nil, fmt.Errorf("region-count: %w", err)
	}
	if n < 0 {
		return nil, fmt.Errorf("region-count: negative count %d", n)
	}

	regions, err := cb.RegionList(userState, buf, count, n)
	if err != nil {
		return nil, fmt.Errorf("region-list: %w", err)
	}
	if len(regions) != n {
		return nil, fmt.Errorf("region-list: returned %d regions, region-count declared %d", len(regions), n)
	}

	var sum uint64
	for i, r := range regions {
		if validateType != nil {
			if err := validateType(r.Type); err != nil {
				return nil, fmt.Errorf("region %d: %w", i, err)
			}
		}
		sum += uint64(len(r.Data))
	}

	total := sum
	if cb.Query != nil {
		declared, err := cb.Query(userState, buf, count)
		if err != nil {
			return nil, fmt.Errorf("query: %w", err)
		}
		if declared != sum {
			return nil, ErrSizeMismatch
		}
		total = declared
	}

	return &Plan{Regions: regions, Total: total}, nil
}
