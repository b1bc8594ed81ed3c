//go:build linux

package main

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// pinToCPU pins the calling OS thread to a single CPU with
// unix.SchedSetaffinity, the second half of the runtime.LockOSThread plus
// SchedSetaffinity sequence internal/queue/runner.go's ioLoop uses to give a
// ublk queue a stable affinity; main performs the LockOSThread half before
// calling it. Here it gives the bench driver a stable core so repeated
// pack/unpack timings aren't skewed by the scheduler migrating it mid-run.
// It returns an error on failure, which the caller logs; an affinity failure
// is never fatal, matching the teacher's "continue without affinity" behavior.
func pinToCPU(cpu int) error {
	var mask unix.CPUSet
	mask.Set(cpu)
	if err := unix.SchedSetaffinity(0, &mask); err != nil {
		return fmt.Errorf("ddtbench: set CPU affinity to CPU %d: %w", cpu, err)
	}
	return nil
}
