//go:build !linux

package main

import "fmt"

// pinToCPU is the non-Linux fallback: SchedSetaffinity is a Linux-specific
// syscall in golang.org/x/sys/unix, so affinity pinning is unavailable here
// (mirrors internal/memregion/register_other.go's build-tag split).
func pinToCPU(cpu int) error {
	return fmt.Errorf("ddtbench: CPU affinity pinning is unsupported on this platform")
}
