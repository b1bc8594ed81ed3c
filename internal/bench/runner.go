package bench

import (
	"fmt"
	"time"

	ddtengine "github.com/jtronge/mpicd-ddtengine"
	"github.com/jtronge/mpicd-ddtengine/internal/transport"
)

// Result holds one benchmark's aggregate timing across its repetitions,
// mirroring the outer_loop/inner_loop timing harness the ddtbench C suite
// builds around each timing_* function.
type Result struct {
	Name    string
	Bytes   uint64
	Elapsed time.Duration
}

// BandwidthMBps returns the achieved bandwidth in MB/s.
func (r Result) BandwidthMBps() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Bytes) / r.Elapsed.Seconds() / (1024 * 1024)
}

// Run drives repeat round trips of one pack transfer against srcHandle/
// srcBuf and a matching unpack transfer against dstHandle/dstBuf over lb,
// summing the bytes moved and wall-clock elapsed across all repetitions.
// regionStrategy must be true when the datatype behind the handles uses
// MemoryRegions (direct region hand-off) rather than StreamCallbacks or
// Primitive (slot byte-copies).
func Run(name string, e *ddtengine.Engine, lb *transport.Loopback, srcHandle ddtengine.Handle, srcBuf []byte, dstHandle ddtengine.Handle, dstBuf []byte, count uint64, repeat int, regionStrategy bool) (Result, error) {
	var total uint64
	start := time.Now()

	for i := 0; i < repeat; i++ {
		packXfer, err := e.Pack(srcHandle, srcBuf, count)
		if err != nil {
			return Result{}, fmt.Errorf("%s: pack: %w", name, err)
		}
		n, err := drivePack(lb, packXfer, regionStrategy)
		if err != nil {
			return Result{}, fmt.Errorf("%s: pack progress: %w", name, err)
		}

		unpackXfer, err := e.Unpack(dstHandle, dstBuf, count)
		if err != nil {
			return Result{}, fmt.Errorf("%s: unpack: %w", name, err)
		}
		if _, err := driveUnpack(lb, unpackXfer, regionStrategy); err != nil {
			return Result{}, fmt.Errorf("%s: unpack progress: %w", name, err)
		}

		total += n
	}

	return Result{Name: name, Bytes: total, Elapsed: time.Since(start)}, nil
}

func drivePack(lb *transport.Loopback, xfer *ddtengine.Transfer, regionStrategy bool) (uint64, error) {
	var total uint64
	for {
		var slot transport.Slot
		if !regionStrategy {
			slot = lb.NextSlot()
		}
		res, err := xfer.Progress(slot.Buf)
		if err != nil {
			return total, err
		}
		switch res.Kind {
		case ddtengine.NeedRegion:
			h, err := lb.RegisterRegion(res.Region.Data)
			if err != nil {
				return total, err
			}
			if err := lb.SendRegion(h, res.Region.Data); err != nil {
				return total, err
			}
			_ = lb.UnregisterRegion(h)
			total += res.N
		case ddtengine.Consumed:
			if res.N > 0 {
				if _, err := lb.Send(slot, int(res.N)); err != nil {
					return total, err
				}
			}
			total += res.N
		case ddtengine.Done:
			return total, nil
		}
	}
}

func driveUnpack(lb *transport.Loopback, xfer *ddtengine.Transfer, regionStrategy bool) (uint64, error) {
	var total uint64
	for {
		if regionStrategy {
			res, err := xfer.Progress(nil)
			if err != nil {
				return total, err
			}
			if res.Kind == ddtengine.Done {
				return total, nil
			}
			if err := lb.RecvRegion(transport.RegionHandle(0), res.Region.Data); err != nil {
				return total, err
			}
			total += res.N
			continue
		}

		slot := lb.NextSlot()
		n, err := lb.Recv(slot)
		if err != nil {
			return total, err
		}
		res, err := xfer.Progress(slot.Buf[:n])
		if err != nil {
			return total, err
		}
		total += res.N
		if res.Kind == ddtengine.Done {
			return total, nil
		}
	}
}
