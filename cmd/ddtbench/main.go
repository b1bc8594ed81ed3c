// Command ddtbench drives the LAMMPS, MILC, NAS, and WRF custom-datatype
// shapes from internal/bench over a Loopback transport and reports
// pack/unpack throughput, mirroring the timing harness in
// original_source/examples/ddtbench/src_c_custom.
//
// Grounded on cmd/ublk-mem/main.go's flag-parse -> construct -> log ->
// run -> report structure in the teacher repo.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	ddtengine "github.com/jtronge/mpicd-ddtengine"
	"github.com/jtronge/mpicd-ddtengine/internal/bench"
	"github.com/jtronge/mpicd-ddtengine/internal/telemetry"
	"github.com/jtronge/mpicd-ddtengine/internal/transport"
)

func main() {
	var (
		shape   = flag.String("shape", "all", "Shape to benchmark: lammps, milc, nas, wrf, all")
		repeat  = flag.Int("repeat", 100, "Number of pack/unpack repetitions per shape")
		verbose = flag.Bool("v", false, "Verbose output")
		cpu     = flag.Int("cpu", -1, "Pin the bench driver to this CPU (-1 disables pinning)")
	)
	flag.Parse()

	logConfig := telemetry.DefaultConfig()
	if *verbose {
		logConfig.Level = telemetry.LevelDebug
	}
	logger := telemetry.New(logConfig)
	telemetry.SetDefault(logger)

	if *cpu >= 0 {
		// Pin for the remaining lifetime of main: every shape below runs on
		// this same goroutine, so one LockOSThread/SchedSetaffinity call at
		// startup covers the whole benchmark run.
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		if err := pinToCPU(*cpu); err != nil {
			logger.Warn("failed to set CPU affinity", "cpu", *cpu, "error", err)
		} else {
			logger.Debug("pinned bench driver", "cpu", *cpu)
		}
	}

	e := ddtengine.NewEngine(&ddtengine.Options{Logger: logger, Observer: ddtengine.NoOpObserver{}})
	lb := transport.NewLoopback(transport.DefaultSlotSize)

	var results []bench.Result
	runAll := *shape == "all"

	if runAll || *shape == "lammps" {
		r, err := runLAMMPS(e, lb, *repeat)
		if err != nil {
			logger.Error("lammps benchmark failed", "error", err)
			os.Exit(1)
		}
		results = append(results, r)
	}
	if runAll || *shape == "milc" {
		r, err := runMILC(e, lb, *repeat)
		if err != nil {
			logger.Error("milc benchmark failed", "error", err)
			os.Exit(1)
		}
		results = append(results, r)
	}
	if runAll || *shape == "nas" {
		r, err := runNAS(e, lb, *repeat)
		if err != nil {
			logger.Error("nas benchmark failed", "error", err)
			os.Exit(1)
		}
		results = append(results, r)
	}
	if runAll || *shape == "wrf" {
		r, err := runWRF(e, lb, *repeat)
		if err != nil {
			logger.Error("wrf benchmark failed", "error", err)
			os.Exit(1)
		}
		results = append(results, r)
	}

	fmt.Printf("%-10s %12s %12s %10s\n", "shape", "bytes", "elapsed", "MB/s")
	for _, r := range results {
		fmt.Printf("%-10s %12d %12s %10.2f\n", r.Name, r.Bytes, r.Elapsed, r.BandwidthMBps())
	}
}

const lammpsAtomCount = 512

func runLAMMPS(e *ddtengine.Engine, lb *transport.Loopback, repeat int) (bench.Result, error) {
	src := newLAMMPSAtoms(lammpsAtomCount)
	dst := newLAMMPSAtoms(lammpsAtomCount)
	list := make([]int, lammpsAtomCount)
	for i := range list {
		list[i] = i
	}
	src.List = list

	srcH, err := e.Register(bench.LAMMPSCallbacks(src, 0), nil, false)
	if err != nil {
		return bench.Result{}, err
	}
	dstH, err := e.Register(bench.LAMMPSCallbacks(dst, 0), nil, false)
	if err != nil {
		return bench.Result{}, err
	}
	defer e.Deregister(srcH)
	defer e.Deregister(dstH)

	return bench.Run("lammps", e, lb, srcH, nil, dstH, nil, uint64(len(list)), repeat, false)
}

func newLAMMPSAtoms(n int) *bench.LAMMPSAtoms {
	return &bench.LAMMPSAtoms{
		AX:        make([]float64, n*3),
		ATag:      make([]float64, n),
		AType:     make([]float64, n),
		AMask:     make([]float64, n),
		AMolecule: make([]float64, n),
		AQ:        make([]float64, n),
	}
}

func runMILC(e *ddtengine.Engine, lb *transport.Loopback, repeat int) (bench.Result, error) {
	src := bench.NewMILCLattice(4, 4, 4, 4)
	dst := bench.NewMILCLattice(4, 4, 4, 4)

	srcH, err := e.Register(bench.MILCZDownRegions(src), nil, false)
	if err != nil {
		return bench.Result{}, err
	}
	dstH, err := e.Register(bench.MILCZDownRegions(dst), nil, false)
	if err != nil {
		return bench.Result{}, err
	}
	defer e.Deregister(srcH)
	defer e.Deregister(dstH)

	return bench.Run("milc", e, lb, srcH, nil, dstH, nil, 1, repeat, true)
}

func runNAS(e *ddtengine.Engine, lb *transport.Loopback, repeat int) (bench.Result, error) {
	src := bench.NewNASFaceExchange(8, 8, 8, 0)
	dst := bench.NewNASFaceExchange(8, 8, 8, 0)

	srcH, err := e.Register(bench.NASFaceRegions(src), nil, false)
	if err != nil {
		return bench.Result{}, err
	}
	dstH, err := e.Register(bench.NASFaceRegions(dst), nil, false)
	if err != nil {
		return bench.Result{}, err
	}
	defer e.Deregister(srcH)
	defer e.Deregister(dstH)

	return bench.Run("nas", e, lb, srcH, nil, dstH, nil, 1, repeat, true)
}

const (
	wrfNumArrays = 4
	wrfDim       = 12
)

func runWRF(e *ddtengine.Engine, lb *transport.Loopback, repeat int) (bench.Result, error) {
	src := bench.NewWRFFields(wrfNumArrays, wrfDim, wrfDim)
	src.IS, src.IE, src.JS, src.JE = 1, wrfDim-2, 1, wrfDim-2
	dst := bench.NewWRFFields(wrfNumArrays, wrfDim, wrfDim)
	dst.IS, dst.IE, dst.JS, dst.JE = src.IS, src.IE, src.JS, src.JE

	srcH, err := e.Register(bench.WRFCallbacks(src), nil, false)
	if err != nil {
		return bench.Result{}, err
	}
	dstH, err := e.Register(bench.WRFCallbacks(dst), nil, false)
	if err != nil {
		return bench.Result{}, err
	}
	defer e.Deregister(srcH)
	defer e.Deregister(dstH)

	return bench.Run("wrf", e, lb, srcH, nil, dstH, nil, 1, repeat, false)
}
