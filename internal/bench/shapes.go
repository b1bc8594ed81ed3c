// Package bench builds the datatype shapes used by cmd/ddtbench: callback
// sets that reproduce, in miniature, the
// struct-of-arrays gather, strided sub-lattice, 3-D halo-face, and
// multi-field columnar access patterns found in the ddtbench benchmark
// suite (original_source/examples/ddtbench/src_c_custom/timing_{lammps,
// milc,nas,wrf}_custom.cc), expressed against this engine's
// StreamCallbacks and MemoryRegions strategies instead of a real
// MPI_Datatype.
package bench

import (
	"math"

	"github.com/jtronge/mpicd-ddtengine/internal/registry"
)

// LAMMPSAtoms holds the struct-of-arrays fields timing_lammps_custom.cc
// packs per boundary atom: a position vector plus five scalar tags, 8
// float64s per atom (idx2D(k, i, icount) selects which border list this
// gather draws from).
type LAMMPSAtoms struct {
	AX, ATag, AType, AMask, AMolecule, AQ []float64
	// List holds the indices into the arrays above that this border
	// gathers, one per logical atom transferred.
	List []int
}

const lammpsElemFloats = 8 // 3 position components + 5 scalar tags
const lammpsElemBytes = lammpsElemFloats * 8

// LAMMPSCallbacks returns a StreamCallbacks CallbackSet that packs
// len(a.List) atoms gathered through a.List, and unpacks them starting at
// index unpackBase (mirroring the C benchmark's DIM1+k destination
// offset). count for this descriptor is always len(a.List).
func LAMMPSCallbacks(a *LAMMPSAtoms, unpackBase int) registry.CallbackSet {
	return registry.CallbackSet{
		Query: func(any, []byte, uint64) (uint64, error) {
			return uint64(len(a.List) * lammpsElemBytes), nil
		},
		PackStep: func(_ any, _ []byte, _ uint64, offset uint64, dst []byte) (uint64, error) {
			k := int(offset) / lammpsElemBytes
			var n uint64
			for k < len(a.List) && n+lammpsElemBytes <= uint64(len(dst)) {
				l := a.List[k]
				putFloats(dst[n:n+lammpsElemBytes], []float64{
					a.AX[3*l], a.AX[3*l+1], a.AX[3*l+2],
					a.ATag[l], a.AType[l], a.AMask[l], a.AMolecule[l], a.AQ[l],
				})
				n += lammpsElemBytes
				k++
			}
			return n, nil
		},
		UnpackStep: func(_ any, _ []byte, _ uint64, offset uint64, src []byte) error {
			k := int(offset) / lammpsElemBytes
			for pos := 0; pos+lammpsElemBytes <= len(src); pos += lammpsElemBytes {
				l := unpackBase + k
				vals := getFloats(src[pos : pos+lammpsElemBytes])
				a.AX[3*l], a.AX[3*l+1], a.AX[3*l+2] = vals[0], vals[1], vals[2]
				a.ATag[l], a.AType[l], a.AMask[l], a.AMolecule[l], a.AQ[l] = vals[3], vals[4], vals[5], vals[6], vals[7]
				k++
			}
			return nil
		},
	}
}

// MILCLattice holds a flat SU(3)-link-style array shaped as
// [DIM5][DIM4][DIM3][DIM2][3]float32 in row-major order, stored as raw
// bytes so region slices can be handed out as direct subslices. Matches
// timing_milc_custom.cc's idx5D layout with the innermost dimension fixed
// at 3 (a 3-vector, smaller than the full 6-float complex pair the
// original packs, kept small so the example stays readable).
type MILCLattice struct {
	Data                   []byte // len == DIM2*DIM3*DIM4*DIM5*3*4
	DIM2, DIM3, DIM4, DIM5 int
}

// NewMILCLattice allocates a zeroed lattice of the given dimensions.
func NewMILCLattice(dim2, dim3, dim4, dim5 int) *MILCLattice {
	return &MILCLattice{
		Data: make([]byte, dim2*dim3*dim4*dim5*3*4),
		DIM2: dim2, DIM3: dim3, DIM4: dim4, DIM5: dim5,
	}
}

func (m *MILCLattice) floatIndex(x, y, z, t, u int) int {
	return x + 3*(y+m.DIM2*(z+m.DIM3*(t+m.DIM4*u)))
}

// MILCZDownRegions returns a MemoryRegions CallbackSet that exposes, for
// every u in [0,DIM5) and every other t-face (stride DIM4/2), one region
// spanning DIM3/2 * DIM2 * 3 float32s — the "z-down" boundary slab
// timing_milc_su3_zdown_custom extracts via region_query_cb.
func MILCZDownRegions(m *MILCLattice) registry.CallbackSet {
	faceBytes := (m.DIM3 / 2) * m.DIM2 * 3 * 4
	var tFaces []int
	for l := 0; l < m.DIM4; l += m.DIM4 / 2 {
		tFaces = append(tFaces, l)
	}
	regionCount := len(tFaces) * m.DIM5

	return registry.CallbackSet{
		RegionCount: func(any, []byte, uint64) (int, error) {
			return regionCount, nil
		},
		RegionList: func(_ any, _ []byte, _ uint64, n int) ([]registry.Region, error) {
			regions := make([]registry.Region, 0, n)
			for k := 0; k < m.DIM5; k++ {
				for _, l := range tFaces {
					byteStart := m.floatIndex(0, 0, 0, l, k) * 4
					regions = append(regions, registry.Region{
						Data: m.Data[byteStart : byteStart+faceBytes],
						Type: registry.RawBytesHandle,
					})
				}
			}
			return regions, nil
		},
	}
}

// NASFaceExchange holds a 3-D array shaped [DIM1][DIM2][DIM3]float64
// (idx3D(x,y,z) = x + DIM1*(y + z*DIM2), matching timing_nas_custom.cc),
// stored as raw bytes, plus the fixed x-plane this transfer exchanges as a
// halo face.
type NASFaceExchange struct {
	Data             []byte // len == DIM1*DIM2*DIM3*8
	DIM1, DIM2, DIM3 int
	Plane            int // fixed x index defining the face
}

// NewNASFaceExchange allocates a zeroed volume of the given dimensions.
func NewNASFaceExchange(dim1, dim2, dim3, plane int) *NASFaceExchange {
	return &NASFaceExchange{
		Data:  make([]byte, dim1*dim2*dim3*8),
		DIM1:  dim1, DIM2: dim2, DIM3: dim3,
		Plane: plane,
	}
}

func (n *NASFaceExchange) floatIndex(x, y, z int) int {
	return x + n.DIM1*(y+z*n.DIM2)
}

// NASFaceRegions returns a MemoryRegions CallbackSet exposing the face at
// Plane as DIM2*DIM3 regions of one float64 each, ordered z-major then y.
// With x varying fastest, neighbouring face elements lie DIM1 float64s
// apart, so no two of them are contiguous.
func NASFaceRegions(n *NASFaceExchange) registry.CallbackSet {
	return registry.CallbackSet{
		RegionCount: func(any, []byte, uint64) (int, error) {
			return n.DIM2 * n.DIM3, nil
		},
		RegionList: func(_ any, _ []byte, _ uint64, count int) ([]registry.Region, error) {
			regions := make([]registry.Region, 0, count)
			for z := 0; z < n.DIM3; z++ {
				for y := 0; y < n.DIM2; y++ {
					start := n.floatIndex(n.Plane, y, z) * 8
					regions = append(regions, registry.Region{
						Data: n.Data[start : start+8],
						Type: registry.RawBytesHandle,
					})
				}
			}
			return regions, nil
		},
	}
}

// WRFFields holds a handful of 2-D arrays shaped [DIM2][DIM1]float32 in
// row-major order (idx2D(x,y,DIM1) = x + DIM1*y, matching the array layout
// timing_wrf_custom.cc's pack() walks), plus the halo sub-range
// [IS,IE]x[JS,JE] a transfer exchanges across all of them in turn.
type WRFFields struct {
	Arrays         [][]float32 // each len == DIM1*DIM2
	DIM1           int
	IS, IE, JS, JE int
}

// NewWRFFields allocates numArrays zeroed DIM1 x DIM2 fields.
func NewWRFFields(numArrays, dim1, dim2 int) *WRFFields {
	arrays := make([][]float32, numArrays)
	for i := range arrays {
		arrays[i] = make([]float32, dim1*dim2)
	}
	return &WRFFields{Arrays: arrays, DIM1: dim1}
}

func (w *WRFFields) idx2D(x, y int) int {
	return x + w.DIM1*y
}

// WRFCallbacks returns a StreamCallbacks CallbackSet that packs, for every
// array in turn, the i-range [IS,IE] of every row in [JS,JE] — the
// multi-field columnar gather timing_wrf_custom.cc's pack() builds by
// looping arrays outermost and rows innermost. Unlike LAMMPSCallbacks'
// atom-at-a-time gather, this emits a row at a time and advances across
// array boundaries by integer division on the logical row index, the
// explicit-continuation equivalent of the coroutine generator
// pack_coro/unpack_coro use in the original (spec.md section 9: "packers
// as generators that yield when their output slot fills" — the engine
// requires the flat callback contract, not an actual coroutine).
func WRFCallbacks(w *WRFFields) registry.CallbackSet {
	ilen := w.IE - w.IS + 1
	rowBytes := uint64(ilen * 4)
	rowsPerArray := w.JE - w.JS + 1
	totalRows := uint64(len(w.Arrays) * rowsPerArray)
	totalBytes := totalRows * rowBytes

	rowCoords := func(cursor uint64) (arrayIdx, y int) {
		rowIdx := cursor / rowBytes
		arrayIdx = int(rowIdx) / rowsPerArray
		row := int(rowIdx) % rowsPerArray
		y = w.JS + row
		return
	}

	return registry.CallbackSet{
		Query: func(any, []byte, uint64) (uint64, error) {
			return totalBytes, nil
		},
		PackStep: func(_ any, _ []byte, _ uint64, offset uint64, dst []byte) (uint64, error) {
			var n uint64
			for offset+n < totalBytes && uint64(len(dst))-n >= rowBytes {
				m, y := rowCoords(offset + n)
				arr := w.Arrays[m]
				row := make([]float32, ilen)
				for i := 0; i < ilen; i++ {
					row[i] = arr[w.idx2D(w.IS+i, y)]
				}
				putFloats32(dst[n:n+rowBytes], row)
				n += rowBytes
			}
			return n, nil
		},
		UnpackStep: func(_ any, _ []byte, _ uint64, offset uint64, src []byte) error {
			for pos := uint64(0); pos+rowBytes <= uint64(len(src)); pos += rowBytes {
				m, y := rowCoords(offset + pos)
				arr := w.Arrays[m]
				vals := getFloats32(src[pos : pos+rowBytes])
				for i := 0; i < ilen; i++ {
					arr[w.idx2D(w.IS+i, y)] = vals[i]
				}
			}
			return nil
		},
	}
}

func putFloats32(dst []byte, vals []float32) {
	for i, v := range vals {
		bits := math.Float32bits(v)
		for b := 0; b < 4; b++ {
			dst[i*4+b] = byte(bits >> (8 * b))
		}
	}
}

func getFloats32(src []byte) []float32 {
	n := len(src) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		var bits uint32
		for b := 0; b < 4; b++ {
			bits |= uint32(src[i*4+b]) << (8 * b)
		}
		out[i] = math.Float32frombits(bits)
	}
	return out
}

func putFloats(dst []byte, vals []float64) {
	for i, v := range vals {
		bits := math.Float64bits(v)
		for b := 0; b < 8; b++ {
			dst[i*8+b] = byte(bits >> (8 * b))
		}
	}
}

func getFloats(src []byte) []float64 {
	n := len(src) / 8
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		var bits uint64
		for b := 0; b < 8; b++ {
			bits |= uint64(src[i*8+b]) << (8 * b)
		}
		out[i] = math.Float64frombits(bits)
	}
	return out
}
