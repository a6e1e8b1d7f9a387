// Package registry implements the context-wide procedure-set and
// descriptor registries of this spec's component C: one slotalloc
// pool per descriptor kind, with the BSDF and EDF procedure-set
// pools additionally enforcing a non-releasable null entry at index
// 0, and a CallableRegistry keeping every algorithm pipeline's
// callable-program list parallel.
package registry

import (
	"github.com/sleepyeye/VLR/rtx"
	"github.com/sleepyeye/VLR/slotalloc"
	"github.com/sleepyeye/VLR/vlrerr"
)

// Pool capacities named by this spec's data model.
const (
	NodeProcSetCapacity  = 256
	SmallNodeDescCapacity = 8192
	MediumNodeDescCapacity = 8192
	LargeNodeDescCapacity  = 1024
	BSDFProcSetCapacity    = 64
	EDFProcSetCapacity     = 64
	IDFProcSetCapacity     = 8
	MaterialDescCapacity   = 8192
)

// Set is the context's complete collection of registries, one pool
// per descriptor kind in this spec's data model.
type Set struct {
	NodeProcSets  *slotalloc.Pool
	SmallNodeDesc *slotalloc.Pool
	MediumNodeDesc *slotalloc.Pool
	LargeNodeDesc  *slotalloc.Pool
	BSDFProcSets   *NullEnforcingPool
	EDFProcSets    *NullEnforcingPool
	IDFProcSets    *slotalloc.Pool
	MaterialDesc   *slotalloc.Pool
	Callables      *CallableRegistry
}

// recordSizes; these are the repository's chosen concrete sizes for
// "function-index table", "fixed-size record", etc. named only in
// the abstract by this spec's data model table. dwordSize is 4 bytes
// (a float32 or uint32 slot), matching the launch-parameters record
// and every shadernode descriptor's [N]float32 layout.
const dwordSize = 4

const (
	nodeProcSetDwords  = 16 // one callable index per output plug type, generously sized
	smallNodeDescDwords = 16
	mediumNodeDescDwords = 32
	largeNodeDescDwords  = 64
	bsdfProcSetDwords    = 16
	edfProcSetDwords     = 16 // also exposes an EDF-as-BSDF view at the same layout
	idfProcSetDwords     = 8
	materialDescDwords   = 32
)

// New creates every pool in the Set against dev, including
// allocating and asserting the null BSDF/EDF procedure sets at index
// 0.
func New(dev rtx.Device) (*Set, error) {
	s := &Set{Callables: newCallableRegistry()}
	var err error
	if s.NodeProcSets, err = slotalloc.New(dev, NodeProcSetCapacity, nodeProcSetDwords*dwordSize); err != nil {
		return nil, err
	}
	if s.SmallNodeDesc, err = slotalloc.New(dev, SmallNodeDescCapacity, smallNodeDescDwords*dwordSize); err != nil {
		return nil, err
	}
	if s.MediumNodeDesc, err = slotalloc.New(dev, MediumNodeDescCapacity, mediumNodeDescDwords*dwordSize); err != nil {
		return nil, err
	}
	if s.LargeNodeDesc, err = slotalloc.New(dev, LargeNodeDescCapacity, largeNodeDescDwords*dwordSize); err != nil {
		return nil, err
	}
	if s.IDFProcSets, err = slotalloc.New(dev, IDFProcSetCapacity, idfProcSetDwords*dwordSize); err != nil {
		return nil, err
	}
	if s.MaterialDesc, err = slotalloc.New(dev, MaterialDescCapacity, materialDescDwords*dwordSize); err != nil {
		return nil, err
	}
	if s.BSDFProcSets, err = newNullEnforcingPool(dev, BSDFProcSetCapacity, bsdfProcSetDwords*dwordSize); err != nil {
		return nil, err
	}
	if s.EDFProcSets, err = newNullEnforcingPool(dev, EDFProcSetCapacity, edfProcSetDwords*dwordSize); err != nil {
		return nil, err
	}
	return s, nil
}

// NullEnforcingPool wraps a slotalloc.Pool whose index 0 is reserved
// for a permanent null entry: the null BSDF and null EDF procedure
// sets this spec's testable properties require.
type NullEnforcingPool struct {
	*slotalloc.Pool
}

func newNullEnforcingPool(dev rtx.Device, capacity int, recordSize int64) (*NullEnforcingPool, error) {
	pool, err := slotalloc.New(dev, capacity, recordSize)
	if err != nil {
		return nil, err
	}
	idx, err := pool.Allocate()
	if err != nil {
		return nil, err
	}
	if idx != 0 {
		// Nothing else has allocated from this pool yet; index 0
		// must be returned first.
		panic("registry: null procedure set did not land at index 0")
	}
	return &NullEnforcingPool{Pool: pool}, nil
}

// Release frees index, refusing to release the null entry at index 0.
func (p *NullEnforcingPool) Release(index int) error {
	if index == 0 {
		return vlrerr.New(vlrerr.InvalidArgument, "registry: the null procedure set is not releasable")
	}
	p.Pool.Release(index)
	return nil
}
