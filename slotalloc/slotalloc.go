// Package slotalloc implements the host side of a GPU-resident slot
// table: a fixed-capacity device buffer addressed by small integer
// indices, fronted by a bitmap free list the way engine/storage.go's
// meshBuffer fronted a vertex buffer in the teacher. Allocation
// returns the lowest free index (so index reuse is deterministic,
// per the slot-allocator round-trip testable property); Update
// uploads one record's serialized bytes to its slot.
package slotalloc

import (
	"github.com/sleepyeye/VLR/internal/bitm"
	"github.com/sleepyeye/VLR/rtx"
	"github.com/sleepyeye/VLR/vlrerr"
)

// Pool is a fixed-capacity slot table. recordSize is the size in
// bytes of one descriptor record; capacity is the number of slots the
// pool's device buffer is sized for (the eight pool capacities named
// in this spec's data model — node procedure sets, small/medium/large
// node descriptors, BSDF/EDF/IDF procedure sets, material
// descriptors — are all instances of Pool with a fixed capacity and
// record size).
type Pool struct {
	recordSize int64
	capacity   int
	free       bitm.Bitm[uint32]
	buf        rtx.Buffer
}

// New creates a Pool of the given capacity and per-record size,
// backed by a device buffer allocated from dev.
func New(dev rtx.Device, capacity int, recordSize int64) (*Pool, error) {
	buf, err := dev.NewBuffer(int64(capacity) * recordSize)
	if err != nil {
		return nil, vlrerr.Fatal(vlrerr.FatalRuntime, err)
	}
	p := &Pool{recordSize: recordSize, capacity: capacity, buf: buf}
	p.free.Grow(bitmWords(capacity))
	// The bitmap is sized in granularity-sized words; clamp the
	// reported remainder down to the pool's actual capacity so that
	// Allocate never hands out an index the buffer wasn't sized for.
	if over := p.free.Len() - capacity; over > 0 {
		for i := capacity; i < p.free.Len(); i++ {
			p.free.Set(i)
		}
	}
	return p, nil
}

func bitmWords(capacity int) int {
	const wordBits = 32
	return (capacity + wordBits - 1) / wordBits
}

// Capacity returns the number of slots the pool was created with.
func (p *Pool) Capacity() int { return p.capacity }

// Len returns the number of slots currently allocated.
func (p *Pool) Len() int { return p.capacity - p.free.Rem() }

// Buffer returns the pool's backing device buffer, whose DevicePtr
// is what the launch-parameters record stores for this pool.
func (p *Pool) Buffer() rtx.Buffer { return p.buf }

// Allocate reserves the lowest free slot index and returns it.
// CapacityExhausted if the pool is full; the pool is left unchanged.
func (p *Pool) Allocate() (int, error) {
	index, ok := p.free.Search()
	if !ok {
		return 0, vlrerr.New(vlrerr.CapacityExhausted, "slotalloc: pool exhausted")
	}
	p.free.Set(index)
	return index, nil
}

// Release frees index, making it eligible for reuse by a future
// Allocate. Releasing an index that is not currently allocated is a
// no-op.
func (p *Pool) Release(index int) {
	p.free.Unset(index)
}

// Update uploads record (exactly recordSize bytes) to index's slot,
// enqueued on stream. It is the caller's responsibility to serialize
// the descriptor into record first (the shadernode and registry
// packages do this via their descriptor types' fixed-array layout).
func (p *Pool) Update(stream rtx.Stream, index int, record []byte) error {
	if int64(len(record)) != p.recordSize {
		return vlrerr.Newf(vlrerr.InvalidArgument, "slotalloc: record size %d, want %d", len(record), p.recordSize)
	}
	off := int64(index) * p.recordSize
	if err := p.buf.Upload(stream, record, off); err != nil {
		return vlrerr.Fatal(vlrerr.FatalRuntime, err)
	}
	return nil
}
