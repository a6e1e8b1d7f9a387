// Package shadernode implements the shader-node graph of this
// spec's component D: queryable nodes with typed parameters,
// first-class output plugs, and dirty-set-gated descriptor
// serialization into the registry's node-descriptor pools. The
// fixed-array-plus-Set*-accessor descriptor layout follows
// engine/internal/shader/layout.go's FrameLayout/LightLayout idiom in
// the teacher, generalized from per-frame/per-light records to
// per-shader-node records.
package shadernode

import (
	"github.com/sleepyeye/VLR/internal/bitvec"
	"github.com/sleepyeye/VLR/registry"
	"github.com/sleepyeye/VLR/rtx"
	"github.com/sleepyeye/VLR/vlrerr"
)

// SizeClass selects which of the three node-descriptor pools a node's
// record is allocated from.
type SizeClass int

const (
	Small SizeClass = iota
	Medium
	Large
)

// PlugType names the semantic type of one shader-node output.
type PlugType int

const (
	PlugInvalid PlugType = iota
	PlugPoint3D
	PlugNormal3D
	PlugVector3D
	PlugFloat
	PlugFloat2
	PlugFloat3
	PlugFloat4
	PlugTextureCoordinates
	PlugSpectrum
	PlugAlpha
)

// Plug is a reference to one typed output of one shader node: the
// tuple (node, output-plug-type, option-bits). The zero Plug is the
// "invalid plug" sentinel, meaning "use the immediate value instead".
type Plug struct {
	Node   Node
	Type   PlugType
	Option uint32
}

// Valid reports whether p names a real node output rather than the
// invalid-plug sentinel.
func (p Plug) Valid() bool { return p.Node != nil && p.Type != PlugInvalid }

// convertible reports whether a plug of type src may be used where a
// parameter of type dst is expected, per the per-target conversion
// table in §4.D (any scalar converts to float; float3 converts to
// Point3D/Normal3D/Vector3D).
func convertible(src, dst PlugType) bool {
	if src == dst {
		return true
	}
	switch dst {
	case PlugFloat:
		return src == PlugFloat2 || src == PlugFloat3 || src == PlugFloat4
	case PlugPoint3D, PlugNormal3D, PlugVector3D:
		return src == PlugFloat3
	}
	return false
}

// Node is the common interface of every shader-node concrete type.
type Node interface {
	// ID is the node's process-wide integer identity.
	ID() int

	// Kind names the concrete node type, for class-identifier
	// queries and logging.
	Kind() string

	// SizeClass reports which descriptor pool the node's record is
	// allocated from.
	SizeClass() SizeClass

	// SlotIndex is the node's descriptor-pool slot index.
	SlotIndex() int

	// Serialize writes the node's current state into buf (sized
	// exactly to its size class's record size) as the
	// plain-old-data descriptor the device reads. rgbMode selects
	// whether spectrum outputs are stored as the full spectral
	// table or pre-evaluated to three rendering-RGB channels.
	Serialize(buf []byte, rgbMode bool)
}

// Graph owns every shader node created against one renderer context:
// their descriptor-pool slots and the context-wide dirty set that
// gates serialization.
type Graph struct {
	set     *registry.Set
	dirty   bitvec.V[uint32]
	nodes   map[int]Node
	nextID  int
	rgbMode bool
}

// NewGraph creates an empty Graph over set. rgbMode selects the RGB
// special-case serialization behavior of §4.D.
func NewGraph(set *registry.Set, rgbMode bool) *Graph {
	return &Graph{set: set, nodes: make(map[int]Node), rgbMode: rgbMode}
}

func (g *Graph) allocID() int {
	g.nextID++
	return g.nextID
}

func (g *Graph) pool(class SizeClass) *poolHandle {
	switch class {
	case Small:
		return &poolHandle{g.set.SmallNodeDesc, smallRecordDwords * dwordSize}
	case Medium:
		return &poolHandle{g.set.MediumNodeDesc, mediumRecordDwords * dwordSize}
	default:
		return &poolHandle{g.set.LargeNodeDesc, largeRecordDwords * dwordSize}
	}
}

type poolHandle struct {
	pool       poolAllocator
	recordSize int64
}

// poolAllocator is the subset of *slotalloc.Pool Graph needs; defined
// as an interface only to keep this file's pool-selection code free
// of slotalloc import-cycle concerns (registry.Set already depends on
// slotalloc, shadernode only ever touches it through registry.Set).
type poolAllocator = interface {
	Allocate() (int, error)
	Release(index int)
	Update(stream rtx.Stream, index int, record []byte) error
}

const dwordSize = 4
const (
	smallRecordDwords  = 16
	mediumRecordDwords = 32
	largeRecordDwords  = 64
)

func (g *Graph) register(n Node) {
	g.nodes[n.ID()] = n
	g.markDirty(n.ID())
}

// markDirty inserts id into the context-wide dirty set.
func (g *Graph) markDirty(id int) {
	if id >= g.dirty.Len() {
		g.dirty.Grow(id - g.dirty.Len() + 1)
	}
	g.dirty.Set(id)
}

// Flush serializes every dirty node's descriptor and uploads it to
// its slot on stream, exactly once per node regardless of how many
// times it was marked dirty since the last Flush, then empties the
// dirty set.
func (g *Graph) Flush(stream rtx.Stream) error {
	for id, ok := range g.dirty.All() {
		if !ok {
			continue
		}
		n, found := g.nodes[id]
		if !found {
			continue
		}
		h := g.pool(n.SizeClass())
		buf := make([]byte, h.recordSize)
		n.Serialize(buf, g.rgbMode)
		if err := h.pool.Update(stream, n.SlotIndex(), buf); err != nil {
			return err
		}
	}
	g.dirty.Clear()
	return nil
}

// base is embedded by every concrete node type; it implements the
// identity/slot-allocation portion of Node.
type base struct {
	graph *Graph
	id    int
	slot  int
	class SizeClass
}

func newBase(g *Graph, class SizeClass) (base, error) {
	h := g.pool(class)
	slot, err := h.pool.Allocate()
	if err != nil {
		return base{}, err
	}
	return base{graph: g, id: g.allocID(), slot: slot, class: class}, nil
}

func (b *base) ID() int             { return b.id }
func (b *base) SizeClass() SizeClass { return b.class }
func (b *base) SlotIndex() int      { return b.slot }

func (b *base) markDirty() { b.graph.markDirty(b.id) }

// errUnknownParam and errBadLength are the two InvalidArgument
// reasons every concrete node's Set method produces for a bad name
// or a mismatched array length.
func errUnknownParam(kind, name string) error {
	return vlrerr.Newf(vlrerr.InvalidArgument, "shadernode: %s has no parameter %q", kind, name)
}

func errBadLength(kind, name string, have, want int) error {
	return vlrerr.Newf(vlrerr.InvalidArgument, "shadernode: %s.%s expects length %d, got %d", kind, name, want, have)
}

func errBadPlug(kind, name string, src, dst PlugType) error {
	return vlrerr.Newf(vlrerr.InvalidArgument, "shadernode: %s.%s cannot accept a plug of type %d (expects convertible to %d)", kind, name, src, dst)
}
