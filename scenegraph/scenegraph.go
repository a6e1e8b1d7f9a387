// Package scenegraph implements the shallow-hierarchy builder of
// this spec's component E: the user-facing DAG of Node/InternalNode/
// SurfaceNode/Scene, flattened into SHTransform/SHGeometryGroup/
// SHGeometryInstance records via the per-parent sh_map bookkeeping
// and the three event families of §4.E. The arena-of-handles,
// lazy-recomputation idiom is generalized from node/node.go's
// single-level world-transform propagation to this spec's two-level
// user-DAG/shallow-hierarchy split.
package scenegraph

import (
	"github.com/sleepyeye/VLR/linear"
	"github.com/sleepyeye/VLR/vlrerr"
)

// NodeID identifies a user-facing Node (InternalNode, SurfaceNode, or
// the Scene root) within one Graph. The zero value names no node.
type NodeID int

// SHTransformID identifies a shallow-hierarchy transform record.
type SHTransformID int

// SurfaceKind distinguishes the three SurfaceNode concrete types
// this spec and its original_source both carry: triangle mesh,
// point set, and the infinite sphere used for environment surfaces.
type SurfaceKind int

const (
	TriangleMesh SurfaceKind = iota
	PointSet
	InfiniteSphere
)

// Intersectable reports whether a surface kind participates in
// ray-geometry intersection at all, matching
// PointSurfaceNode::isIntersectable() in original_source: point sets
// and the degenerate infinite-sphere background are not traced
// against directly, they are sampled as lights.
func (k SurfaceKind) Intersectable() bool { return k == TriangleMesh }

// MaterialGroup is one material binding inside a SurfaceNode: its
// material ID, the number of primitives it covers, and whether it
// emits. The per-group primitive distribution used for area-light
// sampling is not stored here; scene builds it as
// GeometryInstance.PrimitiveDist.
type MaterialGroup struct {
	MaterialID   int
	PrimitiveCount int
	Emissive     bool
}

// surfaceNode is a leaf of the user DAG.
type surfaceNode struct {
	parents   map[NodeID]bool
	kind      SurfaceKind
	groups    []MaterialGroup
}

// internalNode is a named non-root parent with an attached transform.
type internalNode struct {
	parents   map[NodeID]bool
	children  map[NodeID]bool
	transform linear.M4
	shMap     map[SHTransformID]SHTransformID // child-SH -> this-node's composed SH; nilChildKey for the geom-group entry
}

// nilChildKey is the sh_map key meaning "this parent's own directly
// attached surface-node children" (the null-key case of §4.E).
const nilChildKey SHTransformID = -1

// shTransform is one flattened transform record: a composed matrix
// plus either a child geometry group (leaf case) or a child
// SHTransform (chain case), never both.
type shTransform struct {
	matrix      linear.M4
	inverse     linear.M4
	geomGroup   *shGeometryGroup // leaf case
	childSH     SHTransformID    // chain case; 0 means none
	owner       NodeID           // the ParentNode that owns this entry in its sh_map
}

// shGeometryGroup is the ordered list of SHGeometryInstances directly
// attached to one parent.
type shGeometryGroup struct {
	instances []*shGeometryInstance
}

// shGeometryInstance is one material group's instance record: the
// owning surface node plus a user-data word (the material-group
// index within that node).
type shGeometryInstance struct {
	owner    NodeID
	groupIdx int
}

// GeometryInstanceRef describes one SHGeometryInstance inside a leaf
// SHTransform's SHGeometryGroup, resolved against its owning
// SurfaceNode's current material groups.
type GeometryInstanceRef struct {
	Surface    NodeID
	GroupIndex int
	Group      MaterialGroup
}

// Delta describes one SHTransform-level change a Graph operation
// produces, to be forwarded to Scene (component F) so it can update
// its GeometryAS/Instance bookkeeping.
type Delta struct {
	SHTransform SHTransformID
	Kind        DeltaKind
}

// DeltaKind classifies a Delta.
type DeltaKind int

const (
	DeltaTransformAdded DeltaKind = iota
	DeltaTransformRemoved
	DeltaTransformUpdated
	DeltaGeometryUpdated
)

// Graph owns the entire user DAG and its flattened shallow hierarchy
// for one renderer context.
type Graph struct {
	nodes   map[NodeID]any // *surfaceNode or *internalNode
	root    NodeID
	nextID  NodeID
	shNext  SHTransformID
	sh      map[SHTransformID]*shTransform
}

// New creates an empty Graph with a Scene root.
func New() *Graph {
	g := &Graph{nodes: make(map[NodeID]any), sh: make(map[SHTransformID]*shTransform)}
	g.nextID++
	g.root = g.nextID
	g.nodes[g.root] = &internalNode{
		parents:  make(map[NodeID]bool),
		children: make(map[NodeID]bool),
		shMap:    make(map[SHTransformID]SHTransformID),
	}
	return g
}

// Root returns the Scene root's NodeID.
func (g *Graph) Root() NodeID { return g.root }

func (g *Graph) allocNodeID() NodeID {
	g.nextID++
	return g.nextID
}

func (g *Graph) allocSHID() SHTransformID {
	g.shNext++
	return g.shNext
}

// NewInternalNode creates a detached InternalNode with the identity
// transform.
func (g *Graph) NewInternalNode() NodeID {
	id := g.allocNodeID()
	n := &internalNode{
		parents:  make(map[NodeID]bool),
		children: make(map[NodeID]bool),
		shMap:    make(map[SHTransformID]SHTransformID),
	}
	n.transform.I()
	g.nodes[id] = n
	return id
}

// NewSurfaceNode creates a detached SurfaceNode of the given kind.
func (g *Graph) NewSurfaceNode(kind SurfaceKind) NodeID {
	id := g.allocNodeID()
	g.nodes[id] = &surfaceNode{parents: make(map[NodeID]bool), kind: kind}
	return id
}

func (g *Graph) internal(id NodeID) (*internalNode, bool) {
	n, ok := g.nodes[id].(*internalNode)
	return n, ok
}

func (g *Graph) surface(id NodeID) (*surfaceNode, bool) {
	n, ok := g.nodes[id].(*surfaceNode)
	return n, ok
}

// AddChild attaches child under parent, which must be an
// InternalNode or the Scene root. Attaching the same child twice
// under the same parent is a no-op at the user-DAG level but each
// attachment still produces one SHTransform per distinct parent path
// (multi-parent instancing).
func (g *Graph) AddChild(parent, child NodeID) ([]Delta, error) {
	p, ok := g.internal(parent)
	if !ok {
		return nil, vlrerr.New(vlrerr.InvalidArgument, "scenegraph: parent is not an InternalNode or Scene")
	}
	if p.children == nil {
		p.children = make(map[NodeID]bool)
	}
	switch c := g.nodes[child].(type) {
	case *internalNode:
		p.children[child] = true
		c.parents[parent] = true
		// Chain case: every SHTransform the child already exposes at
		// its own top of sh_map gets a composed entry in parent's
		// sh_map, which in turn propagates to parent's own parents.
		return g.addChainEntries(parent, shMapValues(c)), nil
	case *surfaceNode:
		hadDirect := p.shMap[nilChildKey] != 0
		c.parents[parent] = true
		if !hadDirect {
			return g.attachDirectGeometry(parent), nil
		}
		g.rebuildGeomGroup(parent)
		return []Delta{{SHTransform: p.shMap[nilChildKey], Kind: DeltaGeometryUpdated}}, nil
	default:
		return nil, vlrerr.New(vlrerr.InvalidArgument, "scenegraph: unknown child node")
	}
}

// RemoveChild detaches child from parent. NotFound if child was not
// attached to parent.
func (g *Graph) RemoveChild(parent, child NodeID) ([]Delta, error) {
	p, ok := g.internal(parent)
	if !ok {
		return nil, vlrerr.New(vlrerr.InvalidArgument, "scenegraph: parent is not an InternalNode or Scene")
	}
	switch c := g.nodes[child].(type) {
	case *internalNode:
		if !p.children[child] {
			return nil, vlrerr.New(vlrerr.NotFound, "scenegraph: child is not attached to parent")
		}
		delete(p.children, child)
		delete(c.parents, parent)
		return g.removeChainEntries(parent, shMapValues(c)), nil
	case *surfaceNode:
		if !c.parents[parent] {
			return nil, vlrerr.New(vlrerr.NotFound, "scenegraph: child is not attached to parent")
		}
		delete(c.parents, parent)
		if !g.anySurfaceChildAttached(parent) {
			return g.detachDirectGeometry(parent), nil
		}
		g.rebuildGeomGroup(parent)
		return []Delta{{SHTransform: p.shMap[nilChildKey], Kind: DeltaGeometryUpdated}}, nil
	default:
		return nil, vlrerr.New(vlrerr.NotFound, "scenegraph: unknown child node")
	}
}

// shMapValues returns the SHTransforms n currently exposes at the top
// of its own sh_map — the set a parent attaching n as a child chains
// its own transform onto.
func shMapValues(n *internalNode) []SHTransformID {
	ids := make([]SHTransformID, 0, len(n.shMap))
	for _, id := range n.shMap {
		ids = append(ids, id)
	}
	return ids
}

func (g *Graph) anySurfaceChildAttached(parent NodeID) bool {
	for id, n := range g.nodes {
		sn, ok := n.(*surfaceNode)
		if !ok {
			continue
		}
		if sn.parents[parent] {
			_ = id
			return true
		}
	}
	return false
}

// SetTransform replaces InternalNode n's transform, recomposing
// every entry in its sh_map and returning the set of changed
// SHTransforms to propagate upward.
func (g *Graph) SetTransform(n NodeID, m linear.M4) ([]Delta, error) {
	p, ok := g.internal(n)
	if !ok {
		return nil, vlrerr.New(vlrerr.InvalidArgument, "scenegraph: not an InternalNode")
	}
	p.transform = m
	return g.recomposeAll(n), nil
}

// SetSurfaceGroups replaces SurfaceNode id's material groups,
// rebuilding the SHGeometryGroup of every parent it is directly
// attached to and reporting a DeltaGeometryUpdated for each affected
// leaf SHTransform (the geometry-event family of §4.E).
func (g *Graph) SetSurfaceGroups(id NodeID, groups []MaterialGroup) ([]Delta, error) {
	sn, ok := g.surface(id)
	if !ok {
		return nil, vlrerr.New(vlrerr.InvalidArgument, "scenegraph: not a SurfaceNode")
	}
	sn.groups = groups
	var deltas []Delta
	for parentID := range sn.parents {
		p, ok := g.internal(parentID)
		if !ok {
			continue
		}
		leafID, exists := p.shMap[nilChildKey]
		if !exists {
			continue
		}
		g.rebuildGeomGroup(parentID)
		deltas = append(deltas, Delta{SHTransform: leafID, Kind: DeltaGeometryUpdated})
	}
	return deltas, nil
}

// attachDirectGeometry creates the null-keyed ("leaf case") SHTransform
// for p the first time it gains a directly-attached surface-node child,
// and propagates it (a newly exposed top-of-sh_map entry) to every one
// of parent's own parents.
func (g *Graph) attachDirectGeometry(parent NodeID) []Delta {
	p, _ := g.internal(parent)
	id := g.allocSHID()
	g.sh[id] = &shTransform{
		matrix:    p.transform,
		geomGroup: &shGeometryGroup{},
		owner:     parent,
	}
	g.updateInverse(id)
	p.shMap[nilChildKey] = id
	g.rebuildGeomGroup(parent)
	deltas := []Delta{{SHTransform: id, Kind: DeltaTransformAdded}}
	return append(deltas, g.propagateAdd(parent, []SHTransformID{id})...)
}

func (g *Graph) detachDirectGeometry(parent NodeID) []Delta {
	p, _ := g.internal(parent)
	id := p.shMap[nilChildKey]
	delete(p.shMap, nilChildKey)
	delete(g.sh, id)
	deltas := []Delta{{SHTransform: id, Kind: DeltaTransformRemoved}}
	return append(deltas, g.propagateRemove(parent, []SHTransformID{id})...)
}

func (g *Graph) updateInverse(id SHTransformID) {
	t := g.sh[id]
	t.inverse.Invert(&t.matrix)
}

// recomposeAll recomposes every entry of p's sh_map with its current
// transform, returns the set of changed SHTransforms, and propagates
// the same set of changes to every one of p's own parents (the chain
// case: p's composed SHTransforms are themselves child entries of
// whichever InternalNodes attach p).
func (g *Graph) recomposeAll(parent NodeID) []Delta {
	p, ok := g.internal(parent)
	if !ok {
		return nil
	}
	var deltas []Delta
	var updated []SHTransformID
	for childKey, shID := range p.shMap {
		t := g.sh[shID]
		var base linear.M4
		if childKey == nilChildKey {
			base.I()
		} else {
			base = g.sh[childKey].matrix
		}
		t.matrix.Mul(&p.transform, &base)
		g.updateInverse(shID)
		updated = append(updated, shID)
		deltas = append(deltas, Delta{SHTransform: shID, Kind: DeltaTransformUpdated})
	}
	return append(deltas, g.propagateUpdate(parent, updated)...)
}

// addChainEntries creates, in owner's sh_map, one new chain-case
// SHTransform per id in childIDs (keyed by that id), composing
// owner's transform with each child's matrix; it then recurses into
// every one of owner's own parents with the freshly created ids, the
// way ParentNode::createConcatanatedTransforms threads a child-delta
// set up through every ancestor path.
func (g *Graph) addChainEntries(owner NodeID, childIDs []SHTransformID) []Delta {
	p, ok := g.internal(owner)
	if !ok || len(childIDs) == 0 {
		return nil
	}
	var deltas []Delta
	var created []SHTransformID
	for _, childID := range childIDs {
		if _, exists := p.shMap[childID]; exists {
			continue
		}
		child := g.sh[childID]
		id := g.allocSHID()
		t := &shTransform{childSH: childID, owner: owner}
		t.matrix.Mul(&p.transform, &child.matrix)
		g.sh[id] = t
		g.updateInverse(id)
		p.shMap[childID] = id
		created = append(created, id)
		deltas = append(deltas, Delta{SHTransform: id, Kind: DeltaTransformAdded})
	}
	return append(deltas, g.propagateAdd(owner, created)...)
}

// removeChainEntries removes, from owner's sh_map, the chain-case
// entry keyed by each id in childIDs, and recurses into owner's
// parents with the removed ids.
func (g *Graph) removeChainEntries(owner NodeID, childIDs []SHTransformID) []Delta {
	p, ok := g.internal(owner)
	if !ok || len(childIDs) == 0 {
		return nil
	}
	var deltas []Delta
	var removed []SHTransformID
	for _, childID := range childIDs {
		id, exists := p.shMap[childID]
		if !exists {
			continue
		}
		delete(p.shMap, childID)
		delete(g.sh, id)
		removed = append(removed, id)
		deltas = append(deltas, Delta{SHTransform: id, Kind: DeltaTransformRemoved})
	}
	return append(deltas, g.propagateRemove(owner, removed)...)
}

// propagateAdd, propagateUpdate, and propagateRemove forward a set of
// SHTransforms owned by owner up to every one of owner's own parents
// (an InternalNode may have more than one, since instancing attaches
// the same subtree under several paths).
func (g *Graph) propagateAdd(owner NodeID, ids []SHTransformID) []Delta {
	return g.forEachParent(owner, ids, g.addChainEntries)
}

func (g *Graph) propagateUpdate(owner NodeID, ids []SHTransformID) []Delta {
	return g.forEachParent(owner, ids, g.updateChainEntries)
}

func (g *Graph) propagateRemove(owner NodeID, ids []SHTransformID) []Delta {
	return g.forEachParent(owner, ids, g.removeChainEntries)
}

func (g *Graph) forEachParent(owner NodeID, ids []SHTransformID, f func(NodeID, []SHTransformID) []Delta) []Delta {
	if len(ids) == 0 {
		return nil
	}
	p, ok := g.internal(owner)
	if !ok {
		return nil
	}
	var deltas []Delta
	for parentID := range p.parents {
		deltas = append(deltas, f(parentID, ids)...)
	}
	return deltas
}

// updateChainEntries recomposes owner's existing chain-case entries
// keyed by each id in childIDs and recurses into owner's parents.
func (g *Graph) updateChainEntries(owner NodeID, childIDs []SHTransformID) []Delta {
	p, ok := g.internal(owner)
	if !ok || len(childIDs) == 0 {
		return nil
	}
	var deltas []Delta
	var updated []SHTransformID
	for _, childID := range childIDs {
		id, exists := p.shMap[childID]
		if !exists {
			continue
		}
		t := g.sh[id]
		t.matrix.Mul(&p.transform, &g.sh[childID].matrix)
		g.updateInverse(id)
		updated = append(updated, id)
		deltas = append(deltas, Delta{SHTransform: id, Kind: DeltaTransformUpdated})
	}
	return append(deltas, g.propagateUpdate(owner, updated)...)
}

// rebuildGeomGroup recomputes parent's directly-attached
// SHGeometryGroup (the null-keyed SHTransform's geometry) from every
// surface-node child currently attached to parent.
func (g *Graph) rebuildGeomGroup(parent NodeID) {
	p, ok := g.internal(parent)
	if !ok {
		return
	}
	leafID, exists := p.shMap[nilChildKey]
	if !exists {
		return
	}
	group := &shGeometryGroup{}
	for id, n := range g.nodes {
		sn, ok := n.(*surfaceNode)
		if !ok || !sn.parents[parent] {
			continue
		}
		for i := range sn.groups {
			group.instances = append(group.instances, &shGeometryInstance{owner: id, groupIdx: i})
		}
	}
	g.sh[leafID].geomGroup = group
}

// SHTransformMatrix returns the composed matrix of SHTransform id.
func (g *Graph) SHTransformMatrix(id SHTransformID) linear.M4 { return g.sh[id].matrix }

// SHTransformInverse returns the cached inverse of SHTransform id's
// matrix, used for normal transforms.
func (g *Graph) SHTransformInverse(id SHTransformID) linear.M4 { return g.sh[id].inverse }

// IsLeaf reports whether id is a leaf-case SHTransform (one owning a
// SHGeometryGroup) rather than a chain-case SHTransform.
func (g *Graph) IsLeaf(id SHTransformID) bool {
	t, ok := g.sh[id]
	return ok && t.geomGroup != nil
}

// IsTopLevel reports whether id is one of the Scene root's own
// composed SHTransforms — the set reachable from Scene that the
// top-level acceleration structure instances over, per §4.E's
// flattening invariant.
func (g *Graph) IsTopLevel(id SHTransformID) bool {
	root, _ := g.internal(g.root)
	for _, v := range root.shMap {
		if v == id {
			return true
		}
	}
	return false
}

// SHLeafID follows the chain from id down to the leaf SHTransform
// that owns its SHGeometryGroup, returning 0 if id does not resolve
// to any geometry (e.g. a chain whose subtree has no surface nodes).
func (g *Graph) SHLeafID(id SHTransformID) SHTransformID {
	t, ok := g.sh[id]
	if !ok {
		return 0
	}
	if t.geomGroup != nil {
		return id
	}
	if t.childSH == 0 {
		return 0
	}
	return g.SHLeafID(t.childSH)
}

// SHGeometryInstances returns the material-group instances held by
// leaf SHTransform id's SHGeometryGroup, resolved against each
// owning SurfaceNode's current groups. It returns nil for a chain-case
// or unknown id, and an empty slice for a leaf whose surface nodes
// have no material groups yet.
func (g *Graph) SHGeometryInstances(id SHTransformID) []GeometryInstanceRef {
	t, ok := g.sh[id]
	if !ok || t.geomGroup == nil {
		return nil
	}
	out := make([]GeometryInstanceRef, 0, len(t.geomGroup.instances))
	for _, inst := range t.geomGroup.instances {
		sn, ok := g.surface(inst.owner)
		if !ok || inst.groupIdx >= len(sn.groups) {
			continue
		}
		out = append(out, GeometryInstanceRef{Surface: inst.owner, GroupIndex: inst.groupIdx, Group: sn.groups[inst.groupIdx]})
	}
	return out
}

// Count returns the number of SHTransforms reachable from Scene (the
// Scene root's own sh_map), used by the hierarchy-flattening testable
// property: one entry per user path from Scene to a parent node with
// directly attached SurfaceNodes. SurfaceNodes attached to the same
// parent share that parent's entry.
func (g *Graph) Count() int {
	root, _ := g.internal(g.root)
	return len(root.shMap)
}
