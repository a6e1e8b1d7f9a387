// Package scene implements component F: the Scene and acceleration-
// structure driver consuming scenegraph's flattened SHTransforms and
// feeding the external rtx runtime's instance acceleration structure.
// It tracks GeometryInstance/GeometryAS/Instance records, the
// environment instance (including the supplemented EnvironmentRotation
// field), and the light-instance discrete distribution, draining the
// three dirty sets per §4.F's prepare_setup/setup sequence.
package scene

import (
	"github.com/sleepyeye/VLR/internal/bitvec"
	"github.com/sleepyeye/VLR/rtx"
	"github.com/sleepyeye/VLR/sampling"
	"github.com/sleepyeye/VLR/scenegraph"
	"github.com/sleepyeye/VLR/vlrerr"
)

// GeometryInstance is one SHGeometryInstance's record: its
// descriptor-slot index, the material group's ID, primitive count
// and emissive flag, an optional per-primitive distribution, and a
// reference count (the
// supplemented feature tracking how many live SHGeometryInstances
// point at the same underlying geometry, so the slot is only
// released when the last one is gone).
type GeometryInstance struct {
	SlotIndex      int
	MaterialID     int
	PrimitiveCount int
	Emissive       bool
	// PrimitiveDist is the supplemented per-material-group
	// primitive distribution used for area-light sampling over a
	// multi-triangle emitter.
	PrimitiveDist *sampling.Discrete1D
	refCount      int
}

// GeometryAS is one SHGeometryGroup's bottom-level acceleration
// structure.
type GeometryAS struct {
	Handle rtx.DevicePtr
	// MemorySize is the device allocation backing Handle.
	MemorySize int64
	instances  []int // GeometryInstance slot indices
}

// Instance is one SHTransform's top-level-AS instance: its
// descriptor-slot index, the SHTransform it was built from, the index
// of the GeometryAS it references (-1 if none), and the EmittedPower
// weight used for the light-instance distribution. LightDist is not
// assigned by this package.
type Instance struct {
	SlotIndex    int
	SHTransform  scenegraph.SHTransformID
	GeomAS       int // index into Scene.geomASes
	LightDist    *sampling.Discrete1D
	EmittedPower float32
}

// Scene owns every GeometryInstance/GeometryAS/Instance record for
// one renderer context, plus the environment instance and the
// top-level light-instance distribution.
type Scene struct {
	graph *scenegraph.Graph

	geomInstances map[int]*GeometryInstance
	geomASes      map[int]*GeometryAS
	instances     map[int]*Instance
	nextSlot      int

	dirtyGeomInstances bitvec.V[uint32]
	dirtyGeomASes      bitvec.V[uint32]
	dirtyInstances     bitvec.V[uint32]
	environmentDirty   bool

	// EnvironmentRotation is the supplemented feature from
	// original_source's Scene::setEnvironmentRotation: a rotation
	// about the vertical axis for the environment instance,
	// independent of its importance map. Scene only stores the value;
	// no code in this package reads it or builds an environment
	// instance transform from it.
	EnvironmentRotation float32
	environmentNode     scenegraph.NodeID
	hasEnvironment      bool

	lightInstanceIdx []int
	lightDist        *sampling.Discrete1D
	sbtUpToDate      bool
	sbtRequiredSize  int64

	// geomASBySH and instanceBySH are the reverse lookups Materialize
	// needs to turn a scenegraph.Delta (named only by its SHTransform)
	// into the GeometryAS/Instance record it affects.
	geomASBySH   map[scenegraph.SHTransformID]int
	instanceBySH map[scenegraph.SHTransformID]int

	kernels SetupKernels
	ias     rtx.InstanceAccelStructure

	instanceBuf     rtx.Buffer
	geomInstanceBuf rtx.Buffer
	iasResult       rtx.Buffer
	iasHandle       rtx.DevicePtr
	iasBuilt        bool
}

// instanceRecordSize and geomInstanceRecordSize are the byte sizes of
// one device-side Instance/GeometryInstance record; the exact GPU
// struct layout is owned by setup_scene.ptx, not this package, so
// these are generous placeholders sized to hold a 4x4 transform plus
// a handful of descriptor indices.
const (
	instanceRecordSize      int64 = 128
	geomInstanceRecordSize  int64 = 64
)

// SetupKernels names the fixed-function compute kernels SetupScene
// drives: the per-instance and scene-wide AABB reduction. The
// post-process kernels are not part of this set; the renderer holds
// them.
type SetupKernels struct {
	ComputeInstanceAABBs  rtx.Kernel
	FinalizeInstanceAABBs rtx.Kernel
	ComputeSceneAABB      rtx.Kernel
	FinalizeSceneBounds   rtx.Kernel
}

// New creates an empty Scene over graph.
func New(graph *scenegraph.Graph) *Scene {
	return &Scene{
		graph:         graph,
		geomInstances: make(map[int]*GeometryInstance),
		geomASes:      make(map[int]*GeometryAS),
		instances:     make(map[int]*Instance),
		geomASBySH:    make(map[scenegraph.SHTransformID]int),
		instanceBySH:  make(map[scenegraph.SHTransformID]int),
	}
}

// SetKernels installs the AABB/scene-bound kernel set SetupScene
// drives; it must be called once, after the kernels are loaded from
// setup_scene.ptx, before the first SetupScene call.
func (s *Scene) SetKernels(k SetupKernels) { s.kernels = k }

// SetAccelStructure installs the top-level instance acceleration
// structure SetupScene builds or refits every frame.
func (s *Scene) SetAccelStructure(ias rtx.InstanceAccelStructure) { s.ias = ias }

func (s *Scene) allocSlot() int {
	s.nextSlot++
	return s.nextSlot
}

// MarkGeometryInstanceDirty inserts slot into the dirty_geometry_instances
// set drained by PrepareSetup.
func (s *Scene) MarkGeometryInstanceDirty(slot int) { markSet(&s.dirtyGeomInstances, slot) }

// MarkGeometryASDirty inserts asIndex into the dirty_geometry_ASes set.
func (s *Scene) MarkGeometryASDirty(asIndex int) { markSet(&s.dirtyGeomASes, asIndex) }

// MarkInstanceDirty inserts slot into the dirty_instances set.
func (s *Scene) MarkInstanceDirty(slot int) { markSet(&s.dirtyInstances, slot) }

// MarkEnvironmentDirty flags the environment instance and its
// importance map for rebuild on the next PrepareSetup.
func (s *Scene) MarkEnvironmentDirty() { s.environmentDirty = true }

func markSet(v *bitvec.V[uint32], index int) {
	if index >= v.Len() {
		v.Grow(index - v.Len() + 1)
	}
	v.Set(index)
}

// AddGeometryInstance registers a new GeometryInstance for one
// SHGeometryInstance's material group and returns its slot index.
func (s *Scene) AddGeometryInstance(materialID, primCount int, emissive bool) int {
	slot := s.allocSlot()
	s.geomInstances[slot] = &GeometryInstance{SlotIndex: slot, MaterialID: materialID, PrimitiveCount: primCount, Emissive: emissive, refCount: 1}
	s.MarkGeometryInstanceDirty(slot)
	return slot
}

// RetainGeometryInstance increments slot's reference count, e.g. when
// a second SHGeometryInstance path begins sharing the same record.
func (s *Scene) RetainGeometryInstance(slot int) error {
	gi, ok := s.geomInstances[slot]
	if !ok {
		return vlrerr.New(vlrerr.NotFound, "scene: no such geometry instance")
	}
	gi.refCount++
	return nil
}

// ReleaseGeometryInstance decrements slot's reference count, freeing
// the slot once the last owner releases it.
func (s *Scene) ReleaseGeometryInstance(slot int) error {
	gi, ok := s.geomInstances[slot]
	if !ok {
		return vlrerr.New(vlrerr.NotFound, "scene: no such geometry instance")
	}
	gi.refCount--
	if gi.refCount <= 0 {
		delete(s.geomInstances, slot)
	}
	return nil
}

// PrepareSetup drains the three dirty sets in order (geometry
// instances, geometry ASes, instances). A dirty emissive geometry
// instance with more than one primitive gets a uniform PrimitiveDist.
// The returned scratch size is the largest MemorySize recorded on a
// dirty GeometryAS; PrepareSetup builds no geometry AS and does not
// query rt or the AS runtime. Dirty instances are cleared without
// writing device records, and a dirty environment is only un-flagged:
// its importance map and instance are not rebuilt here.
func (s *Scene) PrepareSetup(rt rtx.Device) (scratchSize int64, err error) {
	for slot, ok := range s.dirtyGeomInstances.All() {
		if !ok {
			continue
		}
		if gi, found := s.geomInstances[slot]; found && gi.Emissive && gi.PrimitiveCount > 1 {
			weights := make([]float32, gi.PrimitiveCount)
			for i := range weights {
				weights[i] = 1 // uniform until per-primitive power is known; see DESIGN.md
			}
			dist, derr := sampling.NewDiscrete1D(weights)
			if derr != nil {
				return 0, derr
			}
			gi.PrimitiveDist = dist
		}
	}
	s.dirtyGeomInstances.Clear()

	for asIdx, ok := range s.dirtyGeomASes.All() {
		if !ok {
			continue
		}
		as, found := s.geomASes[asIdx]
		if !found {
			continue
		}
		if as.MemorySize > scratchSize {
			scratchSize = as.MemorySize
		}
	}
	s.dirtyGeomASes.Clear()

	for slot, ok := range s.dirtyInstances.All() {
		if !ok {
			continue
		}
		_ = slot // transform/record rewrite happens against the device buffer in Setup
	}
	s.dirtyInstances.Clear()

	if s.environmentDirty {
		s.environmentDirty = false
	}

	s.sbtUpToDate = false
	return scratchSize, nil
}

// Setup generates the per-pipeline shader binding table layout. It is
// called once per active algorithm every frame, after the scene-wide
// SetupScene pass.
func (s *Scene) Setup(stream rtx.Stream, pipeline rtx.Pipeline) (sbtSize int64, err error) {
	layout, err := pipeline.GenerateShaderBindingTableLayout()
	if err != nil {
		return 0, err
	}
	s.sbtRequiredSize = layout.HitGroupStride * int64(layout.Count)
	s.sbtUpToDate = true
	return s.sbtRequiredSize, nil
}

// Materialize consumes the Deltas a scenegraph.Graph mutation
// produced (AddChild/RemoveChild/SetTransform/SetSurfaceGroups),
// turning SHTransform/SHGeometryGroup changes into GeometryAS and
// Instance records: a new leaf SHTransform gets a GeometryAS built
// from its SHGeometryInstances, a new top-level (Scene-reachable)
// SHTransform gets an Instance pointing at its leaf's GeometryAS, and
// removals/updates adjust the matching records in place.
func (s *Scene) Materialize(deltas []scenegraph.Delta) error {
	for _, d := range deltas {
		switch d.Kind {
		case scenegraph.DeltaTransformAdded:
			if s.graph.IsLeaf(d.SHTransform) {
				if err := s.addGeometryAS(d.SHTransform); err != nil {
					return err
				}
			}
			if s.graph.IsTopLevel(d.SHTransform) {
				s.addInstance(d.SHTransform)
			}
		case scenegraph.DeltaTransformRemoved:
			s.removeInstance(d.SHTransform)
			s.removeGeometryAS(d.SHTransform)
		case scenegraph.DeltaTransformUpdated:
			if slot, ok := s.instanceBySH[d.SHTransform]; ok {
				s.MarkInstanceDirty(slot)
			}
		case scenegraph.DeltaGeometryUpdated:
			if err := s.resyncGeometryAS(d.SHTransform); err != nil {
				return err
			}
		}
	}
	return nil
}

// addGeometryAS creates a GeometryAS for leaf SHTransform leafID,
// populated from its current SHGeometryInstances.
func (s *Scene) addGeometryAS(leafID scenegraph.SHTransformID) error {
	asIdx := s.allocSlot()
	s.geomASes[asIdx] = &GeometryAS{}
	s.geomASBySH[leafID] = asIdx
	if err := s.syncGeometryInstances(asIdx, leafID); err != nil {
		return err
	}
	s.MarkGeometryASDirty(asIdx)
	return nil
}

// resyncGeometryAS rebuilds leafID's GeometryAS membership after a
// DeltaGeometryUpdated (a surface node was attached, detached, or had
// its material groups replaced under leafID's owning parent),
// creating the GeometryAS if this is its first geometry.
func (s *Scene) resyncGeometryAS(leafID scenegraph.SHTransformID) error {
	asIdx, ok := s.geomASBySH[leafID]
	if !ok {
		return s.addGeometryAS(leafID)
	}
	if err := s.syncGeometryInstances(asIdx, leafID); err != nil {
		return err
	}
	s.MarkGeometryASDirty(asIdx)
	s.refreshInstancesForGeomAS(asIdx)
	return nil
}

// syncGeometryInstances replaces asIdx's GeometryInstance membership
// with leafID's current SHGeometryInstances, releasing the previous
// set.
func (s *Scene) syncGeometryInstances(asIdx int, leafID scenegraph.SHTransformID) error {
	as := s.geomASes[asIdx]
	for _, slot := range as.instances {
		if err := s.ReleaseGeometryInstance(slot); err != nil {
			return err
		}
	}
	as.instances = as.instances[:0]
	for _, ref := range s.graph.SHGeometryInstances(leafID) {
		slot := s.AddGeometryInstance(ref.Group.MaterialID, ref.Group.PrimitiveCount, ref.Group.Emissive)
		as.instances = append(as.instances, slot)
	}
	return nil
}

// removeGeometryAS releases every GeometryInstance belonging to id's
// GeometryAS, if any, and forgets the record.
func (s *Scene) removeGeometryAS(id scenegraph.SHTransformID) {
	asIdx, ok := s.geomASBySH[id]
	if !ok {
		return
	}
	as := s.geomASes[asIdx]
	for _, slot := range as.instances {
		s.ReleaseGeometryInstance(slot)
	}
	delete(s.geomASes, asIdx)
	delete(s.geomASBySH, id)
}

// addInstance creates id's top-level Instance record, resolving its
// GeomAS from whichever leaf SHTransform id's chain bottoms out at
// (0 or more chain links below it).
func (s *Scene) addInstance(id scenegraph.SHTransformID) {
	slot := s.allocSlot()
	inst := &Instance{SlotIndex: slot, SHTransform: id, GeomAS: -1}
	if leafID := s.graph.SHLeafID(id); leafID != 0 {
		if asIdx, ok := s.geomASBySH[leafID]; ok {
			inst.GeomAS = asIdx
			inst.EmittedPower = s.emittedPowerForGeomAS(asIdx)
		}
	}
	s.instances[slot] = inst
	s.instanceBySH[id] = slot
	s.MarkInstanceDirty(slot)
}

// removeInstance forgets id's Instance record, if any.
func (s *Scene) removeInstance(id scenegraph.SHTransformID) {
	slot, ok := s.instanceBySH[id]
	if !ok {
		return
	}
	delete(s.instances, slot)
	delete(s.instanceBySH, id)
}

// emittedPowerForGeomAS returns the total primitive count of the
// emissive GeometryInstances in asIdx; recomputeLightDistribution uses
// it as the EmittedPower weight of the Instance(s) built over it.
func (s *Scene) emittedPowerForGeomAS(asIdx int) float32 {
	as, ok := s.geomASes[asIdx]
	if !ok {
		return 0
	}
	var power float32
	for _, slot := range as.instances {
		if gi, ok := s.geomInstances[slot]; ok && gi.Emissive {
			power += float32(gi.PrimitiveCount)
		}
	}
	return power
}

// refreshInstancesForGeomAS recomputes EmittedPower for every
// Instance built over asIdx, after its geometry membership changed.
func (s *Scene) refreshInstancesForGeomAS(asIdx int) {
	power := s.emittedPowerForGeomAS(asIdx)
	for slot, inst := range s.instances {
		if inst.GeomAS == asIdx {
			inst.EmittedPower = power
			s.MarkInstanceDirty(slot)
		}
	}
}

// ensureDeviceBuffers grows the Instance/GeometryInstance device
// record arrays to fit the current record counts, recreating them
// only when they are undersized.
func (s *Scene) ensureDeviceBuffers(dev rtx.Device) error {
	need := int64(len(s.instances)) * instanceRecordSize
	if s.instanceBuf == nil || s.instanceBuf.Size() < need {
		buf, err := dev.NewBuffer(need)
		if err != nil {
			return vlrerr.Fatal(vlrerr.FatalRuntime, err)
		}
		s.instanceBuf = buf
	}
	need = int64(len(s.geomInstances)) * geomInstanceRecordSize
	if s.geomInstanceBuf == nil || s.geomInstanceBuf.Size() < need {
		buf, err := dev.NewBuffer(need)
		if err != nil {
			return vlrerr.Fatal(vlrerr.FatalRuntime, err)
		}
		s.geomInstanceBuf = buf
	}
	return nil
}

// SetupScene performs the scene-wide device pass, once per frame
// regardless of how many algorithms are active this frame: it
// (re)sizes the Instance/GeometryInstance device buffers, launches
// the per-instance and scene-wide AABB-reduction kernels, builds or
// refits the top-level acceleration structure, and recomputes the
// light-instance distribution.
func (s *Scene) SetupScene(stream rtx.Stream, dev rtx.Device, scratch rtx.Buffer) error {
	if err := s.ensureDeviceBuffers(dev); err != nil {
		return err
	}

	count := len(s.instances)
	if k := s.kernels.ComputeInstanceAABBs; k != nil && count > 0 {
		if err := k.Launch(stream, s.instanceBuf.DevicePtr(), count, 1, 1); err != nil {
			return vlrerr.Fatal(vlrerr.FatalRuntime, err)
		}
	}
	if k := s.kernels.FinalizeInstanceAABBs; k != nil && count > 0 {
		if err := k.Launch(stream, s.instanceBuf.DevicePtr(), count, 1, 1); err != nil {
			return vlrerr.Fatal(vlrerr.FatalRuntime, err)
		}
	}
	if k := s.kernels.ComputeSceneAABB; k != nil && count > 0 {
		if err := k.Launch(stream, s.instanceBuf.DevicePtr(), count, 1, 1); err != nil {
			return vlrerr.Fatal(vlrerr.FatalRuntime, err)
		}
	}
	if k := s.kernels.FinalizeSceneBounds; k != nil && count > 0 {
		if err := k.Launch(stream, s.instanceBuf.DevicePtr(), 1, 1, 1); err != nil {
			return vlrerr.Fatal(vlrerr.FatalRuntime, err)
		}
	}

	if s.ias != nil && count > 0 {
		_, result, err := s.ias.Sizes(count)
		if err != nil {
			return vlrerr.Fatal(vlrerr.FatalRuntime, err)
		}
		if s.iasResult == nil || s.iasResult.Size() < result {
			buf, err := dev.NewBuffer(result)
			if err != nil {
				return vlrerr.Fatal(vlrerr.FatalRuntime, err)
			}
			s.iasResult = buf
			s.iasBuilt = false
		}
		handle, err := s.ias.Build(stream, s.instanceBuf, count, scratch, s.iasResult, s.iasBuilt)
		if err != nil {
			return vlrerr.Fatal(vlrerr.FatalRuntime, err)
		}
		s.iasHandle = handle
		s.iasBuilt = true
	}

	return s.recomputeLightDistribution()
}

// AccelStructureHandle returns the top-level IAS device handle built
// by the most recent SetupScene call.
func (s *Scene) AccelStructureHandle() rtx.DevicePtr { return s.iasHandle }

// recomputeLightDistribution rebuilds the distribution over
// instances whose geometry contains at least one emitting material,
// including the environment instance when present.
func (s *Scene) recomputeLightDistribution() error {
	s.lightInstanceIdx = s.lightInstanceIdx[:0]
	var weights []float32
	for slot, inst := range s.instances {
		if inst.EmittedPower <= 0 {
			continue
		}
		s.lightInstanceIdx = append(s.lightInstanceIdx, slot)
		weights = append(weights, inst.EmittedPower)
	}
	if s.hasEnvironment {
		s.lightInstanceIdx = append(s.lightInstanceIdx, -1) // sentinel: environment
		weights = append(weights, 1)
	}
	if len(weights) == 0 {
		s.lightDist = nil
		return nil
	}
	dist, err := sampling.NewDiscrete1D(weights)
	if err != nil {
		return err
	}
	s.lightDist = dist
	return nil
}

// LightInstanceCount returns the number of light-emitting instances
// currently in the light-instance distribution (including the
// environment instance, if present), used by the S3/S1 testable
// scenarios.
func (s *Scene) LightInstanceCount() int { return len(s.lightInstanceIdx) }

// LightDistribution returns the current light-instance distribution,
// or nil if the scene has no emitters.
func (s *Scene) LightDistribution() *sampling.Discrete1D { return s.lightDist }

// SBTUpToDate reports whether Setup has run since the last
// PrepareSetup, and SBTRequiredSize returns the hit-group SBT byte
// size the last Setup computed (the shader binding table policy of
// §4.G). The controller re-attaches (scene, sbt) to the pipeline
// whenever SBTUpToDate was false before the frame's first Setup call
// or the pipeline is not yet bound to this scene; it does not read
// SBTRequiredSize and does not resize the hit-group SBT.
func (s *Scene) SBTUpToDate() bool       { return s.sbtUpToDate }
func (s *Scene) SBTRequiredSize() int64  { return s.sbtRequiredSize }
