// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package rtx

// GraphFlags and ExceptionFlags are bitmasks forwarded verbatim to
// the runtime's pipeline-options call; this package assigns no
// meaning to individual bits beyond what the runtime documents.
type (
	GraphFlags     uint32
	ExceptionFlags uint32
	PrimitiveFlags uint32
)

// DebugLevel selects the amount of debug information the runtime
// keeps in a linked pipeline.
type DebugLevel int

const (
	DebugNone DebugLevel = iota
	DebugMinimal
	DebugFull
)

// PipelineOptions mirrors set_pipeline_options: the fixed parameters
// that shape every module and program group created against a
// pipeline, and that cannot change after the pipeline is created.
type PipelineOptions struct {
	PayloadDwords    int
	AttrDwords       int
	LaunchParamsName string
	LaunchParamsSize int64
	MaxDepth         int
	GraphFlags       GraphFlags
	ExceptionFlags   ExceptionFlags
	PrimitiveFlags   PrimitiveFlags
}

// Module is a compiled PTX module, the unit programs are created
// from.
type Module interface {
	Destroyer
}

// Program is a single entry point within a Module (a ray-generation
// or miss program).
type Program interface {
	Destroyer
}

// ProgramGroup is a linkable unit combining one or more programs for
// a single SBT record kind: a hit group (closest-hit/any-hit pair
// over triangle intersection), an empty hit group (used by ray types
// that never shade), or a callable program (direct or continuation).
type ProgramGroup interface {
	Destroyer
}

// SBTLayout reports the per-record stride and count the runtime
// expects for a pipeline's hit-group shader binding table, as
// returned by generate_shader_binding_table_layout. The scene drives
// Count from its own SBT-index assignment (§4.G shader binding table
// policy); HitGroupStride never changes once a pipeline is linked.
type SBTLayout struct {
	HitGroupStride int64
	Count          int
}

// ShaderBindingTable is a device buffer holding SBT records plus the
// record stride and count describing how to interpret it. Ray-gen
// SBTs always have Count == 1.
type ShaderBindingTable struct {
	Buf    Buffer
	Stride int64
	Count  int
}

// Pipeline is a single ray-tracing pipeline: one of PathTracing,
// LightTracing, LVCBPT, AuxBufferGenerator, or DebugRendering in this
// spec's renderer controller. Programs and program groups are
// created against it up until Link; Launch is only valid afterward.
type Pipeline interface {
	Destroyer

	// NewRayGenProgram creates the pipeline's single ray-generation
	// program from an entry point in module.
	NewRayGenProgram(module Module, entry string) (Program, error)

	// NewMissProgram creates a miss program for one ray type. The
	// renderer registers one per ray type used by the pipeline's
	// algorithm.
	NewMissProgram(module Module, entry string) (Program, error)

	// NewHitProgramGroupForTriangleIS creates a hit group over the
	// built-in triangle intersection, with closest-hit entry chEntry
	// in chModule and, if ahModule is non-nil, an any-hit entry
	// ahEntry in ahModule (used for alpha-tested shadow rays).
	NewHitProgramGroupForTriangleIS(chModule Module, chEntry string, ahModule Module, ahEntry string) (ProgramGroup, error)

	// NewEmptyHitProgramGroup creates a hit group with no programs,
	// for ray types that carry no per-hit shading (e.g. LVC-BPT's
	// shadow-connection ray type against opaque geometry).
	NewEmptyHitProgramGroup() (ProgramGroup, error)

	// NewCallableProgramGroup creates a direct- or
	// continuation-callable program group. Per the globally shared
	// callable-program-index design note, every pipeline's callable
	// list must stay parallel, so callers register the same set of
	// callables, in the same order, against every pipeline before
	// any pipeline is linked.
	NewCallableProgramGroup(module Module, directEntry, continuationEntry string) (ProgramGroup, error)

	// Link finalizes the pipeline. No further program or program
	// group may be created afterward.
	Link(maxTraceDepth int, debugLevel DebugLevel) error

	// GenerateShaderBindingTableLayout reports the per-record
	// layout a hit-group SBT must follow for this pipeline.
	GenerateShaderBindingTableLayout() (SBTLayout, error)

	// SetShaderBindingTable installs the pipeline's ray-generation
	// SBT (and any miss records bound at pipeline-creation time are
	// assumed already resident in it).
	SetShaderBindingTable(sbt ShaderBindingTable)

	// SetHitGroupShaderBindingTable installs the per-scene hit-group
	// SBT, resized by the caller to match the scene's reported
	// layout (§4.G shader binding table policy).
	SetHitGroupShaderBindingTable(sbt ShaderBindingTable)

	// SetRayGenProgram swaps the pipeline's active ray-generation
	// program before a launch. LVC-BPT calls this twice per frame,
	// once for its light-path launch and once for its eye-path
	// launch; the renderer does not call it for any other algorithm.
	SetRayGenProgram(p Program) error

	// Launch enqueues a w×h×d grid launch of this pipeline's
	// ray-generation program on stream, with paramsPtr naming the
	// device address of the launch-parameters record.
	Launch(stream Stream, paramsPtr DevicePtr, w, h, d int) error
}
