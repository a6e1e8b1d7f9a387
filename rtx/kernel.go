// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package rtx

// Kernel is a single fixed-function compute entry point loaded from a
// Module — the AABB-reduction, scene-bound-reduction, and
// post-process programs of setup_scene.ptx/post_process.ptx, none of
// which need the ray-tracing pipeline machinery Program/ProgramGroup
// exist for.
type Kernel interface {
	Destroyer

	// Launch enqueues a w×h×d grid launch of the kernel on stream,
	// with paramsPtr naming the device address of its parameter
	// record.
	Launch(stream Stream, paramsPtr DevicePtr, w, h, d int) error
}

// InstanceAccelStructure is the top-level acceleration structure over
// Scene's Instance records, built once per frame from the Instance
// array after compute_scene_aabb/finalize_scene_bounds has resolved
// every bottom-level geometry AS. Builds and refits are both driven
// through Build; the first call on a given InstanceAccelStructure
// always performs a full build.
type InstanceAccelStructure interface {
	Destroyer

	// Sizes reports the memory requirement for building or
	// refitting an IAS of count instances, so the caller can grow
	// its scratch and result buffers before calling Build.
	Sizes(count int) (scratch, result int64, err error)

	// Build constructs or refits the IAS from the instanceBuf
	// record array over count instances, using scratch and writing
	// the built structure into result. refit requires the IAS to
	// have been built at least once already with the same topology.
	Build(stream Stream, instanceBuf Buffer, count int, scratch, result Buffer, refit bool) (DevicePtr, error)
}
