// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package rtx defines the interface boundary to an external
// ray-tracing runtime: a pipeline/module/program-group/shader-binding
// -table/acceleration-structure API shaped after OptiX, plus the
// denoiser and GPU buffer/array/interop abstractions the renderer
// core launches work through. It defines no concrete backend — like
// the pack's own driver package before a platform implementation is
// registered, rtx is the contract a backend satisfies, not the
// backend itself.
package rtx

import (
	"log"
	"sync"
)

// Runtime is the interface that provides methods for loading and
// unloading an underlying ray-tracing backend implementation.
type Runtime interface {
	// Open initializes the runtime and returns the Device used to
	// create every other rtx type. Further calls with the same
	// receiver, once opened, return the same Device. Open is not
	// safe for parallel execution.
	Open() (Device, error)

	// Name returns the name of the runtime. It must not cause the
	// runtime to be opened.
	Name() string

	// Close deinitializes the runtime. Closing a runtime that is not
	// open has no effect.
	Close()
}

// Device is the main interface to an opened runtime. It creates
// every other rtx type and accepts launches on caller-provided
// streams.
type Device interface {
	// Runtime returns the Runtime that owns this Device.
	Runtime() Runtime

	// NewModuleFromPTX compiles ptx (the textual contents of a .ptx
	// file) into a Module usable by one or more Pipelines.
	NewModuleFromPTX(ptx string) (Module, error)

	// NewPipeline creates a pipeline. opt is validated
	// eagerly; an invalid combination (e.g. payloadDwords exceeding
	// the runtime's limit) fails here rather than at Link.
	NewPipeline(opt PipelineOptions) (Pipeline, error)

	// NewBuffer creates a device buffer of size bytes.
	NewBuffer(size int64) (Buffer, error)

	// NewArray2D creates a 2-D device array, optionally bindable as
	// a surface for kernel writes (surface is true for the
	// accumulation and output targets).
	NewArray2D(width, height int, format PixelFormat, surface bool) (Array2D, error)

	// NewCUDAGLBuffer wraps buf for CUDA-GL interop, so the caller
	// can bracket device writes with BeginCUDAAccess/EndCUDAAccess
	// around a GL-owned resource.
	NewCUDAGLBuffer(buf Array2D) (CUDAGLResource, error)

	// NewDenoiser creates a denoiser instance.
	NewDenoiser(kind DenoiserKind) (Denoiser, error)

	// NewKernel loads a fixed-function compute entry point from
	// module, for the AABB/scene-bound/post-process kernel surface.
	NewKernel(module Module, entry string) (Kernel, error)

	// NewInstanceAccelStructure creates an empty top-level
	// acceleration structure, built by its first Build call.
	NewInstanceAccelStructure() (InstanceAccelStructure, error)

	// NewStream creates a caller-owned stream that launches and
	// copies may be enqueued on.
	NewStream() (Stream, error)

	// Limits returns the implementation limits. They are immutable
	// for the lifetime of the Device.
	Limits() Limits
}

// Destroyer is the interface that wraps the Destroy method. Types
// that implement this interface allocate device memory not managed
// by the Go garbage collector, so Destroy must be called explicitly.
type Destroyer interface {
	Destroy()
}

// Limits describes implementation-defined bounds reported by a
// Device.
type Limits struct {
	MaxTraceDepth      int
	MaxPayloadDwords   int
	MaxAttributeDwords int
	MaxSBTRecordSize   int64
}

// DevicePtr is an opaque device-memory address, valid only for the
// Device that produced it. It is what the launch-parameters record
// stores for every descriptor pool, per-scene, and per-frame pointer
// field.
type DevicePtr uintptr

// Stream is an opaque ordering handle on which launches and copies
// are enqueued. The core never creates its own stream for render();
// streams are always caller-provided.
type Stream interface {
	// Synchronize blocks the calling host thread until every
	// operation previously enqueued on the stream has completed.
	Synchronize() error
}

// Runtimes returns the registered Runtimes.
// Client code imports specific runtime packages, and then calls this
// function from init. As such, runtimes that do not register
// themselves on init are not considered for selection.
func Runtimes() []Runtime {
	mu.Lock()
	defer mu.Unlock()
	rt := make([]Runtime, len(runtimes))
	copy(rt, runtimes)
	return rt
}

// Register registers a Runtime. Runtime implementations are expected
// to call Register exactly once, from an init function. If a runtime
// with the same name has already been registered, it is replaced.
func Register(rt Runtime) {
	mu.Lock()
	defer mu.Unlock()
	for i := range runtimes {
		if runtimes[i].Name() == rt.Name() {
			runtimes[i] = rt
			log.Printf("[!] rtx runtime '%s' replaced", rt.Name())
			return
		}
	}
	runtimes = append(runtimes, rt)
	log.Printf("rtx runtime '%s' registered", rt.Name())
}

var (
	mu       sync.Mutex
	runtimes []Runtime = make([]Runtime, 0, 1)
)
