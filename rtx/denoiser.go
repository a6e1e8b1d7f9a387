// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package rtx

// DenoiserKind selects the guide buffers a Denoiser expects. HDR
// accepts albedo and normal guides; AOV variants are out of scope for
// this spec (spec.md explicitly excludes denoiser internals; this
// core only drives the interface, never reimplements the algorithm).
type DenoiserKind int

const (
	DenoiserHDR DenoiserKind = iota
)

// DenoiserSizes reports the device allocations a Denoiser needs,
// returned by Prepare and sized once per bound output resolution.
type DenoiserSizes struct {
	StateBytes           int64
	ScratchBytes         int64
	IntensityScratchBytes int64
	TaskCount            int
}

// DenoiseTask is one tile-shaped unit of denoiser work, as reported
// by GetTasks; Invoke is called once per task.
type DenoiseTask struct {
	X, Y, Width, Height int
}

// Denoiser is the external denoiser the renderer controller drives
// during the post-processing phase of a frame when denoising is
// requested. This package only defines the interface the core calls
// through; the denoising algorithm itself is out of scope.
type Denoiser interface {
	Destroyer

	// Prepare sizes the denoiser's device-side state for an
	// output of w×h pixels.
	Prepare(w, h int) (DenoiserSizes, error)

	// SetupState installs the state and scratch buffers Prepare
	// sized, enqueued on stream.
	SetupState(stream Stream, state, scratch Buffer) error

	// GetTasks partitions the bound resolution into the tiles
	// Invoke must be called once for.
	GetTasks() ([]DenoiseTask, error)

	// ComputeIntensity estimates the scene's average intensity from
	// the accumulated color buffer, writing it into
	// intensityScratch for Invoke to read.
	ComputeIntensity(stream Stream, colorIn Buffer, intensityScratch Buffer) error

	// Invoke denoises one task, reading the linear color/albedo/
	// normal guide buffers and writing the denoised result to out.
	Invoke(stream Stream, task DenoiseTask, colorIn, albedo, normal Buffer, out Buffer) error
}
