// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package rtx

// PixelFormat identifies the element format of an Array2D.
type PixelFormat int

const (
	PixelFloat32x4 PixelFormat = iota
	PixelFloat32x3
	PixelFloat32x2
	PixelFloat32
	PixelUint32
	PixelUnorm8x4
)

// Buffer is an element-typed linear device allocation: the shape
// every descriptor pool, the geometry-instance/instance arrays, the
// light-vertex cache, and the accumulation/RNG buffers all share.
type Buffer interface {
	Destroyer

	// DevicePtr returns the buffer's device address, suitable for
	// storing into the launch-parameters record or an SBT record.
	DevicePtr() DevicePtr

	// Size returns the buffer's size in bytes.
	Size() int64

	// Upload copies data into the buffer at byte offset off,
	// enqueued on stream. The caller is responsible for
	// synchronizing stream if it needs the copy to be visible to a
	// subsequent host read.
	Upload(stream Stream, data []byte, off int64) error

	// Download copies size bytes starting at byte offset off back
	// to the host, enqueued on stream. Download blocks until the
	// copy completes; it implicitly synchronizes stream.
	Download(stream Stream, off, size int64) ([]byte, error)
}

// Array2D is a 2-D device array, the shape backing the accumulation
// buffer, the linear albedo/normal guide buffers, and the output
// surface. A surface-bound Array2D additionally supports kernel
// writes through a surface object rather than only texture reads.
type Array2D interface {
	Destroyer

	Width() int
	Height() int
	Format() PixelFormat

	// DevicePtr returns the array's base device address.
	DevicePtr() DevicePtr

	// Surface reports whether the array was created with surface
	// binding enabled.
	Surface() bool
}

// CUDAGLResource wraps an Array2D that is also a GL-owned resource
// (the bound output surface), mediating the CUDA-GL interop access
// window. Per the concurrency model, the output surface is mutated
// only between BeginCUDAAccess and EndCUDAAccess; host-side
// synchronization at this boundary may block until the driver
// acknowledges the access window.
type CUDAGLResource interface {
	Destroyer

	// BeginCUDAAccess blocks until the GL side releases the
	// resource, then returns the Array2D the CUDA side may write to
	// on stream.
	BeginCUDAAccess(stream Stream) (Array2D, error)

	// EndCUDAAccess releases the resource back to the GL side.
	EndCUDAAccess(stream Stream) error
}
