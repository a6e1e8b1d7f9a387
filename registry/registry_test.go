package registry

import (
	"errors"
	"testing"

	"github.com/sleepyeye/VLR/rtx"
	"github.com/sleepyeye/VLR/vlrerr"
)

type fakeDevice struct{}

func (fakeDevice) Runtime() rtx.Runtime                                  { return nil }
func (fakeDevice) NewModuleFromPTX(string) (rtx.Module, error)           { return nil, nil }
func (fakeDevice) NewPipeline(rtx.PipelineOptions) (rtx.Pipeline, error) { return nil, nil }
func (fakeDevice) NewBuffer(size int64) (rtx.Buffer, error) {
	return &fakeBuffer{data: make([]byte, size)}, nil
}
func (fakeDevice) NewArray2D(int, int, rtx.PixelFormat, bool) (rtx.Array2D, error) { return nil, nil }
func (fakeDevice) NewCUDAGLBuffer(rtx.Array2D) (rtx.CUDAGLResource, error)         { return nil, nil }
func (fakeDevice) NewDenoiser(rtx.DenoiserKind) (rtx.Denoiser, error)              { return nil, nil }
func (fakeDevice) NewKernel(rtx.Module, string) (rtx.Kernel, error)                { return nil, nil }
func (fakeDevice) NewInstanceAccelStructure() (rtx.InstanceAccelStructure, error)  { return nil, nil }
func (fakeDevice) NewStream() (rtx.Stream, error)                                  { return nil, nil }
func (fakeDevice) Limits() rtx.Limits                                              { return rtx.Limits{} }

type fakeBuffer struct{ data []byte }

func (b *fakeBuffer) Destroy()                 {}
func (b *fakeBuffer) DevicePtr() rtx.DevicePtr { return 0 }
func (b *fakeBuffer) Size() int64              { return int64(len(b.data)) }
func (b *fakeBuffer) Upload(_ rtx.Stream, data []byte, off int64) error {
	copy(b.data[off:], data)
	return nil
}
func (b *fakeBuffer) Download(_ rtx.Stream, off, size int64) ([]byte, error) {
	out := make([]byte, size)
	copy(out, b.data[off:off+size])
	return out, nil
}

func TestNullProcedureSetsAtIndexZero(t *testing.T) {
	s, err := New(fakeDevice{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.BSDFProcSets.Release(0); !errors.Is(err, vlrerr.InvalidArgument) {
		t.Fatalf("releasing null BSDF procedure set: have %v, want InvalidArgument", err)
	}
	if err := s.EDFProcSets.Release(0); !errors.Is(err, vlrerr.InvalidArgument) {
		t.Fatalf("releasing null EDF procedure set: have %v, want InvalidArgument", err)
	}
	idx, err := s.BSDFProcSets.Allocate()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if idx == 0 {
		t.Fatal("first regular allocation must not reuse the null index")
	}
}
