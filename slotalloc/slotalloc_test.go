package slotalloc

import (
	"errors"
	"testing"

	"github.com/sleepyeye/VLR/rtx"
	"github.com/sleepyeye/VLR/vlrerr"
)

// fakeDevice/fakeBuffer/fakeStream provide just enough of the rtx
// interfaces for Pool to exercise against, without a real backend.

type fakeDevice struct{}

func (fakeDevice) Runtime() rtx.Runtime                                       { return nil }
func (fakeDevice) NewModuleFromPTX(string) (rtx.Module, error)                { return nil, nil }
func (fakeDevice) NewPipeline(rtx.PipelineOptions) (rtx.Pipeline, error)      { return nil, nil }
func (fakeDevice) NewBuffer(size int64) (rtx.Buffer, error) {
	return &fakeBuffer{data: make([]byte, size)}, nil
}
func (fakeDevice) NewArray2D(int, int, rtx.PixelFormat, bool) (rtx.Array2D, error) { return nil, nil }
func (fakeDevice) NewCUDAGLBuffer(rtx.Array2D) (rtx.CUDAGLResource, error)         { return nil, nil }
func (fakeDevice) NewDenoiser(rtx.DenoiserKind) (rtx.Denoiser, error)              { return nil, nil }
func (fakeDevice) NewKernel(rtx.Module, string) (rtx.Kernel, error)                { return nil, nil }
func (fakeDevice) NewInstanceAccelStructure() (rtx.InstanceAccelStructure, error)  { return nil, nil }
func (fakeDevice) NewStream() (rtx.Stream, error)                                 { return fakeStream{}, nil }
func (fakeDevice) Limits() rtx.Limits                                             { return rtx.Limits{} }

type fakeStream struct{}

func (fakeStream) Synchronize() error { return nil }

type fakeBuffer struct{ data []byte }

func (b *fakeBuffer) Destroy()             {}
func (b *fakeBuffer) DevicePtr() rtx.DevicePtr { return 0 }
func (b *fakeBuffer) Size() int64          { return int64(len(b.data)) }
func (b *fakeBuffer) Upload(_ rtx.Stream, data []byte, off int64) error {
	copy(b.data[off:], data)
	return nil
}
func (b *fakeBuffer) Download(_ rtx.Stream, off, size int64) ([]byte, error) {
	out := make([]byte, size)
	copy(out, b.data[off:off+size])
	return out, nil
}

func TestAllocateRoundTrip(t *testing.T) {
	p, err := New(fakeDevice{}, 4, 8)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var got []int
	for i := 0; i < 4; i++ {
		idx, err := p.Allocate()
		if err != nil {
			t.Fatalf("Allocate %d: %v", i, err)
		}
		got = append(got, idx)
	}
	want := []int{0, 1, 2, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Allocate order\nhave %v\nwant %v", got, want)
		}
	}
	if _, err := p.Allocate(); !errors.Is(err, vlrerr.CapacityExhausted) {
		t.Fatalf("Allocate past capacity: have %v, want CapacityExhausted", err)
	}
	p.Release(1)
	idx, err := p.Allocate()
	if err != nil {
		t.Fatalf("Allocate after release: %v", err)
	}
	if idx != 1 {
		t.Fatalf("Allocate after release: have %d, want 1 (smallest released index)", idx)
	}
}

func TestUpdate(t *testing.T) {
	p, err := New(fakeDevice{}, 2, 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	idx, err := p.Allocate()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	rec := []byte{1, 2, 3, 4}
	if err := p.Update(fakeStream{}, idx, rec); err != nil {
		t.Fatalf("Update: %v", err)
	}
	buf := p.Buffer().(*fakeBuffer)
	for i, b := range rec {
		if buf.data[int64(idx)*4+int64(i)] != b {
			t.Fatalf("Update: slot contents not written at offset %d", i)
		}
	}
	if err := p.Update(fakeStream{}, idx, []byte{0, 0, 0}); !errors.Is(err, vlrerr.InvalidArgument) {
		t.Fatalf("Update with wrong size: have %v, want InvalidArgument", err)
	}
}
