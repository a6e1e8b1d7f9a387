package shadernode

import (
	"math"
	"testing"

	"github.com/sleepyeye/VLR/registry"
	"github.com/sleepyeye/VLR/rtx"
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
func (fakeDevice) NewStream() (rtx.Stream, error)                                  { return fakeStream{}, nil }
func (fakeDevice) Limits() rtx.Limits                                              { return rtx.Limits{} }

type fakeStream struct{}

func (fakeStream) Synchronize() error { return nil }

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

func newTestGraph(t *testing.T) *Graph {
	t.Helper()
	set, err := registry.New(fakeDevice{})
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	return NewGraph(set, false)
}

func TestDirtyFlushSerializesOnce(t *testing.T) {
	g := newTestGraph(t)
	n, err := NewTripletSpectrum(g)
	if err != nil {
		t.Fatalf("NewTripletSpectrum: %v", err)
	}
	n.SetTriplet(1, 0, 0)
	n.SetTriplet(0, 1, 0)
	if err := g.Flush(fakeStream{}); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	pool := g.set.SmallNodeDesc
	raw, err := pool.Buffer().Download(fakeStream{}, int64(n.SlotIndex())*smallRecordDwords*dwordSize, smallRecordDwords*dwordSize)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	f := asFloat32Slice(raw)
	if f[1] != float32(ColorSpaceRec709D65) || f[2] != 0 || f[3] != 1 || f[4] != 0 {
		t.Fatalf("flushed record has stale triplet: %v", f[1:5])
	}
	if g.dirty.Len() != 0 && g.dirty.IsSet(n.ID()) {
		t.Fatal("node still marked dirty after Flush")
	}
}

func TestBumpCoeffQuantization(t *testing.T) {
	cases := []struct {
		coeff float32
		want  int32
	}{
		{0, 0},
		{1, 16}, // round(31*1*0.5) = round(15.5) = 16
		{-1, 0},
		{2, 31},
	}
	for _, c := range cases {
		got := quantizeBumpCoeff(c.coeff)
		if got < 0 || got > 31 {
			t.Fatalf("quantizeBumpCoeff(%v) = %d, out of [0,31]", c.coeff, got)
		}
		if got != c.want {
			t.Fatalf("quantizeBumpCoeff(%v) = %d, want %d", c.coeff, got, c.want)
		}
	}
	if got := quantizeBumpCoeff(0); got != 0 {
		t.Fatalf("quantizeBumpCoeff(0) = %d, want 0", got)
	}
	if got := quantizeBumpCoeff(2); got != 31 {
		t.Fatalf("quantizeBumpCoeff(2) = %d, want 31 (clamped)", got)
	}
}

func TestPlugConversionTable(t *testing.T) {
	if !convertible(PlugFloat3, PlugFloat3) {
		t.Fatal("PlugFloat3 must convert to itself")
	}
	if !convertible(PlugFloat3, PlugPoint3D) {
		t.Fatal("PlugFloat3 must be convertible to Point3D")
	}
	if convertible(PlugSpectrum, PlugFloat) {
		t.Fatal("PlugSpectrum must not be convertible to Float")
	}
}

type fakeImage struct{ w, h int }

func (i fakeImage) Width() int  { return i.w }
func (i fakeImage) Height() int { return i.h }
func (i fakeImage) Texel(x, y int) (r, g, b, a float32) { return 1, 1, 1, 1 }

func TestEnvironmentTextureImportanceMap(t *testing.T) {
	g := newTestGraph(t)
	n, err := NewEnvironmentTexture(g, fakeImage{w: 16, h: 8})
	if err != nil {
		t.Fatalf("NewEnvironmentTexture: %v", err)
	}
	if err := n.BuildImportanceMap(); err != nil {
		t.Fatalf("BuildImportanceMap: %v", err)
	}
	im := n.ImportanceMap()
	if im == nil {
		t.Fatal("ImportanceMap is nil after BuildImportanceMap")
	}
	edge := im.PDF(0.5, 0.5/float32(im.Height()))
	mid := im.PDF(0.5, (float32(im.Height())/2+0.5)/float32(im.Height()))
	if math.IsNaN(float64(edge)) || math.IsNaN(float64(mid)) {
		t.Fatal("importance map PDF is NaN")
	}
}
