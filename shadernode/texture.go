package shadernode

import (
	"math"

	"github.com/sleepyeye/VLR/sampling"
	"github.com/sleepyeye/VLR/vlrerr"
)

// Image is the minimal shape this package needs from a decoded
// texture: per-texel linear RGBA samples and, for environment maps, a
// luminance view suitable for importance-map construction. Decoding
// an on-disk image into this shape is explicitly out of scope (the
// Non-goals exclude image-file formats); callers hand shadernode an
// already-decoded Image.
type Image interface {
	Width() int
	Height() int
	// Texel returns the four linear channels at (x,y).
	Texel(x, y int) (r, g, b, a float32)
}

// luminance returns the Rec.709 luminance of an Image's texel, used
// to build an EnvironmentTexture's importance map.
func luminance(img Image, x, y int) float32 {
	r, g, b, _ := img.Texel(x, y)
	return 0.2126729*r + 0.7151522*g + 0.0721750*b
}

// WrapMode is a per-axis texture addressing mode.
type WrapMode int32

const (
	WrapRepeat WrapMode = iota
	WrapClamp
	WrapMirror
)

// FilterMode selects the texture's magnification/minification filter.
type FilterMode int32

const (
	FilterLinear FilterMode = iota
	FilterNearest
)

// ---- ScaleAndOffsetUVTextureMap2D ----

// ScaleAndOffsetUVTextureMap2D outputs TextureCoordinates scaled and
// offset from the geometric UVs.
type ScaleAndOffsetUVTextureMap2D struct {
	base
	scaleU, scaleV   float32
	offsetU, offsetV float32
}

func NewScaleAndOffsetUVTextureMap2D(g *Graph) (*ScaleAndOffsetUVTextureMap2D, error) {
	b, err := newBase(g, Small)
	if err != nil {
		return nil, err
	}
	n := &ScaleAndOffsetUVTextureMap2D{base: b, scaleU: 1, scaleV: 1}
	g.register(n)
	return n, nil
}

func (*ScaleAndOffsetUVTextureMap2D) Kind() string { return "ScaleAndOffsetUVTextureMap2D" }

func (n *ScaleAndOffsetUVTextureMap2D) SetScale(u, v float32)  { n.scaleU, n.scaleV = u, v; n.markDirty() }
func (n *ScaleAndOffsetUVTextureMap2D) SetOffset(u, v float32) { n.offsetU, n.offsetV = u, v; n.markDirty() }

func (n *ScaleAndOffsetUVTextureMap2D) Serialize(buf []byte, _ bool) {
	f := asFloat32Slice(buf)
	f[0], f[1], f[2], f[3] = n.scaleU, n.scaleV, n.offsetU, n.offsetV
	putFloat32Slice(buf, f)
}

// ---- Image2DTexture ----

// bumpCoeffBits is B in the quantization scheme round(((2^B)-1) *
// coeff * 0.5) clamped to [0, 2^B-1]; spec.md gives B=5 as the
// example default.
const bumpCoeffBits = 5

// quantizeBumpCoeff implements the Image2DTexture bump-coefficient
// quantization from §4.D.
func quantizeBumpCoeff(coeff float32) int32 {
	const levels = (1 << bumpCoeffBits) - 1
	q := int32(math.Round(float64(levels) * float64(coeff) * 0.5))
	if q < 0 {
		q = 0
	}
	if q > levels {
		q = levels
	}
	return q
}

// BumpMapStyle selects how Image2DTexture's bump output is
// interpreted by the material layer.
type BumpMapStyle int32

const (
	BumpNone BumpMapStyle = iota
	BumpNormalMap
	BumpHeightMap
)

// Image2DTexture references an image and exposes float1..4,
// Normal3D, Spectrum, and Alpha outputs sampled from it.
type Image2DTexture struct {
	base
	image        Image
	spectrumType SpectrumType
	colorSpace   ColorSpace
	bumpStyle    BumpMapStyle
	bumpCoeff    float32
	filter       FilterMode
	wrapU, wrapV WrapMode
	sRGBDegamma  bool
}

func NewImage2DTexture(g *Graph, img Image) (*Image2DTexture, error) {
	if img == nil {
		return nil, vlrerr.New(vlrerr.InvalidArgument, "shadernode: Image2DTexture requires a non-nil image")
	}
	b, err := newBase(g, Medium)
	if err != nil {
		return nil, err
	}
	n := &Image2DTexture{base: b, image: img, filter: FilterLinear}
	g.register(n)
	return n, nil
}

func (*Image2DTexture) Kind() string { return "Image2DTexture" }

func (n *Image2DTexture) SetBumpCoeff(c float32) { n.bumpCoeff = c; n.markDirty() }
func (n *Image2DTexture) SetBumpStyle(s BumpMapStyle) error {
	if s < BumpNone || s > BumpHeightMap {
		return errUnknownParam("Image2DTexture", "bump_type")
	}
	n.bumpStyle = s
	n.markDirty()
	return nil
}
func (n *Image2DTexture) SetWrap(u, v WrapMode) { n.wrapU, n.wrapV = u, v; n.markDirty() }
func (n *Image2DTexture) SetFilter(f FilterMode) { n.filter = f; n.markDirty() }

// SetSRGBDegamma requests hardware sRGB degamma from the image
// wrapper. When set, the descriptor's reported color space is the
// post-degamma (linear) space, per §4.D's special behavior.
func (n *Image2DTexture) SetSRGBDegamma(v bool) { n.sRGBDegamma = v; n.markDirty() }

func (n *Image2DTexture) Serialize(buf []byte, _ bool) {
	f := asFloat32Slice(buf)
	f[0] = float32(quantizeBumpCoeff(n.bumpCoeff))
	f[1] = float32(n.bumpStyle)
	f[2] = float32(n.filter)
	f[3] = float32(n.wrapU)
	f[4] = float32(n.wrapV)
	if n.sRGBDegamma {
		f[5] = float32(ColorSpaceXYZ) // post-degamma: linear, reported distinctly from the un-degammaed space
	} else {
		f[5] = float32(n.colorSpace)
	}
	f[6] = float32(n.spectrumType)
	putFloat32Slice(buf, f)
}

// ---- EnvironmentTexture ----

// EnvironmentTexture is a latitude-longitude environment map outputting
// Spectrum, optionally with a precomputed importance map for
// environment-light sampling.
type EnvironmentTexture struct {
	base
	image      Image
	rotation   float32
	importance *sampling.Continuous2D
}

func NewEnvironmentTexture(g *Graph, img Image) (*EnvironmentTexture, error) {
	if img == nil {
		return nil, vlrerr.New(vlrerr.InvalidArgument, "shadernode: EnvironmentTexture requires a non-nil image")
	}
	b, err := newBase(g, Medium)
	if err != nil {
		return nil, err
	}
	n := &EnvironmentTexture{base: b, image: img}
	g.register(n)
	return n, nil
}

func (*EnvironmentTexture) Kind() string { return "EnvironmentTexture" }

func (n *EnvironmentTexture) SetRotation(radians float32) { n.rotation = radians; n.markDirty() }

// BuildImportanceMap (re)builds the node's importance map from the
// image, downsampled to max(1,W/4)×max(1,H/4), matching
// EnvironmentTextureShaderNode::createImportanceMap.
func (n *EnvironmentTexture) BuildImportanceMap() error {
	mapW := max(1, n.image.Width()/4)
	mapH := max(1, n.image.Height()/4)
	lum := make([][]float32, mapH)
	sx := float32(n.image.Width()) / float32(mapW)
	sy := float32(n.image.Height()) / float32(mapH)
	for y := 0; y < mapH; y++ {
		row := make([]float32, mapW)
		sampleY := int(float32(y) * sy)
		for x := 0; x < mapW; x++ {
			sampleX := int(float32(x) * sx)
			row[x] = luminance(n.image, sampleX, sampleY)
		}
		lum[y] = row
	}
	im, err := sampling.NewEnvironmentImportanceMap(lum)
	if err != nil {
		return err
	}
	n.importance = im
	n.markDirty()
	return nil
}

// ImportanceMap returns the node's current importance map, or nil if
// BuildImportanceMap has not been called.
func (n *EnvironmentTexture) ImportanceMap() *sampling.Continuous2D { return n.importance }

func (n *EnvironmentTexture) Serialize(buf []byte, _ bool) {
	f := asFloat32Slice(buf)
	f[0] = n.rotation
	f[1] = float32(n.image.Width())
	f[2] = float32(n.image.Height())
	putFloat32Slice(buf, f)
}
