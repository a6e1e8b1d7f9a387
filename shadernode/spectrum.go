package shadernode

import "github.com/sleepyeye/VLR/vlrerr"

// SpectrumType distinguishes how a spectrum's values are interpreted
// by the RGB-to-spectrum and spectrum-to-RGB conversion paths.
type SpectrumType int32

const (
	SpectrumReflectance SpectrumType = iota
	SpectrumLightSource
	SpectrumNA
)

// ColorSpace names the RGB working space a TripletSpectrum/
// Float3ToSpectrum node's triplet is expressed in.
type ColorSpace int32

const (
	ColorSpaceRec709D65 ColorSpace = iota
	ColorSpaceXYZ
	ColorSpaceYxy
)

// toXYZ converts (r,g,b) in cs to CIE XYZ. Only Rec709D65 and XYZ
// itself are implemented; Yxy is out of this core's scope (it is
// consumed, never produced, by this renderer — see DESIGN.md).
func toXYZ(cs ColorSpace, r, g, b float32) (x, y, z float32) {
	switch cs {
	case ColorSpaceXYZ:
		return r, g, b
	default: // ColorSpaceRec709D65
		x = 0.4124564*r + 0.3575761*g + 0.1804375*b
		y = 0.2126729*r + 0.7151522*g + 0.0721750*b
		z = 0.0193339*r + 0.1191920*g + 0.9503041*b
		return
	}
}

// transformToRenderingRGB maps CIE XYZ to this renderer's rendering
// RGB (taken to be linear Rec.709). It takes no spectrum type and
// clamps nothing; it only performs the color-space transform.
func transformToRenderingRGB(x, y, z float32) (r, g, b float32) {
	r = 3.2404542*x - 1.5371385*y - 0.4985314*z
	g = -0.9692660*x + 1.8760108*y + 0.0415560*z
	b = 0.0556434*x - 0.2040259*y + 1.0572252*z
	return
}

// ---- TripletSpectrum ----

// TripletSpectrum outputs a Spectrum evaluated from three scalar
// components interpreted through a color space and spectrum type.
type TripletSpectrum struct {
	base
	spectrumType SpectrumType
	colorSpace   ColorSpace
	r, g, b      float32
}

func NewTripletSpectrum(g *Graph) (*TripletSpectrum, error) {
	b, err := newBase(g, Small)
	if err != nil {
		return nil, err
	}
	n := &TripletSpectrum{base: b}
	g.register(n)
	return n, nil
}

func (*TripletSpectrum) Kind() string { return "TripletSpectrum" }

func (n *TripletSpectrum) SetSpectrumType(v SpectrumType) error {
	if v < SpectrumReflectance || v > SpectrumNA {
		return errUnknownParam("TripletSpectrum", "spectrum_type")
	}
	n.spectrumType = v
	n.markDirty()
	return nil
}

func (n *TripletSpectrum) SetColorSpace(v ColorSpace) error {
	if v < ColorSpaceRec709D65 || v > ColorSpaceYxy {
		return errUnknownParam("TripletSpectrum", "color_space")
	}
	n.colorSpace = v
	n.markDirty()
	return nil
}

func (n *TripletSpectrum) SetTriplet(r, g, b float32) {
	n.r, n.g, n.b = r, g, b
	n.markDirty()
}

func (n *TripletSpectrum) Serialize(buf []byte, rgbMode bool) {
	f := asFloat32Slice(buf)
	f[0] = float32(n.spectrumType)
	if rgbMode {
		// Pre-evaluate to rendering RGB at serialization time:
		// toXYZ then transformToRenderingRGB, per §4.D's RGB-mode
		// special behavior.
		x, y, z := toXYZ(n.colorSpace, n.r, n.g, n.b)
		r, g, b := transformToRenderingRGB(x, y, z)
		f[1], f[2], f[3] = r, g, b
	} else {
		f[1] = float32(n.colorSpace)
		f[2], f[3], f[4] = n.r, n.g, n.b
	}
	putFloat32Slice(buf, f)
}

// ---- RegularSampledSpectrum ----

// RegularSampledSpectrum is a spectral power distribution sampled at
// N points uniformly spaced over [minLambda, maxLambda].
type RegularSampledSpectrum struct {
	base
	spectrumType        SpectrumType
	minLambda, maxLambda float32
	values               []float32
}

// maxRegularSamples bounds N so the four header values plus N
// samples fit the medium-pool record (32 dwords); a longer table is
// rejected with InvalidArgument.
const maxRegularSamples = 24

func NewRegularSampledSpectrum(g *Graph, minLambda, maxLambda float32, values []float32) (*RegularSampledSpectrum, error) {
	if len(values) == 0 || len(values) > maxRegularSamples {
		return nil, vlrerr.Newf(vlrerr.InvalidArgument, "shadernode: RegularSampledSpectrum needs 1..%d samples, got %d", maxRegularSamples, len(values))
	}
	b, err := newBase(g, Medium)
	if err != nil {
		return nil, err
	}
	n := &RegularSampledSpectrum{base: b, minLambda: minLambda, maxLambda: maxLambda, values: append([]float32(nil), values...)}
	g.register(n)
	return n, nil
}

func (*RegularSampledSpectrum) Kind() string { return "RegularSampledSpectrum" }

func (n *RegularSampledSpectrum) Serialize(buf []byte, _ bool) {
	f := asFloat32Slice(buf)
	f[0] = float32(n.spectrumType)
	f[1] = n.minLambda
	f[2] = n.maxLambda
	f[3] = float32(len(n.values))
	copy(f[4:], n.values)
	putFloat32Slice(buf, f)
}

// ---- IrregularSampledSpectrum ----

// IrregularSampledSpectrum is a spectral power distribution given as
// N (lambda,value) pairs at arbitrary wavelengths.
type IrregularSampledSpectrum struct {
	base
	spectrumType SpectrumType
	lambdas      []float32
	values       []float32
}

const maxIrregularSamples = 15

func NewIrregularSampledSpectrum(g *Graph, lambdas, values []float32) (*IrregularSampledSpectrum, error) {
	if len(lambdas) != len(values) {
		return nil, errBadLength("IrregularSampledSpectrum", "value", len(values), len(lambdas))
	}
	if len(lambdas) == 0 || len(lambdas) > maxIrregularSamples {
		return nil, vlrerr.Newf(vlrerr.InvalidArgument, "shadernode: IrregularSampledSpectrum needs 1..%d samples, got %d", maxIrregularSamples, len(lambdas))
	}
	b, err := newBase(g, Medium)
	if err != nil {
		return nil, err
	}
	n := &IrregularSampledSpectrum{
		base:    b,
		lambdas: append([]float32(nil), lambdas...),
		values:  append([]float32(nil), values...),
	}
	g.register(n)
	return n, nil
}

func (*IrregularSampledSpectrum) Kind() string { return "IrregularSampledSpectrum" }

func (n *IrregularSampledSpectrum) Serialize(buf []byte, _ bool) {
	f := asFloat32Slice(buf)
	f[0] = float32(n.spectrumType)
	f[1] = float32(len(n.lambdas))
	half := (len(f) - 2) / 2
	copy(f[2:2+half], n.lambdas)
	copy(f[2+half:], n.values)
	putFloat32Slice(buf, f)
}

// ---- Float3ToSpectrum ----

// Float3ToSpectrum converts a float3 plug or immediate triplet
// through a declared color space and spectrum type into a Spectrum
// output.
type Float3ToSpectrum struct {
	base
	input        Plug
	imm          [3]float32
	colorSpace   ColorSpace
	spectrumType SpectrumType
}

func NewFloat3ToSpectrum(g *Graph) (*Float3ToSpectrum, error) {
	b, err := newBase(g, Small)
	if err != nil {
		return nil, err
	}
	n := &Float3ToSpectrum{base: b}
	g.register(n)
	return n, nil
}

func (*Float3ToSpectrum) Kind() string { return "Float3ToSpectrum" }

func (n *Float3ToSpectrum) SetInputImmediate(r, g2, b float32) {
	n.input = Plug{}
	n.imm = [3]float32{r, g2, b}
	n.markDirty()
}

func (n *Float3ToSpectrum) SetInputPlug(p Plug) error {
	if !convertible(p.Type, PlugFloat3) {
		return errBadPlug("Float3ToSpectrum", "value", p.Type, PlugFloat3)
	}
	n.input = p
	n.markDirty()
	return nil
}

func (n *Float3ToSpectrum) Serialize(buf []byte, rgbMode bool) {
	f := asFloat32Slice(buf)
	f[0] = float32(n.spectrumType)
	if n.input.Valid() {
		serializePlug(f[1:5], n.input)
	} else if rgbMode {
		x, y, z := toXYZ(n.colorSpace, n.imm[0], n.imm[1], n.imm[2])
		r, g2, b := transformToRenderingRGB(x, y, z)
		f[1] = float32(PlugInvalid)
		f[2], f[3], f[4] = r, g2, b
	} else {
		f[1] = float32(PlugInvalid)
		f[2] = float32(n.colorSpace)
		f[3], f[4], f[5] = n.imm[0], n.imm[1], n.imm[2]
	}
	putFloat32Slice(buf, f)
}
