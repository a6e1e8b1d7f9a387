package shadernode

import "math"

// serializePlug packs a Plug into the triple (procedure-set index,
// plug type, descriptor index, option) that §4.D specifies for
// ShaderNodePlug fields, writing it into four consecutive float32
// slots via their int32 bit pattern where needed.
func serializePlug(buf []float32, p Plug) {
	if !p.Valid() {
		buf[0] = math.Float32frombits(0xFFFFFFFF) // procedure-set index: none
		buf[1] = float32(PlugInvalid)
		buf[2] = 0
		buf[3] = 0
		return
	}
	buf[0] = float32(p.Node.SlotIndex())
	buf[1] = float32(p.Type)
	buf[2] = float32(p.Node.ID())
	buf[3] = math.Float32frombits(p.Option)
}

func asFloat32Slice(buf []byte) []float32 {
	out := make([]float32, len(buf)/4)
	for i := range out {
		// Descriptors are little-endian float32, matching the
		// device ABI; see copyM4 in the teacher's layout.go.
		bits := uint32(buf[i*4]) | uint32(buf[i*4+1])<<8 | uint32(buf[i*4+2])<<16 | uint32(buf[i*4+3])<<24
		out[i] = math.Float32frombits(bits)
	}
	return out
}

func putFloat32Slice(buf []byte, f []float32) {
	for i, v := range f {
		bits := math.Float32bits(v)
		buf[i*4] = byte(bits)
		buf[i*4+1] = byte(bits >> 8)
		buf[i*4+2] = byte(bits >> 16)
		buf[i*4+3] = byte(bits >> 24)
	}
}

// ---- Geometry ----

// Geometry is the auto-inserted singleton exposing the current
// shading point's Point3D/Normal3D/Vector3D/TextureCoordinates
// outputs; it owns no parameters.
type Geometry struct{ base }

// NewGeometry allocates the context's singleton Geometry node. A
// Graph never needs more than one; callers are expected to create and
// cache it once per context.
func NewGeometry(g *Graph) (*Geometry, error) {
	b, err := newBase(g, Small)
	if err != nil {
		return nil, err
	}
	n := &Geometry{base: b}
	g.register(n)
	return n, nil
}

func (*Geometry) Kind() string { return "Geometry" }
func (*Geometry) Serialize(buf []byte, _ bool) {
	// Stateless: descriptor carries only the node's kind tag for
	// the callable dispatch table, which the registry's
	// procedure-set pools — not this record — encode.
}

// ---- Tangent ----

// TangentType selects the construction method for a Tangent node's
// Vector3D output.
type TangentType int32

const (
	TangentFromTC0Direction TangentType = iota
	TangentFromTexCoord
	TangentFromGeometricNormal
)

// Tangent outputs a Vector3D derived from the shading point's
// geometry according to a tangent_type enum parameter.
type Tangent struct {
	base
	tangentType TangentType
}

func NewTangent(g *Graph) (*Tangent, error) {
	b, err := newBase(g, Small)
	if err != nil {
		return nil, err
	}
	n := &Tangent{base: b}
	g.register(n)
	return n, nil
}

func (*Tangent) Kind() string { return "Tangent" }

func (t *Tangent) SetTangentType(v TangentType) error {
	if v < TangentFromTC0Direction || v > TangentFromGeometricNormal {
		return errUnknownParam("Tangent", "tangent_type")
	}
	t.tangentType = v
	t.markDirty()
	return nil
}

func (t *Tangent) TangentType() TangentType { return t.tangentType }

func (t *Tangent) Serialize(buf []byte, _ bool) {
	f := asFloat32Slice(buf)
	f[0] = float32(t.tangentType)
	putFloat32Slice(buf, f)
}

// ---- FloatN ----

// floatComponent is either an immediate value or a float-valued plug,
// per component.
type floatComponent struct {
	plug     Plug
	imm      float32
}

func (c floatComponent) serialize(f []float32, off int) {
	if c.plug.Valid() {
		serializePlug(f[off:off+4], c.plug)
	} else {
		f[off] = c.imm
		f[off+1] = float32(PlugInvalid)
	}
}

// Float2/Float3/Float4 expose, respectively, 2/3/4 scalar outputs.
// Each component is stored as either an immediate value or a plug,
// but only Float2's x component has a plug setter (SetXPlug); every
// other component can only be set as an immediate value.
type Float2 struct {
	base
	x, y floatComponent
}
type Float3 struct {
	base
	x, y, z floatComponent
}
type Float4 struct {
	base
	x, y, z, w floatComponent
}

func NewFloat2(g *Graph) (*Float2, error) {
	b, err := newBase(g, Small)
	if err != nil {
		return nil, err
	}
	n := &Float2{base: b}
	g.register(n)
	return n, nil
}
func NewFloat3(g *Graph) (*Float3, error) {
	b, err := newBase(g, Small)
	if err != nil {
		return nil, err
	}
	n := &Float3{base: b}
	g.register(n)
	return n, nil
}
func NewFloat4(g *Graph) (*Float4, error) {
	b, err := newBase(g, Small)
	if err != nil {
		return nil, err
	}
	n := &Float4{base: b}
	g.register(n)
	return n, nil
}

func (*Float2) Kind() string { return "Float2" }
func (*Float3) Kind() string { return "Float3" }
func (*Float4) Kind() string { return "Float4" }

func (n *Float2) SetX(v float32) { n.x = floatComponent{imm: v}; n.markDirty() }
func (n *Float2) SetY(v float32) { n.y = floatComponent{imm: v}; n.markDirty() }
func (n *Float2) SetXPlug(p Plug) error {
	if !convertible(p.Type, PlugFloat) {
		return errBadPlug("Float2", "x", p.Type, PlugFloat)
	}
	n.x = floatComponent{plug: p}
	n.markDirty()
	return nil
}

func (n *Float2) Serialize(buf []byte, _ bool) {
	f := asFloat32Slice(buf)
	n.x.serialize(f, 0)
	n.y.serialize(f, 4)
	putFloat32Slice(buf, f)
}

func (n *Float3) SetX(v float32) { n.x = floatComponent{imm: v}; n.markDirty() }
func (n *Float3) SetY(v float32) { n.y = floatComponent{imm: v}; n.markDirty() }
func (n *Float3) SetZ(v float32) { n.z = floatComponent{imm: v}; n.markDirty() }

func (n *Float3) Serialize(buf []byte, _ bool) {
	f := asFloat32Slice(buf)
	n.x.serialize(f, 0)
	n.y.serialize(f, 4)
	n.z.serialize(f, 8)
	putFloat32Slice(buf, f)
}

func (n *Float4) SetX(v float32) { n.x = floatComponent{imm: v}; n.markDirty() }
func (n *Float4) SetY(v float32) { n.y = floatComponent{imm: v}; n.markDirty() }
func (n *Float4) SetZ(v float32) { n.z = floatComponent{imm: v}; n.markDirty() }
func (n *Float4) SetW(v float32) { n.w = floatComponent{imm: v}; n.markDirty() }

func (n *Float4) Serialize(buf []byte, _ bool) {
	f := asFloat32Slice(buf)
	n.x.serialize(f, 0)
	n.y.serialize(f, 4)
	n.z.serialize(f, 8)
	n.w.serialize(f, 12)
	putFloat32Slice(buf, f)
}

// ---- ScaleAndOffsetFloat ----

// ScaleAndOffsetFloat outputs scale*input + offset, where input is a
// required float plug and scale/offset are immediate values set with
// SetScale/SetOffset; no plug can be set for scale or offset.
type ScaleAndOffsetFloat struct {
	base
	input        Plug
	scale, offset floatComponent
}

func NewScaleAndOffsetFloat(g *Graph) (*ScaleAndOffsetFloat, error) {
	b, err := newBase(g, Small)
	if err != nil {
		return nil, err
	}
	n := &ScaleAndOffsetFloat{base: b, scale: floatComponent{imm: 1}}
	g.register(n)
	return n, nil
}

func (*ScaleAndOffsetFloat) Kind() string { return "ScaleAndOffsetFloat" }

func (n *ScaleAndOffsetFloat) SetInput(p Plug) error {
	if !convertible(p.Type, PlugFloat) {
		return errBadPlug("ScaleAndOffsetFloat", "value", p.Type, PlugFloat)
	}
	n.input = p
	n.markDirty()
	return nil
}

func (n *ScaleAndOffsetFloat) SetScale(v float32)  { n.scale = floatComponent{imm: v}; n.markDirty() }
func (n *ScaleAndOffsetFloat) SetOffset(v float32) { n.offset = floatComponent{imm: v}; n.markDirty() }

func (n *ScaleAndOffsetFloat) Serialize(buf []byte, _ bool) {
	f := asFloat32Slice(buf)
	serializePlug(f[0:4], n.input)
	n.scale.serialize(f, 4)
	n.offset.serialize(f, 8)
	putFloat32Slice(buf, f)
}
