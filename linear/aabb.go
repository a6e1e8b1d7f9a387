// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package linear

import "math"

// AABB is an axis-aligned bounding box.
// The zero value is not a valid empty box; call Reset
// before the first Extend/Union.
type AABB struct {
	Min V3
	Max V3
}

// Reset sets b to the empty box, i.e., a box whose Min
// is +math.MaxFloat32 and whose Max is -math.MaxFloat32
// in every component, so that the first Extend/Union
// establishes real bounds.
func (b *AABB) Reset() {
	b.Min = V3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	b.Max = V3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
}

// Empty reports whether b has never been extended since
// the last Reset.
func (b *AABB) Empty() bool {
	for i := range b.Min {
		if b.Min[i] > b.Max[i] {
			return true
		}
	}
	return false
}

// Extend grows b so that it contains p.
func (b *AABB) Extend(p *V3) {
	for i := range b.Min {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
}

// Union sets b to the smallest box containing both l and r.
func (b *AABB) Union(l, r *AABB) {
	if l.Empty() {
		*b = *r
		return
	}
	if r.Empty() {
		*b = *l
		return
	}
	for i := range b.Min {
		b.Min[i] = min(l.Min[i], r.Min[i])
		b.Max[i] = max(l.Max[i], r.Max[i])
	}
}

// Transform sets b to the AABB of n's eight corners
// transformed by m.
// n must not be empty.
func (b *AABB) Transform(m *M4, n *AABB) {
	var out AABB
	out.Reset()
	for i := 0; i < 8; i++ {
		c := V3{n.Min[0], n.Min[1], n.Min[2]}
		if i&1 != 0 {
			c[0] = n.Max[0]
		}
		if i&2 != 0 {
			c[1] = n.Max[1]
		}
		if i&4 != 0 {
			c[2] = n.Max[2]
		}
		var p V3
		p.TransformPoint(m, &c)
		out.Extend(&p)
	}
	*b = out
}
