// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package linear

// TransformPoint sets v to contain m applied to p as a
// point (w=1; translation applies).
func (v *V3) TransformPoint(m *M4, p *V3) {
	var w V4
	w.Mul(m, &V4{p[0], p[1], p[2], 1})
	*v = V3{w[0], w[1], w[2]}
}

// TransformVector sets v to contain m applied to w as a
// vector (w=0; translation does not apply).
func (v *V3) TransformVector(m *M4, w *V3) {
	var u V4
	u.Mul(m, &V4{w[0], w[1], w[2], 0})
	*v = V3{u[0], u[1], u[2]}
}

// TransformNormal sets v to contain the inverse-transpose
// of m applied to n as a vector. itm must already contain
// the inverse of m (callers typically keep the inverse
// cached alongside the forward matrix, as SHTransform
// does, rather than invert on every call).
func (v *V3) TransformNormal(itm *M4, n *V3) {
	var t M4
	t.Transpose(itm)
	v.TransformVector(&t, n)
}

// FromQ sets m to the rotation matrix equivalent to q.
// q is assumed to be normalized.
func (m *M4) FromQ(q *Q) {
	x, y, z, w := q.V[0], q.V[1], q.V[2], q.R
	x2, y2, z2 := x+x, y+y, z+z
	xx, yy, zz := x*x2, y*y2, z*z2
	xy, xz, yz := x*y2, x*z2, y*z2
	wx, wy, wz := w*x2, w*y2, w*z2
	*m = M4{
		{1 - (yy + zz), xy + wz, xz - wy, 0},
		{xy - wz, 1 - (xx + zz), yz + wx, 0},
		{xz + wy, yz - wx, 1 - (xx + yy), 0},
		{0, 0, 0, 1},
	}
}

// Conjugate sets q to the conjugate of p (i.e., its
// inverse, assuming p is a unit quaternion).
func (q *Q) Conjugate(p *Q) {
	q.V.Scale(-1, &p.V)
	q.R = p.R
}

// RotateV3 sets v to w rotated by q.
func (q *Q) RotateV3(v *V3, w *V3) {
	var m M4
	m.FromQ(q)
	v.TransformVector(&m, w)
}
