// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package linear

import (
	"math"
	"testing"
)

func TestV(t *testing.T) {
	v := V3{1, 2, 4}
	w := V3{0, -1, 2}
	var u V3

	u.Add(&v, &w)
	if u != (V3{1, 1, 6}) {
		t.Fatalf("V3.Add\nhave %v\nwant [1 1 6]", u)
	}
	u.Sub(&v, &w)
	if u != (V3{1, 3, 2}) {
		t.Fatalf("V3.Sub\nhave %v\nwant [1 3 2]", u)
	}
	u.Scale(-1, &v)
	if u != (V3{-1, -2, -4}) {
		t.Fatalf("V3.Scale\nhave %v\nwant [-1 -2 -4]", u)
	}
	u.Scale(2, &w)
	if u != (V3{0, -2, 4}) {
		t.Fatalf("V3.Scale\nhave %v\nwant [0 -2 4]", u)
	}
	if d := v.Dot(&w); d != 6 {
		t.Fatalf("V3.Dot\nhave %v\nwant 6\n", d)
	}
	if d := v.Dot(&v); d != 21 {
		t.Fatalf("V3.Dot\nhave %v\nwant 21\n", d)
	}
	if l := v.Len(); l != float32(math.Sqrt(21)) {
		t.Fatalf("V3.Len\nhave %v\nwant %v\n", l, math.Sqrt(21))
	}
	if l := w.Len(); l != float32(math.Sqrt(5)) {
		t.Fatalf("V3.Len\nhave %v\nwant %v\n", l, math.Sqrt(5))
	}

	v = V3{0, 0, -2}
	w = V3{0, 4, 0}

	v.Norm(&v)
	if v != (V3{0, 0, -1}) {
		t.Fatalf("V3.Norm\nhave %v\nwant [0 0 -1]", v)
	}
	w.Norm(&w)
	if w != (V3{0, 1, 0}) {
		t.Fatalf("V3.Norm\nhave %v\nwant [0 1 0]", w)
	}
	u.Cross(&v, &w)
	if u != (V3{1, 0, 0}) {
		t.Fatalf("V3.Cross\nhave %v\nwant [1 0 0]", u)
	}
	u.Cross(&w, &v)
	if u != (V3{-1, 0, 0}) {
		t.Fatalf("V3.Cross\nhave %v\nwant [-1 0 0]", u)
	}
}

func TestM4Identity(t *testing.T) {
	var m M4
	m.I()
	var v, w V4
	v = V4{1, 2, 3, 1}
	w.Mul(&m, &v)
	if w != v {
		t.Fatalf("M4.I/V4.Mul\nhave %v\nwant %v", w, v)
	}
}

func TestAABB(t *testing.T) {
	var b AABB
	b.Reset()
	b.Extend(&V3{1, -2, 3})
	b.Extend(&V3{-1, 5, 0})
	if b.Min != (V3{-1, -2, 0}) {
		t.Fatalf("AABB.Extend: Min\nhave %v\nwant [-1 -2 0]", b.Min)
	}
	if b.Max != (V3{1, 5, 3}) {
		t.Fatalf("AABB.Extend: Max\nhave %v\nwant [1 5 3]", b.Max)
	}
	if b.Empty() {
		t.Fatal("AABB.Empty: expected non-empty box")
	}
	var e AABB
	e.Reset()
	if !e.Empty() {
		t.Fatal("AABB.Empty: expected empty box after Reset")
	}
	var c AABB
	c.Union(&b, &e)
	if c != b {
		t.Fatalf("AABB.Union with empty box\nhave %v\nwant %v", c, b)
	}
}

func TestTransformPointVector(t *testing.T) {
	var m M4
	m.I()
	m[3] = V4{10, 20, 30, 1}
	p := V3{1, 2, 3}
	var q, v V3
	q.TransformPoint(&m, &p)
	if q != (V3{11, 22, 33}) {
		t.Fatalf("TransformPoint\nhave %v\nwant [11 22 33]", q)
	}
	v.TransformVector(&m, &p)
	if v != p {
		t.Fatalf("TransformVector\nhave %v\nwant %v (translation must not apply)", v, p)
	}
}
