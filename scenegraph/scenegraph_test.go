package scenegraph

import (
	"errors"
	"testing"

	"github.com/sleepyeye/VLR/linear"
	"github.com/sleepyeye/VLR/vlrerr"
)

func TestAddSurfaceNodeCreatesSHTransform(t *testing.T) {
	g := New()
	tri := g.NewSurfaceNode(TriangleMesh)
	deltas, err := g.AddChild(g.Root(), tri)
	if err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	if len(deltas) != 1 || deltas[0].Kind != DeltaTransformAdded {
		t.Fatalf("AddChild deltas = %v, want one DeltaTransformAdded", deltas)
	}
	if g.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", g.Count())
	}
}

func TestTwoParentInstancing(t *testing.T) {
	g := New()
	mesh := g.NewSurfaceNode(TriangleMesh)
	a := g.NewInternalNode()
	b := g.NewInternalNode()
	if _, err := g.AddChild(g.Root(), a); err != nil {
		t.Fatalf("AddChild a: %v", err)
	}
	if _, err := g.AddChild(g.Root(), b); err != nil {
		t.Fatalf("AddChild b: %v", err)
	}
	if _, err := g.AddChild(a, mesh); err != nil {
		t.Fatalf("AddChild mesh under a: %v", err)
	}
	if _, err := g.AddChild(b, mesh); err != nil {
		t.Fatalf("AddChild mesh under b: %v", err)
	}
	if g.Count() != 2 {
		t.Fatalf("Count() = %d, want 2 (one SHTransform per path)", g.Count())
	}
}

func TestRemoveUnattachedChildIsNotFound(t *testing.T) {
	g := New()
	a := g.NewInternalNode()
	b := g.NewInternalNode()
	if _, err := g.RemoveChild(a, b); !errors.Is(err, vlrerr.NotFound) {
		t.Fatalf("RemoveChild on an unattached child: have %v, want NotFound", err)
	}
}

func TestSetTransformRecomposes(t *testing.T) {
	g := New()
	tri := g.NewSurfaceNode(TriangleMesh)
	if _, err := g.AddChild(g.Root(), tri); err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	var m2 linear.M4
	m2.I()
	m2[3] = linear.V4{1, 2, 3, 1}
	deltas, err := g.SetTransform(g.Root(), m2)
	if err != nil {
		t.Fatalf("SetTransform: %v", err)
	}
	if len(deltas) != 1 || deltas[0].Kind != DeltaTransformUpdated {
		t.Fatalf("SetTransform deltas = %v, want one DeltaTransformUpdated", deltas)
	}
}
