package scene

import (
	"testing"

	"github.com/sleepyeye/VLR/scenegraph"
)

func TestGeometryInstanceRefCounting(t *testing.T) {
	s := New(scenegraph.New())
	slot := s.AddGeometryInstance(1, 4, true)
	if err := s.RetainGeometryInstance(slot); err != nil {
		t.Fatalf("RetainGeometryInstance: %v", err)
	}
	if err := s.ReleaseGeometryInstance(slot); err != nil {
		t.Fatalf("ReleaseGeometryInstance: %v", err)
	}
	if _, ok := s.geomInstances[slot]; !ok {
		t.Fatal("geometry instance released too early: refCount was 2, one release should not free it")
	}
	if err := s.ReleaseGeometryInstance(slot); err != nil {
		t.Fatalf("ReleaseGeometryInstance: %v", err)
	}
	if _, ok := s.geomInstances[slot]; ok {
		t.Fatal("geometry instance should be freed after its last reference is released")
	}
}

// attachEmissiveMesh builds one InternalNode under root with a single
// emissive triangle mesh directly attached, materializing every delta
// into s as a real Setup call sequence would.
func attachEmissiveMesh(t *testing.T, g *scenegraph.Graph, s *Scene, primCount int) {
	t.Helper()
	mesh := g.NewSurfaceNode(scenegraph.TriangleMesh)
	node := g.NewInternalNode()
	if _, err := g.AddChild(g.Root(), node); err != nil {
		t.Fatalf("AddChild node under root: %v", err)
	}
	deltas, err := g.AddChild(node, mesh)
	if err != nil {
		t.Fatalf("AddChild mesh under node: %v", err)
	}
	if err := s.Materialize(deltas); err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	groupDeltas, err := g.SetSurfaceGroups(mesh, []scenegraph.MaterialGroup{
		{MaterialID: 1, PrimitiveCount: primCount, Emissive: true},
	})
	if err != nil {
		t.Fatalf("SetSurfaceGroups: %v", err)
	}
	if err := s.Materialize(groupDeltas); err != nil {
		t.Fatalf("Materialize: %v", err)
	}
}

func TestTwoInstanceLightDistribution(t *testing.T) {
	g := scenegraph.New()
	s := New(g)
	attachEmissiveMesh(t, g, s, 10)
	attachEmissiveMesh(t, g, s, 10)

	if err := s.recomputeLightDistribution(); err != nil {
		t.Fatalf("recomputeLightDistribution: %v", err)
	}
	if s.LightInstanceCount() != 2 {
		t.Fatalf("LightInstanceCount() = %d, want 2", s.LightInstanceCount())
	}
	d := s.LightDistribution()
	if d == nil {
		t.Fatal("LightDistribution() is nil")
	}
	for i := 0; i < 2; i++ {
		if got := d.PMF(i); got != 0.5 {
			t.Fatalf("PMF(%d) = %v, want 0.5", i, got)
		}
	}
}
