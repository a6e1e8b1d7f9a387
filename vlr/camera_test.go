package vlr

import (
	"testing"

	"github.com/sleepyeye/VLR/linear"
)

func TestPerspectiveCameraDefaults(t *testing.T) {
	c := NewPerspectiveCamera()
	if c.LensRadius() != 0 {
		t.Fatalf("LensRadius() = %v, want 0 (pinhole by default)", c.LensRadius())
	}
	c.SetPosition(linear.V3{1, 2, 3})
	if got := c.Position(); got != (linear.V3{1, 2, 3}) {
		t.Fatalf("Position() = %v, want {1 2 3}", got)
	}
}

func TestEquirectangularCameraDefaultsToFullSphere(t *testing.T) {
	c := NewEquirectangularCamera()
	if c.PhiAngle() <= 6 || c.ThetaAngle() <= 3 {
		t.Fatalf("expected a near-full-sphere default, got phi=%v theta=%v", c.PhiAngle(), c.ThetaAngle())
	}
}
