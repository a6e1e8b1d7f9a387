package vlr

import "github.com/sleepyeye/VLR/linear"

// Camera is the common interface of this spec's two camera concrete
// types, grounded on original_source/libVLR/scene.h's Camera/
// PerspectiveCamera/EquirectangularCamera hierarchy. It only holds
// the camera's parameters; nothing in this module writes them into
// the renderer's launch-parameters record.
type Camera interface {
	// Position and Orientation are the camera's world-space pose,
	// shared by every concrete camera type.
	Position() linear.V3
	Orientation() linear.Q

	SetPosition(p linear.V3)
	SetOrientation(q linear.Q)
}

type cameraBase struct {
	position    linear.V3
	orientation linear.Q
}

func (c *cameraBase) Position() linear.V3       { return c.position }
func (c *cameraBase) Orientation() linear.Q     { return c.orientation }
func (c *cameraBase) SetPosition(p linear.V3)   { c.position = p }
func (c *cameraBase) SetOrientation(q linear.Q) { c.orientation = q }

// PerspectiveCamera is a standard thin-lens pinhole-or-DoF camera,
// mirroring shared::PerspectiveCamera's parameter set.
type PerspectiveCamera struct {
	cameraBase

	aspect           float32
	fovY             float32
	lensRadius       float32
	objPlaneDistance float32
	sensitivity      float32
}

// NewPerspectiveCamera creates a camera with a sensible 35mm-ish
// default: fovY = 40 degrees (in radians), no depth of field.
func NewPerspectiveCamera() *PerspectiveCamera {
	return &PerspectiveCamera{
		aspect:           16.0 / 9.0,
		fovY:             0.698, // ~40deg
		lensRadius:       0,
		objPlaneDistance: 1,
		sensitivity:      1,
	}
}

func (c *PerspectiveCamera) Aspect() float32           { return c.aspect }
func (c *PerspectiveCamera) FovY() float32              { return c.fovY }
func (c *PerspectiveCamera) LensRadius() float32        { return c.lensRadius }
func (c *PerspectiveCamera) ObjPlaneDistance() float32  { return c.objPlaneDistance }
func (c *PerspectiveCamera) Sensitivity() float32       { return c.sensitivity }

func (c *PerspectiveCamera) SetAspect(v float32)          { c.aspect = v }
func (c *PerspectiveCamera) SetFovY(v float32)            { c.fovY = v }
func (c *PerspectiveCamera) SetLensRadius(v float32)      { c.lensRadius = v }
func (c *PerspectiveCamera) SetObjPlaneDistance(v float32) { c.objPlaneDistance = v }
func (c *PerspectiveCamera) SetSensitivity(v float32)     { c.sensitivity = v }

// EquirectangularCamera is a 360-degree panoramic camera, mirroring
// shared::EquirectangularCamera's parameter set: a horizontal and
// vertical angular extent around the camera's forward direction.
type EquirectangularCamera struct {
	cameraBase

	phiAngle   float32
	thetaAngle float32
}

// NewEquirectangularCamera creates a full-sphere (2*pi x pi) camera.
func NewEquirectangularCamera() *EquirectangularCamera {
	return &EquirectangularCamera{phiAngle: 6.2832, thetaAngle: 3.1416}
}

func (c *EquirectangularCamera) PhiAngle() float32   { return c.phiAngle }
func (c *EquirectangularCamera) ThetaAngle() float32 { return c.thetaAngle }

func (c *EquirectangularCamera) SetPhiAngle(v float32)   { c.phiAngle = v }
func (c *EquirectangularCamera) SetThetaAngle(v float32) { c.thetaAngle = v }
