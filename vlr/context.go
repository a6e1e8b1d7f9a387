// Package vlr ties every subsystem package into one renderer
// context: process-wide object identity, the class-identifier chain
// backing is-a queries, configuration, cameras, and the ref-counted
// color-system singleton, wired the way engine/internal/ctxt's
// process-wide device handle is wired in the teacher, generalized
// from "one GPU device for the process" to "one color system and ID
// counter for the process, many contexts may share them."
package vlr

import (
	"sync"

	"go.uber.org/zap"

	"github.com/sleepyeye/VLR/registry"
	"github.com/sleepyeye/VLR/renderer"
	"github.com/sleepyeye/VLR/rtx"
	"github.com/sleepyeye/VLR/scene"
	"github.com/sleepyeye/VLR/scenegraph"
	"github.com/sleepyeye/VLR/shadernode"
)

// Class identifies a long-lived object's concrete type for is-a
// queries, as a chain of string tags (child, then every ancestor).
type Class []string

// IsA reports whether c names name anywhere in its ancestor chain.
func (c Class) IsA(name string) bool {
	for _, tag := range c {
		if tag == name {
			return true
		}
	}
	return false
}

// Object is the identity every long-lived context-owned value
// carries: a process-wide ID, its class chain, and a pointer back to
// the owning Context.
type Object struct {
	id      uint64
	class   Class
	context *Context
}

func (o *Object) ID() uint64       { return o.id }
func (o *Object) Class() Class     { return o.class }
func (o *Object) Context() *Context { return o.context }

var (
	colorSystemMu  sync.Mutex
	colorSystemRef int
)

// initColorSystem and finalizeColorSystem are the process-wide
// ref-counted singleton init/teardown spec.md calls for: the first
// Context created performs whatever one-time global setup the color
// conversion tables in shadernode.spectrum need, and the last
// Context's Close tears it down.
func initColorSystem() {
	colorSystemMu.Lock()
	defer colorSystemMu.Unlock()
	colorSystemRef++
}

func finalizeColorSystem() {
	colorSystemMu.Lock()
	defer colorSystemMu.Unlock()
	colorSystemRef--
}

var nextID uint64 // process-wide NextID counter, shared by every Context

func allocID() uint64 {
	colorSystemMu.Lock()
	defer colorSystemMu.Unlock()
	nextID++
	return nextID
}

// Context is one independent renderer instance: its own registries,
// shader-node graph, scene graph, scene, and renderer controller,
// sharing only the process-wide ID counter and color-system
// singleton with any sibling Context.
type Context struct {
	log *zap.Logger
	cfg Config
	dev rtx.Device

	Set       *registry.Set
	ShaderNodes *shadernode.Graph
	SceneGraph  *scenegraph.Graph
	Scene       *scene.Scene
	Renderer    *renderer.Controller

	closed bool
}

// NewContext creates a Context against an already-opened rtx.Device,
// allocating every registry pool and performing first-context
// color-system initialization.
func NewContext(dev rtx.Device, cfg Config, log *zap.Logger) (*Context, error) {
	if log == nil {
		log = zap.NewNop()
	}
	initColorSystem()

	set, err := registry.New(dev)
	if err != nil {
		finalizeColorSystem()
		return nil, err
	}

	sg := scenegraph.New()
	sc := scene.New(sg)
	sh := shadernode.NewGraph(set, cfg.RGBMode)
	rc := renderer.New(dev, set, sh, log)

	log.Info("context created", zap.Bool("rgbMode", cfg.RGBMode))

	return &Context{
		log:         log,
		cfg:         cfg,
		dev:         dev,
		Set:         set,
		ShaderNodes: sh,
		SceneGraph:  sg,
		Scene:       sc,
		Renderer:    rc,
	}, nil
}

// NewObject mints a fresh Object identity owned by ctx, for any
// long-lived value a package above vlr wants to expose with process-
// wide identity and is-a queries (cameras, materials, ...).
func (ctx *Context) NewObject(class Class) Object {
	return Object{id: allocID(), class: class, context: ctx}
}

// Config returns the Context's configuration.
func (ctx *Context) Config() Config { return ctx.cfg }

// Logger returns the Context's structured logger.
func (ctx *Context) Logger() *zap.Logger { return ctx.log }

// Close tears down the Context's last-context color-system state.
// Closing an already-closed Context has no effect.
func (ctx *Context) Close() {
	if ctx.closed {
		return
	}
	ctx.closed = true
	finalizeColorSystem()
	ctx.log.Info("context closed")
}
