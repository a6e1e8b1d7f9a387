// Package renderer implements the renderer controller of this spec's
// component G: the Uninitialized/OutputBound/SceneBound/Running
// state machine, the per-algorithm pipeline records, the
// light-vertex cache, and the per-frame sequence of §4.G. Its init/
// free lifecycle and frame-in-flight bookkeeping generalize
// engine/renderer.go's idiom in the teacher from a raster frame loop
// to this spec's algorithm-dispatching path tracer.
package renderer

import (
	"encoding/binary"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/sleepyeye/VLR/registry"
	"github.com/sleepyeye/VLR/rtx"
	"github.com/sleepyeye/VLR/scene"
	"github.com/sleepyeye/VLR/shadernode"
	"github.com/sleepyeye/VLR/vlrerr"
)

// State is the renderer controller's state machine position.
type State int

const (
	Uninitialized State = iota
	OutputBound
	SceneBound
	Running
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case OutputBound:
		return "OutputBound"
	case SceneBound:
		return "SceneBound"
	case Running:
		return "Running"
	default:
		return "invalid"
	}
}

// Algorithm selects which rendering algorithm a frame dispatches.
type Algorithm int

const (
	PathTracing Algorithm = iota
	LightTracing
	LVCBPT
	AuxBufferGen
	DebugRendering
)

// DebugAttribute selects a debug-rendering channel; values at or
// above DenoiserAlbedo are served by the AuxBufferGen pipeline
// instead of the Debug pipeline, per §4.G's pipeline-resolution rule.
type DebugAttribute int

const (
	DebugNone DebugAttribute = iota
	DebugGeometricNormal
	DebugShadingNormal
	DebugTextureCoordinates
	DenoiserAlbedo
	DenoiserNormal
)

// AlgorithmState is one algorithm's linked pipeline plus its
// ray-generation and hit-group shader binding tables.
type AlgorithmState struct {
	Pipeline     rtx.Pipeline
	Modules      []rtx.Module
	RayGenSBT    rtx.ShaderBindingTable
	HitGroupSBT  rtx.ShaderBindingTable
	LaunchParams rtx.DevicePtr // device address of this algorithm's launch-parameters record
	boundScene   *scene.Scene  // the scene the HitGroupSBT was last attached to

	// LightPathRayGen and EyePathRayGen are LVC-BPT's two ray-
	// generation programs, swapped in with SetRayGenProgram before
	// each of its two launches. Every other algorithm leaves these
	// nil and relies on the program installed at registration.
	LightPathRayGen rtx.Program
	EyePathRayGen   rtx.Program
}

// lightVertexCacheDepth (K in N_lp x K) is the per-light-path vertex
// budget; the Observed Ambiguity in this spec names the cache size as
// N_lp x 10.
const lightVertexCacheDepth = 10

// LightVertexCache is the host-side mirror of the device-resident
// light-vertex-cache buffer used by LVC-BPT. It caps Push at capacity
// and reports dropped vertices instead of growing, matching the "must
// fail soft like a device-side atomic-counter clamp" decision.
type LightVertexCache struct {
	buf      rtx.Buffer
	counter  rtx.Buffer // device-resident num_light_vertices atomic counter, 4 bytes
	capacity int
	count    int
	dropped  int
}

func newLightVertexCache(dev rtx.Device, numLightPaths int, recordSize int64) (*LightVertexCache, error) {
	capacity := numLightPaths * lightVertexCacheDepth
	buf, err := dev.NewBuffer(int64(capacity) * recordSize)
	if err != nil {
		return nil, vlrerr.Fatal(vlrerr.FatalRuntime, err)
	}
	counter, err := dev.NewBuffer(4)
	if err != nil {
		return nil, vlrerr.Fatal(vlrerr.FatalRuntime, err)
	}
	return &LightVertexCache{buf: buf, counter: counter, capacity: capacity}, nil
}

// Reset zeroes the host mirror and the device-resident
// num_light_vertices atomic counter, ahead of an LVC-BPT frame's
// light-path launch.
func (c *LightVertexCache) Reset(stream rtx.Stream) error {
	c.count, c.dropped = 0, 0
	return c.counter.Upload(stream, []byte{0, 0, 0, 0}, 0)
}

// Pull downloads the device-resident num_light_vertices counter that
// the light-path launch incremented and folds it into the host-side
// count via Push, clamping at capacity the same way a device-side
// atomic clamp would.
func (c *LightVertexCache) Pull(stream rtx.Stream) error {
	data, err := c.counter.Download(stream, 0, 4)
	if err != nil {
		return err
	}
	c.Push(int(binary.LittleEndian.Uint32(data)))
	return nil
}

// Push records that n additional vertices were produced by the
// light-path launch; if the cache would overflow, it clamps at
// capacity and records the rest as dropped.
func (c *LightVertexCache) Push(n int) {
	room := c.capacity - c.count
	if n <= room {
		c.count += n
		return
	}
	c.count = c.capacity
	c.dropped += n - room
}

// Count and Dropped report the cache's current live-vertex count and
// cumulative overflow since the last Reset.
func (c *LightVertexCache) Count() int   { return c.count }
func (c *LightVertexCache) Dropped() int { return c.dropped }

// Controller drives the full renderer state machine and per-frame
// sequence.
type Controller struct {
	state State
	log   *zap.Logger

	dev  rtx.Device
	set  *registry.Set
	sh   *shadernode.Graph
	scn  *scene.Scene
	algs map[Algorithm]*AlgorithmState

	lvc             *LightVertexCache
	numLightPaths   int
	rng             *rand.Rand // host-side draw for each LVC-BPT frame's WavelengthSamples
	lastWavelengths WavelengthSamples

	width, height    int
	numAccumFrames   int
	limitAccumFrames int
	firstFrame       bool // set by BindOutputBuffer; Render clears numAccumFrames on the next call it sees this set

	selection      Algorithm
	debugAttribute DebugAttribute
	probeX, probeY int

	asScratch rtx.Buffer // scratch buffer for Scene.SetupScene's AABB/IAS build, grown as needed

	post       *PostProcessKernels
	postParams rtx.DevicePtr

	denoiser                 rtx.Denoiser
	denoiseBuf               DenoiseBuffers
	denoiserState            rtx.Buffer
	denoiserScratch          rtx.Buffer
	denoiserIntensityScratch rtx.Buffer

	output rtx.CUDAGLResource
}

// PostProcessKernels names the §6 post-process kernel surface the
// per-frame sequence drives: resetting the atomic accumulation buffer
// before and folding it after the Light Tracing and LVC-BPT launches
// that splat into it, and, once the launches are done, copying the
// accumulated result into the linear color/guide buffers, and
// converting the (optionally denoised) result into the bound output's
// RGB surface.
type PostProcessKernels struct {
	ResetAtomic          rtx.Kernel
	AccumulateFromAtomic rtx.Kernel
	CopyBuffers          rtx.Kernel
	ConvertToRGB         rtx.Kernel
}

// SetPostProcessKernels installs the post-process kernel set Render
// drives during the launch dispatch and steps 8-10 of the per-frame
// sequence, and the device
// address of the parameter record they share (the accumulation buffer,
// output dimensions, and camera-orientation inverse the caller has
// already written there).
func (c *Controller) SetPostProcessKernels(k PostProcessKernels, paramsPtr rtx.DevicePtr) {
	c.post = &k
	c.postParams = paramsPtr
}

// SetDenoiser installs the external denoiser Render invokes between
// copy_buffers and convert_to_rgb once at least one frame has
// accumulated. Passing a nil den disables denoising.
func (c *Controller) SetDenoiser(den rtx.Denoiser, buf DenoiseBuffers, state, scratch, intensityScratch rtx.Buffer) {
	c.denoiser = den
	c.denoiseBuf = buf
	c.denoiserState = state
	c.denoiserScratch = scratch
	c.denoiserIntensityScratch = intensityScratch
}

// SetOutputTarget installs the CUDA-GL interop resource convert_to_rgb
// writes into, bracketed by BeginCUDAAccess/EndCUDAAccess around the
// post-process sequence.
func (c *Controller) SetOutputTarget(res rtx.CUDAGLResource) { c.output = res }

// wavelengthSampleCount is the number of equally-spaced wavelength
// samples drawn per LVC-BPT frame alongside the hero wavelength,
// matching WavelengthSamples::NumComponents.
const wavelengthSampleCount = 4

// minWavelengthNM and maxWavelengthNM bound the visible spectrum this
// core samples wavelengths over.
const (
	minWavelengthNM = 360
	maxWavelengthNM = 830
)

// WavelengthSamples is one LVC-BPT frame's hero-wavelength draw: a
// uniformly placed hero wavelength plus wavelengthSampleCount-1
// equally-spaced offsets, and the (equal, since offsets are
// deterministic given the hero) PDF of drawing this set.
type WavelengthSamples struct {
	Lambda [wavelengthSampleCount]float32
	PDF    float32
}

// sampleWavelengths draws one WavelengthSamples from two independent
// uniform(0,1) samples, the host-side equivalent of
// WavelengthSamples::createWithEqualOffsets: u0 places the hero
// wavelength uniformly across the visible span, and u1 places a
// sub-bin jitter shared by every equally-spaced component so the set
// tiles the span without bias.
func sampleWavelengths(u0, u1 float64) WavelengthSamples {
	const span = float32(maxWavelengthNM - minWavelengthNM)
	hero := minWavelengthNM + float32(u0)*span
	jitter := float32(u1) * span / wavelengthSampleCount
	var ws WavelengthSamples
	for i := range ws.Lambda {
		lambda := hero + jitter + span*float32(i)/wavelengthSampleCount
		if lambda >= maxWavelengthNM {
			lambda -= span
		}
		ws.Lambda[i] = lambda
	}
	ws.PDF = 1 / span
	return ws
}

// New creates a Controller in the Uninitialized state, with the null
// BSDF/EDF procedure sets already allocated (by registry.New) and
// never released for the lifetime of the context.
func New(dev rtx.Device, set *registry.Set, sh *shadernode.Graph, log *zap.Logger) *Controller {
	return &Controller{
		state: Uninitialized,
		log:   log,
		dev:   dev,
		set:   set,
		sh:    sh,
		algs:  make(map[Algorithm]*AlgorithmState),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// State returns the controller's current state machine position.
func (c *Controller) State() State { return c.state }

// BindOutputBuffer transitions to OutputBound from any non-Running
// state and records w x h as the output size. It allocates no
// accumulation, RNG, or linear buffers and does not prepare the
// denoiser (InvokeDenoiser prepares it on each call). It does not
// itself touch
// num_accum_frames: it only marks the next Render call as the first
// frame of a new accumulation, and that call is what actually resets
// the counter to 0.
func (c *Controller) BindOutputBuffer(w, h int) error {
	if c.state == Running {
		return vlrerr.New(vlrerr.InvalidArgument, "renderer: cannot bind an output buffer while a render is in flight")
	}
	c.width, c.height = w, h
	c.firstFrame = true
	c.state = OutputBound
	c.log.Info("output buffer bound", zap.Int("width", w), zap.Int("height", h))
	return nil
}

// SetScene transitions to SceneBound. Legal once the renderer has an
// output bound.
func (c *Controller) SetScene(s *scene.Scene, numLightPaths int, lvcRecordSize int64) error {
	if c.state == Uninitialized {
		return vlrerr.New(vlrerr.InvalidArgument, "renderer: bind an output buffer before setting a scene")
	}
	lvc, err := newLightVertexCache(c.dev, numLightPaths, lvcRecordSize)
	if err != nil {
		return err
	}
	c.scn = s
	c.lvc = lvc
	c.numLightPaths = numLightPaths
	c.state = SceneBound
	c.log.Info("scene bound")
	return nil
}

// RegisterAlgorithm installs the linked pipeline for alg, created and
// linked by the caller after every callable program from shadernode,
// scenegraph, and scene has been registered against it (pipelines are
// linked last, per this spec's lifecycle ordering).
func (c *Controller) RegisterAlgorithm(alg Algorithm, state *AlgorithmState) {
	c.algs[alg] = state
}

// activePipelines resolves the set of pipelines a frame must drive,
// from (selection, debugAttribute), per §4.G step 4.
func (c *Controller) activePipelines() []Algorithm {
	switch c.selection {
	case PathTracing:
		return []Algorithm{PathTracing}
	case LightTracing:
		return []Algorithm{AuxBufferGen, LightTracing}
	case LVCBPT:
		return []Algorithm{LVCBPT}
	case DebugRendering:
		if c.debugAttribute < DenoiserAlbedo {
			return []Algorithm{DebugRendering}
		}
		return []Algorithm{AuxBufferGen}
	default:
		return nil
	}
}

// SetAlgorithm selects the active rendering algorithm and, for
// DebugRendering, the channel attribute to visualize.
func (c *Controller) SetAlgorithm(alg Algorithm, debugAttribute DebugAttribute) {
	c.selection = alg
	c.debugAttribute = debugAttribute
}

// NumAccumFrames and LimitNumAccumFrames report the controller's
// frame counters, per the frame-progression testable property.
func (c *Controller) NumAccumFrames() int      { return c.numAccumFrames }
func (c *Controller) LimitNumAccumFrames() int { return c.limitAccumFrames }
