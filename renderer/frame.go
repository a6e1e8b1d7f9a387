package renderer

import (
	"go.uber.org/zap"

	"github.com/sleepyeye/VLR/rtx"
	"github.com/sleepyeye/VLR/vlrerr"
)

// FrameParams carries the per-Render call inputs that do not belong
// to persistent controller state: the probe pixel (for picking a
// debug readback sample), and the accumulation-frame limit to enforce
// this call (zero or negative means no limit).
type FrameParams struct {
	ProbeX, ProbeY   int
	LimitAccumFrames int
	TimePhase        float32 // reserved for motion-blur shutter sampling
}

// Render executes one pass of the per-frame sequence of §4.G: flush
// dirty shader nodes, prepare and set up the scene, resolve and
// (re)bind the active pipeline set's shader binding table, dispatch
// the algorithm-specific launch sequence, and advance the
// accumulation-frame counter. It requires the controller to be in the
// SceneBound or Running state.
func (c *Controller) Render(stream rtx.Stream, p FrameParams) error {
	if c.state != SceneBound && c.state != Running {
		return vlrerr.New(vlrerr.InvalidArgument, "renderer: render requires a scene to be bound")
	}
	c.state = Running
	defer func() { c.state = SceneBound }()

	c.probeX, c.probeY = p.ProbeX, p.ProbeY
	c.limitAccumFrames = p.LimitAccumFrames

	// 1. Flush dirty shader nodes into the descriptor pools.
	if c.sh != nil {
		if err := c.sh.Flush(stream); err != nil {
			return err
		}
	}

	// 2. Drain the scene's dirty sets, then run the scene-wide AABB/
	// scene-bound kernels and build or refit the top-level
	// acceleration structure. This happens once per frame, not once
	// per active algorithm.
	scratchSize, err := c.scn.PrepareSetup(c.dev)
	if err != nil {
		return err
	}
	if c.asScratch == nil || c.asScratch.Size() < scratchSize {
		buf, err := c.dev.NewBuffer(scratchSize)
		if err != nil {
			return vlrerr.Fatal(vlrerr.FatalRuntime, err)
		}
		c.asScratch = buf
	}
	if err := c.scn.SetupScene(stream, c.dev, c.asScratch); err != nil {
		return err
	}

	// 3. Resolve the active pipeline set for this frame.
	algs := c.activePipelines()
	if len(algs) == 0 {
		return vlrerr.New(vlrerr.InvalidArgument, "renderer: no algorithm selected")
	}

	// The first Render call after BindOutputBuffer is where
	// num_accum_frames actually resets to 0 — bind_output_buffer
	// itself only marked firstFrame pending.
	firstFrame := c.firstFrame
	if firstFrame {
		c.numAccumFrames = 0
		c.firstFrame = false
	}

	// Once numAccumFrames has reached a positive limit, no launch is
	// dispatched and the counter stays where it is.
	accumulate := c.limitAccumFrames <= 0 || c.numAccumFrames < c.limitAccumFrames

	// Setup marks the scene's SBT layout up to date, so its staleness
	// is read once, before the first Setup call of this frame.
	sbtStale := !c.scn.SBTUpToDate()

	for _, alg := range algs {
		st, ok := c.algs[alg]
		if !ok {
			return vlrerr.Newf(vlrerr.InvalidArgument, "renderer: algorithm %d has no linked pipeline", alg)
		}

		// 4. Device-side scene setup and, if the scene reports its
		// SBT as stale, a fresh GenerateShaderBindingTableLayout +
		// rebind — the shader binding table policy of §4.G.
		if _, err := c.scn.Setup(stream, st.Pipeline); err != nil {
			return err
		}
		if sbtStale || st.boundScene != c.scn {
			st.Pipeline.SetShaderBindingTable(st.RayGenSBT)
			st.Pipeline.SetHitGroupShaderBindingTable(st.HitGroupSBT)
			st.boundScene = c.scn
		}

		// 5-6. Dispatch the algorithm-specific launch sequence.
		if !accumulate {
			continue
		}
		if err := c.dispatchAlgorithm(stream, alg, st); err != nil {
			return err
		}

		if alg == LVCBPT && c.lvc != nil && c.lvc.Dropped() > 0 {
			c.log.Warn("light vertex cache overflowed this frame",
				zap.Int("dropped", c.lvc.Dropped()),
				zap.Int("capacity", c.lvc.capacity))
		}
	}

	if accumulate {
		c.numAccumFrames++
	}

	// 7-10: copy the accumulation buffers into the linear color/guide
	// buffers, denoise if a denoiser is installed, and convert the
	// result into the bound output's RGB surface.
	if err := c.postProcess(stream); err != nil {
		return err
	}
	return nil
}

// dispatchAlgorithm runs alg's per-frame launch sequence. PathTracing,
// DebugRendering, and AuxBufferGen share one uniform w×h launch;
// LightTracing and LVCBPT each drive their own §4.G.7 sequence around
// their pipeline's Launch.
func (c *Controller) dispatchAlgorithm(stream rtx.Stream, alg Algorithm, st *AlgorithmState) error {
	switch alg {
	case LightTracing:
		return c.dispatchLightTracing(stream, st)
	case LVCBPT:
		return c.dispatchLVCBPT(stream, st)
	default:
		if err := st.Pipeline.Launch(stream, st.LaunchParams, c.width, c.height, 1); err != nil {
			return vlrerr.Fatal(vlrerr.FatalRuntime, err)
		}
		return nil
	}
}

// dispatchLightTracing drives Light Tracing's launch sequence: zero
// the atomic accumulation buffer, launch one ray per light path, then
// fold the atomic buffer into the accumulation buffer. AuxBufferGen,
// which Light Tracing also requires, is launched separately by the
// caller's per-algorithm loop via the default branch above.
func (c *Controller) dispatchLightTracing(stream rtx.Stream, st *AlgorithmState) error {
	if err := c.resetAtomicAccum(stream); err != nil {
		return err
	}
	if err := st.Pipeline.Launch(stream, st.LaunchParams, c.numLightPaths, 1, 1); err != nil {
		return vlrerr.Fatal(vlrerr.FatalRuntime, err)
	}
	return c.accumulateFromAtomic(stream)
}

// dispatchLVCBPT drives LVC-BPT's two-launch sequence: sample this
// frame's WavelengthSamples, zero the light-vertex counter, launch the
// light-path ray-generation program over the light paths, pull the
// device-side vertex count back to the host cache, zero the atomic
// accumulation buffer, launch the eye-path ray-generation program over
// the output resolution, then fold the atomic buffer into the
// accumulation buffer.
func (c *Controller) dispatchLVCBPT(stream rtx.Stream, st *AlgorithmState) error {
	c.lastWavelengths = sampleWavelengths(c.rng.Float64(), c.rng.Float64())

	if c.lvc != nil {
		if err := c.lvc.Reset(stream); err != nil {
			return vlrerr.Fatal(vlrerr.FatalRuntime, err)
		}
	}
	if st.LightPathRayGen != nil {
		if err := st.Pipeline.SetRayGenProgram(st.LightPathRayGen); err != nil {
			return vlrerr.Fatal(vlrerr.FatalRuntime, err)
		}
	}
	if err := st.Pipeline.Launch(stream, st.LaunchParams, c.numLightPaths, 1, 1); err != nil {
		return vlrerr.Fatal(vlrerr.FatalRuntime, err)
	}
	if c.lvc != nil {
		if err := c.lvc.Pull(stream); err != nil {
			return vlrerr.Fatal(vlrerr.FatalRuntime, err)
		}
	}

	if err := c.resetAtomicAccum(stream); err != nil {
		return err
	}
	if st.EyePathRayGen != nil {
		if err := st.Pipeline.SetRayGenProgram(st.EyePathRayGen); err != nil {
			return vlrerr.Fatal(vlrerr.FatalRuntime, err)
		}
	}
	if err := st.Pipeline.Launch(stream, st.LaunchParams, c.width, c.height, 1); err != nil {
		return vlrerr.Fatal(vlrerr.FatalRuntime, err)
	}
	return c.accumulateFromAtomic(stream)
}

// LastWavelengthSamples returns the WavelengthSamples drawn by the
// most recent LVC-BPT frame, or the zero value before LVC-BPT has run.
func (c *Controller) LastWavelengthSamples() WavelengthSamples { return c.lastWavelengths }

func (c *Controller) resetAtomicAccum(stream rtx.Stream) error {
	if c.post == nil || c.post.ResetAtomic == nil {
		return nil
	}
	if err := c.post.ResetAtomic.Launch(stream, c.postParams, c.width, c.height, 1); err != nil {
		return vlrerr.Fatal(vlrerr.FatalRuntime, err)
	}
	return nil
}

func (c *Controller) accumulateFromAtomic(stream rtx.Stream) error {
	if c.post == nil || c.post.AccumulateFromAtomic == nil {
		return nil
	}
	if err := c.post.AccumulateFromAtomic.Launch(stream, c.postParams, c.width, c.height, 1); err != nil {
		return vlrerr.Fatal(vlrerr.FatalRuntime, err)
	}
	return nil
}

// postProcess runs steps 7-10 of the per-frame sequence: copy_buffers
// into the linear guide buffers, the external denoiser (once at least
// one frame has accumulated), and convert_to_rgb into the bound
// output, bracketed by the output's CUDA-GL access window when one is
// installed.
func (c *Controller) postProcess(stream rtx.Stream) error {
	if c.post != nil && c.post.CopyBuffers != nil {
		if err := c.post.CopyBuffers.Launch(stream, c.postParams, c.width, c.height, 1); err != nil {
			return vlrerr.Fatal(vlrerr.FatalRuntime, err)
		}
	}
	if c.denoiser != nil && c.numAccumFrames > 0 {
		if err := c.InvokeDenoiser(stream, c.denoiser, c.denoiseBuf, c.denoiserState, c.denoiserScratch, c.denoiserIntensityScratch); err != nil {
			return err
		}
	}

	convert := func() error {
		if c.post == nil || c.post.ConvertToRGB == nil {
			return nil
		}
		if err := c.post.ConvertToRGB.Launch(stream, c.postParams, c.width, c.height, 1); err != nil {
			return vlrerr.Fatal(vlrerr.FatalRuntime, err)
		}
		return nil
	}

	if c.output == nil {
		return convert()
	}
	if _, err := c.output.BeginCUDAAccess(stream); err != nil {
		return vlrerr.Fatal(vlrerr.FatalRuntime, err)
	}
	convertErr := convert()
	if err := c.output.EndCUDAAccess(stream); err != nil {
		return vlrerr.Fatal(vlrerr.FatalRuntime, err)
	}
	return convertErr
}

// DenoiseBuffers names the linear color/guide/output buffers one
// InvokeDenoiser call denoises; the caller owns their allocation and
// sizing (including GL-interop acquire/release around this call).
type DenoiseBuffers struct {
	Color, Albedo, Normal, Out rtx.Buffer
}

// InvokeDenoiser runs the external denoiser over the current
// accumulation buffer. Every call prepares the denoiser for the bound
// output size and installs its state and scratch buffers again before
// computing the intensity and invoking each task; the state is not
// kept from one call to the next. It is a no-op before the first
// frame, since there is nothing accumulated yet to denoise.
func (c *Controller) InvokeDenoiser(stream rtx.Stream, den rtx.Denoiser, buf DenoiseBuffers, state, scratch, intensityScratch rtx.Buffer) error {
	if c.numAccumFrames == 0 {
		return nil
	}
	if _, err := den.Prepare(c.width, c.height); err != nil {
		return vlrerr.Fatal(vlrerr.FatalRuntime, err)
	}
	if err := den.SetupState(stream, state, scratch); err != nil {
		return vlrerr.Fatal(vlrerr.FatalRuntime, err)
	}
	if err := den.ComputeIntensity(stream, buf.Color, intensityScratch); err != nil {
		return vlrerr.Fatal(vlrerr.FatalRuntime, err)
	}
	tasks, err := den.GetTasks()
	if err != nil {
		return vlrerr.Fatal(vlrerr.FatalRuntime, err)
	}
	for _, t := range tasks {
		if err := den.Invoke(stream, t, buf.Color, buf.Albedo, buf.Normal, buf.Out); err != nil {
			return vlrerr.Fatal(vlrerr.FatalRuntime, err)
		}
	}
	return nil
}
