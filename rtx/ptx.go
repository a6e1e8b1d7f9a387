// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package rtx

import (
	"os"
	"path/filepath"

	"github.com/sleepyeye/VLR/vlrerr"
)

// Assets named by §6 of this core's external interface contract,
// discovered relative to the executable directory (or an explicit
// asset directory, see vlr.Config).
const (
	PathTracingPTX       = "path_tracing.ptx"
	LightTracingPTX      = "light_tracing.ptx"
	LVCBPTPTX            = "lvc_bpt.ptx"
	AuxBufferGeneratorPTX = "aux_buffer_generator.ptx"
	DebugRenderingPTX    = "debug_rendering.ptx"
	SetupScenePTX        = "setup_scene.ptx"
	PostProcessPTX       = "post_process.ptx"
	ShaderNodesPTX       = "shader_nodes.ptx"
	MaterialsPTX         = "materials.ptx"
)

// AssetDir returns the directory PTX assets are loaded from when no
// explicit directory is configured: the directory containing the
// running executable.
func AssetDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", vlrerr.New(vlrerr.IOError, "rtx: locate executable: "+err.Error())
	}
	return filepath.Dir(exe), nil
}

// LoadPTX reads the named PTX asset from dir and returns its textual
// contents, ready for Device.NewModuleFromPTX. A missing or unreadable
// asset is an IOError; per §7, this fails initialization.
func LoadPTX(dir, name string) (string, error) {
	path := filepath.Join(dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", vlrerr.Fatal(vlrerr.IOError, err)
	}
	return string(data), nil
}
