package vlr

import (
	"github.com/BurntSushi/toml"

	"github.com/sleepyeye/VLR/vlrerr"
)

// Config is the renderer context's process-wide configuration,
// loaded once at startup the way noisetorch-NoiseTorch/config.go
// loads its TOML config: a plain struct unmarshaled directly, no
// hand-rolled parser.
type Config struct {
	// AssetDir names the directory holding the compiled PTX modules
	// named in rtx/ptx.go. NewContext does not read it, and an empty
	// value is not replaced with rtx.AssetDir().
	AssetDir string

	// DefaultImageWidth and DefaultImageHeight are the default output
	// size. NewContext does not read them; a Context's output size is
	// set only by an explicit Renderer.BindOutputBuffer call.
	DefaultImageWidth  int
	DefaultImageHeight int

	// DefaultAccumFrameLimit is the default limit_num_accum_frames
	// value; 0 means unlimited. NewContext does not pass it to the
	// renderer.
	DefaultAccumFrameLimit int

	// RGBMode selects whether shader-node spectra serialize as
	// pre-evaluated rendering-RGB triplets rather than full spectral
	// tables, per §4.D's RGB-mode special case.
	RGBMode bool
}

// DefaultConfig is used when no on-disk config is loaded.
func DefaultConfig() Config {
	return Config{
		DefaultImageWidth:      1280,
		DefaultImageHeight:     720,
		DefaultAccumFrameLimit: 0,
		RGBMode:                false,
	}
}

// LoadConfig reads a TOML config file at path, starting from
// DefaultConfig for any field the file omits.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, vlrerr.Fatal(vlrerr.IOError, err)
	}
	return cfg, nil
}
