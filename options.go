package sf2synth

import "log"

// DefaultBlockSize is the render chunk size in frames used when
// WithBlockSize is not given.
const DefaultBlockSize = 64

// Info identifies a configured instrument: the display name and the stable
// URI that hosts and generated bundles refer to it by. It is construction
// time configuration so one binary can serve several sound banks.
type Info struct {
	Name string
	URI  string
}

func defaultInfo() Info {
	return Info{
		Name: "sf2synth",
		URI:  "https://github.com/cbegin/sf2synth-go/sf2synth",
	}
}

// Option configures an Instrument at construction time.
type Option func(*config)

type config struct {
	info      Info
	blockSize int
	debug     *log.Logger
}

func defaultConfig() config {
	return config{info: defaultInfo(), blockSize: DefaultBlockSize}
}

// WithInfo sets the instrument identity. Empty fields keep their defaults.
func WithInfo(info Info) Option {
	return func(cfg *config) {
		if info.Name != "" {
			cfg.info.Name = info.Name
		}
		if info.URI != "" {
			cfg.info.URI = info.URI
		}
	}
}

// WithBlockSize sets the internal render chunk size in frames. Values
// below 1 are ignored.
func WithBlockSize(frames int) Option {
	return func(cfg *config) {
		if frames > 0 {
			cfg.blockSize = frames
		}
	}
}

// WithDebugLog routes diagnostic output for recoverable conditions
// (out-of-range program requests, rejected backend calls) to logger. The
// default is nil: no logging, and the render path pays only a nil check.
func WithDebugLog(logger *log.Logger) Option {
	return func(cfg *config) { cfg.debug = logger }
}
