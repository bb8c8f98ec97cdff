// Package manifest handles arborate.toml configuration and TOML program
// files.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tliron/commonlog"

	"github.com/chazu/arborate/vm"
)

// FileName is the configuration file looked up by FindAndLoad.
const FileName = "arborate.toml"

var log = commonlog.GetLogger("arborate.manifest")

// Config represents an arborate.toml configuration.
type Config struct {
	Machine MachineConfig `toml:"machine"`
	Log     LogConfig     `toml:"log"`
	Run     RunConfig     `toml:"run"`

	// Dir is the directory containing the arborate.toml file (set at load time).
	Dir string `toml:"-"`
}

// MachineConfig configures every machine built from this configuration.
type MachineConfig struct {
	MaxCallDepth int  `toml:"max-call-depth"`
	Trace        bool `toml:"trace"`
}

// LogConfig configures the commonlog backend.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// RunConfig selects what to run when the command line does not say.
type RunConfig struct {
	Program string `toml:"program"`
	Entry   string `toml:"entry"`
	Workers int    `toml:"workers"`
}

// Default returns the configuration used when no arborate.toml exists.
func Default() *Config {
	c := &Config{}
	c.Machine.MaxCallDepth = vm.DefaultMaxCallDepth
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Run.Entry == "" {
		c.Run.Entry = "0"
	}
	if c.Run.Workers <= 0 {
		c.Run.Workers = runtime.GOMAXPROCS(0)
	}
}

// Load parses an arborate.toml file from the given directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile parses a configuration file. Relative paths in the file are
// resolved against the file's directory.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		log.Warningf("%s: ignoring unknown keys: %s", path, strings.Join(keys, ", "))
	}

	c.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}

	// Defaults
	if !md.IsDefined("machine", "max-call-depth") {
		c.Machine.MaxCallDepth = vm.DefaultMaxCallDepth
	}
	if c.Machine.MaxCallDepth < 0 {
		return nil, fmt.Errorf("%s: max-call-depth must not be negative", path)
	}
	c.applyDefaults()

	return &c, nil
}

// FindAndLoad walks up from startDir to find an arborate.toml file,
// then loads and returns it. Returns nil if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Limits returns the execution limits for machines.
func (c *Config) Limits() vm.Limits {
	return vm.Limits{MaxCallDepth: c.Machine.MaxCallDepth}
}

// Options returns the machine options this configuration implies.
func (c *Config) Options() []vm.Option {
	return []vm.Option{
		vm.WithLimits(c.Limits()),
		vm.WithTrace(c.Machine.Trace),
	}
}

// ProgramPath returns the configured program path, resolved against Dir.
// Returns "" when no program is configured.
func (c *Config) ProgramPath() string {
	if c.Run.Program == "" {
		return ""
	}
	if filepath.IsAbs(c.Run.Program) || c.Dir == "" {
		return c.Run.Program
	}
	return filepath.Join(c.Dir, c.Run.Program)
}

// LogPath returns the configured log file, resolved against Dir.
// Returns "" for stderr.
func (c *Config) LogPath() string {
	if c.Log.File == "" || filepath.IsAbs(c.Log.File) || c.Dir == "" {
		return c.Log.File
	}
	return filepath.Join(c.Dir, c.Log.File)
}
