// Package config loads jide.toml, the optional per-project settings file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/tliron/commonlog"

	"github.com/dhamidi/jide/compile"
	"github.com/dhamidi/jide/project"
)

var log = commonlog.GetLogger("jide.config")

// FileName is the name of the configuration file at a project root.
const FileName = "jide.toml"

type Config struct {
	Compiler  Compiler  `toml:"compiler"`
	Discovery Discovery `toml:"discovery"`
	Watch     Watch     `toml:"watch"`
	Log       Log       `toml:"log"`
	Metrics   Metrics   `toml:"metrics"`
}

type Compiler struct {
	Command     string   `toml:"command"`
	Debug       bool     `toml:"debug"`
	Deprecation bool     `toml:"deprecation"`
	Flags       []string `toml:"flags"`
	OutputDir   string   `toml:"output_dir"`
	Classpath   []string `toml:"classpath"`
}

type Discovery struct {
	Exclude   []string `toml:"exclude"`
	Gitignore bool     `toml:"gitignore"`
}

type Watch struct {
	Debounce     time.Duration `toml:"debounce"`
	AutoCompile  bool          `toml:"auto_compile"`
	CompileRate  float64       `toml:"compile_rate"`
	CompileBurst int           `toml:"compile_burst"`
}

type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

type Metrics struct {
	// Address of the /metrics endpoint. Empty disables it.
	Address string `toml:"address"`
}

// Default returns the settings used when no file is present.
func Default() *Config {
	return &Config{
		Compiler: Compiler{
			Command:     "javac",
			Debug:       true,
			Deprecation: true,
		},
		Discovery: Discovery{Gitignore: true},
		Watch: Watch{
			Debounce:     300 * time.Millisecond,
			CompileBurst: 1,
		},
	}
}

// Load reads path on top of the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debugf("no config at %s, using defaults", path)
			return cfg, nil
		}
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	for _, key := range md.Undecoded() {
		log.Warningf("%s: unknown key %s", path, key)
	}

	applyDefaults(cfg)
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDir loads FileName from a project root.
func LoadDir(root string) (*Config, error) {
	return Load(filepath.Join(root, FileName))
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Compiler.Command) == "" {
		cfg.Compiler.Command = "javac"
	}
	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = 300 * time.Millisecond
	}
	if cfg.Watch.CompileBurst <= 0 {
		cfg.Watch.CompileBurst = 1
	}
}

func (cfg *Config) validate() error {
	if cfg.Watch.CompileRate < 0 {
		return fmt.Errorf("watch.compile_rate must be >= 0, got %v", cfg.Watch.CompileRate)
	}
	if cfg.Log.Verbosity < 0 {
		return fmt.Errorf("log.verbosity must be >= 0, got %d", cfg.Log.Verbosity)
	}
	for i, p := range cfg.Discovery.Exclude {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("discovery.exclude[%d] must not be empty", i)
		}
	}
	for i, entry := range cfg.Compiler.Classpath {
		if strings.TrimSpace(entry) == "" {
			return fmt.Errorf("compiler.classpath[%d] must not be empty", i)
		}
	}
	return nil
}

// resolve makes a path from the file relative to root.
func resolve(root, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// ProjectOptions returns the options for opening the project at root.
func (cfg *Config) ProjectOptions(root string) project.Options {
	var classpath []string
	for _, entry := range cfg.Compiler.Classpath {
		classpath = append(classpath, resolve(root, entry))
	}
	return project.Options{
		OutDir:    resolve(root, cfg.Compiler.OutputDir),
		Classpath: classpath,
		Exclude:   cfg.Discovery.Exclude,
		Gitignore: cfg.Discovery.Gitignore,
	}
}

// SchedulerConfig returns the scheduler settings for p.
func (cfg *Config) SchedulerConfig(p *project.Project, observer compile.Observer) compile.Config {
	return compile.Config{
		Options: compile.Options{
			Classpath:   p.Classpath,
			OutDir:      p.OutDir,
			Debug:       cfg.Compiler.Debug,
			Deprecation: cfg.Compiler.Deprecation,
			Flags:       cfg.Compiler.Flags,
		},
		Observer:  observer,
		AutoRate:  cfg.Watch.CompileRate,
		AutoBurst: cfg.Watch.CompileBurst,
	}
}

// NewCompiler returns the configured compiler.
func (cfg *Config) NewCompiler() compile.Compiler {
	return &compile.JavacCompiler{Command: cfg.Compiler.Command}
}
