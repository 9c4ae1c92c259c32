// Package config loads optional defaults for the textfsm command from a
// .textfsm.cue or .textfsm.toml file. Command-line flags override every
// field.
//
//	// .textfsm.cue
//	index:          "ntc_templates/templates/index"
//	platform:       "cisco_ios"
//	format:         "json"
//	lowercase_keys: true
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/BurntSushi/toml"
)

// File names searched by Find, in order.
var FileNames = []string{".textfsm.cue", ".textfsm.toml"}

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ErrUnsupportedFormat is returned by Load for files that are neither CUE
// nor TOML.
var ErrUnsupportedFormat = errors.New("unsupported config file type")

// Config holds defaults for command flags.
// Zero values use sensible defaults where noted.
type Config struct {
	// TemplatesDir is where --template names are resolved.
	TemplatesDir string `json:"templates_dir,omitempty" toml:"templates_dir"`

	// Index is the path of a template index file.
	Index string `json:"index,omitempty" toml:"index"`

	// Platform is the default index platform.
	Platform string `json:"platform,omitempty" toml:"platform"`

	// Format is the output format: "text", "json" or "yaml".
	// Default: "text".
	Format string `json:"format,omitempty" toml:"format"`

	// LowercaseKeys lowercases value names in output records.
	LowercaseKeys bool `json:"lowercase_keys,omitempty" toml:"lowercase_keys"`

	// DB is the run archive path. Empty disables archiving.
	DB string `json:"db,omitempty" toml:"db"`

	// MaxRecords aborts a parse that emits more records. 0 is unlimited.
	MaxRecords int `json:"max_records,omitempty" toml:"max_records"`

	// Path is the file the config was loaded from, if any.
	Path string `json:"-" toml:"-"`
}

// Default returns the configuration used when no file is found.
func Default() Config {
	return Config{Format: FormatText}
}

// schema closes the accepted CUE fields.
const schema = `
#Config: {
	templates_dir?:  string
	index?:          string
	platform?:       string
	format?:         "text" | "json" | "yaml"
	lowercase_keys?: bool
	db?:             string
	max_records?:    int & >=0
}
`

// Find returns the first config file present in dir.
func Find(dir string) (string, bool) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// Load reads a config file, choosing the decoder by extension. Relative
// paths in the file are resolved against the file's directory.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		cfg, err = decodeCUE(path, data)
	case ".toml":
		cfg, err = decodeTOML(data)
	default:
		return Config{}, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}

	if cfg.Format == "" {
		cfg.Format = FormatText
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Path = path
	return cfg.resolve(filepath.Dir(path)), nil
}

// LoadDir loads the config found in dir, or Default() when there is none.
func LoadDir(dir string) (Config, error) {
	path, ok := Find(dir)
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

func decodeCUE(path string, data []byte) (Config, error) {
	ctx := cuecontext.New()

	def := ctx.CompileString(schema).LookupPath(cue.ParsePath("#Config"))
	if err := def.Err(); err != nil {
		return Config{}, fmt.Errorf("config schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return Config{}, fmt.Errorf("compile CUE: %w", err)
	}
	v = def.Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, fmt.Errorf("validate CUE: %w", err)
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode CUE: %w", err)
	}
	return cfg, nil
}

func decodeTOML(data []byte) (Config, error) {
	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("decode TOML: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("unknown TOML keys: %s", strings.Join(keys, ", "))
	}
	return cfg, nil
}

// Validate checks field values.
func (c Config) Validate() error {
	switch c.Format {
	case FormatText, FormatJSON, FormatYAML:
	default:
		return fmt.Errorf("format %q: must be text, json or yaml", c.Format)
	}
	if c.MaxRecords < 0 {
		return fmt.Errorf("max_records %d: must not be negative", c.MaxRecords)
	}
	return nil
}

func (c Config) resolve(base string) Config {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	c.TemplatesDir = abs(c.TemplatesDir)
	c.Index = abs(c.Index)
	c.DB = abs(c.DB)
	return c
}
