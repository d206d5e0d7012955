package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// Config is the complete pyco configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store" json:"store"`
	Replication ReplicationConfig `yaml:"replication" json:"replication"`
	Gateway     GatewayConfig     `yaml:"gateway" json:"gateway"`
}

// StoreConfig locates the local document store.
type StoreConfig struct {
	Path   string `yaml:"path" json:"path"`
	Driver string `yaml:"driver" json:"driver"`

	// ResetOnStart wipes the partition of each collection as it is opened.
	// Destructive; meant for development databases only.
	ResetOnStart bool `yaml:"reset_on_start" json:"reset_on_start"`
}

// ReplicationConfig describes the remote peer. An empty Endpoint disables
// replication.
type ReplicationConfig struct {
	Endpoint   string `yaml:"endpoint" json:"endpoint"`
	Database   string `yaml:"database" json:"database"`
	Username   string `yaml:"username" json:"username"`
	Password   string `yaml:"password" json:"password"`
	Continuous bool   `yaml:"continuous" json:"continuous"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

// GatewayConfig configures `pyco serve`.
type GatewayConfig struct {
	Listen string            `yaml:"listen" json:"listen"`
	Users  map[string]string `yaml:"users,omitempty" json:"users,omitempty"`
}

// Default returns the built-in configuration. Credentials are left empty.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Path:   "pyco.db",
			Driver: "sqlite3",
		},
		Replication: ReplicationConfig{
			Endpoint:   "206.81.31.63:4984",
			Database:   "getting-started-db",
			Continuous: true,
		},
		Gateway: GatewayConfig{
			Listen: ":4984",
		},
	}
}

// Load reads the file at path on top of Default. The format follows the
// extension.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	ctx := cuecontext.New()

	// CUE is evaluated to JSON, which the YAML decoder reads as well.
	var doc []byte
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		doc = data
	case ".cue":
		v := ctx.CompileBytes(data, cue.Filename(path))
		if err := v.Err(); err != nil {
			return Config{}, fmt.Errorf("compile %s: %w", path, err)
		}
		doc, err = v.MarshalJSON()
		if err != nil {
			return Config{}, fmt.Errorf("evaluate %s: %w", path, err)
		}
	default:
		return Config{}, fmt.Errorf("config %s: unsupported extension %q (want .yaml, .yml or .cue)", path, ext)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(doc, &raw); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	if err := validate(ctx, ctx.Encode(raw)); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(doc))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks c against the schema. Use it after applying command line
// overrides.
func (c Config) Validate() error {
	ctx := cuecontext.New()
	return validate(ctx, ctx.Encode(c))
}

func validate(ctx *cue.Context, v cue.Value) error {
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))
	if err := def.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
