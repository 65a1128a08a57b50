// Package config reads the TOML description of a collection.
package config

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/tobsdb/tdbstore/internal/schema"
	"github.com/tobsdb/tdbstore/internal/store"
	"github.com/tobsdb/tdbstore/pkg"
)

type Config struct {
	// Schema is the schema file, relative to the config file.
	Schema     string           `toml:"schema"`
	Model      string           `toml:"model"`
	LogLevel   string           `toml:"log_level"`
	Collection CollectionConfig `toml:"collection"`
}

type CollectionConfig struct {
	MaxRecords        int      `toml:"max_records"`
	MinRecords        int      `toml:"min_records"`
	Eviction          string   `toml:"eviction"` // "", "none", "fifo" or "lifo"
	EvictionLimit     int      `toml:"eviction_limit,omitempty"`
	RejectDuplicates  bool     `toml:"reject_duplicates"`
	SoftDelete        bool     `toml:"soft_delete"`
	SoftDeleteTTL     Duration `toml:"soft_delete_ttl,omitempty"`
	AutoRemoveExpired bool     `toml:"auto_remove_expired"`
	Indexes           []string `toml:"indexes"`
}

// Duration decodes from strings such as "90s" or "10m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", text)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}
	return &cfg, nil
}

func Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return errors.Wrap(err, "failed to encode config")
	}
	return nil
}

// ReadFromFile reads a Config and resolves its schema path against the
// directory of path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open config file")
	}
	defer f.Close()

	cfg, err := Read(f)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config from %s", path)
	}
	if len(cfg.Schema) > 0 && !filepath.IsAbs(cfg.Schema) {
		cfg.Schema = filepath.Join(filepath.Dir(path), cfg.Schema)
	}
	return cfg, nil
}

// Validate checks the values that do not need the schema.
func (cfg *Config) Validate() error {
	if len(cfg.Schema) == 0 {
		return errors.New("config: schema is required")
	}
	if len(cfg.Model) == 0 {
		return errors.New("config: model is required")
	}
	if _, err := store.ParseEvictionPolicy(cfg.Collection.Eviction); err != nil {
		return errors.Wrap(err, "config")
	}
	return nil
}

// ApplyLogLevel sets the process log level if the config names one.
func (cfg *Config) ApplyLogLevel() {
	if len(cfg.LogLevel) > 0 {
		pkg.SetLogLevel(pkg.ParseLogLevel(cfg.LogLevel))
	}
}

// Options builds collection options for the configured model of s.
func (cfg *Config) Options(s *schema.Schema) (store.Options, error) {
	if err := cfg.Validate(); err != nil {
		return store.Options{}, err
	}
	model, ok := s.Model(cfg.Model)
	if !ok {
		return store.Options{}, errors.Errorf("config: model %s is not declared in %s", cfg.Model, cfg.Schema)
	}
	eviction, _ := store.ParseEvictionPolicy(cfg.Collection.Eviction)

	c := cfg.Collection
	return store.Options{
		Model:             model,
		MaxRecords:        c.MaxRecords,
		MinRecords:        c.MinRecords,
		Eviction:          eviction,
		EvictionLimit:     c.EvictionLimit,
		RejectDuplicates:  c.RejectDuplicates,
		SoftDelete:        c.SoftDelete,
		SoftDeleteTTL:     c.SoftDeleteTTL.Duration,
		AutoRemoveExpired: c.AutoRemoveExpired,
		Indexes:           c.Indexes,
	}, nil
}

// Open reads the config at path, parses its schema and builds the
// collection it describes.
func Open(path string, proxy store.Proxy) (*store.Collection, *Config, error) {
	cfg, err := ReadFromFile(path)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	cfg.ApplyLogLevel()

	s, err := schema.ParseSchemaFile(cfg.Schema)
	if err != nil {
		return nil, nil, err
	}
	opts, err := cfg.Options(s)
	if err != nil {
		return nil, nil, err
	}
	opts.Proxy = proxy

	c, err := store.NewCollection(opts)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "collection %s", cfg.Model)
	}
	pkg.DebugLog("opened collection", cfg.Model, "from", path)
	return c, cfg, nil
}
