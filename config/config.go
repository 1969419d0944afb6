package config

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/wasm-loader/bootstrap"
	"github.com/wippyai/wasm-loader/deps"
	"github.com/wippyai/wasm-loader/engine"
	"github.com/wippyai/wasm-loader/errors"
	"github.com/wippyai/wasm-loader/fetch"
	"github.com/wippyai/wasm-loader/loader"
	"github.com/wippyai/wasm-loader/worker"
)

// EnvPrefix prefixes every environment variable read by LoadFromEnv.
const EnvPrefix = "WASMBOOT_"

// Config defines configuration for the wasmboot CLI.
type Config struct {
	// Base is the URL relative artifact references resolve against.
	Base          string                   `yaml:"base"`
	Engine        string                   `yaml:"engine"`
	Entrypoint    string                   `yaml:"entrypoint"`
	StrictModules bool                     `yaml:"strict_modules"`
	ServiceWorker *worker.Config           `yaml:"service_worker"`
	Runtime       RuntimeConfig            `yaml:"runtime"`
	ObjectStore   *fetch.ObjectStoreConfig `yaml:"object_store"`
}

// RuntimeConfig configures the wazero engine.
type RuntimeConfig struct {
	EntrySymbol      string `yaml:"entry_symbol"`
	AppSymbol        string `yaml:"app_symbol"`
	MemoryLimitPages uint32 `yaml:"memory_limit_pages"`
	WASI             bool   `yaml:"wasi"`
}

// Default returns a Config with the loader's default artifact names.
func Default() Config {
	return Config{
		Engine:     loader.DefaultEngineURL,
		Entrypoint: deps.DefaultEntrypointURL,
		Runtime: RuntimeConfig{
			EntrySymbol: engine.DefaultEntrySymbol,
			AppSymbol:   engine.DefaultAppSymbol,
		},
	}
}

// LoadFromFile loads configuration from a YAML file on top of Default.
// Unknown keys are rejected.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration on top of Default.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !stderrors.Is(err, io.EOF) {
		return Config{}, errors.New(errors.PhaseConfig, errors.KindInvalidData).
			Cause(err).
			Detail("parse config").
			Build()
	}
	return cfg, nil
}

// LoadFromEnv overrides c from WASMBOOT_* environment variables.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv(EnvPrefix + "BASE"); v != "" {
		c.Base = v
	}
	if v := os.Getenv(EnvPrefix + "ENGINE"); v != "" {
		c.Engine = v
	}
	if v := os.Getenv(EnvPrefix + "ENTRYPOINT"); v != "" {
		c.Entrypoint = v
	}
	if v := os.Getenv(EnvPrefix + "SERVICE_WORKER"); v != "" {
		if c.ServiceWorker == nil {
			c.ServiceWorker = &worker.Config{}
		}
		c.ServiceWorker.URL = v
	}
	if v := os.Getenv(EnvPrefix + "MEMORY_LIMIT_PAGES"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("parse %sMEMORY_LIMIT_PAGES: %w", EnvPrefix, err)
		}
		c.Runtime.MemoryLimitPages = uint32(n)
	}
	if v := os.Getenv(EnvPrefix + "WASI"); v != "" {
		c.Runtime.WASI = v == "true" || v == "1"
	}

	access := os.Getenv(EnvPrefix + "S3_ACCESS_KEY")
	secret := os.Getenv(EnvPrefix + "S3_SECRET_KEY")
	endpoint := os.Getenv(EnvPrefix + "S3_ENDPOINT")
	if access != "" || secret != "" || endpoint != "" {
		if c.ObjectStore == nil {
			c.ObjectStore = &fetch.ObjectStoreConfig{}
		}
		if endpoint != "" {
			c.ObjectStore.Endpoint = endpoint
		}
		if access != "" {
			c.ObjectStore.AccessKey = access
		}
		if secret != "" {
			c.ObjectStore.SecretKey = secret
		}
	}
	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored.
func (c Config) Merge(override Config) Config {
	if override.Base != "" {
		c.Base = override.Base
	}
	if override.Engine != "" {
		c.Engine = override.Engine
	}
	if override.Entrypoint != "" {
		c.Entrypoint = override.Entrypoint
	}
	if override.StrictModules {
		c.StrictModules = true
	}
	if override.ServiceWorker != nil {
		c.ServiceWorker = override.ServiceWorker
	}
	if override.ObjectStore != nil {
		c.ObjectStore = override.ObjectStore
	}
	if override.Runtime.EntrySymbol != "" {
		c.Runtime.EntrySymbol = override.Runtime.EntrySymbol
	}
	if override.Runtime.AppSymbol != "" {
		c.Runtime.AppSymbol = override.Runtime.AppSymbol
	}
	if override.Runtime.MemoryLimitPages != 0 {
		c.Runtime.MemoryLimitPages = override.Runtime.MemoryLimitPages
	}
	if override.Runtime.WASI {
		c.Runtime.WASI = true
	}
	return c
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Engine == "" && c.ServiceWorker == nil {
		return errors.InvalidInput(errors.PhaseConfig, "engine artifact is required")
	}
	if c.ServiceWorker != nil && c.Entrypoint == "" {
		return errors.InvalidInput(errors.PhaseConfig, "entrypoint is required with a service worker")
	}
	if c.ObjectStore != nil && c.ObjectStore.Endpoint == "" {
		return errors.InvalidInput(errors.PhaseConfig, "object_store.endpoint is required")
	}
	if c.Runtime.MemoryLimitPages > 65536 {
		return errors.InvalidInput(errors.PhaseConfig, "runtime.memory_limit_pages exceeds 65536")
	}
	return nil
}

// Bootstrap returns the orchestrator configuration.
func (c *Config) Bootstrap() bootstrap.Config {
	return bootstrap.Config{
		ServiceWorker: c.ServiceWorker,
		EngineURL:     c.Engine,
		EntrypointURL: c.Entrypoint,
		StrictModules: c.StrictModules,
	}
}

// EngineConfig returns the wazero engine configuration.
func (c *Config) EngineConfig() *engine.Config {
	return &engine.Config{
		EntrySymbol:      c.Runtime.EntrySymbol,
		AppSymbol:        c.Runtime.AppSymbol,
		MemoryLimitPages: c.Runtime.MemoryLimitPages,
		EnableWASI:       c.Runtime.WASI,
	}
}
