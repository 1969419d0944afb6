package engine

import (
	"context"
	"io"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-loader/errors"
)

const (
	DefaultEntrySymbol = "main"
	DefaultAppSymbol   = "run_app"
)

// Config holds configuration for engine creation
type Config struct {
	// Stdout and Stderr receive guest output. Nil discards it.
	Stdout io.Writer
	Stderr io.Writer

	// EntrySymbol is the export invoked to start an artifact.
	// Empty means DefaultEntrySymbol.
	EntrySymbol string

	// AppSymbol is the optional export that runs the started application.
	// Empty means DefaultAppSymbol.
	AppSymbol string

	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	MemoryLimitPages uint32

	// EnableWASI instantiates wasi_snapshot_preview1 for artifacts that import it.
	EnableWASI bool
}

// Artifact is a fetched and materialized module ready for activation.
type Artifact struct {
	// URL is where the artifact was fetched from; used in errors.
	URL string
	// LocalURL is the materialized reference; used as the module name.
	LocalURL string
	Code     []byte
}

// Engine compiles and instantiates artifacts in one wazero runtime.
type Engine struct {
	runtime wazero.Runtime
	cfg     Config
}

func New(ctx context.Context) (*Engine, error) {
	return NewWithConfig(ctx, nil)
}

// NewWithConfig creates an engine with custom configuration
func NewWithConfig(ctx context.Context, cfg *Config) (*Engine, error) {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	if c.EntrySymbol == "" {
		c.EntrySymbol = DefaultEntrySymbol
	}
	if c.AppSymbol == "" {
		c.AppSymbol = DefaultAppSymbol
	}

	runtimeCfg := wazero.NewRuntimeConfig()
	if c.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(c.MemoryLimitPages)
	}
	runtime := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	if c.EnableWASI {
		if _, err := wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
			_ = runtime.Close(ctx)
			return nil, errors.New(errors.PhaseActivate, errors.KindActivation).
				Cause(err).
				Detail("instantiate WASI").
				Build()
		}
	}

	return &Engine{runtime: runtime, cfg: c}, nil
}

// Runtime returns the underlying wazero runtime for registering host modules.
func (e *Engine) Runtime() wazero.Runtime {
	return e.runtime
}

func (e *Engine) EntrySymbol() string {
	return e.cfg.EntrySymbol
}

func (e *Engine) AppSymbol() string {
	return e.cfg.AppSymbol
}

// Activate compiles and instantiates an artifact. Start functions are not
// run; the caller decides whether and when to invoke the entry point.
func (e *Engine) Activate(ctx context.Context, a Artifact) (*Activation, error) {
	if a.LocalURL == "" {
		return nil, errors.InvalidInput(errors.PhaseActivate, "artifact has no local reference")
	}

	compiled, err := e.runtime.CompileModule(ctx, a.Code)
	if err != nil {
		return nil, errors.Activation(a.URL, err)
	}

	modCfg := wazero.NewModuleConfig().
		WithName(a.LocalURL).
		WithStartFunctions()
	if e.cfg.Stdout != nil {
		modCfg = modCfg.WithStdout(e.cfg.Stdout)
	}
	if e.cfg.Stderr != nil {
		modCfg = modCfg.WithStderr(e.cfg.Stderr)
	}

	mod, err := e.runtime.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		if closeErr := compiled.Close(ctx); closeErr != nil {
			Logger().Warn("close compiled module",
				zap.String("url", a.URL),
				zap.Error(closeErr))
		}
		return nil, errors.Activation(a.URL, err)
	}

	act := &Activation{
		url:      a.URL,
		module:   mod,
		compiled: compiled,
	}

	entry, err := act.lookup(e.cfg.EntrySymbol)
	if err != nil {
		_ = act.Close(ctx)
		return nil, err
	}
	act.entry = entry

	Logger().Debug("activated artifact",
		zap.String("url", a.URL),
		zap.String("local_url", a.LocalURL),
		zap.Bool("has_entry", entry != nil))

	return act, nil
}

func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}
