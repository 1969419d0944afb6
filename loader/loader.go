// Package loader fetches the compiled program artifact and turns it into an
// application initializer.
//
// An EngineLoader memoizes its first successful result: later calls return
// the same Initializer without fetching or activating again. Failed loads
// are not memoized. Shared hands out one EngineLoader per engine and
// artifact URL, so the memo outlives any single bootstrap.
package loader

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-loader/asset"
	"github.com/wippyai/wasm-loader/engine"
	"github.com/wippyai/wasm-loader/errors"
	"github.com/wippyai/wasm-loader/fetch"
)

// DefaultEngineURL is the compiled program artifact path.
const DefaultEngineURL = "main.wasm"

type EngineLoader struct {
	fetcher fetch.Fetcher
	engine  *engine.Engine
	assets  *asset.Registry
	logger  *zap.Logger
	cached  *Initializer
	url     string
	mu      sync.Mutex
}

// NewEngineLoader creates a loader for the artifact at url. An empty url
// means DefaultEngineURL; a nil logger means no logging.
func NewEngineLoader(f fetch.Fetcher, eng *engine.Engine, assets *asset.Registry, url string, logger *zap.Logger) *EngineLoader {
	if url == "" {
		url = DefaultEngineURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EngineLoader{
		fetcher: f,
		engine:  eng,
		assets:  assets,
		url:     url,
		logger:  logger,
	}
}

type sharedKey struct {
	engine *engine.Engine
	url    string
}

var (
	shared   = make(map[sharedKey]*EngineLoader)
	sharedMu sync.Mutex
)

// Shared returns the EngineLoader for eng and url, creating it with the
// given collaborators on first use. Later calls for the same pair return
// that loader and ignore their other arguments. There is no way to drop an
// entry: the artifact is loaded at most once per engine.
func Shared(f fetch.Fetcher, eng *engine.Engine, assets *asset.Registry, url string, logger *zap.Logger) *EngineLoader {
	if url == "" {
		url = DefaultEngineURL
	}
	key := sharedKey{engine: eng, url: url}

	sharedMu.Lock()
	defer sharedMu.Unlock()
	if l, ok := shared[key]; ok {
		return l
	}
	l := NewEngineLoader(f, eng, assets, url, logger)
	shared[key] = l
	return l
}

func (l *EngineLoader) URL() string {
	return l.url
}

// Load returns the initializer, fetching and activating the artifact on
// first use.
func (l *EngineLoader) Load(ctx context.Context) (*Initializer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cached != nil {
		return l.cached, nil
	}

	data, err := l.fetcher.Fetch(ctx, fetch.Request{URL: l.url})
	if err != nil {
		return nil, err
	}

	rec := l.assets.Materialize(l.url, data)
	code, err := l.assets.Contents(rec)
	if err != nil {
		return nil, err
	}

	act, err := l.engine.Activate(ctx, engine.Artifact{
		URL:      l.url,
		LocalURL: rec.LocalURL,
		Code:     code,
	})
	if err != nil {
		return nil, err
	}

	switch act.Outcome() {
	case engine.EntryFound:
		entry, _ := act.Entry()
		l.cached = &Initializer{
			activation: act,
			entry:      entry,
			appSymbol:  l.engine.AppSymbol(),
			url:        l.url,
		}
	default:
		_ = act.Close(ctx)
		return nil, errors.MissingEntry(l.url, l.engine.EntrySymbol())
	}

	l.logger.Debug("engine loaded",
		zap.String("url", l.url),
		zap.String("local_url", rec.LocalURL),
		zap.Int("bytes", len(data)))

	return l.cached, nil
}

// Initializer wraps an activated program whose entry point has not run yet.
type Initializer struct {
	activation *engine.Activation
	entry      *engine.Entry
	appSymbol  string
	url        string
}

// Start invokes the entry point and returns a runner for the application.
func (i *Initializer) Start(ctx context.Context) (*AppRunner, error) {
	if err := i.entry.Invoke(ctx); err != nil {
		return nil, err
	}
	r := &AppRunner{url: i.url}
	if app, ok := i.activation.Export(i.appSymbol); ok {
		r.app = app
	}
	return r, nil
}

// AppRunner runs a started application exactly once.
type AppRunner struct {
	app  *engine.Entry
	url  string
	mu   sync.Mutex
	used bool
}

// Run invokes the application export if the artifact has one. A second
// call fails with errors.KindAlreadyRun.
func (r *AppRunner) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.used {
		r.mu.Unlock()
		return errors.AlreadyRun(r.url)
	}
	r.used = true
	r.mu.Unlock()

	if r.app == nil {
		return nil
	}
	return r.app.Invoke(ctx)
}
