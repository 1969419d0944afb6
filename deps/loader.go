package deps

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-loader/asset"
	"github.com/wippyai/wasm-loader/engine"
	"github.com/wippyai/wasm-loader/errors"
	"github.com/wippyai/wasm-loader/fetch"
)

type Options struct {
	Logger *zap.Logger
	// Strict turns a module without an entry export into an error.
	Strict bool
}

// Result describes one LoadModule call.
type Result struct {
	URL      string
	LocalURL string
	// Skipped is set when the URL was already loaded or reserved.
	Skipped bool
	// Invoked is set when the module's entry point ran.
	Invoked bool
}

// BatchError reports a LoadAll failure together with the modules loaded
// before it.
type BatchError struct {
	Err    error
	Failed string
	Loaded []Result
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("load module %s after %d loaded: %v", e.Failed, len(e.Loaded), e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// Loader loads dependency modules, each URL at most once.
type Loader struct {
	fetcher fetch.Fetcher
	engine  *engine.Engine
	assets  *asset.Registry
	logger  *zap.Logger
	loaded  map[string]struct{}
	strict  bool
	mu      sync.Mutex
}

func NewLoader(f fetch.Fetcher, eng *engine.Engine, assets *asset.Registry, opts Options) *Loader {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		fetcher: f,
		engine:  eng,
		assets:  assets,
		logger:  logger,
		loaded:  make(map[string]struct{}),
		strict:  opts.Strict,
	}
}

// reserve marks url as loaded and reports whether it was new.
func (l *Loader) reserve(url string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.loaded[url]; ok {
		return false
	}
	l.loaded[url] = struct{}{}
	return true
}

// reserved reports whether url has been reserved.
func (l *Loader) reserved(url string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.loaded[url]
	return ok
}

// LoadModule fetches, activates and runs one module.
func (l *Loader) LoadModule(ctx context.Context, url string) (Result, error) {
	if !l.reserve(url) {
		l.logger.Debug("module already loaded", zap.String("url", url))
		return Result{URL: url, Skipped: true}, nil
	}

	data, err := l.fetcher.Fetch(ctx, fetch.Request{URL: url, WorkerScript: true})
	if err != nil {
		return Result{URL: url}, err
	}

	rec := l.assets.Materialize(url, data)
	code, err := l.assets.Contents(rec)
	if err != nil {
		return Result{URL: url, LocalURL: rec.LocalURL}, err
	}

	act, err := l.engine.Activate(ctx, engine.Artifact{
		URL:      url,
		LocalURL: rec.LocalURL,
		Code:     code,
	})
	if err != nil {
		return Result{URL: url, LocalURL: rec.LocalURL}, err
	}

	res := Result{URL: url, LocalURL: rec.LocalURL}
	switch act.Outcome() {
	case engine.EntryFound:
		entry, _ := act.Entry()
		if err := entry.Invoke(ctx); err != nil {
			return res, err
		}
		res.Invoked = true
	case engine.MissingEntry:
		if l.strict {
			return res, errors.MissingEntry(url, l.engine.EntrySymbol())
		}
		l.logger.Debug("module has no entry point",
			zap.String("url", url),
			zap.String("symbol", l.engine.EntrySymbol()))
	}

	l.logger.Debug("module loaded",
		zap.String("url", url),
		zap.String("local_url", rec.LocalURL),
		zap.Bool("invoked", res.Invoked))

	return res, nil
}

// LoadAll loads urls in order, stopping at the first failure.
func (l *Loader) LoadAll(ctx context.Context, urls []string) ([]Result, error) {
	results := make([]Result, 0, len(urls))
	for _, url := range urls {
		res, err := l.LoadModule(ctx, url)
		if err != nil {
			return results, &BatchError{Err: err, Failed: url, Loaded: results}
		}
		results = append(results, res)
	}
	return results, nil
}
