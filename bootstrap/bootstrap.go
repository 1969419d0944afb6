package bootstrap

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-loader/asset"
	"github.com/wippyai/wasm-loader/deps"
	"github.com/wippyai/wasm-loader/engine"
	"github.com/wippyai/wasm-loader/errors"
	"github.com/wippyai/wasm-loader/fetch"
	"github.com/wippyai/wasm-loader/loader"
	"github.com/wippyai/wasm-loader/worker"
)

const (
	ProgressStarted       = 0.1
	ProgressEngineLoaded  = 0.3
	ProgressEngineStarted = 0.6
	ProgressAppRunning    = 1.0
)

// Config is supplied by the host and is not modified by the loader.
type Config struct {
	// ServiceWorker selects the worker-backed strategy when non-nil.
	ServiceWorker       *worker.Config
	OnUpdateFound       func()
	OnWorkerInitialized func()

	// EngineURL defaults to loader.DefaultEngineURL.
	EngineURL string
	// EntrypointURL defaults to deps.DefaultEntrypointURL.
	EntrypointURL string
	// StrictModules fails modules that export no entry point.
	StrictModules bool
}

// Host provides the loader's collaborators.
type Host struct {
	Fetcher fetch.Fetcher
	Engine  *engine.Engine
	// Assets defaults to a new registry.
	Assets *asset.Registry
	// Workers is the worker subsystem; nil means none is available.
	Workers worker.Container
	Logger  *zap.Logger
	// EngineLoader overrides the loader shared by every AppLoader on Engine
	// for the configured engine URL.
	EngineLoader *loader.EngineLoader
}

// Options are per-call hooks. Nil fields are skipped, except that a nil
// OnError logs the error.
type Options struct {
	OnProgress func(float64)
	OnError    func(error)
}

// App is the outcome of a successful LoadEntrypoint.
type App struct {
	Session string
	// Modules lists the dependency loads of the worker-backed strategy.
	Modules []deps.Result
}

// RunApp is a no-op: the application already ran during LoadEntrypoint.
func (a *App) RunApp(ctx context.Context) error {
	return nil
}

type AppLoader struct {
	cfg         Config
	host        Host
	engine      *loader.EngineLoader
	coordinator *worker.Coordinator
	logger      *zap.Logger
}

func New(cfg Config, host Host) (*AppLoader, error) {
	if host.Fetcher == nil {
		return nil, errors.InvalidInput(errors.PhaseConfig, "host fetcher is required")
	}
	if host.Engine == nil {
		return nil, errors.InvalidInput(errors.PhaseConfig, "host engine is required")
	}
	if host.Assets == nil {
		host.Assets = asset.NewRegistry()
	}
	if host.Logger == nil {
		host.Logger = zap.NewNop()
	}
	if cfg.EntrypointURL == "" {
		cfg.EntrypointURL = deps.DefaultEntrypointURL
	}
	engineLoader := host.EngineLoader
	if engineLoader == nil {
		engineLoader = loader.Shared(host.Fetcher, host.Engine, host.Assets, cfg.EngineURL, host.Logger)
	}

	return &AppLoader{
		cfg:         cfg,
		host:        host,
		engine:      engineLoader,
		coordinator: worker.NewCoordinator(host.Workers, host.Logger),
		logger:      host.Logger,
	}, nil
}

// Assets returns the registry every loaded artifact is recorded in.
func (l *AppLoader) Assets() *asset.Registry {
	return l.host.Assets
}

// Coordinator returns the worker coordinator, for subscribing to
// transitions or waiting for its watchers.
func (l *AppLoader) Coordinator() *worker.Coordinator {
	return l.coordinator
}

// LoadEntrypoint loads and starts the application.
func (l *AppLoader) LoadEntrypoint(ctx context.Context, opts Options) (*App, error) {
	session := uuid.NewString()
	log := l.logger.With(zap.String("session", session))

	progress := opts.OnProgress
	if progress == nil {
		progress = func(float64) {}
	}
	onError := opts.OnError
	if onError == nil {
		onError = func(err error) {
			log.Error("bootstrap failed", zap.Error(err))
		}
	}

	app := &App{Session: session}
	var err error
	if l.cfg.ServiceWorker != nil {
		log.Info("loading entrypoint with worker",
			zap.String("entrypoint", l.cfg.EntrypointURL),
			zap.String("script", l.cfg.ServiceWorker.ScriptURL()))
		app.Modules, err = l.loadWithWorker(ctx, log)
	} else {
		log.Info("loading engine", zap.String("url", l.engine.URL()))
		err = l.loadDirect(ctx, progress)
	}

	if err != nil {
		onError(err)
		return nil, err
	}

	log.Info("entrypoint loaded", zap.Int("assets", l.host.Assets.Len()))
	return app, nil
}

func (l *AppLoader) loadWithWorker(ctx context.Context, log *zap.Logger) ([]deps.Result, error) {
	err := l.coordinator.Load(ctx, l.cfg.ServiceWorker, worker.Callbacks{
		OnUpdateFound:       l.cfg.OnUpdateFound,
		OnWorkerInitialized: l.cfg.OnWorkerInitialized,
	})
	if err != nil {
		return nil, err
	}

	doc, err := l.host.Fetcher.Fetch(ctx, fetch.Request{URL: l.cfg.EntrypointURL, WorkerScript: true})
	if err != nil {
		return nil, err
	}
	manifest, err := deps.ParseManifest(l.cfg.EntrypointURL, doc)
	if err != nil {
		return nil, err
	}

	log.Debug("module manifest", zap.Strings("modules", manifest.Modules))

	modules := deps.NewLoader(l.host.Fetcher, l.host.Engine, l.host.Assets, deps.Options{
		Logger: log,
		Strict: l.cfg.StrictModules,
	})
	return modules.LoadAll(ctx, manifest.Modules)
}

func (l *AppLoader) loadDirect(ctx context.Context, progress func(float64)) error {
	progress(ProgressStarted)

	initializer, err := l.engine.Load(ctx)
	if err != nil {
		return err
	}
	progress(ProgressEngineLoaded)

	runner, err := initializer.Start(ctx)
	if err != nil {
		return err
	}
	progress(ProgressEngineStarted)

	if err := runner.Run(ctx); err != nil {
		return err
	}
	progress(ProgressAppRunning)
	return nil
}
