package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/wasm-loader/asset"
	"github.com/wippyai/wasm-loader/bootstrap"
	"github.com/wippyai/wasm-loader/config"
	"github.com/wippyai/wasm-loader/engine"
	"github.com/wippyai/wasm-loader/fetch"
	"github.com/wippyai/wasm-loader/worker"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Path to YAML configuration")
		base        = flag.String("base", "", "Base URL artifacts are resolved against")
		engineURL   = flag.String("engine", "", "Engine artifact (default main.wasm)")
		entrypoint  = flag.String("entrypoint", "", "Entrypoint document listing modules (default index.html)")
		swURL       = flag.String("sw", "", "Worker script URL; enables the worker-backed strategy")
		strict      = flag.Bool("strict", false, "Fail modules without an entry point")
		wasi        = flag.Bool("wasi", false, "Provide wasi_snapshot_preview1 to artifacts")
		verbose     = flag.Bool("v", false, "Verbose development logging")
		interactive = flag.Bool("i", false, "Interactive mode with progress display")
	)
	flag.Parse()

	cfg, err := loadConfig(*configFile, *swURL, config.Config{
		Base:          *base,
		Engine:        *engineURL,
		Entrypoint:    *entrypoint,
		StrictModules: *strict,
		Runtime:       config.RuntimeConfig{WASI: *wasi},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Usage: wasmboot [-config file.yaml] [-base url] [-engine main.wasm] [-sw service_worker.js] [-i]")
		os.Exit(1)
	}

	// Log and guest output would tear the progress display.
	tui := *interactive && term.IsTerminal(int(os.Stdout.Fd()))

	logger, err := newLogger(*verbose, tui)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	engine.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if tui {
		err = runInteractive(ctx, cfg, logger)
	} else {
		err = run(ctx, cfg, logger)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path, script string, flags config.Config) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.LoadFromFile(path); err != nil {
			return config.Config{}, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return config.Config{}, err
	}
	cfg = cfg.Merge(flags)
	if script != "" {
		if cfg.ServiceWorker == nil {
			cfg.ServiceWorker = &worker.Config{}
		}
		cfg.ServiceWorker.URL = script
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newLogger(verbose, tui bool) (*zap.Logger, error) {
	switch {
	case tui:
		return zap.NewNop(), nil
	case verbose:
		return zap.NewDevelopment()
	default:
		return zap.NewProduction()
	}
}

// session holds everything one wasmboot invocation wires together.
type session struct {
	loader  *bootstrap.AppLoader
	engine  *engine.Engine
	workers *worker.LocalContainer
	ready   chan struct{}
}

func (s *session) Close(ctx context.Context) error {
	return s.engine.Close(ctx)
}

func newFetcher(cfg config.Config) (fetch.Fetcher, error) {
	h, err := fetch.NewHTTP(cfg.Base, nil)
	if err != nil {
		return nil, err
	}
	router := &fetch.Router{Default: h}
	if cfg.ObjectStore != nil {
		store, err := fetch.NewObjectStore(*cfg.ObjectStore)
		if err != nil {
			return nil, err
		}
		router.Schemes = map[string]fetch.Fetcher{fetch.SchemeObjectStore: store}
	}
	return router, nil
}

// newSession builds the loader. hooks may be nil; it receives worker
// lifecycle and asset notifications as they happen.
func newSession(ctx context.Context, cfg config.Config, ecfg *engine.Config, logger *zap.Logger, hooks func(string)) (*session, error) {
	fetcher, err := newFetcher(cfg)
	if err != nil {
		return nil, err
	}

	eng, err := engine.NewWithConfig(ctx, ecfg)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	notify := func(event string) {
		logger.Info(event)
		if hooks != nil {
			hooks(event)
		}
	}

	s := &session{engine: eng, ready: make(chan struct{})}
	var once sync.Once
	bcfg := cfg.Bootstrap()
	bcfg.OnUpdateFound = func() { notify("update found") }
	bcfg.OnWorkerInitialized = func() {
		notify("worker initialized")
		once.Do(func() { close(s.ready) })
	}

	assets := asset.NewRegistry()
	assets.Subscribe(asset.ObserverFunc(func(r asset.Record) {
		logger.Debug("asset loaded",
			zap.String("url", r.URL),
			zap.String("local_url", r.LocalURL))
		if hooks != nil {
			hooks("loaded " + r.URL)
		}
	}))

	host := bootstrap.Host{Fetcher: fetcher, Engine: eng, Assets: assets, Logger: logger}
	if cfg.ServiceWorker != nil {
		s.workers = worker.NewLocalContainer(logger)
		host.Workers = s.workers
	}

	s.loader, err = bootstrap.New(bcfg, host)
	if err != nil {
		eng.Close(ctx)
		return nil, err
	}
	return s, nil
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	ecfg := cfg.EngineConfig()
	ecfg.Stdout = os.Stdout
	ecfg.Stderr = os.Stderr

	s, err := newSession(ctx, cfg, ecfg, logger, nil)
	if err != nil {
		return err
	}
	defer s.Close(context.Background())

	app, err := s.loader.LoadEntrypoint(ctx, bootstrap.Options{
		OnProgress: func(p float64) {
			logger.Info("progress", zap.Float64("progress", p))
		},
		// The error is printed by main.
		OnError: func(error) {},
	})
	if err != nil {
		return err
	}

	if s.workers != nil {
		select {
		case <-s.ready:
		case <-ctx.Done():
		}
	}

	fmt.Printf("Session: %s\n", app.Session)
	if len(app.Modules) > 0 {
		fmt.Printf("Modules:\n")
		for _, r := range app.Modules {
			state := "invoked"
			switch {
			case r.Skipped:
				state = "skipped"
			case !r.Invoked:
				state = "no entry"
			}
			fmt.Printf("  %s (%s)\n", r.URL, state)
		}
	}
	fmt.Printf("Assets: %d\n", s.loader.Assets().Len())
	return app.RunApp(ctx)
}
