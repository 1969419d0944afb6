// Package wasmloader bootstraps precompiled WebAssembly applications inside
// a Go host.
//
// A bootstrap either fetches a single engine artifact and starts it, or
// registers a background worker and loads every module listed by an
// entrypoint document. Artifacts are fetched over HTTP or from an
// S3-compatible object store, recorded in an asset registry, and activated
// with wazero.
//
// # Architecture Overview
//
//	wasmloader/
//	├── bootstrap/       Orchestrator: strategy choice, progress, error reporting
//	├── loader/          Engine loader: fetch, activate, start, run (memoized)
//	├── deps/            Dependency module loader and entrypoint manifest
//	├── worker/          Worker coordinator, lifecycle states, in-process container
//	├── engine/          wazero activation with tagged entry lookup
//	├── fetch/           HTTP and object store transports
//	├── asset/           Registry of materialized artifacts
//	├── config/          YAML and environment configuration
//	├── errors/          Structured error types
//	└── cmd/wasmboot/    Command-line loader with optional progress display
//
// # Quick Start
//
//	eng, err := engine.New(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close(ctx)
//
//	fetcher, _ := fetch.NewHTTP("https://cdn.example.com/app/", nil)
//	l, err := bootstrap.New(bootstrap.Config{}, bootstrap.Host{
//	    Fetcher: fetcher,
//	    Engine:  eng,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	app, err := l.LoadEntrypoint(ctx, bootstrap.Options{
//	    OnProgress: func(p float64) { fmt.Printf("%3.0f%%\n", p*100) },
//	})
//
// # Worker-backed Loading
//
// Setting Config.ServiceWorker switches to the worker strategy. The worker
// is registered through Host.Workers, then the entrypoint document is
// fetched and its modules are activated one after another, each at most
// once:
//
//	cfg := bootstrap.Config{
//	    ServiceWorker: &worker.Config{
//	        Content: map[string]map[string]string{
//	            "main": {"a.wasm": "3f2a"},
//	        },
//	    },
//	    OnWorkerInitialized: func() { log.Println("worker ready") },
//	}
//	host.Workers = worker.NewLocalContainer(logger)
//
// The entrypoint document is JSON:
//
//	{"modules": ["a.wasm", "b.wasm"]}
//
// # Error Handling
//
// Errors are *errors.Error values carrying a Phase and Kind:
//
//	if errors.IsNetwork(err) {
//	    // fetch failed; err.Error() names the URL and status
//	}
//
// # Thread Safety
//
// asset.Registry, engine.Engine and loader.EngineLoader are safe for
// concurrent use. AppLoader.LoadEntrypoint is sequential: call it from one
// goroutine at a time.
package wasmloader
