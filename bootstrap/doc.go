// Package bootstrap loads and starts a precompiled application.
//
// New binds a configuration to a Host and returns an AppLoader.
// AppLoader.LoadEntrypoint picks one of two strategies, once per call:
//
//	Config.ServiceWorker == nil   direct: fetch the engine artifact, start it, run it
//	Config.ServiceWorker != nil   worker-backed: register the worker, then load
//	                              every module listed by the entrypoint document
//
// There is no fallback between the two. The direct strategy reports
// progress in fixed steps:
//
//	ProgressStarted        0.1  before the engine is fetched
//	ProgressEngineLoaded   0.3  engine activated, entry point found
//	ProgressEngineStarted  0.6  entry point returned
//	ProgressAppRunning     1.0  application export returned
//
// Any failure is passed to Options.OnError (or logged when it is nil) and
// then returned.
//
//	loader, err := bootstrap.New(bootstrap.Config{}, bootstrap.Host{
//	    Fetcher: fetcher,
//	    Engine:  eng,
//	})
//	app, err := loader.LoadEntrypoint(ctx, bootstrap.Options{
//	    OnProgress: func(p float64) { fmt.Printf("%.0f%%\n", p*100) },
//	})
//
// The engine artifact is fetched and activated at most once per Engine and
// URL, across every AppLoader built on that Engine; each direct bootstrap
// still runs its entry point. The set of loaded dependency modules is scoped
// to a single LoadEntrypoint call.
package bootstrap
