// Package engine activates WebAssembly artifacts on wazero.
//
// Activation is the Go counterpart of dynamically importing a fetched
// script: the artifact is compiled, instantiated under a unique module name
// with start functions disabled, and its exports are inspected.
//
//	eng, err := engine.New(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close(ctx)
//
//	act, err := eng.Activate(ctx, engine.Artifact{
//	    URL:      "https://cdn.example.com/main.wasm",
//	    LocalURL: rec.LocalURL,
//	    Code:     data,
//	})
//
// # Entry Points
//
// Activate never probes exports on behalf of the caller. It returns a tagged
// result instead:
//
//	switch act.Outcome() {
//	case engine.EntryFound:
//	    entry, _ := act.Entry()
//	    err = entry.Invoke(ctx)
//	case engine.MissingEntry:
//	    // artifact activated but exports no entry symbol
//	}
//
// The entry symbol defaults to "main" and must be a nullary function. The
// optional application symbol ("run_app") is looked up with Export.
//
// # WASI
//
// With Config.EnableWASI the wasi_snapshot_preview1 host module is
// instantiated once per engine, so artifacts built by TinyGo, Rust or
// wasi-sdk can run. An entry point that calls proc_exit(0) is treated as a
// normal return.
//
// # Host Imports
//
// Runtime exposes the underlying wazero runtime. Host modules that
// artifacts import must be instantiated there before activation.
//
// # Thread Safety
//
// Engine is safe for concurrent use. Activation and Entry wrap a single
// wazero module instance and should be used by one goroutine.
package engine
