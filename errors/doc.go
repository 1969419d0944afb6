// Package errors provides structured error types for the wasm-loader library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). Three kinds are terminal for a bootstrap and are what callers
// usually branch on:
//
//	KindNetwork       fetch returned a non-success status or failed in transport
//	KindActivation    artifact could not be compiled, instantiated or run
//	KindMissingEntry  artifact activated but does not export its entry symbol
//	KindRegistration  background worker failed to register
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseFetch, errors.KindNetwork).
//		URL("https://cdn.example.com/main.wasm").
//		Status(503).
//		Detail("origin unavailable").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Status(url, 404)
//	err := errors.MissingEntry(url, "main")
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
