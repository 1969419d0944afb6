// Package asset records the code artifacts loaded during a bootstrap.
//
// Every fetched artifact (the engine bundle or a dependency module) is
// materialized into a Registry before activation. Materializing stores the
// raw bytes under a fresh local reference and appends a Record:
//
//	reg := asset.NewRegistry()
//	rec := reg.Materialize("https://cdn.example.com/main.wasm", data)
//	// rec.LocalURL == "blob:6f1c..."
//
//	data, ok := reg.Open(rec.LocalURL)
//
// The registry is append-only. Records are never removed and Records()
// always reflects load order, so an embedding host can treat it as the
// authoritative list of code loaded into the process.
//
// A Registry is an explicit accumulator: create one per host and pass it
// to the loaders instead of relying on process globals.
package asset
