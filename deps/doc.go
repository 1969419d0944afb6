// Package deps loads the dependency modules named by an entrypoint manifest.
//
// Modules are fetched as worker-controlled script requests, materialized
// into the asset registry, activated, and their entry point invoked at once.
// Each URL is loaded at most once per Loader: the URL is reserved before the
// fetch starts, so a repeated URL is skipped even if the first load failed.
//
//	l := deps.NewLoader(fetcher, eng, assets, deps.Options{})
//	results, err := l.LoadAll(ctx, manifest.Modules)
//
// LoadAll is strictly sequential. A module's entry point has returned before
// the next module is fetched, so later modules may rely on earlier ones.
// On failure LoadAll returns a *BatchError listing what loaded before it.
//
// A module without an entry export is activated and otherwise ignored unless
// Options.Strict is set.
package deps
