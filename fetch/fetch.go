package fetch

import (
	"context"
	"net/url"
	"strings"
)

// HeaderServiceWorker marks a request as a worker-controlled script fetch.
const HeaderServiceWorker = "Service-Worker"

type Request struct {
	URL string
	// WorkerScript tags the request as a worker-controlled script fetch.
	WorkerScript bool
}

// Fetcher retrieves an artifact payload.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) ([]byte, error)
}

// Func adapts a function to Fetcher.
type Func func(ctx context.Context, req Request) ([]byte, error)

func (f Func) Fetch(ctx context.Context, req Request) ([]byte, error) {
	return f(ctx, req)
}

// Router dispatches requests by URL scheme, falling back to Default.
type Router struct {
	Default Fetcher
	Schemes map[string]Fetcher
}

func (r *Router) Fetch(ctx context.Context, req Request) ([]byte, error) {
	if u, err := url.Parse(req.URL); err == nil && u.Scheme != "" {
		if f, ok := r.Schemes[strings.ToLower(u.Scheme)]; ok {
			return f.Fetch(ctx, req)
		}
	}
	return r.Default.Fetch(ctx, req)
}
