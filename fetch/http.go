package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/wippyai/wasm-loader/errors"
)

// HTTP fetches artifacts over HTTP(S).
type HTTP struct {
	client *http.Client
	base   *url.URL
}

// NewHTTP creates a fetcher resolving relative URLs against base.
// An empty base leaves URLs untouched; a nil client uses http.DefaultClient.
func NewHTTP(base string, client *http.Client) (*HTTP, error) {
	if client == nil {
		client = http.DefaultClient
	}
	h := &HTTP{client: client}
	if base != "" {
		u, err := url.Parse(base)
		if err != nil {
			return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				URL(base).
				Cause(err).
				Detail("parse base URL %q", base).
				Build()
		}
		h.base = u
	}
	return h, nil
}

// Resolve returns ref resolved against the base URL.
func (h *HTTP) Resolve(ref string) string {
	if h.base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return h.base.ResolveReference(u).String()
}

func (h *HTTP) Fetch(ctx context.Context, req Request) ([]byte, error) {
	target := h.Resolve(req.URL)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.Transport(target, err)
	}
	if req.WorkerScript {
		httpReq.Header.Set(HeaderServiceWorker, "script")
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, errors.Transport(target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Status(target, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Transport(target, err)
	}
	return data, nil
}
