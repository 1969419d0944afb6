package deps

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"

	"github.com/wippyai/wasm-loader/asset"
	"github.com/wippyai/wasm-loader/engine"
	"github.com/wippyai/wasm-loader/errors"
	"github.com/wippyai/wasm-loader/fetch"
	"github.com/wippyai/wasm-loader/internal/wasmtest"
)

// moduleServer serves module bytes by URL and records requests.
type moduleServer struct {
	modules  map[string][]byte
	requests []fetch.Request
	mu       sync.Mutex
}

func (s *moduleServer) Fetch(ctx context.Context, req fetch.Request) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	code, ok := s.modules[req.URL]
	if !ok {
		return nil, errors.Status(req.URL, 404)
	}
	return code, nil
}

func (s *moduleServer) count(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.URL == url {
			n++
		}
	}
	return n
}

func newTestLoader(t *testing.T, srv *moduleServer, opts Options) (*Loader, *wasmtest.Trace, *asset.Registry) {
	t.Helper()
	ctx := context.Background()
	eng, err := engine.New(ctx)
	if err != nil {
		t.Fatalf("create engine: %v", err)
	}
	t.Cleanup(func() { eng.Close(ctx) })

	trace, err := wasmtest.NewTrace(ctx, eng.Runtime())
	if err != nil {
		t.Fatalf("trace host: %v", err)
	}
	assets := asset.NewRegistry()
	return NewLoader(srv, eng, assets, opts), trace, assets
}

func TestLoader_LoadAllInOrder(t *testing.T) {
	srv := &moduleServer{modules: map[string][]byte{
		"a.wasm": wasmtest.Module(wasmtest.Func{Export: "main", Trace: 1}),
		"b.wasm": wasmtest.Module(wasmtest.Func{Export: "main", Trace: 2}),
		"c.wasm": wasmtest.Module(wasmtest.Func{Export: "main", Trace: 3}),
	}}
	l, trace, assets := newTestLoader(t, srv, Options{})

	results, err := l.LoadAll(context.Background(), []string{"a.wasm", "b.wasm", "c.wasm"})
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}

	ids := trace.IDs()
	if len(ids) != 3 || ids[0] != 1 || ids[1] != 2 || ids[2] != 3 {
		t.Errorf("entry order = %v, want [1 2 3]", ids)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	for i, r := range results {
		if !r.Invoked || r.Skipped || r.LocalURL == "" {
			t.Errorf("results[%d] = %+v", i, r)
		}
	}

	records := assets.Records()
	if len(records) != 3 || records[0].URL != "a.wasm" || records[2].URL != "c.wasm" {
		t.Errorf("records = %+v", records)
	}

	for _, req := range srv.requests {
		if !req.WorkerScript {
			t.Errorf("request %s not tagged as worker script", req.URL)
		}
	}
}

func TestLoader_DuplicateFetchedOnce(t *testing.T) {
	srv := &moduleServer{modules: map[string][]byte{
		"a.wasm": wasmtest.Module(wasmtest.Func{Export: "main", Trace: 1}),
		"b.wasm": wasmtest.Module(wasmtest.Func{Export: "main", Trace: 2}),
	}}
	l, trace, _ := newTestLoader(t, srv, Options{})

	results, err := l.LoadAll(context.Background(), []string{"a.wasm", "b.wasm", "a.wasm"})
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if n := srv.count("a.wasm"); n != 1 {
		t.Errorf("a.wasm fetched %d times, want 1", n)
	}
	if !results[2].Skipped {
		t.Errorf("duplicate result = %+v, want Skipped", results[2])
	}
	if ids := trace.IDs(); len(ids) != 2 {
		t.Errorf("entry invocations = %v, want 2", ids)
	}

	// A later call on the same loader is also a no-op.
	res, err := l.LoadModule(context.Background(), "b.wasm")
	if err != nil || !res.Skipped {
		t.Errorf("LoadModule(b) = %+v, %v", res, err)
	}
	if !l.reserved("a.wasm") || l.reserved("z.wasm") {
		t.Error("reserved reports wrong membership")
	}
}

func TestLoader_FailureStopsBatch(t *testing.T) {
	srv := &moduleServer{modules: map[string][]byte{
		"a.wasm": wasmtest.Module(wasmtest.Func{Export: "main", Trace: 1}),
		"c.wasm": wasmtest.Module(wasmtest.Func{Export: "main", Trace: 3}),
	}}
	l, trace, _ := newTestLoader(t, srv, Options{})

	results, err := l.LoadAll(context.Background(), []string{"a.wasm", "missing.wasm", "c.wasm"})
	if err == nil {
		t.Fatal("expected error")
	}

	var batch *BatchError
	if !stderrors.As(err, &batch) {
		t.Fatalf("err = %T, want *BatchError", err)
	}
	if batch.Failed != "missing.wasm" {
		t.Errorf("Failed = %q", batch.Failed)
	}
	if len(batch.Loaded) != 1 || batch.Loaded[0].URL != "a.wasm" || len(results) != 1 {
		t.Errorf("Loaded = %+v, results = %+v", batch.Loaded, results)
	}
	if !errors.IsNetwork(err) {
		t.Errorf("err = %v, want network error underneath", err)
	}
	if srv.count("c.wasm") != 0 {
		t.Error("modules after the failure must not be fetched")
	}
	if ids := trace.IDs(); len(ids) != 1 || ids[0] != 1 {
		t.Errorf("trace = %v, want [1]", ids)
	}

	// The failed URL stays reserved.
	res, err := l.LoadModule(context.Background(), "missing.wasm")
	if err != nil || !res.Skipped {
		t.Errorf("retry of reserved URL = %+v, %v", res, err)
	}
}

func TestLoader_MissingEntry(t *testing.T) {
	srv := &moduleServer{modules: map[string][]byte{
		"lib.wasm": wasmtest.Empty(),
	}}

	t.Run("silent", func(t *testing.T) {
		l, _, assets := newTestLoader(t, srv, Options{})
		res, err := l.LoadModule(context.Background(), "lib.wasm")
		if err != nil {
			t.Fatalf("LoadModule: %v", err)
		}
		if res.Invoked {
			t.Error("module without entry must not report Invoked")
		}
		if assets.Len() != 1 {
			t.Errorf("records = %d, want 1", assets.Len())
		}
	})

	t.Run("strict", func(t *testing.T) {
		l, _, _ := newTestLoader(t, srv, Options{Strict: true})
		_, err := l.LoadModule(context.Background(), "lib.wasm")
		if !errors.IsActivation(err) {
			t.Errorf("err = %v, want activation error", err)
		}
	})
}

func TestLoader_EntryTrap(t *testing.T) {
	srv := &moduleServer{modules: map[string][]byte{
		"trap.wasm": wasmtest.Module(wasmtest.Func{Export: "main", Trap: true}),
	}}
	l, _, _ := newTestLoader(t, srv, Options{})

	_, err := l.LoadAll(context.Background(), []string{"trap.wasm"})
	if !errors.IsActivation(err) {
		t.Errorf("err = %v, want activation error", err)
	}
}

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest("index.html", []byte(`{"modules": ["a.wasm", "b.wasm", "a.wasm"]}`))
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if len(m.Modules) != 3 || m.Modules[0] != "a.wasm" || m.Modules[2] != "a.wasm" {
		t.Errorf("Modules = %v", m.Modules)
	}

	empty, err := ParseManifest("index.html", []byte(`{"modules": []}`))
	if err != nil || len(empty.Modules) != 0 {
		t.Errorf("empty manifest = %+v, %v", empty, err)
	}

	for _, bad := range []string{`not json`, `{}`, `{"modules": "a.wasm"}`} {
		if _, err := ParseManifest("index.html", []byte(bad)); err == nil {
			t.Errorf("ParseManifest(%q) should fail", bad)
		}
	}
}
