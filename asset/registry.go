package asset

import (
	"sync"

	"github.com/google/uuid"

	"github.com/wippyai/wasm-loader/errors"
)

// LocalScheme prefixes every locally materialized reference.
const LocalScheme = "blob:"

// Record describes one loaded artifact.
type Record struct {
	URL      string   `json:"url"`
	LocalURL string   `json:"localUrl"`
	Assets   []string `json:"assets"`
}

// Observer receives a notification after each record is appended.
type Observer interface {
	OnAssetLoaded(Record)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Record)

func (f ObserverFunc) OnAssetLoaded(r Record) { f(r) }

// Registry is the append-only list of loaded artifacts plus the byte store
// backing their local references.
type Registry struct {
	blobs     map[string][]byte
	records   []Record
	observers []Observer
	mu        sync.RWMutex
	obsMu     sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		blobs: make(map[string][]byte),
	}
}

// Materialize stores data under a new local reference and appends a record
// for it. The returned record's LocalURL can be passed to Open.
func (r *Registry) Materialize(origin string, data []byte) Record {
	rec := Record{
		URL:      origin,
		LocalURL: LocalScheme + uuid.NewString(),
		Assets:   []string{},
	}

	r.mu.Lock()
	r.blobs[rec.LocalURL] = data
	r.records = append(r.records, rec)
	r.mu.Unlock()

	r.notify(rec)
	return rec
}

// Open returns the bytes behind a local reference.
func (r *Registry) Open(localURL string) ([]byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	data, ok := r.blobs[localURL]
	return data, ok
}

// Contents returns the bytes materialized for rec, or an activation error
// naming rec.URL when the local reference is unknown.
func (r *Registry) Contents(rec Record) ([]byte, error) {
	data, ok := r.Open(rec.LocalURL)
	if !ok {
		return nil, errors.New(errors.PhaseActivate, errors.KindActivation).
			URL(rec.URL).
			Detail("materialized %s is not readable", rec.LocalURL).
			Build()
	}
	return data, nil
}

// Records returns a snapshot of all records in append order.
func (r *Registry) Records() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Subscribe adds an observer for future appends.
func (r *Registry) Subscribe(o Observer) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	r.observers = append(r.observers, o)
}

func (r *Registry) notify(rec Record) {
	r.obsMu.RLock()
	defer r.obsMu.RUnlock()
	for _, o := range r.observers {
		o.OnAssetLoaded(rec)
	}
}
