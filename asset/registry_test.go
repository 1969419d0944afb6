package asset

import (
	"bytes"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/wippyai/wasm-loader/errors"
)

func TestRegistry_Materialize(t *testing.T) {
	reg := NewRegistry()
	data := []byte{0x00, 0x61, 0x73, 0x6d}

	rec := reg.Materialize("http://localhost/main.wasm", data)

	if rec.URL != "http://localhost/main.wasm" {
		t.Errorf("URL = %q", rec.URL)
	}
	if !strings.HasPrefix(rec.LocalURL, LocalScheme) {
		t.Errorf("LocalURL = %q, want %s prefix", rec.LocalURL, LocalScheme)
	}
	if rec.Assets == nil || len(rec.Assets) != 0 {
		t.Errorf("Assets = %v, want empty non-nil", rec.Assets)
	}

	got, ok := reg.Open(rec.LocalURL)
	if !ok {
		t.Fatal("Open did not find materialized bytes")
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Open = %x, want %x", got, data)
	}
}

func TestRegistry_AppendOnlyOrder(t *testing.T) {
	reg := NewRegistry()
	a := reg.Materialize("a.wasm", nil)
	b := reg.Materialize("b.wasm", nil)
	c := reg.Materialize("a.wasm", nil)

	if a.LocalURL == b.LocalURL || a.LocalURL == c.LocalURL {
		t.Error("local references must be unique per materialization")
	}

	records := reg.Records()
	if reg.Len() != 3 || len(records) != 3 {
		t.Fatalf("Len = %d, records = %d, want 3", reg.Len(), len(records))
	}
	want := []string{"a.wasm", "b.wasm", "a.wasm"}
	for i, rec := range records {
		if rec.URL != want[i] {
			t.Errorf("records[%d].URL = %q, want %q", i, rec.URL, want[i])
		}
	}

	// Mutating the snapshot must not affect the registry.
	records[0].URL = "mutated"
	if reg.Records()[0].URL != "a.wasm" {
		t.Error("Records returned a shared slice")
	}
}

func TestRegistry_OpenUnknown(t *testing.T) {
	reg := NewRegistry()
	if _, ok := reg.Open("blob:missing"); ok {
		t.Error("Open should fail for unknown reference")
	}
}

func TestRegistry_Contents(t *testing.T) {
	reg := NewRegistry()
	rec := reg.Materialize("a.wasm", []byte("code"))

	data, err := reg.Contents(rec)
	if err != nil {
		t.Fatalf("Contents: %v", err)
	}
	if string(data) != "code" {
		t.Errorf("Contents = %q", data)
	}

	_, err = reg.Contents(Record{URL: "b.wasm", LocalURL: LocalScheme + "missing"})
	if !errors.IsActivation(err) {
		t.Fatalf("err = %v, want activation error", err)
	}
	if !strings.Contains(err.Error(), "not readable") {
		t.Errorf("error = %q", err)
	}
	var e *errors.Error
	if !stderrors.As(err, &e) || e.URL != "b.wasm" {
		t.Errorf("error should name the artifact URL, got %+v", e)
	}
}

func TestRegistry_Subscribe(t *testing.T) {
	reg := NewRegistry()
	var seen []string
	reg.Subscribe(ObserverFunc(func(r Record) {
		seen = append(seen, r.URL)
	}))

	reg.Materialize("one.wasm", nil)
	reg.Materialize("two.wasm", nil)

	if len(seen) != 2 || seen[0] != "one.wasm" || seen[1] != "two.wasm" {
		t.Errorf("observer saw %v", seen)
	}
}
