package engine

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/sys"

	"github.com/wippyai/wasm-loader/errors"
)

// Outcome tags the result of an activation.
type Outcome int

const (
	EntryFound Outcome = iota
	MissingEntry
)

func (o Outcome) String() string {
	switch o {
	case EntryFound:
		return "entry-found"
	case MissingEntry:
		return "missing-entry"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Activation is an instantiated artifact.
type Activation struct {
	module   api.Module
	compiled wazero.CompiledModule
	entry    *Entry
	url      string
}

func (a *Activation) URL() string {
	return a.url
}

func (a *Activation) Outcome() Outcome {
	if a.entry == nil {
		return MissingEntry
	}
	return EntryFound
}

// Entry returns the entry point when Outcome is EntryFound.
func (a *Activation) Entry() (*Entry, bool) {
	return a.entry, a.entry != nil
}

// Export returns another nullary export by name.
func (a *Activation) Export(name string) (*Entry, bool) {
	e, err := a.lookup(name)
	if err != nil || e == nil {
		return nil, false
	}
	return e, true
}

// Close releases the module instance and its compiled code.
func (a *Activation) Close(ctx context.Context) error {
	err := a.module.Close(ctx)
	if cerr := a.compiled.Close(ctx); err == nil {
		err = cerr
	}
	return err
}

// lookup returns (nil, nil) when the export does not exist, and an error
// when it exists but cannot serve as an entry point.
func (a *Activation) lookup(name string) (*Entry, error) {
	fn := a.module.ExportedFunction(name)
	if fn == nil {
		return nil, nil
	}
	def := fn.Definition()
	if n := len(def.ParamTypes()); n != 0 {
		return nil, errors.New(errors.PhaseActivate, errors.KindActivation).
			URL(a.url).
			Symbol(name).
			Detail("%s() in %s takes %d params, want 0", name, a.url, n).
			Build()
	}
	return &Entry{url: a.url, symbol: name, fn: fn}, nil
}

// Entry is a nullary exported function.
type Entry struct {
	fn     api.Function
	url    string
	symbol string
}

func (e *Entry) Symbol() string {
	return e.symbol
}

// Invoke calls the export. A WASI exit with code 0 is a normal return.
func (e *Entry) Invoke(ctx context.Context) error {
	_, err := e.fn.Call(ctx)
	if err == nil {
		return nil
	}
	var exitErr *sys.ExitError
	if stderrors.As(err, &exitErr) && exitErr.ExitCode() == 0 {
		return nil
	}
	return errors.New(errors.PhaseActivate, errors.KindActivation).
		URL(e.url).
		Symbol(e.symbol).
		Cause(err).
		Detail("%s() in %s failed", e.symbol, e.url).
		Build()
}
