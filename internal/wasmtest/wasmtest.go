// Package wasmtest builds tiny core WebAssembly modules for tests.
//
// Every module built by Module imports env.trace(i32) and each defined
// function calls it with its Trace value, so a test can observe which entry
// points ran and in what order:
//
//	trace, _ := wasmtest.NewTrace(ctx, eng.Runtime())
//	code := wasmtest.Module(wasmtest.Func{Export: "main", Trace: 1})
//	// ... activate and invoke
//	trace.IDs() // [1]
package wasmtest

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero"
)

const (
	sectionType     = 1
	sectionImport   = 2
	sectionFunction = 3
	sectionExport   = 7
	sectionCode     = 10

	funcTypeByte = 0x60
	valTypeI32   = 0x7f
	kindFunc     = 0x00

	opUnreachable = 0x00
	opCall        = 0x10
	opI32Const    = 0x41
	opEnd         = 0x0b
)

var header = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

// Func describes one defined function.
type Func struct {
	// Export is the export name; empty keeps the function internal.
	Export string
	// Trace is passed to env.trace when the function runs.
	Trace int32
	// Trap makes the function trap after tracing.
	Trap bool
	// TakesArg gives the function a single i32 parameter.
	TakesArg bool
}

// Module encodes a module importing env.trace and defining funcs.
func Module(funcs ...Func) []byte {
	out := append([]byte{}, header...)

	// type 0: (i32) -> (), type 1: () -> ()
	types := vec(2,
		[]byte{funcTypeByte, 0x01, valTypeI32, 0x00},
		[]byte{funcTypeByte, 0x00, 0x00},
	)
	out = append(out, section(sectionType, types)...)

	imp := append(name("env"), name("trace")...)
	imp = append(imp, kindFunc)
	imp = append(imp, uleb(0)...)
	out = append(out, section(sectionImport, vec(1, imp))...)

	var typeIdx, exports, bodies [][]byte
	for i, f := range funcs {
		t := uint32(1)
		if f.TakesArg {
			t = 0
		}
		typeIdx = append(typeIdx, uleb(t))

		if f.Export != "" {
			exp := append(name(f.Export), kindFunc)
			exp = append(exp, uleb(uint32(i+1))...)
			exports = append(exports, exp)
		}

		body := []byte{0x00} // no locals
		body = append(body, opI32Const)
		body = append(body, sleb(f.Trace)...)
		body = append(body, opCall)
		body = append(body, uleb(0)...)
		if f.Trap {
			body = append(body, opUnreachable)
		}
		body = append(body, opEnd)
		bodies = append(bodies, append(uleb(uint32(len(body))), body...))
	}

	out = append(out, section(sectionFunction, vec(len(typeIdx), typeIdx...))...)
	if len(exports) > 0 {
		out = append(out, section(sectionExport, vec(len(exports), exports...))...)
	}
	out = append(out, section(sectionCode, vec(len(bodies), bodies...))...)
	return out
}

// Empty returns a valid module with no imports and no exports.
func Empty() []byte {
	return append([]byte{}, header...)
}

// Invalid returns bytes that fail compilation.
func Invalid() []byte {
	return []byte("not a wasm module")
}

// Trace records env.trace calls.
type Trace struct {
	ids []int32
	mu  sync.Mutex
}

// NewTrace instantiates the env host module on rt.
func NewTrace(ctx context.Context, rt wazero.Runtime) (*Trace, error) {
	t := &Trace{}
	_, err := rt.NewHostModuleBuilder("env").
		NewFunctionBuilder().
		WithFunc(func(_ context.Context, id int32) {
			t.mu.Lock()
			t.ids = append(t.ids, id)
			t.mu.Unlock()
		}).
		Export("trace").
		Instantiate(ctx)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// IDs returns the recorded trace values in call order.
func (t *Trace) IDs() []int32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]int32, len(t.ids))
	copy(out, t.ids)
	return out
}

func section(id byte, payload []byte) []byte {
	out := []byte{id}
	out = append(out, uleb(uint32(len(payload)))...)
	return append(out, payload...)
}

func vec(n int, items ...[]byte) []byte {
	out := uleb(uint32(n))
	for _, it := range items {
		out = append(out, it...)
	}
	return out
}

func name(s string) []byte {
	return append(uleb(uint32(len(s))), s...)
}

func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}

func sleb(v int32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		done := (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0)
		if !done {
			b |= 0x80
		}
		out = append(out, b)
		if done {
			return out
		}
	}
}
