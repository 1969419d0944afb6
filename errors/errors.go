package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Phase indicates where in the bootstrap the error occurred
type Phase string

const (
	PhaseFetch     Phase = "fetch"     // artifact transport
	PhaseActivate  Phase = "activate"  // compile, instantiate, entry invocation
	PhaseRegister  Phase = "register"  // background worker registration
	PhaseManifest  Phase = "manifest"  // entrypoint document parsing
	PhaseBootstrap Phase = "bootstrap" // orchestration
	PhaseConfig    Phase = "config"    // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindNetwork      Kind = "network"
	KindActivation   Kind = "activation"
	KindMissingEntry Kind = "missing_entry"
	KindRegistration Kind = "registration"
	KindInvalidData  Kind = "invalid_data"
	KindInvalidInput Kind = "invalid_input"
	KindAlreadyRun   Kind = "already_run"
)

// Error is the structured error type used throughout the loader
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	URL    string
	Symbol string
	Detail string
	Status int
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	} else if e.URL != "" {
		b.WriteString(" at ")
		b.WriteString(e.URL)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// URL sets the artifact URL
func (b *Builder) URL(url string) *Builder {
	b.err.URL = url
	return b
}

// Status sets the transport status code
func (b *Builder) Status(code int) *Builder {
	b.err.Status = code
	return b
}

// Symbol sets the export name involved
func (b *Builder) Symbol(name string) *Builder {
	b.err.Symbol = name
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Status creates a network error for a non-success response
func Status(url string, code int) *Error {
	return &Error{
		Phase:  PhaseFetch,
		Kind:   KindNetwork,
		URL:    url,
		Status: code,
		Detail: fmt.Sprintf("failed to load %s (status: %d)", url, code),
	}
}

// Transport creates a network error for a failed round trip
func Transport(url string, cause error) *Error {
	return &Error{
		Phase:  PhaseFetch,
		Kind:   KindNetwork,
		URL:    url,
		Detail: fmt.Sprintf("failed to load %s", url),
		Cause:  cause,
	}
}

// Activation creates an error for an artifact that could not be compiled,
// instantiated, or whose entry point failed
func Activation(url string, cause error) *Error {
	return &Error{
		Phase:  PhaseActivate,
		Kind:   KindActivation,
		URL:    url,
		Detail: fmt.Sprintf("activate %s", url),
		Cause:  cause,
	}
}

// MissingEntry creates an error for an activated artifact without its entry export
func MissingEntry(url, symbol string) *Error {
	return &Error{
		Phase:  PhaseActivate,
		Kind:   KindMissingEntry,
		URL:    url,
		Symbol: symbol,
		Detail: fmt.Sprintf("%s() not found in %s", symbol, url),
	}
}

// Registration creates a worker registration error
func Registration(url string, cause error) *Error {
	return &Error{
		Phase:  PhaseRegister,
		Kind:   KindRegistration,
		URL:    url,
		Detail: fmt.Sprintf("register worker %s", url),
		Cause:  cause,
	}
}

// Manifest creates an error for an unreadable entrypoint document
func Manifest(url string, cause error) *Error {
	return &Error{
		Phase:  PhaseManifest,
		Kind:   KindInvalidData,
		URL:    url,
		Detail: fmt.Sprintf("parse module manifest %s", url),
		Cause:  cause,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// AlreadyRun creates an error for a reused single-use runner
func AlreadyRun(url string) *Error {
	return &Error{
		Phase:  PhaseBootstrap,
		Kind:   KindAlreadyRun,
		URL:    url,
		Detail: fmt.Sprintf("application %s already ran", url),
	}
}

func hasKind(err error, kinds ...Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	for _, k := range kinds {
		if e.Kind == k {
			return true
		}
	}
	return false
}

// IsNetwork reports whether err is a fetch failure
func IsNetwork(err error) bool {
	return hasKind(err, KindNetwork)
}

// IsActivation reports whether err is an activation failure, including a
// missing entry export
func IsActivation(err error) bool {
	return hasKind(err, KindActivation, KindMissingEntry)
}

// IsRegistration reports whether err is a worker registration failure
func IsRegistration(err error) bool {
	return hasKind(err, KindRegistration)
}
