package worker

import "context"

// StateChange is delivered by Worker.Watch. Controlled records whether a
// controller was active when the worker entered State.
type StateChange struct {
	State      State
	Controlled bool
}

// Container is the host's worker subsystem.
type Container interface {
	// Register registers scriptURL. entries maps resource paths to content
	// hashes and identifies the worker version.
	Register(ctx context.Context, scriptURL string, entries map[string]string) (Registration, error)
}

// Registration is the result of registering a worker script.
type Registration interface {
	// Active returns the active worker, or nil.
	Active() Worker
	// Installing returns the installing worker, or nil.
	Installing() Worker
	// Updates delivers the current installing worker, if any, followed by
	// every worker that starts installing later.
	Updates(ctx context.Context) <-chan Worker
}

// Worker is one worker instance.
type Worker interface {
	ScriptURL() string
	State() State
	// Watch delivers the current state first, then each transition.
	Watch(ctx context.Context) <-chan StateChange
	// SkipWaiting lets a worker waiting in installed proceed to activate.
	SkipWaiting(ctx context.Context) error
}
