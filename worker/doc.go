// Package worker coordinates a background caching worker.
//
// The worker subsystem itself is external: a Container registers worker
// scripts and drives each Worker through its lifecycle. The Coordinator only
// registers, optionally asks the active worker to skip waiting, and observes
// transitions:
//
//	unregistered → registering → installing → installed → activating → activated
//
// A nil Container means the host has no worker subsystem and Load is a no-op.
//
// # Callbacks
//
// OnWorkerInitialized fires exactly once per Load: immediately if a worker is
// already active, otherwise when the installing worker reaches activated.
// OnUpdateFound fires when an installing worker reaches installed while a
// controller is already active, i.e. for updates but not first installs.
//
// Callbacks run on watcher goroutines. Watchers stop when the context passed
// to Load is cancelled; Wait blocks until they have exited.
//
// # Observing Transitions
//
// Every observed transition is published to subscribers:
//
//	coord.Subscribe(worker.ObserverFunc(func(t worker.Transition) {
//	    log.Printf("%s: %s -> %s", t.Script, t.From, t.To)
//	}))
//
// # Local Subsystem
//
// LocalContainer is an in-process Container that installs and activates
// workers on goroutines. A registration whose content entries changed
// installs a new worker that waits in installed until SkipWaiting. It does
// not cache anything.
package worker
