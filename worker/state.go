package worker

import "fmt"

// State is a worker lifecycle state.
type State int

const (
	Unregistered State = iota
	Registering
	Installing
	Installed
	Activating
	Activated
)

var stateNames = [...]string{
	Unregistered: "unregistered",
	Registering:  "registering",
	Installing:   "installing",
	Installed:    "installed",
	Activating:   "activating",
	Activated:    "activated",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// CanTransition reports whether to directly follows from in the lifecycle.
func CanTransition(from, to State) bool {
	return from >= Unregistered && to <= Activated && to == from+1
}

// Reachable reports whether to can be observed after from. Observers may
// miss intermediate states, so any forward move is reachable.
func Reachable(from, to State) bool {
	return from >= Unregistered && to <= Activated && to > from
}

// Transition is one observed state change of a worker script.
type Transition struct {
	Script string
	From   State
	To     State
}

// Observer receives observed transitions.
type Observer interface {
	OnTransition(Transition)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Transition)

func (f ObserverFunc) OnTransition(t Transition) { f(t) }
