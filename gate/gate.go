// Package gate decides whether navigation to a view is allowed, redirected,
// or blocked. The decision is a pure function of the session state; the
// gate performs no I/O of its own.
package gate

import (
	"github.com/jrsteele09/go-auth-client/session"
)

// State is the navigation-facing authentication state.
type State int

const (
	// StateBooting means the startup sequence has not completed; protected
	// views must suspend rather than guess.
	StateBooting State = iota

	// StateUnauthenticated means startup completed with no session.
	StateUnauthenticated

	// StateAuthenticated means a valid session is installed.
	StateAuthenticated

	// StateServiceError means startup failed against an unreachable or
	// broken service. Not a normal "logged out" condition.
	StateServiceError
)

func (s State) String() string {
	switch s {
	case StateBooting:
		return "booting"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateServiceError:
		return "service_error"
	default:
		return "unknown"
	}
}

// StateOf derives the gate state from a session snapshot. It is recomputed
// on every change; no transition state is stored anywhere else.
func StateOf(snap session.Snapshot) State {
	switch {
	case !snap.IsInitialized:
		return StateBooting
	case snap.InitializationError != "":
		return StateServiceError
	case snap.IsAuthenticated:
		return StateAuthenticated
	default:
		return StateUnauthenticated
	}
}

// Well-known navigation targets.
const (
	LoginPath      = "/login"
	DefaultLanding = "/dashboard"
)

// Action is what navigation should do with a requested route.
type Action int

const (
	// ActionAllow renders the requested route.
	ActionAllow Action = iota

	// ActionBlock suspends rendering until the state settles.
	ActionBlock

	// ActionRedirect navigates to Decision.Target instead.
	ActionRedirect

	// ActionRetry renders a retry affordance for a failed startup instead
	// of redirecting.
	ActionRetry
)

// Decision is the gate's verdict for one route request.
type Decision struct {
	Action Action

	// Target is the redirect destination when Action is ActionRedirect.
	Target string

	// Preserve is the originally requested location, kept so it can be
	// restored after login.
	Preserve string
}

// Route describes a navigation request.
type Route struct {
	Path      string
	Protected bool
}

// Decide applies the navigation policy for a route under a state.
func Decide(state State, route Route) Decision {
	switch state {
	case StateBooting:
		if route.Protected {
			return Decision{Action: ActionBlock}
		}
		return Decision{Action: ActionAllow}

	case StateUnauthenticated:
		if route.Protected {
			return Decision{Action: ActionRedirect, Target: LoginPath, Preserve: route.Path}
		}
		return Decision{Action: ActionAllow}

	case StateAuthenticated:
		if route.Path == LoginPath {
			return Decision{Action: ActionRedirect, Target: DefaultLanding}
		}
		return Decision{Action: ActionAllow}

	case StateServiceError:
		if route.Protected {
			return Decision{Action: ActionRetry}
		}
		return Decision{Action: ActionAllow}
	}
	return Decision{Action: ActionBlock}
}

// Gate tracks the session store and exposes the current state.
type Gate struct {
	store *session.Store
}

// New creates a gate bound to the session store.
func New(store *session.Store) *Gate {
	return &Gate{store: store}
}

// Current returns the state derived from the store's present snapshot.
func (g *Gate) Current() State {
	return StateOf(g.store.Snapshot())
}

// Decide applies the navigation policy against the current state.
func (g *Gate) Decide(route Route) Decision {
	return Decide(g.Current(), route)
}

// Watch subscribes to session changes and delivers the derived state on
// every transition. The cancel func releases the subscription.
func (g *Gate) Watch() (<-chan State, func()) {
	snaps, cancel := g.store.Subscribe()
	states := make(chan State, 1)
	go func() {
		defer close(states)
		for snap := range snaps {
			state := StateOf(snap)
			select {
			case states <- state:
			default:
				select {
				case <-states:
				default:
				}
				states <- state
			}
		}
	}()
	return states, cancel
}
