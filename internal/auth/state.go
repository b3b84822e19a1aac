package auth

import "github.com/me/rtodash/pkg/model"

// State is the coordinator's position in the identity state machine.
type State int

const (
	StateUninitialized State = iota
	StateChecking
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateChecking:
		return "checking"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	}
	return "unknown"
}

// Snapshot is a consistent, immutable view of the coordinator.
type Snapshot struct {
	State       State
	User        *model.Agent
	Loading     bool
	AuthChecked bool
	// Epoch increases with every identity transition. Subscribers use it to
	// drop snapshots that arrive out of order.
	Epoch uint64
}

// IsAdmin is derived from the snapshot's user; there is no stored flag.
func (s Snapshot) IsAdmin() bool {
	return s.User.IsAdmin()
}

// Authenticated reports whether an identity is present.
func (s Snapshot) Authenticated() bool {
	return s.User != nil
}

// Ready reports whether the initial verification has finished.
func (s Snapshot) Ready() bool {
	return s.AuthChecked && !s.Loading
}

// IdentityKey changes exactly when identity presence or readiness changes.
// Effects keyed on it run once per change instead of once per read.
func (s Snapshot) IdentityKey() string {
	switch {
	case !s.AuthChecked:
		return "pending"
	case s.User == nil:
		return "anonymous"
	default:
		return "agent:" + string(s.User.ID) + ":" + s.User.Email
	}
}

// Result is what Login and Register report to their caller. They never
// return errors.
type Result struct {
	Success bool
	Error   string
}
