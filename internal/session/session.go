// Package session persists per-call conversation state keyed by call
// identifier.
package session

import "errors"

// AnyVersion disables the optimistic concurrency check on a write.
const AnyVersion int64 = -1

var (
	// ErrNotFound is returned by repositories when no state exists for a call.
	ErrNotFound = errors.New("session not found")

	// ErrStaleSession indicates the session changed after it was read by the
	// current request.
	ErrStaleSession = errors.New("stale session")

	// ErrConflict is returned by repositories when a concurrent write aborted
	// an atomic update. The store retries on it.
	ErrConflict = errors.New("session write conflict")
)

// Session is the conversation state of one call. Authed and Caller persist
// for the life of the call; Step holds the active sub-flow, nil when none.
type Session struct {
	Authed  bool
	Caller  string
	Step    Step
	Version int64
}

// StepName returns the name of the active step, empty when there is none.
func (s Session) StepName() StepName {
	if s.Step == nil {
		return ""
	}
	return s.Step.Name()
}

// cleared drops every step-scoped field.
func (s Session) cleared() Session {
	return Session{Authed: s.Authed, Caller: s.Caller, Version: s.Version}
}
