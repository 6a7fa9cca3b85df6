// Package auth decides whether a call has passed PIN authentication.
package auth

import (
	"context"
	"errors"

	"github.com/richfit/myibot/internal/session"
)

// ErrUnauthenticated is returned when a gated step is reached before the call
// has authenticated.
var ErrUnauthenticated = errors.New("call not authenticated")

// Gate derives authentication from session state.
type Gate struct {
	sessions *session.Store
}

// NewGate builds a gate over the session store.
func NewGate(sessions *session.Store) *Gate {
	return &Gate{sessions: sessions}
}

// SetAuthed marks the call authenticated and binds caller to it, replacing
// any earlier binding.
func (g *Gate) SetAuthed(ctx context.Context, callID, caller string, ifVersion int64) (session.Session, error) {
	return g.sessions.MarkAuthed(ctx, callID, caller, ifVersion)
}

// IsAuthed reports whether the call has authenticated.
func (g *Gate) IsAuthed(ctx context.Context, callID string) (bool, error) {
	sess, ok, err := g.sessions.Get(ctx, callID)
	if err != nil || !ok {
		return false, err
	}
	return sess.Authed, nil
}

// RequireAuthed returns the session of an authenticated call. It never writes.
func (g *Gate) RequireAuthed(ctx context.Context, callID string) (session.Session, error) {
	sess, ok, err := g.sessions.Get(ctx, callID)
	if err != nil {
		return session.Session{}, err
	}
	if !ok {
		return session.Session{}, ErrUnauthenticated
	}
	if err := Check(sess); err != nil {
		return session.Session{}, err
	}
	return sess, nil
}

// Check validates an already loaded session.
func Check(sess session.Session) error {
	if !sess.Authed || sess.Caller == "" {
		return ErrUnauthenticated
	}
	return nil
}
