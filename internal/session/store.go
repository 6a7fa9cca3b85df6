package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

const maxConflictRetries = 3

// Store implements the session persistence contract on top of a Repository.
// Every mutation is a single atomic read-modify-write. Passing the version
// read earlier in the request as ifVersion turns the write into a
// compare-and-set that fails with ErrStaleSession when another request got in
// first; AnyVersion skips the check.
type Store struct {
	repo   Repository
	logger *slog.Logger
}

// NewStore builds a session store.
func NewStore(repo Repository, logger *slog.Logger) *Store {
	return &Store{repo: repo, logger: logger}
}

// Get loads the session for callID. Unreadable payloads are deleted and
// reported as absent; payloads whose step data is malformed come back without
// a step.
func (s *Store) Get(ctx context.Context, callID string) (Session, bool, error) {
	raw, err := s.repo.Load(ctx, callID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, false, nil
		}
		return Session{}, false, err
	}
	sess, err := decode(raw)
	switch {
	case errors.Is(err, errInvalidEnvelope):
		s.warn("discarding unreadable session", callID, err)
		if err := s.repo.Delete(ctx, callID); err != nil {
			return Session{}, false, err
		}
		return Session{}, false, nil
	case errors.Is(err, errInvalidStep):
		s.warn("ignoring malformed step data", callID, err)
	}
	return sess, true, nil
}

// SetPartial moves the session to step. When the step family changes every
// step-scoped field is dropped first; inside a family, fields produced by
// earlier steps are carried over. A missing session is created.
func (s *Store) SetPartial(ctx context.Context, callID string, step Step, ifVersion int64) (Session, error) {
	if step == nil {
		return Session{}, fmt.Errorf("set partial: nil step")
	}
	return s.update(ctx, callID, ifVersion, true, func(cur Session) Session {
		if FamilyOf(cur.Step) != step.Family() {
			cur = cur.cleared()
			cur.Step = step
			return cur
		}
		cur.Step = step.inherit(cur.Step)
		return cur
	})
}

// ClearFlow resets the session to its authentication binding only. It does
// nothing when no session exists.
func (s *Store) ClearFlow(ctx context.Context, callID string, ifVersion int64) (Session, error) {
	return s.update(ctx, callID, ifVersion, false, func(cur Session) Session {
		return cur.cleared()
	})
}

// ResetTo clears the flow and then starts step, in one write.
func (s *Store) ResetTo(ctx context.Context, callID string, step Step, ifVersion int64) (Session, error) {
	if step == nil {
		return Session{}, fmt.Errorf("reset: nil step")
	}
	return s.update(ctx, callID, ifVersion, true, func(cur Session) Session {
		cur = cur.cleared()
		cur.Step = step
		return cur
	})
}

// MarkAuthed binds caller to the call and flags it authenticated, keeping the
// active step. Any previous binding is overwritten.
func (s *Store) MarkAuthed(ctx context.Context, callID, caller string, ifVersion int64) (Session, error) {
	return s.update(ctx, callID, ifVersion, true, func(cur Session) Session {
		cur.Authed = true
		cur.Caller = caller
		return cur
	})
}

// Claim bumps the version without changing content. A request claims the
// session before a side effect that must not run twice.
func (s *Store) Claim(ctx context.Context, callID string, ifVersion int64) (Session, error) {
	return s.update(ctx, callID, ifVersion, true, func(cur Session) Session {
		return cur
	})
}

// Delete removes the session entirely.
func (s *Store) Delete(ctx context.Context, callID string) error {
	return s.repo.Delete(ctx, callID)
}

func (s *Store) update(ctx context.Context, callID string, ifVersion int64, create bool, mutate func(Session) Session) (Session, error) {
	var result Session
	fn := func(current []byte, found bool) ([]byte, error) {
		var cur Session
		if found {
			decoded, err := decode(current)
			if errors.Is(err, errInvalidEnvelope) {
				s.warn("overwriting unreadable session", callID, err)
				decoded, found = Session{}, false
			} else if errors.Is(err, errInvalidStep) {
				s.warn("dropping malformed step data", callID, err)
			}
			cur = decoded
		}
		if ifVersion != AnyVersion && cur.Version != ifVersion {
			return nil, ErrStaleSession
		}
		if !found && !create {
			result = Session{}
			return nil, nil
		}
		next := mutate(cur)
		next.Version = cur.Version + 1
		raw, err := encode(next)
		if err != nil {
			return nil, fmt.Errorf("encode session: %w", err)
		}
		result = next
		return raw, nil
	}

	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = s.repo.Update(ctx, callID, fn)
		if !errors.Is(err, ErrConflict) {
			break
		}
	}
	if errors.Is(err, ErrConflict) {
		return Session{}, ErrStaleSession
	}
	if err != nil {
		return Session{}, err
	}
	return result, nil
}

func (s *Store) warn(msg, callID string, err error) {
	if s.logger == nil {
		return
	}
	s.logger.Warn(msg, slog.String("call_sid", callID), slog.Any("error", err))
}
