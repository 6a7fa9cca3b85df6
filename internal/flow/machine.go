// Package flow is the call-flow state machine. Every webhook is handled on
// its own: the machine reloads the call's session, checks the caller's input
// against the step the webhook belongs to and decides what comes next.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/richfit/myibot/internal/account"
	"github.com/richfit/myibot/internal/auth"
	"github.com/richfit/myibot/internal/balance"
	"github.com/richfit/myibot/internal/notification"
	"github.com/richfit/myibot/internal/payments"
	"github.com/richfit/myibot/internal/session"
)

const (
	defaultRecipientCodeLength = 8
	maxCallIDLength            = 64
)

// Config tunes the machine.
type Config struct {
	// DemoPIN, when set, authenticates any caller without an account lookup.
	DemoPIN             string
	RecipientCodeLength int
}

// Deps are the collaborators of the machine.
type Deps struct {
	Sessions *session.Store
	Gate     *auth.Gate
	Accounts *account.Service
	Balances balance.Source
	Payments *payments.Service
	Notifier notification.Notifier
	Logger   *slog.Logger
}

// Machine computes the next step of a call.
type Machine struct {
	cfg      Config
	sessions *session.Store
	gate     *auth.Gate
	accounts *account.Service
	balances balance.Source
	payments *payments.Service
	notifier notification.Notifier
	logger   *slog.Logger
}

// New builds a machine.
func New(cfg Config, d Deps) *Machine {
	if cfg.RecipientCodeLength <= 0 {
		cfg.RecipientCodeLength = defaultRecipientCodeLength
	}
	return &Machine{
		cfg:      cfg,
		sessions: d.Sessions,
		gate:     d.Gate,
		accounts: d.Accounts,
		balances: d.Balances,
		payments: d.Payments,
		notifier: d.Notifier,
		logger:   d.Logger,
	}
}

type handlerFunc func(m *Machine, ctx context.Context, ev Event) (Decision, error)

var handlers = map[session.StepName]handlerFunc{
	session.StepEntry:              (*Machine).entry,
	session.StepAuth:               (*Machine).auth,
	session.StepMenu:               (*Machine).menu,
	session.StepBalance:            (*Machine).balance,
	session.StepTransferAmount:     (*Machine).transferAmount,
	session.StepTransferRecipient:  (*Machine).transferRecipient,
	session.StepTransferConfirm:    (*Machine).transferConfirm,
	session.StepRegisterID:         (*Machine).registerID,
	session.StepRegisterPIN:        (*Machine).registerPIN,
	session.StepRegisterPINConfirm: (*Machine).registerPINConfirm,
	session.StepRegisterCodeMenu:   (*Machine).registerCodeMenu,
}

// Handle processes ev as input to step. A missing or malformed call
// identifier yields a hang-up decision without touching storage. Storage
// failures are returned as errors.
func (m *Machine) Handle(ctx context.Context, step session.StepName, ev Event) (Decision, error) {
	h, ok := handlers[step]
	if !ok {
		return Decision{}, fmt.Errorf("unknown step %q", step)
	}
	if !validCallID(ev.CallID) {
		m.logger.Warn("rejecting webhook without valid call id", slog.String("step", string(step)))
		return systemError(), nil
	}
	d, err := h(m, ctx, ev)
	if err != nil {
		return Decision{}, err
	}
	m.logger.Debug("ivr transition",
		slog.String("call_sid", ev.CallID),
		slog.String("step", string(step)),
		slog.String("next", string(d.Next)),
		slog.String("outcome", string(d.Outcome)),
	)
	return d, nil
}

// requireAuthed loads the session of a gated step. The caller presenting the
// webhook must be the one bound at authentication.
func (m *Machine) requireAuthed(ctx context.Context, ev Event) (session.Session, error) {
	sess, err := m.gate.RequireAuthed(ctx, ev.CallID)
	if err != nil {
		return session.Session{}, err
	}
	if sess.Caller != ev.Caller {
		m.logger.Warn("caller changed mid-call",
			slog.String("call_sid", ev.CallID),
			slog.String("bound", sess.Caller),
			slog.String("presented", ev.Caller),
		)
		return session.Session{}, auth.ErrUnauthenticated
	}
	return sess, nil
}

// gated runs next for an authenticated call and otherwise sends the caller
// back to the PIN prompt without writing anything.
func (m *Machine) gated(ctx context.Context, ev Event, next func(session.Session) (Decision, error)) (Decision, error) {
	sess, err := m.requireAuthed(ctx, ev)
	if errors.Is(err, auth.ErrUnauthenticated) {
		m.logger.Info("unauthenticated access", slog.String("call_sid", ev.CallID))
		return authPrompt().with(OutcomeUnauthenticated, "Please enter your PIN first."), nil
	}
	if err != nil {
		return Decision{}, err
	}
	return next(sess)
}

// toMenu returns an authenticated caller to the menu and anyone else to the
// PIN prompt.
func toMenu(sess session.Session, outcome Outcome, lines ...string) Decision {
	if auth.Check(sess) != nil {
		return authPrompt().with(outcome, lines...)
	}
	return menuPrompt().with(outcome, lines...)
}

func (m *Machine) abandon(ctx context.Context, ev Event, sess session.Session, reason string) (Decision, error) {
	m.logger.Info("abandoning flow",
		slog.String("call_sid", ev.CallID),
		slog.String("step", string(sess.StepName())),
		slog.String("reason", reason),
	)
	cleared, err := m.sessions.ClearFlow(ctx, ev.CallID, sess.Version)
	if err != nil {
		return Decision{}, err
	}
	return toMenu(cleared, OutcomeAbandon, "Session expired. Returning to the main menu."), nil
}

// noInput reports whether the caller pressed nothing.
func noInput(ev Event) bool {
	return !ev.HasDigits || ev.Digits == ""
}

func validCallID(id string) bool {
	if id == "" || len(id) > maxCallIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

func digitsOfLength(s string, n int) bool {
	return len(s) == n && session.IsDigits(s)
}
