package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/richfit/myibot/internal/account"
	"github.com/richfit/myibot/internal/metrics"
	"github.com/richfit/myibot/internal/notification"
	"github.com/richfit/myibot/internal/session"
)

func (m *Machine) registerID(ctx context.Context, ev Event) (Decision, error) {
	sess, _, err := m.sessions.Get(ctx, ev.CallID)
	if err != nil {
		return Decision{}, err
	}
	if noInput(ev) {
		return registerIDPrompt().with(OutcomeReprompt), nil
	}
	if !digitsOfLength(ev.Digits, account.MemberIDLength) {
		return registerIDPrompt().with(OutcomeReprompt, "That I D number is not valid. Please try again."), nil
	}
	if _, err := m.sessions.SetPartial(ctx, ev.CallID, session.RegisterPIN{MemberID: ev.Digits}, sess.Version); err != nil {
		return Decision{}, err
	}
	return registerPINPrompt().with(OutcomeAdvance), nil
}

func (m *Machine) registerPIN(ctx context.Context, ev Event) (Decision, error) {
	sess, _, err := m.sessions.Get(ctx, ev.CallID)
	if err != nil {
		return Decision{}, err
	}
	if _, ok := sess.Step.(session.RegisterPIN); !ok {
		return m.restartRegistration(ctx, ev, sess, "Your registration expired. Let's start again.")
	}
	if noInput(ev) {
		return registerPINPrompt().with(OutcomeReprompt), nil
	}
	if !digitsOfLength(ev.Digits, account.PINLength) {
		return registerPINPrompt().with(OutcomeReprompt, "That PIN is not valid. Please try again."), nil
	}
	if _, err := m.sessions.SetPartial(ctx, ev.CallID, session.RegisterPINConfirm{PIN: ev.Digits}, sess.Version); err != nil {
		return Decision{}, err
	}
	return registerPINConfirmPrompt().with(OutcomeAdvance), nil
}

func (m *Machine) registerPINConfirm(ctx context.Context, ev Event) (Decision, error) {
	sess, _, err := m.sessions.Get(ctx, ev.CallID)
	if err != nil {
		return Decision{}, err
	}
	pending, ok := sess.Step.(session.RegisterPINConfirm)
	if !ok || pending.MemberID == "" || pending.PIN == "" {
		return m.restartRegistration(ctx, ev, sess, "Your registration expired. Let's start again.")
	}
	if noInput(ev) {
		return registerPINConfirmPrompt().with(OutcomeReprompt), nil
	}
	if !digitsOfLength(ev.Digits, account.PINLength) {
		return m.restartRegistration(ctx, ev, sess, "That confirmation PIN is not valid.")
	}
	if ev.Digits != pending.PIN {
		return m.restartRegistration(ctx, ev, sess, "Those P I N numbers did not match. Please try again.")
	}

	// Claim the session before creating the account so a redelivered webhook
	// fails as stale instead of issuing a second confirmation code.
	claimed, err := m.sessions.Claim(ctx, ev.CallID, sess.Version)
	if err != nil {
		return Decision{}, err
	}
	code, err := m.accounts.Create(ctx, ev.Caller, pending.MemberID, pending.PIN)
	if err != nil {
		return Decision{}, fmt.Errorf("create account: %w", err)
	}
	metrics.Registrations.Inc()
	m.logger.Info("account created", slog.String("call_sid", ev.CallID), slog.String("caller", ev.Caller))
	if m.notifier != nil {
		err := m.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindAccountCreated,
			Destination: ev.Caller,
			Body:        fmt.Sprintf("Member %s registered by phone", pending.MemberID),
		})
		if err != nil {
			m.logger.Warn("account notification failed",
				slog.String("call_sid", ev.CallID),
				slog.String("kind", notification.KindAccountCreated),
				slog.Any("error", err),
			)
		}
	}

	authed, err := m.gate.SetAuthed(ctx, ev.CallID, ev.Caller, claimed.Version)
	if err != nil {
		return Decision{}, err
	}
	if _, err := m.sessions.SetPartial(ctx, ev.CallID, session.RegisterCodeMenu{ConfirmationCode: code}, authed.Version); err != nil {
		return Decision{}, err
	}

	lines := []string{
		"Your account is created.",
		"To finalize your account, email this confirmation code to support.",
	}
	lines = append(lines, speakCode(code)...)
	return codeMenuPrompt().with(OutcomeAdvance, lines...), nil
}

func (m *Machine) registerCodeMenu(ctx context.Context, ev Event) (Decision, error) {
	sess, _, err := m.sessions.Get(ctx, ev.CallID)
	if err != nil {
		return Decision{}, err
	}
	pending, ok := sess.Step.(session.RegisterCodeMenu)
	if !ok || pending.ConfirmationCode == "" {
		return m.abandon(ctx, ev, sess, "no confirmation code")
	}
	switch {
	case noInput(ev):
		return codeMenuPrompt().with(OutcomeReprompt), nil
	case ev.Digits == "1":
		return codeMenuPrompt().with(OutcomeReprompt, speakCode(pending.ConfirmationCode)...), nil
	case ev.Digits == "9":
		cleared, err := m.sessions.ClearFlow(ctx, ev.CallID, sess.Version)
		if err != nil {
			return Decision{}, err
		}
		return toMenu(cleared, OutcomeAdvance), nil
	default:
		return codeMenuPrompt().with(OutcomeReprompt, "Invalid option."), nil
	}
}

// restartRegistration discards partial registration input and asks for the
// member id again.
func (m *Machine) restartRegistration(ctx context.Context, ev Event, sess session.Session, line string) (Decision, error) {
	if _, err := m.sessions.ResetTo(ctx, ev.CallID, session.RegisterID{}, sess.Version); err != nil {
		return Decision{}, err
	}
	return registerIDPrompt().with(OutcomeAbandon, line), nil
}
