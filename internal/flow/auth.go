package flow

import (
	"context"
	"log/slog"
	"strings"

	"github.com/richfit/myibot/internal/account"
	"github.com/richfit/myibot/internal/session"
)

func (m *Machine) entry(_ context.Context, _ Event) (Decision, error) {
	return authPrompt().with(OutcomeAdvance), nil
}

func (m *Machine) auth(ctx context.Context, ev Event) (Decision, error) {
	sess, _, err := m.sessions.Get(ctx, ev.CallID)
	if err != nil {
		return Decision{}, err
	}

	if !ev.HasDigits {
		return authPrompt().with(OutcomeReprompt, "Sorry, I did not get that."), nil
	}
	pin := ev.Digits
	if trimmed := strings.TrimSpace(pin); trimmed == "" || trimmed == "#" {
		if _, err := m.sessions.SetPartial(ctx, ev.CallID, session.RegisterID{}, sess.Version); err != nil {
			return Decision{}, err
		}
		return registerIDPrompt().with(OutcomeAdvance), nil
	}
	if !session.IsDigits(pin) {
		return authPrompt().with(OutcomeReprompt, "Sorry, I did not get that."), nil
	}
	if len(pin) != account.PINLength {
		return authPrompt().with(OutcomeReprompt, "Your PIN must be 3 digits."), nil
	}

	if m.cfg.DemoPIN != "" && pin == m.cfg.DemoPIN {
		m.logger.Warn("demo pin accepted", slog.String("call_sid", ev.CallID), slog.String("caller", ev.Caller))
		if _, err := m.gate.SetAuthed(ctx, ev.CallID, ev.Caller, sess.Version); err != nil {
			return Decision{}, err
		}
		return menuPrompt().with(OutcomeAdvance, "Demo access granted."), nil
	}

	ok, err := m.accounts.VerifyPIN(ctx, ev.Caller, pin)
	if err != nil {
		return Decision{}, err
	}
	if !ok {
		_, exists, err := m.accounts.Get(ctx, ev.Caller)
		if err != nil {
			return Decision{}, err
		}
		if !exists {
			return authPrompt().with(OutcomeReprompt,
				"No account was found for this phone number. To create a new account, press the pound key without entering a PIN."), nil
		}
		m.logger.Info("pin rejected", slog.String("call_sid", ev.CallID))
		return authPrompt().with(OutcomeReprompt, "Invalid PIN. Please try again."), nil
	}

	if _, err := m.gate.SetAuthed(ctx, ev.CallID, ev.Caller, sess.Version); err != nil {
		return Decision{}, err
	}
	return menuPrompt().with(OutcomeAdvance, "Access granted."), nil
}

func (m *Machine) menu(ctx context.Context, ev Event) (Decision, error) {
	return m.gated(ctx, ev, func(sess session.Session) (Decision, error) {
		if noInput(ev) {
			return menuPrompt().with(OutcomeReprompt), nil
		}
		switch ev.Digits {
		case "1":
			return m.readBalance(ctx, sess)
		case "2":
			if _, err := m.sessions.SetPartial(ctx, ev.CallID, session.TransferAmount{}, sess.Version); err != nil {
				return Decision{}, err
			}
			return amountPrompt().with(OutcomeAdvance), nil
		case "3":
			return menuPrompt().with(OutcomeReprompt), nil
		default:
			return menuPrompt().with(OutcomeReprompt, "Invalid choice."), nil
		}
	})
}

func (m *Machine) balance(ctx context.Context, ev Event) (Decision, error) {
	return m.gated(ctx, ev, func(sess session.Session) (Decision, error) {
		switch {
		case noInput(ev), ev.Digits == "1":
			d, err := m.readBalance(ctx, sess)
			d.Outcome = OutcomeReprompt
			return d, err
		case ev.Digits == "9":
			return menuPrompt().with(OutcomeAdvance), nil
		default:
			return menuPrompt().with(OutcomeReprompt, "Invalid choice. Returning to the main menu."), nil
		}
	})
}

func (m *Machine) readBalance(ctx context.Context, sess session.Session) (Decision, error) {
	b, err := m.balances.Balance(ctx, sess.Caller)
	if err != nil {
		return Decision{}, err
	}
	cents := b.AmountCents
	if cents < 0 {
		cents = 0
	}
	return balancePrompt(cents).with(OutcomeAdvance), nil
}
