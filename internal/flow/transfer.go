package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/richfit/myibot/internal/metrics"
	"github.com/richfit/myibot/internal/payments"
	"github.com/richfit/myibot/internal/session"
)

func (m *Machine) transferAmount(ctx context.Context, ev Event) (Decision, error) {
	return m.gated(ctx, ev, func(sess session.Session) (Decision, error) {
		if noInput(ev) {
			return amountPrompt().with(OutcomeReprompt), nil
		}
		if !digitsOfLength(ev.Digits, amountLength) {
			return amountPrompt().with(OutcomeReprompt, "Invalid amount. Please try again."), nil
		}
		dollars, err := strconv.ParseInt(ev.Digits, 10, 64)
		if err != nil {
			return amountPrompt().with(OutcomeReprompt, "Invalid amount. Please try again."), nil
		}
		if dollars < 0 {
			dollars = 0
		}
		step := session.TransferRecipient{AmountCents: dollars * 100}
		if _, err := m.sessions.SetPartial(ctx, ev.CallID, step, sess.Version); err != nil {
			return Decision{}, err
		}
		return recipientPrompt(m.cfg.RecipientCodeLength).with(OutcomeAdvance), nil
	})
}

func (m *Machine) transferRecipient(ctx context.Context, ev Event) (Decision, error) {
	return m.gated(ctx, ev, func(sess session.Session) (Decision, error) {
		if _, ok := sess.Step.(session.TransferRecipient); !ok {
			return m.abandon(ctx, ev, sess, "no pending amount")
		}
		if noInput(ev) {
			return recipientPrompt(m.cfg.RecipientCodeLength).with(OutcomeReprompt), nil
		}
		if !digitsOfLength(ev.Digits, m.cfg.RecipientCodeLength) {
			return recipientPrompt(m.cfg.RecipientCodeLength).with(OutcomeReprompt, "Invalid recipient code. Please try again."), nil
		}
		next, err := m.sessions.SetPartial(ctx, ev.CallID, session.TransferConfirm{RecipientCode: ev.Digits}, sess.Version)
		if err != nil {
			return Decision{}, err
		}
		confirm, ok := next.Step.(session.TransferConfirm)
		if !ok {
			return Decision{}, fmt.Errorf("transfer recipient: unexpected step %q after write", next.StepName())
		}
		return confirmPrompt(confirm).with(OutcomeAdvance), nil
	})
}

func (m *Machine) transferConfirm(ctx context.Context, ev Event) (Decision, error) {
	return m.gated(ctx, ev, func(sess session.Session) (Decision, error) {
		pending, ok := sess.Step.(session.TransferConfirm)
		if !ok {
			return m.abandon(ctx, ev, sess, "no pending transfer")
		}
		if noInput(ev) {
			return confirmPrompt(pending).with(OutcomeReprompt), nil
		}

		if ev.Digits != "1" {
			if _, err := m.sessions.ClearFlow(ctx, ev.CallID, sess.Version); err != nil {
				return Decision{}, err
			}
			metrics.TransferRequests.WithLabelValues("canceled").Inc()
			return menuPrompt().with(OutcomeAdvance, "Canceled."), nil
		}

		// The session version identifies this confirmation, so a redelivered
		// webhook maps to the same request.
		req, err := m.payments.Submit(ctx, payments.SubmitInput{
			ClientTxID:    fmt.Sprintf("%s:%d", ev.CallID, sess.Version),
			CallID:        ev.CallID,
			Caller:        sess.Caller,
			AmountCents:   pending.AmountCents,
			RecipientCode: pending.RecipientCode,
		})
		result := "submitted"
		switch {
		case errors.Is(err, payments.ErrDuplicateTransaction):
			result = "duplicate"
		case err != nil:
			return Decision{}, err
		default:
			m.logger.Info("transfer submitted",
				slog.String("call_sid", ev.CallID),
				slog.String("transfer_id", req.ID),
				slog.Int64("amount_cents", req.AmountCents),
			)
		}
		if _, err := m.sessions.ClearFlow(ctx, ev.CallID, sess.Version); err != nil {
			return Decision{}, err
		}
		metrics.TransferRequests.WithLabelValues(result).Inc()
		return menuPrompt().with(OutcomeAdvance, "Transfer submitted. Thank you."), nil
	})
}
