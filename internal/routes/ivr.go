package routes

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/richfit/myibot/internal/flow"
	"github.com/richfit/myibot/internal/metrics"
	"github.com/richfit/myibot/internal/session"
	"github.com/richfit/myibot/internal/twiml"
)

const unknownCaller = "unknown"

// IVRHandler adapts Twilio voice webhooks to the call-flow machine.
type IVRHandler struct {
	machine  *flow.Machine
	renderer *twiml.Renderer
	logger   *slog.Logger
}

// NewIVRHandler builds the webhook handler.
func NewIVRHandler(machine *flow.Machine, renderer *twiml.Renderer, logger *slog.Logger) *IVRHandler {
	return &IVRHandler{machine: machine, renderer: renderer, logger: logger}
}

// RegisterIVRRoutes mounts one POST route per step, each behind mw.
func RegisterIVRRoutes(app *fiber.App, h *IVRHandler, mw ...fiber.Handler) {
	routes := []struct {
		path string
		step session.StepName
	}{
		{flow.PathEntry, session.StepEntry},
		{flow.PathAuth, session.StepAuth},
		{flow.PathMenu, session.StepMenu},
		{flow.PathBalance, session.StepBalance},
		{flow.PathTransferAmount, session.StepTransferAmount},
		{flow.PathTransferRecipient, session.StepTransferRecipient},
		{flow.PathTransferConfirm, session.StepTransferConfirm},
		{flow.PathRegisterID, session.StepRegisterID},
		{flow.PathRegisterPIN, session.StepRegisterPIN},
		{flow.PathRegisterPINConfirm, session.StepRegisterPINConfirm},
		{flow.PathRegisterCode, session.StepRegisterCodeMenu},
	}
	for _, r := range routes {
		handlers := append(append([]fiber.Handler{}, mw...), h.Handle(r.step))
		app.Post(r.path, handlers...)
	}
}

// Handle returns the webhook handler for step.
func (h *IVRHandler) Handle(step session.StepName) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		defer func() {
			metrics.WebhookLatency.WithLabelValues(string(step)).Observe(time.Since(start).Seconds())
		}()

		caller := c.FormValue("From")
		if caller == "" {
			caller = unknownCaller
		}
		ev := flow.Event{
			CallID:    c.FormValue("CallSid"),
			Caller:    caller,
			Digits:    c.FormValue("Digits"),
			HasDigits: c.Request().PostArgs().Has("Digits"),
		}

		d, err := h.machine.Handle(c.UserContext(), step, ev)
		if err != nil {
			return h.fail(c, step, ev.CallID, err)
		}

		body, err := h.renderer.Render(d)
		if err != nil {
			return h.fail(c, step, ev.CallID, err)
		}
		metrics.WebhookRequests.WithLabelValues(string(step), string(d.Outcome)).Inc()
		c.Set(fiber.HeaderContentType, twiml.ContentType)
		return c.Status(fiber.StatusOK).Send(body)
	}
}

func (h *IVRHandler) fail(c *fiber.Ctx, step session.StepName, callID string, err error) error {
	status := fiber.StatusInternalServerError
	outcome := "error"
	if errors.Is(err, session.ErrStaleSession) {
		status = fiber.StatusConflict
		outcome = "stale"
		h.logger.Warn("stale session write", slog.String("call_sid", callID), slog.String("step", string(step)))
	} else {
		h.logger.Error("webhook failed", slog.String("call_sid", callID), slog.String("step", string(step)), slog.Any("error", err))
	}
	metrics.WebhookRequests.WithLabelValues(string(step), outcome).Inc()
	c.Set(fiber.HeaderContentType, twiml.ContentType)
	return c.Status(status).Send(h.renderer.Error())
}
