package routes

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"io"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/richfit/myibot/internal/account"
	"github.com/richfit/myibot/internal/auth"
	"github.com/richfit/myibot/internal/balance"
	"github.com/richfit/myibot/internal/config"
	"github.com/richfit/myibot/internal/flow"
	"github.com/richfit/myibot/internal/logging"
	"github.com/richfit/myibot/internal/payments"
	"github.com/richfit/myibot/internal/session"
	"github.com/richfit/myibot/internal/twiml"
)

func newTestApp(t *testing.T, cfg config.Config) *fiber.App {
	t.Helper()
	if cfg.AppEnv == "" {
		cfg.AppEnv = "test"
	}
	if cfg.SessionBackend == "" {
		cfg.SessionBackend = config.SessionBackendMemory
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://ivr.example.com"
	}
	app := fiber.New()
	require.NoError(t, Setup(app, Deps{Cfg: cfg, Logger: logging.Discard()}))
	return app
}

func webhook(t *testing.T, app *fiber.App, path string, form url.Values) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func callForm(digits ...string) url.Values {
	form := url.Values{"CallSid": {"CA42"}, "From": {"+15550001111"}}
	if len(digits) > 0 {
		form.Set("Digits", digits[0])
	}
	return form
}

func TestVoiceEntryRendersPINGather(t *testing.T) {
	app := newTestApp(t, config.Config{})

	status, body := webhook(t, app, "/ivr/voice", callForm())
	require.Equal(t, fiber.StatusOK, status)
	require.Contains(t, body, `numDigits="3"`)
	require.Contains(t, body, `action="https://ivr.example.com/ivr/auth"`)
	require.Contains(t, body, `finishOnKey="#"`)
	require.Contains(t, body, `<Redirect method="POST">https://ivr.example.com/ivr/voice</Redirect>`)
}

func TestMissingCallSidHangsUp(t *testing.T) {
	app := newTestApp(t, config.Config{})

	status, body := webhook(t, app, "/ivr/auth", url.Values{"Digits": {"123"}})
	require.Equal(t, fiber.StatusOK, status)
	require.Contains(t, body, "A system error occurred")
	require.Contains(t, body, "<Hangup></Hangup>")
}

func TestRegistrationThenTransferOverHTTP(t *testing.T) {
	app := newTestApp(t, config.Config{RecipientCodeLength: 8, DemoBalanceCents: 1275})

	_, body := webhook(t, app, "/ivr/auth", callForm(""))
	require.Contains(t, body, "I D number")

	_, body = webhook(t, app, "/ivr/register", callForm("12345678"))
	require.Contains(t, body, `action="https://ivr.example.com/ivr/register/pin"`)

	_, body = webhook(t, app, "/ivr/register/pin", callForm("222"))
	require.Contains(t, body, `action="https://ivr.example.com/ivr/register/pin/confirm"`)

	_, body = webhook(t, app, "/ivr/register/pin/confirm", callForm("222"))
	require.Contains(t, body, "Your account is created.")
	require.Contains(t, body, `action="https://ivr.example.com/ivr/register/code"`)

	_, body = webhook(t, app, "/ivr/register/code", callForm("9"))
	require.Contains(t, body, `action="https://ivr.example.com/ivr/menu"`)

	_, body = webhook(t, app, "/ivr/menu", callForm("1"))
	require.Contains(t, body, "Your balance is 12 dollars and 75 cents.")

	_, body = webhook(t, app, "/ivr/menu", callForm("2"))
	require.Contains(t, body, `action="https://ivr.example.com/ivr/transfer/amount"`)

	_, body = webhook(t, app, "/ivr/transfer/amount", callForm("0025"))
	require.Contains(t, body, `numDigits="8"`)

	_, body = webhook(t, app, "/ivr/transfer/recipient", callForm("12345678"))
	require.Contains(t, body, "You are sending 25 dollars")

	status, body := webhook(t, app, "/ivr/transfer/confirm", callForm("1"))
	require.Equal(t, fiber.StatusOK, status)
	require.Contains(t, body, "Transfer submitted. Thank you.")
}

func TestGatedWebhookWithoutAuth(t *testing.T) {
	app := newTestApp(t, config.Config{})

	_, body := webhook(t, app, "/ivr/menu", callForm("1"))
	require.Contains(t, body, "Please enter your PIN first.")
	require.Contains(t, body, `action="https://ivr.example.com/ivr/auth"`)
}

func TestWebhookSignatureEnforced(t *testing.T) {
	app := newTestApp(t, config.Config{TwilioAuthToken: "secret"})

	status, _ := webhook(t, app, "/ivr/voice", callForm())
	require.Equal(t, fiber.StatusForbidden, status)

	form := callForm()
	req := httptest.NewRequest(fiber.MethodPost, "/ivr/voice", strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	req.Header.Set("X-Twilio-Signature", twilioSignature("secret", "https://ivr.example.com/ivr/voice"+"CallSid"+"CA42"+"From"+"+15550001111"))
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestApp(t, config.Config{})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/healthz", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	webhook(t, app, "/ivr/voice", callForm())
	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "ivr_webhook_requests_total")
}

func TestSetupRequiresStoresOutsideDevelopment(t *testing.T) {
	app := fiber.New()
	err := Setup(app, Deps{Cfg: config.Config{AppEnv: "production"}, Logger: logging.Discard()})
	require.Error(t, err)
}

// twilioSignature signs payload, the URL followed by the sorted form
// parameters, the way Twilio does.
func twilioSignature(token, payload string) string {
	mac := hmac.New(sha1.New, []byte(token))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// conflictingRepo loses every write race.
type conflictingRepo struct {
	session.Repository
}

func (conflictingRepo) Update(context.Context, string, session.UpdateFunc) error {
	return session.ErrConflict
}

func TestStaleSessionMapsToConflict(t *testing.T) {
	logger := logging.Discard()
	sessions := session.NewStore(conflictingRepo{Repository: session.NewMemoryRepository(0)}, logger)
	machine := flow.New(flow.Config{}, flow.Deps{
		Sessions: sessions,
		Gate:     auth.NewGate(sessions),
		Accounts: account.NewService(account.NewMemoryRepository()),
		Balances: balance.NewStatic(0),
		Payments: payments.NewService(payments.NewMemoryRepository(), nil),
		Logger:   logger,
	})
	app := fiber.New()
	RegisterIVRRoutes(app, NewIVRHandler(machine, twiml.NewRenderer("https://ivr.example.com"), logger))

	status, body := webhook(t, app, "/ivr/auth", callForm("#"))
	require.Equal(t, fiber.StatusConflict, status)
	require.Contains(t, body, "A system error occurred")
	require.Contains(t, body, "<Hangup></Hangup>")
}
