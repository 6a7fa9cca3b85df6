package middleware

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/twilio/twilio-go/client"
)

const signatureHeader = "X-Twilio-Signature"

// TwilioSignature rejects webhooks whose X-Twilio-Signature does not match
// the request. baseURL is the public origin Twilio was configured with. An
// empty authToken disables the check.
func TwilioSignature(authToken, baseURL string, logger *slog.Logger) fiber.Handler {
	if authToken == "" {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	baseURL = strings.TrimRight(baseURL, "/")
	validator := client.NewRequestValidator(authToken)
	return func(c *fiber.Ctx) error {
		got := c.Get(signatureHeader)
		if got == "" {
			return fiber.NewError(fiber.StatusForbidden, "missing signature")
		}

		params := map[string]string{}
		if c.Method() == fiber.MethodPost {
			c.Request().PostArgs().VisitAll(func(k, v []byte) {
				params[string(k)] = string(v)
			})
		}

		if !validator.Validate(baseURL+c.OriginalURL(), params, got) {
			logger.Warn("webhook signature mismatch", slog.String("path", c.Path()))
			return fiber.NewError(fiber.StatusForbidden, "invalid signature")
		}
		return c.Next()
	}
}
