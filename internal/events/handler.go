package events

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v79/webhook"
)

const signatureHeader = "Stripe-Signature"

// Handler receives asynchronous lifecycle notifications from the processor.
type Handler struct {
	notifier *Notifier
	secret   string
	logger   *slog.Logger
}

// NewHandler constructs the webhook handler. With an empty signing secret the
// payload is trusted as-is; that is a sample simplification, not a
// recommended default.
func NewHandler(notifier *Notifier, secret string, logger *slog.Logger) *Handler {
	return &Handler{notifier: notifier, secret: secret, logger: logger}
}

type envelope struct {
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// HandleLifecycleEvent verifies the payload over the exact raw bytes, then
// dispatches by event kind. Verification failures are rejected with a 400 and
// produce no side effect; the processor retries on non-2xx.
func (h *Handler) HandleLifecycleEvent(c *fiber.Ctx) error {
	payload := c.Body()

	var kind string
	var object json.RawMessage
	if h.secret != "" {
		event, err := webhook.ConstructEventWithOptions(payload, c.Get(signatureHeader), h.secret,
			webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
		if err != nil {
			h.logger.Warn("webhook signature verification failed", "error", err)
			return fiber.NewError(http.StatusBadRequest, "signature verification failed")
		}
		kind = string(event.Type)
		object = event.Data.Raw
	} else {
		var env envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			return fiber.NewError(http.StatusBadRequest, "malformed event payload")
		}
		kind = env.Type
		object = env.Data.Object
	}

	if err := h.notifier.Dispatch(c.UserContext(), kind, object); err != nil {
		h.logger.Error("event dispatch failed", "kind", kind, "error", err)
		return fiber.NewError(http.StatusInternalServerError, "event processing failed")
	}

	return c.SendStatus(http.StatusOK)
}
