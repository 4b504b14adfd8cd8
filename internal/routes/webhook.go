package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/stored-pay/stored_pay/internal/events"
)

// RegisterWebhookRoutes wires the processor's asynchronous event endpoint.
func RegisterWebhookRoutes(app *fiber.App, h *events.Handler) {
	app.Post("/webhook", h.HandleLifecycleEvent)
}
