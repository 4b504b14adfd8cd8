package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/stored-pay/stored_pay/internal/checkout"
)

// RegisterCheckoutRoutes wires the charge workflow endpoints.
func RegisterCheckoutRoutes(app *fiber.App, h *checkout.Handler) {
	app.Post("/charge-card-off-session", h.ChargeCard)
	app.Post("/resolve-authentication", h.ResolveAuthentication)
	app.Post("/resolve-new-payment-method", h.ResolveNewMethod)
}
