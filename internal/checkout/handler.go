package checkout

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/stored-pay/stored_pay/internal/processor"
)

// Handler exposes the charge workflow endpoints.
type Handler struct {
	service   *Service
	publicKey string
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewHandler constructs the checkout HTTP handler. The publishable key is
// echoed in every response so the browser can initialize the payment widget.
func NewHandler(service *Service, publicKey string, logger *slog.Logger) *Handler {
	return &Handler{
		service:   service,
		publicKey: publicKey,
		validate:  validator.New(),
		logger:    logger,
	}
}

type chargeRequest struct {
	PaymentMethod string `json:"paymentMethod" validate:"required"`
}

type resolveRequest struct {
	ChargeHandle  string `json:"chargeHandle" validate:"required"`
	PaymentMethod string `json:"paymentMethod" validate:"required"`
}

type cardResponse struct {
	Brand string `json:"brand"`
	Last4 string `json:"last4"`
}

type chargeResponse struct {
	Succeeded     bool          `json:"succeeded,omitempty"`
	Error         string        `json:"error,omitempty"`
	ChargeHandle  string        `json:"chargeHandle,omitempty"`
	ClientSecret  string        `json:"clientSecret,omitempty"`
	PublicKey     string        `json:"publicKey"`
	PaymentMethod string        `json:"paymentMethod,omitempty"`
	Amount        int64         `json:"amount,omitempty"`
	Card          *cardResponse `json:"card,omitempty"`
}

// ChargeCard attempts to charge the supplied stored payment method off-session.
func (h *Handler) ChargeCard(c *fiber.Ctx) error {
	var req chargeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "paymentMethod is required")
	}

	result, err := h.service.AttemptOffSessionCharge(c.UserContext(), req.PaymentMethod)
	if err != nil {
		return h.fail(c, err)
	}
	return h.respond(c, result)
}

// ResolveAuthentication reports the outcome of the browser's step-up
// challenge back against the same charge handle.
func (h *Handler) ResolveAuthentication(c *fiber.Ctx) error {
	var req resolveRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "chargeHandle and paymentMethod are required")
	}

	result, err := h.service.ResolveAuthentication(c.UserContext(), req.ChargeHandle, req.PaymentMethod)
	if err != nil {
		return h.fail(c, err)
	}
	return h.respond(c, result)
}

// ResolveNewMethod confirms the same charge handle with a freshly collected
// instrument.
func (h *Handler) ResolveNewMethod(c *fiber.Ctx) error {
	var req resolveRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "chargeHandle and paymentMethod are required")
	}

	result, err := h.service.ResolveWithNewMethod(c.UserContext(), req.ChargeHandle, req.PaymentMethod)
	if err != nil {
		return h.fail(c, err)
	}
	return h.respond(c, result)
}

// respond renders a ChargeAttemptResult onto the wire. Soft failures are part
// of the protocol and ship with a 200 so the client can branch on the error
// field, matching the reference client contract.
func (h *Handler) respond(c *fiber.Ctx, result ChargeAttemptResult) error {
	resp := chargeResponse{
		ChargeHandle: result.ChargeHandle,
		ClientSecret: result.ClientSecret,
		PublicKey:    h.publicKey,
	}

	switch result.Outcome {
	case OutcomeSucceeded:
		resp.Succeeded = true
	case OutcomeAuthenticationRequired:
		resp.Error = string(OutcomeAuthenticationRequired)
		resp.PaymentMethod = result.PaymentMethod
		resp.Amount = result.Amount
		if result.Card != nil {
			resp.Card = &cardResponse{Brand: result.Card.Brand, Last4: result.Card.Last4}
		}
	case OutcomeDeclined:
		resp.Error = result.ReasonCode
	}

	return c.Status(http.StatusOK).JSON(resp)
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	if errors.Is(err, ErrNoPaymentMethods) {
		h.logger.Error("no payment methods on billing identity", "error", err)
		return fiber.NewError(http.StatusInternalServerError, "no stored payment method available")
	}
	var ce *processor.ChargeError
	if errors.As(err, &ce) {
		// classify handles charge errors; anything arriving here is unexpected.
		h.logger.Error("unclassified charge error", "error", err)
		return fiber.NewError(http.StatusInternalServerError, "charge failed")
	}
	h.logger.Error("processor call failed", "error", err)
	return fiber.NewError(http.StatusBadGateway, "payment processor unavailable")
}
