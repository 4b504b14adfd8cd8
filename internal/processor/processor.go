package processor

import (
	"context"
	"fmt"
)

// Status mirrors the processor's charge lifecycle states this service cares about.
type Status string

const (
	StatusSucceeded             Status = "succeeded"
	StatusRequiresAction        Status = "requires_action"
	StatusRequiresPaymentMethod Status = "requires_payment_method"
	StatusProcessing            Status = "processing"
)

// Error codes surfaced by the processor that the charge workflow branches on.
const (
	CodeAuthenticationRequired = "authentication_required"
	CodeAuthenticationFailure  = "payment_intent_authentication_failure"
	CodeCardDeclined           = "card_declined"
)

// BillingIdentity is the record a payment method is attached to for reuse.
type BillingIdentity struct {
	ID string
}

// CardSummary carries display-only card details. Never used for matching.
type CardSummary struct {
	Brand string
	Last4 string
}

// PaymentMethod describes a stored card instrument on a billing identity.
type PaymentMethod struct {
	ID   string
	Card CardSummary
}

// Charge is this service's view of a single charge attempt. Handle identifies
// the attempt for later confirmation or inspection; ClientSecret is handed to
// the browser so the payment widget can drive an interactive challenge.
type Charge struct {
	Handle        string
	ClientSecret  string
	Status        Status
	Amount        int64
	Currency      string
	MethodID      string
	LastErrorCode string
}

// ChargeParams captures the server-computed inputs for an off-session charge.
type ChargeParams struct {
	IdentityID string
	MethodID   string
	Amount     int64
	Currency   string
}

// ChargeError is a soft charge failure translated at the processor boundary.
// It always carries whatever charge and instrument detail the processor
// attached to the failure, so callers never re-inspect raw processor errors.
type ChargeError struct {
	Code    string
	Message string
	Charge  *Charge
	Method  *PaymentMethod
}

func (e *ChargeError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("charge failed: %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("charge failed: %s", e.Code)
}

// Processor is a connector to the hosted payment API. Transport failures and
// errors without a recognizable shape are returned as plain errors; expected
// soft failures come back as *ChargeError.
type Processor interface {
	// AttachMethod creates a billing identity with the supplied payment-method
	// reference attached to it.
	AttachMethod(ctx context.Context, methodRef string) (BillingIdentity, error)

	// ListCardMethods enumerates the card instruments stored on an identity.
	ListCardMethods(ctx context.Context, identityID string) ([]PaymentMethod, error)

	// CreateOffSessionCharge creates and immediately confirms a charge without
	// an interactive cardholder present.
	CreateOffSessionCharge(ctx context.Context, params ChargeParams) (Charge, error)

	// ConfirmCharge confirms the same charge attempt with an instrument,
	// optionally persisting the instrument to the identity for future reuse.
	ConfirmCharge(ctx context.Context, handle, methodRef string, save bool) (Charge, error)

	// GetCharge inspects a charge attempt by handle.
	GetCharge(ctx context.Context, handle string) (Charge, error)
}
