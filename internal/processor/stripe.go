package processor

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

// StripeProcessor talks to the Stripe API using a dedicated client instance
// rather than the SDK's global state.
type StripeProcessor struct {
	client *client.API
}

// NewStripeProcessor builds a processor bound to the given secret key.
func NewStripeProcessor(secretKey string) *StripeProcessor {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &StripeProcessor{client: sc}
}

// AttachMethod creates a customer with the payment method attached. The sample
// creates a fresh customer per attempt; a production flow would look one up.
func (p *StripeProcessor) AttachMethod(ctx context.Context, methodRef string) (BillingIdentity, error) {
	params := &stripe.CustomerParams{PaymentMethod: stripe.String(methodRef)}
	params.Context = ctx

	cus, err := p.client.Customers.New(params)
	if err != nil {
		return BillingIdentity{}, fmt.Errorf("create customer: %w", translateError(err))
	}
	return BillingIdentity{ID: cus.ID}, nil
}

// ListCardMethods enumerates the customer's card payment methods.
func (p *StripeProcessor) ListCardMethods(ctx context.Context, identityID string) ([]PaymentMethod, error) {
	params := &stripe.PaymentMethodListParams{
		Customer: stripe.String(identityID),
		Type:     stripe.String(string(stripe.PaymentMethodTypeCard)),
	}
	params.Context = ctx

	var methods []PaymentMethod
	iter := p.client.PaymentMethods.List(params)
	for iter.Next() {
		methods = append(methods, methodFromStripe(iter.PaymentMethod()))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list payment methods: %w", translateError(err))
	}
	return methods, nil
}

// CreateOffSessionCharge creates and confirms a PaymentIntent marked
// off-session, so the processor knows no interactive browser context exists.
func (p *StripeProcessor) CreateOffSessionCharge(ctx context.Context, in ChargeParams) (Charge, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(in.Amount),
		Currency:      stripe.String(in.Currency),
		Customer:      stripe.String(in.IdentityID),
		PaymentMethod: stripe.String(in.MethodID),
		Confirm:       stripe.Bool(true),
		OffSession:    stripe.Bool(true),
	}
	params.Context = ctx

	pi, err := p.client.PaymentIntents.New(params)
	if err != nil {
		return Charge{}, translateError(err)
	}
	return chargeFromIntent(pi), nil
}

// ConfirmCharge confirms the same PaymentIntent with the given instrument.
// With save set, the instrument is kept on the customer for future reuse.
func (p *StripeProcessor) ConfirmCharge(ctx context.Context, handle, methodRef string, save bool) (Charge, error) {
	params := &stripe.PaymentIntentConfirmParams{PaymentMethod: stripe.String(methodRef)}
	if save {
		params.SetupFutureUsage = stripe.String(string(stripe.PaymentIntentSetupFutureUsageOffSession))
	}
	params.Context = ctx

	pi, err := p.client.PaymentIntents.Confirm(handle, params)
	if err != nil {
		return Charge{}, translateError(err)
	}
	return chargeFromIntent(pi), nil
}

// GetCharge fetches the PaymentIntent by id.
func (p *StripeProcessor) GetCharge(ctx context.Context, handle string) (Charge, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := p.client.PaymentIntents.Get(handle, params)
	if err != nil {
		return Charge{}, translateError(err)
	}
	return chargeFromIntent(pi), nil
}

// translateError converts SDK errors into the boundary's *ChargeError so that
// no Stripe error shapes leak into the charge workflow. Errors without a code
// pass through untouched and are treated as fatal by the caller.
func translateError(err error) error {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) || stripeErr.Code == "" {
		return err
	}

	ce := &ChargeError{Code: string(stripeErr.Code), Message: stripeErr.Msg}
	if stripeErr.PaymentIntent != nil {
		charge := chargeFromIntent(stripeErr.PaymentIntent)
		ce.Charge = &charge
	}
	if stripeErr.PaymentMethod != nil {
		method := methodFromStripe(stripeErr.PaymentMethod)
		ce.Method = &method
	}
	return ce
}

func chargeFromIntent(pi *stripe.PaymentIntent) Charge {
	charge := Charge{
		Handle:       pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       Status(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
	}
	if pi.PaymentMethod != nil {
		charge.MethodID = pi.PaymentMethod.ID
	}
	if pi.LastPaymentError != nil {
		charge.LastErrorCode = string(pi.LastPaymentError.Code)
	}
	return charge
}

func methodFromStripe(pm *stripe.PaymentMethod) PaymentMethod {
	method := PaymentMethod{ID: pm.ID}
	if pm.Card != nil {
		method.Card = CardSummary{Brand: string(pm.Card.Brand), Last4: pm.Card.Last4}
	}
	return method
}
