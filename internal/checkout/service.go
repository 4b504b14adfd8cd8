package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stored-pay/stored_pay/internal/processor"
)

// Currency and order pricing are computed server-side so the client can never
// manipulate the amount it is charged.
const chargeCurrency = "usd"

// ErrNoPaymentMethods indicates the billing identity holds no card instrument
// to charge. This is a configuration error, not a user-facing decline.
var ErrNoPaymentMethods = errors.New("billing identity has no card payment methods")

// OrderAmount computes the order total in the smallest currency unit. The
// sample charges a fixed amount; replace with a real order calculation.
func OrderAmount() int64 {
	return 1400
}

// Service drives the off-session charge workflow against the processor.
type Service struct {
	proc   processor.Processor
	logger *slog.Logger
}

// NewService constructs the charge orchestrator.
func NewService(proc processor.Processor, logger *slog.Logger) *Service {
	return &Service{proc: proc, logger: logger}
}

// AttemptOffSessionCharge attaches the supplied payment-method reference to a
// fresh billing identity, selects its first card instrument, and attempts to
// create-and-confirm an off-session charge for the server-computed amount.
// Soft failures come back as a classified ChargeAttemptResult; transport
// failures and errors without a recognizable shape are returned as errors.
func (s *Service) AttemptOffSessionCharge(ctx context.Context, methodRef string) (ChargeAttemptResult, error) {
	identity, err := s.proc.AttachMethod(ctx, methodRef)
	if err != nil {
		return ChargeAttemptResult{}, fmt.Errorf("attach payment method: %w", err)
	}

	methods, err := s.proc.ListCardMethods(ctx, identity.ID)
	if err != nil {
		return ChargeAttemptResult{}, fmt.Errorf("list payment methods: %w", err)
	}
	if len(methods) == 0 {
		return ChargeAttemptResult{}, ErrNoPaymentMethods
	}

	charge, err := s.proc.CreateOffSessionCharge(ctx, processor.ChargeParams{
		IdentityID: identity.ID,
		MethodID:   methods[0].ID,
		Amount:     OrderAmount(),
		Currency:   chargeCurrency,
	})
	if err != nil {
		return s.classify(err)
	}

	return ChargeAttemptResult{
		Outcome:      OutcomeSucceeded,
		ChargeHandle: charge.Handle,
		ClientSecret: charge.ClientSecret,
		Amount:       charge.Amount,
	}, nil
}

// ResolveAuthentication inspects the charge after the browser has run the
// interactive step-up challenge and reports the terminal outcome. A failed
// challenge routes to the new-payment-method view; any other incomplete
// status is treated as a generic decline rather than left unreported.
func (s *Service) ResolveAuthentication(ctx context.Context, handle, methodRef string) (ChargeAttemptResult, error) {
	charge, err := s.proc.GetCharge(ctx, handle)
	if err != nil {
		return ChargeAttemptResult{}, fmt.Errorf("inspect charge %s: %w", handle, err)
	}

	switch {
	case charge.Status == processor.StatusSucceeded:
		return ChargeAttemptResult{
			Outcome:      OutcomeSucceeded,
			ChargeHandle: charge.Handle,
			ClientSecret: charge.ClientSecret,
			Amount:       charge.Amount,
		}, nil
	case charge.LastErrorCode == processor.CodeAuthenticationFailure:
		return ChargeAttemptResult{
			Outcome:      OutcomeDeclined,
			ChargeHandle: charge.Handle,
			ClientSecret: charge.ClientSecret,
			ReasonCode:   processor.CodeAuthenticationFailure,
		}, nil
	case charge.Status == processor.StatusRequiresAction:
		// Challenge not completed yet; hand the same handle back.
		return ChargeAttemptResult{
			Outcome:       OutcomeAuthenticationRequired,
			ChargeHandle:  charge.Handle,
			ClientSecret:  charge.ClientSecret,
			Amount:        charge.Amount,
			PaymentMethod: methodRef,
		}, nil
	default:
		reason := charge.LastErrorCode
		if reason == "" {
			reason = "charge_incomplete"
		}
		s.logger.Warn("post-authentication charge in unexpected state",
			"charge", charge.Handle, "status", string(charge.Status), "reason", reason)
		return ChargeAttemptResult{
			Outcome:      OutcomeDeclined,
			ChargeHandle: charge.Handle,
			ClientSecret: charge.ClientSecret,
			ReasonCode:   reason,
		}, nil
	}
}

// ResolveWithNewMethod confirms the same charge attempt with a freshly
// collected instrument, saving it to the billing identity for reuse. A decline
// keeps the customer in the recovery view with the same handle; there is no
// attempt limit.
func (s *Service) ResolveWithNewMethod(ctx context.Context, handle, methodRef string) (ChargeAttemptResult, error) {
	charge, err := s.proc.ConfirmCharge(ctx, handle, methodRef, true)
	if err != nil {
		return s.classify(err)
	}

	return ChargeAttemptResult{
		Outcome:      OutcomeSucceeded,
		ChargeHandle: charge.Handle,
		ClientSecret: charge.ClientSecret,
		Amount:       charge.Amount,
	}, nil
}

// classify folds a processor soft failure into the result union. Declines
// missing charge detail are logged and still produce a well-formed result.
func (s *Service) classify(err error) (ChargeAttemptResult, error) {
	var ce *processor.ChargeError
	if !errors.As(err, &ce) {
		return ChargeAttemptResult{}, err
	}

	if ce.Code == processor.CodeAuthenticationRequired && ce.Charge != nil {
		result := ChargeAttemptResult{
			Outcome:      OutcomeAuthenticationRequired,
			ChargeHandle: ce.Charge.Handle,
			ClientSecret: ce.Charge.ClientSecret,
			Amount:       ce.Charge.Amount,
		}
		if ce.Method != nil {
			result.PaymentMethod = ce.Method.ID
			card := ce.Method.Card
			result.Card = &card
		}
		return result, nil
	}

	result := ChargeAttemptResult{Outcome: OutcomeDeclined, ReasonCode: ce.Code}
	if ce.Charge != nil {
		result.ChargeHandle = ce.Charge.Handle
		result.ClientSecret = ce.Charge.ClientSecret
	} else {
		s.logger.Warn("decline carried no charge detail", "code", ce.Code)
	}
	return result, nil
}
