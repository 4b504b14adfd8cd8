package processor

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Test method references mirroring the processor's published test tokens.
const (
	TestMethodVisa                   = "pm_card_visa"
	TestMethodAuthenticationRequired = "pm_card_authenticationRequired"
	TestMethodChargeDeclined         = "pm_card_chargeDeclined"
)

// SimulatedProcessor is an in-memory stand-in for the hosted processor. It
// recognizes the published test method tokens and keeps charge attempts in
// memory so the full recovery workflow can run without network access. Used
// when no secret key is configured, and by the test suite.
type SimulatedProcessor struct {
	mu          sync.Mutex
	identities  map[string][]PaymentMethod
	charges     map[string]*Charge
	chargeOwner map[string]string
}

// NewSimulated creates an empty simulated processor.
func NewSimulated() *SimulatedProcessor {
	return &SimulatedProcessor{
		identities:  make(map[string][]PaymentMethod),
		charges:     make(map[string]*Charge),
		chargeOwner: make(map[string]string),
	}
}

// AttachMethod creates a billing identity holding the supplied method. An
// empty reference yields an identity with no stored instruments.
func (p *SimulatedProcessor) AttachMethod(_ context.Context, methodRef string) (BillingIdentity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := "cus_sim_" + shortID()
	if methodRef == "" {
		p.identities[id] = nil
	} else {
		p.identities[id] = []PaymentMethod{{ID: methodRef, Card: summaryFor(methodRef)}}
	}
	return BillingIdentity{ID: id}, nil
}

// ListCardMethods returns the instruments stored on the identity.
func (p *SimulatedProcessor) ListCardMethods(_ context.Context, identityID string) ([]PaymentMethod, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	methods, ok := p.identities[identityID]
	if !ok {
		return nil, fmt.Errorf("no such billing identity: %s", identityID)
	}
	out := make([]PaymentMethod, len(methods))
	copy(out, methods)
	return out, nil
}

// CreateOffSessionCharge records a new charge attempt and resolves it
// according to the test token semantics.
func (p *SimulatedProcessor) CreateOffSessionCharge(_ context.Context, in ChargeParams) (Charge, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	methods, ok := p.identities[in.IdentityID]
	if !ok {
		return Charge{}, fmt.Errorf("no such billing identity: %s", in.IdentityID)
	}
	var method *PaymentMethod
	for i := range methods {
		if methods[i].ID == in.MethodID {
			method = &methods[i]
			break
		}
	}
	if method == nil {
		return Charge{}, fmt.Errorf("method %s not attached to %s", in.MethodID, in.IdentityID)
	}

	handle := "pi_sim_" + shortID()
	charge := &Charge{
		Handle:       handle,
		ClientSecret: handle + "_secret_" + shortID(),
		Amount:       in.Amount,
		Currency:     in.Currency,
		MethodID:     in.MethodID,
	}
	p.charges[handle] = charge
	p.chargeOwner[handle] = in.IdentityID

	switch in.MethodID {
	case TestMethodAuthenticationRequired:
		charge.Status = StatusRequiresAction
		charge.LastErrorCode = CodeAuthenticationRequired
		m := *method
		return Charge{}, &ChargeError{
			Code:    CodeAuthenticationRequired,
			Message: "This transaction requires authentication.",
			Charge:  copyCharge(charge),
			Method:  &m,
		}
	case TestMethodChargeDeclined:
		charge.Status = StatusRequiresPaymentMethod
		charge.LastErrorCode = CodeCardDeclined
		return Charge{}, &ChargeError{
			Code:    CodeCardDeclined,
			Message: "Your card was declined.",
			Charge:  copyCharge(charge),
		}
	default:
		charge.Status = StatusSucceeded
		return *copyCharge(charge), nil
	}
}

// ConfirmCharge re-confirms an existing charge attempt with an instrument.
// The handle never changes: resolution always converges on the same attempt.
func (p *SimulatedProcessor) ConfirmCharge(_ context.Context, handle, methodRef string, save bool) (Charge, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	charge, ok := p.charges[handle]
	if !ok {
		return Charge{}, fmt.Errorf("no such charge: %s", handle)
	}
	if charge.Status == StatusSucceeded {
		return Charge{}, fmt.Errorf("charge %s already succeeded", handle)
	}

	switch methodRef {
	case TestMethodChargeDeclined:
		charge.Status = StatusRequiresPaymentMethod
		charge.LastErrorCode = CodeCardDeclined
		return Charge{}, &ChargeError{
			Code:    CodeCardDeclined,
			Message: "Your card was declined.",
			Charge:  copyCharge(charge),
		}
	case TestMethodAuthenticationRequired:
		charge.Status = StatusRequiresAction
		charge.LastErrorCode = CodeAuthenticationRequired
		m := PaymentMethod{ID: methodRef, Card: summaryFor(methodRef)}
		return Charge{}, &ChargeError{
			Code:    CodeAuthenticationRequired,
			Message: "This transaction requires authentication.",
			Charge:  copyCharge(charge),
			Method:  &m,
		}
	default:
		charge.Status = StatusSucceeded
		charge.LastErrorCode = ""
		charge.MethodID = methodRef
		if save {
			owner := p.chargeOwner[handle]
			if !containsMethod(p.identities[owner], methodRef) {
				p.identities[owner] = append(p.identities[owner], PaymentMethod{ID: methodRef, Card: summaryFor(methodRef)})
			}
		}
		return *copyCharge(charge), nil
	}
}

// GetCharge returns a snapshot of the charge attempt.
func (p *SimulatedProcessor) GetCharge(_ context.Context, handle string) (Charge, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	charge, ok := p.charges[handle]
	if !ok {
		return Charge{}, fmt.Errorf("no such charge: %s", handle)
	}
	return *copyCharge(charge), nil
}

func summaryFor(methodRef string) CardSummary {
	switch methodRef {
	case TestMethodAuthenticationRequired:
		return CardSummary{Brand: "visa", Last4: "3184"}
	case TestMethodChargeDeclined:
		return CardSummary{Brand: "visa", Last4: "0002"}
	default:
		return CardSummary{Brand: "visa", Last4: "4242"}
	}
}

func copyCharge(c *Charge) *Charge {
	dup := *c
	return &dup
}

func containsMethod(methods []PaymentMethod, id string) bool {
	for _, m := range methods {
		if m.ID == id {
			return true
		}
	}
	return false
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
