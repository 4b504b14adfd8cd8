package processor

import (
	"context"
	"errors"
	"testing"
)

func attach(t *testing.T, p *SimulatedProcessor, ref string) (BillingIdentity, []PaymentMethod) {
	t.Helper()
	identity, err := p.AttachMethod(context.Background(), ref)
	if err != nil {
		t.Fatalf("attach method: %v", err)
	}
	methods, err := p.ListCardMethods(context.Background(), identity.ID)
	if err != nil {
		t.Fatalf("list methods: %v", err)
	}
	return identity, methods
}

func TestSimulatedChargeSucceeds(t *testing.T) {
	p := NewSimulated()
	identity, methods := attach(t, p, TestMethodVisa)

	charge, err := p.CreateOffSessionCharge(context.Background(), ChargeParams{
		IdentityID: identity.ID, MethodID: methods[0].ID, Amount: 1400, Currency: "usd",
	})
	if err != nil {
		t.Fatalf("charge failed: %v", err)
	}
	if charge.Status != StatusSucceeded {
		t.Fatalf("expected succeeded, got %s", charge.Status)
	}
	if charge.Handle == "" || charge.ClientSecret == "" {
		t.Fatalf("charge missing handle or secret: %+v", charge)
	}
}

func TestSimulatedAuthenticationRequired(t *testing.T) {
	p := NewSimulated()
	identity, methods := attach(t, p, TestMethodAuthenticationRequired)

	_, err := p.CreateOffSessionCharge(context.Background(), ChargeParams{
		IdentityID: identity.ID, MethodID: methods[0].ID, Amount: 1400, Currency: "usd",
	})

	var ce *ChargeError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ChargeError, got %v", err)
	}
	if ce.Code != CodeAuthenticationRequired {
		t.Fatalf("expected %s, got %s", CodeAuthenticationRequired, ce.Code)
	}
	if ce.Charge == nil || ce.Charge.Handle == "" {
		t.Fatalf("authentication error must carry the charge: %+v", ce)
	}
	if ce.Method == nil || ce.Method.Card.Last4 == "" {
		t.Fatalf("authentication error must carry the card summary: %+v", ce)
	}

	stored, err := p.GetCharge(context.Background(), ce.Charge.Handle)
	if err != nil {
		t.Fatalf("get charge: %v", err)
	}
	if stored.Status != StatusRequiresAction {
		t.Fatalf("expected requires_action, got %s", stored.Status)
	}
}

func TestSimulatedDeclineKeepsHandleOnConfirm(t *testing.T) {
	p := NewSimulated()
	identity, methods := attach(t, p, TestMethodChargeDeclined)

	_, err := p.CreateOffSessionCharge(context.Background(), ChargeParams{
		IdentityID: identity.ID, MethodID: methods[0].ID, Amount: 1400, Currency: "usd",
	})

	var ce *ChargeError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ChargeError, got %v", err)
	}
	if ce.Code != CodeCardDeclined || ce.Charge == nil {
		t.Fatalf("expected card_declined with charge detail, got %+v", ce)
	}

	handle := ce.Charge.Handle
	charge, err := p.ConfirmCharge(context.Background(), handle, TestMethodVisa, true)
	if err != nil {
		t.Fatalf("confirm with new method: %v", err)
	}
	if charge.Handle != handle {
		t.Fatalf("confirm must reuse handle %s, got %s", handle, charge.Handle)
	}
	if charge.Status != StatusSucceeded {
		t.Fatalf("expected succeeded, got %s", charge.Status)
	}
	if ChargeCount(p) != 1 {
		t.Fatalf("expected exactly one charge, got %d", ChargeCount(p))
	}
}

func TestSimulatedEmptyReferenceHasNoMethods(t *testing.T) {
	p := NewSimulated()
	_, methods := attach(t, p, "")
	if len(methods) != 0 {
		t.Fatalf("expected no methods, got %d", len(methods))
	}
}

func TestSimulatedCompleteChallenge(t *testing.T) {
	p := NewSimulated()
	identity, methods := attach(t, p, TestMethodAuthenticationRequired)

	_, err := p.CreateOffSessionCharge(context.Background(), ChargeParams{
		IdentityID: identity.ID, MethodID: methods[0].ID, Amount: 1400, Currency: "usd",
	})
	var ce *ChargeError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ChargeError, got %v", err)
	}

	CompleteChallenge(p, ce.Charge.Handle, false)
	charge, _ := p.GetCharge(context.Background(), ce.Charge.Handle)
	if charge.LastErrorCode != CodeAuthenticationFailure {
		t.Fatalf("expected authentication failure code, got %q", charge.LastErrorCode)
	}

	charge2, err := p.ConfirmCharge(context.Background(), ce.Charge.Handle, TestMethodVisa, false)
	if err != nil {
		t.Fatalf("confirm after failed challenge: %v", err)
	}
	if charge2.Status != StatusSucceeded {
		t.Fatalf("expected succeeded, got %s", charge2.Status)
	}
}
