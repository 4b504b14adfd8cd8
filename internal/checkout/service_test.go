package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/stored-pay/stored_pay/internal/logging"
	"github.com/stored-pay/stored_pay/internal/processor"
)

func newTestService() (*Service, *processor.SimulatedProcessor) {
	proc := processor.NewSimulated()
	return NewService(proc, logging.Discard()), proc
}

func TestAttemptChargeSucceeds(t *testing.T) {
	svc, proc := newTestService()

	res, err := svc.AttemptOffSessionCharge(context.Background(), processor.TestMethodVisa)
	if err != nil {
		t.Fatalf("attempt failed: %v", err)
	}
	if res.Outcome != OutcomeSucceeded {
		t.Fatalf("expected succeeded, got %s", res.Outcome)
	}
	if res.ChargeHandle == "" || res.ClientSecret == "" {
		t.Fatalf("success must carry a charge handle and secret: %+v", res)
	}
	if res.ReasonCode != "" {
		t.Fatalf("success must not carry a reason code: %+v", res)
	}

	charge, err := proc.GetCharge(context.Background(), res.ChargeHandle)
	if err != nil {
		t.Fatalf("get charge: %v", err)
	}
	if charge.Status != processor.StatusSucceeded {
		t.Fatalf("expected succeeded, got %s", charge.Status)
	}
}

func TestAttemptChargeAuthenticationRequired(t *testing.T) {
	svc, proc := newTestService()

	res, err := svc.AttemptOffSessionCharge(context.Background(), processor.TestMethodAuthenticationRequired)
	if err != nil {
		t.Fatalf("attempt failed: %v", err)
	}
	if res.Outcome != OutcomeAuthenticationRequired {
		t.Fatalf("expected authentication required, got %s", res.Outcome)
	}
	if res.Card == nil || res.Card.Last4 != "3184" {
		t.Fatalf("expected card summary, got %+v", res.Card)
	}
	if res.Amount != OrderAmount() {
		t.Fatalf("expected amount %d, got %d", OrderAmount(), res.Amount)
	}

	// The handle must round-trip from the processor's error detail.
	charge, err := proc.GetCharge(context.Background(), res.ChargeHandle)
	if err != nil {
		t.Fatalf("handle %s not known to processor: %v", res.ChargeHandle, err)
	}
	if charge.Handle != res.ChargeHandle {
		t.Fatalf("fabricated handle: %s != %s", charge.Handle, res.ChargeHandle)
	}
}

func TestAttemptChargeNoMethodsIsConfigurationError(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.AttemptOffSessionCharge(context.Background(), "")
	if !errors.Is(err, ErrNoPaymentMethods) {
		t.Fatalf("expected ErrNoPaymentMethods, got %v", err)
	}
}

// declineWithoutDetail fails charges without attaching any charge detail.
type declineWithoutDetail struct {
	processor.Processor
}

func (p declineWithoutDetail) CreateOffSessionCharge(_ context.Context, _ processor.ChargeParams) (processor.Charge, error) {
	return processor.Charge{}, &processor.ChargeError{Code: "card_declined"}
}

func TestAttemptChargeDeclineWithoutHandle(t *testing.T) {
	base := processor.NewSimulated()
	svc := NewService(declineWithoutDetail{base}, logging.Discard())

	res, err := svc.AttemptOffSessionCharge(context.Background(), processor.TestMethodVisa)
	if err != nil {
		t.Fatalf("decline without detail must not fail hard: %v", err)
	}
	if res.Outcome != OutcomeDeclined || res.ReasonCode != "card_declined" {
		t.Fatalf("expected well-formed decline, got %+v", res)
	}
	if res.ChargeHandle != "" {
		t.Fatalf("no handle was available, got %q", res.ChargeHandle)
	}
}

// transportDown simulates an unreachable processor.
type transportDown struct {
	processor.Processor
}

func (p transportDown) CreateOffSessionCharge(_ context.Context, _ processor.ChargeParams) (processor.Charge, error) {
	return processor.Charge{}, errors.New("connection refused")
}

func TestAttemptChargeTransportErrorPropagates(t *testing.T) {
	base := processor.NewSimulated()
	svc := NewService(transportDown{base}, logging.Discard())

	_, err := svc.AttemptOffSessionCharge(context.Background(), processor.TestMethodVisa)
	if err == nil {
		t.Fatal("expected transport error to propagate")
	}
	var ce *processor.ChargeError
	if errors.As(err, &ce) {
		t.Fatalf("transport error must not be classified: %v", err)
	}
}

func TestResolveAuthenticationSucceeds(t *testing.T) {
	svc, proc := newTestService()

	res, err := svc.AttemptOffSessionCharge(context.Background(), processor.TestMethodAuthenticationRequired)
	if err != nil {
		t.Fatalf("attempt failed: %v", err)
	}

	processor.CompleteChallenge(proc, res.ChargeHandle, true)

	resolved, err := svc.ResolveAuthentication(context.Background(), res.ChargeHandle, res.PaymentMethod)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved.Outcome != OutcomeSucceeded {
		t.Fatalf("expected succeeded, got %+v", resolved)
	}
	if resolved.ChargeHandle != res.ChargeHandle {
		t.Fatalf("resolution switched charge: %s != %s", resolved.ChargeHandle, res.ChargeHandle)
	}
	if processor.ChargeCount(proc) != 1 {
		t.Fatalf("expected one underlying charge, got %d", processor.ChargeCount(proc))
	}
}

func TestResolveAuthenticationFailureRoutesToNewMethod(t *testing.T) {
	svc, proc := newTestService()

	res, err := svc.AttemptOffSessionCharge(context.Background(), processor.TestMethodAuthenticationRequired)
	if err != nil {
		t.Fatalf("attempt failed: %v", err)
	}

	processor.CompleteChallenge(proc, res.ChargeHandle, false)

	resolved, err := svc.ResolveAuthentication(context.Background(), res.ChargeHandle, res.PaymentMethod)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved.Outcome != OutcomeDeclined || resolved.ReasonCode != processor.CodeAuthenticationFailure {
		t.Fatalf("expected authentication failure decline, got %+v", resolved)
	}
	if resolved.ChargeHandle != res.ChargeHandle {
		t.Fatalf("resolution switched charge: %s != %s", resolved.ChargeHandle, res.ChargeHandle)
	}
}

// stuckProcessing reports a charge stuck in an unexpected status.
type stuckProcessing struct {
	processor.Processor
}

func (p stuckProcessing) GetCharge(_ context.Context, handle string) (processor.Charge, error) {
	return processor.Charge{Handle: handle, Status: processor.StatusProcessing}, nil
}

func TestResolveAuthenticationUnexpectedStatusIsGenericDecline(t *testing.T) {
	svc := NewService(stuckProcessing{processor.NewSimulated()}, logging.Discard())

	resolved, err := svc.ResolveAuthentication(context.Background(), "pi_sim_x", "pm_x")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved.Outcome != OutcomeDeclined || resolved.ReasonCode != "charge_incomplete" {
		t.Fatalf("expected generic decline for unexpected status, got %+v", resolved)
	}
}

func TestResolveWithNewMethod(t *testing.T) {
	svc, proc := newTestService()

	res, err := svc.AttemptOffSessionCharge(context.Background(), processor.TestMethodChargeDeclined)
	if err != nil {
		t.Fatalf("attempt failed: %v", err)
	}
	if res.Outcome != OutcomeDeclined || res.ChargeHandle == "" {
		t.Fatalf("expected decline with handle, got %+v", res)
	}

	// A second bad card keeps the customer in the recovery view.
	retry, err := svc.ResolveWithNewMethod(context.Background(), res.ChargeHandle, processor.TestMethodChargeDeclined)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if retry.Outcome != OutcomeDeclined || retry.ChargeHandle != res.ChargeHandle {
		t.Fatalf("expected decline against same handle, got %+v", retry)
	}

	resolved, err := svc.ResolveWithNewMethod(context.Background(), res.ChargeHandle, processor.TestMethodVisa)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved.Outcome != OutcomeSucceeded {
		t.Fatalf("expected succeeded, got %+v", resolved)
	}
	if resolved.ChargeHandle != res.ChargeHandle {
		t.Fatalf("resolution switched charge: %s != %s", resolved.ChargeHandle, res.ChargeHandle)
	}
	if processor.ChargeCount(proc) != 1 {
		t.Fatalf("expected one underlying charge, got %d", processor.ChargeCount(proc))
	}
}
