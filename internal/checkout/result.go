package checkout

import "github.com/stored-pay/stored_pay/internal/processor"

// Outcome tags a ChargeAttemptResult.
type Outcome string

const (
	OutcomeSucceeded              Outcome = "succeeded"
	OutcomeAuthenticationRequired Outcome = "authentication_required"
	OutcomeDeclined               Outcome = "declined"
)

// ChargeAttemptResult is the normalized outcome of one step of the charge
// workflow. Every non-succeeded result carries the charge handle taken from
// the processor's own detail, so resolution always resumes the same attempt
// instead of creating a second charge.
type ChargeAttemptResult struct {
	Outcome      Outcome
	ChargeHandle string
	ClientSecret string
	Amount       int64

	// Set on authentication-required results only.
	PaymentMethod string
	Card          *processor.CardSummary

	// Set on declined results only.
	ReasonCode string
}

// State is a position in the charge recovery protocol.
type State int

const (
	StateStart State = iota
	StateAwaitAuth
	StateAwaitNewMethod
	StateSucceeded
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateAwaitAuth:
		return "await_auth"
	case StateAwaitNewMethod:
		return "await_new_method"
	case StateSucceeded:
		return "succeeded"
	default:
		return "unknown"
	}
}

// Transition advances the protocol given the result of a charge attempt or a
// resolution step. Succeeded is the only terminal state; a declined resolution
// keeps the customer in the new-payment-method view so they can retry.
func Transition(state State, result ChargeAttemptResult) State {
	if state == StateSucceeded {
		return StateSucceeded
	}
	switch result.Outcome {
	case OutcomeSucceeded:
		return StateSucceeded
	case OutcomeAuthenticationRequired:
		return StateAwaitAuth
	case OutcomeDeclined:
		return StateAwaitNewMethod
	default:
		return state
	}
}
