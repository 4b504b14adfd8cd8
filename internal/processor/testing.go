package processor

// CompleteChallenge is a test helper that settles a pending interactive
// challenge on the simulated processor. With pass set the charge moves to
// succeeded; otherwise it falls back to needing a payment method with an
// authentication failure recorded.
func CompleteChallenge(p Processor, handle string, pass bool) {
	sim, ok := p.(*SimulatedProcessor)
	if !ok {
		return
	}
	sim.mu.Lock()
	defer sim.mu.Unlock()

	charge, ok := sim.charges[handle]
	if !ok || charge.Status != StatusRequiresAction {
		return
	}
	if pass {
		charge.Status = StatusSucceeded
		charge.LastErrorCode = ""
	} else {
		charge.Status = StatusRequiresPaymentMethod
		charge.LastErrorCode = CodeAuthenticationFailure
	}
}

// ChargeCount is a test helper reporting how many distinct charge attempts
// the simulated processor has recorded.
func ChargeCount(p Processor) int {
	sim, ok := p.(*SimulatedProcessor)
	if !ok {
		return 0
	}
	sim.mu.Lock()
	defer sim.mu.Unlock()
	return len(sim.charges)
}
