package domain

// allowedTransitions is the fixed lifecycle graph. COMPLETED and
// CANCELLED are terminal.
var allowedTransitions = map[Status][]Status{
	StatusReceived:       {StatusConfirmed, StatusCancelled},
	StatusConfirmed:      {StatusPreparing, StatusCancelled},
	StatusPreparing:      {StatusReady, StatusCancelled},
	StatusReady:          {StatusOutForDelivery, StatusCancelled},
	StatusOutForDelivery: {StatusCompleted},
	StatusCompleted:      {},
	StatusCancelled:      {},
}

// ValidStatus reports whether the status is part of the lifecycle graph.
func ValidStatus(status Status) bool {
	_, ok := allowedTransitions[status]
	return ok
}

// ValidateTransition reports whether current may move to target. Pure
// lookup, no side effects.
func ValidateTransition(current, target Status) bool {
	for _, allowed := range allowedTransitions[current] {
		if allowed == target {
			return true
		}
	}
	return false
}

// AllowedNext returns the statuses current may move to.
func AllowedNext(current Status) []Status {
	allowed := allowedTransitions[current]
	out := make([]Status, len(allowed))
	copy(out, allowed)
	return out
}

// Terminal reports whether no further transitions are possible.
func Terminal(status Status) bool {
	return len(allowedTransitions[status]) == 0
}
