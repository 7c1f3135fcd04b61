// Package domain contains the core domain types for the arbitrage context.
package domain

// Status is the lifecycle state of an opportunity.
type Status string

const (
	StatusIdentified Status = "identified" // just discovered
	StatusSimulated  Status = "simulated"  // simulation completed
	StatusPending    Status = "pending"    // queued for execution
	StatusExecuting  Status = "executing"  // currently executing
	StatusExecuted   Status = "executed"   // successfully executed
	StatusFailed     Status = "failed"     // execution failed
	StatusExpired    Status = "expired"    // deadline passed
)

// validTransitions defines the opportunity lifecycle. Executed, failed
// and expired are terminal.
var validTransitions = map[Status][]Status{
	StatusIdentified: {StatusSimulated, StatusExpired, StatusFailed},
	StatusSimulated:  {StatusPending, StatusExpired, StatusFailed},
	StatusPending:    {StatusExecuting, StatusExpired, StatusFailed},
	StatusExecuting:  {StatusExecuted, StatusFailed},
	StatusExecuted:   {},
	StatusFailed:     {},
	StatusExpired:    {},
}

// CanTransitionTo reports whether next is a legal successor state.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return len(validTransitions[s]) == 0
}

// Valid reports whether s is a known lifecycle state.
func (s Status) Valid() bool {
	_, ok := validTransitions[s]
	return ok
}

func (s Status) String() string {
	return string(s)
}
