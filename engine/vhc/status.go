package vhc

// transitions is the response state machine: draft -> in_progress ->
// submitted -> approved, with void reachable from any non-terminal state.
var transitions = map[Status][]Status{
	StatusDraft:      {StatusInProgress, StatusSubmitted, StatusVoid},
	StatusInProgress: {StatusSubmitted, StatusVoid},
	StatusSubmitted:  {StatusApproved, StatusVoid},
	StatusApproved:   {},
	StatusVoid:       {},
}

// ValidStatuses is the set of recognised response statuses.
var ValidStatuses = map[Status]bool{
	StatusDraft: true, StatusInProgress: true, StatusSubmitted: true,
	StatusApproved: true, StatusVoid: true,
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition applies a status change, enforcing the state machine. It is
// the only legal way to mutate a response's status.
func Transition(r *Response, to Status) error {
	if !ValidStatuses[to] {
		return NewError(ErrIllegalTransition, r.ID, "unknown status %q", to)
	}
	if !CanTransition(r.Status, to) {
		return NewError(ErrIllegalTransition, r.ID, "%s -> %s", r.Status, to)
	}
	r.Status = to
	return nil
}
