package orders

import "errors"

// ErrIllegalTransition indicates the requested status is not reachable from
// the order's current status.
var ErrIllegalTransition = errors.New("illegal status transition")

// forwardPath is the single canonical happy path. The worker-facing flow
// uses the same graph as the admin flow; there is exactly one transition
// graph for orders.
var forwardPath = []string{
	StatusPending,
	StatusConfirmed,
	StatusProcessing,
	StatusPacking,
	StatusPacked,
	StatusShipped,
	StatusDelivered,
}

// IsTerminal reports whether no further transitions are accepted from s.
func IsTerminal(s string) bool {
	return s == StatusDelivered || s == StatusCancelled
}

// ValidStatus reports whether s is a known order status.
func ValidStatus(s string) bool {
	if s == StatusCancelled {
		return true
	}
	for _, fs := range forwardPath {
		if fs == s {
			return true
		}
	}
	return false
}

// NextStatus returns the immediate successor of s on the forward path, or ""
// if s is the last forward state or not a forward state.
func NextStatus(s string) string {
	for i, fs := range forwardPath {
		if fs == s && i+1 < len(forwardPath) {
			return forwardPath[i+1]
		}
	}
	return ""
}

// CanTransition reports whether from -> to is a legal edge: the immediate
// forward successor, or cancellation from any non-terminal state.
func CanTransition(from, to string) bool {
	if IsTerminal(from) {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	return NextStatus(from) == to
}

// CheckTransition is CanTransition with the error attached.
func CheckTransition(from, to string) error {
	if !CanTransition(from, to) {
		return ErrIllegalTransition
	}
	return nil
}
