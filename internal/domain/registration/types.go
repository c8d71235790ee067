package registration

type Status string

const (
	StatusPendingPayment Status = "pending_payment"
	StatusConfirmed      Status = "confirmed"
	StatusCanceled       Status = "canceled"
	StatusExpired        Status = "expired"
	StatusRefunded       Status = "refunded"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPendingPayment, StatusConfirmed, StatusCanceled, StatusExpired, StatusRefunded:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the registration can no longer change. A
// confirmed registration is not terminal: it may still be refunded.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCanceled, StatusExpired, StatusRefunded:
		return true
	default:
		return false
	}
}

// HoldsSeat reports whether the status accounts for one seat in the
// cohort's enrolled count.
func (s Status) HoldsSeat() bool {
	return s == StatusPendingPayment || s == StatusConfirmed
}

// CanTransitionTo encodes the full transition table. Every transition is
// applied to storage as a compare-and-swap on the current status, so a
// stale expectation fails instead of double-applying an effect.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPendingPayment:
		return next == StatusConfirmed || next == StatusCanceled || next == StatusExpired
	case StatusConfirmed:
		return next == StatusRefunded
	default:
		return false
	}
}
