package auth

import "time"

// ConfirmationKind separates ordinary confirmations from password recovery.
// Both share one state machine but live in separate tables.
type ConfirmationKind string

const (
	KindConfirm  ConfirmationKind = "confirm"
	KindRecovery ConfirmationKind = "recovery"
)

// Table returns the storage table backing the kind.
func (k ConfirmationKind) Table() string {
	if k == KindRecovery {
		return "auth_recovery"
	}
	return "auth_confirm"
}

// ConfirmationState is the derived lifecycle state of a Confirmation.
type ConfirmationState int

const (
	StateActive ConfirmationState = iota
	StateCompleted
	StateOutdated
)

func (s ConfirmationState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateCompleted:
		return "completed"
	case StateOutdated:
		return "outdated"
	default:
		return "unknown"
	}
}

// Confirmation is a short-lived code proving control of a recipient address.
type Confirmation struct {
	ID           string        `json:"id"                      db:"id"`
	UserID       string        `json:"user_id"                 db:"user_id"`
	Type         RecipientType `json:"type"                    db:"type"`
	To           string        `json:"to"                      db:"to"`
	Code         string        `json:"-"                       db:"code"`
	CreateTime   time.Time     `json:"create_time"             db:"create_time"`
	EndTime      time.Time     `json:"end_time"                db:"end_time"`
	CompleteTime *time.Time    `json:"complete_time,omitempty" db:"complete_time"`
}

// IsCompleted reports whether the code has been consumed.
func (c Confirmation) IsCompleted() bool { return c.CompleteTime != nil }

// IsOutdated reports whether the code lifetime has passed at now.
// Completed records can also be outdated; callers check completion first.
func (c Confirmation) IsOutdated(now time.Time) bool { return !c.EndTime.After(now) }

// IsActive reports whether the code can still be verified at now.
func (c Confirmation) IsActive(now time.Time) bool {
	return !c.IsCompleted() && !c.IsOutdated(now)
}

// State returns the lifecycle state at now. Completion wins over expiry.
func (c Confirmation) State(now time.Time) ConfirmationState {
	switch {
	case c.IsCompleted():
		return StateCompleted
	case c.IsOutdated(now):
		return StateOutdated
	default:
		return StateActive
	}
}
