package submission

import (
	"fmt"
	"strings"

	"launchpadResume/internal/apperr"
)

// Status is the review state of a submission.
type Status string

const (
	StatusPending   Status = "pending"
	StatusReviewing Status = "reviewing"
	StatusRevision  Status = "revision"
	StatusCompleted Status = "completed"
)

// PaymentPaid is the only payment status a stored submission can have.
const PaymentPaid = "paid"

// ErrInvalidTransition is returned when the requested status cannot follow the current one.
var ErrInvalidTransition = fmt.Errorf("invalid status transition: %w", apperr.ErrConflict)

// Older clients and rows used approved/rejected.
var legacyStatuses = map[string]Status{
	"approved": StatusCompleted,
	"rejected": StatusRevision,
}

var transitions = map[Status][]Status{
	StatusPending:   {StatusPending, StatusReviewing, StatusRevision, StatusCompleted},
	StatusReviewing: {StatusReviewing, StatusRevision, StatusCompleted},
	StatusRevision:  {StatusRevision, StatusReviewing, StatusCompleted},
	StatusCompleted: nil,
}

// ParseStatus accepts a canonical or legacy status name.
func ParseStatus(raw string) (Status, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if legacy, ok := legacyStatuses[s]; ok {
		return legacy, nil
	}
	if _, ok := transitions[Status(s)]; ok {
		return Status(s), nil
	}
	return "", apperr.Invalid("status", "must be one of pending, reviewing, revision, completed")
}

// Canonical maps a stored value onto the canonical enum. Unknown values are
// returned unchanged and allow no transitions.
func Canonical(stored string) Status {
	if s, err := ParseStatus(stored); err == nil {
		return s
	}
	return Status(stored)
}

// CanTransition reports whether a submission in from may move to to.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// StoredNames lists every stored value that reads back as s, legacy names included.
func (s Status) StoredNames() []string {
	names := []string{string(s)}
	for legacy, canonical := range legacyStatuses {
		if canonical == s {
			names = append(names, legacy)
		}
	}
	return names
}

// Terminal reports whether s allows no further changes.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// marksReviewed reports whether entering s stamps reviewed_at.
func (s Status) marksReviewed() bool {
	return s == StatusCompleted || s == StatusRevision
}
