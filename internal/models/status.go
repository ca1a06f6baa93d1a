package models

import "strings"

// Status is the lifecycle state shared by requests, payments and complaints.
// The same value is bound from JSON, stored in the database and returned to clients.
type Status string

const (
	StatusSubmitted   Status = "SUBMITTED"
	StatusUnderReview Status = "UNDER_REVIEW"
	StatusApproved    Status = "APPROVED"
	StatusRejected    Status = "REJECTED"
	StatusPaid        Status = "PAID"
	StatusCompleted   Status = "COMPLETED"
	StatusPending     Status = "PENDING"
	StatusProcessing  Status = "PROCESSING"
	StatusFailed      Status = "FAILED"
	StatusInProgress  Status = "IN_PROGRESS"
	StatusResolved    Status = "RESOLVED"
	StatusClosed      Status = "CLOSED"
)

// StatusSet lists the states a single entity kind may take.
type StatusSet []Status

var (
	RequestStatuses = StatusSet{
		StatusSubmitted, StatusUnderReview, StatusApproved,
		StatusRejected, StatusPaid, StatusCompleted,
	}
	PaymentStatuses = StatusSet{
		StatusPending, StatusProcessing, StatusCompleted, StatusFailed,
	}
	ComplaintStatuses = StatusSet{
		StatusSubmitted, StatusUnderReview, StatusInProgress,
		StatusResolved, StatusClosed, StatusRejected,
	}
)

// Contains reports whether s belongs to the set.
func (set StatusSet) Contains(s Status) bool {
	for _, candidate := range set {
		if candidate == s {
			return true
		}
	}
	return false
}

// Parse normalizes raw and returns the matching status of the set.
func (set StatusSet) Parse(raw string) (Status, bool) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !set.Contains(s) {
		return "", false
	}
	return s, true
}

func (s Status) String() string {
	return string(s)
}
