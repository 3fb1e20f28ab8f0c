package domain

import "time"

// ApprovalStatus enumerates states of a single approval step.
type ApprovalStatus string

const (
	ApprovalStatusWaiting   ApprovalStatus = "WAITING"
	ApprovalStatusPending   ApprovalStatus = "PENDING"
	ApprovalStatusApproved  ApprovalStatus = "APPROVED"
	ApprovalStatusRejected  ApprovalStatus = "REJECTED"
	ApprovalStatusCancelled ApprovalStatus = "CANCELLED"
)

// Decided reports whether the step has reached a terminal state.
func (s ApprovalStatus) Decided() bool {
	return s == ApprovalStatusApproved || s == ApprovalStatusRejected || s == ApprovalStatusCancelled
}

// Approval is one step of a ticket's approval chain. Approver identity is a
// denormalized copy taken from the category spec at chain-build time, so
// later category edits never alter an in-flight chain. Level is 1-indexed;
// at most one step per ticket is PENDING at any time.
type Approval struct {
	ID            string
	TicketID      string
	ApproverEmail string
	ApproverRole  string
	ApproverName  string
	Level         int
	Status        ApprovalStatus
	Comment       *string
	ApprovedAt    *time.Time
	CreatedAt     time.Time
}
