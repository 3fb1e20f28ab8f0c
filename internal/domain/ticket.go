package domain

import "time"

// TicketStatus enumerates lifecycle states for service requests.
type TicketStatus string

const (
	TicketStatusPendingApproval TicketStatus = "PENDING_APPROVAL"
	TicketStatusApproved        TicketStatus = "APPROVED"
	TicketStatusAssigned        TicketStatus = "ASSIGNED"
	TicketStatusInProgress      TicketStatus = "IN_PROGRESS"
	TicketStatusCompleted       TicketStatus = "COMPLETED"
	TicketStatusCancelled       TicketStatus = "CANCELLED"
	TicketStatusRejected        TicketStatus = "REJECTED"
)

// ActiveAssignmentStatuses are the states that count toward a team member's
// live workload when the assignment policy picks the least-loaded candidate.
var ActiveAssignmentStatuses = []TicketStatus{
	TicketStatusAssigned,
	TicketStatusInProgress,
}

// Terminal reports whether the status admits no further transitions.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusCompleted || s == TicketStatusCancelled || s == TicketStatusRejected
}

// Ticket is the aggregate for free-text service requests. CategoryID is nil
// for uncategorized tickets; AssignedTo is set exactly once, on full
// approval.
type Ticket struct {
	ID             string
	Description    string
	CategoryID     *string
	CreatedBy      string
	AssignedTo     *string
	Status         TicketStatus
	ResolutionNote *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
