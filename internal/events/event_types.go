package events

import (
	"time"

	"github.com/spec-kit/approval-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventApprovalRequested   EventType = "approval_requested"
	EventApprovalAdvanced    EventType = "approval_advanced"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketRejected      EventType = "ticket_rejected"
	EventTicketStatusChanged EventType = "ticket_status_changed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ApprovalRequestedPayload carries everything the notification trigger needs
// to mail one approver, including the signed action token.
type ApprovalRequestedPayload struct {
	ApprovalID    string `json:"approval_id"`
	ApproverEmail string `json:"approver_email"`
	ApproverName  string `json:"approver_name,omitempty"`
	Level         int    `json:"level"`
	Token         string `json:"-"`
	Description   string `json:"-"`
	CategoryName  string `json:"category_name"`
	CreatorName   string `json:"creator_name"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssigneeID    string `json:"assignee_id"`
	AssigneeName  string `json:"assignee_name"`
	AssigneeEmail string `json:"assignee_email"`
	CategoryName  string `json:"category_name"`
	CreatorName   string `json:"creator_name"`
	Description   string `json:"-"`
}

// ApprovalAdvancedPayload payload.
type ApprovalAdvancedPayload struct {
	Level         int    `json:"level"`
	ApproverEmail string `json:"approver_email"`
}

// TicketRejectedPayload payload.
type TicketRejectedPayload struct {
	Level         int    `json:"level"`
	ApproverEmail string `json:"approver_email"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	CategoryName string `json:"category_name"`
	UsedModel    bool   `json:"used_model"`
}
