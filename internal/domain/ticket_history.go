package domain

import "time"

// History action labels recorded against tickets.
const (
	HistoryActionCreated          = "Ticket Created"
	HistoryActionEdited           = "Ticket Edited"
	HistoryActionApprovalReceived = "Approval Received"
	HistoryActionRejected         = "Ticket Rejected"
	HistoryActionAssigned         = "Ticket Assigned"
	HistoryActionCancelled        = "Ticket Cancelled"
	HistoryActionStatusChanged    = "Status Changed"
)

// TicketHistory is an append-only audit record. Entries are never mutated;
// they disappear only via cascading deletion of the parent ticket.
type TicketHistory struct {
	ID        string
	TicketID  string
	Action    string
	Details   string
	CreatedAt time.Time
}
