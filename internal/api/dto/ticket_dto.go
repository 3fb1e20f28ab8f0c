package dto

import (
	"time"

	"github.com/spec-kit/approval-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Description string `json:"description"`
}

// EditTicketRequest payload.
type EditTicketRequest struct {
	Description string `json:"description"`
}

// UpdateStatusRequest payload for admin status transitions.
type UpdateStatusRequest struct {
	Status         domain.TicketStatus `json:"status"`
	ResolutionNote string              `json:"resolution_note"`
}

// TicketResponse snapshot.
type TicketResponse struct {
	ID             string              `json:"id"`
	Description    string              `json:"description"`
	CategoryID     *string             `json:"category_id"`
	CreatedBy      string              `json:"created_by"`
	AssignedTo     *string             `json:"assigned_to"`
	Status         domain.TicketStatus `json:"status"`
	ResolutionNote *string             `json:"resolution_note,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// ApprovalStepResponse is one chain step.
type ApprovalStepResponse struct {
	ID            string                `json:"id"`
	ApproverEmail string                `json:"approver_email"`
	ApproverRole  string                `json:"approver_role,omitempty"`
	ApproverName  string                `json:"approver_name,omitempty"`
	Level         int                   `json:"level"`
	Status        domain.ApprovalStatus `json:"status"`
	Comment       *string               `json:"comment,omitempty"`
	ApprovedAt    *time.Time            `json:"approved_at,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
}

// TicketHistoryResponse is one audit entry.
type TicketHistoryResponse struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

// TicketDetailResponse bundles a ticket with its chain and audit trail.
type TicketDetailResponse struct {
	TicketResponse
	Approvals []ApprovalStepResponse  `json:"approvals"`
	History   []TicketHistoryResponse `json:"history"`
}

// ApprovalOutcomeResponse is the result of following an approval link.
type ApprovalOutcomeResponse struct {
	Message string         `json:"message"`
	Ticket  TicketResponse `json:"ticket"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:             ticket.ID,
		Description:    ticket.Description,
		CategoryID:     ticket.CategoryID,
		CreatedBy:      ticket.CreatedBy,
		AssignedTo:     ticket.AssignedTo,
		Status:         ticket.Status,
		ResolutionNote: ticket.ResolutionNote,
		CreatedAt:      ticket.CreatedAt,
		UpdatedAt:      ticket.UpdatedAt,
	}
}

// NewApprovalStepResponses maps chain steps in level order.
func NewApprovalStepResponses(approvals []domain.Approval) []ApprovalStepResponse {
	steps := make([]ApprovalStepResponse, 0, len(approvals))
	for i := range approvals {
		approval := &approvals[i]
		steps = append(steps, ApprovalStepResponse{
			ID:            approval.ID,
			ApproverEmail: approval.ApproverEmail,
			ApproverRole:  approval.ApproverRole,
			ApproverName:  approval.ApproverName,
			Level:         approval.Level,
			Status:        approval.Status,
			Comment:       approval.Comment,
			ApprovedAt:    approval.ApprovedAt,
			CreatedAt:     approval.CreatedAt,
		})
	}
	return steps
}

// NewTicketHistoryResponses maps audit entries.
func NewTicketHistoryResponses(entries []domain.TicketHistory) []TicketHistoryResponse {
	result := make([]TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		result = append(result, TicketHistoryResponse{
			ID:        entry.ID,
			Action:    entry.Action,
			Details:   entry.Details,
			CreatedAt: entry.CreatedAt,
		})
	}
	return result
}
