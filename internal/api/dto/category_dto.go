package dto

import (
	"time"

	"github.com/spec-kit/approval-service/internal/domain"
)

// CategoryRequest payload for create/update.
type CategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Keywords    string `json:"keywords"`
	Approvers   string `json:"approvers"`
}

// ApproverResponse is one decoded chain entry.
type ApproverResponse struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
	Name  string `json:"name,omitempty"`
}

// CategoryResponse representation.
type CategoryResponse struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Keywords    string             `json:"keywords"`
	Approvers   []ApproverResponse `json:"approvers"`
	CreatedAt   time.Time          `json:"created_at"`
}

// NewCategoryResponse maps a domain category, decoding the approver chain
// for display. A spec that validated on write cannot fail here.
func NewCategoryResponse(category *domain.Category) CategoryResponse {
	chain, _ := domain.DecodeApproverChain(category.Approvers)
	approvers := make([]ApproverResponse, 0, len(chain))
	for _, approver := range chain {
		approvers = append(approvers, ApproverResponse{
			Email: approver.Email,
			Role:  approver.Role,
			Name:  approver.DisplayName,
		})
	}
	return CategoryResponse{
		ID:          category.ID,
		Name:        category.Name,
		Description: category.Description,
		Keywords:    category.Keywords,
		Approvers:   approvers,
		CreatedAt:   category.CreatedAt,
	}
}
