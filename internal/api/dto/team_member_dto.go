package dto

import (
	"time"

	"github.com/spec-kit/approval-service/internal/domain"
)

// CreateTeamMemberRequest payload.
type CreateTeamMemberRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	CategoryID string `json:"category_id"`
}

// AvailabilityRequest payload.
type AvailabilityRequest struct {
	IsAvailable bool `json:"is_available"`
}

// TeamMemberResponse representation.
type TeamMemberResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	CategoryID  string    `json:"category_id"`
	IsAvailable bool      `json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewTeamMemberResponse maps a domain team member.
func NewTeamMemberResponse(member *domain.TeamMember) TeamMemberResponse {
	return TeamMemberResponse{
		ID:          member.ID,
		Name:        member.Name,
		Email:       member.Email,
		CategoryID:  member.CategoryID,
		IsAvailable: member.IsAvailable,
		CreatedAt:   member.CreatedAt,
	}
}
