package service

import (
	"context"

	"github.com/spec-kit/approval-service/internal/domain"
	"github.com/spec-kit/approval-service/internal/repository"
)

// AssignmentService selects a team member for a fully approved ticket.
type AssignmentService struct {
	tickets repository.TicketRepository
	members repository.TeamMemberRepository
}

// NewAssignmentService creates the service.
func NewAssignmentService(tickets repository.TicketRepository, members repository.TeamMemberRepository) *AssignmentService {
	return &AssignmentService{tickets: tickets, members: members}
}

// Assign picks the least-loaded available member of the ticket's category,
// or nil when no candidate exists (the ticket then stays APPROVED and
// unassigned until a member frees up or is added).
//
// Load counts are read fresh on every call; callers must hold the ticket's
// exclusive lock so two simultaneously approved tickets cannot both observe
// the same least-loaded member.
func (s *AssignmentService) Assign(ctx context.Context, ticket *domain.Ticket) (*domain.TeamMember, error) {
	if ticket.CategoryID == nil {
		return nil, nil
	}

	available := true
	candidates, err := s.members.List(ctx, repository.TeamMemberFilter{
		CategoryID:  ticket.CategoryID,
		IsAvailable: &available,
	})
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	// Stable creation order breaks ties: the first candidate with the
	// minimum active count wins.
	var best *domain.TeamMember
	bestCount := 0
	for i := range candidates {
		count, err := s.tickets.CountByAssigneeAndStatuses(ctx, candidates[i].ID, domain.ActiveAssignmentStatuses)
		if err != nil {
			return nil, err
		}
		if best == nil || count < bestCount {
			best = &candidates[i]
			bestCount = count
		}
	}
	return best, nil
}
