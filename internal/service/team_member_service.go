package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/approval-service/internal/domain"
	"github.com/spec-kit/approval-service/internal/repository"
	apperrors "github.com/spec-kit/approval-service/pkg/util"
)

// TeamMemberService manages the assignable members of each category.
type TeamMemberService struct {
	members    repository.TeamMemberRepository
	categories repository.CategoryRepository
	logger     *zap.Logger
}

// NewTeamMemberService creates the service.
func NewTeamMemberService(members repository.TeamMemberRepository, categories repository.CategoryRepository, logger *zap.Logger) *TeamMemberService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeamMemberService{members: members, categories: categories, logger: logger}
}

// TeamMemberInput carries the writable member fields.
type TeamMemberInput struct {
	Name       string
	Email      string
	CategoryID string
}

// Create registers a member under an existing category. New members start
// available.
func (s *TeamMemberService) Create(ctx context.Context, input TeamMemberInput) (*domain.TeamMember, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if name == "" || email == "" {
		return nil, apperrors.NewValidationError("name and email are required", nil)
	}

	if _, err := s.categories.GetByID(ctx, input.CategoryID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("category", map[string]any{"category_id": input.CategoryID})
		}
		return nil, apperrors.MapError(err)
	}

	member := &domain.TeamMember{
		Name:        name,
		Email:       email,
		CategoryID:  input.CategoryID,
		IsAvailable: true,
	}
	if err := s.members.Create(ctx, member); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("team member created",
		zap.String("member_id", member.ID),
		zap.String("category_id", member.CategoryID))
	return member, nil
}

// SetAvailability toggles whether a member can receive new assignments.
// Existing assignments are untouched.
func (s *TeamMemberService) SetAvailability(ctx context.Context, id string, available bool) (*domain.TeamMember, error) {
	member, err := s.members.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("team member", map[string]any{"member_id": id})
		}
		return nil, apperrors.MapError(err)
	}

	member.IsAvailable = available
	if err := s.members.Update(ctx, member); err != nil {
		return nil, apperrors.MapError(err)
	}
	return member, nil
}

// List returns members, optionally filtered by category.
func (s *TeamMemberService) List(ctx context.Context, categoryID string) ([]domain.TeamMember, error) {
	filter := repository.TeamMemberFilter{}
	if categoryID != "" {
		filter.CategoryID = &categoryID
	}
	members, err := s.members.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return members, nil
}
