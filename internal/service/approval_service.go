package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/approval-service/internal/auth"
	"github.com/spec-kit/approval-service/internal/config"
	"github.com/spec-kit/approval-service/internal/domain"
	"github.com/spec-kit/approval-service/internal/events"
	"github.com/spec-kit/approval-service/internal/lock"
	"github.com/spec-kit/approval-service/internal/repository"
	apperrors "github.com/spec-kit/approval-service/pkg/util"
)

// Approval actions accepted at the action entry point.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// ApprovalService drives the sequential multi-level approval state machine:
// chain construction, token-gated level advancement, and assignment on full
// approval.
type ApprovalService struct {
	tickets    repository.TicketRepository
	approvals  repository.ApprovalRepository
	categories repository.CategoryRepository
	users      repository.UserRepository
	history    repository.TicketHistoryRepository
	assignment *AssignmentService
	dispatcher events.Dispatcher
	codec      *auth.ApprovalTokenCodec
	locks      lock.Keyed
	logger     *zap.Logger
	purpose    string
	maxAge     time.Duration
}

// ApprovalDependencies bundles collaborators for the approval service.
type ApprovalDependencies struct {
	TicketRepo   repository.TicketRepository
	ApprovalRepo repository.ApprovalRepository
	CategoryRepo repository.CategoryRepository
	UserRepo     repository.UserRepository
	HistoryRepo  repository.TicketHistoryRepository
	Assignment   *AssignmentService
	Dispatcher   events.Dispatcher
	Codec        *auth.ApprovalTokenCodec
	Locks        lock.Keyed
	Logger       *zap.Logger
}

// NewApprovalService builds the service.
func NewApprovalService(cfg config.ApprovalConfig, deps ApprovalDependencies) *ApprovalService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApprovalService{
		tickets:    deps.TicketRepo,
		approvals:  deps.ApprovalRepo,
		categories: deps.CategoryRepo,
		users:      deps.UserRepo,
		history:    deps.HistoryRepo,
		assignment: deps.Assignment,
		dispatcher: deps.Dispatcher,
		codec:      deps.Codec,
		locks:      deps.Locks,
		logger:     logger,
		purpose:    cfg.ApprovalPurpose,
		maxAge:     cfg.TokenMaxAge(),
	}
}

// BuildChain materializes the approval chain for a ticket from its
// category's approver specification. Level 1 starts PENDING and its approver
// is notified; all later levels start WAITING. A category without approvers
// produces no chain.
func (s *ApprovalService) BuildChain(ctx context.Context, ticket *domain.Ticket, category *domain.Category) error {
	chain, err := domain.DecodeApproverChain(category.Approvers)
	if err != nil {
		return apperrors.NewValidationError("invalid approver specification", map[string]any{"category": category.Name})
	}
	if len(chain) == 0 {
		return nil
	}

	var first *domain.Approval
	for i, approver := range chain {
		status := domain.ApprovalStatusWaiting
		if i == 0 {
			status = domain.ApprovalStatusPending
		}
		approval := &domain.Approval{
			TicketID:      ticket.ID,
			ApproverEmail: approver.Email,
			ApproverRole:  approver.Role,
			ApproverName:  approver.DisplayName,
			Level:         i + 1,
			Status:        status,
		}
		if err := s.approvals.Create(ctx, approval); err != nil {
			return err
		}
		if i == 0 {
			first = approval
		}
	}

	return s.requestApproval(ctx, ticket, first)
}

// SubmitAction is the token-gated entry point that advances the chain. It
// returns a human-readable outcome message plus the current ticket snapshot.
// The whole unit of work runs under the ticket's exclusive lock so chain
// advancement and assignment-on-full-approval are observed as one step.
func (s *ApprovalService) SubmitAction(ctx context.Context, tokenStr, action, comment string) (string, *domain.Ticket, error) {
	payload, err := s.codec.Verify(tokenStr, s.purpose, s.maxAge)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return "", nil, apperrors.NewTokenExpired()
		}
		return "", nil, apperrors.NewTokenInvalid()
	}

	release, err := s.locks.Acquire(ctx, "ticket:"+payload.TicketID)
	if err != nil {
		return "", nil, apperrors.MapError(err)
	}
	defer release()

	approval, err := s.approvals.GetByID(ctx, payload.ApprovalID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil, apperrors.NewNotFound("approval", map[string]any{"approval_id": payload.ApprovalID})
		}
		return "", nil, apperrors.MapError(err)
	}
	ticket, err := s.tickets.GetByID(ctx, payload.TicketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": payload.TicketID})
		}
		return "", nil, apperrors.MapError(err)
	}
	if approval.TicketID != ticket.ID {
		return "", nil, apperrors.NewChainMismatch()
	}

	if approval.Status != domain.ApprovalStatusPending {
		if approval.Status == domain.ApprovalStatusWaiting {
			return "", nil, apperrors.NewStepNotReady()
		}
		// Re-submitting a decided step is a benign idempotent outcome, not
		// an error: nothing changes.
		msg := fmt.Sprintf("This approval has already been %s.", strings.ToLower(string(approval.Status)))
		return msg, ticket, nil
	}

	// A rebuilt chain can leave a stale PENDING snapshot in a caller's
	// hands; the previous level must genuinely be approved before this one
	// can act.
	if approval.Level > 1 {
		prev, err := s.approvals.GetByTicketAndLevel(ctx, ticket.ID, approval.Level-1)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return "", nil, apperrors.MapError(err)
		}
		if prev == nil || prev.Status != domain.ApprovalStatusApproved {
			return "", nil, apperrors.NewPreviousLevelNotApproved()
		}
	}

	switch action {
	case ActionApprove:
		return s.approve(ctx, ticket, approval, comment)
	case ActionReject:
		return s.reject(ctx, ticket, approval, comment)
	default:
		return "", nil, apperrors.NewInvalidAction(action)
	}
}

func (s *ApprovalService) approve(ctx context.Context, ticket *domain.Ticket, approval *domain.Approval, comment string) (string, *domain.Ticket, error) {
	now := time.Now()
	approval.Status = domain.ApprovalStatusApproved
	approval.ApprovedAt = &now
	if comment != "" {
		approval.Comment = &comment
	}
	if err := s.approvals.Update(ctx, approval); err != nil {
		return "", nil, apperrors.MapError(err)
	}
	s.recordHistory(ctx, ticket.ID, domain.HistoryActionApprovalReceived,
		fmt.Sprintf("Approved by %s (level %d)", approval.ApproverEmail, approval.Level))
	s.publish(ctx, events.Event{
		Type:     events.EventApprovalAdvanced,
		TicketID: ticket.ID,
		Payload: events.ApprovalAdvancedPayload{
			Level:         approval.Level,
			ApproverEmail: approval.ApproverEmail,
		},
	})

	next, err := s.approvals.GetByTicketAndLevel(ctx, ticket.ID, approval.Level+1)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return "", nil, apperrors.MapError(err)
	}
	if next != nil && next.Status == domain.ApprovalStatusWaiting {
		next.Status = domain.ApprovalStatusPending
		if err := s.approvals.Update(ctx, next); err != nil {
			return "", nil, apperrors.MapError(err)
		}
		if err := s.requestApproval(ctx, ticket, next); err != nil {
			return "", nil, apperrors.MapError(err)
		}
		return "Ticket approved successfully!", ticket, nil
	}

	steps, err := s.approvals.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return "", nil, apperrors.MapError(err)
	}
	for _, step := range steps {
		if step.Status != domain.ApprovalStatusApproved {
			return "Ticket approved successfully!", ticket, nil
		}
	}

	ticket.Status = domain.TicketStatusApproved
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return "", nil, apperrors.MapError(err)
	}

	if err := s.assignOnFullApproval(ctx, ticket); err != nil {
		return "", nil, apperrors.MapError(err)
	}
	return "Ticket approved successfully!", ticket, nil
}

// assignOnFullApproval runs the assignment policy exactly once, still inside
// the caller's exclusive scope. No candidate leaves the ticket APPROVED.
func (s *ApprovalService) assignOnFullApproval(ctx context.Context, ticket *domain.Ticket) error {
	member, err := s.assignment.Assign(ctx, ticket)
	if err != nil {
		return err
	}
	if member == nil {
		s.logger.Info("no available team member; ticket stays approved",
			zap.String("ticket_id", ticket.ID))
		return nil
	}

	ticket.AssignedTo = &member.ID
	ticket.Status = domain.TicketStatusAssigned
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return err
	}
	s.recordHistory(ctx, ticket.ID, domain.HistoryActionAssigned,
		fmt.Sprintf("Assigned to %s", member.Name))

	s.publish(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		Payload: events.TicketAssignedPayload{
			AssigneeID:    member.ID,
			AssigneeName:  member.Name,
			AssigneeEmail: member.Email,
			CategoryName:  s.categoryName(ctx, ticket),
			CreatorName:   s.creatorName(ctx, ticket),
			Description:   ticket.Description,
		},
	})
	return nil
}

func (s *ApprovalService) reject(ctx context.Context, ticket *domain.Ticket, approval *domain.Approval, comment string) (string, *domain.Ticket, error) {
	now := time.Now()
	approval.Status = domain.ApprovalStatusRejected
	approval.ApprovedAt = &now
	if comment != "" {
		approval.Comment = &comment
	}
	if err := s.approvals.Update(ctx, approval); err != nil {
		return "", nil, apperrors.MapError(err)
	}

	// Remaining WAITING steps are left untouched; the chain is already dead.
	ticket.Status = domain.TicketStatusRejected
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return "", nil, apperrors.MapError(err)
	}
	s.recordHistory(ctx, ticket.ID, domain.HistoryActionRejected,
		fmt.Sprintf("Rejected by %s (level %d)", approval.ApproverEmail, approval.Level))
	s.publish(ctx, events.Event{
		Type:     events.EventTicketRejected,
		TicketID: ticket.ID,
		Payload: events.TicketRejectedPayload{
			Level:         approval.Level,
			ApproverEmail: approval.ApproverEmail,
		},
	})
	return "Ticket rejected.", ticket, nil
}

// DiscardChain removes every step of a ticket's chain. Used by the
// pre-approval edit flow before rebuilding from the re-resolved category.
func (s *ApprovalService) DiscardChain(ctx context.Context, ticketID string) error {
	return s.approvals.DeleteByTicket(ctx, ticketID)
}

// CancelChain marks every non-terminal step CANCELLED.
func (s *ApprovalService) CancelChain(ctx context.Context, ticketID string) error {
	steps, err := s.approvals.ListByTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	for i := range steps {
		if steps[i].Status.Decided() {
			continue
		}
		steps[i].Status = domain.ApprovalStatusCancelled
		if err := s.approvals.Update(ctx, &steps[i]); err != nil {
			return err
		}
	}
	return nil
}

// HasApprovedStep reports whether any step of the ticket's chain has been
// approved, which freezes the description and forbids cancellation.
func (s *ApprovalService) HasApprovedStep(ctx context.Context, ticketID string) (bool, error) {
	steps, err := s.approvals.ListByTicket(ctx, ticketID)
	if err != nil {
		return false, err
	}
	for _, step := range steps {
		if step.Status == domain.ApprovalStatusApproved {
			return true, nil
		}
	}
	return false, nil
}

// ListSteps returns the ticket's chain in level order.
func (s *ApprovalService) ListSteps(ctx context.Context, ticketID string) ([]domain.Approval, error) {
	return s.approvals.ListByTicket(ctx, ticketID)
}

// requestApproval issues the signed action token for a pending step and
// emits the approval-requested event carrying it.
func (s *ApprovalService) requestApproval(ctx context.Context, ticket *domain.Ticket, approval *domain.Approval) error {
	token, err := s.codec.Issue(auth.ApprovalPayload{
		ApprovalID: approval.ID,
		TicketID:   ticket.ID,
	}, s.purpose)
	if err != nil {
		return err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventApprovalRequested,
		TicketID: ticket.ID,
		Payload: events.ApprovalRequestedPayload{
			ApprovalID:    approval.ID,
			ApproverEmail: approval.ApproverEmail,
			ApproverName:  approval.ApproverName,
			Level:         approval.Level,
			Token:         token,
			Description:   ticket.Description,
			CategoryName:  s.categoryName(ctx, ticket),
			CreatorName:   s.creatorName(ctx, ticket),
		},
	})
	return nil
}

func (s *ApprovalService) categoryName(ctx context.Context, ticket *domain.Ticket) string {
	if ticket.CategoryID == nil {
		return "Uncategorized"
	}
	category, err := s.categories.GetByID(ctx, *ticket.CategoryID)
	if err != nil {
		return "Uncategorized"
	}
	return category.Name
}

func (s *ApprovalService) creatorName(ctx context.Context, ticket *domain.Ticket) string {
	user, err := s.users.GetByID(ctx, ticket.CreatedBy)
	if err != nil {
		return ""
	}
	return user.Name
}

func (s *ApprovalService) recordHistory(ctx context.Context, ticketID, action, details string) {
	entry := &domain.TicketHistory{
		TicketID: ticketID,
		Action:   action,
		Details:  details,
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record ticket history",
			zap.String("ticket_id", ticketID),
			zap.String("action", action),
			zap.Error(err))
	}
}

func (s *ApprovalService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
