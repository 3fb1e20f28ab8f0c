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

	"github.com/spec-kit/approval-service/internal/classifier"
	"github.com/spec-kit/approval-service/internal/domain"
	"github.com/spec-kit/approval-service/internal/events"
	"github.com/spec-kit/approval-service/internal/lock"
	"github.com/spec-kit/approval-service/internal/repository"
	apperrors "github.com/spec-kit/approval-service/pkg/util"
)

// Manual status transitions an administrator may apply after approval.
var manualStatuses = map[domain.TicketStatus]struct{}{
	domain.TicketStatusInProgress: {},
	domain.TicketStatusCompleted:  {},
	domain.TicketStatusCancelled:  {},
}

// TicketService coordinates the ticket lifecycle: creation with automatic
// classification, pre-approval edit and cancel, and manual status updates.
type TicketService struct {
	tickets    repository.TicketRepository
	categories repository.CategoryRepository
	history    repository.TicketHistoryRepository
	classifier *classifier.Classifier
	approvals  *ApprovalService
	dispatcher events.Dispatcher
	locks      lock.Keyed
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	CategoryRepo repository.CategoryRepository
	HistoryRepo  repository.TicketHistoryRepository
	Classifier   *classifier.Classifier
	Approvals    *ApprovalService
	Dispatcher   events.Dispatcher
	Locks        lock.Keyed
	Logger       *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		categories: deps.CategoryRepo,
		history:    deps.HistoryRepo,
		classifier: deps.Classifier,
		approvals:  deps.Approvals,
		dispatcher: deps.Dispatcher,
		locks:      deps.Locks,
		logger:     logger,
	}
}

// TicketDetail bundles a ticket snapshot with its chain and audit trail.
type TicketDetail struct {
	Ticket    *domain.Ticket
	Approvals []domain.Approval
	History   []domain.TicketHistory
}

// Create classifies the description, persists the ticket, and materializes
// the approval chain when the resolved category has approvers. With zero
// categories configured the ticket is created uncategorized and no chain is
// built.
func (s *TicketService) Create(ctx context.Context, user *domain.User, description string) (*domain.Ticket, error) {
	description = strings.TrimSpace(description)
	if len(description) < 10 {
		return nil, apperrors.NewValidationError("please provide a detailed description (at least 10 characters)", nil)
	}

	category, usedModel, err := s.classify(ctx, description)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	ticket := &domain.Ticket{
		Description: description,
		CreatedBy:   user.ID,
		Status:      domain.TicketStatusPendingApproval,
	}
	categoryName := "Uncategorized"
	if category != nil {
		ticket.CategoryID = &category.ID
		categoryName = category.Name
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.recordHistory(ctx, ticket.ID, domain.HistoryActionCreated,
		fmt.Sprintf("Category auto-classified as: %s", categoryName))
	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			CategoryName: categoryName,
			UsedModel:    usedModel,
		},
	})

	if category != nil {
		if err := s.approvals.BuildChain(ctx, ticket, category); err != nil {
			return nil, apperrors.MapError(err)
		}
	}
	return ticket, nil
}

// Get returns the ticket with its approval chain and history. Non-admin
// callers only see their own tickets.
func (s *TicketService) Get(ctx context.Context, user *domain.User, ticketID string) (*TicketDetail, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin && ticket.CreatedBy != user.ID {
		return nil, apperrors.NewForbidden("you do not have permission to view this ticket")
	}

	approvals, err := s.approvals.ListSteps(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	history, err := s.history.ListByTicket(ctx, ticket.ID, 100, 0)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &TicketDetail{Ticket: ticket, Approvals: approvals, History: history}, nil
}

// List returns tickets visible to the caller. Admins see everything and may
// filter by status; other users see their own tickets only.
func (s *TicketService) List(ctx context.Context, user *domain.User, statuses []domain.TicketStatus, limit, offset int) ([]domain.Ticket, error) {
	filter := repository.TicketFilter{
		Statuses: statuses,
		Limit:    limit,
		Offset:   offset,
	}
	if !user.IsAdmin {
		filter.CreatedBy = &user.ID
	}
	return s.tickets.ListWithFilter(ctx, filter)
}

// Edit replaces the description before approval has begun. The existing
// chain is discarded, the ticket is re-classified (possibly changing
// category), and a fresh chain is built starting again at level 1.
func (s *TicketService) Edit(ctx context.Context, user *domain.User, ticketID, description string) (*domain.Ticket, error) {
	description = strings.TrimSpace(description)
	if len(description) < 10 {
		return nil, apperrors.NewValidationError("please provide a detailed description (at least 10 characters)", nil)
	}

	release, err := s.locks.Acquire(ctx, "ticket:"+ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	defer release()

	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.CreatedBy != user.ID && !user.IsAdmin {
		return nil, apperrors.NewForbidden("you do not have permission to edit this ticket")
	}
	if ticket.Status != domain.TicketStatusPendingApproval {
		return nil, apperrors.NewConflict("only tickets pending approval can be edited", nil)
	}
	approved, err := s.approvals.HasApprovedStep(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if approved {
		return nil, apperrors.NewConflict("ticket cannot be edited once approval has begun", nil)
	}

	if err := s.approvals.DiscardChain(ctx, ticket.ID); err != nil {
		return nil, apperrors.MapError(err)
	}

	category, _, err := s.classify(ctx, description)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	ticket.Description = description
	ticket.CategoryID = nil
	categoryName := "Uncategorized"
	if category != nil {
		ticket.CategoryID = &category.ID
		categoryName = category.Name
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.recordHistory(ctx, ticket.ID, domain.HistoryActionEdited,
		fmt.Sprintf("Description updated; category re-classified as: %s", categoryName))

	if category != nil {
		if err := s.approvals.BuildChain(ctx, ticket, category); err != nil {
			return nil, apperrors.MapError(err)
		}
	}
	return ticket, nil
}

// Cancel withdraws a ticket before approval has begun, cancelling every
// non-terminal chain step.
func (s *TicketService) Cancel(ctx context.Context, user *domain.User, ticketID string) (*domain.Ticket, error) {
	release, err := s.locks.Acquire(ctx, "ticket:"+ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	defer release()

	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.CreatedBy != user.ID && !user.IsAdmin {
		return nil, apperrors.NewForbidden("you do not have permission to cancel this ticket")
	}
	if ticket.Status != domain.TicketStatusPendingApproval {
		return nil, apperrors.NewConflict("only tickets pending approval can be cancelled", nil)
	}
	approved, err := s.approvals.HasApprovedStep(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if approved {
		return nil, apperrors.NewConflict("ticket cannot be cancelled once approval has begun", nil)
	}

	oldStatus := ticket.Status
	ticket.Status = domain.TicketStatusCancelled
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.approvals.CancelChain(ctx, ticket.ID); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.recordHistory(ctx, ticket.ID, domain.HistoryActionCancelled, "Cancelled by creator")
	s.publish(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
		},
	})
	return ticket, nil
}

// UpdateStatus applies an administrator's manual transition. The resolution
// note is recorded only on completion.
func (s *TicketService) UpdateStatus(ctx context.Context, ticketID string, newStatus domain.TicketStatus, resolutionNote string) (*domain.Ticket, error) {
	if _, ok := manualStatuses[newStatus]; !ok {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": newStatus})
	}

	release, err := s.locks.Acquire(ctx, "ticket:"+ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	defer release()

	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	oldStatus := ticket.Status
	ticket.Status = newStatus
	if newStatus == domain.TicketStatusCompleted && strings.TrimSpace(resolutionNote) != "" {
		note := strings.TrimSpace(resolutionNote)
		ticket.ResolutionNote = &note
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.recordHistory(ctx, ticket.ID, domain.HistoryActionStatusChanged,
		fmt.Sprintf("Status changed from %s to %s", oldStatus, newStatus))
	s.publish(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
		},
	})
	return ticket, nil
}

// classify resolves a category for the description, or nil when no
// categories are configured. Classifier fallback failures never surface
// here.
func (s *TicketService) classify(ctx context.Context, description string) (*domain.Category, bool, error) {
	categories, err := s.categories.ListAll(ctx)
	if err != nil {
		return nil, false, err
	}
	result := s.classifier.Classify(ctx, categories, description)
	if result.Category == nil {
		s.logger.Warn("no categories configured; creating uncategorized ticket")
		return nil, false, nil
	}
	s.logger.Debug("ticket classified",
		zap.String("category", result.Category.Name),
		zap.String("tier", result.Tier))
	return result.Category, result.UsedModel, nil
}

func (s *TicketService) loadTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) recordHistory(ctx context.Context, ticketID, action, details string) {
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

func (s *TicketService) publish(ctx context.Context, event events.Event) {
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
