package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/approval-service/internal/events"
	"github.com/spec-kit/approval-service/internal/notification"
	"github.com/spec-kit/approval-service/internal/observability"
)

// NotificationService turns domain events into outbound emails. It runs
// inside the publisher's call, so Send outcomes are observed synchronously
// but never propagate as errors.
type NotificationService struct {
	mailer        notification.Mailer
	metrics       *observability.Metrics
	publicBaseURL string
	logger        *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(mailer notification.Mailer, metrics *observability.Metrics, publicBaseURL string, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		mailer:        mailer,
		metrics:       metrics,
		publicBaseURL: publicBaseURL,
		logger:        logger,
	}
}

// RegisterHandlers subscribes the service to the events it reacts to.
func (s *NotificationService) RegisterHandlers(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventApprovalRequested, s.onApprovalRequested)
	dispatcher.Subscribe(events.EventTicketAssigned, s.onTicketAssigned)
}

func (s *NotificationService) onApprovalRequested(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ApprovalRequestedPayload)
	if !ok {
		s.logger.Warn("unexpected payload for approval_requested event",
			zap.String("event_id", event.ID))
		return nil
	}

	msg := notification.ApprovalRequestMessage(payload.ApproverEmail, notification.ApprovalRequestFields{
		TicketID:     event.TicketID,
		Description:  payload.Description,
		CategoryName: payload.CategoryName,
		CreatorName:  payload.CreatorName,
		ApproveURL:   s.actionURL(payload.Token, ActionApprove),
		RejectURL:    s.actionURL(payload.Token, ActionReject),
	})
	delivered := s.mailer.Send(msg)
	s.metrics.RecordNotification(msg.Kind, delivered)
	if !delivered {
		s.logger.Warn("approval request notification not delivered",
			zap.String("ticket_id", event.TicketID),
			zap.String("approver_email", payload.ApproverEmail),
			zap.Int("level", payload.Level))
	}
	return nil
}

func (s *NotificationService) onTicketAssigned(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		s.logger.Warn("unexpected payload for ticket_assigned event",
			zap.String("event_id", event.ID))
		return nil
	}

	msg := notification.AssignmentMessage(payload.AssigneeEmail, notification.AssignmentFields{
		TicketID:     event.TicketID,
		Description:  payload.Description,
		CategoryName: payload.CategoryName,
		CreatorName:  payload.CreatorName,
		MemberName:   payload.AssigneeName,
	})
	delivered := s.mailer.Send(msg)
	s.metrics.RecordNotification(msg.Kind, delivered)
	if !delivered {
		s.logger.Warn("assignment notification not delivered",
			zap.String("ticket_id", event.TicketID),
			zap.String("assignee_email", payload.AssigneeEmail))
	}
	return nil
}

func (s *NotificationService) actionURL(token, action string) string {
	return fmt.Sprintf("%s/approve/%s/%s", s.publicBaseURL, token, action)
}
