package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/approval-service/internal/api/dto"
	"github.com/spec-kit/approval-service/internal/service"
)

// ApprovalsHandler serves the emailed approval links. The route is
// unauthenticated: possession of a valid signed token is the authorization.
type ApprovalsHandler struct {
	service *service.ApprovalService
}

// NewApprovalsHandler constructs handler.
func NewApprovalsHandler(approvalService *service.ApprovalService) *ApprovalsHandler {
	return &ApprovalsHandler{service: approvalService}
}

// Act GET /approve/:token/:action.
func (h *ApprovalsHandler) Act(c *fiber.Ctx) error {
	message, ticket, err := h.service.SubmitAction(
		c.Context(),
		c.Params("token"),
		c.Params("action"),
		c.Query("comment"),
	)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ApprovalOutcomeResponse{
		Message: message,
		Ticket:  dto.NewTicketResponse(ticket),
	}})
}
