package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/approval-service/internal/api/dto"
	"github.com/spec-kit/approval-service/internal/service"
	apperrors "github.com/spec-kit/approval-service/pkg/util"
)

// TeamMembersHandler manages admin team-member endpoints.
type TeamMembersHandler struct {
	service *service.TeamMemberService
}

// NewTeamMembersHandler constructs handler.
func NewTeamMembersHandler(memberService *service.TeamMemberService) *TeamMembersHandler {
	return &TeamMembersHandler{service: memberService}
}

// Create POST /team-members.
func (h *TeamMembersHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateTeamMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	member, err := h.service.Create(c.Context(), service.TeamMemberInput{
		Name:       req.Name,
		Email:      req.Email,
		CategoryID: req.CategoryID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTeamMemberResponse(member)})
}

// SetAvailability PATCH /team-members/:id/availability.
func (h *TeamMembersHandler) SetAvailability(c *fiber.Ctx) error {
	var req dto.AvailabilityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	member, err := h.service.SetAvailability(c.Context(), c.Params("id"), req.IsAvailable)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTeamMemberResponse(member)})
}

// List GET /team-members.
func (h *TeamMembersHandler) List(c *fiber.Ctx) error {
	members, err := h.service.List(c.Context(), c.Query("category_id"))
	if err != nil {
		return err
	}
	items := make([]dto.TeamMemberResponse, 0, len(members))
	for i := range members {
		items = append(items, dto.NewTeamMemberResponse(&members[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}
