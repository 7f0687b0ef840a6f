package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// AssignmentsHandler manages the assignment set, responsibility delegation,
// and admin assignment tooling.
type AssignmentsHandler struct {
	engine      *service.AssignmentEngine
	manager     *service.AssignmentManager
	responsible *service.ResponsibleManager
	tickets     *service.TicketService
}

// NewAssignmentsHandler constructs handler.
func NewAssignmentsHandler(engine *service.AssignmentEngine, manager *service.AssignmentManager, responsible *service.ResponsibleManager, tickets *service.TicketService) *AssignmentsHandler {
	return &AssignmentsHandler{engine: engine, manager: manager, responsible: responsible, tickets: tickets}
}

// SetAssignments PUT /tickets/:id/assignments. Admin only.
func (h *AssignmentsHandler) SetAssignments(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.SetAssignmentsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	assignments, err := h.manager.SetAssignments(c.Context(), c.Params("id"), req.TechnicianIDs, req.LeadID, principal.UserID())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": assignmentViews(assignments)})
}

// ListAssignments GET /tickets/:id/assignments.
func (h *AssignmentsHandler) ListAssignments(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	assignments, err := h.manager.ListAssignments(c.Context(), c.Params("id"), principal.UserID(), principal.Role())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": assignmentViews(assignments)})
}

// RemoveAssignment DELETE /tickets/:id/assignments/:technicianId. Admin only.
func (h *AssignmentsHandler) RemoveAssignment(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	removed, err := h.manager.RemoveAssignment(c.Context(), c.Params("id"), c.Params("technicianId"), principal.UserID())
	if err != nil {
		return err
	}
	if !removed {
		return apperrors.NewNotFound("assignment", nil)
	}
	return c.SendStatus(http.StatusNoContent)
}

// SetResponsible PUT /tickets/:id/responsible. Admin or lead technician.
func (h *AssignmentsHandler) SetResponsible(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.SetResponsibleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.TechnicianID == "" {
		return apperrors.NewValidationError("technician_id required", nil)
	}

	done, err := h.responsible.SetResponsible(c.Context(), c.Params("id"), req.TechnicianID, principal.UserID(), principal.Role())
	if err != nil {
		return err
	}
	if !done {
		return apperrors.NewForbidden("responsible technician could not be set")
	}
	return c.SendStatus(http.StatusNoContent)
}

// AssignTicket POST /tickets/:id/assign. Admin only, triggers least-loaded
// auto-assignment for one ticket.
func (h *AssignmentsHandler) AssignTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	technicianID, err := h.engine.AssignTicket(c.Context(), c.Params("id"), principal.UserID())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"technician_id": technicianID}})
}

// AssignBatch POST /assignments/run. Admin only, assigns all unassigned
// tickets in the optional date range.
func (h *AssignmentsHandler) AssignBatch(c *fiber.Ctx) error {
	var req dto.AssignBatchRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	count, err := h.engine.AssignAllUnassigned(c.Context(), req.CreatedFrom, req.CreatedTo)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"assigned": count}})
}

// ListQueue GET /assignments/queue. Admin only, unassigned tickets oldest
// first.
func (h *AssignmentsHandler) ListQueue(c *fiber.Ctx) error {
	from := parseTime(c.Query("created_from"))
	to := parseTime(c.Query("created_to"))
	tickets, err := h.tickets.ListAssignmentQueue(c.Context(), from, to)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummaries(tickets)})
}

func assignmentViews(assignments []domain.Assignment) []dto.AssignmentView {
	views := make([]dto.AssignmentView, 0, len(assignments))
	for _, a := range assignments {
		views = append(views, dto.AssignmentView{
			ID:               a.ID,
			TicketID:         a.TicketID,
			TechnicianID:     a.TechnicianID,
			TechnicianUserID: a.TechnicianUserID,
			IsLead:           a.IsLead,
			State:            a.State,
			AssignedAt:       a.AssignedAt,
		})
	}
	return views
}
