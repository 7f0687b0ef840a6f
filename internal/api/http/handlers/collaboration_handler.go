package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// CollaborationHandler exposes work sessions, technician state changes, and
// collaboration snapshots.
type CollaborationHandler struct {
	tracker *service.CollaborationTracker
}

// NewCollaborationHandler constructs handler.
func NewCollaborationHandler(tracker *service.CollaborationTracker) *CollaborationHandler {
	return &CollaborationHandler{tracker: tracker}
}

// RecordWork PUT /tickets/:id/work. Technician only.
func (h *CollaborationHandler) RecordWork(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.RecordWorkRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.WorkingOn) == "" {
		return apperrors.NewValidationError("working_on required", nil)
	}
	if req.State != nil && !validAssignmentState(*req.State) {
		return apperrors.NewValidationError("invalid state", nil)
	}

	if err := h.tracker.RecordWork(c.Context(), c.Params("id"), principal.UserID(), req.WorkingOn, req.Note, req.State); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UpdateState PUT /tickets/:id/state. Technician only.
func (h *CollaborationHandler) UpdateState(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateStateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if !validAssignmentState(req.State) {
		return apperrors.NewValidationError("invalid state", nil)
	}

	assignment, err := h.tracker.UpdateTechnicianState(c.Context(), c.Params("id"), principal.UserID(), req.State)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": assignmentViews([]domain.Assignment{*assignment})[0]})
}

// GetSnapshot GET /tickets/:id/collaboration.
func (h *CollaborationHandler) GetSnapshot(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	snapshot, err := h.tracker.GetSnapshot(c.Context(), c.Params("id"), principal.UserID(), principal.Role())
	if err != nil {
		return err
	}
	if snapshot == nil {
		return apperrors.NewNotFound("ticket", nil)
	}
	return c.JSON(fiber.Map{"data": snapshot})
}

func validAssignmentState(state domain.AssignmentState) bool {
	switch state {
	case domain.AssignmentStateInvited,
		domain.AssignmentStateAssigned,
		domain.AssignmentStateInProgress,
		domain.AssignmentStateOnHold,
		domain.AssignmentStateCompleted,
		domain.AssignmentStateRejected:
		return true
	}
	return false
}
