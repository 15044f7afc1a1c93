package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/deptforge/agent-departments/internal/api/dto"
	"github.com/deptforge/agent-departments/internal/service"
	apperrors "github.com/deptforge/agent-departments/pkg/util/errorutil"
)

// DepartmentsHandler exposes the catalog, the setup selection and the
// owner's live departments.
type DepartmentsHandler struct {
	service *service.DepartmentService
}

// NewDepartmentsHandler constructs handler.
func NewDepartmentsHandler(departmentService *service.DepartmentService) *DepartmentsHandler {
	return &DepartmentsHandler{service: departmentService}
}

// Catalog GET /catalog/departments.
func (h *DepartmentsHandler) Catalog(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": dto.NewArchetypeResponses(h.service.Catalog())})
}

// List GET /departments.
func (h *DepartmentsHandler) List(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	list, err := h.service.List(c.UserContext(), p.OwnerID())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDepartmentResponses(list)})
}

// Add POST /departments.
func (h *DepartmentsHandler) Add(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.AddDepartmentsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	created, err := h.service.AddDepartments(c.UserContext(), p.OwnerID(), req.ToCandidates())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewDepartmentResponses(created)})
}

// Remove DELETE /departments/:id.
func (h *DepartmentsHandler) Remove(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	if err := h.service.RemoveDepartment(c.UserContext(), p.OwnerID(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Selection GET /departments/selection.
func (h *DepartmentsHandler) Selection(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	selected, err := h.service.Selection(c.UserContext(), p.OwnerID())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": selectionResponse(selected)})
}

// ToggleSelection POST /departments/selection/toggle.
func (h *DepartmentsHandler) ToggleSelection(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.ToggleSelectionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ArchetypeID == "" {
		return apperrors.NewValidationError("archetype_id required", nil)
	}
	selected, err := h.service.ToggleSelection(c.UserContext(), p.OwnerID(), req.ArchetypeID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": selectionResponse(selected)})
}

// ClearSelection DELETE /departments/selection.
func (h *DepartmentsHandler) ClearSelection(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	if err := h.service.ClearSelection(c.UserContext(), p.OwnerID()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": selectionResponse(nil)})
}

// CommitSelection POST /departments/selection/commit.
func (h *DepartmentsHandler) CommitSelection(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	created, err := h.service.CommitSelection(c.UserContext(), p.OwnerID())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewDepartmentResponses(created)})
}

// EndSession DELETE /session drops the cached registry and pending selection.
func (h *DepartmentsHandler) EndSession(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	h.service.EndSession(p.OwnerID())
	return c.SendStatus(http.StatusNoContent)
}

func selectionResponse(selected []string) dto.SelectionResponse {
	if selected == nil {
		selected = []string{}
	}
	return dto.SelectionResponse{Selected: selected}
}
