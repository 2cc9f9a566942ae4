package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/incident-service/internal/api/dto"
	"github.com/spec-kit/incident-service/internal/audit"
	"github.com/spec-kit/incident-service/internal/auth"
	"github.com/spec-kit/incident-service/internal/service"
	apperrors "github.com/spec-kit/incident-service/pkg/util/errorutil"
)

// IncidentsHandler manages incident endpoints.
type IncidentsHandler struct {
	service *service.IncidentService
}

// NewIncidentsHandler constructs handler.
func NewIncidentsHandler(incidentService *service.IncidentService) *IncidentsHandler {
	return &IncidentsHandler{service: incidentService}
}

// Create POST /incidents.
func (h *IncidentsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateIncidentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	incident, err := h.service.Create(c.UserContext(), req.ToDomain(), originOf(c))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": incident})
}

// List GET /incidents.
func (h *IncidentsHandler) List(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	incidents, err := h.service.List(c.UserContext(), *identity)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": incidents})
}

// Fields GET /incidents/fields.
func (h *IncidentsHandler) Fields(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.service.Fields()})
}

// Get GET /incidents/:id.
func (h *IncidentsHandler) Get(c *fiber.Ctx) error {
	id, err := incidentID(c)
	if err != nil {
		return err
	}
	incident, err := h.service.GetByID(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": incident})
}

// GetByTrackingCode GET /incidents/tracking/:code.
func (h *IncidentsHandler) GetByTrackingCode(c *fiber.Ctx) error {
	incident, err := h.service.GetByTrackingCode(c.UserContext(), c.Params("code"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": incident})
}

// Resolve PUT /incidents/:id/resolve.
func (h *IncidentsHandler) Resolve(c *fiber.Ctx) error {
	id, err := incidentID(c)
	if err != nil {
		return err
	}
	var req dto.ResolveIncidentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	incident, err := h.service.Resolve(c.UserContext(), id, req.Solution, originOf(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": incident})
}

// Escalate PUT /incidents/:id/escalate.
func (h *IncidentsHandler) Escalate(c *fiber.Ctx) error {
	id, err := incidentID(c)
	if err != nil {
		return err
	}
	incident, err := h.service.Escalate(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": incident})
}

// Logs GET /incidents/:id/logs.
func (h *IncidentsHandler) Logs(c *fiber.Ctx) error {
	id, err := incidentID(c)
	if err != nil {
		return err
	}
	logs, err := h.service.ListLogs(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": logs})
}

// Bill POST /incidents/:id/bill.
func (h *IncidentsHandler) Bill(c *fiber.Ctx) error {
	id, err := incidentID(c)
	if err != nil {
		return err
	}
	var req dto.BillIncidentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ack, err := h.service.Bill(c.UserContext(), id, req.Cost)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ack})
}

func incidentID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid incident id", map[string]any{"id": c.Params("id")})
	}
	return id, nil
}

func originOf(c *fiber.Ctx) string {
	return audit.ClassifyOrigin(c.Get(fiber.HeaderUserAgent))
}
