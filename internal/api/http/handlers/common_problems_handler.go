package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/incident-service/internal/api/dto"
	"github.com/spec-kit/incident-service/internal/service"
	apperrors "github.com/spec-kit/incident-service/pkg/util/errorutil"
)

// CommonProblemsHandler manages knowledge-base endpoints.
type CommonProblemsHandler struct {
	service *service.CommonProblemService
}

// NewCommonProblemsHandler constructs handler.
func NewCommonProblemsHandler(problems *service.CommonProblemService) *CommonProblemsHandler {
	return &CommonProblemsHandler{service: problems}
}

// Register POST /common-problems.
func (h *CommonProblemsHandler) Register(c *fiber.Ctx) error {
	var req dto.CreateCommonProblemRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	problem, err := h.service.Register(c.UserContext(), req.ToDomain())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": problem})
}

// List GET /common-problems?client_id=.
func (h *CommonProblemsHandler) List(c *fiber.Ctx) error {
	var clientID *int64
	if raw := c.Query("client_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return apperrors.NewValidationError("invalid client_id", map[string]any{"client_id": raw})
		}
		clientID = &parsed
	}
	problems, err := h.service.List(c.UserContext(), clientID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": problems})
}
