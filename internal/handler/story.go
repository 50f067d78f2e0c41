package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/storyreel/api/internal/model"
	"github.com/storyreel/api/internal/service"
	"github.com/storyreel/api/pkg/response"
)

type StoryHandler struct {
	service   *service.StoryService
	validator *validator.Validate
}

func NewStoryHandler(svc *service.StoryService, v *validator.Validate) *StoryHandler {
	return &StoryHandler{
		service:   svc,
		validator: v,
	}
}

// Create handles POST /api/stories
func (h *StoryHandler) Create(c *fiber.Ctx) error {
	var req model.CreateStoryRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	story, err := h.service.Create(c.Context(), &req)
	if err != nil {
		return serviceError(c, err)
	}

	return response.Created(c, story)
}

// List handles GET /api/stories
func (h *StoryHandler) List(c *fiber.Ctx) error {
	return response.OK(c, h.service.List(c.Context()))
}

// Active handles GET /api/stories/active
func (h *StoryHandler) Active(c *fiber.Ctx) error {
	story, err := h.service.Active(c.Context())
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, story)
}

// Clear handles DELETE /api/stories
func (h *StoryHandler) Clear(c *fiber.Ctx) error {
	if err := h.service.Clear(c.Context()); err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.NoContent(c)
}

// VoiceCatalog handles GET /api/voices
func (h *StoryHandler) VoiceCatalog(c *fiber.Ctx) error {
	catalog, err := h.service.VoiceCatalog(c.Context())
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, catalog)
}
