package handler

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/storyreel/api/internal/model"
	"github.com/storyreel/api/internal/service"
	"github.com/storyreel/api/pkg/response"
)

type SceneHandler struct {
	service   *service.SceneService
	validator *validator.Validate
}

func NewSceneHandler(svc *service.SceneService, v *validator.Validate) *SceneHandler {
	return &SceneHandler{
		service:   svc,
		validator: v,
	}
}

// GenerateImage handles POST /api/scenes/generate-image
func (h *SceneHandler) GenerateImage(c *fiber.Ctx) error {
	var req model.GenerateImageRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.GenerateImage(c.Context(), &req)
	if err != nil {
		return serviceError(c, err)
	}

	return response.OK(c, result)
}

// GenerateAudio handles POST /api/scenes/generate-audio. A cache hit
// answers immediately; otherwise the queued job is acknowledged.
func (h *SceneHandler) GenerateAudio(c *fiber.Ctx) error {
	var req model.GenerateAudioRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.StartAudio(c.Context(), &req)
	if err != nil {
		return serviceError(c, err)
	}

	if result.CacheHit {
		return response.OK(c, result)
	}
	return response.Accepted(c, result)
}

// CheckScene handles GET /api/scenes/:sceneNumber/completeness
func (h *SceneHandler) CheckScene(c *fiber.Ctx) error {
	sceneNumber, err := strconv.Atoi(c.Params("sceneNumber"))
	if err != nil || sceneNumber < 1 {
		return response.ValidationError(c, "Invalid scene number", nil)
	}

	report, err := h.service.CheckScene(c.Context(), sceneNumber)
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, report)
}

// CheckStory handles GET /api/scenes/completeness
func (h *SceneHandler) CheckStory(c *fiber.Ctx) error {
	report, err := h.service.CheckStory(c.Context())
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, report)
}
