package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/storyreel/api/internal/model"
	"github.com/storyreel/api/internal/service"
	"github.com/storyreel/api/pkg/response"
)

type RenderHandler struct {
	service *service.RenderService
	jobs    *service.JobTracker
}

func NewRenderHandler(svc *service.RenderService, jobs *service.JobTracker) *RenderHandler {
	return &RenderHandler{
		service: svc,
		jobs:    jobs,
	}
}

// Start handles POST /api/render. An incomplete story is refused with
// the completeness report; nothing reaches the backend in that case.
func (h *RenderHandler) Start(c *fiber.Ctx) error {
	result, err := h.service.Start(c.Context())
	if err != nil {
		return serviceError(c, err)
	}
	return response.Accepted(c, result)
}

// JobStatus handles GET /api/jobs/:jobId
func (h *RenderHandler) JobStatus(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Missing job id", nil)
	}

	job, err := h.jobs.Get(c.Context(), jobID)
	if err != nil {
		return serviceError(c, err)
	}

	return response.OK(c, model.JobStatusResponse{
		JobID:       job.ID,
		Type:        job.Type,
		Status:      job.Status,
		Progress:    job.Progress,
		CurrentStep: job.CurrentStep,
		ResultURL:   job.ResultURL,
		Error:       job.Error,
		CreatedAt:   job.CreatedAt,
		CompletedAt: job.CompletedAt,
	})
}
