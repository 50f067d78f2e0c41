package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/storyreel/api/internal/client"
	"github.com/storyreel/api/internal/service"
	"github.com/storyreel/api/pkg/response"
)

// serviceError translates service-layer failures into API responses.
// Local-state misses are recoverable and answered as data-not-found; a
// refused render carries its completeness report; transport errors
// against the pipeline backend surface as upstream failures.
func serviceError(c *fiber.Ctx, err error) error {
	var gateErr *service.GateError
	if errors.As(err, &gateErr) {
		return response.IncompleteStory(c, gateErr.Report.Message(), gateErr.Report)
	}

	if errors.Is(err, service.ErrNoStory) || errors.Is(err, service.ErrSceneNotFound) {
		return response.DataNotFound(c, err.Error())
	}
	if errors.Is(err, service.ErrJobNotFound) {
		return response.NotFound(c, err.Error())
	}

	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return response.UpstreamError(c, apiErr.Message)
	}

	return response.ServiceError(c, err.Error())
}

// formatValidationErrors formats validator errors for response
func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}
