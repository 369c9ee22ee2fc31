package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/speaker-diarization/internal/registry"
	"github.com/codebuildervaibhav/speaker-diarization/internal/types"
)

// StatusHandler serves job status polling and job deletion
type StatusHandler struct {
	registry *registry.Registry
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(reg *registry.Registry) *StatusHandler {
	return &StatusHandler{registry: reg}
}

// Handle processes GET /status/:job_id
func (h *StatusHandler) Handle(c *fiber.Ctx) error {
	job, err := h.registry.Get(c.Params("job_id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Job not found",
			"code":  "ERR_JOB_NOT_FOUND",
		})
	}

	resp := types.StatusResponse{
		JobID:    job.ID,
		Status:   job.Status,
		Progress: job.Progress,
		Result:   job.Result,
	}
	if job.Error != "" {
		resp.Error = &job.Error
	}

	return c.JSON(resp)
}

// HandleDelete processes DELETE /job/:job_id. Active jobs cannot be
// deleted; there is no way to abort a running pipeline invocation.
func (h *StatusHandler) HandleDelete(c *fiber.Ctx) error {
	err := h.registry.Delete(c.Params("job_id"))
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Job not found",
			"code":  "ERR_JOB_NOT_FOUND",
		})
	case errors.Is(err, registry.ErrNotTerminal):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Job is still queued or processing",
			"code":  "ERR_JOB_ACTIVE",
		})
	case err != nil:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{"message": "Job deleted successfully"})
}
