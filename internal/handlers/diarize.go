package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/speaker-diarization/internal/registry"
	"github.com/codebuildervaibhav/speaker-diarization/internal/scheduler"
	"github.com/codebuildervaibhav/speaker-diarization/internal/staging"
	"github.com/codebuildervaibhav/speaker-diarization/internal/types"
	"github.com/codebuildervaibhav/speaker-diarization/internal/validate"
)

// DiarizeHandler accepts audio uploads and creates diarization jobs
type DiarizeHandler struct {
	registry  *registry.Registry
	staging   *staging.Store
	validator *validate.UploadValidator
	pool      *scheduler.Pool
}

// NewDiarizeHandler creates a new upload handler
func NewDiarizeHandler(reg *registry.Registry, store *staging.Store, validator *validate.UploadValidator, pool *scheduler.Pool) *DiarizeHandler {
	return &DiarizeHandler{
		registry:  reg,
		staging:   store,
		validator: validator,
		pool:      pool,
	}
}

// Handle processes POST /diarize. Validation failures are rejected before
// a job exists; staging failures produce a job that is created and
// immediately failed.
func (h *DiarizeHandler) Handle(c *fiber.Ctx) error {
	file, err := c.FormFile("audio_file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No audio file uploaded",
			"code":  "ERR_NO_FILE",
		})
	}

	if err := h.validator.Check(file.Filename, file.Size); err != nil {
		verr := err.(*validate.Error)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": verr.Message,
			"code":  verr.Code,
		})
	}

	jobID := h.registry.Create()

	src, err := file.Open()
	if err != nil {
		h.registry.Fail(jobID, "failed to read upload")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read uploaded file",
			"code":  "ERR_STAGING_FAILED",
		})
	}
	defer src.Close()

	stagedPath, err := h.staging.Stage(jobID, file.Filename, src)
	if err != nil {
		log.Printf("Failed to stage upload for job %s: %v", jobID, err)
		h.registry.Fail(jobID, "failed to stage uploaded file")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save uploaded file",
			"code":  "ERR_STAGING_FAILED",
		})
	}
	h.registry.SetFilePath(jobID, stagedPath)

	if !h.pool.Enqueue(jobID) {
		h.registry.Fail(jobID, "server busy: job queue full")
		h.staging.Remove(stagedPath)
		h.registry.ClearFilePath(jobID)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Server busy, try again later",
			"code":  "ERR_QUEUE_FULL",
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"job_id": jobID,
		"status": types.StatusQueued,
	})
}
