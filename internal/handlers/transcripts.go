package handlers

import (
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/speaker-diarization/internal/storage"
)

// TranscriptsHandler serves the archive of completed transcripts
type TranscriptsHandler struct {
	archive *storage.ArchiveDB
}

// NewTranscriptsHandler creates a new transcripts handler
func NewTranscriptsHandler(archive *storage.ArchiveDB) *TranscriptsHandler {
	return &TranscriptsHandler{archive: archive}
}

// HandleList processes GET /transcripts
func (h *TranscriptsHandler) HandleList(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	records, err := h.archive.ListTranscripts(limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if records == nil {
		records = []storage.Record{}
	}
	return c.JSON(records)
}

// HandleText processes GET /transcripts/:job_id/text, returning the
// archived transcript text from local storage
func (h *TranscriptsHandler) HandleText(c *fiber.Ctx) error {
	rec, err := h.archive.GetTranscript(c.Params("job_id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Transcript not found",
			"code":  "ERR_TRANSCRIPT_NOT_FOUND",
		})
	}

	if rec.LocalPath == "" {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Transcript file path not found",
			"code":  "ERR_TRANSCRIPT_NOT_FOUND",
		})
	}

	content, err := os.ReadFile(rec.LocalPath)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read transcript file",
		})
	}

	return c.SendString(string(content))
}
