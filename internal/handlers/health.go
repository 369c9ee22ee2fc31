package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/speaker-diarization/internal/registry"
)

// Prober reports readiness of the transcription pipeline
type Prober interface {
	Ready() bool
	Device() string
}

// HealthHandler serves the liveness endpoint. It only reads cheap
// counters and answers even when every worker slot is busy.
type HealthHandler struct {
	registry *registry.Registry
	prober   Prober
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(reg *registry.Registry, prober Prober) *HealthHandler {
	return &HealthHandler{registry: reg, prober: prober}
}

// Handle processes GET /health
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":        "healthy",
		"models_loaded": h.prober.Ready(),
		"device":        h.prober.Device(),
		"active_jobs":   h.registry.ActiveCount(),
	})
}
