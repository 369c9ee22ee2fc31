package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/codebuildervaibhav/speaker-diarization/internal/config"
	"github.com/codebuildervaibhav/speaker-diarization/internal/handlers"
	"github.com/codebuildervaibhav/speaker-diarization/internal/pipeline"
	"github.com/codebuildervaibhav/speaker-diarization/internal/registry"
	"github.com/codebuildervaibhav/speaker-diarization/internal/scheduler"
	"github.com/codebuildervaibhav/speaker-diarization/internal/staging"
	"github.com/codebuildervaibhav/speaker-diarization/internal/storage"
	"github.com/codebuildervaibhav/speaker-diarization/internal/validate"
)

func main() {
	configPath := "config/config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Println("Initializing components...")

	// Staging area for uploaded audio
	stagingStore, err := staging.NewStore(cfg.Storage.TempDir)
	if err != nil {
		log.Fatalf("Failed to create staging directory: %v", err)
	}
	if err := os.MkdirAll(cfg.Storage.OutputDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	// WhisperX pipeline
	transcriber := pipeline.NewWhisperX(
		cfg.WhisperX.Model,
		cfg.WhisperX.Device,
		cfg.WhisperX.Language,
		cfg.Storage.TempDir,
	)

	// Local transcript output
	localStorage := storage.NewLocalStorage(cfg.Storage.OutputDir)

	// Google Drive export (optional - may fail if credentials not set up)
	var driveClient *storage.DriveClient
	if _, err := os.Stat(cfg.GoogleDrive.CredentialsFile); err == nil {
		driveClient, err = storage.NewDriveClient(
			cfg.GoogleDrive.CredentialsFile,
			cfg.GoogleDrive.TokenFile,
			cfg.GoogleDrive.FolderName,
		)
		if err != nil {
			log.Printf("WARNING: Google Drive not available: %v", err)
			log.Println("Transcripts will only be saved locally")
			driveClient = nil
		} else {
			log.Println("Google Drive export enabled")
		}
	} else {
		log.Println("Google Drive credentials not found - saving locally only")
	}

	// Transcript archive
	archive, err := storage.NewArchiveDB(cfg.Storage.Database)
	if err != nil {
		log.Fatalf("Failed to initialize archive database: %v", err)
	}
	defer archive.Close()

	// Job registry and worker pool
	jobRegistry := registry.New()
	pool := scheduler.New(
		cfg.Workers.Count,
		cfg.Workers.QueueSize,
		jobRegistry,
		stagingStore,
		transcriber,
	).WithExports(localStorage, driveClient, archive)
	pool.Start()

	// Sweep staged files orphaned by crashed runs
	sweeper := staging.NewSweeper(
		cfg.Storage.TempDir,
		time.Duration(cfg.Cleanup.IntervalMinutes)*time.Minute,
		time.Duration(cfg.Cleanup.MaxAgeHours)*time.Hour,
	)
	sweeper.Start()
	defer sweeper.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: cfg.Limits.MaxFileSizeMB * 1024 * 1024,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	// Initialize handlers
	validator := validate.NewUploadValidator(cfg.Limits.AllowedFormats, cfg.Limits.MaxFileSizeMB)
	diarizeHandler := handlers.NewDiarizeHandler(jobRegistry, stagingStore, validator, pool)
	statusHandler := handlers.NewStatusHandler(jobRegistry)
	healthHandler := handlers.NewHealthHandler(jobRegistry, transcriber)
	transcriptsHandler := handlers.NewTranscriptsHandler(archive)

	// Routes
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Speaker Diarization API",
			"version": "1.0.0",
			"endpoints": fiber.Map{
				"diarize":     "POST /diarize - Upload audio for diarization",
				"status":      "GET /status/:job_id - Check job status",
				"delete":      "DELETE /job/:job_id - Delete a finished job",
				"transcripts": "GET /transcripts - List archived transcripts",
				"health":      "GET /health - Health check",
			},
		})
	})

	app.Post("/diarize", diarizeHandler.Handle)
	app.Get("/status/:job_id", statusHandler.Handle)
	app.Delete("/job/:job_id", statusHandler.HandleDelete)
	app.Get("/health", healthHandler.Handle)
	app.Get("/transcripts", transcriptsHandler.HandleList)
	app.Get("/transcripts/:job_id/text", transcriptsHandler.HandleText)

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	log.Println("Endpoints:")
	log.Println("   POST   /diarize                    - Upload audio for diarization")
	log.Println("   GET    /status/:job_id             - Check job status")
	log.Println("   DELETE /job/:job_id                - Delete a finished job")
	log.Println("   GET    /transcripts                - List archived transcripts")
	log.Println("   GET    /transcripts/:job_id/text   - Get transcript text")
	log.Println("   GET    /health                     - Health check")

	// Graceful shutdown
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down gracefully...")
		app.Shutdown()
	}()

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
