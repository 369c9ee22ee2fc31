package scheduler

import (
	"fmt"
	"log"
	"os"
	"runtime/debug"
	"time"

	"github.com/codebuildervaibhav/speaker-diarization/internal/aggregate"
	"github.com/codebuildervaibhav/speaker-diarization/internal/registry"
	"github.com/codebuildervaibhav/speaker-diarization/internal/staging"
	"github.com/codebuildervaibhav/speaker-diarization/internal/storage"
	"github.com/codebuildervaibhav/speaker-diarization/internal/types"
)

// Pipeline is the external transcription collaborator. The call is
// long-running and may fail; it is never retried.
type Pipeline interface {
	Transcribe(audioPath string) ([]types.Segment, float64, error)
}

// Pool runs diarization jobs on a fixed number of workers pulling from a
// FIFO queue. The worker count is the cap on concurrent pipeline
// invocations; jobs beyond it stay queued until a slot frees.
type Pool struct {
	jobQueue chan string
	workers  int

	registry *registry.Registry
	staging  *staging.Store
	pipeline Pipeline

	// Optional post-completion exports; nil disables each
	local   *storage.LocalStorage
	drive   *storage.DriveClient
	archive *storage.ArchiveDB
}

// New creates a pool with the given worker count and queue capacity
func New(workers, queueSize int, reg *registry.Registry, store *staging.Store, pipe Pipeline) *Pool {
	return &Pool{
		jobQueue: make(chan string, queueSize),
		workers:  workers,
		registry: reg,
		staging:  store,
		pipeline: pipe,
	}
}

// WithExports attaches the optional completion exports
func (p *Pool) WithExports(local *storage.LocalStorage, drive *storage.DriveClient, archive *storage.ArchiveDB) *Pool {
	p.local = local
	p.drive = drive
	p.archive = archive
	return p
}

// Start launches the workers
func (p *Pool) Start() {
	log.Printf("Starting worker pool with %d workers", p.workers)
	for i := 0; i < p.workers; i++ {
		go p.worker(i)
	}
}

// Stop closes the queue; workers exit after draining it
func (p *Pool) Stop() {
	close(p.jobQueue)
}

// Enqueue admits a queued job into the FIFO. It never blocks the
// submission path: false means the queue is full and the caller must
// fail the job.
func (p *Pool) Enqueue(jobID string) bool {
	select {
	case p.jobQueue <- jobID:
		log.Printf("Job %s enqueued", jobID)
		return true
	default:
		log.Printf("Job %s rejected: queue full", jobID)
		return false
	}
}

// worker processes jobs from the queue
func (p *Pool) worker(id int) {
	log.Printf("Worker %d started", id)

	for jobID := range p.jobQueue {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("Worker %d: PANIC processing job %s: %v\n%s",
						id, jobID, r, string(debug.Stack()))
					p.failJob(jobID, fmt.Sprintf("internal error: %v", r))
				}
			}()

			p.processJob(id, jobID)
		}()
	}
}

// processJob runs one job through the pipeline and records the outcome.
// Errors are never propagated; they land on the job as failed state.
func (p *Pool) processJob(workerID int, jobID string) {
	job, err := p.registry.Get(jobID)
	if err != nil || job.Status != types.StatusQueued {
		// Deleted or already failed at admission time
		return
	}

	log.Printf("Worker %d: Processing job %s", workerID, jobID)
	if err := p.registry.MarkProcessing(jobID); err != nil {
		log.Printf("Worker %d: cannot start job %s: %v", workerID, jobID, err)
		return
	}
	p.registry.SetProgress(jobID, 0.1)

	if job.FilePath == "" {
		p.failJob(jobID, "staged audio file missing")
		return
	}
	if _, err := os.Stat(job.FilePath); err != nil {
		p.failJob(jobID, fmt.Sprintf("staged audio file missing: %v", err))
		return
	}
	p.registry.SetProgress(jobID, 0.2)

	start := time.Now()
	segments, audioDuration, err := p.pipeline.Transcribe(job.FilePath)
	if err != nil {
		log.Printf("Worker %d: Diarization failed for job %s: %v", workerID, jobID, err)
		p.failJob(jobID, fmt.Sprintf("diarization failed: %v", err))
		return
	}
	p.registry.SetProgress(jobID, 0.8)

	result := aggregate.Build(segments, audioDuration)
	result.JobID = jobID
	result.ProcessingTime = time.Since(start).Seconds()

	p.export(workerID, result)
	p.registry.SetProgress(jobID, 0.9)

	p.cleanup(jobID, job.FilePath)
	if err := p.registry.Complete(jobID, result); err != nil {
		log.Printf("Worker %d: cannot complete job %s: %v", workerID, jobID, err)
		return
	}

	log.Printf("Worker %d: Job %s completed (%d segments, %d speakers, %.2fs)",
		workerID, jobID, len(result.Segments), result.TotalSpeakers, result.ProcessingTime)
}

// export saves the completed result locally, to Drive and to the archive.
// All exports are best-effort; failures are logged and never fail the job.
func (p *Pool) export(workerID int, result *types.DiarizationResult) {
	var localPath, driveURL string

	if p.local != nil {
		path, err := p.local.SaveResult(result)
		if err != nil {
			log.Printf("Worker %d: Local save failed for job %s: %v", workerID, result.JobID, err)
		} else {
			localPath = path
		}
	}

	if p.drive != nil {
		var err error
		for attempt := 1; attempt <= 3; attempt++ {
			driveURL, err = p.drive.Upload(result)
			if err == nil {
				break
			}
			log.Printf("Worker %d: Google Drive upload attempt %d/3 failed: %v", workerID, attempt, err)
			if attempt < 3 {
				time.Sleep(time.Duration(attempt*attempt) * time.Second)
			}
		}
		if err != nil {
			log.Printf("Worker %d: WARNING - Google Drive upload failed after 3 attempts", workerID)
		}
	}

	if p.archive != nil {
		if err := p.archive.SaveResult(result, localPath, driveURL); err != nil {
			log.Printf("Worker %d: Archive save failed for job %s: %v", workerID, result.JobID, err)
		}
	}
}

// failJob marks the job failed and releases its staged file
func (p *Pool) failJob(jobID, message string) {
	job, err := p.registry.Get(jobID)
	if err != nil {
		return
	}
	if err := p.registry.Fail(jobID, message); err != nil {
		log.Printf("Cannot fail job %s: %v", jobID, err)
	}
	p.cleanup(jobID, job.FilePath)
}

// cleanup removes the staged file and drops its reference from the job
func (p *Pool) cleanup(jobID, filePath string) {
	p.staging.Remove(filePath)
	p.registry.ClearFilePath(jobID)
}
