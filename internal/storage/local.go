package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/codebuildervaibhav/speaker-diarization/internal/types"
)

// LocalStorage writes completed transcripts to the local filesystem
type LocalStorage struct {
	outputDir string
}

// NewLocalStorage creates a local storage handler rooted at outputDir
func NewLocalStorage(outputDir string) *LocalStorage {
	return &LocalStorage{
		outputDir: outputDir,
	}
}

// SaveResult writes the formatted transcript and a metadata JSON under a
// dated directory (outputs/2025/08/25/) and returns the transcript path.
func (ls *LocalStorage) SaveResult(result *types.DiarizationResult) (string, error) {
	now := time.Now()
	dateDir := filepath.Join(ls.outputDir,
		fmt.Sprintf("%d", now.Year()),
		fmt.Sprintf("%02d", now.Month()),
		fmt.Sprintf("%02d", now.Day()))

	if err := os.MkdirAll(dateDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create date directory: %v", err)
	}

	// Filename: 20250825_143022_<job_id>.txt
	timestamp := now.Format("20060102_150405")
	baseFilename := fmt.Sprintf("%s_%s", timestamp, result.JobID)

	txtPath := filepath.Join(dateDir, baseFilename+".txt")
	metaPath := filepath.Join(dateDir, baseFilename+"_meta.json")

	if err := os.WriteFile(txtPath, []byte(result.Transcript), 0644); err != nil {
		return "", fmt.Errorf("failed to save transcript: %v", err)
	}

	metadata := map[string]interface{}{
		"job_id":          result.JobID,
		"audio_duration":  result.AudioDuration,
		"processing_time": result.ProcessingTime,
		"total_speakers":  result.TotalSpeakers,
		"word_count":      result.WordCount(),
		"speakers":        result.Speakers,
		"segments":        result.Segments,
		"created_at":      now,
		"local_path":      txtPath,
	}

	metaJSON, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %v", err)
	}

	if err := os.WriteFile(metaPath, metaJSON, 0644); err != nil {
		return "", fmt.Errorf("failed to save metadata: %v", err)
	}

	return txtPath, nil
}
