package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/codebuildervaibhav/speaker-diarization/internal/types"
)

// ArchiveDB persists metadata about completed diarization jobs. The job
// registry itself is in-memory only; the archive is what survives for
// browsing past transcripts.
type ArchiveDB struct {
	db *sql.DB
}

// Record is one archived transcript entry
type Record struct {
	JobID         string    `json:"job_id"`
	AudioDuration float64   `json:"audio_duration"`
	TotalSpeakers int       `json:"total_speakers"`
	WordCount     int       `json:"word_count"`
	LocalPath     string    `json:"local_path"`
	GDriveURL     string    `json:"gdrive_url"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewArchiveDB opens (and if needed initializes) the archive database
func NewArchiveDB(dbPath string) (*ArchiveDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS transcripts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT NOT NULL UNIQUE,
		audio_duration REAL,
		total_speakers INTEGER,
		word_count INTEGER,
		local_path TEXT,
		gdrive_url TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_created_at ON transcripts(created_at);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %v", err)
	}

	return &ArchiveDB{db: db}, nil
}

// SaveResult archives a completed job's metadata
func (a *ArchiveDB) SaveResult(result *types.DiarizationResult, localPath, gdriveURL string) error {
	query := `
	INSERT INTO transcripts (job_id, audio_duration, total_speakers, word_count, local_path, gdrive_url, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := a.db.Exec(query, result.JobID, result.AudioDuration, result.TotalSpeakers,
		result.WordCount(), localPath, gdriveURL, time.Now())
	if err != nil {
		return fmt.Errorf("failed to archive transcript: %v", err)
	}

	return nil
}

// GetTranscript retrieves an archived entry by job ID
func (a *ArchiveDB) GetTranscript(jobID string) (*Record, error) {
	query := `
	SELECT job_id, audio_duration, total_speakers, word_count, local_path, gdrive_url, created_at
	FROM transcripts WHERE job_id = ?
	`

	var rec Record
	err := a.db.QueryRow(query, jobID).Scan(&rec.JobID, &rec.AudioDuration,
		&rec.TotalSpeakers, &rec.WordCount, &rec.LocalPath, &rec.GDriveURL, &rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get transcript: %v", err)
	}

	return &rec, nil
}

// ListTranscripts returns the most recent archived entries
func (a *ArchiveDB) ListTranscripts(limit int) ([]Record, error) {
	query := `
	SELECT job_id, audio_duration, total_speakers, word_count, local_path, gdrive_url, created_at
	FROM transcripts ORDER BY created_at DESC LIMIT ?
	`

	rows, err := a.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %v", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.JobID, &rec.AudioDuration, &rec.TotalSpeakers,
			&rec.WordCount, &rec.LocalPath, &rec.GDriveURL, &rec.CreatedAt); err != nil {
			continue
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Close closes the database connection
func (a *ArchiveDB) Close() error {
	return a.db.Close()
}
