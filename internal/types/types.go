package types

// JobStatus tracks a job through its lifecycle
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Terminal reports whether a status is final
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Segment represents a speaker-attributed span of transcribed speech
type Segment struct {
	Speaker  string  `json:"speaker"`
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
}

// SpeakerStats holds per-speaker aggregates derived from the segment sequence
type SpeakerStats struct {
	TotalDuration          float64 `json:"total_duration"`
	Percentage             float64 `json:"percentage"`
	SegmentCount           int     `json:"segment_count"`
	WordCount              int     `json:"word_count"`
	AverageSegmentDuration float64 `json:"average_segment_duration"`
}

// DiarizationResult is the final payload attached to a completed job
type DiarizationResult struct {
	JobID          string                   `json:"job_id"`
	Transcript     string                   `json:"transcript"`
	Speakers       map[string]*SpeakerStats `json:"speakers"`
	Segments       []Segment                `json:"segments"`
	ProcessingTime float64                  `json:"processing_time"`
	AudioDuration  float64                  `json:"audio_duration"`
	TotalSpeakers  int                      `json:"total_speakers"`
}

// WordCount sums word counts across all speakers
func (r *DiarizationResult) WordCount() int {
	total := 0
	for _, s := range r.Speakers {
		total += s.WordCount
	}
	return total
}

// StatusResponse is the wire shape returned by GET /status/:job_id
type StatusResponse struct {
	JobID    string             `json:"job_id"`
	Status   JobStatus          `json:"status"`
	Progress float64            `json:"progress"`
	Result   *DiarizationResult `json:"result"`
	Error    *string            `json:"error"`
}
