package pipeline

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/codebuildervaibhav/speaker-diarization/internal/types"
)

// Transcriber maps an audio file to speaker-labeled segments plus the
// audio duration in seconds. Invocations are long-running and must be
// called off the request path.
type Transcriber interface {
	Transcribe(audioPath string) ([]types.Segment, float64, error)
	Ready() bool
	Device() string
}

// WhisperX runs transcription and speaker diarization through the
// whisperx CLI, normalizing input with ffmpeg first.
type WhisperX struct {
	model    string
	device   string
	language string
	tempDir  string
	ready    bool
}

// NewWhisperX creates a WhisperX transcriber. Readiness reflects whether
// the required binaries resolve on PATH; it is reported by /health and
// checked again per invocation.
func NewWhisperX(model, device, language, tempDir string) *WhisperX {
	wx := &WhisperX{
		model:    model,
		device:   device,
		language: language,
		tempDir:  tempDir,
	}

	missing := []string{}
	for _, bin := range []string{"ffmpeg", "ffprobe", "whisperx"} {
		if _, err := exec.LookPath(bin); err != nil {
			missing = append(missing, bin)
		}
	}
	if len(missing) > 0 {
		log.Printf("WARNING: pipeline not ready, missing binaries: %s", strings.Join(missing, ", "))
	} else {
		wx.ready = true
		log.Printf("WhisperX pipeline ready (model: %s, device: %s)", model, device)
	}

	return wx
}

// Ready reports whether the pipeline binaries are available
func (wx *WhisperX) Ready() bool {
	return wx.ready
}

// Device returns the configured compute device
func (wx *WhisperX) Device() string {
	return wx.device
}

// Transcribe normalizes the audio, runs whisperx with diarization enabled
// and parses its JSON output into segments.
func (wx *WhisperX) Transcribe(audioPath string) ([]types.Segment, float64, error) {
	if !wx.ready {
		return nil, 0, fmt.Errorf("pipeline not ready: whisperx/ffmpeg not installed")
	}

	normalized, err := wx.normalizeAudio(audioPath)
	if err != nil {
		return nil, 0, err
	}
	defer os.Remove(normalized)

	duration, err := probeDuration(normalized)
	if err != nil {
		return nil, 0, err
	}

	outputDir := filepath.Join(wx.tempDir, "whisperx_"+uuid.New().String())
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, 0, fmt.Errorf("failed to create output dir: %v", err)
	}
	defer os.RemoveAll(outputDir)

	cmd := exec.Command("whisperx",
		normalized,
		"--model", wx.model,
		"--device", wx.device,
		"--language", wx.language,
		"--diarize",
		"--output_dir", outputDir,
		"--output_format", "json",
	)
	if token := os.Getenv("HUGGINGFACE_TOKEN"); token != "" {
		cmd.Args = append(cmd.Args, "--hf_token", token)
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, 0, fmt.Errorf("whisperx failed: %v\nOutput: %s", err, string(output))
	}

	baseName := strings.TrimSuffix(filepath.Base(normalized), filepath.Ext(normalized))
	jsonPath := filepath.Join(outputDir, baseName+".json")

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read whisperx output: %v", err)
	}

	var parsed whisperxOutput
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, 0, fmt.Errorf("failed to parse whisperx JSON: %v", err)
	}

	segments := make([]types.Segment, 0, len(parsed.Segments))
	for _, seg := range parsed.Segments {
		speaker := seg.Speaker
		if speaker == "" {
			speaker = "SPEAKER_UNKNOWN"
		}
		segments = append(segments, types.Segment{
			Speaker:  speaker,
			Text:     strings.TrimSpace(seg.Text),
			Start:    seg.Start,
			End:      seg.End,
			Duration: seg.End - seg.Start,
		})
	}

	if duration == 0 && len(segments) > 0 {
		duration = segments[len(segments)-1].End
	}

	log.Printf("Transcription completed: %d segments, %.2fs audio", len(segments), duration)
	return segments, duration, nil
}

// normalizeAudio converts the input to 16kHz mono WAV
func (wx *WhisperX) normalizeAudio(inputPath string) (string, error) {
	outputPath := filepath.Join(wx.tempDir, fmt.Sprintf("normalized_%s.wav", uuid.New().String()))

	cmd := exec.Command("ffmpeg",
		"-i", inputPath,
		"-ar", "16000",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		"-y",
		outputPath,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("ffmpeg failed: %v\nOutput: %s", err, string(output))
	}

	return outputPath, nil
}

// probeDuration reads the audio duration in seconds via ffprobe
func probeDuration(path string) (float64, error) {
	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %v", err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe duration: %v", err)
	}

	return duration, nil
}

// whisperxOutput matches the whisperx JSON output format
type whisperxOutput struct {
	Segments []whisperxSegment `json:"segments"`
	Language string            `json:"language"`
}

type whisperxSegment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker"`
}
