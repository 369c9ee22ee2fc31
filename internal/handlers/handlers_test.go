package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codebuildervaibhav/speaker-diarization/internal/registry"
	"github.com/codebuildervaibhav/speaker-diarization/internal/scheduler"
	"github.com/codebuildervaibhav/speaker-diarization/internal/staging"
	"github.com/codebuildervaibhav/speaker-diarization/internal/types"
	"github.com/codebuildervaibhav/speaker-diarization/internal/validate"
)

type stubPipeline struct {
	segments []types.Segment
	duration float64
	block    chan struct{}
}

func (s *stubPipeline) Transcribe(audioPath string) ([]types.Segment, float64, error) {
	if s.block != nil {
		<-s.block
	}
	return s.segments, s.duration, nil
}

type stubProber struct {
	ready bool
}

func (s *stubProber) Ready() bool    { return s.ready }
func (s *stubProber) Device() string { return "cpu" }

type testEnv struct {
	app      *fiber.App
	registry *registry.Registry
	pool     *scheduler.Pool
}

func newTestEnv(t *testing.T, pipe scheduler.Pipeline) *testEnv {
	t.Helper()

	reg := registry.New()
	store, err := staging.NewStore(t.TempDir())
	require.NoError(t, err)

	pool := scheduler.New(2, 16, reg, store, pipe)
	pool.Start()
	t.Cleanup(pool.Stop)

	validator := validate.NewUploadValidator([]string{".mp3", ".wav", ".m4a", ".flac"}, 10)

	app := fiber.New()
	app.Post("/diarize", NewDiarizeHandler(reg, store, validator, pool).Handle)
	statusHandler := NewStatusHandler(reg)
	app.Get("/status/:job_id", statusHandler.Handle)
	app.Delete("/job/:job_id", statusHandler.HandleDelete)
	app.Get("/health", NewHealthHandler(reg, &stubProber{ready: true}).Handle)

	return &testEnv{app: app, registry: reg, pool: pool}
}

func multipartUpload(t *testing.T, filename string, content []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("audio_file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func decodeJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func (e *testEnv) submit(t *testing.T, filename string, content []byte) *http.Response {
	t.Helper()
	body, contentType := multipartUpload(t, filename, content)
	req := httptest.NewRequest(http.MethodPost, "/diarize", body)
	req.Header.Set("Content-Type", contentType)
	resp, err := e.app.Test(req, 5000)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) status(t *testing.T, jobID string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/status/"+jobID, nil)
	resp, err := e.app.Test(req, 5000)
	require.NoError(t, err)
	return resp, decodeJSON(t, resp)
}

func (e *testEnv) waitForStatus(t *testing.T, jobID string, want types.JobStatus) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.Eventually(t, func() bool {
		req := httptest.NewRequest(http.MethodGet, "/status/"+jobID, nil)
		resp, err := e.app.Test(req, 5000)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var b map[string]interface{}
		if json.NewDecoder(resp.Body).Decode(&b) != nil {
			return false
		}
		body = b
		return b["status"] == string(want)
	}, 3*time.Second, 10*time.Millisecond, "job %s never reached %s", jobID, want)
	return body
}

func TestDiarizeRejectsUnsupportedFormat(t *testing.T) {
	env := newTestEnv(t, &stubPipeline{})

	resp := env.submit(t, "notes.txt", []byte("not audio"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeJSON(t, resp)
	assert.Equal(t, "ERR_INVALID_FORMAT", body["code"])

	// Rejection happens before any job exists
	assert.Equal(t, 0, env.registry.Len())
}

func TestDiarizeRejectsMissingFile(t *testing.T) {
	env := newTestEnv(t, &stubPipeline{})

	req := httptest.NewRequest(http.MethodPost, "/diarize", bytes.NewReader(nil))
	resp, err := env.app.Test(req, 5000)
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeJSON(t, resp)
	assert.Equal(t, "ERR_NO_FILE", body["code"])
	assert.Equal(t, 0, env.registry.Len())
}

func TestDiarizeAcceptsAndCompletes(t *testing.T) {
	pipe := &stubPipeline{
		segments: []types.Segment{
			{Speaker: "SPEAKER_00", Text: "good morning", Start: 0, End: 5},
			{Speaker: "SPEAKER_01", Text: "hello", Start: 5, End: 10},
		},
		duration: 10,
	}
	env := newTestEnv(t, pipe)

	resp := env.submit(t, "call.wav", []byte("pcm data"))
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	accepted := decodeJSON(t, resp)
	jobID, _ := accepted["job_id"].(string)
	require.NotEmpty(t, jobID)
	assert.Equal(t, "queued", accepted["status"])

	body := env.waitForStatus(t, jobID, types.StatusCompleted)
	assert.Equal(t, float64(1), body["progress"])
	assert.Nil(t, body["error"])

	result, ok := body["result"].(map[string]interface{})
	require.True(t, ok, "completed status must carry a result")
	assert.Equal(t, float64(2), result["total_speakers"])
	assert.Equal(t, float64(10), result["audio_duration"])

	speakers, ok := result["speakers"].(map[string]interface{})
	require.True(t, ok)
	s0, ok := speakers["SPEAKER_00"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(50), s0["percentage"])
}

func TestStatusUnknownJob(t *testing.T) {
	env := newTestEnv(t, &stubPipeline{})

	resp, body := env.status(t, "nonexistent")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "ERR_JOB_NOT_FOUND", body["code"])
}

func TestStatusWhileQueuedHasNullResultAndError(t *testing.T) {
	pipe := &stubPipeline{block: make(chan struct{})}
	env := newTestEnv(t, pipe)

	resp := env.submit(t, "call.mp3", []byte("pcm"))
	accepted := decodeJSON(t, resp)
	jobID := accepted["job_id"].(string)

	_, body := env.status(t, jobID)
	assert.Nil(t, body["result"])
	assert.Nil(t, body["error"])

	close(pipe.block)
	env.waitForStatus(t, jobID, types.StatusCompleted)
}

func TestDeleteJob(t *testing.T) {
	pipe := &stubPipeline{duration: 1}
	env := newTestEnv(t, pipe)

	resp := env.submit(t, "call.wav", []byte("pcm"))
	jobID := decodeJSON(t, resp)["job_id"].(string)
	env.waitForStatus(t, jobID, types.StatusCompleted)

	req := httptest.NewRequest(http.MethodDelete, "/job/"+jobID, nil)
	delResp, err := env.app.Test(req, 5000)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, delResp.StatusCode)
	delResp.Body.Close()

	statusResp, _ := env.status(t, jobID)
	assert.Equal(t, http.StatusNotFound, statusResp.StatusCode)
}

func TestDeleteUnknownJob(t *testing.T) {
	env := newTestEnv(t, &stubPipeline{})

	req := httptest.NewRequest(http.MethodDelete, "/job/nonexistent", nil)
	resp, err := env.app.Test(req, 5000)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestDeleteActiveJobIsRejected(t *testing.T) {
	pipe := &stubPipeline{block: make(chan struct{})}
	env := newTestEnv(t, pipe)

	resp := env.submit(t, "call.wav", []byte("pcm"))
	jobID := decodeJSON(t, resp)["job_id"].(string)
	env.waitForStatus(t, jobID, types.StatusProcessing)

	req := httptest.NewRequest(http.MethodDelete, "/job/"+jobID, nil)
	delResp, err := env.app.Test(req, 5000)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, delResp.StatusCode)
	delResp.Body.Close()

	close(pipe.block)
	env.waitForStatus(t, jobID, types.StatusCompleted)
}

func TestHealthRespondsUnderLoad(t *testing.T) {
	pipe := &stubPipeline{block: make(chan struct{})}
	env := newTestEnv(t, pipe)

	// Fill both worker slots
	first := env.submit(t, "a.wav", []byte("pcm"))
	second := env.submit(t, "b.wav", []byte("pcm"))
	firstID := decodeJSON(t, first)["job_id"].(string)
	secondID := decodeJSON(t, second)["job_id"].(string)
	env.waitForStatus(t, firstID, types.StatusProcessing)
	env.waitForStatus(t, secondID, types.StatusProcessing)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := env.app.Test(req, 5000)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeJSON(t, resp)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, true, body["models_loaded"])
	assert.Equal(t, "cpu", body["device"])
	assert.Equal(t, float64(2), body["active_jobs"])

	close(pipe.block)
	env.waitForStatus(t, firstID, types.StatusCompleted)
	env.waitForStatus(t, secondID, types.StatusCompleted)
}
