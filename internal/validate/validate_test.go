package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckAcceptsAllowedFormats(t *testing.T) {
	v := NewUploadValidator([]string{".mp3", ".wav", ".m4a", ".flac"}, 10)

	for _, name := range []string{"call.mp3", "meeting.wav", "note.m4a", "song.flac"} {
		assert.NoError(t, v.Check(name, 1024), name)
	}
}

func TestCheckIsCaseInsensitive(t *testing.T) {
	v := NewUploadValidator([]string{".mp3", ".wav"}, 10)

	assert.NoError(t, v.Check("RECORDING.WAV", 1024))
	assert.NoError(t, v.Check("Mixed.Mp3", 1024))
}

func TestCheckRejectsUnsupportedFormat(t *testing.T) {
	v := NewUploadValidator([]string{".mp3", ".wav"}, 10)

	err := v.Check("notes.txt", 1024)
	require.Error(t, err)

	verr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, "ERR_INVALID_FORMAT", verr.Code)
	assert.Contains(t, verr.Message, ".txt")
}

func TestCheckRejectsOversizedFile(t *testing.T) {
	v := NewUploadValidator([]string{".wav"}, 1)

	err := v.Check("big.wav", 2*1024*1024)
	require.Error(t, err)

	verr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, "ERR_FILE_TOO_LARGE", verr.Code)
}

func TestCheckNormalizesBareExtensions(t *testing.T) {
	// Config may list formats without the leading dot
	v := NewUploadValidator([]string{"mp3", "wav"}, 10)

	assert.NoError(t, v.Check("clip.mp3", 1024))
	assert.Error(t, v.Check("clip.ogg", 1024))
}

func TestCheckRejectsMissingExtension(t *testing.T) {
	v := NewUploadValidator([]string{".wav"}, 10)

	assert.Error(t, v.Check("noextension", 1024))
}
