package validate

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Error is a client-facing rejection with a machine-readable code
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// UploadValidator checks uploads against the configured format and size policy
type UploadValidator struct {
	allowed  map[string]bool
	maxBytes int64
}

// NewUploadValidator creates a validator for the given extension allow-list
// (e.g. ".mp3") and maximum file size in megabytes.
func NewUploadValidator(formats []string, maxSizeMB int) *UploadValidator {
	allowed := make(map[string]bool, len(formats))
	for _, f := range formats {
		ext := strings.ToLower(f)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = true
	}
	return &UploadValidator{
		allowed:  allowed,
		maxBytes: int64(maxSizeMB) * 1024 * 1024,
	}
}

// Check validates the declared filename and size before any bytes are staged.
// A nil return means the upload is acceptable.
func (v *UploadValidator) Check(filename string, size int64) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if !v.allowed[ext] {
		return &Error{
			Code:    "ERR_INVALID_FORMAT",
			Message: fmt.Sprintf("Unsupported file format %q. Supported formats: %s", ext, v.formatList()),
		}
	}
	if size > v.maxBytes {
		return &Error{
			Code:    "ERR_FILE_TOO_LARGE",
			Message: fmt.Sprintf("File too large (max %dMB)", v.maxBytes/(1024*1024)),
		}
	}
	return nil
}

func (v *UploadValidator) formatList() string {
	formats := make([]string, 0, len(v.allowed))
	for ext := range v.allowed {
		formats = append(formats, ext)
	}
	sort.Strings(formats)
	return strings.Join(formats, ", ")
}
