package staging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

// Store persists uploaded audio to a scoped temp directory until the
// owning job finishes with it. Staged paths incorporate the job ID so
// no two jobs ever share a file.
type Store struct {
	dir string
}

// NewStore creates the staging directory if needed
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %v", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the staging directory path
func (s *Store) Dir() string {
	return s.dir
}

// Stage writes the upload to a temp file owned by the given job and
// returns its path. The original extension is preserved for the decoder.
func (s *Store) Stage(jobID, filename string, src io.Reader) (string, error) {
	path := filepath.Join(s.dir, jobID+filepath.Ext(filename))

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create staged file: %v", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write staged file: %v", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close staged file: %v", err)
	}

	return path, nil
}

// Remove deletes a staged file. Missing files are not an error; both the
// success and failure paths call this unconditionally.
func (s *Store) Remove(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to remove staged file %s: %v", path, err)
	}
}
