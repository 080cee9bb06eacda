package localstorage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
)

var safeName = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// LocalStorage implements ports.Storage for the local filesystem.
// Each job gets <base>/jobs/<job id>/ holding input.json, reviews.json, the
// product image and the final screenshot.
type LocalStorage struct {
	BaseDir string
}

// NewLocalStorage creates a new LocalStorage instance.
func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{BaseDir: baseDir}
}

// InitJob creates the job directory.
func (s *LocalStorage) InitJob(ctx context.Context, jobID string) error {
	if !safeName.MatchString(jobID) {
		return fmt.Errorf("invalid job id %q", jobID)
	}
	path := s.GetJobPath(jobID)
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create job directory %s: %w", path, err)
	}
	return nil
}

// SaveInput saves the job request.
func (s *LocalStorage) SaveInput(ctx context.Context, jobID string, data []byte) error {
	return s.write(jobID, "input.json", data)
}

// SaveReviews saves the final review list.
func (s *LocalStorage) SaveReviews(ctx context.Context, jobID string, data []byte) error {
	return s.write(jobID, "reviews.json", data)
}

// SaveFile streams an artifact into the job directory.
func (s *LocalStorage) SaveFile(ctx context.Context, jobID string, reader io.Reader, filename string) error {
	if !safeName.MatchString(filename) {
		return fmt.Errorf("invalid artifact name %q", filename)
	}
	path := filepath.Join(s.GetJobPath(jobID), filename)

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return nil
}

// GetJobPath returns the path for a job directory.
func (s *LocalStorage) GetJobPath(jobID string) string {
	return filepath.Join(s.BaseDir, "jobs", jobID)
}

func (s *LocalStorage) write(jobID, name string, data []byte) error {
	path := filepath.Join(s.GetJobPath(jobID), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to save %s: %w", name, err)
	}
	return nil
}
