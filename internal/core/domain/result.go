package domain

import "time"

// JobResult summarizes a finished run for CLIs and logs.
type JobResult struct {
	JobID         string    `json:"job_id"`
	Success       bool      `json:"success"`
	ReviewCount   int       `json:"review_count"`
	Pages         int       `json:"pages"`
	ArtifactsPath string    `json:"artifacts_path,omitempty"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	CompletedAt   time.Time `json:"completed_at"`
}
