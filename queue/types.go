package queue

import (
	"fmt"
	"time"

	"github.com/zero-day-ai/binxgraph/ingest"
)

// ImportJob is one file to import. Jobs submitted together share a JobID.
type ImportJob struct {
	// JobID is a UUID that correlates all files of a batch
	JobID string `json:"job_id"`

	// Index is the position of this file in the batch (0-based)
	Index int `json:"index"`

	// Total is the number of files in the batch
	Total int `json:"total"`

	// Path is the file to import, as seen by the workers
	Path string `json:"path"`

	// SubmittedAt is the Unix timestamp in milliseconds when the job was pushed
	SubmittedAt int64 `json:"submitted_at"`
}

// JobResult is the outcome of one ImportJob, published on the batch's
// result channel.
type JobResult struct {
	JobID string `json:"job_id"`
	Index int    `json:"index"`
	Path  string `json:"path"`

	// Success mirrors ingest.Result.Success
	Success bool `json:"success"`

	Statistics   ingest.Statistics `json:"statistics"`
	TotalNodes   int               `json:"total_nodes"`
	SkippedCalls int               `json:"skipped_calls"`

	// Errors are the import's recoverable errors, truncated for transport
	Errors     []string `json:"errors,omitempty"`
	ErrorCount int      `json:"error_count"`

	// Error is set when the file could not be imported at all
	Error string `json:"error,omitempty"`

	WorkerID    string `json:"worker_id"`
	StartedAt   int64  `json:"started_at"`
	CompletedAt int64  `json:"completed_at"`
}

// IsValid checks if the ImportJob has all required fields populated correctly.
func (j *ImportJob) IsValid() error {
	if j.JobID == "" {
		return fmt.Errorf("job_id is required")
	}
	if j.Index < 0 {
		return fmt.Errorf("index must be non-negative, got %d", j.Index)
	}
	if j.Total <= 0 {
		return fmt.Errorf("total must be positive, got %d", j.Total)
	}
	if j.Index >= j.Total {
		return fmt.Errorf("index %d is out of bounds for total %d", j.Index, j.Total)
	}
	if j.Path == "" {
		return fmt.Errorf("path is required")
	}
	if j.SubmittedAt <= 0 {
		return fmt.Errorf("submitted_at must be positive, got %d", j.SubmittedAt)
	}
	return nil
}

// Age returns the duration since this job was submitted.
func (j *ImportJob) Age() time.Duration {
	if j.SubmittedAt <= 0 {
		return 0
	}
	return time.Duration(time.Now().UnixMilli()-j.SubmittedAt) * time.Millisecond
}

// HasError returns true if the file could not be imported.
func (r *JobResult) HasError() bool {
	return r.Error != ""
}

// Duration returns the wall-clock time the worker spent on the job.
func (r *JobResult) Duration() time.Duration {
	if r.StartedAt <= 0 || r.CompletedAt <= 0 {
		return 0
	}
	return time.Duration(r.CompletedAt-r.StartedAt) * time.Millisecond
}

// Key and channel names.
const (
	DefaultQueue = "binxgraph:import:queue"

	resultPrefix = "binxgraph:results"
	workerPrefix = "binxgraph:worker"
	workersKey   = "binxgraph:workers"
)

// ResultChannel returns the pub/sub channel carrying results of jobID.
func ResultChannel(jobID string) string {
	return formatKeyName(resultPrefix, jobID)
}

func healthKey(workerID string) string {
	return formatKeyName(workerPrefix, workerID, "health")
}
