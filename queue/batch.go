package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zero-day-ai/binxgraph/ingest"
)

// Enqueue pushes one job per path under a new JobID and returns it.
func Enqueue(ctx context.Context, client Client, queue string, paths []string) (string, error) {
	jobID := uuid.NewString()
	return jobID, EnqueueJob(ctx, client, queue, jobID, paths)
}

// EnqueueJob pushes one job per path under jobID. Subscribe to
// ResultChannel(jobID) before calling it to receive every result.
func EnqueueJob(ctx context.Context, client Client, queue, jobID string, paths []string) error {
	if len(paths) == 0 {
		return fmt.Errorf("queue: nothing to enqueue")
	}
	if queue == "" {
		queue = DefaultQueue
	}
	now := time.Now().UnixMilli()
	for i, p := range paths {
		job := ImportJob{JobID: jobID, Index: i, Total: len(paths), Path: p, SubmittedAt: now}
		if err := client.Push(ctx, queue, job); err != nil {
			return err
		}
	}
	return nil
}

// Summary aggregates the results of one batch.
type Summary struct {
	JobID      string            `json:"job_id"`
	Total      int               `json:"total"`
	Received   int               `json:"received"`
	Succeeded  int               `json:"succeeded"`
	Failed     int               `json:"failed"`
	Statistics ingest.Statistics `json:"statistics"`
	TotalNodes int               `json:"total_nodes"`

	// Errors are prefixed with the file they came from.
	Errors []string `json:"errors"`
}

// Collect reads results until total have arrived, results closes or ctx
// is done. The summary holds whatever arrived; the error is ctx's when it
// ended the wait.
func Collect(ctx context.Context, results <-chan JobResult, jobID string, total int) (Summary, error) {
	s := Summary{JobID: jobID, Total: total, Errors: []string{}}
	for s.Received < total {
		select {
		case <-ctx.Done():
			s.TotalNodes = s.Statistics.TotalNodes()
			return s, ctx.Err()
		case r, ok := <-results:
			if !ok {
				s.TotalNodes = s.Statistics.TotalNodes()
				return s, nil
			}
			if r.JobID != jobID {
				continue
			}
			s.Received++
			s.Statistics.Add(r.Statistics)
			if r.Success && !r.HasError() {
				s.Succeeded++
			} else {
				s.Failed++
			}
			if r.HasError() {
				s.Errors = append(s.Errors, fmt.Sprintf("%s: %s", r.Path, r.Error))
			}
			for _, e := range r.Errors {
				s.Errors = append(s.Errors, fmt.Sprintf("%s: %s", r.Path, e))
			}
		}
	}
	s.TotalNodes = s.Statistics.TotalNodes()
	return s, nil
}
