package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/zero-day-ai/binxgraph/ingest"
)

// Worker defaults.
const (
	DefaultPopTimeout        = time.Second
	DefaultHeartbeatInterval = 10 * time.Second
)

// Worker pops import jobs and publishes their results.
type Worker struct {
	Client   Client
	Importer ingest.FileImporter

	// Queue defaults to DefaultQueue.
	Queue string

	// ID defaults to a random UUID.
	ID string

	PopTimeout        time.Duration
	HeartbeatInterval time.Duration

	// Health, when set, reports SERVING while Run accepts jobs.
	Health *Health

	Logger *slog.Logger
}

// Run processes jobs until ctx is done. Jobs run one at a time; a job in
// progress is finished before Run returns.
func (w *Worker) Run(ctx context.Context) error {
	if w.Client == nil || w.Importer == nil {
		return errors.New("queue: worker needs a client and an importer")
	}
	w.defaults()
	logger := w.Logger.With("worker_id", w.ID, "queue", w.Queue)

	if err := w.Client.IncrementWorkerCount(ctx); err != nil {
		return err
	}
	defer func() {
		// the run context is likely done by now
		if err := w.Client.DecrementWorkerCount(context.Background()); err != nil {
			logger.Warn("failed to decrement worker count", "error", err)
		}
	}()

	ttl := 3 * w.HeartbeatInterval
	if err := w.Client.Heartbeat(ctx, w.ID, ttl); err != nil {
		return err
	}
	lastBeat := time.Now()
	w.Health.SetServing(true)
	defer w.Health.SetServing(false)
	logger.Info("import worker started")

	for {
		if err := ctx.Err(); err != nil {
			logger.Info("import worker stopped")
			return err
		}
		if time.Since(lastBeat) >= w.HeartbeatInterval {
			if err := w.Client.Heartbeat(ctx, w.ID, ttl); err != nil {
				logger.Warn("heartbeat failed", "error", err)
			}
			lastBeat = time.Now()
		}

		job, err := w.Client.Pop(ctx, w.Queue, w.PopTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			logger.Error("pop failed", "error", err)
			select {
			case <-time.After(w.PopTimeout):
			case <-ctx.Done():
			}
			continue
		}
		if job == nil {
			continue
		}

		// a popped job is finished and reported even when ctx ends meanwhile
		jobCtx := context.WithoutCancel(ctx)
		result := w.Process(jobCtx, *job)
		if err := w.Client.Publish(jobCtx, ResultChannel(job.JobID), result); err != nil {
			logger.Error("publish failed", "job_id", job.JobID, "index", job.Index, "error", err)
		}
	}
}

// Process imports one job and builds its result. It does not publish.
func (w *Worker) Process(ctx context.Context, job ImportJob) JobResult {
	w.defaults()
	result := JobResult{
		JobID:     job.JobID,
		Index:     job.Index,
		Path:      job.Path,
		WorkerID:  w.ID,
		StartedAt: time.Now().UnixMilli(),
	}

	if err := job.IsValid(); err != nil {
		result.Error = fmt.Sprintf("invalid job: %v", err)
		result.CompletedAt = time.Now().UnixMilli()
		return result
	}

	res, err := w.Importer.ImportFile(ctx, job.Path)
	result.CompletedAt = time.Now().UnixMilli()
	if err != nil {
		result.Error = err.Error()
		w.Logger.Warn("job failed", "job_id", job.JobID, "path", job.Path, "error", err)
		return result
	}

	result.Success = res.Success
	result.Statistics = res.Statistics
	result.TotalNodes = res.TotalNodes
	result.SkippedCalls = res.SkippedCalls
	result.Errors = res.TopErrors(ingest.DefaultTopErrors)
	result.ErrorCount = res.ErrorCount()
	w.Logger.Debug("job done", "job_id", job.JobID, "index", job.Index, "path", job.Path,
		"success", res.Success, "total_nodes", res.TotalNodes)
	return result
}

func (w *Worker) defaults() {
	if w.Queue == "" {
		w.Queue = DefaultQueue
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.PopTimeout <= 0 {
		w.PopTimeout = DefaultPopTimeout
	}
	if w.HeartbeatInterval <= 0 {
		w.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if w.Logger == nil {
		w.Logger = slog.Default()
	}
}
