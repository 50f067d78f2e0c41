package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/storyreel/api/internal/kv"
	"github.com/storyreel/api/internal/model"
)

// ErrJobNotFound is returned when no record exists for a job ID.
var ErrJobNotFound = errors.New("job not found")

// JobTracker persists local job records into the durable slot so status
// survives restarts and can be polled over the API.
type JobTracker struct {
	kv kv.KV
}

// NewJobTracker creates a tracker over the given slot.
func NewJobTracker(slot kv.KV) *JobTracker {
	return &JobTracker{kv: slot}
}

func jobKey(id string) string { return "job:" + id }

// Create persists a fresh job record.
func (t *JobTracker) Create(ctx context.Context, job *model.Job) error {
	return t.save(ctx, job)
}

// Get loads a job record.
func (t *JobTracker) Get(ctx context.Context, jobID string) (*model.Job, error) {
	data, err := t.kv.Get(ctx, jobKey(jobID))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decode job record: %w", err)
	}
	return &job, nil
}

// UpdateProgress moves a job to running and records progress.
func (t *JobTracker) UpdateProgress(ctx context.Context, jobID string, progress int, step string) error {
	job, err := t.Get(ctx, jobID)
	if err != nil {
		return err
	}

	job.Progress = progress
	job.CurrentStep = step

	if job.Status == model.JobStatusQueued {
		job.Status = model.JobStatusRunning
		now := time.Now()
		job.StartedAt = &now
	}

	return t.save(ctx, job)
}

// Complete marks a job succeeded with its result URL.
func (t *JobTracker) Complete(ctx context.Context, jobID, resultURL string) error {
	job, err := t.Get(ctx, jobID)
	if err != nil {
		return err
	}

	job.Status = model.JobStatusSucceeded
	job.Progress = 100
	job.ResultURL = resultURL
	now := time.Now()
	job.CompletedAt = &now

	return t.save(ctx, job)
}

// Fail marks a job failed with a user-facing message.
func (t *JobTracker) Fail(ctx context.Context, jobID, errMsg string) error {
	job, err := t.Get(ctx, jobID)
	if err != nil {
		return err
	}

	job.Status = model.JobStatusFailed
	job.Error = &errMsg
	now := time.Now()
	job.CompletedAt = &now

	return t.save(ctx, job)
}

func (t *JobTracker) save(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return t.kv.Set(ctx, jobKey(job.ID), data)
}
