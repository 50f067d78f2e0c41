package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storyreel/api/internal/client"
	"github.com/storyreel/api/internal/config"
	"github.com/storyreel/api/internal/model"
	"github.com/storyreel/api/internal/poller"
	"github.com/storyreel/api/internal/store"
)

// Render pipeline stages surfaced through job records and progress events.
const (
	StageSubmitting = "submitting"
	StagePolling    = "rendering"
	StageFinalizing = "finalizing"
)

// RenderService orchestrates full-video render jobs: gate check,
// submission, progress polling and download URL resolution.
type RenderService struct {
	api     client.PipelineAPI
	store   *store.StoryStore
	jobs    *JobTracker
	storage client.StorageClient
	hub     ProgressSink
	queue   TaskEnqueuer
	poll    config.PollConfig
	clock   poller.Clock
	log     *zap.SugaredLogger
}

// NewRenderService wires the orchestrator. storage may be nil.
func NewRenderService(
	api client.PipelineAPI,
	st *store.StoryStore,
	jobs *JobTracker,
	storage client.StorageClient,
	hub ProgressSink,
	queue TaskEnqueuer,
	poll config.PollConfig,
	log *zap.SugaredLogger,
) *RenderService {
	return &RenderService{
		api:     api,
		store:   st,
		jobs:    jobs,
		storage: storage,
		hub:     hub,
		queue:   queue,
		poll:    poll,
		clock:   poller.RealClock{},
		log:     log,
	}
}

// SetClock swaps the wall clock out for tests.
func (s *RenderService) SetClock(c poller.Clock) { s.clock = c }

// Start validates completeness of the active story and queues a render
// job. An incomplete story is refused with a GateError carrying the
// full per-scene report; nothing is submitted upstream in that case.
func (s *RenderService) Start(ctx context.Context) (*model.RenderStartResponse, error) {
	story, ok := s.store.Active(ctx)
	if !ok {
		return nil, ErrNoStory
	}

	report := CheckStory(&story)
	if !report.Ready {
		return nil, &GateError{Report: report}
	}

	jobID := uuid.New().String()
	job := &model.Job{
		ID:        jobID,
		Type:      model.JobTypeRender,
		Status:    model.JobStatusQueued,
		CreatedAt: time.Now(),
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job record: %w", err)
	}

	task, err := NewRenderTask(jobID, model.RenderPayload{StoryID: story.ID})
	if err != nil {
		return nil, err
	}
	if _, err := s.queue.Enqueue(task); err != nil {
		return nil, fmt.Errorf("enqueue render task: %w", err)
	}

	s.log.Infow("render job queued", "jobId", jobID, "storyId", story.ID)

	return &model.RenderStartResponse{
		JobID:     jobID,
		Status:    model.JobStatusQueued,
		CreatedAt: job.CreatedAt,
	}, nil
}

// Process is the worker entry point for one queued render job. Failures
// are terminal; there is no automatic resubmission.
func (s *RenderService) Process(ctx context.Context, jobID string, p model.RenderPayload) error {
	story, ok := s.store.Active(ctx)
	if !ok || story.ID != p.StoryID {
		return s.failRender(ctx, jobID, ErrNoStory)
	}

	// The gate is re-checked here: scenes may have been cleared between
	// enqueue and pickup.
	report := CheckStory(&story)
	if !report.Ready {
		return s.failRender(ctx, jobID, &GateError{Report: report})
	}

	if err := s.jobs.UpdateProgress(ctx, jobID, 0, StageSubmitting); err != nil {
		return err
	}
	s.hub.BroadcastProgress(jobID, 0, model.JobStatusRunning, "", StageSubmitting)

	resp, err := s.api.SubmitRender(ctx, buildRenderRequest(&story))
	if err != nil {
		return s.failRender(ctx, jobID, fmt.Errorf("submit render: %w", err))
	}
	if !resp.Success || resp.Data == nil || resp.Data.JobID == "" {
		return s.failRender(ctx, jobID, fmt.Errorf("submit render: backend refused: %s", resp.Message))
	}
	upstreamID := resp.Data.JobID

	if _, err := s.store.SetVideoRecord(ctx, model.VideoRecord{
		JobID:       upstreamID,
		DownloadURL: resp.Data.DownloadURL,
	}); err != nil {
		return s.failRender(ctx, jobID, fmt.Errorf("persist video record: %w", err))
	}

	// One status call right after submission confirms the backend sees
	// the job. Its failure is not fatal; progress polling decides.
	if status, err := s.api.GetRenderStatus(ctx, upstreamID); err != nil {
		s.log.Warnw("render status confirmation failed", "jobId", jobID, "error", err)
	} else {
		s.log.Infow("render accepted", "jobId", jobID, "upstreamJobId", upstreamID, "status", status.Status)
	}

	if err := s.pollRender(ctx, jobID, upstreamID); err != nil {
		return err
	}

	// The backend keeps finalizing briefly after reporting 100, so the
	// download is not touched until the settle delay elapses.
	if err := s.jobs.UpdateProgress(ctx, jobID, 100, StageFinalizing); err != nil {
		return err
	}
	settle := time.Duration(s.poll.SettleDelaySeconds) * time.Second
	if err := poller.Sleep(ctx, s.clock, settle); err != nil {
		return s.failRender(ctx, jobID, err)
	}

	downloadURL, err := s.resolveDownloadURL(ctx, upstreamID, resp.Data.DownloadURL)
	if err != nil {
		return s.failRender(ctx, jobID, err)
	}

	if _, err := s.store.SetVideoRecord(ctx, model.VideoRecord{
		JobID:       upstreamID,
		DownloadURL: downloadURL,
	}); err != nil {
		return s.failRender(ctx, jobID, fmt.Errorf("persist video record: %w", err))
	}

	finalURL := s.mirrorVideo(ctx, p.StoryID, downloadURL)

	if err := s.jobs.Complete(ctx, jobID, finalURL); err != nil {
		return err
	}
	s.hub.BroadcastComplete(jobID, &model.VideoRecord{JobID: upstreamID, DownloadURL: finalURL})
	s.log.Infow("render job completed", "jobId", jobID, "storyId", p.StoryID)
	return nil
}

// pollRender drives the upstream render job to completion. The numeric
// progress value is the authoritative terminal signal; status strings
// only decide failure.
func (s *RenderService) pollRender(ctx context.Context, jobID, upstreamID string) error {
	interval := time.Duration(s.poll.RenderIntervalSeconds) * time.Second
	pl, err := poller.New(poller.Config[*model.RenderProgress]{
		Fetch: func(ctx context.Context) (*model.RenderProgress, error) {
			resp, err := s.api.GetRenderProgress(ctx, upstreamID)
			if err != nil {
				return nil, err
			}
			if resp.Data == nil {
				return nil, fmt.Errorf("render progress: empty payload: %s", resp.Message)
			}
			return resp.Data, nil
		},
		IsSuccess: func(p *model.RenderProgress) bool {
			return clampProgress(p.Progress) >= 100
		},
		IsFailure: func(p *model.RenderProgress) bool {
			return model.IsUpstreamFailure(p.Status)
		},
		Interval:             interval,
		Timeout:              time.Duration(s.poll.TimeoutMinutes) * time.Minute,
		MaxConsecutiveErrors: s.poll.MaxConsecutiveFailures,
		OnUpdate: func(snap *model.RenderProgress) {
			pct := clampProgress(snap.Progress)
			stage := snap.CurrentStage
			if stage == "" {
				stage = StagePolling
			}
			if err := s.jobs.UpdateProgress(ctx, jobID, pct, stage); err != nil {
				s.log.Warnw("update render progress", "jobId", jobID, "error", err)
			}
			s.hub.BroadcastProgress(jobID, pct, model.JobStatusRunning, snap.Status, stage)
		},
		OnError: func(err error) {
			s.log.Warnw("render progress fetch failed", "jobId", jobID, "error", err)
		},
		Clock: s.clock,
	})
	if err != nil {
		return s.failRender(ctx, jobID, err)
	}

	snap, err := pl.Run(ctx)
	if err != nil {
		if errors.Is(err, poller.ErrJobFailed) {
			msg := "video rendering failed"
			if snap != nil && snap.Status != "" {
				msg = fmt.Sprintf("video rendering failed: %s", snap.Status)
			}
			return s.failRender(ctx, jobID, errors.New(msg))
		}
		return s.failRender(ctx, jobID, err)
	}
	return nil
}

// resolveDownloadURL prefers the status endpoint's URL after completion
// and falls back to whatever submission already recorded.
func (s *RenderService) resolveDownloadURL(ctx context.Context, upstreamID, submittedURL string) (string, error) {
	if status, err := s.api.GetRenderStatus(ctx, upstreamID); err == nil && status.DownloadURL != "" {
		return status.DownloadURL, nil
	} else if err != nil {
		s.log.Warnw("resolve download url", "upstreamJobId", upstreamID, "error", err)
	}
	if submittedURL != "" {
		return submittedURL, nil
	}
	return "", errors.New("render finished but no download url is available")
}

// mirrorExpiry bounds the presigned link handed out for a mirrored
// render. The object itself stays until the story is cleared.
const mirrorExpiry = 24 * time.Hour

// renderMirrorKey is the object key a story's mirrored render lives under.
func renderMirrorKey(storyID string) string {
	return fmt.Sprintf("renders/%s.mp4", storyID)
}

// mirrorVideo copies the finished render into object storage when a
// mirror is configured, returning the URL clients should use. Mirrored
// copies are handed out as presigned links; when signing fails the
// public URL from the upload is used instead.
func (s *RenderService) mirrorVideo(ctx context.Context, storyID, downloadURL string) string {
	if s.storage == nil {
		return downloadURL
	}
	data, err := s.api.DownloadAsset(ctx, downloadURL)
	if err != nil {
		s.log.Warnw("download render for mirror", "storyId", storyID, "error", err)
		return downloadURL
	}
	key := renderMirrorKey(storyID)
	url, err := s.storage.Upload(ctx, key, bytes.NewReader(data), "video/mp4")
	if err != nil {
		s.log.Warnw("mirror render to storage", "key", key, "error", err)
		return downloadURL
	}
	signed, err := s.storage.GetSignedURL(ctx, key, mirrorExpiry)
	if err != nil {
		s.log.Warnw("sign mirrored render url", "key", key, "error", err)
		return url
	}
	return signed
}

// buildRenderRequest assembles the aggregate submission from a complete
// story: ordered scenes with the fixed animation, caption styling and
// dimensions derived from the story orientation.
func buildRenderRequest(story *model.Story) *model.RenderSubmitRequest {
	scenes := make([]model.RenderScene, 0, len(story.Scenes))
	for _, sc := range story.Scenes {
		scenes = append(scenes, model.RenderScene{
			SceneNumber:   sc.SceneNumber,
			ImagePrompt:   sc.ImagePrompt,
			ImageURL:      sc.ImageURL,
			AudioURL:      sc.AudioURL,
			TextToDisplay: sc.AudioPrompt,
			Animation:     model.DefaultAnimation(),
		})
	}
	width, height := model.SizeForOrientation(story.Settings.Orientation)
	return &model.RenderSubmitRequest{
		Title:           story.Settings.Title,
		Scenes:          scenes,
		Width:           width,
		Height:          height,
		CaptionSettings: model.DefaultCaptionSettings(),
		Language:        story.Settings.Language,
	}
}

// clampProgress bounds a reported progress value into [0, 100].
func clampProgress(v float64) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(v)
}

func (s *RenderService) failRender(ctx context.Context, jobID string, cause error) error {
	if err := s.jobs.Fail(ctx, jobID, cause.Error()); err != nil {
		s.log.Errorw("mark render job failed", "jobId", jobID, "error", err)
	}
	s.hub.BroadcastError(jobID, "RENDER_FAILED", cause.Error())
	s.log.Errorw("render job failed", "jobId", jobID, "error", cause)
	return cause
}
