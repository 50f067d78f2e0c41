package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storyreel/api/internal/cache"
	"github.com/storyreel/api/internal/client"
	"github.com/storyreel/api/internal/config"
	"github.com/storyreel/api/internal/model"
	"github.com/storyreel/api/internal/poller"
	"github.com/storyreel/api/internal/store"
)

// SceneService coordinates per-scene asset generation: synchronous image
// calls and queued, polled audio jobs with write-back into the story store.
type SceneService struct {
	api     client.PipelineAPI
	store   *store.StoryStore
	jobs    *JobTracker
	cache   *cache.AudioCache
	storage client.StorageClient
	hub     ProgressSink
	queue   TaskEnqueuer
	poll    config.PollConfig
	clock   poller.Clock
	log     *zap.SugaredLogger
}

// NewSceneService wires the coordinator. storage may be nil when no
// asset mirror is configured.
func NewSceneService(
	api client.PipelineAPI,
	st *store.StoryStore,
	jobs *JobTracker,
	audioCache *cache.AudioCache,
	storage client.StorageClient,
	hub ProgressSink,
	queue TaskEnqueuer,
	poll config.PollConfig,
	log *zap.SugaredLogger,
) *SceneService {
	return &SceneService{
		api:     api,
		store:   st,
		jobs:    jobs,
		cache:   audioCache,
		storage: storage,
		hub:     hub,
		queue:   queue,
		poll:    poll,
		clock:   poller.RealClock{},
		log:     log,
	}
}

// SetClock swaps the wall clock out for tests.
func (s *SceneService) SetClock(c poller.Clock) { s.clock = c }

// GenerateImage runs the synchronous image call for one scene of the
// active story and writes the resulting URL back by scene number.
func (s *SceneService) GenerateImage(ctx context.Context, req *model.GenerateImageRequest) (*model.GenerateImageResponse, error) {
	story, ok := s.store.Active(ctx)
	if !ok {
		return nil, ErrNoStory
	}
	scene := story.SceneByNumber(req.SceneNumber)
	if scene == nil {
		return nil, ErrSceneNotFound
	}

	prompt := req.Prompt
	if prompt == "" {
		prompt = scene.ImagePrompt
	}
	styleName := req.StyleName
	if styleName == "" {
		styleName = story.Settings.Style
	}
	if styleName == "" {
		styleName = model.DefaultStyleName
	}
	seed := req.Seed
	if seed == 0 {
		seed = model.DefaultSeed
	}
	width, height := model.SizeForOrientation(story.Settings.Orientation)

	resp, err := s.api.GenerateImage(ctx, &model.ImageGenerateRequest{
		Prompt:              prompt,
		NegativePrompt:      model.DefaultNegativePrompt,
		ImageSize:           model.ImageSize{Width: width, Height: height},
		NumInferenceSteps:   model.DefaultInferenceSteps,
		GuidanceScale:       model.DefaultGuidanceScale,
		NumImages:           model.DefaultNumImages,
		EnableSafetyChecker: model.DefaultSafetyCheckerOn,
		OutputFormat:        model.DefaultOutputFormat,
		StyleName:           styleName,
		Seed:                seed,
	})
	if err != nil {
		return nil, fmt.Errorf("generate image: %w", err)
	}
	if !resp.Success || resp.Data == nil || resp.Data.ImageURL == "" {
		return nil, fmt.Errorf("generate image: backend refused: %s", resp.Message)
	}

	found, err := s.store.SetSceneImage(ctx, req.SceneNumber, resp.Data.ImageURL)
	if err != nil {
		return nil, fmt.Errorf("persist image url: %w", err)
	}
	if !found {
		// Story changed underneath us between read and write-back.
		return nil, ErrSceneNotFound
	}

	return &model.GenerateImageResponse{
		SceneNumber: req.SceneNumber,
		ImageURL:    resp.Data.ImageURL,
	}, nil
}

// StartAudio begins audio synthesis for one scene. Identical content is
// served straight from the cache without touching the backend; otherwise
// a tracked job is queued and processed asynchronously.
func (s *SceneService) StartAudio(ctx context.Context, req *model.GenerateAudioRequest) (*model.GenerateAudioResponse, error) {
	story, ok := s.store.Active(ctx)
	if !ok {
		return nil, ErrNoStory
	}
	scene := story.SceneByNumber(req.SceneNumber)
	if scene == nil {
		return nil, ErrSceneNotFound
	}

	prompt := req.Prompt
	if prompt == "" {
		prompt = scene.AudioPrompt
	}
	voice := req.Voice
	if voice == "" {
		voice = story.Settings.Voice
	}
	langCode := req.LangCode
	if langCode == "" {
		langCode = story.Settings.Language
	}

	key := cache.Key(prompt, voice, langCode)
	if data, hit := s.cache.Get(key); hit {
		path, err := s.cache.Materialize(key, data)
		if err != nil {
			return nil, fmt.Errorf("materialize cached audio: %w", err)
		}
		resp := &model.GenerateAudioResponse{
			SceneNumber: req.SceneNumber,
			Status:      model.JobStatusSucceeded,
			CacheHit:    true,
			LocalPath:   path,
			AudioURL:    scene.AudioURL,
		}
		if scene.AudioURL == "" {
			// Cache survived a cleared story; reuse the clip but leave
			// the remote URL to a fresh generation if the render needs it.
			s.log.Debugw("audio cache hit without stored url", "sceneNumber", req.SceneNumber)
		}
		return resp, nil
	}

	jobID := uuid.New().String()
	job := &model.Job{
		ID:        jobID,
		Type:      model.JobTypeSceneAudio,
		Status:    model.JobStatusQueued,
		CreatedAt: time.Now(),
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job record: %w", err)
	}

	payload := model.SceneAudioPayload{
		StoryID:     story.ID,
		SceneNumber: req.SceneNumber,
		Prompt:      prompt,
		Voice:       voice,
		LangCode:    langCode,
	}
	task, err := NewSceneAudioTask(jobID, payload)
	if err != nil {
		return nil, err
	}
	if _, err := s.queue.Enqueue(task); err != nil {
		return nil, fmt.Errorf("enqueue audio task: %w", err)
	}

	s.log.Infow("audio job queued", "jobId", jobID, "storyId", story.ID, "sceneNumber", req.SceneNumber)

	return &model.GenerateAudioResponse{
		SceneNumber: req.SceneNumber,
		JobID:       jobID,
		Status:      model.JobStatusQueued,
		CacheHit:    false,
	}, nil
}

// ProcessAudio is the worker entry point for one queued audio job. It
// submits the upstream job, polls it to a terminal state, caches the
// clip and writes the URL back into the scene.
func (s *SceneService) ProcessAudio(ctx context.Context, jobID string, p model.SceneAudioPayload) error {
	submitResp, err := s.api.GenerateAudio(ctx, &model.AudioGenerateRequest{
		Prompt:     p.Prompt,
		AudioVoice: p.Voice,
		LangCode:   p.LangCode,
		Speed:      1.0,
	})
	if err != nil {
		return s.failAudio(ctx, jobID, fmt.Errorf("submit audio job: %w", err))
	}
	if !submitResp.Success || submitResp.Data == nil || submitResp.Data.JobID == "" {
		return s.failAudio(ctx, jobID, fmt.Errorf("submit audio job: backend refused: %s", submitResp.Message))
	}
	upstreamID := submitResp.Data.JobID

	if found, err := s.store.SetSceneAudioJob(ctx, p.SceneNumber, upstreamID); err != nil {
		s.log.Warnw("record audio job id", "jobId", jobID, "error", err)
	} else if !found {
		s.log.Warnw("audio job for missing scene", "jobId", jobID, "sceneNumber", p.SceneNumber)
	}

	if err := s.jobs.UpdateProgress(ctx, jobID, 0, "Waiting for audio synthesis"); err != nil {
		return err
	}

	interval := time.Duration(s.poll.AudioIntervalSeconds) * time.Second
	pl, err := poller.New(poller.Config[*model.AudioProgress]{
		Fetch: func(ctx context.Context) (*model.AudioProgress, error) {
			resp, err := s.api.GetAudioProgress(ctx, upstreamID)
			if err != nil {
				return nil, err
			}
			if resp.Data == nil {
				return nil, fmt.Errorf("audio progress: empty payload: %s", resp.Message)
			}
			return resp.Data, nil
		},
		IsSuccess: func(p *model.AudioProgress) bool {
			return model.IsUpstreamSuccess(p.Status) && p.AudioURL != ""
		},
		IsFailure: func(p *model.AudioProgress) bool {
			return model.IsUpstreamFailure(p.Status)
		},
		Interval:             interval,
		Timeout:              time.Duration(s.poll.TimeoutMinutes) * time.Minute,
		MaxConsecutiveErrors: s.poll.MaxConsecutiveFailures,
		OnUpdate: func(snap *model.AudioProgress) {
			if err := s.jobs.UpdateProgress(ctx, jobID, snap.ProgressPct, "Synthesizing audio"); err != nil {
				s.log.Warnw("update audio progress", "jobId", jobID, "error", err)
			}
			s.hub.BroadcastProgress(jobID, snap.ProgressPct, model.JobStatusRunning, snap.Status, "Synthesizing audio")
		},
		OnError: func(err error) {
			s.log.Warnw("audio progress fetch failed", "jobId", jobID, "error", err)
		},
		Clock: s.clock,
	})
	if err != nil {
		return s.failAudio(ctx, jobID, err)
	}

	snap, err := pl.Run(ctx)
	if err != nil {
		if errors.Is(err, poller.ErrJobFailed) {
			msg := snap.Error
			if msg == "" {
				msg = "audio synthesis failed"
			}
			return s.failAudio(ctx, jobID, errors.New(msg))
		}
		return s.failAudio(ctx, jobID, err)
	}

	if found, err := s.store.SetSceneAudioURL(ctx, p.SceneNumber, snap.AudioURL); err != nil {
		return s.failAudio(ctx, jobID, fmt.Errorf("persist audio url: %w", err))
	} else if !found {
		// The story went away while the job ran. The clip is still
		// usable, so finish the job and tell the client what happened.
		s.log.Warnw("audio write-back found no scene", "jobId", jobID, "sceneNumber", p.SceneNumber)
		s.hub.BroadcastError(jobID, "DATA_NOT_FOUND", ErrSceneNotFound.Error())
	}

	localPath, err := s.cacheClip(ctx, p, snap.AudioURL)
	if err != nil {
		// Caching is best effort; the remote URL already landed.
		s.log.Warnw("cache audio clip", "jobId", jobID, "error", err)
	}

	if err := s.jobs.Complete(ctx, jobID, snap.AudioURL); err != nil {
		return err
	}
	s.hub.BroadcastComplete(jobID, &model.GenerateAudioResponse{
		SceneNumber: p.SceneNumber,
		JobID:       jobID,
		Status:      model.JobStatusSucceeded,
		LocalPath:   localPath,
		AudioURL:    snap.AudioURL,
	})
	s.log.Infow("audio job completed", "jobId", jobID, "sceneNumber", p.SceneNumber)
	return nil
}

// cacheClip downloads the synthesized clip, stores it in the LRU, writes
// the per-key file and optionally mirrors it to object storage.
func (s *SceneService) cacheClip(ctx context.Context, p model.SceneAudioPayload, audioURL string) (string, error) {
	data, err := s.api.DownloadAsset(ctx, audioURL)
	if err != nil {
		return "", fmt.Errorf("download audio: %w", err)
	}
	key := cache.Key(p.Prompt, p.Voice, p.LangCode)
	s.cache.Put(key, data)
	path, err := s.cache.Materialize(key, data)
	if err != nil {
		return "", err
	}
	if s.storage != nil {
		mirrorKey := fmt.Sprintf("audio/%s/%s.mp3", p.StoryID, key)
		if _, err := s.storage.Upload(ctx, mirrorKey, bytes.NewReader(data), "audio/mpeg"); err != nil {
			s.log.Warnw("mirror audio to storage", "key", mirrorKey, "error", err)
		}
	}
	return path, nil
}

// CheckScene reports asset completeness for one scene of the active story.
func (s *SceneService) CheckScene(ctx context.Context, sceneNumber int) (*SceneReport, error) {
	story, ok := s.store.Active(ctx)
	if !ok {
		return nil, ErrNoStory
	}
	scene := story.SceneByNumber(sceneNumber)
	if scene == nil {
		return nil, ErrSceneNotFound
	}
	report := CheckScene(scene)
	return &report, nil
}

// CheckStory reports aggregate asset completeness for the active story.
func (s *SceneService) CheckStory(ctx context.Context) (*CompletenessReport, error) {
	story, ok := s.store.Active(ctx)
	if !ok {
		return nil, ErrNoStory
	}
	report := CheckStory(&story)
	return &report, nil
}

func (s *SceneService) failAudio(ctx context.Context, jobID string, cause error) error {
	if err := s.jobs.Fail(ctx, jobID, cause.Error()); err != nil {
		s.log.Errorw("mark audio job failed", "jobId", jobID, "error", err)
	}
	s.hub.BroadcastError(jobID, "AUDIO_FAILED", cause.Error())
	s.log.Errorw("audio job failed", "jobId", jobID, "error", cause)
	return cause
}
