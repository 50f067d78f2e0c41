package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storyreel/api/internal/client"
	"github.com/storyreel/api/internal/model"
	"github.com/storyreel/api/internal/store"
)

// Sentinel errors shared by the orchestration services. Handlers map
// these to "data not found" responses rather than server errors.
var (
	ErrNoStory       = errors.New("local story data not found")
	ErrSceneNotFound = errors.New("scene data not found")
)

// GateError carries a completeness report out of a refused render
// submission. It is an expected gate outcome, not a server fault.
type GateError struct {
	Report CompletenessReport
}

func (e *GateError) Error() string { return e.Report.Message() }

// StoryService creates stories upstream and persists them locally.
type StoryService struct {
	api     client.PipelineAPI
	store   *store.StoryStore
	storage client.StorageClient
	log     *zap.SugaredLogger
}

// NewStoryService wires the service. storage may be nil when no asset
// mirror is configured.
func NewStoryService(api client.PipelineAPI, st *store.StoryStore, storage client.StorageClient, log *zap.SugaredLogger) *StoryService {
	return &StoryService{api: api, store: st, storage: storage, log: log}
}

// Create generates a story for the prompt and saves it as the active
// story with all scenes pending.
func (s *StoryService) Create(ctx context.Context, req *model.CreateStoryRequest) (*model.Story, error) {
	sceneTiming := req.SceneTiming
	if sceneTiming == 0 {
		sceneTiming = 15
	}

	resp, err := s.api.GenerateStory(ctx, &model.StoryGenerateRequest{
		Title:       req.Title,
		Prompt:      req.Prompt,
		Language:    req.Language,
		SceneTiming: sceneTiming,
		Characters:  []string{},
	})
	if err != nil {
		return nil, fmt.Errorf("generate story: %w", err)
	}

	story := model.Story{
		ID: uuid.New().String(),
		Settings: model.HomeSettings{
			Title:       req.Title,
			Language:    req.Language,
			Voice:       req.Voice,
			Orientation: req.Orientation,
			Style:       req.Style,
			SceneCount:  len(resp.Scenes),
		},
		Scenes:    make([]model.Scene, 0, len(resp.Scenes)),
		CreatedAt: time.Now(),
	}
	for _, sc := range resp.Scenes {
		story.Scenes = append(story.Scenes, model.Scene{
			SceneNumber: sc.SceneNumber,
			ImagePrompt: sc.ImagePrompt,
			AudioPrompt: sc.TextToAudio,
		})
	}

	if err := s.store.SaveStory(ctx, story); err != nil {
		return nil, fmt.Errorf("save story: %w", err)
	}
	return &story, nil
}

// Active returns the current working story.
func (s *StoryService) Active(ctx context.Context) (*model.Story, error) {
	story, ok := s.store.Active(ctx)
	if !ok {
		return nil, ErrNoStory
	}
	return &story, nil
}

// List returns every persisted story in insertion order.
func (s *StoryService) List(ctx context.Context) []model.Story {
	return s.store.LoadStories(ctx)
}

// Clear drops the persisted collection. Mirrored render objects of the
// dropped stories are removed too; that cleanup is best effort and
// never blocks the clear itself.
func (s *StoryService) Clear(ctx context.Context) error {
	if s.storage != nil {
		for _, story := range s.store.LoadStories(ctx) {
			if story.Video == nil {
				continue
			}
			key := renderMirrorKey(story.ID)
			if err := s.storage.Delete(ctx, key); err != nil {
				s.log.Warnw("delete mirrored render", "key", key, "error", err)
			}
		}
	}
	return s.store.ClearStories(ctx)
}

// VoiceCatalog proxies the upstream voice list.
func (s *StoryService) VoiceCatalog(ctx context.Context) (*model.VoiceCatalog, error) {
	return s.api.GetVoiceCatalog(ctx)
}
