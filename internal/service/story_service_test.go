package service

import (
	"context"
	"errors"
	"testing"

	"github.com/storyreel/api/internal/kv"
	"github.com/storyreel/api/internal/model"
	"github.com/storyreel/api/internal/store"
	"github.com/storyreel/api/pkg/logger"
)

func TestCreateStoryPersistsPendingScenes(t *testing.T) {
	pipeline := &fakePipeline{
		storyResp: &model.StoryGenerateResponse{
			Title: "The Lighthouse",
			Scenes: []model.GeneratedScene{
				{SceneNumber: 1, ImagePrompt: "a lighthouse at dusk", TextToAudio: "The keeper climbed."},
				{SceneNumber: 2, ImagePrompt: "a storm rolling in", TextToAudio: "Waves crashed below."},
			},
		},
	}
	st := store.New(kv.NewMemoryKV())
	svc := NewStoryService(pipeline, st, nil, logger.Nop())
	ctx := context.Background()

	story, err := svc.Create(ctx, &model.CreateStoryRequest{
		Title:       "The Lighthouse",
		Prompt:      "a story about a lighthouse keeper",
		Language:    "en",
		Voice:       "af_heart",
		Orientation: "9:16",
		SceneCount:  2,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if story.ID == "" {
		t.Error("story must get an id")
	}
	if len(story.Scenes) != 2 {
		t.Fatalf("scenes = %d, want 2", len(story.Scenes))
	}
	for i, sc := range story.Scenes {
		if sc.SceneNumber != i+1 {
			t.Errorf("scene %d number = %d", i, sc.SceneNumber)
		}
		if sc.ImageURL != "" || sc.AudioURL != "" {
			t.Errorf("scene %d must start without assets: %+v", i, sc)
		}
	}
	if story.Scenes[1].AudioPrompt != "Waves crashed below." {
		t.Errorf("audio prompt = %q", story.Scenes[1].AudioPrompt)
	}

	// The new story is active.
	active, err := svc.Active(ctx)
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if active.ID != story.ID {
		t.Errorf("active = %s, want %s", active.ID, story.ID)
	}
}

func TestActiveWithoutStories(t *testing.T) {
	svc := NewStoryService(&fakePipeline{}, store.New(kv.NewMemoryKV()), nil, logger.Nop())

	_, err := svc.Active(context.Background())
	if !errors.Is(err, ErrNoStory) {
		t.Fatalf("err = %v, want ErrNoStory", err)
	}
}

func TestCreateStoryUpstreamFailureDoesNotPersist(t *testing.T) {
	st := store.New(kv.NewMemoryKV())
	svc := NewStoryService(&fakePipeline{}, st, nil, logger.Nop())
	ctx := context.Background()

	_, err := svc.Create(ctx, &model.CreateStoryRequest{
		Title:      "x",
		Prompt:     "y",
		Language:   "en",
		Voice:      "af_heart",
		SceneCount: 1,
	})
	if err == nil {
		t.Fatal("unscripted upstream must fail")
	}
	if got := svc.List(ctx); len(got) != 0 {
		t.Errorf("failed creation must not persist, got %d stories", len(got))
	}
}

func TestClearRemovesMirroredRenders(t *testing.T) {
	st := store.New(kv.NewMemoryKV())
	storage := newFakeStorage()
	svc := NewStoryService(&fakePipeline{}, st, storage, logger.Nop())
	ctx := context.Background()

	if err := st.SaveStory(ctx, model.Story{ID: "s1"}); err != nil {
		t.Fatalf("SaveStory: %v", err)
	}
	rendered := model.Story{
		ID:    "s2",
		Video: &model.VideoRecord{JobID: "up-1", DownloadURL: "https://mirror/renders/s2.mp4"},
	}
	if err := st.SaveStory(ctx, rendered); err != nil {
		t.Fatalf("SaveStory: %v", err)
	}

	if err := svc.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	// Only the story with a finished render has a mirror object.
	if len(storage.deletes) != 1 || storage.deletes[0] != "renders/s2.mp4" {
		t.Errorf("deleted keys = %v, want [renders/s2.mp4]", storage.deletes)
	}
	if got := svc.List(ctx); len(got) != 0 {
		t.Errorf("collection should be empty after clear, got %d", len(got))
	}
}
