// Package store persists the in-progress story collection into a single
// durable key-value slot and serializes every mutation through one
// writer lock, so concurrent scene write-backs cannot lose updates.
package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/storyreel/api/internal/kv"
	"github.com/storyreel/api/internal/model"
)

const (
	storiesKey = "stories"
	activeKey  = "stories:active"
)

// StoryStore owns the persisted story collection. All reads and writes
// go through the same mutex; UpdateActive is atomic from the caller's
// point of view.
type StoryStore struct {
	mu sync.Mutex
	kv kv.KV
}

// New creates a store over the given slot.
func New(slot kv.KV) *StoryStore {
	return &StoryStore{kv: slot}
}

// SaveStory appends a story to the collection and marks it active.
func (s *StoryStore) SaveStory(ctx context.Context, story model.Story) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stories := s.load(ctx)
	stories = append(stories, story)
	if err := s.save(ctx, stories); err != nil {
		return err
	}
	return s.kv.Set(ctx, activeKey, []byte(story.ID))
}

// LoadStories returns the persisted collection in insertion order.
// Missing or unparseable data loads as an empty collection.
func (s *StoryStore) LoadStories(ctx context.Context) []model.Story {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// ClearStories deletes the persisted collection and the active marker.
func (s *StoryStore) ClearStories(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Delete(ctx, storiesKey); err != nil {
		return err
	}
	return s.kv.Delete(ctx, activeKey)
}

// Active returns a copy of the active story. The second return is false
// when no story is persisted.
func (s *StoryStore) Active(ctx context.Context) (model.Story, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stories := s.load(ctx)
	idx := s.activeIndex(ctx, stories)
	if idx < 0 {
		return model.Story{}, false
	}
	return stories[idx], true
}

// UpdateActive applies mutate to the active story and persists the full
// collection back. Returns false when there is nothing to update; the
// caller treats that as a recoverable "data not found" condition.
func (s *StoryStore) UpdateActive(ctx context.Context, mutate func(*model.Story)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stories := s.load(ctx)
	idx := s.activeIndex(ctx, stories)
	if idx < 0 {
		return false, nil
	}
	mutate(&stories[idx])
	if err := s.save(ctx, stories); err != nil {
		return false, err
	}
	return true, nil
}

// SetSceneImage writes an image URL into the scene with the given
// number. Lookup is by scene number, never by position.
func (s *StoryStore) SetSceneImage(ctx context.Context, sceneNumber int, imageURL string) (bool, error) {
	return s.updateScene(ctx, sceneNumber, func(sc *model.Scene) {
		sc.ImageURL = imageURL
	})
}

// SetSceneAudioJob records the submitted audio job on a scene.
func (s *StoryStore) SetSceneAudioJob(ctx context.Context, sceneNumber int, jobID string) (bool, error) {
	return s.updateScene(ctx, sceneNumber, func(sc *model.Scene) {
		sc.AudioJobID = jobID
	})
}

// SetSceneAudioURL writes the resolved audio URL into a scene.
func (s *StoryStore) SetSceneAudioURL(ctx context.Context, sceneNumber int, audioURL string) (bool, error) {
	return s.updateScene(ctx, sceneNumber, func(sc *model.Scene) {
		sc.AudioURL = audioURL
	})
}

// SetVideoRecord attaches or updates the render outcome on the active story.
func (s *StoryStore) SetVideoRecord(ctx context.Context, rec model.VideoRecord) (bool, error) {
	return s.UpdateActive(ctx, func(st *model.Story) {
		st.Video = &rec
	})
}

func (s *StoryStore) updateScene(ctx context.Context, sceneNumber int, mutate func(*model.Scene)) (bool, error) {
	found := false
	ok, err := s.UpdateActive(ctx, func(st *model.Story) {
		if sc := st.SceneByNumber(sceneNumber); sc != nil {
			mutate(sc)
			found = true
		}
	})
	if err != nil || !ok {
		return false, err
	}
	return found, nil
}

// load reads the collection under the held lock. A corrupt payload is
// treated as empty, not fatal.
func (s *StoryStore) load(ctx context.Context) []model.Story {
	// Missing data, backend trouble and corrupt payloads all read as
	// empty; the next write re-seeds the slot.
	data, err := s.kv.Get(ctx, storiesKey)
	if err != nil {
		return nil
	}
	var stories []model.Story
	if err := json.Unmarshal(data, &stories); err != nil {
		return nil
	}
	return stories
}

func (s *StoryStore) save(ctx context.Context, stories []model.Story) error {
	data, err := json.Marshal(stories)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, storiesKey, data)
}

// activeIndex resolves the active story by its persisted ID, falling
// back to the most recently appended story.
func (s *StoryStore) activeIndex(ctx context.Context, stories []model.Story) int {
	if len(stories) == 0 {
		return -1
	}
	if id, err := s.kv.Get(ctx, activeKey); err == nil {
		for i := range stories {
			if stories[i].ID == string(id) {
				return i
			}
		}
	}
	return len(stories) - 1
}
