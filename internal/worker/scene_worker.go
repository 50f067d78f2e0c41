// Package worker holds the asynq task handlers. Each handler is a thin
// envelope decoder delegating to the blocking service method.
package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/storyreel/api/internal/model"
	"github.com/storyreel/api/internal/service"
)

// SceneWorker processes per-scene audio jobs.
type SceneWorker struct {
	scenes *service.SceneService
	log    *zap.SugaredLogger
}

// NewSceneWorker creates a new scene audio worker.
func NewSceneWorker(scenes *service.SceneService, log *zap.SugaredLogger) *SceneWorker {
	return &SceneWorker{scenes: scenes, log: log}
}

// ProcessTask handles one queued audio generation task.
func (w *SceneWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.SceneAudioPayload
	jobID, err := service.DecodeTask(t.Payload(), &payload)
	if err != nil {
		return fmt.Errorf("decode audio task: %w", err)
	}

	w.log.Infow("audio job started", "jobId", jobID, "storyId", payload.StoryID, "sceneNumber", payload.SceneNumber)
	return w.scenes.ProcessAudio(ctx, jobID, payload)
}
