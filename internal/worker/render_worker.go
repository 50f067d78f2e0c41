package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/storyreel/api/internal/model"
	"github.com/storyreel/api/internal/service"
)

// RenderWorker processes full render jobs.
type RenderWorker struct {
	renders *service.RenderService
	log     *zap.SugaredLogger
}

// NewRenderWorker creates a new render worker.
func NewRenderWorker(renders *service.RenderService, log *zap.SugaredLogger) *RenderWorker {
	return &RenderWorker{renders: renders, log: log}
}

// ProcessTask handles one queued render task.
func (w *RenderWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.RenderPayload
	jobID, err := service.DecodeTask(t.Payload(), &payload)
	if err != nil {
		return fmt.Errorf("decode render task: %w", err)
	}

	w.log.Infow("render job started", "jobId", jobID, "storyId", payload.StoryID)
	return w.renders.Process(ctx, jobID, payload)
}
