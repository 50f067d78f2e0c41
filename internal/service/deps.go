package service

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/storyreel/api/internal/model"
)

// ProgressSink receives job lifecycle events for connected clients.
// The websocket hub implements it; tests use a recording fake.
type ProgressSink interface {
	BroadcastProgress(jobID string, progress int, status model.JobStatus, upstreamStatus, step string)
	BroadcastComplete(jobID string, result interface{})
	BroadcastError(jobID, code, message string)
}

// TaskEnqueuer is the slice of asynq.Client the services need.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type taskEnvelope struct {
	JobID   string          `json:"jobId"`
	Payload json.RawMessage `json:"payload"`
}

func newTask(taskType, jobID string, payload interface{}) (*asynq.Task, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	body, err := json.Marshal(taskEnvelope{JobID: jobID, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal task: %w", err)
	}
	return asynq.NewTask(taskType, body), nil
}

// NewSceneAudioTask builds the queue task for one scene's audio job.
func NewSceneAudioTask(jobID string, payload model.SceneAudioPayload) (*asynq.Task, error) {
	return newTask(model.JobTypeSceneAudio, jobID, payload)
}

// NewRenderTask builds the queue task for a render job.
func NewRenderTask(jobID string, payload model.RenderPayload) (*asynq.Task, error) {
	return newTask(model.JobTypeRender, jobID, payload)
}

// DecodeTask unpacks a task body written by newTask.
func DecodeTask(body []byte, payload interface{}) (jobID string, err error) {
	var env taskEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", fmt.Errorf("unmarshal task: %w", err)
	}
	if err := json.Unmarshal(env.Payload, payload); err != nil {
		return "", fmt.Errorf("unmarshal payload: %w", err)
	}
	return env.JobID, nil
}
