package model

import "time"

// Job represents a background orchestration job tracked by this service.
type Job struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"` // "scene:audio" or "render"
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"`
	CurrentStep string     `json:"currentStep,omitempty"`
	Error       *string    `json:"error,omitempty"`
	ResultURL   string     `json:"resultUrl,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Job types
const (
	JobTypeSceneAudio = "scene:audio"
	JobTypeRender     = "render"
)

// JobStatus is the local job lifecycle vocabulary.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCanceled  JobStatus = "canceled"
)

// Upstream status vocabulary. The pipeline backend reports an open string
// set; these are the values with terminal meaning.
const (
	UpstreamStatusPending    = "pending"
	UpstreamStatusProcessing = "processing"
	UpstreamStatusQueued     = "queued"
	UpstreamStatusSuccess    = "success"
	UpstreamStatusCompleted  = "completed"
	UpstreamStatusFailed     = "failed"
)

// IsUpstreamSuccess reports whether an upstream status string is a terminal success.
func IsUpstreamSuccess(status string) bool {
	return status == UpstreamStatusSuccess || status == UpstreamStatusCompleted
}

// IsUpstreamFailure reports whether an upstream status string is a terminal failure.
func IsUpstreamFailure(status string) bool {
	return status == UpstreamStatusFailed || status == "error"
}

// SceneAudioPayload is the task payload for a per-scene audio job.
type SceneAudioPayload struct {
	StoryID     string `json:"storyId"`
	SceneNumber int    `json:"sceneNumber"`
	Prompt      string `json:"prompt"`
	Voice       string `json:"voice"`
	LangCode    string `json:"langCode"`
}

// RenderPayload is the task payload for a full render job.
type RenderPayload struct {
	StoryID string `json:"storyId"`
}
