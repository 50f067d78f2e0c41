package model

import "time"

// Request/response bodies for this service's own HTTP API.

// CreateStoryRequest starts a new story from user input.
type CreateStoryRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Prompt      string `json:"prompt" validate:"required,max=2000"`
	Language    string `json:"language" validate:"required"`
	Voice       string `json:"voice" validate:"required"`
	Orientation string `json:"orientation" validate:"omitempty,oneof=16:9 9:16 1:1"`
	Style       string `json:"style"`
	SceneCount  int    `json:"sceneCount" validate:"required,min=1,max=20"`
	SceneTiming int    `json:"sceneTiming" validate:"omitempty,min=5,max=60"`
}

// GenerateImageRequest requests image generation for one scene of the
// active story. Prompt overrides the stored scene prompt when set.
type GenerateImageRequest struct {
	SceneNumber int    `json:"sceneNumber" validate:"required,min=1"`
	Prompt      string `json:"prompt"`
	StyleName   string `json:"styleName"`
	Seed        int    `json:"seed"`
}

// GenerateImageResponse reports the synchronously generated image.
type GenerateImageResponse struct {
	SceneNumber int    `json:"sceneNumber"`
	ImageURL    string `json:"imageUrl"`
}

// GenerateAudioRequest requests audio synthesis for one scene of the
// active story. Voice and language default to the story settings.
type GenerateAudioRequest struct {
	SceneNumber int    `json:"sceneNumber" validate:"required,min=1"`
	Prompt      string `json:"prompt"`
	Voice       string `json:"voice"`
	LangCode    string `json:"langCode"`
}

// GenerateAudioResponse acknowledges audio generation. For a cache hit
// LocalPath is set immediately and no job is queued.
type GenerateAudioResponse struct {
	SceneNumber int       `json:"sceneNumber"`
	JobID       string    `json:"jobId,omitempty"`
	Status      JobStatus `json:"status"`
	CacheHit    bool      `json:"cacheHit"`
	LocalPath   string    `json:"localPath,omitempty"`
	AudioURL    string    `json:"audioUrl,omitempty"`
}

// RenderStartResponse acknowledges a render submission.
type RenderStartResponse struct {
	JobID     string    `json:"jobId"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// JobStatusResponse is the polled view of a local job.
type JobStatusResponse struct {
	JobID       string     `json:"jobId"`
	Type        string     `json:"type"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"`
	CurrentStep string     `json:"currentStep,omitempty"`
	ResultURL   string     `json:"resultUrl,omitempty"`
	Error       *string    `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}
