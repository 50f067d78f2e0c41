package model

// Wire types for the upstream pipeline API. Field names follow the
// backend's snake_case contract.

// StoryGenerateRequest asks the backend for a titled, ordered scene list.
type StoryGenerateRequest struct {
	Title       string   `json:"title"`
	Prompt      string   `json:"prompt"`
	Language    string   `json:"language"`
	SceneTiming int      `json:"scene_timing"`
	Characters  []string `json:"characters"`
}

// GeneratedScene is one scene as returned by story generation.
type GeneratedScene struct {
	SceneNumber int    `json:"scene_number"`
	ImagePrompt string `json:"image_prompt"`
	TextToAudio string `json:"text_to_audio"`
}

// StoryGenerateResponse is the story generation result.
type StoryGenerateResponse struct {
	Title  string           `json:"title"`
	Scenes []GeneratedScene `json:"scenes"`
}

// ImageSize is the requested output resolution.
type ImageSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ImageGenerateRequest submits a synchronous image generation call.
type ImageGenerateRequest struct {
	Prompt              string    `json:"prompt"`
	NegativePrompt      string    `json:"negative_prompt"`
	ImageSize           ImageSize `json:"image_size"`
	NumInferenceSteps   int       `json:"num_inference_steps"`
	GuidanceScale       float64   `json:"guidance_scale"`
	NumImages           int       `json:"num_images"`
	EnableSafetyChecker bool      `json:"enable_safety_checker"`
	OutputFormat        string    `json:"output_format"`
	StyleName           string    `json:"style_name"`
	Seed                int       `json:"seed"`
}

// ImageGenerateResponse carries the generated image URL directly; image
// generation is not job-polled.
type ImageGenerateResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    *struct {
		ImageURL string `json:"image_url"`
	} `json:"data"`
}

// AudioGenerateRequest submits a fire-and-forget audio synthesis job.
type AudioGenerateRequest struct {
	Prompt     string  `json:"prompt"`
	AudioVoice string  `json:"audio_voice"`
	LangCode   string  `json:"lang_code"`
	Speed      float64 `json:"speed"`
}

// AudioGenerateResponse acknowledges an audio job submission.
type AudioGenerateResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    *struct {
		JobID string `json:"job_id"`
	} `json:"data"`
}

// AudioProgress is one polled observation of an audio job.
type AudioProgress struct {
	JobID       string `json:"job_id"`
	ProgressPct int    `json:"progress_pct"`
	AudioURL    string `json:"audio_url"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
}

// AudioProgressResponse is the polling envelope for audio jobs.
type AudioProgressResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    *AudioProgress `json:"data"`
}

// SceneAnimation is the per-scene animation descriptor sent to the renderer.
type SceneAnimation struct {
	Type       string  `json:"type"`
	StartScale float64 `json:"start_scale"`
	EndScale   float64 `json:"end_scale"`
}

// RenderScene is one scene of a full render request.
type RenderScene struct {
	SceneNumber   int            `json:"scene_number"`
	ImagePrompt   string         `json:"image_prompt"`
	ImageURL      string         `json:"image_url"`
	AudioURL      string         `json:"audio_url"`
	TextToDisplay string         `json:"text_to_display"`
	Animation     SceneAnimation `json:"animation"`
}

// CaptionSettings configures burned-in captions for the rendered video.
type CaptionSettings struct {
	Enabled       bool    `json:"enabled"`
	Position      string  `json:"position"`
	FontName      string  `json:"font_name"`
	FontSizeRatio float64 `json:"font_size_ratio"`
	Color         string  `json:"color"`
	ShadowColor   string  `json:"shadow_color"`
}

// RenderSubmitRequest is the aggregate full-process render submission.
type RenderSubmitRequest struct {
	Title           string          `json:"title"`
	Scenes          []RenderScene   `json:"scenes"`
	Width           int             `json:"width"`
	Height          int             `json:"height"`
	CaptionSettings CaptionSettings `json:"caption_settings"`
	Language        string          `json:"language"`
}

// RenderSubmitResponse acknowledges a render submission. DownloadURL may
// already be present for cached renders.
type RenderSubmitResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    *struct {
		JobID       string `json:"job_id"`
		DownloadURL string `json:"download_url,omitempty"`
	} `json:"data"`
}

// RenderStatus is the string-status view of a render job.
type RenderStatus struct {
	JobID       string  `json:"job_id"`
	Status      string  `json:"status"`
	Progress    float64 `json:"progress"`
	DownloadURL string  `json:"download_url,omitempty"`
	Error       string  `json:"error,omitempty"`
}

// RenderProgress is the numeric-progress view of a render job. Progress
// is the authoritative terminal signal.
type RenderProgress struct {
	Progress               float64 `json:"progress"`
	Status                 string  `json:"status"`
	CurrentStage           string  `json:"current_stage"`
	EstimatedTimeRemaining int     `json:"estimated_time_remaining"`
}

// RenderProgressResponse is the polling envelope for render progress.
type RenderProgressResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    *RenderProgress `json:"data"`
}

// VoiceCatalog lists available languages and speakers.
type VoiceCatalog struct {
	Languages []CatalogLanguage `json:"languages"`
}

// CatalogLanguage is one language with its speakers.
type CatalogLanguage struct {
	Code     string           `json:"code"`
	Name     string           `json:"name"`
	Speakers []CatalogSpeaker `json:"speakers"`
}

// CatalogSpeaker is one selectable voice.
type CatalogSpeaker struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Gender   string `json:"gender"`
	SoundURL string `json:"sound_url"`
}
