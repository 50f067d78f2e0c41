package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/storyreel/api/internal/config"
	"github.com/storyreel/api/internal/model"
)

// TokenProvider supplies the bearer token sent to the pipeline backend.
// Authentication itself is someone else's problem; the client only needs
// a token string per request.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenProvider returning a fixed API key.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// PipelineAPI defines the upstream operations the orchestration core consumes.
type PipelineAPI interface {
	GenerateStory(ctx context.Context, req *model.StoryGenerateRequest) (*model.StoryGenerateResponse, error)
	GenerateImage(ctx context.Context, req *model.ImageGenerateRequest) (*model.ImageGenerateResponse, error)
	GenerateAudio(ctx context.Context, req *model.AudioGenerateRequest) (*model.AudioGenerateResponse, error)
	GetAudioProgress(ctx context.Context, jobID string) (*model.AudioProgressResponse, error)
	SubmitRender(ctx context.Context, req *model.RenderSubmitRequest) (*model.RenderSubmitResponse, error)
	GetRenderStatus(ctx context.Context, jobID string) (*model.RenderStatus, error)
	GetRenderProgress(ctx context.Context, jobID string) (*model.RenderProgressResponse, error)
	GetVoiceCatalog(ctx context.Context) (*model.VoiceCatalog, error)
	DownloadAsset(ctx context.Context, url string) ([]byte, error)
}

// PipelineClient implements PipelineAPI over HTTP.
type PipelineClient struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenProvider
	log        *zap.SugaredLogger
}

// NewPipelineClient creates a client for the generation backend.
func NewPipelineClient(cfg *config.PipelineConfig, tokens TokenProvider, log *zap.SugaredLogger) *PipelineClient {
	return &PipelineClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		baseURL: cfg.BaseURL,
		tokens:  tokens,
		log:     log,
	}
}

// IsConfigured returns true if the client has a base URL to talk to.
func (c *PipelineClient) IsConfigured() bool {
	return c.baseURL != ""
}

// GenerateStory requests a titled, ordered scene list for a prompt.
func (c *PipelineClient) GenerateStory(ctx context.Context, req *model.StoryGenerateRequest) (*model.StoryGenerateResponse, error) {
	var result model.StoryGenerateResponse
	if err := c.post(ctx, "/story/generate-story", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GenerateImage submits a synchronous image generation call. The image
// URL comes back directly; there is no job to poll.
func (c *PipelineClient) GenerateImage(ctx context.Context, req *model.ImageGenerateRequest) (*model.ImageGenerateResponse, error) {
	var result model.ImageGenerateResponse
	if err := c.post(ctx, "/image/generate-image", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GenerateAudio submits a fire-and-forget audio synthesis job.
func (c *PipelineClient) GenerateAudio(ctx context.Context, req *model.AudioGenerateRequest) (*model.AudioGenerateResponse, error) {
	var result model.AudioGenerateResponse
	if err := c.post(ctx, "/audio-gen/generate-audio", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetAudioProgress retrieves one observation of an audio job.
func (c *PipelineClient) GetAudioProgress(ctx context.Context, jobID string) (*model.AudioProgressResponse, error) {
	var result model.AudioProgressResponse
	if err := c.get(ctx, fmt.Sprintf("/audio-gen/audio-progress/%s", jobID), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SubmitRender submits the aggregate full-process render job.
func (c *PipelineClient) SubmitRender(ctx context.Context, req *model.RenderSubmitRequest) (*model.RenderSubmitResponse, error) {
	var result model.RenderSubmitResponse
	if err := c.post(ctx, "/video-job/full-process", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetRenderStatus retrieves the string-status view of a render job.
func (c *PipelineClient) GetRenderStatus(ctx context.Context, jobID string) (*model.RenderStatus, error) {
	var result model.RenderStatus
	if err := c.get(ctx, fmt.Sprintf("/video-job/status/%s", jobID), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetRenderProgress retrieves the numeric-progress view of a render job.
func (c *PipelineClient) GetRenderProgress(ctx context.Context, jobID string) (*model.RenderProgressResponse, error) {
	var result model.RenderProgressResponse
	if err := c.get(ctx, fmt.Sprintf("/video-job/progress/%s", jobID), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetVoiceCatalog lists available synthesis voices grouped by language.
func (c *PipelineClient) GetVoiceCatalog(ctx context.Context) (*model.VoiceCatalog, error) {
	var result model.VoiceCatalog
	if err := c.get(ctx, "/audio-gen/voice-catalog", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DownloadAsset fetches raw asset bytes from an absolute URL.
func (c *PipelineClient) DownloadAsset(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &APIError{Kind: ErrKindEncoding, Message: err.Error(), Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Kind: ErrKindNetwork, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp.StatusCode, "asset download failed")
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Kind: ErrKindNetwork, Message: err.Error(), Err: err}
	}
	return data, nil
}

// post sends a POST request with JSON body
func (c *PipelineClient) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return &APIError{Kind: ErrKindEncoding, Message: err.Error(), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return &APIError{Kind: ErrKindEncoding, Message: err.Error(), Err: err}
	}

	return c.doRequest(ctx, req, result)
}

// get sends a GET request and parses JSON response
func (c *PipelineClient) get(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return &APIError{Kind: ErrKindEncoding, Message: err.Error(), Err: err}
	}

	return c.doRequest(ctx, req, result)
}

// doRequest executes an HTTP request and parses the response
func (c *PipelineClient) doRequest(ctx context.Context, req *http.Request, result interface{}) error {
	req.Header.Set("Content-Type", "application/json")
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return &APIError{Kind: ErrKindUnauthorized, Message: "token provider: " + err.Error(), Err: err}
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	c.log.Debugf("pipeline → %s %s", req.Method, req.URL.Path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warnf("pipeline ✗ %s %s: %v", req.Method, req.URL.Path, err)
		return &APIError{Kind: ErrKindNetwork, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Kind: ErrKindNetwork, Message: "read response: " + err.Error(), Err: err}
	}

	c.log.Debugf("pipeline ← %d %s %s", resp.StatusCode, req.Method, req.URL.Path)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return &APIError{Kind: ErrKindDecoding, Message: err.Error(), Err: err}
	}

	return nil
}
