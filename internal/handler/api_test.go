package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"

	"github.com/storyreel/api/internal/cache"
	"github.com/storyreel/api/internal/client"
	"github.com/storyreel/api/internal/config"
	"github.com/storyreel/api/internal/kv"
	"github.com/storyreel/api/internal/middleware"
	"github.com/storyreel/api/internal/model"
	"github.com/storyreel/api/internal/service"
	"github.com/storyreel/api/internal/store"
	"github.com/storyreel/api/pkg/logger"
)

const testJWTSecret = "test-secret"

// stubPipeline panics on any upstream call; route tests below only
// exercise paths that never reach the backend.
type stubPipeline struct {
	client.PipelineAPI
}

// noopSink drops progress events.
type noopSink struct{}

func (noopSink) BroadcastProgress(string, int, model.JobStatus, string, string) {}
func (noopSink) BroadcastComplete(string, interface{})                          {}
func (noopSink) BroadcastError(string, string, string)                          {}

// dropQueue accepts tasks without a broker.
type dropQueue struct{}

func (dropQueue) Enqueue(*asynq.Task, ...asynq.Option) (*asynq.TaskInfo, error) {
	return &asynq.TaskInfo{}, nil
}

type testApp struct {
	app   *fiber.App
	store *store.StoryStore
	auth  *middleware.AuthMiddleware
}

func setupApp(t *testing.T) *testApp {
	t.Helper()

	slot := kv.NewMemoryKV()
	st := store.New(slot)
	jobs := service.NewJobTracker(slot)
	audioCache, err := cache.New(8, t.TempDir())
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}

	poll := config.PollConfig{
		AudioIntervalSeconds:   5,
		RenderIntervalSeconds:  3,
		SettleDelaySeconds:     3,
		MaxConsecutiveFailures: 3,
		TimeoutMinutes:         10,
	}

	pipeline := stubPipeline{}
	sceneService := service.NewSceneService(pipeline, st, jobs, audioCache, nil, noopSink{}, dropQueue{}, poll, logger.Nop())
	renderService := service.NewRenderService(pipeline, st, jobs, nil, noopSink{}, dropQueue{}, poll, logger.Nop())
	storyService := service.NewStoryService(pipeline, st, nil, logger.Nop())

	validate := validator.New()
	storyHandler := NewStoryHandler(storyService, validate)
	sceneHandler := NewSceneHandler(sceneService, validate)
	renderHandler := NewRenderHandler(renderService, jobs)

	auth := middleware.NewAuthMiddleware(testJWTSecret)

	app := fiber.New()
	api := app.Group("/api", auth.Authenticate())

	stories := api.Group("/stories")
	stories.Post("/", storyHandler.Create)
	stories.Get("/", storyHandler.List)
	stories.Get("/active", storyHandler.Active)
	stories.Delete("/", storyHandler.Clear)

	scenes := api.Group("/scenes")
	scenes.Post("/generate-image", sceneHandler.GenerateImage)
	scenes.Post("/generate-audio", sceneHandler.GenerateAudio)
	scenes.Get("/completeness", sceneHandler.CheckStory)
	scenes.Get("/:sceneNumber/completeness", sceneHandler.CheckScene)

	api.Post("/render", renderHandler.Start)
	api.Get("/jobs/:jobId", renderHandler.JobStatus)

	return &testApp{app: app, store: st, auth: auth}
}

func (ta *testApp) request(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	token, err := ta.auth.GenerateToken("user-1", "user@example.com")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := ta.app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	return resp
}

func decodeError(t *testing.T, resp *http.Response) (code, message string, details json.RawMessage) {
	t.Helper()
	var body struct {
		Error struct {
			Code    string          `json:"code"`
			Message string          `json:"message"`
			Details json.RawMessage `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error.Code, body.Error.Message, body.Error.Details
}

func seedStory(t *testing.T, st *store.StoryStore, complete bool) {
	t.Helper()
	story := model.Story{
		ID: "story-1",
		Settings: model.HomeSettings{
			Title: "The Lighthouse", Language: "en", Voice: "af_heart",
			Orientation: "9:16", SceneCount: 2,
		},
	}
	for i := 1; i <= 2; i++ {
		sc := model.Scene{SceneNumber: i, ImagePrompt: "p", AudioPrompt: "a", ImageURL: "https://cdn/i.jpg"}
		if complete || i == 1 {
			sc.AudioURL = "https://cdn/a.mp3"
		}
		story.Scenes = append(story.Scenes, sc)
	}
	if err := st.SaveStory(context.Background(), story); err != nil {
		t.Fatalf("SaveStory: %v", err)
	}
}

func TestRequestsWithoutTokenAreRejected(t *testing.T) {
	ta := setupApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/stories/", nil)
	resp, err := ta.app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	code, _, _ := decodeError(t, resp)
	if code != "UNAUTHORIZED" {
		t.Errorf("code = %q", code)
	}
}

func TestCompletenessWithoutStoryIsDataNotFound(t *testing.T) {
	ta := setupApp(t)

	resp := ta.request(t, http.MethodGet, "/api/scenes/completeness", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	code, _, _ := decodeError(t, resp)
	if code != "DATA_NOT_FOUND" {
		t.Errorf("code = %q", code)
	}
}

func TestCompletenessReportsMissingAssets(t *testing.T) {
	ta := setupApp(t)
	seedStory(t, ta.store, false)

	resp := ta.request(t, http.MethodGet, "/api/scenes/completeness", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var report service.CompletenessReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Ready {
		t.Error("story with missing audio must not be ready")
	}
	if len(report.MissingAudio) != 1 || report.MissingAudio[0] != 2 {
		t.Errorf("MissingAudio = %v, want [2]", report.MissingAudio)
	}
}

func TestRenderRefusalCarriesReport(t *testing.T) {
	ta := setupApp(t)
	seedStory(t, ta.store, false)

	resp := ta.request(t, http.MethodPost, "/api/render", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
	code, message, details := decodeError(t, resp)
	if code != "INCOMPLETE_STORY" {
		t.Errorf("code = %q", code)
	}
	if message == "" {
		t.Error("refusal must carry the gate message")
	}

	var report service.CompletenessReport
	if err := json.Unmarshal(details, &report); err != nil {
		t.Fatalf("decode details: %v", err)
	}
	if len(report.MissingAudio) != 1 || report.MissingAudio[0] != 2 {
		t.Errorf("details = %+v", report)
	}
}

func TestRenderAcceptedForCompleteStory(t *testing.T) {
	ta := setupApp(t)
	seedStory(t, ta.store, true)

	resp := ta.request(t, http.MethodPost, "/api/render", nil)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	var ack model.RenderStartResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if ack.JobID == "" || ack.Status != model.JobStatusQueued {
		t.Errorf("ack = %+v", ack)
	}

	// The queued job is immediately pollable.
	jobResp := ta.request(t, http.MethodGet, "/api/jobs/"+ack.JobID, nil)
	if jobResp.StatusCode != http.StatusOK {
		t.Fatalf("job status = %d, want 200", jobResp.StatusCode)
	}
	var job model.JobStatusResponse
	if err := json.NewDecoder(jobResp.Body).Decode(&job); err != nil {
		t.Fatalf("decode job: %v", err)
	}
	if job.Type != model.JobTypeRender || job.Status != model.JobStatusQueued {
		t.Errorf("job = %+v", job)
	}
}

func TestCreateStoryValidation(t *testing.T) {
	ta := setupApp(t)

	resp := ta.request(t, http.MethodPost, "/api/stories/", map[string]interface{}{
		"title": "missing everything else",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	code, _, _ := decodeError(t, resp)
	if code != "VALIDATION_ERROR" {
		t.Errorf("code = %q", code)
	}
}

func TestUnknownJobIs404(t *testing.T) {
	ta := setupApp(t)

	resp := ta.request(t, http.MethodGet, "/api/jobs/nope", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}
