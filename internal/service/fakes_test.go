package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/hibiken/asynq"

	"github.com/storyreel/api/internal/model"
)

// callTrace records cross-component events in order, so tests can
// assert how clock waits interleave with upstream calls.
type callTrace struct {
	mu     sync.Mutex
	events []string
}

func (t *callTrace) add(event string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event)
}

func (t *callTrace) snapshot() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.events...)
}

// fakePipeline is a scripted PipelineAPI that counts every call so
// tests can assert which upstream operations ran.
type fakePipeline struct {
	mu sync.Mutex

	storyResp    *model.StoryGenerateResponse
	imageResp    *model.ImageGenerateResponse
	audioResp    *model.AudioGenerateResponse
	audioScript  []*model.AudioProgress
	renderResp   *model.RenderSubmitResponse
	statusResp   *model.RenderStatus
	renderScript []*model.RenderProgress
	catalogResp  *model.VoiceCatalog
	assetData    []byte

	storyCalls    int
	imageCalls    int
	audioCalls    int
	audioPolls    int
	renderCalls   int
	statusCalls   int
	renderPolls   int
	downloadCalls int

	lastRenderReq *model.RenderSubmitRequest

	trace *callTrace
}

func (f *fakePipeline) GenerateStory(_ context.Context, _ *model.StoryGenerateRequest) (*model.StoryGenerateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.storyCalls++
	if f.storyResp == nil {
		return nil, errors.New("no story scripted")
	}
	return f.storyResp, nil
}

func (f *fakePipeline) GenerateImage(_ context.Context, _ *model.ImageGenerateRequest) (*model.ImageGenerateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imageCalls++
	if f.imageResp == nil {
		return nil, errors.New("no image scripted")
	}
	return f.imageResp, nil
}

func (f *fakePipeline) GenerateAudio(_ context.Context, _ *model.AudioGenerateRequest) (*model.AudioGenerateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audioCalls++
	if f.audioResp == nil {
		return nil, errors.New("no audio scripted")
	}
	return f.audioResp, nil
}

func (f *fakePipeline) GetAudioProgress(_ context.Context, _ string) (*model.AudioProgressResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.audioPolls
	f.audioPolls++
	if i >= len(f.audioScript) {
		i = len(f.audioScript) - 1
	}
	if i < 0 {
		return nil, errors.New("no audio progress scripted")
	}
	return &model.AudioProgressResponse{Success: true, Data: f.audioScript[i]}, nil
}

func (f *fakePipeline) SubmitRender(_ context.Context, req *model.RenderSubmitRequest) (*model.RenderSubmitResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renderCalls++
	f.lastRenderReq = req
	if f.renderResp == nil {
		return nil, errors.New("no render scripted")
	}
	return f.renderResp, nil
}

func (f *fakePipeline) GetRenderStatus(_ context.Context, _ string) (*model.RenderStatus, error) {
	f.trace.add("render-status")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if f.statusResp == nil {
		return nil, errors.New("no status scripted")
	}
	return f.statusResp, nil
}

func (f *fakePipeline) GetRenderProgress(_ context.Context, _ string) (*model.RenderProgressResponse, error) {
	f.trace.add("render-progress")
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.renderPolls
	f.renderPolls++
	if i >= len(f.renderScript) {
		i = len(f.renderScript) - 1
	}
	if i < 0 {
		return nil, errors.New("no render progress scripted")
	}
	return &model.RenderProgressResponse{Success: true, Data: f.renderScript[i]}, nil
}

func (f *fakePipeline) GetVoiceCatalog(_ context.Context) (*model.VoiceCatalog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.catalogResp == nil {
		return nil, errors.New("no catalog scripted")
	}
	return f.catalogResp, nil
}

func (f *fakePipeline) DownloadAsset(_ context.Context, _ string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloadCalls++
	if f.assetData == nil {
		return nil, errors.New("no asset scripted")
	}
	return f.assetData, nil
}

func (f *fakePipeline) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.storyCalls + f.imageCalls + f.audioCalls + f.audioPolls +
		f.renderCalls + f.statusCalls + f.renderPolls + f.downloadCalls
}

// hubEvent records one broadcast for assertions.
type hubEvent struct {
	kind           string
	jobID          string
	progress       int
	status         model.JobStatus
	upstreamStatus string
	step           string
	code           string
	message        string
}

// fakeHub records broadcasts instead of pushing them to sockets.
type fakeHub struct {
	mu     sync.Mutex
	events []hubEvent
}

func (h *fakeHub) BroadcastProgress(jobID string, progress int, status model.JobStatus, upstreamStatus, step string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, hubEvent{
		kind: "progress", jobID: jobID, progress: progress,
		status: status, upstreamStatus: upstreamStatus, step: step,
	})
}

func (h *fakeHub) BroadcastComplete(jobID string, _ interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, hubEvent{kind: "complete", jobID: jobID})
}

func (h *fakeHub) BroadcastError(jobID, code, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, hubEvent{kind: "error", jobID: jobID, code: code, message: message})
}

func (h *fakeHub) byKind(kind string) []hubEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []hubEvent
	for _, e := range h.events {
		if e.kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// fakeQueue captures enqueued tasks.
type fakeQueue struct {
	mu    sync.Mutex
	tasks []*asynq.Task
}

func (q *fakeQueue) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func (q *fakeQueue) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// testClock fires short timers immediately and never fires long ones,
// so polls and settle delays step without wall-clock waits.
type testClock struct{}

func (testClock) After(d time.Duration) <-chan time.Time {
	if d >= time.Minute {
		return make(chan time.Time)
	}
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

// tracingClock behaves like testClock but logs every requested wait.
type tracingClock struct {
	trace *callTrace
}

func (c tracingClock) After(d time.Duration) <-chan time.Time {
	c.trace.add(fmt.Sprintf("wait:%s", d))
	return testClock{}.After(d)
}

// fakeStorage records mirror operations instead of talking to R2.
type fakeStorage struct {
	mu      sync.Mutex
	uploads map[string]string // key -> content type
	deletes []string
	signed  []string
	signErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{uploads: make(map[string]string)}
}

func (s *fakeStorage) Upload(_ context.Context, key string, body io.Reader, contentType string) (string, error) {
	if _, err := io.ReadAll(body); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads[key] = contentType
	return s.GetPublicURL(key), nil
}

func (s *fakeStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, key)
	return nil
}

func (s *fakeStorage) GetSignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.signErr != nil {
		return "", s.signErr
	}
	s.signed = append(s.signed, key)
	return "https://mirror/" + key + "?token=signed", nil
}

func (s *fakeStorage) GetPublicURL(key string) string {
	return "https://mirror/" + key
}
