package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"reelgen-backend/internal/models"
	"reelgen-backend/internal/services"
)

type fakeAnalyzer struct {
	result services.AnalysisResult
	err    error
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, userInput string, userContext *string) (services.AnalysisResult, error) {
	return f.result, f.err
}

func (f *fakeAnalyzer) RefinePrompt(ctx context.Context, original, feedback, promptType string) (string, error) {
	return "refined: " + original, f.err
}

type fakeGenerator struct {
	result services.GenerateResult
	err    error
}

func (f *fakeGenerator) GenerateComplete(ctx context.Context, prompt string, outputVideoID uuid.UUID, model string, enhancePrompt bool, images []string) (services.GenerateResult, error) {
	return f.result, f.err
}

type fakeVideoStore struct {
	videos    map[uuid.UUID]*models.Video
	failedMsg string
	completed bool
}

func newFakeVideoStore(videos ...*models.Video) *fakeVideoStore {
	store := &fakeVideoStore{videos: map[uuid.UUID]*models.Video{}}
	for _, v := range videos {
		store.videos[v.ID] = v
	}
	return store
}

func (f *fakeVideoStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	if v, ok := f.videos[id]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("video not found")
}

func (f *fakeVideoStore) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	f.videos[id].Status = status
	return nil
}

func (f *fakeVideoStore) SetTaskID(ctx context.Context, id uuid.UUID, taskID string) error {
	f.videos[id].TaskID = &taskID
	return nil
}

func (f *fakeVideoStore) MarkCompleted(ctx context.Context, id uuid.UUID, objectName, videoURL string, fileSize int64) error {
	f.completed = true
	f.videos[id].Status = models.TaskStatusCompleted
	return nil
}

func (f *fakeVideoStore) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	f.failedMsg = errMsg
	f.videos[id].Status = models.TaskStatusFailed
	return nil
}

type fakeArtifactStore struct {
	uploaded []string
}

func (f *fakeArtifactStore) UploadLocalFile(ctx context.Context, objectName, localPath, contentType string) (int64, error) {
	f.uploaded = append(f.uploaded, objectName)
	return 10, nil
}

func (f *fakeArtifactStore) SignedDownloadURL(ctx context.Context, objectName, downloadName string) (string, time.Time, error) {
	return "https://store.example.com/" + objectName, time.Now().Add(time.Hour), nil
}

func generatedArtifact(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out.mp4")
	if err := os.WriteFile(path, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestContentAnalyze(t *testing.T) {
	analyzer := &fakeAnalyzer{result: services.AnalysisResult{
		Analysis:    &models.PromptAnalysis{MainTheme: "celebration"},
		VideoPrompt: "a party scene",
		AudioPrompt: "festive narration",
	}}
	h := NewContentHandler(analyzer, &fakeGenerator{}, newFakeVideoStore(), &fakeArtifactStore{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/content-generation/analyze",
		strings.NewReader(`{"user_input":"plan a birthday video"}`))
	rec := httptest.NewRecorder()
	h.Analyze(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp models.AnalyzeContentResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp.Success || resp.VideoPrompt != "a party scene" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestContentAnalyze_DegradedIsStillSuccess(t *testing.T) {
	analyzer := &fakeAnalyzer{result: services.AnalysisResult{
		VideoPrompt: "raw model text",
		AudioPrompt: "raw model text",
		Degraded:    true,
		Warning:     "model response was not valid JSON; raw text used for both prompts",
	}}
	h := NewContentHandler(analyzer, &fakeGenerator{}, newFakeVideoStore(), &fakeArtifactStore{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/content-generation/analyze",
		strings.NewReader(`{"user_input":"anything"}`))
	rec := httptest.NewRecorder()
	h.Analyze(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for degraded analysis", rec.Code)
	}
	var resp models.AnalyzeContentResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp.Success {
		t.Error("degraded analysis must still be a success")
	}
	if resp.Warning == "" || resp.RawResponse == "" {
		t.Errorf("degradation not surfaced: %+v", resp)
	}
}

func TestContentAnalyze_MissingInput(t *testing.T) {
	h := NewContentHandler(&fakeAnalyzer{}, &fakeGenerator{}, newFakeVideoStore(), &fakeArtifactStore{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/content-generation/analyze", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.Analyze(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRefinePrompt(t *testing.T) {
	h := NewContentHandler(&fakeAnalyzer{}, &fakeGenerator{}, newFakeVideoStore(), &fakeArtifactStore{})

	body := `{"original_prompt":"a scene","user_feedback":"make it darker","prompt_type":"video"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/content-generation/refine-prompt", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.RefinePrompt(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp models.RefinePromptResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.RefinedPrompt != "refined: a scene" {
		t.Errorf("RefinedPrompt = %q", resp.RefinedPrompt)
	}
}

func TestRefinePrompt_InvalidType(t *testing.T) {
	h := NewContentHandler(&fakeAnalyzer{}, &fakeGenerator{}, newFakeVideoStore(), &fakeArtifactStore{})

	body := `{"original_prompt":"a scene","user_feedback":"x","prompt_type":"subtitles"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/content-generation/refine-prompt", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.RefinePrompt(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for an unknown prompt type", rec.Code)
	}
}

func TestGenerateVideo_Success(t *testing.T) {
	video := &models.Video{ID: uuid.New(), UserEmail: "a@b.com", Status: models.TaskStatusPending}
	store := newFakeVideoStore(video)
	generator := &fakeGenerator{result: services.GenerateResult{
		TaskID:     "task-5",
		OutputPath: generatedArtifact(t),
		FileSize:   10,
		Elapsed:    2 * time.Second,
	}}
	artifacts := &fakeArtifactStore{}
	h := NewContentHandler(&fakeAnalyzer{}, generator, store, artifacts)

	body := fmt.Sprintf(`{"video_prompt":"a scene","output_video_id":%q}`, video.ID)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/content-generation/generate-video", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.GenerateVideo(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp models.GenerateVideoResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp.Success || resp.TaskID != "task-5" {
		t.Errorf("resp = %+v", resp)
	}
	if !store.completed {
		t.Error("video record not marked completed")
	}
	if len(artifacts.uploaded) != 1 {
		t.Errorf("uploads = %v", artifacts.uploaded)
	}
}

func TestGenerateVideo_FailureIs200WithError(t *testing.T) {
	video := &models.Video{ID: uuid.New(), UserEmail: "a@b.com", Status: models.TaskStatusPending}
	store := newFakeVideoStore(video)
	generator := &fakeGenerator{
		result: services.GenerateResult{TaskID: "task-6"},
		err:    &services.TaskFailedError{TaskID: "task-6", Status: "failed", Reason: "quota exceeded"},
	}
	h := NewContentHandler(&fakeAnalyzer{}, generator, store, &fakeArtifactStore{})

	body := fmt.Sprintf(`{"video_prompt":"a scene","output_video_id":%q}`, video.ID)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/content-generation/generate-video", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.GenerateVideo(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with the failure in-band", rec.Code)
	}
	var resp models.GenerateVideoResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Success {
		t.Error("failed generation must not report success")
	}
	if resp.TaskID != "task-6" {
		t.Errorf("TaskID = %q, want the id from the partial result", resp.TaskID)
	}
	if !strings.Contains(store.failedMsg, "quota exceeded") {
		t.Errorf("record failure message = %q", store.failedMsg)
	}
}
