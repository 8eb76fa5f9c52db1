package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"reelgen-backend/internal/models"
)

// ─── fakes ───────────────────────────────────────────────────────────────────

type fakeSessionStore struct {
	markProcessingErr error
	recordedTotal     int
	recordedProcessed int
	promptsJSON       []byte
	completed         bool
	completedObject   string
	completedURL      string
	completedTaskID   string
	failedMsg         string
}

func (s *fakeSessionStore) MarkProcessing(ctx context.Context, id uuid.UUID, userPrompt, category string) error {
	return s.markProcessingErr
}

func (s *fakeSessionStore) RecordExtraction(ctx context.Context, id uuid.UUID, total, processed int) error {
	s.recordedTotal = total
	s.recordedProcessed = processed
	return nil
}

func (s *fakeSessionStore) RecordPrompts(ctx context.Context, id uuid.UUID, promptsJSON []byte) error {
	s.promptsJSON = promptsJSON
	return nil
}

func (s *fakeSessionStore) MarkCompleted(ctx context.Context, id uuid.UUID, outputPath, outputURL, taskID string) error {
	s.completed = true
	s.completedObject = outputPath
	s.completedURL = outputURL
	s.completedTaskID = taskID
	return nil
}

func (s *fakeSessionStore) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	s.failedMsg = errMsg
	return nil
}

type fakeFileStore struct {
	files []*models.File
}

func (s *fakeFileStore) ListBySession(ctx context.Context, sessionID uuid.UUID, limit, offset int) ([]*models.File, int, error) {
	return s.files, len(s.files), nil
}

type fakeObjectStore struct {
	objects     map[string][]byte
	uploaded    map[string]string // objectName -> localPath
	downloadErr error
}

func (s *fakeObjectStore) Download(ctx context.Context, objectName string) ([]byte, error) {
	if s.downloadErr != nil {
		return nil, s.downloadErr
	}
	data, ok := s.objects[objectName]
	if !ok {
		return nil, fmt.Errorf("object %s not found", objectName)
	}
	return data, nil
}

func (s *fakeObjectStore) UploadLocalFile(ctx context.Context, objectName, localPath, contentType string) (int64, error) {
	if s.uploaded == nil {
		s.uploaded = map[string]string{}
	}
	s.uploaded[objectName] = localPath
	return 1, nil
}

func (s *fakeObjectStore) SignedDownloadURL(ctx context.Context, objectName, downloadName string) (string, time.Time, error) {
	return "https://store.example.com/" + objectName, time.Now().Add(time.Hour), nil
}

type fakeExtractor struct {
	failFor map[string]bool
}

func (e *fakeExtractor) ExtractText(filename string, data []byte) (string, error) {
	if e.failFor[filename] {
		return "", fmt.Errorf("cannot parse %s", filename)
	}
	return "text of " + filename, nil
}

type fakeAnalyzer struct {
	result       AnalysisResult
	err          error
	gotDocText   string
	calledPlain  bool
	calledWithDs bool
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, userInput string, userContext *string) (AnalysisResult, error) {
	a.calledPlain = true
	return a.result, a.err
}

func (a *fakeAnalyzer) AnalyzeWithDocuments(ctx context.Context, userPrompt, docContent, category string) (AnalysisResult, error) {
	a.calledWithDs = true
	a.gotDocText = docContent
	return a.result, a.err
}

type fakeGenerator struct {
	result    GenerateResult
	err       error
	gotPrompt string
}

func (g *fakeGenerator) GenerateComplete(ctx context.Context, prompt string, outputVideoID uuid.UUID, model string, enhancePrompt bool, images []string) (GenerateResult, error) {
	g.gotPrompt = prompt
	return g.result, g.err
}

type fakeLocker struct {
	busy     bool
	released bool
}

func (l *fakeLocker) Acquire(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	return !l.busy, nil
}

func (l *fakeLocker) Release(ctx context.Context, sessionID uuid.UUID) {
	l.released = true
}

type fakePublisher struct {
	messages []models.WSMessage
}

func (p *fakePublisher) Publish(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	p.messages = append(p.messages, msg)
}

func (p *fakePublisher) types() []string {
	var out []string
	for _, m := range p.messages {
		out = append(out, m.Type)
	}
	return out
}

// ─── helpers ─────────────────────────────────────────────────────────────────

func testSession() *models.VideoSession {
	return &models.VideoSession{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Status: models.SessionStatusPending,
	}
}

func docFile(sessionID uuid.UUID, name string) *models.File {
	sid := sessionID
	return &models.File{
		ID:               uuid.New(),
		SessionID:        &sid,
		OriginalFilename: name,
		ObjectName:       "objects/" + name,
		Category:         models.FileCategoryDocument,
		Status:           models.FileStatusActive,
	}
}

func artifactOnDisk(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out.mp4")
	if err := os.WriteFile(path, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// ─── tests ───────────────────────────────────────────────────────────────────

func TestPipelineRun_Success(t *testing.T) {
	session := testSession()
	sessions := &fakeSessionStore{}
	files := &fakeFileStore{files: []*models.File{
		docFile(session.ID, "brief.txt"),
		docFile(session.ID, "notes.pdf"),
	}}
	store := &fakeObjectStore{objects: map[string][]byte{
		"objects/brief.txt": []byte("a"),
		"objects/notes.pdf": []byte("b"),
	}}
	analyzer := &fakeAnalyzer{result: AnalysisResult{
		VideoPrompt: "cinematic prompt",
		AudioPrompt: "narration prompt",
	}}
	generator := &fakeGenerator{result: GenerateResult{
		TaskID:     "task-9",
		OutputPath: artifactOnDisk(t),
		FileSize:   5,
		Elapsed:    3 * time.Second,
	}}
	locker := &fakeLocker{}
	events := &fakePublisher{}

	p := NewPipeline(sessions, files, store, &fakeExtractor{}, analyzer, generator, locker, events)
	resp, err := p.Run(context.Background(), session, "make it pop", models.CategoryGeneral)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if resp.Status != models.SessionStatusCompleted {
		t.Errorf("Status = %q, want completed", resp.Status)
	}
	if resp.TaskID != "task-9" {
		t.Errorf("TaskID = %q", resp.TaskID)
	}
	if !sessions.completed || sessions.completedTaskID != "task-9" {
		t.Error("session was not marked completed with the task id")
	}
	if sessions.recordedTotal != 2 || sessions.recordedProcessed != 2 {
		t.Errorf("extraction counts = %d/%d, want 2/2", sessions.recordedProcessed, sessions.recordedTotal)
	}
	if resp.AIProcessing == nil || resp.AIProcessing.FilesProcessed != 2 {
		t.Errorf("diagnosis = %+v", resp.AIProcessing)
	}
	if !analyzer.calledWithDs {
		t.Error("documents were attached; document analysis should be used")
	}
	if !strings.Contains(analyzer.gotDocText, "=== brief.txt ===") {
		t.Errorf("document text missing filename header: %q", analyzer.gotDocText)
	}
	if generator.gotPrompt != "cinematic prompt" {
		t.Errorf("generator prompt = %q", generator.gotPrompt)
	}

	wantObject := fmt.Sprintf("user_%s/generated/%s.mp4", session.UserID, session.ID)
	if _, ok := store.uploaded[wantObject]; !ok {
		t.Errorf("artifact not uploaded to %s (got %v)", wantObject, store.uploaded)
	}
	if !locker.released {
		t.Error("lease must be released after the run")
	}

	got := events.types()
	want := []string{"status_update", "status_update", "status_update", "status_update", "completed"}
	if len(got) != len(want) {
		t.Fatalf("event types = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPipelineRun_LeaseBusy(t *testing.T) {
	session := testSession()
	p := NewPipeline(&fakeSessionStore{}, &fakeFileStore{}, &fakeObjectStore{}, &fakeExtractor{}, &fakeAnalyzer{}, &fakeGenerator{}, &fakeLocker{busy: true}, nil)

	_, err := p.Run(context.Background(), session, "prompt", models.CategoryGeneral)

	var busyErr *SessionBusyError
	if !errors.As(err, &busyErr) {
		t.Fatalf("expected SessionBusyError, got %v", err)
	}
}

func TestPipelineRun_NoDocumentsUsesPlainAnalysis(t *testing.T) {
	session := testSession()
	sessions := &fakeSessionStore{}
	analyzer := &fakeAnalyzer{result: AnalysisResult{VideoPrompt: "v", AudioPrompt: "a"}}
	generator := &fakeGenerator{result: GenerateResult{TaskID: "t", OutputPath: artifactOnDisk(t)}}

	p := NewPipeline(sessions, &fakeFileStore{}, &fakeObjectStore{}, &fakeExtractor{}, analyzer, generator, &fakeLocker{}, nil)
	resp, err := p.Run(context.Background(), session, "prompt", models.CategoryGeneral)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if resp.Status != models.SessionStatusCompleted {
		t.Errorf("Status = %q", resp.Status)
	}
	if !analyzer.calledPlain || analyzer.calledWithDs {
		t.Error("plain analysis should be used when no documents are attached")
	}
}

func TestPipelineRun_PartialExtractionFailuresAreSkipped(t *testing.T) {
	session := testSession()
	sessions := &fakeSessionStore{}
	files := &fakeFileStore{files: []*models.File{
		docFile(session.ID, "good.txt"),
		docFile(session.ID, "bad.pdf"),
	}}
	store := &fakeObjectStore{objects: map[string][]byte{
		"objects/good.txt": []byte("a"),
		"objects/bad.pdf":  []byte("b"),
	}}
	analyzer := &fakeAnalyzer{result: AnalysisResult{VideoPrompt: "v", AudioPrompt: "a"}}
	generator := &fakeGenerator{result: GenerateResult{OutputPath: artifactOnDisk(t)}}

	p := NewPipeline(sessions, files, store, &fakeExtractor{failFor: map[string]bool{"bad.pdf": true}}, analyzer, generator, &fakeLocker{}, nil)
	resp, err := p.Run(context.Background(), session, "prompt", models.CategoryGeneral)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if resp.Status != models.SessionStatusCompleted {
		t.Errorf("Status = %q, want completed despite one failed extraction", resp.Status)
	}
	if resp.AIProcessing.FilesProcessed != 1 || resp.AIProcessing.FailedExtractions != 1 {
		t.Errorf("diagnosis counts = %+v", resp.AIProcessing)
	}
	if strings.Contains(analyzer.gotDocText, "bad.pdf") {
		t.Error("failed file must not contribute document text")
	}
}

func TestPipelineRun_AllExtractionsFail(t *testing.T) {
	session := testSession()
	sessions := &fakeSessionStore{}
	files := &fakeFileStore{files: []*models.File{docFile(session.ID, "only.pdf")}}
	store := &fakeObjectStore{objects: map[string][]byte{"objects/only.pdf": []byte("x")}}
	events := &fakePublisher{}

	p := NewPipeline(sessions, files, store, &fakeExtractor{failFor: map[string]bool{"only.pdf": true}}, &fakeAnalyzer{}, &fakeGenerator{}, &fakeLocker{}, events)
	resp, err := p.Run(context.Background(), session, "prompt", models.CategoryGeneral)
	if err != nil {
		t.Fatalf("Run must report the failure in-band, got error %v", err)
	}

	if resp.Status != models.SessionStatusFailed {
		t.Errorf("Status = %q, want failed", resp.Status)
	}
	if resp.AIProcessing.FailedStage != "extraction" {
		t.Errorf("FailedStage = %q, want extraction", resp.AIProcessing.FailedStage)
	}
	if sessions.failedMsg == "" {
		t.Error("session row was not marked failed")
	}
	if last := events.messages[len(events.messages)-1]; last.Type != "error" {
		t.Errorf("last event = %q, want error", last.Type)
	}
}

func TestPipelineRun_AnalysisFailure(t *testing.T) {
	session := testSession()
	sessions := &fakeSessionStore{}
	analyzer := &fakeAnalyzer{err: &TransportError{Op: "generate", Err: errors.New("upstream down")}}

	p := NewPipeline(sessions, &fakeFileStore{}, &fakeObjectStore{}, &fakeExtractor{}, analyzer, &fakeGenerator{}, &fakeLocker{}, nil)
	resp, err := p.Run(context.Background(), session, "prompt", models.CategoryGeneral)
	if err != nil {
		t.Fatalf("Run must report the failure in-band, got error %v", err)
	}

	if resp.Status != models.SessionStatusFailed {
		t.Errorf("Status = %q, want failed", resp.Status)
	}
	if resp.AIProcessing.FailedStage != "analysis" {
		t.Errorf("FailedStage = %q, want analysis", resp.AIProcessing.FailedStage)
	}
	if resp.Error == "" {
		t.Error("failed response must carry the error message")
	}
}

func TestPipelineRun_DegradedAnalysisProceeds(t *testing.T) {
	session := testSession()
	sessions := &fakeSessionStore{}
	analyzer := &fakeAnalyzer{result: AnalysisResult{
		VideoPrompt: "raw text",
		AudioPrompt: "raw text",
		Degraded:    true,
		Warning:     "model response was not valid JSON; raw text used for both prompts",
	}}
	generator := &fakeGenerator{result: GenerateResult{OutputPath: artifactOnDisk(t)}}

	p := NewPipeline(sessions, &fakeFileStore{}, &fakeObjectStore{}, &fakeExtractor{}, analyzer, generator, &fakeLocker{}, nil)
	resp, err := p.Run(context.Background(), session, "prompt", models.CategoryGeneral)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if resp.Status != models.SessionStatusCompleted {
		t.Errorf("Status = %q, degraded analysis must still complete", resp.Status)
	}
	if !resp.AIProcessing.DegradedAnalysis || resp.AIProcessing.Warning == "" {
		t.Errorf("diagnosis must surface the degradation: %+v", resp.AIProcessing)
	}
	if !strings.Contains(string(sessions.promptsJSON), `"degraded":true`) {
		t.Errorf("persisted prompts missing degraded flag: %s", sessions.promptsJSON)
	}
}

func TestPipelineRun_GenerationFailure(t *testing.T) {
	session := testSession()
	sessions := &fakeSessionStore{}
	analyzer := &fakeAnalyzer{result: AnalysisResult{VideoPrompt: "v", AudioPrompt: "a"}}
	generator := &fakeGenerator{err: &TaskFailedError{TaskID: "t", Status: "failed", Reason: "quota exceeded"}}
	locker := &fakeLocker{}

	p := NewPipeline(sessions, &fakeFileStore{}, &fakeObjectStore{}, &fakeExtractor{}, analyzer, generator, locker, nil)
	resp, err := p.Run(context.Background(), session, "prompt", models.CategoryGeneral)
	if err != nil {
		t.Fatalf("Run must report the failure in-band, got error %v", err)
	}

	if resp.Status != models.SessionStatusFailed {
		t.Errorf("Status = %q, want failed", resp.Status)
	}
	if resp.AIProcessing.FailedStage != "generation" {
		t.Errorf("FailedStage = %q, want generation", resp.AIProcessing.FailedStage)
	}
	if !strings.Contains(sessions.failedMsg, "quota exceeded") {
		t.Errorf("failure message = %q", sessions.failedMsg)
	}
	if !locker.released {
		t.Error("lease must be released on failure too")
	}
}
