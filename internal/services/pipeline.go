package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"reelgen-backend/internal/models"
)

// Narrow collaborator interfaces so the pipeline can be tested with fakes.

type SessionStore interface {
	MarkProcessing(ctx context.Context, id uuid.UUID, userPrompt, category string) error
	RecordExtraction(ctx context.Context, id uuid.UUID, totalFiles, processedFiles int) error
	RecordPrompts(ctx context.Context, id uuid.UUID, promptsJSON []byte) error
	MarkCompleted(ctx context.Context, id uuid.UUID, outputPath, outputURL, taskID string) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
}

type SessionFileStore interface {
	ListBySession(ctx context.Context, sessionID uuid.UUID, limit, offset int) ([]*models.File, int, error)
}

type PipelineObjectStore interface {
	Download(ctx context.Context, objectName string) ([]byte, error)
	UploadLocalFile(ctx context.Context, objectName, localPath, contentType string) (int64, error)
	SignedDownloadURL(ctx context.Context, objectName, downloadName string) (string, time.Time, error)
}

type TextExtractor interface {
	ExtractText(filename string, data []byte) (string, error)
}

type ContentAnalyzer interface {
	Analyze(ctx context.Context, userInput string, userContext *string) (AnalysisResult, error)
	AnalyzeWithDocuments(ctx context.Context, userPrompt, docContent, category string) (AnalysisResult, error)
}

type VideoGenerator interface {
	GenerateComplete(ctx context.Context, prompt string, outputVideoID uuid.UUID, model string, enhancePrompt bool, images []string) (GenerateResult, error)
}

type SessionLocker interface {
	Acquire(ctx context.Context, sessionID uuid.UUID) (bool, error)
	Release(ctx context.Context, sessionID uuid.UUID)
}

type EventPublisher interface {
	Publish(ctx context.Context, userID uuid.UUID, msg models.WSMessage)
}

// SessionLease is a Redis SETNX lease guarding one processing run per
// session. The TTL bounds how long a crashed run can block re-triggering.
type SessionLease struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionLease(client *redis.Client, ttl time.Duration) *SessionLease {
	if ttl <= 0 {
		ttl = 20 * time.Minute
	}
	return &SessionLease{client: client, ttl: ttl}
}

func leaseKey(sessionID uuid.UUID) string {
	return "lease:session:" + sessionID.String()
}

func (l *SessionLease) Acquire(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	return l.client.SetNX(ctx, leaseKey(sessionID), "1", l.ttl).Result()
}

func (l *SessionLease) Release(ctx context.Context, sessionID uuid.UUID) {
	if err := l.client.Del(ctx, leaseKey(sessionID)).Err(); err != nil {
		log.Printf("failed to release session lease %s: %v", sessionID, err)
	}
}

// Pipeline runs the full session workflow: document extraction, content
// analysis, video generation, artifact upload, and status bookkeeping.
type Pipeline struct {
	sessions  SessionStore
	files     SessionFileStore
	store     PipelineObjectStore
	extractor TextExtractor
	analyzer  ContentAnalyzer
	generator VideoGenerator
	locker    SessionLocker
	events    EventPublisher
}

func NewPipeline(sessions SessionStore, files SessionFileStore, store PipelineObjectStore, extractor TextExtractor, analyzer ContentAnalyzer, generator VideoGenerator, locker SessionLocker, events EventPublisher) *Pipeline {
	return &Pipeline{
		sessions:  sessions,
		files:     files,
		store:     store,
		extractor: extractor,
		analyzer:  analyzer,
		generator: generator,
		locker:    locker,
		events:    events,
	}
}

// Pipeline step names pushed over the event channel.
const (
	stepExtracting = "extracting_documents"
	stepAnalyzing  = "analyzing_content"
	stepGenerating = "generating_video"
	stepUploading  = "uploading_artifact"
)

func (p *Pipeline) publishStatus(ctx context.Context, session *models.VideoSession, step int, name string) {
	if p.events == nil {
		return
	}
	p.events.Publish(ctx, session.UserID, models.WSMessage{
		Type: "status_update",
		Payload: models.StatusUpdate{
			SessionID: session.ID,
			Step:      step,
			StepName:  name,
		},
	})
}

func (p *Pipeline) fail(ctx context.Context, session *models.VideoSession, diag *models.PipelineDiagnosis, stage string, cause error) *models.StartProcessingResponse {
	diag.FailedStage = stage
	msg := cause.Error()

	if err := p.sessions.MarkFailed(ctx, session.ID, msg); err != nil {
		log.Printf("failed to mark session %s failed: %v", session.ID, err)
	}
	if p.events != nil {
		p.events.Publish(ctx, session.UserID, models.WSMessage{
			Type: "error",
			Payload: models.ErrorEvent{
				SessionID:    session.ID,
				ErrorCode:    stage,
				ErrorMessage: msg,
			},
		})
	}

	return &models.StartProcessingResponse{
		Status:       models.SessionStatusFailed,
		SessionID:    session.ID.String(),
		AIProcessing: diag,
		Error:        msg,
	}
}

// Run executes the pipeline for one session. The returned response carries
// the outcome in-band: a failed run is a valid response, not an error. An
// error return means the run never started (lease held by another attempt).
func (p *Pipeline) Run(ctx context.Context, session *models.VideoSession, userPrompt, category string) (*models.StartProcessingResponse, error) {
	acquired, err := p.locker.Acquire(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("acquiring session lease: %w", err)
	}
	if !acquired {
		return nil, &SessionBusyError{SessionID: session.ID.String()}
	}
	defer p.locker.Release(ctx, session.ID)

	if err := p.sessions.MarkProcessing(ctx, session.ID, userPrompt, category); err != nil {
		return nil, fmt.Errorf("marking session processing: %w", err)
	}

	diag := &models.PipelineDiagnosis{}

	// Stage 1: pull session documents and extract their text. A file that
	// fails extraction is counted and skipped, not fatal.
	p.publishStatus(ctx, session, 1, stepExtracting)
	docText, totalDocs, processedDocs := p.extractDocuments(ctx, session)
	diag.FilesProcessed = processedDocs
	diag.FailedExtractions = totalDocs - processedDocs
	diag.TotalCharacters = len(docText)

	if err := p.sessions.RecordExtraction(ctx, session.ID, totalDocs, processedDocs); err != nil {
		return p.fail(ctx, session, diag, "extraction", err), nil
	}
	if totalDocs > 0 && processedDocs == 0 {
		return p.fail(ctx, session, diag, "extraction", fmt.Errorf("no text could be extracted from %d document(s)", totalDocs)), nil
	}

	// Stage 2: content analysis. A degraded (unparseable) result still
	// proceeds; only transport-level failures stop the run.
	p.publishStatus(ctx, session, 2, stepAnalyzing)
	var analysis AnalysisResult
	if docText != "" {
		analysis, err = p.analyzer.AnalyzeWithDocuments(ctx, userPrompt, docText, category)
	} else {
		analysis, err = p.analyzer.Analyze(ctx, userPrompt, nil)
	}
	if err != nil {
		return p.fail(ctx, session, diag, "analysis", err), nil
	}

	prompts := &models.GeneratedPrompts{
		VideoPrompt:        analysis.VideoPrompt,
		AudioPrompt:        analysis.AudioPrompt,
		EnhancedUserPrompt: analysis.EnhancedUserPrompt,
		Degraded:           analysis.Degraded,
	}
	diag.PromptsGenerated = prompts
	diag.Analysis = analysis.Analysis
	diag.DegradedAnalysis = analysis.Degraded
	diag.Warning = analysis.Warning

	promptsJSON, err := json.Marshal(prompts)
	if err == nil {
		err = p.sessions.RecordPrompts(ctx, session.ID, promptsJSON)
	}
	if err != nil {
		return p.fail(ctx, session, diag, "analysis", err), nil
	}

	// Stage 3: external video generation.
	p.publishStatus(ctx, session, 3, stepGenerating)
	result, err := p.generator.GenerateComplete(ctx, analysis.VideoPrompt, session.ID, "", true, nil)
	diag.ElapsedPollSeconds = result.Elapsed.Seconds()
	if err != nil {
		return p.fail(ctx, session, diag, "generation", err), nil
	}

	// Stage 4: move the artifact into object storage and sign a download URL.
	p.publishStatus(ctx, session, 4, stepUploading)
	objectName := fmt.Sprintf("user_%s/generated/%s.mp4", session.UserID, session.ID)
	if _, err := p.store.UploadLocalFile(ctx, objectName, result.OutputPath, "video/mp4"); err != nil {
		return p.fail(ctx, session, diag, "upload", err), nil
	}
	CleanupLocalFile(result.OutputPath)

	videoURL, _, err := p.store.SignedDownloadURL(ctx, objectName, "")
	if err != nil {
		return p.fail(ctx, session, diag, "upload", err), nil
	}

	if err := p.sessions.MarkCompleted(ctx, session.ID, objectName, videoURL, result.TaskID); err != nil {
		return p.fail(ctx, session, diag, "finalize", err), nil
	}

	if p.events != nil {
		p.events.Publish(ctx, session.UserID, models.WSMessage{
			Type: "completed",
			Payload: models.CompletedEvent{
				SessionID: session.ID,
				VideoURL:  videoURL,
				TaskID:    result.TaskID,
			},
		})
	}

	return &models.StartProcessingResponse{
		Status:          models.SessionStatusCompleted,
		SessionID:       session.ID.String(),
		AIProcessing:    diag,
		OutputVideoPath: objectName,
		VideoURL:        videoURL,
		TaskID:          result.TaskID,
	}, nil
}

// extractDocuments downloads every document file attached to the session and
// concatenates the extracted text. Returns combined text, document count, and
// how many extracted successfully.
func (p *Pipeline) extractDocuments(ctx context.Context, session *models.VideoSession) (string, int, int) {
	files, _, err := p.files.ListBySession(ctx, session.ID, 100, 0)
	if err != nil {
		log.Printf("listing files for session %s: %v", session.ID, err)
		return "", 0, 0
	}

	var (
		parts     []string
		total     int
		processed int
	)
	for _, f := range files {
		if f.Category != models.FileCategoryDocument {
			continue
		}
		total++

		data, err := p.store.Download(ctx, f.ObjectName)
		if err != nil {
			log.Printf("downloading %s: %v", f.ObjectName, err)
			continue
		}
		text, err := p.extractor.ExtractText(f.OriginalFilename, data)
		if err != nil {
			log.Printf("extracting text from %s: %v", f.OriginalFilename, err)
			continue
		}

		processed++
		parts = append(parts, fmt.Sprintf("=== %s ===\n%s", f.OriginalFilename, text))
	}

	return strings.Join(parts, "\n\n"), total, processed
}
