package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"reelgen-backend/internal/models"
	"reelgen-backend/internal/services"
)

type promptAnalyzer interface {
	Analyze(ctx context.Context, userInput string, userContext *string) (services.AnalysisResult, error)
	RefinePrompt(ctx context.Context, original, feedback, promptType string) (string, error)
}

type videoGenerator interface {
	GenerateComplete(ctx context.Context, prompt string, outputVideoID uuid.UUID, model string, enhancePrompt bool, images []string) (services.GenerateResult, error)
}

type videoTaskStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Video, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	SetTaskID(ctx context.Context, id uuid.UUID, taskID string) error
	MarkCompleted(ctx context.Context, id uuid.UUID, objectName, videoURL string, fileSize int64) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
}

type artifactStore interface {
	UploadLocalFile(ctx context.Context, objectName, localPath, contentType string) (int64, error)
	SignedDownloadURL(ctx context.Context, objectName, downloadName string) (string, time.Time, error)
}

// ContentHandler exposes the prompt-engineering surface: analysis, prompt
// refinement, direct video generation, and the combined workflow.
type ContentHandler struct {
	analyzer  promptAnalyzer
	generator videoGenerator
	videoRepo videoTaskStore
	storage   artifactStore
}

func NewContentHandler(analyzer promptAnalyzer, generator videoGenerator, videoRepo videoTaskStore, storage artifactStore) *ContentHandler {
	return &ContentHandler{
		analyzer:  analyzer,
		generator: generator,
		videoRepo: videoRepo,
		storage:   storage,
	}
}

// Analyze turns free-form user input into structured video and audio prompts.
// A degraded analysis (unparseable model output) is still a success with a
// warning attached.
func (h *ContentHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req models.AnalyzeContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if !validateRequest(w, r, &req) {
		return
	}

	result, err := h.analyzer.Analyze(r.Context(), req.UserInput, req.UserContext)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := models.AnalyzeContentResponse{
		Success:            true,
		Analysis:           result.Analysis,
		VideoPrompt:        result.VideoPrompt,
		AudioPrompt:        result.AudioPrompt,
		EnhancedUserPrompt: result.EnhancedUserPrompt,
		Warning:            result.Warning,
	}
	if result.Degraded {
		resp.RawResponse = result.VideoPrompt
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ContentHandler) RefinePrompt(w http.ResponseWriter, r *http.Request) {
	var req models.RefinePromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if !validateRequest(w, r, &req) {
		return
	}

	refined, err := h.analyzer.RefinePrompt(r.Context(), req.OriginalPrompt, req.UserFeedback, req.PromptType)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.RefinePromptResponse{
		Success:        true,
		RefinedPrompt:  refined,
		OriginalPrompt: req.OriginalPrompt,
		UserFeedback:   req.UserFeedback,
	})
}

// GenerateVideo runs the full generation chain synchronously against an
// existing video task record. Failures come back as a 200 with success=false
// so the caller sees the failure reason alongside the task id.
func (h *ContentHandler) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if !validateRequest(w, r, &req) {
		return
	}

	result := h.runGeneration(r.Context(), req)
	writeJSON(w, http.StatusOK, result)
}

// CompleteWorkflow chains analysis and generation in one call.
func (h *ContentHandler) CompleteWorkflow(w http.ResponseWriter, r *http.Request) {
	var req models.CompleteWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if !validateRequest(w, r, &req) {
		return
	}

	analysis, err := h.analyzer.Analyze(r.Context(), req.UserInput, req.UserContext)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	generation := h.runGeneration(r.Context(), models.GenerateVideoRequest{
		VideoPrompt:   analysis.VideoPrompt,
		OutputVideoID: req.OutputVideoID,
		Model:         req.Model,
		EnhancePrompt: req.EnhancePrompt,
		ImageURL:      req.ImageURL,
	})

	resp := models.CompleteWorkflowResponse{
		Success:         generation.Success,
		Analysis:        analysis.Analysis,
		VideoPrompt:     analysis.VideoPrompt,
		AudioPrompt:     analysis.AudioPrompt,
		VideoGeneration: &generation,
	}
	if !generation.Success {
		resp.Error = generation.Error
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ContentHandler) runGeneration(ctx context.Context, req models.GenerateVideoRequest) models.GenerateVideoResponse {
	video, err := h.videoRepo.GetByID(ctx, req.OutputVideoID)
	if err != nil {
		return models.GenerateVideoResponse{Error: "video record not found", VideoID: req.OutputVideoID}
	}

	if err := h.videoRepo.UpdateStatus(ctx, video.ID, models.TaskStatusProcessing); err != nil {
		return models.GenerateVideoResponse{Error: "failed to update video status", VideoID: video.ID}
	}

	enhance := true
	if req.EnhancePrompt != nil {
		enhance = *req.EnhancePrompt
	}
	var images []string
	if req.ImageURL != nil && *req.ImageURL != "" {
		images = []string{*req.ImageURL}
	}

	result, err := h.generator.GenerateComplete(ctx, req.VideoPrompt, video.ID, req.Model, enhance, images)
	if result.TaskID != "" {
		if setErr := h.videoRepo.SetTaskID(ctx, video.ID, result.TaskID); setErr != nil {
			log.Printf("failed to record task id for video %s: %v", video.ID, setErr)
		}
	}
	if err != nil {
		h.markVideoFailed(ctx, video.ID, err)
		return models.GenerateVideoResponse{
			TaskID:  result.TaskID,
			VideoID: video.ID,
			Error:   err.Error(),
		}
	}

	objectName := fmt.Sprintf("video/%s.mp4", video.ID)
	size, err := h.storage.UploadLocalFile(ctx, objectName, result.OutputPath, "video/mp4")
	if err != nil {
		h.markVideoFailed(ctx, video.ID, err)
		return models.GenerateVideoResponse{
			TaskID:  result.TaskID,
			VideoID: video.ID,
			Error:   err.Error(),
		}
	}
	services.CleanupLocalFile(result.OutputPath)

	videoURL, _, err := h.storage.SignedDownloadURL(ctx, objectName, "")
	if err != nil {
		h.markVideoFailed(ctx, video.ID, err)
		return models.GenerateVideoResponse{
			TaskID:  result.TaskID,
			VideoID: video.ID,
			Error:   err.Error(),
		}
	}

	if err := h.videoRepo.MarkCompleted(ctx, video.ID, objectName, videoURL, size); err != nil {
		log.Printf("failed to mark video %s completed: %v", video.ID, err)
	}

	return models.GenerateVideoResponse{
		Success:        true,
		Message:        "Video generated successfully",
		TaskID:         result.TaskID,
		OutputPath:     objectName,
		FileSize:       size,
		VideoURL:       videoURL,
		VideoID:        video.ID,
		ElapsedSeconds: result.Elapsed.Seconds(),
	}
}

func (h *ContentHandler) markVideoFailed(ctx context.Context, id uuid.UUID, cause error) {
	if err := h.videoRepo.MarkFailed(ctx, id, cause.Error()); err != nil {
		log.Printf("failed to mark video %s failed: %v", id, err)
	}
}
