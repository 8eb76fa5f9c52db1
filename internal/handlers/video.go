package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"reelgen-backend/internal/models"
	"reelgen-backend/internal/worker"
)

type videoRepository interface {
	Create(ctx context.Context, v *models.Video) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Video, error)
	GetByTaskID(ctx context.Context, taskID string) (*models.Video, error)
	List(ctx context.Context, limit, offset int) ([]*models.Video, error)
	ListByUserEmail(ctx context.Context, email string) ([]*models.Video, error)
	Update(ctx context.Context, id uuid.UUID, req models.UpdateVideoRequest) (*models.Video, error)
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
}

type videoObjectStore interface {
	SignedDownloadURL(ctx context.Context, objectName, downloadName string) (string, time.Time, error)
}

// VideoHandler manages video task records. Creation queues an asynchronous
// generation job; the synchronous path lives on the content-generation
// surface.
type VideoHandler struct {
	videoRepo videoRepository
	storage   videoObjectStore
	redis     *redis.Client
}

func NewVideoHandler(videoRepo videoRepository, storage videoObjectStore, redisClient *redis.Client) *VideoHandler {
	return &VideoHandler{
		videoRepo: videoRepo,
		storage:   storage,
		redis:     redisClient,
	}
}

func (h *VideoHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if !validateRequest(w, r, &req) {
		return
	}

	video := &models.Video{
		UserEmail: req.UserEmail,
		Prompt:    req.Prompt,
		Model:     req.Model,
		Status:    models.TaskStatusPending,
	}
	if err := h.videoRepo.Create(r.Context(), video); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create video record", r))
		return
	}

	if err := worker.Enqueue(r.Context(), h.redis, "video-generation", video.ID); err != nil {
		log.Printf("failed to enqueue video job for %s: %v", video.ID, err)
		if failErr := h.videoRepo.MarkFailed(r.Context(), video.ID, "failed to enqueue generation job"); failErr != nil {
			log.Printf("failed to mark video %s failed: %v", video.ID, failErr)
		}
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to queue generation", r))
		return
	}

	writeJSON(w, http.StatusAccepted, video)
}

func (h *VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	video, ok := h.fetchVideo(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, video)
}

// GetByTask looks a record up by the external generation task id.
func (h *VideoHandler) GetByTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	if taskID == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Missing task ID", r))
		return
	}

	video, err := h.videoRepo.GetByTaskID(r.Context(), taskID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Video not found", r))
		return
	}
	writeJSON(w, http.StatusOK, video)
}

func (h *VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	if email := r.URL.Query().Get("user_email"); email != "" {
		videos, err := h.videoRepo.ListByUserEmail(r.Context(), email)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch video records", r))
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"videos": videos})
		return
	}

	_, perPage, offset := parsePagination(r)
	videos, err := h.videoRepo.List(r.Context(), perPage, offset)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch video records", r))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"videos": videos})
}

func (h *VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	video, ok := h.fetchVideo(w, r)
	if !ok {
		return
	}

	var req models.UpdateVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if !validateRequest(w, r, &req) {
		return
	}

	updated, err := h.videoRepo.Update(r.Context(), video.ID, req)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to update video", r))
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *VideoHandler) DownloadURL(w http.ResponseWriter, r *http.Request) {
	video, ok := h.fetchVideo(w, r)
	if !ok {
		return
	}
	if video.Status != models.TaskStatusCompleted || video.ObjectName == nil {
		writeJSON(w, http.StatusConflict, errorResp("NOT_READY", "Video is not ready for download", r))
		return
	}

	url, expiresAt, err := h.storage.SignedDownloadURL(r.Context(), *video.ObjectName, "")
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to sign download URL", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"url":        url,
		"expires_at": expiresAt,
	})
}

func (h *VideoHandler) fetchVideo(w http.ResponseWriter, r *http.Request) (*models.Video, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid video ID", r))
		return nil, false
	}

	video, err := h.videoRepo.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Video not found", r))
		return nil, false
	}
	return video, true
}
