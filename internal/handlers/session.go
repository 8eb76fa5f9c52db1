package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"reelgen-backend/internal/models"
)

type sessionRepository interface {
	Create(ctx context.Context, s *models.VideoSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.VideoSession, error)
	List(ctx context.Context, userID *uuid.UUID, limit, offset int) ([]*models.VideoSession, int, error)
	UpdateMeta(ctx context.Context, id uuid.UUID, req models.UpdateSessionRequest) (*models.VideoSession, error)
	MarkCompletedManually(ctx context.Context, id uuid.UUID, outputPath *string) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

type sessionFileLister interface {
	ListBySession(ctx context.Context, sessionID uuid.UUID, limit, offset int) ([]*models.File, int, error)
}

type pipelineRunner interface {
	Run(ctx context.Context, session *models.VideoSession, userPrompt, category string) (*models.StartProcessingResponse, error)
}

type SessionHandler struct {
	sessionRepo sessionRepository
	fileRepo    sessionFileLister
	pipeline    pipelineRunner
}

func NewSessionHandler(sessionRepo sessionRepository, fileRepo sessionFileLister, pipeline pipelineRunner) *SessionHandler {
	return &SessionHandler{
		sessionRepo: sessionRepo,
		fileRepo:    fileRepo,
		pipeline:    pipeline,
	}
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if !validateRequest(w, r, &req) {
		return
	}

	session := &models.VideoSession{
		UserID:      req.UserID,
		SessionName: req.SessionName,
		Description: req.Description,
		Status:      models.SessionStatusPending,
	}
	if err := h.sessionRepo.Create(r.Context(), session); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create session", r))
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage, offset := parsePagination(r)

	var userID *uuid.UUID
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid user_id", r))
			return
		}
		userID = &id
	}

	sessions, total, err := h.sessionRepo.List(r.Context(), userID, perPage, offset)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch sessions", r))
		return
	}

	writeJSON(w, http.StatusOK, models.SessionList{
		Sessions: sessions,
		Total:    total,
		Page:     page,
		PerPage:  perPage,
	})
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := h.fetchSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	session, ok := h.fetchSession(w, r)
	if !ok {
		return
	}

	var req models.UpdateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if !validateRequest(w, r, &req) {
		return
	}
	if req.Category != nil && !models.ValidCategory(*req.Category) {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Unknown video category", r))
		return
	}

	updated, err := h.sessionRepo.UpdateMeta(r.Context(), session.ID, req)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to update session", r))
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return
	}

	deleted, err := h.sessionRepo.Delete(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to delete session", r))
		return
	}
	if !deleted {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Session not found", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Session deleted"})
}

func (h *SessionHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	session, ok := h.fetchSession(w, r)
	if !ok {
		return
	}

	page, perPage, offset := parsePagination(r)
	files, total, err := h.fileRepo.ListBySession(r.Context(), session.ID, perPage, offset)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch session files", r))
		return
	}

	writeJSON(w, http.StatusOK, models.FileList{
		Files:   files,
		Total:   total,
		Page:    page,
		PerPage: perPage,
	})
}

// StartProcessing runs the full generation pipeline for a session and reports
// the outcome in-band: a pipeline failure is a 200 whose body carries the
// failed status, stage, and error message.
func (h *SessionHandler) StartProcessing(w http.ResponseWriter, r *http.Request) {
	session, ok := h.fetchSession(w, r)
	if !ok {
		return
	}

	var req models.StartProcessingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if !validateRequest(w, r, &req) {
		return
	}

	// Request values override session defaults for this run
	userPrompt := ""
	if session.UserPrompt != nil {
		userPrompt = *session.UserPrompt
	}
	if req.UserPrompt != nil {
		userPrompt = *req.UserPrompt
	}
	if userPrompt == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "A user prompt is required to start processing", r))
		return
	}

	category := models.CategoryGeneral
	if session.Category != nil && *session.Category != "" {
		category = *session.Category
	}
	if req.Category != nil {
		category = *req.Category
	}
	if !models.ValidCategory(category) {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Unknown video category", r))
		return
	}

	resp, err := h.pipeline.Run(r.Context(), session, userPrompt, category)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Complete marks a session completed without running the pipeline, for flows
// where the client assembled the final video itself.
func (h *SessionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	session, ok := h.fetchSession(w, r)
	if !ok {
		return
	}

	var req struct {
		OutputVideoPath *string `json:"output_video_path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if err := h.sessionRepo.MarkCompletedManually(r.Context(), session.ID, req.OutputVideoPath); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to complete session", r))
		return
	}

	updated, err := h.sessionRepo.GetByID(r.Context(), session.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch session", r))
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *SessionHandler) fetchSession(w http.ResponseWriter, r *http.Request) (*models.VideoSession, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return nil, false
	}

	session, err := h.sessionRepo.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Session not found", r))
		return nil, false
	}
	return session, true
}
