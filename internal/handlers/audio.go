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
	"reelgen-backend/internal/services"
	"reelgen-backend/internal/worker"
)

type audioRepository interface {
	Create(ctx context.Context, a *models.Audio) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Audio, error)
	List(ctx context.Context, limit, offset int) ([]*models.Audio, error)
	ListByUserEmail(ctx context.Context, email string) ([]*models.Audio, error)
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
}

type voiceLister interface {
	Enabled() bool
	ListVoices(ctx context.Context, languageCode string) ([]services.Voice, error)
}

type audioObjectStore interface {
	SignedDownloadURL(ctx context.Context, objectName, downloadName string) (string, time.Time, error)
}

type AudioHandler struct {
	audioRepo audioRepository
	tts       voiceLister
	storage   audioObjectStore
	redis     *redis.Client
}

func NewAudioHandler(audioRepo audioRepository, tts voiceLister, storage audioObjectStore, redisClient *redis.Client) *AudioHandler {
	return &AudioHandler{
		audioRepo: audioRepo,
		tts:       tts,
		storage:   storage,
		redis:     redisClient,
	}
}

// Synthesize creates an audio task record and queues it for a worker.
func (h *AudioHandler) Synthesize(w http.ResponseWriter, r *http.Request) {
	var req models.SynthesizeAudioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if !validateRequest(w, r, &req) {
		return
	}
	if !h.tts.Enabled() {
		writeJSON(w, http.StatusServiceUnavailable, errorResp("TTS_UNAVAILABLE", "Text-to-speech is not configured", r))
		return
	}

	audio := &models.Audio{
		UserEmail:    req.UserEmail,
		TextInput:    req.Text,
		VoiceName:    defaultString(req.VoiceName, services.DefaultVoiceName),
		LanguageCode: defaultString(req.LanguageCode, services.DefaultLanguageCode),
		AudioFormat:  defaultString(req.AudioFormat, services.DefaultAudioFormat),
		Status:       models.TaskStatusPending,
	}
	if err := h.audioRepo.Create(r.Context(), audio); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create audio record", r))
		return
	}

	if err := worker.Enqueue(r.Context(), h.redis, "audio-synthesis", audio.ID); err != nil {
		log.Printf("failed to enqueue audio job for %s: %v", audio.ID, err)
		if failErr := h.audioRepo.MarkFailed(r.Context(), audio.ID, "failed to enqueue synthesis job"); failErr != nil {
			log.Printf("failed to mark audio %s failed: %v", audio.ID, failErr)
		}
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to queue synthesis", r))
		return
	}

	writeJSON(w, http.StatusAccepted, audio)
}

func (h *AudioHandler) Get(w http.ResponseWriter, r *http.Request) {
	audio, ok := h.fetchAudio(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, audio)
}

func (h *AudioHandler) List(w http.ResponseWriter, r *http.Request) {
	if email := r.URL.Query().Get("user_email"); email != "" {
		audios, err := h.audioRepo.ListByUserEmail(r.Context(), email)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch audio records", r))
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"audios": audios})
		return
	}

	_, perPage, offset := parsePagination(r)
	audios, err := h.audioRepo.List(r.Context(), perPage, offset)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch audio records", r))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"audios": audios})
}

func (h *AudioHandler) DownloadURL(w http.ResponseWriter, r *http.Request) {
	audio, ok := h.fetchAudio(w, r)
	if !ok {
		return
	}
	if audio.Status != models.TaskStatusCompleted || audio.ObjectName == nil {
		writeJSON(w, http.StatusConflict, errorResp("NOT_READY", "Audio is not ready for download", r))
		return
	}

	url, expiresAt, err := h.storage.SignedDownloadURL(r.Context(), *audio.ObjectName, "")
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to sign download URL", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"url":        url,
		"expires_at": expiresAt,
	})
}

func (h *AudioHandler) Voices(w http.ResponseWriter, r *http.Request) {
	if !h.tts.Enabled() {
		writeJSON(w, http.StatusServiceUnavailable, errorResp("TTS_UNAVAILABLE", "Text-to-speech is not configured", r))
		return
	}

	voices, err := h.tts.ListVoices(r.Context(), r.URL.Query().Get("language_code"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"voices": voices})
}

func (h *AudioHandler) fetchAudio(w http.ResponseWriter, r *http.Request) (*models.Audio, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid audio ID", r))
		return nil, false
	}

	audio, err := h.audioRepo.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Audio not found", r))
		return nil, false
	}
	return audio, true
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
