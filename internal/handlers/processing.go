package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"reelgen-backend/internal/services"
)

type muxer interface {
	Available() bool
	MergeVideos(ctx context.Context, inputPaths []string, outputPath string) error
	AddAudio(ctx context.Context, videoPath, audioPath, outputPath string) error
	ExtractAudio(ctx context.Context, videoPath, outputPath string) error
	Probe(ctx context.Context, path string) (services.MediaInfo, error)
	ScratchPath(parts ...string) string
}

type processingStore interface {
	Download(ctx context.Context, objectName string) ([]byte, error)
	Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	SignedDownloadURL(ctx context.Context, objectName, downloadName string) (string, time.Time, error)
}

// ProcessingHandler exposes local media assembly over objects already in
// storage: merge, narration muxing, audio extraction, and probing.
type ProcessingHandler struct {
	mux     muxer
	storage processingStore
}

func NewProcessingHandler(mux muxer, storage processingStore) *ProcessingHandler {
	return &ProcessingHandler{mux: mux, storage: storage}
}

func (h *ProcessingHandler) requireFFmpeg(w http.ResponseWriter, r *http.Request) bool {
	if !h.mux.Available() {
		writeJSON(w, http.StatusServiceUnavailable, errorResp("FFMPEG_UNAVAILABLE", "Media processing is not available on this host", r))
		return false
	}
	return true
}

// stage pulls an object into the scratch directory and returns its local path.
func (h *ProcessingHandler) stage(ctx context.Context, objectName string) (string, error) {
	data, err := h.storage.Download(ctx, objectName)
	if err != nil {
		return "", err
	}

	localPath := h.mux.ScratchPath(uuid.NewString() + filepath.Ext(objectName))
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(localPath, data, 0o644); err != nil {
		return "", err
	}
	return localPath, nil
}

// publish uploads a finished artifact and returns its object name plus a
// signed download URL. The local file is removed either way.
func (h *ProcessingHandler) publish(ctx context.Context, localPath, objectName string) (string, error) {
	defer services.CleanupLocalFile(localPath)

	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", err
	}
	contentType := services.ContentTypeForExt(objectName)
	if err := h.storage.Upload(ctx, objectName, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return "", err
	}

	url, _, err := h.storage.SignedDownloadURL(ctx, objectName, "")
	return url, err
}

func (h *ProcessingHandler) Merge(w http.ResponseWriter, r *http.Request) {
	if !h.requireFFmpeg(w, r) {
		return
	}

	var req struct {
		ObjectNames []string `json:"object_names" validate:"required,min=2,max=20,dive,min=1"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if !validateRequest(w, r, &req) {
		return
	}

	var localPaths []string
	defer func() {
		for _, p := range localPaths {
			services.CleanupLocalFile(p)
		}
	}()
	for _, objectName := range req.ObjectNames {
		localPath, err := h.stage(r.Context(), objectName)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", fmt.Sprintf("cannot fetch %s", objectName), r))
			return
		}
		localPaths = append(localPaths, localPath)
	}

	outputPath := h.mux.ScratchPath(uuid.NewString() + ".mp4")
	if err := h.mux.MergeVideos(r.Context(), localPaths, outputPath); err != nil {
		handleServiceError(w, r, err)
		return
	}

	objectName := fmt.Sprintf("processed/merged_%s.mp4", uuid.NewString()[:8])
	url, err := h.publish(r.Context(), outputPath, objectName)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"object_name": objectName,
		"url":         url,
	})
}

func (h *ProcessingHandler) AddAudio(w http.ResponseWriter, r *http.Request) {
	if !h.requireFFmpeg(w, r) {
		return
	}

	var req struct {
		VideoObject string `json:"video_object" validate:"required"`
		AudioObject string `json:"audio_object" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if !validateRequest(w, r, &req) {
		return
	}

	videoPath, err := h.stage(r.Context(), req.VideoObject)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "cannot fetch video object", r))
		return
	}
	defer services.CleanupLocalFile(videoPath)

	audioPath, err := h.stage(r.Context(), req.AudioObject)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "cannot fetch audio object", r))
		return
	}
	defer services.CleanupLocalFile(audioPath)

	outputPath := h.mux.ScratchPath(uuid.NewString() + ".mp4")
	if err := h.mux.AddAudio(r.Context(), videoPath, audioPath, outputPath); err != nil {
		handleServiceError(w, r, err)
		return
	}

	objectName := fmt.Sprintf("processed/muxed_%s.mp4", uuid.NewString()[:8])
	url, err := h.publish(r.Context(), outputPath, objectName)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"object_name": objectName,
		"url":         url,
	})
}

func (h *ProcessingHandler) ExtractAudio(w http.ResponseWriter, r *http.Request) {
	if !h.requireFFmpeg(w, r) {
		return
	}

	var req struct {
		VideoObject string `json:"video_object" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if !validateRequest(w, r, &req) {
		return
	}

	videoPath, err := h.stage(r.Context(), req.VideoObject)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "cannot fetch video object", r))
		return
	}
	defer services.CleanupLocalFile(videoPath)

	outputPath := h.mux.ScratchPath(uuid.NewString() + ".mp3")
	if err := h.mux.ExtractAudio(r.Context(), videoPath, outputPath); err != nil {
		handleServiceError(w, r, err)
		return
	}

	objectName := fmt.Sprintf("processed/audio_%s.mp3", uuid.NewString()[:8])
	url, err := h.publish(r.Context(), outputPath, objectName)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"object_name": objectName,
		"url":         url,
	})
}

func (h *ProcessingHandler) Info(w http.ResponseWriter, r *http.Request) {
	if !h.requireFFmpeg(w, r) {
		return
	}

	objectName := r.URL.Query().Get("object_name")
	if objectName == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "object_name query parameter is required", r))
		return
	}

	localPath, err := h.stage(r.Context(), objectName)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "cannot fetch object", r))
		return
	}
	defer services.CleanupLocalFile(localPath)

	info, err := h.mux.Probe(r.Context(), localPath)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}
