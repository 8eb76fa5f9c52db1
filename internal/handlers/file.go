package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"reelgen-backend/internal/models"
	"reelgen-backend/internal/services"
)

type fileRepository interface {
	Create(ctx context.Context, f *models.File) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.File, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.File, int, error)
	Update(ctx context.Context, id uuid.UUID, req models.UpdateFileRequest) (*models.File, error)
	IncrementDownloadCount(ctx context.Context, id uuid.UUID) error
	MarkDeleting(ctx context.Context, id uuid.UUID) error
	DeleteRow(ctx context.Context, id uuid.UUID) error
}

type fileObjectStore interface {
	ValidateUpload(filename string, size int64) (string, error)
	Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	Exists(ctx context.Context, objectName string) (bool, error)
	Delete(ctx context.Context, objectName string) error
	SignedUploadURL(ctx context.Context, objectName string) (string, time.Time, error)
	SignedDownloadURL(ctx context.Context, objectName, downloadName string) (string, time.Time, error)
	MaxUploadSize() int64
}

type FileHandler struct {
	fileRepo fileRepository
	storage  fileObjectStore
}

func NewFileHandler(fileRepo fileRepository, storage fileObjectStore) *FileHandler {
	return &FileHandler{fileRepo: fileRepo, storage: storage}
}

// Upload accepts one multipart file plus a user_id field and streams it into
// object storage under a unique name.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.storage.MaxUploadSize()); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid multipart form", r))
		return
	}

	userID, err := uuid.Parse(r.FormValue("user_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid or missing user_id", r))
		return
	}

	var sessionID *uuid.UUID
	if raw := r.FormValue("session_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session_id", r))
			return
		}
		sessionID = &id
	}

	src, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Missing file field", r))
		return
	}
	defer src.Close()

	category, err := h.storage.ValidateUpload(header.Filename, header.Size)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", err.Error(), r))
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = services.ContentTypeForExt(header.Filename)
	}

	objectName := services.UniqueObjectName(userID, header.Filename)
	if err := h.storage.Upload(r.Context(), objectName, src, header.Size, contentType); err != nil {
		log.Printf("upload of %s failed: %v", objectName, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to store file", r))
		return
	}

	file := &models.File{
		UserID:           userID,
		SessionID:        sessionID,
		OriginalFilename: header.Filename,
		ObjectName:       objectName,
		Size:             header.Size,
		ContentType:      contentType,
		Category:         category,
		Status:           models.FileStatusActive,
	}
	if err := h.fileRepo.Create(r.Context(), file); err != nil {
		// Roll the object back so storage does not leak
		if delErr := h.storage.Delete(r.Context(), objectName); delErr != nil {
			log.Printf("failed to roll back object %s: %v", objectName, delErr)
		}
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to record file", r))
		return
	}

	writeJSON(w, http.StatusCreated, file)
}

// UploadMultiple accepts several files in one multipart request. Files are
// processed independently: per-file failures are reported alongside the
// successful uploads instead of failing the batch.
func (h *FileHandler) UploadMultiple(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.storage.MaxUploadSize()); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid multipart form", r))
		return
	}

	userID, err := uuid.Parse(r.FormValue("user_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid or missing user_id", r))
		return
	}

	var sessionID *uuid.UUID
	if raw := r.FormValue("session_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session_id", r))
			return
		}
		sessionID = &id
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Missing files field", r))
		return
	}

	type uploadFailure struct {
		Filename string `json:"filename"`
		Error    string `json:"error"`
	}
	uploaded := make([]*models.File, 0, len(headers))
	var failures []uploadFailure

	for _, header := range headers {
		file, err := h.storeOne(r.Context(), userID, sessionID, header)
		if err != nil {
			failures = append(failures, uploadFailure{Filename: header.Filename, Error: err.Error()})
			continue
		}
		uploaded = append(uploaded, file)
	}

	status := http.StatusCreated
	if len(uploaded) == 0 {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]interface{}{
		"uploaded": uploaded,
		"failed":   failures,
	})
}

func (h *FileHandler) storeOne(ctx context.Context, userID uuid.UUID, sessionID *uuid.UUID, header *multipart.FileHeader) (*models.File, error) {
	category, err := h.storage.ValidateUpload(header.Filename, header.Size)
	if err != nil {
		return nil, err
	}

	src, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = services.ContentTypeForExt(header.Filename)
	}

	objectName := services.UniqueObjectName(userID, header.Filename)
	if err := h.storage.Upload(ctx, objectName, src, header.Size, contentType); err != nil {
		return nil, err
	}

	file := &models.File{
		UserID:           userID,
		SessionID:        sessionID,
		OriginalFilename: header.Filename,
		ObjectName:       objectName,
		Size:             header.Size,
		ContentType:      contentType,
		Category:         category,
		Status:           models.FileStatusActive,
	}
	if err := h.fileRepo.Create(ctx, file); err != nil {
		if delErr := h.storage.Delete(ctx, objectName); delErr != nil {
			log.Printf("failed to roll back object %s: %v", objectName, delErr)
		}
		return nil, err
	}
	return file, nil
}

func (h *FileHandler) Get(w http.ResponseWriter, r *http.Request) {
	file, ok := h.fetchFile(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, file)
}

func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid or missing user_id", r))
		return
	}

	page, perPage, offset := parsePagination(r)
	files, total, err := h.fileRepo.ListByUser(r.Context(), userID, perPage, offset)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch files", r))
		return
	}

	writeJSON(w, http.StatusOK, models.FileList{
		Files:   files,
		Total:   total,
		Page:    page,
		PerPage: perPage,
	})
}

func (h *FileHandler) Update(w http.ResponseWriter, r *http.Request) {
	file, ok := h.fetchFile(w, r)
	if !ok {
		return
	}

	var req models.UpdateFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if !validateRequest(w, r, &req) {
		return
	}

	updated, err := h.fileRepo.Update(r.Context(), file.ID, req)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to update file", r))
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// Delete runs the two-phase delete: mark the row deleting, remove the object,
// then remove the row. If the object removal fails the row stays in the
// deleting state and the reconciliation sweeper finishes the job later.
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	file, ok := h.fetchFile(w, r)
	if !ok {
		return
	}

	if err := h.fileRepo.MarkDeleting(r.Context(), file.ID); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to delete file", r))
		return
	}

	if err := h.storage.Delete(r.Context(), file.ObjectName); err != nil {
		log.Printf("object delete for %s deferred to reconciler: %v", file.ObjectName, err)
		writeJSON(w, http.StatusAccepted, map[string]string{"message": "File delete scheduled"})
		return
	}

	if err := h.fileRepo.DeleteRow(r.Context(), file.ID); err != nil {
		log.Printf("row delete for file %s deferred to reconciler: %v", file.ID, err)
		writeJSON(w, http.StatusAccepted, map[string]string{"message": "File delete scheduled"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "File deleted"})
}

// DownloadURL signs a time-limited GET URL and bumps the download counter.
func (h *FileHandler) DownloadURL(w http.ResponseWriter, r *http.Request) {
	file, ok := h.fetchFile(w, r)
	if !ok {
		return
	}

	url, expiresAt, err := h.storage.SignedDownloadURL(r.Context(), file.ObjectName, file.OriginalFilename)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to sign download URL", r))
		return
	}

	if err := h.fileRepo.IncrementDownloadCount(r.Context(), file.ID); err != nil {
		log.Printf("failed to bump download count for file %s: %v", file.ID, err)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"url":        url,
		"expires_at": expiresAt,
	})
}

// SignedUploadURLs issues presigned PUT URLs so clients can push large files
// straight to object storage.
func (h *FileHandler) SignedUploadURLs(w http.ResponseWriter, r *http.Request) {
	var req models.SignedUploadURLsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if !validateRequest(w, r, &req) {
		return
	}

	urls := make([]models.SignedUploadURL, 0, len(req.Files))
	for _, item := range req.Files {
		if _, err := h.storage.ValidateUpload(item.Filename, item.Size); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", err.Error(), r))
			return
		}

		objectName := services.UniqueObjectName(req.UserID, item.Filename)
		url, expiresAt, err := h.storage.SignedUploadURL(r.Context(), objectName)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to sign upload URL", r))
			return
		}

		urls = append(urls, models.SignedUploadURL{
			OriginalFilename: item.Filename,
			ObjectName:       objectName,
			URL:              url,
			Method:           http.MethodPut,
			ExpiresAt:        expiresAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"upload_urls": urls})
}

// Register records a file pushed through a signed upload URL. The object must
// already exist in storage.
func (h *FileHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID           uuid.UUID  `json:"user_id" validate:"required"`
		SessionID        *uuid.UUID `json:"session_id"`
		ObjectName       string     `json:"object_name" validate:"required"`
		OriginalFilename string     `json:"original_filename" validate:"required,min=1,max=255"`
		Size             int64      `json:"size" validate:"required,gt=0"`
		ContentType      string     `json:"content_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if !validateRequest(w, r, &req) {
		return
	}

	category, err := h.storage.ValidateUpload(req.OriginalFilename, req.Size)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", err.Error(), r))
		return
	}

	exists, err := h.storage.Exists(r.Context(), req.ObjectName)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to verify upload", r))
		return
	}
	if !exists {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Object has not been uploaded", r))
		return
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = services.ContentTypeForExt(req.OriginalFilename)
	}

	file := &models.File{
		UserID:           req.UserID,
		SessionID:        req.SessionID,
		OriginalFilename: req.OriginalFilename,
		ObjectName:       req.ObjectName,
		Size:             req.Size,
		ContentType:      contentType,
		Category:         category,
		Status:           models.FileStatusActive,
	}
	if err := h.fileRepo.Create(r.Context(), file); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to record file", r))
		return
	}

	writeJSON(w, http.StatusCreated, file)
}

func (h *FileHandler) fetchFile(w http.ResponseWriter, r *http.Request) (*models.File, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid file ID", r))
		return nil, false
	}

	file, err := h.fileRepo.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "File not found", r))
		return nil, false
	}
	return file, true
}
