package models

import (
	"time"

	"github.com/google/uuid"
)

// File status lifecycle. "deleting" marks rows whose object-store delete has
// been issued but whose row removal has not completed yet; the reconciliation
// sweeper retries those.
const (
	FileStatusActive   = "active"
	FileStatusDeleting = "deleting"
)

// File categories, derived from the upload's extension.
const (
	FileCategoryDocument = "document"
	FileCategoryImage    = "image"
	FileCategoryAudio    = "audio"
	FileCategoryVideo    = "video"
	FileCategoryOther    = "other"
)

type File struct {
	ID               uuid.UUID  `json:"id"`
	UserID           uuid.UUID  `json:"user_id"`
	SessionID        *uuid.UUID `json:"session_id"`
	OriginalFilename string     `json:"original_filename"`
	ObjectName       string     `json:"object_name"` // unique name in the object store
	Size             int64      `json:"size"`
	ContentType      string     `json:"content_type"`
	Category         string     `json:"category"`
	Status           string     `json:"status"`
	PublicURL        *string    `json:"public_url"`
	DownloadCount    int        `json:"download_count"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        *time.Time `json:"updated_at"`
}

type UpdateFileRequest struct {
	OriginalFilename *string    `json:"original_filename" validate:"omitempty,min=1,max=255"`
	SessionID        *uuid.UUID `json:"session_id"`
}

type FileList struct {
	Files   []*File `json:"files"`
	Total   int     `json:"total"`
	Page    int     `json:"page"`
	PerPage int     `json:"per_page"`
}

type SignedUploadItem struct {
	Filename    string `json:"filename" validate:"required,min=1,max=255"`
	Size        int64  `json:"size" validate:"required,gt=0"`
	ContentType string `json:"content_type" validate:"required"`
}

type SignedUploadURLsRequest struct {
	UserID uuid.UUID          `json:"user_id" validate:"required"`
	Files  []SignedUploadItem `json:"files" validate:"required,min=1,max=20,dive"`
}

type SignedUploadURL struct {
	OriginalFilename string    `json:"original_filename"`
	ObjectName       string    `json:"object_name"`
	URL              string    `json:"url"`
	Method           string    `json:"method"`
	ExpiresAt        time.Time `json:"expires_at"`
}
