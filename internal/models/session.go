package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Session status state machine: PENDING -> PROCESSING -> {COMPLETED, FAILED}.
// A terminal session may re-enter PROCESSING on an explicit re-trigger.
const (
	SessionStatusPending    = "pending"
	SessionStatusProcessing = "processing"
	SessionStatusCompleted  = "completed"
	SessionStatusFailed     = "failed"
)

// Video categories drive the system instruction used during content analysis.
const (
	CategoryCongratulation   = "congratulation_video"
	CategoryEventPropagation = "event_propagation_video"
	CategoryGeneral          = "general"
)

func ValidCategory(c string) bool {
	switch c {
	case CategoryCongratulation, CategoryEventPropagation, CategoryGeneral:
		return true
	}
	return false
}

type VideoSession struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"user_id"`
	SessionName     *string         `json:"session_name"`
	Description     *string         `json:"description"`
	UserPrompt      *string         `json:"user_prompt"`
	Category        *string         `json:"category"`
	Status          string          `json:"status"`
	TotalFiles      int             `json:"total_files"`
	ProcessedFiles  int             `json:"processed_files"`
	OutputVideoPath *string         `json:"output_video_path"`
	OutputVideoURL  *string         `json:"video_url"`
	TaskID          *string         `json:"task_id"`
	PromptsJSON     json.RawMessage `json:"prompts"`
	ErrorMessage    *string         `json:"error_message"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       *time.Time      `json:"updated_at"`
}

type CreateSessionRequest struct {
	UserID      uuid.UUID `json:"user_id" validate:"required"`
	SessionName *string   `json:"session_name" validate:"omitempty,max=200"`
	Description *string   `json:"description" validate:"omitempty,max=2000"`
}

type UpdateSessionRequest struct {
	SessionName *string `json:"session_name" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	UserPrompt  *string `json:"user_prompt" validate:"omitempty,max=5000"`
	Category    *string `json:"category"`
}

type StartProcessingRequest struct {
	UserPrompt *string `json:"user_prompt" validate:"omitempty,min=1,max=5000"`
	Category   *string `json:"category"`
}

// GeneratedPrompts is the per-session summary persisted after a successful
// content-analysis stage.
type GeneratedPrompts struct {
	VideoPrompt        string `json:"video_prompt"`
	AudioPrompt        string `json:"audio_prompt"`
	EnhancedUserPrompt string `json:"enhanced_user_prompt,omitempty"`
	Degraded           bool   `json:"degraded,omitempty"`
}

type SessionList struct {
	Sessions []*VideoSession `json:"sessions"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PerPage  int             `json:"per_page"`
}
