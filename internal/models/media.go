package models

import (
	"time"

	"github.com/google/uuid"
)

// Audio and Video rows are lightweight task records: they track one synthesis
// or generation request from submission to its terminal state.
const (
	TaskStatusPending    = "pending"
	TaskStatusProcessing = "processing"
	TaskStatusCompleted  = "completed"
	TaskStatusFailed     = "failed"
)

type Audio struct {
	ID           uuid.UUID  `json:"id"`
	UserEmail    string     `json:"user_email"`
	TextInput    string     `json:"text_input"`
	VoiceName    string     `json:"voice_name"`
	LanguageCode string     `json:"language_code"`
	AudioFormat  string     `json:"audio_format"`
	Status       string     `json:"status"`
	ObjectName   *string    `json:"object_name"`
	FileSize     *int64     `json:"file_size"`
	ErrorMessage *string    `json:"error_message"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at"`
}

type SynthesizeAudioRequest struct {
	UserEmail    string `json:"user_email" validate:"required,email"`
	Text         string `json:"text" validate:"required,min=1,max=5000"`
	VoiceName    string `json:"voice_name" validate:"omitempty,max=64"`
	LanguageCode string `json:"language_code" validate:"omitempty,max=16"`
	AudioFormat  string `json:"audio_format" validate:"omitempty,oneof=MP3 OGG_OPUS LINEAR16"`
}

type Video struct {
	ID           uuid.UUID  `json:"id"`
	UserEmail    string     `json:"user_email"`
	Prompt       string     `json:"prompt"`
	Model        string     `json:"model"`
	TaskID       *string    `json:"task_id"`
	Status       string     `json:"status"`
	ObjectName   *string    `json:"object_name"`
	VideoURL     *string    `json:"video_url"`
	FileSize     *int64     `json:"file_size"`
	ErrorMessage *string    `json:"error_message"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at"`
}

type CreateVideoRequest struct {
	UserEmail string `json:"user_email" validate:"required,email"`
	Prompt    string `json:"prompt" validate:"required,min=1,max=2000"`
	Model     string `json:"model" validate:"omitempty,max=64"`
}

type UpdateVideoRequest struct {
	Status   *string `json:"status" validate:"omitempty,oneof=pending processing completed failed"`
	VideoURL *string `json:"video_url"`
}
