package models

import "github.com/google/uuid"

// Request/response shapes for the /content-generation surface.

type AnalyzeContentRequest struct {
	UserInput   string  `json:"user_input" validate:"required,min=1,max=5000"`
	UserContext *string `json:"user_context" validate:"omitempty,max=2000"`
}

type PromptAnalysis struct {
	MainTheme        string   `json:"main_theme"`
	KeyElements      []string `json:"key_elements"`
	ImportantDetails []string `json:"important_details,omitempty"`
	StylePreference  string   `json:"style_preference"`
	Mood             string   `json:"mood"`
	DocumentSummary  string   `json:"pdf_summary,omitempty"`
}

type AnalyzeContentResponse struct {
	Success            bool            `json:"success"`
	Analysis           *PromptAnalysis `json:"analysis,omitempty"`
	VideoPrompt        string          `json:"video_prompt,omitempty"`
	AudioPrompt        string          `json:"audio_prompt,omitempty"`
	EnhancedUserPrompt string          `json:"enhanced_user_prompt,omitempty"`
	RawResponse        string          `json:"raw_response,omitempty"`
	Warning            string          `json:"warning,omitempty"`
	Error              string          `json:"error,omitempty"`
}

type RefinePromptRequest struct {
	OriginalPrompt string `json:"original_prompt" validate:"required,min=1"`
	UserFeedback   string `json:"user_feedback" validate:"required,min=1,max=1000"`
	PromptType     string `json:"prompt_type" validate:"required,oneof=video audio"`
}

type RefinePromptResponse struct {
	Success        bool   `json:"success"`
	RefinedPrompt  string `json:"refined_prompt,omitempty"`
	OriginalPrompt string `json:"original_prompt,omitempty"`
	UserFeedback   string `json:"user_feedback,omitempty"`
	Error          string `json:"error,omitempty"`
}

type GenerateVideoRequest struct {
	VideoPrompt   string    `json:"video_prompt" validate:"required,min=1,max=2000"`
	OutputVideoID uuid.UUID `json:"output_video_id" validate:"required"`
	Model         string    `json:"model" validate:"omitempty,max=64"`
	EnhancePrompt *bool     `json:"enhance_prompt"`
	ImageURL      *string   `json:"image_url" validate:"omitempty,url"`
}

type GenerateVideoResponse struct {
	Success        bool      `json:"success"`
	Message        string    `json:"message,omitempty"`
	TaskID         string    `json:"task_id,omitempty"`
	OutputPath     string    `json:"output_path,omitempty"`
	FileSize       int64     `json:"file_size,omitempty"`
	VideoURL       string    `json:"video_url,omitempty"`
	VideoID        uuid.UUID `json:"video_id,omitempty"`
	ElapsedSeconds float64   `json:"elapsed_seconds,omitempty"`
	Error          string    `json:"error,omitempty"`
}

type CompleteWorkflowRequest struct {
	UserInput     string    `json:"user_input" validate:"required,min=1,max=5000"`
	UserContext   *string   `json:"user_context" validate:"omitempty,max=2000"`
	OutputVideoID uuid.UUID `json:"output_video_id" validate:"required"`
	Model         string    `json:"model" validate:"omitempty,max=64"`
	EnhancePrompt *bool     `json:"enhance_prompt"`
	ImageURL      *string   `json:"image_url" validate:"omitempty,url"`
}

type CompleteWorkflowResponse struct {
	Success         bool                   `json:"success"`
	Analysis        *PromptAnalysis        `json:"analysis,omitempty"`
	VideoPrompt     string                 `json:"video_prompt,omitempty"`
	AudioPrompt     string                 `json:"audio_prompt,omitempty"`
	VideoGeneration *GenerateVideoResponse `json:"video_generation,omitempty"`
	Error           string                 `json:"error,omitempty"`
}

// StartProcessingResponse is the start-processing contract: pipeline failures
// are reported in-band with a 200 so clients can render partial diagnostics.
type StartProcessingResponse struct {
	Status          string             `json:"status"`
	SessionID       string             `json:"session_id"`
	AIProcessing    *PipelineDiagnosis `json:"ai_processing,omitempty"`
	OutputVideoPath string             `json:"output_video_path,omitempty"`
	VideoURL        string             `json:"video_url,omitempty"`
	TaskID          string             `json:"task_id,omitempty"`
	Error           string             `json:"error,omitempty"`
}

// PipelineDiagnosis summarizes per-stage outcomes for diagnosis. Partial
// progress from stages that succeeded before a failure is preserved.
type PipelineDiagnosis struct {
	FilesProcessed     int               `json:"files_processed"`
	FailedExtractions  int               `json:"failed_extractions"`
	TotalCharacters    int               `json:"total_characters"`
	PromptsGenerated   *GeneratedPrompts `json:"prompts_generated,omitempty"`
	Analysis           *PromptAnalysis   `json:"analysis,omitempty"`
	DegradedAnalysis   bool              `json:"degraded_analysis,omitempty"`
	Warning            string            `json:"warning,omitempty"`
	FailedStage        string            `json:"failed_stage,omitempty"`
	ElapsedPollSeconds float64           `json:"elapsed_poll_seconds,omitempty"`
}
