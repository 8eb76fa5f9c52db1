package models

import "github.com/google/uuid"

// WebSocket message envelope pushed over Redis pub/sub to connected clients.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type StatusUpdate struct {
	SessionID uuid.UUID `json:"session_id"`
	Step      int       `json:"step"`
	StepName  string    `json:"step_name"`
	Progress  int       `json:"progress,omitempty"`
}

type CompletedEvent struct {
	SessionID uuid.UUID `json:"session_id"`
	VideoURL  string    `json:"video_url,omitempty"`
	TaskID    string    `json:"task_id,omitempty"`
}

type ErrorEvent struct {
	SessionID    uuid.UUID `json:"session_id"`
	ErrorCode    string    `json:"error_code"`
	ErrorMessage string    `json:"error_message"`
}

// API error envelope.
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
