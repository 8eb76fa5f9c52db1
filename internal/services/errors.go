package services

import (
	"fmt"
	"time"
)

// TransportError wraps a network or HTTP-level failure talking to an external
// collaborator.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport error: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// TaskCreationError means the generation API answered but no task identifier
// could be extracted. RawBody is kept for diagnosis.
type TaskCreationError struct {
	RawBody string
}

func (e *TaskCreationError) Error() string {
	return fmt.Sprintf("failed to extract task ID from response: %s", e.RawBody)
}

// MissingResultError means the task reported success but no result location
// was resolvable. Never treated as silent success.
type MissingResultError struct {
	TaskID string
}

func (e *MissingResultError) Error() string {
	return fmt.Sprintf("task %s completed but no video URL found", e.TaskID)
}

// TaskFailedError carries the remote task's own failure message.
type TaskFailedError struct {
	TaskID string
	Status string
	Reason string
}

func (e *TaskFailedError) Error() string {
	return fmt.Sprintf("task %s failed: %s", e.TaskID, e.Reason)
}

// PollTimeoutError means the polling ceiling was exceeded. Elapsed lets the
// caller decide between resubmission and abandonment.
type PollTimeoutError struct {
	TaskID  string
	Elapsed time.Duration
}

func (e *PollTimeoutError) Error() string {
	return fmt.Sprintf("task %s polling timeout after %s", e.TaskID, e.Elapsed.Round(time.Second))
}

// DownloadError means the artifact fetch failed; no partial file is left at
// the destination.
type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("failed to download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// SessionBusyError means another processing attempt holds the session lease.
type SessionBusyError struct {
	SessionID string
}

func (e *SessionBusyError) Error() string {
	return fmt.Sprintf("session %s is already being processed", e.SessionID)
}
