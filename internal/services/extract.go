package services

import (
	"encoding/json"
	"fmt"
	"strings"
)

// The generation API's response schema has drifted over the integration's
// lifetime, so every logical field is probed through an ordered list of
// candidate paths. The first non-empty match wins; the order below is the
// contract and is covered by tests.

type fieldExtractor func(body map[string]any) string

// path returns an extractor that walks nested objects by key.
func path(keys ...string) fieldExtractor {
	return func(body map[string]any) string {
		var current any = body
		for _, key := range keys {
			m, ok := current.(map[string]any)
			if !ok {
				return ""
			}
			current = m[key]
		}
		return stringify(current)
	}
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		// JSON numbers decode as float64; task ids are sometimes numeric.
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%v", val)
	case bool:
		return fmt.Sprintf("%v", val)
	default:
		return ""
	}
}

var taskIDExtractors = []fieldExtractor{
	path("data", "id"),
	path("id"),
	path("result", "id"),
	path("task_id"),
	path("data", "task_id"),
	path("detail", "id"),
}

var statusExtractors = []fieldExtractor{
	path("data", "status"),
	path("status"),
	path("result", "status"),
	path("detail", "status"),
}

var videoURLExtractors = []fieldExtractor{
	path("data", "url"),
	path("data", "video_url"),
	path("data", "video"),
	path("url"),
	path("result", "url"),
	path("result", "video_url"),
	path("video_url"),
	path("detail", "video_url"),
	path("detail", "url"),
}

var progressExtractors = []fieldExtractor{
	path("data", "progress"),
	path("progress"),
	path("result", "progress"),
	path("detail", "progress"),
}

var errorExtractors = []fieldExtractor{
	path("data", "error"),
	path("error"),
	path("result", "error"),
	path("detail", "error"),
}

func extractFirst(body map[string]any, extractors []fieldExtractor) string {
	for _, extract := range extractors {
		if v := extract(body); v != "" {
			return v
		}
	}
	return ""
}

// extractTaskID resolves the opaque task identifier from a create response.
// A bare JSON string body is itself treated as the identifier.
func extractTaskID(raw []byte) string {
	var bare string
	if err := json.Unmarshal(raw, &bare); err == nil {
		return strings.TrimSpace(bare)
	}

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	return extractFirst(body, taskIDExtractors)
}

type statusInfo struct {
	Status   string
	VideoURL string
	Progress string
	ErrorMsg string
}

func extractStatusInfo(raw []byte) statusInfo {
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return statusInfo{}
	}
	return statusInfo{
		Status:   extractFirst(body, statusExtractors),
		VideoURL: extractFirst(body, videoURLExtractors),
		Progress: extractFirst(body, progressExtractors),
		ErrorMsg: extractFirst(body, errorExtractors),
	}
}

// Terminal status tokens, matched case-insensitively. Anything else is
// treated as still pending.
var successStatuses = map[string]bool{
	"succeeded": true,
	"finished":  true,
	"complete":  true,
	"completed": true,
	"done":      true,
	"ok":        true,
	"success":   true,
}

var failureStatuses = map[string]bool{
	"failed":    true,
	"error":     true,
	"cancelled": true,
	"canceled":  true,
}

func isSuccessStatus(status string) bool {
	return successStatuses[strings.ToLower(status)]
}

func isFailureStatus(status string) bool {
	return failureStatuses[strings.ToLower(status)]
}
