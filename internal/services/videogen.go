package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// VideoGenService talks to the external video generation API: task creation,
// status polling, and artifact download.
type VideoGenService struct {
	apiKey       string
	baseURL      string
	model        string
	framesModel  string
	pollInterval time.Duration
	maxWait      time.Duration
	storagePath  string
	httpClient   *http.Client
}

type VideoGenConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	FramesModel  string
	PollInterval time.Duration
	MaxWait      time.Duration
	HTTPTimeout  time.Duration
	StoragePath  string
}

func NewVideoGenService(cfg VideoGenConfig) *VideoGenService {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = 15 * time.Minute
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	return &VideoGenService{
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		model:        cfg.Model,
		framesModel:  cfg.FramesModel,
		pollInterval: cfg.PollInterval,
		maxWait:      cfg.MaxWait,
		storagePath:  cfg.StoragePath,
		httpClient:   &http.Client{Timeout: cfg.HTTPTimeout},
	}
}

func (s *VideoGenService) doJSON(ctx context.Context, method, reqURL string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request payload: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, &TransportError{Op: method + " " + reqURL, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: method + " " + reqURL, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: method + " " + reqURL, Err: err}
	}
	return raw, nil
}

// CreateTask submits a generation request and returns the opaque task id.
// When reference images are supplied the frames-capable model is used.
func (s *VideoGenService) CreateTask(ctx context.Context, prompt, model string, enhancePrompt bool, images []string) (string, error) {
	if model == "" {
		model = s.model
	}

	payload := map[string]any{
		"prompt":         prompt,
		"model":          model,
		"enhance_prompt": enhancePrompt,
	}
	if len(images) > 0 {
		payload["images"] = images
		payload["model"] = s.framesModel
	}

	raw, err := s.doJSON(ctx, http.MethodPost, s.baseURL+"/v1/video/create", payload)
	if err != nil {
		return "", err
	}

	taskID := extractTaskID(raw)
	if taskID == "" {
		return "", &TaskCreationError{RawBody: string(raw)}
	}
	return taskID, nil
}

// PollResult is the outcome of a successful poll.
type PollResult struct {
	VideoURL string
	Elapsed  time.Duration
}

// PollTask queries task status on a fixed interval until a terminal state,
// the wait ceiling, or context cancellation. A single failed poll is logged
// and skipped; only a terminal-failure status or the ceiling ends the loop.
func (s *VideoGenService) PollTask(ctx context.Context, taskID string) (PollResult, error) {
	start := time.Now()
	queryURL := s.baseURL + "/v1/video/query?id=" + url.QueryEscape(taskID)

	for {
		elapsed := time.Since(start)
		if elapsed > s.maxWait {
			return PollResult{}, &PollTimeoutError{TaskID: taskID, Elapsed: elapsed}
		}

		raw, err := s.doJSON(ctx, http.MethodGet, queryURL, nil)
		if err != nil {
			if ctx.Err() != nil {
				return PollResult{}, &TransportError{Op: "poll " + taskID, Err: ctx.Err()}
			}
			log.Printf("polling error for task %s (will retry): %v", taskID, err)
		} else {
			info := extractStatusInfo(raw)

			switch {
			case isSuccessStatus(info.Status):
				if info.VideoURL == "" {
					return PollResult{}, &MissingResultError{TaskID: taskID}
				}
				return PollResult{VideoURL: info.VideoURL, Elapsed: time.Since(start)}, nil

			case isFailureStatus(info.Status):
				reason := info.ErrorMsg
				if reason == "" {
					reason = "Unknown error"
				}
				return PollResult{}, &TaskFailedError{TaskID: taskID, Status: info.Status, Reason: reason}
			}

			if info.Progress != "" {
				log.Printf("task %s progress: %s%%", taskID, info.Progress)
			} else if info.Status != "" {
				log.Printf("task %s status: %s", taskID, info.Status)
			}
		}

		select {
		case <-ctx.Done():
			return PollResult{}, &TransportError{Op: "poll " + taskID, Err: ctx.Err()}
		case <-time.After(s.pollInterval):
		}
	}
}

// Download streams the artifact to destPath in bounded chunks, writing to a
// temp file and renaming on success so a partial file never masquerades as a
// complete one.
func (s *VideoGenService) Download(ctx context.Context, videoURL, destPath string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return 0, &DownloadError{URL: videoURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, videoURL, nil)
	if err != nil {
		return 0, &DownloadError{URL: videoURL, Err: err}
	}

	// Artifacts can be tens of megabytes; allow more than the API timeout.
	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return 0, &DownloadError{URL: videoURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, &DownloadError{URL: videoURL, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return 0, &DownloadError{URL: videoURL, Err: err}
	}

	written, err := io.Copy(f, resp.Body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpPath)
		return 0, &DownloadError{URL: videoURL, Err: err}
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return 0, &DownloadError{URL: videoURL, Err: err}
	}
	return written, nil
}

// VideoFilePath returns the scratch location for a generated video.
func (s *VideoGenService) VideoFilePath(outputVideoID uuid.UUID, format string) string {
	if format == "" {
		format = "mp4"
	}
	return filepath.Join(s.storagePath, "generated_video", fmt.Sprintf("%s.%s", outputVideoID, format))
}

// GenerateResult is the outcome of a full create -> poll -> download run.
type GenerateResult struct {
	TaskID     string
	OutputPath string
	FileSize   int64
	VideoURL   string
	Elapsed    time.Duration
}

// GenerateComplete runs the full workflow: create task, poll to completion,
// download the artifact.
func (s *VideoGenService) GenerateComplete(ctx context.Context, prompt string, outputVideoID uuid.UUID, model string, enhancePrompt bool, images []string) (GenerateResult, error) {
	log.Printf("creating video task with prompt: %.100s...", prompt)
	taskID, err := s.CreateTask(ctx, prompt, model, enhancePrompt, images)
	if err != nil {
		return GenerateResult{}, err
	}
	log.Printf("task created, id: %s", taskID)

	poll, err := s.PollTask(ctx, taskID)
	if err != nil {
		return GenerateResult{TaskID: taskID}, err
	}
	log.Printf("video generation completed, url: %s", poll.VideoURL)

	outputPath := s.VideoFilePath(outputVideoID, "mp4")
	size, err := s.Download(ctx, poll.VideoURL, outputPath)
	if err != nil {
		return GenerateResult{TaskID: taskID, VideoURL: poll.VideoURL}, err
	}

	return GenerateResult{
		TaskID:     taskID,
		OutputPath: outputPath,
		FileSize:   size,
		VideoURL:   poll.VideoURL,
		Elapsed:    poll.Elapsed,
	}, nil
}
