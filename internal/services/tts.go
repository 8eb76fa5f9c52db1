package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	ttsEndpoint = "https://texttospeech.googleapis.com/v1"

	DefaultVoiceName    = "en-US-Wavenet-D"
	DefaultLanguageCode = "en-US"
	DefaultAudioFormat  = "MP3"
)

// TTSService synthesizes narration audio through the Google Cloud
// Text-to-Speech REST API.
type TTSService struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

func NewTTSService(apiKey string, timeout time.Duration) *TTSService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &TTSService{
		apiKey:   apiKey,
		endpoint: ttsEndpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether an API key was configured.
func (s *TTSService) Enabled() bool { return s.apiKey != "" }

type ttsSynthesizeRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		Name         string `json:"name"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string `json:"audioEncoding"`
	} `json:"audioConfig"`
}

type ttsSynthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

// Synthesize converts text to audio bytes. Empty voice, language, or format
// fall back to the service defaults.
func (s *TTSService) Synthesize(ctx context.Context, text, voiceName, languageCode, audioFormat string) ([]byte, error) {
	if !s.Enabled() {
		return nil, fmt.Errorf("text-to-speech is not configured")
	}
	if voiceName == "" {
		voiceName = DefaultVoiceName
	}
	if languageCode == "" {
		languageCode = DefaultLanguageCode
	}
	if audioFormat == "" {
		audioFormat = DefaultAudioFormat
	}

	var reqBody ttsSynthesizeRequest
	reqBody.Input.Text = text
	reqBody.Voice.LanguageCode = languageCode
	reqBody.Voice.Name = voiceName
	reqBody.AudioConfig.AudioEncoding = audioFormat

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("encoding synthesis request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/text:synthesize?key=%s", s.endpoint, url.QueryEscape(s.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "tts synthesize", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "tts synthesize", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tts request failed with status %d: %s", resp.StatusCode, truncateBody(body))
	}

	var parsed ttsSynthesizeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decoding synthesis response: %w", err)
	}
	if parsed.AudioContent == "" {
		return nil, fmt.Errorf("tts response contained no audio")
	}

	audio, err := base64.StdEncoding.DecodeString(parsed.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("decoding audio content: %w", err)
	}
	return audio, nil
}

// Voice describes one available synthesis voice.
type Voice struct {
	Name          string   `json:"name"`
	LanguageCodes []string `json:"languageCodes"`
	Gender        string   `json:"ssmlGender"`
}

type ttsVoicesResponse struct {
	Voices []Voice `json:"voices"`
}

// ListVoices returns the voices available for a language code, or all voices
// when the code is empty.
func (s *TTSService) ListVoices(ctx context.Context, languageCode string) ([]Voice, error) {
	if !s.Enabled() {
		return nil, fmt.Errorf("text-to-speech is not configured")
	}

	endpoint := fmt.Sprintf("%s/voices?key=%s", s.endpoint, url.QueryEscape(s.apiKey))
	if languageCode != "" {
		endpoint += "&languageCode=" + url.QueryEscape(languageCode)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "tts list voices", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "tts list voices", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("voices request failed with status %d: %s", resp.StatusCode, truncateBody(body))
	}

	var parsed ttsVoicesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decoding voices response: %w", err)
	}
	return parsed.Voices, nil
}

// AudioExtension maps a synthesis format to a filename extension.
func AudioExtension(audioFormat string) string {
	switch audioFormat {
	case "OGG_OPUS":
		return ".ogg"
	case "LINEAR16":
		return ".wav"
	default:
		return ".mp3"
	}
}

func truncateBody(body []byte) string {
	const max = 300
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
