package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"reelgen-backend/internal/models"
)

// AnalysisResult is the outcome of a content analysis call. When the model
// response cannot be parsed as the expected JSON contract, Degraded is set
// and the raw text is carried in both prompts so callers can still proceed.
type AnalysisResult struct {
	Analysis           *models.PromptAnalysis
	VideoPrompt        string
	AudioPrompt        string
	EnhancedUserPrompt string
	Degraded           bool
	Warning            string
}

// AnalyzerService turns user input and extracted document text into structured
// video and audio generation prompts via Gemini.
type AnalyzerService struct {
	client *genai.Client
	model  *genai.GenerativeModel
	sem    chan struct{}
}

func NewAnalyzerService(ctx context.Context, apiKey string, concurrent int) (*AnalyzerService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	if concurrent < 1 {
		concurrent = 1
	}

	model := client.GenerativeModel("gemini-1.5-flash")
	model.SetTemperature(0.7)

	return &AnalyzerService{
		client: client,
		model:  model,
		sem:    make(chan struct{}, concurrent),
	}, nil
}

func (s *AnalyzerService) Close() error {
	return s.client.Close()
}

// modelFor returns an independent model carrying the given system
// instruction. The shared base model is never mutated: the semaphore admits
// several calls at once, and each must keep its own instruction.
func (s *AnalyzerService) modelFor(systemPrompt string) *genai.GenerativeModel {
	m := *s.model
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}
	return &m
}

func (s *AnalyzerService) generate(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	resp, err := s.modelFor(systemPrompt).GenerateContent(ctx, genai.Text(userMessage))
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String(), nil
}

// Analyze runs the plain content analysis used by the /content-generation
// endpoints, without any document context.
func (s *AnalyzerService) Analyze(ctx context.Context, userInput string, userContext *string) (AnalysisResult, error) {
	raw, err := s.generate(ctx, analysisSystemPrompt, buildAnalysisUserMessage(userInput, userContext))
	if err != nil {
		return AnalysisResult{}, err
	}
	return parseAnalysisResponse(raw), nil
}

// AnalyzeWithDocuments runs the document-grounded analysis used by the
// session pipeline. The category selects the creative context.
func (s *AnalyzerService) AnalyzeWithDocuments(ctx context.Context, userPrompt, docContent, category string) (AnalysisResult, error) {
	raw, err := s.generate(ctx, documentAnalysisSystemPrompt(category), buildDocumentAnalysisUserMessage(userPrompt, docContent))
	if err != nil {
		return AnalysisResult{}, err
	}
	return parseAnalysisResponse(raw), nil
}

// RefinePrompt adjusts a previously generated prompt according to user
// feedback. promptType is "video" or "audio".
func (s *AnalyzerService) RefinePrompt(ctx context.Context, original, feedback, promptType string) (string, error) {
	systemPrompt := videoRefinementSystemPrompt
	if promptType == "audio" {
		systemPrompt = audioRefinementSystemPrompt
	}

	userMessage := fmt.Sprintf("Original prompt: %s\n\nUser feedback: %s\n\nPlease provide the optimized prompt:", original, feedback)

	raw, err := s.generate(ctx, systemPrompt, userMessage)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

// analysisContract mirrors the JSON structure the analysis prompts ask for.
type analysisContract struct {
	Analysis           *models.PromptAnalysis `json:"analysis"`
	VideoPrompt        string                 `json:"video_prompt"`
	AudioPrompt        string                 `json:"audio_prompt"`
	EnhancedUserPrompt string                 `json:"enhanced_user_prompt"`
}

// parseAnalysisResponse extracts the structured contract from a model
// response. Parse failures never become errors: the raw text is used for
// both prompts and the result is flagged as degraded.
func parseAnalysisResponse(raw string) AnalysisResult {
	cleaned := stripJSONFences(raw)

	var contract analysisContract
	if err := json.Unmarshal([]byte(cleaned), &contract); err == nil && (contract.VideoPrompt != "" || contract.AudioPrompt != "") {
		return AnalysisResult{
			Analysis:           contract.Analysis,
			VideoPrompt:        contract.VideoPrompt,
			AudioPrompt:        contract.AudioPrompt,
			EnhancedUserPrompt: contract.EnhancedUserPrompt,
		}
	}

	// Salvage attempt: the model sometimes wraps valid JSON in prose.
	if start, end := strings.Index(cleaned, "{"), strings.LastIndex(cleaned, "}"); start >= 0 && end > start {
		if err := json.Unmarshal([]byte(cleaned[start:end+1]), &contract); err == nil && (contract.VideoPrompt != "" || contract.AudioPrompt != "") {
			return AnalysisResult{
				Analysis:           contract.Analysis,
				VideoPrompt:        contract.VideoPrompt,
				AudioPrompt:        contract.AudioPrompt,
				EnhancedUserPrompt: contract.EnhancedUserPrompt,
			}
		}
	}

	log.Printf("analysis response is not valid JSON, falling back to raw text")
	text := strings.TrimSpace(raw)
	return AnalysisResult{
		VideoPrompt: text,
		AudioPrompt: text,
		Degraded:    true,
		Warning:     "model response was not valid JSON; raw text used for both prompts",
	}
}

func stripJSONFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}
