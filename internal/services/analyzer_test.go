package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/generative-ai-go/genai"

	"reelgen-backend/internal/models"
)

// Concurrent calls admitted by the semaphore each need their own system
// instruction; the shared base model must stay untouched.
func TestModelForIsolatesConcurrentCalls(t *testing.T) {
	svc, err := NewAnalyzerService(context.Background(), "test-key", 3)
	if err != nil {
		t.Fatalf("NewAnalyzerService: %v", err)
	}
	defer svc.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			want := fmt.Sprintf("system prompt %d", i)
			for j := 0; j < 50; j++ {
				m := svc.modelFor(want)
				if m.SystemInstruction == nil || len(m.SystemInstruction.Parts) != 1 {
					t.Errorf("call %d: missing system instruction", i)
					return
				}
				got := string(m.SystemInstruction.Parts[0].(genai.Text))
				if got != want {
					t.Errorf("call %d: system instruction = %q, want %q", i, got, want)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	if svc.model.SystemInstruction != nil {
		t.Fatal("base model system instruction was mutated")
	}
}

func TestParseAnalysisResponse_ValidJSON(t *testing.T) {
	raw := `{
		"analysis": {"main_theme": "birthday", "key_elements": ["cake", "balloons"], "style_preference": "cheerful", "mood": "festive"},
		"video_prompt": "a festive birthday scene",
		"audio_prompt": "happy birthday narration",
		"enhanced_user_prompt": "celebrate a birthday"
	}`

	result := parseAnalysisResponse(raw)
	if result.Degraded {
		t.Fatal("valid JSON must not be flagged degraded")
	}
	if result.VideoPrompt != "a festive birthday scene" {
		t.Errorf("VideoPrompt = %q", result.VideoPrompt)
	}
	if result.AudioPrompt != "happy birthday narration" {
		t.Errorf("AudioPrompt = %q", result.AudioPrompt)
	}
	if result.Analysis == nil || result.Analysis.MainTheme != "birthday" {
		t.Errorf("Analysis = %+v", result.Analysis)
	}
	if result.EnhancedUserPrompt != "celebrate a birthday" {
		t.Errorf("EnhancedUserPrompt = %q", result.EnhancedUserPrompt)
	}
}

func TestParseAnalysisResponse_FencedJSON(t *testing.T) {
	raw := "```json\n{\"video_prompt\": \"scene\", \"audio_prompt\": \"voice\"}\n```"

	result := parseAnalysisResponse(raw)
	if result.Degraded {
		t.Fatal("fenced JSON must not be flagged degraded")
	}
	if result.VideoPrompt != "scene" || result.AudioPrompt != "voice" {
		t.Errorf("prompts = %q / %q", result.VideoPrompt, result.AudioPrompt)
	}
}

func TestParseAnalysisResponse_ProseWrappedJSON(t *testing.T) {
	raw := `Sure! Here is the analysis you asked for:
{"video_prompt": "salvaged scene", "audio_prompt": "salvaged voice"}
Let me know if you need anything else.`

	result := parseAnalysisResponse(raw)
	if result.Degraded {
		t.Fatal("salvageable JSON must not be flagged degraded")
	}
	if result.VideoPrompt != "salvaged scene" {
		t.Errorf("VideoPrompt = %q", result.VideoPrompt)
	}
}

func TestParseAnalysisResponse_GarbageFallsBackToRawText(t *testing.T) {
	raw := "  A dramatic mountain flyover at golden hour.  "

	result := parseAnalysisResponse(raw)
	if !result.Degraded {
		t.Fatal("non-JSON response must be flagged degraded")
	}
	want := "A dramatic mountain flyover at golden hour."
	if result.VideoPrompt != want || result.AudioPrompt != want {
		t.Errorf("prompts = %q / %q, want trimmed raw text for both", result.VideoPrompt, result.AudioPrompt)
	}
	if result.Warning == "" {
		t.Error("degraded result should carry a warning")
	}
}

func TestParseAnalysisResponse_EmptyPromptsAreDegraded(t *testing.T) {
	// Structurally valid JSON that carries no usable prompts is treated the
	// same as unparseable output.
	result := parseAnalysisResponse(`{"analysis": null}`)
	if !result.Degraded {
		t.Error("JSON without prompts must fall back to raw text")
	}
}

func TestStripJSONFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{`{"a":1}`, `{"a":1}`},
		{"  \n{\"a\":1}\n  ", `{"a":1}`},
	}
	for _, tt := range tests {
		if got := stripJSONFences(tt.in); got != tt.want {
			t.Errorf("stripJSONFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildAnalysisUserMessage(t *testing.T) {
	got := buildAnalysisUserMessage("make a toast video", nil)
	if got != "User input: make a toast video" {
		t.Errorf("got %q", got)
	}

	ctxStr := "for a retirement party"
	got = buildAnalysisUserMessage("make a toast video", &ctxStr)
	if !strings.Contains(got, "Additional context: for a retirement party") {
		t.Errorf("context missing from %q", got)
	}

	empty := ""
	got = buildAnalysisUserMessage("make a toast video", &empty)
	if strings.Contains(got, "Additional context") {
		t.Errorf("empty context must be omitted, got %q", got)
	}
}

func TestBuildDocumentAnalysisUserMessage_Truncation(t *testing.T) {
	doc := strings.Repeat("x", maxDocumentChars+5000)
	got := buildDocumentAnalysisUserMessage("summarize", doc)

	if strings.Count(got, "x") != maxDocumentChars {
		t.Errorf("document content not truncated to %d chars", maxDocumentChars)
	}
	if !strings.Contains(got, "---DOCUMENT CONTENT START---") || !strings.Contains(got, "---DOCUMENT CONTENT END---") {
		t.Error("document markers missing")
	}
	if !strings.HasPrefix(got, "User instructions: summarize") {
		t.Errorf("unexpected prefix in %q", got[:40])
	}
}

func TestCategoryContext(t *testing.T) {
	if categoryContext(models.CategoryCongratulation) == categoryContext(models.CategoryGeneral) {
		t.Error("congratulation category must carry its own context")
	}
	if categoryContext(models.CategoryEventPropagation) == categoryContext(models.CategoryGeneral) {
		t.Error("event_propagation category must carry its own context")
	}
	if categoryContext("unknown-thing") != categoryContext("general") {
		t.Error("unknown categories fall back to the general context")
	}
}
