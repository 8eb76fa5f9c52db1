package services

import (
	"fmt"
	"strings"

	"reelgen-backend/internal/models"
)

// Category contexts steer the analysis toward the kind of video being made.

const congratulationContext = `You are creating a congratulation video. This should be:
- Celebratory and positive in tone
- Highlighting achievements and milestones
- Including warm, encouraging messages
- Suitable for occasions like graduations, promotions, anniversaries, or personal achievements
- Professional yet heartfelt`

const eventPropagationContext = `You are creating an event propagation/promotional video. This should be:
- Informative and engaging
- Highlighting key event details (date, time, location, purpose)
- Creating excitement and encouraging attendance
- Clear call-to-action for registration or participation
- Professional and persuasive tone`

const generalContext = "You are creating a general purpose video based on the provided content."

func categoryContext(category string) string {
	switch category {
	case models.CategoryCongratulation:
		return congratulationContext
	case models.CategoryEventPropagation:
		return eventPropagationContext
	default:
		return generalContext
	}
}

const analysisSystemPrompt = `You are a professional creative content analyst and prompt engineer. Your task is to:

1. Deeply understand the user's input content and intent
2. Generate two specialized prompts:
   - Video generation prompt: for AI video generation models, specifically describe visual scenes, actions, styles
   - Audio generation prompt: for text-to-speech, natural and fluent narrative text

Return results in the following JSON format:
{
    "analysis": {
        "main_theme": "Content theme",
        "key_elements": ["Key element 1", "Key element 2"],
        "style_preference": "Style preference",
        "mood": "Emotional atmosphere"
    },
    "video_prompt": "Detailed video generation prompt, including scenes, actions, visual styles",
    "audio_prompt": "Natural narrative text suitable for speech conversion"
}

Note:
- Video prompts should specifically describe visual elements, avoid abstract concepts
- Audio prompts should be complete sentences suitable for reading aloud
- Both prompts should work together to form a complete content experience`

func documentAnalysisSystemPrompt(category string) string {
	return fmt.Sprintf(`You are a professional creative content analyst and video prompt engineer specializing in document-based video creation. %s

Your task is to:
1. Analyze the provided document content and user instructions
2. Extract key information, themes, and important details from the documents
3. Generate two specialized prompts based on this analysis:
   - Video generation prompt: describing visual scenes, actions, styles
   - Audio generation prompt: natural narrative text suitable for text-to-speech

Return results in JSON format:
{
    "analysis": {
        "main_theme": "Primary theme from document content",
        "key_elements": ["Visual element 1", "Visual element 2", "Visual element 3"],
        "important_details": ["Critical detail 1", "Critical detail 2"],
        "style_preference": "Recommended visual style",
        "mood": "Emotional atmosphere",
        "pdf_summary": "Brief summary of document content"
    },
    "video_prompt": "Video prompt with ALL analysis elements integrated as visual components",
    "audio_prompt": "Natural narrative script incorporating important_details and key_elements",
    "enhanced_user_prompt": "Enhanced user prompt with document-specific visual elements"
}

Guidelines:
- Transform document text content into specific visual scenes and objects
- Include exact names, dates, facts from documents as visual elements
- Make abstract concepts concrete and visually representable
- Ensure the video prompt can generate a scene that communicates the documents' core message`, categoryContext(category))
}

const videoRefinementSystemPrompt = `You are a video generation prompt expert. Based on user feedback, optimize and improve video generation prompts.

Requirements:
1. Maintain the core content of the original prompt
2. Make adjustments based on user feedback
3. Ensure the prompt is specific, clear, and suitable for AI video generation
4. Return the optimized prompt only`

const audioRefinementSystemPrompt = `You are an audio generation text expert. Based on user feedback, optimize and improve audio generation text.

Requirements:
1. Maintain the core content of the original text
2. Make adjustments based on user feedback
3. Ensure the text is natural and fluent, suitable for reading aloud
4. Return the optimized audio text only`

// Document text is hard-truncated before submission to respect upstream
// token limits.
const maxDocumentChars = 12000

func buildAnalysisUserMessage(userInput string, userContext *string) string {
	var b strings.Builder
	b.WriteString("User input: ")
	b.WriteString(userInput)
	if userContext != nil && *userContext != "" {
		b.WriteString("\n\nAdditional context: ")
		b.WriteString(*userContext)
	}
	return b.String()
}

func buildDocumentAnalysisUserMessage(userPrompt, docContent string) string {
	if len(docContent) > maxDocumentChars {
		docContent = docContent[:maxDocumentChars]
	}

	var b strings.Builder
	b.WriteString("User instructions: ")
	b.WriteString(userPrompt)
	b.WriteString("\n\n---DOCUMENT CONTENT START---\n")
	b.WriteString(docContent)
	b.WriteString("\n---DOCUMENT CONTENT END---\n")
	return b.String()
}
