package gemini

import (
	"strings"

	provider "github.com/Cyclone1070/polish/internal/provider/models"
	"gitlab.com/tozd/go/errors"
	"google.golang.org/genai"
)

// toGeminiContents converts the user prompt to Gemini contents.
func toGeminiContents(req *provider.Request) []*genai.Content {
	return []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: req.UserPrompt}},
		},
	}
}

// toGeminiConfig converts the request options to a Gemini config.
func toGeminiConfig(req *provider.Request) *genai.GenerateContentConfig {
	geminiConfig := &genai.GenerateContentConfig{
		SafetySettings: defaultSafetySettings(),
	}

	if req.SystemPrompt != "" {
		geminiConfig.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		}
	}
	if req.JSONMode {
		geminiConfig.ResponseMIMEType = "application/json"
	}

	if req.Config == nil {
		return geminiConfig
	}
	if req.Config.Temperature != nil {
		geminiConfig.Temperature = req.Config.Temperature
	}
	if req.Config.MaxOutputTokens != nil {
		geminiConfig.MaxOutputTokens = int32(*req.Config.MaxOutputTokens)
	}

	return geminiConfig
}

// defaultSafetySettings returns safety settings with BLOCK_NONE for all categories.
func defaultSafetySettings() []*genai.SafetySetting {
	return []*genai.SafetySetting{
		{
			Category:  genai.HarmCategoryHateSpeech,
			Threshold: genai.HarmBlockThresholdOff,
		},
		{
			Category:  genai.HarmCategoryDangerousContent,
			Threshold: genai.HarmBlockThresholdOff,
		},
		{
			Category:  genai.HarmCategoryHarassment,
			Threshold: genai.HarmBlockThresholdOff,
		},
		{
			Category:  genai.HarmCategorySexuallyExplicit,
			Threshold: genai.HarmBlockThresholdOff,
		},
	}
}

// deltaFromResponse joins the text parts of the first candidate and reports
// whether it stopped early. Text carried with an early stop is kept.
func deltaFromResponse(resp *genai.GenerateContentResponse) (string, provider.FinishReason) {
	if len(resp.Candidates) == 0 {
		return "", provider.FinishReasonNone
	}
	candidate := resp.Candidates[0]

	finish := provider.FinishReasonNone
	switch candidate.FinishReason {
	case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent, genai.FinishReasonBlocklist:
		finish = provider.FinishReasonBlocked
	case genai.FinishReasonMaxTokens:
		finish = provider.FinishReasonMaxTokens
	}

	if candidate.Content == nil {
		return "", finish
	}
	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if part.Text != "" && !part.Thought {
			text.WriteString(part.Text)
		}
	}
	return text.String(), finish
}

// fromGeminiUsage converts usage metadata.
func fromGeminiUsage(usage *genai.GenerateContentResponseUsageMetadata) *provider.Usage {
	return &provider.Usage{
		PromptTokens:     int64(usage.PromptTokenCount),
		CompletionTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:      int64(usage.TotalTokenCount),
	}
}

// mapGeminiError maps Gemini API errors to provider errors.
func mapGeminiError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return provider.ErrorFromStatus(apiErr.Code, apiErr.Message, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return provider.ErrorFromStatus(apiErrPtr.Code, apiErrPtr.Message, err)
	}

	// Generic network error
	return &provider.ProviderError{
		Code:       provider.ErrorCodeNetwork,
		Message:    "network error: " + err.Error(),
		Underlying: err,
		Retryable:  true,
	}
}
