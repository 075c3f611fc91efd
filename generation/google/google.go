// Package google provides a generation.Generator backed by Google's Gemini
// API, trimmed from the teacher's graph/model/google ChatModel adapter:
// single prompt/response, safety-filter error surfaced distinctly.
package google

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Generator implements generation.Generator for Gemini models.
type Generator struct {
	apiKey    string
	modelName string
}

// New returns a Generator configured for modelName. An empty modelName uses
// "gemini-2.5-flash".
func New(apiKey, modelName string) *Generator {
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}
	return &Generator{apiKey: apiKey, modelName: modelName}
}

// Generate sends systemPrompt and prompt to Gemini and returns the text
// response. Returns a *SafetyFilterError if the response was blocked.
func (g *Generator) Generate(ctx context.Context, systemPrompt, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if g.apiKey == "" {
		return "", errors.New("google: API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return "", fmt.Errorf("google: create client: %w", err)
	}
	defer func() { _ = client.Close() }()

	genModel := client.GenerativeModel(g.modelName)
	if systemPrompt != "" {
		genModel.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}
	}

	resp, err := genModel.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("google: generate: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return "", &SafetyFilterError{Reason: "no candidates returned"}
	}
	cand := resp.Candidates[0]
	if cand.FinishReason == genai.FinishReasonSafety {
		return "", &SafetyFilterError{Reason: "response blocked by safety filter"}
	}

	var text string
	if cand.Content != nil {
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text += string(t)
			}
		}
	}
	return text, nil
}

// SafetyFilterError reports that Gemini blocked a generation request.
type SafetyFilterError struct {
	Reason string
}

func (e *SafetyFilterError) Error() string {
	return "google: content blocked: " + e.Reason
}
