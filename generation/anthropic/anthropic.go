// Package anthropic provides a generation.Generator backed by Anthropic's
// Claude API, trimmed from the teacher's graph/model/anthropic ChatModel
// adapter: no tool-calling, no multi-turn history — one system prompt, one
// user prompt, one generated string.
package anthropic

import (
	"context"
	"errors"
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Generator implements generation.Generator for Claude models.
type Generator struct {
	apiKey    string
	modelName string
}

// New returns a Generator configured for modelName. An empty modelName uses
// a recent default.
func New(apiKey, modelName string) *Generator {
	if modelName == "" {
		modelName = "claude-sonnet-4-5-20250929"
	}
	return &Generator{apiKey: apiKey, modelName: modelName}
}

// Generate sends systemPrompt and prompt to Claude and returns the text
// response. Respects ctx cancellation and translates Anthropic API errors.
func (g *Generator) Generate(ctx context.Context, systemPrompt, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if g.apiKey == "" {
		return "", errors.New("anthropic: API key is required")
	}

	client := anthropicsdk.NewClient(option.WithAPIKey(g.apiKey))

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(g.modelName),
		MaxTokens: 1024,
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(prompt)),
		},
	}
	if systemPrompt != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: systemPrompt}}
	}

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic: generate: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if b, ok := block.AsAny().(anthropicsdk.TextBlock); ok {
			if text != "" {
				text += "\n"
			}
			text += b.Text
		}
	}
	return text, nil
}
