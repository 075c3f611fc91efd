// Package openai provides a generation.Generator backed by OpenAI's chat
// completions API, trimmed from the teacher's graph/model/openai ChatModel
// adapter: single prompt/response, retry logic for transient errors kept.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Generator implements generation.Generator for OpenAI chat models.
type Generator struct {
	apiKey     string
	modelName  string
	maxRetries int
	retryDelay time.Duration
}

// New returns a Generator with 3 retry attempts and a 1 second base delay
// for transient errors. An empty modelName uses "gpt-4o".
func New(apiKey, modelName string) *Generator {
	if modelName == "" {
		modelName = "gpt-4o"
	}
	return &Generator{apiKey: apiKey, modelName: modelName, maxRetries: 3, retryDelay: time.Second}
}

// Generate sends systemPrompt and prompt to OpenAI and returns the text
// response, retrying transient failures with linear backoff.
func (g *Generator) Generate(ctx context.Context, systemPrompt, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		text, err := g.generateOnce(ctx, systemPrompt, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !isTransientError(err) || attempt >= g.maxRetries {
			return "", fmt.Errorf("openai: generate failed after %d retries: %w", attempt, lastErr)
		}

		delay := g.retryDelay * time.Duration(attempt+1)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func (g *Generator) generateOnce(ctx context.Context, systemPrompt, prompt string) (string, error) {
	if g.apiKey == "" {
		return "", errors.New("openai: API key is required")
	}

	client := openaisdk.NewClient(option.WithAPIKey(g.apiKey))

	var messages []openaisdk.ChatCompletionMessageParamUnion
	if systemPrompt != "" {
		messages = append(messages, openaisdk.SystemMessage(systemPrompt))
	}
	messages = append(messages, openaisdk.UserMessage(prompt))

	resp, err := client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model:    openaisdk.ChatModel(g.modelName),
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("openai API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func isTransientError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{"timeout", "network", "connection", "temporary", "503", "502", "500", "rate limit"} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
