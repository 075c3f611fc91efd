// Package generation specifies the LLM text-generation contract the engine
// calls for player-choice persona generation, and provides provider adapters.
//
// This is a deliberately narrow trim of the teacher's graph/model.ChatModel:
// the engine never needs tool-calling, multi-turn history, or streaming — it
// asks for one piece of generated text given a system prompt and a prompt,
// and it must be able to cancel the call on preemption.
package generation

import "context"

// Generator produces text from a system prompt and a prompt. Implementations
// must respect ctx cancellation. The engine calls Generate synchronously on
// its executor goroutine with the executor's context; an advance of the
// engine's abort epoch does not cancel that context.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, prompt string) (string, error)
}

// Func adapts a plain function to Generator, mirroring the teacher's
// NodeFunc-as-interface-adapter convention.
type Func func(ctx context.Context, systemPrompt, prompt string) (string, error)

// Generate implements Generator.
func (f Func) Generate(ctx context.Context, systemPrompt, prompt string) (string, error) {
	return f(ctx, systemPrompt, prompt)
}
