// Package agent implements the conversation engine: the loop that
// drives a model turn, executes requested tool calls, and decides when
// the exchange is complete.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/kwren/emissary/internal/llm"
	"github.com/kwren/emissary/internal/persona"
	"github.com/kwren/emissary/internal/tools"
)

// DefaultMaxIterations caps model calls per turn. The model decides how
// many tool rounds a turn needs, so the cap only exists to stop a
// runaway loop.
const DefaultMaxIterations = 10

// ErrDidNotTerminate is returned when a turn exceeds the model call
// limit without producing a final answer. It indicates a logic loop,
// not a transport failure, so callers can report it distinctly.
var ErrDidNotTerminate = errors.New("conversation did not terminate within the model call limit")

// Engine owns a single conversation turn. It holds no cross-request
// state: history is supplied by the caller on every Chat call, so one
// Engine is safely shared by concurrent requests.
type Engine struct {
	client        llm.Client
	registry      *tools.Registry
	profile       *persona.Profile
	logger        *slog.Logger
	model         string
	temperature   float64
	maxTokens     int
	maxIterations int
}

// Option configures an Engine built by NewEngine.
type Option func(*Engine)

// WithModel sets the model identifier sent on every request.
func WithModel(model string) Option {
	return func(e *Engine) { e.model = model }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(e *Engine) { e.temperature = t }
}

// WithMaxTokens bounds the completion length.
func WithMaxTokens(n int) Option {
	return func(e *Engine) { e.maxTokens = n }
}

// WithMaxIterations overrides the per-turn model call limit.
func WithMaxIterations(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxIterations = n
		}
	}
}

// NewEngine creates a conversation engine.
func NewEngine(client llm.Client, registry *tools.Registry, profile *persona.Profile, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		client:        client,
		registry:      registry,
		profile:       profile,
		logger:        logger,
		model:         "gpt-4o-mini",
		maxIterations: DefaultMaxIterations,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Chat runs one full conversation turn: persona system prompt, supplied
// history, the new user message, then as many model calls as the model
// needs to finish its tool use. Tool results are appended immediately
// after the assistant message that requested them, one result per
// request, in emission order.
//
// Model failures are not retried and surface as errors; a turn that
// exceeds the iteration cap fails with ErrDidNotTerminate.
func (e *Engine) Chat(ctx context.Context, message string, history []llm.Message) (string, error) {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{
		Role:    llm.RoleSystem,
		Content: e.profile.SystemPrompt(),
	})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{
		Role:    llm.RoleUser,
		Content: message,
	})

	defs := e.registry.Definitions()

	for iteration := 1; iteration <= e.maxIterations; iteration++ {
		e.logger.Debug("calling model",
			"iteration", iteration,
			"messages", len(messages),
			"model", e.model,
		)

		resp, err := e.client.Chat(ctx, &llm.ChatRequest{
			Model:       e.model,
			Messages:    messages,
			Tools:       defs,
			Temperature: e.temperature,
			MaxTokens:   e.maxTokens,
		})
		if err != nil {
			return "", fmt.Errorf("model call failed: %w", err)
		}

		choice := resp.Choices[0]

		if !resp.HasToolCalls() {
			e.logger.Info("turn complete",
				"iterations", iteration,
				"finish_reason", choice.FinishReason,
				"response_chars", len(choice.Message.Content),
			)
			return choice.Message.Content, nil
		}

		assistant := choice.Message
		assistant.Role = llm.RoleAssistant

		if len(assistant.ToolCalls) == 0 {
			// finish_reason said tool_calls but no calls came through.
			// Treat the content as the final answer rather than spin.
			e.logger.Warn("tool_calls finish reason with empty tool call list")
			return assistant.Content, nil
		}

		// Providers occasionally omit call IDs; the tool-result messages
		// must reference one, so synthesize before recording the request.
		for i := range assistant.ToolCalls {
			if assistant.ToolCalls[i].ID == "" {
				assistant.ToolCalls[i].ID = "call_" + uuid.NewString()
			}
		}

		messages = append(messages, assistant)
		for _, call := range assistant.ToolCalls {
			messages = append(messages, e.registry.Dispatch(ctx, call))
		}
	}

	e.logger.Error("turn exceeded model call limit", "limit", e.maxIterations)
	return "", ErrDidNotTerminate
}

// Name returns the persona name the engine answers as.
func (e *Engine) Name() string {
	return e.profile.Name
}
