// Package tools defines the tools available to the model and dispatches
// the tool calls it makes.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/kwren/emissary/internal/llm"
)

// okResult is what both recording tools return unconditionally. The
// model only needs an acknowledgement; whether the notification behind
// it succeeded is not its concern.
const okResult = `{"recorded": "ok"}`

// Defaults substituted when the model omits optional parameters.
const (
	defaultName  = "Name not provided"
	defaultNotes = "not provided"
)

// Notifier is the outbound notification channel used by the recording
// tools. Satisfied by notify.Client.
type Notifier interface {
	Push(ctx context.Context, message string) error
	Enabled() bool
}

// Tool represents a callable tool.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
	Handler     func(ctx context.Context, args map[string]any) (string, error)
}

// Registry holds the fixed set of tools. It is populated once at startup
// and never mutated afterwards, so concurrent dispatch needs no locking.
type Registry struct {
	tools    map[string]*Tool
	notifier Notifier
	logger   *slog.Logger
}

// NewRegistry creates the registry with the two recording tools.
func NewRegistry(notifier Notifier, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		tools:    make(map[string]*Tool),
		notifier: notifier,
		logger:   logger,
	}
	r.registerBuiltins()
	return r
}

func (r *Registry) registerBuiltins() {
	r.Register(&Tool{
		Name: "record_user_details",
		Description: "Use this tool to record that a user is interested in being in touch and " +
			"provided an email address. Always include the user's message or a summary of the " +
			"conversation in the notes field.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"email": map[string]any{
					"type":        "string",
					"description": "The email address of this user",
				},
				"name": map[string]any{
					"type":        "string",
					"description": "The user's name, if they provided it",
				},
				"notes": map[string]any{
					"type": "string",
					"description": "The user's message or a brief summary of what they discussed, " +
						"including why they're reaching out",
				},
			},
			"required":             []string{"email"},
			"additionalProperties": false,
		},
		Handler: r.handleRecordUserDetails,
	})

	r.Register(&Tool{
		Name: "record_unknown_question",
		Description: "Always use this tool to record any question that couldn't be answered " +
			"as you didn't know the answer",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"question": map[string]any{
					"type":        "string",
					"description": "The question that couldn't be answered",
				},
			},
			"required": []string{"question"},
		},
		Handler: r.handleRecordUnknownQuestion,
	})
}

// Register adds a tool to the registry.
func (r *Registry) Register(t *Tool) {
	r.tools[t.Name] = t
}

// Get retrieves a tool by name, or nil if unregistered.
func (r *Registry) Get(name string) *Tool {
	return r.tools[name]
}

// Definitions returns the advertisement payload for every registered
// tool, sorted by name so the model sees a stable ordering.
func (r *Registry) Definitions() []llm.Tool {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]llm.Tool, 0, len(names))
	for _, name := range names {
		t := r.tools[name]
		defs = append(defs, llm.Tool{
			Type: "function",
			Function: llm.ToolFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return defs
}

// Dispatch executes one tool call and returns the role=tool result
// message, tagged with the originating call ID. It never fails the turn:
// an unknown tool name or a malformed argument payload becomes a
// structured error payload in the result so the model can recover within
// the same conversation.
func (r *Registry) Dispatch(ctx context.Context, call llm.ToolCall) llm.Message {
	name := call.Function.Name

	result := func(content string) llm.Message {
		return llm.Message{
			Role:       llm.RoleTool,
			Content:    content,
			ToolCallID: call.ID,
		}
	}

	tool := r.tools[name]
	if tool == nil {
		r.logger.Warn("model requested unknown tool", "tool", name, "call_id", call.ID)
		return result(errorResult(fmt.Sprintf("unknown tool: %s", name)))
	}

	args := make(map[string]any)
	if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			r.logger.Warn("malformed tool arguments", "tool", name, "call_id", call.ID, "error", err)
			return result(errorResult(fmt.Sprintf("invalid arguments for %s: %v", name, err)))
		}
	}

	r.logger.Info("tool called", "tool", name, "call_id", call.ID)

	out, err := tool.Handler(ctx, args)
	if err != nil {
		r.logger.Warn("tool handler failed", "tool", name, "error", err)
		return result(errorResult(err.Error()))
	}
	return result(out)
}

// errorResult wraps a failure description in a JSON payload the model
// can read.
func errorResult(msg string) string {
	data, err := json.Marshal(map[string]string{"error": msg})
	if err != nil {
		return `{"error": "internal tool error"}`
	}
	return string(data)
}

// Tool handlers

func (r *Registry) handleRecordUserDetails(ctx context.Context, args map[string]any) (string, error) {
	email := stringArg(args, "email", "")
	if email == "" {
		email = "No email provided"
	}
	name := stringArg(args, "name", defaultName)
	notes := stringArg(args, "notes", defaultNotes)

	parts := []string{fmt.Sprintf("New contact: %s", email)}
	if name != defaultName {
		parts = append(parts, fmt.Sprintf("Name: %s", name))
	}
	if notes != defaultNotes {
		parts = append(parts, fmt.Sprintf("Conversation:\n%s", notes))
	}

	r.push(ctx, strings.Join(parts, "\n"))
	return okResult, nil
}

func (r *Registry) handleRecordUnknownQuestion(ctx context.Context, args map[string]any) (string, error) {
	question := stringArg(args, "question", "(no question given)")
	r.push(ctx, fmt.Sprintf("Recording unknown question: %s", question))
	return okResult, nil
}

// push sends a best-effort notification. Failures are logged and
// discarded so they can never alter a tool's result or abort the turn.
func (r *Registry) push(ctx context.Context, message string) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Push(ctx, message); err != nil {
		r.logger.Warn("notification failed", "error", err)
	}
}

// stringArg extracts a non-blank string argument, falling back to def.
func stringArg(args map[string]any, key, def string) string {
	if v, ok := args[key].(string); ok {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return def
}
