package tools

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/kwren/emissary/internal/llm"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeNotifier records pushed messages and optionally fails.
type fakeNotifier struct {
	messages []string
	err      error
}

func (f *fakeNotifier) Push(ctx context.Context, message string) error {
	f.messages = append(f.messages, message)
	return f.err
}

func (f *fakeNotifier) Enabled() bool { return true }

func call(name, args string) llm.ToolCall {
	return llm.ToolCall{
		ID:   "call_1",
		Type: "function",
		Function: llm.ToolCallFunction{
			Name:      name,
			Arguments: args,
		},
	}
}

func TestNewRegistry_Builtins(t *testing.T) {
	r := NewRegistry(nil, discardLogger())
	for _, name := range []string{"record_user_details", "record_unknown_question"} {
		if r.Get(name) == nil {
			t.Errorf("builtin %q not registered", name)
		}
	}
}

func TestDefinitions_SortedAndComplete(t *testing.T) {
	r := NewRegistry(nil, discardLogger())
	defs := r.Definitions()

	if len(defs) != 2 {
		t.Fatalf("got %d definitions, want 2", len(defs))
	}
	if defs[0].Function.Name != "record_unknown_question" || defs[1].Function.Name != "record_user_details" {
		t.Errorf("definitions not sorted by name: %s, %s", defs[0].Function.Name, defs[1].Function.Name)
	}
	for _, d := range defs {
		if d.Type != "function" {
			t.Errorf("%s: type = %q, want function", d.Function.Name, d.Type)
		}
		if d.Function.Description == "" {
			t.Errorf("%s: missing description", d.Function.Name)
		}
		if d.Function.Parameters["type"] != "object" {
			t.Errorf("%s: parameters not an object schema", d.Function.Name)
		}
	}
}

func TestDispatch_RecordUserDetails(t *testing.T) {
	n := &fakeNotifier{}
	r := NewRegistry(n, discardLogger())

	msg := r.Dispatch(context.Background(),
		call("record_user_details", `{"email": "a@b.com", "name": "Ada", "notes": "wants to collaborate"}`))

	if msg.Role != llm.RoleTool {
		t.Errorf("role = %q, want tool", msg.Role)
	}
	if msg.ToolCallID != "call_1" {
		t.Errorf("tool_call_id = %q, want call_1", msg.ToolCallID)
	}
	if msg.Content != okResult {
		t.Errorf("content = %q, want %q", msg.Content, okResult)
	}

	if len(n.messages) != 1 {
		t.Fatalf("got %d notifications, want 1", len(n.messages))
	}
	for _, want := range []string{"New contact: a@b.com", "Name: Ada", "wants to collaborate"} {
		if !strings.Contains(n.messages[0], want) {
			t.Errorf("notification missing %q: %q", want, n.messages[0])
		}
	}
}

func TestDispatch_RecordUserDetails_Defaults(t *testing.T) {
	n := &fakeNotifier{}
	r := NewRegistry(n, discardLogger())

	msg := r.Dispatch(context.Background(), call("record_user_details", `{}`))

	if msg.Content != okResult {
		t.Errorf("content = %q, want %q", msg.Content, okResult)
	}
	if len(n.messages) != 1 {
		t.Fatalf("got %d notifications, want 1", len(n.messages))
	}
	if !strings.Contains(n.messages[0], "No email provided") {
		t.Errorf("notification = %q, want the missing-email marker", n.messages[0])
	}
	// Omitted optional fields should not appear as sections.
	if strings.Contains(n.messages[0], "Name:") || strings.Contains(n.messages[0], "Conversation:") {
		t.Errorf("notification should omit unset fields: %q", n.messages[0])
	}
}

func TestDispatch_RecordUnknownQuestion(t *testing.T) {
	n := &fakeNotifier{}
	r := NewRegistry(n, discardLogger())

	msg := r.Dispatch(context.Background(),
		call("record_unknown_question", `{"question": "what is your favorite color?"}`))

	if msg.Content != okResult {
		t.Errorf("content = %q, want %q", msg.Content, okResult)
	}
	want := "Recording unknown question: what is your favorite color?"
	if len(n.messages) != 1 || n.messages[0] != want {
		t.Errorf("notifications = %v, want [%q]", n.messages, want)
	}
}

func TestDispatch_NotifierFailureStillOK(t *testing.T) {
	n := &fakeNotifier{err: errors.New("pushover down")}
	r := NewRegistry(n, discardLogger())

	msg := r.Dispatch(context.Background(),
		call("record_unknown_question", `{"question": "anything"}`))

	if msg.Content != okResult {
		t.Errorf("notification failure must not change the tool result, got %q", msg.Content)
	}
}

func TestDispatch_NilNotifier(t *testing.T) {
	r := NewRegistry(nil, discardLogger())

	msg := r.Dispatch(context.Background(),
		call("record_user_details", `{"email": "a@b.com"}`))

	if msg.Content != okResult {
		t.Errorf("content = %q, want %q", msg.Content, okResult)
	}
}

func TestDispatch_UnknownTool(t *testing.T) {
	r := NewRegistry(nil, discardLogger())

	msg := r.Dispatch(context.Background(), call("send_money", `{}`))

	if msg.Role != llm.RoleTool || msg.ToolCallID != "call_1" {
		t.Errorf("result must still be a linked tool message: %+v", msg)
	}
	var payload map[string]string
	if err := json.Unmarshal([]byte(msg.Content), &payload); err != nil {
		t.Fatalf("result content is not JSON: %q", msg.Content)
	}
	if !strings.Contains(payload["error"], "unknown tool: send_money") {
		t.Errorf("error payload = %q", payload["error"])
	}
}

func TestDispatch_MalformedArguments(t *testing.T) {
	n := &fakeNotifier{}
	r := NewRegistry(n, discardLogger())

	msg := r.Dispatch(context.Background(), call("record_user_details", `{not json`))

	var payload map[string]string
	if err := json.Unmarshal([]byte(msg.Content), &payload); err != nil {
		t.Fatalf("result content is not JSON: %q", msg.Content)
	}
	if payload["error"] == "" {
		t.Errorf("expected an error payload, got %q", msg.Content)
	}
	if len(n.messages) != 0 {
		t.Errorf("malformed arguments must not trigger a notification")
	}
}

func TestDispatch_EmptyArguments(t *testing.T) {
	r := NewRegistry(&fakeNotifier{}, discardLogger())

	// Providers sometimes send "" instead of "{}".
	msg := r.Dispatch(context.Background(), call("record_unknown_question", ""))

	if msg.Content != okResult {
		t.Errorf("empty arguments should dispatch with defaults, got %q", msg.Content)
	}
}

func TestStringArg(t *testing.T) {
	args := map[string]any{
		"present": "value",
		"blank":   "   ",
		"number":  42,
	}

	tests := []struct {
		key  string
		def  string
		want string
	}{
		{"present", "d", "value"},
		{"blank", "d", "d"},
		{"missing", "d", "d"},
		{"number", "d", "d"},
	}

	for _, tt := range tests {
		if got := stringArg(args, tt.key, tt.def); got != tt.want {
			t.Errorf("stringArg(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
