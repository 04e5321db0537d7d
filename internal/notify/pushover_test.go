package notify

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPush_Disabled(t *testing.T) {
	tests := []struct {
		name  string
		token string
		user  string
	}{
		{"no credentials", "", ""},
		{"token only", "tok", ""},
		{"user only", "", "usr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewPushover(tt.token, tt.user, discardLogger())
			if c.Enabled() {
				t.Error("client should be disabled")
			}
			if err := c.Push(context.Background(), "hello"); err != nil {
				t.Errorf("disabled Push should be a no-op, got %v", err)
			}
		})
	}
}

func TestPush_SendsForm(t *testing.T) {
	var gotPath, gotToken, gotUser, gotMessage, gotContentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		r.ParseForm()
		gotToken = r.PostForm.Get("token")
		gotUser = r.PostForm.Get("user")
		gotMessage = r.PostForm.Get("message")
		w.Write([]byte(`{"status": 1}`))
	}))
	defer srv.Close()

	c := NewPushover("app-token", "user-key", discardLogger())
	c.SetBaseURL(srv.URL)

	if !c.Enabled() {
		t.Fatal("client should be enabled")
	}
	if err := c.Push(context.Background(), "New contact: a@b.com"); err != nil {
		t.Fatalf("Push error: %v", err)
	}

	if gotPath != "/1/messages.json" {
		t.Errorf("path = %q, want /1/messages.json", gotPath)
	}
	if gotContentType != "application/x-www-form-urlencoded" {
		t.Errorf("content type = %q", gotContentType)
	}
	if gotToken != "app-token" || gotUser != "user-key" {
		t.Errorf("credentials = %q/%q", gotToken, gotUser)
	}
	if gotMessage != "New contact: a@b.com" {
		t.Errorf("message = %q", gotMessage)
	}
}

func TestPush_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"status": 0, "errors": ["application token is invalid"]}`))
	}))
	defer srv.Close()

	c := NewPushover("bad-token", "user-key", discardLogger())
	c.SetBaseURL(srv.URL)

	if err := c.Push(context.Background(), "hello"); err == nil {
		t.Fatal("expected error for 400 response")
	}
}

func TestPush_ServerUnreachable(t *testing.T) {
	c := NewPushover("tok", "usr", discardLogger())
	c.SetBaseURL("http://127.0.0.1:1") // nothing listens here

	if err := c.Push(context.Background(), "hello"); err == nil {
		t.Fatal("expected error when the endpoint is unreachable")
	}
}
