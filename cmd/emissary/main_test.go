package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), &out, &out, []string{"version"}); err != nil {
		t.Fatalf("run version error: %v", err)
	}
	if !strings.Contains(out.String(), "emissary") {
		t.Errorf("version output = %q", out.String())
	}
}

func TestRun_VersionJSON(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), &out, &out, []string{"-o", "json", "version"}); err != nil {
		t.Fatalf("run version error: %v", err)
	}
	var info map[string]string
	if err := json.Unmarshal(out.Bytes(), &info); err != nil {
		t.Fatalf("version -o json produced invalid JSON: %v", err)
	}
	if info["version"] == "" {
		t.Errorf("missing version field: %v", info)
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), &out, &out, []string{"destroy"})
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}

func TestRun_UnknownOutputFormat(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), &out, &out, []string{"-o", "xml", "version"})
	if err == nil || !strings.Contains(err.Error(), "output format") {
		t.Fatalf("expected output format error, got %v", err)
	}
}

func TestRun_NoCommandPrintsUsage(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), &out, &out, nil); err != nil {
		t.Fatalf("bare invocation should print usage, got %v", err)
	}
	if !strings.Contains(out.String(), "Usage:") {
		t.Errorf("usage output = %q", out.String())
	}
}

func TestRun_AskWithoutQuestion(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), &out, &out, []string{"ask"})
	if err == nil || !strings.Contains(err.Error(), "usage: emissary ask") {
		t.Fatalf("expected ask usage error, got %v", err)
	}
}

func TestRun_ServeMissingConfig(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), &out, &out, []string{"-config", "/nonexistent/config.yaml", "serve"})
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestRunInit(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	if err := runInit(&out, dir); err != nil {
		t.Fatalf("runInit error: %v", err)
	}

	for _, rel := range []string{"config.yaml", "me/summary.txt", "me/work_experience.txt"} {
		if _, err := os.Stat(filepath.Join(dir, rel)); err != nil {
			t.Errorf("expected %s to exist: %v", rel, err)
		}
	}
	if !strings.Contains(out.String(), "created") {
		t.Errorf("init output = %q", out.String())
	}
}

func TestRunInit_PreservesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("# my edits\n"), 0644)

	var out bytes.Buffer
	if err := runInit(&out, dir); err != nil {
		t.Fatalf("runInit error: %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "# my edits\n" {
		t.Error("init overwrote an existing config file")
	}
	if !strings.Contains(out.String(), "kept") {
		t.Errorf("init output = %q", out.String())
	}
}

func TestWriteIfMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")

	created, err := writeIfMissing(path, []byte("content"))
	if err != nil || !created {
		t.Fatalf("first write: created=%v err=%v", created, err)
	}
	created, err = writeIfMissing(path, []byte("other"))
	if err != nil || created {
		t.Fatalf("second write: created=%v err=%v", created, err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "content" {
		t.Errorf("file content = %q", data)
	}
}
