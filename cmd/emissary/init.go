package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kwren/emissary/internal/defaults"
)

// runInit seeds dir with a commented config file and placeholder
// persona documents. Existing files are never touched, so re-running
// init after editing is safe.
func runInit(stdout io.Writer, dir string) error {
	if err := os.MkdirAll(filepath.Join(dir, "me"), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	files := []struct {
		path    string
		content []byte
	}{
		{filepath.Join(dir, "config.yaml"), defaults.ConfigYAML},
		{filepath.Join(dir, "me", "summary.txt"), defaults.SummaryTXT},
		{filepath.Join(dir, "me", "work_experience.txt"), defaults.WorkExperienceTXT},
	}

	for _, f := range files {
		created, err := writeIfMissing(f.path, f.content)
		if err != nil {
			return err
		}
		if created {
			fmt.Fprintf(stdout, "created %s\n", f.path)
		} else {
			fmt.Fprintf(stdout, "kept    %s (already exists)\n", f.path)
		}
	}

	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Next steps:")
	fmt.Fprintln(stdout, "  1. Set OPENAI_API_KEY (or edit openai.api_key in config.yaml)")
	fmt.Fprintln(stdout, "  2. Replace the persona documents under me/")
	fmt.Fprintln(stdout, "  3. Run: emissary serve")
	return nil
}

// writeIfMissing writes content to path unless the file already exists.
// Reports whether the file was created.
func writeIfMissing(path string, content []byte) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}

	if err := os.WriteFile(path, content, 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}
