package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"subjectsort/internal/config"
)

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[api]
key = %q
base_url = %q
model = %q

[paths]
source_dir = %q
target_dir = %q
work_dir = %q
log_dir = %q

[features]
ocr = %t
audio = %t
archive = %t

[workers]
count = %d

[logging]
format = "json"
level = "error"
`,
		cfg.API.Key, cfg.API.BaseURL, cfg.API.Model,
		cfg.Paths.SourceDir, cfg.Paths.TargetDir, cfg.Paths.WorkDir, cfg.Paths.LogDir,
		cfg.Features.OCR, cfg.Features.Audio, cfg.Features.Archive,
		cfg.Workers.Count)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// newClassifierServer answers chat completions with the label pick returns
// for the concatenated user prompt.
func newClassifierServer(t *testing.T, pick func(prompt string) string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var prompt strings.Builder
		for _, msg := range req.Messages {
			if msg.Role == "user" {
				prompt.WriteString(msg.Content)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"choices":[{"message":{"content":%q}}]}`, pick(prompt.String()))
	}))
	t.Cleanup(server.Close)
	return server
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
