package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"subjectsort/internal/deps"
	"subjectsort/internal/testsupport"
)

func TestCheckDirectoryAccessOK(t *testing.T) {
	result := CheckDirectoryAccess("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccessNotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccessNotDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", path)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckAPIOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"语文"}}]}`))
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithAPIKey("good-key"))
	cfg.API.BaseURL = srv.URL

	result := CheckAPI(context.Background(), cfg)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckAPIBadKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithAPIKey("bad-key"))
	cfg.API.BaseURL = srv.URL

	result := CheckAPI(context.Background(), cfg)
	if result.Passed {
		t.Fatal("expected failure for rejected key")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckAPIMissingKey(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithAPIKey(""))
	result := CheckAPI(context.Background(), cfg)
	if result.Passed {
		t.Fatal("expected failure for missing key")
	}
	if result.Detail != "API key missing" {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func writeTesseractStub(t *testing.T, languages string) {
	t.Helper()
	binDir := t.TempDir()
	script := "#!/bin/sh\n" +
		"echo 'List of available languages (3):' >&2\n" +
		languages +
		"exit 0\n"
	if err := os.WriteFile(filepath.Join(binDir, "tesseract"), []byte(script), 0o755); err != nil {
		t.Fatalf("write tesseract stub: %v", err)
	}
	t.Setenv("PATH", binDir)
}

func TestCheckOCRLanguageInstalled(t *testing.T) {
	writeTesseractStub(t, "echo eng >&2\necho chi_sim >&2\necho osd >&2\n")

	cfg := testsupport.NewConfig(t)
	cfg.OCR.Language = "zh"

	result := CheckOCRLanguage(context.Background(), cfg)
	if !result.Passed {
		t.Fatalf("expected chi_sim to be reported installed, got: %s", result.Detail)
	}
}

func TestCheckOCRLanguageMissing(t *testing.T) {
	writeTesseractStub(t, "echo eng >&2\necho osd >&2\n")

	cfg := testsupport.NewConfig(t)
	cfg.OCR.Language = "zh"

	result := CheckOCRLanguage(context.Background(), cfg)
	if result.Passed {
		t.Fatal("expected failure when the language data is absent")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckSystemDepsFollowsFeatureToggles(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	cfg.Features.OCR = true
	cfg.Features.Audio = true
	cfg.Audio.WhisperModel = "/models/ggml-base.bin"
	cfg.Audio.RemoteFallback = true

	statuses := CheckSystemDeps(cfg)
	byName := make(map[string]deps.Status, len(statuses))
	for _, status := range statuses {
		byName[status.Name] = status
	}
	for _, name := range []string{"Tesseract", "pdftoppm", "FFmpeg", "Whisper"} {
		status, ok := byName[name]
		if !ok {
			t.Fatalf("missing status for %s: %#v", name, statuses)
		}
		if !status.Available {
			t.Fatalf("%s should resolve against the stub PATH: %s", name, status.Detail)
		}
	}
	if !byName["Whisper"].Optional {
		t.Fatal("whisper should be optional while the remote fallback is enabled")
	}

	cfg.Features.OCR = false
	cfg.Features.Audio = false
	if got := CheckSystemDeps(cfg); len(got) != 0 {
		t.Fatalf("expected no requirements with every feature off, got %#v", got)
	}
}

func TestRunAllReportsFailedChecks(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithAPIKey(""))
	cfg.Features.OCR = false

	// The target directory is deliberately left uncreated.
	results := RunAll(context.Background(), cfg)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d: %#v", len(results), results)
	}

	failed := Failed(results)
	names := make(map[string]bool, len(failed))
	for _, result := range failed {
		names[result.Name] = true
	}
	if len(failed) != 2 || !names["Target directory"] || !names["Classification API"] {
		t.Fatalf("unexpected failures: %#v", failed)
	}
}

func TestMissingRequired(t *testing.T) {
	statuses := []deps.Status{
		{Name: "A", Available: true},
		{Name: "B", Optional: true},
		{Name: "C"},
	}
	missing := MissingRequired(statuses)
	if len(missing) != 1 || missing[0].Name != "C" {
		t.Fatalf("unexpected missing set: %#v", missing)
	}
}
