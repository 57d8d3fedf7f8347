package services_test

import (
	"errors"
	"strings"
	"testing"

	"subjectsort/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "extracting", "run tesseract", "OCR failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"extracting", "run tesseract", "OCR failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "moving", "rename", "rename failed", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestKindMapping(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{services.Wrap(services.ErrValidation, "classifying", "coerce", "bad label", nil), "validation"},
		{services.Wrap(services.ErrExternalTool, "extracting", "ffmpeg", "exit 1", nil), "external_tool"},
		{services.Wrap(services.ErrConfiguration, "", "", "missing key", nil), "configuration"},
		{services.Wrap(services.ErrNotFound, "moving", "stat", "gone", nil), "not_found"},
		{services.Wrap(services.ErrTimeout, "classifying", "post", "deadline", nil), "timeout"},
		{errors.New("anything else"), "transient"},
	}
	for _, tc := range cases {
		if got := services.Kind(tc.err); got != tc.want {
			t.Fatalf("Kind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
