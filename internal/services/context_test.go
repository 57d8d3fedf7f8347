package services_test

import (
	"context"
	"testing"

	"subjectsort/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-7")
	ctx = services.WithTaskPath(ctx, "/in/数学卷.pdf")
	ctx = services.WithStage(ctx, "classifying")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-7" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if path, ok := services.TaskPathFromContext(ctx); !ok || path != "/in/数学卷.pdf" {
		t.Fatalf("unexpected task path: %v %v", path, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "classifying" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
}
