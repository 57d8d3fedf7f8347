package main

import (
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Classification API", statusError, "API key missing", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Classification API:", "[ERROR] API key missing")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Source directory", statusOK, "ready", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}

func TestTruncateMessage(t *testing.T) {
	if got := truncateMessage("short", 60); got != "short" {
		t.Fatalf("short message altered: %q", got)
	}
	long := strings.Repeat("语", 80)
	got := truncateMessage(long, 60)
	if got != strings.Repeat("语", 60)+"..." {
		t.Fatalf("unexpected truncation: %q", got)
	}
}

func TestRenderTableWithFooter(t *testing.T) {
	out := renderTableWithFooter(
		[]string{"SUBJECT", "FILES"},
		[][]string{{"语文", "3"}, {"数学", "2"}},
		[]string{"TOTAL", "5"},
		[]columnAlignment{alignLeft, alignRight},
	)
	for _, substr := range []string{"语文", "数学", "TOTAL", "5"} {
		if !strings.Contains(out, substr) {
			t.Fatalf("table output missing %q:\n%s", substr, out)
		}
	}
}
