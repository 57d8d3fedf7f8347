package textutil

import "testing"

func TestCleanExcerptStripsPunctuationAndCollapsesWhitespace(t *testing.T) {
	in := "第一章：\t函数与极限！！\n\n  f(x) = x^2 , 定义域【-1, 1】"
	got := CleanExcerpt(in)
	want := "第一章 函数与极限 fx x2 定义域1 1"
	if got != want {
		t.Fatalf("CleanExcerpt mismatch:\n got  %q\n want %q", got, want)
	}
}

func TestCleanExcerptKeepsUnderscoreAndDigits(t *testing.T) {
	if got := CleanExcerpt("unit_3 review 2024"); got != "unit_3 review 2024" {
		t.Fatalf("unexpected result %q", got)
	}
}

func TestCleanExcerptEmpty(t *testing.T) {
	if got := CleanExcerpt("  \t\r\n...!?  "); got != "" {
		t.Fatalf("expected empty excerpt, got %q", got)
	}
}

func TestCollapseWhitespace(t *testing.T) {
	if got := CollapseWhitespace(" a\t b\n\nc "); got != "a b c" {
		t.Fatalf("unexpected result %q", got)
	}
}

func TestTruncateRunesRespectsRuneBoundaries(t *testing.T) {
	in := "数学物理化学"
	if got := TruncateRunes(in, 2); got != "数学" {
		t.Fatalf("expected 数学, got %q", got)
	}
	if got := TruncateRunes(in, 100); got != in {
		t.Fatalf("expected passthrough, got %q", got)
	}
	if got := TruncateRunes(in, 0); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestSanitizeFileName(t *testing.T) {
	if got := SanitizeFileName(`a/b\c:d*e?f"g<h>i|j`); got != "a-b-c-d-efghij" {
		t.Fatalf("unexpected result %q", got)
	}
	if got := SanitizeFileName("  数学  "); got != "数学" {
		t.Fatalf("unexpected result %q", got)
	}
}
