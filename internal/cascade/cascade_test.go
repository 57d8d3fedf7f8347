package cascade

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"subjectsort/internal/config"
	"subjectsort/internal/extract"
	"subjectsort/internal/services"
	"subjectsort/internal/subject"
)

type scriptedClassifier struct {
	calls  []string
	answer func(content string) (string, error)
}

func (s *scriptedClassifier) Classify(ctx context.Context, content string) (string, error) {
	s.calls = append(s.calls, content)
	return s.answer(content)
}

type fakeExtractor struct {
	excerptFn func(ctx context.Context, path string) (extract.Outcome, error)
	imageFn   func(ctx context.Context, path string) (extract.Outcome, error)
	audioFn   func(ctx context.Context, path string) (extract.Outcome, error)
	listingFn func(ctx context.Context, path string) ([]string, error)
	memberFn  func(ctx context.Context, path string) (*extract.ArchiveMember, func(), error)

	excerptCalls int
	imageCalls   int
	audioCalls   int
	listingCalls int
	memberCalls  int
}

func (f *fakeExtractor) Excerpt(ctx context.Context, path string) (extract.Outcome, error) {
	f.excerptCalls++
	if f.excerptFn == nil {
		return extract.Outcome{}, fmt.Errorf("unexpected Excerpt call for %s", path)
	}
	return f.excerptFn(ctx, path)
}

func (f *fakeExtractor) ImageText(ctx context.Context, path string) (extract.Outcome, error) {
	f.imageCalls++
	if f.imageFn == nil {
		return extract.Outcome{}, fmt.Errorf("unexpected ImageText call for %s", path)
	}
	return f.imageFn(ctx, path)
}

func (f *fakeExtractor) AudioTranscript(ctx context.Context, path string) (extract.Outcome, error) {
	f.audioCalls++
	if f.audioFn == nil {
		return extract.Outcome{}, fmt.Errorf("unexpected AudioTranscript call for %s", path)
	}
	return f.audioFn(ctx, path)
}

func (f *fakeExtractor) ArchiveListing(ctx context.Context, path string) ([]string, error) {
	f.listingCalls++
	if f.listingFn == nil {
		return nil, fmt.Errorf("unexpected ArchiveListing call for %s", path)
	}
	return f.listingFn(ctx, path)
}

func (f *fakeExtractor) FirstDocumentMember(ctx context.Context, path string) (*extract.ArchiveMember, func(), error) {
	f.memberCalls++
	if f.memberFn == nil {
		return nil, func() {}, fmt.Errorf("unexpected FirstDocumentMember call for %s", path)
	}
	return f.memberFn(ctx, path)
}

func (f *fakeExtractor) totalCalls() int {
	return f.excerptCalls + f.imageCalls + f.audioCalls + f.listingCalls + f.memberCalls
}

type countingGate struct {
	enters int
	leaves int
}

func (g *countingGate) Enter() { g.enters++ }
func (g *countingGate) Leave() { g.leaves++ }

func allFeatures() config.Features {
	return config.Features{OCR: true, Audio: true, Archive: true}
}

func newTestCascade(classifier Classifier, extractor ContentExtractor, features config.Features, opts ...Option) *Cascade {
	return New(classifier, extractor, subject.Default(), features, opts...)
}

func TestDecideFilenameHitSkipsExtraction(t *testing.T) {
	classifier := &scriptedClassifier{answer: func(string) (string, error) {
		return "数学", nil
	}}
	extractor := &fakeExtractor{}
	cascade := newTestCascade(classifier, extractor, allFeatures())

	result, err := cascade.Decide(context.Background(), "/in/数学期中试卷V2.PDF")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if result.Subject != "数学" || result.Reason != ReasonFilename {
		t.Fatalf("result = %+v", result)
	}
	if result.Err != nil {
		t.Fatalf("unexpected recorded error: %v", result.Err)
	}
	if len(classifier.calls) != 1 {
		t.Fatalf("classify calls = %d, want 1", len(classifier.calls))
	}
	if classifier.calls[0] != "文件名：数学期中试卷v2" {
		t.Fatalf("filename prompt = %q", classifier.calls[0])
	}
	if extractor.totalCalls() != 0 {
		t.Fatalf("extractor touched the file on a filename hit: %+v", extractor)
	}
}

func TestDecideContentRouteAfterFilenameMiss(t *testing.T) {
	long := strings.Repeat("文", 600)
	classifier := &scriptedClassifier{answer: func(content string) (string, error) {
		if strings.HasPrefix(content, "文件名：") {
			return "未知", nil
		}
		return "语文", nil
	}}
	extractor := &fakeExtractor{
		excerptFn: func(ctx context.Context, path string) (extract.Outcome, error) {
			return extract.Outcome{Text: long, Route: extract.RouteText}, nil
		},
	}
	cascade := newTestCascade(classifier, extractor, allFeatures())

	result, err := cascade.Decide(context.Background(), "/in/读书笔记.txt")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if result.Subject != "语文" || result.Reason != extract.RouteText {
		t.Fatalf("result = %+v", result)
	}
	if len(classifier.calls) != 2 {
		t.Fatalf("classify calls = %d, want 2", len(classifier.calls))
	}
	if got := len([]rune(classifier.calls[1])); got != 500 {
		t.Fatalf("content prompt runes = %d, want 500", got)
	}
}

func TestDecideFeatureFlagsBlockContentFamilies(t *testing.T) {
	cases := []struct {
		name     string
		path     string
		features config.Features
	}{
		{"image needs ocr", "/in/板书.png", config.Features{Audio: true, Archive: true}},
		{"audio needs audio", "/in/讲课.mp3", config.Features{OCR: true, Archive: true}},
		{"archive needs archive", "/in/资料.zip", config.Features{OCR: true, Audio: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			classifier := &scriptedClassifier{answer: func(string) (string, error) {
				return "未知", nil
			}}
			extractor := &fakeExtractor{}
			cascade := newTestCascade(classifier, extractor, tc.features)

			result, err := cascade.Decide(context.Background(), tc.path)
			if err != nil {
				t.Fatalf("Decide: %v", err)
			}
			if result.Subject != "未知" || result.Reason != ReasonFeatureOff {
				t.Fatalf("result = %+v", result)
			}
			if extractor.totalCalls() != 0 {
				t.Fatalf("extractor ran with the feature disabled: %+v", extractor)
			}
		})
	}
}

func TestDecideUnsupportedExtension(t *testing.T) {
	classifier := &scriptedClassifier{answer: func(string) (string, error) {
		return "未知", nil
	}}
	extractor := &fakeExtractor{}
	cascade := newTestCascade(classifier, extractor, allFeatures())

	result, err := cascade.Decide(context.Background(), "/in/notes.xyz")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if result.Subject != "未知" || result.Reason != ReasonUnsupported {
		t.Fatalf("result = %+v", result)
	}
	if len(classifier.calls) != 1 {
		t.Fatalf("classify calls = %d, want 1 (filename only)", len(classifier.calls))
	}
}

func TestDecideArchiveListingHit(t *testing.T) {
	classifier := &scriptedClassifier{answer: func(content string) (string, error) {
		if strings.HasPrefix(content, "压缩包内文件：") {
			return "物理", nil
		}
		return "未知", nil
	}}
	extractor := &fakeExtractor{
		listingFn: func(ctx context.Context, path string) ([]string, error) {
			return []string{"实验/", "实验/电路图.png", "实验报告.docx"}, nil
		},
	}
	cascade := newTestCascade(classifier, extractor, allFeatures())

	result, err := cascade.Decide(context.Background(), "/in/资料.zip")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if result.Subject != "物理" || result.Reason != ReasonArchiveListing {
		t.Fatalf("result = %+v", result)
	}
	listingPrompt := classifier.calls[len(classifier.calls)-1]
	if !strings.Contains(listingPrompt, "实验/电路图.png, 实验报告.docx") {
		t.Fatalf("listing prompt = %q", listingPrompt)
	}
	if extractor.memberCalls != 0 {
		t.Fatal("member extraction ran despite a listing hit")
	}
}

func TestDecideArchiveMemberAfterListingFallback(t *testing.T) {
	cleaned := false
	classifier := &scriptedClassifier{answer: func(content string) (string, error) {
		if strings.Contains(content, "函数与导数") {
			return "数学", nil
		}
		return "未知", nil
	}}
	extractor := &fakeExtractor{
		listingFn: func(ctx context.Context, path string) ([]string, error) {
			return []string{"笔记.txt"}, nil
		},
		memberFn: func(ctx context.Context, path string) (*extract.ArchiveMember, func(), error) {
			member := &extract.ArchiveMember{Name: "笔记.txt", Path: "/work/archive-1/笔记.txt"}
			return member, func() { cleaned = true }, nil
		},
		excerptFn: func(ctx context.Context, path string) (extract.Outcome, error) {
			if path != "/work/archive-1/笔记.txt" {
				return extract.Outcome{}, fmt.Errorf("unexpected member path %s", path)
			}
			return extract.Outcome{Text: "函数与导数 练习", Route: extract.RouteText}, nil
		},
	}
	cascade := newTestCascade(classifier, extractor, allFeatures())

	result, err := cascade.Decide(context.Background(), "/in/作业.zip")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if result.Subject != "数学" || result.Reason != ReasonArchiveMember {
		t.Fatalf("result = %+v", result)
	}
	if !cleaned {
		t.Error("member scratch dir was not cleaned up")
	}
}

func TestDecideArchiveWithoutMemberKeepsListingAnswer(t *testing.T) {
	classifier := &scriptedClassifier{answer: func(string) (string, error) {
		return "未知", nil
	}}
	extractor := &fakeExtractor{
		listingFn: func(ctx context.Context, path string) ([]string, error) {
			return []string{"a.png", "b.jpg"}, nil
		},
		memberFn: func(ctx context.Context, path string) (*extract.ArchiveMember, func(), error) {
			return nil, func() {}, nil
		},
	}
	cascade := newTestCascade(classifier, extractor, allFeatures())

	result, err := cascade.Decide(context.Background(), "/in/照片.zip")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if result.Subject != "未知" || result.Reason != ReasonArchiveListing {
		t.Fatalf("result = %+v", result)
	}
}

func TestDecideExtractionFailureDegrades(t *testing.T) {
	toolErr := services.Wrap(services.ErrExternalTool, "extract", "recognize image", "tesseract failed", nil)
	classifier := &scriptedClassifier{answer: func(string) (string, error) {
		return "未知", nil
	}}
	extractor := &fakeExtractor{
		imageFn: func(ctx context.Context, path string) (extract.Outcome, error) {
			return extract.Outcome{}, toolErr
		},
	}
	cascade := newTestCascade(classifier, extractor, allFeatures())

	result, err := cascade.Decide(context.Background(), "/in/扫描.png")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if result.Subject != "未知" || result.Reason != ReasonExtractFailed {
		t.Fatalf("result = %+v", result)
	}
	if !errors.Is(result.Err, services.ErrExternalTool) {
		t.Fatalf("recorded error = %v", result.Err)
	}
}

func TestDecideEmptyExcerptSkipsRequest(t *testing.T) {
	classifier := &scriptedClassifier{answer: func(string) (string, error) {
		return "未知", nil
	}}
	extractor := &fakeExtractor{
		excerptFn: func(ctx context.Context, path string) (extract.Outcome, error) {
			return extract.Outcome{Text: "", Route: extract.RoutePDFOCR}, nil
		},
	}
	cascade := newTestCascade(classifier, extractor, allFeatures())

	result, err := cascade.Decide(context.Background(), "/in/空白扫描.pdf")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if result.Subject != "未知" || result.Reason != ReasonEmptyExcerpt {
		t.Fatalf("result = %+v", result)
	}
	if len(classifier.calls) != 1 {
		t.Fatalf("classify calls = %d, want 1 (no request for empty excerpt)", len(classifier.calls))
	}
}

func TestDecideClassifierFailureContinuesToContent(t *testing.T) {
	requestErr := services.Wrap(services.ErrTransient, "classify", "send request", "request failed", nil)
	call := 0
	classifier := &scriptedClassifier{answer: func(string) (string, error) {
		call++
		if call == 1 {
			return "", requestErr
		}
		return "英语", nil
	}}
	extractor := &fakeExtractor{
		excerptFn: func(ctx context.Context, path string) (extract.Outcome, error) {
			return extract.Outcome{Text: "vocabulary list unit five", Route: extract.RouteText}, nil
		},
	}
	cascade := newTestCascade(classifier, extractor, allFeatures())

	result, err := cascade.Decide(context.Background(), "/in/wordlist.txt")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if result.Subject != "英语" || result.Reason != extract.RouteText {
		t.Fatalf("result = %+v", result)
	}
	if call != 2 {
		t.Fatalf("classify calls = %d, want 2", call)
	}
}

func TestDecideContextCancellationStopsCascade(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	classifier := &scriptedClassifier{answer: func(string) (string, error) {
		cancel()
		return "", context.Canceled
	}}
	extractor := &fakeExtractor{}
	cascade := newTestCascade(classifier, extractor, allFeatures())

	_, err := cascade.Decide(ctx, "/in/数学试卷.pdf")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if extractor.totalCalls() != 0 {
		t.Fatal("extraction ran after cancellation")
	}
}

func TestDecideGateSpansContentPhaseOnly(t *testing.T) {
	gate := &countingGate{}
	classifier := &scriptedClassifier{answer: func(content string) (string, error) {
		if strings.HasPrefix(content, "文件名：期末") {
			return "化学", nil
		}
		if strings.HasPrefix(content, "文件名：") {
			return "未知", nil
		}
		return "生物", nil
	}}
	extractor := &fakeExtractor{
		excerptFn: func(ctx context.Context, path string) (extract.Outcome, error) {
			return extract.Outcome{Text: "细胞分裂观察记录", Route: extract.RouteDocument}, nil
		},
	}
	cascade := newTestCascade(classifier, extractor, allFeatures(), WithGate(gate))

	if _, err := cascade.Decide(context.Background(), "/in/期末化学卷.pdf"); err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if gate.enters != 0 || gate.leaves != 0 {
		t.Fatalf("gate touched on a filename hit: enters=%d leaves=%d", gate.enters, gate.leaves)
	}

	if _, err := cascade.Decide(context.Background(), "/in/实验报告.docx"); err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if gate.enters != 1 || gate.leaves != 1 {
		t.Fatalf("gate spans = enters=%d leaves=%d, want 1/1", gate.enters, gate.leaves)
	}
}
