package cascade

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"subjectsort/internal/config"
	"subjectsort/internal/extract"
	"subjectsort/internal/logging"
	"subjectsort/internal/subject"
	"subjectsort/internal/textutil"
)

// promptRuneLimit bounds every excerpt sent for classification.
const promptRuneLimit = 500

// maxArchiveDepth is how many archive levels may unpack a member.
const maxArchiveDepth = 1

// Decision reasons recorded in the journal. Content decisions reuse the
// extraction route names instead.
const (
	ReasonFilename       = "filename"
	ReasonArchiveListing = "archive_listing"
	ReasonArchiveMember  = "archive_member"
	ReasonUnsupported    = "unsupported_type"
	ReasonFeatureOff     = "feature_disabled"
	ReasonExtractFailed  = "extraction_failed"
	ReasonEmptyExcerpt   = "empty_excerpt"
	ReasonClassifyFail   = "classification_failed"
)

// Classifier answers with a label from the configured set.
type Classifier interface {
	Classify(ctx context.Context, content string) (string, error)
}

// ContentExtractor produces excerpts per family. *extract.Extractor
// satisfies it.
type ContentExtractor interface {
	Excerpt(ctx context.Context, path string) (extract.Outcome, error)
	ImageText(ctx context.Context, path string) (extract.Outcome, error)
	AudioTranscript(ctx context.Context, path string) (extract.Outcome, error)
	ArchiveListing(ctx context.Context, path string) ([]string, error)
	FirstDocumentMember(ctx context.Context, path string) (*extract.ArchiveMember, func(), error)
}

// Gate marks the span a worker spends in the content phase.
type Gate interface {
	Enter()
	Leave()
}

type nopGate struct{}

func (nopGate) Enter() {}
func (nopGate) Leave() {}

// Result is the final answer for one file. Subject always holds a label;
// when a step failed, Err carries the cause and Subject is the fallback.
type Result struct {
	Subject string
	Reason  string
	Err     error
}

// Cascade runs the decision order for single files.
type Cascade struct {
	classifier Classifier
	extractor  ContentExtractor
	subjects   subject.Set
	features   config.Features
	gate       Gate
	logger     *slog.Logger
}

// Option configures a Cascade.
type Option func(*Cascade)

// WithGate attaches the scheduler's content-phase gate.
func WithGate(gate Gate) Option {
	return func(c *Cascade) {
		if gate != nil {
			c.gate = gate
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cascade) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Cascade.
func New(classifier Classifier, extractor ContentExtractor, subjects subject.Set, features config.Features, opts ...Option) *Cascade {
	c := &Cascade{
		classifier: classifier,
		extractor:  extractor,
		subjects:   subjects,
		features:   features,
		gate:       nopGate{},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Decide resolves the subject for one file. The returned error is non-nil
// only when ctx ended; every other failure degrades into the result.
func (c *Cascade) Decide(ctx context.Context, path string) (Result, error) {
	return c.decide(ctx, path, 0)
}

func (c *Cascade) decide(ctx context.Context, path string, depth int) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var cause error
	label, err := c.classifyText(ctx, filenamePrompt(path))
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		cause = err
		c.logger.Warn("filename classification failed",
			logging.String("path", filepath.Base(path)),
			logging.String(logging.FieldErrorHint, "continuing with content extraction"),
			logging.Error(err))
	} else if label != c.subjects.Fallback() {
		return Result{Subject: label, Reason: ReasonFilename}, nil
	}

	family := extract.DetectFamily(path)
	if family == extract.FamilyUnknown {
		return c.fallback(ReasonUnsupported, cause), nil
	}
	if !c.enabled(family) {
		return c.fallback(ReasonFeatureOff, cause), nil
	}

	c.gate.Enter()
	defer c.gate.Leave()

	switch family {
	case extract.FamilyDocument:
		return c.decideContent(ctx, path, c.extractor.Excerpt, cause)
	case extract.FamilyImage:
		return c.decideContent(ctx, path, c.extractor.ImageText, cause)
	case extract.FamilyAudio:
		return c.decideContent(ctx, path, c.extractor.AudioTranscript, cause)
	case extract.FamilyArchive:
		return c.decideArchive(ctx, path, depth, cause)
	default:
		return c.fallback(ReasonUnsupported, cause), nil
	}
}

// decideContent runs one extraction route and classifies its excerpt.
func (c *Cascade) decideContent(ctx context.Context, path string, extractFn func(context.Context, string) (extract.Outcome, error), cause error) (Result, error) {
	outcome, err := extractFn(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return c.fallback(ReasonExtractFailed, err), nil
	}
	return c.classifyExcerpt(ctx, outcome.Text, outcome.Route, cause)
}

// decideArchive classifies the member listing and, when that answer is the
// fallback, the first document member's content.
func (c *Cascade) decideArchive(ctx context.Context, path string, depth int, cause error) (Result, error) {
	names, err := c.extractor.ArchiveListing(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return c.fallback(ReasonExtractFailed, err), nil
	}

	listing := "压缩包内文件：" + strings.Join(names, ", ")
	label, err := c.classifyText(ctx, listing)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		cause = err
		label = c.subjects.Fallback()
		c.logger.Warn("archive listing classification failed",
			logging.String("path", filepath.Base(path)),
			logging.String(logging.FieldErrorHint, "trying a document member"),
			logging.Error(err))
	}
	if label != c.subjects.Fallback() {
		return Result{Subject: label, Reason: ReasonArchiveListing}, nil
	}
	if depth >= maxArchiveDepth {
		return c.fallback(ReasonArchiveListing, cause), nil
	}

	member, cleanup, err := c.extractor.FirstDocumentMember(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return c.fallback(ReasonExtractFailed, err), nil
	}
	defer cleanup()
	if member == nil {
		return c.fallback(ReasonArchiveListing, cause), nil
	}

	outcome, err := c.extractor.Excerpt(ctx, member.Path)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return c.fallback(ReasonExtractFailed, err), nil
	}
	return c.classifyExcerpt(ctx, outcome.Text, ReasonArchiveMember, cause)
}

// classifyExcerpt sends extracted text for classification. An empty excerpt
// resolves to the fallback without a request.
func (c *Cascade) classifyExcerpt(ctx context.Context, text, reason string, cause error) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return c.fallback(ReasonEmptyExcerpt, cause), nil
	}
	label, err := c.classifyText(ctx, text)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return c.fallback(ReasonClassifyFail, err), nil
	}
	return Result{Subject: label, Reason: reason}, nil
}

func (c *Cascade) classifyText(ctx context.Context, text string) (string, error) {
	return c.classifier.Classify(ctx, textutil.TruncateRunes(text, promptRuneLimit))
}

func (c *Cascade) fallback(reason string, err error) Result {
	return Result{Subject: c.subjects.Fallback(), Reason: reason, Err: err}
}

func (c *Cascade) enabled(family extract.Family) bool {
	switch family {
	case extract.FamilyDocument:
		return true
	case extract.FamilyImage:
		return c.features.OCR
	case extract.FamilyArchive:
		return c.features.Archive
	case extract.FamilyAudio:
		return c.features.Audio
	default:
		return false
	}
}

// filenamePrompt builds the cheap first probe from the lowercased stem.
func filenamePrompt(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return "文件名：" + strings.ToLower(stem)
}
