package extract

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"subjectsort/internal/config"
	"subjectsort/internal/logging"
	"subjectsort/internal/services"
	"subjectsort/internal/textutil"
)

// Fixed tool names. The whisper binary is configurable because whisper.cpp
// installs under several names; the rest are stable across distributions.
const (
	tesseractBinary = "tesseract"
	pdftoppmBinary  = "pdftoppm"
	ffmpegBinary    = "ffmpeg"
)

const (
	excerptRuneLimit  = 2000
	docxMaxParagraphs = 10
	pptxMaxSlides     = 5
)

// Scratch directory name prefixes created under the work directory.
// Startup cleanup keys on these to know which leftovers are safe to remove.
const (
	ScratchPDFPrefix     = "pdfocr-"
	ScratchArchivePrefix = "archive-"
	ScratchAudioPrefix   = "audio-"
)

// ScratchPrefixes lists every temp-dir prefix extraction creates.
func ScratchPrefixes() []string {
	return []string{ScratchPDFPrefix, ScratchArchivePrefix, ScratchAudioPrefix}
}

// Extraction routes, recorded alongside classification results so the
// journal shows how each excerpt was produced.
const (
	RouteText        = "text"
	RouteDocument    = "document"
	RouteSlides      = "slides"
	RoutePDFText     = "pdf_text"
	RoutePDFOCR      = "pdf_ocr"
	RouteImageOCR    = "image_ocr"
	RouteAudioLocal  = "audio_local"
	RouteAudioRemote = "audio_remote"
)

// Config carries the extraction settings flattened out of the application
// configuration.
type Config struct {
	WorkDir        string
	OCRLanguage    string
	TessdataDir    string
	RenderDPI      int
	MaxPDFPages    int
	AudioLanguage  string
	WhisperBinary  string
	WhisperModel   string
	ClipSeconds    int
	RemoteFallback bool
	APIKey         string
	BaseURL        string
	TimeoutSeconds int
}

// ConfigFrom flattens the relevant application settings into an extraction
// config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		WorkDir:        cfg.Paths.WorkDir,
		OCRLanguage:    cfg.OCR.Language,
		TessdataDir:    cfg.OCR.TessdataDir,
		RenderDPI:      cfg.OCR.RenderDPI,
		MaxPDFPages:    cfg.OCR.MaxPages,
		AudioLanguage:  cfg.Audio.Language,
		WhisperBinary:  cfg.Audio.WhisperBinary,
		WhisperModel:   cfg.Audio.WhisperModel,
		ClipSeconds:    cfg.Audio.ClipSeconds,
		RemoteFallback: cfg.Audio.RemoteFallback,
		APIKey:         cfg.API.Key,
		BaseURL:        cfg.API.BaseURL,
		TimeoutSeconds: cfg.API.TimeoutSeconds,
	}
}

// Outcome is a bounded excerpt plus the route that produced it.
type Outcome struct {
	Text  string
	Route string
}

// Extractor produces text excerpts for every supported family.
type Extractor struct {
	cfg        Config
	runner     CommandRunner
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithCommandRunner overrides the external tool runner, used by tests.
func WithCommandRunner(runner CommandRunner) Option {
	return func(e *Extractor) {
		if runner != nil {
			e.runner = runner
		}
	}
}

// WithHTTPClient overrides the HTTP client used for remote transcription.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Extractor) {
		if client != nil {
			e.httpClient = client
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Extractor.
func New(cfg Config, opts ...Option) *Extractor {
	e := &Extractor{
		cfg:    cfg,
		runner: runCommand,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.httpClient == nil {
		e.httpClient = &http.Client{Timeout: e.remoteTimeout()}
	}
	return e
}

func (e *Extractor) remoteTimeout() time.Duration {
	if e.cfg.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(e.cfg.TimeoutSeconds) * time.Second
}

// Excerpt extracts bounded text from a document-family file. The route in
// the outcome distinguishes plain text, office XML, PDF text, and the OCR
// fallback for PDFs without an embedded text layer.
func (e *Extractor) Excerpt(ctx context.Context, path string) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	started := time.Now()
	ext := NormalizeExt(filepath.Ext(path))

	var (
		outcome Outcome
		err     error
	)
	switch ext {
	case "txt", "md":
		outcome, err = e.textExcerpt(path)
	case "doc", "docx":
		// Legacy .doc is attempted as a docx container; real .doc files
		// fail the zip check and surface as a parse error.
		outcome, err = e.documentExcerpt(path)
	case "pptx":
		outcome, err = e.slidesExcerpt(path)
	case "pdf":
		outcome, err = e.pdfExcerpt(ctx, path)
	default:
		return Outcome{}, services.Wrap(services.ErrValidation, "extract", "excerpt",
			fmt.Sprintf("unsupported document extension %q", ext), nil)
	}
	if err != nil {
		return Outcome{}, err
	}

	e.logger.Debug("excerpt extracted",
		logging.String("path", filepath.Base(path)),
		logging.String("route", outcome.Route),
		logging.Int("runes", len([]rune(outcome.Text))),
		logging.Duration("elapsed", time.Since(started)))
	return outcome, nil
}

// scratchDir creates a private directory under the work dir. The cleanup
// func removes it with everything inside.
func (e *Extractor) scratchDir(pattern string) (string, func(), error) {
	if err := os.MkdirAll(e.cfg.WorkDir, 0o755); err != nil {
		return "", nil, services.Wrap(services.ErrConfiguration, "extract", "prepare work dir",
			"cannot create work directory", err)
	}
	dir, err := os.MkdirTemp(e.cfg.WorkDir, pattern)
	if err != nil {
		return "", nil, services.Wrap(services.ErrConfiguration, "extract", "prepare scratch dir",
			"cannot create scratch directory", err)
	}
	cleanup := func() {
		if removeErr := os.RemoveAll(dir); removeErr != nil {
			e.logger.Warn("scratch dir not removed",
				logging.String("dir", dir),
				logging.Error(removeErr))
		}
	}
	return dir, cleanup, nil
}

// boundRunes caps text at the shared excerpt limit.
func boundRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

// finishExcerpt bounds raw text first, then normalizes it: whitespace runs
// collapse and symbol runes drop out, leaving words and CJK text.
func finishExcerpt(text string) string {
	return textutil.CleanExcerpt(boundRunes(text, excerptRuneLimit))
}

// validText drops invalid UTF-8 so mangled encodings degrade to a shorter
// excerpt instead of an error.
func validText(raw []byte) string {
	return strings.ToValidUTF8(string(raw), "")
}
