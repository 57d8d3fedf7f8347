package extract

import (
	"context"
	"path/filepath"
	"time"

	"subjectsort/internal/logging"
	"subjectsort/internal/services"
)

// ImageText runs OCR over an image file.
func (e *Extractor) ImageText(ctx context.Context, path string) (Outcome, error) {
	started := time.Now()
	text, err := e.recognizeImage(ctx, path)
	if err != nil {
		return Outcome{}, err
	}
	e.logger.Debug("image recognized",
		logging.String("path", filepath.Base(path)),
		logging.Int("runes", len([]rune(text))),
		logging.Duration("elapsed", time.Since(started)))
	return Outcome{Text: finishExcerpt(text), Route: RouteImageOCR}, nil
}

// recognizeImage invokes tesseract with the configured language, writing
// recognized text to stdout.
func (e *Extractor) recognizeImage(ctx context.Context, path string) (string, error) {
	args := []string{path, "stdout", "-l", TesseractLang(e.cfg.OCRLanguage)}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	text, err := e.runner(ctx, tesseractBinary, args...)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "extract", "recognize image",
			"tesseract failed", err)
	}
	return text, nil
}
