package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"subjectsort/internal/logging"
	"subjectsort/internal/services"
)

// pdfExcerpt tries the embedded text layer first and falls back to
// rendering pages and running OCR on them. Scanned and encrypted PDFs have
// no usable text layer, so the fallback is the only route that reads them.
func (e *Extractor) pdfExcerpt(ctx context.Context, path string) (Outcome, error) {
	text, err := readPDFText(path, e.maxPDFPages())
	if err == nil {
		// A text layer that cleans down to nothing counts as absent.
		if cleaned := finishExcerpt(text); cleaned != "" {
			return Outcome{Text: cleaned, Route: RoutePDFText}, nil
		}
	}
	if err != nil {
		e.logger.Warn("pdf text layer unreadable",
			logging.String("path", filepath.Base(path)),
			logging.String(logging.FieldReason, "falling back to page rendering"),
			logging.Error(err))
	}

	rendered, ocrErr := e.renderAndRecognize(ctx, path)
	if ocrErr != nil {
		return Outcome{}, ocrErr
	}
	return Outcome{Text: finishExcerpt(rendered), Route: RoutePDFOCR}, nil
}

func (e *Extractor) maxPDFPages() int {
	if e.cfg.MaxPDFPages <= 0 {
		return 2
	}
	return e.cfg.MaxPDFPages
}

func (e *Extractor) renderDPI() int {
	if e.cfg.RenderDPI <= 0 {
		return 200
	}
	return e.cfg.RenderDPI
}

// readPDFText pulls plain text from the leading pages. The parser panics on
// some malformed files, so the recover turns that into an error.
func readPDFText(path string, maxPages int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	file, reader, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	pages := reader.NumPage()
	if pages > maxPages {
		pages = maxPages
	}

	var builder strings.Builder
	for number := 1; number <= pages; number++ {
		page := reader.Page(number)
		if page.V.IsNull() {
			continue
		}
		content, pageErr := page.GetPlainText(nil)
		if pageErr != nil {
			continue
		}
		builder.WriteString(content)
		builder.WriteString("\n")
	}
	return builder.String(), nil
}

// renderAndRecognize rasterizes the leading pages with pdftoppm and runs
// tesseract over each image.
func (e *Extractor) renderAndRecognize(ctx context.Context, path string) (string, error) {
	scratch, cleanup, err := e.scratchDir(ScratchPDFPrefix)
	if err != nil {
		return "", err
	}
	defer cleanup()

	prefix := filepath.Join(scratch, "page")
	args := []string{
		"-r", strconv.Itoa(e.renderDPI()),
		"-png",
		"-f", "1",
		"-l", strconv.Itoa(e.maxPDFPages()),
		path,
		prefix,
	}
	if _, err := e.runner(ctx, pdftoppmBinary, args...); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "extract", "render pdf",
			"pdftoppm failed", err)
	}

	images, err := filepath.Glob(prefix + "-*.png")
	if err != nil || len(images) == 0 {
		return "", services.Wrap(services.ErrExternalTool, "extract", "render pdf",
			"pdftoppm produced no pages", err)
	}
	sort.Strings(images)

	var builder strings.Builder
	for _, image := range images {
		pageText, ocrErr := e.recognizeImage(ctx, image)
		if ocrErr != nil {
			return "", ocrErr
		}
		builder.WriteString(pageText)
		builder.WriteString("\n")
	}
	return builder.String(), nil
}
