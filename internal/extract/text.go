package extract

import (
	"io"
	"os"

	"subjectsort/internal/services"
)

// textReadBytes bounds the raw read; CJK text at the rune limit stays well
// inside this.
const textReadBytes = 16 * 1024

func (e *Extractor) textExcerpt(path string) (Outcome, error) {
	file, err := os.Open(path)
	if err != nil {
		return Outcome{}, services.Wrap(services.ErrValidation, "extract", "read text",
			"cannot open file", err)
	}
	defer file.Close()

	raw := make([]byte, textReadBytes)
	n, err := io.ReadFull(file, raw)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return Outcome{}, services.Wrap(services.ErrValidation, "extract", "read text",
			"cannot read file", err)
	}

	text := finishExcerpt(validText(raw[:n]))
	return Outcome{Text: text, Route: RouteText}, nil
}
