package extract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"

	"subjectsort/internal/services"
)

// documentExcerpt reads the leading paragraphs of a docx body. Files with a
// .doc extension land here too; genuine legacy .doc files are not zip
// containers and fail the open, which the cascade turns into a fallback
// label.
func (e *Extractor) documentExcerpt(path string) (Outcome, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return Outcome{}, services.Wrap(services.ErrValidation, "extract", "parse document",
			"not a readable docx container", err)
	}
	defer reader.Close()

	part, err := openZipMember(&reader.Reader, "word/document.xml")
	if err != nil {
		return Outcome{}, services.Wrap(services.ErrValidation, "extract", "parse document",
			"document body missing", err)
	}
	defer part.Close()

	paragraphs, err := officeTextBlocks(part, docxMaxParagraphs)
	if err != nil {
		return Outcome{}, services.Wrap(services.ErrValidation, "extract", "parse document",
			"cannot decode document body", err)
	}

	text := finishExcerpt(strings.Join(paragraphs, "\n"))
	return Outcome{Text: text, Route: RouteDocument}, nil
}

// slidesExcerpt collects the text runs of the first slides of a pptx deck.
func (e *Extractor) slidesExcerpt(path string) (Outcome, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return Outcome{}, services.Wrap(services.ErrValidation, "extract", "parse slides",
			"not a readable pptx container", err)
	}
	defer reader.Close()

	names := make([]string, 0, 8)
	for _, member := range reader.File {
		if isSlideMember(member.Name) {
			names = append(names, member.Name)
		}
	}
	// Member order inside the zip is arbitrary; slide file names carry the
	// deck order.
	sort.Slice(names, func(i, j int) bool {
		return slideNumber(names[i]) < slideNumber(names[j])
	})
	if len(names) > pptxMaxSlides {
		names = names[:pptxMaxSlides]
	}

	var blocks []string
	for _, name := range names {
		part, err := openZipMember(&reader.Reader, name)
		if err != nil {
			continue
		}
		slideBlocks, err := officeTextBlocks(part, 64)
		part.Close()
		if err != nil {
			continue
		}
		blocks = append(blocks, slideBlocks...)
	}

	text := finishExcerpt(strings.Join(blocks, "\n"))
	return Outcome{Text: text, Route: RouteSlides}, nil
}

func openZipMember(reader *zip.Reader, name string) (io.ReadCloser, error) {
	for _, member := range reader.File {
		if member.Name == name {
			return member.Open()
		}
	}
	return nil, fmt.Errorf("zip member %s not found", name)
}

func isSlideMember(name string) bool {
	return strings.HasPrefix(name, "ppt/slides/slide") && strings.HasSuffix(name, ".xml")
}

// slideNumber pulls the numeric part out of ppt/slides/slideN.xml. Names
// that do not parse sort last.
func slideNumber(name string) int {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(name, "ppt/slides/slide"), ".xml")
	number := 0
	for _, r := range trimmed {
		if r < '0' || r > '9' {
			return 1 << 30
		}
		number = number*10 + int(r-'0')
	}
	return number
}

// officeTextBlocks streams WordprocessingML or DrawingML and gathers text
// runs into blocks, one per paragraph element. Both vocabularies use local
// names "t" for text runs and "p" for paragraphs, so the parser serves docx
// bodies and pptx slides alike.
func officeTextBlocks(r io.Reader, maxBlocks int) ([]string, error) {
	decoder := xml.NewDecoder(r)

	var (
		blocks  []string
		current strings.Builder
		inText  bool
	)
	flush := func() {
		if text := strings.TrimSpace(current.String()); text != "" {
			blocks = append(blocks, text)
		}
		current.Reset()
	}

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch element := token.(type) {
		case xml.StartElement:
			if element.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch element.Name.Local {
			case "t":
				inText = false
			case "p":
				flush()
				if len(blocks) >= maxBlocks {
					return blocks, nil
				}
			}
		case xml.CharData:
			if inText {
				current.Write([]byte(element))
			}
		}
	}
	flush()
	if len(blocks) > maxBlocks {
		blocks = blocks[:maxBlocks]
	}
	return blocks, nil
}
