package services

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func init() {
	// pdfcpu otherwise creates a config directory under the user's home.
	model.ConfigPath = "disable"
}

type FileExtractService struct{}

func NewFileExtractService() *FileExtractService {
	return &FileExtractService{}
}

// PageCount validates that data is a paginated document and returns its page
// count. Anything pdfcpu cannot read is ErrUnsupportedFormat.
func (s *FileExtractService) PageCount(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, ErrUnsupportedFormat
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	n, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	if n < 1 {
		return 0, ErrUnsupportedFormat
	}
	return n, nil
}

// ExtractPages returns the text of every page, in page order. Pages without
// a text layer yield an empty string so indices line up with page numbers.
func (s *FileExtractService) ExtractPages(data []byte) (pages []string, err error) {
	if _, err := s.PageCount(data); err != nil {
		return nil, err
	}

	// ledongthuc/pdf panics on some malformed content streams.
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	totalPage := reader.NumPage()
	pages = make([]string, 0, totalPage)
	hasText := false
	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}

		text := normalizeExtractedText(content)
		if text != "" {
			hasText = true
		}
		pages = append(pages, text)
	}

	if !hasText {
		return nil, ErrNoTextExtracted
	}
	return pages, nil
}

// Extract concatenates page texts with a newline between pages.
func (s *FileExtractService) Extract(data []byte) (string, error) {
	pages, err := s.ExtractPages(data)
	if err != nil {
		return "", err
	}
	return strings.Join(pages, "\n"), nil
}

func normalizeExtractedText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	var buf strings.Builder

	emptyCount := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			emptyCount++
			if emptyCount > 1 {
				continue
			}
			buf.WriteString("\n")
			continue
		}
		emptyCount = 0
		buf.WriteString(trimmed)
		buf.WriteString("\n")
	}

	return strings.TrimSpace(buf.String())
}
