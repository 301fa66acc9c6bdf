package extraction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	pdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var (
	ErrNotPDF = errors.New("file is not a readable PDF")

	// ErrNoText means the PDF has pages but no text layer, typically a scan.
	ErrNoText = errors.New("no extractable text")
)

// Document is the text content of an uploaded file.
type Document struct {
	Text  string
	Pages int
}

// Extractor pulls plain text out of an uploaded document.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (Document, error)
}

// PDFExtractor validates with pdfcpu and reads the text layer with ledongthuc/pdf.
type PDFExtractor struct {
	conf *model.Configuration
}

func NewPDFExtractor() *PDFExtractor {
	api.DisableConfigDir()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PDFExtractor{conf: conf}
}

func (e *PDFExtractor) Extract(ctx context.Context, data []byte) (Document, error) {
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF")) {
		return Document{}, ErrNotPDF
	}

	pages, err := e.pageCount(data)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}

	text, err := plainText(data)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	text = collapseWhitespace(text)
	if text == "" {
		return Document{Pages: pages}, ErrNoText
	}
	return Document{Text: text, Pages: pages}, nil
}

func (e *PDFExtractor) pageCount(data []byte) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf validation panicked: %v", r)
		}
	}()
	return api.PageCount(bytes.NewReader(data), e.conf)
}

// plainText reads every page's text layer. The reader panics on some malformed
// streams, so a panic is reported as an error.
func plainText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf text extraction panicked: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	rd, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	b, err := io.ReadAll(rd)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var (
	spaceRun = regexp.MustCompile(`[ \t\f\v]+`)
	lineRun  = regexp.MustCompile(`\n\s*\n+`)
)

func collapseWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = spaceRun.ReplaceAllString(s, " ")
	s = lineRun.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
