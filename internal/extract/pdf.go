package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

var pdfHeader = []byte("%PDF-")

// PDFLoader loads documents with github.com/ledongthuc/pdf.
type PDFLoader struct{}

// Load parses data. A bare load skips font decoding and tolerates bytes in
// front of the PDF header.
func (PDFLoader) Load(data []byte, opts LoadOptions) (doc Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("malformed PDF: parser panic: %v", r)
		}
	}()

	if !opts.Fonts {
		if idx := bytes.Index(data, pdfHeader); idx > 0 {
			data = data[idx:]
		}
	}
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return &pdfDocument{reader: reader, fonts: opts.Fonts}, nil
}

type pdfDocument struct {
	reader *pdf.Reader
	fonts  bool
}

func (d *pdfDocument) NumPages() int {
	return d.reader.NumPage()
}

func (d *pdfDocument) PageText(ctx context.Context, n int) (tokens []string, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			tokens = nil
			err = fmt.Errorf("page %d: %v", n, r)
		}
	}()

	page := d.reader.Page(n)
	if page.V.IsNull() {
		return nil, fmt.Errorf("page %d: missing page object", n)
	}

	fonts := map[string]*pdf.Font{}
	if d.fonts {
		for _, name := range page.Fonts() {
			font := page.Font(name)
			fonts[name] = &font
		}
	}
	text, err := page.GetPlainText(fonts)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", n, err)
	}
	return strings.Fields(text), nil
}
