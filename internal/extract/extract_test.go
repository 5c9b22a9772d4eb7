package extract

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakePage struct {
	tokens []string
	err    error
	panic  bool
}

type fakeDocument struct {
	pages []fakePage
}

func (d *fakeDocument) NumPages() int { return len(d.pages) }

func (d *fakeDocument) PageText(ctx context.Context, n int) ([]string, error) {
	p := d.pages[n-1]
	if p.panic {
		panic("bad content stream")
	}
	return p.tokens, p.err
}

type fakeLoader struct {
	doc     Document
	errs    []error
	options []LoadOptions
}

func (l *fakeLoader) Load(data []byte, opts LoadOptions) (Document, error) {
	l.options = append(l.options, opts)
	if len(l.errs) > 0 {
		err := l.errs[0]
		l.errs = l.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return l.doc, nil
}

func TestExtractFullText(t *testing.T) {
	loader := &fakeLoader{doc: &fakeDocument{pages: []fakePage{
		{tokens: []string{"Jane", "Doe"}},
		{tokens: []string{"Go", "Engineer"}},
	}}}

	outcome, err := NewExtractor(loader).Extract(context.Background(), []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if outcome.Kind != KindFull {
		t.Fatalf("expected full, got %s", outcome.Kind)
	}
	if outcome.Text() != "Jane Doe\nGo Engineer" {
		t.Fatalf("unexpected text %q", outcome.Text())
	}
	if len(loader.options) != 1 || !loader.options[0].Fonts {
		t.Fatalf("expected a single full load, got %+v", loader.options)
	}
}

func TestExtractSkipsFailedPages(t *testing.T) {
	loader := &fakeLoader{doc: &fakeDocument{pages: []fakePage{
		{tokens: []string{"page", "one"}},
		{err: errors.New("bad stream")},
		{tokens: []string{"page", "three"}},
	}}}

	outcome, err := NewExtractor(loader).Extract(context.Background(), nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if outcome.Kind != KindPartial || outcome.PagesProcessed != 2 || outcome.PagesTotal != 3 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	want := "page one\npage three\n\n[Note: 1 pages could not be processed]"
	if outcome.Text() != want {
		t.Fatalf("unexpected text %q", outcome.Text())
	}
}

func TestExtractRecoversPagePanic(t *testing.T) {
	loader := &fakeLoader{doc: &fakeDocument{pages: []fakePage{
		{panic: true},
		{tokens: []string{"ok"}},
	}}}

	outcome, err := NewExtractor(loader).Extract(context.Background(), nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if outcome.Kind != KindPartial || outcome.FullText != "ok" {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
}

func TestExtractAllPagesFail(t *testing.T) {
	loader := &fakeLoader{doc: &fakeDocument{pages: []fakePage{
		{err: errors.New("x")},
		{err: errors.New("y")},
	}}}

	outcome, err := NewExtractor(loader).Extract(context.Background(), nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if outcome.Kind != KindNoText {
		t.Fatalf("expected no_text, got %s", outcome.Kind)
	}
	if !strings.HasPrefix(outcome.Text(), "No text could be extracted from this PDF.") {
		t.Fatalf("unexpected text %q", outcome.Text())
	}
}

func TestExtractEmptyPages(t *testing.T) {
	loader := &fakeLoader{doc: &fakeDocument{pages: []fakePage{
		{tokens: []string{}},
		{tokens: []string{" ", ""}},
	}}}

	outcome, err := NewExtractor(loader).Extract(context.Background(), nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if outcome.Kind != KindEmptyText {
		t.Fatalf("expected empty_text, got %s", outcome.Kind)
	}
	if !strings.HasPrefix(outcome.Text(), "PDF was processed successfully, but no readable text was found.") {
		t.Fatalf("unexpected text %q", outcome.Text())
	}
}

func TestExtractRetriesBareLoad(t *testing.T) {
	loader := &fakeLoader{
		doc:  &fakeDocument{pages: []fakePage{{tokens: []string{"text"}}}},
		errs: []error{errors.New("font table broken"), nil},
	}

	outcome, err := NewExtractor(loader).Extract(context.Background(), nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if outcome.Kind != KindFull {
		t.Fatalf("expected full, got %s", outcome.Kind)
	}
	if len(loader.options) != 2 || !loader.options[0].Fonts || loader.options[1].Fonts {
		t.Fatalf("expected full then bare load, got %+v", loader.options)
	}
}

func TestExtractLoadFailures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr error
		kind    Kind
		text    string
	}{
		{name: "invalid header", err: errors.New("not a PDF file: invalid header"), wantErr: ErrInvalidDocument},
		{name: "malformed", err: errors.New("malformed PDF file: missing trailer"), wantErr: ErrInvalidDocument},
		{name: "corrupted", err: errors.New("stream corrupted"), wantErr: ErrInvalidDocument},
		{name: "encrypted", err: errors.New("encrypted PDF: invalid password"), wantErr: ErrEncryptedDocument},
		{name: "worker", err: errors.New("Worker was terminated"), kind: KindLoaderUnavailable, text: "PDF processing encountered a worker loading issue."},
		{name: "other", err: errors.New("unexpected EOF"), kind: KindDegraded, text: "Text extraction from PDF encountered an issue"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			loader := &fakeLoader{errs: []error{tt.err, tt.err}}
			outcome, err := NewExtractor(loader).Extract(context.Background(), nil)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected placeholder, got error %v", err)
			}
			if outcome.Kind != tt.kind || !strings.HasPrefix(outcome.Text(), tt.text) {
				t.Fatalf("unexpected outcome %+v text %q", outcome, outcome.Text())
			}
		})
	}
}

func TestExtractWithoutLoaderDegrades(t *testing.T) {
	outcome, err := NewExtractor(nil).Extract(context.Background(), []byte("%PDF"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if outcome.Kind != KindLoaderUnavailable {
		t.Fatalf("expected loader_unavailable, got %s", outcome.Kind)
	}
}

func TestExtractStopsOnCanceledContext(t *testing.T) {
	loader := &fakeLoader{doc: &fakeDocument{pages: []fakePage{{tokens: []string{"a"}}}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewExtractor(loader).Extract(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDocumentLoadErrorMessage(t *testing.T) {
	err := &DocumentLoadError{Err: errors.New("boom")}
	if err.Error() != "Failed to load PDF document: boom" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestPDFLoaderRejectsNonPDF(t *testing.T) {
	_, err := NewExtractor(PDFLoader{}).Extract(context.Background(), []byte("this is plain text, not a pdf at all"))
	if !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("expected ErrInvalidDocument, got %v", err)
	}
}

func TestValidatePDF(t *testing.T) {
	tests := []struct {
		name string
		mime string
		size int64
		want error
	}{
		{name: "ok", mime: "application/pdf", size: 1024},
		{name: "limit", mime: "application/pdf", size: MaxFileSize},
		{name: "wrong type", mime: "image/png", size: 10, want: ErrNotPDF},
		{name: "too large", mime: "application/pdf", size: MaxFileSize + 1, want: ErrTooLarge},
	}
	for _, tt := range tests {
		if err := ValidatePDF(tt.mime, tt.size); !errors.Is(err, tt.want) {
			t.Fatalf("%s: expected %v, got %v", tt.name, tt.want, err)
		}
	}
}
