package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"resume-analyzer/internal/shared/metrics"
	"resume-analyzer/internal/shared/telemetry"
)

// Kind classifies an extraction result.
type Kind string

const (
	KindFull              Kind = "full"
	KindPartial           Kind = "partial"
	KindNoText            Kind = "no_text"
	KindEmptyText         Kind = "empty_text"
	KindLoaderUnavailable Kind = "loader_unavailable"
	KindDegraded          Kind = "degraded"
)

const (
	noTextMessage            = "No text could be extracted from this PDF. This may be a scanned document, image-based PDF, or encrypted file."
	emptyTextMessage         = "PDF was processed successfully, but no readable text was found. This may be a document with only images or special formatting."
	loaderUnavailableMessage = "PDF processing encountered a worker loading issue. The file upload will continue, but text analysis may be limited. Please try again if this persists."
	degradedMessage          = "Text extraction from PDF encountered an issue, but the file has been uploaded successfully. Manual review of the document may be needed for analysis."
)

// Outcome describes what extraction produced. Text renders it as the string
// handed to analysis.
type Outcome struct {
	Kind           Kind
	FullText       string
	PagesProcessed int
	PagesTotal     int
}

// Text returns the extracted text, a placeholder, or the text with a note
// about pages that failed.
func (o Outcome) Text() string {
	switch o.Kind {
	case KindFull:
		return o.FullText
	case KindPartial:
		return fmt.Sprintf("%s\n\n[Note: %d pages could not be processed]", o.FullText, o.PagesTotal-o.PagesProcessed)
	case KindNoText:
		return noTextMessage
	case KindEmptyText:
		return emptyTextMessage
	case KindLoaderUnavailable:
		return loaderUnavailableMessage
	default:
		return degradedMessage
	}
}

// LoadOptions selects how much of the PDF machinery a load uses.
type LoadOptions struct {
	// Fonts enables font table decoding for text mapping.
	Fonts bool
}

// Loader parses PDF bytes into a Document.
type Loader interface {
	Load(data []byte, opts LoadOptions) (Document, error)
}

// Document exposes page count and per-page text tokens. Pages are 1-based.
type Document interface {
	NumPages() int
	PageText(ctx context.Context, page int) ([]string, error)
}

// Extractor pulls text out of PDF uploads, isolating per-page failures.
type Extractor struct {
	Loader Loader
}

func NewExtractor(loader Loader) *Extractor {
	return &Extractor{Loader: loader}
}

// Extract never fails for degraded content. The only errors are
// ErrInvalidDocument, ErrEncryptedDocument and context errors.
func (e *Extractor) Extract(ctx context.Context, data []byte) (Outcome, error) {
	outcome, err := e.extract(ctx, data)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Outcome{}, ctxErr
		}
		telemetry.Warn("extract.failed", map[string]any{"error": err})
		outcome, err = degrade(err)
		if err != nil {
			return Outcome{}, err
		}
	}

	metrics.IncExtractionOutcome(string(outcome.Kind))
	telemetry.Info("extract.complete", map[string]any{
		"kind":            string(outcome.Kind),
		"pages_processed": outcome.PagesProcessed,
		"pages_total":     outcome.PagesTotal,
	})
	return outcome, nil
}

func (e *Extractor) extract(ctx context.Context, data []byte) (Outcome, error) {
	doc, err := e.load(data)
	if err != nil {
		return Outcome{}, err
	}

	total := doc.NumPages()
	var buf strings.Builder
	processed := 0
	for page := 1; page <= total; page++ {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}
		tokens, err := safePageText(ctx, doc, page)
		if err != nil {
			telemetry.Warn("extract.page_failed", map[string]any{
				"page":  page,
				"error": err,
			})
			continue
		}
		buf.WriteString(strings.Join(tokens, " "))
		buf.WriteString("\n")
		processed++
	}

	text := strings.TrimSpace(buf.String())
	outcome := Outcome{FullText: text, PagesProcessed: processed, PagesTotal: total}
	switch {
	case text == "" && processed == 0:
		outcome.Kind = KindNoText
	case text == "":
		outcome.Kind = KindEmptyText
	case processed < total:
		outcome.Kind = KindPartial
	default:
		outcome.Kind = KindFull
	}
	return outcome, nil
}

func (e *Extractor) load(data []byte) (Document, error) {
	if e.Loader == nil {
		return nil, ErrLoaderUnavailable
	}
	doc, err := e.Loader.Load(data, LoadOptions{Fonts: true})
	if err == nil {
		return doc, nil
	}
	if errors.Is(err, ErrLoaderUnavailable) {
		return nil, err
	}
	telemetry.Warn("extract.load_retry", map[string]any{"error": err})

	doc, err = e.Loader.Load(data, LoadOptions{Fonts: false})
	if err != nil {
		return nil, &DocumentLoadError{Err: err}
	}
	return doc, nil
}

func degrade(err error) (Outcome, error) {
	if isLoaderFailure(err) {
		return Outcome{Kind: KindLoaderUnavailable}, nil
	}
	msg := err.Error()
	switch {
	case isInvalidDocument(msg):
		return Outcome{}, fmt.Errorf("%w (%s)", ErrInvalidDocument, msg)
	case isEncryptedDocument(msg):
		return Outcome{}, fmt.Errorf("%w (%s)", ErrEncryptedDocument, msg)
	}
	return Outcome{Kind: KindDegraded}, nil
}

func safePageText(ctx context.Context, doc Document, page int) (tokens []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page %d: parser panic: %v", page, r)
		}
	}()
	return doc.PageText(ctx, page)
}
