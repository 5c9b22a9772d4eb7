package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
)

// buildPDF writes a minimal PDF with one Helvetica text line per page and a
// correct xref table.
func buildPDF(t *testing.T, lines ...string) []byte {
	t.Helper()
	n := len(lines)
	fontID := 3 + 2*n
	kids := make([]string, 0, n)
	for i := range lines {
		kids = append(kids, fmt.Sprintf("%d 0 R", 3+2*i))
	}

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n),
	}
	for i, line := range lines {
		content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", line)
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>", fontID, 4+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}
	objects = append(objects, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestPDFLoaderExtractsRealDocument(t *testing.T) {
	data := buildPDF(t, "Hello World", "Second Page")

	outcome, err := NewExtractor(PDFLoader{}).Extract(context.Background(), data)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if outcome.Kind != KindFull {
		t.Fatalf("expected full extraction, got %s (%+v)", outcome.Kind, outcome)
	}
	if outcome.PagesTotal != 2 || outcome.PagesProcessed != 2 {
		t.Fatalf("expected 2/2 pages, got %d/%d", outcome.PagesProcessed, outcome.PagesTotal)
	}
	for _, want := range []string{"Hello", "World", "Second", "Page"} {
		if !strings.Contains(outcome.Text(), want) {
			t.Fatalf("expected %q in %q", want, outcome.Text())
		}
	}
	if strings.Index(outcome.FullText, "Hello") > strings.Index(outcome.FullText, "Second") {
		t.Fatalf("pages out of order: %q", outcome.FullText)
	}
}

func TestPDFLoaderBareLoadSkipsLeadingBytes(t *testing.T) {
	data := append([]byte("junk before header\n"), buildPDF(t, "Bare Load")...)

	doc, err := PDFLoader{}.Load(data, LoadOptions{Fonts: false})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.NumPages() != 1 {
		t.Fatalf("expected 1 page, got %d", doc.NumPages())
	}
	tokens, err := doc.PageText(context.Background(), 1)
	if err != nil {
		t.Fatalf("PageText: %v", err)
	}
	if got := strings.Join(tokens, " "); !strings.Contains(got, "Bare") || !strings.Contains(got, "Load") {
		t.Fatalf("unexpected tokens %q", tokens)
	}
}
