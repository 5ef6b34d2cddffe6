package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/meditrack-ai/platform/pkg/analysis"
)

// RenderPDF produces a minimal single-font PDF of the report. The document is
// assembled by hand: one page object per 54 lines of the markdown rendering,
// Helvetica 10pt, no compression.
func RenderPDF(report analysis.Report) []byte {
	lines := splitLines(FormatMarkdown(report), 54)

	var objects []string

	pageRefs := make([]string, len(lines))
	contentStart := 3 + len(lines) // catalog, pages, font precede pages+streams
	for i := range lines {
		pageRefs[i] = fmt.Sprintf("%d 0 R", 4+i)
	}

	objects = append(objects, "<< /Type /Catalog /Pages 2 0 R >>")
	objects = append(objects, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>",
		strings.Join(pageRefs, " "), len(lines)))
	objects = append(objects, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")

	for i := range lines {
		objects = append(objects, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents %d 0 R /Resources << /Font << /F1 3 0 R >> >> >>",
			contentStart+i+1))
	}
	for _, pageLines := range lines {
		objects = append(objects, contentStream(pageLines))
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xrefStart := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(objects)+1, xrefStart)

	return buf.Bytes()
}

func splitLines(text string, perPage int) [][]string {
	all := strings.Split(text, "\n")
	var pages [][]string
	for len(all) > 0 {
		n := perPage
		if n > len(all) {
			n = len(all)
		}
		pages = append(pages, all[:n])
		all = all[n:]
	}
	if len(pages) == 0 {
		pages = [][]string{{""}}
	}
	return pages
}

func contentStream(lines []string) string {
	var text strings.Builder
	text.WriteString("BT /F1 10 Tf 50 742 Td 13 TL\n")
	for _, line := range lines {
		fmt.Fprintf(&text, "(%s) Tj T*\n", escapePDF(line))
	}
	text.WriteString("ET")

	stream := text.String()
	return fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream)
}

func escapePDF(s string) string {
	r := strings.NewReplacer("\\", "\\\\", "(", "\\(", ")", "\\)")
	return r.Replace(s)
}
