// Package pdfexport renders proposal text into a paginated PDF without
// losing characters: long lines wrap onto the next slot, whitespace is kept
// as laid out, and characters outside the standard fonts go through a
// composite font with a ToUnicode map.
package pdfexport

import (
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/david/rfp-desk/internal/apperr"
)

const defaultProducer = "rfp-desk"

// Document is a rendered export ready for download.
type Document struct {
	Filename string
	Data     []byte
	Pages    int
	Lines    int
}

type Options struct {
	// Heading is drawn above the body on the first page.
	Heading string
	// VerifyRoundTrip re-reads every rendered document and fails the export
	// when the extracted text differs from the laid-out text.
	VerifyRoundTrip bool
	Now             func() time.Time
}

type Exporter struct {
	heading string
	verify  bool
	now     func() time.Time
}

func NewExporter(opts Options) *Exporter {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Exporter{heading: opts.Heading, verify: opts.VerifyRoundTrip, now: opts.Now}
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileName derives the download name for an opportunity's proposal.
func FileName(rfpID string) string {
	id := strings.Trim(unsafeFileChars.ReplaceAllString(strings.TrimSpace(rfpID), "_"), "_.")
	if id == "" {
		id = "draft"
	}
	return "Proposal_" + id + ".pdf"
}

// Export renders body verbatim under the configured heading. Rendering
// failures are returned as retryable render errors; the caller's body is
// never modified.
func (e *Exporter) Export(filename, body string) (doc *Document, err error) {
	const op = "export"
	if strings.TrimSpace(filename) == "" {
		return nil, apperr.Validation(op, "missing output filename")
	}
	if !utf8.ValidString(body) {
		return nil, apperr.Validation(op, "proposal body is not valid UTF-8")
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			doc = nil
			err = apperr.Render(op, fmt.Errorf("renderer panic: %v", recovered))
		}
	}()

	l := layoutText(e.heading, body)
	if got, want := l.bodyText(), expectedBody(body); got != want {
		return nil, apperr.Render(op, fmt.Errorf("layout dropped text: %d of %d characters placed", utf8.RuneCountInString(got), utf8.RuneCountInString(want)))
	}

	cids, err := buildCIDTable(l.lines())
	if err != nil {
		return nil, apperr.Render(op, err)
	}

	data, err := writePDF(l, cids, docInfo{title: strings.TrimSuffix(filename, ".pdf"), producer: defaultProducer, created: e.now()})
	if err != nil {
		return nil, apperr.Render(op, err)
	}

	if e.verify {
		extracted, err := ExtractText(data)
		if err != nil {
			return nil, apperr.Render(op, fmt.Errorf("read back: %w", err))
		}
		if want := l.visualText(); extracted != want {
			return nil, apperr.Render(op, fmt.Errorf("read back mismatch: %d characters extracted, %d expected", utf8.RuneCountInString(extracted), utf8.RuneCountInString(want)))
		}
	}

	lines := len(l.lines())
	log.Printf("[export] %s: %d pages, %d lines, %d bytes", filename, len(l.pages), lines, len(data))
	return &Document{Filename: filename, Data: data, Pages: len(l.pages), Lines: lines}, nil
}
