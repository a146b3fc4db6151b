package pdfexport

import (
	"math"
	"strings"
)

// A4 portrait in points with fixed-pitch text. Glyph advance for the
// monospaced fonts is 600/1000 em.
const (
	PageWidth       = 595.28
	PageHeight      = 841.89
	Margin          = 40.0
	BodyFontSize    = 9.0
	HeadingFontSize = 14.0
	Leading         = 12.0
	TabWidth        = 8

	glyphAdvance = 0.6
)

var (
	// Columns is the number of body characters that fit on one line.
	Columns = int(math.Floor((PageWidth - 2*Margin) / (glyphAdvance * BodyFontSize)))
	// LinesPerPage is the number of line slots on one page.
	LinesPerPage = int(math.Floor((PageHeight - 2*Margin) / Leading))

	headingColumns = int(math.Floor((PageWidth - 2*Margin) / (glyphAdvance * HeadingFontSize)))
	firstBaseline  = PageHeight - Margin - BodyFontSize
)

type line struct {
	text    []rune
	heading bool
	// cont marks a line produced by hard-wrapping the previous one.
	cont bool
}

type layout struct {
	pages [][]line
	// headingLines counts the title slots plus the blank separator.
	headingLines int
}

func baselineY(slot int) float64 {
	return firstBaseline - float64(slot)*Leading
}

func columnX(col int, fontSize float64) float64 {
	return Margin + float64(col)*glyphAdvance*fontSize
}

// normalizeBody converts CRLF and lone CR line endings to LF.
func normalizeBody(body string) string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	return strings.ReplaceAll(body, "\r", "\n")
}

// expandTabs replaces tabs with spaces up to the next tab stop.
func expandTabs(s string) []rune {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r != '\t' {
			out = append(out, r)
			continue
		}
		pad := TabWidth - len(out)%TabWidth
		for i := 0; i < pad; i++ {
			out = append(out, ' ')
		}
	}
	return out
}

// wrap hard-breaks runes into chunks of at most width. An empty input
// still yields one empty line.
func wrap(runes []rune, width int, heading bool) []line {
	if len(runes) == 0 {
		return []line{{heading: heading}}
	}
	var out []line
	for start := 0; start < len(runes); start += width {
		end := min(start+width, len(runes))
		out = append(out, line{text: runes[start:end], heading: heading, cont: start > 0})
	}
	return out
}

// layoutText treats body as pre-formatted text: every source line keeps its
// characters and spacing, and lines longer than Columns continue on the next
// slot instead of being cut.
func layoutText(title, body string) layout {
	var all []line
	l := layout{}
	if title = strings.TrimSpace(title); title != "" {
		all = append(all, wrap([]rune(title), headingColumns, true)...)
		all = append(all, line{})
		l.headingLines = len(all)
	}
	for _, src := range strings.Split(normalizeBody(body), "\n") {
		all = append(all, wrap(expandTabs(src), Columns, false)...)
	}

	for start := 0; start < len(all); start += LinesPerPage {
		end := min(start+LinesPerPage, len(all))
		l.pages = append(l.pages, all[start:end])
	}
	return l
}

func (l layout) lines() []line {
	var out []line
	for _, p := range l.pages {
		out = append(out, p...)
	}
	return out
}

// bodyText reassembles the body from the laid-out lines, undoing wraps.
func (l layout) bodyText() string {
	var b strings.Builder
	for i, ln := range l.lines()[l.headingLines:] {
		if i > 0 && !ln.cont {
			b.WriteByte('\n')
		}
		b.WriteString(string(ln.text))
	}
	return b.String()
}

// visualText is what a reader extracts from the rendered pages: one line
// per slot.
func (l layout) visualText() string {
	all := l.lines()
	parts := make([]string, len(all))
	for i, ln := range all {
		parts[i] = string(ln.text)
	}
	return strings.Join(parts, "\n")
}

// expectedBody is the body after the same normalisation layoutText applies.
func expectedBody(body string) string {
	srcLines := strings.Split(normalizeBody(body), "\n")
	for i, s := range srcLines {
		srcLines[i] = string(expandTabs(s))
	}
	return strings.Join(srcLines, "\n")
}
