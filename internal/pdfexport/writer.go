package pdfexport

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	bodyFont    = "Courier"
	headingFont = "Courier-Bold"

	// lineSlotsKey records how many line slots a page uses, including
	// trailing empty ones that draw nothing.
	lineSlotsKey = "RFPDeskLineSlots"
)

// pdfWriter accumulates numbered objects and emits a classic xref table.
type pdfWriter struct {
	buf     bytes.Buffer
	offsets map[int]int
	next    int
}

func newPDFWriter() *pdfWriter {
	w := &pdfWriter{offsets: map[int]int{}}
	w.buf.WriteString("%PDF-1.4\n%\xE2\xE3\xCF\xD3\n")
	return w
}

func (w *pdfWriter) reserve() int {
	w.next++
	return w.next
}

func (w *pdfWriter) object(num int, body string) {
	w.offsets[num] = w.buf.Len()
	fmt.Fprintf(&w.buf, "%d 0 obj\n%s\nendobj\n", num, body)
}

func (w *pdfWriter) stream(num int, dict string, data []byte) {
	w.offsets[num] = w.buf.Len()
	fmt.Fprintf(&w.buf, "%d 0 obj\n<< %s/Length %d >>\nstream\n", num, dict, len(data))
	w.buf.Write(data)
	w.buf.WriteString("\nendstream\nendobj\n")
}

func (w *pdfWriter) finish(root, info int) ([]byte, error) {
	nums := make([]int, 0, len(w.offsets))
	for n := range w.offsets {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	for i, n := range nums {
		if n != i+1 {
			return nil, fmt.Errorf("object %d reserved but never written", i+1)
		}
	}

	xref := w.buf.Len()
	fmt.Fprintf(&w.buf, "xref\n0 %d\n", len(nums)+1)
	w.buf.WriteString("0000000000 65535 f \n")
	for _, n := range nums {
		fmt.Fprintf(&w.buf, "%010d 00000 n \n", w.offsets[n])
	}
	fmt.Fprintf(&w.buf, "trailer\n<< /Size %d /Root %d 0 R /Info %d 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(nums)+1, root, info, xref)
	return w.buf.Bytes(), nil
}

func deflate(data []byte) ([]byte, error) {
	var b bytes.Buffer
	zw := zlib.NewWriter(&b)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// monospaceWidths lists explicit 600-unit widths for the WinAnsi range.
func monospaceWidths() string {
	return "/FirstChar 32 /LastChar 255 /Widths [" + strings.TrimSpace(strings.Repeat("600 ", 224)) + "]"
}

// textString encodes s as a PDF text string, using UTF-16BE when it is not
// plain ASCII.
func textString(s string) string {
	ascii := true
	for _, r := range s {
		if r < 0x20 || r > 0x7E {
			ascii = false
			break
		}
	}
	if ascii {
		r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
		return "(" + r.Replace(s) + ")"
	}
	var b strings.Builder
	b.WriteString("<FEFF")
	for _, r := range s {
		if r >= 0x10000 {
			r -= 0x10000
			fmt.Fprintf(&b, "%04X%04X", 0xD800+(r>>10), 0xDC00+(r&0x3FF))
			continue
		}
		fmt.Fprintf(&b, "%04X", r)
	}
	b.WriteString(">")
	return b.String()
}

func pdfDate(t time.Time) string {
	return "D:" + t.UTC().Format("20060102150405") + "Z"
}

// pageContent draws one page: each run is placed at its absolute column so
// layout does not depend on font metrics.
func pageContent(lines []line, cids *cidTable) []byte {
	var b strings.Builder
	b.WriteString("BT\n")
	curFont, curSize := "", 0.0
	for slot, ln := range lines {
		size, latinFont := BodyFontSize, "/F1"
		if ln.heading {
			size, latinFont = HeadingFontSize, "/F3"
		}
		for _, r := range segment(ln.text, cids) {
			font := latinFont
			if r.unicode {
				font = "/F2"
			}
			if font != curFont || size != curSize {
				fmt.Fprintf(&b, "%s %g Tf\n", font, size)
				curFont, curSize = font, size
			}
			fmt.Fprintf(&b, "1 0 0 1 %.2f %.2f Tm\n%s Tj\n", columnX(r.col, size), baselineY(slot), hexString(r.codes))
		}
	}
	b.WriteString("ET\n")
	return []byte(b.String())
}

type docInfo struct {
	title    string
	producer string
	created  time.Time
}

// writePDF serialises a laid-out document.
func writePDF(l layout, cids *cidTable, info docInfo) ([]byte, error) {
	w := newPDFWriter()
	catalog := w.reserve()
	pages := w.reserve()
	f1 := w.reserve()
	f3 := w.reserve()

	fonts := fmt.Sprintf("/F1 %d 0 R /F3 %d 0 R", f1, f3)
	w.object(f1, fmt.Sprintf("<< /Type /Font /Subtype /Type1 /BaseFont /%s /Encoding /WinAnsiEncoding %s >>", bodyFont, monospaceWidths()))
	w.object(f3, fmt.Sprintf("<< /Type /Font /Subtype /Type1 /BaseFont /%s /Encoding /WinAnsiEncoding %s >>", headingFont, monospaceWidths()))

	if !cids.empty() {
		f2, cidFont, descriptor, toUnicode := w.reserve(), w.reserve(), w.reserve(), w.reserve()
		fonts += fmt.Sprintf(" /F2 %d 0 R", f2)
		w.object(f2, fmt.Sprintf("<< /Type /Font /Subtype /Type0 /BaseFont /%s /Encoding /Identity-H /DescendantFonts [%d 0 R] /ToUnicode %d 0 R >>", unicodeFont, cidFont, toUnicode))
		w.object(cidFont, fmt.Sprintf("<< /Type /Font /Subtype /CIDFontType2 /BaseFont /%s /CIDSystemInfo << /Registry (Adobe) /Ordering (Identity) /Supplement 0 >> /FontDescriptor %d 0 R /DW 600 /CIDToGIDMap /Identity >>", unicodeFont, descriptor))
		w.object(descriptor, fmt.Sprintf("<< /Type /FontDescriptor /FontName /%s /Flags 33 /FontBBox [0 -200 600 800] /ItalicAngle 0 /Ascent 800 /Descent -200 /CapHeight 700 /StemV 80 >>", unicodeFont))
		w.stream(toUnicode, "", cids.toUnicodeCMap())
	}

	infoObj := w.reserve()
	w.object(infoObj, fmt.Sprintf("<< /Title %s /Producer %s /CreationDate (%s) >>", textString(info.title), textString(info.producer), pdfDate(info.created)))

	kids := make([]string, 0, len(l.pages))
	for _, pageLines := range l.pages {
		page, content := w.reserve(), w.reserve()
		data, err := deflate(pageContent(pageLines, cids))
		if err != nil {
			return nil, fmt.Errorf("compress page content: %w", err)
		}
		w.stream(content, "/Filter /FlateDecode ", data)
		w.object(page, fmt.Sprintf("<< /Type /Page /Parent %d 0 R /MediaBox [0 0 %.2f %.2f] /Resources << /Font << %s >> >> /Contents %d 0 R /%s %d >>", pages, PageWidth, PageHeight, fonts, content, lineSlotsKey, len(pageLines)))
		kids = append(kids, fmt.Sprintf("%d 0 R", page))
	}

	w.object(pages, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(kids)))
	w.object(catalog, fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", pages))
	return w.finish(catalog, infoObj)
}
