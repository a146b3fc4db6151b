package pdfexport

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/encoding/charmap"
)

// Characters outside WinAnsi are drawn with a composite font whose two-byte
// codes keep both bytes below 0x80 and never use the space byte, so they
// survive single-byte decoding by text extractors and are resolved through
// the ToUnicode map.
const (
	cidDigits   = 127
	maxCIDs     = cidDigits*cidDigits - 1
	cmapChunk   = 100
	unicodeFont = "RFPDeskUnicode"
)

// winAnsiByte returns the WinAnsi code for r when a standard font can draw it.
func winAnsiByte(r rune) (byte, bool) {
	if r < 0x20 || (r >= 0x7F && r <= 0xA0) || r == 0xAD {
		return 0, false
	}
	return charmap.Windows1252.EncodeRune(r)
}

type cidTable struct {
	byRune map[rune]uint16
	runes  []rune
}

// cidDigit maps 0..126 onto the bytes 0x00..0x7F other than 0x20.
func cidDigit(d int) uint16 {
	if d >= ' ' {
		d++
	}
	return uint16(d)
}

func cidForIndex(i int) uint16 {
	n := i + 1
	return cidDigit(n/cidDigits)<<8 | cidDigit(n%cidDigits)
}

// buildCIDTable assigns codes to every rune in lines that WinAnsi cannot
// encode, in code point order so output is reproducible.
func buildCIDTable(lines []line) (*cidTable, error) {
	seen := map[rune]bool{}
	var runes []rune
	for _, ln := range lines {
		for _, r := range ln.text {
			if _, ok := winAnsiByte(r); ok || r == ' ' || seen[r] {
				continue
			}
			seen[r] = true
			runes = append(runes, r)
		}
	}
	if len(runes) > maxCIDs {
		return nil, fmt.Errorf("%d distinct non-WinAnsi characters exceeds limit of %d", len(runes), maxCIDs)
	}
	sort.Slice(runes, func(i, j int) bool { return runes[i] < runes[j] })

	t := &cidTable{byRune: make(map[rune]uint16, len(runes)), runes: runes}
	for i, r := range runes {
		t.byRune[r] = cidForIndex(i)
	}
	return t, nil
}

func (t *cidTable) empty() bool { return len(t.runes) == 0 }

// toUnicodeCMap renders the CMap that maps each code back to its character.
func (t *cidTable) toUnicodeCMap() []byte {
	var b strings.Builder
	b.WriteString("/CIDInit /ProcSet findresource begin\n12 dict begin\nbegincmap\n")
	b.WriteString("/CIDSystemInfo << /Registry (Adobe) /Ordering (UCS) /Supplement 0 >> def\n")
	b.WriteString("/CMapName /Adobe-Identity-UCS def\n/CMapType 2 def\n")
	b.WriteString("1 begincodespacerange\n<0000> <FFFF>\nendcodespacerange\n")
	for start := 0; start < len(t.runes); start += cmapChunk {
		chunk := t.runes[start:min(start+cmapChunk, len(t.runes))]
		fmt.Fprintf(&b, "%d beginbfchar\n", len(chunk))
		for _, r := range chunk {
			fmt.Fprintf(&b, "<%04X> <", t.byRune[r])
			for _, unit := range utf16.Encode([]rune{r}) {
				fmt.Fprintf(&b, "%04X", unit)
			}
			b.WriteString(">\n")
		}
		b.WriteString("endbfchar\n")
	}
	b.WriteString("endcmap\nCMapName currentdict /CMapResource defineresource pop\nend\nend\n")
	return []byte(b.String())
}

// blankByte is the WinAnsi no-break space. Body text never reaches the
// standard fonts with it, so it is free to draw layout spaces: extractors
// skip the plain space code but report this one.
const blankByte = 0xA0

// run is a stretch of one line drawn with a single font.
type run struct {
	col     int
	unicode bool
	codes   []byte
}

// segment splits a line into single-font runs, each tagged with its starting
// column. Spaces are drawn as blank glyphs so trailing and whitespace-only
// content survives extraction.
func segment(text []rune, cids *cidTable) []run {
	var runs []run
	var cur *run
	for col, r := range text {
		b, latin := winAnsiByte(r)
		if r == ' ' {
			b, latin = blankByte, true
		}
		if cur == nil || cur.unicode == latin {
			runs = append(runs, run{col: col, unicode: !latin})
			cur = &runs[len(runs)-1]
		}
		if latin {
			cur.codes = append(cur.codes, b)
			continue
		}
		cid := cids.byRune[r]
		cur.codes = append(cur.codes, byte(cid>>8), byte(cid))
	}
	return runs
}

func hexString(codes []byte) string {
	return fmt.Sprintf("<%X>", codes)
}
