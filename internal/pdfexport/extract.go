package pdfexport

import (
	"bufio"
	"bytes"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"

	rpdf "rsc.io/pdf"
)

var bfcharEntry = regexp.MustCompile(`^<([0-9A-Fa-f]{4})>\s*<([0-9A-Fa-f]+)>$`)

// ExtractText reads back the text of a document produced by Export, one
// output line per line slot. Every page keeps its trailing blank slots so
// page breaks and final empty lines are not dropped.
func ExtractText(content []byte) (text string, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("pdf parser panic: %v", recovered)
			text = ""
		}
	}()

	reader, err := rpdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	numPages := reader.NumPage()
	pages := make([]string, 0, numPages)
	for pageIndex := 1; pageIndex <= numPages; pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		slots := pageSlots(page.Content().Text, readToUnicode(page))
		used := int(page.V.Key(lineSlotsKey).Int64())
		if used == 0 && pageIndex < numPages {
			used = LinesPerPage
		}
		for len(slots) < used {
			slots = append(slots, "")
		}
		pages = append(pages, strings.Join(slots, "\n"))
	}

	return strings.Join(pages, "\n"), nil
}

// readToUnicode loads the code-to-text map of the page's composite font.
func readToUnicode(page rpdf.Page) map[uint16]string {
	font := page.Font("F2")
	if font.V.IsNull() {
		return nil
	}
	stream := font.V.Key("ToUnicode")
	if stream.IsNull() {
		return nil
	}
	rc := stream.Reader()
	defer rc.Close()

	out := map[uint16]string{}
	inBlock := false
	scanner := bufio.NewScanner(rc)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasSuffix(line, "beginbfchar"):
			inBlock = true
		case line == "endbfchar":
			inBlock = false
		case inBlock:
			m := bfcharEntry.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			code, err := strconv.ParseUint(m[1], 16, 16)
			if err != nil {
				continue
			}
			if s, ok := decodeUTF16Hex(m[2]); ok {
				out[uint16(code)] = s
			}
		}
	}
	return out
}

func decodeUTF16Hex(h string) (string, bool) {
	if len(h)%4 != 0 {
		return "", false
	}
	units := make([]uint16, 0, len(h)/4)
	for i := 0; i < len(h); i += 4 {
		v, err := strconv.ParseUint(h[i:i+4], 16, 16)
		if err != nil {
			return "", false
		}
		units = append(units, uint16(v))
	}
	return string(utf16.Decode(units)), true
}

type slotBuilder struct {
	b    strings.Builder
	next int // next free column
}

// pageSlots rebuilds lines from glyph positions. Blank glyphs read back as
// spaces, and any remaining column gap is filled with spaces.
func pageSlots(texts []rpdf.Text, toUnicode map[uint16]string) []string {
	var slots []*slotBuilder
	for i := 0; i < len(texts); i++ {
		t := texts[i]
		slot := int(math.Round((firstBaseline - t.Y) / Leading))
		if slot < 0 {
			slot = 0
		}
		for len(slots) <= slot {
			slots = append(slots, &slotBuilder{})
		}
		sb := slots[slot]

		advance := glyphAdvance * BodyFontSize
		if t.Font == headingFont || t.FontSize >= HeadingFontSize {
			advance = glyphAdvance * HeadingFontSize
		}
		col := max(int(math.Round((t.X-Margin)/advance)), sb.next)
		for sb.next < col {
			sb.b.WriteByte(' ')
			sb.next++
		}

		s := t.S
		if t.Font != unicodeFont && s == "\u00a0" {
			s = " "
		}
		if t.Font == unicodeFont && i+1 < len(texts) && texts[i+1].Font == unicodeFont && len(s) == 1 && len(texts[i+1].S) == 1 {
			code := uint16(s[0])<<8 | uint16(texts[i+1].S[0])
			if mapped, ok := toUnicode[code]; ok {
				s = mapped
				i++
			}
		}
		sb.b.WriteString(s)
		sb.next++
	}

	out := make([]string, len(slots))
	for i, sb := range slots {
		out[i] = sb.b.String()
	}
	return out
}
