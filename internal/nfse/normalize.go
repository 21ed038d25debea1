package nfse

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

var (
	reLineBreaks  = regexp.MustCompile(`\r\n?`)
	reSpaceRunes  = regexp.MustCompile(`[\p{Zs}\x{200B}\x{FEFF}]`)
	reWhitespace  = regexp.MustCompile(`\s+`)
	reMultiSpaces = regexp.MustCompile(`\s{2,}`)

	// Box-drawing glyphs left behind when UTF-8 text was decoded as CP850.
	reBoxDrawing = regexp.MustCompile(`[\x{2500}-\x{257F}]`)
	reMojibake   = regexp.MustCompile(`\S*[\x{2500}-\x{257F}]\S*`)
)

// View selects which rendition of the document a strategy runs against.
type View int

const (
	// Raw keeps line breaks, for layouts where a value sits on the line after its label.
	Raw View = iota
	// Collapsed has every whitespace run replaced by one space.
	Collapsed
)

func (v View) String() string {
	if v == Collapsed {
		return "collapsed"
	}
	return "raw"
}

// Document holds the two renditions of the acquired text.
// Neither is modified after NewDocument returns.
type Document struct {
	Raw       string
	Collapsed string
}

// NewDocument normalizes text to NFC with LF line endings, repairs CP850 mojibake
// and derives the collapsed rendition.
func NewDocument(text string) Document {
	raw := strings.ToValidUTF8(text, "")
	raw = norm.NFC.String(raw)
	raw = reLineBreaks.ReplaceAllString(raw, "\n")
	raw = reSpaceRunes.ReplaceAllString(raw, " ")
	raw = RepairMojibake(raw)

	return Document{
		Raw:       raw,
		Collapsed: strings.TrimSpace(reWhitespace.ReplaceAllString(raw, " ")),
	}
}

// View returns the rendition selected by v.
func (d Document) View(v View) string {
	if v == Collapsed {
		return d.Collapsed
	}
	return d.Raw
}

// RepairMojibake reverses UTF-8 text that was decoded as CP850, such as "Servi├ºo".
// Tokens that do not round-trip to valid UTF-8 are left untouched.
func RepairMojibake(s string) string {
	if !reBoxDrawing.MatchString(s) {
		return s
	}
	encoder := charmap.CodePage850.NewEncoder()
	return reMojibake.ReplaceAllStringFunc(s, func(token string) string {
		b, err := encoder.String(token)
		if err != nil || !utf8.ValidString(b) {
			return token
		}
		return b
	})
}

// stripGarbage removes leftover box-drawing glyphs.
func stripGarbage(s string) string {
	return reBoxDrawing.ReplaceAllString(s, "")
}

// collapseSpaces replaces every whitespace run with a single space.
func collapseSpaces(s string) string {
	return strings.TrimSpace(reWhitespace.ReplaceAllString(s, " "))
}

// truncateRunes cuts s to at most max runes.
func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

// window returns up to size bytes of text starting at offset, snapped to rune boundaries.
func window(text string, offset, size int) string {
	if offset < 0 || offset >= len(text) {
		return ""
	}
	for offset > 0 && !utf8.RuneStart(text[offset]) {
		offset--
	}
	end := offset + size
	if end >= len(text) {
		return text[offset:]
	}
	for end > offset && !utf8.RuneStart(text[end]) {
		end--
	}
	return text[offset:end]
}
