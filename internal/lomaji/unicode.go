package lomaji

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Codepoints with special meaning in romanized text.
const (
	HanjiCutoff   rune = 0x2e80
	NasalLower    rune = 0x207f // ⁿ
	NasalUpper    rune = 0x1d3a // ᴺ
	DotAboveRight rune = 0x0358
	DotsBelow     rune = 0x0324
	KhinDot       rune = 0x00b7 // ·

	Tone2Mark rune = 0x0301
	Tone3Mark rune = 0x0300
	Tone5Mark rune = 0x0302
	Tone7Mark rune = 0x0304
	Tone8Mark rune = 0x030d
	Tone9Mark rune = 0x0306

	toneLow  = Tone3Mark
	toneHigh = Tone8Mark
)

const (
	KhinDotStr    = "·"
	KhinHyphenStr = "--"
)

// GlyphCategory classifies a codepoint for virtual spacing decisions.
type GlyphCategory int

const (
	GlyphOther GlyphCategory = iota
	GlyphAlnum
	GlyphAsciiPunct
	GlyphKhin
	GlyphHanji
)

// String returns the category name.
func (c GlyphCategory) String() string {
	switch c {
	case GlyphAlnum:
		return "alnum"
	case GlyphAsciiPunct:
		return "punct"
	case GlyphKhin:
		return "khin"
	case GlyphHanji:
		return "hanji"
	default:
		return "other"
	}
}

// IsToneMark reports whether r is one of the combining tone diacritics.
func IsToneMark(r rune) bool {
	return r >= toneLow && r <= toneHigh
}

func IsHanji(r rune) bool { return r >= HanjiCutoff }

func IsNasal(r rune) bool { return r == NasalLower || r == NasalUpper }

func IsKhinDot(r rune) bool { return r == KhinDot }

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func isASCIIAlpha(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isASCIIUpper(r rune) bool {
	return r >= 'A' && r <= 'Z'
}

// IsASCIIPunct matches the C locale ispunct set.
func IsASCIIPunct(r rune) bool {
	return r > ' ' && r < 0x7f && !isASCIIAlnum(r)
}

func asciiLower(r rune) rune {
	if isASCIIUpper(r) {
		return r + ('a' - 'A')
	}
	return r
}

// CategoryOf returns the glyph category of a single codepoint.
func CategoryOf(r rune) GlyphCategory {
	switch {
	case isASCIIAlnum(r) || IsNasal(r):
		return GlyphAlnum
	case IsASCIIPunct(r):
		return GlyphAsciiPunct
	case IsKhinDot(r):
		return GlyphKhin
	case IsHanji(r):
		return GlyphHanji
	default:
		return GlyphOther
	}
}

// ToNFC composes s.
func ToNFC(s string) string { return norm.NFC.String(s) }

// ToNFD decomposes s.
func ToNFD(s string) string { return norm.NFD.String(s) }

// StripDiacritics removes tone marks from the decomposed form of s. With
// letters set, the letter diacritics up to the dot above right are removed
// as well.
func StripDiacritics(s string, letters bool) string {
	high := toneHigh
	if letters {
		high = DotAboveRight
	}

	var b strings.Builder
	for _, r := range ToNFD(s) {
		if r >= toneLow && r <= high {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// StartGlyph returns the category of the first codepoint of s.
func StartGlyph(s string) GlyphCategory {
	if s == "" {
		return GlyphOther
	}
	r, _ := utf8.DecodeRuneInString(ToNFD(s))
	return CategoryOf(r)
}

// EndGlyph returns the category of the last codepoint of s once all
// diacritics are removed.
func EndGlyph(s string) GlyphCategory {
	if s == "" {
		return GlyphOther
	}
	stripped := StripDiacritics(s, true)
	if stripped == "" {
		return GlyphOther
	}
	r, _ := utf8.DecodeLastRuneInString(stripped)
	return CategoryOf(r)
}

// ContainsHanji reports whether any codepoint of s is at or above the
// Hanji cutoff.
func ContainsHanji(s string) bool {
	for _, r := range s {
		if IsHanji(r) {
			return true
		}
	}
	return false
}

// AllLower reports whether s has no ASCII uppercase letters.
func AllLower(s string) bool {
	for _, r := range ToNFD(s) {
		if isASCIIUpper(r) {
			return false
		}
	}
	return true
}

// ASCIILower lowercases ASCII letters only, so byte offsets are preserved.
func ASCIILower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// Len returns the length of s in codepoints.
func Len(s string) int {
	return utf8.RuneCountInString(s)
}

// byteOffset returns the byte offset of the n-th codepoint of s, clamped to
// len(s).
func byteOffset(s string, n int) int {
	if n <= 0 {
		return 0
	}
	i := 0
	for off := range s {
		if i == n {
			return off
		}
		i++
	}
	return len(s)
}

// Prefix returns the first n codepoints of s.
func Prefix(s string, n int) string {
	return s[:byteOffset(s, n)]
}

// Suffix returns s without its first n codepoints.
func Suffix(s string, n int) string {
	return s[byteOffset(s, n):]
}

// Slice returns codepoints [from, to) of s.
func Slice(s string, from, to int) string {
	start := byteOffset(s, from)
	end := byteOffset(s, to)
	if end < start {
		return ""
	}
	return s[start:end]
}

// Insert inserts ins at codepoint position n.
func Insert(s string, n int, ins string) string {
	off := byteOffset(s, n)
	return s[:off] + ins + s[off:]
}

// SafeErase removes count codepoints starting at index. Out of range
// indexes leave s untouched.
func SafeErase(s string, index, count int) string {
	if index < 0 || index >= Len(s) {
		return s
	}
	from := byteOffset(s, index)
	to := byteOffset(s, index+count)
	return s[:from] + s[to:]
}
