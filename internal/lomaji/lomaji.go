// Package lomaji holds the text rules of Tâi-lô style romanization: tone
// diacritic placement, capitalization matching, khin markers and caret
// movement over combining sequences.
//
// All positions exposed by this package count codepoints, not bytes, unless
// a function says otherwise.
package lomaji

import (
	"strings"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

var (
	// Searched in order; the diacritic goes after the matched sequence.
	toneablesAfterTwo = []string{"oa", "oe"}
	toneablesAfterOne = []string{"o", "a", "e", "u", "i", "ng", "m"}
)

// MoveCaret moves pos one visible glyph to the left or right within s.
// Combining marks never separate from their base letter.
func MoveCaret(s string, pos int, dir Direction) int {
	size := Len(s)
	if pos > size {
		return size
	}
	if pos < 0 {
		return 0
	}

	bounds := []int{0}
	n := 0
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		n += len(g.Runes())
		bounds = append(bounds, n)
	}

	if dir == Left {
		prev := 0
		for _, b := range bounds {
			if b >= pos {
				break
			}
			prev = b
		}
		return prev
	}

	for _, b := range bounds {
		if b > pos {
			return b
		}
	}
	return size
}

// IsLomaji reports whether s has no Hanji codepoints.
func IsLomaji(s string) bool {
	return !ContainsHanji(s)
}

// Decompose returns the canonical decomposition of s.
func Decompose(s string) string {
	return ToNFD(s)
}

// MatchCapitalization copies the letter case of pattern onto output. A
// nasal mark in output takes the case of the (possibly doubled) letter that
// produced it. Matching stops at the first letter mismatch and the rest of
// output is kept as is.
func MatchCapitalization(pattern, output string) string {
	if pattern == "" || output == "" {
		return ""
	}

	p := []rune(ToNFD(pattern))
	o := []rune(ToNFD(output))
	ret := make([]rune, 0, len(o))

	pi, oi := 0, 0
	for pi < len(p) && oi < len(o) {
		for pi < len(p) && !isASCIIAlpha(p[pi]) {
			pi++
		}
		for oi < len(o) && o[oi] != NasalLower && !isASCIIAlpha(o[oi]) {
			ret = append(ret, o[oi])
			oi++
		}
		if pi == len(p) || oi == len(o) {
			break
		}

		if isASCIIAlpha(p[pi]) && isASCIIAlpha(o[oi]) {
			if asciiLower(p[pi]) != asciiLower(o[oi]) {
				break
			}
			ret = append(ret, p[pi])
			pi++
			oi++
			continue
		}

		if o[oi] == NasalLower && isASCIIUpper(p[pi]) {
			ret = append(ret, NasalUpper)
			oi++
			prev := asciiLower(p[pi])
			pi++
			if pi < len(p) && asciiLower(p[pi]) == prev {
				pi++
			}
			continue
		}

		ret = append(ret, o[oi])
		pi++
		oi++
	}
	ret = append(ret, o[oi:]...)

	return ToNFC(string(ret))
}

// HasToneable reports whether s contains a letter that can carry a tone
// diacritic.
func HasToneable(s string) bool {
	for _, r := range s {
		switch asciiLower(r) {
		case 'a', 'e', 'i', 'm', 'n', 'o', 'u':
			return true
		}
	}
	return false
}

func HasToneDiacritic(s string) bool {
	for _, r := range Decompose(s) {
		if IsToneMark(r) {
			return true
		}
	}
	return false
}

// FindTonePosition returns the byte offset at which a tone diacritic is
// inserted into syllable, or -1 if it has no toneable letter.
func FindTonePosition(syllable string) int {
	lower := ASCIILower(syllable)

	for _, seq := range toneablesAfterTwo {
		if i := strings.Index(lower, seq); i >= 0 && len(lower) > i+2 {
			return i + 2
		}
	}
	for _, seq := range toneablesAfterOne {
		if i := strings.Index(lower, seq); i >= 0 {
			return i + 1
		}
	}
	return -1
}

// ApplyToneDiacritic inserts the combining mark for tone into syllable.
// Unmarked tones and syllables without a toneable letter come back as is.
func ApplyToneDiacritic(tone Tone, syllable string) string {
	mark, ok := ToneMark(tone)
	if !ok {
		return syllable
	}
	i := FindTonePosition(syllable)
	if i < 0 {
		return syllable
	}
	return syllable[:i] + string(mark) + syllable[i:]
}

// RemoveToneDiacritic strips the first tone mark found in syllable and
// returns the decomposed remainder with the removed tone.
func RemoveToneDiacritic(syllable string) (string, Tone) {
	if syllable == "" {
		return syllable, NaT
	}

	nfd := Decompose(syllable)
	for _, tm := range toneMarks {
		mark := string(tm.mark)
		if i := strings.Index(nfd, mark); i >= 0 {
			return nfd[:i] + nfd[i+len(mark):], tm.tone
		}
	}
	return syllable, NaT
}

// RemoveKhin strips a leading khin dot or double hyphen.
func RemoveKhin(syllable string) (string, bool) {
	if syllable == "" {
		return syllable, false
	}
	r, size := utf8.DecodeRuneInString(syllable)
	if IsKhinDot(r) {
		return syllable[size:], true
	}
	if strings.HasPrefix(syllable, KhinHyphenStr) {
		return syllable[len(KhinHyphenStr):], true
	}
	return syllable, false
}

// ReplaceKhinDot replaces the first khin dot of s with a double hyphen.
func ReplaceKhinDot(s string) string {
	return strings.Replace(s, KhinDotStr, KhinHyphenStr, 1)
}
