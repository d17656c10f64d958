// Package segmenter classifies runs of raw keystrokes.
package segmenter

import (
	"fmt"
	"unicode/utf8"

	"khiin/internal/dictionary"
	"khiin/internal/keyconfig"
	"khiin/internal/lomaji"
)

// Type classifies a segment of raw input.
type Type int

const (
	// None is text that matches nothing.
	None Type = iota
	// Splittable is a run of whole dictionary words.
	Splittable
	// WordPrefix is the start of a dictionary word.
	WordPrefix
	// SyllablePrefix is the start of a syllable.
	SyllablePrefix
	// Hyphens is a run of hyphen keys.
	Hyphens
	// Punct is a single ASCII punctuation character.
	Punct
	// UserItem is a user dictionary entry.
	UserItem
)

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case Splittable:
		return "splittable"
	case WordPrefix:
		return "word_prefix"
	case SyllablePrefix:
		return "syllable_prefix"
	case Hyphens:
		return "hyphens"
	case Punct:
		return "punct"
	case UserItem:
		return "user_item"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Segment is a classified byte range of the raw input.
type Segment struct {
	Type  Type
	Start int
	Size  int
}

// End returns the byte offset just past the segment.
func (s Segment) End() int { return s.Start + s.Size }

// Text returns the part of raw covered by the segment.
func (s Segment) Text(raw string) string { return raw[s.Start:s.End()] }

// Segmenter classifies raw input against a dictionary.
type Segmenter struct {
	dict *dictionary.Dictionary
	keys *keyconfig.KeyConfig
}

// New returns a segmenter over dict, using the key configuration of its
// parser.
func New(dict *dictionary.Dictionary) *Segmenter {
	return &Segmenter{dict: dict, keys: dict.Parser().Keys()}
}

func (s *Segmenter) hyphens(str string) int {
	n := 0
	for n < len(str) && s.keys.IsHyphen(str[n]) {
		n++
	}
	return n
}

func asciiPunct(str string) int {
	if lomaji.StartGlyph(str) == lomaji.GlyphAsciiPunct {
		return 1
	}
	return 0
}

// splittableWithTrailingPrefix returns the length of the longest prefix of
// str made of whole words and followed by the start of a word, or 0.
func (s *Segmenter) splittableWithTrailingPrefix(str string) int {
	splitter := s.dict.Splitter()
	for i := len(str); i > 0; i-- {
		if splitter.CanSplit(str[:i]) && s.dict.IsWordPrefix(str[i:]) {
			return i
		}
	}
	return 0
}

func (s *Segmenter) maxSyllable(str string) int {
	if !s.dict.StartsWithSyllable(str) {
		return 0
	}

	i := 1
	for i <= len(str) && s.dict.IsSyllablePrefix(str[:i]) {
		i++
	}
	return i - 1
}

// invalidSplitIndices marks every index followed by a tone key. A word
// may not end there, or the tone would start the next word.
func (s *Segmenter) invalidSplitIndices(query string) map[int]bool {
	out := make(map[int]bool)
	for i := 0; i+1 < len(query); i++ {
		if s.keys.IsToneKey(query[i+1]) {
			out[i] = true
		}
	}
	return out
}

func (s *Segmenter) maxSplitSize(str string) int {
	return s.dict.Splitter().MaxSplitSize(str, s.invalidSplitIndices(str))
}

func (s *Segmenter) syllableOrSplittable(str string) (int, Type) {
	maxSyl := s.maxSyllable(str)
	maxSplit := s.maxSplitSize(str)

	switch {
	case maxSyl == 0 && maxSplit == 0:
		return 0, None
	case maxSyl > maxSplit:
		return maxSyl, SyllablePrefix
	default:
		return maxSplit, Splittable
	}
}

// SegmentText partitions raw into classified segments, left to right.
// Offsets are byte offsets into raw. Matching ignores ASCII case.
func (s *Segmenter) SegmentText(raw string) []Segment {
	lc := lomaji.ASCIILower(raw)
	user := s.dict.User()

	var out []Segment
	plain := Segment{Type: None}
	flush := func() {
		if plain.Size > 0 {
			out = append(out, plain)
			plain = Segment{Type: None}
		}
	}
	emit := func(seg Segment) {
		flush()
		out = append(out, seg)
	}

	for i := 0; i < len(lc); {
		rem := lc[i:]

		if n := s.hyphens(rem); n > 0 {
			emit(Segment{Hyphens, i, n})
			i += n
			continue
		}
		if n := asciiPunct(rem); n > 0 {
			emit(Segment{Punct, i, n})
			i += n
			continue
		}

		switch {
		case s.dict.Splitter().CanSplit(rem):
			emit(Segment{Splittable, i, len(rem)})
			return out
		case user.HasExact(rem):
			emit(Segment{UserItem, i, len(rem)})
			return out
		case s.dict.IsWordPrefix(rem):
			emit(Segment{WordPrefix, i, len(rem)})
			return out
		case s.dict.IsSyllablePrefix(rem):
			emit(Segment{SyllablePrefix, i, len(rem)})
			return out
		}

		if n := s.splittableWithTrailingPrefix(rem); n > 0 {
			emit(Segment{Splittable, i, n})
			out = append(out, Segment{WordPrefix, i + n, len(rem) - n})
			return out
		}
		if n, typ := s.syllableOrSplittable(rem); n > 0 {
			emit(Segment{typ, i, n})
			i += n
			continue
		}
		if n := user.StartsWithWord(rem); n > 0 {
			emit(Segment{UserItem, i, n})
			i += n
			continue
		}

		if plain.Size == 0 {
			plain.Start = i
		}
		_, n := utf8.DecodeRuneInString(rem)
		plain.Size += n
		i += n
	}

	flush()
	return out
}

// LongestSegmentFromStart classifies the longest segment at the start of
// raw. Unclassified input is returned whole as None.
func (s *Segmenter) LongestSegmentFromStart(raw string) Segment {
	lc := lomaji.ASCIILower(raw)

	if n := s.hyphens(lc); n > 0 {
		return Segment{Hyphens, 0, n}
	}
	if n := asciiPunct(lc); n > 0 {
		return Segment{Punct, 0, n}
	}
	if n := s.maxSplitSize(lc); n > 0 {
		return Segment{Splittable, 0, n}
	}
	if n := s.dict.User().StartsWithWord(lc); n > 0 {
		return Segment{UserItem, 0, n}
	}
	if s.dict.IsWordPrefix(lc) {
		return Segment{WordPrefix, 0, len(lc)}
	}
	if s.dict.IsSyllablePrefix(lc) {
		return Segment{SyllablePrefix, 0, len(lc)}
	}
	return Segment{None, 0, len(lc)}
}
