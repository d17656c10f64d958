// Package syllable models romanized syllables in their raw (typed) and
// composed (displayed) forms, and aligns typed keys to dictionary
// spellings.
package syllable

import (
	"strings"

	"khiin/internal/keyconfig"
	"khiin/internal/lomaji"
)

// Syllable is one phonetic unit. It is a value type; copies are
// independent.
type Syllable struct {
	keys       *keyconfig.KeyConfig
	dottedKhin bool

	rawInput string
	rawBody  string
	composed string
	tone     lomaji.Tone
	toneKey  byte
	khinPos  lomaji.KhinPosition
	khinKey  byte
}

func newSyllable(keys *keyconfig.KeyConfig, dottedKhin bool) Syllable {
	return Syllable{keys: keys, dottedKhin: dottedKhin}
}

func (s *Syllable) khinStr() string {
	if s.dottedKhin {
		return lomaji.KhinDotStr
	}
	return lomaji.KhinHyphenStr
}

// SetRawInput parses typed keys into the composed form. A khin marking
// already on the syllable is kept when input does not type one.
func (s *Syllable) SetRawInput(input string) {
	s.rawInput = input
	s.rawBody = input
	s.extractRawKhin()
	s.extractRawTone()
	s.buildComposed()
}

// SetComposed sets the displayed form and derives the keys that type it.
func (s *Syllable) SetComposed(input string) {
	s.composed = input
	s.buildRaw()
}

func (s Syllable) RawInput() string { return s.rawInput }
func (s Syllable) RawBody() string { return s.rawBody }
func (s Syllable) Composed() string { return s.composed }
func (s Syllable) Tone() lomaji.Tone { return s.tone }
func (s Syllable) ToneKey() byte { return s.toneKey }
func (s Syllable) KhinPos() lomaji.KhinPosition { return s.khinPos }
func (s Syllable) KhinKey() byte { return s.khinKey }
func (s Syllable) RawSize() int { return lomaji.Len(s.rawInput) }
func (s Syllable) ComposedSize() int { return lomaji.Len(s.composed) }

// IsEmpty reports whether the syllable holds nothing at all.
func (s Syllable) IsEmpty() bool {
	return s.composed == "" && s.rawInput == "" && s.rawBody == "" &&
		s.tone == lomaji.NaT && s.toneKey == 0 &&
		s.khinPos == lomaji.KhinNone && s.khinKey == 0
}

// Equal compares the spelling, tone and khin marking.
func (s Syllable) Equal(o Syllable) bool {
	return s.rawBody == o.rawBody && s.tone == o.tone && s.khinPos == o.khinPos
}

func (s *Syllable) clear() {
	s.composed = ""
	s.rawInput = ""
	s.rawBody = ""
	s.tone = lomaji.NaT
	s.toneKey = 0
	s.khinPos = lomaji.KhinNone
	s.khinKey = 0
}

// RawToComposedCaret translates a caret in the typed keys to a caret in the
// composed text.
func (s Syllable) RawToComposedCaret(raw int) int {
	if raw <= 0 {
		return 0
	}

	size := s.RawSize()
	if raw >= size {
		return s.ComposedSize()
	}

	lhs := lomaji.Prefix(s.rawInput, raw)
	if s.tone != lomaji.NaT {
		if pos := lomaji.FindTonePosition(s.rawInput); pos >= 0 && pos <= len(lhs) {
			lhs += string(rune(s.toneKey))
		}
	}

	part := s
	part.SetRawInput(lhs)
	return part.ComposedSize()
}

// ComposedToRawCaret translates a caret in the composed text to a caret in
// the typed keys.
func (s Syllable) ComposedToRawCaret(caret int) int {
	size := s.ComposedSize()
	if caret >= size {
		return s.RawSize()
	}
	if caret <= 0 {
		return 0
	}

	lhs := lomaji.Prefix(s.composed, caret)
	lhs, _ = lomaji.RemoveToneDiacritic(lhs)
	lhs = s.keys.Deconvert(lomaji.Decompose(lhs))

	switch s.khinPos {
	case lomaji.KhinVirtual, lomaji.KhinEnd:
		lhs, _ = lomaji.RemoveKhin(lhs)
	case lomaji.KhinStart:
		lhs = lomaji.ReplaceKhinDot(lhs)
	}

	return lomaji.Len(lhs)
}

// Erase removes the glyph at index in the composed text, and the tone with
// it if the glyph carried the diacritic.
func (s *Syllable) Erase(index int) {
	size := s.ComposedSize()
	if index < 0 || index > size {
		return
	}

	end := lomaji.MoveCaret(s.composed, index, lomaji.Right)
	if lomaji.HasToneDiacritic(lomaji.Slice(s.composed, index, end)) {
		s.tone = lomaji.NaT
		s.toneKey = 0
	}

	s.composed = lomaji.Prefix(s.composed, index) + lomaji.Suffix(s.composed, end)
	if s.composed == "" {
		s.clear()
		return
	}

	s.buildRaw()
}

// SetKhin adds or removes the khin marker. Only non-virtual markers add
// keystrokes.
func (s *Syllable) SetKhin(pos lomaji.KhinPosition, key byte) {
	khin := s.khinStr()

	switch {
	case s.khinPos == lomaji.KhinNone && pos != lomaji.KhinNone:
		if pos != lomaji.KhinVirtual {
			s.rawInput = string([]byte{key, key}) + s.rawInput
		}
		s.composed = khin + s.composed
	case s.khinPos != lomaji.KhinNone && pos == lomaji.KhinNone && strings.HasPrefix(s.composed, khin):
		switch s.khinPos {
		case lomaji.KhinStart:
			if len(s.rawInput) >= 2 {
				s.rawInput = s.rawInput[2:]
			}
		case lomaji.KhinEnd:
			if s.rawInput != "" {
				s.rawInput = s.rawInput[:len(s.rawInput)-1]
			}
		}
		s.composed = strings.TrimPrefix(s.composed, khin)
	}

	s.khinPos = pos
	s.khinKey = key
}

func (s *Syllable) extractRawKhin() {
	str := s.rawBody
	if len(str) < 2 {
		return
	}

	for _, key := range s.keys.HyphenKeys() {
		if str[0] == key && str[1] == key {
			s.rawBody = str[2:]
			s.khinPos = lomaji.KhinStart
			s.khinKey = key
			return
		}
	}

	last := str[len(str)-1]
	for _, key := range s.keys.KhinKeys() {
		if last == key {
			s.rawBody = str[:len(str)-1]
			s.khinPos = lomaji.KhinEnd
			s.khinKey = key
			return
		}
	}
}

func (s *Syllable) extractRawTone() {
	str := s.rawBody
	if str == "" || !lomaji.HasToneable(str) {
		return
	}

	last := str[len(str)-1]
	s.tone = s.keys.CheckToneKey(last)
	if s.tone == lomaji.NaT {
		return
	}
	s.toneKey = last
	s.rawBody = str[:len(str)-1]
}

func (s *Syllable) ensureKhinKey() {
	if s.khinKey == 0 {
		switch s.khinPos {
		case lomaji.KhinNone:
			s.khinKey = s.keys.HyphenKeys()[0]
			s.khinPos = lomaji.KhinStart
		case lomaji.KhinStart:
			s.khinKey = s.keys.HyphenKeys()[0]
		case lomaji.KhinEnd:
			s.khinKey = s.keys.KhinKeys()[0]
		}
	}

	if s.khinPos == lomaji.KhinNone {
		if s.keys.IsHyphen(s.khinKey) {
			s.khinPos = lomaji.KhinStart
		} else if s.keys.IsKhinKey(s.khinKey) {
			s.khinPos = lomaji.KhinEnd
		}
	}
}

func (s *Syllable) ensureToneKey() {
	if s.toneKey == 0 {
		s.toneKey = s.keys.ToneKey(s.tone)
	}
}

func (s *Syllable) buildComposed() {
	composed := s.keys.Convert(s.rawBody)
	composed = lomaji.ApplyToneDiacritic(s.tone, composed)
	if s.khinPos != lomaji.KhinNone {
		composed = s.khinStr() + composed
	}
	s.composed = lomaji.ToNFC(composed)
}

func (s *Syllable) buildRaw() {
	if s.composed == "-" {
		s.clear()
		s.composed = "-"
		s.rawInput = "-"
		return
	}

	body, tone := lomaji.RemoveToneDiacritic(s.composed)
	s.tone = tone
	if tone != lomaji.NaT {
		s.ensureToneKey()
	}

	if b, ok := lomaji.RemoveKhin(body); ok {
		body = b
		s.ensureKhinKey()
	}

	body = lomaji.ToNFC(s.keys.Deconvert(lomaji.Decompose(body)))
	s.rawBody = body

	var raw strings.Builder
	if s.khinPos == lomaji.KhinStart {
		raw.WriteByte(s.khinKey)
		raw.WriteByte(s.khinKey)
	}
	raw.WriteString(body)
	if s.tone != lomaji.NaT {
		raw.WriteByte(s.toneKey)
	}
	if s.khinPos == lomaji.KhinEnd {
		raw.WriteByte(s.khinKey)
	}
	s.rawInput = raw.String()
}
