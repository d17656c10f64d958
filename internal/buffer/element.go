package buffer

import (
	"fmt"

	"khiin/internal/lomaji"
	"khiin/internal/store"
	"khiin/internal/syllable"
)

// Kind identifies the variant held by an Element.
type Kind int

const (
	// KindText is free text that matched nothing.
	KindText Kind = iota
	// KindTai is romanized text aligned to a dictionary spelling.
	KindTai
	// KindPunct is a punctuation match.
	KindPunct
	// KindSpace is a virtual space inserted for legibility.
	KindSpace
	// KindUser is a user dictionary match.
	KindUser
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindTai:
		return "tai"
	case KindPunct:
		return "punct"
	case KindSpace:
		return "space"
	case KindUser:
		return "user"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Element is one segment of a buffer. Exactly one variant is populated,
// selected by kind.
type Element struct {
	kind Kind

	text  string // KindText; typed input for KindUser
	tai   syllable.TaiText
	punct store.Punctuation
	user  *store.TaiToken

	erased    bool // KindSpace
	converted bool
	selected  bool
}

// Text returns a free text element.
func Text(s string) Element {
	return Element{kind: KindText, text: s}
}

// Tai returns an element holding tt.
func Tai(tt syllable.TaiText) Element {
	return Element{kind: KindTai, tai: tt}
}

// Punct returns a punctuation element.
func Punct(p store.Punctuation) Element {
	return Element{kind: KindPunct, punct: p}
}

// Space returns a virtual space.
func Space() Element {
	return Element{kind: KindSpace}
}

// User returns a user dictionary element for the typed input. tok may be
// nil.
func User(input string, tok *store.TaiToken) Element {
	e := Element{kind: KindUser, text: input}
	if tok != nil {
		c := *tok
		e.user = &c
	}
	return e
}

// Build returns the element for input matched against tok. User
// dictionary tokens have no id. Without a match the input is parsed as a
// single syllable.
func Build(p *syllable.Parser, input string, tok *store.TaiToken, setCandidate, setConverted bool) Element {
	var e Element
	switch {
	case tok != nil && tok.ID == 0:
		e = User(input, tok)
	case tok == nil:
		e = Tai(p.FromRawSyllable(input))
	default:
		tt := p.FromMatching(input, *tok)
		if setCandidate {
			tt.SetCandidate(*tok)
		}
		e = Tai(tt)
	}
	e.converted = setConverted
	return e
}

// Clone returns a deep copy of e.
func (e Element) Clone() Element {
	out := e
	out.tai = e.tai.Clone()
	if e.user != nil {
		c := *e.user
		out.user = &c
	}
	return out
}

func (e *Element) Kind() Kind { return e.kind }

func (e *Element) IsVirtualSpace() bool { return e.kind == KindSpace }
func (e *Element) IsTaiText() bool      { return e.kind == KindTai }
func (e *Element) IsUserToken() bool    { return e.kind == KindUser }
func (e *Element) IsConverted() bool    { return e.converted }
func (e *Element) IsSelected() bool     { return e.selected }
func (e *Element) SetConverted(v bool)  { e.converted = v }
func (e *Element) SetSelected(v bool)   { e.selected = v }

// IsErased reports whether a virtual space was deleted by the user.
func (e *Element) IsErased() bool { return e.kind == KindSpace && e.erased }

// TaiText returns the TaiText of a KindTai element, or nil.
func (e *Element) TaiText() *syllable.TaiText {
	if e.kind != KindTai {
		return nil
	}
	return &e.tai
}

// Candidate returns the matched token of a TaiText or user element.
func (e *Element) Candidate() *store.TaiToken {
	switch e.kind {
	case KindTai:
		return e.tai.Candidate
	case KindUser:
		return e.user
	}
	return nil
}

// Replace swaps the content of e for o's, keeping the flags of e.
func (e *Element) Replace(o Element) {
	converted, selected := e.converted, e.selected
	*e = o.Clone()
	e.converted, e.selected = converted, selected
}

func (e *Element) userOutput() string {
	if e.user != nil {
		return e.user.Output
	}
	return e.text
}

// Size is the length of the displayed text in codepoints.
func (e *Element) Size() int {
	switch e.kind {
	case KindText:
		return lomaji.Len(e.text)
	case KindTai:
		if e.converted && e.tai.Candidate != nil {
			return lomaji.Len(e.tai.Candidate.Output)
		}
		return e.tai.ComposedSize()
	case KindPunct:
		return lomaji.Len(e.punct.Output)
	case KindSpace:
		return 1
	case KindUser:
		if e.converted && e.user != nil {
			return lomaji.Len(e.user.Output)
		}
		return lomaji.Len(e.text)
	}
	return 0
}

// Raw returns the keys that typed e. Virtual spaces have none.
func (e *Element) Raw() string {
	switch e.kind {
	case KindText, KindUser:
		return e.text
	case KindTai:
		return e.tai.RawText()
	case KindPunct:
		return e.punct.Input
	}
	return ""
}

func (e *Element) RawSize() int {
	return lomaji.Len(e.Raw())
}

// Composed returns the romanized display form.
func (e *Element) Composed() string {
	switch e.kind {
	case KindText, KindUser:
		return e.text
	case KindTai:
		return e.tai.ComposedText()
	case KindPunct:
		return e.punct.Output
	case KindSpace:
		return " "
	}
	return ""
}

// Converted returns the output form.
func (e *Element) Converted() string {
	switch e.kind {
	case KindText:
		return e.text
	case KindTai:
		return e.tai.ConvertedText()
	case KindPunct:
		return e.punct.Output
	case KindSpace:
		return " "
	case KindUser:
		return e.userOutput()
	}
	return ""
}

// Display returns the converted text when e is converted, otherwise the
// composed text.
func (e *Element) Display() string {
	if e.converted {
		return e.Converted()
	}
	return e.Composed()
}

// Equal compares the converted text.
func (e *Element) Equal(o *Element) bool {
	return e.Converted() == o.Converted()
}

// RawToComposedCaret translates a raw caret inside e to a display caret.
func (e *Element) RawToComposedCaret(raw int) int {
	if raw == 0 {
		return 0
	}

	switch e.kind {
	case KindText:
		return raw
	case KindTai:
		if e.converted && e.tai.Candidate != nil {
			return lomaji.Len(e.tai.Candidate.Output)
		}
		return e.tai.RawToComposedCaret(raw)
	case KindPunct:
		return lomaji.Len(e.punct.Output)
	case KindSpace:
		return 1
	case KindUser:
		if e.converted && e.user != nil {
			return lomaji.Len(e.user.Output)
		}
		return lomaji.Len(e.text)
	}
	return 0
}

// ComposedToRawCaret translates a display caret inside e to a raw caret.
func (e *Element) ComposedToRawCaret(caret int) int {
	if caret == 0 {
		return 0
	}

	switch e.kind {
	case KindText:
		return caret
	case KindTai:
		if e.converted {
			return e.tai.ConvertedToRawCaret(caret)
		}
		return e.tai.ComposedToRawCaret(caret)
	case KindPunct:
		return lomaji.Len(e.punct.Input)
	case KindUser:
		return lomaji.Len(e.text)
	}
	return 0
}

// Erase removes the displayed glyph at index. Punctuation and user
// elements degrade to free text.
func (e *Element) Erase(index int) {
	switch e.kind {
	case KindText:
		e.text = lomaji.SafeErase(e.text, index, 1)
	case KindTai:
		e.tai.Erase(index)
	case KindPunct:
		e.kind = KindText
		e.text = ""
		e.punct = store.Punctuation{}
	case KindSpace:
		e.erased = true
	case KindUser:
		e.kind = KindText
		e.text = lomaji.SafeErase(e.text, index, 1)
		e.user = nil
	}
}

// IsVirtualSpaceAt reports whether the display index falls on a virtual
// space, either e itself or one inside its TaiText.
func (e *Element) IsVirtualSpaceAt(index int) bool {
	if e.kind == KindTai {
		return e.tai.IsVirtualSpace(index)
	}
	return e.kind == KindSpace
}

// SetKhin marks e as khin. Free text only receives the typed keys. It
// reports whether e is a TaiText that took the marking.
func (e *Element) SetKhin(pos lomaji.KhinPosition, key byte) bool {
	switch e.kind {
	case KindTai:
		e.tai.SetKhin(pos, key)
		return true
	case KindText:
		switch pos {
		case lomaji.KhinStart:
			e.text = string([]byte{key, key}) + e.text
		case lomaji.KhinEnd:
			e.text += string(key)
		}
	}
	return false
}

func (e Element) String() string {
	return fmt.Sprintf("%s(%q)", e.kind, e.Display())
}
