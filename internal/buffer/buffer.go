// Package buffer holds the composition buffer: an ordered list of
// elements with display and raw carets.
package buffer

import (
	"slices"
	"strings"

	"khiin/internal/lomaji"
)

// Buffer is an ordered sequence of elements. Carets passed to its methods
// are codepoint offsets into either the displayed text or the raw text.
type Buffer struct {
	elems []Element
}

// New returns a buffer holding elems.
func New(elems ...Element) *Buffer {
	return &Buffer{elems: elems}
}

// Clone returns a deep copy of b.
func (b *Buffer) Clone() *Buffer {
	out := &Buffer{elems: make([]Element, len(b.elems))}
	for i, e := range b.elems {
		out.elems[i] = e.Clone()
	}
	return out
}

// Len returns the number of elements.
func (b *Buffer) Len() int { return len(b.elems) }

func (b *Buffer) Empty() bool { return len(b.elems) == 0 }

// At returns the element at index i.
func (b *Buffer) At(i int) *Element { return &b.elems[i] }

// Back returns the last element, or nil if b is empty.
func (b *Buffer) Back() *Element {
	if len(b.elems) == 0 {
		return nil
	}
	return &b.elems[len(b.elems)-1]
}

// Elements returns the underlying slice. It must not be resized.
func (b *Buffer) Elements() []Element { return b.elems }

func (b *Buffer) Append(e ...Element) {
	b.elems = append(b.elems, e...)
}

func (b *Buffer) AppendBuffer(o *Buffer) {
	b.elems = append(b.elems, o.elems...)
}

// Insert places e before index i.
func (b *Buffer) Insert(i int, e ...Element) {
	b.elems = slices.Insert(b.elems, i, e...)
}

// Erase removes the element at index i.
func (b *Buffer) Erase(i int) {
	b.elems = slices.Delete(b.elems, i, i+1)
}

func (b *Buffer) Clear() {
	b.elems = b.elems[:0]
}

// IterCaret returns the index of the element holding the display caret.
// A caret on a boundary belongs to the element on its left. Len() is
// returned for a caret past the end.
func (b *Buffer) IterCaret(caret int) int {
	rem := caret
	for i := range b.elems {
		size := b.elems[i].Size()
		if rem <= size {
			return i
		}
		rem -= size
	}
	return len(b.elems)
}

// IterRawCaret is IterCaret for raw carets.
func (b *Buffer) IterRawCaret(raw int) int {
	rem := raw
	for i := range b.elems {
		size := b.elems[i].RawSize()
		if rem <= size {
			return i
		}
		rem -= size
	}
	return len(b.elems)
}

// TextSizeRange sums the display size of elements [from, to).
func (b *Buffer) TextSizeRange(from, to int) int {
	n := 0
	for i := from; i < to; i++ {
		n += b.elems[i].Size()
	}
	return n
}

// RawTextSizeRange sums the raw size of elements [from, to).
func (b *Buffer) RawTextSizeRange(from, to int) int {
	n := 0
	for i := from; i < to; i++ {
		n += b.elems[i].RawSize()
	}
	return n
}

// RawTextRange concatenates the raw text of elements [from, to).
func (b *Buffer) RawTextRange(from, to int) string {
	var sb strings.Builder
	for i := from; i < to; i++ {
		sb.WriteString(b.elems[i].Raw())
	}
	return sb.String()
}

func (b *Buffer) TextSize() int    { return b.TextSizeRange(0, len(b.elems)) }
func (b *Buffer) RawTextSize() int { return b.RawTextSizeRange(0, len(b.elems)) }
func (b *Buffer) RawText() string  { return b.RawTextRange(0, len(b.elems)) }

// RawTextFrom returns the raw text of the elements from index on.
func (b *Buffer) RawTextFrom(index int) string {
	return b.RawTextRange(index, len(b.elems))
}

// Text returns the displayed text.
func (b *Buffer) Text() string {
	var sb strings.Builder
	for i := range b.elems {
		sb.WriteString(b.elems[i].Display())
	}
	return sb.String()
}

// RawCaretFrom converts a display caret to a raw caret.
func (b *Buffer) RawCaretFrom(caret int) int {
	if b.Empty() {
		return 0
	}

	i := b.IterCaret(caret)
	if i == len(b.elems) {
		return b.RawTextSize()
	}
	rem := caret - b.TextSizeRange(0, i)
	return b.RawTextSizeRange(0, i) + b.elems[i].ComposedToRawCaret(rem)
}

// CaretFrom converts a raw caret to a display caret.
func (b *Buffer) CaretFrom(raw int) int {
	if b.Empty() {
		return 0
	}

	i := b.IterRawCaret(raw)
	if i == len(b.elems) {
		return b.TextSize()
	}
	rem := raw - b.RawTextSizeRange(0, i)
	return b.TextSizeRange(0, i) + b.elems[i].RawToComposedCaret(rem)
}

// AllComposing reports whether no element is converted.
func (b *Buffer) AllComposing() bool {
	for i := range b.elems {
		if b.elems[i].converted {
			return false
		}
	}
	return true
}

// HasComposing reports whether some element is not converted.
func (b *Buffer) HasComposing() bool {
	for i := range b.elems {
		if !b.elems[i].converted {
			return true
		}
	}
	return false
}

func (b *Buffer) SetConverted(v bool) {
	for i := range b.elems {
		b.elems[i].converted = v
	}
}

func (b *Buffer) SetSelected(v bool) {
	for i := range b.elems {
		b.elems[i].selected = v
	}
}

// IsolateComposing moves the leading converted run to the end of pre and
// everything after the first composing run to the front of post. Join
// restores the buffer.
func (b *Buffer) IsolateComposing(pre, post *Buffer) {
	i := 0
	for i < len(b.elems) && b.elems[i].converted {
		i++
	}
	if i > 0 {
		pre.elems = append(pre.elems, b.elems[:i]...)
		b.elems = slices.Delete(b.elems, 0, i)
	}

	j := 0
	for j < len(b.elems) && !b.elems[j].converted {
		j++
	}
	if j < len(b.elems) {
		post.elems = slices.Insert(post.elems, 0, b.elems[j:]...)
		b.elems = b.elems[:j]
	}
}

// SplitForComposition isolates the element under caret of a fully
// converted buffer. A caret at the end of that element moves it to pre. A
// hanji element is split at the caret into two converted pieces, leaving b
// empty for a new composition. A lomaji element stays in b.
func (b *Buffer) SplitForComposition(caret int, pre, post *Buffer) {
	if b.Empty() {
		return
	}

	idx := b.IterCaret(caret)
	if idx == len(b.elems) {
		idx = len(b.elems) - 1
	}
	if idx > 0 {
		pre.elems = append(pre.elems, b.elems[:idx]...)
		b.elems = slices.Delete(b.elems, 0, idx)
	}
	if len(b.elems) > 1 {
		post.elems = slices.Insert(post.elems, 0, b.elems[1:]...)
		b.elems = b.elems[:1]
	}

	if pre.TextSize()+b.TextSize() == caret {
		pre.elems = append(pre.elems, b.elems...)
		b.Clear()
		return
	}

	converted := b.elems[0].Converted()
	if !lomaji.ContainsHanji(converted) {
		return
	}

	rem := caret - pre.TextSize()
	if left := lomaji.Prefix(converted, rem); left != "" {
		e := Text(left)
		e.converted, e.selected = true, true
		pre.elems = append(pre.elems, e)
	}
	if right := lomaji.Suffix(converted, rem); right != "" {
		e := Text(right)
		e.converted, e.selected = true, true
		post.elems = slices.Insert(post.elems, 0, e)
	}
	b.Clear()
}

// SplitAtElement moves the elements before index to pre and those after
// it to post, leaving only the element at index. A nil pre or post keeps
// that side in b. Index 0 is a no-op.
func (b *Buffer) SplitAtElement(index int, pre, post *Buffer) {
	if index <= 0 || index >= len(b.elems) {
		return
	}

	at := index
	if pre != nil {
		pre.elems = slices.Insert(pre.elems, 0, b.elems[:index]...)
		b.elems = slices.Delete(b.elems, 0, index)
		at = 0
	}
	if post != nil && len(b.elems)-at > 1 {
		post.elems = slices.Insert(post.elems, 0, b.elems[at+1:]...)
		b.elems = b.elems[:at+1]
	}
}

// Join prepends pre and appends post, emptying both.
func (b *Buffer) Join(pre, post *Buffer) {
	if pre != nil && !pre.Empty() {
		b.elems = slices.Insert(b.elems, 0, pre.elems...)
		pre.elems = nil
	}
	if post != nil && !post.Empty() {
		b.elems = append(b.elems, post.elems...)
		post.elems = nil
	}
}

// Replace substitutes elements [first, last) with the elements of other
// and returns the index of the first inserted element.
func (b *Buffer) Replace(first, last int, other *Buffer) int {
	b.elems = slices.Delete(b.elems, first, last)
	b.elems = slices.Insert(b.elems, first, other.elems...)
	return first
}

func (b *Buffer) RemoveVirtualSpacing() {
	b.elems = slices.DeleteFunc(b.elems, func(e Element) bool {
		return e.kind == KindSpace
	})
}

// StripVirtualSpacing drops leading and trailing virtual spaces.
func (b *Buffer) StripVirtualSpacing() {
	start := 0
	for start < len(b.elems) && b.elems[start].kind == KindSpace {
		start++
	}
	end := len(b.elems)
	for end > start && b.elems[end-1].kind == KindSpace {
		end--
	}
	b.elems = slices.Delete(b.elems[:end], 0, start)
}

func needsVirtualSpace(lhs, rhs string) bool {
	left := lomaji.EndGlyph(lhs)
	right := lomaji.StartGlyph(rhs)

	switch {
	case left == lomaji.GlyphAlnum && right == lomaji.GlyphAlnum,
		left == lomaji.GlyphAlnum && right == lomaji.GlyphHanji,
		left == lomaji.GlyphHanji && right == lomaji.GlyphAlnum,
		left == lomaji.GlyphAlnum && right == lomaji.GlyphKhin,
		left == lomaji.GlyphHanji && right == lomaji.GlyphKhin:
		return true
	}
	return false
}

// AdjustVirtualSpacing rebuilds the virtual spaces between elements. A
// space is needed where alphanumerics would run into each other or into
// hanji, or before a khin syllable. The space is converted when both
// neighbours are, or else selected when both neighbours are.
func (b *Buffer) AdjustVirtualSpacing() {
	if b.Empty() {
		return
	}

	b.RemoveVirtualSpacing()
	for i := len(b.elems) - 1; i > 0; i-- {
		lhs, rhs := &b.elems[i-1], &b.elems[i]
		if !needsVirtualSpace(lhs.Display(), rhs.Display()) {
			continue
		}

		vs := Space()
		if lhs.converted && rhs.converted {
			vs.converted = true
		} else if lhs.selected && rhs.selected {
			vs.selected = true
		}
		b.elems = slices.Insert(b.elems, i, vs)
	}
}

func (b *Buffer) String() string {
	parts := make([]string, len(b.elems))
	for i, e := range b.elems {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}
