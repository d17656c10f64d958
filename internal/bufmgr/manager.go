// Package bufmgr drives a composition through typing, conversion,
// candidate selection and commit.
//
// A Manager owns three buffers. The composition holds everything shown
// in the preedit between operations. While an operation runs, converted
// elements before and after the part being edited are parked in precomp
// and postcomp, and joined back when it finishes. The caret is kept in
// display units and translated to raw units for editing.
//
// A Manager is not safe for concurrent use.
package bufmgr

import (
	"unicode"

	"khiin/internal/buffer"
	"khiin/internal/candidates"
	"khiin/internal/khin"
	"khiin/internal/logging"
	"khiin/internal/lomaji"
	"khiin/internal/store"
)

type navMode int

const (
	byCharacter navMode = iota
	bySegment
)

// Recorder stores usage statistics of committed text.
type Recorder interface {
	RecordNGrams(b *buffer.Buffer) error
}

// Manager is the composition state machine.
type Manager struct {
	finder   *candidates.Finder
	khin     *khin.Handler
	recorder Recorder
	mode     InputMode
	log      *logging.Logger

	caret       int
	composition *buffer.Buffer
	precomp     *buffer.Buffer
	postcomp    *buffer.Buffer
	candidates  []*buffer.Buffer

	focusedCandidate int
	focusedElement   int
	state            EditState
	nav              navMode
}

// New returns an empty manager. recorder may be nil.
func New(finder *candidates.Finder, kh *khin.Handler, recorder Recorder, mode InputMode) *Manager {
	return &Manager{
		finder:      finder,
		khin:        kh,
		recorder:    recorder,
		mode:        mode,
		log:         logging.Default().WithComponent("bufmgr"),
		composition: buffer.New(),
		precomp:     buffer.New(),
		postcomp:    buffer.New(),
	}
}

// Mode returns the input mode the manager was built with.
func (m *Manager) Mode() InputMode { return m.mode }

// EditState returns the current edit state.
func (m *Manager) EditState() EditState { return m.state }

// Composition returns the current composition. Callers must not modify
// it.
func (m *Manager) Composition() *buffer.Buffer { return m.composition }

// Caret returns the caret position in codepoints of the displayed
// composition.
func (m *Manager) Caret() int { return m.caret }

// FocusedElement returns the index of the element the candidates apply
// to.
func (m *Manager) FocusedElement() int { return m.focusedElement }

// FocusedCandidate returns the index of the focused candidate.
func (m *Manager) FocusedCandidate() int { return m.focusedCandidate }

// IsEmpty reports whether nothing is being composed or converted.
func (m *Manager) IsEmpty() bool {
	return m.composition.Empty() && m.precomp.Empty() && m.postcomp.Empty()
}

// Clear drops the composition without recording anything.
func (m *Manager) Clear() {
	m.composition.Clear()
	m.precomp.Clear()
	m.postcomp.Clear()
	m.candidates = nil
	m.caret = 0
	m.state = Empty
	m.nav = byCharacter
	m.focusedCandidate = 0
	m.focusedElement = 0
}

// Commit records the composition and clears it. It returns the committed
// text.
func (m *Manager) Commit() string {
	if m.IsEmpty() {
		m.Clear()
		return ""
	}

	text := m.composition.Text()
	if m.recorder != nil {
		if err := m.recorder.RecordNGrams(m.composition); err != nil {
			m.log.Warn("record n-grams failed", "error", err)
		}
	}
	m.log.Debug("commit", "committed", text)
	m.Clear()
	return text
}

// Revert steps back one state: a selection returns to Converted, the
// focused converted segment returns to composing, and a composition with
// nothing converted is dropped.
func (m *Manager) Revert() {
	switch m.state {
	case Composing:
		if m.composition.AllComposing() {
			m.Clear()
			return
		}
		m.composition.SetConverted(false)
		m.adjust(m.composition)
		m.setCaretToEnd()
		m.focusedElement = 0

	case Converted:
		if m.composition.Empty() {
			m.Clear()
			return
		}
		m.setFocusedElement(m.focusedElement)
		m.composition.At(m.focusedElement).SetConverted(false)
		raw := m.composition.RawTextSizeRange(0, m.focusedElement+1)
		m.adjust(m.composition)
		m.setCaretFromRaw(raw)
		m.focusElement(m.composition.IterCaret(m.caret))
		m.state = Composing

	case Selecting:
		m.state = Converted
	}
}

// Insert types ch at the caret. Control characters are ignored.
func (m *Manager) Insert(ch rune) {
	if unicode.IsControl(ch) {
		return
	}

	m.state = Composing

	switch m.mode {
	case Continuous:
		raw, caret := m.beginInsertion(ch)
		m.setCompositionContinuous(raw)
		m.finalizeInsertion(caret)
	case Basic:
		raw, caret := m.beginInsertion(ch)
		m.setCompositionBasic(raw)
		m.finalizeInsertion(caret)
	case Manual:
	}
}

// Erase deletes one glyph to the left or right of the caret.
func (m *Manager) Erase(dir lomaji.Direction) {
	if m.composition.Empty() {
		return
	}
	if dir == lomaji.Left {
		if m.caret == 0 {
			return
		}
		m.moveCaret(lomaji.Left)
	}

	idx := m.composition.IterCaret(m.caret)
	if idx == m.composition.Len() {
		return
	}
	pos := m.caret - m.composition.TextSizeRange(0, idx)
	if m.composition.At(idx).Size() == pos {
		idx++
		pos = 0
	}
	if idx == m.composition.Len() {
		return
	}

	if m.composition.At(idx).IsConverted() {
		m.eraseConverted(idx, pos)
	} else {
		m.eraseComposing(dir)
	}
}

// HandleLeftRight moves the caret while composing, or the segment focus
// once converted.
func (m *Manager) HandleLeftRight(dir lomaji.Direction) {
	switch m.state {
	case Composing:
		m.moveCaret(dir)
	case Converted:
		m.moveFocusOrCaret(dir)
	}
}

// HandleSelectOrCommit selects the focused candidate while selecting, and
// commits otherwise, returning the committed text and true.
func (m *Manager) HandleSelectOrCommit() (string, bool) {
	if m.state == Selecting {
		m.SelectCandidate(m.focusedCandidate)
		return "", false
	}
	return m.Commit(), true
}

// HandleSelectOrFocus converts a composition with its best candidate,
// then opens and cycles the candidate list of the focused segment.
func (m *Manager) HandleSelectOrFocus() {
	switch m.state {
	case Composing:
		m.state = Converted
		m.SelectCandidate(0)
	case Converted:
		m.state = Selecting
		m.FocusNextCandidate()
	case Selecting:
		m.FocusNextCandidate()
	}
}

// FocusNextCandidate enters Selecting and focuses the next candidate,
// wrapping to the first. Coming from Composing it focuses the first.
func (m *Manager) FocusNextCandidate() {
	if m.state == Composing {
		m.state = Selecting
		m.FocusCandidate(0)
		return
	}

	m.state = Selecting
	if m.focusedCandidate >= len(m.candidates)-1 {
		m.FocusCandidate(0)
	} else {
		m.FocusCandidate(m.focusedCandidate + 1)
	}
}

// FocusPrevCandidate enters Selecting and focuses the previous
// candidate, wrapping to the last.
func (m *Manager) FocusPrevCandidate() {
	m.state = Selecting
	if m.focusedCandidate == 0 {
		m.FocusCandidate(len(m.candidates) - 1)
	} else {
		m.FocusCandidate(m.focusedCandidate - 1)
	}
}

// FocusCandidate previews candidate index in the composition. Without
// candidates the state falls back to Converted. An out of range index is
// ignored.
func (m *Manager) FocusCandidate(index int) {
	if len(m.candidates) == 0 {
		m.state = Converted
		return
	}
	if index < 0 || index >= len(m.candidates) {
		return
	}
	m.focusCandidate(index, false)
}

// SelectCandidate puts candidate index into the composition and moves on
// to segment navigation. An out of range index is ignored.
func (m *Manager) SelectCandidate(index int) {
	if index < 0 || index >= len(m.candidates) {
		return
	}

	size := m.focusCandidate(index, true)

	focused := m.focusedElement
	if m.state == Selecting && m.composition.Len()-focused > size {
		focused += size
	}
	for focused < m.composition.Len() && m.composition.At(focused).IsVirtualSpace() {
		focused++
	}

	m.setFocusedElement(focused)
	m.updateCandidatesForFocusedElement()
	m.beginSegmentNavigation()
}

// BuildPreedit describes the composition for display. Composing runs are
// merged into one segment; a converted element is focused when it has
// the segment focus.
func (m *Manager) BuildPreedit() Preedit {
	var segs []Segment
	c := m.composition
	n := c.Len()

	for i := 0; i < n; {
		e := c.At(i)
		if !e.IsConverted() || (i != n-1 && e.IsVirtualSpace() && !c.At(i+1).IsConverted()) {
			var text string
			for i < n && (c.At(i).IsVirtualSpace() || !c.At(i).IsConverted()) {
				text += c.At(i).Composed()
				i++
			}
			segs = append(segs, Segment{Status: SegmentComposing, Value: text})
			continue
		}

		switch {
		case e.IsVirtualSpace():
			segs = append(segs, Segment{Status: Unmarked, Value: " "})
		case i == m.focusedElement:
			segs = append(segs, Segment{Status: SegmentFocused, Value: e.Converted()})
		default:
			segs = append(segs, Segment{Status: SegmentConverted, Value: e.Converted()})
		}
		i++
	}

	return Preedit{Segments: segs, Caret: m.caret, FocusedCaret: m.focusedCaret()}
}

// Candidates returns the candidate list. It is empty in the Converted
// state, where no list is shown.
func (m *Manager) Candidates() CandidateList {
	for _, c := range m.candidates {
		m.adjust(c)
	}

	if m.state == Converted {
		return CandidateList{}
	}

	out := CandidateList{Focused: m.focusedCandidate}
	for i, c := range m.candidates {
		out.Candidates = append(out.Candidates, Candidate{ID: i, Value: c.Text()})
	}
	return out
}

func (m *Manager) beginSegmentNavigation() {
	m.nav = bySegment
	m.state = Converted
	m.setCaretToEnd()
}

func (m *Manager) moveFocusOrCaret(dir lomaji.Direction) {
	if m.nav == bySegment && m.focusedElement == 0 && dir == lomaji.Left {
		m.nav = byCharacter
	}

	if m.nav == bySegment {
		m.moveFocus(dir)
	} else {
		m.moveCaret(dir)
	}
}

func (m *Manager) moveCaret(dir lomaji.Direction) {
	m.setCaret(lomaji.MoveCaret(m.composition.Text(), m.caret, dir))
	if m.state != Composing {
		m.focusElement(m.composition.IterCaret(m.caret))
	}
}

func (m *Manager) moveFocus(dir lomaji.Direction) {
	idx := m.focusedElement
	n := m.composition.Len()

	switch dir {
	case lomaji.Right:
		if idx >= n-1 {
			return
		}
		idx++
		for idx < n-1 && m.composition.At(idx).IsVirtualSpace() {
			idx++
		}
	case lomaji.Left:
		if idx == 0 {
			return
		}
		idx--
		for idx > 0 && m.composition.At(idx).IsVirtualSpace() {
			idx--
		}
	}

	m.focusElement(idx)
}

func (m *Manager) focusElement(idx int) {
	if idx != m.focusedElement {
		m.onFocusElementChange(idx)
	}
}

func (m *Manager) onFocusElementChange(idx int) {
	n := m.composition.Len()
	for idx < n-1 && m.composition.At(idx).IsVirtualSpace() {
		idx++
	}
	m.setFocusedElement(idx)

	if m.state == Converted {
		m.updateCandidatesForFocusedElement()
	}
}

// updateCandidatesForFocusedElement looks up candidates for the raw text
// from the focused element to the end.
func (m *Manager) updateCandidatesForFocusedElement() {
	if m.composition.Empty() {
		m.candidates = nil
		return
	}

	raw := m.composition.RawTextFrom(m.focusedElement)
	m.candidates = m.finder.MultiMatch(m.focusLGram(), raw)
	m.setFocusedCandidateIndexToCurrent()
}

func (m *Manager) setFocusedCandidateIndexToCurrent() {
	current := m.composition.At(m.focusedElement)
	for i, c := range m.candidates {
		if !c.Empty() && current.Equal(c.At(0)) {
			m.focusedCandidate = i
			return
		}
	}
	m.focusedCandidate = 0
}

func (m *Manager) splitForComposition() {
	if m.composition.Empty() {
		return
	}

	if m.composition.HasComposing() {
		m.composition.IsolateComposing(m.precomp, m.postcomp)
	} else {
		m.composition.SplitForComposition(m.caret, m.precomp, m.postcomp)
	}

	if !m.precomp.Empty() {
		m.caret -= m.precomp.TextSize()
	}
}

func (m *Manager) adjustThenUpdateCaretAndFocus(rawCaret, focusCaret int) {
	focusCaret = min(focusCaret, m.composition.RawTextSize())
	m.adjust(m.composition)
	m.focusElement(m.composition.IterRawCaret(focusCaret))
	m.setCaretFromRaw(rawCaret)
}

// joinAndUpdateCaretAndFocus rejoins the parked buffers. Focus moves to
// the first element after precomp, located by raw position so that
// virtual spacing cannot shift it.
func (m *Manager) joinAndUpdateCaretAndFocus(rawCaret int) {
	focus := m.precomp.RawTextSize()
	if !m.composition.Empty() {
		focus++
	}

	m.composition.Join(m.precomp, m.postcomp)
	m.adjustThenUpdateCaretAndFocus(rawCaret, focus)
}

func (m *Manager) beginInsertion(ch rune) (string, int) {
	m.splitForComposition()
	raw := m.composition.RawText()
	caret := m.composition.RawCaretFrom(m.caret)
	raw = lomaji.Insert(raw, caret, string(ch))
	return raw, caret + 1
}

func (m *Manager) finalizeInsertion(rawCaret int) {
	m.composition.SetConverted(false)
	m.joinAndUpdateCaretAndFocus(rawCaret + m.precomp.RawTextSize())
}

func (m *Manager) setCompositionContinuous(raw string) {
	if raw == "" {
		m.candidates = nil
		m.composition.Clear()
		return
	}

	m.candidates = m.finder.ContinuousMultiMatch(m.focusLGram(), raw)
	m.composition = m.candidates[0].Clone()
	m.composition.SetConverted(false)
	m.checkRaw(raw)
}

func (m *Manager) setCompositionBasic(raw string) {
	if raw == "" {
		m.candidates = nil
		m.composition.Clear()
		return
	}

	m.candidates = m.finder.MultiMatch(m.focusLGram(), raw)
	if len(m.candidates) == 0 {
		m.composition = buffer.New(buffer.Text(raw))
		return
	}

	m.composition = m.candidates[0].Clone()
	m.composition.SetConverted(false)
	if size := m.composition.RawTextSize(); lomaji.Len(raw) > size {
		m.composition.Append(buffer.Text(lomaji.Suffix(raw, size)))
	}
	m.checkRaw(raw)
}

func (m *Manager) checkRaw(raw string) {
	if got := m.composition.RawText(); got != raw {
		m.log.Warn("composition does not match typed keys", "raw", raw, "text", got)
	}
}

func (m *Manager) eraseConverted(idx, pos int) {
	e := m.composition.At(idx)
	text := e.Converted()
	end := lomaji.MoveCaret(text, pos, lomaji.Right)
	text = lomaji.Prefix(text, pos) + lomaji.Suffix(text, end)

	if text == "" {
		m.composition.Erase(idx)
	} else {
		e.Replace(buffer.Text(text))
	}
	m.composition.StripVirtualSpacing()

	if m.composition.Empty() {
		m.Clear()
		return
	}

	m.ensureCaretAndFocusInBounds()
	m.updateCandidatesForFocusedElement()
}

func (m *Manager) eraseComposing(dir lomaji.Direction) {
	rawCaret := m.composition.RawCaretFrom(m.caret)
	m.splitForComposition()

	pos := m.caret
	i := 0
	for ; i < m.composition.Len(); i++ {
		size := m.composition.At(i).Size()
		if pos < size {
			break
		}
		pos -= size
	}
	if i == m.composition.Len() {
		m.rejoin()
		return
	}

	e := m.composition.At(i)
	if dir == lomaji.Right && e.IsVirtualSpaceAt(pos) {
		m.rejoin()
		m.HandleLeftRight(lomaji.Right)
		return
	}

	e.Erase(pos)
	if e.Size() == 0 {
		m.composition.Erase(i)
		m.composition.StripVirtualSpacing()
		m.ensureCaretAndFocusInBounds()
	}

	if m.IsEmpty() {
		m.Clear()
		return
	}

	switch m.mode {
	case Continuous:
		m.setCompositionContinuous(m.composition.RawText())
	case Basic:
		m.setCompositionBasic(m.composition.RawText())
	}

	m.joinAndUpdateCaretAndFocus(rawCaret)
}

// rejoin undoes splitForComposition without converting anything.
func (m *Manager) rejoin() {
	m.caret += m.precomp.TextSize()
	m.composition.Join(m.precomp, m.postcomp)
}

// focusCandidate puts candidate index into the composition at the
// focused element. Raw input the candidate does not cover, up to the next
// point where the rest converts exactly, is converted again and appended
// unconverted. It returns the element count of the candidate after khin
// and spacing adjustment.
func (m *Manager) focusCandidate(index int, selected bool) int {
	rawCaret := m.composition.RawCaretFrom(m.caret)
	cand := m.candidates[index].Clone()
	cand.SetSelected(selected)
	size := m.adjustedSize(cand)

	m.composition.SplitAtElement(m.focusedElement, m.precomp, nil)

	candRaw := cand.RawTextSize()
	end := m.composition.IterRawCaret(candRaw)
	if end >= m.composition.Len() {
		end = m.composition.Len() - 1
	}
	end++

	if bufRaw := m.composition.RawTextSizeRange(0, end); bufRaw > candRaw {
		rest := lomaji.Suffix(m.composition.RawTextRange(0, end), candRaw)
		for end < m.composition.Len() {
			if rest != "" && m.finder.HasExactMatch(rest) {
				break
			}
			rest += m.composition.At(end).Raw()
			end++
		}

		next := m.finder.ContinuousSingleMatch(m.focusLGram(), rest)
		if next.Empty() {
			next.Append(buffer.Text(rest))
		}
		next.SetConverted(false)
		cand.AppendBuffer(next)

		rawCaret = max(rawCaret, cand.RawTextSize()+m.precomp.RawTextSize())
	}

	j := m.composition.Replace(0, end, cand) + cand.Len()
	for ; j < m.composition.Len() && !m.composition.At(j).IsSelected(); j++ {
		m.composition.At(j).SetConverted(false)
	}

	m.focusedCandidate = index
	m.joinAndUpdateCaretAndFocus(rawCaret)
	return size
}

func (m *Manager) adjust(b *buffer.Buffer) {
	m.khin.Apply(b)
	b.AdjustVirtualSpacing()
}

func (m *Manager) adjustedSize(b *buffer.Buffer) int {
	c := b.Clone()
	m.adjust(c)
	return c.Len()
}

func (m *Manager) ensureCaretAndFocusInBounds() {
	m.setCaret(m.caret)
	m.setFocusedElement(m.focusedElement)
}

func (m *Manager) setFocusedElement(idx int) {
	n := m.composition.Len()
	switch {
	case n == 0 || idx < 0:
		m.focusedElement = 0
	default:
		m.focusedElement = min(idx, n-1)
	}
}

func (m *Manager) setCaret(caret int) {
	m.caret = max(0, min(caret, m.composition.TextSize()))
}

func (m *Manager) setCaretFromRaw(raw int) {
	m.setCaret(m.composition.CaretFrom(raw))
}

func (m *Manager) setCaretToEnd() {
	m.caret = m.composition.TextSize()
}

// focusLGram returns the token left of the focused element, skipping one
// virtual space, when it is a dictionary match.
func (m *Manager) focusLGram() *store.TaiToken {
	if !m.precomp.Empty() && m.focusedElement == m.precomp.Len() {
		j := m.precomp.Len() - 1
		if j > 0 && m.precomp.At(j).IsVirtualSpace() {
			j--
		}
		if e := m.precomp.At(j); e.IsTaiText() {
			return e.Candidate()
		}
		return nil
	}

	if m.focusedElement == 0 {
		return nil
	}

	j := m.focusedElement - 1
	if j >= m.composition.Len() {
		return nil
	}
	if m.composition.At(j).IsVirtualSpace() {
		if j == 0 {
			if !m.precomp.Empty() && m.precomp.Back().IsTaiText() {
				return m.precomp.Back().Candidate()
			}
			return nil
		}
		j--
	}
	if e := m.composition.At(j); e.IsTaiText() {
		return e.Candidate()
	}
	return nil
}

// focusedCaret is the display offset just past the element before the
// focused one.
func (m *Manager) focusedCaret() int {
	if m.focusedElement == 0 || m.composition.Empty() {
		return 0
	}

	end := min(m.focusedElement-1, m.composition.Len()-1)
	for end > 0 && m.composition.At(end).IsVirtualSpace() {
		end--
	}
	return m.composition.TextSizeRange(0, end) + m.composition.At(end).Size()
}
