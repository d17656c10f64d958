package syllable

import (
	"strings"

	"khiin/internal/lomaji"
	"khiin/internal/store"
)

// Chunk is either a syllable or a virtual space between two syllables.
type Chunk struct {
	Virtual bool
	// Erased marks a virtual space the user deleted.
	Erased   bool
	Syllable Syllable
}

func (c Chunk) composedSize() int {
	if c.Virtual {
		return 1
	}
	return c.Syllable.ComposedSize()
}

// TaiText is the spelling of one segment of the buffer: its syllables,
// the virtual spaces between them and the dictionary token it converts to.
type TaiText struct {
	chunks    []Chunk
	Candidate *store.TaiToken
}

// Clone returns a deep copy of t.
func (t TaiText) Clone() TaiText {
	out := TaiText{chunks: append([]Chunk(nil), t.chunks...)}
	if t.Candidate != nil {
		c := *t.Candidate
		out.Candidate = &c
	}
	return out
}

// Equal compares the chunk count and the converted text.
func (t TaiText) Equal(o TaiText) bool {
	return len(t.chunks) == len(o.chunks) && t.ConvertedText() == o.ConvertedText()
}

func (t *TaiText) AddSyllable(s Syllable) {
	t.chunks = append(t.chunks, Chunk{Syllable: s})
}

func (t *TaiText) AddVirtualSpace() {
	t.chunks = append(t.chunks, Chunk{Virtual: true})
}

func (t *TaiText) SetCandidate(tok store.TaiToken) {
	t.Candidate = &tok
}

// Chunks returns the chunks of t. The slice must not be modified.
func (t TaiText) Chunks() []Chunk {
	return t.chunks
}

// Syllables returns the syllables of t without the spaces.
func (t TaiText) Syllables() []Syllable {
	var out []Syllable
	for _, c := range t.chunks {
		if !c.Virtual {
			out = append(out, c.Syllable)
		}
	}
	return out
}

func (t TaiText) SyllableCount() int {
	n := 0
	for _, c := range t.chunks {
		if !c.Virtual {
			n++
		}
	}
	return n
}

func (t TaiText) RawText() string {
	var b strings.Builder
	for _, c := range t.chunks {
		if !c.Virtual {
			b.WriteString(c.Syllable.RawInput())
		}
	}
	return b.String()
}

func (t TaiText) RawSize() int {
	n := 0
	for _, c := range t.chunks {
		if !c.Virtual {
			n += c.Syllable.RawSize()
		}
	}
	return n
}

func (t TaiText) ComposedText() string {
	var b strings.Builder
	for _, c := range t.chunks {
		if c.Virtual {
			b.WriteByte(' ')
		} else {
			b.WriteString(c.Syllable.Composed())
		}
	}
	return b.String()
}

func (t TaiText) ComposedSize() int {
	n := 0
	for _, c := range t.chunks {
		n += c.composedSize()
	}
	return n
}

// ConvertedText is the candidate output, with the capitalization of the
// typed keys when the output is romanized. Without a candidate it is the
// composed text.
func (t TaiText) ConvertedText() string {
	if t.Candidate == nil {
		return t.ComposedText()
	}

	out := t.Candidate.Output
	if lomaji.IsLomaji(out) {
		if raw := t.RawText(); !lomaji.AllLower(raw) {
			return lomaji.MatchCapitalization(raw, out)
		}
	}
	return out
}

func (t TaiText) ConvertedSize() int {
	return lomaji.Len(t.ConvertedText())
}

// RawToComposedCaret translates a raw caret into a composed caret.
func (t TaiText) RawToComposedCaret(raw int) int {
	rem := raw
	caret := 0

	for _, c := range t.chunks {
		if rem <= 0 {
			break
		}
		if c.Virtual {
			caret++
			continue
		}
		if size := c.Syllable.RawSize(); rem > size {
			rem -= size
			caret += c.Syllable.ComposedSize()
		} else {
			caret += c.Syllable.RawToComposedCaret(rem)
			rem = 0
		}
	}

	return caret
}

// ComposedToRawCaret translates a composed caret into a raw caret.
func (t TaiText) ComposedToRawCaret(caret int) int {
	rem := caret
	raw := 0

	for _, c := range t.chunks {
		if rem <= 0 {
			break
		}
		if c.Virtual {
			rem--
			continue
		}
		if size := c.Syllable.ComposedSize(); rem > size {
			rem -= size
			raw += c.Syllable.RawSize()
		} else {
			raw += c.Syllable.ComposedToRawCaret(rem)
			rem = 0
		}
	}

	return raw
}

// ConvertedToRawCaret translates a caret in the converted text. Carets past
// the end map to the end of the raw text.
func (t TaiText) ConvertedToRawCaret(caret int) int {
	if caret >= t.ConvertedSize() {
		return t.RawSize()
	}
	return t.ComposedToRawCaret(caret)
}

// chunkAt returns the index of the chunk holding composed index i, and the
// offset of i inside it. It returns -1 past the end.
func (t TaiText) chunkAt(index int) (int, int) {
	rem := index
	for i, c := range t.chunks {
		size := c.composedSize()
		if rem < size {
			return i, rem
		}
		rem -= size
	}
	return -1, 0
}

// Erase removes the glyph at composed index; a virtual space is removed
// outright.
func (t *TaiText) Erase(index int) {
	i, rem := t.chunkAt(index)
	if i < 0 {
		return
	}

	if t.chunks[i].Virtual {
		t.chunks = append(t.chunks[:i:i], t.chunks[i+1:]...)
		return
	}
	t.chunks[i].Syllable.Erase(rem)
}

// IsVirtualSpace reports whether the composed index falls on a virtual
// space.
func (t TaiText) IsVirtualSpace(index int) bool {
	i, _ := t.chunkAt(index)
	return i >= 0 && t.chunks[i].Virtual
}

// SetKhin marks the first syllable with pos and the rest as virtual khin.
func (t *TaiText) SetKhin(pos lomaji.KhinPosition, key byte) {
	for i := range t.chunks {
		if t.chunks[i].Virtual {
			continue
		}
		t.chunks[i].Syllable.SetKhin(pos, key)
		pos = lomaji.KhinVirtual
		key = 0
	}
}
