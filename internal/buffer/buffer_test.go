package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"khiin/internal/keyconfig"
	"khiin/internal/lomaji"
	"khiin/internal/store"
	"khiin/internal/syllable"
)

func newParser() *syllable.Parser {
	return syllable.NewParser(keyconfig.New(), false)
}

var (
	goaToken = store.TaiToken{ID: 2, InputID: 2, Input: "góa", Output: "我"}
	liToken  = store.TaiToken{ID: 3, InputID: 3, Input: "lí", Output: "你"}
)

func TestElementSizes(t *testing.T) {
	p := newParser()

	e := Build(p, "goa2", &goaToken, true, false)
	assert.Equal(t, KindTai, e.Kind())
	assert.Equal(t, "góa", e.Composed())
	assert.Equal(t, "我", e.Converted())
	assert.Equal(t, 3, e.Size())
	assert.Equal(t, 4, e.RawSize())

	e.SetConverted(true)
	assert.Equal(t, 1, e.Size())
	assert.Equal(t, "我", e.Display())
	assert.Equal(t, 1, e.RawToComposedCaret(4))
	assert.Equal(t, 4, e.ComposedToRawCaret(1))

	raw := Build(p, "ta", nil, false, false)
	assert.Nil(t, raw.Candidate())
	assert.Equal(t, "ta", raw.Composed())

	sp := Space()
	assert.Equal(t, 1, sp.Size())
	assert.Equal(t, "", sp.Raw())
	assert.True(t, sp.IsVirtualSpaceAt(0))
	sp.Erase(0)
	assert.True(t, sp.IsErased())
}

func TestUserElement(t *testing.T) {
	p := newParser()
	tok := store.TaiToken{Input: "ioong", Output: "用", Custom: true}

	e := Build(p, "ioong", &tok, true, false)
	require.Equal(t, KindUser, e.Kind())
	assert.Equal(t, "ioong", e.Composed())
	assert.Equal(t, 5, e.Size())

	e.SetConverted(true)
	assert.Equal(t, "用", e.Display())
	assert.Equal(t, 1, e.Size())
	assert.Equal(t, 5, e.ComposedToRawCaret(1))

	e.Erase(0)
	assert.Equal(t, KindText, e.Kind())
	assert.Equal(t, "oong", e.Raw())
}

func TestPunctuationErase(t *testing.T) {
	e := Punct(store.Punctuation{Input: ".", Output: "。"})
	assert.Equal(t, "。", e.Display())
	assert.Equal(t, 1, e.ComposedToRawCaret(1))

	e.Erase(0)
	assert.Equal(t, KindText, e.Kind())
	assert.Equal(t, "", e.Display())
}

func TestElementCloneIsDeep(t *testing.T) {
	p := newParser()
	e := Build(p, "goa2", &goaToken, true, false)
	c := e.Clone()

	c.TaiText().Candidate.Output = "吾"
	c.TaiText().Erase(0)
	assert.Equal(t, "我", e.Converted())
	assert.Equal(t, "góa", e.Composed())
}

func TestTextSetKhin(t *testing.T) {
	e := Text("xyz")
	assert.False(t, e.SetKhin(lomaji.KhinStart, '-'))
	assert.Equal(t, "--xyz", e.Raw())

	e = Text("xyz")
	e.SetKhin(lomaji.KhinEnd, '0')
	assert.Equal(t, "xyz0", e.Raw())
}

func TestCarets(t *testing.T) {
	p := newParser()
	b := New(
		Build(p, "goa2", &goaToken, true, false),
		Build(p, "li2", &liToken, true, false),
	)

	assert.Equal(t, "góalí", b.Text())
	assert.Equal(t, "goa2li2", b.RawText())
	assert.Equal(t, 5, b.TextSize())
	assert.Equal(t, 7, b.RawTextSize())

	assert.Equal(t, 0, b.IterCaret(0))
	assert.Equal(t, 0, b.IterCaret(3))
	assert.Equal(t, 1, b.IterCaret(4))
	assert.Equal(t, 2, b.IterCaret(9))

	assert.Equal(t, 7, b.RawCaretFrom(5))
	assert.Equal(t, 4, b.RawCaretFrom(3))
	assert.Equal(t, 0, b.RawCaretFrom(0))
	assert.Equal(t, 5, b.CaretFrom(7))
	assert.Equal(t, 3, b.CaretFrom(4))
	assert.Equal(t, 7, b.RawCaretFrom(99))

	assert.Equal(t, "li2", b.RawTextFrom(1))
	assert.Equal(t, 0, New().RawCaretFrom(4))
	assert.Equal(t, 0, New().CaretFrom(4))
}

func TestAdjustVirtualSpacing(t *testing.T) {
	p := newParser()
	b := New(
		Build(p, "goa2", &goaToken, true, false),
		Build(p, "li2", &liToken, true, false),
	)

	b.AdjustVirtualSpacing()
	require.Equal(t, 3, b.Len())
	assert.True(t, b.At(1).IsVirtualSpace())
	assert.Equal(t, "góa lí", b.Text())
	assert.Equal(t, "goa2li2", b.RawText())

	b.SetConverted(true)
	b.AdjustVirtualSpacing()
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, "我你", b.Text())

	b = New(Punct(store.Punctuation{Input: "!", Output: "!"}), Text("a"))
	b.AdjustVirtualSpacing()
	assert.Equal(t, 2, b.Len())

	b = New(Punct(store.Punctuation{Input: ",", Output: "，"}), Text("a"))
	b.AdjustVirtualSpacing()
	assert.Equal(t, 3, b.Len())
}

func TestAdjustVirtualSpacingIdempotent(t *testing.T) {
	p := newParser()

	khin := Build(p, "a", nil, false, false)
	require.True(t, khin.SetKhin(lomaji.KhinStart, '-'))

	selected := Text("abc")
	selected.SetSelected(true)
	selected2 := Text("def")
	selected2.SetSelected(true)

	buffers := map[string]*Buffer{
		"composing": New(
			Build(p, "goa2", &goaToken, true, false),
			Build(p, "li2", &liToken, true, false),
			Text("ho"),
		),
		"converted": New(
			Build(p, "goa2", &goaToken, true, true),
			converted("abc"),
			Build(p, "li2", &liToken, true, true),
		),
		"khin": New(converted("我"), khin, Text("x")),
		"selected": New(selected, selected2),
		"existing spaces": New(Space(), Text("a"), Space(), Space(), Text("b"), Space()),
		"punctuation": New(Text("a"), Punct(store.Punctuation{Input: ",", Output: "，"}), Text("b")),
	}

	for name, b := range buffers {
		t.Run(name, func(t *testing.T) {
			b.AdjustVirtualSpacing()
			once := b.Clone()

			b.AdjustVirtualSpacing()
			require.Equal(t, once.Len(), b.Len())
			assert.Equal(t, once.String(), b.String())
			assert.Equal(t, once.Text(), b.Text())
			assert.Equal(t, once.RawText(), b.RawText())
			for i := 0; i < b.Len(); i++ {
				assert.Equal(t, once.At(i).IsConverted(), b.At(i).IsConverted(), "converted flag at %d", i)
				assert.Equal(t, once.At(i).IsSelected(), b.At(i).IsSelected(), "selected flag at %d", i)
			}
			for i := 1; i < b.Len(); i++ {
				assert.False(t, b.At(i-1).IsVirtualSpace() && b.At(i).IsVirtualSpace(), "adjacent spaces at %d", i)
			}
		})
	}
}

func TestVirtualSpaceFlags(t *testing.T) {
	p := newParser()
	lhs := Build(p, "goa2", &goaToken, true, true)
	rhs := Text("abc")
	rhs.SetConverted(true)

	b := New(lhs, rhs)
	b.AdjustVirtualSpacing()
	require.Equal(t, 3, b.Len())
	assert.True(t, b.At(1).IsConverted())

	lhs = Text("abc")
	lhs.SetSelected(true)
	rhs = Text("def")
	rhs.SetSelected(true)
	b = New(lhs, rhs)
	b.AdjustVirtualSpacing()
	require.Equal(t, 3, b.Len())
	assert.False(t, b.At(1).IsConverted())
	assert.True(t, b.At(1).IsSelected())
}

func TestStripVirtualSpacing(t *testing.T) {
	b := New(Space(), Text("a"), Space(), Text("b"), Space(), Space())
	b.StripVirtualSpacing()
	assert.Equal(t, 3, b.Len())
	assert.Equal(t, "a b", b.Text())

	b = New(Space(), Space())
	b.StripVirtualSpacing()
	assert.True(t, b.Empty())
}

func converted(s string) Element {
	e := Text(s)
	e.SetConverted(true)
	return e
}

func TestIsolateComposing(t *testing.T) {
	b := New(converted("我"), Text("li"), Text("bo"), converted("人"), Text("x"))
	pre, post := New(), New()

	b.IsolateComposing(pre, post)
	assert.Equal(t, "我", pre.Text())
	assert.Equal(t, "libo", b.Text())
	assert.Equal(t, "人x", post.Text())

	b.Join(pre, post)
	assert.Equal(t, "我libo人x", b.Text())
	assert.True(t, pre.Empty())
	assert.True(t, post.Empty())
}

func TestSplitForCompositionHanji(t *testing.T) {
	b := New(converted("我"), converted("好人"), converted("你"))
	pre, post := New(), New()

	b.SplitForComposition(2, pre, post)
	assert.True(t, b.Empty())
	assert.Equal(t, "我好", pre.Text())
	assert.Equal(t, "人你", post.Text())
	assert.Equal(t, 2, pre.Len())
	assert.True(t, pre.Back().IsSelected())
	assert.True(t, post.At(0).IsSelected())
}

func TestSplitForCompositionAtElementEnd(t *testing.T) {
	b := New(converted("我"), converted("好人"), converted("你"))
	pre, post := New(), New()

	b.SplitForComposition(3, pre, post)
	assert.True(t, b.Empty())
	assert.Equal(t, "我好人", pre.Text())
	assert.Equal(t, "你", post.Text())
}

func TestSplitForCompositionLomaji(t *testing.T) {
	b := New(converted("我"), converted("abc"), converted("你"))
	pre, post := New(), New()

	b.SplitForComposition(2, pre, post)
	assert.Equal(t, "abc", b.Text())
	assert.Equal(t, "我", pre.Text())
	assert.Equal(t, "你", post.Text())

	New().SplitForComposition(0, pre, post)
}

func TestSplitAtElement(t *testing.T) {
	b := New(Text("a"), Text("b"), Text("c"), Text("d"))
	pre, post := New(), New()

	b.SplitAtElement(0, pre, post)
	assert.Equal(t, 4, b.Len())

	b.SplitAtElement(2, pre, post)
	assert.Equal(t, "ab", pre.Text())
	assert.Equal(t, "c", b.Text())
	assert.Equal(t, "d", post.Text())

	b.Join(pre, post)
	b.SplitAtElement(1, nil, post)
	assert.Equal(t, "ab", b.Text())
	assert.Equal(t, "cd", post.Text())
}

func TestReplace(t *testing.T) {
	b := New(Text("a"), Text("b"), Text("c"))
	idx := b.Replace(1, 2, New(Text("x"), Text("y")))
	assert.Equal(t, 1, idx)
	assert.Equal(t, "axyc", b.Text())
	assert.Equal(t, 4, b.Len())
}

func TestCloneIsDeep(t *testing.T) {
	p := newParser()
	b := New(Build(p, "goa2", &goaToken, true, false))
	c := b.Clone()
	c.At(0).SetConverted(true)
	c.Append(Text("x"))

	assert.False(t, b.At(0).IsConverted())
	assert.Equal(t, 1, b.Len())
}
