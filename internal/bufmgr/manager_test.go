package bufmgr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"khiin/internal/buffer"
	"khiin/internal/candidates"
	"khiin/internal/dictionary"
	"khiin/internal/keyconfig"
	"khiin/internal/khin"
	"khiin/internal/lomaji"
	"khiin/internal/segmenter"
	"khiin/internal/store"
	"khiin/internal/syllable"
)

type options struct {
	mode     InputMode
	dotted   bool
	autokhin bool
}

func newManager(t *testing.T, opts options) (*Manager, *store.Store) {
	t.Helper()
	s, err := store.OpenDemo()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	p := syllable.NewParser(keyconfig.New(), opts.dotted)
	d, err := dictionary.New(s, p)
	require.NoError(t, err)

	f := candidates.New(d, segmenter.New(d))
	return New(f, khin.New(p, opts.autokhin), d, opts.mode), s
}

func typeKeys(m *Manager, keys string) {
	for _, r := range keys {
		m.Insert(r)
	}
}

func candidateValues(l CandidateList) []string {
	out := make([]string, len(l.Candidates))
	for i, c := range l.Candidates {
		out[i] = c.Value
	}
	return out
}

func TestInsertSingleSyllable(t *testing.T) {
	m, _ := newManager(t, options{})
	assert.True(t, m.IsEmpty())
	assert.Equal(t, Empty, m.EditState())

	m.Insert('e')

	assert.Equal(t, Composing, m.EditState())
	p := m.BuildPreedit()
	assert.Equal(t, []Segment{{SegmentComposing, "e"}}, p.Segments)
	assert.Equal(t, 1, p.Caret)

	cands := m.Candidates()
	assert.Equal(t, []string{"个", "兮", "鞋", "ê"}, candidateValues(cands))
	assert.Equal(t, 0, cands.Focused)
}

func TestInsertIgnoresControl(t *testing.T) {
	m, _ := newManager(t, options{})
	m.Insert('\b')
	m.Insert('\t')
	assert.True(t, m.IsEmpty())
	assert.Equal(t, Empty, m.EditState())
}

func TestInsertTwoSyllables(t *testing.T) {
	m, _ := newManager(t, options{})

	typeKeys(m, "eb")
	assert.Equal(t, "e b", m.BuildPreedit().Text())
	assert.Equal(t, 3, m.Caret())

	m.Insert('o')
	p := m.BuildPreedit()
	assert.Equal(t, []Segment{{SegmentComposing, "e bo"}}, p.Segments)
	assert.Equal(t, 4, p.Caret)
	assert.Equal(t, "ebo", m.Composition().RawText())
	assert.Equal(t, []string{"个無", "个", "兮", "鞋", "ê"}, candidateValues(m.Candidates()))
}

func TestInsertToneAndSpacing(t *testing.T) {
	m, _ := newManager(t, options{})

	typeKeys(m, "tai7chi")

	assert.Equal(t, "tāi chi", m.BuildPreedit().Text())
	assert.Equal(t, 7, m.BuildPreedit().Caret)
	assert.Equal(t, "tai7chi", m.Composition().RawText())
}

func TestSelectConvertsWholeComposition(t *testing.T) {
	m, _ := newManager(t, options{})
	typeKeys(m, "ebo")

	m.HandleSelectOrFocus()

	assert.Equal(t, Converted, m.EditState())
	p := m.BuildPreedit()
	assert.Equal(t, []Segment{
		{SegmentFocused, "个"},
		{SegmentConverted, "無"},
	}, p.Segments)
	assert.Equal(t, 2, p.Caret)
	assert.Equal(t, 0, p.FocusedCaret)
	assert.Empty(t, m.Candidates().Candidates)
}

func TestSelectSecondSegment(t *testing.T) {
	m, _ := newManager(t, options{})
	typeKeys(m, "ebo")
	m.HandleSelectOrFocus()

	m.HandleLeftRight(lomaji.Right)
	assert.Equal(t, 1, m.FocusedElement())
	assert.Equal(t, 1, m.BuildPreedit().FocusedCaret)

	m.FocusNextCandidate()
	assert.Equal(t, Selecting, m.EditState())
	cands := m.Candidates()
	assert.Equal(t, []string{"無", "bô"}, candidateValues(cands))
	assert.Equal(t, 1, cands.Focused)
	assert.Equal(t, []Segment{
		{SegmentConverted, "个"},
		{Unmarked, " "},
		{SegmentFocused, "bô"},
	}, m.BuildPreedit().Segments)

	_, committed := m.HandleSelectOrCommit()
	assert.False(t, committed)
	assert.Equal(t, Converted, m.EditState())
	assert.Equal(t, "个 bô", m.BuildPreedit().Text())
	assert.Equal(t, "ebo", m.Composition().RawText())
}

func TestFocusCandidateCycles(t *testing.T) {
	m, _ := newManager(t, options{})
	typeKeys(m, "e")

	m.HandleSelectOrFocus()
	require.Equal(t, Converted, m.EditState())

	m.HandleSelectOrFocus()
	assert.Equal(t, Selecting, m.EditState())
	assert.Equal(t, 1, m.FocusedCandidate())
	assert.Equal(t, "兮", m.BuildPreedit().Text())

	m.FocusPrevCandidate()
	assert.Equal(t, 0, m.FocusedCandidate())
	m.FocusPrevCandidate()
	assert.Equal(t, 3, m.FocusedCandidate())
	assert.Equal(t, "ê", m.BuildPreedit().Text())
	m.FocusNextCandidate()
	assert.Equal(t, 0, m.FocusedCandidate())

	m.FocusCandidate(99)
	assert.Equal(t, 0, m.FocusedCandidate())
	m.SelectCandidate(-1)
	assert.Equal(t, Selecting, m.EditState())
}

func TestFocusNextFromComposing(t *testing.T) {
	m, _ := newManager(t, options{})
	assert.Equal(t, Continuous, m.Mode())
	assert.True(t, m.IsEmpty())

	typeKeys(m, "e")
	require.Equal(t, Composing, m.EditState())
	assert.False(t, m.IsEmpty())

	m.FocusNextCandidate()
	assert.Equal(t, Selecting, m.EditState())
	assert.Equal(t, 0, m.FocusedCandidate())
	assert.Equal(t, "个", m.BuildPreedit().Text())
}

func TestCommit(t *testing.T) {
	m, s := newManager(t, options{})
	typeKeys(m, "ebo")
	m.HandleSelectOrFocus()

	text, committed := m.HandleSelectOrCommit()
	assert.True(t, committed)
	assert.Equal(t, "个無", text)
	assert.True(t, m.IsEmpty())
	assert.Equal(t, Empty, m.EditState())

	bi, err := s.BigramCounts("个", []string{"無"})
	require.NoError(t, err)
	require.Len(t, bi, 1)
	assert.Equal(t, 1, bi[0].Count)

	assert.Equal(t, "", m.Commit())
}

func TestCommitReturnsText(t *testing.T) {
	m, _ := newManager(t, options{})
	typeKeys(m, "goali")
	assert.Equal(t, "goa li", m.Commit())
	assert.True(t, m.IsEmpty())
}

func TestEraseToEmpty(t *testing.T) {
	m, _ := newManager(t, options{})
	typeKeys(m, "eb")

	m.Erase(lomaji.Left)
	assert.Equal(t, "e", m.BuildPreedit().Text())
	assert.Equal(t, 1, m.Caret())
	assert.Equal(t, Composing, m.EditState())

	m.Erase(lomaji.Left)
	assert.True(t, m.IsEmpty())
	assert.Equal(t, Empty, m.EditState())

	m.Erase(lomaji.Left)
	assert.True(t, m.IsEmpty())
}

func TestEraseInMiddle(t *testing.T) {
	m, _ := newManager(t, options{})
	typeKeys(m, "goali")

	m.HandleLeftRight(lomaji.Left)
	assert.Equal(t, 5, m.Caret())

	m.Erase(lomaji.Left)
	assert.Equal(t, "goai", m.Composition().RawText())
	assert.Equal(t, "goa i", m.BuildPreedit().Text())
	assert.Equal(t, 3, m.Caret())
}

func TestEraseVirtualSpace(t *testing.T) {
	m, _ := newManager(t, options{})
	typeKeys(m, "goali")
	m.HandleLeftRight(lomaji.Left)
	m.HandleLeftRight(lomaji.Left)
	require.Equal(t, 4, m.Caret())

	m.Erase(lomaji.Left)
	assert.Equal(t, "goali", m.Composition().RawText())
	assert.Equal(t, 3, m.Caret())
}

func TestEraseAtStartIsNoop(t *testing.T) {
	m, _ := newManager(t, options{})
	typeKeys(m, "e")
	m.HandleLeftRight(lomaji.Left)

	m.Erase(lomaji.Left)
	assert.Equal(t, "e", m.BuildPreedit().Text())

	m.Erase(lomaji.Right)
	assert.True(t, m.IsEmpty())
}

func TestEraseConverted(t *testing.T) {
	m, _ := newManager(t, options{})
	typeKeys(m, "ebo")
	m.HandleSelectOrFocus()
	require.Equal(t, 2, m.Caret())

	m.Erase(lomaji.Left)
	assert.Equal(t, "个", m.BuildPreedit().Text())
	assert.Equal(t, Converted, m.EditState())

	m.Erase(lomaji.Left)
	assert.True(t, m.IsEmpty())
	assert.Equal(t, Empty, m.EditState())
}

func TestRevert(t *testing.T) {
	m, _ := newManager(t, options{})
	typeKeys(m, "ebo")
	m.HandleSelectOrFocus()

	m.Revert()
	assert.Equal(t, Composing, m.EditState())
	assert.Equal(t, []Segment{
		{SegmentComposing, "e "},
		{SegmentConverted, "無"},
	}, m.BuildPreedit().Segments)

	m.Revert()
	assert.Equal(t, Composing, m.EditState())
	assert.Equal(t, []Segment{{SegmentComposing, "e bo"}}, m.BuildPreedit().Segments)
	assert.Equal(t, 4, m.Caret())

	m.Revert()
	assert.True(t, m.IsEmpty())
	assert.Equal(t, Empty, m.EditState())
}

func TestRevertSelecting(t *testing.T) {
	m, _ := newManager(t, options{})
	typeKeys(m, "e")
	m.FocusNextCandidate()
	assert.Equal(t, Selecting, m.EditState())

	m.Revert()
	assert.Equal(t, Converted, m.EditState())
}

func TestInsertAfterConversion(t *testing.T) {
	m, _ := newManager(t, options{})
	typeKeys(m, "goa")
	m.HandleSelectOrFocus()
	require.Equal(t, "我", m.BuildPreedit().Text())

	typeKeys(m, "li")

	assert.Equal(t, Composing, m.EditState())
	assert.Equal(t, "goali", m.Composition().RawText())
	segs := m.BuildPreedit().Segments
	require.NotEmpty(t, segs)
	assert.Equal(t, Segment{SegmentConverted, "我"}, segs[0])
	assert.Equal(t, SegmentComposing, segs[len(segs)-1].Status)
}

func TestKhin(t *testing.T) {
	m, _ := newManager(t, options{dotted: true})
	typeKeys(m, "--a")

	assert.Equal(t, "·a", m.BuildPreedit().Text())
	assert.Equal(t, "--a", m.Composition().RawText())
}

func TestKhinAfterSyllable(t *testing.T) {
	m, _ := newManager(t, options{})
	typeKeys(m, "chit--e")

	c := m.Composition()
	assert.Equal(t, "chit--e", c.RawText())
	last := c.Back()
	require.Equal(t, buffer.KindTai, last.Kind())
	assert.Equal(t, lomaji.KhinStart, last.TaiText().Syllables()[0].KhinPos())
}

func TestAutokhin(t *testing.T) {
	for _, auto := range []bool{true, false} {
		m, _ := newManager(t, options{autokhin: auto})
		typeKeys(m, "--ebo")

		c := m.Composition()
		require.Equal(t, "--ebo", c.RawText())
		last := c.Back()
		require.Equal(t, buffer.KindTai, last.Kind())

		want := lomaji.KhinNone
		if auto {
			want = lomaji.KhinVirtual
		}
		assert.Equal(t, want, last.TaiText().Syllables()[0].KhinPos(), "autokhin=%v", auto)
	}
}

func TestBasicMode(t *testing.T) {
	m, _ := newManager(t, options{mode: Basic})
	typeKeys(m, "goali")

	c := m.Composition()
	assert.Equal(t, "goali", c.RawText())
	require.Equal(t, 3, c.Len())
	assert.Equal(t, buffer.KindText, c.At(2).Kind())
	assert.Equal(t, "goa li", m.BuildPreedit().Text())
	assert.Equal(t, []string{"我", "góa"}, candidateValues(m.Candidates()))
}

func TestManualMode(t *testing.T) {
	m, _ := newManager(t, options{mode: Manual})
	m.Insert('a')

	assert.Equal(t, Composing, m.EditState())
	assert.True(t, m.IsEmpty())
}

func TestClear(t *testing.T) {
	m, s := newManager(t, options{})
	typeKeys(m, "ebo")
	m.HandleSelectOrFocus()

	m.Clear()
	assert.True(t, m.IsEmpty())
	assert.Equal(t, Empty, m.EditState())
	assert.Empty(t, m.Candidates().Candidates)

	uni, err := s.UnigramCounts([]string{"个"})
	require.NoError(t, err)
	assert.Empty(t, uni)
}

func TestParseInputMode(t *testing.T) {
	for in, want := range map[string]InputMode{
		"continuous": Continuous,
		"Basic":      Basic,
		" manual ":   Manual,
		"":           Continuous,
	} {
		got, err := ParseInputMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseInputMode("telex")
	assert.Error(t, err)
	assert.Equal(t, "selecting", Selecting.String())
}
