package candidates

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"khiin/internal/buffer"
	"khiin/internal/dictionary"
	"khiin/internal/keyconfig"
	"khiin/internal/segmenter"
	"khiin/internal/store"
	"khiin/internal/syllable"
)

func newFinder(t *testing.T) (*Finder, *dictionary.Dictionary, *store.Store) {
	t.Helper()
	s, err := store.OpenDemo()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	d, err := dictionary.New(s, syllable.NewParser(keyconfig.New(), false))
	require.NoError(t, err)
	return New(d, segmenter.New(d)), d, s
}

func texts(bufs []*buffer.Buffer) []string {
	out := make([]string, len(bufs))
	for i, b := range bufs {
		out[i] = b.Text()
	}
	return out
}

func TestLess(t *testing.T) {
	toks := []store.TaiToken{
		{Output: "e", InputID: 2, InputSize: 3},
		{Output: "d", InputID: 1, InputSize: 3},
		{Output: "c", InputID: 1, InputSize: 3, Weight: 10},
		{Output: "b", InputID: 9, InputSize: 3, UnigramCount: 1},
		{Output: "a", InputID: 9, InputSize: 3, BigramCount: 1},
		{Output: "z", InputID: 9, InputSize: 4},
	}
	sort.SliceStable(toks, func(i, j int) bool { return Less(toks[i], toks[j]) })

	got := make([]string, len(toks))
	for i, tok := range toks {
		got[i] = tok.Output
	}
	assert.Equal(t, []string{"z", "a", "b", "c", "d", "e"}, got)
}

func TestMultiMatch(t *testing.T) {
	f, _, _ := newFinder(t)

	tests := []struct {
		query string
		want  []string
	}{
		{"goa", []string{"我", "góa"}},
		{"goa2", []string{"我", "góa"}},
		{"abo", []string{"阿母", "a-bó", "阿", "a"}},
		{"li", []string{"李", "汝", "Lí", "lí"}},
		{".", []string{"。"}},
		{"!", []string{"!", "！"}},
		{"xyz", []string{"xyz"}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := f.MultiMatch(nil, tt.query)
			assert.Equal(t, tt.want, texts(got))
			for _, b := range got {
				assert.True(t, b.At(0).IsConverted())
			}
		})
	}

	assert.Nil(t, f.MultiMatch(nil, ""))
}

func TestMultiMatchInputSize(t *testing.T) {
	f, _, _ := newFinder(t)

	got := f.MultiMatch(nil, "goa2li")
	require.NotEmpty(t, got)
	assert.Equal(t, "goa2", got[0].RawText())
	assert.Equal(t, "我", got[0].Text())
}

func TestMultiMatchBigram(t *testing.T) {
	f, _, s := newFinder(t)
	require.NoError(t, s.RecordBigrams([]store.Bigram{{Left: "我", Right: "汝"}}))

	lgram := &store.TaiToken{Output: "我"}
	assert.Equal(t, []string{"汝", "李", "Lí", "lí"}, texts(f.MultiMatch(lgram, "li")))
	assert.Equal(t, []string{"李", "汝", "Lí", "lí"}, texts(f.MultiMatch(nil, "li")))
}

func TestBestMatchNgram(t *testing.T) {
	f, d, s := newFinder(t)

	_, ok := f.BestMatchNgram(nil, nil)
	assert.False(t, ok)

	best, ok := f.BestMatchNgram(nil, d.WordSearch("li"))
	require.True(t, ok)
	assert.Equal(t, "李", best.Output)

	require.NoError(t, s.RecordUnigrams([]string{"lí"}))
	best, _ = f.BestMatchNgram(nil, d.WordSearch("li"))
	assert.Equal(t, "lí", best.Output)

	require.NoError(t, s.RecordBigrams([]store.Bigram{{Left: "我", Right: "汝"}}))
	best, _ = f.BestMatchNgram(&store.TaiToken{Output: "我"}, d.WordSearch("li"))
	assert.Equal(t, "汝", best.Output)
}

func TestContinuousSingleMatch(t *testing.T) {
	f, _, _ := newFinder(t)

	b := f.ContinuousSingleMatch(nil, "goali")
	require.Equal(t, 2, b.Len())
	assert.Equal(t, "我李", b.Text())
	assert.Equal(t, "goali", b.RawText())

	b = f.ContinuousSingleMatch(nil, "goa.")
	require.Equal(t, 2, b.Len())
	assert.Equal(t, buffer.KindPunct, b.At(1).Kind())
	assert.Equal(t, "。", b.At(1).Composed())

	b = f.ContinuousSingleMatch(nil, "--a")
	require.Equal(t, 2, b.Len())
	assert.Equal(t, "--", b.At(0).Raw())
	assert.Equal(t, "阿", b.At(1).Converted())

	assert.True(t, f.ContinuousSingleMatch(nil, "").Empty())
}

func TestContinuousSingleMatchLeftContext(t *testing.T) {
	f, _, s := newFinder(t)
	require.NoError(t, s.RecordBigrams([]store.Bigram{{Left: "我", Right: "汝"}}))

	b := f.ContinuousSingleMatch(nil, "goali")
	assert.Equal(t, "我汝", b.Text())
}

func TestContinuousMultiMatch(t *testing.T) {
	f, _, _ := newFinder(t)

	cands := f.ContinuousMultiMatch(nil, "ebo")
	assert.Equal(t, []string{"个無", "个", "兮", "鞋", "ê"}, texts(cands))

	cands = f.ContinuousMultiMatch(nil, "goalit")
	require.Len(t, cands, 3)
	assert.Equal(t, 3, cands[0].Len())
	assert.Equal(t, "goalit", cands[0].RawText())
	for i := 0; i < cands[0].Len(); i++ {
		assert.True(t, cands[0].At(i).IsConverted())
	}
	assert.Equal(t, "我", cands[1].Text())
	assert.Equal(t, "góa", cands[2].Text())

	cands = f.ContinuousMultiMatch(nil, "xyz")
	require.Len(t, cands, 1)
	assert.Equal(t, "xyz", cands[0].Text())
}

func TestUserItems(t *testing.T) {
	f, d, _ := newFinder(t)
	d.SetUserDictionary(dictionary.NewUserDictionary([]dictionary.UserEntry{
		{Input: "zzz", Output: "測"},
	}))

	got := f.MultiMatch(nil, "zzzq")
	require.Len(t, got, 1)
	assert.Equal(t, "測", got[0].Text())
	assert.True(t, got[0].At(0).IsUserToken())

	b := f.ContinuousSingleMatch(nil, "zzzq")
	assert.Equal(t, "測q", b.Text())
}

func TestHasExactMatch(t *testing.T) {
	f, _, _ := newFinder(t)

	assert.True(t, f.HasExactMatch("goali"))
	assert.True(t, f.HasExactMatch("Goali"))
	assert.False(t, f.HasExactMatch("goalit"))
}
