package lomaji

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMoveCaret(t *testing.T) {
	s := "áb" // a + combining acute + b

	tests := []struct {
		name string
		pos  int
		dir  Direction
		want int
	}{
		{"right over combining", 0, Right, 2},
		{"right at end", 3, Right, 3},
		{"right last glyph", 2, Right, 3},
		{"left over combining", 2, Left, 0},
		{"left at start", 0, Left, 0},
		{"left from end", 3, Left, 2},
		{"past end clamps", 10, Left, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MoveCaret(s, tt.pos, tt.dir))
		})
	}
}

func TestMatchCapitalization(t *testing.T) {
	tests := []struct {
		pattern string
		output  string
		want    string
	}{
		{"Goa2", "góa", "Góa"},
		{"TA", "ta", "TA"},
		{"ANN", "aⁿ", "Aᴺ"},
		{"ann", "aⁿ", "aⁿ"},
		{"Khi", "khí", "Khí"},
		{"", "a", ""},
		{"a", "", ""},
		{"Xa", "ta", "ta"},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.output, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchCapitalization(tt.pattern, tt.output))
		})
	}
}

func TestFindTonePosition(t *testing.T) {
	assert.Equal(t, 2, FindTonePosition("goa"))
	assert.Equal(t, 3, FindTonePosition("goan"))
	assert.Equal(t, 3, FindTonePosition("hoeh"))
	assert.Equal(t, 1, FindTonePosition("ng"))
	assert.Equal(t, 1, FindTonePosition("m"))
	assert.Equal(t, 3, FindTonePosition("TSA"))
	assert.Equal(t, -1, FindTonePosition("tsh"))
}

func TestApplyAndRemoveTone(t *testing.T) {
	assert.Equal(t, "á", ApplyToneDiacritic(T2, "a"))
	assert.Equal(t, "góa", ApplyToneDiacritic(T2, "goa"))
	assert.Equal(t, "a", ApplyToneDiacritic(T1, "a"))
	assert.Equal(t, "ah", ApplyToneDiacritic(T4, "ah"))
	assert.Equal(t, "tsh", ApplyToneDiacritic(T5, "tsh"))

	s, tone := RemoveToneDiacritic("á")
	assert.Equal(t, "a", s)
	assert.Equal(t, T2, tone)

	s, tone = RemoveToneDiacritic("lâng")
	assert.Equal(t, "lang", s)
	assert.Equal(t, T5, tone)

	s, tone = RemoveToneDiacritic("a")
	assert.Equal(t, "a", s)
	assert.Equal(t, NaT, tone)
}

func TestToneDiacritics(t *testing.T) {
	assert.True(t, HasToneDiacritic("á"))
	assert.False(t, HasToneDiacritic("ṳ"))
	assert.False(t, HasToneDiacritic("o͘"))
	assert.True(t, HasToneable("Tsh-a"))
	assert.False(t, HasToneable("tsh"))

	assert.True(t, NeedsToneDiacritic(T8))
	assert.False(t, NeedsToneDiacritic(T4))
	assert.False(t, NeedsToneDiacritic(NaT))
}

func TestKhin(t *testing.T) {
	s, ok := RemoveKhin("·a")
	assert.True(t, ok)
	assert.Equal(t, "a", s)

	s, ok = RemoveKhin("--a")
	assert.True(t, ok)
	assert.Equal(t, "a", s)

	s, ok = RemoveKhin("-a")
	assert.False(t, ok)
	assert.Equal(t, "-a", s)

	assert.Equal(t, "--a·b", ReplaceKhinDot("·a·b"))
	assert.Equal(t, "ab", ReplaceKhinDot("ab"))
}

func TestGlyphs(t *testing.T) {
	assert.Equal(t, GlyphAlnum, StartGlyph("ā"))
	assert.Equal(t, GlyphAlnum, EndGlyph("o͘"))
	assert.Equal(t, GlyphAlnum, EndGlyph("aⁿ"))
	assert.Equal(t, GlyphHanji, EndGlyph("我"))
	assert.Equal(t, GlyphKhin, StartGlyph("·a"))
	assert.Equal(t, GlyphAsciiPunct, EndGlyph("a,"))
	assert.Equal(t, GlyphOther, StartGlyph(""))
	assert.True(t, IsLomaji("góa"))
	assert.False(t, IsLomaji("我"))
}

func TestCodepointHelpers(t *testing.T) {
	assert.Equal(t, 3, Len("góa"))
	assert.Equal(t, "gó", Prefix("góa", 2))
	assert.Equal(t, "a", Suffix("góa", 2))
	assert.Equal(t, "ó", Slice("góa", 1, 2))
	assert.Equal(t, "gxóa", Insert("góa", 1, "x"))
	assert.Equal(t, "ga", SafeErase("góa", 1, 1))
	assert.Equal(t, "góa", SafeErase("góa", 5, 1))
	assert.Equal(t, "lÂng", ASCIILower("LÂng"))
}
