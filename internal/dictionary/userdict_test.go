package dictionary

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleUserDict = `# personal words
ioong 用
  ioong2	用功 # trailing comment
hello   hello world
noseparator
# bad input
gó 我
bad` + "\xff" + ` x

khiin	起引
`

func TestParseUserDictionary(t *testing.T) {
	entries, err := ParseUserDictionary(strings.NewReader(sampleUserDict))
	require.NoError(t, err)

	assert.Equal(t, []UserEntry{
		{Input: "ioong", Output: "用"},
		{Input: "ioong2", Output: "用功"},
		{Input: "hello", Output: "hello world"},
		{Input: "khiin", Output: "起引"},
	}, entries)
}

func TestUserDictionarySearch(t *testing.T) {
	u := NewUserDictionary([]UserEntry{
		{Input: "ioong", Output: "用"},
		{Input: "ioong", Output: "傭"},
		{Input: "ioong2", Output: "用功"},
	})
	assert.Equal(t, 3, u.Len())

	toks := u.Search("ioong2x")
	require.Len(t, toks, 3)
	assert.Equal(t, "用", toks[0].Output)
	assert.Equal(t, "用功", toks[2].Output)
	for _, tok := range toks {
		assert.Equal(t, 0, tok.ID)
		assert.True(t, tok.Custom)
		assert.Equal(t, userTokenWeight, tok.Weight)
	}
	assert.Equal(t, 5, toks[0].InputSize)
	assert.Equal(t, 6, toks[2].InputSize)

	assert.Len(t, u.SearchExact("ioong"), 2)
	assert.Empty(t, u.SearchExact("ioon"))
	assert.True(t, u.HasExact("ioong2"))
	assert.False(t, u.HasExact("ioon"))

	assert.Equal(t, 6, u.StartsWithWord("ioong2lang"))
	assert.Equal(t, 5, u.StartsWithWord("ioongx"))
	assert.Equal(t, 0, u.StartsWithWord("lang"))
}

func TestNilUserDictionary(t *testing.T) {
	var u *UserDictionary
	assert.Equal(t, 0, u.Len())
	assert.Empty(t, u.Search("a"))
	assert.Empty(t, u.SearchExact("a"))
	assert.False(t, u.HasExact("a"))
	assert.Equal(t, 0, u.StartsWithWord("ab"))
	assert.Equal(t, "", u.Path())
}

func TestUserDictionaryReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user.txt")

	u, err := LoadUserDictionary(path)
	require.NoError(t, err)
	assert.Equal(t, 0, u.Len())
	assert.Equal(t, path, u.Path())

	require.NoError(t, os.WriteFile(path, []byte("ioong 用\n"), 0600))
	require.NoError(t, u.Reload())
	assert.True(t, u.HasExact("ioong"))

	require.NoError(t, os.WriteFile(path, []byte("khiin 起引\n"), 0600))
	require.NoError(t, u.Reload())
	assert.False(t, u.HasExact("ioong"))
	assert.True(t, u.HasExact("khiin"))

	require.NoError(t, os.Remove(path))
	require.NoError(t, u.Reload())
	assert.Equal(t, 0, u.Len())
}
