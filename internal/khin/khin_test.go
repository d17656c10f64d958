package khin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"khiin/internal/buffer"
	"khiin/internal/keyconfig"
	"khiin/internal/lomaji"
	"khiin/internal/syllable"
)

func syl(p *syllable.Parser, raw string) buffer.Element {
	return buffer.Build(p, raw, nil, false, false)
}

func TestApplyHyphensBeforeSyllable(t *testing.T) {
	p := syllable.NewParser(keyconfig.New(), true)
	b := buffer.New(buffer.Text("--"), syl(p, "a"))

	New(p, false).Apply(b)

	require.Equal(t, 1, b.Len())
	assert.Equal(t, "·a", b.At(0).Composed())
	assert.Equal(t, "--a", b.At(0).Raw())
	assert.Equal(t, lomaji.KhinStart, b.At(0).TaiText().Syllables()[0].KhinPos())
}

func TestApplyTrailingHyphens(t *testing.T) {
	p := syllable.NewParser(keyconfig.New(), true)

	b := buffer.New(buffer.Text("--"))
	New(p, false).Apply(b)
	require.Equal(t, 1, b.Len())
	assert.Equal(t, buffer.KindTai, b.At(0).Kind())
	assert.Equal(t, "--", b.At(0).Raw())

	b = buffer.New(syl(p, "a"), buffer.Text("---"))
	New(p, false).Apply(b)
	require.Equal(t, 3, b.Len())
	assert.Equal(t, "a", b.At(0).Raw())
	assert.Equal(t, "-", b.At(1).Raw())
	assert.Equal(t, buffer.KindTai, b.At(2).Kind())
	assert.Equal(t, "--", b.At(2).Raw())
}

func TestApplyLongHyphenRun(t *testing.T) {
	p := syllable.NewParser(keyconfig.New(), false)
	b := buffer.New(buffer.Text("---"), syl(p, "a"))

	New(p, false).Apply(b)

	require.Equal(t, 2, b.Len())
	assert.Equal(t, buffer.KindText, b.At(0).Kind())
	assert.Equal(t, "-", b.At(0).Raw())
	assert.Equal(t, "--a", b.At(1).Composed())
	assert.Equal(t, "---a", b.RawText())
}

func TestApplyAutokhin(t *testing.T) {
	p := syllable.NewParser(keyconfig.New(), true)

	b := buffer.New(buffer.Text("--"), syl(p, "a"), syl(p, "a"))
	New(p, true).Apply(b)
	require.Equal(t, 2, b.Len())
	assert.Equal(t, "·a", b.At(1).Composed())
	assert.Equal(t, "a", b.At(1).Raw())
	assert.Equal(t, lomaji.KhinVirtual, b.At(1).TaiText().Syllables()[0].KhinPos())

	b = buffer.New(buffer.Text("--"), syl(p, "a"), syl(p, "a"))
	New(p, false).Apply(b)
	assert.Equal(t, "a", b.At(1).Composed())
}

func TestApplyAutokhinStopsAtText(t *testing.T) {
	p := syllable.NewParser(keyconfig.New(), true)
	b := buffer.New(buffer.Text("--"), syl(p, "a"), buffer.Text("x"), syl(p, "a"))

	New(p, true).Apply(b)

	require.Equal(t, 3, b.Len())
	assert.Equal(t, "x", b.At(1).Raw())
	assert.Equal(t, "a", b.At(2).Composed())
}

func TestApplyHyphensBeforeText(t *testing.T) {
	p := syllable.NewParser(keyconfig.New(), false)
	b := buffer.New(buffer.Text("--"), buffer.Text("x"), syl(p, "a"))

	New(p, true).Apply(b)

	require.Equal(t, 2, b.Len())
	assert.Equal(t, "--x", b.At(0).Raw())
	assert.Equal(t, "a", b.At(1).Composed())
}

func TestApplyWithoutHyphens(t *testing.T) {
	p := syllable.NewParser(keyconfig.New(), false)
	b := buffer.New(syl(p, "a"), buffer.Text("-"), syl(p, "a"))

	New(p, true).Apply(b)

	require.Equal(t, 3, b.Len())
	assert.Equal(t, "a-a", b.RawText())
	assert.Equal(t, "a", b.At(2).Composed())
}
