package syllable

import (
	"strings"

	"khiin/internal/keyconfig"
	"khiin/internal/lomaji"
	"khiin/internal/store"
)

// InputSequence is one way of typing a dictionary spelling.
type InputSequence struct {
	Input string
	// FuzzyMonosyllable marks the toneless form of a toned single
	// syllable.
	FuzzyMonosyllable bool
}

// Parser turns typed keys and dictionary spellings into syllables.
type Parser struct {
	keys       *keyconfig.KeyConfig
	dottedKhin bool
}

// NewParser returns a parser for the given key layout.
func NewParser(keys *keyconfig.KeyConfig, dottedKhin bool) *Parser {
	return &Parser{keys: keys, dottedKhin: dottedKhin}
}

// Keys returns the key layout of the parser.
func (p *Parser) Keys() *keyconfig.KeyConfig {
	return p.keys
}

// DottedKhin reports whether khin is displayed as a middle dot.
func (p *Parser) DottedKhin() bool {
	return p.dottedKhin
}

// ParseRaw parses typed keys.
func (p *Parser) ParseRaw(input string) Syllable {
	s := newSyllable(p.keys, p.dottedKhin)
	s.SetRawInput(input)
	return s
}

// ParseComposed parses a displayed spelling.
func (p *Parser) ParseComposed(input string) Syllable {
	s := newSyllable(p.keys, p.dottedKhin)
	s.SetComposed(input)
	return s
}

// FromRawSyllable wraps one typed syllable without a candidate.
func (p *Parser) FromRawSyllable(raw string) TaiText {
	var t TaiText
	t.AddSyllable(p.ParseRaw(raw))
	return t
}

// FromMatching aligns typed keys against the spelling of a dictionary
// token. The caller sets the candidate.
func (p *Parser) FromMatching(input string, match store.TaiToken) TaiText {
	return p.AsTaiText(input, match.Input)
}

// ToFuzzy returns the key sequences that type one displayed syllable.
// A toned syllable gives its digit form; a toneless one gives itself plus
// its implied default tone (4 after p, t, k or h, otherwise 1).
func (p *Parser) ToFuzzy(input string) (out []string, hasTone bool) {
	syl, tone := lomaji.RemoveToneDiacritic(lomaji.Decompose(input))
	syl = strings.ToLower(p.keys.Deconvert(syl))

	if tone == lomaji.NaT {
		out = append(out, syl)
		if syl == "" {
			return out, false
		}
		switch syl[len(syl)-1] {
		case 'p', 't', 'k', 'h':
			out = append(out, syl+"4")
		default:
			out = append(out, syl+"1")
		}
		return out, false
	}

	out = append(out, syl+string(rune(p.keys.ToneKey(tone))))
	return out, true
}

func isSyllableSeparator(r rune) bool {
	return r == '-' || r == ' '
}

// AsInputSequences expands a dictionary spelling into every key sequence
// that could type it. Separators are not typed.
func (p *Parser) AsInputSequences(word string) []InputSequence {
	word = strings.ReplaceAll(word, lomaji.KhinDotStr, "")

	if strings.IndexFunc(word, isSyllableSeparator) < 0 {
		fuzzy, hasTone := p.ToFuzzy(word)
		out := make([]InputSequence, 0, len(fuzzy)+1)
		for _, f := range fuzzy {
			out = append(out, InputSequence{Input: f})
		}
		if hasTone {
			toneless := fuzzy[0][:len(fuzzy[0])-1]
			out = append(out, InputSequence{Input: toneless, FuzzyMonosyllable: true})
		}
		return out
	}

	var chunks [][]string
	for _, part := range strings.FieldsFunc(word, isSyllableSeparator) {
		fuzzy, hasTone := p.ToFuzzy(part)
		if hasTone {
			fuzzy = append(fuzzy, fuzzy[0][:len(fuzzy[0])-1])
		}
		chunks = append(chunks, fuzzy)
	}

	merged := odometerMerge(chunks)
	out := make([]InputSequence, 0, len(merged))
	for _, m := range merged {
		out = append(out, InputSequence{Input: m})
	}
	return out
}

// odometerMerge concatenates one choice from each set, for every
// combination, varying the last set fastest.
func odometerMerge(sets [][]string) []string {
	if len(sets) == 0 {
		return nil
	}
	for _, s := range sets {
		if len(s) == 0 {
			return nil
		}
	}

	idx := make([]int, len(sets))
	var out []string
	for {
		var b strings.Builder
		for i, set := range sets {
			b.WriteString(set[idx[i]])
		}
		out = append(out, b.String())

		i := len(sets) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(sets[i]) {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			return out
		}
	}
}

// AsTaiText aligns raw keys to target, a dictionary spelling, one
// syllable at a time. Virtual spaces separate the syllables while raw
// keys remain.
func (p *Parser) AsTaiText(raw, target string) TaiText {
	var t TaiText
	targets := strings.FieldsFunc(target, isSyllableSeparator)
	if len(targets) == 0 {
		targets = []string{target}
	}

	rest := raw
	for i, tgt := range targets {
		var syl Syllable
		syl, rest = p.alignRawToComposed(p.ParseComposed(tgt), rest)
		t.AddSyllable(syl)

		if i == len(targets)-1 || rest == "" {
			break
		}
		t.AddVirtualSpace()
	}

	// Keys past the spelling stay with the last syllable so the raw text
	// is never lost.
	if rest != "" {
		last := len(t.chunks) - 1
		t.chunks[last].Syllable = p.ParseRaw(t.chunks[last].Syllable.RawInput() + rest)
	}
	return t
}

// alignRawToComposed consumes the keys of raw that type target and returns
// them parsed, with the unconsumed remainder.
func (p *Parser) alignRawToComposed(target Syllable, raw string) (Syllable, string) {
	tr := target.RawInput()
	r, i := 0, 0

	// Typed separators belong to the syllable they precede; a double
	// hyphen makes it khin.
	for r < len(raw) && (raw[r] == ' ' || p.keys.IsHyphen(raw[r])) && (i >= len(tr) || raw[r] != tr[i]) {
		r++
	}
	start := r

	for r < len(raw) && i < len(tr) && asciiFold(raw[r]) == asciiFold(tr[i]) {
		r++
		i++
	}

	if r < len(raw) && target.Tone() != lomaji.NaT {
		if r == start || p.keys.CheckToneKey(raw[r-1]) != target.Tone() {
			if p.keys.CheckToneKey(raw[r]) == target.Tone() {
				r++
			}
		}
	} else if r < len(raw) {
		switch p.keys.CheckToneKey(raw[r]) {
		case lomaji.T1, lomaji.T4:
			r++
		}
	}

	return p.ParseRaw(raw[:r]), raw[r:]
}

func asciiFold(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
