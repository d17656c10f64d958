// Package dictionary builds the in-memory lexicon indices used for
// segmentation and candidate lookup.
package dictionary

import (
	"fmt"
	"sync"

	"khiin/internal/buffer"
	"khiin/internal/lomaji"
	"khiin/internal/logging"
	"khiin/internal/store"
	"khiin/internal/syllable"
)

// autocompleteLimit is the number of completions returned per query.
const autocompleteLimit = 10

// Lexicon is the persistent store the dictionary is loaded from and writes
// n-gram statistics to. *store.Store implements it.
type Lexicon interface {
	AllWordsByFreq() ([]store.InputByFreq, error)
	ConversionsByInputID(inputID int) ([]store.TaiToken, error)
	LoadSyllables() ([]string, error)
	LoadPunctuation() ([]store.Punctuation, error)
	AddNGramsData(lgram string, tokens []store.TaiToken) error
	RecordUnigrams(grams []string) error
	RecordBigrams(grams []store.Bigram) error
}

// Dictionary indexes the typed key sequences of every lexicon word. The
// indices are built once by New and not modified afterwards; the token
// cache fills lazily.
type Dictionary struct {
	lex    Lexicon
	parser *syllable.Parser
	user   *UserDictionary
	log    *logging.Logger

	wordTrie     *Trie
	syllableTrie *Trie
	splitter     *Splitter
	punctuation  []store.Punctuation

	inputIDs   map[string][]int
	userInputs []string

	mu         sync.Mutex
	tokenCache map[int][]store.TaiToken
}

// New loads the lexicon and builds the indices. Key sequences depend on
// the parser's key configuration, so a new dictionary is needed when it
// changes.
func New(lex Lexicon, parser *syllable.Parser) (*Dictionary, error) {
	d := &Dictionary{
		lex:        lex,
		parser:     parser,
		log:        logging.Default().WithComponent("dictionary"),
		inputIDs:   make(map[string][]int),
		tokenCache: make(map[int][]store.TaiToken),
	}

	words, err := lex.AllWordsByFreq()
	if err != nil {
		return nil, fmt.Errorf("load words: %w", err)
	}
	d.loadInputSequences(words)

	d.wordTrie = NewTrie(d.userInputs...)
	d.splitter = NewSplitter(d.userInputs)

	syllables, err := lex.LoadSyllables()
	if err != nil {
		return nil, fmt.Errorf("load syllables: %w", err)
	}
	d.syllableTrie = NewTrie()
	for _, syl := range syllables {
		for _, seq := range parser.AsInputSequences(syl) {
			d.syllableTrie.Insert(seq.Input)
		}
	}

	if d.punctuation, err = lex.LoadPunctuation(); err != nil {
		return nil, fmt.Errorf("load punctuation: %w", err)
	}

	d.log.Debug("dictionary loaded",
		"words", len(words),
		"inputs", len(d.userInputs),
		"syllables", len(syllables),
		"punctuation", len(d.punctuation))
	return d, nil
}

func (d *Dictionary) loadInputSequences(words []store.InputByFreq) {
	for _, row := range words {
		for _, seq := range d.parser.AsInputSequences(row.Input) {
			ids, seen := d.inputIDs[seq.Input]
			if !seen {
				d.userInputs = append(d.userInputs, seq.Input)
			}
			if !containsInt(ids, row.ID) {
				d.inputIDs[seq.Input] = append(ids, row.ID)
			}
		}
	}
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// Parser returns the syllable parser the indices were built with.
func (d *Dictionary) Parser() *syllable.Parser { return d.parser }

// SetUserDictionary attaches a user dictionary. nil detaches it.
func (d *Dictionary) SetUserDictionary(u *UserDictionary) {
	d.mu.Lock()
	d.user = u
	d.mu.Unlock()
}

// User returns the attached user dictionary, which may be nil.
func (d *Dictionary) User() *UserDictionary {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.user
}

// InputCount returns the number of distinct typed key sequences indexed.
func (d *Dictionary) InputCount() int { return len(d.userInputs) }

// AllInputsByFreq returns every indexed key sequence, most frequent word
// first. The slice must not be modified.
func (d *Dictionary) AllInputsByFreq() []string { return d.userInputs }

// Splitter returns the word splitter.
func (d *Dictionary) Splitter() *Splitter { return d.splitter }

// WordTrie returns the trie of word key sequences.
func (d *Dictionary) WordTrie() *Trie { return d.wordTrie }

// StartsWithWord reports whether some word is a prefix of query.
func (d *Dictionary) StartsWithWord(query string) bool {
	return d.wordTrie.StartsWithKey(query)
}

// StartsWithSyllable reports whether some syllable is a prefix of query.
func (d *Dictionary) StartsWithSyllable(query string) bool {
	return d.syllableTrie.StartsWithKey(query)
}

// IsSyllablePrefix reports whether query could be the start of a syllable.
// A trailing tone key is ignored.
func (d *Dictionary) IsSyllablePrefix(query string) bool {
	if query == "" {
		return false
	}

	tone := d.parser.Keys().CheckToneKey(query[len(query)-1])
	if lomaji.NeedsToneDiacritic(tone) {
		query = query[:len(query)-1]
	}
	return d.syllableTrie.HasKeyOrPrefix(query)
}

func (d *Dictionary) IsWordPrefix(query string) bool {
	return d.wordTrie.HasKeyOrPrefix(query)
}

func (d *Dictionary) IsWord(query string) bool {
	return d.wordTrie.HasKey(query)
}

// WordSearch returns the conversions of the exact key sequence query.
func (d *Dictionary) WordSearch(query string) []store.TaiToken {
	return d.tokensFor(nil, query)
}

// Autocomplete returns conversions of the shortest words starting with
// query.
func (d *Dictionary) Autocomplete(query string) []store.TaiToken {
	var out []store.TaiToken
	for _, w := range d.wordTrie.Autocomplete(query, autocompleteLimit) {
		out = d.tokensFor(out, w)
	}
	return out
}

// AllWordsFromStart returns conversions of every word that is a prefix of
// query, shortest first.
func (d *Dictionary) AllWordsFromStart(query string) []store.TaiToken {
	var out []store.TaiToken
	for _, w := range d.wordTrie.FindKeys(query) {
		out = d.tokensFor(out, w)
	}
	return out
}

// Segment returns up to limit of the cheapest ways to split query into
// words. Matching is case-insensitive; the pieces keep the case of query.
func (d *Dictionary) Segment(query string, limit int) [][]string {
	splits := d.wordTrie.Multisplit(lomaji.ASCIILower(query), d.splitter.Costs(), limit)

	out := make([][]string, 0, len(splits))
	for _, ends := range splits {
		pieces := make([]string, 0, len(ends))
		start := 0
		for _, end := range ends {
			pieces = append(pieces, query[start:end])
			start = end
		}
		out = append(out, pieces)
	}
	return out
}

// SearchPunctuation returns the punctuation entries typed as query.
func (d *Dictionary) SearchPunctuation(query string) []store.Punctuation {
	var out []store.Punctuation
	for _, p := range d.punctuation {
		if p.Input == query {
			out = append(out, p)
		}
	}
	return out
}

// IsPunctuationPrefix reports whether some punctuation entry starts with
// query.
func (d *Dictionary) IsPunctuationPrefix(query string) bool {
	for _, p := range d.punctuation {
		if len(p.Input) >= len(query) && p.Input[:len(query)] == query {
			return true
		}
	}
	return false
}

// tokensFor appends the conversions of key sequence input to out, with
// InputSize set to its length.
func (d *Dictionary) tokensFor(out []store.TaiToken, input string) []store.TaiToken {
	ids, ok := d.inputIDs[input]
	if !ok {
		return out
	}

	size := lomaji.Len(input)
	for _, id := range ids {
		for _, tok := range d.cachedTokens(id) {
			tok.InputSize = size
			out = append(out, tok)
		}
	}
	return out
}

func (d *Dictionary) cachedTokens(inputID int) []store.TaiToken {
	d.mu.Lock()
	defer d.mu.Unlock()

	if toks, ok := d.tokenCache[inputID]; ok {
		return toks
	}

	toks, err := d.lex.ConversionsByInputID(inputID)
	if err != nil {
		d.log.Warn("load conversions failed", "input_id", inputID, "error", err)
		return nil
	}
	d.tokenCache[inputID] = toks
	return toks
}

// AddNGramsData fills the n-gram counts of tokens. A failed lookup leaves
// the counts at zero.
func (d *Dictionary) AddNGramsData(lgram string, tokens []store.TaiToken) {
	if err := d.lex.AddNGramsData(lgram, tokens); err != nil {
		d.log.Warn("load n-gram counts failed", "error", err)
	}
}

// RecordNGrams counts the converted dictionary segments of b as unigrams,
// and adjacent pairs of them as bigrams. Virtual spaces between segments
// do not break a pair.
func (d *Dictionary) RecordNGrams(b *buffer.Buffer) error {
	if b.Empty() {
		return nil
	}

	var (
		unigrams []string
		bigrams  []store.Bigram
		prev     string
		havePrev bool
	)
	for _, e := range b.Elements() {
		if e.IsVirtualSpace() {
			continue
		}
		if !e.IsTaiText() || !e.IsConverted() {
			havePrev = false
			continue
		}

		gram := e.Converted()
		unigrams = append(unigrams, gram)
		if havePrev {
			bigrams = append(bigrams, store.Bigram{Left: prev, Right: gram})
		}
		prev, havePrev = gram, true
	}

	if err := d.lex.RecordUnigrams(unigrams); err != nil {
		return fmt.Errorf("record unigrams: %w", err)
	}
	if err := d.lex.RecordBigrams(bigrams); err != nil {
		return fmt.Errorf("record bigrams: %w", err)
	}
	return nil
}
