// Package candidates builds ranked conversion candidates for raw input.
//
// A candidate is a buffer.Buffer. MultiMatch offers alternatives for the
// first segment of the input only; the continuous matchers convert the
// whole input greedily, threading the best match of each segment into the
// ranking of the next as its left context.
package candidates

import (
	"sort"
	"strings"

	"khiin/internal/buffer"
	"khiin/internal/dictionary"
	"khiin/internal/keyconfig"
	"khiin/internal/lomaji"
	"khiin/internal/segmenter"
	"khiin/internal/store"
	"khiin/internal/syllable"
)

// continuousCandidates is the number of segmentations offered for a
// splittable run at the start of the input.
const continuousCandidates = 5

// Finder looks up candidates in a dictionary.
type Finder struct {
	dict   *dictionary.Dictionary
	seg    *segmenter.Segmenter
	parser *syllable.Parser
	keys   *keyconfig.KeyConfig
}

// New returns a finder over dict.
func New(dict *dictionary.Dictionary, seg *segmenter.Segmenter) *Finder {
	return &Finder{
		dict:   dict,
		seg:    seg,
		parser: dict.Parser(),
		keys:   dict.Parser().Keys(),
	}
}

// Segmenter returns the segmenter used by f.
func (f *Finder) Segmenter() *segmenter.Segmenter { return f.seg }

// Less orders tokens for display: longer input first, then bigram count
// with the left context, unigram count, static weight, and finally the
// lower input id.
func Less(a, b store.TaiToken) bool {
	if a.InputSize != b.InputSize {
		return a.InputSize > b.InputSize
	}
	if a.BigramCount != b.BigramCount {
		return a.BigramCount > b.BigramCount
	}
	if a.UnigramCount != b.UnigramCount {
		return a.UnigramCount > b.UnigramCount
	}
	if a.Weight != b.Weight {
		return a.Weight > b.Weight
	}
	return a.InputID < b.InputID
}

// higherFrequency is the default order of conversions of one input.
func higherFrequency(a, b store.TaiToken) bool {
	if a.InputID == b.InputID {
		return a.Weight > b.Weight
	}
	return a.InputID < b.InputID
}

func lgramOutput(lgram *store.TaiToken) string {
	if lgram == nil {
		return ""
	}
	return lgram.Output
}

// BestMatchNgram returns the best of options after the left context: the
// highest bigram count wins, then the highest unigram count, then the
// default order. It returns false if options is empty.
func (f *Finder) BestMatchNgram(lgram *store.TaiToken, options []store.TaiToken) (store.TaiToken, bool) {
	if len(options) == 0 {
		return store.TaiToken{}, false
	}

	f.dict.AddNGramsData(lgramOutput(lgram), options)
	sort.SliceStable(options, func(i, j int) bool {
		a, b := options[i], options[j]
		if a.BigramCount != b.BigramCount {
			return a.BigramCount > b.BigramCount
		}
		if a.UnigramCount != b.UnigramCount {
			return a.UnigramCount > b.UnigramCount
		}
		return higherFrequency(a, b)
	})
	return options[0], true
}

func (f *Finder) bestAutocomplete(lgram *store.TaiToken, query string) (store.TaiToken, bool) {
	return f.BestMatchNgram(lgram, f.dict.Autocomplete(lomaji.ASCIILower(query)))
}

func (f *Finder) bestSingleToken(lgram *store.TaiToken, query string) (store.TaiToken, bool) {
	return f.BestMatchNgram(lgram, f.dict.WordSearch(lomaji.ASCIILower(query)))
}

// invalidSplitSizes marks every input size that would leave a tone key
// at the start of the rest of query.
func (f *Finder) invalidSplitSizes(query string) map[int]bool {
	out := make(map[int]bool)
	for i := 1; i < len(query); i++ {
		if f.keys.IsToneKey(query[i]) {
			out[i] = true
		}
	}
	return out
}

// rank drops repeated outputs and tokens ending before a tone key, then
// sorts the rest.
func (f *Finder) rank(lgram *store.TaiToken, query string, options []store.TaiToken) []store.TaiToken {
	invalid := f.invalidSplitSizes(query)
	seen := make(map[string]bool, len(options))

	out := options[:0]
	for _, tok := range options {
		if invalid[tok.InputSize] || seen[tok.Output] {
			continue
		}
		seen[tok.Output] = true
		out = append(out, tok)
	}

	f.dict.AddNGramsData(lgramOutput(lgram), out)
	sort.SliceStable(out, func(i, j int) bool { return Less(out[i], out[j]) })
	return out
}

func (f *Finder) tokensToBuffers(options []store.TaiToken, query string) []*buffer.Buffer {
	out := make([]*buffer.Buffer, 0, len(options))
	for i := range options {
		tok := options[i]
		input := lomaji.Prefix(query, tok.InputSize)
		out = append(out, buffer.New(buffer.Build(f.parser, input, &tok, true, true)))
	}
	return out
}

func (f *Finder) allWordsFromStart(lgram *store.TaiToken, query string) []*buffer.Buffer {
	options := f.dict.AllWordsFromStart(lomaji.ASCIILower(query))
	return f.tokensToBuffers(f.rank(lgram, query, options), query)
}

// wordsToBuffer converts each word to its best match, each word giving
// the left context of the next.
func (f *Finder) wordsToBuffer(words []string) *buffer.Buffer {
	out := buffer.New()
	var prev *store.TaiToken
	for _, w := range words {
		var tok *store.TaiToken
		if best, ok := f.bestSingleToken(prev, w); ok {
			tok = &best
		}
		out.Append(buffer.Build(f.parser, w, tok, true, true))
		prev = tok
	}
	return out
}

func (f *Finder) onePunctuation(query string) store.Punctuation {
	if p := f.dict.SearchPunctuation(query); len(p) > 0 {
		return p[0]
	}
	return store.Punctuation{Input: query, Output: query}
}

func (f *Finder) allPunctuation(query string) []*buffer.Buffer {
	var out []*buffer.Buffer
	for _, p := range f.dict.SearchPunctuation(query) {
		e := buffer.Punct(p)
		e.SetConverted(true)
		out = append(out, buffer.New(e))
	}
	return out
}

func (f *Finder) oneSplittable(query string) *buffer.Buffer {
	segs := f.dict.Segment(query, 1)
	if len(segs) == 0 {
		return buffer.New()
	}
	return f.wordsToBuffer(segs[0])
}

func (f *Finder) allSplittables(lgram *store.TaiToken, query string) []*buffer.Buffer {
	seen := make(map[string]bool)
	var out []*buffer.Buffer
	add := func(b *buffer.Buffer) {
		if text := b.Text(); !seen[text] {
			seen[text] = true
			out = append(out, b)
		}
	}

	for _, words := range f.dict.Segment(query, continuousCandidates) {
		add(f.wordsToBuffer(words))
	}
	for _, b := range f.MultiMatch(lgram, query) {
		add(b)
	}
	return out
}

func (f *Finder) oneUserItem(lgram *store.TaiToken, query string) *buffer.Buffer {
	options := f.dict.User().SearchExact(query)
	if len(options) > 0 {
		options = f.rank(lgram, query, options)
		return f.tokensToBuffers(options[:1], query)[0]
	}
	return buffer.New(buffer.Text(query))
}

func (f *Finder) allUserItems(lgram *store.TaiToken, query string) []*buffer.Buffer {
	options := f.dict.User().Search(query)
	if len(options) == 0 {
		return nil
	}
	return f.tokensToBuffers(f.rank(lgram, query, options), query)
}

func (f *Finder) wordPrefix(raw string) buffer.Element {
	if best, ok := f.bestAutocomplete(nil, raw); ok {
		return buffer.Build(f.parser, raw, &best, false, false)
	}
	return buffer.Build(f.parser, raw, nil, false, false)
}

func hyphens(n int) buffer.Element {
	return buffer.Text(strings.Repeat("-", n))
}

// MultiMatch returns every candidate for the longest classifiable segment
// at the start of query, best first.
func (f *Finder) MultiMatch(lgram *store.TaiToken, query string) []*buffer.Buffer {
	if query == "" {
		return nil
	}

	seg := f.seg.LongestSegmentFromStart(query)
	switch seg.Type {
	case segmenter.Punct:
		return f.allPunctuation(query)
	case segmenter.Splittable:
		return f.allWordsFromStart(lgram, query)
	case segmenter.UserItem:
		return f.allUserItems(lgram, query)
	case segmenter.SyllablePrefix:
		return []*buffer.Buffer{buffer.New(buffer.Build(f.parser, query, nil, false, true))}
	default:
		e := buffer.Text(query)
		e.SetConverted(true)
		return []*buffer.Buffer{buffer.New(e)}
	}
}

// ContinuousSingleMatch converts all of query into its single best
// candidate.
func (f *Finder) ContinuousSingleMatch(lgram *store.TaiToken, query string) *buffer.Buffer {
	out := buffer.New()

	for _, seg := range f.seg.SegmentText(query) {
		raw := seg.Text(query)
		left := lgram
		if !out.Empty() {
			left = out.Back().Candidate()
		}

		switch seg.Type {
		case segmenter.Splittable:
			out.AppendBuffer(f.oneSplittable(raw))
		case segmenter.Punct:
			out.Append(buffer.Punct(f.onePunctuation(raw)))
		case segmenter.UserItem:
			out.AppendBuffer(f.oneUserItem(left, raw))
		case segmenter.SyllablePrefix:
			out.Append(buffer.Build(f.parser, raw, nil, false, false))
		case segmenter.WordPrefix:
			out.Append(f.wordPrefix(raw))
		case segmenter.Hyphens:
			out.Append(hyphens(seg.Size))
		default:
			out.Append(buffer.Text(raw))
		}
	}
	return out
}

// ContinuousMultiMatch converts all of query. If the first segment has
// alternatives, each one starts a candidate; the rest of the input is
// appended to the first candidate only, which is marked converted.
func (f *Finder) ContinuousMultiMatch(lgram *store.TaiToken, query string) []*buffer.Buffer {
	cands := []*buffer.Buffer{buffer.New()}

	for i, seg := range f.seg.SegmentText(query) {
		raw := seg.Text(query)
		left := lgram
		if !cands[0].Empty() {
			left = cands[0].Back().Candidate()
		}

		var alts []*buffer.Buffer
		switch seg.Type {
		case segmenter.Splittable:
			if i == 0 {
				alts = f.allSplittables(left, raw)
			}
			if len(alts) == 0 {
				cands[0].AppendBuffer(f.oneSplittable(raw))
			}
		case segmenter.Punct:
			if i == 0 {
				alts = f.allPunctuation(raw)
			}
			if len(alts) == 0 {
				cands[0].Append(buffer.Punct(f.onePunctuation(raw)))
			}
		case segmenter.UserItem:
			if i == 0 {
				alts = f.allUserItems(left, raw)
			}
			if len(alts) == 0 {
				cands[0].AppendBuffer(f.oneUserItem(left, raw))
			}
		case segmenter.SyllablePrefix:
			cands[0].Append(buffer.Build(f.parser, raw, nil, false, false))
		case segmenter.WordPrefix:
			cands[0].Append(f.wordPrefix(raw))
		case segmenter.Hyphens:
			cands[0].Append(hyphens(seg.Size))
		default:
			cands[0].Append(buffer.Text(raw))
		}

		if len(alts) > 0 {
			cands = alts
		}
	}

	cands[0].SetConverted(true)
	return cands
}

// HasExactMatch reports whether query splits entirely into words.
func (f *Finder) HasExactMatch(query string) bool {
	return f.dict.Splitter().CanSplit(lomaji.ASCIILower(query))
}
