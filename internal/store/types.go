// Package store provides the SQLite lexicon and n-gram storage for khiin.
package store

// InputByFreq is one dictionary spelling and its frequency rank id.
type InputByFreq struct {
	ID    int
	Input string
}

// TaiToken is one conversion of a dictionary spelling, optionally
// annotated with the n-gram counts of its output.
type TaiToken struct {
	ID         int
	InputID    int
	Input      string
	Output     string
	Weight     int
	Category   int
	Annotation string

	// Custom is set for user dictionary entries.
	Custom bool

	InputSize    int
	BigramCount  int
	UnigramCount int
}

// Punctuation maps a typed symbol to one of its outputs.
type Punctuation struct {
	ID         int
	Input      string
	Output     string
	Annotation string
}

// Emoji is one entry of the emoji table.
type Emoji struct {
	ID        int
	Category  int
	Value     string
	ShortName string
}

// Gram is an n-gram and its recorded count.
type Gram struct {
	Value string
	Count int
}

// Bigram is a pair of adjacent outputs.
type Bigram struct {
	Left  string
	Right string
}

// Stats summarizes the contents of a store.
type Stats struct {
	Words       int64
	Conversions int64
	Syllables   int64
	Symbols     int64
	Emoji       int64
	Unigrams    int64
	Bigrams     int64
}
