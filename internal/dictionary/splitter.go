package dictionary

import (
	"math"
	"strconv"
	"strings"
)

const unknownWordCost = 9e9

// Splitter segments typed keys into dictionary inputs. Words ranked
// higher by frequency are cheaper.
type Splitter struct {
	words       map[string]struct{}
	costs       map[string]float64
	maxWordSize int
}

// NewSplitter builds a splitter from inputs ordered by frequency, most
// frequent first.
func NewSplitter(wordsByFreq []string) *Splitter {
	s := &Splitter{
		words: make(map[string]struct{}, len(wordsByFreq)),
		costs: make(map[string]float64, len(wordsByFreq)),
	}

	logSize := math.Log(float64(len(wordsByFreq)))
	for i, w := range wordsByFreq {
		s.words[w] = struct{}{}
		if _, ok := s.costs[w]; !ok {
			s.costs[w] = math.Log(float64(i+1) * logSize)
		}
		s.maxWordSize = max(s.maxWordSize, len(w))
	}
	return s
}

// Costs returns the cost of each known input. It must not be modified.
func (s *Splitter) Costs() map[string]float64 {
	return s.costs
}

// checkSplittable walks input and records every index at which a word
// ends directly after an earlier split. Split points listed in invalid
// are skipped.
func (s *Splitter) checkSplittable(input string, invalid map[int]bool) (splitsAt []bool, splitIndices []int) {
	splitsAt = make([]bool, len(input)+1)
	splitIndices = []int{-1}

	for i := 0; i < len(input); i++ {
		if invalid[i] {
			continue
		}
		for j := len(splitIndices) - 1; j >= 0; j-- {
			if _, ok := s.words[input[splitIndices[j]+1:i+1]]; ok {
				splitsAt[i] = true
				splitIndices = append(splitIndices, i)
				break
			}
		}
	}
	return splitsAt, splitIndices
}

// MaxSplitSize returns the length of the longest prefix of input that
// splits into words without ending a word at an invalid index.
func (s *Splitter) MaxSplitSize(input string, invalid map[int]bool) int {
	if input == "" {
		return 0
	}
	_, indices := s.checkSplittable(input, invalid)
	return indices[len(indices)-1] + 1
}

// CanSplit reports whether all of input splits into words.
func (s *Splitter) CanSplit(input string) bool {
	if input == "" {
		return true
	}
	splitsAt, _ := s.checkSplittable(input, nil)
	return splitsAt[len(input)-1]
}

// Split returns the cheapest segmentation of input. Characters that are
// not part of any word become single-byte pieces; adjacent numeric pieces
// are merged.
func (s *Splitter) Split(input string) []string {
	if input == "" {
		return nil
	}

	type step struct {
		cost float64
		prev int
	}
	steps := make([]step, 0, len(input)+1)
	steps = append(steps, step{0, -1})

	for i := 1; i <= len(input); i++ {
		minCost := steps[i-1].cost + unknownWordCost
		minIdx := i - 1

		for j := max(0, i-s.maxWordSize); j < i; j++ {
			cost, ok := s.costs[input[j:i]]
			if !ok {
				continue
			}
			if c := steps[j].cost + cost; c <= minCost {
				minCost = c
				minIdx = j
			}
		}
		steps = append(steps, step{minCost, minIdx})
	}

	var out []string
	for n := len(input); n > 0; {
		prev := steps[n].prev
		piece := input[prev:n]
		if len(out) > 0 && isNumber(piece+out[0]) {
			out[0] = piece + out[0]
		} else {
			out = append([]string{piece}, out...)
		}
		n = prev
	}
	return out
}

func isNumber(s string) bool {
	if strings.TrimLeft(s, "0123456789.+-eE") != "" {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
