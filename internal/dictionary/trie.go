package dictionary

import (
	"math/bits"
	"sort"
)

// maxSplitQuery is the longest query Multisplit considers, in bytes. Split
// positions are kept in a uint64 bitset.
const maxSplitQuery = 63

type trieNode struct {
	children map[byte]*trieNode
	end      bool
}

func (n *trieNode) child(c byte) *trieNode {
	if n.children == nil {
		return nil
	}
	return n.children[c]
}

func (n *trieNode) sortedKeys() []byte {
	keys := make([]byte, 0, len(n.children))
	for c := range n.children {
		keys = append(keys, c)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Trie is a byte-keyed prefix tree of dictionary inputs.
type Trie struct {
	root trieNode
}

// NewTrie returns a trie holding words.
func NewTrie(words ...string) *Trie {
	t := &Trie{}
	for _, w := range words {
		t.Insert(w)
	}
	return t
}

func (t *Trie) Insert(key string) {
	curr := &t.root
	for i := 0; i < len(key); i++ {
		next := curr.child(key[i])
		if next == nil {
			if curr.children == nil {
				curr.children = make(map[byte]*trieNode)
			}
			next = &trieNode{}
			curr.children[key[i]] = next
		}
		curr = next
	}
	curr.end = true
}

// Remove deletes key and prunes the branch that only led to it. It reports
// whether key was present.
func (t *Trie) Remove(key string) bool {
	if key == "" {
		return false
	}

	path := make([]*trieNode, 0, len(key)+1)
	curr := &t.root
	path = append(path, curr)
	for i := 0; i < len(key); i++ {
		curr = curr.child(key[i])
		if curr == nil {
			return false
		}
		path = append(path, curr)
	}
	if !curr.end {
		return false
	}
	curr.end = false

	for i := len(key); i > 0; i-- {
		node := path[i]
		if node.end || len(node.children) > 0 {
			break
		}
		delete(path[i-1].children, key[i-1])
	}
	return true
}

func (t *Trie) find(query string) *trieNode {
	curr := &t.root
	for i := 0; i < len(query); i++ {
		curr = curr.child(query[i])
		if curr == nil {
			return nil
		}
	}
	return curr
}

// HasKey reports whether query is a key.
func (t *Trie) HasKey(query string) bool {
	n := t.find(query)
	return n != nil && n.end
}

// HasKeyOrPrefix reports whether query is a key or the prefix of one.
func (t *Trie) HasKeyOrPrefix(query string) bool {
	n := t.find(query)
	return n != nil && (n.end || len(n.children) > 0)
}

// StartsWithKey reports whether some key is a prefix of query.
func (t *Trie) StartsWithKey(query string) bool {
	if query == "" {
		return false
	}

	curr := &t.root
	for i := 0; i < len(query); i++ {
		if curr.end {
			return true
		}
		curr = curr.child(query[i])
		if curr == nil {
			return false
		}
	}
	return curr.end
}

// LongestKeyOf returns the byte length of the longest key that is a proper
// prefix of query. A key equal to the whole query is not counted.
func (t *Trie) LongestKeyOf(query string) int {
	ret := 0
	curr := &t.root
	for i := 0; i < len(query); i++ {
		if curr.end {
			ret = i
		}
		curr = curr.child(query[i])
		if curr == nil {
			return ret
		}
	}
	return ret
}

// Autocomplete returns keys starting with query, shortest first. Keys of
// equal length come in byte order. A limit of 0 returns every key.
func (t *Trie) Autocomplete(query string, limit int) []string {
	start := t.find(query)
	if start == nil {
		return nil
	}

	var out []string
	if start.end {
		out = append(out, query)
		if limit > 0 && len(out) >= limit {
			return out
		}
	}

	type item struct {
		suffix string
		node   *trieNode
	}
	queue := []item{}
	for _, c := range start.sortedKeys() {
		queue = append(queue, item{string(c), start.children[c]})
	}

	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]

		if it.node.end {
			out = append(out, query+it.suffix)
			if limit > 0 && len(out) >= limit {
				return out
			}
		}
		for _, c := range it.node.sortedKeys() {
			queue = append(queue, item{it.suffix + string(c), it.node.children[c]})
		}
	}
	return out
}

// FindKeys returns every key that is a prefix of query, shortest first.
func (t *Trie) FindKeys(query string) []string {
	var out []string
	curr := &t.root
	for i := 0; i < len(query); i++ {
		curr = curr.child(query[i])
		if curr == nil {
			return out
		}
		if curr.end {
			out = append(out, query[:i+1])
		}
	}
	return out
}

type splitCost struct {
	split uint64
	cost  float64
}

// saveIfCheaper keeps row sorted by cost and at most limit long.
func saveIfCheaper(row []splitCost, limit int, split uint64, cost float64) []splitCost {
	if len(row) < limit {
		row = append(row, splitCost{split, cost})
	} else if cost < row[len(row)-1].cost {
		row[len(row)-1] = splitCost{split, cost}
	} else {
		return row
	}
	sort.SliceStable(row, func(i, j int) bool { return row[i].cost < row[j].cost })
	return row
}

// Multisplit segments query into keys, returning the end offsets of each
// piece for up to limit of the cheapest segmentations. Costs come from
// costs; keys without a cost are not used. When the whole query cannot be
// segmented, the segmentations of the longest segmentable prefix are
// returned. Only the first 63 bytes of query are considered.
func (t *Trie) Multisplit(query string, costs map[string]float64, limit int) [][]int {
	if limit <= 0 {
		return nil
	}
	if len(query) > maxSplitQuery {
		query = query[:maxSplitQuery]
	}

	table := make([][]splitCost, len(query)+1)
	table[0] = []splitCost{{}}

	for start := 0; start < len(query); start++ {
		if len(table[start]) == 0 {
			continue
		}

		node := &t.root
		for i := start; i < len(query); i++ {
			node = node.child(query[i])
			if node == nil {
				break
			}
			if !node.end {
				continue
			}
			cost, ok := costs[query[start:i+1]]
			if !ok {
				continue
			}
			for _, prev := range table[start] {
				table[i+1] = saveIfCheaper(table[i+1], limit, prev.split|1<<uint(i+1), prev.cost+cost)
			}
		}
	}

	last := len(table) - 1
	for last > 0 && len(table[last]) == 0 {
		last--
	}
	if last == 0 {
		return nil
	}

	out := make([][]int, 0, len(table[last]))
	for _, sc := range table[last] {
		out = append(out, bitPositions(sc.split))
		if len(out) >= limit {
			break
		}
	}
	return out
}

func bitPositions(v uint64) []int {
	out := make([]int, 0, bits.OnesCount64(v))
	for v != 0 {
		i := bits.TrailingZeros64(v)
		out = append(out, i)
		v &^= 1 << uint(i)
	}
	return out
}
