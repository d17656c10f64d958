package dictionary

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"unicode/utf8"

	"khiin/internal/store"
)

// userTokenWeight ranks user entries above dictionary conversions.
const userTokenWeight = 1000

// UserEntry is one line of a user dictionary file.
type UserEntry struct {
	Input  string
	Output string
}

// ParseUserDictionary reads entries of the form "input output", one per
// line. The input and output are separated by spaces or tabs, and the
// output runs to the end of the line. Text after '#' is a comment. Lines
// without an output, with invalid UTF-8, or whose input is not printable
// ASCII are skipped.
func ParseUserDictionary(r io.Reader) ([]UserEntry, error) {
	var out []UserEntry

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" || !utf8.ValidString(line) {
			continue
		}

		sep := strings.IndexAny(line, " \t")
		if sep < 0 {
			continue
		}
		input := line[:sep]
		if !isGraphicASCII(input) {
			continue
		}
		output := strings.TrimLeft(line[sep:], " \t")

		out = append(out, UserEntry{Input: input, Output: output})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read user dictionary: %w", err)
	}
	return out, nil
}

func isGraphicASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] <= ' ' || s[i] > '~' {
			return false
		}
	}
	return true
}

// UserDictionary is a lexicon of user-defined entries loaded from a plain
// text file. Its tokens have no id, which marks them as user entries in
// the buffer. A nil *UserDictionary is empty.
type UserDictionary struct {
	path string

	mu      sync.RWMutex
	entries []UserEntry
	trie    *Trie
}

// LoadUserDictionary reads the file at path.
func LoadUserDictionary(path string) (*UserDictionary, error) {
	u := &UserDictionary{path: path}
	if err := u.Reload(); err != nil {
		return nil, err
	}
	return u, nil
}

// NewUserDictionary returns an in-memory user dictionary holding entries.
func NewUserDictionary(entries []UserEntry) *UserDictionary {
	u := &UserDictionary{}
	u.set(entries)
	return u
}

func (u *UserDictionary) set(entries []UserEntry) {
	trie := NewTrie()
	for _, e := range entries {
		trie.Insert(e.Input)
	}

	u.mu.Lock()
	u.entries = entries
	u.trie = trie
	u.mu.Unlock()
}

// Reload re-reads the backing file. A missing file empties the dictionary.
func (u *UserDictionary) Reload() error {
	if u.path == "" {
		return nil
	}

	f, err := os.Open(u.path)
	if os.IsNotExist(err) {
		u.set(nil)
		return nil
	}
	if err != nil {
		return fmt.Errorf("open user dictionary: %w", err)
	}
	defer f.Close()

	entries, err := ParseUserDictionary(f)
	if err != nil {
		return err
	}
	u.set(entries)
	return nil
}

// Path returns the backing file, or "" for an in-memory dictionary.
func (u *UserDictionary) Path() string {
	if u == nil {
		return ""
	}
	return u.path
}

// Len returns the number of entries.
func (u *UserDictionary) Len() int {
	if u == nil {
		return 0
	}
	u.mu.RLock()
	defer u.mu.RUnlock()
	return len(u.entries)
}

// Search returns the tokens of every entry whose input is a prefix of
// query, shortest first.
func (u *UserDictionary) Search(query string) []store.TaiToken {
	if u == nil {
		return nil
	}
	u.mu.RLock()
	defer u.mu.RUnlock()

	var out []store.TaiToken
	for _, key := range u.trie.FindKeys(query) {
		out = u.appendTokens(out, key)
	}
	return out
}

// SearchExact returns the tokens of entries typed exactly as query.
func (u *UserDictionary) SearchExact(query string) []store.TaiToken {
	if u == nil {
		return nil
	}
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.appendTokens(nil, query)
}

// HasExact reports whether some entry is typed exactly as query.
func (u *UserDictionary) HasExact(query string) bool {
	if u == nil {
		return false
	}
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.trie.HasKey(query)
}

// StartsWithWord returns the byte length of the longest entry input that
// is a proper prefix of query, or 0.
func (u *UserDictionary) StartsWithWord(query string) int {
	if u == nil {
		return 0
	}
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.trie.LongestKeyOf(query)
}

func (u *UserDictionary) appendTokens(out []store.TaiToken, input string) []store.TaiToken {
	for _, e := range u.entries {
		if e.Input != input {
			continue
		}
		out = append(out, store.TaiToken{
			Input:     e.Input,
			Output:    e.Output,
			Weight:    userTokenWeight,
			Custom:    true,
			InputSize: len(input),
		})
	}
	return out
}
