package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// MemoryPath is the connection string of a private in-memory database.
const MemoryPath = ":memory:"

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store closed")

// Store represents the SQLite lexicon database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the SQLite database at the given path and runs migrations.
func Open(path string) (*Store, error) {
	if path == "" || path == MemoryPath {
		return OpenMemory()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := migrateAndValidate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, path: path}, nil
}

// OpenMemory creates an empty in-memory store.
func OpenMemory() (*Store, error) {
	db, err := sql.Open("sqlite3", MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Every pooled connection would get its own empty database.
	db.SetMaxOpenConns(1)

	if err := migrateAndValidate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, path: MemoryPath}, nil
}

func migrateAndValidate(db *sql.DB) error {
	if err := MigrateDB(db); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	if err := ValidateSchema(db); err != nil {
		return fmt.Errorf("validate schema: %w", err)
	}
	return nil
}

// MigrationStatus reports the applied and pending schema migrations.
func (s *Store) MigrationStatus() (*MigrationStatus, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	return GetMigrationStatus(s.db)
}

// Rollback undoes the newest schema migration and returns it. The store
// stays open with the older schema until it is reopened.
func (s *Store) Rollback() (*Migration, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	return RollbackMigration(s.db)
}

// Path returns the connection path of the store.
func (s *Store) Path() string {
	return s.path
}

// DB exposes the underlying handle for migrations tooling.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// AllWordsByFreq returns every dictionary spelling, most frequent first.
func (s *Store) AllWordsByFreq() ([]InputByFreq, error) {
	if s.db == nil {
		return nil, ErrClosed
	}

	rows, err := s.db.Query(`SELECT id, input FROM frequency ORDER BY freq DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query words: %w", err)
	}
	defer rows.Close()

	var out []InputByFreq
	for rows.Next() {
		var w InputByFreq
		if err := rows.Scan(&w.ID, &w.Input); err != nil {
			return nil, fmt.Errorf("scan word: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// ConversionsByInputID returns the conversions of one spelling in id order.
func (s *Store) ConversionsByInputID(inputID int) ([]TaiToken, error) {
	if s.db == nil {
		return nil, ErrClosed
	}

	rows, err := s.db.Query(`
		SELECT c.id, f.input, c.output, COALESCE(c.weight, 0), COALESCE(c.category, 0), COALESCE(c.annotation, '')
		FROM conversions AS c
		INNER JOIN frequency AS f ON c.input_id = f.id
		WHERE c.input_id = ?
		ORDER BY c.id`, inputID)
	if err != nil {
		return nil, fmt.Errorf("query conversions: %w", err)
	}
	defer rows.Close()

	var out []TaiToken
	for rows.Next() {
		t := TaiToken{InputID: inputID}
		if err := rows.Scan(&t.ID, &t.Input, &t.Output, &t.Weight, &t.Category, &t.Annotation); err != nil {
			return nil, fmt.Errorf("scan conversion: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// LoadSyllables returns all known syllable spellings.
func (s *Store) LoadSyllables() ([]string, error) {
	if s.db == nil {
		return nil, ErrClosed
	}

	rows, err := s.db.Query(`SELECT input FROM syllables ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query syllables: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var syl string
		if err := rows.Scan(&syl); err != nil {
			return nil, fmt.Errorf("scan syllable: %w", err)
		}
		out = append(out, syl)
	}
	return out, rows.Err()
}

// LoadPunctuation returns the symbol table.
func (s *Store) LoadPunctuation() ([]Punctuation, error) {
	if s.db == nil {
		return nil, ErrClosed
	}

	rows, err := s.db.Query(`SELECT id, input, output, COALESCE(annotation, '') FROM symbols ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()

	var out []Punctuation
	for rows.Next() {
		var p Punctuation
		if err := rows.Scan(&p.ID, &p.Input, &p.Output, &p.Annotation); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Emojis returns the emoji table ordered by category.
func (s *Store) Emojis() ([]Emoji, error) {
	if s.db == nil {
		return nil, ErrClosed
	}

	rows, err := s.db.Query(`SELECT id, category, emoji, short_name FROM emoji ORDER BY category ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query emoji: %w", err)
	}
	defer rows.Close()

	var out []Emoji
	for rows.Next() {
		var e Emoji
		if err := rows.Scan(&e.ID, &e.Category, &e.Value, &e.ShortName); err != nil {
			return nil, fmt.Errorf("scan emoji: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ClearNGrams deletes all recorded n-gram counts.
func (s *Store) ClearNGrams() error {
	if s.db == nil {
		return ErrClosed
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM bigram_freq`); err != nil {
		return fmt.Errorf("delete bigrams: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM unigram_freq`); err != nil {
		return fmt.Errorf("delete unigrams: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// RecordUnigrams increments the count of each gram, once per occurrence.
func (s *Store) RecordUnigrams(grams []string) error {
	if len(grams) == 0 {
		return nil
	}
	if s.db == nil {
		return ErrClosed
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO unigram_freq (gram, n) VALUES (?, 1)
		ON CONFLICT(gram) DO UPDATE SET n = n + 1`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, g := range grams {
		if _, err := stmt.Exec(g); err != nil {
			return fmt.Errorf("record unigram: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// RecordBigrams increments the count of each pair.
func (s *Store) RecordBigrams(grams []Bigram) error {
	if len(grams) == 0 {
		return nil
	}
	if s.db == nil {
		return ErrClosed
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO bigram_freq (lgram, rgram, n) VALUES (?, ?, 1)
		ON CONFLICT(lgram, rgram) DO UPDATE SET n = n + 1`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, g := range grams {
		if _, err := stmt.Exec(g.Left, g.Right); err != nil {
			return fmt.Errorf("record bigram: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// UnigramCounts returns the recorded counts of grams. Unseen grams are
// absent from the result.
func (s *Store) UnigramCounts(grams []string) ([]Gram, error) {
	if len(grams) == 0 {
		return nil, nil
	}
	if s.db == nil {
		return nil, ErrClosed
	}

	args := make([]any, len(grams))
	for i, g := range grams {
		args[i] = g
	}

	rows, err := s.db.Query(
		`SELECT gram, n FROM unigram_freq WHERE gram IN (`+placeholders(len(grams))+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query unigrams: %w", err)
	}
	defer rows.Close()

	return scanGrams(rows)
}

// BigramCounts returns the counts of lgram followed by each of rgrams.
func (s *Store) BigramCounts(lgram string, rgrams []string) ([]Gram, error) {
	if lgram == "" || len(rgrams) == 0 {
		return nil, nil
	}
	if s.db == nil {
		return nil, ErrClosed
	}

	args := make([]any, 0, len(rgrams)+1)
	args = append(args, lgram)
	for _, g := range rgrams {
		args = append(args, g)
	}

	rows, err := s.db.Query(
		`SELECT rgram, n FROM bigram_freq WHERE lgram = ? AND rgram IN (`+placeholders(len(rgrams))+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query bigrams: %w", err)
	}
	defer rows.Close()

	return scanGrams(rows)
}

// AddNGramsData fills in the unigram counts of tokens, and their bigram
// counts after lgram when lgram is set.
func (s *Store) AddNGramsData(lgram string, tokens []TaiToken) error {
	if len(tokens) == 0 {
		return nil
	}

	outputs := make([]string, 0, len(tokens))
	for _, t := range tokens {
		outputs = append(outputs, t.Output)
	}

	uni, err := s.UnigramCounts(outputs)
	if err != nil {
		return err
	}
	uniCounts := gramMap(uni)

	var biCounts map[string]int
	if lgram != "" {
		bi, err := s.BigramCounts(lgram, outputs)
		if err != nil {
			return err
		}
		biCounts = gramMap(bi)
	}

	for i := range tokens {
		tokens[i].UnigramCount = uniCounts[tokens[i].Output]
		tokens[i].BigramCount = biCounts[tokens[i].Output]
	}
	return nil
}

// Stats returns database statistics.
func (s *Store) Stats() (*Stats, error) {
	if s.db == nil {
		return nil, ErrClosed
	}

	var st Stats
	counts := []struct {
		table string
		dest  *int64
	}{
		{"frequency", &st.Words},
		{"conversions", &st.Conversions},
		{"syllables", &st.Syllables},
		{"symbols", &st.Symbols},
		{"emoji", &st.Emoji},
		{"unigram_freq", &st.Unigrams},
		{"bigram_freq", &st.Bigrams},
	}
	for _, c := range counts {
		if err := s.db.QueryRow(`SELECT COUNT(*) FROM ` + c.table).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("count %s: %w", c.table, err)
		}
	}
	return &st, nil
}

// InsertWord adds a spelling to the frequency table and returns its id.
func (s *Store) InsertWord(input string, freq int) (int64, error) {
	if s.db == nil {
		return 0, ErrClosed
	}

	result, err := s.db.Exec(`INSERT INTO frequency (input, freq) VALUES (?, ?)`, input, freq)
	if err != nil {
		return 0, fmt.Errorf("insert word: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id: %w", err)
	}
	return id, nil
}

// InsertConversion adds an output for the spelling with the given id.
func (s *Store) InsertConversion(inputID int64, output string, weight int) error {
	if s.db == nil {
		return ErrClosed
	}

	if _, err := s.db.Exec(
		`INSERT INTO conversions (input_id, output, weight) VALUES (?, ?, ?)`,
		inputID, output, weight,
	); err != nil {
		return fmt.Errorf("insert conversion: %w", err)
	}
	return nil
}

// InsertSyllable adds a syllable spelling; duplicates are ignored.
func (s *Store) InsertSyllable(input string) error {
	if s.db == nil {
		return ErrClosed
	}

	if _, err := s.db.Exec(`INSERT OR IGNORE INTO syllables (input) VALUES (?)`, input); err != nil {
		return fmt.Errorf("insert syllable: %w", err)
	}
	return nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

func scanGrams(rows *sql.Rows) ([]Gram, error) {
	var out []Gram
	for rows.Next() {
		var g Gram
		if err := rows.Scan(&g.Value, &g.Count); err != nil {
			return nil, fmt.Errorf("scan gram: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func gramMap(grams []Gram) map[string]int {
	m := make(map[string]int, len(grams))
	for _, g := range grams {
		m[g.Value] = g.Count
	}
	return m
}
