package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrSchema is returned when a database's tables do not match its
	// recorded migrations.
	ErrSchema = errors.New("lexicon schema mismatch")

	// ErrNoMigrations is returned when rolling back an empty schema.
	ErrNoMigrations = errors.New("no migrations to roll back")
)

// Migration represents a database schema migration.
type Migration struct {
	Version     int
	Description string
	Up          string
	Down        string

	// Tables lists the tables the migration creates.
	Tables []string
}

// migrations contains all database migrations in order.
var migrations = []Migration{
	{
		Version:     1,
		Description: "Lexicon tables: frequency, conversions, syllables",
		Up:          migrationV1Up,
		Down:        migrationV1Down,
		Tables:      []string{"frequency", "conversions", "syllables"},
	},
	{
		Version:     2,
		Description: "Punctuation symbols and emoji",
		Up:          migrationV2Up,
		Down:        migrationV2Down,
		Tables:      []string{"symbols", "emoji"},
	},
	{
		Version:     3,
		Description: "Unigram and bigram frequency tables",
		Up:          migrationV3Up,
		Down:        migrationV3Down,
		Tables:      []string{"unigram_freq", "bigram_freq"},
	},
}

const migrationV1Up = `
CREATE TABLE IF NOT EXISTS frequency (
    id          INTEGER PRIMARY KEY,
    input       TEXT NOT NULL UNIQUE,
    freq        INTEGER,
    chhan_id    INTEGER
);

CREATE TABLE IF NOT EXISTS conversions (
    id          INTEGER PRIMARY KEY,
    input_id    INTEGER REFERENCES frequency(id),
    output      TEXT NOT NULL,
    weight      INTEGER,
    category    INTEGER,
    annotation  TEXT,
    UNIQUE (input_id, output)
);

CREATE INDEX IF NOT EXISTS idx_conversions_input ON conversions(input_id);

CREATE TABLE IF NOT EXISTS syllables (
    id          INTEGER PRIMARY KEY,
    input       TEXT NOT NULL UNIQUE
);
`

const migrationV1Down = `
DROP INDEX IF EXISTS idx_conversions_input;
DROP TABLE IF EXISTS syllables;
DROP TABLE IF EXISTS conversions;
DROP TABLE IF EXISTS frequency;
`

const migrationV2Up = `
CREATE TABLE IF NOT EXISTS symbols (
    id          INTEGER PRIMARY KEY,
    input       TEXT NOT NULL,
    output      TEXT NOT NULL,
    category    INTEGER,
    annotation  TEXT
);

CREATE TABLE IF NOT EXISTS emoji (
    id          INTEGER PRIMARY KEY,
    emoji       TEXT NOT NULL,
    short_name  TEXT NOT NULL,
    category    INTEGER NOT NULL,
    code        TEXT NOT NULL
);
`

const migrationV2Down = `
DROP TABLE IF EXISTS emoji;
DROP TABLE IF EXISTS symbols;
`

const migrationV3Up = `
CREATE TABLE IF NOT EXISTS unigram_freq (
    id      INTEGER PRIMARY KEY,
    gram    TEXT NOT NULL UNIQUE,
    n       INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS bigram_freq (
    id      INTEGER PRIMARY KEY,
    lgram   TEXT,
    rgram   TEXT,
    n       INTEGER NOT NULL,
    UNIQUE (lgram, rgram)
);

CREATE INDEX IF NOT EXISTS idx_unigram_gram ON unigram_freq(gram);
CREATE INDEX IF NOT EXISTS idx_bigram_grams ON bigram_freq(lgram, rgram);
`

const migrationV3Down = `
DROP INDEX IF EXISTS idx_bigram_grams;
DROP INDEX IF EXISTS idx_unigram_gram;
DROP TABLE IF EXISTS bigram_freq;
DROP TABLE IF EXISTS unigram_freq;
`

// MigrateDB applies all pending migrations to the database.
func MigrateDB(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version     INTEGER PRIMARY KEY,
			applied_at  INTEGER NOT NULL,
			description TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	version, err := currentVersion(db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.Version <= version {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction for migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.Up); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, applied_at, description) VALUES (?, ?, ?)",
			m.Version, time.Now().UnixNano(), m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

func currentVersion(db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&v); err != nil {
		return 0, fmt.Errorf("get current version: %w", err)
	}
	return v, nil
}

// RollbackMigration undoes the most recent migration. It returns
// ErrNoMigrations when the schema is already empty.
func RollbackMigration(db *sql.DB) (*Migration, error) {
	version, err := currentVersion(db)
	if err != nil {
		return nil, err
	}
	if version == 0 {
		return nil, ErrNoMigrations
	}
	if version > len(migrations) {
		return nil, fmt.Errorf("%w: version %d is newer than this build", ErrSchema, version)
	}
	m := &migrations[version-1]

	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.Down); err != nil {
		return nil, fmt.Errorf("roll back migration %d: %w", version, err)
	}
	if _, err := tx.Exec("DELETE FROM schema_migrations WHERE version = ?", version); err != nil {
		return nil, fmt.Errorf("remove migration record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit rollback: %w", err)
	}
	return m, nil
}

// MigrationStatus reports which lexicon migrations a database has.
type MigrationStatus struct {
	CurrentVersion int
	LatestVersion  int
	Applied        []AppliedMigration
	Pending        []Migration
}

// AppliedMigration is one row of schema_migrations.
type AppliedMigration struct {
	Version     int
	AppliedAt   time.Time
	Description string
}

// UpToDate reports whether no migration is pending.
func (s *MigrationStatus) UpToDate() bool {
	return len(s.Pending) == 0 && s.CurrentVersion == s.LatestVersion
}

// GetMigrationStatus reads schema_migrations. A database without the
// table has every migration pending.
func GetMigrationStatus(db *sql.DB) (*MigrationStatus, error) {
	status := &MigrationStatus{LatestVersion: len(migrations)}

	exists, err := tableExists(db, "schema_migrations")
	if err != nil {
		return nil, err
	}
	if !exists {
		status.Pending = append(status.Pending, migrations...)
		return status, nil
	}

	rows, err := db.Query("SELECT version, applied_at, description FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("query migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var am AppliedMigration
		var appliedAt int64
		if err := rows.Scan(&am.Version, &appliedAt, &am.Description); err != nil {
			return nil, fmt.Errorf("scan migration: %w", err)
		}
		am.AppliedAt = time.Unix(0, appliedAt)
		status.Applied = append(status.Applied, am)
		applied[am.Version] = true
		status.CurrentVersion = max(status.CurrentVersion, am.Version)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	for _, m := range migrations {
		if !applied[m.Version] {
			status.Pending = append(status.Pending, m)
		}
	}
	return status, nil
}

func tableExists(db *sql.DB, name string) (bool, error) {
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", name, err)
	}
	return n > 0, nil
}

// ValidateSchema checks that every table created by an applied migration
// exists. It returns an error wrapping ErrSchema for a missing table.
func ValidateSchema(db *sql.DB) error {
	version, err := currentVersion(db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.Version > version {
			break
		}
		for _, table := range m.Tables {
			ok, err := tableExists(db, table)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: migration %d table %s is missing", ErrSchema, m.Version, table)
			}
		}
	}
	return nil
}
