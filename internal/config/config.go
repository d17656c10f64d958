// Package config handles configuration loading, validation, and management for khiin.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"khiin/internal/keyconfig"
	"khiin/internal/logging"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete engine configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Input controls conversion behavior.
	Input InputConfig `toml:"input" json:"input" yaml:"input"`

	// Keys is the romanization key layout.
	Keys KeyConfig `toml:"keys" json:"keys" yaml:"keys"`

	// Dictionary locates the lexicon and the user dictionary.
	Dictionary DictionaryConfig `toml:"dictionary" json:"dictionary" yaml:"dictionary"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	// Metrics configuration.
	Metrics MetricsConfig `toml:"metrics" json:"metrics" yaml:"metrics"`
}

// InputConfig holds conversion settings.
type InputConfig struct {
	// Enabled turns the IME on. When false no key is consumed.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// Mode is "continuous", "basic" or "manual".
	Mode string `toml:"mode" json:"mode" yaml:"mode"`

	// DottedKhin renders khin syllables with a leading middle dot instead
	// of a double hyphen.
	DottedKhin bool `toml:"dotted_khin" json:"dotted_khin" yaml:"dotted_khin"`

	// Autokhin marks the syllables following a khin syllable as khin.
	Autokhin bool `toml:"autokhin" json:"autokhin" yaml:"autokhin"`

	// Telex enables the telex-style khin key.
	Telex bool `toml:"telex" json:"telex" yaml:"telex"`
}

// KeyConfig holds the key layout. Empty values use the default bindings.
type KeyConfig struct {
	Nasal         string `toml:"nasal" json:"nasal" yaml:"nasal"`
	DotAboveRight string `toml:"dot_above_right" json:"dot_above_right" yaml:"dot_above_right"`
	DotsBelow     string `toml:"dots_below" json:"dots_below" yaml:"dots_below"`
	AltHyphen     string `toml:"alt_hyphen" json:"alt_hyphen" yaml:"alt_hyphen"`
	TelexKhin     string `toml:"telex_khin" json:"telex_khin" yaml:"telex_khin"`
}

// DictionaryConfig holds lexicon settings.
type DictionaryConfig struct {
	// DatabasePath is the SQLite lexicon database.
	DatabasePath string `toml:"database_path" json:"database_path" yaml:"database_path"`

	// UserDictionaryPath is an optional plain-text user dictionary.
	UserDictionaryPath string `toml:"user_dictionary_path" json:"user_dictionary_path" yaml:"user_dictionary_path"`

	// WatchUserDictionary reloads the user dictionary when it changes.
	WatchUserDictionary bool `toml:"watch_user_dictionary" json:"watch_user_dictionary" yaml:"watch_user_dictionary"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is the log format: text or json.
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is the log output: stdout, stderr, file or both.
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the path to the log file.
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`

	// LogTypedText disables redaction of typed text in logs.
	LogTypedText bool `toml:"log_typed_text" json:"log_typed_text" yaml:"log_typed_text"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	dir := DataDir()

	return &Config{
		Version: Version,
		Input: InputConfig{
			Enabled: true,
			Mode:    "continuous",
		},
		Dictionary: DictionaryConfig{
			DatabasePath:        filepath.Join(dir, "khiin.db"),
			UserDictionaryPath:  filepath.Join(ConfigDir(), "userdict.txt"),
			WatchUserDictionary: true,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "text",
			Output:   "stderr",
			FilePath: filepath.Join(dir, "khiin.log"),
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads configuration from path, or from ConfigPath when path is
// empty. A missing file yields the defaults. The format follows the file
// extension; environment overrides are applied last.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg, err := loadConfigFromFile(path)
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnvOverrides()
	return cfg, nil
}

// decode parses data into cfg according to ext.
func decode(data []byte, ext string, cfg *Config) error {
	switch strings.ToLower(ext) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("decode TOML: %w", err)
		}
	case ".json":
		if err := decodeJSON(data, cfg); err != nil {
			return fmt.Errorf("decode JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("decode YAML: %w", err)
		}
	default:
		if err := autoDetectAndParse(data, cfg); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
	}
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// EnsureDirectories creates the directories holding the database, the
// user dictionary and the log file.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(c.Dictionary.DatabasePath),
		filepath.Dir(c.Dictionary.UserDictionaryPath),
	}
	if c.Logging.Output == "file" || c.Logging.Output == "both" {
		dirs = append(dirs, filepath.Dir(c.Logging.FilePath))
	}

	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return nil
}

// ApplyEnvOverrides applies environment variable overrides to the
// configuration. Variables are prefixed with KHIIN_. Boolean values that
// do not parse are ignored.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("KHIIN_INPUT_MODE"); v != "" {
		c.Input.Mode = strings.ToLower(v)
	}
	if v, ok := envBool("KHIIN_AUTOKHIN"); ok {
		c.Input.Autokhin = v
	}
	if v, ok := envBool("KHIIN_DOTTED_KHIN"); ok {
		c.Input.DottedKhin = v
	}

	if v := os.Getenv("KHIIN_DATABASE"); v != "" {
		c.Dictionary.DatabasePath = v
	}
	if v := os.Getenv("KHIIN_USER_DICT"); v != "" {
		c.Dictionary.UserDictionaryPath = v
	}

	if v := os.Getenv("KHIIN_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
}

func envBool(key string) (bool, bool) {
	v := os.Getenv(key)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// Layout returns the key layout for keyconfig. The telex khin key only
// applies when telex input is enabled.
func (c *Config) Layout() keyconfig.Layout {
	l := keyconfig.Layout{
		Nasal:         c.Keys.Nasal,
		DotAboveRight: c.Keys.DotAboveRight,
		DotsBelow:     c.Keys.DotsBelow,
		AltHyphen:     c.Keys.AltHyphen,
	}
	if c.Input.Telex {
		l.TelexKhin = c.Keys.TelexKhin
	}
	return l
}

// LoggerConfig converts the logging section into a logging.Config.
func (c *Config) LoggerConfig() (*logging.Config, error) {
	lc := logging.DefaultConfig()

	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(c.Logging.Format)
	if err != nil {
		return nil, err
	}

	lc.Level = level
	lc.Format = format
	if c.Logging.Output != "" {
		lc.Output = c.Logging.Output
	}
	if c.Logging.FilePath != "" {
		lc.FilePath = c.Logging.FilePath
	}
	lc.LogTypedText = c.Logging.LogTypedText
	return lc, nil
}
