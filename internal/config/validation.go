package config

import (
	"errors"
	"fmt"

	"khiin/internal/keyconfig"
	"khiin/internal/logging"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalid
}

// ValidateConfig checks every section of c and joins the problems found.
func ValidateConfig(c *Config) error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if c.Version < 0 || c.Version > Version {
		add("version", "unsupported version %d (max %d)", c.Version, Version)
	}

	switch c.Input.Mode {
	case "continuous", "basic", "manual":
	default:
		add("input.mode", "invalid mode: %q (valid: continuous, basic, manual)", c.Input.Mode)
	}

	if _, err := keyconfig.FromLayout(c.Layout()); err != nil {
		add("keys", "%v", err)
	}
	if c.Input.Telex && len(c.Keys.TelexKhin) != 1 {
		add("keys.telex_khin", "a single key is required when telex is enabled")
	}
	if len(c.Keys.AltHyphen) > 1 {
		add("keys.alt_hyphen", "must be a single key")
	}

	if c.Dictionary.DatabasePath == "" {
		add("dictionary.database_path", "required field is missing")
	}
	if c.Dictionary.WatchUserDictionary && c.Dictionary.UserDictionaryPath == "" {
		add("dictionary.user_dictionary_path", "required when watch_user_dictionary is set")
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		add("logging.level", "invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}
	if _, err := logging.ParseFormat(c.Logging.Format); err != nil {
		add("logging.format", "invalid log format: %s (valid: text, json)", c.Logging.Format)
	}
	switch c.Logging.Output {
	case "", "stdout", "stderr":
	case "file", "both":
		if c.Logging.FilePath == "" {
			add("logging.file_path", "file path is required when output is %q", c.Logging.Output)
		}
	default:
		add("logging.output", "invalid output: %s (valid: stdout, stderr, file, both)", c.Logging.Output)
	}

	return errors.Join(errs...)
}
