package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// DataDir returns the directory holding the lexicon database and logs.
// KHIIN_DATA_DIR overrides the platform default.
//
// Platform paths:
//   - macOS:   ~/Library/Application Support/khiin/
//   - Linux:   ~/.local/share/khiin/
//   - Windows: %LOCALAPPDATA%\khiin\
func DataDir() string {
	if envDir := os.Getenv("KHIIN_DATA_DIR"); envDir != "" {
		return envDir
	}

	switch runtime.GOOS {
	case "darwin":
		return macOSDir()
	case "linux":
		return linuxDataDir()
	case "windows":
		return windowsDir()
	default:
		return fallbackDir()
	}
}

// ConfigDir returns the directory holding config.toml and the user
// dictionary. KHIIN_CONFIG_DIR overrides the platform default.
//
// Platform paths:
//   - macOS:   ~/Library/Application Support/khiin/
//   - Linux:   ~/.config/khiin/
//   - Windows: %LOCALAPPDATA%\khiin\
func ConfigDir() string {
	if envDir := os.Getenv("KHIIN_CONFIG_DIR"); envDir != "" {
		return envDir
	}

	switch runtime.GOOS {
	case "darwin":
		return macOSDir()
	case "linux":
		return linuxConfigDir()
	case "windows":
		return windowsDir()
	default:
		return fallbackDir()
	}
}

func macOSDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "Library", "Application Support", "khiin")
}

// Linux paths follow the XDG Base Directory Specification.

func linuxDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "khiin")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "khiin")
}

func linuxConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "khiin")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "khiin")
}

func windowsDir() string {
	if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
		return filepath.Join(localAppData, "khiin")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "AppData", "Local", "khiin")
}

func fallbackDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".khiin")
}

// SupportedConfigFormats returns the list of supported config file formats.
func SupportedConfigFormats() []string {
	return []string{
		"toml",
		"json",
		"yaml",
		"yml",
	}
}

// FindConfigFile searches the current directory, then ConfigDir, for a
// config file in any supported format. It returns "" if none is found.
func FindConfigFile() string {
	for _, dir := range []string{".", ConfigDir()} {
		for _, ext := range SupportedConfigFormats() {
			path := filepath.Join(dir, "config."+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}
