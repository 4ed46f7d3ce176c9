package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
)

// AppName names the config file and directories.
const AppName = "lukija"

// Dirs returns the directories searched for lukija.yml, most specific
// first. LUKIJA_CONFIG_HOME and XDG_CONFIG_HOME take precedence.
func Dirs() ([]string, error) {
	scope := gap.NewScope(gap.User, AppName)
	dirs, err := scope.ConfigDirs()
	if err != nil {
		return nil, fmt.Errorf("unable to find configuration directory: %w", err)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, AppName)}, dirs...)
	}
	if c := os.Getenv(EnvPrefix + "CONFIG_HOME"); c != "" {
		dirs = append([]string{ExpandPath(c)}, dirs...)
	}
	return dirs, nil
}

// DefaultPath is where a new config file is written.
func DefaultPath() (string, error) {
	dirs, err := Dirs()
	if err != nil {
		return "", err
	}
	return filepath.Join(dirs[0], AppName+".yml"), nil
}

// LogPath is the debug log file.
func LogPath() (string, error) {
	dir, err := gap.NewScope(gap.User, AppName).CacheDir()
	if err != nil {
		return "", fmt.Errorf("unable to find cache directory: %w", err)
	}
	return filepath.Join(dir, AppName+".log"), nil
}

// ExpandPath expands a leading ~ and environment variables.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		expanded = path
	}
	return os.ExpandEnv(expanded)
}

// WriteDefault writes the default config to path unless a file exists.
// It reports whether a file was written.
func WriteDefault(path string) (bool, error) {
	ext := filepath.Ext(path)
	if ext != ".yaml" && ext != ".yml" {
		return false, fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("unable to stat config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return false, fmt.Errorf("unable to create config directory: %w", err)
	}

	b, err := DefaultYAML()
	if err != nil {
		return false, err
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return false, fmt.Errorf("unable to write config file: %w", err)
	}
	return true, nil
}
