package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnvConfig names the environment variable that points at a config file.
const EnvConfig = "IMDBEPS_CONFIG"

// LocalFile is the config file looked up in the working directory.
const LocalFile = "imdbeps.toml"

// DefaultPath returns the XDG-compliant default config path.
func DefaultPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "./" + LocalFile
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "imdbeps", "config.toml")
}

// Discover finds the config file using the standard search order.
// Search order:
//  1. IMDBEPS_CONFIG environment variable
//  2. ./imdbeps.toml (current directory)
//  3. $XDG_CONFIG_HOME/imdbeps/config.toml
//
// An empty path and nil error mean no file exists and the defaults apply.
func Discover() (string, error) {
	if envPath := os.Getenv(EnvConfig); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("%s=%s: %w", EnvConfig, envPath, err)
		}
		return envPath, nil
	}

	for _, p := range []string{"./" + LocalFile, DefaultPath()} {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}
