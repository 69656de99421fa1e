package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - BIJI_CONFIG_PATH: config file location (default: ~/.config/biji.toml)
//   - BIJI_HOME: base directory for logs and other state (default: ~/.local/share/biji)
func GetDefaults() (map[string]string, error) {
	configPath, err := envOrHome("BIJI_CONFIG_PATH", ".config", "biji.toml")
	if err != nil {
		return nil, err
	}

	baseDir, err := envOrHome("BIJI_HOME", ".local", "share", "biji")
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// envOrHome returns the value of env if set, otherwise the path made of
// elem under the user's home directory.
func envOrHome(env string, elem ...string) (string, error) {
	if path := os.Getenv(env); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(append([]string{homeDir}, elem...)...), nil
}
