package database

import (
	"fmt"
	"path/filepath"

	"biji-go/internal/biji"
	"biji-go/internal/config"
)

// IndexPath resolves the index file location for a tracked root. An empty
// configured path means the default file inside root; a relative one is
// taken relative to root.
func IndexPath(cfg config.DatabaseConfig, root string) string {
	switch {
	case cfg.Path == "":
		return filepath.Join(root, IndexFileName)
	case filepath.IsAbs(cfg.Path):
		return cfg.Path
	default:
		return filepath.Join(root, cfg.Path)
	}
}

// OpenIndexFromConfig opens the existing index described by cfg.
func OpenIndexFromConfig(cfg config.DatabaseConfig, root string, clock biji.Clock) (*SQLiteIndex, error) {
	switch cfg.Type {
	case "sqlite":
		return OpenIndex(IndexPath(cfg, root), clock)
	case "memory":
		return NewMemoryIndex(clock)
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}

// CreateIndexFromConfig creates the index described by cfg.
func CreateIndexFromConfig(cfg config.DatabaseConfig, root string, clock biji.Clock) (*SQLiteIndex, error) {
	switch cfg.Type {
	case "sqlite":
		return CreateIndex(IndexPath(cfg, root), clock)
	case "memory":
		return NewMemoryIndex(clock)
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
