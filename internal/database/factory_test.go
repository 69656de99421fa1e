package database

import (
	"path/filepath"
	"testing"

	"biji-go/internal/config"
)

func TestIndexPath(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.DatabaseConfig
		want string
	}{
		{"default", config.DatabaseConfig{Type: "sqlite"}, filepath.Join("/data", IndexFileName)},
		{"relative", config.DatabaseConfig{Type: "sqlite", Path: "meta/idx.db"}, filepath.Join("/data", "meta", "idx.db")},
		{"absolute", config.DatabaseConfig{Type: "sqlite", Path: "/var/idx.db"}, "/var/idx.db"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IndexPath(tt.cfg, "/data"); got != tt.want {
				t.Errorf("IndexPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIndexFromConfig(t *testing.T) {
	t.Run("memory index", func(t *testing.T) {
		cfg := config.DatabaseConfig{Type: "memory"}
		got, err := OpenIndexFromConfig(cfg, t.TempDir(), nil)
		if err != nil {
			t.Fatalf("OpenIndexFromConfig() unexpected error: %v", err)
		}
		got.Close()
	})

	t.Run("sqlite index create then open", func(t *testing.T) {
		root := t.TempDir()
		cfg := config.DatabaseConfig{Type: "sqlite"}

		created, err := CreateIndexFromConfig(cfg, root, nil)
		if err != nil {
			t.Fatalf("CreateIndexFromConfig() unexpected error: %v", err)
		}
		created.Close()

		opened, err := OpenIndexFromConfig(cfg, root, nil)
		if err != nil {
			t.Fatalf("OpenIndexFromConfig() unexpected error: %v", err)
		}
		if opened.Path() != filepath.Join(root, IndexFileName) {
			t.Errorf("Path() = %q", opened.Path())
		}
		opened.Close()
	})

	t.Run("unknown type", func(t *testing.T) {
		cfg := config.DatabaseConfig{Type: "postgres"}
		if _, err := OpenIndexFromConfig(cfg, t.TempDir(), nil); err == nil {
			t.Error("OpenIndexFromConfig() expected error for unknown type")
		}
	})
}
