package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	env := "MONGO_DATABASE=fromfile\nCLIENT_URL=https://gitdev.example\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Chdir(dir)
	t.Cleanup(func() {
		os.Unsetenv("MONGO_DATABASE")
		os.Unsetenv("CLIENT_URL")
	})

	cfg := Load()
	if cfg.MongoDatabase != "fromfile" {
		t.Errorf("MongoDatabase = %q, want value from .env", cfg.MongoDatabase)
	}
	if cfg.ClientURL != "https://gitdev.example" {
		t.Errorf("ClientURL = %q, want value from .env", cfg.ClientURL)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg := Load()
	if cfg.MongoDatabase != "gitdev" {
		t.Errorf("MongoDatabase = %q, want default", cfg.MongoDatabase)
	}
	if cfg.Port != "8080" && os.Getenv("PORT") == "" {
		t.Errorf("Port = %q, want default", cfg.Port)
	}
	if !cfg.NatsEmbedded {
		t.Errorf("NatsEmbedded should default to true")
	}
}
