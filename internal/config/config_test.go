package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// clearEnv blanks every variable the loader reads so tests are
// hermetic; the loader ignores empty values.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"SPOTIFY_ID", "SPOTIFY_SECRET", "OPENSTATS_REDIRECT_URI", "DATABASE_URL", "OPENSTATS_ADDR"} {
		t.Setenv(k, "")
	}
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[spotify]
client_id = "file-id"
client_secret = "file-secret"

[database]
url = "postgres://localhost/openstats"

[server]
addr = "0.0.0.0:9000"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Spotify.ClientID != "file-id" {
		t.Errorf("ClientID = %q, want file-id", cfg.Spotify.ClientID)
	}
	if cfg.Server.Addr != "0.0.0.0:9000" {
		t.Errorf("Addr = %q, want 0.0.0.0:9000", cfg.Server.Addr)
	}
	if cfg.Spotify.RedirectURI != DefaultRedirectURI {
		t.Errorf("RedirectURI = %q, want default", cfg.Spotify.RedirectURI)
	}
	if len(cfg.Spotify.Scopes) != len(DefaultScopes) {
		t.Errorf("Scopes = %v, want defaults", cfg.Spotify.Scopes)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[spotify]
client_id = "file-id"
client_secret = "file-secret"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	t.Setenv("SPOTIFY_ID", "env-id")
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("OPENSTATS_ADDR", "127.0.0.1:7777")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Spotify.ClientID != "env-id" {
		t.Errorf("ClientID = %q, want env-id", cfg.Spotify.ClientID)
	}
	if cfg.Spotify.ClientSecret != "file-secret" {
		t.Errorf("ClientSecret = %q, want file-secret", cfg.Spotify.ClientSecret)
	}
	if cfg.Database.URL != "postgres://env/db" {
		t.Errorf("Database.URL = %q, want env value", cfg.Database.URL)
	}
	if cfg.Server.Addr != "127.0.0.1:7777" {
		t.Errorf("Addr = %q, want env value", cfg.Server.Addr)
	}
}

func TestLoad_MissingFileUsesEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("SPOTIFY_ID", "env-id")
	t.Setenv("SPOTIFY_SECRET", "env-secret")
	t.Setenv("DATABASE_URL", "postgres://env/db")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if cfg.Server.Addr != DefaultAddr {
		t.Errorf("Addr = %q, want default", cfg.Server.Addr)
	}
}

func TestValidate_MissingCredentials(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if err := cfg.Validate(); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("Validate() error = %v, want ErrMissingCredentials", err)
	}
}
