// Package config loads application configuration from a TOML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Default values used when neither the config file nor the environment
// provides a setting.
const (
	DefaultAddr        = "127.0.0.1:8080"
	DefaultRedirectURI = "http://127.0.0.1:8080/callback"
)

// DefaultScopes is the capability list requested during authorization.
var DefaultScopes = []string{
	"user-top-read",
	"user-read-playback-state",
	"user-read-currently-playing",
	"user-modify-playback-state",
	"app-remote-control",
	"streaming",
}

// ErrMissingCredentials is returned by Validate when the Spotify client
// ID or secret is not configured.
var ErrMissingCredentials = errors.New("missing spotify client_id or client_secret")

// Config is the application configuration.
type Config struct {
	Spotify  SpotifyConfig  `toml:"spotify"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	RedirectURI  string   `toml:"redirect_uri"`
	Scopes       []string `toml:"scopes"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	URL string `toml:"url"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// Load reads the config file at path, then applies environment
// overrides and defaults. A missing file is not an error: the whole
// configuration can come from the environment.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err == nil {
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

// applyEnv overrides file values with environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("SPOTIFY_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("OPENSTATS_REDIRECT_URI"); v != "" {
		c.Spotify.RedirectURI = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("OPENSTATS_ADDR"); v != "" {
		c.Server.Addr = v
	}
}

// applyDefaults fills in unset values.
func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Spotify.RedirectURI == "" {
		c.Spotify.RedirectURI = DefaultRedirectURI
	}
	if len(c.Spotify.Scopes) == 0 {
		c.Spotify.Scopes = DefaultScopes
	}
}

// Validate checks that required settings are present.
func (c *Config) Validate() error {
	if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" {
		return ErrMissingCredentials
	}
	if c.Database.URL == "" {
		return errors.New("missing database url")
	}
	return nil
}
