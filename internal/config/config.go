package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

const (
	dirName      = "filez"
	fileName     = "config.json"
	dirPerms     = 0700
	filePerms    = 0600
	DefaultURL   = "http://localhost:8080"
	DefaultAppID = "filez-cli"
)

// Config holds persisted CLI configuration.
type Config struct {
	ServerURL    string `json:"server_url"`
	IdentityURL  string `json:"identity_url,omitempty"`
	AppID        string `json:"app_id,omitempty"`
	Token        string `json:"token"`
	SkipIdentity bool   `json:"skip_identity,omitempty"`
}

// Path returns the full path to the config file.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, dirName, fileName), nil
}

// Load reads the config from disk. A missing file yields the defaults, not an error.
func Load() (*Config, error) {
	p, err := Path()
	if err != nil {
		return defaults(&Config{}), nil
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaults(&Config{}), nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return defaults(&cfg), nil
}

func defaults(cfg *Config) *Config {
	if cfg.ServerURL == "" {
		cfg.ServerURL = DefaultURL
	}
	if cfg.AppID == "" {
		cfg.AppID = DefaultAppID
	}
	return cfg
}

// IdentityBaseURL is the identity service URL; the development server hosts both services.
func (c *Config) IdentityBaseURL() string {
	if c.IdentityURL != "" {
		return c.IdentityURL
	}
	return c.ServerURL
}

// Save writes the config to disk, creating the directory if needed.
func Save(cfg *Config) error {
	p, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), dirPerms); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, data, filePerms)
}

// Clear removes the config file.
func Clear() error {
	p, err := Path()
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// HasToken reports whether a token is configured.
func (c *Config) HasToken() bool {
	return c.Token != ""
}
