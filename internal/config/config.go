// Package config loads and persists the credentials and preferences every
// other component reads. The file lives at ~/.config/gert/config.yaml;
// GERT_* environment variables (optionally loaded from a .env file in the
// working directory) override individual fields.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sprite-ai/gert/internal/ident"
)

// Credentials is produced once by setup and read-only everywhere else.
type Credentials struct {
	Host         string `yaml:"host"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	AITool       string `yaml:"ai_tool,omitempty"`
	AIAutoDetect bool   `yaml:"ai_auto_detect"`
}

// ErrNotConfigured reports a missing or incomplete configuration.
var ErrNotConfigured = errors.New("not configured: run 'gert setup' first")

// Path returns the config file location. GERT_CONFIG overrides it, which
// the tests rely on.
func Path() string {
	if p := os.Getenv("GERT_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".gert.yaml")
	}
	return filepath.Join(home, ".config", "gert", "config.yaml")
}

// Load reads the config file and applies environment overrides. A missing
// file is not an error by itself; the result may still fail Validate.
func Load() (*Credentials, error) {
	// Best effort: a .env next to the caller can hold GERT_* overrides.
	_ = godotenv.Load()

	creds := &Credentials{}
	data, err := os.ReadFile(Path())
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, creds); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", Path(), err)
		}
	case os.IsNotExist(err):
		// fall through to env overrides
	default:
		return nil, fmt.Errorf("reading %s: %w", Path(), err)
	}

	if v := os.Getenv("GERT_HOST"); v != "" {
		creds.Host = v
	}
	if v := os.Getenv("GERT_USERNAME"); v != "" {
		creds.Username = v
	}
	if v := os.Getenv("GERT_PASSWORD"); v != "" {
		creds.Password = v
	}
	if v := os.Getenv("GERT_AI_TOOL"); v != "" {
		creds.AITool = v
	}

	creds.Host = ident.NormalizeHost(creds.Host)
	return creds, nil
}

// Require loads the config and fails unless it is complete enough to talk
// to a Gerrit server.
func Require() (*Credentials, error) {
	creds, err := Load()
	if err != nil {
		return nil, err
	}
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	return creds, nil
}

// Validate checks the fields every REST call needs.
func (c *Credentials) Validate() error {
	if c.Host == "" || c.Username == "" || c.Password == "" {
		return ErrNotConfigured
	}
	return nil
}

// Save writes the credentials file with owner-only permissions.
func Save(creds *Credentials) error {
	creds.Host = ident.NormalizeHost(creds.Host)
	if err := creds.Validate(); err != nil {
		return err
	}

	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := yaml.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
