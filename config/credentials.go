package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultCredentialsPath is where Credentials are read from when no
// explicit path is given, per spec.md §6.
const DefaultCredentialsPath = "~/.launchpad/credentials.json"

// Credentials is the on-disk shape of the credentials file.
type Credentials struct {
	Token        string     `json:"token"`
	RefreshToken string     `json:"refreshToken,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	ProjectID    string     `json:"projectId,omitempty"`
}

// Expired reports whether ExpiresAt is set and in the past.
func (c Credentials) Expired() bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(time.Now())
}

// LoadCredentials reads and parses a credentials file. An empty path
// resolves DefaultCredentialsPath against the user's home directory.
func LoadCredentials(path string) (*Credentials, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("config: reading credentials file %q: %w", resolved, err)
	}

	var creds Credentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return nil, fmt.Errorf("config: parsing credentials file %q: %w", resolved, err)
	}
	if creds.Token == "" {
		return nil, fmt.Errorf("config: credentials file %q has no token", resolved)
	}
	return &creds, nil
}

func resolvePath(path string) (string, error) {
	if path == "" {
		path = DefaultCredentialsPath
	}
	if path == "~" || len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("config: resolving home directory: %w", err)
		}
		path = filepath.Join(home, path[1:])
	}
	return path, nil
}
