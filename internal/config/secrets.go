package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const minSecretLength = 32

// Secrets are the two independent HMAC keys. They are read once at startup.
type Secrets struct {
	AccessSecret  string `yaml:"access_secret"`
	RefreshSecret string `yaml:"refresh_secret"`
}

// LoadSecrets reads the signing keys from a YAML file when path is set,
// otherwise from AUTH_ACCESS_SECRET and AUTH_REFRESH_SECRET.
func LoadSecrets(path string) (Secrets, error) {
	var s Secrets
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Secrets{}, fmt.Errorf("read secrets file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &s); err != nil {
			return Secrets{}, fmt.Errorf("parse secrets file: %w", err)
		}
	} else {
		s = Secrets{
			AccessSecret:  os.Getenv("AUTH_ACCESS_SECRET"),
			RefreshSecret: os.Getenv("AUTH_REFRESH_SECRET"),
		}
	}

	if err := s.Validate(); err != nil {
		return Secrets{}, fmt.Errorf("invalid auth secrets: %w", err)
	}
	return s, nil
}

// Validate enforces presence, minimum length and key separation.
func (s Secrets) Validate() error {
	if s.AccessSecret == "" {
		return errors.New("access secret is required")
	}
	if s.RefreshSecret == "" {
		return errors.New("refresh secret is required")
	}
	if len(s.AccessSecret) < minSecretLength {
		return fmt.Errorf("access secret too short (min %d bytes)", minSecretLength)
	}
	if len(s.RefreshSecret) < minSecretLength {
		return fmt.Errorf("refresh secret too short (min %d bytes)", minSecretLength)
	}
	if s.AccessSecret == s.RefreshSecret {
		return errors.New("access and refresh secrets must differ")
	}
	return nil
}
