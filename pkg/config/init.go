package config

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/marmos91/dittosession/pkg/api/auth"
)

const configHeader = `# dsess Configuration File
#
# Values can be overridden with DSESS_* environment variables, e.g.
#   DSESS_LOGGING_LEVEL=DEBUG
#   DSESS_STORE_TYPE=badger
#
# Store types: memory, badger, postgres, sql, s3
# Codecs: cbor, json, xdr, local (memory store only)

`

// InitConfig writes a new configuration file at the default location and
// returns its path and the generated admin password.
func InitConfig(force bool) (path, adminPassword string, err error) {
	path = GetDefaultConfigPath()
	adminPassword, err = InitConfigToPath(path, force)
	return path, adminPassword, err
}

// InitConfigToPath writes a new configuration file at path. It refuses to
// overwrite an existing file unless force is set. The file gets a random
// JWT secret and the bcrypt hash of a random admin password, which is
// returned so it can be shown once.
func InitConfigToPath(path string, force bool) (string, error) {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
		}
	}

	secret, err := generateJWTSecret()
	if err != nil {
		return "", err
	}
	password, err := generateRandomPassword()
	if err != nil {
		return "", err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("failed to hash admin password: %w", err)
	}

	cfg := GetDefaultConfig()
	cfg.API.JWT.Secret = secret
	cfg.API.Admin.PasswordHash = hash
	// The hostname of the machine running init is not a useful default.
	cfg.Session.Node = ""

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(configHeader), data...), 0600); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return password, nil
}

// generateJWTSecret returns 32 random bytes, hex encoded.
func generateJWTSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// generateRandomPassword returns a 24-character URL-safe password.
func generateRandomPassword() (string, error) {
	b := make([]byte, 18)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
