// Package secret handles encryption of the git credential stored in the
// data directory, so a token for a private deploy repository never sits on
// disk in plaintext.
package secret

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fernet/fernet-go"

	"github.com/dockhand-cd/dockhand/config"
	"github.com/dockhand-cd/dockhand/domain"
)

// Service handles encryption/decryption of sensitive data
type Service struct {
	key *fernet.Key
}

// NewService creates a new encryption service with the provided key
func NewService(keyString string) (*Service, error) {
	if keyString == "" {
		return nil, fmt.Errorf("encryption key cannot be empty")
	}

	key, err := fernet.DecodeKey(keyString)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key: %w", err)
	}

	return &Service{key: key}, nil
}

// GenerateKey returns a new random key in the encoded form expected by
// NewService
func GenerateKey() (string, error) {
	var key fernet.Key
	if err := key.Generate(); err != nil {
		return "", fmt.Errorf("failed to generate encryption key: %w", err)
	}
	return key.Encode(), nil
}

// Encrypt encrypts plaintext and returns a base64-encoded token
func (s *Service) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil // Don't encrypt empty strings
	}

	token, err := fernet.EncryptAndSign([]byte(plaintext), s.key)
	if err != nil {
		return "", fmt.Errorf("encryption failed: %w", err)
	}
	return base64.StdEncoding.EncodeToString(token), nil
}

// Decrypt decrypts a base64-encoded token and returns plaintext
func (s *Service) Decrypt(token string) (string, error) {
	if token == "" {
		return "", nil // Return empty string for empty tokens
	}

	tokenBytes, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("invalid token format: %w", err)
	}

	// Set TTL to 100 years - we don't want credentials to expire
	plaintext := fernet.VerifyAndDecrypt(tokenBytes, time.Hour*24*365*100, []*fernet.Key{s.key})
	if plaintext == nil {
		return "", fmt.Errorf("failed to decrypt token: invalid or expired")
	}

	return string(plaintext), nil
}

// ResolveGitAuth builds the git authentication configuration for the deploy
// repository. Precedence: plaintext token from the environment, then an
// encrypted token file in the data directory (requires the master key).
// Returns nil for public repositories.
func ResolveGitAuth(cfg *config.Config) (*domain.GitAuthConfig, error) {
	token := cfg.GitToken

	if token == "" {
		encrypted, err := readTokenFile(cfg)
		if err != nil {
			return nil, err
		}
		if encrypted == "" {
			return nil, nil // Public repo
		}

		if cfg.MasterKey == "" {
			return nil, fmt.Errorf("encrypted git token present but DOCKHAND_MASTER_KEY is not set")
		}

		service, err := NewService(cfg.MasterKey)
		if err != nil {
			return nil, err
		}

		token, err = service.Decrypt(encrypted)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt git token: %w", err)
		}
	}

	username := cfg.GitUsername
	if username == "" {
		username = "token" // GitHub accepts any non-empty username for token auth
	}

	return &domain.GitAuthConfig{
		HTTPAuth: &domain.GitHTTPAuthConfig{
			Username: username,
			Password: token,
		},
	}, nil
}

// StoreToken encrypts the given token with the master key and writes it to
// the token file in the data directory
func StoreToken(cfg *config.Config, token string) error {
	if cfg.MasterKey == "" {
		return fmt.Errorf("DOCKHAND_MASTER_KEY is required to store an encrypted token")
	}

	service, err := NewService(cfg.MasterKey)
	if err != nil {
		return err
	}

	encrypted, err := service.Encrypt(token)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	path := tokenFilePath(cfg)
	if err := os.WriteFile(path, []byte(encrypted+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

func readTokenFile(cfg *config.Config) (string, error) {
	data, err := os.ReadFile(tokenFilePath(cfg))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read token file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func tokenFilePath(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, config.TokenFile)
}
