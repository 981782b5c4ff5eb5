// Package auth guards the local API with bearer tokens. The signing secret
// lives only in memory, so every token dies with the launcher that issued it.
package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuerName = "dreamlauncher"

var ErrInvalidCredentials = errors.New("invalid credentials")

// Issuer signs and verifies HS256 tokens with a random per-process secret.
type Issuer struct {
	secret []byte
}

// NewIssuer creates an Issuer with a fresh 32-byte secret.
func NewIssuer() (*Issuer, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate token secret: %w", err)
	}
	return &Issuer{secret: secret}, nil
}

// Issue returns a signed token for subject. A zero ttl means the token is
// valid until the issuing process exits.
func (i *Issuer) Issue(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:   issuerName,
		Subject:  subject,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return s, nil
}

// Verify checks signature, issuer and expiry.
func (i *Issuer) Verify(token string) error {
	if token == "" {
		return ErrInvalidCredentials
	}
	_, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithIssuer(issuerName), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	return nil
}

// WriteTokenFile stores token readable by the current user only.
func WriteTokenFile(path, token string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

// ReadTokenFile returns the token stored at path.
func ReadTokenFile(path string) (string, error) {
	// #nosec G304 -- path comes from local config
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
