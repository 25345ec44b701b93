package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// MinSecretLength is the minimum HMAC-SHA256 key length in bytes.
	MinSecretLength = 32
	// DefaultTokenTTL is how long a stream token stays valid.
	DefaultTokenTTL = 30 * 24 * time.Hour

	tokenIssuer    = "ramwatch"
	secretFileName = ".ramwatch-secret-key"
)

// ErrSecretTooShort is returned for HMAC keys below MinSecretLength.
var ErrSecretTooShort = errors.New("secret key too short")

// AuthService issues and validates the JWTs that guard the live feed.
type AuthService struct {
	secretKey []byte
	tokenTTL  time.Duration
	now       func() time.Time
}

// StreamClaims represents the JWT claims structure.
type StreamClaims struct {
	ClientName string `json:"client_name"`
	jwt.RegisteredClaims
}

// NewAuthService creates the service. A zero ttl uses DefaultTokenTTL.
func NewAuthService(secretKey string, tokenTTL time.Duration) (*AuthService, error) {
	secretKey = strings.TrimSpace(secretKey)
	if len(secretKey) < MinSecretLength {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrSecretTooShort, len(secretKey), MinSecretLength)
	}
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	return &AuthService{
		secretKey: []byte(secretKey),
		tokenTTL:  tokenTTL,
		now:       time.Now,
	}, nil
}

// DefaultSecretPath returns the key file location in the user's home
// directory, falling back to the temp directory.
func DefaultSecretPath() string {
	if homeDir, err := os.UserHomeDir(); err == nil && homeDir != "" {
		return filepath.Join(homeDir, secretFileName)
	}
	return filepath.Join(os.TempDir(), secretFileName)
}

// LoadOrCreateSecret reads the key persisted at path, or generates a random
// one and persists it with 0600 permissions. A key that cannot be persisted
// is still returned together with the write error.
func LoadOrCreateSecret(path string) (string, error) {
	if data, err := os.ReadFile(path); err == nil {
		if secret := strings.TrimSpace(string(data)); secret != "" {
			return secret, nil
		}
	}

	randomBytes := make([]byte, MinSecretLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("generating secret key: %w", err)
	}
	secret := hex.EncodeToString(randomBytes)

	if err := os.WriteFile(path, []byte(secret), 0o600); err != nil {
		return secret, fmt.Errorf("persisting secret key to %s: %w", path, err)
	}
	return secret, nil
}

// GenerateToken creates a signed token for clientName and returns it with
// its expiry.
func (a *AuthService) GenerateToken(clientName string) (string, time.Time, error) {
	now := a.now()
	expiresAt := now.Add(a.tokenTTL)

	claims := StreamClaims{
		ClientName: clientName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secretKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateToken verifies and parses a token.
func (a *AuthService) ValidateToken(tokenString string) (*StreamClaims, error) {
	claims := &StreamClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return a.secretKey, nil
		},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// TokenTTL returns the configured token lifetime.
func (a *AuthService) TokenTTL() time.Duration { return a.tokenTTL }
