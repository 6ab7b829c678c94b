// Package auth validates bearer tokens for the admin API.
//
// Tokens are HS256 JWTs in the shape issued by Supabase Auth: the subject is
// the user ID and the role lives in app_metadata.role, with a top-level role
// claim as fallback. Only the "admin" role may call /api/admin endpoints.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenExpiry is the lifetime of tokens minted by GenerateAccessToken.
const AccessTokenExpiry = 1 * time.Hour

// RoleAdmin is the role required for admin endpoints.
const RoleAdmin = "admin"

// Predefined JWT errors.
var (
	ErrInvalidAccessToken = errors.New("invalid access token")
	ErrAccessTokenExpired = errors.New("access token has expired")
	ErrMissingSigningKey  = errors.New("jwt signing key is not configured")
)

// AppMetadata is the server-controlled metadata block of a Supabase token.
type AppMetadata struct {
	Role string `json:"role,omitempty"`
}

// JWTClaims represents the claims in admin access tokens.
type JWTClaims struct {
	jwt.RegisteredClaims

	Email       string      `json:"email,omitempty"`
	Role        string      `json:"role,omitempty"`
	AppMetadata AppMetadata `json:"app_metadata,omitempty"`
}

// UserID returns the subject of the token.
func (c *JWTClaims) UserID() string {
	return c.Subject
}

// EffectiveRole prefers app_metadata.role over the top-level role claim.
func (c *JWTClaims) EffectiveRole() string {
	if c.AppMetadata.Role != "" {
		return c.AppMetadata.Role
	}
	return c.Role
}

// IsAdmin reports whether the token grants admin access.
func (c *JWTClaims) IsAdmin() bool {
	return c.EffectiveRole() == RoleAdmin
}

// JWTConfig holds configuration for the JWT service.
type JWTConfig struct {
	// SigningKey is the shared HS256 secret (the Supabase JWT secret).
	SigningKey string

	// Issuer is checked when non-empty.
	Issuer string

	// Audience is checked when non-empty (Supabase uses "authenticated").
	Audience string
}

// ConfigFromEnv loads JWT configuration. AUTH_JWT_SECRET wins over SUPABASE_JWT_SECRET.
func ConfigFromEnv() JWTConfig {
	key := os.Getenv("AUTH_JWT_SECRET")
	if key == "" {
		key = os.Getenv("SUPABASE_JWT_SECRET")
	}
	return JWTConfig{
		SigningKey: key,
		Issuer:     os.Getenv("AUTH_JWT_ISSUER"),
		Audience:   os.Getenv("AUTH_JWT_AUDIENCE"),
	}
}

// JWTService handles JWT creation and validation.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
}

// NewJWTService creates a new JWT service.
func NewJWTService(cfg JWTConfig) *JWTService {
	return &JWTService{
		signingKey: []byte(cfg.SigningKey),
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
	}
}

// Configured reports whether a signing key is set.
func (s *JWTService) Configured() bool {
	return len(s.signingKey) > 0
}

// GenerateAccessToken mints a token for the given subject and role.
// Used by safetyctl and tests; production tokens come from Supabase Auth.
func (s *JWTService) GenerateAccessToken(subject, role string) (string, time.Time, error) {
	if !s.Configured() {
		return "", time.Time{}, ErrMissingSigningKey
	}

	now := time.Now()
	expiresAt := now.Add(AccessTokenExpiry)

	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			ID:        generateTokenID(),
		},
		AppMetadata: AppMetadata{Role: role},
	}
	if s.audience != "" {
		claims.Audience = jwt.ClaimStrings{s.audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing access token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateAccessToken validates an access token and returns its claims.
func (s *JWTService) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	if !s.Configured() {
		return nil, ErrMissingSigningKey
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	if s.audience != "" {
		opts = append(opts, jwt.WithAudience(s.audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrAccessTokenExpired
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidAccessToken, err.Error())
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidAccessToken
	}

	return claims, nil
}

func generateTokenID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(bytes)
}
