// Package auth verifies access tokens issued by the hosted auth provider.
//
// Sessions (sign-in, refresh, sign-out) are owned by the provider. The API
// only checks the HS256 signature and standard claims of the bearer token
// and takes the subject, a UUID, as the user id.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultAudience is the audience the hosted provider stamps on user tokens.
const DefaultAudience = "authenticated"

// DefaultTokenTTL is the lifetime of tokens minted by Issue.
const DefaultTokenTTL = 1 * time.Hour

// Predefined JWT errors.
var (
	ErrInvalidAccessToken = errors.New("invalid access token")
	ErrAccessTokenExpired = errors.New("access token has expired")
	ErrMissingSubject     = errors.New("access token has no subject")
	ErrInvalidSubject     = errors.New("access token subject is not a user id")
	ErrMissingSecret      = errors.New("jwt secret is not configured")
)

// Claims represents the claims of a provider access token.
type Claims struct {
	jwt.RegisteredClaims

	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Identity is the authenticated caller.
type Identity struct {
	UserID string
	Email  string
}

// Config holds configuration for the verifier.
type Config struct {
	// Secret is the shared HS256 signing secret of the auth provider.
	Secret string

	// Issuer, when set, must match the token's iss claim.
	Issuer string

	// Audience must be present in the token's aud claim. Defaults to DefaultAudience.
	Audience string
}

// Verifier validates access tokens.
type Verifier struct {
	secret   []byte
	issuer   string
	audience string
}

// NewVerifier creates a new verifier.
func NewVerifier(cfg Config) (*Verifier, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}
	audience := cfg.Audience
	if audience == "" {
		audience = DefaultAudience
	}
	return &Verifier{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: audience,
	}, nil
}

// Verify validates a token and returns the caller identity.
func (v *Verifier) Verify(tokenString string) (*Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrAccessTokenExpired
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidAccessToken, err.Error())
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidAccessToken
	}
	userID, err := ParseUserID(claims.Subject)
	if err != nil {
		return nil, err
	}

	return &Identity{UserID: userID, Email: claims.Email}, nil
}

// ParseUserID validates a token subject and returns it in lower-case
// hyphenated form. User ids are the provider's UUIDs.
func ParseUserID(subject string) (string, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", ErrMissingSubject
	}
	id, err := uuid.Parse(subject)
	if err != nil || id == uuid.Nil {
		return "", ErrInvalidSubject
	}
	return id.String(), nil
}

// Issue mints a token the verifier accepts. It is used by tests and the
// operator CLI; production tokens come from the auth provider.
func (v *Verifier) Issue(userID, email string, ttl time.Duration) (string, time.Time, error) {
	userID, err := ParseUserID(userID)
	if err != nil {
		return "", time.Time{}, err
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := time.Now()
	expiresAt := now.Add(ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			Subject:   userID,
			Audience:  jwt.ClaimStrings{v.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        generateTokenID(),
		},
		Email: email,
		Role:  DefaultAudience,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing access token: %w", err)
	}
	return signed, expiresAt, nil
}

func generateTokenID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
